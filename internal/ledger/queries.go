package ledger

import (
	"context"
	"sort"

	"github.com/dvloznov/mail-ledger/internal/domain"
	"github.com/dvloznov/mail-ledger/internal/export"
	"github.com/dvloznov/mail-ledger/internal/rules"
)

// MonthlyEvents returns the events of one "YYYY-MM" month, newest first.
func (e *Engine) MonthlyEvents(month string) []domain.FinancialEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.FinancialEvent
	for _, ev := range e.events {
		if ev.Month() == month {
			out = append(out, ev)
		}
	}
	return out
}

// MonthlySummaryFor aggregates one month of the ledger.
func (e *Engine) MonthlySummaryFor(month string) domain.MonthlySummary {
	return domain.Summarize(month, e.MonthlyEvents(month))
}

// Months lists every month present in the ledger, newest first.
func (e *Engine) Months() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	seen := map[string]bool{}
	var months []string
	for _, ev := range e.events {
		m := ev.Month()
		if !seen[m] {
			seen[m] = true
			months = append(months, m)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}

// ExportCSV renders one month of the ledger as a CSV report.
func (e *Engine) ExportCSV(month string) ([]byte, error) {
	return export.Render(e.MonthlyEvents(month))
}

// SelectedMonth returns the month the dashboard should show.
func (e *Engine) SelectedMonth() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs.SelectedMonth
}

// ScanSettings returns a copy of the current scan settings.
func (e *Engine) ScanSettings() rules.ScanSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs.ScanSettings
}

// mutatePrefs applies fn under the lock and persists the result.
func (e *Engine) mutatePrefs(ctx context.Context, fn func(p *Preferences) error) error {
	e.mu.Lock()
	if err := fn(&e.prefs); err != nil {
		e.mu.Unlock()
		return err
	}
	prefs := e.prefs
	e.mu.Unlock()
	e.savePrefs(ctx, prefs)
	return nil
}

func (e *Engine) AddScanRule(ctx context.Context, t rules.RuleType, value string) (rules.EmailRule, error) {
	var rule rules.EmailRule
	err := e.mutatePrefs(ctx, func(p *Preferences) error {
		var addErr error
		rule, addErr = p.ScanSettings.AddRule(t, value)
		return addErr
	})
	return rule, err
}

func (e *Engine) RemoveScanRule(ctx context.Context, id string) error {
	return e.mutatePrefs(ctx, func(p *Preferences) error {
		return p.ScanSettings.RemoveRule(id)
	})
}

func (e *Engine) ToggleScanRule(ctx context.Context, id string) error {
	return e.mutatePrefs(ctx, func(p *Preferences) error {
		return p.ScanSettings.ToggleRule(id)
	})
}

func (e *Engine) SetEnabledCategories(ctx context.Context, categories []domain.EventCategory) error {
	return e.mutatePrefs(ctx, func(p *Preferences) error {
		return p.ScanSettings.SetEnabledCategories(categories)
	})
}

// SetDaysToScan clamps the scan window to its valid range.
func (e *Engine) SetDaysToScan(ctx context.Context, days int) error {
	return e.mutatePrefs(ctx, func(p *Preferences) error {
		if days < rules.MinDaysToScan {
			days = rules.MinDaysToScan
		}
		if days > rules.MaxDaysToScan {
			days = rules.MaxDaysToScan
		}
		p.ScanSettings.DaysToScan = days
		return nil
	})
}

func (e *Engine) SetUseDefaultSenders(ctx context.Context, use bool) error {
	return e.mutatePrefs(ctx, func(p *Preferences) error {
		p.ScanSettings.UseDefaultSenders = use
		return nil
	})
}

func (e *Engine) SetDarkMode(ctx context.Context, on bool) error {
	return e.mutatePrefs(ctx, func(p *Preferences) error {
		p.DarkMode = on
		return nil
	})
}

func (e *Engine) SetNotificationsEnabled(ctx context.Context, on bool) error {
	return e.mutatePrefs(ctx, func(p *Preferences) error {
		p.NotificationsEnabled = on
		return nil
	})
}

func (e *Engine) SetSelectedMonth(ctx context.Context, month string) error {
	return e.mutatePrefs(ctx, func(p *Preferences) error {
		p.SelectedMonth = month
		return nil
	})
}
