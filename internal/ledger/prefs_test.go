package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/mail-ledger/internal/rules"
)

func TestLoadPreferences_MissingFile(t *testing.T) {
	prefs := LoadPreferences(filepath.Join(t.TempDir(), "nope.json"))
	if !prefs.NotificationsEnabled {
		t.Error("notifications not defaulted on")
	}
	if prefs.ScanSettings.DaysToScan != rules.DefaultDaysToScan {
		t.Errorf("DaysToScan = %d", prefs.ScanSettings.DaysToScan)
	}
	if !prefs.ScanSettings.UseDefaultSenders {
		t.Error("UseDefaultSenders not defaulted on")
	}
}

func TestLoadPreferences_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	prefs := LoadPreferences(path)
	if prefs.ScanSettings.DaysToScan != rules.DefaultDaysToScan {
		t.Errorf("malformed file did not fall back to defaults: %+v", prefs)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "prefs.json")

	prefs := DefaultPreferences()
	prefs.DarkMode = true
	prefs.SelectedMonth = "2024-10"
	prefs.ScanSettings.AddRule(rules.TypeSender, "mibanco.cl")
	prefs.ScanSettings.DaysToScan = 90

	if err := SavePreferences(path, prefs); err != nil {
		t.Fatalf("SavePreferences: %v", err)
	}

	loaded := LoadPreferences(path)
	if !loaded.DarkMode || loaded.SelectedMonth != "2024-10" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.ScanSettings.DaysToScan != 90 {
		t.Errorf("DaysToScan = %d", loaded.ScanSettings.DaysToScan)
	}
	if len(loaded.ScanSettings.CustomSenders) != 1 ||
		loaded.ScanSettings.CustomSenders[0].Value != "mibanco.cl" {
		t.Errorf("CustomSenders = %+v", loaded.ScanSettings.CustomSenders)
	}
}

func TestLoadPreferences_AbsentFieldsKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	os.WriteFile(path, []byte(`{"darkMode": true}`), 0o644)

	prefs := LoadPreferences(path)
	if !prefs.DarkMode {
		t.Error("stored darkMode not applied")
	}
	if !prefs.NotificationsEnabled {
		t.Error("absent notificationsEnabled overrode the default")
	}
	if prefs.ScanSettings.DaysToScan != rules.DefaultDaysToScan ||
		!prefs.ScanSettings.UseDefaultSenders {
		t.Errorf("absent scanSettings overrode defaults: %+v", prefs.ScanSettings)
	}
}

func TestLoadPreferences_RepairsRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	raw := `{
		"darkMode": false,
		"notificationsEnabled": true,
		"scanSettings": {
			"customSenders": [
				{"id": "r1", "type": "sender", "value": "  Banco.CL ", "enabled": true},
				{"id": "r2", "type": "sender", "value": "$$$", "enabled": true}
			],
			"daysToScan": 9999,
			"enabledCategories": ["card", "bogus"]
		}
	}`
	os.WriteFile(path, []byte(raw), 0o644)

	prefs := LoadPreferences(path)
	s := prefs.ScanSettings
	if len(s.CustomSenders) != 1 || s.CustomSenders[0].Value != "banco.cl" {
		t.Errorf("CustomSenders = %+v", s.CustomSenders)
	}
	if s.DaysToScan != rules.MaxDaysToScan {
		t.Errorf("DaysToScan = %d", s.DaysToScan)
	}
	if len(s.EnabledCategories) != 1 || s.EnabledCategories[0] != "card" {
		t.Errorf("EnabledCategories = %v", s.EnabledCategories)
	}
}
