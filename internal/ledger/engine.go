// Package ledger is the heart of the application: an in-memory transaction
// ledger driven by a small state machine around authentication and mailbox
// syncs. Collaborators (token provider, sync runner, mirror store, notifier,
// connectivity probe, clock) are injected, so the whole machine is testable
// without network access.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/mail-ledger/internal/auth"
	"github.com/dvloznov/mail-ledger/internal/domain"
	"github.com/dvloznov/mail-ledger/internal/gmail"
	"github.com/dvloznov/mail-ledger/internal/logger"
	"github.com/dvloznov/mail-ledger/internal/mirror"
	"github.com/dvloznov/mail-ledger/internal/notify"
	"github.com/dvloznov/mail-ledger/internal/rules"
	"github.com/dvloznov/mail-ledger/internal/syncer"
)

type AuthStatus string

const (
	AuthUnauthenticated AuthStatus = "unauthenticated"
	AuthAuthenticating  AuthStatus = "authenticating"
	AuthAuthenticated   AuthStatus = "authenticated"
)

type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncRunning SyncStatus = "syncing"
	SyncError   SyncStatus = "error"
)

// Origin says who asked for a sync. Manual syncs are rate limited.
type Origin string

const (
	OriginManual Origin = "manual"
	OriginAuto   Origin = "auto"
)

const (
	manualSyncCooldown = 30 * time.Second
	maxProcessedIDs    = 5000
)

var (
	ErrNotAuthenticated = errors.New("ledger: not authenticated")
	ErrSyncInFlight     = errors.New("ledger: sync already running")
	ErrOffline          = errors.New("ledger: offline")
	ErrRateLimited      = errors.New("ledger: manual sync rate limited")
	ErrEventNotFound    = errors.New("ledger: event not found")
)

// Runner executes one mailbox scan with a live access token.
type Runner interface {
	Run(ctx context.Context, accessToken string, settings rules.ScanSettings, processedIDs map[string]bool, progress func(syncer.Progress)) (*syncer.RunResult, error)
}

// Config wires the engine's collaborators. Provider and Runner are required;
// Mirror and Notifier may be nil, Online and Now default to sane values.
type Config struct {
	Provider        auth.TokenProvider
	Runner          Runner
	Mirror          mirror.Store
	Notifier        notify.Notifier
	Online          func() bool
	Now             func() time.Time
	PreferencesPath string
}

// Status is a read-only snapshot of the engine state.
type Status struct {
	Auth               AuthStatus
	Sync               SyncStatus
	SyncError          string
	Warning            string
	User               auth.UserInfo
	LastSyncAt         time.Time
	LastSyncEventCount int
	EventCount         int
}

type Engine struct {
	provider auth.TokenProvider
	runner   Runner
	store    mirror.Store
	notifier notify.Notifier
	online   func() bool
	now      func() time.Time

	prefsPath string

	mu           sync.Mutex
	authStatus   AuthStatus
	user         auth.UserInfo
	creds        auth.Credentials
	mirrorUserID string

	syncStatus         SyncStatus
	syncError          string
	warning            string
	syncing            bool
	firstSyncDone      bool
	lastSyncAt         time.Time
	lastSyncEventCount int
	lastManualSyncAt   time.Time

	events       []domain.FinancialEvent
	processedIDs []string

	prefs Preferences
}

func New(cfg Config) *Engine {
	e := &Engine{
		provider:   cfg.Provider,
		runner:     cfg.Runner,
		store:      cfg.Mirror,
		notifier:   cfg.Notifier,
		online:     cfg.Online,
		now:        cfg.Now,
		prefsPath:  cfg.PreferencesPath,
		authStatus: AuthUnauthenticated,
		syncStatus: SyncIdle,
	}
	if e.online == nil {
		e.online = func() bool { return true }
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.prefsPath != "" {
		e.prefs = LoadPreferences(e.prefsPath)
	} else {
		e.prefs = DefaultPreferences()
	}
	return e
}

// Login runs the consent-or-refresh flow and loads the user profile. On
// success the mirror, when configured, is consulted to seed the ledger.
func (e *Engine) Login(ctx context.Context, forceConsent bool) error {
	e.mu.Lock()
	e.authStatus = AuthAuthenticating
	e.mu.Unlock()

	creds, err := e.provider.RequestToken(ctx, forceConsent)
	if err != nil {
		e.mu.Lock()
		e.authStatus = AuthUnauthenticated
		e.mu.Unlock()
		return fmt.Errorf("requesting token: %w", err)
	}
	return e.completeLogin(ctx, creds)
}

// LoginWithToken authenticates with an access token obtained elsewhere.
// Used by the headless tools.
func (e *Engine) LoginWithToken(ctx context.Context, accessToken string) error {
	e.mu.Lock()
	e.authStatus = AuthAuthenticating
	e.mu.Unlock()

	creds := auth.Credentials{
		AccessToken: accessToken,
		ExpiresAt:   e.now().Add(55 * time.Minute),
	}
	return e.completeLogin(ctx, creds)
}

func (e *Engine) completeLogin(ctx context.Context, creds auth.Credentials) error {
	info, err := e.provider.FetchUserInfo(ctx, creds.AccessToken)
	if err != nil {
		e.mu.Lock()
		e.authStatus = AuthUnauthenticated
		e.mu.Unlock()
		return fmt.Errorf("fetching user info: %w", err)
	}

	e.mu.Lock()
	e.creds = creds
	e.user = info
	e.authStatus = AuthAuthenticated
	e.mu.Unlock()

	e.hydrateFromMirror(ctx, info)
	return nil
}

// hydrateFromMirror ensures the mirror knows the user and, when the local
// ledger is empty, seeds it with the mirrored events. All of it best-effort.
func (e *Engine) hydrateFromMirror(ctx context.Context, info auth.UserInfo) {
	if e.store == nil {
		return
	}
	log := logger.FromContext(ctx)

	u, err := e.store.GetUserByExternalID(ctx, info.ID)
	switch {
	case errors.Is(err, mirror.ErrNotFound):
		u = &mirror.User{
			ID:         uuid.NewString(),
			ExternalID: info.ID,
			Email:      info.Email,
			Name:       info.Name,
		}
		if err := e.store.CreateUser(ctx, u); err != nil {
			log.Warn().Err(err).Msg("mirror user create failed")
			return
		}
	case err != nil:
		log.Warn().Err(err).Msg("mirror user lookup failed")
		return
	}

	e.mu.Lock()
	e.mirrorUserID = u.ID
	empty := len(e.events) == 0
	e.mu.Unlock()
	if !empty {
		return
	}

	rows, err := e.store.GetEvents(ctx, u.ID)
	if err != nil {
		log.Warn().Err(err).Msg("mirror event load failed")
		return
	}
	events := make([]domain.FinancialEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.ToDomain())
	}
	domain.SortEventsByDateDesc(events)

	e.mu.Lock()
	if len(e.events) == 0 {
		e.events = events
	}
	e.mu.Unlock()
}

// Logout revokes the token best-effort and discards session and ledger
// state. Preferences survive.
func (e *Engine) Logout(ctx context.Context) {
	e.mu.Lock()
	token := e.creds.AccessToken
	e.mu.Unlock()

	if token != "" {
		if err := e.provider.RevokeAccess(ctx, token); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Msg("token revoke failed")
		}
	}
	e.teardown()
}

// teardown resets everything except preferences.
func (e *Engine) teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.authStatus = AuthUnauthenticated
	e.user = auth.UserInfo{}
	e.creds = auth.Credentials{}
	e.mirrorUserID = ""
	e.syncStatus = SyncIdle
	e.syncError = ""
	e.warning = ""
	e.syncing = false
	e.firstSyncDone = false
	e.lastSyncAt = time.Time{}
	e.lastSyncEventCount = 0
	e.lastManualSyncAt = time.Time{}
	e.events = nil
	e.processedIDs = nil
}

// SyncEvents runs one sync. Guards, in order: authentication, no concurrent
// runs, connectivity, the manual-sync cooldown, token freshness. forceFull
// discards the ledger and processed ids and rebuilds from scratch.
func (e *Engine) SyncEvents(ctx context.Context, origin Origin, forceFull bool) error {
	log := logger.FromContext(ctx)
	now := e.now()

	e.mu.Lock()
	if e.authStatus != AuthAuthenticated {
		e.mu.Unlock()
		return ErrNotAuthenticated
	}
	if e.syncing {
		e.mu.Unlock()
		return ErrSyncInFlight
	}
	if !e.online() {
		e.syncStatus = SyncError
		e.syncError = "Sin conexión. Revisa tu internet e intenta nuevamente."
		e.mu.Unlock()
		return ErrOffline
	}
	if origin == OriginManual && !e.lastManualSyncAt.IsZero() {
		if wait := manualSyncCooldown - now.Sub(e.lastManualSyncAt); wait > 0 {
			secs := int(math.Ceil(wait.Seconds()))
			e.syncStatus = SyncError
			e.syncError = fmt.Sprintf("Espera %ds antes de volver a sincronizar.", secs)
			e.mu.Unlock()
			return fmt.Errorf("%w: wait %ds", ErrRateLimited, secs)
		}
	}
	if origin == OriginManual {
		e.lastManualSyncAt = now
	}
	e.syncing = true
	e.syncStatus = SyncRunning
	e.syncError = ""
	e.warning = ""
	creds := e.creds
	settings := e.prefs.ScanSettings
	wasFirst := !e.firstSyncDone
	processed := map[string]bool{}
	if !forceFull {
		for _, id := range e.processedIDs {
			processed[id] = true
		}
	}
	e.mu.Unlock()

	finishError := func(err error) error {
		message, teardown := classifySyncError(err)
		if teardown {
			log.Warn().Err(err).Msg("sync auth failure, logging out")
			e.teardown()
			e.mu.Lock()
			e.syncStatus = SyncError
			e.syncError = message
			e.mu.Unlock()
			return err
		}
		e.mu.Lock()
		e.syncing = false
		e.syncStatus = SyncError
		e.syncError = message
		e.mu.Unlock()
		return err
	}

	if creds.Expired(now) {
		fresh, err := e.provider.RefreshToken(ctx)
		if err != nil {
			return finishError(fmt.Errorf("refreshing token: %w: %v", auth.ErrNeedsConsent, err))
		}
		e.mu.Lock()
		e.creds = fresh
		creds = fresh
		e.mu.Unlock()
	}

	result, err := e.runner.Run(ctx, creds.AccessToken, settings, processed, nil)
	if err != nil {
		return finishError(err)
	}

	newEvents := e.applyRunResult(result, forceFull)

	e.mu.Lock()
	e.syncing = false
	e.syncStatus = SyncIdle
	e.warning = result.Diagnostics.Warning
	e.lastSyncAt = e.now()
	e.lastSyncEventCount = len(newEvents)
	e.firstSyncDone = true
	if len(e.events) > 0 {
		e.prefs.SelectedMonth = e.events[0].Month()
	}
	prefs := e.prefs
	notifyUser := !wasFirst && !forceFull &&
		len(newEvents) > 0 && prefs.NotificationsEnabled && e.notifier != nil
	userID := e.mirrorUserID
	e.mu.Unlock()

	e.savePrefs(ctx, prefs)

	if notifyUser {
		e.notifier.Notify(ctx, "Nuevas transacciones", notify.NewEventsBody(len(newEvents)))
	}
	e.mirrorNewEvents(ctx, userID, newEvents)

	log.Info().Int("new", len(newEvents)).Bool("full", forceFull).Msg("sync finished")
	return nil
}

// applyRunResult folds a run into the ledger. Full syncs replace; incremental
// syncs merge with existing events winning on id collisions. Returns the
// events that are new to the ledger.
func (e *Engine) applyRunResult(result *syncer.RunResult, full bool) []domain.FinancialEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var newEvents []domain.FinancialEvent
	if full {
		newEvents = result.Events
		e.events = append([]domain.FinancialEvent(nil), result.Events...)
		e.processedIDs = capIDs(result.ProcessedIDs)
	} else {
		known := make(map[string]bool, len(e.events))
		for _, ev := range e.events {
			known[ev.ID] = true
		}
		for _, ev := range result.Events {
			if !known[ev.ID] {
				newEvents = append(newEvents, ev)
			}
		}
		e.events = append(e.events, newEvents...)
		domain.SortEventsByDateDesc(e.events)
		e.processedIDs = capIDs(append(append([]string(nil), result.ProcessedIDs...), e.processedIDs...))
	}
	return newEvents
}

// capIDs dedups while preserving order (newest first) and caps the set.
func capIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == maxProcessedIDs {
			break
		}
	}
	return out
}

func (e *Engine) mirrorNewEvents(ctx context.Context, userID string, events []domain.FinancialEvent) {
	if e.store == nil || userID == "" || len(events) == 0 {
		return
	}
	rows := make([]mirror.Event, 0, len(events))
	for _, ev := range events {
		rows = append(rows, mirror.FromDomain(userID, ev))
	}
	if _, err := e.store.CreateEvents(ctx, userID, rows); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("mirror event write failed")
	}
}

// classifySyncError maps a raw sync failure to the user-facing message and
// whether the session must be torn down.
func classifySyncError(err error) (message string, teardown bool) {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, gmail.ErrUnauthorized),
		errors.Is(err, auth.ErrNeedsConsent),
		strings.Contains(msg, "401"),
		strings.Contains(msg, "403"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "invalid credentials"):
		return "Tu sesión expiró. Inicia sesión nuevamente.", true
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "rate limit"):
		return "El servicio de correo está limitando las solicitudes. Intenta más tarde.", false
	case isNetworkError(err),
		errors.Is(err, gmail.ErrCircuitOpen),
		errors.Is(err, gmail.ErrMailboxUnstable),
		strings.Contains(msg, "network"),
		strings.Contains(msg, "connection"),
		strings.Contains(msg, "timeout"):
		return "No se pudo conectar al servidor de correo. Revisa tu conexión.", false
	default:
		return "No se pudo completar la sincronización. Intenta nuevamente.", false
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// DeleteEvent removes an event locally and, best-effort, from the mirror.
func (e *Engine) DeleteEvent(ctx context.Context, id string) error {
	e.mu.Lock()
	idx := -1
	for i, ev := range e.events {
		if ev.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.mu.Unlock()
		return ErrEventNotFound
	}
	e.events = append(e.events[:idx], e.events[idx+1:]...)
	userID := e.mirrorUserID
	e.mu.Unlock()

	if e.store != nil && userID != "" {
		if err := e.store.DeleteEventByExternalID(ctx, userID, id); err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Str("id", id).Err(err).Msg("mirror event delete failed")
		}
	}
	return nil
}

// ClearSyncCache wipes the ledger and sync metadata so the next sync starts
// from scratch. Authentication is untouched.
func (e *Engine) ClearSyncCache() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = nil
	e.processedIDs = nil
	e.firstSyncDone = false
	e.lastSyncAt = time.Time{}
	e.lastSyncEventCount = 0
	e.syncStatus = SyncIdle
	e.syncError = ""
	e.warning = ""
}

// Events returns a copy of the ledger, newest first.
func (e *Engine) Events() []domain.FinancialEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.FinancialEvent(nil), e.events...)
}

// CurrentStatus snapshots the machine state.
func (e *Engine) CurrentStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Auth:               e.authStatus,
		Sync:               e.syncStatus,
		SyncError:          e.syncError,
		Warning:            e.warning,
		User:               e.user,
		LastSyncAt:         e.lastSyncAt,
		LastSyncEventCount: e.lastSyncEventCount,
		EventCount:         len(e.events),
	}
}

func (e *Engine) savePrefs(ctx context.Context, prefs Preferences) {
	if e.prefsPath == "" {
		return
	}
	if err := SavePreferences(e.prefsPath, prefs); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("preferences save failed")
	}
}
