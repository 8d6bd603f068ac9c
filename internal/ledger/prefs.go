package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/mail-ledger/internal/rules"
)

// Preferences is the only state that survives a restart. Session tokens and
// ledger contents are deliberately excluded: a fresh process always starts
// unauthenticated with an empty ledger.
type Preferences struct {
	DarkMode             bool               `json:"darkMode"`
	NotificationsEnabled bool               `json:"notificationsEnabled"`
	SelectedMonth        string             `json:"selectedMonth"`
	ScanSettings         rules.ScanSettings `json:"scanSettings"`
}

// DefaultPreferences returns the preferences of a first run.
func DefaultPreferences() Preferences {
	return Preferences{
		NotificationsEnabled: true,
		ScanSettings:         rules.DefaultScanSettings(),
	}
}

// LoadPreferences reads preferences from path, merging whatever is usable
// over the defaults. A missing file, malformed JSON, absent fields or broken
// rule entries all degrade to defaults rather than failing the start.
func LoadPreferences(path string) Preferences {
	prefs := DefaultPreferences()

	data, err := os.ReadFile(path)
	if err != nil {
		return prefs
	}

	// Pointer fields distinguish "absent" from zero values, so a file written
	// before a preference existed keeps that preference's default.
	var stored struct {
		DarkMode             *bool               `json:"darkMode"`
		NotificationsEnabled *bool               `json:"notificationsEnabled"`
		SelectedMonth        *string             `json:"selectedMonth"`
		ScanSettings         *rules.ScanSettings `json:"scanSettings"`
	}
	if err := json.Unmarshal(data, &stored); err != nil {
		return prefs
	}

	if stored.DarkMode != nil {
		prefs.DarkMode = *stored.DarkMode
	}
	if stored.NotificationsEnabled != nil {
		prefs.NotificationsEnabled = *stored.NotificationsEnabled
	}
	if stored.SelectedMonth != nil {
		prefs.SelectedMonth = *stored.SelectedMonth
	}
	if stored.ScanSettings != nil {
		prefs.ScanSettings = *stored.ScanSettings
		prefs.ScanSettings.Normalize()
		if len(prefs.ScanSettings.EnabledCategories) == 0 {
			prefs.ScanSettings = rules.DefaultScanSettings()
		}
	}
	return prefs
}

// SavePreferences writes preferences atomically: temp file in the same
// directory, then rename.
func SavePreferences(path string, prefs Preferences) error {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding preferences: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating preferences dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing preferences: %w", err)
	}
	return nil
}

// DefaultPreferencesPath is where the CLI tools keep preferences when no
// explicit path is given.
func DefaultPreferencesPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.New("ledger: cannot resolve user config dir")
	}
	return filepath.Join(dir, "mail-ledger", "preferences.json"), nil
}
