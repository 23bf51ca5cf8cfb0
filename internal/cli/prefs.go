package cli

import (
	"context"

	"github.com/smokyabdulrahman/uyan/internal/alarm"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
	"github.com/smokyabdulrahman/uyan/internal/settings"
)

func (a *app) settingsPath() string {
	if a.cfg.SettingsDB != "" {
		return a.cfg.SettingsDB
	}
	return settings.DefaultPath()
}

// openSettings opens the settings database, seeding a new one from the
// config file.
func (a *app) openSettings(ctx context.Context) (*settings.Store, error) {
	return settings.Open(ctx, a.settingsPath(), settings.Defaults{
		SoundID:     a.cfg.Sound,
		RamadanMode: a.cfg.RamadanMode,
		Background:  a.cfg.Background,
	})
}

// displayPrefs is what read-only commands need from the settings. When the
// database cannot be opened the defaults are used.
type displayPrefs struct {
	labels  prayer.Labels
	enabled alarm.EnabledSet
}

func (a *app) displayPrefs(ctx context.Context) displayPrefs {
	p := displayPrefs{
		labels:  prayer.LabelsFor(a.cfg.RamadanMode),
		enabled: settings.DefaultEnabled(),
	}
	store, err := a.openSettings(ctx)
	if err != nil {
		logger := logging.GetLogger("cli")
		logger.Warn().Err(err).Msg("Settings unavailable, using defaults")
		return p
	}
	defer store.Close()

	p.enabled = store.EnabledSet()
	if !a.ramadanFlag {
		p.labels = store.Labels()
	}
	return p
}
