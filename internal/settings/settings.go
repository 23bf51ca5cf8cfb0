// Package settings persists the user's runtime preferences (which prayers
// alert, the alert sound, Ramadan mode, background mode) in SQLite and
// serves them to the engine as an atomically swapped snapshot.
package settings

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"
	_ "modernc.org/sqlite"

	"github.com/smokyabdulrahman/uyan/internal/alarm"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultEnabled is the alert map a fresh install starts with. Keys are
// display labels, including the Ramadan aliases.
func DefaultEnabled() alarm.EnabledSet {
	return alarm.EnabledSet{
		"İmsak":   true,
		"Güneş":   false,
		"Öğle":    true,
		"İkindi":  true,
		"Akşam":   true,
		"Yatsı":   true,
		"İftar":   true,
		"Sahur":   true,
		"Teravih": true,
	}
}

// Defaults seeds a fresh database.
type Defaults struct {
	SoundID     string
	RamadanMode bool
	Background  bool
}

// Snapshot is an immutable view of the settings.
type Snapshot struct {
	Enabled     alarm.EnabledSet
	SoundID     string
	RamadanMode bool
	Background  bool
}

func (s Snapshot) clone() Snapshot {
	s.Enabled = maps.Clone(s.Enabled)
	return s
}

// Keys returns the alert keys in sorted order.
func (s Snapshot) Keys() []string {
	return slices.Sorted(maps.Keys(s.Enabled))
}

// Store reads and writes settings. Reads never touch the database.
type Store struct {
	db     *sql.DB
	snap   atomic.Pointer[Snapshot]
	logger zerolog.Logger
}

var _ alarm.Preferences = (*Store)(nil)

// DefaultPath returns ~/.local/share/uyan/settings.db, honouring XDG_DATA_HOME.
func DefaultPath() string {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "uyan", "settings.db")
		}
		dir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dir, "uyan", "settings.db")
}

// Open opens (creating if needed) the database at path, applies migrations,
// seeds it with d on first use and loads the snapshot.
func Open(ctx context.Context, path string, d Defaults) (*Store, error) {
	logger := logging.GetLogger("settings").With().Str("db_path", path).Logger()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.seed(ctx, d); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.reload(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Debug().Msg("Settings loaded")
	return s, nil
}

func (s *Store) migrate() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Store) seed(ctx context.Context, d Defaults) error {
	if d.SoundID == "" {
		d.SoundID = "beep"
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO app_settings (id, sound_id, ramadan_mode, background_mode)
			VALUES (1, ?, ?, ?)
		`, d.SoundID, d.RamadanMode, d.Background)
		if err != nil {
			return fmt.Errorf("failed to seed settings: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		s.logger.Info().Msg("Seeding default settings")
		for key, on := range DefaultEnabled() {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO notification_prefs (key, enabled) VALUES (?, ?)`, key, on); err != nil {
				return fmt.Errorf("failed to seed notification %s: %w", key, err)
			}
		}
		return nil
	})
}

func (s *Store) reload(ctx context.Context) error {
	snap := Snapshot{Enabled: alarm.EnabledSet{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT sound_id, ramadan_mode, background_mode FROM app_settings WHERE id = 1`,
	).Scan(&snap.SoundID, &snap.RamadanMode, &snap.Background)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, enabled FROM notification_prefs`)
	if err != nil {
		return fmt.Errorf("failed to load notification preferences: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var on bool
		if err := rows.Scan(&key, &on); err != nil {
			return fmt.Errorf("failed to scan notification preference: %w", err)
		}
		snap.Enabled[key] = on
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read notification preferences: %w", err)
	}

	s.snap.Store(&snap)
	return nil
}

func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w, rollback failed: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Snapshot {
	return s.snap.Load().clone()
}

// EnabledSet returns the current alert map. Callers must not modify it.
func (s *Store) EnabledSet() alarm.EnabledSet { return s.snap.Load().Enabled }

// Labels returns the display labels for the current Ramadan mode.
func (s *Store) Labels() prayer.Labels { return prayer.LabelsFor(s.snap.Load().RamadanMode) }

// SoundID returns the selected alert sound.
func (s *Store) SoundID() string { return s.snap.Load().SoundID }

// Background reports whether background mode is switched on.
func (s *Store) Background() bool { return s.snap.Load().Background }

// SetEnabled turns the alert for key on or off. key is a display label
// such as "Akşam" or a canonical name such as "Maghrib"; a canonical name
// is stored under its label for the current Ramadan mode.
func (s *Store) SetEnabled(ctx context.Context, key string, on bool) error {
	if key == "" {
		return errors.New("notification key cannot be empty")
	}
	key = s.storageKey(key)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_prefs (key, enabled, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`, key, on)
	if err != nil {
		return fmt.Errorf("failed to save notification %s: %w", key, err)
	}
	s.logger.Debug().Str("key", key).Bool("enabled", on).Msg("Notification preference saved")
	return s.reload(ctx)
}

// Toggle flips the alert for key and returns the new value. A key never
// seen before counts as off, so the first toggle enables it.
func (s *Store) Toggle(ctx context.Context, key string) (bool, error) {
	key = s.storageKey(key)
	on := !s.EnabledSet()[key]
	return on, s.SetEnabled(ctx, key, on)
}

// storageKey maps a canonical name to the label the dispatcher looks up
// first. Other keys are returned unchanged.
func (s *Store) storageKey(key string) string {
	if name, err := prayer.ParseName(key); err == nil {
		return s.Labels().Label(name)
	}
	return key
}

// SetSound selects the alert sound.
func (s *Store) SetSound(ctx context.Context, id string) error {
	return s.update(ctx, "sound_id", id)
}

// SetRamadanMode switches the Ramadan labels.
func (s *Store) SetRamadanMode(ctx context.Context, on bool) error {
	return s.update(ctx, "ramadan_mode", on)
}

// SetBackground records the background mode switch.
func (s *Store) SetBackground(ctx context.Context, on bool) error {
	return s.update(ctx, "background_mode", on)
}

// update writes one app_settings column; column is never user input.
func (s *Store) update(ctx context.Context, column string, value any) error {
	query := fmt.Sprintf(`UPDATE app_settings SET %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`, column)
	if _, err := s.db.ExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", column, err)
	}
	s.logger.Debug().Str("setting", column).Interface("value", value).Msg("Setting saved")
	return s.reload(ctx)
}
