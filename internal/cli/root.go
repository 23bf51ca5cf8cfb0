package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/uyan/internal/api"
	"github.com/smokyabdulrahman/uyan/internal/config"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/timesource"
)

// app is the state shared by every subcommand. Tests replace fetcher and
// now to run commands without the network or the wall clock.
type app struct {
	cfg        *config.Config
	configPath string
	json       bool

	// ramadanFlag is set when --ramadan-mode was given and overrides the
	// stored setting for this run.
	ramadanFlag bool

	fetcher timesource.Fetcher
	now     func() time.Time
}

func (a *app) timeFetcher() timesource.Fetcher {
	if a.fetcher == nil {
		return api.NewClient()
	}
	return a.fetcher
}

func (a *app) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}

// NewRootCmd creates the root command for the uyan CLI.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(version, &app{})
}

func newRootCmd(version string, a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "uyan",
		Short:   "Prayer countdown and alarm",
		Long:    "Uyan shows today's prayer times, counts down to the next one and\nraises an alert once when each enabled prayer time begins.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		// Default action: show today's prayer schedule.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToday(cmd, a, todayOptions{})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("uyan version {{.Version}}\n")

	// Every config key with a flag here overrides the file and environment.
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/uyan/config.toml)")
	pf.String("city", "", "Override city (takes precedence over coordinates)")
	pf.String("country", "", "Override country")
	pf.Float64("latitude", 0, "Override latitude")
	pf.Float64("longitude", 0, "Override longitude")
	pf.Int("method", 13, "Calculation method (0-23, 13 = Diyanet)")
	pf.Int("school", -1, "School (0=Shafi, 1=Hanafi)")
	pf.String("timezone", "", "IANA timezone used when the API reports none")
	pf.String("time-format", "", "Time format: 12h or 24h")
	pf.String("cache-dir", "", "Cache directory (default: ~/.cache/uyan/)")
	pf.String("settings-db", "", "Settings database (default: $XDG_DATA_HOME/uyan/settings.db)")
	pf.Bool("ramadan-mode", false, "Use Ramadan labels (İftar, Teravih)")
	pf.String("log-level", "", "Log level: trace, debug, info, warn, error, disabled")
	pf.BoolVar(&a.json, "json", false, "Output as JSON (where supported)")

	rootCmd.AddCommand(newTodayCmd(a))
	rootCmd.AddCommand(newNextCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newQiblaCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newMethodsCmd())
	rootCmd.AddCommand(newSoundsCmd(a))
	rootCmd.AddCommand(newNotificationsCmd(a))

	return rootCmd
}

// load resolves the effective configuration: defaults < config file <
// UYAN_* environment < flags.
func (a *app) load(cmd *cobra.Command) error {
	// .env is optional.
	_ = godotenv.Load()

	logging.InitializeWriter(os.Getenv("ENV") != "production", cmd.ErrOrStderr())

	path := a.configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return err
		}
		path = p
	}
	a.configPath = path

	cfg, err := config.LoadFrom(path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	logging.SetLogLevel(cfg.LogLevel)
	a.ramadanFlag = cmd.Flags().Changed("ramadan-mode")
	a.cfg = cfg
	return nil
}

// goTimeFormat maps the time_format setting to a Go layout.
func goTimeFormat(cfg *config.Config) string {
	if cfg.TimeFormat == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// PrintVersion prints the version string in the expected format.
func PrintVersion(w io.Writer, version string) {
	fmt.Fprintf(w, "uyan version %s\n", version)
}
