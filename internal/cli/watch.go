package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/uyan/internal/alarm"
	"github.com/smokyabdulrahman/uyan/internal/audio"
	"github.com/smokyabdulrahman/uyan/internal/config"
	"github.com/smokyabdulrahman/uyan/internal/display"
	"github.com/smokyabdulrahman/uyan/internal/engine"
	"github.com/smokyabdulrahman/uyan/internal/geo"
	"github.com/smokyabdulrahman/uyan/internal/jobs"
	"github.com/smokyabdulrahman/uyan/internal/keepalive"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/metrics"
	"github.com/smokyabdulrahman/uyan/internal/notify"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
	"github.com/smokyabdulrahman/uyan/internal/server"
	"github.com/smokyabdulrahman/uyan/internal/settings"
)

const statusJobName = "status-line"

type watchOptions struct {
	status   bool
	noServer bool
}

func newWatchCmd(a *app) *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the countdown and raise an alert at each prayer time",
		Long: "Keep running, count down to the next prayer and notify once when each\n" +
			"enabled prayer time begins. Alerts go to the log and, when configured,\n" +
			"to MQTT and NATS. A status API is served on server.addr.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd, a, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.status, "status", display.Enabled(), "Redraw a countdown line every second")
	cmd.Flags().BoolVar(&opts.noServer, "no-server", false, "Do not start the status API")
	return cmd
}

// daemon holds everything watch starts so it can be torn down in order.
type daemon struct {
	engine   *engine.Engine
	settings *settings.Store
	sched    *jobs.Scheduler
	registry *prometheus.Registry
	closers  []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func runWatch(ctx context.Context, cmd *cobra.Command, a *app, opts watchOptions) error {
	logger := logging.GetLogger("watch")

	d, err := a.startDaemon(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		if err := d.close(); err != nil {
			logger.Warn().Err(err).Msg("Shutdown finished with errors")
		}
	}()

	if opts.status {
		if _, err := d.sched.Every(ctx, statusJobName, time.Second, statusLine(cmd.OutOrStdout(), d.engine, d.settings)); err != nil {
			return err
		}
	}

	if !opts.noServer && a.cfg.Server.Addr != "" {
		srv := server.New(server.Options{
			Engine:      d.engine,
			Settings:    d.settings,
			Metrics:     metrics.HTTPHandler(d.registry),
			CORSOrigins: a.cfg.Server.CORSOrigins,
		})
		go func() {
			if err := srv.Run(ctx, a.cfg.Server.Addr); err != nil {
				logger.Error().Err(err).Msg("Status API stopped")
			}
		}()
	}

	if stopWatch, err := config.Watch(a.configPath, a.onConfigChange(ctx, d.engine)); err != nil {
		logger.Debug().Err(err).Str("path", a.configPath).Msg("Config file not watched")
	} else {
		defer stopWatch()
	}

	place := d.engine.Place()
	logger.Info().
		Float64("lat", place.Coordinate.Lat).
		Float64("lon", place.Coordinate.Lon).
		Str("city", place.City).
		Strs("jobs", d.sched.Jobs()).
		Msg("Watching prayer times")

	<-ctx.Done()
	if opts.status {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

// startDaemon wires the time source, settings, sinks, keep-alive and
// engine, and starts the engine.
func (a *app) startDaemon(ctx context.Context, noticeOut io.Writer) (*daemon, error) {
	logger := logging.GetLogger("watch")
	d := &daemon{registry: prometheus.NewRegistry()}
	rec := metrics.NewPrometheusRecorder(d.registry)

	store, storeCloser := openStore(ctx, a.cfg)
	d.closers = append(d.closers, storeCloser)

	place, err := resolvePlace(ctx, a.cfg, store)
	if err != nil {
		_ = d.close()
		return nil, err
	}
	loc := place.location(a.cfg)

	prefs, err := a.openSettings(ctx)
	if err != nil {
		_ = d.close()
		return nil, err
	}
	d.settings = prefs
	d.closers = append(d.closers, prefs)

	sinks, surface := a.openSinks(d)

	player := audio.NewPlayer(a.cfg.SoundsDir)
	d.closers = append(d.closers, closerFunc(func() error {
		player.Stop()
		return nil
	}))

	sched, err := jobs.NewScheduler(nil)
	if err != nil {
		_ = d.close()
		return nil, err
	}
	d.sched = sched

	detector := alarm.NewDetector(rec)
	ka := keepalive.New(keepalive.Options{
		Notifier:  sinks,
		Surface:   surface,
		Audio:     player,
		Scheduler: sched,
		Schedule:  detector,
		Labels:    prefs,
		Clock:     sched.Clock(),
		Recorder:  rec,
		Notice:    func(msg string) { fmt.Fprintln(noticeOut, msg) },
	}, prefs.Background())

	d.engine = engine.New(engine.Options{
		Source:     a.newSource(store, loc, rec),
		Place:      place.Place,
		Location:   loc,
		Detector:   detector,
		Dispatcher: alarm.NewDispatcher(prefs, sinks, player, rec),
		KeepAlive:  ka,
		Scheduler:  sched,
		Recorder:   rec,
	})

	if err := d.engine.Start(ctx); err != nil {
		_ = d.close()
		return nil, fmt.Errorf("failed to load today's schedule: %w", err)
	}
	// Stop runs before the remaining closers.
	d.closers = append([]io.Closer{closerFunc(func() error {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return d.engine.Stop(stopCtx)
	})}, d.closers...)

	if prefs.Background() {
		if err := ka.Enable(ctx); err != nil {
			logger.Warn().Err(err).Msg("Background mode unavailable")
			_ = ka.SetFeature(ctx, false)
		}
	}
	return d, nil
}

// openSinks builds the notification fan-out. MQTT and NATS are optional;
// a sink that cannot connect is skipped. The returned surface is nil
// without MQTT.
func (a *app) openSinks(d *daemon) (notify.Multi, keepalive.Surface) {
	logger := logging.GetLogger("watch")
	sinks := notify.Multi{notify.NewLog()}
	var surface keepalive.Surface

	if a.cfg.MQTT.Broker != "" {
		m, err := notify.NewMQTT(notify.MQTTOptions{
			BrokerURL: a.cfg.MQTT.Broker,
			ClientID:  a.cfg.MQTT.ClientID,
			Username:  a.cfg.MQTT.Username,
			Password:  a.cfg.MQTT.Password,
			Prefix:    a.cfg.MQTT.Prefix,
		})
		if err != nil {
			logger.Warn().Err(err).Str("broker", a.cfg.MQTT.Broker).Msg("MQTT sink disabled")
		} else {
			sinks = append(sinks, m)
			surface = m
			d.closers = append(d.closers, closerFunc(func() error {
				m.Close()
				return nil
			}))
		}
	}

	if a.cfg.NATS.URL != "" {
		n, err := notify.NewNATS(a.cfg.NATS.URL, a.cfg.NATS.Subject)
		if err != nil {
			logger.Warn().Err(err).Str("url", a.cfg.NATS.URL).Msg("NATS sink disabled")
		} else {
			sinks = append(sinks, n)
			d.closers = append(d.closers, closerFunc(func() error {
				n.Close()
				return nil
			}))
		}
	}
	return sinks, surface
}

// close shuts down in order: engine first, then sinks and stores.
func (d *daemon) close() error {
	var result *multierror.Error
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	d.closers = nil
	return result.ErrorOrNil()
}

// onConfigChange applies log level and location edits made to the config
// file while watch runs.
func (a *app) onConfigChange(ctx context.Context, eng *engine.Engine) func(*config.Config, error) {
	logger := logging.GetLogger("watch")
	return func(cfg *config.Config, err error) {
		if err != nil {
			logger.Warn().Err(err).Msg("Ignoring config change")
			return
		}
		logging.SetLogLevel(cfg.LogLevel)

		if !cfg.HasCoordinates() {
			return
		}
		next := geo.Coordinate{Lat: cfg.Latitude, Lon: cfg.Longitude}
		if next == eng.Place().Coordinate {
			return
		}
		if err := eng.Relocate(ctx, next); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Warn().Err(err).Msg("Relocation failed, keeping the current schedule")
			}
			return
		}
		logger.Info().Float64("lat", next.Lat).Float64("lon", next.Lon).Msg("Relocated")
	}
}

// statusLine redraws "<label> vaktine HH:MM:SS" in place.
func statusLine(w io.Writer, eng *engine.Engine, prefs *settings.Store) jobs.Task {
	return func(ctx context.Context) error {
		ev, ok := eng.Next(eng.Now())
		if !ok {
			return nil
		}
		label := prefs.Labels().Label(ev.Name)
		_, err := fmt.Fprintf(w, "\r\033[K  %s vaktine %s", label, display.Accent(prayer.FormatCountdown(ev.Remaining)))
		return err
	}
}
