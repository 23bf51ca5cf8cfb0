// Package server exposes the running alarm engine over a small JSON API for
// home dashboards and widgets.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/uyan/internal/geo"
	"github.com/smokyabdulrahman/uyan/internal/keepalive"
	"github.com/smokyabdulrahman/uyan/internal/logging"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
	"github.com/smokyabdulrahman/uyan/internal/settings"
	"github.com/smokyabdulrahman/uyan/internal/timesource"
)

// Engine is the part of the alarm engine the API reads and drives.
type Engine interface {
	Now() time.Time
	Next(now time.Time) (prayer.NextEvent, bool)
	Schedule() *timesource.Day
	Place() timesource.Place
	KeepAlive() keepalive.Strategy
	Relocate(ctx context.Context, c geo.Coordinate) error
}

// Settings is the preference store.
type Settings interface {
	Snapshot() settings.Snapshot
	Labels() prayer.Labels
	Toggle(ctx context.Context, key string) (bool, error)
	SetSound(ctx context.Context, id string) error
	SetRamadanMode(ctx context.Context, on bool) error
	SetBackground(ctx context.Context, on bool) error
}

// Options configures the server.
type Options struct {
	Engine      Engine
	Settings    Settings
	Metrics     http.Handler // mounted at /metrics when set
	CORSOrigins []string     // empty allows any origin
}

// Server serves the status API.
type Server struct {
	engine   Engine
	settings Settings
	router   *gin.Engine
	logger   zerolog.Logger
}

// New builds the router.
func New(opts Options) *Server {
	s := &Server{
		engine:   opts.Engine,
		settings: opts.Settings,
		logger:   logging.GetLogger("server"),
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	api := r.Group("/api")
	api.GET("/next", s.getNext)
	api.GET("/schedule", s.getSchedule)
	api.GET("/qibla", s.getQibla)
	api.GET("/hadith", s.getHadith)
	api.POST("/location", s.postLocation)

	api.GET("/settings", s.getSettings)
	api.POST("/settings/notifications/:key/toggle", s.toggleNotification)
	api.PUT("/settings/sound", s.putSound)
	api.PUT("/settings/ramadan", s.putRamadan)
	api.PUT("/settings/background", s.putBackground)

	s.router = r
	return s
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request")
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Status API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("status API: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status API shutdown: %w", err)
	}
	return nil
}
