package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smokyabdulrahman/uyan/internal/audio"
	"github.com/smokyabdulrahman/uyan/internal/geo"
	"github.com/smokyabdulrahman/uyan/internal/hadith"
	"github.com/smokyabdulrahman/uyan/internal/keepalive"
	"github.com/smokyabdulrahman/uyan/internal/prayer"
	"github.com/smokyabdulrahman/uyan/internal/qibla"
)

type errorResponse struct {
	Error string `json:"error"`
}

type nextResponse struct {
	Name             prayer.Name `json:"name"`
	Label            string      `json:"label"`
	At               time.Time   `json:"at"`
	RemainingSeconds int64       `json:"remaining_seconds"`
	Countdown        string      `json:"countdown"`
	Rollover         bool        `json:"rollover"`
}

type entryResponse struct {
	Name  prayer.Name `json:"name"`
	Label string      `json:"label"`
	Time  string      `json:"time"`
}

type scheduleResponse struct {
	Date     string          `json:"date"`
	Hijri    string          `json:"hijri,omitempty"`
	Ramadan  bool            `json:"ramadan"`
	Timezone string          `json:"timezone"`
	Method   string          `json:"method,omitempty"`
	Current  prayer.Name     `json:"current,omitempty"`
	Entries  []entryResponse `json:"entries"`
	Summary  string          `json:"summary"`
}

type qiblaResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Bearing   float64 `json:"bearing"`
	Compass   string  `json:"compass"`
}

type settingsResponse struct {
	Enabled     map[string]bool `json:"enabled"`
	Sound       string          `json:"sound"`
	RamadanMode bool            `json:"ramadan_mode"`
	Background  bool            `json:"background"`
	Active      bool            `json:"background_active"`
}

type switchRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type soundRequest struct {
	ID string `json:"id" binding:"required"`
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

func abort(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, errorResponse{Error: err.Error()})
}

var errNoSchedule = errors.New("no schedule loaded")

// GET /api/next
func (s *Server) getNext(c *gin.Context) {
	ev, ok := s.engine.Next(s.engine.Now())
	if !ok {
		abort(c, http.StatusServiceUnavailable, errNoSchedule)
		return
	}
	c.JSON(http.StatusOK, nextResponse{
		Name:             ev.Name,
		Label:            s.settings.Labels().Label(ev.Name),
		At:               ev.At,
		RemainingSeconds: ev.RemainingSeconds(),
		Countdown:        prayer.FormatCountdown(ev.Remaining),
		Rollover:         ev.Rollover,
	})
}

// GET /api/schedule
func (s *Server) getSchedule(c *gin.Context) {
	day := s.engine.Schedule()
	if day == nil {
		abort(c, http.StatusServiceUnavailable, errNoSchedule)
		return
	}
	labels := s.settings.Labels()

	resp := scheduleResponse{
		Date:     day.Schedule.Date().Format("2006-01-02"),
		Hijri:    day.Hijri.Format(),
		Ramadan:  day.Hijri.IsRamadan(),
		Timezone: day.Timezone,
		Method:   day.Method.Name,
		Summary:  day.Schedule.Summary(labels, "15:04"),
	}
	if cur, ok := prayer.Current(day.Schedule, s.engine.Now()); ok {
		resp.Current = cur.Name
	}
	for _, p := range day.Schedule.Entries() {
		resp.Entries = append(resp.Entries, entryResponse{
			Name:  p.Name,
			Label: labels.Label(p.Name),
			Time:  p.Time.Format("15:04"),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/qibla?lat=..&lon=..; defaults to the engine's coordinate.
func (s *Server) getQibla(c *gin.Context) {
	coord := s.engine.Place().Coordinate
	if v := c.Query("lat"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil || lat < -90 || lat > 90 {
			abort(c, http.StatusBadRequest, errors.New("lat must be a number between -90 and 90"))
			return
		}
		coord.Lat = lat
	}
	if v := c.Query("lon"); v != "" {
		lon, err := strconv.ParseFloat(v, 64)
		if err != nil || lon < -180 || lon > 180 {
			abort(c, http.StatusBadRequest, errors.New("lon must be a number between -180 and 180"))
			return
		}
		coord.Lon = lon
	}

	b := qibla.Bearing(coord.Lat, coord.Lon)
	c.JSON(http.StatusOK, qiblaResponse{
		Latitude:  coord.Lat,
		Longitude: coord.Lon,
		Bearing:   b,
		Compass:   qibla.CompassPoint(b),
	})
}

// GET /api/hadith
func (s *Server) getHadith(c *gin.Context) {
	c.JSON(http.StatusOK, hadith.ForDay(s.engine.Now()))
}

// POST /api/location
func (s *Server) postLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		abort(c, http.StatusBadRequest, errors.New("coordinate out of range"))
		return
	}
	coord := geo.Coordinate{Lat: *req.Latitude, Lon: *req.Longitude}
	if err := s.engine.Relocate(c.Request.Context(), coord); err != nil {
		abort(c, http.StatusBadGateway, err)
		return
	}
	s.getSchedule(c)
}

// GET /api/settings
func (s *Server) getSettings(c *gin.Context) {
	snap := s.settings.Snapshot()
	c.JSON(http.StatusOK, settingsResponse{
		Enabled:     snap.Enabled,
		Sound:       snap.SoundID,
		RamadanMode: snap.RamadanMode,
		Background:  snap.Background,
		Active:      s.engine.KeepAlive().Active(),
	})
}

// POST /api/settings/notifications/:key/toggle
func (s *Server) toggleNotification(c *gin.Context) {
	key := c.Param("key")
	on, err := s.settings.Toggle(c.Request.Context(), key)
	if err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "enabled": on})
}

// PUT /api/settings/sound
func (s *Server) putSound(c *gin.Context) {
	var req soundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if _, ok := audio.Lookup(req.ID); !ok {
		abort(c, http.StatusBadRequest, errors.New("unknown sound: "+req.ID))
		return
	}
	if err := s.settings.SetSound(c.Request.Context(), req.ID); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	s.getSettings(c)
}

// PUT /api/settings/ramadan
func (s *Server) putRamadan(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	if err := s.settings.SetRamadanMode(c.Request.Context(), *req.Enabled); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	s.getSettings(c)
}

// PUT /api/settings/background turns background mode on or off. Turning it
// on opens a keep-alive session right away.
func (s *Server) putBackground(c *gin.Context) {
	var req switchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()
	ka := s.engine.KeepAlive()

	if err := ka.SetFeature(ctx, *req.Enabled); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	if *req.Enabled {
		if err := ka.Enable(ctx); err != nil {
			_ = ka.SetFeature(ctx, false)
			code := http.StatusInternalServerError
			if errors.Is(err, keepalive.ErrPermissionRequired) || errors.Is(err, keepalive.ErrUnsupportedPlatform) {
				code = http.StatusConflict
			}
			abort(c, code, err)
			return
		}
	}
	if err := s.settings.SetBackground(ctx, *req.Enabled); err != nil {
		abort(c, http.StatusInternalServerError, err)
		return
	}
	s.getSettings(c)
}
