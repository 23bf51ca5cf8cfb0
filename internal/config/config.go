// Package config provides layered configuration for uyan.
//
// Values are merged in this order, later layers winning: built-in defaults,
// the TOML file at ~/.config/uyan/config.toml (XDG-compliant), UYAN_*
// environment variables (a double underscore separates sections, e.g.
// UYAN_MQTT__BROKER), and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/smokyabdulrahman/uyan/internal/prayer"
)

const (
	configDirName  = "uyan"
	configFileName = "config.toml"
	envPrefix      = "UYAN_"
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"city", "country",
	"latitude", "longitude",
	"method", "school", "timezone",
	"time_format",
	"prayers",
	"sound", "sounds_dir",
	"ramadan_mode", "background",
	"cache_dir", "settings_db",
	"log_level",
	"cache.backend", "cache.redis_addr", "cache.redis_password", "cache.redis_db", "cache.redis_prefix",
	"mqtt.broker", "mqtt.client_id", "mqtt.username", "mqtt.password", "mqtt.prefix",
	"nats.url", "nats.subject",
	"server.addr", "server.cors_origins",
}

// Config holds all user-configurable settings. Empty location fields mean
// "auto-detect".
type Config struct {
	City       string  `koanf:"city"`
	Country    string  `koanf:"country"`
	Latitude   float64 `koanf:"latitude"`
	Longitude  float64 `koanf:"longitude"`
	Method     int     `koanf:"method"` // 13 = Diyanet
	School     int     `koanf:"school"` // -1 = API default
	Timezone   string  `koanf:"timezone"`
	TimeFormat string  `koanf:"time_format"` // "12h" or "24h"
	Prayers    string  `koanf:"prayers"`     // comma-separated list

	Sound       string `koanf:"sound"`
	SoundsDir   string `koanf:"sounds_dir"`
	RamadanMode bool   `koanf:"ramadan_mode"`
	Background  bool   `koanf:"background"`

	CacheDir   string `koanf:"cache_dir"`
	SettingsDB string `koanf:"settings_db"`
	LogLevel   string `koanf:"log_level"`

	Cache  CacheConfig  `koanf:"cache"`
	MQTT   MQTTConfig   `koanf:"mqtt"`
	NATS   NATSConfig   `koanf:"nats"`
	Server ServerConfig `koanf:"server"`
}

// CacheConfig selects the timings cache backend.
type CacheConfig struct {
	Backend       string `koanf:"backend"` // "file" or "redis"
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`
}

// MQTTConfig enables the MQTT notification sink when Broker is set.
type MQTTConfig struct {
	Broker   string `koanf:"broker"`
	ClientID string `koanf:"client_id"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Prefix   string `koanf:"prefix"`
}

// NATSConfig enables the NATS notification sink when URL is set.
type NATSConfig struct {
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// ServerConfig configures the status HTTP API.
type ServerConfig struct {
	Addr        string   `koanf:"addr"`
	CORSOrigins []string `koanf:"cors_origins"`
}

func defaultValues() map[string]any {
	return map[string]any{
		"method":             prayerMethodDiyanet,
		"school":             -1,
		"time_format":        "24h",
		"sound":              "beep",
		"log_level":          "info",
		"cache.backend":      "file",
		"cache.redis_addr":   "localhost:6379",
		"cache.redis_prefix": "uyan",
		"mqtt.client_id":     "uyan",
		"mqtt.prefix":        "uyan",
		"nats.subject":       "uyan",
		"server.addr":        "127.0.0.1:8095",
	}
}

const prayerMethodDiyanet = 13

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	k := koanf.New(".")
	// confmap never fails.
	_ = k.Load(confmap.Provider(defaultValues(), "."), nil)
	var cfg Config
	_ = k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"})
	return cfg
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads defaults, the config file and the environment.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit config file path. A missing file is
// not an error.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaultValues(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := loadFile(k, path); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey maps UYAN_MQTT__BROKER to mqtt.broker.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func loadFile(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

// SetIn validates value for key and writes it to the file at path. Only
// the file layer is written; defaults and environment stay out of it.
func SetIn(path, key, value string) error {
	v, err := parseValue(key, value)
	if err != nil {
		return err
	}

	k := koanf.New(".")
	if err := loadFile(k, path); err != nil {
		return err
	}
	if err := k.Set(key, v); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return writeFile(k, path)
}

func writeFile(k *koanf.Koanf, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := k.Marshal(toml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// Watch calls fn with the reloaded config whenever the file at path
// changes. The returned function stops watching.
func Watch(path string, fn func(*Config, error)) (func(), error) {
	f := file.Provider(path)
	err := f.Watch(func(_ interface{}, err error) {
		if err != nil {
			fn(nil, fmt.Errorf("watch %s: %w", path, err))
			return
		}
		fn(LoadFrom(path))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}
	return func() { _ = f.Unwatch() }, nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	v, err := parseValue(key, value)
	if err != nil {
		return err
	}
	k := koanf.New(".")
	if err := k.Set(key, v); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	if err := k.UnmarshalWithConf("", c, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("failed to apply %s: %w", key, err)
	}
	return nil
}

// ApplyFlags copies every changed flag whose name is a config key (with
// "-" in place of "_" and "."), the highest-priority layer.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	for _, key := range ValidKeys {
		name := FlagName(key)
		if !fs.Changed(name) {
			continue
		}
		if err := c.Set(key, fs.Lookup(name).Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", name, err)
		}
	}
	return nil
}

// FlagName returns the flag spelling of a config key: "mqtt.client_id"
// becomes "mqtt-client-id".
func FlagName(key string) string {
	return strings.NewReplacer("_", "-", ".", "-").Replace(key)
}

func parseValue(key, value string) (any, error) {
	switch key {
	case "latitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid latitude %q: must be a number", value)
		}
		if v < -90 || v > 90 {
			return nil, fmt.Errorf("invalid latitude %q: must be between -90 and 90", value)
		}
		return v, nil
	case "longitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid longitude %q: must be a number", value)
		}
		if v < -180 || v > 180 {
			return nil, fmt.Errorf("invalid longitude %q: must be between -180 and 180", value)
		}
		return v, nil
	case "method":
		v, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid method %q: must be an integer", value)
		}
		if v < 0 || v > 23 {
			return nil, fmt.Errorf("invalid method %q: must be between 0 and 23", value)
		}
		return v, nil
	case "school":
		v, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid school %q: must be an integer", value)
		}
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("invalid school %q: must be 0 (Shafi) or 1 (Hanafi)", value)
		}
		return v, nil
	case "time_format":
		if value != "12h" && value != "24h" {
			return nil, fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		return value, nil
	case "prayers":
		for _, n := range strings.Split(value, ",") {
			if _, err := prayer.ParseName(strings.TrimSpace(n)); err != nil {
				return nil, fmt.Errorf("invalid prayer name %q in prayers list", strings.TrimSpace(n))
			}
		}
		return value, nil
	case "timezone":
		if _, err := loadLocation(value); err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", value, err)
		}
		return value, nil
	case "ramadan_mode", "background":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: must be true or false", key, value)
		}
		return v, nil
	case "log_level":
		switch value {
		case "trace", "debug", "info", "warn", "error", "disabled":
			return value, nil
		}
		return nil, fmt.Errorf("invalid log_level %q", value)
	case "cache.backend":
		if value != "file" && value != "redis" {
			return nil, fmt.Errorf("invalid cache.backend %q: must be \"file\" or \"redis\"", value)
		}
		return value, nil
	case "cache.redis_db":
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid cache.redis_db %q: must be a non-negative integer", value)
		}
		return v, nil
	case "server.cors_origins":
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return origins, nil
	case "city", "country", "sound", "sounds_dir", "cache_dir", "settings_db",
		"cache.redis_addr", "cache.redis_password", "cache.redis_prefix",
		"mqtt.broker", "mqtt.client_id", "mqtt.username", "mqtt.password", "mqtt.prefix",
		"nats.url", "nats.subject", "server.addr":
		return value, nil
	default:
		return nil, fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "city":
		return c.City, nil
	case "country":
		return c.Country, nil
	case "latitude":
		if c.Latitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Latitude, 'f', -1, 64), nil
	case "longitude":
		if c.Longitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Longitude, 'f', -1, 64), nil
	case "method":
		return strconv.Itoa(c.Method), nil
	case "school":
		if c.School < 0 {
			return "", nil
		}
		return strconv.Itoa(c.School), nil
	case "timezone":
		return c.Timezone, nil
	case "time_format":
		return c.TimeFormat, nil
	case "prayers":
		return c.Prayers, nil
	case "sound":
		return c.Sound, nil
	case "sounds_dir":
		return c.SoundsDir, nil
	case "ramadan_mode":
		return strconv.FormatBool(c.RamadanMode), nil
	case "background":
		return strconv.FormatBool(c.Background), nil
	case "cache_dir":
		return c.CacheDir, nil
	case "settings_db":
		return c.SettingsDB, nil
	case "log_level":
		return c.LogLevel, nil
	case "cache.backend":
		return c.Cache.Backend, nil
	case "cache.redis_addr":
		return c.Cache.RedisAddr, nil
	case "cache.redis_password":
		return c.Cache.RedisPassword, nil
	case "cache.redis_db":
		return strconv.Itoa(c.Cache.RedisDB), nil
	case "cache.redis_prefix":
		return c.Cache.RedisPrefix, nil
	case "mqtt.broker":
		return c.MQTT.Broker, nil
	case "mqtt.client_id":
		return c.MQTT.ClientID, nil
	case "mqtt.username":
		return c.MQTT.Username, nil
	case "mqtt.password":
		return c.MQTT.Password, nil
	case "mqtt.prefix":
		return c.MQTT.Prefix, nil
	case "nats.url":
		return c.NATS.URL, nil
	case "nats.subject":
		return c.NATS.Subject, nil
	case "server.addr":
		return c.Server.Addr, nil
	case "server.cors_origins":
		return strings.Join(c.Server.CORSOrigins, ","), nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// HasCoordinates reports whether a location was configured explicitly.
func (c *Config) HasCoordinates() bool {
	return c.Latitude != 0 || c.Longitude != 0
}

// PrayerFilter returns the prayers listed in the prayers key, or nil for all.
func (c *Config) PrayerFilter() []prayer.Name {
	if c.Prayers == "" {
		return nil
	}
	var names []prayer.Name
	for _, p := range strings.Split(c.Prayers, ",") {
		if n, err := prayer.ParseName(strings.TrimSpace(p)); err == nil {
			names = append(names, n)
		}
	}
	return names
}
