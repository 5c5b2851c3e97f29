package daemon

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/brainquest/brainquest/internal/app/persist"
	"github.com/brainquest/brainquest/internal/pkg/logger"
)

// Fallback store kinds.
const (
	FallbackCookie = "cookie"
	FallbackRedis  = "redis"
	FallbackNone   = "none"
)

// Config is the on-disk configuration (~/.brainquest/config.toml).
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Redis   RedisConfig   `toml:"redis"`
	Log     LogConfig     `toml:"log"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Metrics      bool   `toml:"metrics"`
	TickInterval string `toml:"tick_interval"`
}

// StorageConfig controls where the save lives.
type StorageConfig struct {
	Dir              string `toml:"dir"`
	Key              string `toml:"key"`
	Fallback         string `toml:"fallback"`
	CookieFile       string `toml:"cookie_file"`
	AutoSaveInterval string `toml:"autosave_interval"`
}

// RedisConfig is only read when storage.fallback = "redis".
type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// LogConfig selects the zap preset ("dev" or "prod") and optionally
// overrides its level.
type LogConfig struct {
	Mode  string `toml:"mode"`
	Level string `toml:"level"`
}

// Home returns BRAINQUEST_HOME, or ~/.brainquest.
func Home() string {
	if h := os.Getenv("BRAINQUEST_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".brainquest"
	}
	return filepath.Join(home, ".brainquest")
}

// ConfigPath is the default config file location.
func ConfigPath() string { return filepath.Join(Home(), "config.toml") }

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:         "127.0.0.1",
			Port:         8787,
			Metrics:      true,
			TickInterval: "5s",
		},
		Storage: StorageConfig{
			Dir:              Home(),
			Key:              persist.DefaultKey,
			Fallback:         FallbackCookie,
			CookieFile:       "cookies.txt",
			AutoSaveInterval: "30s",
		},
		Redis: RedisConfig{
			Addr:      "127.0.0.1:6379",
			KeyPrefix: "brainquest:",
		},
		Log: LogConfig{Mode: "dev"},
	}
}

// LoadConfig reads path over the defaults, then applies BRAINQUEST_*
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"BRAINQUEST_HOST":       &c.API.Host,
		"BRAINQUEST_DATA_DIR":   &c.Storage.Dir,
		"BRAINQUEST_SAVE_KEY":   &c.Storage.Key,
		"BRAINQUEST_FALLBACK":   &c.Storage.Fallback,
		"BRAINQUEST_AUTOSAVE":   &c.Storage.AutoSaveInterval,
		"BRAINQUEST_REDIS_ADDR": &c.Redis.Addr,
		"BRAINQUEST_REDIS_PASS": &c.Redis.Password,
		"BRAINQUEST_LOG_MODE":   &c.Log.Mode,
		"BRAINQUEST_LOG_LEVEL":  &c.Log.Level,
		"BRAINQUEST_TICK":       &c.API.TickInterval,
	}
	for env, dst := range str {
		if v, ok := os.LookupEnv(env); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("BRAINQUEST_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BRAINQUEST_PORT: %w", err)
		}
		c.API.Port = port
	}
	if v, ok := os.LookupEnv("BRAINQUEST_METRICS"); ok {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BRAINQUEST_METRICS: %w", err)
		}
		c.API.Metrics = on
	}
	return nil
}

// Validate checks the fields the daemon cannot default at runtime.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	switch c.Storage.Fallback {
	case FallbackCookie, FallbackRedis, FallbackNone:
	default:
		return fmt.Errorf("storage.fallback %q: want cookie, redis or none", c.Storage.Fallback)
	}
	if c.Storage.Dir == "" {
		return errors.New("storage.dir is empty")
	}
	if c.Log.Level != "" {
		if _, err := logger.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	if _, err := c.AutoSaveInterval(); err != nil {
		return err
	}
	if _, err := c.TickInterval(); err != nil {
		return err
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.API.Host, strconv.Itoa(c.API.Port))
}

// SetAddr splits a host:port override into the api table.
func (c *Config) SetAddr(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("addr %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("addr %q: bad port: %w", addr, err)
	}
	c.API.Host, c.API.Port = host, port
	return nil
}

// AutoSaveInterval parses storage.autosave_interval. Zero disables auto-save.
func (c Config) AutoSaveInterval() (time.Duration, error) {
	return parseInterval("storage.autosave_interval", c.Storage.AutoSaveInterval)
}

// TickInterval parses api.tick_interval. Zero disables the expiry ticker.
func (c Config) TickInterval() (time.Duration, error) {
	return parseInterval("api.tick_interval", c.API.TickInterval)
}

func parseInterval(field, v string) (time.Duration, error) {
	if v == "" || v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative interval %s", field, v)
	}
	return d, nil
}

// WriteTo encodes the config as TOML.
func (c Config) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := toml.NewEncoder(cw).Encode(c)
	return cw.n, err
}

// SaveConfig writes cfg to path, creating the directory.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if _, err := cfg.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	return f.Close()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
