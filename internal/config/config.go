package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default configuration values
const (
	DefaultPort        = "4000"
	DefaultIdleTimeout = 60 * time.Second
	DefaultRateLimit   = 20.0
	DefaultRateBurst   = 40
	DefaultSendBuffer  = 256
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultEnvFile     = ".env"
	DefaultServerURL   = "ws://localhost:4000/ws"
)

// Config holds server configuration
type Config struct {
	Host string
	Port string

	// AllowedOrigins lists the Origin headers accepted on /ws. Empty allows all.
	AllowedOrigins []string

	// IdleTimeout is how long a room waits for a partner before expiring.
	IdleTimeout time.Duration

	// Per-connection inbound rate limit, frames per second and burst size.
	RateLimit float64
	RateBurst int

	// SendBuffer is the capacity of each connection's outbound queue.
	SendBuffer int

	LogLevel  string
	LogFormat string
}

// Options for loading config with CLI flag overrides. Zero values defer to
// the environment.
type Options struct {
	Host           string
	Port           string
	AllowedOrigins string
	IdleTimeout    time.Duration
	LogLevel       string
	LogFormat      string

	// EnvFile is loaded into the environment first if it exists.
	EnvFile string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables (including the env file)
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:           pick(opts.Host, "HOST", ""),
		Port:           pick(opts.Port, "PORT", DefaultPort),
		AllowedOrigins: splitCSV(pick(opts.AllowedOrigins, "ALLOWED_ORIGINS", "")),
		LogLevel:       pick(opts.LogLevel, "LOG_LEVEL", DefaultLogLevel),
		LogFormat:      pick(opts.LogFormat, "LOG_FORMAT", DefaultLogFormat),
	}

	if p, err := strconv.Atoi(cfg.Port); err != nil || p <= 0 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT %q", cfg.Port)
	}

	var err error
	cfg.IdleTimeout = opts.IdleTimeout
	if cfg.IdleTimeout == 0 {
		if cfg.IdleTimeout, err = envDuration("ROOM_IDLE_TIMEOUT", DefaultIdleTimeout); err != nil {
			return nil, err
		}
	}
	if cfg.IdleTimeout <= 0 {
		return nil, fmt.Errorf("invalid ROOM_IDLE_TIMEOUT %s: must be positive", cfg.IdleTimeout)
	}

	if cfg.RateLimit, err = envFloat("RATE_LIMIT", DefaultRateLimit); err != nil {
		return nil, err
	}
	if cfg.RateBurst, err = envInt("RATE_BURST", DefaultRateBurst); err != nil {
		return nil, err
	}
	if cfg.SendBuffer, err = envInt("SEND_BUFFER", DefaultSendBuffer); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// OriginAllowed reports whether a WebSocket upgrade from origin is accepted.
func (c *Config) OriginAllowed(origin string) bool {
	if len(c.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ClientConfig holds configuration for the terminal client.
type ClientConfig struct {
	// ServerURL is the hub's WebSocket endpoint.
	ServerURL string
}

// LoadClient resolves the server URL: flag > CHITCHAT_SERVER > default.
func LoadClient(server string) (*ClientConfig, error) {
	if err := loadEnvFile(DefaultEnvFile); err != nil {
		return nil, err
	}

	raw := pick(server, "CHITCHAT_SERVER", DefaultServerURL)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("invalid server URL %q: scheme must be ws or wss", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return &ClientConfig{ServerURL: u.String()}, nil
}

// HTTPBase returns the server's HTTP origin, e.g. http://localhost:4000.
func (c *ClientConfig) HTTPBase() string {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return ""
	}
	if u.Scheme == "wss" {
		u.Scheme = "https"
	} else {
		u.Scheme = "http"
	}
	u.Path, u.RawQuery = "", ""
	return u.String()
}

func loadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// pick returns flag if set, else the env var, else def.
func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	return i, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", key, v)
	}
	return f, nil
}

// splitCSV trims and filters a comma-separated list
func splitCSV(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
