package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server defaults.
const (
	DefaultPort            = 3000
	DefaultEnv             = "dev"
	DefaultCodec           = "json"
	DefaultRoomMaxAge      = 2 * time.Hour
	DefaultReapInterval    = 30 * time.Minute
	DefaultSendBuffer      = 256
	DefaultMaxMessageSize  = 64 * 1024
	DefaultShutdownTimeout = 15 * time.Second
)

var ErrInvalid = errors.New("invalid configuration")

// Server holds the relay server configuration.
type Server struct {
	Port      int
	Env       string
	CORSAllow []string
	Codec     string

	// AdminToken guards DELETE /rooms/{id}. Empty disables room closing.
	AdminToken string

	RoomMaxAge   time.Duration
	ReapInterval time.Duration

	SendBuffer     int
	MaxMessageSize int64

	ShutdownTimeout time.Duration
}

// LoadServer reads the server configuration from the environment.
// Unset variables fall back to defaults; malformed ones are errors.
func LoadServer() (Server, error) {
	cfg := Server{
		Env:       getEnv("APP_ENV", DefaultEnv),
		Codec:     strings.ToLower(getEnv("WIRE_CODEC", DefaultCodec)),
		CORSAllow: splitCSV(getEnv("CORS_ALLOW", "*")),

		AdminToken: getEnv("ADMIN_TOKEN", ""),
	}

	var errs []error
	var err error
	if cfg.Port, err = getEnvInt("PORT", DefaultPort); err != nil {
		errs = append(errs, err)
	}
	if cfg.RoomMaxAge, err = getEnvDuration("ROOM_MAX_AGE", DefaultRoomMaxAge); err != nil {
		errs = append(errs, err)
	}
	if cfg.ReapInterval, err = getEnvDuration("REAP_INTERVAL", DefaultReapInterval); err != nil {
		errs = append(errs, err)
	}
	if cfg.SendBuffer, err = getEnvInt("SEND_BUFFER", DefaultSendBuffer); err != nil {
		errs = append(errs, err)
	}
	maxSize, err := getEnvInt("MAX_MESSAGE_SIZE", DefaultMaxMessageSize)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.MaxMessageSize = int64(maxSize)
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks ranges that parsing alone cannot.
func (c Server) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: PORT %d out of range", ErrInvalid, c.Port))
	}
	if c.RoomMaxAge <= 0 {
		errs = append(errs, fmt.Errorf("%w: ROOM_MAX_AGE must be positive", ErrInvalid))
	}
	if c.ReapInterval <= 0 {
		errs = append(errs, fmt.Errorf("%w: REAP_INTERVAL must be positive", ErrInvalid))
	}
	if c.SendBuffer < 1 {
		errs = append(errs, fmt.Errorf("%w: SEND_BUFFER must be at least 1", ErrInvalid))
	}
	if c.MaxMessageSize < 1024 {
		errs = append(errs, fmt.Errorf("%w: MAX_MESSAGE_SIZE must be at least 1024", ErrInvalid))
	}
	if len(c.CORSAllow) == 0 {
		errs = append(errs, fmt.Errorf("%w: CORS_ALLOW is empty", ErrInvalid))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c Server) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IsProd reports whether the server runs in production mode.
func (c Server) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// getEnv returns the env var or a default
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, k, v)
	}
	return i, nil
}

func getEnvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a duration", ErrInvalid, k, v)
	}
	return d, nil
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
