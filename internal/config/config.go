package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAddr is the default TCP address the session server listens on.
	DefaultAddr = ":5555"
	// DefaultReadTimeout bounds a single framed read so workers can observe shutdown.
	DefaultReadTimeout = 500 * time.Millisecond
	// DefaultRegistrationTimeout bounds how long a fresh connection may take to register.
	DefaultRegistrationTimeout = 10 * time.Second
	// DefaultMaxPayloadBytes limits the size of a single inbound frame.
	DefaultMaxPayloadBytes = 1 << 20
	// DefaultSweepInterval controls how often the maintenance sweeper runs.
	DefaultSweepInterval = time.Minute
	// DefaultWaitingTimeout evicts sessions stuck in the waiting state.
	DefaultWaitingTimeout = time.Hour
	// DefaultMaxTurns ends a game once the turn counter passes this value.
	DefaultMaxTurns = 20

	// DefaultLogLevel controls verbosity for server logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "gameserver.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// Config captures all runtime tunables for the session server.
type Config struct {
	Address             string
	WSAddress           string
	ReadTimeout         time.Duration
	RegistrationTimeout time.Duration
	MaxPayloadBytes     int
	SweepInterval       time.Duration
	WaitingTimeout      time.Duration
	MaxTurns            int
	JournalDir          string
	Logging             LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the server configuration from environment variables, applying sane defaults
// and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	cfg := &Config{
		Address:             getString("GB_ADDR", DefaultAddr),
		WSAddress:           strings.TrimSpace(os.Getenv("GB_WS_ADDR")),
		ReadTimeout:         DefaultReadTimeout,
		RegistrationTimeout: DefaultRegistrationTimeout,
		MaxPayloadBytes:     DefaultMaxPayloadBytes,
		SweepInterval:       DefaultSweepInterval,
		WaitingTimeout:      DefaultWaitingTimeout,
		MaxTurns:            DefaultMaxTurns,
		JournalDir:          strings.TrimSpace(os.Getenv("GB_JOURNAL_DIR")),
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("GB_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("GB_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("GB_READ_TIMEOUT")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("GB_READ_TIMEOUT must be a positive duration, got %q", raw))
		} else {
			cfg.ReadTimeout = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GB_REGISTRATION_TIMEOUT")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("GB_REGISTRATION_TIMEOUT must be a positive duration, got %q", raw))
		} else {
			cfg.RegistrationTimeout = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GB_MAX_PAYLOAD_BYTES")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("GB_MAX_PAYLOAD_BYTES must be a positive integer, got %q", raw))
		} else {
			cfg.MaxPayloadBytes = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GB_SWEEP_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("GB_SWEEP_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.SweepInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GB_WAITING_TIMEOUT")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("GB_WAITING_TIMEOUT must be a positive duration, got %q", raw))
		} else {
			cfg.WaitingTimeout = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GB_MAX_TURNS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("GB_MAX_TURNS must be a positive integer, got %q", raw))
		} else {
			cfg.MaxTurns = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GB_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("GB_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GB_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("GB_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GB_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("GB_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("GB_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("GB_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
