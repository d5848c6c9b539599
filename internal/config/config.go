package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/vytor/wordflash/internal/logger"
)

// ConfigFileEnv names the variable pointing at an optional TOML file.
const ConfigFileEnv = "WORDFLASH_CONFIG"

type Config struct {
	Addr               string
	DBPath             string
	LogLevel           string
	NewCardLimit       int
	LearningSteps      int
	RelearningSteps    int
	LapsePolicy        string
	SchedulerMode      string
	PersistWorkerCount int
	PersistQueueSize   int
	CORSOrigins        []string
	SessionTTLMinutes  int
}

// fileConfig mirrors the TOML layout. Zero values leave the defaults alone.
type fileConfig struct {
	Addr      string `toml:"addr"`
	DBPath    string `toml:"db_path"`
	LogLevel  string `toml:"log_level"`
	Scheduler struct {
		NewCardLimit    *int   `toml:"new_card_limit"`
		LearningSteps   int    `toml:"learning_steps"`
		RelearningSteps int    `toml:"relearning_steps"`
		LapsePolicy     string `toml:"lapse_policy"`
		Mode            string `toml:"mode"`
	} `toml:"scheduler"`
	Persist struct {
		WorkerCount int `toml:"worker_count"`
		QueueSize   int `toml:"queue_size"`
	} `toml:"persist"`
	HTTP struct {
		CORSOrigins       []string `toml:"cors_origins"`
		SessionTTLMinutes int      `toml:"session_ttl_minutes"`
	} `toml:"http"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Addr:               ":8080",
		DBPath:             "file:wordflash.db",
		LogLevel:           "INFO",
		NewCardLimit:       20,
		LearningSteps:      2,
		RelearningSteps:    1,
		LapsePolicy:        "requeue",
		SchedulerMode:      "full",
		PersistWorkerCount: 2,
		PersistQueueSize:   64,
		CORSOrigins:        []string{"*"},
		SessionTTLMinutes:  120,
	}
}

// Load reads a .env file (if present), then the TOML file named by
// WORDFLASH_CONFIG (if set), then environment variables. Later sources win.
func Load() (Config, error) {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()
	return LoadFrom(os.Getenv(ConfigFileEnv))
}

// LoadFrom is Load with an explicit TOML path; an empty path skips the file.
// It does not read .env.
func LoadFrom(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Addr = envOr("ADDR", cfg.Addr)
	cfg.DBPath = envOr("DB_PATH", cfg.DBPath)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)
	cfg.NewCardLimit = envIntOr("NEW_CARD_LIMIT", cfg.NewCardLimit)
	cfg.LearningSteps = envIntOr("LEARNING_STEPS", cfg.LearningSteps)
	cfg.RelearningSteps = envIntOr("RELEARNING_STEPS", cfg.RelearningSteps)
	cfg.LapsePolicy = envOr("LAPSE_POLICY", cfg.LapsePolicy)
	cfg.SchedulerMode = envOr("SCHEDULER_MODE", cfg.SchedulerMode)
	cfg.PersistWorkerCount = envIntOr("PERSIST_WORKER_COUNT", cfg.PersistWorkerCount)
	cfg.PersistQueueSize = envIntOr("PERSIST_QUEUE_SIZE", cfg.PersistQueueSize)
	cfg.CORSOrigins = envListOr("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.SessionTTLMinutes = envIntOr("SESSION_TTL_MINUTES", cfg.SessionTTLMinutes)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.Addr, fc.Addr)
	setString(&cfg.DBPath, fc.DBPath)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.Scheduler.NewCardLimit != nil {
		cfg.NewCardLimit = *fc.Scheduler.NewCardLimit
	}
	setInt(&cfg.LearningSteps, fc.Scheduler.LearningSteps)
	setInt(&cfg.RelearningSteps, fc.Scheduler.RelearningSteps)
	setString(&cfg.LapsePolicy, fc.Scheduler.LapsePolicy)
	setString(&cfg.SchedulerMode, fc.Scheduler.Mode)
	setInt(&cfg.PersistWorkerCount, fc.Persist.WorkerCount)
	setInt(&cfg.PersistQueueSize, fc.Persist.QueueSize)
	if len(fc.HTTP.CORSOrigins) > 0 {
		cfg.CORSOrigins = fc.HTTP.CORSOrigins
	}
	setInt(&cfg.SessionTTLMinutes, fc.HTTP.SessionTTLMinutes)
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("ADDR cannot be empty"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH cannot be empty"))
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of DEBUG, INFO, WARN, ERROR (got %q)", c.LogLevel))
	}
	if c.NewCardLimit < 0 {
		errs = append(errs, fmt.Errorf("NEW_CARD_LIMIT must be >= 0 (got %d)", c.NewCardLimit))
	}
	if c.LearningSteps < 1 {
		errs = append(errs, fmt.Errorf("LEARNING_STEPS must be >= 1 (got %d)", c.LearningSteps))
	}
	if c.RelearningSteps < 1 {
		errs = append(errs, fmt.Errorf("RELEARNING_STEPS must be >= 1 (got %d)", c.RelearningSteps))
	}
	switch c.LapsePolicy {
	case "requeue", "pile":
	default:
		errs = append(errs, fmt.Errorf("LAPSE_POLICY must be requeue or pile (got %q)", c.LapsePolicy))
	}
	switch c.SchedulerMode {
	case "full", "legacy":
	default:
		errs = append(errs, fmt.Errorf("SCHEDULER_MODE must be full or legacy (got %q)", c.SchedulerMode))
	}
	if c.PersistWorkerCount < 1 {
		errs = append(errs, fmt.Errorf("PERSIST_WORKER_COUNT must be >= 1 (got %d)", c.PersistWorkerCount))
	}
	if c.PersistQueueSize < 1 {
		errs = append(errs, fmt.Errorf("PERSIST_QUEUE_SIZE must be >= 1 (got %d)", c.PersistQueueSize))
	}
	if c.SessionTTLMinutes < 1 {
		errs = append(errs, fmt.Errorf("SESSION_TTL_MINUTES must be >= 1 (got %d)", c.SessionTTLMinutes))
	}
	return errors.Join(errs...)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return i
		}
		logger.Warn("invalid value for %s=%q, using %d", key, v, def)
	}
	return def
}

func envListOr(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
