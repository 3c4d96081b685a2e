// Package config loads application configuration from environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zenv"
	"github.com/joho/godotenv"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
)

// Defaults for the process-level settings.
const (
	DefaultListenAddr = "127.0.0.1:8080"
	DefaultDBPath     = "prpoller.db"
	DefaultLogLevel   = "info"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Poller      model.PollerConfig
	ListenAddr  string
	DBPath      string
	DatabaseURL string
	LogLevel    string
	LogFile     string
}

// UsePostgres reports whether DatabaseURL selects the Postgres backend.
func (c *Config) UsePostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// envVars is the raw environment, before interval and branch parsing.
type envVars struct {
	Owner         string `zog:"PRPOLLER_OWNER"`
	Repo          string `zog:"PRPOLLER_REPO"`
	Branches      string `zog:"PRPOLLER_BRANCHES"`
	PollInterval  string `zog:"PRPOLLER_POLL_INTERVAL"`
	UseTimestamps bool   `zog:"PRPOLLER_USE_TIMESTAMPS"`
	Category      string `zog:"PRPOLLER_CATEGORY"`
	BaseURL       string `zog:"PRPOLLER_BASE_URL"`
	Project       string `zog:"PRPOLLER_PROJECT"`
	Token         string `zog:"PRPOLLER_TOKEN"`
	PollAtLaunch  bool   `zog:"PRPOLLER_POLL_AT_LAUNCH"`
	ListenAddr    string `zog:"PRPOLLER_LISTEN_ADDR"`
	DBPath        string `zog:"PRPOLLER_DB_PATH"`
	DatabaseURL   string `zog:"PRPOLLER_DATABASE_URL"`
	LogLevel      string `zog:"PRPOLLER_LOG_LEVEL"`
	LogFile       string `zog:"PRPOLLER_LOG_FILE"`
}

var envSchema = z.Struct(z.Shape{
	"Owner":         z.String().Trim().Required(z.Message("PRPOLLER_OWNER is required")),
	"Repo":          z.String().Trim().Required(z.Message("PRPOLLER_REPO is required")),
	"Branches":      z.String().Default(model.DefaultBranch),
	"PollInterval":  z.String().Trim().Default("600"),
	"UseTimestamps": z.Bool().Default(true),
	"Category":      z.String().Trim().Optional(),
	"BaseURL":       z.String().Trim().Default(model.DefaultBaseURL),
	"Project":       z.String().Optional(),
	"Token":         z.String().Trim().Optional(),
	"PollAtLaunch":  z.Bool().Default(false),
	"ListenAddr":    z.String().Trim().Default(DefaultListenAddr),
	"DBPath":        z.String().Trim().Default(DefaultDBPath),
	"DatabaseURL":   z.String().Trim().Optional(),
	"LogLevel": z.String().Trim().Default(DefaultLogLevel).
		OneOf([]string{"debug", "info", "warn", "error"}, z.Message("PRPOLLER_LOG_LEVEL must be one of debug, info, warn, error")),
	"LogFile": z.String().Trim().Optional(),
})

// Load reads the given .env files (missing files are skipped, variables
// already set in the environment win) and then builds a validated Config
// from the environment.
//
// Required: PRPOLLER_OWNER, PRPOLLER_REPO.
// Optional with defaults: PRPOLLER_BRANCHES (master), PRPOLLER_POLL_INTERVAL
// (600 seconds; integer seconds or a Go duration), PRPOLLER_USE_TIMESTAMPS (true),
// PRPOLLER_BASE_URL (https://api.github.com), PRPOLLER_POLL_AT_LAUNCH (false),
// PRPOLLER_LISTEN_ADDR (127.0.0.1:8080), PRPOLLER_DB_PATH (prpoller.db),
// PRPOLLER_LOG_LEVEL (info).
// Optional without defaults: PRPOLLER_CATEGORY, PRPOLLER_PROJECT, PRPOLLER_TOKEN,
// PRPOLLER_DATABASE_URL, PRPOLLER_LOG_FILE.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return fromEnv()
}

// Reload is Load with override semantics: values in the .env files replace
// variables already present in the process environment. It backs SIGHUP
// reconfiguration.
func Reload(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Overload(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reload env file %s: %w", f, err)
		}
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	var env envVars
	if issues := envSchema.Parse(zenv.NewDataProvider(), &env); issues != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidConfig, z.Issues.FlattenAndCollect(issues))
	}

	interval, err := parseInterval(env.PollInterval)
	if err != nil {
		return nil, err
	}

	poller := model.DefaultPollerConfig(env.Owner, env.Repo)
	poller.Branches = parseBranches(env.Branches)
	poller.PollInterval = interval
	poller.UseTimestamps = env.UseTimestamps
	poller.Project = env.Project
	poller.Token = env.Token
	poller.BaseURL = strings.TrimRight(env.BaseURL, "/")
	poller.PollAtLaunch = env.PollAtLaunch
	if env.Category != "" {
		poller.Category = model.Constant(env.Category)
	}

	if err := poller.Validate(); err != nil {
		return nil, err
	}

	return &Config{
		Poller:      poller,
		ListenAddr:  env.ListenAddr,
		DBPath:      env.DBPath,
		DatabaseURL: env.DatabaseURL,
		LogLevel:    env.LogLevel,
		LogFile:     env.LogFile,
	}, nil
}

// parseInterval accepts whole seconds ("600") or a Go duration ("10m").
func parseInterval(v string) (time.Duration, error) {
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else {
		d, err = time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%w: PRPOLLER_POLL_INTERVAL has invalid value %q: %w", model.ErrInvalidConfig, v, err)
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("%w: PRPOLLER_POLL_INTERVAL must be positive, got %q", model.ErrInvalidConfig, v)
	}
	return d, nil
}

func parseBranches(v string) []string {
	var branches []string
	for _, b := range strings.Split(v, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			branches = append(branches, b)
		}
	}
	if len(branches) == 0 {
		return []string{model.DefaultBranch}
	}
	return branches
}
