package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

// Supported data backends.
const (
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendSheets    = "sheets"
	BackendMemory    = "memory"
)

var validBackends = []string{BackendPostgREST, BackendPostgres, BackendSQLite, BackendSheets, BackendMemory}

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// Hosted store (PostgREST)
	SupabaseURL    string
	SupabaseKey    string
	SupabaseSchema string

	// Direct Postgres connection to the hosted database
	DatabaseURL string

	// Local mirror
	SQLiteDBPath string

	// Memory backend seed directory (residents.csv, payments.csv)
	SeedDir string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleResidentsSheet     string
	GooglePaymentsSheet      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// AMQP diagnostics channel (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Lookup behaviour
	FetchTimeout      time.Duration
	SessionTTL        time.Duration
	SessionCapacity   int
	CategoryRulesFile string

	// Edge
	RateLimit     string
	ProbeSchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8081")
	v.SetDefault("data_backend", BackendPostgREST)

	v.SetDefault("supabase_url", "")
	v.SetDefault("supabase_key", "")
	v.SetDefault("supabase_schema", "")
	v.SetDefault("database_url", "")
	v.SetDefault("sqlite_db_path", "./data/halya.db")
	v.SetDefault("seed_dir", "data")

	v.SetDefault("google_spreadsheet_id", "")
	v.SetDefault("google_residents_sheet", "residents")
	v.SetDefault("google_payments_sheet", "payments")
	v.SetDefault("google_service_account_json", "")
	v.SetDefault("google_service_account_file", "")

	v.SetDefault("amqp_url", "")
	v.SetDefault("amqp_exchange", "halya")
	v.SetDefault("amqp_queue", "halya_diagnostics")

	v.SetDefault("fetch_timeout", 7*time.Second)
	v.SetDefault("session_ttl", 30*time.Minute)
	v.SetDefault("session_capacity", 1000)
	v.SetDefault("category_rules_file", "")

	v.SetDefault("rate_limit", "60-M")
	v.SetDefault("probe_schedule", "@every 1m")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads configuration from defaults, an optional config file and
// the environment, in increasing priority. With an empty configFile the
// file "halya.(yaml|toml|json)" is looked up in the working directory
// and $HOME/.config/halya; its absence is not an error.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("halya")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/halya")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        v.GetString("port"),
		DataBackend: strings.ToLower(strings.TrimSpace(v.GetString("data_backend"))),

		SupabaseURL:    v.GetString("supabase_url"),
		SupabaseKey:    v.GetString("supabase_key"),
		SupabaseSchema: v.GetString("supabase_schema"),
		DatabaseURL:    v.GetString("database_url"),
		SQLiteDBPath:   v.GetString("sqlite_db_path"),
		SeedDir:        v.GetString("seed_dir"),

		GoogleSpreadsheetID:      v.GetString("google_spreadsheet_id"),
		GoogleResidentsSheet:     v.GetString("google_residents_sheet"),
		GooglePaymentsSheet:      v.GetString("google_payments_sheet"),
		GoogleServiceAccountJSON: v.GetString("google_service_account_json"),
		GoogleServiceAccountFile: v.GetString("google_service_account_file"),

		AMQPURL:      v.GetString("amqp_url"),
		AMQPExchange: v.GetString("amqp_exchange"),
		AMQPQueue:    v.GetString("amqp_queue"),

		FetchTimeout:      v.GetDuration("fetch_timeout"),
		SessionTTL:        v.GetDuration("session_ttl"),
		SessionCapacity:   v.GetInt("session_capacity"),
		CategoryRulesFile: v.GetString("category_rules_file"),

		RateLimit:     v.GetString("rate_limit"),
		ProbeSchedule: v.GetString("probe_schedule"),

		LogLevel:  strings.ToLower(v.GetString("log_level")),
		LogFormat: strings.ToLower(v.GetString("log_format")),
	}

	return cfg, nil
}

// Validate checks the whole configuration, including the settings of the
// selected data backend.
func (c *Config) Validate() error {
	return combine(append(c.settingsErrors(), c.backendErrors()...))
}

// ValidateSettings checks everything except the data backend. Commands
// that never open a store use it, so they run without store credentials.
func (c *Config) ValidateSettings() error {
	return combine(c.settingsErrors())
}

// ValidateBackend checks only the selected data backend and its settings.
func (c *Config) ValidateBackend() error {
	return combine(c.backendErrors())
}

func combine(errors []string) error {
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) backendErrors() []string {
	var errors []string

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendPostgREST:
		if c.SupabaseURL == "" {
			errors = append(errors, "SUPABASE_URL is required when using postgrest backend")
		} else if u, err := url.Parse(c.SupabaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid SUPABASE_URL '%s': must be an http(s) URL", c.SupabaseURL))
		}
		if c.SupabaseKey == "" {
			errors = append(errors, "SUPABASE_KEY is required when using postgrest backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			// Check if directory exists or can be created
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	case BackendMemory:
		if c.SeedDir == "" {
			errors = append(errors, "seed directory cannot be empty when using memory backend")
		}
	}

	return errors
}

func (c *Config) settingsErrors() []string {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate lookup behaviour
	if c.FetchTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at least 100ms", c.FetchTimeout))
	} else if c.FetchTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid fetch timeout %v: must be at most 2 minutes", c.FetchTimeout))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session ttl %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.SessionCapacity < 1 {
		errors = append(errors, fmt.Sprintf("invalid session capacity %d: must be at least 1", c.SessionCapacity))
	}
	if c.CategoryRulesFile != "" {
		if _, err := os.Stat(c.CategoryRulesFile); err != nil {
			errors = append(errors, fmt.Sprintf("category rules file not readable: %s", c.CategoryRulesFile))
		}
	}

	if c.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rate limit '%s': %v", c.RateLimit, err))
		}
	}
	if c.ProbeSchedule != "" {
		if _, err := cron.ParseStandard(c.ProbeSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid probe schedule '%s': %v", c.ProbeSchedule, err))
		}
	}

	if _, ok := parseLevel(c.LogLevel); !ok {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	return errors
}

// SlogLevel returns the configured level, Info when unknown.
func (c *Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
