package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// HTTP Server
	Port               string        `koanf:"PORT"`
	RateLimitPerMinute int           `koanf:"RATE_LIMIT_PER_MINUTE"`
	ShutdownTimeout    time.Duration `koanf:"SHUTDOWN_TIMEOUT"`

	// comma separated CIDRs trusted for X-Forwarded-For on top of the private ranges
	TrustedProxies string `koanf:"TRUSTED_PROXIES"`

	// Logging
	LogLevel  string `koanf:"LOG_LEVEL"`
	LogFormat string `koanf:"LOG_FORMAT"`

	// Persistence
	DataBackend     string `koanf:"DATA_BACKEND"`
	DataDir         string `koanf:"DATA_DIR"`
	SQLiteDBPath    string `koanf:"SQLITE_DB_PATH"`
	PostgresDSN     string `koanf:"POSTGRES_DSN"`
	MongoURI        string `koanf:"MONGO_URI"`
	MongoDatabase   string `koanf:"MONGO_DATABASE"`
	MongoCollection string `koanf:"MONGO_COLLECTION"`
	TransactionsKey string `koanf:"TRANSACTIONS_KEY"`
	GoalsKey        string `koanf:"GOALS_KEY"`

	// Natural-language parser
	ParserBackend string        `koanf:"PARSER_BACKEND"`
	GeminiAPIKey  string        `koanf:"GEMINI_API_KEY"`
	GeminiModel   string        `koanf:"GEMINI_MODEL"`
	GeminiBaseURL string        `koanf:"GEMINI_BASE_URL"`
	OpenAIAPIKey  string        `koanf:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `koanf:"OPENAI_BASE_URL"`
	OpenAIModel   string        `koanf:"OPENAI_MODEL"`
	ParseTimeout  time.Duration `koanf:"PARSE_TIMEOUT"`
	ParseRetries  int           `koanf:"PARSE_RETRIES"`

	// AMQP (optional, empty URL disables ledger events)
	AMQPURL      string `koanf:"AMQP_URL"`
	AMQPExchange string `koanf:"AMQP_EXCHANGE"`
	AMQPQueue    string `koanf:"AMQP_QUEUE"`

	// Google Sheets journal (worker only)
	GoogleSpreadsheetID      string `koanf:"GOOGLE_SPREADSHEET_ID"`
	GoogleSheetName          string `koanf:"GOOGLE_SHEET_NAME"`
	GoogleServiceAccountFile string `koanf:"GOOGLE_SERVICE_ACCOUNT_FILE"`
	GoogleServiceAccountJSON string `koanf:"GOOGLE_SERVICE_ACCOUNT_JSON"`

	// Views
	RecentCount int `koanf:"RECENT_COUNT"`
	StatsDays   int `koanf:"STATS_DAYS"`
}

var (
	validBackends = []string{"memory", "sqlite", "postgres", "mongo"}
	validParsers  = []string{"rules", "gemini", "openai"}
	validLevels   = []string{"DEBUG", "INFO", "WARN", "ERROR"}
	validFormats  = []string{"text", "json"}
)

// Default returns the configuration used when no variable is set.
func Default() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 60,
		ShutdownTimeout:    10 * time.Second,

		LogLevel:  "INFO",
		LogFormat: "text",

		DataBackend:     "sqlite",
		DataDir:         "data",
		SQLiteDBPath:    "./data/qmoney.db",
		MongoDatabase:   "qmoney",
		MongoCollection: "kv",
		TransactionsKey: "qmoney_transactions",
		GoalsKey:        "qmoney_goals",

		ParserBackend: "rules",
		GeminiModel:   "gemini-2.5-flash",
		OpenAIModel:   "gpt-4o-mini",
		ParseTimeout:  15 * time.Second,
		ParseRetries:  1,

		AMQPExchange: "qmoney",
		AMQPQueue:    "ledger_events",

		GoogleSheetName: "Journal",

		RecentCount: 3,
		StatsDays:   7,
	}
}

// Load overlays environment variables on top of Default. Blank variables
// are ignored so that they fall back to the default.
func Load() (*Config, error) {
	cfg := Default()

	k := koanf.New(".")
	provider := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		if strings.TrimSpace(value) == "" {
			return "", nil
		}
		return key, value
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: true}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	return cfg, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}
	if !slices.Contains(validFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of %v", c.LogFormat, validFormats))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	case "mongo":
		if c.MongoURI == "" {
			errors = append(errors, "MONGO_URI is required when using mongo backend")
		}
		if c.MongoDatabase == "" || c.MongoCollection == "" {
			errors = append(errors, "MONGO_DATABASE and MONGO_COLLECTION cannot be empty when using mongo backend")
		}
	}

	if c.TransactionsKey == "" || c.GoalsKey == "" {
		errors = append(errors, "TRANSACTIONS_KEY and GOALS_KEY cannot be empty")
	} else if c.TransactionsKey == c.GoalsKey {
		errors = append(errors, fmt.Sprintf("TRANSACTIONS_KEY and GOALS_KEY must differ, both are '%s'", c.GoalsKey))
	}

	if !slices.Contains(validParsers, c.ParserBackend) {
		errors = append(errors, fmt.Sprintf("invalid parser backend '%s': must be one of %v", c.ParserBackend, validParsers))
	}
	switch c.ParserBackend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errors = append(errors, "GEMINI_API_KEY is required when using gemini parser")
		}
		if c.GeminiBaseURL != "" {
			if _, err := url.ParseRequestURI(c.GeminiBaseURL); err != nil {
				errors = append(errors, fmt.Sprintf("invalid GEMINI_BASE_URL '%s': %v", c.GeminiBaseURL, err))
			}
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errors = append(errors, "OPENAI_API_KEY is required when using openai parser")
		}
		if c.OpenAIBaseURL != "" {
			if _, err := url.ParseRequestURI(c.OpenAIBaseURL); err != nil {
				errors = append(errors, fmt.Sprintf("invalid OPENAI_BASE_URL '%s': %v", c.OpenAIBaseURL, err))
			}
		}
	}
	if c.ParseTimeout < time.Second || c.ParseTimeout > 2*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid parse timeout %v: must be between 1s and 2m", c.ParseTimeout))
	}
	if c.ParseRetries < 0 || c.ParseRetries > 3 {
		errors = append(errors, fmt.Sprintf("invalid parse retries %d: must be between 0 and 3", c.ParseRetries))
	}

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

	for _, cidr := range c.TrustedProxyCIDRs() {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR such as 203.0.113.0/24", cidr))
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimitPerMinute))
	}
	if c.RecentCount < 1 || c.RecentCount > 50 {
		errors = append(errors, fmt.Sprintf("invalid recent count %d: must be between 1 and 50", c.RecentCount))
	}
	if c.StatsDays < 1 || c.StatsDays > 366 {
		errors = append(errors, fmt.Sprintf("invalid stats days %d: must be between 1 and 366", c.StatsDays))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// TrustedProxyCIDRs splits TrustedProxies, dropping blank entries.
func (c *Config) TrustedProxyCIDRs() []string {
	var out []string
	for _, part := range strings.Split(c.TrustedProxies, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateJournal checks the settings the journal worker needs on top of
// Validate.
func (c *Config) ValidateJournal() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the journal worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the journal worker")
	}
	if c.GoogleSheetName == "" {
		errors = append(errors, "GOOGLE_SHEET_NAME cannot be empty")
	}
	if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("journal configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}
