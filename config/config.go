package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	ServerPort    string
	MongoURI      string
	MongoDBName   string
	CassandraHost string
	CassKeyspace  string
	JWTSecret     string
	FunctionsURL  string
	FunctionsKey  string
	PublicBaseURL string
	CORSOrigin    string
	SiteOrigin    string
	LogFile       string
	TriageTables  string

	NotificationsEnabled bool
	NotifyInterval       time.Duration
	NotifyLookahead      time.Duration
}

var ErrMissingSecret = errors.New("JWT_SECRET is not set")

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", f, err)
			}
		}
	}

	cfg := &Config{
		ServerPort:    getenv("SERVER_PORT", "8080"),
		MongoURI:      getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getenv("MONGO_DB_NAME", "crm"),
		CassandraHost: os.Getenv("CASS_DB"),
		CassKeyspace:  getenv("CASS_KEYSPACE", "notifications"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		FunctionsURL:  os.Getenv("FUNCTIONS_URL"),
		FunctionsKey:  os.Getenv("FUNCTIONS_KEY"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:8080"),
		CORSOrigin:    getenv("CORS_ORIGIN", "*"),
		SiteOrigin:    os.Getenv("SITE_URL"),
		LogFile:       getenv("LOG_FILE", "logs/crm.log"),
		TriageTables:  os.Getenv("TRIAGE_TABLES"),
	}

	var err error
	if cfg.NotificationsEnabled, err = getbool("NOTIFICATIONS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.NotifyInterval, err = getduration("NOTIFY_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyLookahead, err = getduration("NOTIFY_LOOKAHEAD", 15*time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyInterval <= 0 {
		return nil, fmt.Errorf("NOTIFY_INTERVAL must be positive, got %s", cfg.NotifyInterval)
	}

	return cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getduration(key string, def time.Duration) (time.Duration, error) {
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
