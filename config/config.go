package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server ServerConfig
	Local  LocalConfig
	Remote RemoteConfig
	Auth   AuthConfig
	Sync   SyncConfig
	App    AppConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int
}

// LocalConfig selects the device store backend.
type LocalConfig struct {
	Backend       string // memory | sqlite | redis
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	QuotaBytes    int
}

// RemoteConfig selects the cloud store. Provider "none" runs local-only.
type RemoteConfig struct {
	Provider           string // none | postgres | supabase
	Driver             string // postgres (lib/pq) | pgx
	Database           DatabaseConfig
	SupabaseURL        string
	SupabaseKey        string
	MigrateOnStart     bool
	TombstoneRetention time.Duration
	PurgeSchedule      string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type AuthConfig struct {
	Provider                string // none | jwt | firebase
	JWTSecret               string
	FirebaseCredentialsPath string
}

type SyncConfig struct {
	Debounce     time.Duration
	SeedTemplate string // optional YAML file with the starter project
}

type AppConfig struct {
	ServiceName string
	Environment string
	LogLevel    string
	LogFormat   string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			RateLimitRPS:   getEnvAsInt("RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 40),
		},
		Local: LocalConfig{
			Backend:       strings.ToLower(getEnv("LOCAL_BACKEND", "sqlite")),
			SQLitePath:    getEnv("LOCAL_SQLITE_PATH", "data/playground.db"),
			RedisAddr:     getEnv("LOCAL_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("LOCAL_REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("LOCAL_REDIS_DB", 0),
			RedisPrefix:   getEnv("LOCAL_REDIS_PREFIX", ""),
			QuotaBytes:    getEnvAsInt("LOCAL_QUOTA_BYTES", 5<<20),
		},
		Remote: RemoteConfig{
			Provider: strings.ToLower(getEnv("REMOTE_PROVIDER", "none")),
			Driver:   strings.ToLower(getEnv("REMOTE_DB_DRIVER", "postgres")),
			Database: DatabaseConfig{
				URL:      getEnv("DATABASE_URL", ""),
				Host:     getEnv("DB_HOST", "localhost"),
				Port:     getEnvAsInt("DB_PORT", 5432),
				User:     getEnv("DB_USER", "postgres"),
				Password: getEnv("DB_PASSWORD", ""),
				Name:     getEnv("DB_NAME", "playground"),
				SSLMode:  getEnv("DB_SSLMODE", "disable"),
			},
			SupabaseURL:        getEnv("SUPABASE_URL", ""),
			SupabaseKey:        getEnv("SUPABASE_SERVICE_KEY", ""),
			MigrateOnStart:     getEnvAsBool("REMOTE_MIGRATE_ON_START", true),
			TombstoneRetention: getEnvAsDuration("REMOTE_TOMBSTONE_RETENTION", 30*24*time.Hour),
			PurgeSchedule:      getEnv("REMOTE_PURGE_SCHEDULE", "0 3 * * *"),
		},
		Auth: AuthConfig{
			Provider:                strings.ToLower(getEnv("AUTH_PROVIDER", "none")),
			JWTSecret:               getEnv("SUPABASE_JWT_SECRET", ""),
			FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Sync: SyncConfig{
			Debounce:     getEnvAsDuration("SYNC_DEBOUNCE", 1500*time.Millisecond),
			SeedTemplate: getEnv("SEED_TEMPLATE_PATH", ""),
		},
		App: AppConfig{
			ServiceName: getEnv("SERVICE_NAME", "playground-sync"),
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "json"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Local.Backend {
	case "memory", "redis":
	case "sqlite":
		if c.Local.SQLitePath == "" {
			return fmt.Errorf("LOCAL_SQLITE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("LOCAL_BACKEND must be memory, sqlite or redis, got %q", c.Local.Backend)
	}

	switch c.Remote.Provider {
	case "none":
	case "postgres":
		if c.Remote.Database.URL == "" && c.Remote.Database.Host == "" {
			return fmt.Errorf("DATABASE_URL or DB_HOST is required for the postgres remote")
		}
		if c.Remote.Driver != "postgres" && c.Remote.Driver != "pgx" {
			return fmt.Errorf("REMOTE_DB_DRIVER must be postgres or pgx, got %q", c.Remote.Driver)
		}
	case "supabase":
		if c.Remote.SupabaseURL == "" || c.Remote.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required for the supabase remote")
		}
	default:
		return fmt.Errorf("REMOTE_PROVIDER must be none, postgres or supabase, got %q", c.Remote.Provider)
	}

	switch c.Auth.Provider {
	case "none":
	case "jwt":
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET is required for jwt auth")
		}
	case "firebase":
		if c.Auth.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required for firebase auth")
		}
	default:
		return fmt.Errorf("AUTH_PROVIDER must be none, jwt or firebase, got %q", c.Auth.Provider)
	}

	if c.Local.QuotaBytes < 0 {
		return fmt.Errorf("LOCAL_QUOTA_BYTES must not be negative")
	}
	if c.Sync.Debounce < 0 {
		return fmt.Errorf("SYNC_DEBOUNCE must not be negative")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
