package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Backend BackendConfig
	Auth    AuthConfig
	Redis   RedisConfig
	CORS    CORSConfig
	Log     LogConfig
	Refresh RefreshConfig
}

// BackendConfig points at the hosted data tier's Postgres surface.
type BackendConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	CallTimeout  time.Duration
}

// AuthConfig points at the hosted authentication service.
type AuthConfig struct {
	BaseURL         string
	APIKey          string
	JWTSecret       string
	RequestTimeout  time.Duration
	AdminEmails     []string
	ProfessorEmails []string
}

type RedisConfig struct {
	Host       string
	Port       int
	Password   string
	DB         int
	CatalogTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RefreshConfig governs the background cache refresher.
type RefreshConfig struct {
	Enabled  bool
	Schedule string
	Timeout  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// With SetConfigFile, viper reports a missing file as fs.ErrNotExist
		// rather than ConfigFileNotFoundError.
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Backend = BackendConfig{
		Host:         v.GetString("BACKEND_DB_HOST"),
		Port:         v.GetInt("BACKEND_DB_PORT"),
		User:         v.GetString("BACKEND_DB_USER"),
		Password:     v.GetString("BACKEND_DB_PASSWORD"),
		Name:         v.GetString("BACKEND_DB_NAME"),
		SSLMode:      v.GetString("BACKEND_DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("BACKEND_DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("BACKEND_DB_MAX_IDLE_CONNS"),
		CallTimeout:  parseDuration(v.GetString("BACKEND_CALL_TIMEOUT"), 10*time.Second),
	}

	cfg.Auth = AuthConfig{
		BaseURL:         v.GetString("AUTH_BASE_URL"),
		APIKey:          v.GetString("AUTH_API_KEY"),
		JWTSecret:       v.GetString("AUTH_JWT_SECRET"),
		RequestTimeout:  parseDuration(v.GetString("AUTH_REQUEST_TIMEOUT"), 10*time.Second),
		AdminEmails:     splitAndTrim(v.GetString("AUTH_BOOTSTRAP_ADMINS")),
		ProfessorEmails: splitAndTrim(v.GetString("AUTH_BOOTSTRAP_PROFESSORS")),
	}

	cfg.Redis = RedisConfig{
		Host:       v.GetString("REDIS_HOST"),
		Port:       v.GetInt("REDIS_PORT"),
		Password:   v.GetString("REDIS_PASSWORD"),
		DB:         v.GetInt("REDIS_DB"),
		CatalogTTL: parseDuration(v.GetString("REDIS_CATALOG_TTL"), 5*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Refresh = RefreshConfig{
		Enabled:  v.GetBool("REFRESH_ENABLED"),
		Schedule: v.GetString("REFRESH_SCHEDULE"),
		Timeout:  parseDuration(v.GetString("REFRESH_TIMEOUT"), 30*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("BACKEND_DB_HOST", "localhost")
	v.SetDefault("BACKEND_DB_PORT", 5432)
	v.SetDefault("BACKEND_DB_USER", "postgres")
	v.SetDefault("BACKEND_DB_PASSWORD", "postgres")
	v.SetDefault("BACKEND_DB_NAME", "asesorias")
	v.SetDefault("BACKEND_DB_SSL_MODE", "require")
	v.SetDefault("BACKEND_DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("BACKEND_DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("BACKEND_CALL_TIMEOUT", "10s")

	v.SetDefault("AUTH_BASE_URL", "http://localhost:9999")
	v.SetDefault("AUTH_API_KEY", "")
	v.SetDefault("AUTH_JWT_SECRET", "dev_secret")
	v.SetDefault("AUTH_REQUEST_TIMEOUT", "10s")
	v.SetDefault("AUTH_BOOTSTRAP_ADMINS", "")
	v.SetDefault("AUTH_BOOTSTRAP_PROFESSORS", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CATALOG_TTL", "5m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REFRESH_ENABLED", false)
	v.SetDefault("REFRESH_SCHEDULE", "@every 5m")
	v.SetDefault("REFRESH_TIMEOUT", "30s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
