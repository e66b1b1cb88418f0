package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	LLM         LLMConfig
	Cache       CacheConfig
	Query       QueryConfig
	Tiers       TiersConfig
	Correlation CorrelationConfig
	Logger      LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey  string
	Expiration time.Duration
	RefreshExp time.Duration
}

type LLMConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
}

// CacheConfig controls the query response cache.
type CacheConfig struct {
	TTL time.Duration
}

// QueryConfig bounds reads issued against attached data sources.
type QueryConfig struct {
	MaxRows      int
	FetchTimeout time.Duration
}

// TierPolicy is the per-plan limit set. Zero means unlimited for
// QueriesPerHour and MaxResponseWords; MaxSources is always enforced.
type TierPolicy struct {
	MaxSources       int
	QueriesPerHour   int
	MaxResponseWords int
}

type TiersConfig struct {
	Starter      TierPolicy
	Professional TierPolicy
	Enterprise   TierPolicy
}

// CorrelationConfig points at an optional YAML pattern table. When the
// file is absent the built-in table is used.
type CorrelationConfig struct {
	PatternsFile string
}

func Load() (*Config, error) {
	// Try to load .env file from current directory or project root
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	// No .env file is fine, plain environment variables work too (Docker/K8s)

	readTimeout := getEnvInt("SERVER_READ_TIMEOUT", 30)
	writeTimeout := getEnvInt("SERVER_WRITE_TIMEOUT", 30)
	jwtExp := getEnvInt("JWT_EXPIRATION_HOURS", 24)
	refreshExp := getEnvInt("JWT_REFRESH_EXPIRATION_HOURS", 168)
	cacheTTL := getEnvInt("QUERY_CACHE_TTL_MINUTES", 60)
	maxRows := getEnvInt("QUERY_MAX_ROWS", 5000)
	fetchTimeout := getEnvInt("QUERY_FETCH_TIMEOUT_SECONDS", 30)
	insecureSkipVerify := getEnv("LLM_INSECURE_SKIP_VERIFY", "true") == "true"

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "askeuno"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey:  getEnv("JWT_SECRET_KEY", "your-secret-key-change-in-production"),
			Expiration: time.Duration(jwtExp) * time.Hour,
			RefreshExp: time.Duration(refreshExp) * time.Hour,
		},
		LLM: LLMConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: insecureSkipVerify,
		},
		Cache: CacheConfig{
			TTL: time.Duration(cacheTTL) * time.Minute,
		},
		Query: QueryConfig{
			MaxRows:      maxRows,
			FetchTimeout: time.Duration(fetchTimeout) * time.Second,
		},
		Tiers: TiersConfig{
			Starter: TierPolicy{
				MaxSources:       getEnvInt("TIER_STARTER_MAX_SOURCES", 1),
				QueriesPerHour:   getEnvInt("TIER_STARTER_QUERIES_PER_HOUR", 20),
				MaxResponseWords: getEnvInt("TIER_STARTER_MAX_RESPONSE_WORDS", 80),
			},
			Professional: TierPolicy{
				MaxSources:       getEnvInt("TIER_PROFESSIONAL_MAX_SOURCES", 3),
				QueriesPerHour:   getEnvInt("TIER_PROFESSIONAL_QUERIES_PER_HOUR", 120),
				MaxResponseWords: getEnvInt("TIER_PROFESSIONAL_MAX_RESPONSE_WORDS", 180),
			},
			Enterprise: TierPolicy{
				MaxSources:       getEnvInt("TIER_ENTERPRISE_MAX_SOURCES", 10),
				QueriesPerHour:   getEnvInt("TIER_ENTERPRISE_QUERIES_PER_HOUR", 0),
				MaxResponseWords: getEnvInt("TIER_ENTERPRISE_MAX_RESPONSE_WORDS", 0),
			},
		},
		Correlation: CorrelationConfig{
			PatternsFile: getEnv("CORRELATION_PATTERNS_FILE", ""),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
