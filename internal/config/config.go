package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Monitor  MonitorConfig
	Verifier VerifierConfig
	Webhook  WebhookConfig
	Security SecurityConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL             string
	Password        string
	RequestCacheTTL time.Duration
}

// MonitorConfig holds monitoring scheduler configuration
type MonitorConfig struct {
	PollInterval      time.Duration
	VerifyTimeout     time.Duration
	ErrorLogThreshold int
	SweepInterval     time.Duration
}

// VerifierConfig selects and parameterizes the verification oracle client.
// Mode "http" talks to a facilitator-style service at URL; mode "evm" scans
// chains directly over the configured RPC endpoints.
type VerifierConfig struct {
	Mode             string
	URL              string
	RPCURLs          map[string]string
	NativeCurrencies map[string]string
}

// WebhookConfig holds webhook authentication configuration
type WebhookConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// SecurityConfig holds API credential configuration
type SecurityConfig struct {
	APIKeyHashes []string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     getEnv("SERVER_PORT", "8080"),
			Env:      getEnv("SERVER_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "paywatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:             getEnv("REDIS_URL", "redis://localhost:6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			RequestCacheTTL: getEnvAsDuration("REQUEST_CACHE_TTL", 5*time.Minute),
		},
		Monitor: MonitorConfig{
			PollInterval:      getEnvAsDuration("MONITOR_POLL_INTERVAL", 15*time.Second),
			VerifyTimeout:     getEnvAsDuration("MONITOR_VERIFY_TIMEOUT", 5*time.Second),
			ErrorLogThreshold: getEnvAsInt("MONITOR_ERROR_LOG_THRESHOLD", 5),
			SweepInterval:     getEnvAsDuration("SWEEP_INTERVAL", 30*time.Second),
		},
		Verifier: VerifierConfig{
			Mode:             getEnv("VERIFIER_MODE", "http"),
			URL:              getEnv("VERIFIER_URL", "http://localhost:9090"),
			RPCURLs:          getEnvAsMap("CHAIN_RPC_URLS"),
			NativeCurrencies: getEnvAsMap("CHAIN_NATIVE_CURRENCIES"),
		},
		Webhook: WebhookConfig{
			JWTSecret:   getEnv("WEBHOOK_JWT_SECRET", "change-this-in-production"),
			TokenExpiry: getEnvAsDuration("WEBHOOK_TOKEN_EXPIRY", 10*time.Minute),
		},
		Security: SecurityConfig{
			APIKeyHashes: getEnvAsList("API_KEY_HASHES"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnvAsMap parses comma-separated key=value pairs, e.g.
// CHAIN_RPC_URLS="ethereum=https://rpc.example,base-sepolia=https://rpc2.example".
func getEnvAsMap(key string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(os.Getenv(key), ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
