package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Document database
	MongoURI      string
	MongoDatabase string

	// Auth
	JWTSecret string
	TokenTTL  time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Archive worker (local reporting replica)
	SQLiteDBPath string
	WorkerPort   string

	// Exchange rates
	RatesBaseURL  string
	RatesAPIKey   string
	BaseCurrency  string
	RatesTimeout  time.Duration

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		MongoURI:      getEnv("MONGO_URI", ""),
		MongoDatabase: getEnv("MONGO_DATABASE", "tally"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvDuration("TOKEN_TTL", 24*time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "tally"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_events"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tally.db"),
		WorkerPort:   getEnv("WORKER_PORT", "8082"),

		RatesBaseURL: getEnv("RATES_BASE_URL", "https://v6.exchangerate-api.com"),
		RatesAPIKey:  getEnv("RATES_API_KEY", ""),
		BaseCurrency: getEnv("BASE_CURRENCY", "AUD"),
		RatesTimeout: getEnvDuration("RATES_TIMEOUT", 10*time.Second),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if port, err := strconv.Atoi(c.WorkerPort); err != nil {
		errs = append(errs, fmt.Sprintf("invalid worker port '%s': must be a number", c.WorkerPort))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid worker port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{"memory", "mongo"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "mongo" && c.MongoURI == "" {
		errs = append(errs, "MONGO_URI is required when using the mongo backend")
	}

	if c.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET cannot be empty")
	}
	if c.TokenTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if parsedURL, err := url.Parse(c.RatesBaseURL); err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid rates base URL '%s'", c.RatesBaseURL))
	}
	if len(c.BaseCurrency) != 3 || strings.ToUpper(c.BaseCurrency) != c.BaseCurrency {
		errs = append(errs, fmt.Sprintf("invalid base currency '%s': must be a 3-letter uppercase code", c.BaseCurrency))
	}
	if c.RatesTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid rates timeout %v: must be at least 1 second", c.RatesTimeout))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
