package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server
	Port            string
	Env             string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	MaxBodyBytes    int64
	MetricsEnabled  bool

	// Store
	StoreBackend    string
	MongoURI        string
	DBName          string
	UseTransactions bool

	// Auth (empty secret disables auth)
	JWTSecret string

	// Reports
	GroupName           string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string
	ZeptoAPIURL         string
	ZeptoAPIKey         string
	EmailFrom           string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "5000"),
		Env:             getEnv("APP_ENV", "development"),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 5*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
		MaxBodyBytes:    int64(getEnvInt("MAX_BODY_BYTES", 10*1024)),
		MetricsEnabled:  getEnvBool("METRICS_ENABLED", true),

		StoreBackend:    getEnv("STORE_BACKEND", "mongo"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnv("MONGO_DB", "contributions"),
		UseTransactions: getEnvBool("MONGO_TRANSACTIONS", false),

		JWTSecret: getEnv("JWT_SECRET", ""),

		GroupName:           getEnv("GROUP_NAME", "Community Group"),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", "reports"),
		ZeptoAPIURL:         getEnv("ZEPTO_API_URL", ""),
		ZeptoAPIKey:         getEnv("ZEPTO_API_KEY", ""),
		EmailFrom:           getEnv("EMAIL_FROM", ""),
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func (c *Config) EmailEnabled() bool {
	return c.ZeptoAPIURL != "" && c.ZeptoAPIKey != "" && c.EmailFrom != ""
}

// Validate returns every configuration problem in a single error.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.StoreBackend {
	case "mongo":
		if c.MongoURI == "" {
			errors = append(errors, "MONGO_URI cannot be empty when using mongo backend")
		} else if u, err := url.Parse(c.MongoURI); err != nil {
			errors = append(errors, fmt.Sprintf("invalid MONGO_URI: %v", err))
		} else if u.Scheme != "mongodb" && u.Scheme != "mongodb+srv" {
			errors = append(errors, fmt.Sprintf("invalid MONGO_URI scheme '%s': must be 'mongodb' or 'mongodb+srv'", u.Scheme))
		}
		if c.DBName == "" {
			errors = append(errors, "MONGO_DB cannot be empty when using mongo backend")
		}
	case "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of [mongo memory]", c.StoreBackend))
	}

	if c.RequestTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 100ms", c.RequestTimeout))
	}
	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}
	if c.MaxBodyBytes < 1024 {
		errors = append(errors, fmt.Sprintf("invalid max body size %d: must be at least 1024 bytes", c.MaxBodyBytes))
	}

	if c.IsProduction() && c.AuthEnabled() && len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters in production")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
