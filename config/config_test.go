package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Port:            "5000",
		Env:             "development",
		RequestTimeout:  5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    10 * 1024,
		StoreBackend:    "mongo",
		MongoURI:        "mongodb://localhost:27017",
		DBName:          "contributions",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errorString string
	}{
		{
			name:   "valid mongo config",
			mutate: func(c *Config) {},
		},
		{
			name: "valid memory config without mongo uri",
			mutate: func(c *Config) {
				c.StoreBackend = "memory"
				c.MongoURI = ""
			},
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "invalid store backend",
			mutate:      func(c *Config) { c.StoreBackend = "postgres" },
			wantErr:     true,
			errorString: "invalid store backend 'postgres'",
		},
		{
			name:        "mongo backend with wrong scheme",
			mutate:      func(c *Config) { c.MongoURI = "http://localhost:27017" },
			wantErr:     true,
			errorString: "invalid MONGO_URI scheme 'http'",
		},
		{
			name:        "mongo backend without database",
			mutate:      func(c *Config) { c.DBName = "" },
			wantErr:     true,
			errorString: "MONGO_DB cannot be empty",
		},
		{
			name:        "request timeout too small",
			mutate:      func(c *Config) { c.RequestTimeout = time.Millisecond },
			wantErr:     true,
			errorString: "invalid request timeout",
		},
		{
			name: "short jwt secret in production",
			mutate: func(c *Config) {
				c.Env = "production"
				c.JWTSecret = "short"
			},
			wantErr:     true,
			errorString: "JWT_SECRET must be at least 16 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorString)
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("MONGO_TRANSACTIONS", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := Load()
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "mongo", cfg.StoreBackend)
	assert.False(t, cfg.UseTransactions)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, int64(10*1024), cfg.MaxBodyBytes)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "production")
	t.Setenv("MONGO_TRANSACTIONS", "true")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("JWT_SECRET", "a-very-long-secret-value")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.UseTransactions)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.AuthEnabled())
}
