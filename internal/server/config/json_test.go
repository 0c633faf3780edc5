package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":                       ":8080",
		"database_dsn":                    "postgres://cotton",
		"secret_key":                      "my_secret_key",
		"access_token_validity_duration":  "5m",
		"refresh_token_validity_duration": 3600000000000,
		"model_dir":                       "/opt/models",
		"model_bucket":                    "artifacts",
		"weather_timeout":                 "3s",
		"weather_years":                   5,
		"log_level":                       "warn",
	})

	t.Run("loads from json, keeps absent keys", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, ":8080", cfg.HTTPAddr)
		assert.Equal(t, ":50051", cfg.GRPCAddr)
		assert.Equal(t, "postgres://cotton", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 5*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, time.Hour, cfg.RefreshTokenValidityDuration)
		assert.Equal(t, "/opt/models", cfg.ModelDir)
		assert.Equal(t, "artifacts", cfg.ModelBucket)
		assert.Equal(t, 3*time.Second, cfg.WeatherTimeout)
		assert.Equal(t, 5, cfg.WeatherYears)
		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, "Cotton Prediction App", cfg.MFAIssuer)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{HTTPAddr: "defaults:1234", WeatherYears: 7}
		parseJson(cfg)

		assert.Equal(t, &Config{HTTPAddr: "defaults:1234", WeatherYears: 7}, cfg)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
