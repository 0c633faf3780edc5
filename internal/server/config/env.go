package config

import (
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/cottonadvisor/internal/flagx"
	"github.com/joho/godotenv"
)

// envFile picks the dotenv file: -env-file flag, then COTTON_ENV_FILE, then ".env".
func envFile() string {
	if f := flagx.EnvFileFlag(); f != "" {
		return f
	}
	if f := os.Getenv("COTTON_ENV_FILE"); f != "" {
		return f
	}
	return ".env"
}

// parseEnv loads the dotenv file if present (never overriding variables
// already set in the process) and overlays recognised variables onto config.
func parseEnv(config *Config) {
	if _, err := os.Stat(envFile()); err == nil {
		if err := godotenv.Load(envFile()); err != nil {
			panic(err)
		}
	}

	envString(&config.HTTPAddr, "COTTON_HTTP_ADDR")
	envString(&config.GRPCAddr, "COTTON_GRPC_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_URL")
	envString(&config.SecretKey, "SECRET_KEY")
	envString(&config.SessionSecret, "SESSION_SECRET")
	envString(&config.GoogleClientID, "GOOGLE_CLIENT_ID")
	envString(&config.GoogleClientSecret, "GOOGLE_CLIENT_SECRET")
	envString(&config.GoogleRedirectURL, "GOOGLE_REDIRECT_URL")
	envString(&config.ModelDir, "COTTON_MODEL_DIR")
	envString(&config.ModelBucket, "COTTON_MODEL_BUCKET")
	envString(&config.S3Region, "COTTON_S3_REGION")
	envString(&config.S3BaseEndpoint, "COTTON_S3_ENDPOINT")
	envString(&config.S3RootUser, "COTTON_S3_USER")
	envString(&config.S3RootPassword, "COTTON_S3_PASSWORD")
	envString(&config.CatalogPath, "COTTON_CATALOG_PATH")
	envString(&config.WeatherBaseURL, "WEATHER_BASE_URL")
	envDuration(&config.WeatherTimeout, "WEATHER_TIMEOUT")
	envInt(&config.WeatherYears, "WEATHER_YEARS")
	envString(&config.SentryDSN, "SENTRY_DSN")
	envString(&config.LogLevel, "LOG_LEVEL")
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}

func envInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}
