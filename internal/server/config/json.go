package config

import (
	"os"

	"github.com/dmitrijs2005/cottonadvisor/internal/flagx"
	"github.com/dmitrijs2005/cottonadvisor/internal/timex"
	"github.com/goccy/go-json"
)

// JsonConfig is the on-disk shape of the -c/-config file. Absent keys leave
// the corresponding Config field untouched.
type JsonConfig struct {
	HTTPAddr                     *string         `json:"http_addr"`
	GRPCAddr                     *string         `json:"grpc_addr"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	SessionSecret                *string         `json:"session_secret"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	GoogleClientID               *string         `json:"google_client_id"`
	GoogleClientSecret           *string         `json:"google_client_secret"`
	GoogleRedirectURL            *string         `json:"google_redirect_url"`
	MFAIssuer                    *string         `json:"mfa_issuer"`
	ModelDir                     *string         `json:"model_dir"`
	ModelBucket                  *string         `json:"model_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	CatalogPath                  *string         `json:"catalog_path"`
	WeatherBaseURL               *string         `json:"weather_base_url"`
	WeatherTimeout               *timex.Duration `json:"weather_timeout"`
	WeatherYears                 *int            `json:"weather_years"`
	WeatherTimezone              *string         `json:"weather_timezone"`
	SentryDSN                    *string         `json:"sentry_dsn"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. It panics
// when the file is unreadable or not valid JSON.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SessionSecret, c.SessionSecret)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleRedirectURL, c.GoogleRedirectURL)
	setString(&config.MFAIssuer, c.MFAIssuer)
	setString(&config.ModelDir, c.ModelDir)
	setString(&config.ModelBucket, c.ModelBucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.CatalogPath, c.CatalogPath)
	setString(&config.WeatherBaseURL, c.WeatherBaseURL)
	if c.WeatherTimeout != nil {
		config.WeatherTimeout = c.WeatherTimeout.Duration
	}
	if c.WeatherYears != nil {
		config.WeatherYears = *c.WeatherYears
	}
	setString(&config.WeatherTimezone, c.WeatherTimezone)
	setString(&config.SentryDSN, c.SentryDSN)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
