package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/shreels/tgauth/internal/flagx"
	"github.com/shreels/tgauth/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Durations
// accept both "15m" style strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP  string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC  string         `json:"endpoint_addr_grpc"`
	DatabaseDSN       string         `json:"database_dsn"`
	BotToken          string         `json:"bot_token"`
	JWTSecret         string         `json:"jwt_secret"`
	JWTIssuer         string         `json:"jwt_issuer"`
	InitDataMaxAge    timex.Duration `json:"init_data_max_age"`
	StorageTimeout    timex.Duration `json:"storage_timeout"`
	HealthInterval    timex.Duration `json:"health_interval"`
	StorageAnonKey    string         `json:"storage_anon_key"`
	StorageServiceKey string         `json:"storage_service_key"`
	Environment       string         `json:"environment"`
	LogLevel          string         `json:"log_level"`
	S3RootUser        string         `json:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket"`
	S3Region          string         `json:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint"`
	PresignTTL        timex.Duration `json:"presign_ttl"`
	TelemetryEndpoint string         `json:"telemetry_endpoint"`
}

// parseJson overlays values from the file named by -c/-config. Keys absent
// from the file leave the current values untouched. An unreadable file or
// invalid JSON panics: a broken config file is a startup error.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
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

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.BotToken, c.BotToken)
	setString(&config.JWTSecret, c.JWTSecret)
	setString(&config.JWTIssuer, c.JWTIssuer)
	setDuration(&config.InitDataMaxAge, c.InitDataMaxAge)
	setDuration(&config.StorageTimeout, c.StorageTimeout)
	setDuration(&config.HealthInterval, c.HealthInterval)
	setString(&config.StorageAnonKey, c.StorageAnonKey)
	setString(&config.StorageServiceKey, c.StorageServiceKey)
	setString(&config.Environment, c.Environment)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setDuration(&config.PresignTTL, c.PresignTTL)
	setString(&config.TelemetryEndpoint, c.TelemetryEndpoint)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
