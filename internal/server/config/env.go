package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/shreels/tgauth/internal/flagx"
)

const defaultEnvFile = ".env"

// serverEnv holds raw environment values. Variable names follow the original
// Vercel/Railway deployments so existing .env files keep working.
type serverEnv struct {
	EndpointAddrHTTP  string        `env:"HTTP_ADDR"`
	EndpointAddrGRPC  string        `env:"GRPC_ADDR"`
	DatabaseDSN       string        `env:"DATABASE_DSN"`
	BotToken          string        `env:"BOT_TOKEN"`
	JWTSecret         string        `env:"SUPABASE_JWT_SECRET"`
	JWTIssuer         string        `env:"JWT_ISSUER"`
	InitDataMaxAge    time.Duration `env:"INIT_DATA_MAX_AGE"`
	StorageTimeout    time.Duration `env:"STORAGE_TIMEOUT"`
	HealthInterval    time.Duration `env:"HEALTH_INTERVAL"`
	StorageAnonKey    string        `env:"SUPABASE_ANON_KEY"`
	StorageServiceKey string        `env:"SUPABASE_SERVICE_ROLE_KEY"`
	Environment       string        `env:"APP_ENV"`
	LogLevel          string        `env:"LOG_LEVEL"`
	S3RootUser        string        `env:"S3_ROOT_USER"`
	S3RootPassword    string        `env:"S3_ROOT_PASSWORD"`
	S3Bucket          string        `env:"S3_BUCKET"`
	S3Region          string        `env:"S3_REGION"`
	S3BaseEndpoint    string        `env:"S3_BASE_ENDPOINT"`
	PresignTTL        time.Duration `env:"PRESIGN_TTL"`
	TelemetryEndpoint string        `env:"OTEL_ENDPOINT"`
}

// parseEnv loads the dotenv file (-env-file, else ./.env when present) into
// the process environment without overriding variables that are already set,
// then overlays every non-empty variable onto config. Invalid values panic.
func parseEnv(config *Config) {
	loadDotEnv(flagx.EnvFileFlag())

	var raw serverEnv
	if err := env.Parse(&raw); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, raw.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, raw.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, raw.DatabaseDSN)
	setString(&config.BotToken, raw.BotToken)
	setString(&config.JWTSecret, raw.JWTSecret)
	setString(&config.JWTIssuer, raw.JWTIssuer)
	setEnvDuration(&config.InitDataMaxAge, raw.InitDataMaxAge)
	setEnvDuration(&config.StorageTimeout, raw.StorageTimeout)
	setEnvDuration(&config.HealthInterval, raw.HealthInterval)
	setString(&config.StorageAnonKey, raw.StorageAnonKey)
	setString(&config.StorageServiceKey, raw.StorageServiceKey)
	setString(&config.Environment, raw.Environment)
	setString(&config.LogLevel, raw.LogLevel)
	setString(&config.S3RootUser, raw.S3RootUser)
	setString(&config.S3RootPassword, raw.S3RootPassword)
	setString(&config.S3Bucket, raw.S3Bucket)
	setString(&config.S3Region, raw.S3Region)
	setString(&config.S3BaseEndpoint, raw.S3BaseEndpoint)
	setEnvDuration(&config.PresignTTL, raw.PresignTTL)
	setString(&config.TelemetryEndpoint, raw.TelemetryEndpoint)
}

func loadDotEnv(path string) {
	if path == "" {
		if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
		return
	}
	if err := godotenv.Load(path); err != nil {
		panic(err)
	}
}

func setEnvDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
