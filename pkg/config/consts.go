package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "TAPLINE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error messages).
const (
	EnvAppEnv    = "TAPLINE_APP_ENV"
	EnvPort      = "TAPLINE_APP_PORT"
	EnvDBDSN     = "TAPLINE_DB_DSN"
	EnvDBHost    = "TAPLINE_DB_HOST"
	EnvDBUser    = "TAPLINE_DB_USER"
	EnvDBName    = "TAPLINE_DB_NAME"
	EnvRedisURL  = "TAPLINE_REDIS_URL"
	EnvJWTSecret = "TAPLINE_JWT_SECRET"
	EnvJWTIssuer = "TAPLINE_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
