package config

// EnvPrefix is the envconfig prefix shared by every OPD_* variable.
const EnvPrefix = "OPD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "OPD_APP_ENV"
	EnvPort                   = "OPD_APP_PORT"
	EnvDBDSN                  = "OPD_DB_DSN"
	EnvDBHost                 = "OPD_DB_HOST"
	EnvDBUser                 = "OPD_DB_USER"
	EnvDBName                 = "OPD_DB_NAME"
	EnvRedisURL               = "OPD_REDIS_URL"
	EnvJWTSecret              = "OPD_JWT_SECRET"
	EnvJWTIssuer              = "OPD_JWT_ISSUER"
	EnvJWTExpMins             = "OPD_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "OPD_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "OPD_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic      = "OPD_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub        = "OPD_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvMediaImageDir          = "OPD_MEDIA_IMAGE_DIR"
)

// legacyDBEnvVars are the discrete connection vars accepted when
// OPD_DB_DSN is not set.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
