package config

const EnvPrefix = "TRADELINK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv      = "TRADELINK_APP_ENV"
	EnvPort        = "TRADELINK_APP_PORT"
	EnvDBDSN       = "TRADELINK_DB_DSN"
	EnvDBHost      = "TRADELINK_DB_HOST"
	EnvDBUser      = "TRADELINK_DB_USER"
	EnvDBName      = "TRADELINK_DB_NAME"
	EnvRedisURL    = "TRADELINK_REDIS_URL"
	EnvJWTSecret   = "TRADELINK_JWT_SECRET"
	EnvJWTIssuer   = "TRADELINK_JWT_ISSUER"
	EnvGCPProject  = "TRADELINK_GCP_PROJECT_ID"
	EnvOrdersTopic = "TRADELINK_PUBSUB_ORDERS_TOPIC"

	EnvPaymentsKeyID           = "TRADELINK_PAYMENTS_KEY_ID"
	EnvPaymentsKeySecret       = "TRADELINK_PAYMENTS_KEY_SECRET"
	EnvPaymentsProviderTimeout = "TRADELINK_PAYMENTS_PROVIDER_TIMEOUT"
	EnvPaymentsIntentTTL       = "TRADELINK_PAYMENTS_INTENT_TTL"
)

var discreteDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
