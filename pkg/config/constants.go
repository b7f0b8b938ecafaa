package config

const EnvPrefix = "COURSEHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "COURSEHUB_APP_ENV"
	EnvPort     = "COURSEHUB_APP_PORT"
	EnvLogLevel = "COURSEHUB_LOG_LEVEL"

	EnvDBDSN  = "COURSEHUB_DB_DSN"
	EnvDBHost = "COURSEHUB_DB_HOST"
	EnvDBPort = "COURSEHUB_DB_PORT"
	EnvDBUser = "COURSEHUB_DB_USER"
	EnvDBPass = "COURSEHUB_DB_PASSWORD"
	EnvDBName = "COURSEHUB_DB_NAME"

	EnvUseSQLite = "COURSEHUB_USE_SQLITE"

	EnvRedisURL = "COURSEHUB_REDIS_URL"

	EnvJWTSecret  = "COURSEHUB_JWT_SECRET"
	EnvJWTIssuer  = "COURSEHUB_JWT_ISSUER"
	EnvJWTExpMins = "COURSEHUB_JWT_EXPIRATION_MINUTES"

	EnvSettlementTimezone     = "COURSEHUB_SETTLEMENT_TIMEZONE"
	EnvSettlementCronInterval = "COURSEHUB_SETTLEMENT_CRON_INTERVAL"

	EnvGCPProjectID           = "COURSEHUB_GCP_PROJECT_ID"
	EnvPubSubSettlementTopic  = "COURSEHUB_PUBSUB_SETTLEMENT_TOPIC"
	EnvOutboxPublishBatchSize = "COURSEHUB_OUTBOX_PUBLISH_BATCH_SIZE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
