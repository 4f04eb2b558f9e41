package config

const EnvPrefix = "INVENTORY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv                 = "INVENTORY_APP_ENV"
	EnvPort                   = "INVENTORY_APP_PORT"
	EnvDBDSN                  = "INVENTORY_DB_DSN"
	EnvDBHost                 = "INVENTORY_DB_HOST"
	EnvDBUser                 = "INVENTORY_DB_USER"
	EnvDBName                 = "INVENTORY_DB_NAME"
	EnvRedisURL               = "INVENTORY_REDIS_URL"
	EnvUseSQLite              = "INVENTORY_USE_SQLITE"
	EnvReservationExpiry      = "INVENTORY_RESERVATION_EXPIRY_MINUTES"
	EnvLowStockThreshold      = "INVENTORY_LOW_STOCK_THRESHOLD"
	EnvProductServiceURL      = "INVENTORY_PRODUCT_SERVICE_URL"
	EnvNotificationServiceURL = "INVENTORY_NOTIFICATION_SERVICE_URL"
	EnvNotifierKind           = "INVENTORY_NOTIFIER_KIND"
	EnvGCPProjectID           = "INVENTORY_GCP_PROJECT_ID"
	EnvPubSubLowStockTopic    = "INVENTORY_PUBSUB_LOW_STOCK_TOPIC"
)

const defaultSQLiteDSN = "file:inventory.db?cache=shared&_fk=1"

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
