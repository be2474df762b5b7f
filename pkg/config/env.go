package config

const (
	EnvPrefix = "STOCKCAST"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:stockcast.db?cache=shared"
)

const (
	EnvAppEnv   = "STOCKCAST_APP_ENV"
	EnvPort     = "STOCKCAST_APP_PORT"
	EnvLogLevel = "STOCKCAST_LOG_LEVEL"

	EnvDBDSN  = "STOCKCAST_DB_DSN"
	EnvDBHost = "STOCKCAST_DB_HOST"
	EnvDBUser = "STOCKCAST_DB_USER"
	EnvDBName = "STOCKCAST_DB_NAME"

	EnvRedisURL  = "STOCKCAST_REDIS_URL"
	EnvUseSQLite = "STOCKCAST_USE_SQLITE"

	EnvForecastWindowSize   = "STOCKCAST_FORECAST_WINDOW_SIZE"
	EnvForecastTrendWeight  = "STOCKCAST_FORECAST_TREND_WEIGHT"
	EnvForecastDisableTrend = "STOCKCAST_FORECAST_DISABLE_TREND"
	EnvRetentionSalesDays   = "STOCKCAST_RETENTION_SALES_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
