package config

const (
	EnvPrefix = "QUOTEFLOW"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	defaultSQLiteDSN = "file:quoteflow.db?_foreign_keys=on"
)

const (
	EnvAppEnv   = "QUOTEFLOW_APP_ENV"
	EnvPort     = "QUOTEFLOW_APP_PORT"
	EnvDBDSN    = "QUOTEFLOW_DB_DSN"
	EnvDBHost   = "QUOTEFLOW_DB_HOST"
	EnvDBUser   = "QUOTEFLOW_DB_USER"
	EnvDBName   = "QUOTEFLOW_DB_NAME"
	EnvSQLite   = "QUOTEFLOW_USE_SQLITE"
	EnvRedisURL = "QUOTEFLOW_REDIS_URL"

	EnvJWTSecret = "QUOTEFLOW_JWT_SECRET"
	EnvJWTIssuer = "QUOTEFLOW_JWT_ISSUER"

	EnvApprovalThreshold  = "QUOTEFLOW_APPROVAL_THRESHOLD"
	EnvQuoteValidityDays  = "QUOTEFLOW_QUOTE_VALIDITY_DAYS"
	EnvAutomationMaxDepth = "QUOTEFLOW_AUTOMATION_MAX_DEPTH"
	EnvOverloadFactor     = "QUOTEFLOW_OVERLOAD_FACTOR"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
