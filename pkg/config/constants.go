package config

// EnvPrefix is empty because every variable already carries the BRIDGE_ prefix
// in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	MarketplaceEnvDevelopment = "development"
	MarketplaceEnvProduction  = "production"
)

const (
	EnvAppEnv = "BRIDGE_APP_ENV"
	EnvAPIKey = "BRIDGE_API_KEY"
	EnvDBDSN  = "BRIDGE_DB_DSN"
	EnvDBHost = "BRIDGE_DB_HOST"
	EnvDBUser = "BRIDGE_DB_USER"
	EnvDBName = "BRIDGE_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
