package config

// EnvPrefix scopes all envconfig lookups.
const EnvPrefix = "CG"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "CG_DB_DSN"
	EnvDBHost = "CG_DB_HOST"
	EnvDBUser = "CG_DB_USER"
	EnvDBName = "CG_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
