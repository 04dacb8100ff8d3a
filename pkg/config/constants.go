package config

const (
	EnvPrefix = "TIENDABOT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TIENDABOT_DB_DSN"
	EnvDBHost = "TIENDABOT_DB_HOST"
	EnvDBUser = "TIENDABOT_DB_USER"
	EnvDBName = "TIENDABOT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
