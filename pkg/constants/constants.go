package constants

const (
	AppName      = "assessflow"
	ConfigName   = "config"
	ConfigFormat = "yaml"
	EnvPrefix    = "ASSESSFLOW"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	// NATS subject root for flow events.
	SubjectRoot = "assessflow"
)
