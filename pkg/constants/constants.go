package constants

const (
	// ConfigName is the base name of the config file (without extension).
	ConfigName = "config"

	// ConfigFormat is the config file format viper expects.
	ConfigFormat = "yaml"

	// EnvPrefix is the prefix for environment variable overrides,
	// e.g. BAZAAR_SERVER_PORT overrides server.port.
	EnvPrefix = "BAZAAR"

	// ServiceName is the default service identity used in logs and telemetry.
	ServiceName = "bazaar_backend"
)
