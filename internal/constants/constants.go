// Package constants defines shared configuration constants.
package constants

var (
	ConfigFile = "config.yaml"

	DefaultDir = ".bindiff"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "BINDIFF_"

	// ConfigEnvVar points at a config file and overrides the default location.
	ConfigEnvVar = EnvPrefix + "CONFIG"

	// LogLevelEnvVar selects the CLI log level.
	LogLevelEnvVar = EnvPrefix + "LOG_LEVEL"
)
