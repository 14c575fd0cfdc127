package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHELFSYNC"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "SHELFSYNC_DEBUG", validateEnvBool},
		{"logging.default_level", "SHELFSYNC_LOG_LEVEL", validateEnvLogLevel},

		// Remote drop
		{"remote.protocol", "SHELFSYNC_REMOTE_PROTOCOL", validateEnvProtocol},
		{"remote.host", "SHELFSYNC_REMOTE_HOST", nil},
		{"remote.port", "SHELFSYNC_REMOTE_PORT", validateEnvPort},
		{"remote.username", "SHELFSYNC_REMOTE_USERNAME", nil},
		{"remote.password", "SHELFSYNC_REMOTE_PASSWORD", nil},
		{"remote.keyfile", "SHELFSYNC_REMOTE_KEYFILE", nil},
		{"remote.knownhosts", "SHELFSYNC_REMOTE_KNOWNHOSTS", nil},
		{"remote.localroot", "SHELFSYNC_REMOTE_LOCALROOT", nil},

		// Sync
		{"sync.workdir", "SHELFSYNC_SYNC_WORKDIR", nil},
		{"sync.concurrency", "SHELFSYNC_SYNC_CONCURRENCY", validateEnvNonNegativeInt},
		{"sync.schedule", "SHELFSYNC_SYNC_SCHEDULE", nil},
		{"sync.timezone", "SHELFSYNC_SYNC_TIMEZONE", validateEnvTimezone},

		// Storage and HTTP
		{"database.driver", "SHELFSYNC_DATABASE_DRIVER", validateEnvDriver},
		{"webserver.enabled", "SHELFSYNC_WEBSERVER_ENABLED", validateEnvBool},
		{"webserver.port", "SHELFSYNC_WEBSERVER_PORT", validateEnvPort},

		// Notifications, comma separated
		{"notification.enabled", "SHELFSYNC_NOTIFICATION_ENABLED", validateEnvBool},
		{"notification.urls", "SHELFSYNC_NOTIFICATION_URLS", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					// never echo secrets; none of the validated keys hold one
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("must be between 1 and 65535")
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return fmt.Errorf("must be a non-negative integer")
	}
	return nil
}

func validateEnvProtocol(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sftp", "ftp", "local":
		return nil
	}
	return fmt.Errorf("must be sftp, ftp or local")
}

func validateEnvDriver(value string) error {
	switch strings.TrimSpace(value) {
	case "sqlite3", "sqlite":
		return nil
	}
	return fmt.Errorf("must be sqlite3 or sqlite")
}

func validateEnvLogLevel(value string) error {
	if !validLogLevel(strings.ToLower(strings.TrimSpace(value))) {
		return fmt.Errorf("must be trace, debug, info, warn or error")
	}
	return nil
}

func validateEnvTimezone(value string) error {
	if _, err := time.LoadLocation(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("unknown time zone")
	}
	return nil
}
