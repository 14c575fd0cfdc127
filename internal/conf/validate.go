package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron"

	"github.com/masvision/shelfsync/internal/descindex"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and reports every problem at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) error{
		validateLoggingSettings,
		validateRemoteSettings,
		validateSyncSettings,
		validateDatabaseSettings,
		validateWebServerSettings,
		validateNotificationSettings,
		validateScopes,
	} {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validLogLevel(level string) bool {
	switch level {
	case "", "trace", "debug", "info", "warn", "error":
		return true
	}
	return false
}

func validateLoggingSettings(s *Settings) error {
	var errs []string
	if !validLogLevel(s.Logging.DefaultLevel) {
		errs = append(errs, fmt.Sprintf("logging.default_level %q is not a log level", s.Logging.DefaultLevel))
	}
	for module, level := range s.Logging.ModuleLevels {
		if !validLogLevel(level) {
			errs = append(errs, fmt.Sprintf("logging.module_levels.%s %q is not a log level", module, level))
		}
	}
	return joinProblems(errs)
}

func validateRemoteSettings(s *Settings) error {
	r := &s.Remote
	var errs []string

	switch strings.ToLower(r.Protocol) {
	case "sftp":
		if r.Password == "" && r.KeyFile == "" && anyScopeFetches(s) {
			errs = append(errs, "remote: sftp needs a password or a keyfile")
		}
		fallthrough
	case "ftp":
		if r.Host == "" && anyScopeFetches(s) {
			errs = append(errs, "remote.host is required")
		}
		if r.Port < 1 || r.Port > 65535 {
			errs = append(errs, fmt.Sprintf("remote.port %d is out of range", r.Port))
		}
	case "local":
		if r.LocalRoot == "" && anyScopeFetches(s) {
			errs = append(errs, "remote.localroot is required for the local protocol")
		}
	default:
		errs = append(errs, fmt.Sprintf("remote.protocol %q must be sftp, ftp or local", r.Protocol))
	}

	if r.Timeout < 0 {
		errs = append(errs, "remote.timeout must not be negative")
	}
	return joinProblems(errs)
}

func anyScopeFetches(s *Settings) bool {
	for i := range s.Scopes {
		if s.Scopes[i].FetchEnabled() {
			return true
		}
	}
	return false
}

func validateSyncSettings(s *Settings) error {
	var errs []string
	if s.Sync.Concurrency < 0 {
		errs = append(errs, "sync.concurrency must not be negative")
	}
	if s.Sync.SkipRows < 0 {
		errs = append(errs, "sync.skiprows must not be negative")
	}
	if _, err := cron.Parse(s.Sync.Schedule); err != nil {
		errs = append(errs, fmt.Sprintf("sync.schedule %q: %v", s.Sync.Schedule, err))
	}
	if _, err := time.LoadLocation(s.Sync.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("sync.timezone %q is unknown", s.Sync.Timezone))
	}
	return joinProblems(errs)
}

func validateDatabaseSettings(s *Settings) error {
	var errs []string
	switch s.Database.Driver {
	case "sqlite3", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite3 or sqlite", s.Database.Driver))
	}
	if s.Database.BatchSize < 0 {
		errs = append(errs, "database.batchsize must not be negative")
	}
	return joinProblems(errs)
}

func validateWebServerSettings(s *Settings) error {
	if !s.WebServer.Enabled {
		return nil
	}
	var errs []string
	if s.WebServer.Port < 1 || s.WebServer.Port > 65535 {
		errs = append(errs, fmt.Sprintf("webserver.port %d is out of range", s.WebServer.Port))
	}
	if s.WebServer.UpdateRate <= 0 {
		errs = append(errs, "webserver.updaterate must be positive")
	}
	return joinProblems(errs)
}

func validateNotificationSettings(s *Settings) error {
	if s.Notification.Enabled && len(s.Notification.URLs) == 0 {
		return fmt.Errorf("notification.urls is empty while notifications are enabled")
	}
	return nil
}

func validateScopes(s *Settings) error {
	if len(s.Scopes) == 0 {
		return fmt.Errorf("scopes: at least one scope is required")
	}

	var errs []string
	seen := make(map[string]bool, len(s.Scopes))
	for i := range s.Scopes {
		sc := &s.Scopes[i]
		switch {
		case strings.TrimSpace(sc.ID) == "":
			errs = append(errs, fmt.Sprintf("scopes[%d]: id is empty", i))
			continue
		case strings.ContainsAny(sc.ID, `/\`) || strings.Contains(sc.ID, ".."):
			errs = append(errs, fmt.Sprintf("scopes[%d]: id %q must not contain path separators", i, sc.ID))
		}
		if seen[sc.ID] {
			errs = append(errs, fmt.Sprintf("scopes[%d]: duplicate id %q", i, sc.ID))
		}
		seen[sc.ID] = true

		if !sc.LatestBarcode() && sc.Barcodes.File == "" {
			errs = append(errs, fmt.Sprintf("scope %s: barcodes.file is required when latest is off", sc.ID))
		}
		if sc.Descriptions.Enabled && !descindex.ValidEncoding(sc.Descriptions.Encoding) {
			errs = append(errs, fmt.Sprintf("scope %s: descriptions.encoding %q is not supported", sc.ID, sc.Descriptions.Encoding))
		}
	}
	return joinProblems(errs)
}

func joinProblems(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(errs, "; "))
}
