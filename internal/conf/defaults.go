package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig registers the value of every key the YAML may omit.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Europe/Athens")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/shelfsync.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("remote.protocol", "sftp")
	v.SetDefault("remote.port", 22)
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("remote.ftp.explicittls", false)
	v.SetDefault("remote.ftp.disableepsv", false)

	v.SetDefault("sync.workdir", "data")
	v.SetDefault("sync.concurrency", 2)
	v.SetDefault("sync.skiprows", 6)
	v.SetDefault("sync.schedule", "0 0 */2 * * *")
	v.SetDefault("sync.timezone", "Europe/Athens")

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.batchsize", 500)
	v.SetDefault("database.busytimeout", 5*time.Second)
	v.SetDefault("database.slowthreshold", 2*time.Second)

	v.SetDefault("webserver.enabled", true)
	v.SetDefault("webserver.port", 4343)
	v.SetDefault("webserver.updaterate", 0.2)
	v.SetDefault("webserver.updateburst", 2)

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.types", []string{"error", "warning", "info"})
	v.SetDefault("notification.timeout", 10*time.Second)
	v.SetDefault("notification.dedupwindow", 6*time.Hour)

	v.SetDefault("scopes", []map[string]any{
		{"id": "189", "dbpath": "out/masoutisdb.sqlite", "descriptions": map[string]any{"enabled": true}},
		{"id": "620", "descriptions": map[string]any{"enabled": true}},
	})
}
