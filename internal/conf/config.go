// Package conf loads shelfsync settings from config.yaml, environment
// variables and built-in defaults.
package conf

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/masvision/shelfsync/internal/errors"
	"github.com/masvision/shelfsync/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the root of the configuration.
type Settings struct {
	Debug bool `yaml:"debug"`

	Logging logger.LoggingConfig `yaml:"logging"`

	Remote       RemoteSettings       `yaml:"remote"`
	Sync         SyncSettings         `yaml:"sync"`
	Database     DatabaseSettings     `yaml:"database"`
	WebServer    WebServerSettings    `yaml:"webserver"`
	Notification NotificationSettings `yaml:"notification"`
	Scopes       []ScopeSettings      `yaml:"scopes"`
}

// RemoteSettings describes the file drop all scopes are fetched from.
type RemoteSettings struct {
	Protocol   string        `yaml:"protocol"`
	Host       string        `yaml:"host"`
	Port       int           `yaml:"port"`
	Username   string        `yaml:"username"`
	Password   string        `yaml:"password"`
	KeyFile    string        `yaml:"keyfile"`
	KnownHosts string        `yaml:"knownhosts"`
	Timeout    time.Duration `yaml:"timeout"`
	FTP        FTPSettings   `yaml:"ftp"`
	LocalRoot  string        `yaml:"localroot"`
}

// FTPSettings are FTP connection modes.
type FTPSettings struct {
	ExplicitTLS bool `yaml:"explicittls"`
	DisableEPSV bool `yaml:"disableepsv"`
}

// SyncSettings control scheduling and scope fan-out.
type SyncSettings struct {
	WorkDir     string `yaml:"workdir"`
	Concurrency int    `yaml:"concurrency"`
	SkipRows    int    `yaml:"skiprows"`
	Schedule    string `yaml:"schedule"`
	Timezone    string `yaml:"timezone"`
}

// DatabaseSettings control how catalog files are written.
type DatabaseSettings struct {
	Driver        string        `yaml:"driver"`
	BatchSize     int           `yaml:"batchsize"`
	BusyTimeout   time.Duration `yaml:"busytimeout"`
	SlowThreshold time.Duration `yaml:"slowthreshold"`
}

// WebServerSettings control the HTTP trigger.
type WebServerSettings struct {
	Enabled     bool    `yaml:"enabled"`
	Host        string  `yaml:"host"`
	Port        int     `yaml:"port"`
	UpdateRate  float64 `yaml:"updaterate"`
	UpdateBurst int     `yaml:"updateburst"`
}

// NotificationSettings select push targets for failed cycles.
type NotificationSettings struct {
	Enabled     bool          `yaml:"enabled"`
	URLs        []string      `yaml:"urls"`
	Types       []string      `yaml:"types"`
	Timeout     time.Duration `yaml:"timeout"`
	DedupWindow time.Duration `yaml:"dedupwindow"`
}

// Load reads configFile, or config.yaml from the default paths when
// configFile is empty, applies environment overrides and scope defaults and
// validates the result. A missing file falls back to the embedded defaults.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}
	return decode(v)
}

// LoadFromBytes parses an in-memory YAML document on top of the defaults.
func LoadFromBytes(data []byte) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaultConfig(v)
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.New(fmt.Errorf("error parsing config: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if settings.Debug {
		settings.EnableDebug()
	}

	applyScopeDefaults(settings)

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Category(errors.CategoryValidation).
			Build()
	}
	return settings, nil
}

// initViper sets defaults and env bindings, then reads the config file.
func initViper(v *viper.Viper, configFile string) error {
	v.SetConfigType("yaml")
	setDefaultConfig(v)
	if err := bindEnvVars(v); err != nil {
		return err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	v.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	err = v.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// no file anywhere: run on the embedded defaults
			return v.ReadConfig(bytes.NewReader([]byte(DefaultConfig())))
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// EnableDebug turns on debug mode and lowers the console and default log levels.
func (s *Settings) EnableDebug() {
	s.Debug = true
	s.Logging.DefaultLevel = string(logger.LogLevelDebug)
	if s.Logging.Console != nil {
		s.Logging.Console.Level = string(logger.LogLevelDebug)
	}
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// embedded at build time
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// CreateDefaultConfig writes the embedded defaults to path. An existing file
// is only replaced when force is set.
func CreateDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.Newf("config file %s already exists", path).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(path, []byte(DefaultConfig()), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	return nil
}

// Redacted returns a copy safe to print: secrets are masked.
func (s *Settings) Redacted() *Settings {
	c := *s
	if c.Remote.Password != "" {
		c.Remote.Password = redactedValue
	}
	c.Notification.URLs = make([]string, len(s.Notification.URLs))
	for i, u := range s.Notification.URLs {
		c.Notification.URLs[i] = logger.RedactSensitiveData(u)
	}
	c.Scopes = append([]ScopeSettings(nil), s.Scopes...)
	return &c
}

// MarshalYAML renders settings as YAML.
func MarshalYAML(s *Settings) ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}

const redactedValue = "[REDACTED]"
