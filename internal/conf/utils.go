package conf

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/masvision/shelfsync/internal/errors"
)

const appDirName = "shelfsync"

// GetDefaultConfigPaths returns the directories searched for config.yaml:
// the working directory, the user config directory and /etc. If one of them
// already holds a config.yaml only that directory is returned.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "get-home-directory").
			Build()
	}

	configPaths := []string{
		".",
		filepath.Join(homeDir, ".config", appDirName),
	}
	if runtime.GOOS == "windows" {
		configPaths = append(configPaths, filepath.Join(homeDir, "AppData", "Roaming", appDirName))
	} else {
		configPaths = append(configPaths, filepath.Join("/etc", appDirName))
	}

	for _, path := range configPaths {
		if _, err := os.Stat(filepath.Join(path, "config.yaml")); err == nil {
			return []string{path}, nil
		}
	}
	return configPaths, nil
}

// DefaultConfigFile is where config init writes when no path is given.
func DefaultConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New(err).Category(errors.CategoryConfiguration).Build()
	}
	return filepath.Join(homeDir, ".config", appDirName, "config.yaml"), nil
}
