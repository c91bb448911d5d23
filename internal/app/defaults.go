package app

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigPath = "/etc/ids/config.toml"
	defaultBaseDir    = "/var/ids"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - IDS_CONFIG_PATH: config file location (default: /etc/ids/config.toml)
//   - IDS_HOME: base directory for the baseline, reports and logs (default: /var/ids)
func GetDefaults() map[string]string {
	baseDir := getBaseDir()
	return map[string]string{
		"config_path":   getConfigPath(),
		"base_dir":      baseDir,
		"baseline_path": filepath.Join(baseDir, "db.json"),
		"log_dir":       baseDir,
	}
}

func getConfigPath() string {
	if path := os.Getenv("IDS_CONFIG_PATH"); path != "" {
		return path
	}
	return defaultConfigPath
}

func getBaseDir() string {
	if path := os.Getenv("IDS_HOME"); path != "" {
		return path
	}
	return defaultBaseDir
}
