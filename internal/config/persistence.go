// file: internal/config/persistence.go
// version: 2.0.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the config file looked up in the home directory.
const ConfigFileName = ".libshelf.yaml"

// ConfigFilePath returns the default config file location.
func ConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ConfigFileName
	}
	return filepath.Join(home, ConfigFileName)
}

// Settings returns AppConfig keyed the way the config file and env vars
// name it. The cloud URI is masked unless includeSecrets is set.
func Settings(includeSecrets bool) map[string]any {
	uri := AppConfig.Cloud.URI
	if uri != "" && !includeSecrets {
		uri = "********"
	}
	return map[string]any{
		"data_dir":                        AppConfig.DataDir,
		"local_engine":                    AppConfig.LocalEngine,
		"enable_sqlite3_i_know_the_risks": AppConfig.EnableSQLite,
		"cloud": map[string]any{
			"uri":             uri,
			"database":        AppConfig.Cloud.Database,
			"principal":       AppConfig.Cloud.Principal,
			"connect_timeout": AppConfig.Cloud.ConnectTimeout.String(),
			"op_timeout":      AppConfig.Cloud.OpTimeout.String(),
		},
		"share_base_url":        AppConfig.ShareBaseURL,
		"backup_dir":            AppConfig.BackupDir,
		"max_backups":           AppConfig.MaxBackups,
		"rate_limit_per_minute": AppConfig.RateLimitPerMinute,
		"rate_limit_burst":      AppConfig.RateLimitBurst,
		"host":                  AppConfig.Host,
		"port":                  AppConfig.Port,
	}
}

// SaveConfigToFile writes the current configuration to path as YAML.
// The file may hold the cloud connection string, so it is created 0600.
func SaveConfigToFile(path string) error {
	if path == "" {
		path = ConfigFilePath()
	}

	data, err := yaml.Marshal(Settings(true))
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("[INFO] Configuration saved to file: %s", path)
	return nil
}
