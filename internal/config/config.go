// file: internal/config/config.go
// version: 2.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2e

package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// CloudConfig configures the MongoDB-backed cloud store.
type CloudConfig struct {
	URI            string
	Database       string
	Principal      string // overrides the locally generated library id
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
}

// Config holds application configuration
type Config struct {
	DataDir      string
	LocalEngine  string // "pebble" (default) or "sqlite"
	EnableSQLite bool   // Must be true to use SQLite (safety flag)
	Cloud        CloudConfig

	ShareBaseURL string
	BackupDir    string
	MaxBackups   int

	RateLimitPerMinute int
	RateLimitBurst     int
	Host               string
	Port               int
}

var AppConfig Config

// DefaultDataDir is ~/.libshelf, or .libshelf when there is no home directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".libshelf"
	}
	return filepath.Join(home, ".libshelf")
}

// SetDefaults registers every key's default with viper.
func SetDefaults() {
	viper.SetDefault("data_dir", DefaultDataDir())
	viper.SetDefault("local_engine", "pebble")
	viper.SetDefault("enable_sqlite3_i_know_the_risks", false)

	viper.SetDefault("cloud.uri", "")
	viper.SetDefault("cloud.database", "libshelf")
	viper.SetDefault("cloud.principal", "")
	viper.SetDefault("cloud.connect_timeout", 5*time.Second)
	viper.SetDefault("cloud.op_timeout", 10*time.Second)

	viper.SetDefault("share_base_url", "http://localhost:8080/")
	viper.SetDefault("backup_dir", "")
	viper.SetDefault("max_backups", 10)

	viper.SetDefault("rate_limit_per_minute", 120)
	viper.SetDefault("rate_limit_burst", 30)
	viper.SetDefault("host", "localhost")
	viper.SetDefault("port", 8080)
}

// InitConfig initializes the application configuration
func InitConfig() {
	SetDefaults()

	AppConfig = Config{
		DataDir:      viper.GetString("data_dir"),
		LocalEngine:  viper.GetString("local_engine"),
		EnableSQLite: viper.GetBool("enable_sqlite3_i_know_the_risks"),
		Cloud: CloudConfig{
			URI:            viper.GetString("cloud.uri"),
			Database:       viper.GetString("cloud.database"),
			Principal:      viper.GetString("cloud.principal"),
			ConnectTimeout: viper.GetDuration("cloud.connect_timeout"),
			OpTimeout:      viper.GetDuration("cloud.op_timeout"),
		},
		ShareBaseURL:       viper.GetString("share_base_url"),
		BackupDir:          viper.GetString("backup_dir"),
		MaxBackups:         viper.GetInt("max_backups"),
		RateLimitPerMinute: viper.GetInt("rate_limit_per_minute"),
		RateLimitBurst:     viper.GetInt("rate_limit_burst"),
		Host:               viper.GetString("host"),
		Port:               viper.GetInt("port"),
	}

	// Normalize engine name
	AppConfig.LocalEngine = strings.ToLower(strings.TrimSpace(AppConfig.LocalEngine))
	if AppConfig.LocalEngine == "sqlite3" {
		AppConfig.LocalEngine = "sqlite"
	}
	if AppConfig.LocalEngine == "" {
		AppConfig.LocalEngine = "pebble"
	}
	if AppConfig.BackupDir == "" {
		AppConfig.BackupDir = filepath.Join(AppConfig.DataDir, "backups")
	}
	if AppConfig.MaxBackups < 0 {
		AppConfig.MaxBackups = 0
	}
}
