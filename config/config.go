package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	DataDir         string `mapstructure:"THUNDER_DATA_DIR"`
	ThunderstoreURL string `mapstructure:"THUNDERSTORE_URL"`
	UserAgent       string `mapstructure:"USERAGENT"`
	Community       string `mapstructure:"THUNDER_COMMUNITY"` // Default community slug to operate on
	DatabasePath    string `mapstructure:"-"`                 // Not from env, derived
	ProfilesDir     string `mapstructure:"-"`                 // Not from env, derived
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)   // Path to look for the config file in
	viper.SetConfigName(".env") // Name of config file (without extension)
	viper.SetConfigType("env")  // REQUIRED if the config file does not have the extension in the name

	vipErr := viper.ReadInConfig()
	if _, ok := vipErr.(viper.ConfigFileNotFoundError); ok {
		slog.Info("Config file (.env) not found, relying on environment variables.")
	} else if vipErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", vipErr)
	}

	// Bind environment variables automatically.
	viper.AutomaticEnv()

	for key, env := range map[string]string{
		"thunder_data_dir":  "THUNDER_DATA_DIR",
		"thunderstore_url":  "THUNDERSTORE_URL",
		"useragent":         "USERAGENT",
		"thunder_community": "THUNDER_COMMUNITY",
	} {
		if bindErr := viper.BindEnv(key, env); bindErr != nil {
			slog.Warn("Unable to bind env var", "var", env, "error", bindErr)
		}
	}

	// Unmarshal the config
	if vipErr = viper.Unmarshal(&config); vipErr != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", vipErr)
	}

	processConfigDefaults(&config)

	if err := validateAndEnsureDirectories(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}

// processConfigDefaults fills in defaults for values the user left unset.
func processConfigDefaults(cfg *Config) {
	if cfg.ThunderstoreURL == "" {
		cfg.ThunderstoreURL = "https://thunderstore.io"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "thunder-mod-manager/dev (unknown-user)"
		slog.Warn("USERAGENT not set in config or environment, using default.")
	}
}

// validateAndEnsureDirectories checks required paths and creates the data
// layout, deriving DatabasePath and ProfilesDir from the data directory.
func validateAndEnsureDirectories(cfg *Config) error {
	if cfg.DataDir == "" {
		slog.Error("THUNDER_DATA_DIR is not set")
		return fmt.Errorf("THUNDER_DATA_DIR is required")
	}

	if _, err := os.Stat(cfg.DataDir); os.IsNotExist(err) {
		slog.Info("Data directory does not exist, creating it", "path", cfg.DataDir)
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			slog.Error("Failed to create data directory", "path", cfg.DataDir, "error", err)
			return err
		}
	} else if err != nil {
		slog.Error("Failed to check data directory", "path", cfg.DataDir, "error", err)
		return err
	}

	cfg.ProfilesDir = filepath.Join(cfg.DataDir, "profiles")
	if _, err := os.Stat(cfg.ProfilesDir); os.IsNotExist(err) {
		slog.Info("Profiles directory does not exist, creating it", "path", cfg.ProfilesDir)
		if err := os.MkdirAll(cfg.ProfilesDir, 0755); err != nil {
			slog.Error("Failed to create profiles directory", "path", cfg.ProfilesDir, "error", err)
			return err
		}
	} else if err != nil {
		slog.Error("Failed to check profiles directory", "path", cfg.ProfilesDir, "error", err)
		return err
	}

	// Place the database in the data dir for portability
	cfg.DatabasePath = filepath.Join(cfg.DataDir, "manager.db")

	return nil
}
