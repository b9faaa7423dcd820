package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestProcessConfigDefaults(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		viper.Reset()
		cfg := Config{}
		processConfigDefaults(&cfg)

		if cfg.ThunderstoreURL != "https://thunderstore.io" {
			t.Errorf("Expected ThunderstoreURL default, got %s", cfg.ThunderstoreURL)
		}
		if cfg.UserAgent == "" {
			t.Error("Expected UserAgent to have a default value")
		}
	})

	t.Run("respects existing values", func(t *testing.T) {
		viper.Reset()
		cfg := Config{
			ThunderstoreURL: "https://thunderstore.dev",
			UserAgent:       "custom-agent",
		}
		processConfigDefaults(&cfg)

		if cfg.ThunderstoreURL != "https://thunderstore.dev" {
			t.Errorf("Expected ThunderstoreURL to stay thunderstore.dev, got %s", cfg.ThunderstoreURL)
		}
		if cfg.UserAgent != "custom-agent" {
			t.Errorf("Expected UserAgent to stay custom-agent, got %s", cfg.UserAgent)
		}
	})
}

func TestValidateAndEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing data dir", func(t *testing.T) {
		cfg := Config{DataDir: ""}
		err := validateAndEnsureDirectories(&cfg)
		if err == nil {
			t.Error("Expected error for missing DataDir")
		}
	})

	t.Run("creates directories and derives paths", func(t *testing.T) {
		dataDir := filepath.Join(tmpDir, "data")
		cfg := Config{DataDir: dataDir}
		err := validateAndEnsureDirectories(&cfg)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if _, err := os.Stat(filepath.Join(dataDir, "profiles")); os.IsNotExist(err) {
			t.Error("profiles directory was not created")
		}
		if cfg.DatabasePath != filepath.Join(dataDir, "manager.db") {
			t.Errorf("DatabasePath = %s, want %s", cfg.DatabasePath, filepath.Join(dataDir, "manager.db"))
		}
		if cfg.ProfilesDir != filepath.Join(dataDir, "profiles") {
			t.Errorf("ProfilesDir = %s, want %s", cfg.ProfilesDir, filepath.Join(dataDir, "profiles"))
		}
	})
}
