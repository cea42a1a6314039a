package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "mixtape.db" {
			t.Errorf("expected database path mixtape.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Catalog.Market != "US" {
			t.Errorf("expected market US, got %s", config.Catalog.Market)
		}
		if config.Cache.TTLHours != 24 {
			t.Errorf("expected cache ttl 24h, got %d", config.Cache.TTLHours)
		}
		if len(config.Cache.Curators) != 3 {
			t.Errorf("expected 3 default curators, got %v", config.Cache.Curators)
		}
		if config.Intents.ConfidenceThreshold != 0.5 {
			t.Errorf("expected confidence threshold 0.5, got %f", config.Intents.ConfidenceThreshold)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Error("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		content := `
[credentials.spotify]
client_id = "id"
client_secret = "secret"

[catalog]
market = "SE"
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}
		if config.Catalog.Market != "SE" {
			t.Errorf("expected market SE, got %s", config.Catalog.Market)
		}
		if !config.HasCatalogCredentials() {
			t.Error("expected catalog credentials to be detected")
		}

		if _, err := LoadConfig(filepath.Join(tmpDir, "absent.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
		t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")
		t.Setenv("OPENAI_API_KEY", "env-key")
		t.Setenv("MIXTAPE_MARKET", "DE")
		t.Setenv("MIXTAPE_CACHE_TTL_HOURS", "6")
		t.Setenv("MIXTAPE_CURATORS", "spotify, indiemono")

		config := DefaultConfig()

		if config.Credentials.Spotify.ClientID != "env-id" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if !config.HasModelCredentials() {
			t.Error("expected model credentials from env")
		}
		if config.Catalog.Market != "DE" {
			t.Errorf("expected env market DE, got %s", config.Catalog.Market)
		}
		if config.Cache.TTLHours != 6 {
			t.Errorf("expected env ttl 6, got %d", config.Cache.TTLHours)
		}
		if len(config.Cache.Curators) != 2 || config.Cache.Curators[1] != "indiemono" {
			t.Errorf("expected env curators, got %v", config.Cache.Curators)
		}
	})

	t.Run("credential checks", func(t *testing.T) {
		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = ""
		config.Credentials.Spotify.ClientSecret = ""
		config.Credentials.OpenAI.APIKey = ""

		if config.HasCatalogCredentials() {
			t.Error("expected no catalog credentials")
		}
		if config.HasModelCredentials() {
			t.Error("expected no model credentials")
		}
	})
}
