package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Cache       CacheConfig       `toml:"cache"`
	Intents     IntentsConfig     `toml:"intents"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	OpenAI  OpenAIConfig  `toml:"openai"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// OpenAIConfig contains credentials and defaults for the generation model.
type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
	BaseURL string `toml:"base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// CatalogConfig contains defaults for catalog lookups.
type CatalogConfig struct {
	Market string `toml:"market"`
}

// CacheConfig contains settings for the curator playlist cache.
type CacheConfig struct {
	Path     string   `toml:"path"`
	TTLHours int      `toml:"ttl_hours"`
	Curators []string `toml:"curators"`
}

// IntentsConfig contains tuning knobs for intent classification.
type IntentsConfig struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
//
// Environment variables override file values.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.ApplyEnv()
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variables onto the configuration.
//
// Credentials are commonly supplied via the environment in deployments, so
// each credential field has a well-known variable name.
func (c *Config) ApplyEnv() {
	setString(&c.Credentials.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setString(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setString(&c.Credentials.Spotify.RedirectURI, "SPOTIFY_REDIRECT_URI")
	setString(&c.Credentials.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&c.Credentials.OpenAI.Model, "MIXTAPE_MODEL")
	setString(&c.Credentials.OpenAI.BaseURL, "MIXTAPE_OPENAI_BASE_URL")
	setString(&c.Catalog.Market, "MIXTAPE_MARKET")
	setString(&c.Cache.Path, "MIXTAPE_CACHE_PATH")
	setString(&c.Database.Path, "MIXTAPE_DB_PATH")

	if raw := os.Getenv("MIXTAPE_CACHE_TTL_HOURS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			c.Cache.TTLHours = parsed
		}
	}
	if raw := os.Getenv("MIXTAPE_CURATORS"); raw != "" {
		curators := []string{}
		for _, owner := range strings.Split(raw, ",") {
			if owner = strings.TrimSpace(owner); owner != "" {
				curators = append(curators, owner)
			}
		}
		if len(curators) > 0 {
			c.Cache.Curators = curators
		}
	}
}

func setString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

// HasCatalogCredentials reports whether the Spotify client credentials are configured.
func (c *Config) HasCatalogCredentials() bool {
	return c.Credentials.Spotify.ClientID != "" && c.Credentials.Spotify.ClientSecret != ""
}

// HasModelCredentials reports whether the OpenAI API key is configured.
func (c *Config) HasModelCredentials() bool {
	return c.Credentials.OpenAI.APIKey != ""
}
