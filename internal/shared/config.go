package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
)

//go:embed config.example.toml
var exampleConf []byte

// Cache backends
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Cache       CacheConfig       `toml:"cache"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Remote      RemoteConfig      `toml:"remote"`
	Playlists   PlaylistsConfig   `toml:"playlists"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the last issued token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token,omitempty"`
	RefreshToken string    `toml:"refresh_token,omitempty"`
	TokenType    string    `toml:"token_type,omitempty"`
	Expiry       time.Time `toml:"expiry,omitempty"`
}

// Map returns the credentials in the form accepted by service constructors.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// HasToken reports whether a refresh or access token has been stored.
func (s SpotifyConfig) HasToken() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// Token rebuilds the stored [oauth2.Token], nil when none is stored.
func (s SpotifyConfig) Token() *oauth2.Token {
	if !s.HasToken() {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry,
	}
}

// Update stores token, keeping the previous refresh token when the new one omits it.
func (s *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidArgument)
	}
	s.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		s.RefreshToken = token.RefreshToken
	}
	s.TokenType = token.TokenType
	s.Expiry = token.Expiry
	return nil
}

// CacheConfig selects where library snapshots live.
type CacheConfig struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	TracksKey string `toml:"tracks_key"`
	AlbumsKey string `toml:"albums_key"`
}

// Directory resolves the snapshot directory, defaulting to [DataDir].
func (c CacheConfig) Directory() string {
	if c.Dir == "" {
		return DataDir()
	}
	return c.Dir
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Location resolves the database path, defaulting to crate.db inside [DataDir].
func (d DatabaseConfig) Location() string {
	if d.Path == "" {
		return filepath.Join(DataDir(), AppName+".db")
	}
	return d.Path
}

// ServerConfig contains the OAuth callback server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// RemoteConfig throttles calls to the streaming service.
type RemoteConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// PlaylistsConfig names the playlists maintained by the sync commands.
type PlaylistsConfig struct {
	Recent     RecentPlaylist     `toml:"recent"`
	Everything EverythingPlaylist `toml:"everything"`
	Weekly     WeeklyPlaylist     `toml:"weekly"`
	Liked      LikedPlaylist      `toml:"liked"`
}

// RecentPlaylist holds the newest Count tracks of the library.
type RecentPlaylist struct {
	ID    string `toml:"id"`
	Count int    `toml:"count"`
}

// EverythingPlaylist mixes recent tracks with a random sample of the whole library.
type EverythingPlaylist struct {
	ID          string `toml:"id"`
	RecentCount int    `toml:"recent_count"`
	TotalCount  int    `toml:"total_count"`
}

// WeeklyPlaylist is a random sample that is rebuilt on every run.
type WeeklyPlaylist struct {
	ID    string `toml:"id"`
	Count int    `toml:"count"`
}

// LikedPlaylist mirrors the cached liked tracks.
type LikedPlaylist struct {
	ID string `toml:"id"`
}

// Validate checks settings that would otherwise fail deep inside a sync.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case CacheBackendFile, CacheBackendSQLite:
	default:
		return fmt.Errorf("%w: unknown cache backend %q", ErrInvalidConfig, c.Cache.Backend)
	}
	if c.Cache.TracksKey == "" || c.Cache.AlbumsKey == "" {
		return fmt.Errorf("%w: cache keys must not be empty", ErrInvalidConfig)
	}
	if c.Cache.TracksKey == c.Cache.AlbumsKey {
		return fmt.Errorf("%w: tracks_key and albums_key must differ", ErrInvalidConfig)
	}
	if c.Remote.RequestsPerSecond < 0 || c.Remote.Burst < 0 {
		return fmt.Errorf("%w: remote limits must not be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig writes config to path as TOML. The file holds tokens, so it is only readable by the owner.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
