// Package config decodes skystats settings from viper into typed structs and
// resolves the XDG locations used for the config file and the local database.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/skystats/skystats/internal/appid"
)

// Built-in origins. The production frontend and the local dev server.
const (
	DevelopmentOrigin = "http://localhost:3000"
	ProductionOrigin  = "https://sky-stats.vercel.app"
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// Load decodes v into a Config, fills derived defaults, validates it and
// publishes it as the current configuration.
func Load(v *viper.Viper) (*Config, error) {
	cfg, err := FromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setConfig(cfg)
	return cfg, nil
}

// FromViper decodes all viper settings into a Config without validating it.
func FromViper(v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Store.URL) == "" && strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = DefaultStorePath()
	}
	if strings.TrimSpace(c.Store.Driver) == "" {
		c.Store.Driver = "libsql"
	}
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	c.CORS.DeploymentURL = strings.TrimSpace(c.CORS.DeploymentURL)
}

// Validate rejects settings that would make the proxy misbehave. A missing
// provider key is not an error here: the proxy answers 500 per request instead.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.RateLimit.Window < 0 {
		problems = append(problems, "rate_limit.window must not be negative")
	}
	if c.RateLimit.MaxRequests < 0 {
		problems = append(problems, "rate_limit.max_requests must not be negative")
	}
	if c.RateLimit.MaxKeys < 0 {
		problems = append(problems, "rate_limit.max_keys must not be negative")
	}
	if c.Provider.Timeout < 0 {
		problems = append(problems, "provider.timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		problems = append(problems, "cache.ttl must not be negative")
	}
	if c.History.MaxItems < 0 {
		problems = append(problems, "history.max_items must not be negative")
	}
	for _, origin := range c.CORS.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "null" {
			continue
		}
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			problems = append(problems, fmt.Sprintf("cors.allowed_origins: %q is not an http(s) origin", origin))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// AllowedOrigins returns the configured origins plus the deployment origin.
// With nothing configured the built-in development and production origins apply.
func (c *Config) AllowedOrigins() []string {
	origins := make([]string, 0, len(c.CORS.AllowedOrigins)+1)
	for _, origin := range c.CORS.AllowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = append(origins, DevelopmentOrigin, ProductionOrigin)
	}

	if host := c.CORS.DeploymentURL; host != "" {
		if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
			origins = append(origins, host)
		} else {
			origins = append(origins, "https://"+host)
		}
	}
	return origins
}

// ProviderTimeout returns the upstream deadline, defaulting to 10s.
func (c *Config) ProviderTimeout() time.Duration {
	if c.Provider.Timeout > 0 {
		return c.Provider.Timeout
	}
	return 10 * time.Second
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func identity() *appidentity.Identity {
	return appid.Get()
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configDir := gfconfig.GetAppConfigDir(identity().ConfigName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultDataDir returns the XDG-compliant data directory for the app.
func DefaultDataDir() string {
	return gfconfig.GetAppDataDir(identity().ConfigName)
}

// DefaultCacheDir returns the XDG-compliant cache directory for the app.
func DefaultCacheDir() string {
	return gfconfig.GetAppCacheDir(identity().ConfigName)
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	id := identity()
	dataDir := DefaultDataDir()
	if strings.TrimSpace(dataDir) == "" {
		return "./" + id.BinaryName + ".db"
	}
	return filepath.Join(dataDir, id.BinaryName+".db")
}
