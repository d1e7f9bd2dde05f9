package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netspec/statusync/internal/statuspage"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultPort           = "8089"
	defaultMarkerPrefix   = "statusync-UID"
	defaultResolveMessage = "Resolved automatically by statusync."
)

// LoadConfig loads, defaults and validates the configuration file at path
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := loadYAML(path, cfg); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	applyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	cfg.Freshstatus.GroupScope = string(statuspage.ID(cfg.Freshstatus.GroupScope).Canonical())

	return cfg, nil
}

// loadYAML loads a YAML file into a struct
func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, out)
}

func applyDefaults(cfg *Config) {
	fs := &cfg.Freshstatus
	if fs.BaseURL == "" {
		fs.BaseURL = statuspage.DefaultBaseURL
	}
	if fs.Timeout == 0 {
		fs.Timeout = defaultTimeout
	}
	if fs.StatusWarning == "" {
		fs.StatusWarning = string(statuspage.StatusPerformanceDegraded)
	}
	if fs.StatusCritical == "" {
		fs.StatusCritical = string(statuspage.StatusMajorOutage)
	}
	if cfg.Reconciler.MarkerPrefix == "" {
		cfg.Reconciler.MarkerPrefix = defaultMarkerPrefix
	}
	if cfg.Reconciler.ResolveMessage == "" {
		cfg.Reconciler.ResolveMessage = defaultResolveMessage
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = defaultPort
	}
}

// ResolveAPIKey returns the inline key, or reads it from the named environment variable
func (f FreshstatusConfig) ResolveAPIKey() string {
	if f.APIKey != "" {
		return f.APIKey
	}
	if f.APIKeyEnv != "" {
		return os.Getenv(f.APIKeyEnv)
	}
	return ""
}

// Statuses returns the parsed warning and critical status codes
func (f FreshstatusConfig) Statuses() (warning, critical statuspage.Status, err error) {
	warning, err = statuspage.ParseStatus(f.StatusWarning)
	if err != nil {
		return "", "", fmt.Errorf("status_warning: %w", err)
	}
	critical, err = statuspage.ParseStatus(f.StatusCritical)
	if err != nil {
		return "", "", fmt.Errorf("status_critical: %w", err)
	}
	return warning, critical, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(cfg *Config) error {
	fs := cfg.Freshstatus

	if fs.APISubdomain == "" {
		return fmt.Errorf("freshstatus.api_subdomain is required")
	}
	if fs.APIKey == "" && fs.APIKeyEnv == "" {
		return fmt.Errorf("freshstatus: one of api_key or api_key_env is required")
	}
	if fs.ResolveAPIKey() == "" {
		return fmt.Errorf("freshstatus: api key is empty (env %s not set?)", fs.APIKeyEnv)
	}

	if fs.GroupScope != "" {
		if _, err := strconv.ParseInt(fs.GroupScope, 10, 64); err != nil {
			return fmt.Errorf("freshstatus.group_scope must be a numeric group id, got %q", fs.GroupScope)
		}
	}

	if _, _, err := fs.Statuses(); err != nil {
		return fmt.Errorf("freshstatus.%w", err)
	}

	if fs.Timeout < 0 {
		return fmt.Errorf("freshstatus.timeout must be positive")
	}

	return nil
}
