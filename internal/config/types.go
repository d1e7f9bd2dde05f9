package config

import "time"

// Config represents the complete statusync configuration
type Config struct {
	Freshstatus FreshstatusConfig `yaml:"freshstatus"`
	Reconciler  ReconcilerConfig  `yaml:"reconciler"`
	Server      ServerConfig      `yaml:"server"`
}

// FreshstatusConfig holds the status page account and severity mapping
type FreshstatusConfig struct {
	APISubdomain   string        `yaml:"api_subdomain"`
	APIKey         string        `yaml:"api_key,omitempty"`
	APIKeyEnv      string        `yaml:"api_key_env,omitempty"`
	BaseURL        string        `yaml:"base_url,omitempty"`
	GroupScope     string        `yaml:"group_scope,omitempty"` // numeric group id, optional
	StatusWarning  string        `yaml:"status_warning"`
	StatusCritical string        `yaml:"status_critical"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
}

// ReconcilerConfig tunes incident handling
type ReconcilerConfig struct {
	MarkerPrefix   string `yaml:"marker_prefix,omitempty"`
	ResolveMessage string `yaml:"resolve_message,omitempty"`
	SyncOnResolve  bool   `yaml:"sync_on_resolve,omitempty"`
}

// ServerConfig configures the alert intake HTTP server
type ServerConfig struct {
	Port string `yaml:"port"`
}
