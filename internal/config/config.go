package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/surstitch/leadboard/internal/leads"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort          = 8080
	DefaultBroadcastInterval = 5 * time.Second
	DefaultFetchTimeout      = 30 * time.Second
	DefaultDatasetName       = "person_master"
	DefaultAuthHeader        = "x-api-key"
	DefaultAlertCooldown     = 15 * time.Minute
)

// Config is the top-level configuration of leadboard. Fields map 1:1 to
// config.example.yaml; the TOML form uses the same keys.
type Config struct {
	Server  ServerConfig  `yaml:"server" toml:"server"`
	Dataset DatasetConfig `yaml:"dataset" toml:"dataset"`
	Schema  leads.Schema  `yaml:"schema" toml:"schema"`
	View    ViewConfig    `yaml:"view" toml:"view"`
	Alerts  AlertsConfig  `yaml:"alerts" toml:"alerts"`
}

// ServerConfig holds the HTTP API and WebSocket settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub and /metrics listen on.
	HTTPPort int `yaml:"http_port" toml:"http_port"`

	// AllowedOrigins is the CORS allow-list for the dashboard front end.
	// Empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins" toml:"allowed_origins"`

	// BroadcastInterval controls how often WebSocket clients receive a fresh
	// metrics message.
	BroadcastInterval time.Duration `yaml:"broadcast_interval" toml:"broadcast_interval"`

	// Auth configures how the server authenticates REST and WebSocket clients.
	Auth ServerAuthConfig `yaml:"auth" toml:"auth"`
}

// ServerAuthConfig controls client authentication on the API.
type ServerAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode" toml:"mode"`

	// KeyEnv is the name of the environment variable holding the expected API key.
	KeyEnv string `yaml:"key_env" toml:"key_env"`

	// Header is the HTTP header to read the key from. Defaults to "x-api-key".
	Header string `yaml:"header" toml:"header"`
}

// Key returns the expected API key resolved from the environment.
func (a ServerAuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or the default "x-api-key".
func (a ServerAuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return DefaultAuthHeader
}

// DatasetConfig describes where the lead export is read from.
type DatasetConfig struct {
	// Name labels the dataset in logs, API responses and metrics.
	Name string `yaml:"name" toml:"name"`

	// Path is a local CSV file. Mutually exclusive with URL.
	Path string `yaml:"path" toml:"path"`

	// URL is an http(s) location serving the CSV. Mutually exclusive with Path.
	URL string `yaml:"url" toml:"url"`

	// Watch reloads a local file whenever it changes on disk.
	Watch bool `yaml:"watch" toml:"watch"`

	// PollInterval re-reads the dataset periodically. Zero disables polling.
	PollInterval time.Duration `yaml:"poll_interval" toml:"poll_interval"`

	// Timeout bounds a single remote fetch.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`

	// Auth configures how URL sources are authenticated.
	Auth AuthConfig `yaml:"auth" toml:"auth"`

	// TLS holds optional TLS dial options for https sources.
	TLS TLSConfig `yaml:"tls" toml:"tls"`
}

// Location returns the path or URL the dataset is read from.
func (d DatasetConfig) Location() string {
	if d.URL != "" {
		return d.URL
	}
	return d.Path
}

// Remote reports whether the dataset is fetched over HTTP.
func (d DatasetConfig) Remote() bool { return d.URL != "" }

// AuthConfig specifies the authentication mode for a remote dataset.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | basic | none.
	Mode string `yaml:"mode" toml:"mode"`

	// mTLS fields, used when Mode == "mtls".
	CertFile string `yaml:"cert_file" toml:"cert_file"`
	KeyFile  string `yaml:"key_file" toml:"key_file"`
	CAFile   string `yaml:"ca_file" toml:"ca_file"`

	// Header is the HTTP header the API key is sent in (Mode == "apikey").
	Header string `yaml:"header" toml:"header"`
	// KeyEnv names the environment variable that holds the key.
	KeyEnv string `yaml:"key_env" toml:"key_env"`

	// TokenEnv names the environment variable holding a bearer token.
	TokenEnv string `yaml:"token_env" toml:"token_env"`

	// Username is the literal basic-auth user.
	Username string `yaml:"username" toml:"username"`
	// PasswordEnv names the environment variable holding the basic-auth password.
	PasswordEnv string `yaml:"password_env" toml:"password_env"`
}

// Key returns the API key value resolved from the environment.
func (a AuthConfig) Key() string { return lookup(a.KeyEnv) }

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string { return lookup(a.TokenEnv) }

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string { return lookup(a.PasswordEnv) }

func lookup(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// TLSConfig holds TLS dial options for https sources.
type TLSConfig struct {
	// InsecureSkipVerify disables certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" toml:"insecure_skip_verify"`
}

// ViewConfig seeds the column view shown by the dashboard and used by the
// view export.
type ViewConfig struct {
	// Columns is the default visible column list. Empty uses the built-in list.
	Columns []string `yaml:"columns" toml:"columns"`

	// Labels maps column names to display names.
	Labels map[string]string `yaml:"labels" toml:"labels"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules" toml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks" toml:"webhooks"`
}

// AlertRule defines one threshold-based alert condition.
type AlertRule struct {
	// Name is the human-readable alert identifier, used as the deduplication key.
	Name string `yaml:"name" toml:"name"`

	// Condition is a simple expression over the full-table KPIs:
	// "lead_to_convert_pct < 2", "health_score < 40", "state == critical".
	Condition string `yaml:"condition" toml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity" toml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown" toml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type" toml:"type"`

	// URLEnv is the name of the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env" toml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string { return lookup(w.URLEnv) }

// Load reads and parses the config file at path. Files ending in .toml are
// decoded as TOML, everything else as YAML. Missing fields are filled with
// defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse toml: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.Schema = cfg.Schema.WithDefaults()

	return cfg, nil
}

// Default returns a Config pre-populated with default values. The CLI uses it
// as-is when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			BroadcastInterval: DefaultBroadcastInterval,
		},
		Dataset: DatasetConfig{
			Name:    DefaultDatasetName,
			Timeout: DefaultFetchTimeout,
		},
		Schema: leads.DefaultSchema(),
	}
}

// Validate checks structural constraints on cfg. Load calls it; callers
// that mutate a Config (for example from command-line flags) call it again.
func Validate(cfg *Config) error {
	if err := validate(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}

	d := cfg.Dataset
	if d.Path != "" && d.URL != "" {
		return fmt.Errorf("dataset: path and url are mutually exclusive")
	}
	if d.URL != "" {
		u, err := url.Parse(d.URL)
		if err != nil {
			return fmt.Errorf("dataset.url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("dataset.url scheme %q unsupported: want http|https", u.Scheme)
		}
		if d.Watch {
			return fmt.Errorf("dataset.watch applies to local files only; use poll_interval for urls")
		}
	}
	if d.PollInterval < 0 {
		return fmt.Errorf("dataset.poll_interval must not be negative")
	}
	if d.Timeout < 0 {
		return fmt.Errorf("dataset.timeout must not be negative")
	}
	switch d.Auth.Mode {
	case "mtls", "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("dataset.auth.mode %q unknown: want mtls|apikey|bearer|basic|none", d.Auth.Mode)
	}
	if d.Auth.Mode == "mtls" && (d.Auth.CertFile == "" || d.Auth.KeyFile == "") {
		return fmt.Errorf("dataset.auth: mtls requires cert_file and key_file")
	}

	for i, r := range cfg.Alerts.Rules {
		if r.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if strings.TrimSpace(r.Condition) == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
		if r.Cooldown < 0 {
			return fmt.Errorf("alerts.rules[%d] %q: cooldown must not be negative", i, r.Name)
		}
	}
	for i, w := range cfg.Alerts.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q: want slack|teams|http", i, w.Type)
		}
	}
	return nil
}
