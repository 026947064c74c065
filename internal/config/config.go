// Package config loads plaid-viewer settings from flags, environment, and file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/common"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/Veraticus/plaid-viewer/internal/plaid"
	"github.com/spf13/viper"
)

// AppName names the config directory and environment prefix.
const AppName = "plaid-viewer"

// EnvPrefix is the prefix for environment overrides of any config key.
const EnvPrefix = "PLAID_VIEWER"

// Config is the fully resolved application configuration.
type Config struct {
	Plaid   PlaidConfig
	Logging LoggingConfig
	Server  ServerConfig
	Storage StorageConfig
	Window  WindowConfig
}

// PlaidConfig holds provider credentials and request settings.
type PlaidConfig struct {
	ClientID     string
	Secret       string
	Environment  string
	BaseURL      string
	ClientName   string
	Language     string
	RedirectURI  string
	UserPrefix   string
	CountryCodes []string
	Products     []string
	PageSize     int
	MaxAttempts  int
}

// WindowConfig defines the default transaction date window.
type WindowConfig struct {
	EndDate string
	Days    int
}

// ServerConfig configures the web surface.
type ServerConfig struct {
	Addr       string
	CertDir    string
	SessionTTL time.Duration
}

// StorageConfig configures the local transaction history.
type StorageConfig struct {
	Path string
}

// LoggingConfig configures slog output.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers default values and environment bindings on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("plaid.environment", plaid.EnvironmentSandbox)
	v.SetDefault("plaid.client_name", "Plaid Viewer")
	v.SetDefault("plaid.language", "en")
	v.SetDefault("plaid.country_codes", []string{"US"})
	v.SetDefault("plaid.products", []string{"transactions"})
	v.SetDefault("plaid.user_prefix", "user")
	v.SetDefault("plaid.page_size", plaid.DefaultPageSize)
	v.SetDefault("plaid.max_attempts", 1)

	v.SetDefault("window.end_date", model.DefaultWindowEnd)
	v.SetDefault("window.days", model.DefaultWindowDays)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cert_dir", "~/.config/"+AppName+"/certs")
	v.SetDefault("server.session_ttl", "30m")

	v.SetDefault("storage.path", "~/.config/"+AppName+"/history.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The bare Plaid variable names used by Plaid's quickstarts also work.
	_ = v.BindEnv("plaid.client_id", EnvPrefix+"_PLAID_CLIENT_ID", "PLAID_CLIENT_ID")
	_ = v.BindEnv("plaid.secret", EnvPrefix+"_PLAID_SECRET", "PLAID_SECRET")
	_ = v.BindEnv("plaid.environment", EnvPrefix+"_PLAID_ENVIRONMENT", "PLAID_ENV")
	_ = v.BindEnv("plaid.redirect_uri", EnvPrefix+"_PLAID_REDIRECT_URI", "PLAID_REDIRECT_URI")
}

// Load resolves the configuration from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Plaid: PlaidConfig{
			ClientID:     v.GetString("plaid.client_id"),
			Secret:       v.GetString("plaid.secret"),
			Environment:  strings.ToLower(v.GetString("plaid.environment")),
			BaseURL:      v.GetString("plaid.base_url"),
			ClientName:   v.GetString("plaid.client_name"),
			Language:     v.GetString("plaid.language"),
			RedirectURI:  v.GetString("plaid.redirect_uri"),
			UserPrefix:   v.GetString("plaid.user_prefix"),
			CountryCodes: v.GetStringSlice("plaid.country_codes"),
			Products:     v.GetStringSlice("plaid.products"),
			PageSize:     v.GetInt("plaid.page_size"),
			MaxAttempts:  v.GetInt("plaid.max_attempts"),
		},
		Window: WindowConfig{
			EndDate: v.GetString("window.end_date"),
			Days:    v.GetInt("window.days"),
		},
		Server: ServerConfig{
			Addr:       v.GetString("server.addr"),
			CertDir:    ExpandPath(v.GetString("server.cert_dir")),
			SessionTTL: v.GetDuration("server.session_ttl"),
		},
		Storage: StorageConfig{
			Path: ExpandPath(v.GetString("storage.path")),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that do not depend on which command runs.
// Credentials are checked by RequireCredentials.
func (c *Config) Validate() error {
	switch c.Plaid.Environment {
	case plaid.EnvironmentSandbox, plaid.EnvironmentProduction:
	default:
		return fmt.Errorf("%w: plaid.environment must be sandbox or production, got %q", common.ErrInvalidConfig, c.Plaid.Environment)
	}

	if c.Plaid.PageSize < 1 || c.Plaid.PageSize > plaid.MaxPageSize {
		return fmt.Errorf("%w: plaid.page_size must be between 1 and %d, got %d", common.ErrInvalidConfig, plaid.MaxPageSize, c.Plaid.PageSize)
	}

	if c.Plaid.MaxAttempts < 1 {
		return fmt.Errorf("%w: plaid.max_attempts must be at least 1, got %d", common.ErrInvalidConfig, c.Plaid.MaxAttempts)
	}

	if _, err := c.DateWindow(); err != nil {
		return fmt.Errorf("%w: window: %w", common.ErrInvalidConfig, err)
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}

	return nil
}

// RequireCredentials checks that Plaid credentials are present.
func (c *Config) RequireCredentials() error {
	if c.Plaid.ClientID == "" || c.Plaid.Secret == "" {
		return fmt.Errorf("%w: plaid credentials missing; set plaid.client_id and plaid.secret in the config file or PLAID_CLIENT_ID and PLAID_SECRET in the environment", common.ErrMissingConfig)
	}
	return nil
}

// DateWindow returns the configured transaction window.
func (c *Config) DateWindow() (model.DateWindow, error) {
	return model.ParseDateWindow(c.Window.EndDate, c.Window.Days)
}

// PlaidClientConfig converts the settings into a plaid.Config.
func (c *Config) PlaidClientConfig() plaid.Config {
	return plaid.Config{
		ClientID:     c.Plaid.ClientID,
		Secret:       c.Plaid.Secret,
		Environment:  c.Plaid.Environment,
		BaseURL:      c.Plaid.BaseURL,
		ClientName:   c.Plaid.ClientName,
		Language:     c.Plaid.Language,
		RedirectURI:  c.Plaid.RedirectURI,
		CountryCodes: c.Plaid.CountryCodes,
		Products:     c.Plaid.Products,
		PageSize:     c.Plaid.PageSize,
		Retry: common.RetryOptions{
			MaxAttempts:  c.Plaid.MaxAttempts,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}
}
