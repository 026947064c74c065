package tui

import (
	"context"
	"time"

	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/Veraticus/plaid-viewer/internal/tui/themes"
)

// SandboxTokenFunc creates a public token without the Link widget.
type SandboxTokenFunc func(ctx context.Context) (string, error)

// Config holds TUI configuration.
type Config struct {
	Theme        themes.Theme
	Window       model.DateWindow
	SandboxToken SandboxTokenFunc
	Timeout      time.Duration
	Width        int
	Height       int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:   themes.Default,
		Window:  model.DefaultDateWindow(),
		Timeout: time.Minute,
		Width:   100,
		Height:  24,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithWindow sets the transaction date window.
func WithWindow(w model.DateWindow) Option {
	return func(c *Config) {
		c.Window = w
	}
}

// WithSandboxToken enables the key that fills in a sandbox public token.
func WithSandboxToken(fn SandboxTokenFunc) Option {
	return func(c *Config) {
		c.SandboxToken = fn
	}
}

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Timeout = d
		}
	}
}
