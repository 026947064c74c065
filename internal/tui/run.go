package tui

import (
	"context"
	"fmt"

	"github.com/Veraticus/plaid-viewer/internal/connector"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the terminal UI and blocks until the user quits or ctx ends.
func Run(ctx context.Context, conn *connector.Connector, session *connector.Session, opts ...Option) error {
	if conn == nil {
		return fmt.Errorf("connector is required")
	}

	p := tea.NewProgram(
		New(ctx, conn, session, opts...),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}
