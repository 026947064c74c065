package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Provider calls run as commands so the UI keeps redrawing while they block.

func (m Model) createLinkToken() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.config.Timeout)
		defer cancel()
		return linkTokenMsg{result: m.connector.CreateLinkToken(ctx)}
	}
}

func (m Model) exchangeToken(publicToken string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.config.Timeout)
		defer cancel()
		return exchangeMsg{result: m.connector.ExchangeToken(ctx, m.session, publicToken)}
	}
}

func (m Model) fetchTransactions() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.config.Timeout)
		defer cancel()
		return transactionsMsg{result: m.connector.FetchTransactions(ctx, m.session, m.config.Window)}
	}
}

func (m Model) createSandboxToken() tea.Cmd {
	fn := m.config.SandboxToken
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, m.config.Timeout)
		defer cancel()
		token, err := fn(ctx)
		return sandboxTokenMsg{token: token, err: err}
	}
}
