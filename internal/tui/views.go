package tui

import (
	"strings"

	"github.com/Veraticus/plaid-viewer/internal/cli"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/charmbracelet/lipgloss"
)

func summarize(t model.Table) string {
	if t.Empty() {
		return ""
	}
	return cli.Summary(t)
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	theme := m.config.Theme
	var b strings.Builder

	b.WriteString(theme.Title.Render("Plaid Viewer"))
	b.WriteString("  ")
	b.WriteString(theme.Subtitle.Render(m.config.Window.String()))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine("Account", m.linkStatus, m.linkOK))
	b.WriteString("\n")
	if m.linkToken != "" {
		b.WriteString(theme.Subtitle.Render("Link token:"))
		b.WriteString(theme.Code.Render(m.linkToken))
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine("Transactions", m.txnStatus, m.txnOK))
	b.WriteString("\n\n")

	if m.state == StateEnterToken {
		b.WriteString(theme.BorderedBox.Render(m.input.View()))
		b.WriteString("\n")
		b.WriteString(m.help.View(inputKeyMap(m.keymap)))
		return b.String()
	}

	b.WriteString(theme.BorderedBox.Render(m.table.View()))
	b.WriteString("\n")
	if m.summary != "" {
		b.WriteString(theme.Subtitle.Render(m.summary))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keymap))

	return b.String()
}

func (m Model) statusLine(label, message string, ok bool) string {
	theme := m.config.Theme

	style := theme.StatusError
	switch {
	case ok:
		style = theme.StatusSuccess
	case !strings.HasPrefix(message, "Error:"):
		style = theme.StatusPending
	}

	prefix := "  "
	if m.busy && strings.HasSuffix(message, "...") {
		prefix = m.spinner.View()
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		prefix,
		theme.Subtitle.Render(label+": "),
		style.Render(message),
	)
}
