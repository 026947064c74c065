// Package tui is the Bubble Tea terminal front end for the account connector.
package tui

import (
	"context"
	"strings"

	"github.com/Veraticus/plaid-viewer/internal/connector"
	"github.com/Veraticus/plaid-viewer/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// State is the input mode of the UI.
type State int

// UI states.
const (
	StateBrowse State = iota
	StateEnterToken
)

// Status line defaults.
const (
	statusNotConnected = "Not connected. Press l for a link token, then c to connect."
	statusNoData       = "Press r to load transactions."
)

// Model holds the TUI state.
type Model struct {
	ctx        context.Context
	connector  *connector.Connector
	session    *connector.Session
	keymap     KeyMap
	help       help.Model
	table      table.Model
	input      textinput.Model
	spinner    spinner.Model
	config     Config
	linkToken  string
	linkStatus string
	txnStatus  string
	summary    string
	state      State
	linkOK     bool
	txnOK      bool
	busy       bool
	quitting   bool
}

// New creates the model. The session outlives the program, so a caller may
// pass one that is already connected.
func New(ctx context.Context, conn *connector.Connector, session *connector.Session, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if session == nil {
		session = connector.NewSession()
	}

	keymap := DefaultKeyMap()
	keymap.Sandbox.SetEnabled(cfg.SandboxToken != nil)

	input := textinput.New()
	input.Placeholder = "public-sandbox-..."
	input.Prompt = "Public token: "
	input.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cfg.Theme.StatusInfo

	m := Model{
		ctx:        ctx,
		connector:  conn,
		session:    session,
		config:     cfg,
		keymap:     keymap,
		help:       help.New(),
		input:      input,
		spinner:    sp,
		table:      newTable(cfg),
		linkStatus: statusNotConnected,
		txnStatus:  statusNoData,
	}
	if session.Connected() {
		m.linkStatus = "Connected (item " + session.ItemID() + ")"
		m.linkOK = true
	}
	return m
}

func newTable(cfg Config) table.Model {
	styles := table.DefaultStyles()
	styles.Header = cfg.Theme.TableHeader
	styles.Selected = cfg.Theme.TableSelected

	t := table.New(
		table.WithColumns(tableColumns(cfg.Width)),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(tableHeight(cfg.Height)),
	)
	t.SetStyles(styles)
	return t
}

func tableColumns(width int) []table.Column {
	name := 32
	category := 30
	if extra := width - 100; extra > 0 {
		name += extra / 2
		category += extra - extra/2
	}
	return []table.Column{
		{Title: "Date", Width: 10},
		{Title: "Name", Width: name},
		{Title: "Amount", Width: 12},
		{Title: "Category", Width: category},
	}
}

func tableHeight(height int) int {
	// Title, two status lines, input, summary, help and borders.
	if h := height - 12; h > 3 {
		return h
	}
	return 3
}

func tableRows(t model.Table) []table.Row {
	rows := make([]table.Row, 0, t.Len())
	for _, values := range t.Values() {
		rows = append(rows, table.Row(values))
	}
	return rows
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.config.Width = msg.Width
		m.config.Height = msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(tableColumns(msg.Width))
		m.table.SetHeight(tableHeight(msg.Height))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case linkTokenMsg:
		m.busy = false
		m.linkOK = msg.result.OK()
		m.linkStatus = msg.result.Display()
		if msg.result.OK() {
			m.linkToken = msg.result.Value
		}
		return m, nil

	case exchangeMsg:
		m.busy = false
		m.linkOK = msg.result.OK()
		m.linkStatus = msg.result.Display()
		return m, nil

	case transactionsMsg:
		m.busy = false
		m.txnOK = msg.result.OK()
		m.txnStatus = msg.result.Display()
		m.table.SetRows(tableRows(msg.result.Value))
		m.table.GotoTop()
		m.summary = summarize(msg.result.Value)
		return m, nil

	case sandboxTokenMsg:
		m.busy = false
		if msg.err != nil {
			m.linkOK = false
			m.linkStatus = "Error: " + msg.err.Error()
			return m, nil
		}
		m.linkStatus = "Sandbox public token ready. Press enter to connect."
		cmd := m.startTokenEntry()
		m.input.SetValue(msg.token)
		return m, cmd

	case tea.KeyMsg:
		if m.state == StateEnterToken {
			return m.updateTokenEntry(msg)
		}
		return m.updateBrowse(msg)
	}

	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keymap.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if key.Matches(msg, m.keymap.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if !m.busy {
		switch {
		case key.Matches(msg, m.keymap.LinkToken):
			m.busy = true
			m.linkStatus = "Creating link token..."
			return m, m.createLinkToken()

		case key.Matches(msg, m.keymap.Connect):
			m.input.Reset()
			cmd := m.startTokenEntry()
			return m, cmd

		case key.Matches(msg, m.keymap.Sandbox):
			m.busy = true
			m.linkStatus = "Creating sandbox public token..."
			return m, m.createSandboxToken()

		case key.Matches(msg, m.keymap.Refresh):
			m.busy = true
			m.txnStatus = "Fetching transactions..."
			return m, m.fetchTransactions()

		case key.Matches(msg, m.keymap.Disconnect):
			result := m.connector.Disconnect(m.session)
			m.linkOK = false
			m.linkToken = ""
			m.linkStatus = result.Display()
			m.txnOK = false
			m.txnStatus = statusNoData
			m.summary = ""
			m.table.SetRows([]table.Row{})
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) startTokenEntry() tea.Cmd {
	m.state = StateEnterToken
	m.table.Blur()
	return m.input.Focus()
}

func (m Model) updateTokenEntry(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Cancel):
		m.endTokenEntry()
		return m, nil

	case key.Matches(msg, m.keymap.Submit):
		token := strings.TrimSpace(m.input.Value())
		m.endTokenEntry()
		m.busy = true
		m.linkStatus = "Connecting account..."
		return m, m.exchangeToken(token)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) endTokenEntry() {
	m.state = StateBrowse
	m.input.Blur()
	m.input.Reset()
	m.table.Focus()
}

// State returns the current input mode.
func (m Model) State() State {
	return m.state
}

// Session returns the session the UI operates on.
func (m Model) Session() *connector.Session {
	return m.session
}
