package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/alexanderramin/weekendly/internal/cli/formatter"
	"github.com/alexanderramin/weekendly/internal/store"
	"github.com/alexanderramin/weekendly/internal/syncer"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

type watchKeyMap struct {
	Quit    key.Binding
	Sync    key.Binding
	Offline key.Binding
	Reload  key.Binding
}

func defaultWatchKeys() watchKeyMap {
	return watchKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sync now"),
		),
		Offline: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "toggle offline"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
	}
}

// Messages

// changedMsg means the store or the network changed; the model re-reads both.
type changedMsg struct{}

type syncDoneMsg struct {
	res syncer.Result
	err error
}

// watchModel is the live view: the active plan, connectivity and the
// queue, redrawn on every store or network transition.
type watchModel struct {
	ctx  context.Context
	app  *App
	keys watchKeyMap

	state   store.State
	online  bool
	forced  bool
	syncing bool
	result  string
	width   int

	spinner spinner.Model
	changed chan struct{}
	unsubs  []func()
}

func newWatchModel(ctx context.Context, app *App) *watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = formatter.StylePurple

	m := &watchModel{
		ctx:     ctx,
		app:     app,
		keys:    defaultWatchKeys(),
		spinner: s,
		changed: make(chan struct{}, 1),
	}
	// Subscribers run under the store lock, so they only signal.
	m.unsubs = append(m.unsubs,
		app.Store.Subscribe(func(store.State) { m.signal() }),
		app.Network.Subscribe(func(bool) { m.signal() }),
	)
	m.refresh()
	return m
}

func (m *watchModel) signal() {
	select {
	case m.changed <- struct{}{}:
	default:
	}
}

func (m *watchModel) close() {
	for _, u := range m.unsubs {
		u()
	}
	m.unsubs = nil
}

func (m *watchModel) refresh() {
	m.state = m.app.Store.Snapshot()
	st := m.app.Network.Status()
	m.online, m.forced = st.Online, st.Forced
}

func (m *watchModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changed:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *watchModel) syncCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := m.app.Sync.Drain(m.ctx)
		return syncDoneMsg{res: res, err: err}
	}
}

func (m *watchModel) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		if user := m.app.Store.UserID(); user != "" {
			m.app.Store.LoadPlans(m.ctx, user)
		}
		return changedMsg{}
	}
}

func (m *watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForChange())
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Sync):
			if m.syncing {
				return m, nil
			}
			m.syncing = true
			m.result = ""
			return m, m.syncCmd()
		case key.Matches(msg, m.keys.Offline):
			m.toggleOffline()
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Reload):
			return m, m.reloadCmd()
		}
		return m, nil

	case changedMsg:
		m.refresh()
		return m, m.waitForChange()

	case syncDoneMsg:
		m.syncing = false
		switch {
		case msg.err != nil && msg.res.Offline:
			m.result = formatter.Warn("Backend unreachable, changes stay queued")
		case msg.err != nil:
			m.result = formatter.Fail(msg.err.Error())
		default:
			m.result = formatSyncResult(msg.res)
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// toggleOffline pins the network offline, or hands it back to the
// heartbeat starting from online.
func (m *watchModel) toggleOffline() {
	st := m.app.Network.Status()
	if st.Forced && !st.Online {
		m.app.Network.Force(true)
		m.app.Network.Release()
		m.app.Sync.Kick()
		return
	}
	m.app.Network.Force(false)
}

func (m *watchModel) View() string {
	var b strings.Builder

	pending := len(m.state.PendingChanges)
	status := formatter.ConnectionIndicator(m.online, pending)
	if m.forced {
		status += " " + formatter.Dim("(forced)")
	}
	if m.syncing || (m.online && pending > 0) {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(formatter.StyleHeader.Render("WEEKENDLY") + "  " + status + "  " +
		formatter.Dim("last sync "+formatter.HumanTimestamp(m.state.LastSyncAt)) + "\n\n")

	if m.state.Loading {
		b.WriteString(formatter.Dim("Loading plans…") + "\n")
	}
	if m.state.Error != "" {
		b.WriteString(formatter.Fail(m.state.Error) + "\n")
	}
	if m.state.Notice != "" {
		b.WriteString(formatter.Warn(m.state.Notice) + "\n")
	}
	if m.result != "" {
		b.WriteString(m.result + "\n")
	}
	if m.syncing {
		b.WriteString(formatter.Dim("Syncing…") + "\n")
	}

	if p, ok := m.state.ActivePlan(); ok {
		b.WriteString("\n" + formatter.FormatSchedule(p))
	} else {
		b.WriteString("\n" + formatter.Dim("No active plan") + "\n")
	}

	if others := m.otherPlans(); others != "" {
		b.WriteString("\n" + formatter.Dim("Other plans: ") + others + "\n")
	}

	b.WriteString("\n" + m.help() + "\n")
	return b.String()
}

func (m *watchModel) otherPlans() string {
	var names []string
	for _, p := range m.state.Plans {
		if p.ID != m.state.ActivePlanID {
			names = append(names, p.Name)
		}
	}
	return strings.Join(names, ", ")
}

func (m *watchModel) help() string {
	bindings := []key.Binding{m.keys.Sync, m.keys.Offline, m.keys.Reload, m.keys.Quit}
	parts := make([]string, len(bindings))
	for i, kb := range bindings {
		h := kb.Help()
		parts[i] = fmt.Sprintf("%s %s", formatter.Bold(h.Key), formatter.Dim(h.Desc))
	}
	return strings.Join(parts, formatter.Dim(" · "))
}

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live view of the active plan and its sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadPlans(cmd); err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var wg sync.WaitGroup
			app.runBackground(ctx, &wg)
			defer wg.Wait()

			m := newWatchModel(ctx, app)
			defer m.close()

			p := tea.NewProgram(m,
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()))
			_, err := p.Run()
			cancel()
			return err
		},
	}
}
