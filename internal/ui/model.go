package ui

import (
	"context"
	"strings"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"webmify/internal/progress"
)

type Model struct {
	cancel context.CancelFunc

	// Jobs, in input order
	jobOrder []string
	jobs     map[string]*jobState

	batch      progress.Batch
	overall    bubblesprogress.Model
	cancelling bool
	finished   bool

	// UI
	width, height int
	styles        Styles

	events <-chan progress.Event
}

// NewModel builds the UI state for inputs. Events are read from events until
// it is closed; cancel is invoked when the user asks to stop.
func NewModel(inputs []string, events <-chan progress.Event, cancel context.CancelFunc) Model {
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(inputs))
	order := make([]string, 0, len(inputs))
	for _, in := range inputs {
		if _, dup := jobs[in]; dup {
			continue
		}
		js := newJobState(in, sty)
		jobs[in] = &js
		order = append(order, in)
	}

	return Model{
		cancel:   cancel,
		jobOrder: order,
		jobs:     jobs,
		batch:    progress.Batch{Total: len(inputs)},
		overall: bubblesprogress.New(
			bubblesprogress.WithDefaultGradient(),
			bubblesprogress.WithWidth(50),
		),
		styles: sty,
		events: events,
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		sp := m.jobs[id].spinner
		cmds = append(cmds, sp.Tick)
	}
	// Listen for reporter events
	cmds = append(cmds, m.listenEventsCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancelling {
				// Second request: leave now, the batch winds down on its own.
				return m, tea.Quit
			}
			m.cancelling = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case eventMsg:
		m.apply(msg.E)
		return m, m.listenEventsCmd()

	case batchDoneMsg:
		m.finished = true
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) apply(e progress.Event) {
	switch ev := e.(type) {
	case progress.Update:
		if js, ok := m.jobs[ev.FilePath]; ok && !js.done {
			js.applyUpdate(ev)
		}
	case progress.Log:
		if js, ok := m.jobs[ev.FilePath]; ok {
			js.applyLog(strings.TrimRight(ev.Line, "\r\n"))
		}
	case progress.Result:
		if js, ok := m.jobs[ev.FilePath]; ok {
			js.applyResult(ev)
		}
	case progress.Batch:
		m.batch = ev
	}
}

func (m Model) View() string {
	summary := m.viewSummary()
	if summary != "" {
		return m.viewHeader() + "\n\n" + m.viewJobs() + "\n" + summary
	}
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

func (m Model) listenEventsCmd() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return batchDoneMsg{}
		}
		return eventMsg{E: e}
	}
}
