package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apimgr/weatherio/src/search"
)

var (
	tuiTitle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	tuiCursor   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B5A1E5")).Bold(true)
	tuiMuted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	tuiError    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	tuiSubtitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

type (
	// debounceMsg fires after the quiet period of keystroke seq
	debounceMsg struct{ seq int }

	searchResultsMsg struct {
		seq     int
		results []search.Result
		err     error
	}

	weatherMsg struct {
		text string
		err  error
	}
)

// tuiModel is the interactive search: type a place, pick a result, read
// its weather
type tuiModel struct {
	ctx     context.Context
	backend Backend
	delay   time.Duration

	query     []rune
	seq       int
	searching bool
	results   []search.Result
	cursor    int

	loading bool
	weather string
	err     error
}

func newTUIModel(ctx context.Context, backend Backend, delay time.Duration) tuiModel {
	if delay <= 0 {
		delay = search.DefaultDelay
	}
	return tuiModel{ctx: ctx, backend: backend, delay: delay}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case debounceMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		query := strings.TrimSpace(string(m.query))
		if query == "" {
			m.searching = false
			m.results = nil
			return m, nil
		}
		m.searching = true
		return m, m.search(msg.seq, query)

	case searchResultsMsg:
		// a later keystroke owns the list
		if msg.seq != m.seq {
			return m, nil
		}
		m.searching = false
		m.results = nil
		m.err = msg.err
		if msg.err == nil {
			m.results = msg.results
		}
		m.cursor = 0
		return m, nil

	case weatherMsg:
		m.loading = false
		m.weather = msg.text
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case tea.KeyDown:
		if m.cursor < len(m.results)-1 {
			m.cursor++
		}
		return m, nil

	case tea.KeyEnter:
		if len(m.results) == 0 {
			return m, nil
		}
		r := m.results[m.cursor]
		m.loading = true
		m.err = nil
		return m, m.fetchWeather(r)

	case tea.KeyBackspace:
		if len(m.query) == 0 {
			return m, nil
		}
		m.query = m.query[:len(m.query)-1]
		return m.typed()

	case tea.KeySpace:
		m.query = append(m.query, ' ')
		return m.typed()

	case tea.KeyRunes:
		m.query = append(m.query, msg.Runes...)
		return m.typed()
	}

	return m, nil
}

// typed starts the quiet period for the current text
func (m tuiModel) typed() (tea.Model, tea.Cmd) {
	m.seq++
	seq := m.seq
	if strings.TrimSpace(string(m.query)) == "" {
		// empty input clears without searching
		m.searching = false
		m.results = nil
		return m, nil
	}
	return m, tea.Tick(m.delay, func(time.Time) tea.Msg { return debounceMsg{seq: seq} })
}

func (m tuiModel) search(seq int, query string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.backend.Search(m.ctx, query)
		return searchResultsMsg{seq: seq, results: results, err: err}
	}
}

func (m tuiModel) fetchWeather(r search.Result) tea.Cmd {
	return func() tea.Msg {
		text, err := m.backend.Weather(m.ctx, r.Coordinates, FormatPlain)
		return weatherMsg{text: text, err: err}
	}
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(tuiTitle.Render("weatherio"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Search: %s█", string(m.query))
	if m.searching {
		b.WriteString(tuiMuted.Render("  searching..."))
	}
	b.WriteString("\n\n")

	for i, r := range m.results {
		line := fmt.Sprintf("%s %s", r.Title, tuiSubtitle.Render(r.Subtitle))
		if i == m.cursor {
			b.WriteString(tuiCursor.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	switch {
	case m.err != nil:
		b.WriteString("\n" + tuiError.Render(m.err.Error()) + "\n")
	case m.loading:
		b.WriteString("\n" + tuiMuted.Render("Loading...") + "\n")
	case m.weather != "":
		b.WriteString("\n" + m.weather + "\n")
	}

	b.WriteString("\n" + tuiMuted.Render("type to search • ↑/↓ select • enter show weather • esc quit") + "\n")
	return b.String()
}

// runTUI launches the interactive search
func runTUI(ctx context.Context, backend Backend) error {
	p := tea.NewProgram(newTUIModel(ctx, backend, search.DefaultDelay), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return NewExitError(fmt.Sprintf("tui failed: %v", err), ExitGeneralError)
	}
	return nil
}
