// Package explore is the terminal explorer: a ranked list of scored events
// with a per-event recipe pane showing the winning hypothesis.
package explore

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkealey/salience/internal/engine"
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Detail key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k")),
	Down:   key.NewBinding(key.WithKeys("down", "j")),
	Detail: key.NewBinding(key.WithKeys("enter")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// Model is the root Bubble Tea model. It holds a finished run's ranked
// results; navigation never touches the engine.
type Model struct {
	loadID  string
	results []engine.EventResult

	cursor     int
	width      int
	height     int
	ready      bool
	showDetail bool
	detail     viewport.Model
}

// New creates the explorer model over a finished run.
func New(summary *engine.RunSummary) Model {
	return Model{
		loadID:  summary.LoadID,
		results: summary.Ranked(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.detail = viewport.New(msg.Width, m.detailHeight())
		if m.showDetail {
			m.detail.SetContent(m.recipe())
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			if m.showDetail {
				m.detail.SetContent(m.recipe())
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.results)-1 {
				m.cursor++
			}
			if m.showDetail {
				m.detail.SetContent(m.recipe())
			}
			return m, nil

		case key.Matches(msg, keys.Detail):
			m.showDetail = !m.showDetail
			if m.showDetail {
				m.detail.SetContent(m.recipe())
			}
			return m, nil
		}
	}

	if m.showDetail {
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	if len(m.results) == 0 {
		return HelpStyle.Render("No results to explore.")
	}

	var b strings.Builder
	b.WriteString(TitleBar.Width(m.width).Render(fmt.Sprintf("salience — load %s", m.loadID)))
	b.WriteString("\n")
	b.WriteString(m.renderList())
	if m.showDetail {
		b.WriteString(DetailHeader.Render(fmt.Sprintf("recipe for event %d", m.current().EventID)))
		b.WriteString("\n")
		b.WriteString(m.detail.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) current() engine.EventResult {
	return m.results[m.cursor]
}

func (m Model) listHeight() int {
	h := m.height - 2 // title and status bar
	if m.showDetail {
		h -= m.detailHeight() + 1
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m Model) detailHeight() int {
	h := m.height / 3
	if h < 3 {
		h = 3
	}
	return h
}

func (m Model) renderList() string {
	height := m.listHeight()
	offset := 0
	if m.cursor >= height {
		offset = m.cursor - height + 1
	}

	var b strings.Builder
	for i := offset; i < len(m.results) && i-offset < height; i++ {
		r := m.results[i]
		line := fmt.Sprintf("%3d  %8.3f  event %-4d %-12s Cd=%-7.2f Cg=%-7.2f %s",
			i+1, r.Score, r.EventID, truncate(r.Label, 12), r.Cd, r.Cg, r.State)

		style := NormalRow
		switch {
		case i == m.cursor:
			style = SelectedRow
		case r.FellBack:
			style = FallbackRow
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}

// recipe renders the selected event's winning hypothesis step by step.
func (m Model) recipe() string {
	r := m.current()
	var b strings.Builder
	b.WriteString(DetailStep.Render(fmt.Sprintf("unexpectedness %.3f  (Cg %.3f - Cd %.3f)", r.Unexpectedness, r.Cg, r.Cd)))
	b.WriteString("\n")
	if r.FellBack {
		b.WriteString(DetailStep.Render("no generative hypothesis: raw description"))
		b.WriteString("\n")
	}
	for i, st := range r.Steps {
		covers := strings.Join(st.Covers, ",")
		b.WriteString(DetailStep.Render(fmt.Sprintf("%d. %-8s %-20s %6.2f bits  covers %s", i+1, st.Rule, st.Symbol, st.Cost, covers)))
		b.WriteString("\n")
	}
	if r.Gaps > 0 {
		b.WriteString(DetailStep.Render(fmt.Sprintf("%d vocabulary gap(s) charged at fallback cost", r.Gaps)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderStatusBar() string {
	position := fmt.Sprintf(" %d/%d ", m.cursor+1, len(m.results))
	hints := []string{
		StatusBarKey.Render("j/k") + StatusBarText.Render(":nav"),
		StatusBarKey.Render("Enter") + StatusBarText.Render(":recipe"),
		StatusBarKey.Render("q") + StatusBarText.Render(":quit"),
	}
	keyHints := strings.Join(hints, " ")

	padding := m.width - lipgloss.Width(position) - lipgloss.Width(keyHints)
	if padding < 0 {
		padding = 0
	}
	return StatusBar.Width(m.width).Render(position + strings.Repeat(" ", padding) + keyHints)
}

// truncate shortens to n runes; byte slicing could split a multi-byte
// label mid-rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// Run starts the explorer over a finished run and blocks until quit.
func Run(summary *engine.RunSummary) error {
	p := tea.NewProgram(New(summary), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
