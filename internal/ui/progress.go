package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"ksc/internal/buildpipeline"
)

type treeState uint8

const (
	stateQueued treeState = iota
	stateWorking
	stateDone
	stateFailed
)

// stageInfo is the label of a pipeline stage and the share of a tree's work
// that is complete once the tree enters it.
type stageInfo struct {
	stage  buildpipeline.Stage
	label  string
	weight float64
}

var stages = []stageInfo{
	{buildpipeline.StageDecode, "decoding", 0.2},
	{buildpipeline.StageLower, "lowering", 0.6},
	{buildpipeline.StageEmit, "emitting", 0.9},
	{buildpipeline.StageRun, "running", 0.95},
}

func lookupStage(stage buildpipeline.Stage) (stageInfo, bool) {
	for _, si := range stages {
		if si.stage == stage {
			return si, true
		}
	}
	return stageInfo{}, false
}

type treeRow struct {
	path    string
	state   treeState
	stage   buildpipeline.Stage
	elapsed time.Duration
	failure string
}

func (r treeRow) label() string {
	switch r.state {
	case stateDone:
		return "done"
	case stateFailed:
		return "error"
	case stateWorking:
		if si, ok := lookupStage(r.stage); ok {
			return si.label
		}
	}
	return "queued"
}

func (r treeRow) weight() float64 {
	switch r.state {
	case stateDone, stateFailed:
		return 1
	case stateWorking:
		si, _ := lookupStage(r.stage)
		return si.weight
	}
	return 0
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	queuedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	workingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faintStyle   = lipgloss.NewStyle().Faint(true)
)

func (s treeState) style() lipgloss.Style {
	switch s {
	case stateWorking:
		return workingStyle
	case stateDone:
		return doneStyle
	case stateFailed:
		return failedStyle
	}
	return queuedStyle
}

type progressModel struct {
	title    string
	events   <-chan buildpipeline.Event
	spinner  spinner.Model
	bar      progress.Model
	rows     []treeRow
	byPath   map[string]int
	phase    string
	width    int
	finished bool
}

type eventMsg buildpipeline.Event
type closedMsg struct{}

// NewProgressModel returns a Bubble Tea model showing one row per tree file
// and an overall bar, driven by pipeline events until events is closed.
func NewProgressModel(title string, files []string, events <-chan buildpipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = workingStyle

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),
		rows:    make([]treeRow, len(files)),
		byPath:  make(map[string]int, len(files)),
		width:   80,
	}
	for i, file := range files {
		m.rows[i] = treeRow{path: file}
		m.byPath[file] = i
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		return m, tea.Batch(m.applyEvent(buildpipeline.Event(msg)), m.next())
	case closedMsg:
		m.finished = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return eventMsg(ev)
	}
}

// applyEvent folds ev into the model. Events without a file move the
// header phase; events for files not in the list are ignored.
func (m *progressModel) applyEvent(ev buildpipeline.Event) tea.Cmd {
	if ev.File == "" {
		if si, ok := lookupStage(ev.Stage); ok && ev.Status == buildpipeline.StatusWorking {
			m.phase = si.label
		}
		return nil
	}
	i, ok := m.byPath[ev.File]
	if !ok {
		return nil
	}
	row := &m.rows[i]
	row.stage = ev.Stage
	row.elapsed += ev.Elapsed
	switch ev.Status {
	case buildpipeline.StatusQueued:
		row.state = stateQueued
	case buildpipeline.StatusWorking:
		row.state = stateWorking
	case buildpipeline.StatusDone:
		row.state = stateDone
	case buildpipeline.StatusError:
		row.state = stateFailed
		if ev.Err != nil {
			row.failure = ev.Err.Error()
		}
	}
	return m.bar.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.rows) == 0 {
		return 0
	}
	total := 0.0
	for _, row := range m.rows {
		total += row.weight()
	}
	return total / float64(len(m.rows))
}

func (m *progressModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	header := m.title
	if m.phase != "" {
		header += " (" + m.phase + ")"
	}
	if m.finished {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const labelWidth = 10
	nameWidth := max(m.width-labelWidth-16, 20)
	var done, failed int
	for _, row := range m.rows {
		fmt.Fprintf(&b, "  %s %s", row.state.style().Render(fmt.Sprintf("%*s", labelWidth, row.label())), truncate(row.path, nameWidth))
		if row.state == stateDone && row.elapsed > 0 {
			b.WriteString(faintStyle.Render(" " + row.elapsed.Round(time.Millisecond).String()))
		}
		b.WriteString("\n")
		switch row.state {
		case stateDone:
			done++
		case stateFailed:
			failed++
			if row.failure != "" {
				fmt.Fprintf(&b, "  %*s %s\n", labelWidth, "", failedStyle.Render(truncate(row.failure, nameWidth)))
			}
		}
	}

	b.WriteString("\n")
	if m.finished {
		b.WriteString(m.bar.ViewAs(1))
	} else {
		b.WriteString(m.bar.View())
	}
	summary := fmt.Sprintf("%d/%d finished", done+failed, len(m.rows))
	if failed > 0 {
		summary += fmt.Sprintf(", %d failed", failed)
	}
	b.WriteString("\n")
	b.WriteString(faintStyle.Render(summary))
	b.WriteString("\n")
	return b.String()
}

// truncate shortens value to width display cells, marking the cut with "...".
func truncate(value string, width int) string {
	switch {
	case width <= 0 || runewidth.StringWidth(value) <= width:
		return value
	case width <= 3:
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
