package sim

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"signalops-sim/internal/eventbus"
	"signalops-sim/internal/mission"
	"signalops-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// logMsg carries a log line for the viewport.
type logMsg struct{ line string }

// adminMsg reports admin UI status.
type adminMsg struct{ active bool }

type entityMsg struct{ rows []telemetry.EntityRow }

type checklistMsg struct {
	missionID string
	items     []ChecklistLine
	complete  bool
}

type setSinkMsg struct{ fn func(eventbus.Event) }

const maxLogLines = 1000

var commandKinds = map[string]string{
	"trace":  eventbus.KindSignalTraced,
	"whois":  eventbus.KindIPInfoRetrieved,
	"select": eventbus.KindMapEntitySelected,
	"locate": eventbus.KindMapLocationSelected,
}

// TUIWriter renders the session using a bubbletea TUI. The command line
// (":" key) turns player input into bus events.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter.
func NewTUIWriter(m *mission.Mission) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(m), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// Write implements EntityWriter.
func (w *TUIWriter) Write(row telemetry.EntityRow) error {
	w.program.Send(entityMsg{rows: []telemetry.EntityRow{row}})
	return nil
}

// WriteBatch refreshes the entity table with one sample.
func (w *TUIWriter) WriteBatch(rows []telemetry.EntityRow) error {
	w.program.Send(entityMsg{rows: slices.Clone(rows)})
	return nil
}

// WriteEffect implements EffectWriter.
func (w *TUIWriter) WriteEffect(e telemetry.EffectRow) error {
	line := fmt.Sprintf("%s[%s]%s %sOBJECTIVE%s %s %s",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		colorGreen, colorReset, e.ObjectiveID, e.State)
	if len(e.Activated) > 0 {
		line += fmt.Sprintf(" %sunlocked=%s%s", colorCyan, strings.Join(e.Activated, ","), colorReset)
	}
	if e.Message != "" {
		line += fmt.Sprintf(" %s%s%s", colorMagenta, e.Message, colorReset)
	}
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(e telemetry.EventRow) error {
	col := colorBlue
	note := ""
	switch {
	case e.Ignored:
		col, note = colorRed, " ignored"
	case e.Effects == 0:
		col, note = colorGray, " no effect"
	}
	line := fmt.Sprintf("%s[%s]%s %s%s%s target=%s%s",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		col, e.Kind, colorReset, e.TargetID, note)
	w.program.Send(logMsg{line: line})
	return nil
}

// WriteChecklist implements ChecklistWriter.
func (w *TUIWriter) WriteChecklist(missionID string, items []ChecklistLine, complete bool) error {
	w.program.Send(checklistMsg{missionID: missionID, items: slices.Clone(items), complete: complete})
	return nil
}

// SetAdminStatus updates the admin UI indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// SetEventSink registers the callback used by the command line.
func (w *TUIWriter) SetEventSink(fn func(eventbus.Event)) {
	w.program.Send(setSinkMsg{fn: fn})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

// parseCommand turns "verb target" into a bus event.
func parseCommand(val string) (eventbus.Event, error) {
	verb, target, ok := strings.Cut(strings.TrimSpace(val), " ")
	target = strings.TrimSpace(target)
	if !ok || target == "" {
		return eventbus.Event{}, errors.New("usage: trace|whois|select|locate <target>")
	}
	kind, ok := commandKinds[strings.ToLower(verb)]
	if !ok {
		return eventbus.Event{}, fmt.Errorf("unknown command %q", verb)
	}
	return eventbus.Event{Kind: kind, TargetID: target}, nil
}

type tuiModel struct {
	mission    *mission.Mission
	table      table.Model
	vp         viewport.Model
	input      textinput.Model
	dialog     bool
	logs       []string
	entities   []telemetry.EntityRow
	checklist  []ChecklistLine
	complete   bool
	sink       func(eventbus.Event)
	admin      bool
	wrap       bool
	autoscroll bool
	help       bool
	header     string
	height     int
}

func newTUIModel(m *mission.Mission) tuiModel {
	cols := []table.Column{
		{Title: "Entity", Width: 12},
		{Title: "Kind", Width: 7},
		{Title: "Lat", Width: 9},
		{Title: "Lon", Width: 9},
		{Title: "Prog", Width: 5},
		{Title: "Status", Width: 10},
	}
	t := table.New(table.WithColumns(cols), table.WithHeight(1))
	model := tuiModel{
		mission:    m,
		table:      t,
		vp:         viewport.New(0, 0),
		autoscroll: true,
	}
	if m != nil {
		for _, o := range m.Objectives {
			model.checklist = append(model.checklist, ChecklistLine{ID: o.ID, Description: o.Description})
		}
	}
	return model
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width / 2)
		m.vp.Width = msg.Width
		m.height = msg.Height
		m.relayout()
		m.refreshViewport()
	case tea.KeyMsg:
		if m.dialog {
			switch msg.Type {
			case tea.KeyEnter:
				ev, err := parseCommand(m.input.Value())
				switch {
				case err != nil:
					m.appendLog(fmt.Sprintf("%s%v%s", colorRed, err, colorReset))
				case m.sink != nil:
					go m.sink(ev)
				}
				m.dialog = false
				m.relayout()
			case tea.KeyEsc:
				m.dialog = false
				m.relayout()
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				return m, cmd
			}
			return m, nil
		}
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.relayout()
			m.refreshViewport()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
			}
			return m, nil
		case ":":
			m.input = textinput.New()
			m.input.Placeholder = "trace 203.0.113.7"
			m.input.Focus()
			m.dialog = true
			m.relayout()
			return m, nil
		case "h", "?":
			m.help = true
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case logMsg:
		m.appendLog(msg.line)
	case entityMsg:
		m.mergeEntities(msg.rows)
		m.relayout()
	case checklistMsg:
		m.checklist, m.complete = msg.items, msg.complete
		m.relayout()
	case adminMsg:
		m.admin = msg.active
	case setSinkMsg:
		m.sink = msg.fn
	}
	return m, nil
}

func (m *tuiModel) appendLog(line string) {
	m.logs = append(m.logs, line)
	if len(m.logs) > maxLogLines {
		m.logs = m.logs[len(m.logs)-maxLogLines:]
	}
	m.refreshViewport()
}

// mergeEntities upserts rows by entity id. A multi-row batch is a full sample
// and replaces the table, so retired entities disappear.
func (m *tuiModel) mergeEntities(rows []telemetry.EntityRow) {
	if len(rows) > 1 {
		m.entities = rows
	} else {
		for _, r := range rows {
			i := slices.IndexFunc(m.entities, func(e telemetry.EntityRow) bool { return e.EntityID == r.EntityID })
			if i < 0 {
				m.entities = append(m.entities, r)
			} else {
				m.entities[i] = r
			}
		}
	}
	trs := make([]table.Row, len(m.entities))
	for i, e := range m.entities {
		trs[i] = table.Row{e.EntityID, e.Kind, fmt.Sprintf("%.4f", e.Lat), fmt.Sprintf("%.4f", e.Lon), fmt.Sprintf("%.2f", e.Progress), e.Status}
	}
	m.table.SetRows(trs)
	m.table.SetHeight(len(trs) + 1)
}

func (m *tuiModel) relayout() {
	m.header = m.renderHeader()
	h := m.height - lipgloss.Height(m.header) - lipgloss.Height(m.renderBottom()) - 2
	if m.dialog {
		h--
	}
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	var lines []string
	for _, l := range m.logs {
		if m.wrap {
			lines = append(lines, wordwrap.String(l, m.vp.Width))
		} else {
			lines = append(lines, l)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m tuiModel) View() string {
	if m.help {
		return m.renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{m.header, divider, m.vp.View(), divider}
	if m.dialog {
		sections = append(sections, m.input.View())
	}
	sections = append(sections, m.renderBottom())
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	width := m.vp.Width/2 - 1
	sep := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("│")
	return lipgloss.JoinHorizontal(lipgloss.Top, m.table.View(), sep, m.renderChecklist(width))
}

func (m tuiModel) renderChecklist(width int) string {
	title := "No mission"
	if m.mission != nil {
		title = m.mission.Title
	}
	lines := []string{lipgloss.NewStyle().Bold(true).Render(title)}
	for _, it := range m.checklist {
		mark, col := "[ ]", colorGray
		if it.Completed {
			mark, col = "[x]", colorGreen
		}
		line := fmt.Sprintf("%s%s %s%s", col, mark, it.Description, colorReset)
		if m.wrap && width > 0 {
			line = wordwrap.String(line, width)
		}
		lines = append(lines, line)
	}
	if m.complete {
		lines = append(lines, colorGreen+"MISSION COMPLETE"+colorReset)
	}
	return strings.Join(lines, "\n")
}

func indicator(on bool) string {
	c := lipgloss.Color("9")
	if on {
		c = lipgloss.Color("10")
	}
	return lipgloss.NewStyle().Foreground(c).Render("●")
}

func (m tuiModel) renderBottom() string {
	done := 0
	for _, it := range m.checklist {
		if it.Completed {
			done++
		}
	}
	progress := fmt.Sprintf("%sOBJECTIVES%s %d/%d", colorBlue, colorReset, done, len(m.checklist))
	return fmt.Sprintf("%s | Admin UI %s | Wrap %s | Scroll %s | : command | ? help",
		progress, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll))
}

func (m tuiModel) renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" :  open command line",
		" w  toggle wrap",
		" s  toggle auto-scroll",
		" j/k, pgup/pgdown  scroll when auto-scroll is off",
		" ?  close help",
		"",
		"Commands:",
		" trace <ip>         trace a signal",
		" whois <ip>         retrieve ip info",
		" select <entity>    select a map entity",
		" locate <location>  select a map location",
	}
	return strings.Join(lines, "\n")
}
