// ColorStdoutWriter prints human-friendly, colorized session output to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"signalops-sim/internal/mission"
	"signalops-sim/internal/telemetry"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var kindColors = map[string]string{
	"FLIGHT": colorCyan,
	"TRAIN":  colorYellow,
	"STORM":  colorMagenta,
}

// ColorStdoutWriter prints rows using ANSI colors.
type ColorStdoutWriter struct {
	mission *mission.Mission
	out     io.Writer
	once    sync.Once
	mu      sync.Mutex
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout. m is
// summarised once before the first row and may be nil.
func NewColorStdoutWriter(m *mission.Mission) *ColorStdoutWriter {
	return &ColorStdoutWriter{mission: m, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	m := w.mission
	if m == nil {
		return
	}
	fmt.Fprintf(w.out, "Mission %s%s%s: %s\n", colorGreen, m.ID, colorReset, m.Title)
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	if m.Difficulty != "" {
		fmt.Fprintf(tw, "Difficulty:\t%s\n", m.Difficulty)
	}
	if m.Reward != 0 {
		fmt.Fprintf(tw, "Reward:\t%d\n", m.Reward)
	}
	tw.Flush()

	fmt.Fprintln(w.out, "\nObjectives:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tTrigger\tAfter\n")
	for _, o := range m.Objectives {
		after := o.Dependency
		if after == "" {
			after = "-"
		}
		fmt.Fprintf(tw, "%s%s%s\t%s:%s\t%s\n", colorBlue, o.ID, colorReset, o.Trigger.EventKind, o.Trigger.TargetID, after)
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single entity row in colorized format.
func (w *ColorStdoutWriter) Write(row telemetry.EntityRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()

	kColor, ok := kindColors[row.Kind]
	if !ok {
		kColor = colorReset
	}
	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, row.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%s%-6s%s ", kColor, row.Kind, colorReset)
	fmt.Fprintf(w.out, "id=%s ", row.EntityID)
	fmt.Fprintf(w.out, "%slat=%.5f%s ", colorGreen, row.Lat, colorReset)
	fmt.Fprintf(w.out, "%slon=%.5f%s ", colorYellow, row.Lon, colorReset)
	fmt.Fprintf(w.out, "%sprogress=%.3f%s", colorCyan, row.Progress, colorReset)
	if row.Status != "" {
		fmt.Fprintf(w.out, " %sstatus=%s%s", colorBlue, row.Status, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple entity rows.
func (w *ColorStdoutWriter) WriteBatch(rows []telemetry.EntityRow) error {
	for _, r := range rows {
		_ = w.Write(r)
	}
	return nil
}

// WriteEffect prints an objective transition.
func (w *ColorStdoutWriter) WriteEffect(e telemetry.EffectRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%s[%s]%s %sOBJECTIVE%s %s %s",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		colorGreen, colorReset, e.ObjectiveID, e.State)
	if len(e.Activated) > 0 {
		fmt.Fprintf(w.out, " unlocked=%s", strings.Join(e.Activated, ","))
	}
	if e.Message != "" {
		fmt.Fprintf(w.out, " %s%q%s", colorMagenta, e.Message, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteEvent prints a journal row. Events that changed nothing are dimmed.
func (w *ColorStdoutWriter) WriteEvent(e telemetry.EventRow) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	col := colorBlue
	switch {
	case e.Ignored:
		col = colorRed
	case e.Effects == 0:
		col = colorGray
	}
	fmt.Fprintf(w.out, "%s[%s]%s %sEVENT%s #%d %s target=%s effects=%d",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		col, colorReset, e.Seq, e.Kind, e.TargetID, e.Effects)
	if e.Ignored {
		fmt.Fprint(w.out, " ignored")
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteChecklist prints the checklist with completed items in green.
func (w *ColorStdoutWriter) WriteChecklist(missionID string, items []ChecklistLine, complete bool) error {
	w.once.Do(w.printOverview)
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.out, "%sCHECKLIST%s %s\n", colorBlue, colorReset, missionID)
	for _, it := range items {
		mark, col := "[ ]", colorGray
		if it.Completed {
			mark, col = "[x]", colorGreen
		}
		fmt.Fprintf(w.out, "  %s%s %s%s\n", col, mark, it.Description, colorReset)
	}
	if complete {
		fmt.Fprintf(w.out, "%sMISSION COMPLETE%s\n", colorGreen, colorReset)
	}
	return nil
}
