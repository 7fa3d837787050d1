package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"signalops-sim/internal/telemetry"
)

// JSONStdoutWriter prints every row as one JSON object per line.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) emit(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Write outputs an entity row in JSON format.
func (w *JSONStdoutWriter) Write(row telemetry.EntityRow) error {
	return w.emit(row)
}

// WriteBatch outputs multiple entity rows in JSON format.
func (w *JSONStdoutWriter) WriteBatch(rows []telemetry.EntityRow) error {
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEffect outputs an objective transition in JSON format.
func (w *JSONStdoutWriter) WriteEffect(row telemetry.EffectRow) error {
	return w.emit(row)
}

// WriteEvent outputs a journal row in JSON format.
func (w *JSONStdoutWriter) WriteEvent(row telemetry.EventRow) error {
	return w.emit(row)
}
