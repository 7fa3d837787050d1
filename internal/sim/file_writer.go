package sim

import (
	"encoding/json"
	"errors"
	"os"

	"signalops-sim/internal/telemetry"
)

// FileWriter writes entity samples, objective effects and the event journal
// to JSONL files.
type FileWriter struct {
	entityFile *os.File
	effectFile *os.File
	eventFile  *os.File
	entityEnc  *json.Encoder
	effectEnc  *json.Encoder
	eventEnc   *json.Encoder
}

// NewFileWriter creates a FileWriter. effectPath or eventPath may be empty to
// skip those logs. The event log is what the replay command reads back.
func NewFileWriter(entityPath, effectPath, eventPath string) (*FileWriter, error) {
	ef, err := os.Create(entityPath)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{entityFile: ef, entityEnc: json.NewEncoder(ef)}
	if effectPath != "" {
		f, err := os.Create(effectPath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.effectFile = f
		fw.effectEnc = json.NewEncoder(f)
	}
	if eventPath != "" {
		f, err := os.Create(eventPath)
		if err != nil {
			fw.Close()
			return nil, err
		}
		fw.eventFile = f
		fw.eventEnc = json.NewEncoder(f)
	}
	return fw, nil
}

// Write logs a single entity row.
func (f *FileWriter) Write(row telemetry.EntityRow) error {
	return f.entityEnc.Encode(row)
}

// WriteBatch logs multiple entity rows.
func (f *FileWriter) WriteBatch(rows []telemetry.EntityRow) error {
	for _, r := range rows {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEffect logs a single effect row, if enabled.
func (f *FileWriter) WriteEffect(row telemetry.EffectRow) error {
	if f.effectEnc == nil {
		return nil
	}
	return f.effectEnc.Encode(row)
}

// WriteEvent logs a journal row, if enabled.
func (f *FileWriter) WriteEvent(row telemetry.EventRow) error {
	if f.eventEnc == nil {
		return nil
	}
	return f.eventEnc.Encode(row)
}

// Close closes any underlying files.
func (f *FileWriter) Close() error {
	var errs []error
	for _, file := range []*os.File{f.entityFile, f.effectFile, f.eventFile} {
		if file != nil {
			errs = append(errs, file.Close())
		}
	}
	return errors.Join(errs...)
}
