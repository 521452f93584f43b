package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding"

	"chargestation-converter/models"
)

// WriterOptions controls the JSON layout and file encoding.
type WriterOptions struct {
	Encoding       encoding.Encoding
	Indent         int
	EscapeNonASCII bool
}

// JSONWriter writes normalized stations to a single JSON file. The file is
// replaced atomically: readers see either the old file or the complete new
// one.
type JSONWriter struct {
	path string
	opts WriterOptions
}

// NewJSONWriter returns a writer for path. Intermediate directories are
// created on Write.
func NewJSONWriter(path string, opts WriterOptions) *JSONWriter {
	return &JSONWriter{path: path, opts: opts}
}

// Path returns the destination path.
func (w *JSONWriter) Path() string {
	return w.path
}

// Write serializes all stations and renames the result into place.
func (w *JSONWriter) Write(stations []*models.Station) error {
	data, err := MarshalStations(stations, w.opts.Indent, w.opts.EscapeNonASCII)
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("json: create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("json: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	var out io.WriteCloser = nopCloser{tmp}
	if w.opts.Encoding != nil {
		out = encodingWriter(tmp, w.opts.Encoding)
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("json: write %q: %w", w.path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("json: flush %q: %w", w.path, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("json: sync: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("json: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("json: close: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("json: rename into place: %w", err)
	}
	committed = true
	return nil
}

// Close is a no-op; the writer holds no open handles between writes.
func (w *JSONWriter) Close() error {
	return nil
}
