// Package tradelog provides an append-only JSON-lines writer for execution
// records: one JSON object per line, opened in append mode at startup,
// never read back.
//
// No example in the reference corpus carries a structured-log-file or
// event-store library for this kind of durable, replay-never record; the
// standard library's encoding/json plus a buffered os.File is the
// idiomatic choice here.
package tradelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Writer appends one JSON record per Write call, flushing immediately so a
// crash never loses a completed trade record.
type Writer struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
}

// Open opens (creating if necessary) the trade log file at path in append
// mode.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tradelog: open %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	return &Writer{file: f, buf: buf, enc: json.NewEncoder(buf)}, nil
}

// Write appends one record as a single JSON line and flushes it to disk.
func (w *Writer) Write(record any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(record); err != nil {
		return fmt.Errorf("tradelog: encode record: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("tradelog: flush on close: %w", err)
	}
	return w.file.Close()
}
