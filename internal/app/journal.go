package app

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/moltfocus/internal/application/port/output"
)

// JournalWriter appends one NDJSON line per finalize invocation
type JournalWriter struct {
	fs   afero.Fs
	path string

	mu      sync.Mutex
	entropy io.Reader
}

// NewJournalWriter creates a journal writer for path on fs
func NewJournalWriter(fs afero.Fs, path string) *JournalWriter {
	return &JournalWriter{
		fs:      fs,
		path:    path,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Path returns the journal file path
func (w *JournalWriter) Path() string {
	return w.path
}

// Append writes rec as a single JSON line. A missing ID or timestamp is
// filled in; IDs are ULIDs, monotonic within the process.
func (w *JournalWriter) Append(ctx context.Context, rec output.FinalizeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if rec.TS.IsZero() {
		rec.TS = time.Now().UTC()
	}
	if rec.ID == "" {
		id, err := ulid.New(ulid.Timestamp(rec.TS), w.entropy)
		if err != nil {
			return fmt.Errorf("journal id: %w", err)
		}
		rec.ID = id.String()
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal journal record: %w", err)
	}

	if err := w.fs.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	f, err := w.fs.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("append journal: %w", err)
	}
	if err := f.Sync(); err != nil {
		// the line is written; durability is best effort here
		GetLogger().Warn("fsync journal %s: %v", w.path, err)
	}
	return nil
}

// ReadJournal returns the records of the journal at path, oldest first.
// A missing journal is empty. Lines that do not decode are skipped.
func ReadJournal(fs afero.Fs, path string) ([]output.FinalizeRecord, error) {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()

	var records []output.FinalizeRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec output.FinalizeRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			GetLogger().Warn("journal %s line %d: %v", path, lineNo, err)
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, fmt.Errorf("scan journal: %w", err)
	}
	return records, nil
}

// TailJournal returns at most n of the newest records, newest first
func TailJournal(fs afero.Fs, path string, n int) ([]output.FinalizeRecord, error) {
	records, err := ReadJournal(fs, path)
	if err != nil {
		return nil, err
	}
	out := make([]output.FinalizeRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if n > 0 && len(out) == n {
			break
		}
		out = append(out, records[i])
	}
	return out, nil
}
