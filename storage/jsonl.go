package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/paurush33/alberta-procurement-scraper/models"
)

// Recorder appends records to a JSONL file, one self-contained object per
// line, and owns the run's seen-set. Earlier file content is preserved;
// separate runs append. The seen-set starts empty every run, so dedup holds
// within a run only.
type Recorder struct {
	f     *os.File
	buf   *bufio.Writer
	enc   *json.Encoder
	seen  map[string]struct{}
	count int
}

// OpenRecorder opens (or creates) the output file for appending.
func OpenRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", path, err)
	}
	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &Recorder{
		f:    f,
		buf:  buf,
		enc:  enc,
		seen: make(map[string]struct{}),
	}, nil
}

// Has reports whether url was already emitted this run.
func (r *Recorder) Has(url string) bool {
	_, ok := r.seen[url]
	return ok
}

// Add marks url as emitted for the rest of the run.
func (r *Recorder) Add(url string) {
	r.seen[url] = struct{}{}
}

// Append writes each record as one line, then flushes and syncs so the page
// is durable before the next one is requested. A crash loses at most the
// in-flight page.
func (r *Recorder) Append(records []models.Record) error {
	for _, rec := range records {
		if err := r.enc.Encode(rec); err != nil {
			return fmt.Errorf("encode record %q: %w", rec.URL, err)
		}
	}
	if err := r.buf.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	if err := r.f.Sync(); err != nil {
		return fmt.Errorf("sync output: %w", err)
	}
	r.count += len(records)
	return nil
}

// Count returns how many records this run has appended.
func (r *Recorder) Count() int {
	return r.count
}

func (r *Recorder) Close() error {
	if err := r.buf.Flush(); err != nil {
		_ = r.f.Close()
		return err
	}
	return r.f.Close()
}
