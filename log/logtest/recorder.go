/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/backendkit/go-backendkit/log"
)

// RecordedEntry is a single entry captured by Recorder.
type RecordedEntry struct {
	Level  log.Level
	Time   time.Time
	Text   string
	Fields []log.Field
}

// FindField returns the field with the given key.
func (re *RecordedEntry) FindField(key string) (log.Field, bool) {
	for _, f := range re.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return log.Field{}, false
}

type entryStorage struct {
	mu      sync.RWMutex
	entries []RecordedEntry
}

//nolint:gocritic
func (s *entryStorage) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.Fields)+len(e.DerivedFields))
	fields = append(fields, e.DerivedFields...)
	fields = append(fields, e.Fields...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, RecordedEntry{Level: fromLogfLevel(e.Level), Time: e.Time, Text: e.Text, Fields: fields})
}

// Recorder is a log.FieldLogger that records every entry (all levels).
type Recorder struct {
	*log.LogfAdapter
	storage *entryStorage
}

var _ log.FieldLogger = (*Recorder)(nil)

// NewRecorder creates a new Recorder.
func NewRecorder() *Recorder {
	storage := &entryStorage{}
	return &Recorder{&log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, storage)}, storage}
}

// With returns a Recorder sharing the same storage.
func (r *Recorder) With(fs ...log.Field) log.FieldLogger {
	return &Recorder{r.LogfAdapter.With(fs...).(*log.LogfAdapter), r.storage}
}

// WithLevel returns a Recorder sharing the same storage that drops entries below level.
func (r *Recorder) WithLevel(level log.Level) log.FieldLogger {
	return &Recorder{r.LogfAdapter.WithLevel(level).(*log.LogfAdapter), r.storage}
}

// Entries returns a copy of all recorded entries.
func (r *Recorder) Entries() []RecordedEntry {
	r.storage.mu.RLock()
	defer r.storage.mu.RUnlock()
	return append([]RecordedEntry(nil), r.storage.entries...)
}

// FindEntry returns the first entry with the given text.
func (r *Recorder) FindEntry(text string) (RecordedEntry, bool) {
	found := r.FindAllEntriesByFilter(func(e RecordedEntry) bool { return e.Text == text })
	if len(found) == 0 {
		return RecordedEntry{}, false
	}
	return found[0], true
}

// FindAllEntriesByFilter returns entries accepted by filter, in logging order.
func (r *Recorder) FindAllEntriesByFilter(filter func(entry RecordedEntry) bool) []RecordedEntry {
	var res []RecordedEntry
	for _, e := range r.Entries() {
		if filter(e) {
			res = append(res, e)
		}
	}
	return res
}

// Reset drops recorded entries.
func (r *Recorder) Reset() {
	r.storage.mu.Lock()
	r.storage.entries = nil
	r.storage.mu.Unlock()
}

func fromLogfLevel(level logf.Level) log.Level {
	switch level {
	case logf.LevelError:
		return log.LevelError
	case logf.LevelWarn:
		return log.LevelWarn
	case logf.LevelDebug:
		return log.LevelDebug
	default:
		return log.LevelInfo
	}
}
