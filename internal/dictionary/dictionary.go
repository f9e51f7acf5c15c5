// Package dictionary holds the personal vocabulary: spoken forms the
// recognizer gets wrong and the display form they should become.
package dictionary

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dictate/internal/phrase"
)

// ErrNotFound is returned when removing a spoken form that is not stored.
var ErrNotFound = errors.New("dictionary entry not found")

// Provenance records who created an entry.
type Provenance string

const (
	Manual Provenance = "manual"
	Auto   Provenance = "auto"
)

// Entry maps a normalized spoken form to its corrected display form.
type Entry struct {
	Spoken     string
	Corrected  string
	Provenance Provenance
	LastUsed   time.Time
	CreatedAt  time.Time
}

// Repository persists entries. Writes reach the repository before the
// in-memory set changes.
type Repository interface {
	LoadWords() ([]Entry, error)
	SaveWord(e Entry) error
	DeleteWord(spoken string) error
}

type record struct {
	entry    Entry
	lastUsed atomic.Int64
}

// Store is safe for concurrent use. Correct takes a read lock for the whole
// substitution, so a reader sees the entry set either before or after a
// write, never in between.
type Store struct {
	mu             sync.RWMutex
	entries        map[string]*record
	corrected      map[string]struct{}
	correctedForms []string
	maxWords       int
	repo           Repository
	now            func() time.Time
}

// New creates an empty store. repo may be nil for a memory-only store.
func New(repo Repository) *Store {
	return &Store{
		entries:   make(map[string]*record),
		corrected: make(map[string]struct{}),
		repo:      repo,
		now:       time.Now,
	}
}

// Load replaces the in-memory set with the repository contents.
func (s *Store) Load() error {
	if s.repo == nil {
		return nil
	}
	list, err := s.repo.LoadWords()
	if err != nil {
		return fmt.Errorf("load dictionary: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*record, len(list))
	for _, e := range list {
		key := phrase.Key(e.Spoken)
		if key == "" {
			continue
		}
		e.Spoken = key
		r := &record{entry: e}
		if !e.LastUsed.IsZero() {
			r.lastUsed.Store(e.LastUsed.UnixNano())
		}
		s.entries[key] = r
	}
	s.reindex()
	return nil
}

// Flush writes last-used times that Correct changed since the entries were
// loaded or saved.
func (s *Store) Flush() error {
	if s.repo == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, r := range s.entries {
		ns := r.lastUsed.Load()
		if ns == 0 || (!r.entry.LastUsed.IsZero() && r.entry.LastUsed.UnixNano() == ns) {
			continue
		}
		e := r.snapshot()
		if err := s.repo.SaveWord(e); err != nil {
			errs = append(errs, fmt.Errorf("save last use of %q: %w", e.Spoken, err))
			continue
		}
		r.entry.LastUsed = e.LastUsed
	}
	return errors.Join(errs...)
}

// Correct replaces every known spoken form in text with its corrected form.
// Matching is case-insensitive and word aligned; at each position the longest
// known phrase wins and substituted text is not scanned again. Text that is
// already a stored corrected form, punctuation included, is left untouched, so
// Correct is idempotent.
func (s *Store) Correct(text string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return text
	}
	now := s.now().UnixNano()
	skip := phrase.Literals(text, s.correctedForms)
	return phrase.RewriteExcept(text, s.maxWords, skip, func(key, span string) (string, bool) {
		if _, ok := s.corrected[span]; ok {
			return span, true
		}
		r, ok := s.entries[key]
		if !ok {
			return "", false
		}
		r.lastUsed.Store(now)
		return r.entry.Corrected, true
	})
}

// Add upserts a manual entry.
func (s *Store) Add(spoken, corrected string) error {
	_, err := s.put(spoken, corrected, Manual)
	return err
}

// Learn upserts an auto-learned entry. It never replaces a manual entry and
// reports whether the store changed.
func (s *Store) Learn(spoken, corrected string) (bool, error) {
	return s.put(spoken, corrected, Auto)
}

func (s *Store) put(spoken, corrected string, prov Provenance) (bool, error) {
	key := phrase.Key(spoken)
	corrected = strings.TrimSpace(corrected)
	if key == "" {
		return false, fmt.Errorf("spoken form %q has no words", spoken)
	}
	if corrected == "" {
		return false, fmt.Errorf("corrected form for %q is empty", spoken)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	created := now
	if old, ok := s.entries[key]; ok {
		if prov == Auto && old.entry.Provenance == Manual {
			return false, nil
		}
		if old.entry.Corrected == corrected && old.entry.Provenance == prov {
			return false, nil
		}
		created = old.entry.CreatedAt
	}

	e := Entry{Spoken: key, Corrected: corrected, Provenance: prov, LastUsed: now, CreatedAt: created}
	if s.repo != nil {
		if err := s.repo.SaveWord(e); err != nil {
			return false, fmt.Errorf("save word %q: %w", key, err)
		}
	}
	r := &record{entry: e}
	r.lastUsed.Store(now.UnixNano())
	s.entries[key] = r
	s.reindex()
	return true, nil
}

// Remove deletes the entry for spoken, or returns ErrNotFound.
func (s *Store) Remove(spoken string) error {
	key := phrase.Key(spoken)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, spoken)
	}
	if s.repo != nil {
		if err := s.repo.DeleteWord(key); err != nil {
			return fmt.Errorf("delete word %q: %w", key, err)
		}
	}
	delete(s.entries, key)
	s.reindex()
	return nil
}

// Get returns the entry stored for spoken.
func (s *Store) Get(spoken string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.entries[phrase.Key(spoken)]
	if !ok {
		return Entry{}, false
	}
	return r.snapshot(), true
}

// Entries returns a copy of all entries sorted by spoken form.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, r := range s.entries {
		out = append(out, r.snapshot())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Spoken < out[j].Spoken })
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (r *record) snapshot() Entry {
	e := r.entry
	if ns := r.lastUsed.Load(); ns != 0 {
		e.LastUsed = time.Unix(0, ns)
	}
	return e
}

// reindex must be called with the write lock held.
func (s *Store) reindex() {
	s.maxWords = 0
	s.corrected = make(map[string]struct{}, len(s.entries))
	for key, r := range s.entries {
		if n := phrase.WordCount(key); n > s.maxWords {
			s.maxWords = n
		}
		if n := len(phrase.Tokenize(r.entry.Corrected)); n > s.maxWords {
			s.maxWords = n
		}
		s.corrected[r.entry.Corrected] = struct{}{}
	}
	s.correctedForms = make([]string, 0, len(s.corrected))
	for form := range s.corrected {
		s.correctedForms = append(s.correctedForms, form)
	}
}
