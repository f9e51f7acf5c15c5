// Package snippet expands spoken trigger phrases into stored text.
package snippet

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"dictate/internal/phrase"
)

// ErrNotFound is returned when removing a trigger that is not stored.
var ErrNotFound = errors.New("snippet not found")

// Entry maps a normalized trigger to its expansion.
type Entry struct {
	Trigger   string
	Expansion string
	CreatedAt time.Time
}

// Repository persists snippets.
type Repository interface {
	LoadSnippets() ([]Entry, error)
	SaveSnippet(e Entry) error
	DeleteSnippet(trigger string) error
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	maxWords int
	repo     Repository
}

// New creates an empty store. repo may be nil.
func New(repo Repository) *Store {
	return &Store{entries: make(map[string]Entry), repo: repo}
}

// Load replaces the in-memory set with the repository contents.
func (s *Store) Load() error {
	if s.repo == nil {
		return nil
	}
	list, err := s.repo.LoadSnippets()
	if err != nil {
		return fmt.Errorf("load snippets: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry, len(list))
	for _, e := range list {
		key := phrase.Key(e.Trigger)
		if key == "" {
			continue
		}
		e.Trigger = key
		s.entries[key] = e
	}
	s.reindex()
	return nil
}

// Expand replaces every trigger phrase in text with its expansion. Triggers
// match whole words, case-insensitively, longest first. Expansions are
// inserted verbatim and never scanned for further triggers.
func (s *Store) Expand(text string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return text
	}
	return phrase.Rewrite(text, s.maxWords, func(key, _ string) (string, bool) {
		e, ok := s.entries[key]
		if !ok {
			return "", false
		}
		return e.Expansion, true
	})
}

// Add upserts a snippet.
func (s *Store) Add(trigger, expansion string) error {
	key := phrase.Key(trigger)
	if key == "" {
		return fmt.Errorf("trigger %q has no words", trigger)
	}
	if strings.TrimSpace(expansion) == "" {
		return fmt.Errorf("expansion for %q is empty", trigger)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := Entry{Trigger: key, Expansion: expansion, CreatedAt: time.Now()}
	if old, ok := s.entries[key]; ok {
		e.CreatedAt = old.CreatedAt
	}
	if s.repo != nil {
		if err := s.repo.SaveSnippet(e); err != nil {
			return fmt.Errorf("save snippet %q: %w", key, err)
		}
	}
	s.entries[key] = e
	s.reindex()
	return nil
}

// Remove deletes a snippet, or returns ErrNotFound.
func (s *Store) Remove(trigger string) error {
	key := phrase.Key(trigger)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, trigger)
	}
	if s.repo != nil {
		if err := s.repo.DeleteSnippet(key); err != nil {
			return fmt.Errorf("delete snippet %q: %w", key, err)
		}
	}
	delete(s.entries, key)
	s.reindex()
	return nil
}

// Entries returns all snippets sorted by trigger.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Trigger < out[j].Trigger })
	return out
}

// Len returns the number of snippets.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store) reindex() {
	s.maxWords = 0
	for key := range s.entries {
		if n := phrase.WordCount(key); n > s.maxWords {
			s.maxWords = n
		}
	}
}
