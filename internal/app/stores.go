package app

import (
	"errors"

	"go.uber.org/zap"

	"dictate/internal/config"
	"dictate/internal/db"
	"dictate/internal/dictionary"
	"dictate/internal/logging"
	"dictate/internal/snippet"
)

// Stores are the persistent dictionary and snippet sets backed by one
// database.
type Stores struct {
	DB       *db.Store
	Words    *dictionary.Store
	Snippets *snippet.Store
}

// OpenStores opens DB_PATH and loads both stores from it.
func OpenStores(cfg config.Config, log *zap.SugaredLogger) (*Stores, error) {
	log = logging.OrNop(log)
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	s := &Stores{DB: store, Words: dictionary.New(store), Snippets: snippet.New(store)}
	if err := s.Words.Load(); err != nil {
		store.Close()
		return nil, err
	}
	if err := s.Snippets.Load(); err != nil {
		store.Close()
		return nil, err
	}
	log.Debugw("stores loaded", "path", cfg.DBPath, "words", s.Words.Len(), "snippets", s.Snippets.Len())
	return s, nil
}

// Close flushes dictionary usage times and closes the database.
func (s *Stores) Close() error {
	return errors.Join(s.Words.Flush(), s.DB.Close())
}
