// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package store persists canonical movie records and reference tables in
// BadgerDB. Records are stored as JSON documents keyed by provider id, with
// two secondary indexes: an IMDb-id index used by the bulk feed importer to
// filter feed rows to known movies, and an unfetched-flag index that feeds
// the worker pool.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/filmoteket/filmoteket/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	movieKeyPrefix     = "movie:"
	imdbKeyPrefix      = "imdb:"
	unfetchedKeyPrefix = "unfetched:"
	genreKeyPrefix     = "ref:genre:"
	languageKeyPrefix  = "ref:lang:"
	countryKeyPrefix   = "ref:country:"
)

// ErrMovieNotFound is returned when a movie id has no record in the store.
var ErrMovieNotFound = errors.New("movie not found")

// Store wraps a BadgerDB handle with catalog operations.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store at the given directory.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens an in-memory store, used by tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger in-memory: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func movieKey(id int64) []byte {
	return []byte(movieKeyPrefix + strconv.FormatInt(id, 10))
}

func unfetchedKey(id int64) []byte {
	return []byte(unfetchedKeyPrefix + strconv.FormatInt(id, 10))
}

// UpsertMovie writes a movie record and maintains the IMDb and unfetched
// indexes. The same id always maps to the same key, so reapplying an
// identical record is a no-op content-wise.
func (s *Store) UpsertMovie(ctx context.Context, m *models.Movie) error {
	return s.db.Update(func(txn *badger.Txn) error {
		prevIMDBID := ""
		if prev, err := getMovieTxn(txn, m.ID); err == nil {
			prevIMDBID = prev.IMDBID
		} else if !errors.Is(err, ErrMovieNotFound) {
			return err
		}
		return putMovieTxn(txn, prevIMDBID, m)
	})
}

// putMovieTxn writes a record and its index entries inside txn. prevIMDBID is
// the IMDb id the stored record carried before this write, so a stale index
// entry can be dropped when the join key changed.
func putMovieTxn(txn *badger.Txn, prevIMDBID string, m *models.Movie) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal movie %d: %w", m.ID, err)
	}

	if prevIMDBID != "" && prevIMDBID != m.IMDBID {
		if err := txn.Delete([]byte(imdbKeyPrefix + prevIMDBID)); err != nil {
			return fmt.Errorf("delete stale imdb index: %w", err)
		}
	}

	if err := txn.Set(movieKey(m.ID), data); err != nil {
		return fmt.Errorf("set movie: %w", err)
	}

	if m.IMDBID != "" {
		idVal := []byte(strconv.FormatInt(m.ID, 10))
		if err := txn.Set([]byte(imdbKeyPrefix+m.IMDBID), idVal); err != nil {
			return fmt.Errorf("set imdb index: %w", err)
		}
	}

	if m.Fetched {
		if err := txn.Delete(unfetchedKey(m.ID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("clear unfetched flag: %w", err)
		}
	} else {
		if err := txn.Set(unfetchedKey(m.ID), nil); err != nil {
			return fmt.Errorf("set unfetched flag: %w", err)
		}
	}
	return nil
}

// maxUpdateRetries bounds commit retries when concurrent writers collide on
// the same record.
const maxUpdateRetries = 10

// UpdateMovieByIMDBID resolves an IMDb id, applies fn to the record behind it
// and writes the result back, all in one transaction. Concurrent feed
// consumers updating the same record therefore cannot interleave between the
// read and the write; a conflicting commit is retried against fresh state.
// Returns ErrMovieNotFound when the IMDb id is unknown.
func (s *Store) UpdateMovieByIMDBID(ctx context.Context, imdbID string, fn func(*models.Movie) error) error {
	for attempt := 0; ; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get([]byte(imdbKeyPrefix + imdbID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrMovieNotFound
			}
			if err != nil {
				return fmt.Errorf("get imdb index %s: %w", imdbID, err)
			}

			var id int64
			err = item.Value(func(val []byte) error {
				id, err = strconv.ParseInt(string(val), 10, 64)
				return err
			})
			if err != nil {
				return fmt.Errorf("decode imdb index %s: %w", imdbID, err)
			}

			m, err := getMovieTxn(txn, id)
			if err != nil {
				return err
			}
			prevIMDBID := m.IMDBID
			if err := fn(m); err != nil {
				return err
			}
			return putMovieTxn(txn, prevIMDBID, m)
		})
		if errors.Is(err, badger.ErrConflict) && attempt < maxUpdateRetries {
			continue
		}
		return err
	}
}

// GetMovie retrieves a movie by provider id.
func (s *Store) GetMovie(ctx context.Context, id int64) (*models.Movie, error) {
	var m *models.Movie
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		m, err = getMovieTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func getMovieTxn(txn *badger.Txn, id int64) (*models.Movie, error) {
	item, err := txn.Get(movieKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}

	var m models.Movie
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal movie %d: %w", id, err)
	}
	return &m, nil
}

// DeleteMovie removes a movie and its index entries. Deleting an absent id is
// not an error.
func (s *Store) DeleteMovie(ctx context.Context, id int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		prev, err := getMovieTxn(txn, id)
		if errors.Is(err, ErrMovieNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := txn.Delete(movieKey(id)); err != nil {
			return fmt.Errorf("delete movie: %w", err)
		}
		if prev.IMDBID != "" {
			if err := txn.Delete([]byte(imdbKeyPrefix + prev.IMDBID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("delete imdb index: %w", err)
			}
		}
		if err := txn.Delete(unfetchedKey(id)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete unfetched flag: %w", err)
		}
		return nil
	})
}

// PutStub inserts an unfetched placeholder unless the id already exists.
// Returns true if a stub was created.
func (s *Store) PutStub(ctx context.Context, id int64) (bool, error) {
	created := false
	err := s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(movieKey(id))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check movie %d: %w", id, err)
		}

		stub := models.NewStub(id)
		data, err := json.Marshal(stub)
		if err != nil {
			return fmt.Errorf("marshal stub %d: %w", id, err)
		}
		if err := txn.Set(movieKey(id), data); err != nil {
			return fmt.Errorf("set stub: %w", err)
		}
		if err := txn.Set(unfetchedKey(id), nil); err != nil {
			return fmt.Errorf("set unfetched flag: %w", err)
		}
		created = true
		return nil
	})
	return created, err
}

// UnfetchedIDs returns all ids flagged as not yet enriched.
func (s *Store) UnfetchedIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(unfetchedKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			id, err := strconv.ParseInt(key[len(unfetchedKeyPrefix):], 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan unfetched ids: %w", err)
	}
	return ids, nil
}

// MovieIDByIMDBID resolves an IMDb id to a provider id via the secondary
// index. Returns ErrMovieNotFound if the IMDb id is unknown.
func (s *Store) MovieIDByIMDBID(ctx context.Context, imdbID string) (int64, error) {
	var id int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(imdbKeyPrefix + imdbID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrMovieNotFound
		}
		if err != nil {
			return fmt.Errorf("get imdb index %s: %w", imdbID, err)
		}
		return item.Value(func(val []byte) error {
			id, err = strconv.ParseInt(string(val), 10, 64)
			return err
		})
	})
	return id, err
}

// KnownIMDBIDs reports which of the given IMDb ids exist in the store. This
// is the membership query behind bulk feed filtering.
func (s *Store) KnownIMDBIDs(ctx context.Context, imdbIDs []string) (map[string]bool, error) {
	known := make(map[string]bool, len(imdbIDs))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, imdbID := range imdbIDs {
			_, err := txn.Get([]byte(imdbKeyPrefix + imdbID))
			if err == nil {
				known[imdbID] = true
				continue
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("get imdb index %s: %w", imdbID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return known, nil
}

// MoviesByIMDBIDs loads the movies behind the given IMDb ids. Unknown ids are
// skipped, matching the at-least-once, last-write-wins bulk path.
func (s *Store) MoviesByIMDBIDs(ctx context.Context, imdbIDs []string) ([]*models.Movie, error) {
	var movies []*models.Movie
	err := s.db.View(func(txn *badger.Txn) error {
		for _, imdbID := range imdbIDs {
			item, err := txn.Get([]byte(imdbKeyPrefix + imdbID))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("get imdb index %s: %w", imdbID, err)
			}

			var id int64
			err = item.Value(func(val []byte) error {
				id, err = strconv.ParseInt(string(val), 10, 64)
				return err
			})
			if err != nil {
				return fmt.Errorf("decode imdb index %s: %w", imdbID, err)
			}

			m, err := getMovieTxn(txn, id)
			if errors.Is(err, ErrMovieNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			movies = append(movies, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movies, nil
}
