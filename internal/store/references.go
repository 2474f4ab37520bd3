// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/filmoteket/filmoteket/internal/models"
	"github.com/filmoteket/filmoteket/internal/refdata"
)

// PutGenres writes genre reference entities. Existing entries are
// overwritten; the administrative import owns these rows.
func (s *Store) PutGenres(ctx context.Context, genres []models.Genre) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, g := range genres {
			key := []byte(genreKeyPrefix + strconv.FormatInt(g.ID, 10))
			if err := txn.Set(key, []byte(g.Name)); err != nil {
				return fmt.Errorf("set genre %d: %w", g.ID, err)
			}
		}
		return nil
	})
}

// PutLanguages writes spoken-language reference entities.
func (s *Store) PutLanguages(ctx context.Context, langs []models.SpokenLanguage) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, l := range langs {
			if err := txn.Set([]byte(languageKeyPrefix+l.ISO6391), []byte(l.Name)); err != nil {
				return fmt.Errorf("set language %s: %w", l.ISO6391, err)
			}
		}
		return nil
	})
}

// PutCountries writes country reference entities.
func (s *Store) PutCountries(ctx context.Context, countries []models.Country) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, c := range countries {
			if err := txn.Set([]byte(countryKeyPrefix+c.ISO31661), []byte(c.Name)); err != nil {
				return fmt.Errorf("set country %s: %w", c.ISO31661, err)
			}
		}
		return nil
	})
}

// Snapshot loads all three reference tables into an immutable snapshot.
// Called once at the start of a run; reconciliation never reads the tables
// directly.
func (s *Store) Snapshot(ctx context.Context) (*refdata.Snapshot, error) {
	genres := make(map[int64]string)
	languages := make(map[string]string)
	countries := make(map[string]string)

	err := s.db.View(func(txn *badger.Txn) error {
		if err := scanPrefix(txn, genreKeyPrefix, func(key string, val []byte) error {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return fmt.Errorf("bad genre key %q: %w", key, err)
			}
			genres[id] = string(val)
			return nil
		}); err != nil {
			return err
		}
		if err := scanPrefix(txn, languageKeyPrefix, func(key string, val []byte) error {
			languages[key] = string(val)
			return nil
		}); err != nil {
			return err
		}
		return scanPrefix(txn, countryKeyPrefix, func(key string, val []byte) error {
			countries[key] = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load reference tables: %w", err)
	}

	return refdata.NewSnapshot(genres, languages, countries), nil
}

// scanPrefix iterates all keys under prefix, passing the suffix and value to fn.
func scanPrefix(txn *badger.Txn, prefix string, fn func(key string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = true
	it := txn.NewIterator(opts)
	defer it.Close()

	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		key := string(item.Key())[len(prefix):]
		err := item.Value(func(val []byte) error {
			return fn(key, append([]byte(nil), val...))
		})
		if err != nil {
			return err
		}
	}
	return nil
}
