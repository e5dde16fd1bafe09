// Package index provides a Badger-backed locator that maps atom ids to
// their tier and topic address. The memory controller uses it as the fast
// path for cross-tier reads; a miss falls back to probing the tiers
// directly, so the locator is an accelerator, never the source of truth.
package index

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/mnemo/mnemo/pkg/atom"
	"github.com/mnemo/mnemo/pkg/tier"
)

// Location is where an atom currently lives.
type Location struct {
	Tier     string `json:"tier"`
	Category string `json:"category"`
	Primary  string `json:"primary"`
}

// Config holds configuration for the locator database.
type Config struct {
	Path       string
	SyncWrites bool
}

// Locator is a persistent id-to-location map.
type Locator struct {
	db *badger.DB
}

// New opens (or creates) the locator database at cfg.Path.
func New(cfg *Config) (*Locator, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("index: open %s: %w", cfg.Path, err)
	}
	return &Locator{db: db}, nil
}

func atomKey(id string) []byte {
	return []byte(fmt.Sprintf("atom:%s", id))
}

func serialize(loc Location) ([]byte, error) {
	data, err := json.Marshal(loc)
	if err != nil {
		return nil, fmt.Errorf("index: marshal location: %w", err)
	}
	return data, nil
}

// Put records the location of an atom, overwriting any previous entry.
func (l *Locator) Put(id string, loc Location) error {
	data, err := serialize(loc)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(atomKey(id), data)
	})
}

// Get returns the recorded location of an atom, or nil when the id is
// unknown. Absence is not an error.
func (l *Locator) Get(id string) (*Location, error) {
	var loc Location
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(atomKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &loc)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get %s: %w", id, err)
	}
	return &loc, nil
}

// Delete removes an atom's entry. Deleting an unknown id is a no-op.
func (l *Locator) Delete(id string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(atomKey(id))
	})
}

// Move re-points an atom at a new location in a single transaction. Used
// when a promotion moves the file between tiers.
func (l *Locator) Move(id string, to Location) error {
	data, err := serialize(to)
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(atomKey(id), data)
	})
}

// Count returns the number of indexed atoms.
func (l *Locator) Count() (int, error) {
	n := 0
	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte("atom:")
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Rebuild repopulates the index from the tier file trees and returns the
// number of atoms indexed. Used after restoring from backup or when the
// index database is lost; the file trees remain authoritative.
func (l *Locator) Rebuild(tiers []*tier.Tier) (int, error) {
	indexed := 0
	for _, t := range tiers {
		name := t.Kind().String()
		for _, id := range t.List() {
			rec := t.Read(id)
			if rec == nil {
				continue
			}
			loc := Location{Tier: name}
			if len(rec.Metadata) > 0 {
				if meta, err := atom.DecodeMetadata(rec.Metadata); err == nil {
					loc.Category = meta.Category
					loc.Primary = meta.Primary
				}
			}
			if err := l.Put(id, loc); err != nil {
				return indexed, err
			}
			indexed++
		}
	}
	return indexed, nil
}

// Close runs a value-log GC pass and closes the database. A failed GC pass
// is not fatal on close.
func (l *Locator) Close() error {
	_ = l.db.RunValueLogGC(0.5)
	return l.db.Close()
}
