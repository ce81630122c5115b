package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Badger key prefixes. Set members live under set:<key>\x00<member> with an
// empty value, so a prefix scan lists a set.
const (
	badgerValuePrefix = "kv:"
	badgerSetPrefix   = "set:"
)

// BadgerDB is an embedded store for single-node deployments
type BadgerDB struct {
	db *badger.DB
}

// NewBadgerDB opens a Badger directory. An empty path opens an in-memory store.
func NewBadgerDB(path string) (*BadgerDB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &BadgerDB{db: db}, nil
}

func (b *BadgerDB) Close() error {
	return b.db.Close()
}

// Ping reports whether the database is still open
func (b *BadgerDB) Ping(ctx context.Context) error {
	if b.db.IsClosed() {
		return errors.New("badger db is closed")
	}
	return nil
}

func (b *BadgerDB) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerValuePrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return keyNotFound(key)
		}
		if err != nil {
			return fmt.Errorf("failed to get key: %w", err)
		}
		return item.Value(func(val []byte) error {
			value = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

func (b *BadgerDB) Set(ctx context.Context, key, value string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerValuePrefix+key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

func (b *BadgerDB) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, m := range members {
			if err := txn.Set(setMemberKey(key, m), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add set member: %w", err)
	}
	return nil
}

func (b *BadgerDB) SMembers(ctx context.Context, key string) ([]string, error) {
	members := []string{}
	err := b.scanSet(key, func(member string) {
		members = append(members, member)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read set members: %w", err)
	}
	return members, nil
}

func (b *BadgerDB) SCard(ctx context.Context, key string) (int64, error) {
	var n int64
	err := b.scanSet(key, func(string) { n++ })
	if err != nil {
		return 0, fmt.Errorf("failed to read set cardinality: %w", err)
	}
	return n, nil
}

func (b *BadgerDB) scanSet(key string, fn func(member string)) error {
	prefix := setMemberKey(key, "")
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			fn(string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
}

func setMemberKey(key, member string) []byte {
	return []byte(badgerSetPrefix + key + "\x00" + member)
}
