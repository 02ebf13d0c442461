package storage

import (
	"fmt"
	"sync"

	"github.com/chainfleet/groupmgr/pkg/grouperrors"
	bolt "go.etcd.io/bbolt"
)

// TabularStore is the external tabular key-value store contract: primary-key
// row operations against named tables. The concrete backend (an external
// system in production) is out of scope for the group manager core; this
// interface is the boundary it talks across.
type TabularStore interface {
	// CreateTable creates table with the given field names. It returns
	// grouperrors.ErrTableExists (wrapped) if the table already exists.
	CreateTable(table string, fields []string) error

	// GetPrimaryKeys returns every primary key currently stored in table.
	GetPrimaryKeys(table string) ([]string, error)

	// GetRows fetches rows by key. Missing keys yield a nil entry at the
	// same index, mirroring a vector<optional<entry>> result.
	GetRows(table string, keys []string) ([]Row, error)

	// SetRow upserts a single row under key.
	SetRow(table, key string, entry Row) error

	// SetRows upserts many rows in one batch.
	SetRows(table string, entries map[string]Row) error
}

// BoltTabularStore implements TabularStore on top of go.etcd.io/bbolt: one
// bucket per logical table, rows addressed by primary key within the
// bucket, and each row serialized with the package's length-prefixed codec.
type BoltTabularStore struct {
	mu sync.Mutex
	db *bolt.DB
}

// NewBoltTabularStore opens (creating if necessary) a bbolt database at path.
func NewBoltTabularStore(path string) (*BoltTabularStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt store %s: %w", path, err)
	}
	return &BoltTabularStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltTabularStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database file is still open and readable.
func (s *BoltTabularStore) Ping() error {
	return s.db.View(func(tx *bolt.Tx) error { return nil })
}

func (s *BoltTabularStore) CreateTable(table string, fields []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(table)) != nil {
			return fmt.Errorf("create table %s: %w", table, grouperrors.ErrTableExists)
		}
		_, err := tx.CreateBucket([]byte(table))
		if err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		return nil
	})
}

func (s *BoltTabularStore) GetPrimaryKeys(table string) ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

func (s *BoltTabularStore) GetRows(table string, keys []string) ([]Row, error) {
	rows := make([]Row, len(keys))
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return nil
		}
		for i, key := range keys {
			data := b.Get([]byte(key))
			if data == nil {
				continue
			}
			row, err := decodeRow(data)
			if err != nil {
				return fmt.Errorf("decode row %s/%s: %w", table, key, err)
			}
			rows[i] = row
		}
		return nil
	})
	return rows, err
}

func (s *BoltTabularStore) SetRow(table, key string, entry Row) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return fmt.Errorf("open table %s: %w", table, err)
		}
		return b.Put([]byte(key), encodeRow(entry))
	})
}

func (s *BoltTabularStore) SetRows(table string, entries map[string]Row) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return fmt.Errorf("open table %s: %w", table, err)
		}
		for key, row := range entries {
			if err := b.Put([]byte(key), encodeRow(row)); err != nil {
				return fmt.Errorf("set row %s/%s: %w", table, key, err)
			}
		}
		return nil
	})
}
