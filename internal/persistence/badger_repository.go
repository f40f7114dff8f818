package persistence

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v3"

	"launchpad-engine-go/internal/models"
)

const snapshotKeyPrefix = "sale_snapshot_"

// badgerRepository is the BadgerDB implementation of the SaleRepository.
type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository creates and returns a new repository instance connected to a BadgerDB database.
func NewBadgerRepository(dbPath string) (SaleRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	// Disable Badger's own logging to keep the app's logs clean. Errors are
	// still returned from DB operations.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &badgerRepository{db: db}, nil
}

func snapshotKey(saleID string) []byte {
	return []byte(snapshotKeyPrefix + saleID)
}

// SaveSnapshot marshals the snapshot into JSON and saves it under the sale's key.
func (r *badgerRepository) SaveSnapshot(snap *models.SaleSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(snapshotKey(snap.SaleID), data)
	})
}

// LoadSnapshot loads the snapshot for a sale ID.
// If the key is not found, it returns (nil, nil) to indicate no snapshot is present.
func (r *badgerRepository) LoadSnapshot(saleID string) (*models.SaleSnapshot, error) {
	var snap models.SaleSnapshot

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(saleID))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("snapshot value is empty in database")
			}
			return json.Unmarshal(val, &snap)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil // The expected "no snapshot found" case.
	}
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

// ListSaleIDs scans the snapshot key prefix and returns all persisted sale IDs.
func (r *badgerRepository) ListSaleIDs() ([]string, error) {
	var ids []string

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(snapshotKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			ids = append(ids, string(key[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// Close gracefully closes the connection to the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
