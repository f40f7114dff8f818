package persistence

import (
	"encoding/json"
	"sync"

	"launchpad-engine-go/internal/models"
)

// memoryRepository is an in-memory SaleRepository used in tests and for
// ephemeral runs where no database path is configured. Snapshots are stored
// as their JSON encoding so save/load semantics match the Badger backend.
type memoryRepository struct {
	mu    sync.Mutex
	snaps map[string][]byte
}

// NewMemoryRepository creates an in-memory repository.
func NewMemoryRepository() SaleRepository {
	return &memoryRepository{snaps: make(map[string][]byte)}
}

func (r *memoryRepository) SaveSnapshot(snap *models.SaleSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps[snap.SaleID] = data
	return nil
}

func (r *memoryRepository) LoadSnapshot(saleID string) (*models.SaleSnapshot, error) {
	r.mu.Lock()
	data, ok := r.snaps[saleID]
	r.mu.Unlock()

	if !ok {
		return nil, nil
	}

	var snap models.SaleSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *memoryRepository) ListSaleIDs() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.snaps))
	for id := range r.snaps {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memoryRepository) Close() error {
	return nil
}
