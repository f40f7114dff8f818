package persistence

import "launchpad-engine-go/internal/models"

// SaleRepository defines the interface for sale snapshot persistence.
// It abstracts the underlying storage mechanism (e.g., BadgerDB, in-memory)
// from the rest of the application.
type SaleRepository interface {
	// SaveSnapshot atomically saves the full state of one sale.
	SaveSnapshot(snap *models.SaleSnapshot) error

	// LoadSnapshot loads the snapshot for a sale ID.
	// If no snapshot is found, it should return (nil, nil).
	LoadSnapshot(saleID string) (*models.SaleSnapshot, error)

	// ListSaleIDs returns the IDs of all persisted sales.
	ListSaleIDs() ([]string, error)

	// Close gracefully closes the connection to the database.
	Close() error
}
