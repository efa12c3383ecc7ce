// Package store is the record-store boundary the core depends on. The
// sqlite implementation lives alongside; tests use the in-memory fake from
// storefakes.
package store

import (
	"errors"

	"github.com/akozyrev/marketlink/internal/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence collaborator. Schema and migration concerns stay
// behind this interface.
type Store interface {
	// Credentials returns the stored credentials for a (user, marketplace)
	// pair, or ErrNotFound.
	Credentials(userID string, m types.Marketplace) (*types.Credentials, error)
	SaveCredentials(userID string, m types.Marketplace, creds *types.Credentials) error

	CreateOrder(o *types.Order) error
	Order(id string) (*types.Order, error)

	// UpdateOrderStatus enforces the monotonic lifecycle: transitions out
	// of a terminal state are rejected.
	UpdateOrderStatus(id string, status types.Status) error
	SetMarketplaceOrderID(id, marketplaceOrderID string) error

	// OpenOrders returns every order still trackable by the reconciler.
	OpenOrders() ([]types.Order, error)

	Close() error
}
