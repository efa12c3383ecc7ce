// Package storefakes provides an in-memory Store for tests.
package storefakes

import (
	"fmt"
	"sync"

	"github.com/akozyrev/marketlink/internal/store"
	"github.com/akozyrev/marketlink/internal/types"
)

// FakeStore is a mutex-guarded in-memory Store. StatusWrites counts
// UpdateOrderStatus calls so tests can assert reconciler idempotence.
type FakeStore struct {
	mu           sync.Mutex
	creds        map[string]*types.Credentials
	orders       map[string]*types.Order
	StatusWrites int
}

var _ store.Store = (*FakeStore)(nil)

// NewFakeStore creates an empty fake store.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		creds:  make(map[string]*types.Credentials),
		orders: make(map[string]*types.Order),
	}
}

func credKey(userID string, m types.Marketplace) string {
	return userID + "/" + m.String()
}

func (f *FakeStore) Credentials(userID string, m types.Marketplace) (*types.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[credKey(userID, m)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *FakeStore) SaveCredentials(userID string, m types.Marketplace, creds *types.Credentials) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *creds
	f.creds[credKey(userID, m)] = &cp
	return nil
}

func (f *FakeStore) CreateOrder(o *types.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[o.ID]; ok {
		return fmt.Errorf("duplicate order id %s", o.ID)
	}
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *FakeStore) Order(id string) (*types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *FakeStore) UpdateOrderStatus(id string, status types.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	if !o.Status.CanTransition(status) {
		return fmt.Errorf("illegal order transition %s -> %s", o.Status, status)
	}
	o.Status = status
	f.StatusWrites++
	return nil
}

func (f *FakeStore) SetMarketplaceOrderID(id, marketplaceOrderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	o.MarketplaceOrderID = marketplaceOrderID
	return nil
}

func (f *FakeStore) OpenOrders() ([]types.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Order
	for _, o := range f.orders {
		if o.Status.Trackable() {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *FakeStore) Close() error { return nil }
