// Package app is the façade the chat presentation layer calls into. It
// owns no behavior of its own; it validates input and delegates to the
// linker and the order orchestrator.
package app

import (
	"context"

	"github.com/akozyrev/marketlink/internal/linker"
	"github.com/akozyrev/marketlink/internal/order"
	"github.com/akozyrev/marketlink/internal/store"
	"github.com/akozyrev/marketlink/internal/types"
)

// Core bundles the account-linking and order-execution entry points.
type Core struct {
	linker *linker.Registry
	orders *order.Orchestrator
	store  store.Store
}

// New creates the Core façade.
func New(l *linker.Registry, o *order.Orchestrator, st store.Store) *Core {
	return &Core{linker: l, orders: o, store: st}
}

// LinkAccount starts a linking session for the user on the named
// marketplace.
func (c *Core) LinkAccount(userID, marketplace string) error {
	m, err := types.ParseMarketplace(marketplace)
	if err != nil {
		return err
	}
	return c.linker.Begin(userID, m)
}

// SubmitIdentifier forwards the user's phone/email into their linking
// session.
func (c *Core) SubmitIdentifier(ctx context.Context, userID, identifier string) error {
	return c.linker.SubmitIdentifier(ctx, userID, identifier)
}

// SubmitCode forwards the verification code.
func (c *Core) SubmitCode(ctx context.Context, userID, code string) error {
	return c.linker.SubmitCode(ctx, userID, code)
}

// CancelLink tears down the user's linking session, if any.
func (c *Core) CancelLink(userID string) {
	c.linker.Cancel(userID)
}

// LinkStep reports the user's current linking step.
func (c *Core) LinkStep(userID string) (types.LoginStep, bool) {
	return c.linker.Active(userID)
}

// Purchase merges the requested items into a cart and executes it.
func (c *Core) Purchase(ctx context.Context, userID, marketplace string, items []types.CartItem) (*types.Order, error) {
	m, err := types.ParseMarketplace(marketplace)
	if err != nil {
		return nil, err
	}
	cart, err := types.NewCart(items...)
	if err != nil {
		return nil, err
	}
	return c.orders.Execute(ctx, userID, m, cart)
}

// OrderStatus looks up an order record.
func (c *Core) OrderStatus(orderID string) (*types.Order, error) {
	return c.store.Order(orderID)
}
