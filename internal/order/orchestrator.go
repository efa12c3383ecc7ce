// Package order executes purchases over whichever path is available (API
// first, browser automation as fallback) and keeps order status reconciled
// with the marketplaces afterwards.
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/akozyrev/marketlink/internal/automation"
	"github.com/akozyrev/marketlink/internal/marketapi"
	"github.com/akozyrev/marketlink/internal/notifier"
	"github.com/akozyrev/marketlink/internal/store"
	"github.com/akozyrev/marketlink/internal/types"
)

// ErrOrderExecutionFailed means both the API and the browser path were
// exhausted without producing a marketplace order id.
var ErrOrderExecutionFailed = errors.New("order execution failed on all paths")

// ClientFactory builds an API client from stored credentials. Split out so
// tests can substitute a scripted client.
type ClientFactory func(m types.Marketplace, creds *types.Credentials) (marketapi.Client, error)

// Orchestrator runs the hybrid execution strategy.
type Orchestrator struct {
	store   store.Store
	clients ClientFactory
	drivers automation.Factory
	notify  notifier.Notifier
	log     zerolog.Logger
}

// NewOrchestrator wires the execution dependencies.
func NewOrchestrator(st store.Store, clients ClientFactory, drivers automation.Factory, notify notifier.Notifier, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:   st,
		clients: clients,
		drivers: drivers,
		notify:  notify,
		log:     log.With().Str("component", "orchestrator").Logger(),
	}
}

// Execute places the cart as an order for the user. The order record always
// lands in Completed or Failed; it is never left Processing.
func (e *Orchestrator) Execute(ctx context.Context, userID string, m types.Marketplace, cart *types.Cart) (*types.Order, error) {
	if cart == nil || cart.Empty() {
		return nil, fmt.Errorf("empty cart")
	}

	now := time.Now()
	order := &types.Order{
		ID:          uuid.NewString(),
		UserID:      userID,
		Marketplace: m,
		Status:      types.StatusPending,
		Items:       cart.Items(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.store.CreateOrder(order); err != nil {
		return nil, fmt.Errorf("create order record: %w", err)
	}
	if err := e.store.UpdateOrderStatus(order.ID, types.StatusProcessing); err != nil {
		return nil, fmt.Errorf("mark order processing: %w", err)
	}
	order.Status = types.StatusProcessing

	log := e.log.With().Str("order_id", order.ID).Str("user_id", userID).
		Str("marketplace", m.String()).Logger()

	creds := e.loadCredentials(userID, m)

	mpOrderID, apiErr := e.tryAPI(ctx, m, creds, cart)
	if apiErr != nil {
		if !errors.Is(apiErr, marketapi.ErrCredentialsMissing) {
			log.Warn().Err(apiErr).Msg("api path failed, falling back to browser")
		} else {
			log.Debug().Msg("no api credentials, using browser path")
		}
		var browserErr error
		mpOrderID, browserErr = e.tryBrowser(ctx, m, creds, cart)
		if browserErr != nil {
			log.Error().Err(browserErr).Msg("browser path failed")
			if err := e.store.UpdateOrderStatus(order.ID, types.StatusFailed); err != nil {
				log.Error().Err(err).Msg("failed to mark order failed")
			}
			order.Status = types.StatusFailed
			return order, fmt.Errorf("%w: %s", ErrOrderExecutionFailed, browserErr)
		}
	}

	order.MarketplaceOrderID = mpOrderID
	order.Status = types.StatusCompleted

	log.Info().Str("marketplace_order_id", mpOrderID).Msg("order executed")
	e.notify.OrderCompleted(userID, m, mpOrderID)

	// The purchase has happened on the marketplace at this point. A failed
	// record write must be surfaced, not swallowed: without the marketplace
	// order id on the record the reconciler can never pick the order up.
	if err := e.store.SetMarketplaceOrderID(order.ID, mpOrderID); err != nil {
		log.Error().Err(err).Msg("failed to record marketplace order id")
		return order, fmt.Errorf("order %s executed as %s but id not recorded: %w", order.ID, mpOrderID, err)
	}
	if err := e.store.UpdateOrderStatus(order.ID, types.StatusCompleted); err != nil {
		log.Error().Err(err).Msg("failed to mark order completed")
		return order, fmt.Errorf("order %s executed as %s but completion not recorded: %w", order.ID, mpOrderID, err)
	}
	return order, nil
}

// loadCredentials returns nil when the user has none stored.
func (e *Orchestrator) loadCredentials(userID string, m types.Marketplace) *types.Credentials {
	creds, err := e.store.Credentials(userID, m)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			e.log.Warn().Err(err).Str("user_id", userID).Msg("credential lookup failed")
		}
		return nil
	}
	return creds
}

// tryAPI is the cheap path: add-to-cart then create-order over the seller
// API. ErrCredentialsMissing when the user never issued API credentials.
func (e *Orchestrator) tryAPI(ctx context.Context, m types.Marketplace, creds *types.Credentials, cart *types.Cart) (string, error) {
	client, err := e.clients(m, creds)
	if err != nil {
		return "", err
	}
	if err := client.AddToCart(ctx, cart.Items()); err != nil {
		return "", fmt.Errorf("api add to cart: %w", err)
	}
	id, err := client.CreateOrder(ctx, cart)
	if err != nil {
		return "", fmt.Errorf("api create order: %w", err)
	}
	return id, nil
}

// tryBrowser is the resilience fallback: a fresh browser session, saved
// cookies restored when available, released on every exit path.
func (e *Orchestrator) tryBrowser(ctx context.Context, m types.Marketplace, creds *types.Credentials, cart *types.Cart) (string, error) {
	driver, err := e.drivers(ctx, m)
	if err != nil {
		return "", fmt.Errorf("acquire browser: %w", err)
	}
	defer driver.Close()

	if creds.HasCookies() {
		if err := driver.ImportCookies(creds.Cookies); err != nil {
			return "", fmt.Errorf("restore session cookies: %w", err)
		}
	}

	return driver.Checkout(ctx, cart)
}
