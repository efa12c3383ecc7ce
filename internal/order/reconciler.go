package order

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/akozyrev/marketlink/internal/store"
)

// Reconciler re-polls open orders against the marketplace APIs and persists
// status changes. It runs on a schedule, independent of any linking or
// execution flow, and never contends for browser sessions.
type Reconciler struct {
	store   store.Store
	clients ClientFactory
	log     zerolog.Logger
}

// NewReconciler wires the reconciliation dependencies.
func NewReconciler(st store.Store, clients ClientFactory, log zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:   st,
		clients: clients,
		log:     log.With().Str("component", "reconciler").Logger(),
	}
}

// Run performs one reconciliation cycle. Orders whose credentials cannot be
// loaded or whose API call fails are skipped and picked up next cycle; a
// polling failure never marks an order Failed. A cycle with no underlying
// changes writes nothing.
func (r *Reconciler) Run(ctx context.Context) error {
	orders, err := r.store.OpenOrders()
	if err != nil {
		return err
	}

	checked, updated := 0, 0
	for _, o := range orders {
		// Only orders that completed on the marketplace side carry the
		// join key needed for polling.
		if o.MarketplaceOrderID == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		checked++

		log := r.log.With().Str("order_id", o.ID).Str("marketplace", o.Marketplace.String()).Logger()

		creds, err := r.store.Credentials(o.UserID, o.Marketplace)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Warn().Err(err).Msg("credential lookup failed, skipping")
			}
			continue
		}

		client, err := r.clients(o.Marketplace, creds)
		if err != nil {
			log.Debug().Err(err).Msg("no api client for order, skipping")
			continue
		}

		status, err := client.FetchStatus(ctx, o.MarketplaceOrderID)
		if err != nil {
			log.Warn().Err(err).Msg("status fetch failed, retrying next cycle")
			continue
		}

		if status == o.Status || !o.Status.CanTransition(status) {
			continue
		}
		if err := r.store.UpdateOrderStatus(o.ID, status); err != nil {
			log.Warn().Err(err).Msg("status update failed")
			continue
		}
		updated++
		log.Info().Str("from", string(o.Status)).Str("to", string(status)).Msg("order status reconciled")
	}

	r.log.Debug().Int("checked", checked).Int("updated", updated).Msg("reconciliation cycle done")
	return nil
}
