package order_test

import (
	"context"
	"errors"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/akozyrev/marketlink/internal/automation"
	"github.com/akozyrev/marketlink/internal/marketapi"
	"github.com/akozyrev/marketlink/internal/order"
	"github.com/akozyrev/marketlink/internal/store/storefakes"
	"github.com/akozyrev/marketlink/internal/types"
)

type fakeClient struct {
	addErr    error
	createErr error
	orderID   string
	status    types.Status
	statusErr error

	addCalls    int
	createCalls int
}

func (c *fakeClient) AddToCart(_ context.Context, _ []types.CartItem) error {
	c.addCalls++
	return c.addErr
}

func (c *fakeClient) CreateOrder(_ context.Context, _ *types.Cart) (string, error) {
	c.createCalls++
	if c.createErr != nil {
		return "", c.createErr
	}
	return c.orderID, nil
}

func (c *fakeClient) FetchStatus(_ context.Context, _ string) (types.Status, error) {
	return c.status, c.statusErr
}

type checkoutDriver struct {
	orderID     string
	checkoutErr error
	importErr   error

	checkouts  int
	imports    int
	closeCalls int
}

func (d *checkoutDriver) StartLogin(_ context.Context, _ string) error { return errors.New("not used") }
func (d *checkoutDriver) SubmitCode(_ context.Context, _ string) error { return errors.New("not used") }
func (d *checkoutDriver) ExportCookies() ([]*network.Cookie, error)    { return nil, nil }

func (d *checkoutDriver) ImportCookies(_ []*network.Cookie) error {
	d.imports++
	return d.importErr
}

func (d *checkoutDriver) Checkout(_ context.Context, _ *types.Cart) (string, error) {
	d.checkouts++
	if d.checkoutErr != nil {
		return "", d.checkoutErr
	}
	return d.orderID, nil
}

func (d *checkoutDriver) Close() { d.closeCalls++ }

type orderNotifier struct {
	completed []string
}

func (n *orderNotifier) LoginStepChanged(_ string, _ types.Marketplace, _ types.LoginStep) {}
func (n *orderNotifier) LoginFailed(_ string, _ types.Marketplace, _ types.FailReason)     {}
func (n *orderNotifier) OrderCompleted(_ string, _ types.Marketplace, id string) {
	n.completed = append(n.completed, id)
}

type harness struct {
	orch     *order.Orchestrator
	store    *storefakes.FakeStore
	client   *fakeClient
	driver   *checkoutDriver
	notify   *orderNotifier
	launches int
}

// clients returning ErrCredentialsMissing simulates a user with no API key.
func newHarness(t *testing.T, apiAvailable bool) *harness {
	t.Helper()

	h := &harness{
		store:  storefakes.NewFakeStore(),
		client: &fakeClient{orderID: "api-order-1"},
		driver: &checkoutDriver{orderID: "browser-order-1"},
		notify: &orderNotifier{},
	}
	clients := func(_ types.Marketplace, _ *types.Credentials) (marketapi.Client, error) {
		if !apiAvailable {
			return nil, marketapi.ErrCredentialsMissing
		}
		return h.client, nil
	}
	drivers := func(_ context.Context, _ types.Marketplace) (automation.Driver, error) {
		h.launches++
		return h.driver, nil
	}
	h.orch = order.NewOrchestrator(h.store, clients, drivers, h.notify, zerolog.Nop())
	return h
}

func cartWith(t *testing.T, refs ...string) *types.Cart {
	t.Helper()
	cart, err := types.NewCart()
	require.NoError(t, err)
	for _, ref := range refs {
		require.NoError(t, cart.Add(ref, 1))
	}
	return cart
}

func TestExecuteAPIPath(t *testing.T) {
	h := newHarness(t, true)

	o, err := h.orch.Execute(context.Background(), "user-1", types.Wildberries, cartWith(t, "sku-1", "sku-2"))
	require.NoError(t, err)

	require.Equal(t, types.StatusCompleted, o.Status)
	require.Equal(t, "api-order-1", o.MarketplaceOrderID)
	require.Equal(t, 1, h.client.addCalls)
	require.Equal(t, 1, h.client.createCalls)
	require.Zero(t, h.launches, "browser must not be touched when the API works")

	stored, err := h.store.Order(o.ID)
	require.NoError(t, err)
	require.Equal(t, types.StatusCompleted, stored.Status)
	require.Equal(t, "api-order-1", stored.MarketplaceOrderID)
	require.Equal(t, []string{"api-order-1"}, h.notify.completed)
}

func TestExecuteFallsBackToBrowser(t *testing.T) {
	h := newHarness(t, false)

	o, err := h.orch.Execute(context.Background(), "user-1", types.Ozon, cartWith(t, "sku-1"))
	require.NoError(t, err)

	require.Equal(t, types.StatusCompleted, o.Status)
	require.Equal(t, "browser-order-1", o.MarketplaceOrderID)
	require.Equal(t, 1, h.launches)
	require.Equal(t, 1, h.driver.checkouts)
	require.Equal(t, 1, h.driver.closeCalls, "browser released after checkout")
}

func TestExecuteAPIErrorTriggersFallback(t *testing.T) {
	h := newHarness(t, true)
	h.client.createErr = &marketapi.APIError{StatusCode: 500, Body: "oops"}

	o, err := h.orch.Execute(context.Background(), "user-1", types.Wildberries, cartWith(t, "sku-1"))
	require.NoError(t, err)

	require.Equal(t, "browser-order-1", o.MarketplaceOrderID)
	require.Equal(t, 1, h.launches)
}

func TestExecuteBothPathsFail(t *testing.T) {
	h := newHarness(t, false)
	h.driver.checkoutErr = automation.ErrCheckoutFailed

	o, err := h.orch.Execute(context.Background(), "user-1", types.Wildberries, cartWith(t, "sku-1"))
	require.ErrorIs(t, err, order.ErrOrderExecutionFailed)

	require.Equal(t, types.StatusFailed, o.Status)
	require.Equal(t, 1, h.driver.closeCalls, "browser released even on failure")

	stored, stErr := h.store.Order(o.ID)
	require.NoError(t, stErr)
	require.Equal(t, types.StatusFailed, stored.Status, "order never left stuck in processing")
	require.Empty(t, h.notify.completed)
}

func TestExecuteRestoresCookiesOnBrowserPath(t *testing.T) {
	h := newHarness(t, false)
	require.NoError(t, h.store.SaveCredentials("user-1", types.Ozon, &types.Credentials{
		Cookies: []*network.Cookie{{Name: "__Secure-access-token", Value: "tok"}},
	}))

	_, err := h.orch.Execute(context.Background(), "user-1", types.Ozon, cartWith(t, "sku-1"))
	require.NoError(t, err)
	require.Equal(t, 1, h.driver.imports)
}

func TestExecuteSkipsCookieImportWithoutCredentials(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.orch.Execute(context.Background(), "user-1", types.Ozon, cartWith(t, "sku-1"))
	require.NoError(t, err)
	require.Zero(t, h.driver.imports)
}

func TestExecuteRejectsEmptyCart(t *testing.T) {
	h := newHarness(t, true)

	empty, cartErr := types.NewCart()
	require.NoError(t, cartErr)
	_, err := h.orch.Execute(context.Background(), "user-1", types.Wildberries, empty)
	require.Error(t, err)

	_, err = h.orch.Execute(context.Background(), "user-1", types.Wildberries, nil)
	require.Error(t, err)

	open, storeErr := h.store.OpenOrders()
	require.NoError(t, storeErr)
	require.Empty(t, open, "no order record for a rejected cart")
}

// completionFailStore simulates a store that breaks right when order
// execution tries to persist its outcome.
type completionFailStore struct {
	*storefakes.FakeStore
	failCompleted bool
	failOrderID   bool
}

func (s *completionFailStore) UpdateOrderStatus(id string, status types.Status) error {
	if s.failCompleted && status == types.StatusCompleted {
		return errors.New("disk full")
	}
	return s.FakeStore.UpdateOrderStatus(id, status)
}

func (s *completionFailStore) SetMarketplaceOrderID(id, marketplaceOrderID string) error {
	if s.failOrderID {
		return errors.New("disk full")
	}
	return s.FakeStore.SetMarketplaceOrderID(id, marketplaceOrderID)
}

func TestExecuteSurfacesCompletionWriteFailure(t *testing.T) {
	h := newHarness(t, true)
	st := &completionFailStore{FakeStore: h.store, failCompleted: true}
	clients := func(_ types.Marketplace, _ *types.Credentials) (marketapi.Client, error) {
		return h.client, nil
	}
	drivers := func(_ context.Context, _ types.Marketplace) (automation.Driver, error) {
		return h.driver, nil
	}
	h.orch = order.NewOrchestrator(st, clients, drivers, h.notify, zerolog.Nop())

	o, err := h.orch.Execute(context.Background(), "user-1", types.Wildberries, cartWith(t, "sku-1"))
	require.Error(t, err)
	require.NotErrorIs(t, err, order.ErrOrderExecutionFailed)

	// the purchase itself went through
	require.Equal(t, types.StatusCompleted, o.Status)
	require.Equal(t, "api-order-1", o.MarketplaceOrderID)
	require.Equal(t, []string{"api-order-1"}, h.notify.completed)

	// the record disagrees, which is exactly what the error reports
	stored, stErr := h.store.Order(o.ID)
	require.NoError(t, stErr)
	require.Equal(t, types.StatusProcessing, stored.Status)
}

func TestExecuteSurfacesMarketplaceIDWriteFailure(t *testing.T) {
	h := newHarness(t, true)
	st := &completionFailStore{FakeStore: h.store, failOrderID: true}
	clients := func(_ types.Marketplace, _ *types.Credentials) (marketapi.Client, error) {
		return h.client, nil
	}
	drivers := func(_ context.Context, _ types.Marketplace) (automation.Driver, error) {
		return h.driver, nil
	}
	h.orch = order.NewOrchestrator(st, clients, drivers, h.notify, zerolog.Nop())

	o, err := h.orch.Execute(context.Background(), "user-1", types.Wildberries, cartWith(t, "sku-1"))
	require.Error(t, err)
	require.Equal(t, "api-order-1", o.MarketplaceOrderID)

	stored, stErr := h.store.Order(o.ID)
	require.NoError(t, stErr)
	require.Empty(t, stored.MarketplaceOrderID)
}

func TestExecuteBrowserLaunchFailure(t *testing.T) {
	h := newHarness(t, false)
	launchErr := errors.New("no chrome binary")
	drivers := func(_ context.Context, _ types.Marketplace) (automation.Driver, error) {
		return nil, launchErr
	}
	clients := func(_ types.Marketplace, _ *types.Credentials) (marketapi.Client, error) {
		return nil, marketapi.ErrCredentialsMissing
	}
	h.orch = order.NewOrchestrator(h.store, clients, drivers, h.notify, zerolog.Nop())

	o, err := h.orch.Execute(context.Background(), "user-1", types.Wildberries, cartWith(t, "sku-1"))
	require.ErrorIs(t, err, order.ErrOrderExecutionFailed)
	require.Equal(t, types.StatusFailed, o.Status)
}
