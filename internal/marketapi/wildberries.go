package marketapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akozyrev/marketlink/internal/types"
)

// wildberriesClient authenticates with a single API token.
type wildberriesClient struct {
	restClient
	token string
}

func newWildberriesClient(baseURL, token string) *wildberriesClient {
	return &wildberriesClient{restClient: newRESTClient(baseURL), token: token}
}

func (c *wildberriesClient) headers() map[string]string {
	return map[string]string{"Authorization": c.token}
}

type wbCartItem struct {
	Article  string `json:"article"`
	Quantity int    `json:"quantity"`
}

func (c *wildberriesClient) AddToCart(ctx context.Context, items []types.CartItem) error {
	body := make([]wbCartItem, 0, len(items))
	for _, it := range items {
		body = append(body, wbCartItem{Article: it.ProductRef, Quantity: it.Quantity})
	}
	return c.doJSON(ctx, http.MethodPost, "/api/v1/basket/add",
		c.headers(), map[string]any{"items": body}, nil)
}

func (c *wildberriesClient) CreateOrder(ctx context.Context, cart *types.Cart) (string, error) {
	var resp struct {
		OrderID string `json:"orderId"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/orders",
		c.headers(), map[string]any{}, &resp)
	if err != nil {
		return "", err
	}
	if resp.OrderID == "" {
		return "", fmt.Errorf("order created without an id")
	}
	return resp.OrderID, nil
}

func (c *wildberriesClient) FetchStatus(ctx context.Context, marketplaceOrderID string) (types.Status, error) {
	var resp struct {
		Status string `json:"status"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/api/v1/orders/"+marketplaceOrderID+"/status",
		c.headers(), nil, &resp)
	if err != nil {
		return "", err
	}
	return wildberriesStatus(resp.Status)
}

// wildberriesStatus maps the seller API's wire statuses onto the shared
// order lifecycle.
func wildberriesStatus(s string) (types.Status, error) {
	switch s {
	case "new", "confirm":
		return types.StatusCompleted, nil
	case "deliver", "on_the_way":
		return types.StatusShipped, nil
	case "receive", "complete":
		return types.StatusDelivered, nil
	case "cancel", "declined_by_client":
		return types.StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown wildberries order status %q", s)
}
