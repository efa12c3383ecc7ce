package marketapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/akozyrev/marketlink/internal/types"
)

// ozonClient authenticates with the Client-Id + Api-Key header pair. The
// Ozon API is POST-with-JSON-body throughout, including reads.
type ozonClient struct {
	restClient
	clientID string
	apiKey   string
}

func newOzonClient(baseURL, clientID, apiKey string) *ozonClient {
	return &ozonClient{restClient: newRESTClient(baseURL), clientID: clientID, apiKey: apiKey}
}

func (c *ozonClient) headers() map[string]string {
	return map[string]string{
		"Client-Id": c.clientID,
		"Api-Key":   c.apiKey,
	}
}

type ozonCartItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (c *ozonClient) AddToCart(ctx context.Context, items []types.CartItem) error {
	body := make([]ozonCartItem, 0, len(items))
	for _, it := range items {
		body = append(body, ozonCartItem{SKU: it.ProductRef, Quantity: it.Quantity})
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/cart/add",
		c.headers(), map[string]any{"items": body}, nil)
}

func (c *ozonClient) CreateOrder(ctx context.Context, cart *types.Cart) (string, error) {
	var resp struct {
		Result struct {
			OrderNumber string `json:"order_number"`
		} `json:"result"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/v1/order/create",
		c.headers(), map[string]any{}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Result.OrderNumber == "" {
		return "", fmt.Errorf("order created without a number")
	}
	return resp.Result.OrderNumber, nil
}

func (c *ozonClient) FetchStatus(ctx context.Context, marketplaceOrderID string) (types.Status, error) {
	var resp struct {
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/v3/order/get",
		c.headers(), map[string]string{"order_number": marketplaceOrderID}, &resp)
	if err != nil {
		return "", err
	}
	return ozonStatus(resp.Result.Status)
}

func ozonStatus(s string) (types.Status, error) {
	switch s {
	case "awaiting_packaging", "awaiting_deliver", "acceptance_in_progress":
		return types.StatusCompleted, nil
	case "delivering", "driver_pickup":
		return types.StatusShipped, nil
	case "delivered":
		return types.StatusDelivered, nil
	case "cancelled":
		return types.StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown ozon order status %q", s)
}
