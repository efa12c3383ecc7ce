package marketapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akozyrev/marketlink/internal/marketapi"
	"github.com/akozyrev/marketlink/internal/types"
)

func wbClient(t *testing.T, handler http.HandlerFunc) marketapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := marketapi.ForCredentials(types.Wildberries,
		&types.Credentials{APIKey: "wb-token"},
		marketapi.Config{WildberriesBaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func ozClient(t *testing.T, handler http.HandlerFunc) marketapi.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := marketapi.ForCredentials(types.Ozon,
		&types.Credentials{APIKey: "oz-key", ClientID: "12345"},
		marketapi.Config{OzonBaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestForCredentialsMissing(t *testing.T) {
	cfg := marketapi.DefaultConfig()

	_, err := marketapi.ForCredentials(types.Wildberries, nil, cfg)
	require.ErrorIs(t, err, marketapi.ErrCredentialsMissing)

	_, err = marketapi.ForCredentials(types.Wildberries, &types.Credentials{}, cfg)
	require.ErrorIs(t, err, marketapi.ErrCredentialsMissing)

	// Ozon needs the Client-Id half of the pair too
	_, err = marketapi.ForCredentials(types.Ozon, &types.Credentials{APIKey: "key"}, cfg)
	require.ErrorIs(t, err, marketapi.ErrCredentialsMissing)
}

func TestWildberriesAddToCart(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Items []struct {
			Article  string `json:"article"`
			Quantity int    `json:"quantity"`
		} `json:"items"`
	}
	client := wbClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/basket/add", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	err := client.AddToCart(context.Background(), []types.CartItem{
		{ProductRef: "12345678", Quantity: 2},
	})
	require.NoError(t, err)
	require.Equal(t, "wb-token", gotAuth)
	require.Len(t, gotBody.Items, 1)
	require.Equal(t, "12345678", gotBody.Items[0].Article)
	require.Equal(t, 2, gotBody.Items[0].Quantity)
}

func TestWildberriesCreateOrder(t *testing.T) {
	client := wbClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/orders", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"orderId": "wb-777"})
	})

	cart, err := types.NewCart(types.CartItem{ProductRef: "12345678", Quantity: 1})
	require.NoError(t, err)

	id, err := client.CreateOrder(context.Background(), cart)
	require.NoError(t, err)
	require.Equal(t, "wb-777", id)
}

func TestWildberriesCreateOrderWithoutID(t *testing.T) {
	client := wbClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	})

	cart, err := types.NewCart(types.CartItem{ProductRef: "12345678", Quantity: 1})
	require.NoError(t, err)

	_, err = client.CreateOrder(context.Background(), cart)
	require.Error(t, err)
}

func TestWildberriesFetchStatusMapping(t *testing.T) {
	cases := []struct {
		wire string
		want types.Status
	}{
		{"new", types.StatusCompleted},
		{"confirm", types.StatusCompleted},
		{"deliver", types.StatusShipped},
		{"on_the_way", types.StatusShipped},
		{"receive", types.StatusDelivered},
		{"complete", types.StatusDelivered},
		{"cancel", types.StatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.wire, func(t *testing.T) {
			client := wbClient(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodGet, r.Method)
				require.Equal(t, "/api/v1/orders/wb-777/status", r.URL.Path)
				json.NewEncoder(w).Encode(map[string]string{"status": tc.wire})
			})
			got, err := client.FetchStatus(context.Background(), "wb-777")
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestWildberriesUnknownStatus(t *testing.T) {
	client := wbClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "quantum"})
	})

	_, err := client.FetchStatus(context.Background(), "wb-777")
	require.Error(t, err)
}

func TestWildberriesNon2xxIsAPIError(t *testing.T) {
	client := wbClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "token expired", http.StatusUnauthorized)
	})

	err := client.AddToCart(context.Background(), []types.CartItem{
		{ProductRef: "12345678", Quantity: 1},
	})
	var apiErr *marketapi.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Contains(t, apiErr.Body, "token expired")
}

func TestOzonAuthHeaders(t *testing.T) {
	var gotClientID, gotAPIKey string
	client := ozClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/cart/add", r.URL.Path)
		gotClientID = r.Header.Get("Client-Id")
		gotAPIKey = r.Header.Get("Api-Key")
		w.WriteHeader(http.StatusOK)
	})

	err := client.AddToCart(context.Background(), []types.CartItem{
		{ProductRef: "987654", Quantity: 1},
	})
	require.NoError(t, err)
	require.Equal(t, "12345", gotClientID)
	require.Equal(t, "oz-key", gotAPIKey)
}

func TestOzonCreateOrder(t *testing.T) {
	client := ozClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/order/create", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"order_number": "oz-42"},
		})
	})

	cart, err := types.NewCart(types.CartItem{ProductRef: "987654", Quantity: 1})
	require.NoError(t, err)

	id, err := client.CreateOrder(context.Background(), cart)
	require.NoError(t, err)
	require.Equal(t, "oz-42", id)
}

func TestOzonFetchStatusPostsOrderNumber(t *testing.T) {
	client := ozClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v3/order/get", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "oz-42", body["order_number"])
		json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]string{"status": "delivering"},
		})
	})

	got, err := client.FetchStatus(context.Background(), "oz-42")
	require.NoError(t, err)
	require.Equal(t, types.StatusShipped, got)
}

func TestRequestHonorsContext(t *testing.T) {
	client := wbClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.AddToCart(ctx, []types.CartItem{{ProductRef: "12345678", Quantity: 1}})
	require.ErrorIs(t, err, context.Canceled)
}
