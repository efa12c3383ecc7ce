package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akozyrev/marketlink/internal/types"
)

func TestCartMergesDuplicateProducts(t *testing.T) {
	cart, err := types.NewCart(
		types.CartItem{ProductRef: "100200", Quantity: 1},
		types.CartItem{ProductRef: "300400", Quantity: 2},
		types.CartItem{ProductRef: "100200", Quantity: 3},
	)
	require.NoError(t, err)

	items := cart.Items()
	require.Len(t, items, 2)
	require.Equal(t, types.CartItem{ProductRef: "100200", Quantity: 4}, items[0])
	require.Equal(t, types.CartItem{ProductRef: "300400", Quantity: 2}, items[1])
}

func TestCartRejectsBadQuantities(t *testing.T) {
	cart := &types.Cart{}
	require.Error(t, cart.Add("100200", 0))
	require.Error(t, cart.Add("100200", -1))
	require.Error(t, cart.Add("", 1))
	require.True(t, cart.Empty())
}

func TestCartItemsAreACopy(t *testing.T) {
	cart, err := types.NewCart(types.CartItem{ProductRef: "100200", Quantity: 1})
	require.NoError(t, err)

	items := cart.Items()
	items[0].Quantity = 99

	require.Equal(t, 1, cart.Items()[0].Quantity)
}
