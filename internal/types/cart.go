package types

import "fmt"

// CartItem is one product line in a cart. ProductRef is the marketplace's
// own handle for the product (Wildberries article number or Ozon SKU).
type CartItem struct {
	ProductRef string `json:"product_ref"`
	Quantity   int    `json:"quantity"`
}

// Cart is an ordered sequence of items. Adding the same product twice merges
// quantities instead of creating a second line.
type Cart struct {
	items []CartItem
	index map[string]int
}

// NewCart builds a cart from the given items, merging duplicates.
func NewCart(items ...CartItem) (*Cart, error) {
	c := &Cart{index: make(map[string]int)}
	for _, it := range items {
		if err := c.Add(it.ProductRef, it.Quantity); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends a product line, summing the quantity into an existing line when
// the product is already present.
func (c *Cart) Add(productRef string, quantity int) error {
	if productRef == "" {
		return fmt.Errorf("empty product ref")
	}
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[productRef]; ok {
		c.items[i].Quantity += quantity
		return nil
	}
	c.index[productRef] = len(c.items)
	c.items = append(c.items, CartItem{ProductRef: productRef, Quantity: quantity})
	return nil
}

// Items returns the merged lines in insertion order.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of distinct product lines.
func (c *Cart) Len() int { return len(c.items) }

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.items) == 0 }
