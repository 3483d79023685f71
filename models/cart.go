package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine binds a product option to a quantity and the price agreed at add time
type CartLine struct {
	ID         string          `json:"_id"`
	ProductID  string          `json:"product"`
	OptionID   string          `json:"optionId"`
	Name       string          `json:"name"`
	OptionName string          `json:"optionName"`
	Img        string          `json:"img,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

// LineTotal is the snapshot price times the quantity.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the last authoritative cart reported by the store API
type Cart struct {
	Lines     []CartLine      `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// TotalItemCount sums the quantities of all lines.
func (c Cart) TotalItemCount() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Clone returns a deep copy safe to hand out to callers.
func (c Cart) Clone() Cart {
	out := c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

// FindLine looks up a line by its server id.
func (c Cart) FindLine(lineID string) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return CartLine{}, false
}

// AddCartItemRequest is the body of POST /cart/items
type AddCartItemRequest struct {
	ProductID string `json:"productId"`
	OptionID  string `json:"optionId"`
	Quantity  int    `json:"quantity"`
}

// UpdateCartItemRequest is the body of PATCH /cart/items/{id}
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// DecodeCartEnvelope reads the `{cart: {items}, subtotal}` envelope every cart endpoint returns.
// A missing items array reads as an empty cart and a non-numeric subtotal as zero.
func DecodeCartEnvelope(data []byte) (Cart, error) {
	var env struct {
		Cart *struct {
			Items json.RawMessage `json:"items"`
		} `json:"cart"`
		Subtotal json.RawMessage `json:"subtotal"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Cart{}, fmt.Errorf("decode cart envelope: %w", err)
	}

	cart := Cart{Lines: []CartLine{}, Subtotal: decimal.Zero}
	if env.Cart != nil {
		items := bytes.TrimSpace(env.Cart.Items)
		if len(items) > 0 && items[0] == '[' {
			if err := json.Unmarshal(items, &cart.Lines); err != nil {
				return Cart{}, fmt.Errorf("decode cart items: %w", err)
			}
		}
	}

	sub := bytes.TrimSpace(env.Subtotal)
	if len(sub) > 0 && (sub[0] == '-' || (sub[0] >= '0' && sub[0] <= '9')) {
		d, err := decimal.NewFromString(string(sub))
		if err == nil {
			cart.Subtotal = d
		}
	}
	return cart, nil
}
