package pricing

import (
	"encoding/json"
	"strconv"

	"github.com/luxurytech30-cpu/meiza-font/models"
)

// Availability is the number of units still purchasable, or unbounded.
type Availability struct {
	units     int
	unbounded bool
}

// Unbounded is the availability of an option with no recorded stock.
var Unbounded = Availability{unbounded: true}

// Units returns a finite availability, floored at zero.
func Units(n int) Availability {
	if n < 0 {
		n = 0
	}
	return Availability{units: n}
}

// IsUnbounded reports whether there is no stock limit.
func (a Availability) IsUnbounded() bool { return a.unbounded }

// Units returns the finite remaining count and false when unbounded.
func (a Availability) Units() (int, bool) {
	if a.unbounded {
		return 0, false
	}
	return a.units, true
}

// SoldOut reports whether nothing more can be added.
func (a Availability) SoldOut() bool {
	return !a.unbounded && a.units == 0
}

// Allows reports whether qty more units fit.
func (a Availability) Allows(qty int) bool {
	return a.unbounded || qty <= a.units
}

func (a Availability) String() string {
	if a.unbounded {
		return "unbounded"
	}
	return strconv.Itoa(a.units)
}

// MarshalJSON encodes unbounded availability as null.
func (a Availability) MarshalJSON() ([]byte, error) {
	if a.unbounded {
		return []byte("null"), nil
	}
	return json.Marshal(a.units)
}

// Remaining returns how many more units of opt can be bought given what is already in the cart.
func Remaining(opt *models.Option, alreadyInCart int) Availability {
	if opt == nil {
		return Units(0)
	}
	if opt.Quantity == nil {
		return Unbounded
	}
	return Units(*opt.Quantity - alreadyInCart)
}

// CanAdd reports whether the add-to-cart action is enabled.
func CanAdd(opt *models.Option, avail Availability) bool {
	return opt != nil && !avail.SoldOut()
}

// CartQuantities holds the quantity already in the cart per product option.
// Build it once per cart snapshot.
type CartQuantities map[string]int

// NewCartQuantities sums line quantities by product and option.
func NewCartQuantities(lines []models.CartLine) CartQuantities {
	m := make(CartQuantities, len(lines))
	for _, l := range lines {
		ref := l.OptionID
		if ref == "" {
			ref = l.OptionName
		}
		m[quantityKey(l.ProductID, ref)] += l.Quantity
	}
	return m
}

// InCart returns the units of opt already in the cart.
func (q CartQuantities) InCart(productID string, opt *models.Option) int {
	if opt == nil {
		return 0
	}
	ref := opt.ID
	if ref == "" {
		ref = opt.Name.String()
	}
	return q[quantityKey(productID, ref)]
}

// Remaining combines InCart and Remaining.
func (q CartQuantities) Remaining(productID string, opt *models.Option) Availability {
	return Remaining(opt, q.InCart(productID, opt))
}

func quantityKey(productID, optionRef string) string {
	return productID + "|" + optionRef
}
