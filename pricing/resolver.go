// Package pricing resolves the unit price a customer sees for a product option and
// how many more units of it they can still put in their cart.
package pricing

import (
	"time"

	"github.com/luxurytech30-cpu/meiza-font/models"
	"github.com/shopspring/decimal"
)

// IsSaleActive reports whether the option's sale applies at now.
// Both bounds are inclusive and a zero sale price is a real sale.
func IsSaleActive(opt *models.Option, now time.Time) bool {
	if opt == nil || opt.Sale == nil || opt.Sale.Price == nil {
		return false
	}
	if opt.Sale.Start != nil && now.Before(*opt.Sale.Start) {
		return false
	}
	if opt.Sale.End != nil && now.After(*opt.Sale.End) {
		return false
	}
	return true
}

// ResolvePrice returns the unit price shown to a customer of the given tier.
// VIP customers get the VIP price when one is set and the base price otherwise;
// sales never apply to them.
func ResolvePrice(opt *models.Option, tier models.Tier, now time.Time) decimal.Decimal {
	if opt == nil {
		return decimal.Zero
	}
	if tier == models.TierVIP {
		if opt.VIPPrice != nil {
			return *opt.VIPPrice
		}
		return opt.Price
	}
	if IsSaleActive(opt, now) {
		return *opt.Sale.Price
	}
	return opt.Price
}

// PriceQuote is everything a price block needs to render.
type PriceQuote struct {
	Unit     decimal.Decimal `json:"unit"`
	Base     decimal.Decimal `json:"base"`
	VIP      bool            `json:"vip"`
	OnSale   bool            `json:"on_sale"`
	SaleEnds *time.Time      `json:"sale_ends,omitempty"`
}

// Quote resolves the price for opt along with the badges shown next to it.
func Quote(opt *models.Option, tier models.Tier, now time.Time) PriceQuote {
	q := PriceQuote{
		Unit: ResolvePrice(opt, tier, now),
		VIP:  tier == models.TierVIP,
	}
	if opt == nil {
		return q
	}
	q.Base = opt.Price
	if !q.VIP && IsSaleActive(opt, now) {
		q.OnSale = true
		q.SaleEnds = opt.Sale.End
	}
	return q
}

// LineTotal is unit price times quantity.
func LineTotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}
