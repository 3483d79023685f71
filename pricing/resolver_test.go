package pricing_test

import (
	"testing"
	"time"

	"github.com/luxurytech30-cpu/meiza-font/models"
	"github.com/luxurytech30-cpu/meiza-font/pricing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// --- Helpers ---

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func at(t time.Time) *time.Time { return &t }

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func saleOption(price, vip, sale *decimal.Decimal, start, end *time.Time) *models.Option {
	opt := &models.Option{ID: "opt-1", Name: models.Plain("Large"), VIPPrice: vip}
	if price != nil {
		opt.Price = *price
	}
	opt.Sale = &models.Sale{Start: start, End: end, Price: sale}
	return opt
}

// --- Tests ---

func TestIsSaleActive(t *testing.T) {
	tests := []struct {
		name string
		sale *models.Sale
		want bool
	}{
		{"no sale record", nil, false},
		{"null price", &models.Sale{}, false},
		{"open ended", &models.Sale{Price: dec(70)}, true},
		{"zero price is a sale", &models.Sale{Price: dec(0)}, true},
		{"not started", &models.Sale{Price: dec(70), Start: at(now.Add(time.Hour))}, false},
		{"starts now", &models.Sale{Price: dec(70), Start: at(now)}, true},
		{"ended", &models.Sale{Price: dec(70), End: at(now.Add(-time.Second))}, false},
		{"ends now", &models.Sale{Price: dec(70), End: at(now)}, true},
		{"inside window", &models.Sale{Price: dec(70), Start: at(now.Add(-time.Hour)), End: at(now.Add(time.Hour))}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := &models.Option{Price: decimal.NewFromInt(100), Sale: tt.sale}
			assert.Equal(t, tt.want, pricing.IsSaleActive(opt, now))
		})
	}

	assert.False(t, pricing.IsSaleActive(nil, now))
}

func TestResolvePrice_StandardCustomerGetsSale(t *testing.T) {
	opt := saleOption(dec(100), dec(80), dec(70), nil, nil)

	got := pricing.ResolvePrice(opt, models.TierStandard, now)
	assert.True(t, got.Equal(decimal.NewFromInt(70)), "got %s", got)
}

func TestResolvePrice_VIPPriceWinsOverSale(t *testing.T) {
	opt := saleOption(dec(100), dec(80), dec(70), nil, nil)

	got := pricing.ResolvePrice(opt, models.TierVIP, now)
	assert.True(t, got.Equal(decimal.NewFromInt(80)), "got %s", got)
}

func TestResolvePrice_VIPWithoutVIPPriceIgnoresSale(t *testing.T) {
	opt := saleOption(dec(100), nil, dec(70), nil, nil)

	got := pricing.ResolvePrice(opt, models.TierVIP, now)
	assert.True(t, got.Equal(decimal.NewFromInt(100)), "got %s", got)
}

func TestResolvePrice_ZeroSalePriceHonored(t *testing.T) {
	opt := saleOption(dec(100), nil, dec(0), nil, nil)

	got := pricing.ResolvePrice(opt, models.TierStandard, now)
	assert.True(t, got.IsZero(), "got %s", got)
}

func TestResolvePrice_ExpiredSaleFallsBackToBase(t *testing.T) {
	opt := saleOption(dec(100), nil, dec(70), nil, at(now.Add(-24*time.Hour)))

	got := pricing.ResolvePrice(opt, models.TierStandard, now)
	assert.True(t, got.Equal(decimal.NewFromInt(100)), "got %s", got)
}

func TestQuote(t *testing.T) {
	end := now.Add(48 * time.Hour)
	opt := saleOption(dec(100), dec(80), dec(70), nil, &end)

	std := pricing.Quote(opt, models.TierStandard, now)
	assert.True(t, std.Unit.Equal(decimal.NewFromInt(70)))
	assert.True(t, std.Base.Equal(decimal.NewFromInt(100)))
	assert.True(t, std.OnSale)
	assert.False(t, std.VIP)
	if assert.NotNil(t, std.SaleEnds) {
		assert.True(t, std.SaleEnds.Equal(end))
	}

	vip := pricing.Quote(opt, models.TierVIP, now)
	assert.True(t, vip.Unit.Equal(decimal.NewFromInt(80)))
	assert.True(t, vip.VIP)
	assert.False(t, vip.OnSale, "VIP customers never see sale badges")
	assert.Nil(t, vip.SaleEnds)
}

func TestLineTotal(t *testing.T) {
	got := pricing.LineTotal(decimal.RequireFromString("19.90"), 3)
	assert.Equal(t, "59.7", got.String())
}
