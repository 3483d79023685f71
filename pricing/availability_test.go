package pricing_test

import (
	"encoding/json"
	"testing"

	"github.com/luxurytech30-cpu/meiza-font/models"
	"github.com/luxurytech30-cpu/meiza-font/pricing"
	"github.com/stretchr/testify/assert"
)

func stock(n int) *int { return &n }

func TestRemaining_Unbounded(t *testing.T) {
	opt := &models.Option{ID: "o1"}

	for _, inCart := range []int{0, 1, 50, 10000} {
		avail := pricing.Remaining(opt, inCart)
		assert.True(t, avail.IsUnbounded())
		assert.False(t, avail.SoldOut())
	}
}

func TestRemaining_NonIncreasingAndFloored(t *testing.T) {
	opt := &models.Option{ID: "o1", Quantity: stock(5)}

	prev := 1 << 30
	for inCart := 0; inCart <= 8; inCart++ {
		n, finite := pricing.Remaining(opt, inCart).Units()
		assert.True(t, finite)
		assert.GreaterOrEqual(t, n, 0)
		assert.LessOrEqual(t, n, prev)
		prev = n
	}
	n, _ := pricing.Remaining(opt, 8).Units()
	assert.Equal(t, 0, n)
}

func TestRemaining_ScenarioFiveInStockThreeInCart(t *testing.T) {
	opt := &models.Option{ID: "o1", Quantity: stock(5)}
	lines := []models.CartLine{
		{ID: "l1", ProductID: "p1", OptionID: "o1", Quantity: 2},
		{ID: "l2", ProductID: "p1", OptionID: "o1", Quantity: 1},
		{ID: "l3", ProductID: "p1", OptionID: "o2", Quantity: 4},
		{ID: "l4", ProductID: "p2", OptionID: "o1", Quantity: 4},
	}

	q := pricing.NewCartQuantities(lines)
	assert.Equal(t, 3, q.InCart("p1", opt))

	avail := q.Remaining("p1", opt)
	n, finite := avail.Units()
	assert.True(t, finite)
	assert.Equal(t, 2, n)

	stepper := pricing.NewStepper(avail)
	assert.Equal(t, 2, stepper.Clamp(3))
	assert.False(t, stepper.CanIncrement(2))
}

func TestSoldOutDisablesAdd(t *testing.T) {
	opt := &models.Option{ID: "o1", Quantity: stock(2)}

	avail := pricing.Remaining(opt, 2)
	assert.True(t, avail.SoldOut())
	assert.False(t, pricing.CanAdd(opt, avail))

	zeroStock := &models.Option{ID: "o2", Quantity: stock(0)}
	assert.False(t, pricing.CanAdd(zeroStock, pricing.Remaining(zeroStock, 0)))

	assert.True(t, pricing.CanAdd(&models.Option{ID: "o3"}, pricing.Unbounded))
	assert.False(t, pricing.CanAdd(nil, pricing.Unbounded))
	assert.False(t, pricing.Units(-3).Allows(1))
}

func TestCartQuantities_FallsBackToOptionName(t *testing.T) {
	lines := []models.CartLine{{ProductID: "p1", OptionName: "Small", Quantity: 2}}
	opt := &models.Option{Name: models.Plain("Small"), Quantity: stock(3)}

	q := pricing.NewCartQuantities(lines)
	assert.Equal(t, 2, q.InCart("p1", opt))
}

func TestStepper(t *testing.T) {
	bounded := pricing.NewStepper(pricing.Units(4))
	assert.Equal(t, 1, bounded.Clamp(0))
	assert.Equal(t, 1, bounded.Clamp(-7))
	assert.Equal(t, 4, bounded.Clamp(9))
	assert.Equal(t, 4, bounded.Increment(4))
	assert.Equal(t, 1, bounded.Decrement(1))
	assert.False(t, bounded.CanDecrement(1))
	assert.True(t, bounded.CanDecrement(2))

	open := pricing.NewStepper(pricing.Unbounded)
	assert.Equal(t, 1000, open.Clamp(1000))
	assert.Equal(t, 1001, open.Increment(1000))
	assert.True(t, open.CanIncrement(1<<20))

	empty := pricing.NewStepper(pricing.Units(0))
	assert.Equal(t, 0, empty.Clamp(3))
	assert.False(t, empty.CanIncrement(0))
}

func TestAvailabilityJSON(t *testing.T) {
	b, err := json.Marshal(map[string]pricing.Availability{"a": pricing.Unbounded, "b": pricing.Units(3)})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":3}`, string(b))
}
