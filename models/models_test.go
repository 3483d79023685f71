package models_test

import (
	"encoding/json"
	"testing"

	"github.com/luxurytech30-cpu/meiza-font/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalizedText_Resolve(t *testing.T) {
	var plain, translated, partial models.LocalizedText
	require.NoError(t, json.Unmarshal([]byte(`"Vase"`), &plain))
	require.NoError(t, json.Unmarshal([]byte(`{"en":"Vase","he":"אגרטל"}`), &translated))
	require.NoError(t, json.Unmarshal([]byte(`{"en":"Mirror"}`), &partial))

	assert.Equal(t, "Vase", plain.Resolve(models.LanguageHE))
	assert.False(t, plain.IsTranslated())
	assert.Equal(t, "אגרטל", translated.Resolve(models.LanguageHE))
	assert.Equal(t, "Vase", translated.Resolve(models.LanguageEN))
	assert.Equal(t, "Mirror", partial.Resolve(models.LanguageHE))

	var empty models.LocalizedText
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.True(t, empty.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`42`), &empty))
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, models.LanguageHE, models.ParseLanguage(" HE "))
	assert.Equal(t, models.LanguageEN, models.ParseLanguage("fr"))
	assert.Equal(t, models.LanguageEN, models.ParseLanguage(""))
}

func TestProduct_Decode(t *testing.T) {
	raw := `{
		"_id": "p1",
		"name": {"en": "Gold Vase", "he": "אגרטל זהב"},
		"category": {"_id": "c1", "name": "Vases"},
		"options": [
			{"_id": "o1", "name": "Small", "price": 100, "vipPrice": null, "quantity": 5,
			 "sale": {"start": "", "end": "2026-12-31T23:59:59Z", "price": 0}},
			{"_id": "o2", "name": "Large", "price": "250.50", "vipPrice": 200, "isDefault": true,
			 "sale": {"start": "not-a-date", "price": null}}
		]
	}`

	var p models.Product
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, "c1", p.CategoryID())
	require.Len(t, p.Options, 2)

	small := p.Options[0]
	assert.Nil(t, small.VIPPrice)
	require.NotNil(t, small.Quantity)
	assert.Equal(t, 5, *small.Quantity)
	require.NotNil(t, small.Sale)
	assert.Nil(t, small.Sale.Start)
	require.NotNil(t, small.Sale.End)
	require.NotNil(t, small.Sale.Price)
	assert.True(t, small.Sale.Price.IsZero())

	large := p.Options[1]
	assert.True(t, large.Price.Equal(decimal.RequireFromString("250.5")))
	assert.Nil(t, large.Quantity)
	assert.Nil(t, large.Sale.Start)
	assert.Nil(t, large.Sale.Price)

	assert.Equal(t, "o2", p.DefaultOption().ID)
	assert.Equal(t, "o1", p.FindOption("o1").ID)
	assert.Nil(t, p.FindOption(""))
}

func TestProduct_DefaultOptionFallsBackToFirst(t *testing.T) {
	p := models.Product{Options: []models.Option{{ID: "a"}, {ID: "b"}}}
	assert.Equal(t, "a", p.DefaultOption().ID)

	assert.Nil(t, (&models.Product{}).DefaultOption())
}

func TestCategoryRef_BareID(t *testing.T) {
	var p models.Product
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","category":"c9","options":[]}`), &p))
	assert.Equal(t, "c9", p.CategoryID())
	assert.Nil(t, p.Category.Category)

	b, err := json.Marshal(p.Category)
	require.NoError(t, err)
	assert.Equal(t, `"c9"`, string(b))
}

func TestDecodeCartEnvelope(t *testing.T) {
	raw := `{"cart":{"items":[
		{"_id":"l1","product":"p1","optionId":"o1","name":"Vase","optionName":"Small","price":70,"quantity":2},
		{"_id":"l2","product":"p2","optionId":"o9","name":"Mirror","optionName":"","price":120.5,"quantity":1}
	]},"subtotal":260.5}`

	cart, err := models.DecodeCartEnvelope([]byte(raw))
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 3, cart.TotalItemCount())
	assert.True(t, cart.Subtotal.Equal(decimal.RequireFromString("260.5")))
	assert.True(t, cart.Lines[0].LineTotal().Equal(decimal.NewFromInt(140)))

	line, ok := cart.FindLine("l2")
	assert.True(t, ok)
	assert.Equal(t, "Mirror", line.Name)
}

func TestDecodeCartEnvelope_Lenient(t *testing.T) {
	cart, err := models.DecodeCartEnvelope([]byte(`{"cart":{"items":null},"subtotal":"oops"}`))
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Subtotal.IsZero())

	cart, err = models.DecodeCartEnvelope([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, cart.Lines)
	assert.True(t, cart.IsEmpty())

	_, err = models.DecodeCartEnvelope([]byte(`<html>`))
	assert.Error(t, err)
}

func TestTierFromRoles(t *testing.T) {
	assert.Equal(t, models.TierVIP, models.TierFromRoles([]string{"user", "vip"}))
	assert.Equal(t, models.TierStandard, models.TierFromRoles([]string{"admin"}))

	var u *models.User
	assert.Equal(t, models.TierStandard, u.Tier())
}

func TestNewOrderRequest_JSON(t *testing.T) {
	form := models.ShippingForm{FullName: "Dana", Email: "d@x.io", Phone: "050", City: "Haifa", Street: "Herzl 1", Notes: "ring twice"}
	req := models.NewOrderRequest(form, models.PaymentCashOnDelivery, decimal.NewFromInt(50))

	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"shipping": {"fullName":"Dana","email":"d@x.io","phone":"050","city":"Haifa",
		             "addressLine1":"Herzl 1","addressLine2":"ring twice"},
		"shippingPrice": 50,
		"paymentMethod": "cod"
	}`, string(b))
}

func TestOrder_DecodeDetail(t *testing.T) {
	raw := `{"_id":"ord-7","status":"shipped","createdAt":"2026-03-01T10:00:00Z",
		"items":[{"product":"p1","optionId":"o1","name":"Vase","optionName":"Small","price":70,"quantity":2},
		         {"product":"p2","optionId":"o2","name":"Bowl","optionName":"Large","price":30,"quantity":1}],
		"totals":{"subtotal":170,"shipping":50,"grandTotal":220},
		"payment":{"method":"cod","transactionId":null},
		"shipping":{"fullName":"Dana","city":"Haifa","addressLine1":"Herzl 1"}}`

	var order models.Order
	require.NoError(t, json.Unmarshal([]byte(raw), &order))

	assert.Equal(t, models.PaymentCashOnDelivery, order.Method())
	assert.Equal(t, 3, order.ItemCount())
	require.NotNil(t, order.Totals)
	assert.True(t, order.Totals.GrandTotal.Equal(decimal.NewFromInt(220)))
	assert.Nil(t, order.Payment.TransactionID)
	assert.Equal(t, "Herzl 1", order.Shipping.AddressLine1)
	require.NotNil(t, order.CreatedAt)
}

func TestOrder_MethodPrefersTopLevel(t *testing.T) {
	order := models.Order{PaymentMethod: models.PaymentCard, Payment: &models.OrderPayment{Method: models.PaymentCashOnDelivery}}
	assert.Equal(t, models.PaymentCard, order.Method())
	assert.Empty(t, (&models.Order{}).Method())
}
