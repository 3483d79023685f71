package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the closed set of checkout payment choices
type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cod"
	PaymentCard           PaymentMethod = "card"
)

// Valid reports whether m is one of the known payment methods.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCashOnDelivery || m == PaymentCard
}

// ShippingForm is the customer-entered shipping details.
// Field order is the order in which validation failures are reported.
type ShippingForm struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,contains=@"`
	Phone    string `json:"phone" validate:"required"`
	City     string `json:"city" validate:"required"`
	Street   string `json:"street" validate:"required"`
	Notes    string `json:"notes"`
}

// Normalize trims surrounding whitespace from every field.
func (f ShippingForm) Normalize() ShippingForm {
	return ShippingForm{
		FullName: strings.TrimSpace(f.FullName),
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		City:     strings.TrimSpace(f.City),
		Street:   strings.TrimSpace(f.Street),
		Notes:    strings.TrimSpace(f.Notes),
	}
}

// ShippingAddress is the shipping block of an order submission
type ShippingAddress struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	City         string `json:"city"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
}

// OrderRequest is the body of POST /orders/checkout
type OrderRequest struct {
	Shipping      ShippingAddress `json:"shipping"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
}

// NewOrderRequest assembles an order submission from a validated form.
func NewOrderRequest(form ShippingForm, method PaymentMethod, shippingPrice decimal.Decimal) OrderRequest {
	return OrderRequest{
		Shipping: ShippingAddress{
			FullName:     form.FullName,
			Email:        form.Email,
			Phone:        form.Phone,
			City:         form.City,
			AddressLine1: form.Street,
			AddressLine2: form.Notes,
		},
		ShippingPrice: shippingPrice,
		PaymentMethod: method,
	}
}

// Order is a placed order. Checkout confirmations carry the top fields only; order history
// and detail responses also carry items, totals, payment and shipping.
type Order struct {
	ID            string           `json:"_id"`
	Status        string           `json:"status,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	PaymentMethod PaymentMethod    `json:"paymentMethod,omitempty"`
	CreatedAt     *time.Time       `json:"createdAt,omitempty"`

	Items    []OrderItem      `json:"items,omitempty"`
	Totals   *OrderTotals     `json:"totals,omitempty"`
	Payment  *OrderPayment    `json:"payment,omitempty"`
	Shipping *ShippingAddress `json:"shipping,omitempty"`
}

// OrderItem is one purchased line, priced as it was at checkout.
type OrderItem struct {
	ProductID  string          `json:"product"`
	OptionID   string          `json:"optionId"`
	Name       string          `json:"name"`
	OptionName string          `json:"optionName"`
	Img        string          `json:"img,omitempty"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
}

type OrderTotals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

type OrderPayment struct {
	Method        PaymentMethod `json:"method,omitempty"`
	TransactionID *string       `json:"transactionId,omitempty"`
}

// Method is the order's payment method wherever the store API put it.
func (o *Order) Method() PaymentMethod {
	if o.PaymentMethod == "" && o.Payment != nil {
		return o.Payment.Method
	}
	return o.PaymentMethod
}

// ItemCount is the number of units across all items.
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

// OrderPlacedEvent is published after a successful checkout
type OrderPlacedEvent struct {
	EventType     string          `json:"event_type"`
	OrderID       string          `json:"order_id"`
	Owner         string          `json:"owner"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingPrice decimal.Decimal `json:"shipping_price"`
	ItemCount     int             `json:"item_count"`
	Timestamp     time.Time       `json:"timestamp"`
}
