package controllers

import (
	"time"

	"github.com/luxurytech30-cpu/meiza-font/models"
	"github.com/luxurytech30-cpu/meiza-font/pricing"
	"github.com/luxurytech30-cpu/meiza-font/services"
	"github.com/shopspring/decimal"
)

const placeholderImage = "/placeholder.svg"

type CategoryView struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type StepperView struct {
	Min int                  `json:"min"`
	Max pricing.Availability `json:"max"`
}

type OptionView struct {
	ID        string               `json:"_id"`
	Name      string               `json:"name"`
	Img       string               `json:"img"`
	Price     pricing.PriceQuote   `json:"price"`
	InCart    int                  `json:"in_cart"`
	Remaining pricing.Availability `json:"remaining"`
	SoldOut   bool                 `json:"sold_out"`
	CanAdd    bool                 `json:"can_add"`
	Stepper   StepperView          `json:"stepper"`
	IsDefault bool                 `json:"is_default"`
}

type ProductCardView struct {
	ID       string        `json:"_id"`
	Name     string        `json:"name"`
	Img      string        `json:"img"`
	Category *CategoryView `json:"category,omitempty"`
	Option   *OptionView   `json:"option"`
	SoldOut  bool          `json:"sold_out"`
}

type ProductDetailView struct {
	ID              string        `json:"_id"`
	Name            string        `json:"name"`
	Desc            string        `json:"desc"`
	Img             string        `json:"img"`
	Category        *CategoryView `json:"category,omitempty"`
	Options         []OptionView  `json:"options"`
	DefaultOptionID string        `json:"default_option_id,omitempty"`
}

type CartLineView struct {
	ID         string          `json:"_id"`
	ProductID  string          `json:"product"`
	OptionID   string          `json:"optionId"`
	Name       string          `json:"name"`
	OptionName string          `json:"optionName"`
	Img        string          `json:"img"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type CartView struct {
	Items      []CartLineView     `json:"items"`
	TotalItems int                `json:"total_items"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
	Shipping   decimal.Decimal    `json:"shipping"`
	Total      decimal.Decimal    `json:"total"`
	State      services.CartState `json:"state"`
}

// pricingContext is what every product view is rendered against.
type pricingContext struct {
	lang   models.Language
	tier   models.Tier
	now    time.Time
	inCart pricing.CartQuantities
}

func categoryView(ref models.CategoryRef, lang models.Language) *CategoryView {
	if ref.ID == "" {
		return nil
	}
	v := &CategoryView{ID: ref.ID}
	if ref.Category != nil {
		v.Name = ref.Category.Name.Resolve(lang)
	}
	return v
}

func optionImage(p *models.Product, opt *models.Option) string {
	if opt != nil && opt.Img != "" {
		return opt.Img
	}
	if p.Img != "" {
		return p.Img
	}
	return placeholderImage
}

func newOptionView(p *models.Product, opt *models.Option, pc pricingContext) OptionView {
	remaining := pc.inCart.Remaining(p.ID, opt)
	return OptionView{
		ID:        opt.ID,
		Name:      opt.Name.Resolve(pc.lang),
		Img:       optionImage(p, opt),
		Price:     pricing.Quote(opt, pc.tier, pc.now),
		InCart:    pc.inCart.InCart(p.ID, opt),
		Remaining: remaining,
		SoldOut:   remaining.SoldOut(),
		CanAdd:    pricing.CanAdd(opt, remaining),
		Stepper:   StepperView{Min: 1, Max: remaining},
		IsDefault: opt.IsDefault,
	}
}

func newProductCard(p *models.Product, pc pricingContext) ProductCardView {
	card := ProductCardView{
		ID:       p.ID,
		Name:     p.Name.Resolve(pc.lang),
		Category: categoryView(p.Category, pc.lang),
	}
	opt := p.DefaultOption()
	card.Img = optionImage(p, opt)
	if opt == nil {
		card.SoldOut = true
		return card
	}
	view := newOptionView(p, opt, pc)
	card.Option = &view
	card.SoldOut = view.SoldOut
	return card
}

func newProductDetail(p *models.Product, pc pricingContext) ProductDetailView {
	detail := ProductDetailView{
		ID:       p.ID,
		Name:     p.Name.Resolve(pc.lang),
		Desc:     p.Desc.Resolve(pc.lang),
		Img:      optionImage(p, nil),
		Category: categoryView(p.Category, pc.lang),
		Options:  make([]OptionView, 0, len(p.Options)),
	}
	for i := range p.Options {
		detail.Options = append(detail.Options, newOptionView(p, &p.Options[i], pc))
	}
	if opt := p.DefaultOption(); opt != nil {
		detail.DefaultOptionID = opt.ID
	}
	return detail
}

func newCartView(cart models.Cart, state services.CartState, shippingPrice decimal.Decimal) CartView {
	shipping := services.ShippingCost(cart.Subtotal, shippingPrice)
	view := CartView{
		Items:      make([]CartLineView, 0, len(cart.Lines)),
		TotalItems: cart.TotalItemCount(),
		Subtotal:   cart.Subtotal,
		Shipping:   shipping,
		Total:      cart.Subtotal.Add(shipping),
		State:      state,
	}
	for _, l := range cart.Lines {
		img := l.Img
		if img == "" {
			img = placeholderImage
		}
		view.Items = append(view.Items, CartLineView{
			ID:         l.ID,
			ProductID:  l.ProductID,
			OptionID:   l.OptionID,
			Name:       l.Name,
			OptionName: l.OptionName,
			Img:        img,
			Price:      l.Price,
			Quantity:   l.Quantity,
			LineTotal:  l.LineTotal(),
		})
	}
	return view
}

type OrderItemView struct {
	ProductID  string          `json:"product"`
	OptionID   string          `json:"optionId"`
	Name       string          `json:"name"`
	OptionName string          `json:"optionName"`
	Img        string          `json:"img"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

type OrderSummaryView struct {
	ID         string          `json:"_id"`
	Status     string          `json:"status"`
	CreatedAt  *time.Time      `json:"createdAt,omitempty"`
	TotalItems int             `json:"total_items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type OrderDetailView struct {
	OrderSummaryView
	Items         []OrderItemView         `json:"items"`
	Subtotal      decimal.Decimal         `json:"subtotal"`
	Shipping      decimal.Decimal         `json:"shipping"`
	PaymentMethod models.PaymentMethod    `json:"paymentMethod,omitempty"`
	Address       *models.ShippingAddress `json:"address,omitempty"`
}

func newOrderSummary(o *models.Order) OrderSummaryView {
	view := OrderSummaryView{
		ID:         o.ID,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		TotalItems: o.ItemCount(),
		GrandTotal: decimal.Zero,
	}
	switch {
	case o.Totals != nil:
		view.GrandTotal = o.Totals.GrandTotal
	case o.Total != nil:
		view.GrandTotal = *o.Total
	}
	return view
}

func newOrderDetail(o *models.Order) OrderDetailView {
	view := OrderDetailView{
		OrderSummaryView: newOrderSummary(o),
		Items:            make([]OrderItemView, 0, len(o.Items)),
		Subtotal:         decimal.Zero,
		Shipping:         decimal.Zero,
		PaymentMethod:    o.Method(),
		Address:          o.Shipping,
	}
	if o.Totals != nil {
		view.Subtotal = o.Totals.Subtotal
		view.Shipping = o.Totals.Shipping
	}
	for _, it := range o.Items {
		img := it.Img
		if img == "" {
			img = placeholderImage
		}
		view.Items = append(view.Items, OrderItemView{
			ProductID:  it.ProductID,
			OptionID:   it.OptionID,
			Name:       it.Name,
			OptionName: it.OptionName,
			Img:        img,
			Price:      it.Price,
			Quantity:   it.Quantity,
			LineTotal:  it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))),
		})
	}
	return view
}
