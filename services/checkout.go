package services

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/luxurytech30-cpu/meiza-font/clients"
	apperrors "github.com/luxurytech30-cpu/meiza-font/errors"
	"github.com/luxurytech30-cpu/meiza-font/models"
	awspkg "github.com/luxurytech30-cpu/meiza-font/pkg/aws"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderAPI places orders against the store API.
type OrderAPI interface {
	Checkout(ctx context.Context, req models.OrderRequest) (*models.Order, error)
}

// EventPublisher announces placed orders.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, event models.OrderPlacedEvent) error
}

// CheckoutState is the step a checkout is at.
type CheckoutState string

const (
	CheckoutEditing    CheckoutState = "editing"
	CheckoutValidating CheckoutState = "validating"
	CheckoutSubmitting CheckoutState = "submitting"
	CheckoutPlaced     CheckoutState = "placed"
)

var (
	ErrCardUnavailable    = apperrors.New(http.StatusUnprocessableEntity, msgCardUnavailable.Resolve(models.LanguageEN), nil)
	ErrEmptyCart          = apperrors.New(http.StatusBadRequest, "Your cart is empty", nil)
	ErrCheckoutInProgress = apperrors.New(http.StatusConflict, "Checkout already in progress", nil)
	ErrCheckoutFailed     = apperrors.New(http.StatusBadGateway, msgCheckoutFailed.Resolve(models.LanguageEN), nil)
)

// ValidationError names the first shipping field that failed.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) StatusCode() int {
	return http.StatusBadRequest
}

// InvalidField names the offending field in error responses.
func (e *ValidationError) InvalidField() string {
	return e.Field
}

// ShippingCost is the flat surcharge for a non-empty cart.
func ShippingCost(subtotal, flat decimal.Decimal) decimal.Decimal {
	if subtotal.IsPositive() {
		return flat
	}
	return decimal.Zero
}

// CheckoutOrchestrator drives one shopper's checkout:
// editing -> validating -> submitting -> placed, or back to editing with an error.
type CheckoutOrchestrator struct {
	*checkoutState

	api           OrderAPI
	cart          *CartStore
	shippingPrice decimal.Decimal
	validate      *validator.Validate
	events        EventPublisher
	metrics       MetricsRecorder
	logger        *zap.Logger
	now           func() time.Time
}

type checkoutState struct {
	mu      sync.Mutex
	state   CheckoutState
	lastErr error
	order   *models.Order
}

func NewCheckoutOrchestrator(
	api OrderAPI,
	cart *CartStore,
	shippingPrice decimal.Decimal,
	events EventPublisher,
	metrics MetricsRecorder,
	logger *zap.Logger,
) *CheckoutOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CheckoutOrchestrator{
		checkoutState: &checkoutState{state: CheckoutEditing},
		api:           api,
		cart:          cart,
		shippingPrice: shippingPrice,
		validate:      newFormValidator(),
		events:        events,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}
}

// Using returns a handle on the same checkout that submits through api and reads cart, which
// must be a handle on the orchestrator's own cart.
func (c *CheckoutOrchestrator) Using(api OrderAPI, cart *CartStore) *CheckoutOrchestrator {
	h := *c
	h.api = api
	h.cart = cart
	return &h
}

func (c *CheckoutOrchestrator) State() CheckoutState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastError is the error that sent the checkout back to editing, if any.
func (c *CheckoutOrchestrator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Order is the confirmation of the placed order, if any.
func (c *CheckoutOrchestrator) Order() *models.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order
}

// Quote returns the shipping cost and total for the current cart.
func (c *CheckoutOrchestrator) Quote() (shipping, total decimal.Decimal) {
	subtotal := c.cart.TotalPrice()
	shipping = ShippingCost(subtotal, c.shippingPrice)
	return shipping, subtotal.Add(shipping)
}

// Validate checks the trimmed form and returns the first failure only.
func (c *CheckoutOrchestrator) Validate(form models.ShippingForm, lang models.Language) *ValidationError {
	err := c.validate.Struct(form.Normalize())
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "form", Message: err.Error()}
	}
	first := fieldErrs[0]
	msg, ok := fieldMessages[first.Field()][first.Tag()]
	if !ok {
		return &ValidationError{Field: first.Field(), Message: first.Error()}
	}
	return &ValidationError{Field: first.Field(), Message: msg.Resolve(lang)}
}

// Submit validates the form and places the order. Card payments are refused before any network
// call. On success the cart is refreshed and the state becomes placed; on failure the state
// returns to editing with the error.
func (c *CheckoutOrchestrator) Submit(ctx context.Context, form models.ShippingForm, method models.PaymentMethod, lang models.Language) (*models.Order, error) {
	c.mu.Lock()
	if c.state == CheckoutValidating || c.state == CheckoutSubmitting {
		c.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	c.state = CheckoutValidating
	c.lastErr = nil
	c.order = nil
	c.mu.Unlock()

	subtotal := c.cart.TotalPrice()
	if !subtotal.IsPositive() {
		return nil, c.fail(ErrEmptyCart)
	}

	form = form.Normalize()
	if verr := c.Validate(form, lang); verr != nil {
		return nil, c.fail(verr)
	}

	switch method {
	case models.PaymentCashOnDelivery:
	case models.PaymentCard:
		return nil, c.fail(apperrors.New(ErrCardUnavailable.Code, msgCardUnavailable.Resolve(lang), ErrCardUnavailable))
	default:
		return nil, c.fail(&ValidationError{Field: "paymentMethod", Message: msgPaymentRequired.Resolve(lang)})
	}

	c.setState(CheckoutSubmitting)
	shipping := ShippingCost(subtotal, c.shippingPrice)
	itemCount := c.cart.TotalItemCount()

	order, err := c.api.Checkout(ctx, models.NewOrderRequest(form, method, shipping))
	if err != nil {
		c.logger.Warn("Checkout failed", zap.String("owner", c.cart.Owner()), zap.Error(err))
		c.record(awspkg.MetricOrdersFailed)
		return nil, c.fail(checkoutError(err, lang))
	}
	if order == nil {
		order = &models.Order{}
	}

	if rerr := c.cart.Refresh(ctx); rerr != nil {
		c.logger.Warn("Cart refresh after checkout failed", zap.Error(rerr))
	}

	c.mu.Lock()
	c.state = CheckoutPlaced
	c.order = order
	c.mu.Unlock()

	c.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("owner", c.cart.Owner()),
		zap.String("payment_method", string(method)))
	c.record(awspkg.MetricCartCheckouts)
	c.publish(ctx, models.OrderPlacedEvent{
		EventType:     "order.placed",
		OrderID:       order.ID,
		Owner:         c.cart.Owner(),
		PaymentMethod: method,
		Subtotal:      subtotal,
		ShippingPrice: shipping,
		ItemCount:     itemCount,
		Timestamp:     c.now().UTC(),
	})
	return order, nil
}

// Reset starts a new checkout after an order was placed.
func (c *CheckoutOrchestrator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == CheckoutSubmitting || c.state == CheckoutValidating {
		return
	}
	c.state = CheckoutEditing
	c.lastErr = nil
	c.order = nil
}

func (c *CheckoutOrchestrator) setState(state CheckoutState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *CheckoutOrchestrator) fail(err error) error {
	c.mu.Lock()
	c.state = CheckoutEditing
	c.lastErr = err
	c.mu.Unlock()
	return err
}

func (c *CheckoutOrchestrator) publish(ctx context.Context, event models.OrderPlacedEvent) {
	if c.events == nil {
		return
	}
	if err := c.events.PublishOrderPlaced(ctx, event); err != nil {
		c.logger.Warn("Failed to publish order event", zap.String("order_id", event.OrderID), zap.Error(err))
	}
}

func (c *CheckoutOrchestrator) record(metric string) {
	if c.metrics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.metrics.RecordCount(ctx, metric, map[string]string{"Operation": "checkout"})
	}()
}

// checkoutError keeps the store API's message verbatim and hides everything else behind the
// generic failure message.
func checkoutError(err error, lang models.Language) error {
	if msg, ok := clients.ServerMessage(err); ok {
		return apperrors.New(apperrors.HTTPStatus(err), msg, err)
	}
	return apperrors.New(ErrCheckoutFailed.Code, msgCheckoutFailed.Resolve(lang), err)
}
