package controllers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	apperrors "github.com/luxurytech30-cpu/meiza-font/errors"
	"github.com/luxurytech30-cpu/meiza-font/identity"
	"github.com/luxurytech30-cpu/meiza-font/logger"
	"github.com/luxurytech30-cpu/meiza-font/middleware"
	"github.com/luxurytech30-cpu/meiza-font/models"
	"github.com/luxurytech30-cpu/meiza-font/pricing"
	"github.com/luxurytech30-cpu/meiza-font/services"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StoreGateway is the store API as seen by one shopper.
type StoreGateway interface {
	services.StoreAPI
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListFeatured(ctx context.Context, limit int) ([]models.Product, error)
	GetProduct(ctx context.Context, productID string) (*models.Product, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
	UpdateProfile(ctx context.Context, req models.ProfileUpdate) (*models.User, error)
	ListMyOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
}

// GatewayFactory returns a gateway that acts for the given identity.
type GatewayFactory func(id identity.Provider) StoreGateway

// OrderLedger remembers placed orders by idempotency key.
type OrderLedger interface {
	GetPlacedOrder(ctx context.Context, key string) (*models.Order, error)
	SetPlacedOrder(ctx context.Context, key string, order *models.Order, ttl time.Duration) error
}

const HeaderIdempotencyKey = "Idempotency-Key"

const maxFeaturedLimit = 24

type StorefrontController struct {
	gateway       GatewayFactory
	sessions      *services.SessionRegistry
	shippingPrice decimal.Decimal
	ledger        OrderLedger
	ledgerTTL     time.Duration
	now           func() time.Time
}

func NewStorefrontController(gateway GatewayFactory, sessions *services.SessionRegistry, shippingPrice decimal.Decimal) *StorefrontController {
	return &StorefrontController{
		gateway:       gateway,
		sessions:      sessions,
		shippingPrice: shippingPrice,
		now:           time.Now,
	}
}

// WithOrderLedger makes checkouts that carry an Idempotency-Key replay the first order
// placed under that key instead of placing another.
func (s *StorefrontController) WithOrderLedger(ledger OrderLedger, ttl time.Duration) *StorefrontController {
	s.ledger = ledger
	s.ledgerTTL = ttl
	return s
}

func (s *StorefrontController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

// shopper resolves the request identity together with its gateway and session.
func (s *StorefrontController) shopper(c *gin.Context) (middleware.Shopper, StoreGateway, *services.Session, bool) {
	shopper, err := middleware.GetShopper(c)
	if err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrUnauthorized, err))
		return middleware.Shopper{}, nil, nil, false
	}
	gw := s.gateway(shopper.Static)
	return shopper, gw, s.sessions.Session(c.Request.Context(), shopper.Key, gw), true
}

func language(c *gin.Context) models.Language {
	if lang := c.Query("lang"); lang != "" {
		return models.ParseLanguage(lang)
	}
	accept := c.GetHeader("Accept-Language")
	if len(accept) >= 2 {
		return models.ParseLanguage(accept[:2])
	}
	return models.LanguageEN
}

// refreshCart brings the session cart up to date alongside a catalog call and delivers the
// refresh result once it is done.
func refreshCart(ctx context.Context, session *services.Session) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := session.Cart.Refresh(ctx)
		if err != nil {
			logger.Warn(ctx, "Cart refresh failed", zap.String("owner", session.Key), zap.Error(err))
		}
		done <- err
	}()
	return done
}

// pricingContext counts cart quantities only when this request's refresh succeeded: the store
// API has then accepted the caller's credentials for the session's cart. Otherwise catalog
// pages render as if the cart were empty.
func (s *StorefrontController) pricingContext(c *gin.Context, shopper middleware.Shopper, session *services.Session, refreshErr error) pricingContext {
	pc := pricingContext{
		lang:   language(c),
		tier:   shopper.Tier,
		now:    s.now(),
		inCart: pricing.NewCartQuantities(nil),
	}
	if refreshErr == nil {
		pc.inCart = pricing.NewCartQuantities(session.Cart.Snapshot().Lines)
	}
	return pc
}

func (s *StorefrontController) ListProducts(c *gin.Context) {
	shopper, gw, session, ok := s.shopper(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	cartDone := refreshCart(ctx, session)
	products, err := gw.ListProducts(ctx)
	refreshErr := <-cartDone
	if err != nil {
		_ = c.Error(err)
		return
	}

	pc := s.pricingContext(c, shopper, session, refreshErr)
	category := c.Query("category")
	cards := make([]ProductCardView, 0, len(products))
	for i := range products {
		if category != "" && products[i].CategoryID() != category {
			continue
		}
		cards = append(cards, newProductCard(&products[i], pc))
	}
	c.JSON(http.StatusOK, gin.H{"products": cards})
}

func (s *StorefrontController) GetProduct(c *gin.Context) {
	shopper, gw, session, ok := s.shopper(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	cartDone := refreshCart(ctx, session)
	product, err := gw.GetProduct(ctx, c.Param("id"))
	refreshErr := <-cartDone
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, newProductDetail(product, s.pricingContext(c, shopper, session, refreshErr)))
}

// ListFeatured returns the home page product cards.
func (s *StorefrontController) ListFeatured(c *gin.Context) {
	shopper, gw, session, ok := s.shopper(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxFeaturedLimit {
			_ = c.Error(apperrors.ErrInvalidInput)
			return
		}
		limit = n
	}

	cartDone := refreshCart(ctx, session)
	products, err := gw.ListFeatured(ctx, limit)
	refreshErr := <-cartDone
	if err != nil {
		_ = c.Error(err)
		return
	}

	pc := s.pricingContext(c, shopper, session, refreshErr)
	cards := make([]ProductCardView, 0, len(products))
	for i := range products {
		cards = append(cards, newProductCard(&products[i], pc))
	}
	c.JSON(http.StatusOK, gin.H{"products": cards})
}

func (s *StorefrontController) ListCategories(c *gin.Context) {
	_, gw, _, ok := s.shopper(c)
	if !ok {
		return
	}
	categories, err := gw.ListCategories(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	lang := language(c)
	out := make([]CategoryView, 0, len(categories))
	for _, cat := range categories {
		out = append(out, CategoryView{ID: cat.ID, Name: cat.Name.Resolve(lang)})
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func (s *StorefrontController) cartResponse(c *gin.Context, status int, session *services.Session, extra gin.H) {
	view := newCartView(session.Cart.Snapshot(), session.Cart.State(), s.shippingPrice)
	body := gin.H{"cart": view}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

func (s *StorefrontController) GetCart(c *gin.Context) {
	_, _, session, ok := s.shopper(c)
	if !ok {
		return
	}
	if err := session.Cart.Refresh(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}
	s.cartResponse(c, http.StatusOK, session, nil)
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	OptionID  string `json:"optionId"`
	Quantity  int    `json:"quantity"`
}

// AddItem resolves the option from the catalog and clamps the quantity to what is still
// available before adding. Sold out options are refused.
func (s *StorefrontController) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	_, gw, session, ok := s.shopper(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	cartDone := refreshCart(ctx, session)
	product, err := gw.GetProduct(ctx, req.ProductID)
	refreshErr := <-cartDone
	if err != nil {
		_ = c.Error(err)
		return
	}
	if refreshErr != nil {
		_ = c.Error(refreshErr)
		return
	}

	var option *models.Option
	if req.OptionID != "" {
		option = product.FindOption(req.OptionID)
		if option == nil {
			_ = c.Error(apperrors.New(http.StatusNotFound, "Option not found", nil))
			return
		}
	}

	requested := req.Quantity
	if requested == 0 {
		requested = 1
	}
	if requested < 0 {
		_ = c.Error(services.ErrInvalidQuantity)
		return
	}
	quantity := requested
	if option != nil {
		remaining := pricing.NewCartQuantities(session.Cart.Snapshot().Lines).Remaining(product.ID, option)
		if !pricing.CanAdd(option, remaining) {
			_ = c.Error(apperrors.ErrSoldOut)
			return
		}
		quantity = pricing.NewStepper(remaining).Clamp(requested)
	}

	if err := session.Cart.AddToCart(ctx, product, option, quantity); err != nil {
		_ = c.Error(err)
		return
	}
	s.cartResponse(c, http.StatusOK, session, gin.H{
		"added":   quantity,
		"clamped": quantity != requested,
	})
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (s *StorefrontController) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	_, _, session, ok := s.shopper(c)
	if !ok {
		return
	}
	if err := session.Cart.UpdateQuantity(c.Request.Context(), c.Param("id"), req.Quantity); err != nil {
		_ = c.Error(err)
		return
	}
	s.cartResponse(c, http.StatusOK, session, nil)
}

func (s *StorefrontController) RemoveItem(c *gin.Context) {
	_, _, session, ok := s.shopper(c)
	if !ok {
		return
	}
	if err := session.Cart.RemoveLine(c.Request.Context(), c.Param("id")); err != nil {
		_ = c.Error(err)
		return
	}
	s.cartResponse(c, http.StatusOK, session, nil)
}

func (s *StorefrontController) ClearCart(c *gin.Context) {
	_, _, session, ok := s.shopper(c)
	if !ok {
		return
	}
	if err := session.Cart.Clear(c.Request.Context()); err != nil {
		_ = c.Error(err)
		return
	}
	s.cartResponse(c, http.StatusOK, session, nil)
}

type checkoutRequest struct {
	Shipping      models.ShippingForm  `json:"shipping"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
}

func (s *StorefrontController) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentCashOnDelivery
	}
	_, _, session, ok := s.shopper(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	ledgerKey := ""
	if key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)); key != "" && s.ledger != nil {
		ledgerKey = session.Key + ":" + key
		prior, err := s.ledger.GetPlacedOrder(ctx, ledgerKey)
		if err != nil {
			logger.Warn(ctx, "Idempotency lookup failed", zap.String("owner", session.Key), zap.Error(err))
		} else if prior != nil {
			if err := session.Cart.Refresh(ctx); err != nil {
				_ = c.Error(err)
				return
			}
			s.cartResponse(c, http.StatusOK, session, gin.H{"order": prior, "replayed": true})
			return
		}
	}

	if err := session.Cart.Refresh(ctx); err != nil {
		_ = c.Error(err)
		return
	}
	order, err := session.Checkout.Submit(ctx, req.Shipping, req.PaymentMethod, language(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	session.Checkout.Reset()

	if ledgerKey != "" {
		if err := s.ledger.SetPlacedOrder(ctx, ledgerKey, order, s.ledgerTTL); err != nil {
			logger.Warn(ctx, "Failed to record idempotency key", zap.String("order_id", order.ID), zap.Error(err))
		}
	}

	s.cartResponse(c, http.StatusCreated, session, gin.H{"order": order})
}

func (s *StorefrontController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	_, gw, _, ok := s.shopper(c)
	if !ok {
		return
	}
	auth, err := gw.Login(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.signedIn(c, auth)
}

func (s *StorefrontController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	_, gw, _, ok := s.shopper(c)
	if !ok {
		return
	}
	auth, err := gw.Register(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.signedIn(c, auth)
}

// signedIn switches the shopper to the authenticated identity and reloads that identity's cart.
// The session is keyed the way IdentityMiddleware will key later requests carrying the token.
func (s *StorefrontController) signedIn(c *gin.Context, auth *models.AuthResponse) {
	if auth == nil || auth.Token == "" {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}
	ctx := c.Request.Context()

	next, err := middleware.SignedInShopper(c, auth.Token)
	if err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrUnauthorized, err))
		return
	}
	gw := s.gateway(next.Static)
	session := s.sessions.Session(ctx, next.Key, gw)
	if err := session.Cart.IdentityChanged(ctx); err != nil {
		logger.Warn(ctx, "Cart reload after sign in failed", zap.String("owner", session.Key), zap.Error(err))
	}

	s.cartResponse(c, http.StatusOK, session, gin.H{
		"token": auth.Token,
		"user":  auth.User,
		"tier":  auth.User.Tier(),
	})
}

// Logout drops the signed-in session and its cached snapshot, then reloads the guest cart.
// The caller drops its token.
func (s *StorefrontController) Logout(c *gin.Context) {
	shopper, err := middleware.GetShopper(c)
	if err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrUnauthorized, err))
		return
	}
	ctx := c.Request.Context()

	guest := identity.Static{Guest: shopper.Guest}
	guestKey := identity.Key(guest, "")
	if shopper.BearerToken != "" && shopper.Key != guestKey {
		s.sessions.Forget(ctx, shopper.Key)
	}
	session := s.sessions.Session(ctx, guestKey, s.gateway(guest))
	if err := session.Cart.IdentityChanged(ctx); err != nil {
		logger.Warn(ctx, "Cart reload after sign out failed", zap.String("owner", session.Key), zap.Error(err))
	}
	s.cartResponse(c, http.StatusOK, session, nil)
}

func (s *StorefrontController) Me(c *gin.Context) {
	shopper, gw, _, ok := s.shopper(c)
	if !ok {
		return
	}
	if shopper.BearerToken == "" {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}
	user, err := gw.Me(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "tier": user.Tier()})
}

type profileRequest struct {
	Name            string `json:"name" binding:"required"`
	Username        string `json:"username" binding:"required"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

var msgPasswordMismatch = models.Translated("Passwords do not match", "הסיסמאות אינן תואמות")

// UpdateProfile changes the signed-in user's name, username and, when given, password.
func (s *StorefrontController) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	shopper, gw, _, ok := s.shopper(c)
	if !ok {
		return
	}
	if shopper.BearerToken == "" {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}

	password := strings.TrimSpace(req.Password)
	if password != "" && password != strings.TrimSpace(req.ConfirmPassword) {
		_ = c.Error(apperrors.New(http.StatusBadRequest, msgPasswordMismatch.Resolve(language(c)), nil))
		return
	}

	user, err := gw.UpdateProfile(c.Request.Context(), models.ProfileUpdate{
		Name:     strings.TrimSpace(req.Name),
		Username: strings.TrimSpace(req.Username),
		Password: password,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "tier": user.Tier()})
}

// ListOrders returns the signed-in user's order history, newest first as the store API sends it.
func (s *StorefrontController) ListOrders(c *gin.Context) {
	shopper, gw, _, ok := s.shopper(c)
	if !ok {
		return
	}
	if shopper.BearerToken == "" {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}
	orders, err := gw.ListMyOrders(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	out := make([]OrderSummaryView, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderSummary(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (s *StorefrontController) GetOrder(c *gin.Context) {
	shopper, gw, _, ok := s.shopper(c)
	if !ok {
		return
	}
	if shopper.BearerToken == "" {
		_ = c.Error(apperrors.ErrUnauthorized)
		return
	}
	order, err := gw.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": newOrderDetail(order)})
}
