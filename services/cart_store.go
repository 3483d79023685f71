package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/luxurytech30-cpu/meiza-font/errors"
	"github.com/luxurytech30-cpu/meiza-font/models"
	awspkg "github.com/luxurytech30-cpu/meiza-font/pkg/aws"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartAPI is the remote cart. Every call returns the full authoritative cart.
type CartAPI interface {
	GetCart(ctx context.Context) (models.Cart, error)
	AddCartItem(ctx context.Context, req models.AddCartItemRequest) (models.Cart, error)
	UpdateCartItem(ctx context.Context, lineID string, quantity int) (models.Cart, error)
	RemoveCartItem(ctx context.Context, lineID string) (models.Cart, error)
	ClearCart(ctx context.Context) (models.Cart, error)
}

// SnapshotCache persists applied snapshots per identity key.
type SnapshotCache interface {
	Load(ctx context.Context, identityKey string) (*models.Cart, error)
	Save(ctx context.Context, identityKey string, cart models.Cart) error
	Delete(ctx context.Context, identityKey string) error
}

// MetricsRecorder counts events. *awspkg.MetricsClient satisfies it.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// CartState is the activity state of a CartStore.
type CartState string

const (
	StateIdle    CartState = "idle"
	StateLoading CartState = "loading"
)

// Precondition failures. These never reach the network.
var (
	ErrOptionIDRequired  = apperrors.New(http.StatusBadRequest, "Please choose an option", nil)
	ErrProductIDRequired = apperrors.New(http.StatusBadRequest, "Product id is required", nil)
	ErrLineIDRequired    = apperrors.New(http.StatusBadRequest, "Cart line id is required", nil)
	ErrInvalidQuantity   = apperrors.New(http.StatusBadRequest, "Quantity must be at least 1", nil)
)

// cartState is what every handle on one shopper's cart shares.
type cartState struct {
	mu       sync.Mutex
	cart     models.Cart
	inFlight int
	issued   uint64
	applied  uint64

	cacheMu sync.Mutex
}

// CartStore mirrors the remote cart of one shopper. Local state is only ever replaced by a
// server response, and a response is applied only when it answers a newer call than the one
// last applied.
type CartStore struct {
	*cartState

	api     CartAPI
	owner   string
	cache   SnapshotCache
	metrics MetricsRecorder
	logger  *zap.Logger
}

// NewCartStore creates an empty store for the given identity key. cache and metrics may be nil.
func NewCartStore(api CartAPI, owner string, cache SnapshotCache, metrics MetricsRecorder, logger *zap.Logger) *CartStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartStore{
		cartState: &cartState{cart: models.Cart{Lines: []models.CartLine{}, Subtotal: decimal.Zero}},
		api:       api,
		owner:     owner,
		cache:     cache,
		metrics:   metrics,
		logger:    logger.With(zap.String("cart_owner", owner)),
	}
}

// Owner returns the identity key the store belongs to.
func (s *CartStore) Owner() string {
	return s.owner
}

// Using returns a handle on the same cart whose calls go through api. Handles share the cart
// and its request tokens, so a response older than one applied through another handle is
// still discarded.
func (s *CartStore) Using(api CartAPI) *CartStore {
	h := *s
	h.api = api
	return &h
}

// State reports whether any call is in flight.
func (s *CartStore) State() CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight > 0 {
		return StateLoading
	}
	return StateIdle
}

// Snapshot returns a copy of the last applied cart.
func (s *CartStore) Snapshot() models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// TotalItemCount is the sum of line quantities.
func (s *CartStore) TotalItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalItemCount()
}

// TotalPrice is the server subtotal. It is never recomputed locally.
func (s *CartStore) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Subtotal
}

// Refresh replaces local state with the remote cart.
func (s *CartStore) Refresh(ctx context.Context) error {
	tok, api := s.begin()
	cart, err := api.GetCart(ctx)
	return s.finish(ctx, "refresh", tok, cart, err)
}

// IdentityChanged drops whatever is in flight for the previous identity, empties the local cart
// and refreshes. Call it after login and logout.
func (s *CartStore) IdentityChanged(ctx context.Context) error {
	s.mu.Lock()
	s.applied = s.issued
	s.cart = models.Cart{Lines: []models.CartLine{}, Subtotal: decimal.Zero}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// AddToCart adds qty units of an option. The server merges with an existing line.
func (s *CartStore) AddToCart(ctx context.Context, product *models.Product, option *models.Option, qty int) error {
	if product == nil || product.ID == "" {
		return ErrProductIDRequired
	}
	if option == nil || option.ID == "" {
		return ErrOptionIDRequired
	}
	if qty < 1 {
		return ErrInvalidQuantity
	}

	tok, api := s.begin()
	cart, err := api.AddCartItem(ctx, models.AddCartItemRequest{
		ProductID: product.ID,
		OptionID:  option.ID,
		Quantity:  qty,
	})
	return s.finish(ctx, "add", tok, cart, err)
}

// UpdateQuantity sets the absolute quantity of a line.
func (s *CartStore) UpdateQuantity(ctx context.Context, lineID string, qty int) error {
	if lineID == "" {
		return ErrLineIDRequired
	}
	if qty < 1 {
		return ErrInvalidQuantity
	}

	tok, api := s.begin()
	cart, err := api.UpdateCartItem(ctx, lineID, qty)
	return s.finish(ctx, "update", tok, cart, err)
}

func (s *CartStore) RemoveLine(ctx context.Context, lineID string) error {
	if lineID == "" {
		return ErrLineIDRequired
	}

	tok, api := s.begin()
	cart, err := api.RemoveCartItem(ctx, lineID)
	return s.finish(ctx, "remove", tok, cart, err)
}

func (s *CartStore) Clear(ctx context.Context) error {
	tok, api := s.begin()
	cart, err := api.ClearCart(ctx)
	return s.finish(ctx, "clear", tok, cart, err)
}

// Restore warms an untouched store from the snapshot cache. It reports whether a snapshot was
// applied. Cache failures are logged and reported as a miss.
func (s *CartStore) Restore(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	cached, err := s.cache.Load(ctx, s.owner)
	if err != nil {
		s.logger.Warn("Failed to load cart snapshot", zap.Error(err))
		return false
	}
	if cached == nil {
		s.record(awspkg.MetricCacheMisses, "restore")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied != 0 || s.issued != 0 {
		return false
	}
	s.cart = cached.Clone()
	s.record(awspkg.MetricCacheHits, "restore")
	return true
}

func (s *CartStore) begin() (uint64, CartAPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.inFlight++
	return s.issued, s.api
}

func (s *CartStore) finish(ctx context.Context, op string, tok uint64, cart models.Cart, err error) error {
	s.mu.Lock()
	s.inFlight--
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("Cart call failed", zap.String("op", op), zap.Error(err))
		s.record(awspkg.MetricCartMutationErrors, op)
		return err
	}
	if tok <= s.applied {
		applied := s.applied
		s.mu.Unlock()
		s.logger.Debug("Discarding stale cart response",
			zap.String("op", op), zap.Uint64("token", tok), zap.Uint64("applied", applied))
		s.record(awspkg.MetricCartStaleResponses, op)
		return nil
	}
	if cart.Lines == nil {
		cart.Lines = []models.CartLine{}
	}
	s.applied = tok
	s.cart = cart.Clone()
	s.mu.Unlock()

	if op != "refresh" {
		s.record(awspkg.MetricCartMutations, op)
	}
	s.save(ctx, tok, cart)
	return nil
}

// save writes the snapshot unless a newer one has been applied meanwhile.
func (s *CartStore) save(ctx context.Context, tok uint64, cart models.Cart) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.mu.Lock()
	current := s.applied == tok
	s.mu.Unlock()
	if !current {
		return
	}
	if err := s.cache.Save(ctx, s.owner, cart); err != nil {
		s.logger.Warn("Failed to cache cart snapshot", zap.Error(err))
	}
}

func (s *CartStore) record(metric, op string) {
	if s.metrics == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.RecordCount(ctx, metric, map[string]string{"Operation": op})
	}()
}
