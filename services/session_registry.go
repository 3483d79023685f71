package services

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StoreAPI is everything a shopper session needs from the store API.
type StoreAPI interface {
	CartAPI
	OrderAPI
}

// minSweepInterval bounds how often Run sweeps, whatever the TTL.
const minSweepInterval = time.Second

// Session is one request's view of an identity's cart and checkout. Cart and Checkout share
// their state with every other Session for the same key but call the store API through the
// api the Session was obtained with.
type Session struct {
	Key      string
	Cart     *CartStore
	Checkout *CheckoutOrchestrator
}

type sessionEntry struct {
	cart     *CartStore
	checkout *CheckoutOrchestrator
	lastSeen time.Time
}

// SessionRegistry keeps one cart and checkout per identity key and evicts idle ones.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	ttl           time.Duration
	shippingPrice decimal.Decimal
	cache         SnapshotCache
	metrics       MetricsRecorder
	events        EventPublisher
	logger        *zap.Logger
	now           func() time.Time
}

type RegistryConfig struct {
	TTL           time.Duration
	ShippingPrice decimal.Decimal
	Cache         SnapshotCache
	Metrics       MetricsRecorder
	Events        EventPublisher
	Logger        *zap.Logger
}

func NewSessionRegistry(cfg RegistryConfig) *SessionRegistry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &SessionRegistry{
		sessions:      make(map[string]*sessionEntry),
		ttl:           cfg.TTL,
		shippingPrice: cfg.ShippingPrice,
		cache:         cfg.Cache,
		metrics:       cfg.Metrics,
		events:        cfg.Events,
		logger:        cfg.Logger,
		now:           time.Now,
	}
}

// Session returns key's session as seen through api, creating it on first use. The key must
// name an identity the caller has proven: every caller with the same key shares the cart.
func (r *SessionRegistry) Session(ctx context.Context, key string, api StoreAPI) *Session {
	r.mu.Lock()
	e, ok := r.sessions[key]
	if ok {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.view(key, api)
	}

	cart := NewCartStore(nil, key, r.cache, r.metrics, r.logger)
	e = &sessionEntry{
		cart:     cart,
		checkout: NewCheckoutOrchestrator(nil, cart, r.shippingPrice, r.events, r.metrics, r.logger),
		lastSeen: r.now(),
	}
	r.sessions[key] = e
	r.mu.Unlock()

	if cart.Restore(ctx) {
		r.logger.Debug("Restored cart snapshot", zap.String("owner", key))
	}
	return e.view(key, api)
}

func (e *sessionEntry) view(key string, api StoreAPI) *Session {
	cart := e.cart.Using(api)
	return &Session{
		Key:      key,
		Cart:     cart,
		Checkout: e.checkout.Using(api, cart),
	}
}

// Forget drops the session for key together with its cached snapshot.
func (r *SessionRegistry) Forget(ctx context.Context, key string) {
	r.mu.Lock()
	delete(r.sessions, key)
	r.mu.Unlock()

	if r.cache == nil {
		return
	}
	if err := r.cache.Delete(ctx, key); err != nil {
		r.logger.Warn("Failed to delete cart snapshot", zap.String("owner", key), zap.Error(err))
	}
}

func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than the TTL, skipping any with a call in flight.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	evicted := 0
	for key, e := range r.sessions {
		if now.Sub(e.lastSeen) <= r.ttl {
			continue
		}
		if e.cart.State() == StateLoading || e.checkout.State() == CheckoutSubmitting {
			continue
		}
		delete(r.sessions, key)
		evicted++
	}
	return evicted
}

// Run sweeps every half TTL, but never more than once per second, until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval(r.ttl))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug("Evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	if every := ttl / 2; every > minSweepInterval {
		return every
	}
	return minSweepInterval
}
