package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/luxurytech30-cpu/meiza-font/errors"
	"github.com/luxurytech30-cpu/meiza-font/identity"
	"github.com/luxurytech30-cpu/meiza-font/models"
)

const (
	HeaderGuestID       = "x-guest-id"
	HeaderAuthorization = "Authorization"
)

// DefaultFeaturedLimit is the number of featured products shown when none is asked for.
const DefaultFeaturedLimit = 3

// StoreClient talks to the store REST API on behalf of one shopper identity.
type StoreClient struct {
	baseURL  string
	client   *http.Client
	identity identity.Provider
	now      func() time.Time
}

// NewStoreClient builds a client whose requests carry the identity's token and guest id.
func NewStoreClient(baseURL string, httpClient *http.Client, id identity.Provider) *StoreClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &StoreClient{
		baseURL:  baseURL,
		client:   httpClient,
		identity: id,
		now:      time.Now,
	}
}

// WithIdentity returns a client sharing the transport but acting for another identity.
func (s *StoreClient) WithIdentity(id identity.Provider) *StoreClient {
	cp := *s
	cp.identity = id
	return &cp
}

// Identity returns the identity attached to outgoing requests.
func (s *StoreClient) Identity() identity.Provider {
	return s.identity
}

// Do sends a request with the identity headers attached.
func (s *StoreClient) Do(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Response, error) {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.identity != nil {
		if guest := s.identity.GuestID(); guest != "" {
			req.Header.Set(HeaderGuestID, guest)
		}
		if token := s.identity.Token(); token != "" {
			req.Header.Set(HeaderAuthorization, "Bearer "+token)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBadGateway, err)
	}
	return resp, nil
}

func (s *StoreClient) doJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	resp, err := s.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	return DecodeJSON(resp, out)
}

func (s *StoreClient) doCart(ctx context.Context, method, path string, query url.Values, body interface{}) (models.Cart, error) {
	resp, err := s.Do(ctx, method, path, query, body)
	if err != nil {
		return models.Cart{}, err
	}
	data, err := ReadBody(resp)
	if err != nil {
		return models.Cart{}, err
	}
	cart, err := models.DecodeCartEnvelope(data)
	if err != nil {
		return models.Cart{}, apperrors.Wrap(apperrors.ErrMalformedPayload, err)
	}
	cart.FetchedAt = s.now().UTC()
	return cart, nil
}

// GetCart fetches the cart of the current identity. A timestamp defeats intermediary caches.
func (s *StoreClient) GetCart(ctx context.Context) (models.Cart, error) {
	q := url.Values{}
	q.Set("_ts", strconv.FormatInt(s.now().UnixMilli(), 10))
	return s.doCart(ctx, http.MethodGet, "/cart", q, nil)
}

func (s *StoreClient) AddCartItem(ctx context.Context, req models.AddCartItemRequest) (models.Cart, error) {
	return s.doCart(ctx, http.MethodPost, "/cart/items", nil, req)
}

func (s *StoreClient) UpdateCartItem(ctx context.Context, lineID string, quantity int) (models.Cart, error) {
	return s.doCart(ctx, http.MethodPatch, "/cart/items/"+url.PathEscape(lineID), nil, models.UpdateCartItemRequest{Quantity: quantity})
}

func (s *StoreClient) RemoveCartItem(ctx context.Context, lineID string) (models.Cart, error) {
	return s.doCart(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(lineID), nil, nil)
}

func (s *StoreClient) ClearCart(ctx context.Context) (models.Cart, error) {
	return s.doCart(ctx, http.MethodDelete, "/cart", nil, nil)
}

// Checkout places an order. The store API clears the cart on success.
func (s *StoreClient) Checkout(ctx context.Context, req models.OrderRequest) (*models.Order, error) {
	var raw json.RawMessage
	if err := s.doJSON(ctx, http.MethodPost, "/orders/checkout", nil, req, &raw); err != nil {
		return nil, err
	}
	var wrapped struct {
		Order *models.Order `json:"order"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Order != nil {
		return wrapped.Order, nil
	}
	var order models.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedPayload, err)
	}
	return &order, nil
}

// decodeList reads a JSON list that the store API sends either bare or inside an object under
// one of the given keys. Anything else is a malformed payload.
func decodeList[T any](raw json.RawMessage, keys ...string) ([]T, error) {
	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		if list == nil {
			list = []T{}
		}
		return list, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedPayload, err)
	}
	for _, k := range keys {
		inner, ok := envelope[k]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &list); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrMalformedPayload, fmt.Errorf("%s: %w", k, err))
		}
		if list == nil {
			list = []T{}
		}
		return list, nil
	}
	return nil, apperrors.Wrap(apperrors.ErrMalformedPayload, fmt.Errorf("no list under any of %v", keys))
}

func (s *StoreClient) listProducts(ctx context.Context, query url.Values) ([]models.Product, error) {
	var raw json.RawMessage
	if err := s.doJSON(ctx, http.MethodGet, "/products", query, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.Product](raw, "items", "products")
}

// ListProducts returns the catalog.
func (s *StoreClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.listProducts(ctx, nil)
}

// ListFeatured returns up to limit featured products. Stores that ignore the featured filter
// answer with nothing, in which case the first products of the catalog are used.
func (s *StoreClient) ListFeatured(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	lim := strconv.Itoa(limit)
	products, err := s.listProducts(ctx, url.Values{"featured": {"true"}, "limit": {lim}})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		if products, err = s.listProducts(ctx, url.Values{"limit": {lim}}); err != nil {
			return nil, err
		}
	}
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}

func (s *StoreClient) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var p models.Product
	if err := s.doJSON(ctx, http.MethodGet, "/products/"+url.PathEscape(productID), nil, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *StoreClient) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.doJSON(ctx, http.MethodGet, "/categories", nil, nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *StoreClient) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := s.doJSON(ctx, http.MethodPost, "/auth/login", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *StoreClient) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := s.doJSON(ctx, http.MethodPost, "/auth/register", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMyOrders returns the signed-in user's order history.
func (s *StoreClient) ListMyOrders(ctx context.Context) ([]models.Order, error) {
	var raw json.RawMessage
	if err := s.doJSON(ctx, http.MethodGet, "/orders/my", nil, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.Order](raw, "orders", "items")
}

func (s *StoreClient) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	var raw json.RawMessage
	if err := s.doJSON(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, &raw); err != nil {
		return nil, err
	}
	var wrapped struct {
		Order *models.Order `json:"order"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Order != nil {
		return wrapped.Order, nil
	}
	var order models.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedPayload, err)
	}
	if order.ID == "" {
		return nil, apperrors.Wrap(apperrors.ErrMalformedPayload, errors.New("order without id"))
	}
	return &order, nil
}

// UpdateProfile changes the signed-in user's name, username and optionally password.
func (s *StoreClient) UpdateProfile(ctx context.Context, req models.ProfileUpdate) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := s.doJSON(ctx, http.MethodPut, "/auth/me", nil, req, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedPayload, errors.New("profile update without user"))
	}
	return out.User, nil
}

// Me returns the user behind the current token.
func (s *StoreClient) Me(ctx context.Context) (*models.User, error) {
	var out struct {
		User *models.User `json:"user"`
	}
	if err := s.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, apperrors.ErrUnauthorized
	}
	return out.User, nil
}
