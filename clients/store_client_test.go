package clients_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luxurytech30-cpu/meiza-font/clients"
	apperrors "github.com/luxurytech30-cpu/meiza-font/errors"
	"github.com/luxurytech30-cpu/meiza-font/identity"
	"github.com/luxurytech30-cpu/meiza-font/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- helpers ----

type recorded struct {
	method string
	path   string
	query  string
	guest  string
	auth   string
	body   map[string]interface{}
}

func newServer(t *testing.T, status int, response string, got *recorded) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			got.method = r.Method
			got.path = r.URL.Path
			got.query = r.URL.RawQuery
			got.guest = r.Header.Get("x-guest-id")
			got.auth = r.Header.Get("Authorization")
			if b, _ := io.ReadAll(r.Body); len(b) > 0 {
				_ = json.Unmarshal(b, &got.body)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const cartJSON = `{"cart":{"items":[{"_id":"l1","product":"p1","optionId":"o1","name":"Vase","optionName":"Small","price":70,"quantity":2}]},"subtotal":140}`

// ---- tests ----

func TestStoreClient_AttachesIdentityHeaders(t *testing.T) {
	var got recorded
	srv := newServer(t, http.StatusOK, cartJSON, &got)

	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{BearerToken: "tok", Guest: "guest-1"})
	cart, err := c.GetCart(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/cart", got.path)
	assert.Contains(t, got.query, "_ts=")
	assert.Equal(t, "guest-1", got.guest)
	assert.Equal(t, "Bearer tok", got.auth)

	require.Len(t, cart.Lines, 1)
	assert.True(t, cart.Subtotal.Equal(decimal.NewFromInt(140)))
	assert.False(t, cart.FetchedAt.IsZero())
}

func TestStoreClient_GuestOnlyOmitsAuthorization(t *testing.T) {
	var got recorded
	srv := newServer(t, http.StatusOK, cartJSON, &got)

	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "guest-2"})
	_, err := c.ClearCart(context.Background())
	require.NoError(t, err)

	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/cart", got.path)
	assert.Equal(t, "guest-2", got.guest)
	assert.Empty(t, got.auth)
}

func TestStoreClient_CartMutations(t *testing.T) {
	var got recorded
	srv := newServer(t, http.StatusOK, cartJSON, &got)
	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g"})
	ctx := context.Background()

	_, err := c.AddCartItem(ctx, models.AddCartItemRequest{ProductID: "p1", OptionID: "o1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/cart/items", got.path)
	assert.Equal(t, map[string]interface{}{"productId": "p1", "optionId": "o1", "quantity": float64(3)}, got.body)

	got.body = nil
	_, err = c.UpdateCartItem(ctx, "l1", 4)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, got.method)
	assert.Equal(t, "/cart/items/l1", got.path)
	assert.Equal(t, map[string]interface{}{"quantity": float64(4)}, got.body)

	_, err = c.RemoveCartItem(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/cart/items/l1", got.path)
}

func TestStoreClient_ServerErrorMessageKept(t *testing.T) {
	srv := newServer(t, http.StatusConflict, `{"error":"Only 2 left in stock"}`, nil)
	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g"})

	_, err := c.AddCartItem(context.Background(), models.AddCartItemRequest{ProductID: "p", OptionID: "o", Quantity: 3})
	require.Error(t, err)

	msg, ok := clients.ServerMessage(err)
	assert.True(t, ok)
	assert.Equal(t, "Only 2 left in stock", msg)
	assert.Equal(t, http.StatusConflict, apperrors.HTTPStatus(err))
}

func TestStoreClient_ErrorWithoutMessage(t *testing.T) {
	srv := newServer(t, http.StatusInternalServerError, `oops`, nil)
	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g"})

	_, err := c.GetCart(context.Background())
	require.Error(t, err)
	_, ok := clients.ServerMessage(err)
	assert.False(t, ok)
	assert.Equal(t, http.StatusInternalServerError, apperrors.HTTPStatus(err))
}

func TestStoreClient_MalformedPayload(t *testing.T) {
	srv := newServer(t, http.StatusOK, `<html>`, nil)
	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g"})

	_, err := c.GetCart(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrMalformedPayload)
}

func TestStoreClient_Checkout(t *testing.T) {
	var got recorded
	srv := newServer(t, http.StatusCreated, `{"_id":"ord-1","status":"pending","total":190}`, &got)
	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g", BearerToken: "t"})

	form := models.ShippingForm{FullName: "Dana", Email: "d@x.io", Phone: "1", City: "Haifa", Street: "Herzl"}
	order, err := c.Checkout(context.Background(), models.NewOrderRequest(form, models.PaymentCashOnDelivery, decimal.NewFromInt(50)))
	require.NoError(t, err)
	assert.Equal(t, "ord-1", order.ID)
	assert.Equal(t, "/orders/checkout", got.path)
	assert.Equal(t, "cod", got.body["paymentMethod"])
	assert.Equal(t, float64(50), got.body["shippingPrice"])
}

func TestStoreClient_CheckoutWrappedOrder(t *testing.T) {
	srv := newServer(t, http.StatusOK, `{"order":{"_id":"ord-2"}}`, nil)
	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g"})

	order, err := c.Checkout(context.Background(), models.OrderRequest{PaymentMethod: models.PaymentCashOnDelivery})
	require.NoError(t, err)
	assert.Equal(t, "ord-2", order.ID)
}

func TestStoreClient_Catalog(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products":[{"_id":"p1","name":"Vase","options":[{"_id":"o1","name":"S","price":10}]}]}`))
	})
	mux.HandleFunc("/products/p1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_id":"p1","name":{"en":"Vase","he":"אגרטל"},"options":[]}`))
	})
	mux.HandleFunc("/categories", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"c1","name":"Vases"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g"})
	ctx := context.Background()

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "o1", products[0].DefaultOption().ID)

	p, err := c.GetProduct(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "אגרטל", p.Name.Resolve(models.LanguageHE))

	cats, err := c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c1", cats[0].ID)
}

func TestStoreClient_LoginAndMe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"jwt-1","user":{"_id":"u1","name":"Dana","username":"dana","roles":["vip"]}}`))
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer jwt-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"user":{"_id":"u1","roles":["vip"]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ids := identity.NewMemoryStore()
	c := clients.NewStoreClient(srv.URL, srv.Client(), ids)
	ctx := context.Background()

	auth, err := c.Login(ctx, models.LoginRequest{Username: "dana", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, models.TierVIP, auth.User.Tier())

	_, err = c.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))

	require.NoError(t, ids.SetToken(auth.Token))
	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)
}

func TestStoreClient_ListProductsEnvelopes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantIDs  []string
		wantErr  error
	}{
		{"bare array", `[{"_id":"p1"},{"_id":"p2"}]`, []string{"p1", "p2"}, nil},
		{"items envelope", `{"items":[{"_id":"p1"}],"total":1,"page":1}`, []string{"p1"}, nil},
		{"products envelope", `{"products":[{"_id":"p2"}]}`, []string{"p2"}, nil},
		{"empty items", `{"items":[]}`, []string{}, nil},
		{"unknown envelope", `{"data":[{"_id":"p1"}]}`, nil, apperrors.ErrMalformedPayload},
		{"items not a list", `{"items":{"_id":"p1"}}`, nil, apperrors.ErrMalformedPayload},
		{"not json", `<html>`, nil, apperrors.ErrMalformedPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, http.StatusOK, tt.response, nil)
			c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g"})

			products, err := c.ListProducts(context.Background())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			ids := []string{}
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestStoreClient_ListFeatured(t *testing.T) {
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		if r.URL.Query().Get("featured") == "true" {
			_, _ = w.Write([]byte(`{"items":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"_id":"p1"},{"_id":"p2"},{"_id":"p3"},{"_id":"p4"}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g"})
	products, err := c.ListFeatured(context.Background(), 0)

	require.NoError(t, err)
	require.Len(t, products, clients.DefaultFeaturedLimit)
	assert.Equal(t, "p1", products[0].ID)
	require.Len(t, queries, 2, "an empty featured list falls back to the plain catalog")
	assert.Equal(t, "featured=true&limit=3", queries[0])
	assert.Equal(t, "limit=3", queries[1])
}

func TestStoreClient_Orders(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders/my", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"ord-1","status":"pending","items":[{"product":"p1","optionId":"o1","name":"Vase","optionName":"S","price":70,"quantity":2}],"totals":{"subtotal":140,"shipping":50,"grandTotal":190}}]`))
	})
	mux.HandleFunc("/orders/ord-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"_id":"ord-1","status":"pending","payment":{"method":"cod"},"shipping":{"fullName":"Dana","city":"Haifa"}}`))
	})
	mux.HandleFunc("/orders/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Order not found"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g", BearerToken: "t"})
	ctx := context.Background()

	orders, err := c.ListMyOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 2, orders[0].ItemCount())
	assert.True(t, orders[0].Totals.GrandTotal.Equal(decimal.NewFromInt(190)))

	order, err := c.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCashOnDelivery, order.Method())
	assert.Equal(t, "Haifa", order.Shipping.City)

	_, err = c.GetOrder(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
	assert.Equal(t, "Order not found", apperrors.Message(err))
}

func TestStoreClient_UpdateProfile(t *testing.T) {
	var got recorded
	srv := newServer(t, http.StatusOK, `{"user":{"_id":"u1","name":"Dana L","username":"dana","roles":["vip"]}}`, &got)
	c := clients.NewStoreClient(srv.URL, srv.Client(), identity.Static{Guest: "g", BearerToken: "t"})

	user, err := c.UpdateProfile(context.Background(), models.ProfileUpdate{Name: "Dana L", Username: "dana"})

	require.NoError(t, err)
	assert.Equal(t, "Dana L", user.Name)
	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/auth/me", got.path)
	assert.Equal(t, "Bearer t", got.auth)
	assert.NotContains(t, got.body, "password", "a blank password is not sent")
}
