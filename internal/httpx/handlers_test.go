package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/clock"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/testdb"
	"github.com/ariefcatur/go-storefront/internal/users"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	handler http.Handler
	mr      *miniredis.Miniredis
	alice   users.User
	bob     users.User
	shirt   catalog.Product
	socks   catalog.Product
}

func intp(v int) *int { return &v }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testdb.Open(t, orders.Models()...)
	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })

	apparel := catalog.Category{Name: "Apparel"}
	require.NoError(t, db.Create(&apparel).Error)

	e := &testEnv{
		mr:    mr,
		alice: users.User{Email: "alice@example.com", FirstName: "Alice"},
		bob:   users.User{Email: "bob@example.com", FirstName: "Bob"},
		shirt: catalog.Product{Name: "Shirt", CategoryID: &apparel.ID, Price: decimal.NewNullDecimal(decimal.RequireFromString("10.00")), Qty: intp(40), AlertStock: intp(5)},
		socks: catalog.Product{Name: "Socks", Price: decimal.NewNullDecimal(decimal.RequireFromString("5.00")), Qty: intp(2), AlertStock: intp(5)},
	}
	require.NoError(t, db.Create(&e.alice).Error)
	require.NoError(t, db.Create(&e.bob).Error)
	require.NoError(t, db.Create(&e.shirt).Error)
	require.NoError(t, db.Create(&e.socks).Error)

	log := zap.NewNop()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	router := NewRouter(log, reg)

	(&CatalogHandler{Repo: &catalog.Repo{DB: db}, Log: log}).Register(router)
	ch := &CartHandler{
		Store:    &cart.Store{DB: db, Log: log, Metrics: m},
		Shipping: decimal.RequireFromString("50.00"),
		Log:      log,
	}
	oh := &OrdersHandler{
		Service: &orders.Service{
			DB:        db,
			Sequencer: orders.Sequencer{Clock: clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)), Location: time.UTC},
			Log:       log,
			Metrics:   m,
		},
		Repo:  &orders.Repo{DB: db},
		Redis: rdb,
		Log:   log,
	}
	router.Group(func(r chi.Router) {
		r.Use(RequireUser(&users.Repo{DB: db}, log))
		ch.Register(r)
		oh.Register(r)
	})
	e.handler = router
	return e
}

func (e *testEnv) do(t *testing.T, method, path string, user int64, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != 0 {
		req.Header.Set("X-User-Id", fmt.Sprint(user))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") &&
		strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func errType(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	s, _ := e["type"].(string)
	return s
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	rec, _ := e.do(t, http.MethodGet, "/healthz", 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestCartRequiresUser(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodGet, "/cart", 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", errType(body))
	assert.Equal(t, false, body["success"])

	rec, _ = e.do(t, http.MethodGet, "/cart", 9999, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProductsListing(t *testing.T) {
	e := newTestEnv(t)

	var list []productView
	rec, _ := e.do(t, http.MethodGet, "/products?category=Apparel", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Shirt", list[0].Name)
	assert.Equal(t, "Apparel", list[0].Category)

	rec, _ = e.do(t, http.MethodGet, "/products?low_stock=true", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Socks", list[0].Name)
	assert.True(t, list[0].LowStock)

	rec, body := e.do(t, http.MethodGet, "/products?low_stock=maybe", 0, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errType(body))

	rec, body = e.do(t, http.MethodGet, "/products/9999", 0, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errType(body))

	rec, _ = e.do(t, http.MethodGet, fmt.Sprintf("/products/%d", e.shirt.ID), 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p productView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotNil(t, p.Price)
	assert.Equal(t, "10.00", *p.Price)
}

func TestCartFlow(t *testing.T) {
	e := newTestEnv(t)
	add := fmt.Sprintf("/cart/products/%d", e.shirt.ID)

	rec, body := e.do(t, http.MethodPost, add, e.alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["level"])
	assert.Equal(t, "Added Shirt to your cart.", body["message"])

	_, body = e.do(t, http.MethodPost, add, e.alice.ID, "")
	assert.Equal(t, "info", body["level"])
	assert.Equal(t, "Increased quantity for Shirt.", body["message"])
	c := body["cart"].(map[string]any)
	assert.Equal(t, "20.00", c["grand_total"])
	line := c["lines"].([]any)[0].(map[string]any)
	lineID := int64(line["id"].(float64))
	assert.Equal(t, float64(2), line["qty"])

	rec, _ = e.do(t, http.MethodPost, fmt.Sprintf("/cart/lines/%d/increase", lineID), e.bob.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, body = e.do(t, http.MethodPost, fmt.Sprintf("/cart/lines/%d/decrease", lineID), e.alice.ID, "")
	assert.Equal(t, "success", body["level"])
	rec, body = e.do(t, http.MethodPost, fmt.Sprintf("/cart/lines/%d/decrease", lineID), e.alice.ID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "warning", body["level"])
	assert.Equal(t, "Cannot decrease quantity for Shirt below 1.", body["message"])

	_, body = e.do(t, http.MethodDelete, "/cart", e.alice.ID, "")
	assert.Equal(t, "Cart cleared successfully.", body["message"])
	_, body = e.do(t, http.MethodDelete, "/cart", e.alice.ID, "")
	assert.Equal(t, "error", body["level"])
	assert.Equal(t, "No items found in the cart.", body["message"])

	rec, body = e.do(t, http.MethodPost, "/cart/products/9999", e.alice.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errType(body))
}

func TestCheckout(t *testing.T) {
	e := newTestEnv(t)

	rec, body := e.do(t, http.MethodGet, "/checkout", e.alice.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "empty_cart", errType(body))

	e.do(t, http.MethodPost, fmt.Sprintf("/cart/products/%d", e.socks.ID), e.alice.ID, "")
	rec, body = e.do(t, http.MethodGet, "/checkout", e.alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5.00", body["subtotal"])
	assert.Equal(t, "50.00", body["shipping"])
	assert.Equal(t, "55.00", body["total"])
}

func TestPlaceOrderFlow(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, fmt.Sprintf("/cart/products/%d", e.shirt.ID), e.alice.ID, "")
	e.do(t, http.MethodPost, fmt.Sprintf("/cart/products/%d", e.shirt.ID), e.alice.ID, "")
	e.do(t, http.MethodPost, fmt.Sprintf("/cart/products/%d", e.socks.ID), e.alice.ID, "")

	rec, body := e.do(t, http.MethodPost, "/orders", e.alice.ID, `{"payment_method":"card"}`, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Order #2024-06-01 001 placed successfully!", body["message"])
	order := body["order"].(map[string]any)
	assert.Equal(t, "25.00", order["total_amount"])
	assert.Equal(t, "CARD", order["payment_method"])
	assert.Equal(t, "PENDING", order["status"])
	assert.Len(t, order["items"], 2)
	orderID := int64(order["id"].(float64))

	rec, body = e.do(t, http.MethodPost, "/orders", e.alice.ID, "", "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["idempotent"])
	assert.Equal(t, "2024-06-01 001", body["order"].(map[string]any)["order_number"])

	rec, body = e.do(t, http.MethodPost, "/orders", e.alice.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "empty_cart", errType(body))

	rec, body = e.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), e.alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-06-01 001", body["order_number"])
	assert.True(t, e.mr.Exists(redisx.OrderKey(orderID)))

	rec, _ = e.do(t, http.MethodGet, fmt.Sprintf("/orders/%d", orderID), e.bob.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = e.do(t, http.MethodGet, "/orders", e.alice.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "25.00", list[0].TotalAmount)

	rec, _ = e.do(t, http.MethodGet, "/metrics", 0, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "storefront_orders_placed_total 1")
}

func TestPlaceOrderConcurrentSameIdempotencyKey(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, fmt.Sprintf("/cart/products/%d", e.shirt.ID), e.alice.ID, "")

	const n = 4
	recs := make([]*httptest.ResponseRecorder, n)
	var wg sync.WaitGroup
	for i := range recs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/orders", nil)
			req.Header.Set("X-User-Id", fmt.Sprint(e.alice.ID))
			req.Header.Set("Idempotency-Key", "k-dup")
			recs[i] = httptest.NewRecorder()
			e.handler.ServeHTTP(recs[i], req)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, rec := range recs {
		var body placeOrderResp
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
		switch rec.Code {
		case http.StatusCreated:
			created++
			assert.False(t, body.Idempotent)
		case http.StatusOK:
			assert.True(t, body.Idempotent)
		default:
			t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
		}
		assert.Equal(t, "2024-06-01 001", body.Order.OrderNumber)
	}
	assert.Equal(t, 1, created)
	assert.False(t, e.mr.Exists(redisx.IdemOrderPendingKey(e.alice.ID, "k-dup")))

	rec, _ := e.do(t, http.MethodGet, "/orders", e.alice.ID, "")
	var list []orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestPlaceOrderRejectsUnknownPaymentMethod(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, fmt.Sprintf("/cart/products/%d", e.shirt.ID), e.alice.ID, "")

	rec, body := e.do(t, http.MethodPost, "/orders", e.alice.ID, `{"payment_method":"barter"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errType(body))

	rec, _ = e.do(t, http.MethodPost, "/orders", e.alice.ID, `{"payment_method":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
