package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-ecom/internal/cart"
	"github.com/MikeMC777/tienda-ecom/internal/catalog"
	"github.com/MikeMC777/tienda-ecom/internal/chainpay"
	"github.com/MikeMC777/tienda-ecom/internal/config"
	"github.com/MikeMC777/tienda-ecom/internal/order"
	"github.com/MikeMC777/tienda-ecom/internal/payment"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testJWTSecret     = "test-jwt-secret"
	testWebhookSecret = "whsec_router_test"
	testWallet        = "TestMerchantWa11et"
)

// ---- in-memory doubles ----

type memCatalog struct {
	mu        sync.Mutex
	products  map[string]*catalog.Product
	variants  map[string]*catalog.Variant
	inventory map[string]int
}

func (f *memCatalog) List(_ context.Context, _ catalog.Query) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range f.products {
		out = append(out, *p)
	}
	return out, nil
}

func (f *memCatalog) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func (f *memCatalog) ListVariants(_ context.Context, productID string) ([]catalog.Variant, error) {
	var out []catalog.Variant
	for id, v := range f.variants {
		if v.ProductID == productID {
			cp := *v
			cp.Inventory = f.inventory[id]
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *memCatalog) GetVariant(_ context.Context, id string) (*catalog.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *v
	cp.Inventory = f.inventory[id]
	return &cp, nil
}

type memCarts struct {
	mu    sync.Mutex
	carts map[string]*cart.Cart // by owner key
}

func (r *memCarts) GetByOwner(_ context.Context, owner cart.Owner) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[owner.Key()]
	if !ok {
		return nil, cart.ErrNotFound
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp, nil
}

func (r *memCarts) AddItem(_ context.Context, owner cart.Owner, item cart.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[owner.Key()]
	if !ok {
		c = &cart.Cart{ID: gofakeit.UUID(), UserID: owner.UserID, SessionID: owner.SessionID}
		r.carts[owner.Key()] = c
	}
	for i := range c.Items {
		if c.Items[i].VariantID == item.VariantID {
			c.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	item.ID = gofakeit.UUID()
	item.CartID = c.ID
	c.Items = append(c.Items, item)
	return nil
}

func (r *memCarts) SetItemQuantity(ctx context.Context, owner cart.Owner, itemID string, quantity int) error {
	if quantity == 0 {
		return r.RemoveItem(ctx, owner, itemID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[owner.Key()]
	if !ok {
		return cart.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (r *memCarts) RemoveItem(_ context.Context, owner cart.Owner, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[owner.Key()]
	if !ok {
		return cart.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (r *memCarts) Clear(_ context.Context, owner cart.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[owner.Key()]; ok {
		c.Items = nil
	}
	return nil
}

func (r *memCarts) clearByID(cartID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.carts {
		if c.ID == cartID {
			c.Items = nil
		}
	}
}

type memOrders struct {
	mu      sync.Mutex
	catalog *memCatalog
	carts   *memCarts
	orders  map[string]*order.Order
	items   map[string][]order.Item
}

func (r *memOrders) Create(_ context.Context, o *order.Order, items []order.Item, _, _ *order.Address, cartID string) error {
	r.catalog.mu.Lock()
	for _, it := range items {
		if r.catalog.inventory[it.VariantID] < it.Quantity {
			p := r.catalog.products[it.ProductID]
			avail := r.catalog.inventory[it.VariantID]
			r.catalog.mu.Unlock()
			return &catalog.InsufficientStockError{
				ProductID: p.ID, ProductTitle: p.Title,
				Requested: it.Quantity, Available: avail,
			}
		}
	}
	for _, it := range items {
		r.catalog.inventory[it.VariantID] -= it.Quantity
	}
	r.catalog.mu.Unlock()

	r.mu.Lock()
	cp := *o
	r.orders[o.ID] = &cp
	r.items[o.ID] = items
	r.mu.Unlock()
	r.carts.clearByID(cartID)
	return nil
}

func (r *memOrders) GetByID(_ context.Context, id string) (*order.Order, []order.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, nil, order.ErrNotFound
	}
	cp := *o
	return &cp, r.items[id], nil
}

func (r *memOrders) ListByUser(_ context.Context, userID string, _, _ int) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrders) SetPaymentStatus(_ context.Context, id string, ps order.PaymentStatus, st order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.PaymentStatus = ps
	o.Status = st
	return nil
}

func (r *memOrders) SetPaymentStatusByRef(_ context.Context, ref string, ps order.PaymentStatus, st order.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentRef == ref {
			o.PaymentStatus = ps
			o.Status = st
			return nil
		}
	}
	return order.ErrNotFound
}

func (r *memOrders) SetPaymentRef(_ context.Context, id, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.PaymentRef = ref
	return nil
}

type memEvents struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (s *memEvents) Processed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[eventID], nil
}

func (s *memEvents) MarkProcessed(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID] = true
	return nil
}

type memChainRepo struct {
	mu       sync.Mutex
	payments map[string]*chainpay.Payment
}

func (r *memChainRepo) Create(_ context.Context, p *chainpay.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memChainRepo) GetByOrderID(_ context.Context, orderID string) (*chainpay.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, chainpay.ErrNotFound
}

func (r *memChainRepo) SetStatus(_ context.Context, id string, status chainpay.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return chainpay.ErrNotFound
	}
	p.Status = status
	return nil
}

func (r *memChainRepo) SetSubmitted(_ context.Context, id, txHash string, status chainpay.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return chainpay.ErrNotFound
	}
	p.TxHash = txHash
	p.Status = status
	return nil
}

type stubRPC struct {
	transfer chainpay.TransferInfo
	status   *chainpay.SignatureStatus
}

func (r *stubRPC) GetTransfer(_ context.Context, _ string) (*chainpay.TransferInfo, error) {
	cp := r.transfer
	return &cp, nil
}

func (r *stubRPC) GetSignatureStatus(_ context.Context, _ string) (*chainpay.SignatureStatus, error) {
	if r.status == nil {
		return nil, nil
	}
	cp := *r.status
	return &cp, nil
}

// ---- harness ----

type env struct {
	router  *gin.Engine
	catalog *memCatalog
	carts   *memCarts
	orders  *memOrders
}

// newGatewayServer fakes the card gateway the way its real API answers.
func newGatewayServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":            "pi_test_1",
			"client_secret": "pi_test_1_secret",
			"status":        "requires_payment_method",
		})
	}))
}

func newEnv(t *testing.T, gatewayStatus int) *env {
	t.Helper()

	cat := &memCatalog{
		products: map[string]*catalog.Product{
			"p1": {ID: "p1", Title: "Mechanical Keyboard"},
		},
		variants: map[string]*catalog.Variant{
			"v1": {ID: "v1", ProductID: "p1", Title: "Black", Price: decimal.RequireFromString("29.99")},
		},
		inventory: map[string]int{"v1": 10},
	}
	carts := &memCarts{carts: map[string]*cart.Cart{}}
	orders := &memOrders{catalog: cat, carts: carts,
		orders: map[string]*order.Order{}, items: map[string][]order.Item{}}

	gw := newGatewayServer(t, gatewayStatus)
	t.Cleanup(gw.Close)

	rpc := &stubRPC{
		transfer: chainpay.TransferInfo{Destination: testWallet, Lamports: 1 << 62},
		status:   &chainpay.SignatureStatus{ConfirmationStatus: "finalized"},
	}
	chain := chainpay.NewService(&memChainRepo{payments: map[string]*chainpay.Payment{}}, orders, rpc)
	chain.PollInterval = time.Millisecond
	chain.MaxAttempts = 3

	cfg := config.Config{
		JWTSecret:            testJWTSecret,
		GatewayWebhookSecret: testWebhookSecret,
		MerchantWallet:       testWallet,
		TaxRate:              0.08,
	}

	// Redis is unreachable here; the rate limiter fails open.
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 10 * time.Millisecond})

	router := setupRouter(deps{
		cfg:       cfg,
		rdb:       rdb,
		catalog:   cat,
		carts:     cart.NewService(carts, cat, nil),
		orders:    orders,
		finalizer: order.NewFinalizer(orders, carts, cat, cfg.TaxRate),
		gateway:   payment.NewGateway(gw.URL, "sk_test"),
		webhooks:  payment.NewWebhookProcessor(orders, &memEvents{seen: map[string]bool{}}),
		chain:     chain,
	})
	return &env{router: router, catalog: cat, carts: carts, orders: orders}
}

func (e *env) do(t *testing.T, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func sessionHeader() map[string]string {
	return map[string]string{"X-Session-ID": gofakeit.UUID()}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	return m
}

func checkoutBody(email string) map[string]any {
	addr := map[string]any{
		"name": gofakeit.Name(), "line1": gofakeit.Street(),
		"city": gofakeit.City(), "postal_code": gofakeit.Zip(), "country": "US",
	}
	return map[string]any{
		"email":            email,
		"shipping_address": addr,
		"shipping_method":  "standard",
		"payment_method":   "card",
	}
}

func signEvent(payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// ---- tests ----

func TestHealth(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	w := e.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCartRequiresIdentity(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	w := e.do(t, http.MethodPost, "/cart/items",
		map[string]any{"product_id": "p1", "variant_id": "v1", "quantity": 1}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartFlow(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	hdr := sessionHeader()

	w := e.do(t, http.MethodPost, "/cart/items",
		map[string]any{"product_id": "p1", "variant_id": "v1", "quantity": 2}, hdr)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/cart", nil, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "59.98", body["subtotal"])
	assert.Equal(t, "4.80", body["tax"])
	assert.Equal(t, "5.99", body["shipping"])
	assert.Equal(t, "70.77", body["total"])

	// Expedited quote without mutating the cart.
	w = e.do(t, http.MethodGet, "/cart?shipping_method=expedited", nil, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12.99", decodeBody(t, w)["shipping"])

	owner := cart.Owner{SessionID: hdr["X-Session-ID"]}
	c, err := e.carts.GetByOwner(context.Background(), owner)
	require.NoError(t, err)
	itemID := c.Items[0].ID

	w = e.do(t, http.MethodPut, "/cart/items/"+itemID, map[string]any{"quantity": 0}, hdr)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/cart", nil, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decodeBody(t, w)["subtotal"])
}

func TestAddCartItem_InsufficientStock(t *testing.T) {
	e := newEnv(t, http.StatusOK)

	w := e.do(t, http.MethodPost, "/cart/items",
		map[string]any{"product_id": "p1", "variant_id": "v1", "quantity": 11}, sessionHeader())

	require.Equal(t, http.StatusConflict, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "insufficient_stock", body["error"])
	assert.Equal(t, "Mechanical Keyboard", body["product_title"])
	assert.EqualValues(t, 10, body["available"])
}

func TestCheckout_Card(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	hdr := sessionHeader()

	w := e.do(t, http.MethodPost, "/cart/items",
		map[string]any{"product_id": "p1", "variant_id": "v1", "quantity": 1}, hdr)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/checkout", checkoutBody(gofakeit.Email()), hdr)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "pi_test_1_secret", body["client_secret"])
	o := body["order"].(map[string]any)
	assert.Equal(t, "pending", o["status"])
	assert.Equal(t, "pending", o["payment_status"])
	assert.Equal(t, "38.38", fmt.Sprint(o["total"]))
	assert.True(t, strings.HasPrefix(o["order_number"].(string), "ORD-"))

	assert.Equal(t, 9, e.catalog.inventory["v1"])

	// Cart is consumed by the checkout.
	w = e.do(t, http.MethodGet, "/cart", nil, hdr)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0.00", decodeBody(t, w)["subtotal"])

	// The intent id is stored for webhook correlation.
	stored := e.orders.orders[o["id"].(string)]
	assert.Equal(t, "pi_test_1", stored.PaymentRef)
}

func TestCheckout_EmptyCart(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	w := e.do(t, http.MethodPost, "/checkout", checkoutBody(gofakeit.Email()), sessionHeader())
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "empty_cart", decodeBody(t, w)["error"])
}

func TestCheckout_Validation(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	hdr := sessionHeader()
	w := e.do(t, http.MethodPost, "/cart/items",
		map[string]any{"product_id": "p1", "variant_id": "v1", "quantity": 1}, hdr)
	require.Equal(t, http.StatusCreated, w.Code)

	mutate := []struct {
		name  string
		field string
		with  func(m map[string]any)
	}{
		{"bad email", "email", func(m map[string]any) { m["email"] = "not-an-email" }},
		{"bad shipping method", "shipping_method", func(m map[string]any) { m["shipping_method"] = "teleport" }},
		{"bad payment method", "payment_method", func(m map[string]any) { m["payment_method"] = "iou" }},
		{"incomplete address", "shipping_address.country", func(m map[string]any) {
			m["shipping_address"].(map[string]any)["country"] = ""
		}},
	}
	for _, tc := range mutate {
		t.Run(tc.name, func(t *testing.T) {
			body := checkoutBody(gofakeit.Email())
			tc.with(body)
			w := e.do(t, http.MethodPost, "/checkout", body, hdr)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.field, decodeBody(t, w)["field"])
		})
	}

	// Nothing consumed by the failed attempts.
	w = e.do(t, http.MethodGet, "/cart", nil, hdr)
	assert.Equal(t, "29.99", decodeBody(t, w)["subtotal"])
}

func TestCheckout_GatewayDownKeepsOrder(t *testing.T) {
	e := newEnv(t, http.StatusInternalServerError)
	hdr := sessionHeader()
	w := e.do(t, http.MethodPost, "/cart/items",
		map[string]any{"product_id": "p1", "variant_id": "v1", "quantity": 1}, hdr)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/checkout", checkoutBody(gofakeit.Email()), hdr)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["payment_error"])
	assert.Nil(t, body["client_secret"])
	assert.Len(t, e.orders.orders, 1, "order survives a gateway outage")
}

func TestCheckout_CryptoAndVerify(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	hdr := sessionHeader()
	w := e.do(t, http.MethodPost, "/cart/items",
		map[string]any{"product_id": "p1", "variant_id": "v1", "quantity": 1}, hdr)
	require.Equal(t, http.StatusCreated, w.Code)

	body := checkoutBody(gofakeit.Email())
	body["payment_method"] = "crypto"
	w = e.do(t, http.MethodPost, "/checkout", body, hdr)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decodeBody(t, w)
	cp := resp["crypto_payment"].(map[string]any)
	assert.Equal(t, "pending", cp["status"])
	assert.Equal(t, testWallet, cp["wallet_address"])
	orderID := resp["order"].(map[string]any)["id"].(string)

	w = e.do(t, http.MethodPost, "/orders/"+orderID+"/crypto/verify",
		map[string]any{"tx_hash": "sig-abc"}, hdr)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	verified := decodeBody(t, w)["payment"].(map[string]any)
	assert.Equal(t, "confirming", verified["status"])

	// Optimistic confirmation lands on the order immediately.
	o, _, err := e.orders.GetByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
	assert.Equal(t, order.StatusConfirmed, o.Status)
}

func TestVerifyCrypto_MissingHash(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	w := e.do(t, http.MethodPost, "/orders/"+gofakeit.UUID()+"/crypto/verify",
		map[string]any{}, sessionHeader())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrders_OwnerScoping(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	userA, userB := gofakeit.UUID(), gofakeit.UUID()
	hdrA := map[string]string{"Authorization": bearer(t, userA)}

	w := e.do(t, http.MethodPost, "/cart/items",
		map[string]any{"product_id": "p1", "variant_id": "v1", "quantity": 1}, hdrA)
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(t, http.MethodPost, "/checkout", checkoutBody(gofakeit.Email()), hdrA)
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decodeBody(t, w)["order"].(map[string]any)["id"].(string)

	w = e.do(t, http.MethodGet, "/orders/"+orderID, nil, hdrA)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/orders/"+orderID, nil,
		map[string]string{"Authorization": bearer(t, userB)})
	assert.Equal(t, http.StatusNotFound, w.Code, "foreign orders read as not found")

	w = e.do(t, http.MethodGet, "/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/orders", nil, hdrA)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody(t, w)["items"].([]any)
	assert.Len(t, list, 1)
}

func TestWebhook(t *testing.T) {
	e := newEnv(t, http.StatusOK)
	hdr := sessionHeader()
	w := e.do(t, http.MethodPost, "/cart/items",
		map[string]any{"product_id": "p1", "variant_id": "v1", "quantity": 1}, hdr)
	require.Equal(t, http.StatusCreated, w.Code)
	w = e.do(t, http.MethodPost, "/checkout", checkoutBody(gofakeit.Email()), hdr)
	require.Equal(t, http.StatusCreated, w.Code)
	orderID := decodeBody(t, w)["order"].(map[string]any)["id"].(string)

	payload, err := json.Marshal(map[string]any{
		"id":   "evt_rt_1",
		"type": "payment_intent.succeeded",
		"data": map[string]any{"object": map[string]any{
			"id":       "pi_test_1",
			"metadata": map[string]string{"order_id": orderID},
		}},
	})
	require.NoError(t, err)

	t.Run("invalid signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", bytes.NewReader(payload))
		req.Header.Set("X-Gateway-Signature", "t=1,v1=deadbeef")
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid event confirms order", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", bytes.NewReader(payload))
		req.Header.Set("X-Gateway-Signature", signEvent(payload, time.Now()))
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		o, _, err := e.orders.GetByID(context.Background(), orderID)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentPaid, o.PaymentStatus)
		assert.Equal(t, order.StatusConfirmed, o.Status)
	})

	t.Run("replay is a no-op ack", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", bytes.NewReader(payload))
		req.Header.Set("X-Gateway-Signature", signEvent(payload, time.Now()))
		rec := httptest.NewRecorder()
		e.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestProducts(t *testing.T) {
	e := newEnv(t, http.StatusOK)

	w := e.do(t, http.MethodGet, "/products", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/products/p1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	p := body["product"].(map[string]any)
	assert.Equal(t, "Mechanical Keyboard", p["title"])
	variants := body["variants"].([]any)
	require.Len(t, variants, 1)

	w = e.do(t, http.MethodGet, "/products/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
