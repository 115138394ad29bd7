package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexcart/commerce-core/internal/auth"
	"github.com/nexcart/commerce-core/internal/domain/catalog"
	"github.com/nexcart/commerce-core/internal/domain/user"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/middleware"
	"github.com/nexcart/commerce-core/internal/payments"
	addressessvc "github.com/nexcart/commerce-core/internal/services/addresses"
	cartssvc "github.com/nexcart/commerce-core/internal/services/carts"
	catalogsvc "github.com/nexcart/commerce-core/internal/services/catalog"
	orderssvc "github.com/nexcart/commerce-core/internal/services/orders"
	"github.com/nexcart/commerce-core/internal/storage/memory"
)

type testEnv struct {
	store  *memory.Store
	issuer *auth.Issuer
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.New()
	log := logging.New("test", "error", "json")

	issuer, err := auth.NewIssuer([]byte("api-test-secret"))
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}

	resolver := auth.NewResolver(store, auth.NewBcryptHasher(4), log)
	gate := middleware.NewAuthenticator(issuer, log)

	server := NewServer(Config{
		Resolver:  resolver,
		Issuer:    issuer,
		Gate:      gate,
		Users:     store,
		Catalog:   catalogsvc.New(store, log),
		Carts:     cartssvc.New(store, log),
		Orders:    orderssvc.New(store, payments.NoopGateway{}, nil, nil, log),
		Addresses: addressessvc.New(store, log),
		Logger:    log,
	})

	return &testEnv{store: store, issuer: issuer, router: server.Router()}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	admin, err := e.store.Create(context.Background(), user.User{
		Email:        "admin@example.com",
		Name:         "Admin",
		PasswordHash: "x",
		Role:         user.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	token, err := e.issuer.Issue(admin, auth.TierPassword)
	if err != nil {
		t.Fatalf("issue admin token: %v", err)
	}
	return token
}

func (e *testEnv) registerCustomer(t *testing.T, email string) (string, user.User) {
	t.Helper()
	rec := e.request(t, "POST", "/auth/register", "", map[string]string{
		"name":     "Customer",
		"email":    email,
		"password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string    `json:"token"`
		User  user.User `json:"user"`
	}
	decodeBody(t, rec, &resp)
	if resp.Token == "" {
		t.Fatal("register returned no token")
	}
	return resp.Token, resp.User
}

func (e *testEnv) seedProduct(t *testing.T, name, price string) catalog.Product {
	t.Helper()
	p, err := e.store.CreateProduct(context.Background(), catalog.Product{
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Active: true,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func TestAPI_RegisterLoginAndVerify(t *testing.T) {
	env := newTestEnv(t)

	registerToken, registered := env.registerCustomer(t, "shopper@example.com")
	if registered.Role != user.RoleCustomer {
		t.Fatalf("registered role = %s, want customer", registered.Role)
	}

	// Duplicate registration conflicts.
	rec := env.request(t, "POST", "/auth/register", "", map[string]string{
		"name": "Dup", "email": "shopper@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", rec.Code)
	}

	rec = env.request(t, "POST", "/auth/login", "", map[string]string{
		"email": "shopper@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &login)

	rec = env.request(t, "POST", "/auth/login", "", map[string]string{
		"email": "shopper@example.com", "password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", rec.Code)
	}

	// Both tokens verify to the same claim shape.
	for _, token := range []string{registerToken, login.Token} {
		rec = env.request(t, "GET", "/auth/verify", token, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("verify status = %d, body %s", rec.Code, rec.Body.String())
		}
		var verify struct {
			User struct {
				ID    int64  `json:"id"`
				Email string `json:"email"`
				Role  string `json:"role"`
			} `json:"user"`
		}
		decodeBody(t, rec, &verify)
		if verify.User.ID != registered.ID || verify.User.Email != "shopper@example.com" || verify.User.Role != "customer" {
			t.Fatalf("claims = %+v, want id=%d email=shopper@example.com role=customer", verify.User, registered.ID)
		}
	}

	rec = env.request(t, "GET", "/auth/user", login.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current user status = %d", rec.Code)
	}
}

func TestAPI_FederatedTokenUsesSameClaimShape(t *testing.T) {
	env := newTestEnv(t)

	federated, err := env.store.UpsertFederated(context.Background(), user.User{
		GoogleID: "google-123",
		Email:    "fed@example.com",
		Name:     "Fed",
		Role:     user.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("seed federated user: %v", err)
	}
	token, err := env.issuer.Issue(federated, auth.TierFederated)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// A federated token opens the same guarded routes as a password token.
	rec := env.request(t, "GET", "/carts", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cart via federated token status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.request(t, "GET", "/auth/verify", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify status = %d", rec.Code)
	}
	var verify struct {
		User struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	decodeBody(t, rec, &verify)
	if verify.User.ID != federated.ID || verify.User.Role != "customer" {
		t.Fatalf("claims = %+v, want id=%d role=customer", verify.User, federated.ID)
	}
}

func TestAPI_CatalogRoutePolicy(t *testing.T) {
	env := newTestEnv(t)
	customerToken, _ := env.registerCustomer(t, "shopper@example.com")
	adminToken := env.adminToken(t)

	product := map[string]interface{}{"name": "widget", "price": "9.99"}

	// Anonymous and customer writes are rejected.
	if rec := env.request(t, "POST", "/products", "", product); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create status = %d, want 401", rec.Code)
	}
	if rec := env.request(t, "POST", "/products", customerToken, product); rec.Code != http.StatusForbidden {
		t.Fatalf("customer create status = %d, want 403", rec.Code)
	}

	rec := env.request(t, "POST", "/products", adminToken, product)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created catalog.Product
	decodeBody(t, rec, &created)

	// Reads are public.
	if rec := env.request(t, "GET", "/products", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("public list status = %d", rec.Code)
	}
	if rec := env.request(t, "GET", fmt.Sprintf("/products/%d", created.ID), "", nil); rec.Code != http.StatusOK {
		t.Fatalf("public get status = %d", rec.Code)
	}

	// Soft delete hides the product from the public listing but keeps the row.
	if rec := env.request(t, "DELETE", fmt.Sprintf("/products/%d", created.ID), adminToken, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = env.request(t, "GET", "/products", "", nil)
	var visible []catalog.Product
	decodeBody(t, rec, &visible)
	if len(visible) != 0 {
		t.Fatalf("public listing after delete = %d products, want 0", len(visible))
	}

	rec = env.request(t, "GET", "/products?include_inactive=true", adminToken, nil)
	var all []catalog.Product
	decodeBody(t, rec, &all)
	if len(all) != 1 {
		t.Fatalf("admin listing after delete = %d products, want 1", len(all))
	}
}

func TestAPI_CartFlow(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerCustomer(t, "shopper@example.com")
	product := env.seedProduct(t, "widget", "9.99")

	if rec := env.request(t, "GET", "/carts", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous cart status = %d, want 401", rec.Code)
	}

	addBody := map[string]interface{}{"product_id": product.ID, "quantity": 2}
	rec := env.request(t, "POST", "/carts/items", token, addBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("add item status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Re-adding merges into the same row.
	addBody["quantity"] = 3
	rec = env.request(t, "POST", "/carts/items", token, addBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("second add status = %d", rec.Code)
	}
	var item struct {
		ID       int64 `json:"id"`
		Quantity int   `json:"quantity"`
	}
	decodeBody(t, rec, &item)
	if item.Quantity != 5 {
		t.Fatalf("merged quantity = %d, want 5", item.Quantity)
	}

	rec = env.request(t, "GET", "/carts", token, nil)
	var cartResp struct {
		Items []struct {
			ID       int64 `json:"id"`
			Quantity int   `json:"quantity"`
		} `json:"items"`
	}
	decodeBody(t, rec, &cartResp)
	if len(cartResp.Items) != 1 || cartResp.Items[0].Quantity != 5 {
		t.Fatalf("cart = %+v, want one row with quantity 5", cartResp.Items)
	}

	rec = env.request(t, "PUT", fmt.Sprintf("/carts/items/%d", item.ID), token, map[string]int{"quantity": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("update item status = %d", rec.Code)
	}

	rec = env.request(t, "DELETE", fmt.Sprintf("/carts/items/%d", item.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove item status = %d", rec.Code)
	}
}

func TestAPI_OrderLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerCustomer(t, "shopper@example.com")
	widget := env.seedProduct(t, "widget", "10.00")
	gadget := env.seedProduct(t, "gadget", "2.50")

	rec := env.request(t, "POST", "/orders", token, map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": widget.ID, "quantity": 2},
			{"product_id": gadget.ID, "quantity": 2},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID          int64           `json:"id"`
		TotalAmount decimal.Decimal `json:"total_amount"`
		Status      string          `json:"status"`
	}
	decodeBody(t, rec, &created)
	if !created.TotalAmount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("total = %s, want 25.00", created.TotalAmount)
	}
	if created.Status != "pending" {
		t.Fatalf("status = %s, want pending", created.Status)
	}

	// Empty order is rejected.
	rec = env.request(t, "POST", "/orders", token, map[string]interface{}{"items": []map[string]interface{}{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty order status = %d, want 400", rec.Code)
	}

	// Illegal transition is a conflict.
	rec = env.request(t, "PUT", fmt.Sprintf("/orders/%d/status", created.ID), token, map[string]string{"status": "refunded"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("skip transition status = %d, want 409", rec.Code)
	}

	rec = env.request(t, "PUT", fmt.Sprintf("/orders/%d/status", created.ID), token, map[string]string{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Another customer can see neither the order nor its existence.
	otherToken, _ := env.registerCustomer(t, "other@example.com")
	rec = env.request(t, "GET", fmt.Sprintf("/orders/%d", created.ID), otherToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign order status = %d, want 404", rec.Code)
	}

	// Refund a completed, paid order.
	env.store.SetPaymentRef(created.ID, "pi_123")
	rec = env.request(t, "POST", "/refunds", token, map[string]int64{"order_id": created.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("refund status = %d, body %s", rec.Code, rec.Body.String())
	}
	var refund struct {
		Success  bool   `json:"success"`
		RefundID string `json:"refund_id"`
	}
	decodeBody(t, rec, &refund)
	if !refund.Success || refund.RefundID == "" {
		t.Fatalf("refund response = %+v", refund)
	}

	// Double refund conflicts.
	rec = env.request(t, "POST", "/refunds", token, map[string]int64{"order_id": created.ID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("double refund status = %d, want 409", rec.Code)
	}
}

func TestAPI_AddressFlow(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.registerCustomer(t, "shopper@example.com")

	rec := env.request(t, "POST", "/addresses", token, map[string]interface{}{
		"address_line1": "123 Main St",
		"city":          "Springfield",
		"postal_code":   "12345",
		"country":       "US",
		"is_default":    true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create address status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID int64 `json:"id"`
	}
	decodeBody(t, rec, &created)

	// Missing fields are rejected.
	rec = env.request(t, "POST", "/addresses", token, map[string]interface{}{"city": "Nowhere"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid address status = %d, want 400", rec.Code)
	}

	otherToken, _ := env.registerCustomer(t, "other@example.com")
	rec = env.request(t, "GET", fmt.Sprintf("/addresses/%d", created.ID), otherToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign address status = %d, want 404", rec.Code)
	}

	rec = env.request(t, "DELETE", fmt.Sprintf("/addresses/%d", created.ID), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete address status = %d", rec.Code)
	}
}

func TestAPI_ExpiredTokenDistinctFromMalformed(t *testing.T) {
	env := newTestEnv(t)

	// Token signed by a clock two days in the past has expired.
	past, err := auth.NewIssuer([]byte("api-test-secret"), auth.WithClock(func() time.Time {
		return time.Now().Add(-48 * time.Hour)
	}))
	if err != nil {
		t.Fatalf("NewIssuer() error = %v", err)
	}
	expired, err := past.Issue(user.User{ID: 1, Email: "x@example.com", Role: user.RoleCustomer}, auth.TierPassword)
	if err != nil {
		t.Fatalf("issue expired: %v", err)
	}

	for token, want := range map[string]string{
		expired:       "TOKEN_EXPIRED",
		"not.a.token": "INVALID_TOKEN",
	} {
		rec := env.request(t, "GET", "/carts", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		decodeBody(t, rec, &body)
		if body.Error.Code != want {
			t.Fatalf("error code = %s, want %s", body.Error.Code, want)
		}
	}
}
