package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"barbearia/backend/internal/domain"
	"barbearia/backend/internal/service"
	"barbearia/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real token manager
// and real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, nil)
	tokens := NewTokenManager("test-secret-key-0123456789abcdef", time.Hour)

	return New(svc, tokens, "*")
}

func bearerToken(t *testing.T, api *API, username string, role string) string {
	t.Helper()
	resp, err := api.tokens.Issue(domain.Actor{Username: username, Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return resp.AccessToken
}

func doJSON(t *testing.T, api *API, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLoginSuccess(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
	if body["role"] != "admin" {
		t.Fatalf("expected admin role, got %v", body["role"])
	}
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	api := newTestAPI(t)

	rec := doJSON(t, api, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	admin := bearerToken(t, api, "admin", "admin")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/cash-sessions", admin, domain.CashSessionOpenRequest{OpeningFloatCents: 10000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodPost, "/api/v1/orders", admin, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-pomada", Quantity: 2}},
		PaymentMethod: "cash",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var created domain.OrderResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if created.Order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending order, got %s", created.Order.Status)
	}

	rec = doJSON(t, api, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/complete", created.Order.ID), admin,
		map[string]string{"payment_method": "cash"})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete order: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, api, http.MethodGet, "/api/v1/products/prod-pomada", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get product: expected 200, got %d", rec.Code)
	}
	var productBody struct {
		Product domain.Product `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&productBody); err != nil {
		t.Fatalf("decode product: %v", err)
	}
	if productBody.Product.StockQuantity != 22 {
		t.Fatalf("expected stock 22 after completion, got %d", productBody.Product.StockQuantity)
	}
}

func TestOrderWithoutSessionReturns412(t *testing.T) {
	api := newTestAPI(t)
	admin := bearerToken(t, api, "admin", "admin")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/orders", admin, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412 without open session, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestSecondCashSessionReturns409(t *testing.T) {
	api := newTestAPI(t)
	admin := bearerToken(t, api, "admin", "admin")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/cash-sessions", admin, domain.CashSessionOpenRequest{OpeningFloatCents: 5000})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	rec = doJSON(t, api, http.MethodPost, "/api/v1/cash-sessions", admin, domain.CashSessionOpenRequest{OpeningFloatCents: 5000})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second open session, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestInvalidOrderReturns422WithViolations(t *testing.T) {
	api := newTestAPI(t)
	admin := bearerToken(t, api, "admin", "admin")

	doJSON(t, api, http.MethodPost, "/api/v1/cash-sessions", admin, domain.CashSessionOpenRequest{OpeningFloatCents: 0})

	rec := doJSON(t, api, http.MethodPost, "/api/v1/orders", admin, domain.OrderCreateRequest{
		Items:         []domain.OrderDraftItem{{ProductID: "prod-missing", Quantity: 0}},
		PaymentMethod: "bitcoin",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "validation failed") {
		t.Fatalf("expected aggregated validation message, got %s", rec.Body.String())
	}
}

func TestRefundRequiresAdminRole(t *testing.T) {
	api := newTestAPI(t)
	cashier := bearerToken(t, api, "cashier", "cashier")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/orders/order-x/refund", cashier, map[string]string{"reason": "test"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier refund, got %d", rec.Code)
	}
}

func TestUnknownOrderReturns404(t *testing.T) {
	api := newTestAPI(t)
	admin := bearerToken(t, api, "admin", "admin")

	rec := doJSON(t, api, http.MethodGet, "/api/v1/orders/order-nope", admin, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestProductCreateRequiresAdmin(t *testing.T) {
	api := newTestAPI(t)
	cashier := bearerToken(t, api, "cashier", "cashier")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/products", cashier, domain.ProductCreateRequest{
		Name:       "Gel",
		PriceCents: 2500,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier product create, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestBarberCommissionEndpoint(t *testing.T) {
	api := newTestAPI(t)
	admin := bearerToken(t, api, "admin", "admin")

	doJSON(t, api, http.MethodPost, "/api/v1/cash-sessions", admin, domain.CashSessionOpenRequest{OpeningFloatCents: 0})

	rec := doJSON(t, api, http.MethodPost, "/api/v1/orders", admin, domain.OrderCreateRequest{
		CustomerID:    "cust-joao",
		EmployeeID:    "emp-carlos",
		Items:         []domain.OrderDraftItem{{ProductID: "prod-corte", Quantity: 1}},
		PaymentMethod: "cash",
	})
	var created domain.OrderResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	doJSON(t, api, http.MethodPost, fmt.Sprintf("/api/v1/orders/%s/complete", created.Order.ID), admin, nil)

	rec = doJSON(t, api, http.MethodGet, "/api/v1/barbers/emp-carlos/commission", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var balanceBody struct {
		Balance domain.CommissionBalance `json:"balance"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&balanceBody); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balanceBody.Balance.EarnedCents != 1500 {
		t.Fatalf("expected earned 1500, got %d", balanceBody.Balance.EarnedCents)
	}
}

func TestOverdrawPaymentReturns422(t *testing.T) {
	api := newTestAPI(t)
	admin := bearerToken(t, api, "admin", "admin")

	rec := doJSON(t, api, http.MethodPost, "/api/v1/barbers/payments", admin, domain.BarberPaymentRequest{
		EmployeeID:  "emp-carlos",
		AmountCents: 999999,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for overdraw, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}
