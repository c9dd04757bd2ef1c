package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lucasrioja/storefront-backend/api/middleware"
	cartsvc "github.com/lucasrioja/storefront-backend/internal/cart"
	pkgerrors "github.com/lucasrioja/storefront-backend/pkg/errors"
)

type stubService struct {
	lastIdentity cartsvc.Identity
	lastSKU      string
	lastQuantity int
	view         *cartsvc.View
	cart         *cartsvc.Cart
	syncResult   *cartsvc.SyncResult
	err          error
}

func (s *stubService) Get(_ context.Context, identity cartsvc.Identity) (*cartsvc.View, error) {
	s.lastIdentity = identity
	return s.view, s.err
}

func (s *stubService) Add(_ context.Context, identity cartsvc.Identity, _ uuid.UUID, sku string, quantity int) (*cartsvc.Cart, error) {
	s.lastIdentity = identity
	s.lastSKU = sku
	s.lastQuantity = quantity
	return s.cart, s.err
}

func (s *stubService) Update(_ context.Context, identity cartsvc.Identity, sku string, quantity int) (*cartsvc.Cart, error) {
	s.lastIdentity = identity
	s.lastSKU = sku
	s.lastQuantity = quantity
	return s.cart, s.err
}

func (s *stubService) Remove(_ context.Context, identity cartsvc.Identity, sku string) (*cartsvc.Cart, error) {
	s.lastIdentity = identity
	s.lastSKU = sku
	return s.cart, s.err
}

func (s *stubService) Clear(_ context.Context, identity cartsvc.Identity) (*cartsvc.Cart, error) {
	s.lastIdentity = identity
	return s.cart, s.err
}

func (s *stubService) Sync(_ context.Context, identity cartsvc.Identity, entries []cartsvc.SyncEntry) (*cartsvc.SyncResult, error) {
	s.lastIdentity = identity
	s.lastQuantity = len(entries)
	return s.syncResult, s.err
}

type stubMerger struct {
	lastUserID  uuid.UUID
	lastSession string
	result      *cartsvc.MergeResult
	err         error
}

func (m *stubMerger) Merge(_ context.Context, userID uuid.UUID, guestSessionID string) (*cartsvc.MergeResult, error) {
	m.lastUserID = userID
	m.lastSession = guestSessionID
	return m.result, m.err
}

func sampleCart() *cartsvc.Cart {
	record := &cartsvc.Cart{
		Items: []cartsvc.LineItem{
			{
				ProductID:   uuid.New(),
				SKU:         "SKU-1",
				Quantity:    2,
				Price:       decimal.NewFromInt(10),
				ProductName: "Widget",
			},
		},
	}
	record.Recalculate()
	return record
}

func asUser(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), userID.String()))
}

func asGuest(r *http.Request, session string) *http.Request {
	return r.WithContext(middleware.WithGuestSession(r.Context(), session))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) CartDTO {
	t.Helper()
	var envelope struct {
		Data CartDTO `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Data
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return envelope.Error.Code
}

func TestCartFetchForUser(t *testing.T) {
	t.Parallel()

	cart := sampleCart()
	svc := &stubService{view: &cartsvc.View{Cart: cart}}
	userID := uuid.New()

	req := asUser(httptest.NewRequest(http.MethodGet, "/v1/cart", nil), userID)
	rec := httptest.NewRecorder()
	CartFetch(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.lastIdentity.UserID != userID {
		t.Fatalf("identity user = %s, want %s", svc.lastIdentity.UserID, userID)
	}
	data := decodeData(t, rec)
	if data.TotalItems != 2 {
		t.Fatalf("totalItems = %d, want 2", data.TotalItems)
	}
}

func TestCartFetchForGuest(t *testing.T) {
	t.Parallel()

	svc := &stubService{view: &cartsvc.View{Cart: &cartsvc.Cart{}}}

	req := asGuest(httptest.NewRequest(http.MethodGet, "/v1/cart", nil), "guest-abc")
	rec := httptest.NewRecorder()
	CartFetch(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !svc.lastIdentity.IsGuest() || svc.lastIdentity.GuestSessionID != "guest-abc" {
		t.Fatalf("identity = %+v, want guest guest-abc", svc.lastIdentity)
	}
}

func TestCartFetchWithoutIdentity(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
	rec := httptest.NewRecorder()
	CartFetch(svc, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCartAddValidatesBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"missing sku", fmt.Sprintf(`{"productId":%q,"quantity":1}`, uuid.New())},
		{"zero quantity", fmt.Sprintf(`{"productId":%q,"sku":"SKU-1","quantity":0}`, uuid.New())},
		{"malformed json", `{"sku":`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &stubService{cart: sampleCart()}
			req := asGuest(httptest.NewRequest(http.MethodPost, "/v1/cart", bytes.NewBufferString(tc.body)), "g1")
			rec := httptest.NewRecorder()
			CartAdd(svc, nil)(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodeValidation) {
				t.Fatalf("code = %s, want validation", code)
			}
		})
	}
}

func TestCartAddTrimsSKU(t *testing.T) {
	t.Parallel()

	svc := &stubService{cart: sampleCart()}
	body := fmt.Sprintf(`{"productId":%q,"sku":"  SKU-9  ","quantity":3}`, uuid.New())
	req := asGuest(httptest.NewRequest(http.MethodPost, "/v1/cart", bytes.NewBufferString(body)), "g1")
	rec := httptest.NewRecorder()
	CartAdd(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.lastSKU != "SKU-9" {
		t.Fatalf("sku = %q, want SKU-9", svc.lastSKU)
	}
	if svc.lastQuantity != 3 {
		t.Fatalf("quantity = %d, want 3", svc.lastQuantity)
	}
}

func TestCartAddMapsBusinessError(t *testing.T) {
	t.Parallel()

	svc := &stubService{err: pkgerrors.New(pkgerrors.CodeInsufficientStock, "only 2 left for SKU-1")}
	body := fmt.Sprintf(`{"productId":%q,"sku":"SKU-1","quantity":5}`, uuid.New())
	req := asGuest(httptest.NewRequest(http.MethodPost, "/v1/cart", bytes.NewBufferString(body)), "g1")
	rec := httptest.NewRecorder()
	CartAdd(svc, nil)(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if code := decodeErrorCode(t, rec); code != string(pkgerrors.CodeInsufficientStock) {
		t.Fatalf("code = %s, want insufficient stock", code)
	}
}

func TestCartUpdateAllowsZeroQuantity(t *testing.T) {
	t.Parallel()

	svc := &stubService{cart: &cartsvc.Cart{}}
	req := asGuest(httptest.NewRequest(http.MethodPut, "/v1/cart", bytes.NewBufferString(`{"sku":"SKU-1","quantity":0}`)), "g1")
	rec := httptest.NewRecorder()
	CartUpdate(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.lastSKU != "SKU-1" || svc.lastQuantity != 0 {
		t.Fatalf("forwarded sku=%q qty=%d, want SKU-1/0", svc.lastSKU, svc.lastQuantity)
	}
}

func TestCartRemoveReadsPathParam(t *testing.T) {
	t.Parallel()

	svc := &stubService{cart: &cartsvc.Cart{}}
	router := chi.NewRouter()
	router.Delete("/v1/cart/{sku}", CartRemove(svc, nil))

	req := asGuest(httptest.NewRequest(http.MethodDelete, "/v1/cart/SKU-7", nil), "g1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.lastSKU != "SKU-7" {
		t.Fatalf("sku = %q, want SKU-7", svc.lastSKU)
	}
}

func TestCartSyncReportsPartialFailures(t *testing.T) {
	t.Parallel()

	cart := sampleCart()
	svc := &stubService{syncResult: &cartsvc.SyncResult{
		Cart: cart,
		Errors: []cartsvc.SyncError{
			{SKU: "GONE-1", Code: pkgerrors.CodeProductNotFound, Message: "product not found"},
		},
	}}

	body := fmt.Sprintf(`{"items":[{"productId":%q,"sku":"SKU-1","quantity":2},{"productId":%q,"sku":"GONE-1","quantity":1}]}`, uuid.New(), uuid.New())
	req := asGuest(httptest.NewRequest(http.MethodPost, "/v1/cart/sync", bytes.NewBufferString(body)), "g1")
	rec := httptest.NewRecorder()
	CartSync(svc, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if svc.lastQuantity != 2 {
		t.Fatalf("entries forwarded = %d, want 2", svc.lastQuantity)
	}
	data := decodeData(t, rec)
	if len(data.Errors) != 1 || data.Errors[0].SKU != "GONE-1" {
		t.Fatalf("errors = %+v, want one for GONE-1", data.Errors)
	}
}

func TestCartMergeRequiresUser(t *testing.T) {
	t.Parallel()

	merger := &stubMerger{}
	req := asGuest(httptest.NewRequest(http.MethodPost, "/v1/cart/merge", bytes.NewBufferString(`{"guestSessionId":"g1"}`)), "g1")
	rec := httptest.NewRecorder()
	CartMerge(merger, nil)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", rec.Code, rec.Body.String())
	}
}

func TestCartMergeForwardsSession(t *testing.T) {
	t.Parallel()

	cart := sampleCart()
	merger := &stubMerger{result: &cartsvc.MergeResult{Cart: cart, Warnings: []cartsvc.Warning{}}}
	userID := uuid.New()

	req := asUser(httptest.NewRequest(http.MethodPost, "/v1/cart/merge", bytes.NewBufferString(`{"guestSessionId":"guest-42"}`)), userID)
	rec := httptest.NewRecorder()
	CartMerge(merger, nil)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if merger.lastUserID != userID || merger.lastSession != "guest-42" {
		t.Fatalf("forwarded user=%s session=%q", merger.lastUserID, merger.lastSession)
	}
}
