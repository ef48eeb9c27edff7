package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/orderdesk/api/internal/domain"
	"github.com/orderdesk/api/internal/services"
)

type stubSubmissionService struct {
	submitFn func(ctx context.Context, req domain.OrderDraftRequest) (domain.SubmissionResult, error)
	requests []domain.OrderDraftRequest
}

func (s *stubSubmissionService) Submit(ctx context.Context, req domain.OrderDraftRequest) (domain.SubmissionResult, error) {
	s.requests = append(s.requests, req)
	if s.submitFn == nil {
		return domain.SubmissionResult{SubmissionID: "sub-1", DraftID: "draft-1", OrderID: "order-1"}, nil
	}
	return s.submitFn(ctx, req)
}

func newOrderRouter(submissions services.SubmissionService) http.Handler {
	handlers := NewOrderHandlers(submissions, "")
	return NewRouter(WithOrderRoutes(handlers.Routes))
}

func validOrderForm() url.Values {
	form := url.Values{}
	form.Set("first", "Olena")
	form.Set("last", "K")
	form.Set("phone", "0501234567")
	form.Set("cityRef", "ref-1")
	form.Set("cityName", "м. Київ")
	form.Set("warehouseRef", "ref-9")
	form.Set("warehouseName", "Відділення №5")
	form.Add("variantId", "gid://shopify/ProductVariant/11")
	form.Add("qty", "2")
	return form
}

func postOrder(t *testing.T, router http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitOrderRedirects(t *testing.T) {
	submissions := &stubSubmissionService{}
	rec := postOrder(t, newOrderRouter(submissions), validOrderForm())

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/app/orders" {
		t.Fatalf("Location = %q", loc)
	}

	var payload map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if payload["orderId"] != "order-1" {
		t.Fatalf("body = %v", payload)
	}

	if len(submissions.requests) != 1 {
		t.Fatalf("submit called %d times", len(submissions.requests))
	}
	req := submissions.requests[0]
	if req.City.Value != "ref-1" || req.City.Label != "м. Київ" {
		t.Fatalf("city = %+v", req.City)
	}
	if req.Warehouse.Value != "ref-9" || req.Warehouse.Label != "Відділення №5" {
		t.Fatalf("warehouse = %+v", req.Warehouse)
	}
	if len(req.Lines) != 1 || req.Lines[0].Quantity != 2 {
		t.Fatalf("lines = %+v", req.Lines)
	}
	if req.PaymentMode != domain.PaymentPaidInFull {
		t.Fatalf("payment mode = %q", req.PaymentMode)
	}
}

func TestSubmitOrderCODFlag(t *testing.T) {
	submissions := &stubSubmissionService{}
	form := validOrderForm()
	form.Set("cod", "1")

	postOrder(t, newOrderRouter(submissions), form)

	if submissions.requests[0].PaymentMode != domain.PaymentCashOnDelivery {
		t.Fatalf("payment mode = %q", submissions.requests[0].PaymentMode)
	}
}

func TestSubmitOrderCoercesBadQuantity(t *testing.T) {
	submissions := &stubSubmissionService{}
	form := validOrderForm()
	form.Set("qty", "zero")

	postOrder(t, newOrderRouter(submissions), form)

	if qty := submissions.requests[0].Lines[0].Quantity; qty != 1 {
		t.Fatalf("quantity = %d, want 1", qty)
	}
}

func TestSubmitOrderValidationFailure(t *testing.T) {
	submissions := &stubSubmissionService{
		submitFn: func(context.Context, domain.OrderDraftRequest) (domain.SubmissionResult, error) {
			return domain.SubmissionResult{}, &services.SubmissionError{
				Step: services.StepValidate,
				Err:  &services.ValidationError{Missing: []string{"first", "phone", "variantId"}},
			}
		},
	}

	rec := postOrder(t, newOrderRouter(submissions), url.Values{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	message, _ := payload["message"].(string)
	for _, field := range []string{"first", "phone", "variantId"} {
		if !strings.Contains(message, field) {
			t.Fatalf("message %q does not name %q", message, field)
		}
	}
	missing, _ := payload["missing"].([]any)
	if len(missing) != 3 {
		t.Fatalf("missing = %v", payload["missing"])
	}
}

func TestSubmitOrderStepFailure(t *testing.T) {
	submissions := &stubSubmissionService{
		submitFn: func(context.Context, domain.OrderDraftRequest) (domain.SubmissionResult, error) {
			return domain.SubmissionResult{}, &services.SubmissionError{
				Step: services.StepFinalize,
				Err:  errors.New("draft order could not be completed"),
			}
		},
	}

	rec := postOrder(t, newOrderRouter(submissions), validOrderForm())
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "finalize") {
		t.Fatalf("body does not name the failed step: %s", rec.Body.String())
	}
}

func TestSubmitOrderCustomRedirect(t *testing.T) {
	handlers := NewOrderHandlers(&stubSubmissionService{}, "/desk/done")
	router := NewRouter(WithOrderRoutes(handlers.Routes))

	rec := postOrder(t, router, validOrderForm())
	if loc := rec.Header().Get("Location"); loc != "/desk/done" {
		t.Fatalf("Location = %q", loc)
	}
}
