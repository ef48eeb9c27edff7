package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/orderdesk/api/internal/domain"
	"github.com/orderdesk/api/internal/platform/httpx"
	"github.com/orderdesk/api/internal/platform/requestctx"
	"github.com/orderdesk/api/internal/services"
)

// defaultRedirectTarget is where the operator UI lands after a successful
// submission.
const defaultRedirectTarget = "/app/orders"

const maxOrderFormSize = 64 * 1024

// OrderHandlers exposes the order submission endpoint.
type OrderHandlers struct {
	submissions services.SubmissionService
	redirectTo  string
}

// NewOrderHandlers constructs handlers over the submission service. The
// redirect target is where successful submissions send the operator UI; empty
// falls back to the default.
func NewOrderHandlers(submissions services.SubmissionService, redirectTo string) *OrderHandlers {
	redirectTo = strings.TrimSpace(redirectTo)
	if redirectTo == "" {
		redirectTo = defaultRedirectTarget
	}
	return &OrderHandlers{submissions: submissions, redirectTo: redirectTo}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.submit)
}

func (h *OrderHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.submissions == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxOrderFormSize)
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "could not parse submission form", http.StatusBadRequest))
		return
	}

	req := parseOrderForm(r)

	result, err := h.submissions.Submit(ctx, req)
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	requestctx.Logger(ctx).Info("order submitted",
		zap.String("submissionId", result.SubmissionID),
		zap.String("orderId", result.OrderID),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", h.redirectTo)
	w.WriteHeader(http.StatusSeeOther)
	fmt.Fprintf(w, "{\"orderId\":%q}\n", result.OrderID)
}

// parseOrderForm maps the submitted form onto the immutable request the
// submission service consumes. Quantities that fail to parse collapse to 1;
// validation of required fields happens in the service so every gap is
// reported at once.
func parseOrderForm(r *http.Request) domain.OrderDraftRequest {
	form := r.PostForm

	req := domain.OrderDraftRequest{
		FirstName: strings.TrimSpace(form.Get("first")),
		LastName:  strings.TrimSpace(form.Get("last")),
		Phone:     strings.TrimSpace(form.Get("phone")),
		City: domain.LocationOption{
			Label: strings.TrimSpace(form.Get("cityName")),
			Value: strings.TrimSpace(form.Get("cityRef")),
		},
		Warehouse: domain.LocationOption{
			Label: strings.TrimSpace(form.Get("warehouseName")),
			Value: strings.TrimSpace(form.Get("warehouseRef")),
		},
		PostalCode:  strings.TrimSpace(form.Get("postalCode")),
		PaymentMode: domain.PaymentPaidInFull,
	}
	if form.Get("cod") == "1" {
		req.PaymentMode = domain.PaymentCashOnDelivery
	}

	variants := form["variantId"]
	quantities := form["qty"]
	for i, variantID := range variants {
		variantID = strings.TrimSpace(variantID)
		if variantID == "" {
			continue
		}
		qty := 1
		if i < len(quantities) {
			if parsed, err := strconv.Atoi(strings.TrimSpace(quantities[i])); err == nil && parsed >= 1 {
				qty = parsed
			}
		}
		req.Lines = append(req.Lines, domain.OrderLine{VariantID: variantID, Quantity: qty})
	}

	return req
}

func (h *OrderHandlers) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var subErr *services.SubmissionError
	if !errors.As(err, &subErr) {
		httpx.WriteError(ctx, w, httpx.NewError("order_submit_failed", "order submission failed", http.StatusBadGateway))
		return
	}

	if subErr.Step == services.StepValidate {
		var validation *services.ValidationError
		message := "submission is incomplete"
		details := map[string]any(nil)
		if errors.As(subErr.Err, &validation) {
			message = fmt.Sprintf("missing required fields: %s", strings.Join(validation.Missing, ", "))
			details = map[string]any{"missing": validation.Missing}
		}
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid", message, http.StatusBadRequest).WithDetails(details))
		return
	}

	requestctx.Logger(ctx).Error("order submission failed",
		zap.String("step", string(subErr.Step)),
		zap.Error(subErr.Err),
	)
	httpx.WriteError(ctx, w, httpx.NewError(
		"order_submit_failed",
		fmt.Sprintf("order submission failed at step %q", subErr.Step),
		http.StatusBadGateway,
	))
}
