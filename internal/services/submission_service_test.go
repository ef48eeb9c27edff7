package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/orderdesk/api/internal/domain"
	"github.com/orderdesk/api/internal/platform/shopify"
)

type stubCustomerService struct {
	resolveFn func(ctx context.Context, firstName, lastName, rawPhone string) (string, error)
	calls     int
}

func (s *stubCustomerService) ResolveCustomer(ctx context.Context, firstName, lastName, rawPhone string) (string, error) {
	s.calls++
	if s.resolveFn == nil {
		return "gid://shopify/Customer/1", nil
	}
	return s.resolveFn(ctx, firstName, lastName, rawPhone)
}

type stubOrderPlatform struct {
	createFn   func(ctx context.Context, input shopify.DraftOrderInput) (string, error)
	completeFn func(ctx context.Context, draftID string, paymentPending bool) (string, error)
	metaFn     func(ctx context.Context, metafields ...shopify.Metafield) error

	createdInputs []shopify.DraftOrderInput
	completed     []bool
	metafields    []shopify.Metafield
}

func (s *stubOrderPlatform) CreateDraftOrder(ctx context.Context, input shopify.DraftOrderInput) (string, error) {
	s.createdInputs = append(s.createdInputs, input)
	if s.createFn == nil {
		return "gid://shopify/DraftOrder/9", nil
	}
	return s.createFn(ctx, input)
}

func (s *stubOrderPlatform) CompleteDraftOrder(ctx context.Context, draftID string, paymentPending bool) (string, error) {
	s.completed = append(s.completed, paymentPending)
	if s.completeFn == nil {
		return "gid://shopify/Order/77", nil
	}
	return s.completeFn(ctx, draftID, paymentPending)
}

func (s *stubOrderPlatform) SetMetafields(ctx context.Context, metafields ...shopify.Metafield) error {
	s.metafields = append(s.metafields, metafields...)
	if s.metaFn == nil {
		return nil
	}
	return s.metaFn(ctx, metafields...)
}

func validRequest() domain.OrderDraftRequest {
	return domain.OrderDraftRequest{
		FirstName: "Olena",
		LastName:  "K",
		Phone:     "0501234567",
		City: domain.LocationOption{
			Label:      "м. Київ, Київська обл.",
			Value:      "ref-1",
			PostalCode: "01001",
		},
		Warehouse: domain.LocationOption{
			Label: "Відділення №5",
			Value: "ref-9",
		},
		Lines: []domain.OrderLine{
			{VariantID: "gid://shopify/ProductVariant/11", Quantity: 2},
		},
		PaymentMode: domain.PaymentPaidInFull,
	}
}

func newTestSubmissionService(t *testing.T, customers CustomerService, platform OrderPlatform) SubmissionService {
	t.Helper()
	svc, err := NewSubmissionService(SubmissionServiceDeps{
		Customers: customers,
		Platform:  platform,
		NewID:     func() string { return "sub-1" },
	})
	if err != nil {
		t.Fatalf("NewSubmissionService: %v", err)
	}
	return svc
}

func TestSubmitStandardOrder(t *testing.T) {
	customers := &stubCustomerService{}
	platform := &stubOrderPlatform{}
	svc := newTestSubmissionService(t, customers, platform)

	result, err := svc.Submit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if customers.calls != 1 {
		t.Fatalf("customer resolved %d times, want 1", customers.calls)
	}
	if result.DraftID != "gid://shopify/DraftOrder/9" || result.OrderID != "gid://shopify/Order/77" {
		t.Fatalf("result = %+v", result)
	}
	if result.SubmissionID != "sub-1" {
		t.Fatalf("submission id = %q", result.SubmissionID)
	}

	if len(platform.createdInputs) != 1 {
		t.Fatalf("draft created %d times, want 1", len(platform.createdInputs))
	}
	input := platform.createdInputs[0]
	if input.CustomerID != "gid://shopify/Customer/1" {
		t.Fatalf("customer id = %q", input.CustomerID)
	}
	if len(input.Lines) != 1 || input.Lines[0].Quantity != 2 {
		t.Fatalf("lines = %+v", input.Lines)
	}
	if input.Shipping.Address1 != "Нова Пошта – Відділення №5" {
		t.Fatalf("address1 = %q", input.Shipping.Address1)
	}
	if input.Shipping.Phone != "+380501234567" {
		t.Fatalf("shipping phone = %q", input.Shipping.Phone)
	}
	if input.Note != "Оплачено повністю" {
		t.Fatalf("note = %q", input.Note)
	}
	if len(input.Tags) != 0 {
		t.Fatalf("tags = %v", input.Tags)
	}

	attrs := map[string]string{}
	for _, a := range input.Attributes {
		attrs[a.Key] = a.Value
	}
	if attrs["NP-cityRef"] != "ref-1" || attrs["NP-warehouseRef"] != "ref-9" || attrs["COD"] != "false" {
		t.Fatalf("attributes = %v", attrs)
	}

	if len(platform.completed) != 1 || platform.completed[0] {
		t.Fatalf("completion paymentPending = %v, want [false]", platform.completed)
	}
	if len(platform.metafields) != 0 {
		t.Fatalf("no metafields expected for a paid order: %+v", platform.metafields)
	}
}

func TestSubmitCODOrder(t *testing.T) {
	platform := &stubOrderPlatform{}
	svc := newTestSubmissionService(t, &stubCustomerService{}, platform)

	req := validRequest()
	req.PaymentMode = domain.PaymentCashOnDelivery

	if _, err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	input := platform.createdInputs[0]
	if len(input.Tags) != 1 || input.Tags[0] != "COD" {
		t.Fatalf("tags = %v", input.Tags)
	}
	if !strings.Contains(input.Note, "Накладений платіж") {
		t.Fatalf("note = %q", input.Note)
	}

	if len(platform.completed) != 1 || !platform.completed[0] {
		t.Fatalf("completion paymentPending = %v, want [true]", platform.completed)
	}

	if len(platform.metafields) != 1 {
		t.Fatalf("metafields = %+v", platform.metafields)
	}
	mf := platform.metafields[0]
	if mf.OwnerID != "gid://shopify/Order/77" || mf.Namespace != "cod" || mf.Key != "deposit_amount" || mf.Value != "300.00 UAH" {
		t.Fatalf("metafield = %+v", mf)
	}
}

func TestSubmitValidationListsEveryMissingField(t *testing.T) {
	platform := &stubOrderPlatform{}
	customers := &stubCustomerService{}
	svc := newTestSubmissionService(t, customers, platform)

	_, err := svc.Submit(context.Background(), domain.OrderDraftRequest{})

	var subErr *SubmissionError
	if !errors.As(err, &subErr) || subErr.Step != StepValidate {
		t.Fatalf("expected validate-step error, got %v", err)
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	want := []string{"first", "last", "phone", "cityRef", "warehouseRef", "variantId"}
	if len(validation.Missing) != len(want) {
		t.Fatalf("missing = %v, want %v", validation.Missing, want)
	}
	for i, field := range want {
		if validation.Missing[i] != field {
			t.Fatalf("missing = %v, want %v", validation.Missing, want)
		}
	}

	if customers.calls != 0 || len(platform.createdInputs) != 0 {
		t.Fatal("validation failure must not reach the platform")
	}
}

func TestSubmitRejectsZeroQuantityLines(t *testing.T) {
	svc := newTestSubmissionService(t, &stubCustomerService{}, &stubOrderPlatform{})

	req := validRequest()
	req.Lines = []domain.OrderLine{{VariantID: "gid://shopify/ProductVariant/11", Quantity: 0}}

	_, err := svc.Submit(context.Background(), req)
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(validation.Missing) != 1 || validation.Missing[0] != "variantId" {
		t.Fatalf("missing = %v", validation.Missing)
	}
}

func TestSubmitCustomerFailureStopsPipeline(t *testing.T) {
	customers := &stubCustomerService{
		resolveFn: func(context.Context, string, string, string) (string, error) {
			return "", errors.New("platform is down")
		},
	}
	platform := &stubOrderPlatform{}
	svc := newTestSubmissionService(t, customers, platform)

	_, err := svc.Submit(context.Background(), validRequest())
	var subErr *SubmissionError
	if !errors.As(err, &subErr) || subErr.Step != StepCustomer {
		t.Fatalf("expected customer-step error, got %v", err)
	}
	if len(platform.createdInputs) != 0 {
		t.Fatal("draft must not be created after customer failure")
	}
}

func TestSubmitFinalizeFailureLeavesDraft(t *testing.T) {
	platform := &stubOrderPlatform{
		completeFn: func(context.Context, string, bool) (string, error) {
			return "", errors.New("draft order could not be completed")
		},
	}
	svc := newTestSubmissionService(t, &stubCustomerService{}, platform)

	req := validRequest()
	req.PaymentMode = domain.PaymentCashOnDelivery

	_, err := svc.Submit(context.Background(), req)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) || subErr.Step != StepFinalize {
		t.Fatalf("expected finalize-step error, got %v", err)
	}
	if len(platform.createdInputs) != 1 {
		t.Fatal("draft creation should have happened before the failure")
	}
	if len(platform.metafields) != 0 {
		t.Fatal("annotation must not run after a failed finalize")
	}
}

func TestSubmitAnnotationFailureIsSwallowed(t *testing.T) {
	platform := &stubOrderPlatform{
		metaFn: func(context.Context, ...shopify.Metafield) error {
			return errors.New("metafield write rejected")
		},
	}
	svc := newTestSubmissionService(t, &stubCustomerService{}, platform)

	req := validRequest()
	req.PaymentMode = domain.PaymentCashOnDelivery

	result, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("annotation failure must not fail the submission: %v", err)
	}
	if result.OrderID != "gid://shopify/Order/77" {
		t.Fatalf("result = %+v", result)
	}
}

func TestSubmitSkipsAnnotationWithoutOrderID(t *testing.T) {
	platform := &stubOrderPlatform{
		completeFn: func(context.Context, string, bool) (string, error) {
			// The platform acknowledged completion but omitted the order id.
			return "", nil
		},
	}
	svc := newTestSubmissionService(t, &stubCustomerService{}, platform)

	req := validRequest()
	req.PaymentMode = domain.PaymentCashOnDelivery

	if _, err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(platform.metafields) != 0 {
		t.Fatal("annotation must be skipped when the order id is unknown")
	}
}

func TestSubmitPostalCodeFallback(t *testing.T) {
	platform := &stubOrderPlatform{}
	svc := newTestSubmissionService(t, &stubCustomerService{}, platform)

	req := validRequest()
	req.PostalCode = "not-a-code"

	if _, err := svc.Submit(context.Background(), req); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if zip := platform.createdInputs[0].Shipping.Zip; zip != domain.FallbackPostalCode {
		t.Fatalf("zip = %q, want fallback %q", zip, domain.FallbackPostalCode)
	}
}
