package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/orderdesk/api/internal/domain"
	"github.com/orderdesk/api/internal/platform/shopify"
)

const (
	codTag   = "COD"
	codNote  = "Накладений платіж / Cash-on-Delivery (300 ₴ передплата)"
	paidNote = "Оплачено повністю"

	// Shipping address line shown to the operator and printed on the label.
	carrierAddressPrefix = "Нова Пошта – "

	attrCityRef      = "NP-cityRef"
	attrWarehouseRef = "NP-warehouseRef"
	attrCOD          = "COD"

	depositNamespace = "cod"
	depositKey       = "deposit_amount"
	depositValueType = "single_line_text_field"

	defaultCODDeposit = "300.00 UAH"
)

// SubmissionStep names the orchestration stage a failure occurred in.
type SubmissionStep string

const (
	// StepValidate covers form validation before any network call.
	StepValidate SubmissionStep = "validate"
	// StepCustomer covers customer lookup/create.
	StepCustomer SubmissionStep = "customer"
	// StepDraft covers draft order creation.
	StepDraft SubmissionStep = "draft"
	// StepFinalize covers completing the draft into a binding order.
	StepFinalize SubmissionStep = "finalize"
	// StepAnnotate covers the post-finalization deposit metafield write.
	StepAnnotate SubmissionStep = "annotate"
)

// SubmissionError reports a failed submission together with the step that
// failed. Failures at the finalize step leave the created draft in place.
type SubmissionError struct {
	Step SubmissionStep
	Err  error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission %s: %v", e.Step, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *SubmissionError) Unwrap() error { return e.Err }

// ValidationError lists every missing required field of a submission.
type ValidationError struct {
	Missing []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "missing fields: " + strings.Join(e.Missing, ", ")
}

// SubmissionServiceDeps wires the collaborators of the submission
// orchestrator.
type SubmissionServiceDeps struct {
	Customers  CustomerService
	Platform   OrderPlatform
	CODDeposit string
	Clock      func() time.Time
	NewID      func() string
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type submissionService struct {
	customers  CustomerService
	platform   OrderPlatform
	codDeposit string
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewSubmissionService constructs a SubmissionService validating required
// dependencies.
func NewSubmissionService(deps SubmissionServiceDeps) (SubmissionService, error) {
	if deps.Customers == nil {
		return nil, errors.New("submission service: customer service is required")
	}
	if deps.Platform == nil {
		return nil, errors.New("submission service: order platform is required")
	}

	deposit := strings.TrimSpace(deps.CODDeposit)
	if deposit == "" {
		deposit = defaultCODDeposit
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.NewID
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &submissionService{
		customers:  deps.Customers,
		platform:   deps.Platform,
		codDeposit: deposit,
		clock:      clock,
		newID:      newID,
		logger:     logger,
	}, nil
}

// Submit runs the full orchestration: validate, resolve the customer, create
// the draft order, complete it, and for cash-on-delivery record the deposit
// annotation. Each step depends on the previous one succeeding; there is no
// retry and no compensating rollback (a failed finalize leaves the draft).
func (s *submissionService) Submit(ctx context.Context, req domain.OrderDraftRequest) (domain.SubmissionResult, error) {
	submissionID := s.newID()
	started := s.clock()

	if missing := missingFields(req); len(missing) > 0 {
		return domain.SubmissionResult{}, &SubmissionError{
			Step: StepValidate,
			Err:  &ValidationError{Missing: missing},
		}
	}

	phone := domain.NormalizePhone(req.Phone)

	customerID, err := s.customers.ResolveCustomer(ctx, req.FirstName, req.LastName, req.Phone)
	if err != nil {
		return domain.SubmissionResult{}, &SubmissionError{Step: StepCustomer, Err: err}
	}
	s.logger(ctx, "submission.customer_resolved", map[string]any{
		"submissionId": submissionID,
		"customerId":   customerID,
	})

	draftID, err := s.platform.CreateDraftOrder(ctx, s.buildDraftInput(req, customerID, phone))
	if err != nil {
		return domain.SubmissionResult{}, &SubmissionError{Step: StepDraft, Err: err}
	}
	s.logger(ctx, "submission.draft_created", map[string]any{
		"submissionId": submissionID,
		"draftId":      draftID,
	})

	orderID, err := s.platform.CompleteDraftOrder(ctx, draftID, req.IsCOD())
	if err != nil {
		// The draft stays behind; the step name lets the operator find it.
		return domain.SubmissionResult{}, &SubmissionError{Step: StepFinalize, Err: err}
	}
	s.logger(ctx, "submission.finalized", map[string]any{
		"submissionId": submissionID,
		"orderId":      orderID,
		"cod":          req.IsCOD(),
		"latency":      s.clock().Sub(started).String(),
	})

	if req.IsCOD() && orderID != "" {
		if err := s.platform.SetMetafields(ctx, shopify.Metafield{
			OwnerID:   orderID,
			Namespace: depositNamespace,
			Key:       depositKey,
			Type:      depositValueType,
			Value:     s.codDeposit,
		}); err != nil {
			// Best effort: the order exists; only the annotation is lost.
			s.logger(ctx, "submission.annotation_failed", map[string]any{
				"submissionId": submissionID,
				"orderId":      orderID,
				"error":        err.Error(),
			})
		}
	}

	return domain.SubmissionResult{
		SubmissionID: submissionID,
		DraftID:      draftID,
		OrderID:      orderID,
	}, nil
}

func (s *submissionService) buildDraftInput(req domain.OrderDraftRequest, customerID, phone string) shopify.DraftOrderInput {
	lines := make([]shopify.DraftOrderLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, shopify.DraftOrderLine{
			VariantID: line.VariantID,
			Quantity:  line.Quantity,
		})
	}

	isCOD := req.IsCOD()
	var tags []string
	note := paidNote
	if isCOD {
		tags = []string{codTag}
		note = codNote
	}

	return shopify.DraftOrderInput{
		CustomerID: customerID,
		Lines:      lines,
		Shipping: shopify.ShippingAddress{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     phone,
			City:      req.City.Label,
			Address1:  carrierAddressPrefix + req.Warehouse.Label,
			Zip:       domain.SafePostalCode(req.PostalCode),
		},
		Tags: tags,
		Note: note,
		Attributes: []shopify.CustomAttribute{
			{Key: attrCityRef, Value: req.City.Value},
			{Key: attrWarehouseRef, Value: req.Warehouse.Value},
			{Key: attrCOD, Value: fmt.Sprintf("%t", isCOD)},
		},
	}
}

func missingFields(req domain.OrderDraftRequest) []string {
	var missing []string
	if strings.TrimSpace(req.FirstName) == "" {
		missing = append(missing, "first")
	}
	if strings.TrimSpace(req.LastName) == "" {
		missing = append(missing, "last")
	}
	if strings.TrimSpace(req.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(req.City.Value) == "" {
		missing = append(missing, "cityRef")
	}
	if strings.TrimSpace(req.Warehouse.Value) == "" {
		missing = append(missing, "warehouseRef")
	}
	validLines := 0
	for _, line := range req.Lines {
		if strings.TrimSpace(line.VariantID) != "" && line.Quantity >= 1 {
			validLines++
		}
	}
	if validLines == 0 {
		missing = append(missing, "variantId")
	}
	return missing
}
