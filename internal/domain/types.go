package domain

// LocationOption is one candidate returned by the carrier directory. Value is
// an opaque carrier reference, meaningless outside the carrier API; Label is
// retained for presentation and the shipping address line only.
type LocationOption struct {
	Label      string `json:"label"`
	Value      string `json:"value"`
	PostalCode string `json:"postalCode,omitempty"`
}

// ProductVariant is one purchasable variant of a catalog product.
type ProductVariant struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Image string `json:"image"`
}

// Product is a catalog entry offered in the picker.
type Product struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Variants []ProductVariant `json:"variants"`
}

// OrderLine pairs a chosen variant with its quantity.
type OrderLine struct {
	VariantID string
	Quantity  int
}

// PaymentMode distinguishes fully paid orders from cash-on-delivery ones.
type PaymentMode string

const (
	// PaymentPaidInFull marks orders settled at submission time.
	PaymentPaidInFull PaymentMode = "paid-in-full"
	// PaymentCashOnDelivery marks orders paid at delivery; only a fixed
	// prepayment is collected up front.
	PaymentCashOnDelivery PaymentMode = "cash-on-delivery"
)

// OrderDraftRequest is the immutable submission input, assembled once from
// the form at submit time and never retried automatically.
type OrderDraftRequest struct {
	FirstName string
	LastName  string
	Phone     string

	City       LocationOption
	Warehouse  LocationOption
	PostalCode string

	Lines []OrderLine

	PaymentMode PaymentMode
}

// IsCOD reports whether the request uses cash-on-delivery.
func (r OrderDraftRequest) IsCOD() bool {
	return r.PaymentMode == PaymentCashOnDelivery
}

// SubmissionResult reports the finalized order created for a submission.
type SubmissionResult struct {
	SubmissionID string
	DraftID      string
	OrderID      string
}
