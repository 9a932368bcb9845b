package payment

import "github.com/lovingyourskin/commerce-api/internal/model"

// LineItemInput is one cart line submitted to the hosted checkout.
// UnitAmount is in minor currency units.
type LineItemInput struct {
	Name        string
	Description string
	Images      []string
	ProductID   string
	BrandID     string
	UnitAmount  int64
	Quantity    int64
}

// CouponInput describes the single-use discount attached to a session.
type CouponInput struct {
	Type  string // "percentage" or "fixed"
	Value float64
	Name  string
}

// SessionInput is everything needed to construct a hosted checkout session.
type SessionInput struct {
	LineItems           []LineItemInput
	CustomerEmail       string
	SuccessURL          string
	CancelURL           string
	Metadata            map[string]string
	Coupon              *CouponInput
	WithShippingOptions bool
	OrderType           string
}

// SessionLineItem is one line of a completed session, amounts in major units.
type SessionLineItem struct {
	ProductID      string
	Description    string
	Quantity       int
	AmountSubtotal float64
}

// SessionDetails is the provider-neutral view of a completed checkout
// session, with amounts converted to major currency units.
type SessionDetails struct {
	ID              string
	PaymentIntentID string
	CustomerEmail   string
	Currency        string
	AmountSubtotal  float64
	AmountShipping  float64
	AmountTax       float64
	AmountDiscount  float64
	AmountTotal     float64
	Metadata        map[string]string
	LineItems       []SessionLineItem
	ShippingAddress *model.Address
	BillingAddress  *model.Address
}

// Event is a verified webhook delivery. ObjectID is the id of the event's
// primary object (session, payment intent or invoice).
type Event struct {
	ID       string
	Type     string
	ObjectID string
}

// Webhook event types the service reacts to.
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventPaymentFailed           = "payment_intent.payment_failed"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
)

// CustomerInput is the upsert payload for a processor-side customer.
type CustomerInput struct {
	CustomerID string
	Email      string
	Name       string
	Metadata   map[string]string
}
