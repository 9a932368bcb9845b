package model

// CheckoutItem is one cart line submitted to checkout.
type CheckoutItem struct {
	ProductID          string   `json:"productId" validate:"required,notblank"`
	BrandID            string   `json:"brandId"`
	ProductName        string   `json:"productName" validate:"required,notblank,max=255"`
	ProductDescription string   `json:"productDescription" validate:"max=2000"`
	Images             []string `json:"images"`
	PricePerItem       float64  `json:"pricePerItem" validate:"required,gt=0"`
	Quantity           int      `json:"quantity" validate:"required,gte=1"`
}

// AffiliateDiscount is the single-use coupon derived from an affiliate code
// and attached to the hosted checkout session.
type AffiliateDiscount struct {
	Type  string  `json:"type" validate:"required,oneof=percentage fixed"`
	Value float64 `json:"value" validate:"required,gt=0"`
}

// CreateCheckoutRequest is the DTO for POST /api/checkout.
type CreateCheckoutRequest struct {
	Items             []CheckoutItem     `json:"items" validate:"required,min=1,dive"`
	CustomerEmail     string             `json:"customerEmail" validate:"required,email"`
	CustomerID        string             `json:"customerId"`
	CustomerName      string             `json:"customerName" validate:"max=255"`
	ShippingAddress   *Address           `json:"shippingAddress"`
	SuccessURL        string             `json:"successUrl" validate:"required,url"`
	CancelURL         string             `json:"cancelUrl" validate:"required,url"`
	AffiliateCode     string             `json:"affiliateCode" validate:"max=64"`
	AffiliateDiscount *AffiliateDiscount `json:"affiliateDiscount"`
	Metadata          map[string]string  `json:"metadata"`
}

// CheckoutSessionResponse is returned once the hosted session exists.
type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// UpsertCustomerRequest is the DTO for POST /api/customer.
type UpsertCustomerRequest struct {
	Email      string            `json:"email" validate:"required_without=CustomerID,omitempty,email"`
	Name       string            `json:"name" validate:"max=255"`
	CustomerID string            `json:"customerId"`
	Metadata   map[string]string `json:"metadata"`
}

// CardSummary is the stored-card view returned by GET /api/customer.
type CardSummary struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"expMonth"`
	ExpYear  int64  `json:"expYear"`
}

// CustomerResponse is the customer view with stored card summaries.
type CustomerResponse struct {
	CustomerID     string            `json:"customerId"`
	Email          string            `json:"email"`
	Name           string            `json:"name"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	PaymentMethods []CardSummary     `json:"paymentMethods,omitempty"`
}
