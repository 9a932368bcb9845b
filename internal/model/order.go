package model

import (
	"time"

	"github.com/google/uuid"
)

// Order lifecycle statuses. Status changes append to the timeline; history is
// never rewritten.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

// Payment statuses.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Order type tags carried in checkout session metadata.
const (
	OrderTypeB2C      = "b2c"
	OrderTypePreorder = "preorder"
)

// OrderItem is one line of an order snapshot.
type OrderItem struct {
	ProductID    string  `json:"productId"`
	ProductName  string  `json:"productName"`
	Quantity     int     `json:"quantity"`
	PricePerItem float64 `json:"pricePerItem"`
	TotalPrice   float64 `json:"totalPrice"`
	Preorder     bool    `json:"preorder,omitempty"`
}

// OrderAmount is the totalAmount breakdown of an order.
type OrderAmount struct {
	Items    float64 `json:"items"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// Address is a shipping or billing address block.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// TimelineEntry is one audit record of a status transition.
type TimelineEntry struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// Order is the immutable snapshot produced by checkout completion.
// StripeSessionID is the idempotency key: webhook redelivery upserts on it.
type Order struct {
	ID                    uuid.UUID `json:"id"`
	OrderNumber           string    `json:"orderNumber"`
	StripeSessionID       string    `json:"stripeSessionId"`
	StripePaymentIntentID string    `json:"stripePaymentIntentId,omitempty"`

	UserID        string `json:"userId"`
	UserType      string `json:"userType"`
	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`

	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	PaymentMethod string `json:"paymentMethod"`

	Items []OrderItem `json:"items"`

	TotalAmount OrderAmount `json:"totalAmount"`

	ShippingAddress *Address `json:"shippingAddress,omitempty"`
	BillingAddress  *Address `json:"billingAddress,omitempty"`

	AffiliateCode string `json:"affiliateCode,omitempty"`

	Timeline []TimelineEntry `json:"timeline"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateOrderStatusRequest is the admin DTO for advancing an order.
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed processing shipped delivered cancelled refunded"`
	Note   string `json:"note" validate:"max=1000"`
}
