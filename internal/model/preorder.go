package model

import (
	"time"

	"github.com/google/uuid"
)

// Preorder statuses. A preorder is drafted before payment and confirmed by
// the payment webhook.
const (
	PreorderStatusDraft          = "draft"
	PreorderStatusPendingPayment = "pending_payment"
	PreorderStatusConfirmed      = "confirmed"
	PreorderStatusCancelled      = "cancelled"
)

// Preorder is a campaign order awaiting payment confirmation.
type Preorder struct {
	ID         uuid.UUID `json:"id"`
	CampaignID string    `json:"campaignId"`
	UserID     string    `json:"userId,omitempty"`
	UserEmail  string    `json:"userEmail,omitempty"`

	Items       []OrderItem `json:"items"`
	AmountTotal float64     `json:"amountTotal"`
	Currency    string      `json:"currency"`

	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`

	StripeSessionID       string `json:"stripeSessionId,omitempty"`
	StripePaymentIntentID string `json:"stripePaymentIntentId,omitempty"`

	AffiliateCode string `json:"affiliateCode,omitempty"`

	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreatePreorderRequest is the DTO for drafting a preorder.
type CreatePreorderRequest struct {
	CampaignID string         `json:"campaignId" validate:"required,notblank,max=128"`
	UserID     string         `json:"userId" validate:"max=128"`
	UserEmail  string         `json:"userEmail" validate:"omitempty,email"`
	Items      []CheckoutItem `json:"items" validate:"required,min=1,dive"`
	Currency   string         `json:"currency" validate:"required,len=3"`
}
