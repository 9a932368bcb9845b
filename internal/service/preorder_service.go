package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/payment"
)

// PreorderService drafts campaign preorders and sends them through the
// hosted checkout. Payment confirmation arrives via the webhook.
type PreorderService struct {
	preorders PreorderRepositoryInterface
	payments  PaymentClientInterface
}

// NewPreorderService creates a new PreorderService.
func NewPreorderService(preorders PreorderRepositoryInterface, payments PaymentClientInterface) *PreorderService {
	return &PreorderService{preorders: preorders, payments: payments}
}

// Create drafts a preorder in pending_payment and returns it together with a
// checkout session for the campaign items. The preorder id rides in session
// metadata so the webhook can confirm the right draft.
func (s *PreorderService) Create(ctx context.Context, req *model.CreatePreorderRequest, successURL, cancelURL string) (*model.Preorder, *model.CheckoutSessionResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, nil, ErrInvalidRequest
	}

	items := make([]model.OrderItem, 0, len(req.Items))
	lineItems := make([]payment.LineItemInput, 0, len(req.Items))
	var total float64
	for _, item := range req.Items {
		lineTotal := item.PricePerItem * float64(item.Quantity)
		total += lineTotal
		items = append(items, model.OrderItem{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			PricePerItem: item.PricePerItem,
			TotalPrice:   lineTotal,
			Preorder:     true,
		})
		lineItems = append(lineItems, payment.LineItemInput{
			Name:        item.ProductName,
			Description: item.ProductDescription,
			Images:      item.Images,
			ProductID:   item.ProductID,
			BrandID:     item.BrandID,
			UnitAmount:  int64(math.Round(item.PricePerItem * 100)),
			Quantity:    int64(item.Quantity),
		})
	}

	p := &model.Preorder{
		ID:            uuid.New(),
		CampaignID:    req.CampaignID,
		UserID:        req.UserID,
		UserEmail:     req.UserEmail,
		Items:         items,
		AmountTotal:   total,
		Currency:      req.Currency,
		Status:        model.PreorderStatusPendingPayment,
		PaymentStatus: model.PaymentStatusPending,
	}
	if err := s.preorders.Insert(ctx, p); err != nil {
		return nil, nil, err
	}

	sessionID, url, err := s.payments.CreateSession(ctx, payment.SessionInput{
		LineItems:     lineItems,
		CustomerEmail: req.UserEmail,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata: map[string]string{
			"orderType":  model.OrderTypePreorder,
			"preorderId": p.ID.String(),
			"campaignId": req.CampaignID,
			"customerId": req.UserID,
		},
		OrderType: model.OrderTypePreorder,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create preorder session: %w", err)
	}

	log.Info().
		Str("preorderId", p.ID.String()).
		Str("campaignId", req.CampaignID).
		Str("sessionId", sessionID).
		Float64("total", total).
		Msg("preorder drafted")
	return p, &model.CheckoutSessionResponse{SessionID: sessionID, URL: url}, nil
}

// GetByID retrieves a preorder.
func (s *PreorderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Preorder, error) {
	p, err := s.preorders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get preorder: %w", err)
	}
	if p == nil {
		return nil, ErrPreorderNotFound
	}
	return p, nil
}
