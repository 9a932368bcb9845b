package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/payment"
)

// PaymentClientInterface is the processor boundary used by checkout,
// customer and webhook processing.
type PaymentClientInterface interface {
	CreateSession(ctx context.Context, in payment.SessionInput) (string, string, error)
	GetSession(ctx context.Context, id string) (*payment.SessionDetails, error)
	UpsertCustomer(ctx context.Context, in payment.CustomerInput) (*model.CustomerResponse, error)
	GetCustomer(ctx context.Context, customerID, email string) (*model.CustomerResponse, error)
	VerifyEvent(payload []byte, signatureHeader string) (payment.Event, error)
}

// CheckoutService builds hosted checkout sessions from carts.
type CheckoutService struct {
	payments  PaymentClientInterface
	discounts *DiscountService
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(payments PaymentClientInterface, discounts *DiscountService) *CheckoutService {
	return &CheckoutService{payments: payments, discounts: discounts}
}

// CreateSession turns a cart into a hosted checkout session. An affiliate
// code on the request becomes a single-use coupon on the session; the code
// itself rides along in session metadata so the webhook can attribute the
// conversion after payment.
func (s *CheckoutService) CreateSession(ctx context.Context, req *model.CreateCheckoutRequest) (*model.CheckoutSessionResponse, error) {
	if req == nil || len(req.Items) == 0 {
		return nil, ErrInvalidRequest
	}

	lineItems := make([]payment.LineItemInput, 0, len(req.Items))
	var subtotal float64
	for _, item := range req.Items {
		lineItems = append(lineItems, payment.LineItemInput{
			Name:        item.ProductName,
			Description: item.ProductDescription,
			Images:      item.Images,
			ProductID:   item.ProductID,
			BrandID:     item.BrandID,
			UnitAmount:  int64(math.Round(item.PricePerItem * 100)),
			Quantity:    int64(item.Quantity),
		})
		subtotal += item.PricePerItem * float64(item.Quantity)
	}

	metadata := map[string]string{
		"orderType": model.OrderTypeB2C,
	}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if req.CustomerID != "" {
		metadata["customerId"] = req.CustomerID
	}
	if req.CustomerName != "" {
		metadata["customerName"] = req.CustomerName
	}

	coupon, err := s.resolveCoupon(ctx, req, subtotal)
	if err != nil {
		return nil, err
	}
	if req.AffiliateCode != "" {
		metadata["affiliateCode"] = req.AffiliateCode
	}

	sessionID, url, err := s.payments.CreateSession(ctx, payment.SessionInput{
		LineItems:           lineItems,
		CustomerEmail:       req.CustomerEmail,
		SuccessURL:          req.SuccessURL,
		CancelURL:           req.CancelURL,
		Metadata:            metadata,
		Coupon:              coupon,
		WithShippingOptions: true,
		OrderType:           model.OrderTypeB2C,
	})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("email", req.CustomerEmail).
		Str("affiliateCode", req.AffiliateCode).
		Float64("subtotal", subtotal).
		Msg("checkout session created")
	return &model.CheckoutSessionResponse{SessionID: sessionID, URL: url}, nil
}

// resolveCoupon derives the session coupon. An explicit AffiliateDiscount on
// the request wins; otherwise the affiliate code is validated against the
// cart and its configured discount is used. An invalid code drops the coupon
// rather than blocking checkout.
func (s *CheckoutService) resolveCoupon(ctx context.Context, req *model.CreateCheckoutRequest, subtotal float64) (*payment.CouponInput, error) {
	if req.AffiliateDiscount != nil {
		return &payment.CouponInput{
			Type:  req.AffiliateDiscount.Type,
			Value: req.AffiliateDiscount.Value,
			Name:  couponName(req.AffiliateCode),
		}, nil
	}
	if req.AffiliateCode == "" {
		return nil, nil
	}

	result, err := s.discounts.Validate(ctx, &model.ValidateDiscountRequest{
		Code:          req.AffiliateCode,
		OrderValue:    subtotal,
		CustomerID:    req.CustomerID,
		CustomerEmail: req.CustomerEmail,
		IsLoggedIn:    req.CustomerID != "",
	})
	if err != nil {
		if isValidationFailure(err) {
			log.Warn().Err(err).Str("code", req.AffiliateCode).Msg("checkout code rejected, continuing without discount")
			return nil, nil
		}
		return nil, err
	}

	return &payment.CouponInput{
		Type:  result.Code.DiscountType,
		Value: result.Code.DiscountValue,
		Name:  couponName(result.Code.Code),
	}, nil
}

func couponName(code string) string {
	if code == "" {
		return "Discount"
	}
	return "Discount " + code
}

// isValidationFailure reports whether err is one of the expected
// redeemability failures rather than an infrastructure error.
func isValidationFailure(err error) bool {
	for _, target := range []error{
		ErrCodeNotFound, ErrCodeInactive, ErrCodeOutOfWindow,
		ErrUsageExceeded, ErrPerCustomerExceeded, ErrConditionsNotMet,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
