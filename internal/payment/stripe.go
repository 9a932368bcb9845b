package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/lovingyourskin/commerce-api/internal/model"
)

// Client wraps the Stripe SDK behind domain-shaped methods so services stay
// free of provider types and tests can mock at this boundary.
type Client struct {
	api               *client.API
	webhookSecret     string
	currency          string
	shippingCountries []string
}

// NewClient creates a Stripe client.
func NewClient(secretKey, webhookSecret, currency string, shippingCountries []string) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Client{
		api:               api,
		webhookSecret:     webhookSecret,
		currency:          currency,
		shippingCountries: shippingCountries,
	}
}

// minorUnits converts a major-unit amount to minor units (cents/pence).
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// majorUnits converts minor units back to a major-unit amount.
func majorUnits(amount int64) float64 {
	return float64(amount) / 100
}

// CreateSession constructs a hosted checkout session and returns its id and
// redirect URL.
func (c *Client) CreateSession(ctx context.Context, in SessionInput) (string, string, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(in.LineItems))
	for _, item := range in.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
			Metadata: map[string]string{
				"productId": item.ProductID,
				"brandId":   item.BrandID,
			},
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		if len(item.Images) > 0 {
			productData.Images = stripe.StringSlice(item.Images[:1])
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(c.currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	orderTypeLabel := "B2C"
	if in.OrderType == model.OrderTypePreorder {
		orderTypeLabel = "Pre-order"
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
		LineItems:                lineItems,
		SuccessURL:               stripe.String(in.SuccessURL),
		CancelURL:                stripe.String(in.CancelURL),
		CustomerEmail:            stripe.String(in.CustomerEmail),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(c.shippingCountries),
		},
		Metadata: in.Metadata,
		InvoiceCreation: &stripe.CheckoutSessionInvoiceCreationParams{
			Enabled: stripe.Bool(true),
			InvoiceData: &stripe.CheckoutSessionInvoiceCreationInvoiceDataParams{
				Description: stripe.String("Thank you for your order from Loving Your Skin"),
				Footer:      stripe.String("Premium K-Beauty products delivered to Europe"),
				CustomFields: []*stripe.CheckoutSessionInvoiceCreationInvoiceDataCustomFieldParams{
					{
						Name:  stripe.String("Order Type"),
						Value: stripe.String(orderTypeLabel),
					},
				},
				Metadata: in.Metadata,
			},
		},
	}
	params.Context = ctx

	if in.Coupon != nil && in.Coupon.Value > 0 {
		couponID, err := c.createCoupon(ctx, in.Coupon)
		if err != nil {
			return "", "", fmt.Errorf("create coupon: %w", err)
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(couponID)},
		}
	}

	if in.WithShippingOptions {
		params.ShippingOptions = c.shippingOptions()
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.ID, sess.URL, nil
}

// createCoupon creates a single-use coupon mirroring the affiliate discount.
func (c *Client) createCoupon(ctx context.Context, in *CouponInput) (string, error) {
	params := &stripe.CouponParams{
		Duration: stripe.String(string(stripe.CouponDurationOnce)),
		Name:     stripe.String(in.Name),
	}
	params.Context = ctx
	if in.Type == "percentage" {
		params.PercentOff = stripe.Float64(in.Value)
	} else {
		params.AmountOff = stripe.Int64(minorUnits(in.Value))
		params.Currency = stripe.String(c.currency)
	}

	coupon, err := c.api.Coupons.New(params)
	if err != nil {
		return "", err
	}
	return coupon.ID, nil
}

// shippingOptions returns the two fixed shipping rates: free 3-7 business
// days and express 1-3 business days.
func (c *Client) shippingOptions() []*stripe.CheckoutSessionShippingOptionParams {
	return []*stripe.CheckoutSessionShippingOptionParams{
		c.shippingRate("Free Shipping", 0, 3, 7),
		c.shippingRate("Express Shipping", 999, 1, 3),
	}
}

func (c *Client) shippingRate(name string, amount, minDays, maxDays int64) *stripe.CheckoutSessionShippingOptionParams {
	return &stripe.CheckoutSessionShippingOptionParams{
		ShippingRateData: &stripe.CheckoutSessionShippingOptionShippingRateDataParams{
			Type: stripe.String("fixed_amount"),
			FixedAmount: &stripe.CheckoutSessionShippingOptionShippingRateDataFixedAmountParams{
				Amount:   stripe.Int64(amount),
				Currency: stripe.String(c.currency),
			},
			DisplayName: stripe.String(name),
			DeliveryEstimate: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateParams{
				Minimum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMinimumParams{
					Unit:  stripe.String("business_day"),
					Value: stripe.Int64(minDays),
				},
				Maximum: &stripe.CheckoutSessionShippingOptionShippingRateDataDeliveryEstimateMaximumParams{
					Unit:  stripe.String("business_day"),
					Value: stripe.Int64(maxDays),
				},
			},
		},
	}
}

// GetSession re-fetches a completed session with line items, customer and
// payment intent expanded, converted to the provider-neutral view.
func (c *Client) GetSession(ctx context.Context, id string) (*SessionDetails, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("line_items.data.price.product")
	params.AddExpand("customer")
	params.AddExpand("payment_intent")

	sess, err := c.api.CheckoutSessions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session %s: %w", id, err)
	}

	details := &SessionDetails{
		ID:             sess.ID,
		CustomerEmail:  sess.CustomerEmail,
		Currency:       string(sess.Currency),
		AmountSubtotal: majorUnits(sess.AmountSubtotal),
		AmountTotal:    majorUnits(sess.AmountTotal),
		Metadata:       sess.Metadata,
	}
	if sess.PaymentIntent != nil {
		details.PaymentIntentID = sess.PaymentIntent.ID
	}
	if sess.TotalDetails != nil {
		details.AmountShipping = majorUnits(sess.TotalDetails.AmountShipping)
		details.AmountTax = majorUnits(sess.TotalDetails.AmountTax)
		details.AmountDiscount = majorUnits(sess.TotalDetails.AmountDiscount)
	}
	if sess.CustomerDetails != nil && details.CustomerEmail == "" {
		details.CustomerEmail = sess.CustomerDetails.Email
	}

	if sess.LineItems != nil {
		for _, item := range sess.LineItems.Data {
			line := SessionLineItem{
				Description:    item.Description,
				Quantity:       int(item.Quantity),
				AmountSubtotal: majorUnits(item.AmountSubtotal),
			}
			if item.Price != nil && item.Price.Product != nil {
				if pid, ok := item.Price.Product.Metadata["productId"]; ok && pid != "" {
					line.ProductID = pid
				} else {
					line.ProductID = item.Price.Product.ID
				}
			}
			details.LineItems = append(details.LineItems, line)
		}
	}

	var phone string
	if sess.CustomerDetails != nil {
		phone = sess.CustomerDetails.Phone
	}
	if sess.ShippingDetails != nil && sess.ShippingDetails.Address != nil {
		details.ShippingAddress = toAddress(sess.ShippingDetails.Name, phone, sess.ShippingDetails.Address)
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Address != nil {
		details.BillingAddress = toAddress(sess.CustomerDetails.Name, phone, sess.CustomerDetails.Address)
	}

	return details, nil
}

func toAddress(name, phone string, a *stripe.Address) *model.Address {
	return &model.Address{
		Name:       name,
		Street:     a.Line1,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      phone,
	}
}

// UpsertCustomer creates or updates a processor-side customer. When no id is
// supplied the customer is matched by email first.
func (c *Client) UpsertCustomer(ctx context.Context, in CustomerInput) (*model.CustomerResponse, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	if in.Email != "" {
		params.Email = stripe.String(in.Email)
	}
	if in.Name != "" {
		params.Name = stripe.String(in.Name)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	customerID := in.CustomerID
	if customerID == "" {
		existing, err := c.findCustomerByEmail(ctx, in.Email)
		if err != nil {
			return nil, err
		}
		if existing != "" {
			customerID = existing
		}
	}

	var cust *stripe.Customer
	var err error
	if customerID != "" {
		cust, err = c.api.Customers.Update(customerID, params)
	} else {
		cust, err = c.api.Customers.New(params)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert customer: %w", err)
	}
	return customerResponse(cust, nil), nil
}

func (c *Client) findCustomerByEmail(ctx context.Context, email string) (string, error) {
	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	it := c.api.Customers.List(params)
	for it.Next() {
		return it.Customer().ID, nil
	}
	if err := it.Err(); err != nil {
		return "", fmt.Errorf("list customers: %w", err)
	}
	return "", nil
}

// GetCustomer retrieves a customer by id or email, with stored card
// summaries. Returns nil, nil when no customer matches.
func (c *Client) GetCustomer(ctx context.Context, customerID, email string) (*model.CustomerResponse, error) {
	var cust *stripe.Customer
	var err error

	if customerID != "" {
		params := &stripe.CustomerParams{}
		params.Context = ctx
		cust, err = c.api.Customers.Get(customerID, params)
		if err != nil {
			return nil, fmt.Errorf("get customer %s: %w", customerID, err)
		}
	} else {
		id, err := c.findCustomerByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if id == "" {
			return nil, nil
		}
		params := &stripe.CustomerParams{}
		params.Context = ctx
		cust, err = c.api.Customers.Get(id, params)
		if err != nil {
			return nil, fmt.Errorf("get customer %s: %w", id, err)
		}
	}

	cards, err := c.listCards(ctx, cust.ID)
	if err != nil {
		return nil, err
	}
	return customerResponse(cust, cards), nil
}

func (c *Client) listCards(ctx context.Context, customerID string) ([]model.CardSummary, error) {
	params := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerID),
		Type:     stripe.String(string(stripe.PaymentMethodTypeCard)),
	}
	params.Context = ctx

	cards := []model.CardSummary{}
	it := c.api.PaymentMethods.List(params)
	for it.Next() {
		pm := it.PaymentMethod()
		if pm.Card == nil {
			continue
		}
		cards = append(cards, model.CardSummary{
			ID:       pm.ID,
			Brand:    string(pm.Card.Brand),
			Last4:    pm.Card.Last4,
			ExpMonth: pm.Card.ExpMonth,
			ExpYear:  pm.Card.ExpYear,
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return cards, nil
}

func customerResponse(cust *stripe.Customer, cards []model.CardSummary) *model.CustomerResponse {
	return &model.CustomerResponse{
		CustomerID:     cust.ID,
		Email:          cust.Email,
		Name:           cust.Name,
		Metadata:       cust.Metadata,
		PaymentMethods: cards,
	}
}

// VerifyEvent checks the webhook signature against the shared secret and
// extracts the event's primary object id. Fails closed on any mismatch.
func (c *Client) VerifyEvent(payload []byte, signatureHeader string) (Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signatureHeader, c.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("verify webhook signature: %w", err)
	}

	var object struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(stripeEvent.Data.Raw, &object); err != nil {
		return Event{}, fmt.Errorf("decode event object: %w", err)
	}

	return Event{
		ID:       stripeEvent.ID,
		Type:     string(stripeEvent.Type),
		ObjectID: object.ID,
	}, nil
}
