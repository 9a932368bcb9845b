package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/lovingyourskin/commerce-api/internal/model"
	"github.com/lovingyourskin/commerce-api/internal/payment"
	"github.com/lovingyourskin/commerce-api/pkg/database"
)

// OrderRepositoryInterface defines the interface for order data access.
type OrderRepositoryInterface interface {
	InsertIfAbsent(ctx context.Context, tx database.TxQuerier, o *model.Order) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error)
	List(ctx context.Context, userID string, limit, offset int) ([]model.Order, error)
	AppendStatus(ctx context.Context, id uuid.UUID, entry model.TimelineEntry) error
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, paymentStatus string, now time.Time) error
}

// EventRepositoryInterface defines the interface for the processed-event log.
type EventRepositoryInterface interface {
	MarkProcessed(ctx context.Context, tx database.TxQuerier, eventID, eventType string, now time.Time) (bool, error)
}

// PreorderRepositoryInterface defines the interface for preorder data access.
type PreorderRepositoryInterface interface {
	Insert(ctx context.Context, p *model.Preorder) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Preorder, error)
	ConfirmPayment(ctx context.Context, tx database.TxQuerier, id uuid.UUID, sessionID, paymentIntentID, userID, userEmail string, now time.Time) (bool, error)
}

// StockDecrementer is the slice of product persistence the webhook needs.
type StockDecrementer interface {
	DecrementStock(ctx context.Context, tx database.TxQuerier, id uuid.UUID, quantity int, now time.Time) error
}

// OrderService materializes orders from verified payment webhooks and serves
// the order read/admin surface.
type OrderService struct {
	orders     OrderRepositoryInterface
	events     EventRepositoryInterface
	preorders  PreorderRepositoryInterface
	products   StockDecrementer
	discounts  *DiscountService
	affiliates *AffiliateService
	payments   PaymentClientInterface
	pool       database.TxBeginner
	rdb        redis.Cmdable
	now        func() time.Time
}

// NewOrderService creates a new OrderService. rdb may be nil; idempotency
// then rests solely on the database.
func NewOrderService(
	orders OrderRepositoryInterface,
	events EventRepositoryInterface,
	preorders PreorderRepositoryInterface,
	products StockDecrementer,
	discounts *DiscountService,
	affiliates *AffiliateService,
	payments PaymentClientInterface,
	pool database.TxBeginner,
	rdb redis.Cmdable,
) *OrderService {
	return &OrderService{
		orders:     orders,
		events:     events,
		preorders:  preorders,
		products:   products,
		discounts:  discounts,
		affiliates: affiliates,
		payments:   payments,
		pool:       pool,
		rdb:        rdb,
		now:        time.Now,
	}
}

// Redis key prefix and TTL for the webhook dedupe fast path. The durable
// processed_events table is the backstop when Redis is cold.
const (
	eventDedupeKeyPrefix = "webhook:event:"
	eventDedupeTTL       = 72 * time.Hour
)

// ProcessEvent handles one verified webhook delivery. Redeliveries are
// expected and must be no-ops: a Redis SETNX screens them out cheaply, and
// the materialization transaction re-checks against the processed_events
// table for deliveries that slip past a cold cache.
func (s *OrderService) ProcessEvent(ctx context.Context, event payment.Event) error {
	if s.rdb != nil {
		ok, err := s.rdb.SetNX(ctx, eventDedupeKeyPrefix+event.ID, 1, eventDedupeTTL).Result()
		if err != nil {
			log.Warn().Err(err).Str("eventId", event.ID).Msg("event dedupe cache unavailable, relying on database")
		} else if !ok {
			log.Info().Str("eventId", event.ID).Str("type", event.Type).Msg("duplicate event delivery skipped")
			return nil
		}
	}

	switch event.Type {
	case payment.EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case payment.EventPaymentFailed:
		log.Warn().Str("eventId", event.ID).Str("paymentIntentId", event.ObjectID).Msg("payment failed")
		return nil
	case payment.EventInvoicePaymentSucceeded:
		log.Info().Str("eventId", event.ID).Str("invoiceId", event.ObjectID).Msg("invoice payment succeeded")
		return nil
	default:
		log.Debug().Str("eventId", event.ID).Str("type", event.Type).Msg("unhandled event type")
		return nil
	}
}

// handleCheckoutCompleted re-fetches the completed session and materializes
// its order. All side effects of one delivery run in a single transaction
// keyed on the session id, so redelivery either replays nothing or replays
// everything onto the conflict arms.
func (s *OrderService) handleCheckoutCompleted(ctx context.Context, event payment.Event) error {
	sess, err := s.payments.GetSession(ctx, event.ObjectID)
	if err != nil {
		return fmt.Errorf("fetch session %s: %w", event.ObjectID, err)
	}

	if preorderID := sess.Metadata["preorderId"]; preorderID != "" {
		return s.confirmPreorder(ctx, event, sess, preorderID)
	}
	return s.materializeOrder(ctx, event, sess)
}

func (s *OrderService) confirmPreorder(ctx context.Context, event payment.Event, sess *payment.SessionDetails, preorderID string) error {
	id, err := uuid.Parse(preorderID)
	if err != nil {
		return fmt.Errorf("%w: malformed preorder id in session %s", ErrInvalidRequest, sess.ID)
	}

	err = database.WithTx(ctx, s.pool, func(tx database.TxQuerier) error {
		fresh, err := s.events.MarkProcessed(ctx, tx, event.ID, event.Type, s.now())
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}

		confirmed, err := s.preorders.ConfirmPayment(ctx, tx, id, sess.ID, sess.PaymentIntentID,
			sess.Metadata["customerId"], sess.CustomerEmail, s.now())
		if err != nil {
			return err
		}
		if !confirmed {
			// A resent session arrives under a fresh event id; the preorder's
			// own state is the idempotency key for its side effects.
			log.Info().Str("preorderId", preorderID).Str("sessionId", sess.ID).Msg("preorder already confirmed, skipping attribution")
			return nil
		}

		if code := sess.Metadata["affiliateCode"]; code != "" {
			if err := s.attributeConversion(ctx, tx, code, preorderID, "", model.OrderTypePreorder, sess); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("confirm preorder %s: %w", preorderID, err)
	}

	log.Info().Str("preorderId", preorderID).Str("sessionId", sess.ID).Msg("preorder confirmed")
	return nil
}

func (s *OrderService) materializeOrder(ctx context.Context, event payment.Event, sess *payment.SessionDetails) error {
	now := s.now()
	order := s.buildOrder(sess, now)

	err := database.WithTx(ctx, s.pool, func(tx database.TxQuerier) error {
		if _, err := s.events.MarkProcessed(ctx, tx, event.ID, event.Type, now); err != nil {
			return err
		}

		created, err := s.orders.InsertIfAbsent(ctx, tx, order)
		if err != nil {
			return err
		}
		if !created {
			log.Info().Str("sessionId", sess.ID).Msg("order already materialized, skipping side effects")
			return nil
		}

		for _, item := range order.Items {
			pid, err := uuid.Parse(item.ProductID)
			if err != nil {
				// Line items without a catalog id (legacy carts) don't track stock.
				continue
			}
			if err := s.products.DecrementStock(ctx, tx, pid, item.Quantity, now); err != nil {
				log.Warn().Err(err).Str("productId", item.ProductID).Msg("stock decrement failed, continuing")
			}
		}

		if code := sess.Metadata["affiliateCode"]; code != "" {
			if err := s.attributeConversion(ctx, tx, code, order.ID.String(), order.OrderNumber, model.OrderTypeB2C, sess); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("materialize order for session %s: %w", sess.ID, err)
	}

	log.Info().
		Str("orderId", order.ID.String()).
		Str("orderNumber", order.OrderNumber).
		Str("sessionId", sess.ID).
		Float64("total", order.TotalAmount.Total).
		Msg("order materialized")
	return nil
}

// attributeConversion redeems the code against the order and credits the
// linked affiliate. A code that fails redemption (exhausted, expired) is
// logged and skipped: the customer already paid, so attribution failure must
// not fail the order.
func (s *OrderService) attributeConversion(ctx context.Context, tx database.TxQuerier, code, orderID, orderNumber, orderType string, sess *payment.SessionDetails) error {
	redeemed, _, err := s.discounts.Redeem(ctx, tx, &model.ValidateDiscountRequest{
		Code:          code,
		OrderValue:    sess.AmountSubtotal,
		CustomerID:    sess.Metadata["customerId"],
		CustomerEmail: sess.CustomerEmail,
		IsLoggedIn:    sess.Metadata["customerId"] != "",
	}, orderID)
	if err != nil {
		if isValidationFailure(err) {
			log.Warn().Err(err).Str("code", code).Str("orderId", orderID).Msg("code not redeemable at capture, order kept")
			return nil
		}
		return fmt.Errorf("redeem code %s: %w", code, err)
	}

	rec, err := s.affiliates.RecordConversion(ctx, tx, redeemed, orderID, orderNumber, orderType, sess.AmountSubtotal)
	if err != nil {
		return fmt.Errorf("record conversion: %w", err)
	}
	if rec != nil {
		log.Info().
			Str("affiliateId", rec.AffiliateID.String()).
			Str("orderId", orderID).
			Float64("commission", rec.Amount).
			Msg("commission recorded")
	}
	return nil
}

// buildOrder converts a completed session into an order snapshot.
func (s *OrderService) buildOrder(sess *payment.SessionDetails, now time.Time) *model.Order {
	items := make([]model.OrderItem, 0, len(sess.LineItems))
	for _, line := range sess.LineItems {
		item := model.OrderItem{
			ProductID:   line.ProductID,
			ProductName: line.Description,
			Quantity:    line.Quantity,
			TotalPrice:  line.AmountSubtotal,
		}
		if line.Quantity > 0 {
			item.PricePerItem = line.AmountSubtotal / float64(line.Quantity)
		}
		items = append(items, item)
	}

	userType := "retail"
	if sess.Metadata["orderType"] == model.OrderTypePreorder {
		userType = "preorder"
	}

	return &model.Order{
		ID:                    uuid.New(),
		OrderNumber:           NewOrderNumber(now),
		StripeSessionID:       sess.ID,
		StripePaymentIntentID: sess.PaymentIntentID,
		UserID:                sess.Metadata["customerId"],
		UserType:              userType,
		CustomerEmail:         sess.CustomerEmail,
		CustomerName:          sess.Metadata["customerName"],
		Status:                model.OrderStatusConfirmed,
		PaymentStatus:         model.PaymentStatusPaid,
		PaymentMethod:         "card",
		Items:                 items,
		TotalAmount: model.OrderAmount{
			Items:    sess.AmountSubtotal,
			Shipping: sess.AmountShipping,
			Tax:      sess.AmountTax,
			Discount: sess.AmountDiscount,
			Total:    sess.AmountTotal,
			Currency: strings.ToUpper(sess.Currency),
		},
		ShippingAddress: sess.ShippingAddress,
		BillingAddress:  sess.BillingAddress,
		AffiliateCode:   sess.Metadata["affiliateCode"],
		Timeline: []model.TimelineEntry{
			{Status: model.OrderStatusConfirmed, Timestamp: now, Note: "Payment received"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewOrderNumber mints a sortable human-facing order number.
func NewOrderNumber(now time.Time) string {
	return "ORD-" + ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

// GetByID retrieves an order.
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// GetBySessionID retrieves the order materialized from a checkout session.
func (s *OrderService) GetBySessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	o, err := s.orders.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get order by session: %w", err)
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// List returns orders newest first, optionally narrowed to one customer.
func (s *OrderService) List(ctx context.Context, userID string, limit, offset int) ([]model.Order, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.orders.List(ctx, userID, limit, offset)
}

// orderTransitions is the admin-facing order status machine. Cancelled and
// refunded are reachable from most live states; delivered is terminal.
var orderTransitions = map[string][]string{
	model.OrderStatusPending:    {model.OrderStatusConfirmed, model.OrderStatusCancelled},
	model.OrderStatusConfirmed:  {model.OrderStatusProcessing, model.OrderStatusCancelled, model.OrderStatusRefunded},
	model.OrderStatusProcessing: {model.OrderStatusShipped, model.OrderStatusCancelled, model.OrderStatusRefunded},
	model.OrderStatusShipped:    {model.OrderStatusDelivered, model.OrderStatusRefunded},
	model.OrderStatusDelivered:  {model.OrderStatusRefunded},
}

func orderTransitionAllowed(from, to string) bool {
	for _, t := range orderTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// UpdateStatus advances an order through its lifecycle, appending to the
// timeline. A refund also flips the payment status.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req *model.UpdateOrderStatusRequest) (*model.Order, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	o, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !orderTransitionAllowed(o.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, req.Status)
	}

	now := s.now()
	entry := model.TimelineEntry{Status: req.Status, Timestamp: now, Note: req.Note}
	if err := s.orders.AppendStatus(ctx, id, entry); err != nil {
		return nil, err
	}
	if req.Status == model.OrderStatusRefunded {
		if err := s.orders.UpdatePaymentStatus(ctx, id, model.PaymentStatusRefunded, now); err != nil && !errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
	}

	o.Status = req.Status
	o.Timeline = append(o.Timeline, entry)
	o.UpdatedAt = now
	return o, nil
}
