package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"order-webhook-service/cache"
	"order-webhook-service/models"
	"order-webhook-service/repository"
	"order-webhook-service/sender"

	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

// EventPublisher pushes reconciled order events downstream. Publishing is
// best-effort; a nil publisher disables it.
type EventPublisher interface {
	Publish(event models.OrderEvent) error
}

// orderState captures where an order sits in the convergent finalization
// flow. The two webhook handlers read it to decide whether the sibling
// delivery already finished the job. The read is a best-effort short-circuit:
// the unique index on order items, not this check, is the correctness
// guarantee under concurrent deliveries.
type orderState int

const (
	// stateNoItems: order items not yet materialized; whichever handler runs
	// first must complete the full finalization alone.
	stateNoItems orderState = iota
	// stateItemsPending: items exist but the order is not marked paid yet
	// (item insertion won the race against the status write of a concurrent
	// delivery).
	stateItemsPending
	// statePaidComplete: order paid and items materialized; only the
	// idempotent catch-up steps (stock, email) may still be owed.
	statePaidComplete
)

// Reconciler converges Stripe's two asynchronous payment notifications into
// exactly-once order finalization. Handlers tolerate duplicate, reordered,
// and concurrent deliveries.
type Reconciler struct {
	gateway Gateway
	orders  repository.OrderRepository
	stock   StockDecrementer
	sender  sender.ConfirmationSender // nil disables confirmation emails
	seen    cache.SeenCache
	events  EventPublisher // nil disables event publishing
	logger  *zap.Logger
}

func NewReconciler(
	gateway Gateway,
	orders repository.OrderRepository,
	stock StockDecrementer,
	confirmation sender.ConfirmationSender,
	seen cache.SeenCache,
	events EventPublisher,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		gateway: gateway,
		orders:  orders,
		stock:   stock,
		sender:  confirmation,
		seen:    seen,
		events:  events,
		logger:  logger,
	}
}

// HandleEvent dispatches a verified webhook event. Processing failures are
// logged, never returned: the endpoint acknowledges every verified delivery
// so the gateway's retry policy cannot amplify internal failures.
func (r *Reconciler) HandleEvent(ctx context.Context, event stripe.Event) {
	r.logger.Info("Processing Stripe webhook",
		zap.String("event_type", string(event.Type)),
		zap.String("event_id", event.ID),
	)

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			r.logger.Error("Failed to unmarshal checkout session", zap.Error(err))
			return
		}
		if err := r.HandleCheckoutSessionCompleted(ctx, sess.ID); err != nil {
			r.logger.Error("checkout.session.completed processing failed",
				zap.String("session_id", sess.ID), zap.Error(err))
		}
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			r.logger.Error("Failed to unmarshal payment intent", zap.Error(err))
			return
		}
		if err := r.HandlePaymentIntentSucceeded(ctx, pi.ID); err != nil {
			r.logger.Error("payment_intent.succeeded processing failed",
				zap.String("payment_intent_id", pi.ID), zap.Error(err))
		}
	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			r.logger.Error("Failed to unmarshal payment intent", zap.Error(err))
			return
		}
		if err := r.HandlePaymentIntentFailed(ctx, pi.ID); err != nil {
			r.logger.Error("payment_intent.payment_failed processing failed",
				zap.String("payment_intent_id", pi.ID), zap.Error(err))
		}
	default:
		r.logger.Info("Unhandled webhook event type", zap.String("event_type", string(event.Type)))
	}
}

// HandleCheckoutSessionCompleted processes checkout.session.completed.
func (r *Reconciler) HandleCheckoutSessionCompleted(ctx context.Context, sessionID string) error {
	sess, err := r.gateway.GetCheckoutSession(sessionID)
	if err != nil {
		return err
	}

	paymentIntentID := sessionPaymentIntentID(sess)
	if paymentIntentID == "" {
		// Informational-only at this stage; payment_intent.succeeded is the
		// authoritative signal and will arrive separately.
		r.logger.Info("Session has no payment intent yet, deferring",
			zap.String("session_id", sessionID))
		return nil
	}

	order, err := r.orders.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("No order for checkout session", zap.String("session_id", sessionID))
			return nil
		}
		return err
	}

	state, err := r.orderState(ctx, order)
	if err != nil {
		return err
	}

	switch state {
	case statePaidComplete:
		// A previous delivery already flipped status and inserted items but a
		// downstream step may have failed; catch up idempotently.
		r.logger.Info("Order already paid with items, running catch-up",
			zap.String("order_number", order.OrderNumber))
		r.settle(ctx, order)
		return nil
	case stateItemsPending:
		r.logger.Info("Items exist, payment_intent.succeeded owns final confirmation",
			zap.String("order_number", order.OrderNumber))
		return nil
	default:
		return r.finalize(ctx, order, sess, paymentIntentID)
	}
}

// HandlePaymentIntentSucceeded processes payment_intent.succeeded. It is the
// backup path: the two gateway events arrive in arbitrary order, so this
// handler must be able to complete the full job alone, or detect that the
// session-completed handler already did.
func (r *Reconciler) HandlePaymentIntentSucceeded(ctx context.Context, paymentIntentID string) error {
	sess, err := r.gateway.FindSessionByPaymentIntent(paymentIntentID)
	if err != nil {
		return err
	}
	if sess == nil {
		// No session means no manifest; mark paid directly and stop.
		r.logger.Warn("No checkout session for payment intent, updating order directly",
			zap.String("payment_intent_id", paymentIntentID))
		return r.orders.MarkPaidByPaymentIntent(ctx, paymentIntentID)
	}

	order, err := r.orders.GetBySessionID(ctx, sess.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("No order for checkout session",
				zap.String("session_id", sess.ID),
				zap.String("payment_intent_id", paymentIntentID))
			return nil
		}
		return err
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		r.logger.Info("Order already paid, redundant confirmation",
			zap.String("order_number", order.OrderNumber))
		return nil
	}

	state, err := r.orderState(ctx, order)
	if err != nil {
		return err
	}

	if state == stateItemsPending {
		// Item creation won the race; finish the status transition and run
		// the catch-up steps.
		if err := r.orders.MarkPaid(ctx, order.ID, paymentIntentID); err != nil {
			return err
		}
		order.PaymentStatus = models.PaymentStatusPaid
		r.settle(ctx, order)
		r.publish(order, models.EventOrderPaid)
		return nil
	}

	full, err := r.gateway.GetCheckoutSession(sess.ID)
	if err != nil {
		return err
	}
	return r.finalize(ctx, order, full, paymentIntentID)
}

// HandlePaymentIntentFailed marks the order failed/cancelled. Writing the
// same terminal state twice is harmless.
func (r *Reconciler) HandlePaymentIntentFailed(ctx context.Context, paymentIntentID string) error {
	if err := r.orders.MarkFailed(ctx, paymentIntentID); err != nil {
		return err
	}
	r.logger.Info("Order marked failed/cancelled",
		zap.String("payment_intent_id", paymentIntentID))

	if order, err := r.orders.GetByPaymentIntentID(ctx, paymentIntentID); err == nil {
		r.publish(order, models.EventOrderPaymentFailed)
	}
	return nil
}

// finalize is the shared finalization routine. Each step is gated on the
// previous one; the item insert is the exactly-once gate for everything
// after it.
func (r *Reconciler) finalize(ctx context.Context, order *models.Order, sess *stripe.CheckoutSession, paymentIntentID string) error {
	if err := r.orders.MarkPaid(ctx, order.ID, paymentIntentID); err != nil {
		return err
	}
	order.PaymentStatus = models.PaymentStatusPaid
	order.Status = models.StatusProcessing

	items, err := buildOrderItems(order.ID, sessionManifest(sess))
	if err != nil {
		// Upstream data bug, not a transient fault; manual intervention needed.
		r.logger.Error("Cannot materialize order items",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
		return err
	}

	if err := r.orders.CreateItems(ctx, items); err != nil {
		if errors.Is(err, repository.ErrItemsExist) {
			r.logger.Info("Items already inserted by a concurrent delivery",
				zap.String("order_number", order.OrderNumber))
			return nil
		}
		return err
	}
	r.logger.Info("Order items created",
		zap.String("order_number", order.OrderNumber), zap.Int("count", len(items)))

	r.settle(ctx, order)
	r.publish(order, models.EventOrderPaid)
	return nil
}

// settle runs the post-insert steps: stock decrement (partial-failure
// tolerant) then the guarded confirmation send. Neither failure propagates.
func (r *Reconciler) settle(ctx context.Context, order *models.Order) {
	result := r.stock.DecrementForOrder(ctx, order.ID)
	if !result.OK() {
		r.logger.Warn("Stock decrement reported errors",
			zap.String("order_number", order.OrderNumber),
			zap.Int("decremented", result.Decremented),
			zap.Strings("errors", result.Errors),
		)
	}
	r.sendConfirmationSafe(ctx, order)
}

// sendConfirmationSafe sends at most one confirmation per order within the
// dedup window. The cache is process-local and best-effort; duplicate sends
// across instances are tolerated, duplicate side effects are not.
func (r *Reconciler) sendConfirmationSafe(ctx context.Context, order *models.Order) {
	if r.sender == nil {
		r.logger.Debug("Confirmation sender disabled", zap.String("order_number", order.OrderNumber))
		return
	}

	key := order.ID.String()
	if r.seen.Seen(key) {
		r.logger.Info("Confirmation already sent recently, skipping",
			zap.String("order_number", order.OrderNumber))
		return
	}

	items, err := r.orders.GetItems(ctx, order.ID)
	if err != nil {
		r.logger.Warn("Failed to load items for confirmation email",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
		return
	}

	res, err := r.sender.SendOrderConfirmation(ctx, order, items)
	if err != nil {
		r.logger.Warn("Confirmation send failed",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
		return
	}
	r.seen.MarkSeen(key)
	r.logger.Info("Confirmation sent",
		zap.String("order_number", order.OrderNumber),
		zap.String("message_id", res.MessageID),
	)
}

func (r *Reconciler) orderState(ctx context.Context, order *models.Order) (orderState, error) {
	hasItems, err := r.orders.HasItems(ctx, order.ID)
	if err != nil {
		return stateNoItems, err
	}
	switch {
	case !hasItems:
		return stateNoItems, nil
	case order.PaymentStatus == models.PaymentStatusPaid:
		return statePaidComplete, nil
	default:
		return stateItemsPending, nil
	}
}

func (r *Reconciler) publish(order *models.Order, eventType string) {
	if r.events == nil {
		return
	}
	event := models.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalAmount,
		Currency:    order.Currency,
		Timestamp:   time.Now().UTC(),
	}
	if err := r.events.Publish(event); err != nil {
		r.logger.Warn("Failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

func sessionPaymentIntentID(sess *stripe.CheckoutSession) string {
	if sess == nil || sess.PaymentIntent == nil {
		return ""
	}
	return sess.PaymentIntent.ID
}

func sessionManifest(sess *stripe.CheckoutSession) string {
	if sess == nil {
		return ""
	}
	return sess.Metadata["items"]
}
