// Package orders implements order placement, lifecycle and refunds.
package orders

import (
	"context"
	stderrors "errors"

	"github.com/nexcart/commerce-core/internal/domain/order"
	"github.com/nexcart/commerce-core/internal/errors"
	"github.com/nexcart/commerce-core/internal/logging"
	"github.com/nexcart/commerce-core/internal/metrics"
	"github.com/nexcart/commerce-core/internal/notify"
	"github.com/nexcart/commerce-core/internal/payments"
	"github.com/nexcart/commerce-core/internal/storage"
)

// Broadcaster fans order events out to connected clients. Delivery is best
// effort and never affects the outcome of an operation.
type Broadcaster interface {
	Broadcast(event notify.Event)
}

// Service runs the order pipeline.
type Service struct {
	store   storage.OrderStore
	gateway payments.Gateway
	events  Broadcaster
	metrics *metrics.Metrics
	log     *logging.Logger
}

// New constructs an order service. events and m may be nil.
func New(store storage.OrderStore, gateway payments.Gateway, events Broadcaster, m *metrics.Metrics, log *logging.Logger) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		events:  events,
		metrics: m,
		log:     log,
	}
}

// Create places an order from the submitted lines. The whole pipeline is
// atomic: either the header, every item snapshot and the computed total are
// written, or nothing is.
func (s *Service) Create(ctx context.Context, userID int64, lines []order.Line) (order.Order, error) {
	if len(lines) == 0 {
		return order.Order{}, errors.Validation("at least one item is required")
	}
	for _, line := range lines {
		if line.ProductID <= 0 {
			return order.Order{}, errors.Validation("product_id is required")
		}
		if line.Quantity <= 0 {
			return order.Order{}, errors.Validation("quantity must be positive")
		}
	}

	o, err := s.store.CreateOrder(ctx, userID, lines)
	if err != nil {
		s.recordPlaced(false)
		return order.Order{}, mapStorageError(err, "product")
	}
	s.recordPlaced(true)

	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"order_id": o.ID,
		"total":    o.TotalAmount.String(),
		"items":    len(o.Items),
	}).Info("Order placed")

	s.broadcast(notify.Event{
		Type:    notify.EventOrderPlaced,
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  string(o.Status),
	})
	return o, nil
}

// Get returns one of the caller's orders with its item snapshots.
func (s *Service) Get(ctx context.Context, userID, orderID int64) (order.Order, error) {
	o, err := s.store.GetOrder(ctx, userID, orderID)
	if err != nil {
		return order.Order{}, mapStorageError(err, "order")
	}
	return o, nil
}

// List returns the caller's orders, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]order.Order, error) {
	list, err := s.store.ListOrders(ctx, userID)
	if err != nil {
		return nil, mapStorageError(err, "order")
	}
	return list, nil
}

// UpdateStatus moves one of the caller's orders to the requested status.
// Orders only move forward (pending, completed, refunded); any other move
// is rejected as a conflict.
func (s *Service) UpdateStatus(ctx context.Context, userID, orderID int64, next order.Status) (order.Order, error) {
	if !next.Valid() {
		return order.Order{}, errors.Validation("invalid order status")
	}

	// The from-set may be empty (nothing moves to pending); the store still
	// looks the order up first, so an absent order reports not-found rather
	// than a state conflict.
	var allowedFrom []order.Status
	for _, from := range []order.Status{order.StatusPending, order.StatusCompleted, order.StatusRefunded} {
		if from.CanTransitionTo(next) {
			allowedFrom = append(allowedFrom, from)
		}
	}

	o, err := s.store.Transition(ctx, userID, orderID, next, allowedFrom...)
	if err != nil {
		return order.Order{}, mapStorageError(err, "order")
	}

	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"order_id": o.ID,
		"status":   o.Status,
	}).Info("Order status updated")

	s.broadcast(notify.Event{
		Type:    notify.EventOrderUpdated,
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  string(o.Status),
	})
	return o, nil
}

// Refund refunds a completed order through the payment gateway and flips it
// to refunded. Only completed orders carrying a payment reference qualify.
func (s *Service) Refund(ctx context.Context, userID, orderID int64) (order.Order, error) {
	o, err := s.store.GetOrder(ctx, userID, orderID)
	if err != nil {
		s.recordRefund(false)
		return order.Order{}, mapStorageError(err, "order")
	}

	if o.Status != order.StatusCompleted {
		s.recordRefund(false)
		return order.Order{}, errors.Conflict("order is not completed")
	}
	if o.PaymentRef == "" {
		s.recordRefund(false)
		return order.Order{}, errors.Conflict("order has no payment to refund")
	}

	refundID, err := s.gateway.CreateRefund(ctx, o.PaymentRef)
	if err != nil {
		s.recordRefund(false)
		s.log.WithContext(ctx).WithError(err).WithField("order_id", o.ID).Error("Refund rejected by payment gateway")
		return order.Order{}, err
	}

	o, err = s.store.SetRefunded(ctx, userID, orderID, refundID)
	if err != nil {
		s.recordRefund(false)
		return order.Order{}, mapStorageError(err, "order")
	}
	s.recordRefund(true)

	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"order_id":  o.ID,
		"refund_id": refundID,
	}).Info("Order refunded")

	s.broadcast(notify.Event{
		Type:    notify.EventRefundIssued,
		OrderID: o.ID,
		UserID:  o.UserID,
		Status:  string(o.Status),
	})
	return o, nil
}

func (s *Service) broadcast(event notify.Event) {
	if s.events != nil {
		s.events.Broadcast(event)
	}
}

func (s *Service) recordPlaced(success bool) {
	if s.metrics != nil {
		s.metrics.RecordOrderPlaced(success)
	}
}

func (s *Service) recordRefund(success bool) {
	if s.metrics != nil {
		s.metrics.RecordRefund(success)
	}
}

func mapStorageError(err error, resource string) error {
	switch {
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.NotFound(resource)
	case stderrors.Is(err, storage.ErrConflict):
		return errors.Conflict("order is not in a state that allows this operation")
	default:
		return errors.Internal("order storage failure", err)
	}
}
