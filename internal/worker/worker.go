// Package worker consumes order lifecycle events from NATS and sends the
// corresponding transactional email. It runs inside the server binary but
// stays decoupled: the checkout path only publishes, so a slow SMTP server
// never slows an order down.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/verdantmarket/verdant/internal/domain"
	"github.com/verdantmarket/verdant/internal/email"
	"github.com/verdantmarket/verdant/internal/notify"
	"github.com/verdantmarket/verdant/internal/service"
	"github.com/verdantmarket/verdant/internal/telemetry"
)

// Config holds worker configuration.
type Config struct {
	// WorkerID uniquely identifies this worker instance.
	WorkerID string

	// QueueGroup is the NATS queue group; instances in the same group share
	// the event stream, so each event is handled once per group.
	QueueGroup string

	// MaxConcurrency caps in-flight email sends.
	MaxConcurrency int

	// SendTimeout bounds a single email delivery.
	SendTimeout time.Duration
}

// Worker subscribes to order events and sends email.
type Worker struct {
	config Config
	nc     *nats.Conn
	store  service.Store
	sender email.Sender
	logger *slog.Logger

	subs []*nats.Subscription
	sem  chan struct{}
}

// NewWorker creates a new order event worker.
func NewWorker(nc *nats.Conn, store service.Store, sender email.Sender, config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.QueueGroup == "" {
		config.QueueGroup = "email-workers"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 5
	}
	if config.SendTimeout == 0 {
		config.SendTimeout = 30 * time.Second
	}

	return &Worker{
		config: config,
		nc:     nc,
		store:  store,
		sender: sender,
		logger: logger,
		sem:    make(chan struct{}, config.MaxConcurrency),
	}
}

// Start subscribes to the order subjects and processes events until the
// context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"queue_group", w.config.QueueGroup,
		"max_concurrency", w.config.MaxConcurrency,
	)

	subjects := map[string]func(context.Context, notify.OrderEvent) error{
		notify.SubjectOrderCreated:   w.handleOrderCreated,
		notify.SubjectOrderPaid:      w.handleOrderPaid,
		notify.SubjectOrderCancelled: w.handleOrderCancelled,
	}

	for subject, handle := range subjects {
		sub, err := w.nc.QueueSubscribe(subject, w.config.QueueGroup, w.dispatch(ctx, subject, handle))
		if err != nil {
			return fmt.Errorf("worker: subscribe %s: %w", subject, err)
		}
		w.subs = append(w.subs, sub)
	}

	<-ctx.Done()
	w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)

	for _, sub := range w.subs {
		_ = sub.Unsubscribe()
	}
	// Let in-flight sends finish.
	for i := 0; i < w.config.MaxConcurrency; i++ {
		w.sem <- struct{}{}
	}
	return ctx.Err()
}

func (w *Worker) dispatch(ctx context.Context, subject string, handle func(context.Context, notify.OrderEvent) error) nats.MsgHandler {
	return func(msg *nats.Msg) {
		var event notify.OrderEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			w.logger.Error("worker: bad event payload", "subject", subject, "error", err)
			return
		}

		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		go func() {
			defer func() { <-w.sem }()

			sendCtx, cancel := context.WithTimeout(context.Background(), w.config.SendTimeout)
			defer cancel()

			if err := handle(sendCtx, event); err != nil {
				w.logger.Error("worker: event handling failed",
					"subject", subject, "order_number", event.OrderNumber, "error", err)
			}
		}()
	}
}

func (w *Worker) handleOrderCreated(ctx context.Context, event notify.OrderEvent) error {
	return w.sendOrderMail(ctx, event, "order_confirmation")
}

// handleOrderPaid sends the confirmation for online orders, which were only
// pending at creation time. COD orders already got theirs from
// order.created.
func (w *Worker) handleOrderPaid(ctx context.Context, event notify.OrderEvent) error {
	return w.sendOrderMail(ctx, event, "payment_receipt")
}

func (w *Worker) handleOrderCancelled(ctx context.Context, event notify.OrderEvent) error {
	user, err := w.store.GetUser(ctx, event.UserID)
	if err != nil {
		return err
	}
	order, err := w.store.GetOrder(ctx, event.OrderID)
	if err != nil {
		return err
	}

	msg := email.OrderCancelled(user.Email, *order)
	if _, err := w.sender.Send(ctx, msg); err != nil {
		telemetry.Business.EmailFailed.WithLabelValues("order_cancelled").Inc()
		return err
	}
	telemetry.Business.EmailSent.WithLabelValues("order_cancelled").Inc()
	return nil
}

func (w *Worker) sendOrderMail(ctx context.Context, event notify.OrderEvent, emailType string) error {
	user, err := w.store.GetUser(ctx, event.UserID)
	if err != nil {
		return err
	}
	order, err := w.store.GetOrder(ctx, event.OrderID)
	if err != nil {
		return err
	}
	items, err := w.store.GetOrderItems(ctx, event.OrderID)
	if err != nil {
		return err
	}
	payment, err := w.store.GetOrderPayment(ctx, event.OrderID)
	if err != nil {
		return err
	}

	detail := domainDetail(order, items, payment)
	msg := email.OrderConfirmation(user.Email, detail)
	if emailType == "payment_receipt" {
		msg.Subject = "Payment Received - " + order.OrderNumber
	}

	if _, err := w.sender.Send(ctx, msg); err != nil {
		telemetry.Business.EmailFailed.WithLabelValues(emailType).Inc()
		return err
	}
	telemetry.Business.EmailSent.WithLabelValues(emailType).Inc()
	return nil
}

func domainDetail(order *domain.Order, items []domain.OrderItem, payment *domain.OrderPayment) domain.OrderDetail {
	return domain.OrderDetail{Order: *order, Items: items, Payment: payment}
}
