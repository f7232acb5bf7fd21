package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/corevoice/users-service/internal/config"
)

// Connector consumes request envelopes from the broker, routes them
// through the service and publishes responses. Acknowledgement happens
// only after a response has been published, so a crash mid-processing
// leaves the request eligible for redelivery.
type Connector struct {
	logger *slog.Logger
	cfg    config.MQConfig
	router *Router
}

// NewConnector creates a connector over the given router
func NewConnector(logger *slog.Logger, cfg config.MQConfig, router *Router) *Connector {
	return &Connector{
		logger: logger,
		cfg:    cfg,
		router: router,
	}
}

// Run connects to the broker and consumes until ctx is cancelled,
// reconnecting with backoff on broker failures.
func (c *Connector) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := amqp.Dial(c.cfg.URL)
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to dial broker",
				slog.Any("error", err),
				slog.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if err != nil && ctx.Err() == nil {
			c.logger.WarnContext(ctx, "consume loop ended, reconnecting",
				slog.Any("error", err))
		}
	}
}

// consumeLoop declares the request queue and processes deliveries until
// the channel closes or ctx is cancelled
func (c *Connector) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.WarnContext(ctx, "set QoS failed", slog.Any("error", err))
	}

	if _, err := ch.QueueDeclare(c.cfg.RequestQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.Consume(c.cfg.RequestQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handleDelivery(ctx, ch, d)
		}
	}
}

// handleDelivery processes one delivery end to end. A panic inside the
// router must not take the consumer down; it is answered as a server
// fault instead.
func (c *Connector) handleDelivery(ctx context.Context, ch *amqp.Channel, d amqp.Delivery) {
	var req Request
	if err := json.Unmarshal(d.Body, &req); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode request",
			slog.Any("error", err))
		// No routing information to answer on; reject without requeue
		// to avoid a redelivery loop.
		_ = d.Nack(false, false)
		return
	}

	resp := c.safeHandle(ctx, &req)

	if err := c.publishResponse(ctx, ch, &req, d.ReplyTo, resp); err != nil {
		c.logger.ErrorContext(ctx, "failed to publish response",
			slog.String("message_id", req.MessageID),
			slog.Any("error", err))
		// Leave the request for redelivery.
		_ = d.Nack(false, true)
		return
	}

	_ = d.Ack(false)
}

// safeHandle invokes the router with panic recovery
func (c *Connector) safeHandle(ctx context.Context, req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorContext(ctx, "panic while handling request",
				slog.String("message_id", req.MessageID),
				slog.Any("panic", r))
			resp = errorResponse(CodeInternalError, "internal server error")
			resp.MessageID = req.MessageID
		}
	}()
	return c.router.Handle(ctx, req)
}

// publishResponse sends the response envelope to the reply destination:
// the delivery's reply-to when set, then the request's routing_key,
// falling back to the configured response queue.
func (c *Connector) publishResponse(ctx context.Context, ch *amqp.Channel, req *Request, replyTo string, resp *Response) error {
	routingKey := replyTo
	if routingKey == "" {
		routingKey = req.RoutingKey
	}
	if routingKey == "" {
		routingKey = c.cfg.ResponseQueue
	}

	// Queue declare is idempotent, just making sure the default reply
	// queue exists before publishing to it.
	if routingKey == c.cfg.ResponseQueue {
		if _, err := ch.QueueDeclare(routingKey, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare response queue: %w", err)
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: req.MessageID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	}

	if err := ch.PublishWithContext(ctx, "", routingKey, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}
