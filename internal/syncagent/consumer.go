package syncagent

import (
	"context"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/pkg/enums"
	"github.com/tapline/tapline-backend/pkg/logger"
)

const receiveRetryDelay = 5 * time.Second

// Consumer bridges the order event feed into the agent. It also owns
// the connection state: while Receive is streaming the feed counts as
// up, and any terminal error flips it down until the next attempt.
type Consumer struct {
	subscription *pubsub.Subscriber
	agent        *Agent
	conn         *ConnState
	logg         *logger.Logger
}

// NewConsumer builds the feed consumer.
func NewConsumer(subscription *pubsub.Subscriber, agent *Agent, conn *ConnState, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if agent == nil {
		return nil, fmt.Errorf("agent required")
	}
	if conn == nil {
		return nil, fmt.Errorf("connection state required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription: subscription,
		agent:        agent,
		conn:         conn,
		logg:         logg,
	}, nil
}

// Run streams events until the context is canceled, reconnecting after
// transient failures.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		c.conn.Set(true)
		err := c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
			c.process(ctx, msg)
			msg.Ack()
		})
		c.conn.Set(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			c.logg.Error(ctx, "order feed receive failed; retrying", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(receiveRetryDelay):
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	if !eventType.IsValid() {
		return
	}

	// payment_processed rows aggregate on the payment; the order id
	// attribute points back at the order to act on.
	idSource := msg.Attributes["order_id"]
	if idSource == "" {
		idSource = msg.Attributes["aggregate_id"]
	}
	orderID, err := uuid.Parse(idSource)
	if err != nil {
		logCtx := c.logg.WithField(ctx, "event_type", string(eventType))
		c.logg.Error(logCtx, "event without usable order id", err)
		return
	}

	c.agent.HandleEvent(ctx, Event{Type: eventType, OrderID: orderID})
}
