// Package broker consumes this node's queue of addressed messages and
// hands each decoded BrokerMessage to the dispatcher. It never interprets
// the message payload itself.
package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	amqp "github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/cenkalti/backoff/v3"

	"github.com/webitel/im-ws-gateway/internal/dispatcher"
	"github.com/webitel/im-ws-gateway/internal/domain/model"
)

// Dispatcher is the subset of *dispatcher.Dispatcher the Consumer needs.
type Dispatcher interface {
	Dispatch(msg model.BrokerMessage) dispatcher.Stats
}

// Consumer owns this node's AMQP queue. Run blocks, reconnecting with
// backoff whenever the broker connection drops, until ctx is cancelled.
type Consumer struct {
	opts       Options
	dispatcher Dispatcher
	dedup      *dedup
	log        *slog.Logger
	wmLogger   watermill.LoggerAdapter
}

// New creates a Consumer. A nil wmLogger falls back to wrapping log, so the
// router and its middleware log through the same structured sink as the
// rest of the process.
func New(opts Options, disp Dispatcher, log *slog.Logger, wmLogger watermill.LoggerAdapter) (*Consumer, error) {
	opts = opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	if wmLogger == nil {
		wmLogger = watermill.NewSlogLogger(log)
	}
	d, err := newDedup(opts.DedupCacheSize)
	if err != nil {
		return nil, err
	}
	return &Consumer{opts: opts, dispatcher: disp, dedup: d, log: log, wmLogger: wmLogger}, nil
}

// Run supervises the AMQP connection with unbounded exponential backoff
// (base 1s, cap 30s): every time the router exits because the broker
// connection dropped, Run rebuilds the subscriber and publisher and
// starts again. It returns only when ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.ReconnectBaseInterval
	bo.MaxInterval = c.opts.ReconnectMaxInterval
	bo.MaxElapsedTime = 0 // unbounded: keep retrying until ctx is cancelled

	return backoff.Retry(func() error {
		err := c.runOnce(ctx)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err != nil {
			c.log.Warn("broker connection lost, reconnecting", "error", err)
		}
		return err
	}, backoff.WithContext(bo, ctx))
}

func (c *Consumer) runOnce(ctx context.Context) error {
	logger := c.wmLogger

	cfg := amqp.NewDurableQueueConfig(c.opts.AMQPURI)
	cfg.Consume.Qos.PrefetchCount = c.opts.PrefetchCount

	subscriber, err := amqp.NewSubscriber(cfg, logger)
	if err != nil {
		return err
	}
	defer subscriber.Close()

	publisher, err := amqp.NewPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return err
	}

	poison, err := middleware.PoisonQueue(publisher, c.opts.QueueName+".poison")
	if err != nil {
		return err
	}

	router.AddMiddleware(
		middleware.Recoverer,
		poison,
		middleware.NewThrottle(int64(c.opts.ThrottleLimit), c.opts.ThrottleWindow).Middleware,
		middleware.Timeout(30*time.Second),
	)

	router.AddNoPublisherHandler("im-ws-gateway-consumer", c.opts.QueueName, subscriber, c.handle)

	return router.Run(ctx)
}

// handle decodes one AMQP delivery into a BrokerMessage and dispatches
// it. Decode and validation failures are unretryable: they're acked and
// dropped rather than returned as an error, which would route them
// through the poison-queue middleware for a message no redelivery can fix.
func (c *Consumer) handle(msg *message.Message) error {
	if c.dedup.seen(msg.UUID) {
		return nil
	}

	var bm model.BrokerMessage
	if err := json.Unmarshal(msg.Payload, &bm); err != nil {
		c.log.Warn("dropping broker message: invalid json", "error", err)
		return nil
	}
	if err := bm.Validate(); err != nil {
		c.log.Warn("dropping broker message: failed validation", "error", err)
		return nil
	}

	c.dispatcher.Dispatch(bm)
	return nil
}
