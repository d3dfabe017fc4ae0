package redis

import (
	"context"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/streamkit/errors"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/resilience"
	"github.com/kbukum/streamkit/sse"
)

// Bridge forwards Redis pub/sub messages into running streams. Each
// attached stream gets its own subscription, released when the stream ends.
type Bridge struct {
	client *Client
	retry  resilience.RetryConfig
	log    *logger.Logger
}

var _ sse.Bridge = (*Bridge)(nil)

// NewBridge creates a bridge on client.
func NewBridge(client *Client, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	b := &Bridge{
		client: client,
		retry:  client.Config().SubscribeRetry,
		log:    log.WithComponent("redis.bridge"),
	}
	b.retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		b.log.Warn("Retrying subscription", map[string]interface{}{
			"attempt":         attempt,
			"backoff_ms":      backoff.Milliseconds(),
			logger.FieldError: err.Error(),
		})
	}
	return b
}

// Attach subscribes to channels and dispatches every message to d until
// ctx is done or the returned function is called. Messages that arrive
// before the stream runs are queued; those for a stopped stream are dropped.
func (b *Bridge) Attach(ctx context.Context, d sse.Dispatcher, channels []string) (func(), error) {
	if len(channels) == 0 {
		return func() {}, nil
	}

	ps, err := resilience.Retry(ctx, b.retry, func() (*goredis.PubSub, error) {
		return b.client.Subscribe(ctx, channels...)
	})
	if err != nil {
		return nil, err
	}
	b.log.Debug("Subscribed", map[string]interface{}{"channels": channels})

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.forward(ctx, ps.Channel(), d)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = ps.Close()
			<-done
		})
	}, nil
}

func (b *Bridge) forward(ctx context.Context, msgs <-chan *goredis.Message, d sse.Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			channel := b.client.streamChannel(msg.Channel)
			if err := d.Dispatch(channel, msg.Payload); err != nil {
				if errors.HasCode(err, errors.ErrCodeStreamNotRunning) {
					b.log.Debug("Dropped message for stopped stream", map[string]interface{}{
						logger.FieldChannel: channel,
					})
					continue
				}
				b.log.Warn("Dispatch failed", map[string]interface{}{
					logger.FieldChannel: channel,
					logger.FieldError:   err.Error(),
				})
			}
		}
	}
}
