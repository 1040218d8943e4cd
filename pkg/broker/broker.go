package broker

import (
	"context"
	"fmt"
	"sync"

	"watchlist/pkg/envelope"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// AnyAction registers a handler for every action.
const AnyAction = "*"

type HandlerFunc func(envelope.Envelope)

// Broker publishes watchlist events to a Redis channel and dispatches
// received events to registered handlers.
type Broker struct {
	rdb      *redis.Client
	channel  string
	service  string
	logger   *logrus.Logger
	handlers sync.Map
}

func New(rdb *redis.Client, channel, service string, logger *logrus.Logger) *Broker {
	return &Broker{
		rdb:     rdb,
		channel: channel,
		service: service,
		logger:  logger,
	}
}

func (b *Broker) Publish(ctx context.Context, env envelope.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, data).Err()
}

// Emit publishes an event and logs, rather than returns, any failure.
func (b *Broker) Emit(ctx context.Context, action, userID string, data interface{}) {
	env, err := envelope.NewEvent(action, b.service, userID, data)
	if err == nil {
		err = b.Publish(ctx, env)
	}
	if err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"action":  action,
			"user_id": userID,
		}).Warn("failed to publish event")
	}
}

func (b *Broker) On(action string, fn HandlerFunc) {
	b.handlers.Store(action, fn)
}

// Subscribe starts dispatching events from the channel. The returned func stops it.
func (b *Broker) Subscribe(ctx context.Context) (func() error, error) {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	ch := sub.Channel()
	go func() {
		for msg := range ch {
			env, err := envelope.Unmarshal([]byte(msg.Payload))
			if err != nil {
				b.logger.WithError(err).Debug("dropping malformed event")
				continue
			}
			b.dispatch(env)
		}
	}()

	return sub.Close, nil
}

func (b *Broker) dispatch(env envelope.Envelope) {
	if fn, ok := b.handlers.Load(env.Action); ok {
		fn.(HandlerFunc)(env)
	}
	if fn, ok := b.handlers.Load(AnyAction); ok {
		fn.(HandlerFunc)(env)
	}
}
