package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/ariefcatur/go-storefront/internal/users"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// UserLookup resolves the recipient of a confirmation.
type UserLookup interface {
	Get(ctx context.Context, id int64) (*users.User, error)
}

// Service turns OrderPlaced events into confirmation messages.
type Service struct {
	Users       UserLookup
	Redis       redis.Cmdable
	Dispatcher  Dispatcher
	Log         *zap.Logger
	Metrics     *metrics.Metrics
	ServiceName string
	Company     string
	Currency    string
}

// HandleOrderPlaced is the consumer handler for TopicOrderPlaced. Each event
// id is handled once; the claim is released when dispatch fails so a
// redelivery retries it.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.Decode[orders.Envelope](m.Value)
	if err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}
	log := s.logger().With(zap.String("event_id", env.EventID), zap.String("order_number", env.CorrelationID))

	dkey := redisx.DedupKey(s.ServiceName, env.EventID)
	fresh, err := redisx.Claim(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("claim %s: %w", dkey, err)
	}
	if !fresh {
		log.Debug("duplicate event skipped")
		return nil
	}

	if err := s.confirm(ctx, env.Payload); err != nil {
		if rerr := redisx.Release(ctx, s.Redis, dkey); rerr != nil {
			log.Warn("release dedup key", zap.Error(rerr))
		}
		return err
	}
	log.Info("order confirmation dispatched")
	return nil
}

func (s *Service) confirm(ctx context.Context, raw json.RawMessage) error {
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](raw)
	if err != nil {
		return err
	}
	if p.CustomerID == nil {
		s.logger().Info("order without customer, no confirmation", zap.String("order_number", p.OrderNumber))
		return nil
	}
	u, err := s.Users.Get(ctx, *p.CustomerID)
	if errors.Is(err, users.ErrNotFound) {
		s.logger().Info("customer gone, no confirmation", zap.String("order_number", p.OrderNumber))
		return nil
	}
	if err != nil {
		return err
	}

	c := Compose(*u, p, s.Company, s.Currency)
	if err := s.Dispatcher.Dispatch(ctx, c); err != nil {
		return fmt.Errorf("dispatch confirmation %s: %w", p.OrderNumber, err)
	}
	s.Metrics.ConfirmationPrepared()
	return nil
}

func (s *Service) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
