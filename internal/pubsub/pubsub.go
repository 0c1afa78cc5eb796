// Package pubsub is the inter-process fan-out bus for C6 peer traffic:
// internal/peernet publishes each inbound traffic burst with its
// protocol tag (DMRD, P25D or NXDD) as the topic. Backed
// in-process by default; optionally backed by Redis pub/sub when
// multiple processes share one site array.
package pubsub

import (
	"context"

	"github.com/fnecore/corehost/internal/config"
)

// PubSub publishes and subscribes to byte-slice messages by topic.
type PubSub interface {
	Publish(topic string, message []byte) error
	Subscribe(topic string) Subscription
	Close() error
}

// Subscription is a single topic subscription.
type Subscription interface {
	Close() error
	Channel() <-chan []byte
}

// MakePubSub builds the configured PubSub backend.
func MakePubSub(ctx context.Context, cfg *config.Config) (PubSub, error) {
	if cfg.Redis.Enabled {
		return makePubSubFromRedis(ctx, cfg)
	}
	return makeInMemoryPubSub(), nil
}
