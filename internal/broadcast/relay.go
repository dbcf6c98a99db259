package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Relay subscribes to the Redis side of the channel space and re-delivers
// frames published by peer instances to this node's local clients. Frames
// originating from this instance are skipped; the Fanout already delivered
// them.
type Relay struct {
	rdb    *redis.Client
	local  LocalSink
	origin string
	logger *slog.Logger
}

func NewRelay(rdb *redis.Client, local LocalSink, origin string, logger *slog.Logger) *Relay {
	return &Relay{rdb: rdb, local: local, origin: origin, logger: logger}
}

// Run blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	pubsub := r.rdb.PSubscribe(ctx,
		roomChannelPrefix+"*",
		userChannelPrefix+"*",
		ChannelRooms,
		ChannelAdminRooms,
		ChannelUserMessages,
		ChannelAdminMessages,
	)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var frame Frame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				r.logger.Warn("relay: dropping malformed frame", "channel", msg.Channel, "error", err)
				continue
			}
			if frame.Origin == r.origin {
				continue
			}
			r.local.Deliver(msg.Channel, []byte(msg.Payload), uuid.Nil)
		}
	}
}
