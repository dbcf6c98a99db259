package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Publisher pushes a committed state change out to subscribed clients.
// Publishing is best-effort by design: it runs only after the storage
// transaction commits, and a failure here never rolls the write back.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// Frame is the envelope delivered to clients, one per (event, channel) pair.
// Origin carries the publishing instance ID on the Redis leg only, so a relay
// can skip frames its own node already delivered locally.
type Frame struct {
	Event     string      `json:"event"`
	Channel   string      `json:"channel"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	Origin    string      `json:"origin,omitempty"`
}

// LocalSink delivers a marshaled frame to clients of this process that are
// subscribed to the channel. The websocket hub implements it.
type LocalSink interface {
	Deliver(channel string, message []byte, excludeSocket uuid.UUID)
}

// RedisPublisher forwards frames to Redis pub/sub so peer instances can
// deliver to their own connected clients.
type RedisPublisher struct {
	rdb    *redis.Client
	origin string
}

func NewRedisPublisher(rdb *redis.Client, origin string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, origin: origin}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *Event) error {
	var errs []error
	for _, channel := range event.Channels {
		data, err := json.Marshal(Frame{
			Event:     event.Name,
			Channel:   channel,
			Data:      event.Payload,
			Timestamp: event.Timestamp,
			Origin:    p.origin,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.rdb.Publish(ctx, channel, data).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Fanout combines in-process hub delivery with Redis publishing. Local
// delivery happens first so clients of this instance are never behind
// because the broker is down.
type Fanout struct {
	local LocalSink
	peers Publisher
}

func NewFanout(local LocalSink, peers Publisher) *Fanout {
	return &Fanout{local: local, peers: peers}
}

func (f *Fanout) Publish(ctx context.Context, event *Event) error {
	if f.local != nil {
		for _, channel := range event.Channels {
			data, err := json.Marshal(Frame{
				Event:     event.Name,
				Channel:   channel,
				Data:      event.Payload,
				Timestamp: event.Timestamp,
			})
			if err != nil {
				return err
			}
			f.local.Deliver(channel, data, event.ExcludeSocket)
		}
	}
	if f.peers != nil {
		return f.peers.Publish(ctx, event)
	}
	return nil
}
