// Package broadcast fans country table reloads out to every API and worker
// instance over Redis pub/sub.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"phonenorm_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the pub/sub channel reload announcements travel on.
const DefaultChannel = "phonenorm:country-table:reload"

// Message announces that one instance reloaded its table.
type Message struct {
	InstanceID string    `json:"instanceId"`
	Source     string    `json:"source"`
	Version    uint64    `json:"version"`
	SentAt     time.Time `json:"sentAt"`
}

// Broadcaster publishes and receives reload announcements.
type Broadcaster struct {
	client     *redis.Client
	channel    string
	instanceID string
	log        *logger.Logger
}

// New creates a broadcaster on DefaultChannel. instanceID identifies this
// process so it can skip its own announcements.
func New(client *redis.Client, instanceID string, log *logger.Logger) *Broadcaster {
	return &Broadcaster{
		client:     client,
		channel:    DefaultChannel,
		instanceID: instanceID,
		log:        log,
	}
}

// InstanceID returns the identifier stamped on outgoing messages.
func (b *Broadcaster) InstanceID() string {
	return b.instanceID
}

// Announce tells peers that this instance reloaded its table.
func (b *Broadcaster) Announce(ctx context.Context, source string, version uint64) error {
	payload, err := json.Marshal(Message{
		InstanceID: b.instanceID,
		Source:     source,
		Version:    version,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal reload message: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish reload message: %w", err)
	}
	return nil
}

// Listener is an established subscription.
type Listener struct {
	b   *Broadcaster
	sub *redis.PubSub
}

// Subscribe opens the subscription and waits for Redis to confirm it, so that
// announcements published after Subscribe returns are never missed.
func (b *Broadcaster) Subscribe(ctx context.Context) (*Listener, error) {
	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}
	return &Listener{b: b, sub: sub}, nil
}

// Run calls onPeer for every announcement from another instance until ctx is
// cancelled. Undecodable messages and onPeer errors are logged and skipped.
func (l *Listener) Run(ctx context.Context, onPeer func(ctx context.Context, msg Message) error) error {
	defer l.sub.Close()

	ch := l.sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}

			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				l.b.log.Warn("ignoring malformed reload message", "error", err)
				continue
			}
			if msg.InstanceID == l.b.instanceID {
				continue
			}
			if err := onPeer(ctx, msg); err != nil {
				l.b.log.Error("peer reload failed",
					"peer", msg.InstanceID,
					"source", msg.Source,
					"error", err,
				)
			}
		}
	}
}
