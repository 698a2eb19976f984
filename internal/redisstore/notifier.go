package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/rpggio/listingdraft/internal/notify"
)

// Notifier publishes changes on a Redis channel and delivers messages
// received from that channel to local subscribers through a notify.Hub.
type Notifier struct {
	client *redis.Client
	hub    *notify.Hub
	logger *slog.Logger
}

// NewNotifier creates a Notifier. Run must be started for remote changes
// to reach subscribers.
func NewNotifier(client *redis.Client, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{client: client, hub: notify.NewHub(), logger: logger}
}

// Publish sends change to every instance, this one included.
func (n *Notifier) Publish(ctx context.Context, change notify.Change) error {
	b, err := encodeChange(change)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, changeChannel, b).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Subscribe registers fn for changes from any instance.
func (n *Notifier) Subscribe(fn notify.Handler) func() {
	return n.hub.Subscribe(fn)
}

// Run relays channel messages to local subscribers until ctx is done.
func (n *Notifier) Run(ctx context.Context) error {
	sub := n.client.Subscribe(ctx, changeChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", changeChannel, err)
	}

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			change, err := decodeChange([]byte(msg.Payload))
			if err != nil {
				n.logger.Warn("dropping malformed change", "error", err)
				continue
			}
			_ = n.hub.Publish(ctx, change)
		}
	}
}

func encodeChange(change notify.Change) ([]byte, error) {
	b, err := json.Marshal(change)
	if err != nil {
		return nil, fmt.Errorf("failed to encode change: %w", err)
	}
	return b, nil
}

func decodeChange(data []byte) (notify.Change, error) {
	var change notify.Change
	if err := json.Unmarshal(data, &change); err != nil {
		return notify.Change{}, fmt.Errorf("failed to decode change: %w", err)
	}
	if change.OwnerID == "" {
		return notify.Change{}, errors.New("change without owner")
	}
	return change, nil
}
