package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Tables carried by the change feed. A notification names the table that
// changed, never the row diff; subscribers refetch.
const (
	TableAvailability = "availability"
	TableParticipants = "participants"
	TablePulses       = "pulses"
)

// Row actions.
const (
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is one change notification for a pulse's rows.
type Event struct {
	PulseID string `json:"pulse_id"`
	Table   string `json:"table"`
	Action  string `json:"action"`
}

// ChannelName returns the Redis pub/sub channel for one pulse and table.
func ChannelName(pulseID, table string) string {
	return fmt.Sprintf("pulse:%s:%s", pulseID, table)
}

// Feed broadcasts and delivers change notifications over Redis pub/sub.
// Delivery is at-least-one per affecting write with no ordering guarantee.
type Feed struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewFeed wires the feed to a Redis client.
func NewFeed(rdb *redis.Client, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{rdb: rdb, logger: logger}
}

// Publish broadcasts one change event to every subscriber of the pulse.
func (f *Feed) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal feed event: %w", err)
	}
	if err := f.rdb.Publish(ctx, ChannelName(ev.PulseID, ev.Table), payload).Err(); err != nil {
		return fmt.Errorf("publish feed event: %w", err)
	}
	return nil
}

// Subscribe delivers change events for the given tables of one pulse until
// the returned stop function is called or ctx is cancelled. The handler runs
// on the feed goroutine; it must not block for long.
func (f *Feed) Subscribe(ctx context.Context, pulseID string, tables []string, fn func(Event)) (func(), error) {
	channels := make([]string, 0, len(tables))
	for _, table := range tables {
		channels = append(channels, ChannelName(pulseID, table))
	}
	sub := f.rdb.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe feed: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					f.logger.Warn("malformed feed event",
						zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				fn(ev)
			}
		}
	}()

	return func() { _ = sub.Close() }, nil
}
