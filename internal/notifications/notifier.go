// Package notifications delivers board notifications through Redis: a pub/sub channel
// per user for live clients and a short inbox list for everyone else.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// InboxSize is how many recent notifications each user keeps.
const InboxSize = 50

// Event is one notification addressed to UserID.
type Event struct {
	Type      string         `json:"type"`
	UserID    uint           `json:"user_id"`
	ActorID   *uint          `json:"actor_id,omitempty"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Notifier fans events out over Redis. The zero value and a nil *Notifier drop
// everything, which is what runs without Redis get.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

func (n *Notifier) live() bool { return n != nil && n.rdb != nil }

// PublishEvent stamps ev, pushes it onto the recipient's inbox and announces it on
// their channel in one round trip.
func (n *Notifier) PublishEvent(ctx context.Context, ev Event) error {
	if !n.live() {
		return nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	inbox := InboxKey(ev.UserID)
	_, err = n.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, inbox, body)
		p.LTrim(ctx, inbox, 0, InboxSize-1)
		p.Publish(ctx, UserChannel(ev.UserID), body)
		return nil
	})
	return err
}

// Recent returns up to limit of the user's newest events, newest first. Entries that
// no longer decode are skipped.
func (n *Notifier) Recent(ctx context.Context, userID uint, limit int) ([]Event, error) {
	if !n.live() {
		return []Event{}, nil
	}
	if limit <= 0 || limit > InboxSize {
		limit = InboxSize
	}
	raw, err := n.rdb.LRange(ctx, InboxKey(userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		var ev Event
		if json.Unmarshal([]byte(r), &ev) == nil {
			events = append(events, ev)
		}
	}
	return events, nil
}

// Clear empties the user's inbox.
func (n *Notifier) Clear(ctx context.Context, userID uint) error {
	if !n.live() {
		return nil
	}
	return n.rdb.Del(ctx, InboxKey(userID)).Err()
}

func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}

func InboxKey(userID uint) string {
	return "notifications:inbox:" + strconv.FormatUint(uint64(userID), 10)
}
