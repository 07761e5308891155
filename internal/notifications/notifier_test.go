package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNotifier_WithoutRedis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, n := range []*Notifier{NewNotifier(nil), nil} {
		assert.NoError(t, n.PublishEvent(ctx, Event{Type: "card.assigned", UserID: 1}))
		events, err := n.Recent(ctx, 1, 10)
		require.NoError(t, err)
		assert.Empty(t, events)
		assert.NoError(t, n.Clear(ctx, 1))
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "notifications:user:100", UserChannel(100))
	assert.Equal(t, "notifications:inbox:7", InboxKey(7))
}

func TestNotifier_PublishEventReachesSubscribers(t *testing.T) {
	t.Parallel()

	_, rdb := newRedis(t)
	ctx := context.Background()
	sub := rdb.Subscribe(ctx, UserChannel(7))
	defer func() { _ = sub.Close() }()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	actor := uint(2)
	require.NoError(t, NewNotifier(rdb).PublishEvent(ctx, Event{
		Type:    "card.mentioned",
		UserID:  7,
		ActorID: &actor,
		Message: "You were mentioned",
		Data:    map[string]any{"card_id": 11},
	}))

	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		assert.Equal(t, "card.mentioned", ev.Type)
		assert.Equal(t, uint(7), ev.UserID)
		assert.Equal(t, float64(11), ev.Data["card_id"])
		assert.False(t, ev.CreatedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
}

func TestNotifier_InboxIsCappedNewestFirst(t *testing.T) {
	t.Parallel()

	mr, rdb := newRedis(t)
	n := NewNotifier(rdb)
	ctx := context.Background()

	for i := range InboxSize + 5 {
		require.NoError(t, n.PublishEvent(ctx, Event{Type: "card.assigned", UserID: 3, Message: fmt.Sprint(i)}))
	}
	require.NoError(t, n.PublishEvent(ctx, Event{Type: "card.assigned", UserID: 4, Message: "other"}))

	all, err := n.Recent(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, all, InboxSize)
	assert.Equal(t, fmt.Sprint(InboxSize+4), all[0].Message)

	top, err := n.Recent(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	_, err = mr.Lpush(InboxKey(3), "{broken")
	require.NoError(t, err)
	all, err = n.Recent(ctx, 3, 0)
	require.NoError(t, err)
	assert.Len(t, all, InboxSize-1)

	require.NoError(t, n.Clear(ctx, 3))
	all, err = n.Recent(ctx, 3, 0)
	require.NoError(t, err)
	assert.Empty(t, all)

	other, err := n.Recent(ctx, 4, 0)
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
