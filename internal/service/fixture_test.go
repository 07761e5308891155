package service

import (
	"context"
	"sync"
	"testing"

	"projectboard/internal/models"
	"projectboard/internal/notifications"
	"projectboard/internal/repository"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (n *recordingNotifier) PublishEvent(_ context.Context, ev notifications.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) ofType(typ string) []notifications.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifications.Event
	for _, ev := range n.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type fixture struct {
	ctx      context.Context
	db       *gorm.DB
	core     *Core
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	notifier := &recordingNotifier{}
	return &fixture{
		ctx:      context.Background(),
		db:       db,
		core:     NewCore(repository.NewStore(db), notifier),
		notifier: notifier,
	}
}

func (f *fixture) activities(t *testing.T, cardID uint, kind models.ActivityType) []models.Activity {
	t.Helper()
	all, err := f.core.Store.Activities.ListByCard(f.ctx, cardID, 0)
	require.NoError(t, err)
	var out []models.Activity
	for _, a := range all {
		if a.Type == kind {
			out = append(out, a)
		}
	}
	return out
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, models.HasCode(err, code), "expected %s, got %v", code, err)
}
