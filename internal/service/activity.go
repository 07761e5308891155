package service

import (
	"context"
	"log/slog"
	"time"

	"projectboard/internal/models"
	"projectboard/internal/notifications"
	"projectboard/internal/observability"
	"projectboard/internal/repository"

	"gorm.io/datatypes"
)

// ActivityRecorder appends audit entries inside the caller's transaction and fans out
// card notifications after commit.
type ActivityRecorder struct {
	notifier Notifier
}

// NewActivityRecorder creates a recorder. A nil notifier disables fan-out.
func NewActivityRecorder(notifier Notifier) *ActivityRecorder {
	return &ActivityRecorder{notifier: notifier}
}

// Record appends one activity for the card. tx must be the mutation's transaction.
func (r *ActivityRecorder) Record(ctx context.Context, tx *repository.Store, cardID uint, actor *models.User, kind models.ActivityType, text string, payload datatypes.JSONMap) (*models.Activity, error) {
	return r.RecordAt(ctx, tx, cardID, actor, kind, text, payload, time.Time{})
}

// RecordAt is Record with an explicit timestamp, used when replaying history. A zero at means now.
func (r *ActivityRecorder) RecordAt(ctx context.Context, tx *repository.Store, cardID uint, actor *models.User, kind models.ActivityType, text string, payload datatypes.JSONMap, at time.Time) (*models.Activity, error) {
	activity := &models.Activity{
		CardID:    cardID,
		UserID:    actorID(actor),
		Type:      kind,
		Text:      text,
		Payload:   payload,
		CreatedAt: at,
	}
	if err := tx.Activities.Create(ctx, activity); err != nil {
		return nil, err
	}
	observability.ActivitiesRecorded.WithLabelValues(string(kind)).Inc()
	return activity, nil
}

// Recipients returns the card creator and assignees, excluding the actor.
func (r *ActivityRecorder) Recipients(ctx context.Context, store *repository.Store, card *models.Card, actor uint) ([]uint, error) {
	assignees, err := store.Cards.AssigneeIDs(ctx, card.ID)
	if err != nil {
		return nil, err
	}
	seen := map[uint]bool{actor: true}
	var out []uint
	if card.CreatedBy != nil && !seen[*card.CreatedBy] {
		seen[*card.CreatedBy] = true
		out = append(out, *card.CreatedBy)
	}
	for _, id := range assignees {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, nil
}

// Notify tells the card's creator and assignees about committed activities.
// Failures are logged and never surface to the caller.
func (r *ActivityRecorder) Notify(ctx context.Context, store *repository.Store, card *models.Card, actor *models.User, activities ...*models.Activity) {
	if r == nil || r.notifier == nil || card == nil || len(activities) == 0 {
		return
	}
	var actorUID uint
	if actor != nil {
		actorUID = actor.ID
	}
	recipients, err := r.Recipients(ctx, store, card, actorUID)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "card notification recipients failed",
			slog.Uint64("card_id", uint64(card.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	actorName := "Someone"
	if actor != nil && actor.Name != "" {
		actorName = actor.Name
	}
	for _, activity := range activities {
		if activity == nil {
			continue
		}
		for _, userID := range recipients {
			publish(ctx, r.notifier, notifications.Event{
				Type:    "card_activity",
				UserID:  userID,
				ActorID: actorID(actor),
				Message: actorName + " " + activity.Text,
				Data: map[string]any{
					"card_id":       card.ID,
					"card_title":    card.Title,
					"activity_id":   activity.ID,
					"activity_type": activity.Type,
				},
			})
		}
	}
}
