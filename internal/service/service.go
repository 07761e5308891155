// Package service implements the board core: card ordering and mirroring, the activity trail,
// board aggregation, API tokens, and the board operations built on top of them.
package service

import (
	"context"
	"log/slog"

	"projectboard/internal/access"
	"projectboard/internal/featureflags"
	"projectboard/internal/models"
	"projectboard/internal/notifications"
	"projectboard/internal/observability"
	"projectboard/internal/repository"
)

// Notifier delivers user notifications. Delivery is fire-and-forget.
type Notifier interface {
	PublishEvent(ctx context.Context, ev notifications.Event) error
}

// Core bundles the collaborators shared by every board service.
type Core struct {
	Store    *repository.Store
	Access   *access.Resolver
	Recorder *ActivityRecorder
	Engine   *OrderingEngine
	Notifier Notifier
	Flags    *featureflags.Manager
}

// NewCore wires the resolver, recorder and ordering engine over store.
func NewCore(store *repository.Store, notifier Notifier) *Core {
	return &Core{
		Store:    store,
		Access:   access.NewResolver(store.Members),
		Recorder: NewActivityRecorder(notifier),
		Engine:   NewOrderingEngine(),
		Notifier: notifier,
	}
}

// publish sends ev and only logs failures.
func publish(ctx context.Context, n Notifier, ev notifications.Event) {
	if n == nil || ev.UserID == 0 {
		return
	}
	if err := n.PublishEvent(ctx, ev); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "notification publish failed",
			slog.String("type", ev.Type),
			slog.Uint64("user_id", uint64(ev.UserID)),
			slog.String("error", err.Error()),
		)
	}
}

// cardContext resolves a card (optionally archived) and its board, then checks action.
func (c *Core) cardContext(ctx context.Context, user *models.User, cardID uint, action access.Action, withArchived bool) (*models.Card, uint, error) {
	var (
		card *models.Card
		err  error
	)
	if withArchived {
		card, err = c.Store.Cards.GetWithArchived(ctx, cardID)
	} else {
		card, err = c.Store.Cards.GetByID(ctx, cardID)
	}
	if err != nil {
		return nil, 0, err
	}
	boardID, err := c.Store.Cards.BoardIDOf(ctx, card.ID)
	if err != nil {
		return nil, 0, err
	}
	if _, err := c.Access.Authorize(ctx, user, boardID, action); err != nil {
		return nil, 0, err
	}
	return card, boardID, nil
}

// columnContext resolves a column (optionally archived) and checks action on its board.
func (c *Core) columnContext(ctx context.Context, user *models.User, columnID uint, action access.Action, withArchived bool) (*models.Column, error) {
	var (
		column *models.Column
		err    error
	)
	if withArchived {
		column, err = c.Store.Columns.GetWithArchived(ctx, columnID)
	} else {
		column, err = c.Store.Columns.GetByID(ctx, columnID)
	}
	if err != nil {
		return nil, err
	}
	if _, err := c.Access.Authorize(ctx, user, column.BoardID, action); err != nil {
		return nil, err
	}
	return column, nil
}

func actorID(user *models.User) *uint {
	if user == nil || user.ID == 0 {
		return nil
	}
	id := user.ID
	return &id
}

// invalid converts a validation failure into a VALIDATION_ERROR.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return models.NewValidationError(err.Error())
}
