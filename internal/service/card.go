package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"projectboard/internal/access"
	"projectboard/internal/featureflags"
	"projectboard/internal/models"
	"projectboard/internal/observability"
	"projectboard/internal/repository"
	"projectboard/internal/validation"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

// Activity texts written to the card trail.
const (
	TextCreated         = "created this card"
	TextArchived        = "archived this card"
	TextArchivedBulk    = "archived this card (bulk column archive)"
	TextRestored        = "restored this card from archive"
	TextRenamed         = "renamed the card"
	TextDescription     = "updated the description"
	TextDueDate         = "changed the due date"
	TextMoved           = "moved this card from %s to %s"
	TextCopied          = "copied this card from %s"
	TextAssigned        = "assigned %s to this card"
	TextUnassigned      = "removed %s from this card"
	TextLabeled         = "added label %s"
	TextUnlabeled       = "removed label %s"
	TextMirrored        = "added mirror to \"%s → %s\""
	TextMirrorRemoved   = "removed mirror from \"%s → %s\""
	TextChecklistAdd    = "added checklist %s"
	TextChecklistRemove = "removed checklist %s"
	TextCommented       = "commented on this card"
	TextImported        = "imported this card from Trello"
)

// DefaultActivityLimit bounds activity listings.
const DefaultActivityLimit = 50

// cardLog collects the activities of one card mutation so they can be announced after commit.
type cardLog struct {
	ctx        context.Context
	core       *Core
	tx         *repository.Store
	user       *models.User
	activities []*models.Activity
}

func (l *cardLog) add(cardID uint, kind models.ActivityType, text string, payload datatypes.JSONMap) error {
	activity, err := l.core.Recorder.Record(l.ctx, l.tx, cardID, l.user, kind, text, payload)
	if err != nil {
		return err
	}
	l.activities = append(l.activities, activity)
	return nil
}

// mutateCard runs fn in one transaction and notifies the card's watchers once it commits.
func (c *Core) mutateCard(ctx context.Context, card *models.Card, user *models.User, fn func(tx *repository.Store, log *cardLog) error) error {
	log := &cardLog{ctx: ctx, core: c, user: user}
	err := c.Store.WithTx(ctx, func(tx *repository.Store) error {
		log.tx = tx
		log.activities = nil
		return fn(tx, log)
	})
	if err != nil {
		return err
	}
	c.Recorder.Notify(ctx, c.Store, card, user, log.activities...)
	return nil
}

// CreateCardInput describes a new card.
type CreateCardInput struct {
	ColumnID       uint
	Title          string
	Description    *string
	DueDate        *time.Time
	Order          *int
	EstimatedHours *float64
	EstimatedCost  *float64
	ActualHours    *float64
	ActualCost     *float64
	LabelIDs       []uint
	AssigneeIDs    []uint
}

// UpdateCardInput carries a partial card update. An absent field is left alone, an explicit
// null clears it.
type UpdateCardInput struct {
	Title          Optional[string]    `json:"title"`
	Description    Optional[string]    `json:"description"`
	DueDate        Optional[string]    `json:"due_date"`
	CompletedAt    Optional[time.Time] `json:"completed_at"`
	EstimatedHours Optional[float64]   `json:"estimated_hours"`
	EstimatedCost  Optional[float64]   `json:"estimated_cost"`
	ActualHours    Optional[float64]   `json:"actual_hours"`
	ActualCost     Optional[float64]   `json:"actual_cost"`
}

// MoveCardInput places a card. A nil Order appends to the target column.
type MoveCardInput struct {
	ColumnID        uint
	Order           *int
	RestrictToBoard bool
}

// DuplicateCardInput controls where a copy lands. Zero values copy into the source column.
type DuplicateCardInput struct {
	Title    *string
	ColumnID *uint
	Order    *int
}

// AttachmentInput is the metadata of a file already stored by the media service.
type AttachmentInput struct {
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// AppearanceInfo is one place where a card is shown.
type AppearanceInfo struct {
	ColumnID   uint   `json:"column_id"`
	ColumnName string `json:"column_name"`
	BoardID    uint   `json:"board_id"`
	BoardName  string `json:"board_name"`
	IsHome     bool   `json:"is_home"`
	Order      int    `json:"order"`
}

// CandidateColumn is a column a card could be mirrored into.
type CandidateColumn struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	IsHome    bool   `json:"is_home"`
	HasMirror bool   `json:"has_mirror"`
}

// CandidateBoard groups candidate columns by board.
type CandidateBoard struct {
	ID      uint              `json:"id"`
	Name    string            `json:"name"`
	Columns []CandidateColumn `json:"columns"`
}

// MirrorCandidateBoards caps the mirror search result.
const MirrorCandidateBoards = 5

// CardDetail is the full card as shown in the card modal.
type CardDetail struct {
	*models.Card
	BoardID     uint              `json:"board_id"`
	Comments    []models.Comment  `json:"comments"`
	Activities  []models.Activity `json:"activities"`
	Appearances []AppearanceInfo  `json:"appearances"`
}

// CardService implements card operations.
type CardService struct {
	core *Core
}

// NewCardService creates a CardService.
func NewCardService(core *Core) *CardService {
	return &CardService{core: core}
}

// Create adds a card to a column. A nil order appends.
func (s *CardService) Create(ctx context.Context, user *models.User, in CreateCardInput) (*models.Card, error) {
	title := strings.TrimSpace(in.Title)
	if err := invalid(validation.ValidateName("title", title)); err != nil {
		return nil, err
	}
	if in.Order != nil && *in.Order < 0 {
		return nil, models.NewValidationError("order must not be negative")
	}
	column, err := s.core.columnContext(ctx, user, in.ColumnID, access.EditCards, false)
	if err != nil {
		return nil, err
	}
	labels, err := s.core.resolveLabels(ctx, in.LabelIDs)
	if err != nil {
		return nil, err
	}
	users, err := s.core.resolveUsers(ctx, in.AssigneeIDs)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		ColumnID:       column.ID,
		Title:          title,
		Description:    in.Description,
		DueDate:        in.DueDate,
		EstimatedHours: in.EstimatedHours,
		EstimatedCost:  in.EstimatedCost,
		ActualHours:    in.ActualHours,
		ActualCost:     in.ActualCost,
		CreatedBy:      actorID(user),
	}
	err = s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		if err := s.core.Engine.Insert(ctx, tx, card, in.Order); err != nil {
			return err
		}
		for _, l := range labels {
			if err := tx.Cards.AddLabel(ctx, card.ID, l.ID); err != nil {
				return err
			}
		}
		for _, u := range users {
			if err := tx.Cards.AddAssignee(ctx, card.ID, u.ID); err != nil {
				return err
			}
		}
		if err := log.add(card.ID, models.ActivityCreated, TextCreated, nil); err != nil {
			return err
		}
		return tx.Boards.Touch(ctx, column.BoardID)
	})
	if err != nil {
		return nil, err
	}
	observability.BoardOperations.WithLabelValues("card_create").Inc()
	return s.core.Store.Cards.GetDetailed(ctx, card.ID)
}

// Get returns the card with its comments, recent activity and appearances.
func (s *CardService) Get(ctx context.Context, user *models.User, cardID uint) (*CardDetail, error) {
	_, boardID, err := s.core.cardContext(ctx, user, cardID, access.ViewBoard, false)
	if err != nil {
		return nil, err
	}
	card, err := s.core.Store.Cards.GetDetailed(ctx, cardID)
	if err != nil {
		return nil, err
	}
	comments, err := s.core.Store.Comments.ListByCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	activities, err := s.core.Store.Activities.ListByCard(ctx, cardID, DefaultActivityLimit)
	if err != nil {
		return nil, err
	}
	appearances, err := s.appearances(ctx, card)
	if err != nil {
		return nil, err
	}
	return &CardDetail{
		Card:        card,
		BoardID:     boardID,
		Comments:    comments,
		Activities:  activities,
		Appearances: appearances,
	}, nil
}

// ParseDate accepts a calendar date or an RFC 3339 timestamp.
func ParseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, models.NewValidationError("due_date must be a date like 2006-01-02")
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

func sameText(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type cardChange struct {
	kind models.ActivityType
	text string
}

// applyCardUpdate writes in onto card and returns the changes that deserve an activity.
func applyCardUpdate(card *models.Card, in UpdateCardInput) ([]cardChange, error) {
	var changes []cardChange
	if in.Title.Set {
		if in.Title.Value == nil {
			return nil, models.NewValidationError("title is required")
		}
		title := strings.TrimSpace(*in.Title.Value)
		if err := invalid(validation.ValidateName("title", title)); err != nil {
			return nil, err
		}
		if title != card.Title {
			card.Title = title
			changes = append(changes, cardChange{models.ActivityUpdated, TextRenamed})
		}
	}
	if in.Description.Set && !sameText(card.Description, in.Description.Value) {
		card.Description = in.Description.Value
		changes = append(changes, cardChange{models.ActivityUpdated, TextDescription})
	}
	if in.DueDate.Set {
		var due *time.Time
		if in.DueDate.Value != nil {
			parsed, err := ParseDate(*in.DueDate.Value)
			if err != nil {
				return nil, err
			}
			due = parsed
		}
		if !sameDate(card.DueDate, due) {
			card.DueDate = due
			changes = append(changes, cardChange{models.ActivityUpdated, TextDueDate})
		}
	}
	if in.CompletedAt.Set {
		card.CompletedAt = in.CompletedAt.Value
	}
	for _, f := range []struct {
		opt Optional[float64]
		dst **float64
	}{
		{in.EstimatedHours, &card.EstimatedHours},
		{in.EstimatedCost, &card.EstimatedCost},
		{in.ActualHours, &card.ActualHours},
		{in.ActualCost, &card.ActualCost},
	} {
		if !f.opt.Set {
			continue
		}
		if f.opt.Value != nil && *f.opt.Value < 0 {
			return nil, models.NewValidationError("estimates and actuals must not be negative")
		}
		*f.dst = f.opt.Value
	}
	return changes, nil
}

// Update applies a partial update. Title, description and due date changes each get an activity.
func (s *CardService) Update(ctx context.Context, user *models.User, cardID uint, in UpdateCardInput) (*models.Card, error) {
	card, boardID, err := s.core.cardContext(ctx, user, cardID, access.EditCards, false)
	if err != nil {
		return nil, err
	}
	changes, err := applyCardUpdate(card, in)
	if err != nil {
		return nil, err
	}

	err = s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		if err := tx.Cards.Update(ctx, card); err != nil {
			return err
		}
		for _, ch := range changes {
			if err := log.add(card.ID, ch.kind, ch.text, nil); err != nil {
				return err
			}
		}
		return tx.Boards.Touch(ctx, boardID)
	})
	if err != nil {
		return nil, err
	}
	return s.core.Store.Cards.GetDetailed(ctx, card.ID)
}

// Move places the card in a column at an explicit position. A change of home column records
// a moved activity. With RestrictToBoard the target must belong to the card's board.
func (s *CardService) Move(ctx context.Context, user *models.User, cardID uint, in MoveCardInput) (_ *models.Card, err error) {
	if in.Order != nil && *in.Order < 0 {
		return nil, models.NewValidationError("order must not be negative")
	}
	ctx, span := observability.StartSpan(ctx, "card.move",
		attribute.Int64("card.id", int64(cardID)),
		attribute.Int64("column.id", int64(in.ColumnID)))
	defer func() {
		span.Fail(err)
		span.End()
	}()
	card, boardID, err := s.core.cardContext(ctx, user, cardID, access.EditCards, false)
	if err != nil {
		return nil, err
	}
	span.Board(boardID)
	target, err := s.core.Store.Columns.GetByID(ctx, in.ColumnID)
	if err != nil {
		return nil, err
	}
	if target.BoardID != boardID {
		if in.RestrictToBoard {
			return nil, models.NewConflictError("Target column does not belong to this board")
		}
		if _, err := s.core.Access.Authorize(ctx, user, target.BoardID, access.EditCards); err != nil {
			return nil, err
		}
	}
	from, err := s.core.Store.Columns.GetWithArchived(ctx, card.ColumnID)
	if err != nil {
		return nil, err
	}

	err = s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		res, err := s.core.Engine.Move(ctx, tx, card, target, in.Order)
		if err != nil {
			return err
		}
		if res.MirrorDropped {
			if err := s.core.logMirrorDropped(ctx, tx, log, card.ID, target); err != nil {
				return err
			}
		}
		if res.ColumnChanged {
			payload := datatypes.JSONMap{"from_column_id": from.ID, "to_column_id": target.ID}
			if err := log.add(card.ID, models.ActivityMoved, fmt.Sprintf(TextMoved, from.Name, target.Name), payload); err != nil {
				return err
			}
		}
		if err := tx.Boards.Touch(ctx, target.BoardID); err != nil {
			return err
		}
		if target.BoardID != boardID {
			return tx.Boards.Touch(ctx, boardID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	observability.BoardOperations.WithLabelValues("card_move").Inc()
	return card, nil
}

// Duplicate copies a card with its labels, assignees, checklists and attachments.
// Mirrors and activity are never copied.
func (s *CardService) Duplicate(ctx context.Context, user *models.User, cardID uint, in DuplicateCardInput) (*models.Card, error) {
	if _, _, err := s.core.cardContext(ctx, user, cardID, access.EditCards, false); err != nil {
		return nil, err
	}
	src, err := s.core.Store.Cards.GetDetailed(ctx, cardID)
	if err != nil {
		return nil, err
	}
	columnID := src.ColumnID
	if in.ColumnID != nil {
		columnID = *in.ColumnID
	}
	target, err := s.core.columnContext(ctx, user, columnID, access.EditCards, false)
	if err != nil {
		return nil, err
	}
	title := src.Title + " (Copy)"
	if in.Title != nil {
		title = strings.TrimSpace(*in.Title)
	}
	if err := invalid(validation.ValidateName("title", title)); err != nil {
		return nil, err
	}
	if in.Order != nil && *in.Order < 0 {
		return nil, models.NewValidationError("order must not be negative")
	}

	copied := &models.Card{
		ColumnID:       target.ID,
		Title:          title,
		Description:    src.Description,
		DueDate:        src.DueDate,
		CompletedAt:    src.CompletedAt,
		EstimatedHours: src.EstimatedHours,
		EstimatedCost:  src.EstimatedCost,
		ActualHours:    src.ActualHours,
		ActualCost:     src.ActualCost,
		CreatedBy:      actorID(user),
	}
	err = s.core.mutateCard(ctx, copied, user, func(tx *repository.Store, log *cardLog) error {
		if err := s.core.Engine.Insert(ctx, tx, copied, in.Order); err != nil {
			return err
		}
		for _, l := range src.Labels {
			if err := tx.Cards.AddLabel(ctx, copied.ID, l.ID); err != nil {
				return err
			}
		}
		for _, u := range src.Assignees {
			if err := tx.Cards.AddAssignee(ctx, copied.ID, u.ID); err != nil {
				return err
			}
		}
		for _, cl := range src.Checklists {
			checklist := &models.Checklist{CardID: copied.ID, Name: cl.Name}
			if err := tx.Checklists.Create(ctx, checklist); err != nil {
				return err
			}
			for _, item := range cl.Items {
				if err := tx.Checklists.CreateItem(ctx, &models.ChecklistItem{
					ChecklistID: checklist.ID,
					Content:     item.Content,
					IsCompleted: item.IsCompleted,
					Position:    item.Position,
				}); err != nil {
					return err
				}
			}
		}
		for _, a := range src.Attachments {
			attachment := &models.Attachment{
				CardID:    copied.ID,
				FileName:  a.FileName,
				URL:       a.URL,
				MimeType:  a.MimeType,
				Size:      a.Size,
				CreatedBy: actorID(user),
			}
			if err := tx.Attachments.Create(ctx, attachment); err != nil {
				return err
			}
			if src.CoverAttachmentID != nil && *src.CoverAttachmentID == a.ID {
				if err := tx.Cards.SetCover(ctx, copied.ID, &attachment.ID); err != nil {
					return err
				}
			}
		}
		payload := datatypes.JSONMap{"source_card_id": src.ID}
		if err := log.add(copied.ID, models.ActivityCreated, fmt.Sprintf(TextCopied, src.Title), payload); err != nil {
			return err
		}
		return tx.Boards.Touch(ctx, target.BoardID)
	})
	if err != nil {
		return nil, err
	}
	observability.BoardOperations.WithLabelValues("card_duplicate").Inc()
	return s.core.Store.Cards.GetDetailed(ctx, copied.ID)
}

// Archive soft-deletes the card.
func (s *CardService) Archive(ctx context.Context, user *models.User, cardID uint) error {
	card, boardID, err := s.core.cardContext(ctx, user, cardID, access.EditCards, true)
	if err != nil {
		return err
	}
	if !card.Lifecycle().CanTransition(models.LifecycleArchived) {
		return models.NewValidationError("Card is already archived")
	}
	return s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		if err := tx.Cards.Archive(ctx, card.ID); err != nil {
			return err
		}
		if err := log.add(card.ID, models.ActivityArchived, TextArchived, nil); err != nil {
			return err
		}
		return tx.Boards.Touch(ctx, boardID)
	})
}

// Restore brings an archived card back into its home column.
func (s *CardService) Restore(ctx context.Context, user *models.User, cardID uint) error {
	card, boardID, err := s.core.cardContext(ctx, user, cardID, access.EditCards, true)
	if err != nil {
		return err
	}
	if !card.Lifecycle().CanTransition(models.LifecycleActive) {
		return models.NewValidationError("Card is not archived")
	}
	return s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		if err := tx.Cards.Restore(ctx, card.ID); err != nil {
			return err
		}
		if err := log.add(card.ID, models.ActivityRestored, TextRestored, nil); err != nil {
			return err
		}
		return tx.Boards.Touch(ctx, boardID)
	})
}

// Purge permanently deletes an archived card and everything hanging off it.
func (s *CardService) Purge(ctx context.Context, user *models.User, cardID uint) error {
	card, _, err := s.core.cardContext(ctx, user, cardID, access.EditCards, true)
	if err != nil {
		return err
	}
	if !card.Lifecycle().CanTransition(models.LifecyclePurged) {
		return models.NewValidationError("Card must be archived before it can be deleted permanently")
	}
	return s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		return tx.Cards.Purge(ctx, card.ID)
	})
}

// SetCover makes one of the card's attachments its cover.
func (s *CardService) SetCover(ctx context.Context, user *models.User, cardID, attachmentID uint) error {
	card, _, err := s.core.cardContext(ctx, user, cardID, access.EditCards, false)
	if err != nil {
		return err
	}
	attachment, err := s.core.Store.Attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}
	if attachment.CardID != card.ID {
		return models.NewValidationError("Attachment does not belong to this card")
	}
	return s.core.Store.Cards.SetCover(ctx, card.ID, &attachment.ID)
}

// RemoveCover clears the card's cover.
func (s *CardService) RemoveCover(ctx context.Context, user *models.User, cardID uint) error {
	card, _, err := s.core.cardContext(ctx, user, cardID, access.EditCards, false)
	if err != nil {
		return err
	}
	return s.core.Store.Cards.SetCover(ctx, card.ID, nil)
}

// AddAttachment stores attachment metadata on the card.
func (s *CardService) AddAttachment(ctx context.Context, user *models.User, cardID uint, in AttachmentInput) (*models.Attachment, error) {
	card, _, err := s.core.cardContext(ctx, user, cardID, access.EditCards, false)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.FileName)
	if err := invalid(validation.ValidateName("file_name", name)); err != nil {
		return nil, err
	}
	if err := invalid(validation.ValidateAttachmentURL(in.URL)); err != nil {
		return nil, err
	}
	if in.Size < 0 {
		return nil, models.NewValidationError("size must not be negative")
	}
	attachment := &models.Attachment{
		CardID:    card.ID,
		FileName:  name,
		URL:       strings.TrimSpace(in.URL),
		MimeType:  in.MimeType,
		Size:      in.Size,
		CreatedBy: actorID(user),
	}
	if err := s.core.Store.Attachments.Create(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

// RemoveAttachment deletes attachment metadata. A cover pointing at it is cleared.
func (s *CardService) RemoveAttachment(ctx context.Context, user *models.User, attachmentID uint) error {
	attachment, err := s.core.Store.Attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}
	if _, _, err := s.core.cardContext(ctx, user, attachment.CardID, access.EditCards, false); err != nil {
		return err
	}
	return s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		return tx.Attachments.Delete(ctx, attachment.ID)
	})
}

func (c *Core) resolveLabels(ctx context.Context, ids []uint) ([]models.Label, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	labels, err := c.Store.Labels.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(labels) != len(ids) {
		return nil, models.NewValidationError("One or more labels do not exist")
	}
	return labels, nil
}

func (c *Core) resolveUsers(ctx context.Context, ids []uint) ([]models.User, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	users, err := c.Store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, models.NewValidationError("One or more users do not exist")
	}
	return users, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// diff returns the ids of want missing from have, and of have missing from want.
func diff(have, want []uint) (added, removed []uint) {
	in := func(set []uint) map[uint]bool {
		m := make(map[uint]bool, len(set))
		for _, id := range set {
			m[id] = true
		}
		return m
	}
	haveSet, wantSet := in(have), in(want)
	for _, id := range want {
		if !haveSet[id] {
			added = append(added, id)
		}
	}
	for _, id := range have {
		if !wantSet[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// SyncLabels makes the card's labels exactly labelIDs, recording one activity per change.
func (s *CardService) SyncLabels(ctx context.Context, user *models.User, cardID uint, labelIDs []uint) (*models.Card, error) {
	card, boardID, err := s.core.cardContext(ctx, user, cardID, access.ManageLabels, false)
	if err != nil {
		return nil, err
	}
	want, err := s.core.resolveLabels(ctx, labelIDs)
	if err != nil {
		return nil, err
	}
	err = s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		changed, err := syncLabels(ctx, tx, log, card.ID, want)
		if err != nil || !changed {
			return err
		}
		return tx.Boards.Touch(ctx, boardID)
	})
	if err != nil {
		return nil, err
	}
	return s.core.Store.Cards.GetDetailed(ctx, card.ID)
}

// syncLabels replaces the card's labels with want inside tx and reports whether anything changed.
func syncLabels(ctx context.Context, tx *repository.Store, log *cardLog, cardID uint, want []models.Label) (bool, error) {
	have, err := tx.Cards.LabelIDs(ctx, cardID)
	if err != nil {
		return false, err
	}
	names := make(map[uint]string, len(want))
	wantIDs := make([]uint, 0, len(want))
	for _, l := range want {
		wantIDs = append(wantIDs, l.ID)
		names[l.ID] = l.Name
	}
	added, removed := diff(have, wantIDs)
	if len(removed) > 0 {
		gone, err := tx.Labels.GetByIDs(ctx, removed)
		if err != nil {
			return false, err
		}
		for _, l := range gone {
			names[l.ID] = l.Name
		}
	}
	for _, id := range added {
		if err := tx.Cards.AddLabel(ctx, cardID, id); err != nil {
			return false, err
		}
		if err := log.add(cardID, models.ActivityLabeled, fmt.Sprintf(TextLabeled, names[id]), datatypes.JSONMap{"label_id": id}); err != nil {
			return false, err
		}
	}
	for _, id := range removed {
		if err := tx.Cards.RemoveLabel(ctx, cardID, id); err != nil {
			return false, err
		}
		if err := log.add(cardID, models.ActivityUnlabeled, fmt.Sprintf(TextUnlabeled, names[id]), datatypes.JSONMap{"label_id": id}); err != nil {
			return false, err
		}
	}
	return len(added)+len(removed) > 0, nil
}

// SyncAssignees makes the card's assignees exactly userIDs, recording one activity per change.
func (s *CardService) SyncAssignees(ctx context.Context, user *models.User, cardID uint, userIDs []uint) (*models.Card, error) {
	card, boardID, err := s.core.cardContext(ctx, user, cardID, access.EditCards, false)
	if err != nil {
		return nil, err
	}
	want, err := s.core.resolveUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	have, err := s.core.Store.Cards.AssigneeIDs(ctx, card.ID)
	if err != nil {
		return nil, err
	}
	wantIDs := make([]uint, 0, len(want))
	for _, u := range want {
		wantIDs = append(wantIDs, u.ID)
	}
	added, removed := diff(have, wantIDs)
	if len(added) == 0 && len(removed) == 0 {
		return s.core.Store.Cards.GetDetailed(ctx, card.ID)
	}
	people, err := s.core.Store.Users.FindByIDs(ctx, append(append([]uint{}, added...), removed...))
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(people))
	for _, p := range people {
		names[p.ID] = p.Name
	}

	err = s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		for _, id := range added {
			if err := tx.Cards.AddAssignee(ctx, card.ID, id); err != nil {
				return err
			}
			if err := log.add(card.ID, models.ActivityAssigned, fmt.Sprintf(TextAssigned, names[id]), datatypes.JSONMap{"user_id": id}); err != nil {
				return err
			}
		}
		for _, id := range removed {
			if err := tx.Cards.RemoveAssignee(ctx, card.ID, id); err != nil {
				return err
			}
			if err := log.add(card.ID, models.ActivityUnassigned, fmt.Sprintf(TextUnassigned, names[id]), datatypes.JSONMap{"user_id": id}); err != nil {
				return err
			}
		}
		return tx.Boards.Touch(ctx, boardID)
	})
	if err != nil {
		return nil, err
	}
	return s.core.Store.Cards.GetDetailed(ctx, card.ID)
}

// Activities lists the card's trail, newest first.
func (s *CardService) Activities(ctx context.Context, user *models.User, cardID uint, limit int) ([]models.Activity, error) {
	if _, _, err := s.core.cardContext(ctx, user, cardID, access.ViewBoard, true); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultActivityLimit {
		limit = DefaultActivityLimit
	}
	return s.core.Store.Activities.ListByCard(ctx, cardID, limit)
}

func (s *CardService) mirrorsEnabled(user *models.User) error {
	var uid uint
	if user != nil {
		uid = user.ID
	}
	if !s.core.Flags.On(featureflags.CardMirrors, uid) {
		return models.NewForbiddenError("Card mirrors are disabled")
	}
	return nil
}

// AddMirror shows the card in another column, possibly on another board.
func (s *CardService) AddMirror(ctx context.Context, user *models.User, cardID, columnID uint) (*models.Appearance, error) {
	if err := s.mirrorsEnabled(user); err != nil {
		return nil, err
	}
	card, _, err := s.core.cardContext(ctx, user, cardID, access.ManageMirrors, false)
	if err != nil {
		return nil, err
	}
	target, err := s.core.columnContext(ctx, user, columnID, access.ManageMirrors, false)
	if err != nil {
		return nil, err
	}
	board, err := s.core.Store.Boards.GetByID(ctx, target.BoardID)
	if err != nil {
		return nil, err
	}

	var appearance *models.Appearance
	err = s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		created, err := s.core.Engine.AddMirror(ctx, tx, card, target, user)
		if err != nil {
			return err
		}
		appearance = created
		payload := datatypes.JSONMap{"board_id": board.ID, "column_id": target.ID}
		if err := log.add(card.ID, models.ActivityMirrored, fmt.Sprintf(TextMirrored, board.Name, target.Name), payload); err != nil {
			return err
		}
		return tx.Boards.Touch(ctx, board.ID)
	})
	if err != nil {
		return nil, err
	}
	observability.BoardOperations.WithLabelValues("mirror_add").Inc()
	return appearance, nil
}

// RemoveMirror detaches the card from a mirror column. Removing a missing mirror is a no-op.
func (s *CardService) RemoveMirror(ctx context.Context, user *models.User, cardID, columnID uint) error {
	if err := s.mirrorsEnabled(user); err != nil {
		return err
	}
	card, _, err := s.core.cardContext(ctx, user, cardID, access.ManageMirrors, false)
	if err != nil {
		return err
	}
	target, err := s.core.Store.Columns.GetWithArchived(ctx, columnID)
	if err != nil {
		return err
	}
	board, err := s.core.Store.Boards.GetByID(ctx, target.BoardID)
	if err != nil {
		return err
	}
	return s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		removed, err := s.core.Engine.RemoveMirror(ctx, tx, card.ID, target.ID)
		if err != nil || !removed {
			return err
		}
		payload := datatypes.JSONMap{"board_id": board.ID, "column_id": target.ID}
		return log.add(card.ID, models.ActivityMirrorRemoved, fmt.Sprintf(TextMirrorRemoved, board.Name, target.Name), payload)
	})
}

// logMirrorDropped records the removal of a mirror that a move into target absorbed.
func (c *Core) logMirrorDropped(ctx context.Context, tx *repository.Store, log *cardLog, cardID uint, target *models.Column) error {
	board, err := tx.Boards.GetByID(ctx, target.BoardID)
	if err != nil {
		return err
	}
	payload := datatypes.JSONMap{"board_id": board.ID, "column_id": target.ID}
	return log.add(cardID, models.ActivityMirrorRemoved, fmt.Sprintf(TextMirrorRemoved, board.Name, target.Name), payload)
}

// Appearances lists the card's home column followed by its mirrors.
func (s *CardService) Appearances(ctx context.Context, user *models.User, cardID uint) ([]AppearanceInfo, error) {
	card, _, err := s.core.cardContext(ctx, user, cardID, access.ViewBoard, false)
	if err != nil {
		return nil, err
	}
	return s.appearances(ctx, card)
}

func (s *CardService) appearances(ctx context.Context, card *models.Card) ([]AppearanceInfo, error) {
	home, err := s.core.Store.Columns.GetWithArchived(ctx, card.ColumnID)
	if err != nil {
		return nil, err
	}
	board, err := s.core.Store.Boards.GetByID(ctx, home.BoardID)
	if err != nil {
		return nil, err
	}
	out := []AppearanceInfo{{
		ColumnID:   home.ID,
		ColumnName: home.Name,
		BoardID:    board.ID,
		BoardName:  board.Name,
		IsHome:     true,
		Order:      card.Order,
	}}

	mirrors, err := s.core.Store.Appearances.ListByCard(ctx, card.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range mirrors {
		info := AppearanceInfo{ColumnID: m.ColumnID, Order: m.Order}
		if m.Column != nil {
			info.ColumnName = m.Column.Name
			info.BoardID = m.Column.BoardID
			if m.Column.Board != nil {
				info.BoardName = m.Column.Board.Name
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// MirrorCandidates searches the boards the user may mirror into by name.
func (s *CardService) MirrorCandidates(ctx context.Context, user *models.User, cardID uint, query string) ([]CandidateBoard, error) {
	if err := invalid(validation.ValidateSearchQuery(query)); err != nil {
		return nil, err
	}
	card, _, err := s.core.cardContext(ctx, user, cardID, access.ManageMirrors, false)
	if err != nil {
		return nil, err
	}
	scope, err := s.core.Access.Scope(ctx, user)
	if err != nil {
		return nil, err
	}
	boards, err := s.core.Store.Boards.List(ctx, repository.BoardFilter{
		Scope: scope,
		Name:  strings.TrimSpace(query),
		Limit: MirrorCandidateBoards,
	})
	if err != nil {
		return nil, err
	}
	mirrors, err := s.core.Store.Appearances.ListByCard(ctx, card.ID)
	if err != nil {
		return nil, err
	}
	mirrored := make(map[uint]bool, len(mirrors))
	for _, m := range mirrors {
		mirrored[m.ColumnID] = true
	}

	out := make([]CandidateBoard, 0, len(boards))
	for _, b := range boards {
		role, err := s.core.Access.RoleOf(ctx, user, b.ID)
		if err != nil {
			return nil, err
		}
		if !role.AtLeast(access.RequiredRole(access.ManageMirrors)) {
			continue
		}
		columns, err := s.core.Store.Columns.ListByBoard(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		entry := CandidateBoard{ID: b.ID, Name: b.Name, Columns: make([]CandidateColumn, 0, len(columns))}
		for _, col := range columns {
			entry.Columns = append(entry.Columns, CandidateColumn{
				ID:        col.ID,
				Name:      col.Name,
				IsHome:    col.ID == card.ColumnID,
				HasMirror: mirrored[col.ID],
			})
		}
		out = append(out, entry)
	}
	return out, nil
}
