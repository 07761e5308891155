package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"projectboard/internal/access"
	"projectboard/internal/cache"
	"projectboard/internal/models"
	"projectboard/internal/notifications"
	"projectboard/internal/observability"
	"projectboard/internal/repository"
	"projectboard/internal/validation"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// CreateCommentInput describes a new comment or reply.
type CreateCommentInput struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
}

// CommentService implements card comments, replies and reactions.
type CommentService struct {
	core     *Core
	rdb      *redis.Client
	debounce time.Duration
}

// NewCommentService creates a CommentService. rdb may be nil, which disables mention debounce.
func NewCommentService(core *Core, rdb *redis.Client, debounce time.Duration) *CommentService {
	return &CommentService{core: core, rdb: rdb, debounce: debounce}
}

// List returns the card's top-level comments with replies.
func (s *CommentService) List(ctx context.Context, user *models.User, cardID uint) ([]models.Comment, error) {
	if _, _, err := s.core.cardContext(ctx, user, cardID, access.ViewBoard, false); err != nil {
		return nil, err
	}
	return s.core.Store.Comments.ListByCard(ctx, cardID)
}

// Create adds a comment to the card and records it on the card trail.
func (s *CommentService) Create(ctx context.Context, user *models.User, cardID uint, in CreateCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if err := invalid(validation.ValidateComment(content)); err != nil {
		return nil, err
	}
	card, boardID, err := s.core.cardContext(ctx, user, cardID, access.Comment, false)
	if err != nil {
		return nil, err
	}
	if in.ParentID != nil {
		parent, err := s.core.Store.Comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.CommentableType != models.CommentableCard || parent.CommentableID != card.ID {
			return nil, models.NewValidationError("Parent comment belongs to another card")
		}
	}

	comment := &models.Comment{
		CommentableType: models.CommentableCard,
		CommentableID:   card.ID,
		Content:         content,
		UserID:          user.ID,
		ParentID:        in.ParentID,
	}
	err = s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		if err := tx.Comments.Create(ctx, comment); err != nil {
			return err
		}
		if err := log.add(card.ID, models.ActivityCommented, TextCommented, datatypes.JSONMap{"comment_id": comment.ID}); err != nil {
			return err
		}
		return tx.Boards.Touch(ctx, boardID)
	})
	if err != nil {
		return nil, err
	}
	s.notifyMentions(ctx, user, card, comment)
	return s.core.Store.Comments.GetByID(ctx, comment.ID)
}

// ownComment loads a comment and checks that user wrote it and can still see its card.
func (s *CommentService) ownComment(ctx context.Context, user *models.User, commentID uint, verb string) (*models.Comment, *models.Card, error) {
	comment, err := s.core.Store.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, nil, err
	}
	card, _, err := s.core.cardContext(ctx, user, comment.CommentableID, access.Comment, true)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || comment.UserID != user.ID {
		return nil, nil, models.NewForbiddenError("You can only " + verb + " your own comments")
	}
	return comment, card, nil
}

// Update edits the author's own comment. New mentions are notified again.
func (s *CommentService) Update(ctx context.Context, user *models.User, commentID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if err := invalid(validation.ValidateComment(content)); err != nil {
		return nil, err
	}
	comment, card, err := s.ownComment(ctx, user, commentID, "update")
	if err != nil {
		return nil, err
	}
	comment.Content = content
	if err := s.core.Store.Comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	s.notifyMentions(ctx, user, card, comment)
	return s.core.Store.Comments.GetByID(ctx, comment.ID)
}

// Delete removes the author's own comment with its replies and reactions.
func (s *CommentService) Delete(ctx context.Context, user *models.User, commentID uint) error {
	comment, _, err := s.ownComment(ctx, user, commentID, "delete")
	if err != nil {
		return err
	}
	return s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		return tx.Comments.Delete(ctx, comment.ID)
	})
}

// ToggleReaction adds the user's emoji to the comment, or removes it when already present.
func (s *CommentService) ToggleReaction(ctx context.Context, user *models.User, commentID uint, emoji string) (*models.Comment, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, models.NewValidationError("emoji is required")
	}
	if len(emoji) > 32 {
		return nil, models.NewValidationError("emoji must be at most 32 bytes")
	}
	comment, err := s.core.Store.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.core.cardContext(ctx, user, comment.CommentableID, access.Comment, false); err != nil {
		return nil, err
	}

	existing, err := s.core.Store.Comments.FindReaction(ctx, comment.ID, user.ID, emoji)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		err = s.core.Store.Comments.DeleteReaction(ctx, existing.ID)
	} else {
		err = s.core.Store.Comments.AddReaction(ctx, &models.CommentReaction{CommentID: comment.ID, UserID: user.ID, Emoji: emoji})
	}
	if err != nil {
		return nil, err
	}
	return s.core.Store.Comments.GetByID(ctx, comment.ID)
}

// Mentions extracts the distinct @names of content.
func Mentions(content string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range mentionPattern.FindAllStringSubmatch(content, -1) {
		name := strings.ToLower(m[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, m[1])
	}
	return out
}

// notifyMentions tells mentioned users about the comment at most once per debounce window
// and card. The author is never notified. Failures are logged only.
func (s *CommentService) notifyMentions(ctx context.Context, author *models.User, card *models.Card, comment *models.Comment) {
	names := Mentions(comment.Content)
	if len(names) == 0 || s.core.Notifier == nil {
		return
	}
	users, err := s.core.Store.Users.FindByNames(ctx, names)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "mention lookup failed", slog.String("error", err.Error()))
		return
	}
	for _, u := range users {
		if u.ID == comment.UserID {
			continue
		}
		if !s.claimMention(ctx, u.ID, comment) {
			continue
		}
		publish(ctx, s.core.Notifier, notifications.Event{
			Type:    "card_mentioned",
			UserID:  u.ID,
			ActorID: actorID(author),
			Message: author.Name + " mentioned you in '" + card.Title + "'",
			Data: map[string]any{
				"card_id":    card.ID,
				"comment_id": comment.ID,
				"content":    comment.Content,
			},
		})
	}
}

// claimMention reserves the debounce slot for one user on the comment's target.
func (s *CommentService) claimMention(ctx context.Context, userID uint, comment *models.Comment) bool {
	if s.rdb == nil || s.debounce <= 0 {
		return true
	}
	key := cache.MentionDebounceKey(userID, comment.CommentableType, comment.CommentableID)
	ok, err := s.rdb.SetNX(ctx, key, comment.ID, s.debounce).Result()
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "mention debounce unavailable", slog.String("error", err.Error()))
		return true
	}
	return ok
}
