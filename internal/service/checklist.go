package service

import (
	"context"
	"fmt"
	"strings"

	"projectboard/internal/access"
	"projectboard/internal/models"
	"projectboard/internal/repository"
	"projectboard/internal/validation"

	"gorm.io/datatypes"
)

// UpdateItemInput carries the checklist item fields to change.
type UpdateItemInput struct {
	Content     *string `json:"content"`
	IsCompleted *bool   `json:"is_completed"`
}

// ChecklistService implements checklists and their items.
type ChecklistService struct {
	core *Core
}

// NewChecklistService creates a ChecklistService.
func NewChecklistService(core *Core) *ChecklistService {
	return &ChecklistService{core: core}
}

// List returns the card's checklists with ordered items.
func (s *ChecklistService) List(ctx context.Context, user *models.User, cardID uint) ([]models.Checklist, error) {
	if _, _, err := s.core.cardContext(ctx, user, cardID, access.ViewBoard, false); err != nil {
		return nil, err
	}
	return s.core.Store.Checklists.ListByCard(ctx, cardID)
}

// Create adds a named checklist to the card.
func (s *ChecklistService) Create(ctx context.Context, user *models.User, cardID uint, name string) (*models.Checklist, error) {
	name = strings.TrimSpace(name)
	if err := invalid(validation.ValidateName("name", name)); err != nil {
		return nil, err
	}
	card, _, err := s.core.cardContext(ctx, user, cardID, access.ManageChecklists, false)
	if err != nil {
		return nil, err
	}
	checklist := &models.Checklist{CardID: card.ID, Name: name, Items: []models.ChecklistItem{}}
	err = s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		if err := tx.Checklists.Create(ctx, checklist); err != nil {
			return err
		}
		return log.add(card.ID, models.ActivityUpdated, fmt.Sprintf(TextChecklistAdd, name), datatypes.JSONMap{"checklist_id": checklist.ID})
	})
	if err != nil {
		return nil, err
	}
	return checklist, nil
}

// Rename changes a checklist's name.
func (s *ChecklistService) Rename(ctx context.Context, user *models.User, checklistID uint, name string) (*models.Checklist, error) {
	name = strings.TrimSpace(name)
	if err := invalid(validation.ValidateName("name", name)); err != nil {
		return nil, err
	}
	checklist, _, err := s.checklistContext(ctx, user, checklistID)
	if err != nil {
		return nil, err
	}
	if err := s.core.Store.Checklists.Rename(ctx, checklist.ID, name); err != nil {
		return nil, err
	}
	checklist.Name = name
	return checklist, nil
}

// Delete removes a checklist with its items.
func (s *ChecklistService) Delete(ctx context.Context, user *models.User, checklistID uint) error {
	checklist, card, err := s.checklistContext(ctx, user, checklistID)
	if err != nil {
		return err
	}
	return s.core.mutateCard(ctx, card, user, func(tx *repository.Store, log *cardLog) error {
		if err := tx.Checklists.Delete(ctx, checklist.ID); err != nil {
			return err
		}
		return log.add(card.ID, models.ActivityUpdated, fmt.Sprintf(TextChecklistRemove, checklist.Name), nil)
	})
}

// AddItem appends an item after the checklist's last position.
func (s *ChecklistService) AddItem(ctx context.Context, user *models.User, checklistID uint, content string) (*models.ChecklistItem, error) {
	content = strings.TrimSpace(content)
	if err := invalid(validation.ValidateName("content", content)); err != nil {
		return nil, err
	}
	checklist, _, err := s.checklistContext(ctx, user, checklistID)
	if err != nil {
		return nil, err
	}
	item := &models.ChecklistItem{ChecklistID: checklist.ID, Content: content}
	err = s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		pos, err := next(tx.Checklists.MaxItemPosition(ctx, checklist.ID))
		if err != nil {
			return err
		}
		item.Position = pos
		return tx.Checklists.CreateItem(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItem changes an item's content or completion.
func (s *ChecklistService) UpdateItem(ctx context.Context, user *models.User, itemID uint, in UpdateItemInput) (*models.ChecklistItem, error) {
	item, err := s.core.Store.Checklists.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.checklistContext(ctx, user, item.ChecklistID); err != nil {
		return nil, err
	}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		if err := invalid(validation.ValidateName("content", content)); err != nil {
			return nil, err
		}
		item.Content = content
	}
	if in.IsCompleted != nil {
		item.IsCompleted = *in.IsCompleted
	}
	if err := s.core.Store.Checklists.UpdateItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem removes a checklist item.
func (s *ChecklistService) DeleteItem(ctx context.Context, user *models.User, itemID uint) error {
	item, err := s.core.Store.Checklists.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if _, _, err := s.checklistContext(ctx, user, item.ChecklistID); err != nil {
		return err
	}
	return s.core.Store.Checklists.DeleteItem(ctx, item.ID)
}

func (s *ChecklistService) checklistContext(ctx context.Context, user *models.User, checklistID uint) (*models.Checklist, *models.Card, error) {
	checklist, err := s.core.Store.Checklists.GetByID(ctx, checklistID)
	if err != nil {
		return nil, nil, err
	}
	card, _, err := s.core.cardContext(ctx, user, checklist.CardID, access.ManageChecklists, false)
	if err != nil {
		return nil, nil, err
	}
	return checklist, card, nil
}
