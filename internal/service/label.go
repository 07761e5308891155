package service

import (
	"context"
	"strings"

	"projectboard/internal/cache"
	"projectboard/internal/featureflags"
	"projectboard/internal/models"
	"projectboard/internal/repository"
	"projectboard/internal/validation"
)

// LabelInput describes a label.
type LabelInput struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// LabelService manages the label catalogue shared by every board.
type LabelService struct {
	core *Core
}

// NewLabelService creates a LabelService.
func NewLabelService(core *Core) *LabelService {
	return &LabelService{core: core}
}

// List returns every label by name. The catalogue is served from Redis when the label cache is on.
func (s *LabelService) List(ctx context.Context) ([]models.Label, error) {
	if !s.core.Flags.On(featureflags.LabelCache, 0) {
		return s.core.Store.Labels.List(ctx)
	}
	labels, err := cache.Remember(ctx, cache.LabelCatalogKey, cache.LabelCatalogTTL, s.core.Store.Labels.List)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = []models.Label{}
	}
	return labels, nil
}

func normalizeLabel(in LabelInput) (string, *string, error) {
	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateName("name", name); err != nil {
		return "", nil, invalid(err)
	}
	color := emptyToNil(in.Color)
	if color != nil {
		if err := validation.ValidateHexColor(*color); err != nil {
			return "", nil, invalid(err)
		}
	}
	return name, color, nil
}

// canManageLabels allows global users and anyone holding member or better on some board.
func (s *LabelService) canManageLabels(ctx context.Context, user *models.User) error {
	if user == nil || user.ID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	if user.HasGlobalBoardAccess() {
		return nil
	}
	if override := user.RoleOverride(); override != nil {
		if override.AtLeast(models.BoardRoleMember) {
			return nil
		}
		return models.NewForbiddenError("You do not have permission to manage labels")
	}
	boardIDs, err := s.core.Store.Members.BoardIDsFor(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, id := range boardIDs {
		role, err := s.core.Store.Members.RoleFor(ctx, id, user.ID)
		if err != nil {
			return err
		}
		if role.AtLeast(models.BoardRoleMember) {
			return nil
		}
	}
	return models.NewForbiddenError("You do not have permission to manage labels")
}

// Create adds a label to the catalogue.
func (s *LabelService) Create(ctx context.Context, user *models.User, in LabelInput) (*models.Label, error) {
	if err := s.canManageLabels(ctx, user); err != nil {
		return nil, err
	}
	name, color, err := normalizeLabel(in)
	if err != nil {
		return nil, err
	}
	label := &models.Label{Name: name, Color: color}
	if err := s.core.Store.Labels.Create(ctx, label); err != nil {
		return nil, err
	}
	cache.InvalidateLabels(ctx)
	return label, nil
}

// Update renames or recolors a label.
func (s *LabelService) Update(ctx context.Context, user *models.User, labelID uint, in LabelInput) (*models.Label, error) {
	if err := s.canManageLabels(ctx, user); err != nil {
		return nil, err
	}
	name, color, err := normalizeLabel(in)
	if err != nil {
		return nil, err
	}
	label, err := s.core.Store.Labels.GetByID(ctx, labelID)
	if err != nil {
		return nil, err
	}
	label.Name, label.Color = name, color
	if err := s.core.Store.Labels.Update(ctx, label); err != nil {
		return nil, err
	}
	cache.InvalidateLabels(ctx)
	return label, nil
}

// Delete removes a label from the catalogue and from every card.
func (s *LabelService) Delete(ctx context.Context, user *models.User, labelID uint) error {
	if err := s.canManageLabels(ctx, user); err != nil {
		return err
	}
	err := s.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		return tx.Labels.Delete(ctx, labelID)
	})
	if err != nil {
		return err
	}
	cache.InvalidateLabels(ctx)
	return nil
}
