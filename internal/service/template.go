package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"projectboard/internal/models"

	"gopkg.in/yaml.v3"
)

// BoardTemplate is a reusable board layout kept in YAML.
//
//	name: Sprint
//	background_color: "#0079bf"
//	columns:
//	  - name: To do
//	    cards:
//	      - title: Plan the sprint
//	        estimated_hours: 2
//	  - name: Done
type BoardTemplate struct {
	Name            string       `yaml:"name"`
	BackgroundURL   *string      `yaml:"background_url"`
	BackgroundColor *string      `yaml:"background_color"`
	Columns         []ColumnSeed `yaml:"columns"`
}

// ParseTemplate decodes one template. Unknown keys are rejected.
func ParseTemplate(r io.Reader) (*BoardTemplate, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var tpl BoardTemplate
	if err := dec.Decode(&tpl); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, models.NewValidationError("Template is empty")
		}
		return nil, models.NewValidationError("Invalid template: " + err.Error())
	}
	if strings.TrimSpace(tpl.Name) == "" {
		return nil, models.NewValidationError("Template name is required")
	}
	if len(tpl.Columns) == 0 {
		return nil, models.NewValidationError("Template must define at least one column")
	}
	return &tpl, nil
}

// LoadTemplate reads a template file.
func LoadTemplate(path string) (*BoardTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return ParseTemplate(bytes.NewReader(data))
}

// ApplyTemplate creates a board from tpl through the regular board creation path.
// A non-empty name replaces the template's board name.
func (s *BoardService) ApplyTemplate(ctx context.Context, user *models.User, tpl *BoardTemplate, name string, owner *models.OwnerRef) (*models.Board, error) {
	if tpl == nil {
		return nil, models.NewValidationError("Template is required")
	}
	if strings.TrimSpace(name) == "" {
		name = tpl.Name
	}
	return s.Create(ctx, user, CreateBoardInput{
		Name:            name,
		Owner:           owner,
		BackgroundURL:   tpl.BackgroundURL,
		BackgroundColor: tpl.BackgroundColor,
		Columns:         tpl.Columns,
	})
}

// ExportTemplate renders a board's columns and cards back into a template.
func (s *BoardService) ExportTemplate(ctx context.Context, user *models.User, boardID uint) ([]byte, error) {
	view, err := s.Get(ctx, user, boardID)
	if err != nil {
		return nil, err
	}
	tpl := BoardTemplate{
		Name:            view.Board.Name,
		BackgroundURL:   view.Board.BackgroundURL,
		BackgroundColor: view.Board.BackgroundColor,
	}
	for _, col := range view.Columns {
		seed := ColumnSeed{Name: col.Name}
		for _, card := range col.Cards {
			if card.IsMirror {
				continue
			}
			seed.Cards = append(seed.Cards, CardSeed{
				Title:          card.Title,
				Description:    card.Description,
				DueDate:        card.DueDate,
				EstimatedHours: card.EstimatedHours,
				EstimatedCost:  card.EstimatedCost,
				ActualHours:    card.ActualHours,
				ActualCost:     card.ActualCost,
			})
		}
		tpl.Columns = append(tpl.Columns, seed)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tpl); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := enc.Close(); err != nil {
		return nil, models.NewInternalError(err)
	}
	return buf.Bytes(), nil
}
