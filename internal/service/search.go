package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"projectboard/internal/access"
	"projectboard/internal/featureflags"
	"projectboard/internal/models"
	"projectboard/internal/repository"
	"projectboard/internal/validation"
)

const previewRunes = 60

// SearchResult is one entry of the global search.
type SearchResult struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Preview    string `json:"preview"`
	CardID     uint   `json:"card_id"`
	BoardID    uint   `json:"board_id"`
	BoardName  string `json:"board_name"`
	ColumnName string `json:"column_name,omitempty"`
}

// CardSearchResult wraps card search hits.
type CardSearchResult struct {
	Cards []repository.CardHit `json:"cards"`
	Total int                  `json:"total"`
}

// SearchService searches the boards a user can read.
type SearchService struct {
	core *Core
}

// NewSearchService creates a SearchService.
func NewSearchService(core *Core) *SearchService {
	return &SearchService{core: core}
}

// Cards matches card titles, descriptions and label names, optionally on one board.
func (s *SearchService) Cards(ctx context.Context, user *models.User, query string, boardID *uint) (*CardSearchResult, error) {
	scope, err := s.core.Access.Scope(ctx, user)
	if err != nil {
		return nil, err
	}
	if boardID != nil {
		if _, err := s.core.Access.Authorize(ctx, user, *boardID, access.ViewBoard); err != nil {
			return nil, err
		}
	}
	hits, err := s.core.Store.Search.Cards(ctx, repository.SearchFilter{
		Query:   strings.TrimSpace(query),
		Scope:   scope,
		BoardID: boardID,
		Limit:   repository.CardSearchLimit,
	})
	if err != nil {
		return nil, err
	}
	return &CardSearchResult{Cards: hits, Total: len(hits)}, nil
}

// Global searches cards, comments and checklist items, a few of each. Queries shorter than
// two characters return nothing.
func (s *SearchService) Global(ctx context.Context, user *models.User, query string) ([]SearchResult, error) {
	results := []SearchResult{}
	if validation.ValidateSearchQuery(query) != nil {
		return results, nil
	}
	var uid uint
	if user != nil {
		uid = user.ID
	}
	if !s.core.Flags.On(featureflags.GlobalSearch, uid) {
		return nil, models.NewForbiddenError("Global search is disabled")
	}
	scope, err := s.core.Access.Scope(ctx, user)
	if err != nil {
		return nil, err
	}
	filter := repository.SearchFilter{Query: strings.TrimSpace(query), Scope: scope, Limit: repository.GlobalSearchLimit}

	cards, err := s.core.Store.Search.Cards(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		preview := ""
		if c.Description != nil {
			preview = truncatePreview(*c.Description)
		}
		results = append(results, SearchResult{
			Type:       "card",
			Title:      c.Title,
			Preview:    preview,
			CardID:     c.ID,
			BoardID:    c.BoardID,
			BoardName:  c.BoardName,
			ColumnName: c.ColumnName,
		})
	}

	comments, err := s.core.Store.Search.Comments(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		results = append(results, SearchResult{
			Type:    "comment",
			Title:   "Comment on: " + c.CardTitle,
			Preview: truncatePreview(c.Content),
			CardID:  c.CardID,
			BoardID: c.BoardID,
		})
	}

	items, err := s.core.Store.Search.ChecklistItems(ctx, filter)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		results = append(results, SearchResult{
			Type:    "checklist",
			Title:   "Checklist in: " + it.CardTitle,
			Preview: it.Content,
			CardID:  it.CardID,
			BoardID: it.BoardID,
		})
	}

	if err := s.fillBoardNames(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *SearchService) fillBoardNames(ctx context.Context, results []SearchResult) error {
	names := map[uint]string{}
	for i := range results {
		if results[i].BoardName != "" {
			names[results[i].BoardID] = results[i].BoardName
		}
	}
	for i := range results {
		r := &results[i]
		if r.BoardName != "" {
			continue
		}
		name, ok := names[r.BoardID]
		if !ok {
			board, err := s.core.Store.Boards.GetByID(ctx, r.BoardID)
			if err != nil {
				return err
			}
			name = board.Name
			names[r.BoardID] = name
		}
		r.BoardName = name
	}
	return nil
}

func truncatePreview(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	return string([]rune(s)[:previewRunes]) + "..."
}
