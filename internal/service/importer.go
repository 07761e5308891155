package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"projectboard/internal/access"
	"projectboard/internal/cache"
	"projectboard/internal/featureflags"
	"projectboard/internal/models"
	"projectboard/internal/notifications"
	"projectboard/internal/observability"
	"projectboard/internal/repository"
	"projectboard/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
)

// Import run states.
const (
	ImportQueued    = "queued"
	ImportRunning   = "running"
	ImportCompleted = "completed"
	ImportFailed    = "failed"
)

// DefaultImportTimeout bounds an import when none is configured.
const DefaultImportTimeout = time.Hour

// ImportOptions selects the target of an import. Without BoardID a new board is created.
type ImportOptions struct {
	BoardID *uint
	Owner   *models.OwnerRef
}

// ImportStats counts what an import created. Errors lists the skipped items.
type ImportStats struct {
	ListsCreated          int      `json:"lists_created"`
	CardsCreated          int      `json:"cards_created"`
	LabelsCreated         int      `json:"labels_created"`
	ChecklistsCreated     int      `json:"checklists_created"`
	ChecklistItemsCreated int      `json:"checklist_items_created"`
	CommentsCreated       int      `json:"comments_created"`
	Errors                []string `json:"errors"`
}

func (s *ImportStats) skip(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// ImportResult is a committed import.
type ImportResult struct {
	BoardID   uint        `json:"board_id"`
	BoardName string      `json:"board_name"`
	Stats     ImportStats `json:"stats"`
}

// ImportStatus is the progress record of a background import.
type ImportStatus struct {
	RunID      string        `json:"run_id"`
	UserID     uint          `json:"user_id"`
	Status     string        `json:"status"`
	Result     *ImportResult `json:"result,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// ImportSummary describes an accepted export before it runs.
type ImportSummary struct {
	BoardName       string `json:"board_name"`
	ListsCount      int    `json:"lists_count"`
	CardsCount      int    `json:"cards_count"`
	ChecklistsCount int    `json:"checklists_count"`
	LabelsCount     int    `json:"labels_count"`
}

// Summarize reports the size of an export.
func Summarize(export *TrelloExport) ImportSummary {
	return ImportSummary{
		BoardName:       export.Name,
		ListsCount:      len(export.Lists),
		CardsCount:      len(export.Cards),
		ChecklistsCount: len(export.Checklists),
		LabelsCount:     len(export.Labels),
	}
}

// TrelloImporter replays a Trello export through the board core in one transaction.
// Items referring to unknown lists or cards are skipped and counted; any other failure
// rolls the whole import back.
type TrelloImporter struct {
	core    *Core
	rdb     *redis.Client
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewTrelloImporter creates an importer. rdb stores background run status and may be nil.
func NewTrelloImporter(core *Core, rdb *redis.Client, timeout time.Duration) *TrelloImporter {
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	return &TrelloImporter{core: core, rdb: rdb, timeout: timeout}
}

func (im *TrelloImporter) authorize(ctx context.Context, user *models.User, opts ImportOptions) error {
	if user == nil || user.ID == 0 {
		return models.NewUnauthorizedError("Authentication required")
	}
	if !im.core.Flags.On(featureflags.TrelloImport, user.ID) {
		return models.NewForbiddenError("Trello import is disabled")
	}
	if opts.BoardID != nil {
		if _, err := im.core.Store.Boards.GetByID(ctx, *opts.BoardID); err != nil {
			return err
		}
		if _, err := im.core.Access.Authorize(ctx, user, *opts.BoardID, access.CreateColumn); err != nil {
			return err
		}
	}
	return nil
}

// Import runs the export synchronously and notifies the user of the outcome.
func (im *TrelloImporter) Import(ctx context.Context, user *models.User, export *TrelloExport, opts ImportOptions) (*ImportResult, error) {
	if err := im.authorize(ctx, user, opts); err != nil {
		return nil, err
	}
	return im.run(ctx, user, export, opts)
}

func (im *TrelloImporter) run(ctx context.Context, user *models.User, export *TrelloExport, opts ImportOptions) (*ImportResult, error) {
	ctx, cancel := context.WithTimeout(ctx, im.timeout)
	defer cancel()
	ctx, span := observability.StartSpan(ctx, "import.trello")
	defer span.End()
	span.Set(
		attribute.Int("import.lists", len(export.Lists)),
		attribute.Int("import.cards", len(export.Cards)),
	)

	started := time.Now()
	var result *ImportResult
	err := im.core.Store.WithTx(ctx, func(tx *repository.Store) error {
		var err error
		result, err = im.apply(ctx, tx, user, export, opts)
		return err
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = models.NewTimeoutError(fmt.Sprintf("Import exceeded its time budget of %s", im.timeout), ctx.Err())
		}
		span.Fail(err)
		observability.ImportRuns.WithLabelValues(ImportFailed).Inc()
		observability.GlobalLogger.ErrorContext(ctx, "trello import failed",
			slog.Uint64("user_id", uint64(user.ID)),
			slog.String("error", err.Error()),
		)
		publish(context.WithoutCancel(ctx), im.core.Notifier, notifications.Event{
			Type:    "import_failed",
			UserID:  user.ID,
			Message: "Trello import failed: " + err.Error(),
		})
		return nil, err
	}

	if result.Stats.LabelsCreated > 0 {
		cache.InvalidateLabels(ctx)
	}
	span.Board(result.BoardID)
	observability.ImportRuns.WithLabelValues(ImportCompleted).Inc()
	observability.GlobalLogger.InfoContext(ctx, "trello import completed",
		slog.Uint64("board_id", uint64(result.BoardID)),
		slog.Int("lists_created", result.Stats.ListsCreated),
		slog.Int("cards_created", result.Stats.CardsCreated),
		slog.Int("errors", len(result.Stats.Errors)),
		slog.Duration("duration", time.Since(started)),
	)
	publish(ctx, im.core.Notifier, notifications.Event{
		Type:    "import_completed",
		UserID:  user.ID,
		Message: "Trello import complete: " + result.BoardName,
		Data: map[string]any{
			"board_id": result.BoardID,
			"stats":    result.Stats,
		},
	})
	return result, nil
}

func (im *TrelloImporter) apply(ctx context.Context, tx *repository.Store, user *models.User, export *TrelloExport, opts ImportOptions) (*ImportResult, error) {
	stats := ImportStats{Errors: []string{}}

	board, err := im.targetBoard(ctx, tx, user, export, opts)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]uint, len(export.Labels))
	for _, tl := range export.Labels {
		name := importLabelName(tl)
		if utf8.RuneCountInString(name) > validation.MaxNameLength {
			stats.skip("Label skipped (%s): name too long", tl.ID)
			continue
		}
		color := importLabelColor(tl)
		existing, err := tx.Labels.FindByNameColor(ctx, name, &color)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			labels[tl.ID] = existing.ID
			continue
		}
		label := &models.Label{Name: name, Color: &color}
		if err := tx.Labels.Create(ctx, label); err != nil {
			return nil, err
		}
		labels[tl.ID] = label.ID
		stats.LabelsCreated++
	}

	base, err := im.core.Engine.NextColumnOrder(ctx, tx, board.ID)
	if err != nil {
		return nil, err
	}
	columns := make(map[string]uint, len(export.Lists))
	for i, tl := range sortedLists(export.Lists) {
		name := strings.TrimSpace(*tl.Name)
		if name == "" {
			name = "Untitled list"
		}
		name = clipName(name)
		column := &models.Column{BoardID: board.ID, Name: name, Slug: validation.Slugify(name), Order: base + i}
		if err := tx.Columns.Create(ctx, column); err != nil {
			return nil, err
		}
		columns[tl.ID] = column.ID
		stats.ListsCreated++
	}

	cards := make(map[string]uint, len(export.Cards))
	listOrder, groups := cardsByList(export.Cards)
	for _, listID := range listOrder {
		columnID, ok := columns[listID]
		for i, tc := range groups[listID] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !ok {
				stats.skip("Card skipped (%s): unknown list %s", tc.Name, listID)
				continue
			}
			id, err := im.importCard(ctx, tx, user, tc, columnID, i, labels, &stats)
			if err != nil {
				return nil, err
			}
			cards[tc.ID] = id
			stats.CardsCreated++
		}
	}

	for _, tcl := range export.Checklists {
		cardID, ok := cards[tcl.IDCard]
		if !ok {
			stats.skip("Checklist skipped (%s): unknown card %s", tcl.Name, tcl.IDCard)
			continue
		}
		name := strings.TrimSpace(tcl.Name)
		if name == "" {
			name = "Checklist"
		}
		checklist := &models.Checklist{CardID: cardID, Name: name}
		if err := tx.Checklists.Create(ctx, checklist); err != nil {
			return nil, err
		}
		stats.ChecklistsCreated++
		for pos, item := range sortedCheckItems(tcl.CheckItems) {
			if err := tx.Checklists.CreateItem(ctx, &models.ChecklistItem{
				ChecklistID: checklist.ID,
				Content:     item.Name,
				IsCompleted: item.State == "complete",
				Position:    pos,
			}); err != nil {
				return nil, err
			}
			stats.ChecklistItemsCreated++
		}
	}

	for _, action := range commentActions(export.Actions) {
		cardID, ok := cards[action.Data.Card.ID]
		if !ok {
			stats.skip("Comment skipped: unknown card %s", action.Data.Card.ID)
			continue
		}
		author := action.MemberCreator.FullName
		if author == "" {
			author = "Trello User"
		}
		var at time.Time
		if t := parseTrelloDate(&action.Date); t != nil {
			at = *t
		}
		text := fmt.Sprintf("[Imported from Trello - %s]\n%s", author, action.Data.Text)
		if _, err := im.core.Recorder.RecordAt(ctx, tx, cardID, user, models.ActivityCommented, text, nil, at); err != nil {
			return nil, err
		}
		stats.CommentsCreated++
	}

	if err := tx.Boards.Touch(ctx, board.ID); err != nil {
		return nil, err
	}
	return &ImportResult{BoardID: board.ID, BoardName: board.Name, Stats: stats}, nil
}

func (im *TrelloImporter) targetBoard(ctx context.Context, tx *repository.Store, user *models.User, export *TrelloExport, opts ImportOptions) (*models.Board, error) {
	if opts.BoardID != nil {
		return tx.Boards.GetByID(ctx, *opts.BoardID)
	}
	name := strings.TrimSpace(export.Name)
	if name == "" {
		name = "Imported Board"
	}
	name = clipName(name)
	board := &models.Board{Name: name}
	board.SetOwner(opts.Owner)
	if err := tx.Boards.Create(ctx, board); err != nil {
		return nil, err
	}
	if err := tx.Members.Create(ctx, &models.BoardMember{BoardID: board.ID, UserID: user.ID, Role: models.BoardRoleAdmin}); err != nil {
		return nil, err
	}
	return board, nil
}

func (im *TrelloImporter) importCard(ctx context.Context, tx *repository.Store, user *models.User, tc TrelloCard, columnID uint, order int, labels map[string]uint, stats *ImportStats) (uint, error) {
	title, description := importTitle(tc.Name, tc.Desc)
	card := &models.Card{
		ColumnID:    columnID,
		Title:       title,
		Description: description,
		DueDate:     parseTrelloDate(tc.Due),
		CreatedBy:   actorID(user),
	}
	if tc.DueComplete {
		now := time.Now()
		card.CompletedAt = &now
	}
	if err := im.core.Engine.Insert(ctx, tx, card, &order); err != nil {
		return 0, err
	}

	attached := map[uint]bool{}
	for _, id := range tc.IDLabels {
		labelID, ok := labels[id]
		if !ok || attached[labelID] {
			continue
		}
		if err := tx.Cards.AddLabel(ctx, card.ID, labelID); err != nil {
			return 0, err
		}
		attached[labelID] = true
	}

	var coverID string
	if tc.Cover != nil && tc.Cover.IDAttachment != nil {
		coverID = *tc.Cover.IDAttachment
	}
	for _, ta := range tc.Attachments {
		if ta.URL == "" {
			continue
		}
		if err := validation.ValidateAttachmentURL(ta.URL); err != nil {
			stats.skip("Attachment skipped (%s): %s", ta.Name, err.Error())
			continue
		}
		fileName := ta.FileName
		if fileName == "" {
			fileName = ta.Name
		}
		if fileName == "" {
			fileName = "attachment"
		}
		attachment := &models.Attachment{
			CardID:    card.ID,
			FileName:  fileName,
			URL:       ta.URL,
			MimeType:  ta.MimeType,
			Size:      ta.Bytes,
			CreatedBy: actorID(user),
		}
		if err := tx.Attachments.Create(ctx, attachment); err != nil {
			return 0, err
		}
		if coverID != "" && ta.ID == coverID && strings.HasPrefix(ta.MimeType, "image/") {
			if err := tx.Cards.SetCover(ctx, card.ID, &attachment.ID); err != nil {
				return 0, err
			}
		}
	}

	if _, err := im.core.Recorder.Record(ctx, tx, card.ID, user, models.ActivityImported, TextImported, datatypes.JSONMap{"trello_id": tc.ID}); err != nil {
		return 0, err
	}
	if tc.Closed {
		if err := tx.Cards.Archive(ctx, card.ID); err != nil {
			return 0, err
		}
	}
	return card.ID, nil
}

func sortedCheckItems(items []TrelloCheckItem) []TrelloCheckItem {
	out := append([]TrelloCheckItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Pos < out[j].Pos })
	return out
}

func clipName(name string) string {
	if utf8.RuneCountInString(name) <= validation.MaxNameLength {
		return name
	}
	return string([]rune(name)[:validation.MaxNameLength])
}

// Start validates access, records a queued run and imports in the background.
// The returned run id reads the status through Status.
func (im *TrelloImporter) Start(ctx context.Context, user *models.User, export *TrelloExport, opts ImportOptions) (*ImportStatus, error) {
	if err := im.authorize(ctx, user, opts); err != nil {
		return nil, err
	}
	status := &ImportStatus{
		RunID:     uuid.NewString(),
		UserID:    user.ID,
		Status:    ImportQueued,
		StartedAt: time.Now().UTC(),
	}
	im.saveStatus(ctx, status)

	bg := context.WithoutCancel(ctx)
	im.wg.Add(1)
	go func() {
		defer im.wg.Done()
		running := *status
		running.Status = ImportRunning
		im.saveStatus(bg, &running)

		result, err := im.run(bg, user, export, opts)
		done := running
		finished := time.Now().UTC()
		done.FinishedAt = &finished
		if err != nil {
			done.Status = ImportFailed
			done.Error = err.Error()
		} else {
			done.Status = ImportCompleted
			done.Result = result
		}
		im.saveStatus(bg, &done)
	}()
	return status, nil
}

// Wait blocks until every background import has finished.
func (im *TrelloImporter) Wait() {
	im.wg.Wait()
}

func (im *TrelloImporter) saveStatus(ctx context.Context, status *ImportStatus) {
	if im.rdb == nil {
		return
	}
	payload, err := json.Marshal(status)
	if err == nil {
		err = im.rdb.Set(ctx, cache.ImportStatusKey(status.RunID), payload, cache.ImportStatusTTL).Err()
	}
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "import status not stored",
			slog.String("run_id", status.RunID),
			slog.String("error", err.Error()),
		)
	}
}

// Status returns the progress of a run started by user.
func (im *TrelloImporter) Status(ctx context.Context, user *models.User, runID string) (*ImportStatus, error) {
	if im.rdb == nil {
		return nil, models.NewNotFoundError("Import", runID)
	}
	raw, err := im.rdb.Get(ctx, cache.ImportStatusKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, models.NewNotFoundError("Import", runID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	var status ImportStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, models.NewInternalError(err)
	}
	if user == nil || status.UserID != user.ID {
		return nil, models.NewNotFoundError("Import", runID)
	}
	return &status, nil
}
