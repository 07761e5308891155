package server

import (
	"io"

	"projectboard/internal/models"
	"projectboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// maxImportBytes bounds an uploaded Trello export.
const maxImportBytes = 50 << 20

// readExport returns the export from a multipart "file" field or, failing that, the raw body.
func readExport(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		body := c.Body()
		if len(body) == 0 {
			return nil, models.NewValidationError("A Trello export file is required")
		}
		return body, nil
	}
	if fh.Size > maxImportBytes {
		return nil, models.NewValidationError("The export file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(io.LimitReader(f, maxImportBytes))
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return data, nil
}

// StartTrelloImport handles POST /api/import-trello. The import runs in the background;
// the response carries the run id to poll.
// @Summary Start a Trello board import
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Trello board export (JSON)"
// @Param board_id formData int false "Existing board to import into"
// @Success 202 {object} service.ImportStatus
// @Router /import-trello [post]
func (s *Server) StartTrelloImport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	data, err := readExport(c)
	if err != nil {
		return fail(c, err)
	}
	export, err := service.ParseTrelloExport(data)
	if err != nil {
		return fail(c, err)
	}

	var opts service.ImportOptions
	if raw := c.FormValue("board_id", c.Query("board_id")); raw != "" {
		id, err := parseUint(raw)
		if err != nil {
			return fail(c, models.NewValidationError("board_id must be a positive integer"))
		}
		opts.BoardID = &id
	}
	owner, err := s.owners.Parse(ctx,
		c.FormValue("boardable_type", c.Query("boardable_type")),
		c.FormValue("boardable_id", c.Query("boardable_id")))
	if err != nil {
		return fail(c, err)
	}
	opts.Owner = owner

	status, err := s.importer.Start(ctx, user, export, opts)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"run":     status,
		"summary": service.Summarize(export),
	})
}

// TrelloImportStatus handles GET /api/import-trello/status/:runId
func (s *Server) TrelloImportStatus(c *fiber.Ctx) error {
	user, err := s.currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	status, err := s.importer.Status(c.UserContext(), user, c.Params("runId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(status)
}
