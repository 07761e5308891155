package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"projectboard/internal/config"
	"projectboard/internal/models"
	"projectboard/internal/service"
	"projectboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallExport = `{
  "name": "Imported",
  "labels": [{"id": "l1", "name": "Bug", "color": "red"}],
  "lists": [
    {"id": "a", "name": "Todo", "pos": 1},
    {"id": "b", "name": "Done", "pos": 2}
  ],
  "cards": [
    {"id": "c1", "name": "First", "idList": "a", "pos": 1, "idLabels": ["l1"]},
    {"id": "c2", "name": "Orphan", "idList": "missing", "pos": 1}
  ],
  "checklists": [],
  "actions": []
}`

type importAccepted struct {
	Run     service.ImportStatus  `json:"run"`
	Summary service.ImportSummary `json:"summary"`
}

func uploadExport(t *testing.T, env *testEnv, token, export string, fields map[string]string, out any) int {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "board.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(export))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import-trello", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestTrelloImport_RunsInBackground(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "ivy")
	token := sessionFor(t, user)

	var accepted importAccepted
	require.Equal(t, http.StatusAccepted, uploadExport(t, env, token, smallExport, nil, &accepted))
	assert.Equal(t, service.ImportQueued, accepted.Run.Status)
	assert.Equal(t, "Imported", accepted.Summary.BoardName)
	assert.Equal(t, 2, accepted.Summary.CardsCount)

	env.srv.importer.Wait()

	var status service.ImportStatus
	path := "/api/import-trello/status/" + accepted.Run.RunID
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, path, token, nil, &status))
	require.Equal(t, service.ImportCompleted, status.Status, status.Error)
	require.NotNil(t, status.Result)
	assert.Equal(t, 2, status.Result.Stats.ListsCreated)
	assert.Equal(t, 1, status.Result.Stats.CardsCreated)
	assert.Len(t, status.Result.Stats.Errors, 1)

	var view service.BoardView
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, fmt.Sprintf("/api/boards/%d", status.Result.BoardID), token, nil, &view))
	assert.Equal(t, "Imported", view.Name)
	require.Len(t, view.Columns, 2)
	assert.Equal(t, "Todo", view.Columns[0].Name)

	other := testutil.CreateUser(t, env.db, "jon")
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, path, sessionFor(t, other), nil, nil))
}

func TestTrelloImport_IntoExistingBoard(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	user := testutil.CreateUser(t, env.db, "kim")
	viewer := testutil.CreateUser(t, env.db, "lou")
	board := testutil.CreateBoard(t, env.db, "Target", user, models.BoardRoleAdmin)
	testutil.AddMember(t, env.db, board, viewer, models.BoardRoleViewer)
	testutil.CreateColumn(t, env.db, board, "Existing", 0)
	fields := map[string]string{"board_id": fmt.Sprint(board.ID)}

	assert.Equal(t, http.StatusForbidden, uploadExport(t, env, sessionFor(t, viewer), smallExport, fields, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, uploadExport(t, env, sessionFor(t, user), smallExport,
		map[string]string{"board_id": "abc"}, nil))

	var accepted importAccepted
	require.Equal(t, http.StatusAccepted, uploadExport(t, env, sessionFor(t, user), smallExport, fields, &accepted))
	env.srv.importer.Wait()

	var columns []models.Column
	require.NoError(t, env.db.Where("board_id = ?", board.ID).Order("order_column").Find(&columns).Error)
	require.Len(t, columns, 3)
	assert.Equal(t, "Existing", columns[0].Name)
	assert.Equal(t, 1, columns[1].Order)
	assert.Equal(t, 2, columns[2].Order)
}

func TestTrelloImport_RejectsBadExports(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	token := sessionFor(t, testutil.CreateUser(t, env.db, "max"))

	var body models.ErrorResponse
	assert.Equal(t, http.StatusUnprocessableEntity, uploadExport(t, env, token, "{", nil, &body))
	assert.Contains(t, body.Error, "Invalid JSON file")

	assert.Equal(t, http.StatusUnprocessableEntity, env.do(t, http.MethodPost, "/api/import-trello", token, nil, &body))
	assert.Equal(t, "A Trello export file is required", body.Error)
}

func TestTrelloImport_RawBodyAndFlag(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, func(c *config.Config) { c.FeatureFlags = "trello_import=off" })
	token := sessionFor(t, testutil.CreateUser(t, env.db, "ned"))

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(smallExport), &raw))
	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/api/import-trello", token, raw, nil))
}
