package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseDoc = `{
  "paths": {
    "/v1/boards": {
      "get": {"responses": {"200": {}, "401": {}}},
      "post": {"responses": {"201": {}, "403": {}}}
    },
    "/v1/cards/{id}/move": {"post": {"responses": {"200": {}, "409": {}}}},
    "/boards": {"get": {"responses": {"200": {}}}}
  }
}`

func TestAPICheck_PassesOnAdditiveChange(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	base := writeFile(t, "base.json", baseDoc)
	revision := writeFile(t, "rev.yml", `paths:
  /v1/boards:
    get: {responses: {"200": {}, "401": {}, "429": {}}}
    post: {responses: {"201": {}, "403": {}}}
  /v1/cards/{id}/move:
    post: {responses: {"200": {}, "409": {}}}
  /v1/cards/search:
    get: {responses: {"200": {}}}
`)

	require.NoError(t, h.run(t, "apicheck", "--base", base, "--revision", revision))
	assert.Equal(t, "api compatibility check passed\n", h.out.String())
}

func TestAPICheck_ReportsBreakingChanges(t *testing.T) {
	t.Parallel()
	base, err := loadEndpoints(writeFile(t, "base.json", baseDoc), "/v1")
	require.NoError(t, err)
	revision, err := loadEndpoints(writeFile(t, "rev.yml", `paths:
  /v1/boards:
    get: {responses: {"200": {}}}
`), "/v1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"removed operation: POST /v1/boards",
		"removed path: /v1/cards/{id}/move",
		"removed response code: GET /v1/boards -> 401",
	}, breakingChanges(base, revision))
}

func TestAPICheck_RequiresPaths(t *testing.T) {
	t.Parallel()
	_, err := loadEndpoints(writeFile(t, "empty.yml", "swagger: \"2.0\"\n"), "")
	assert.Error(t, err)
}
