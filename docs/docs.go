// Package docs registers the OpenAPI document served at /api/swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/boards": {
            "get": {
                "produces": ["application/json"],
                "tags": ["boards"],
                "summary": "List boards",
                "parameters": [
                    {"type": "string", "description": "Owner type", "name": "boardable_type", "in": "query"},
                    {"type": "string", "description": "Owner ID", "name": "boardable_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["boards"],
                "summary": "Create a board",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/boards/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["boards"],
                "summary": "Get a board with columns, cards, totals and members",
                "parameters": [
                    {"type": "integer", "description": "Board ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/boards/{id}/cards/bulk": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cards"],
                "summary": "Create many cards on one board",
                "parameters": [
                    {"type": "integer", "description": "Board ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/boards/{id}/cards/bulk-update": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cards"],
                "summary": "Update many cards on one board",
                "parameters": [
                    {"type": "integer", "description": "Board ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/columns/{id}/cards": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["cards"],
                "summary": "Create a card at the end of a column",
                "parameters": [
                    {"type": "integer", "description": "Column ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/api-tokens": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tokens"],
                "summary": "Issue an API token",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/import-trello": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["import"],
                "summary": "Start a Trello board import",
                "parameters": [
                    {"type": "file", "description": "Trello board export (JSON)", "name": "file", "in": "formData", "required": true},
                    {"type": "integer", "description": "Existing board to import into", "name": "board_id", "in": "formData"}
                ],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Development login",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/v1/boards": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["external"],
                "summary": "Create a board with optional columns and cards",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/v1/cards/search": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["external"],
                "summary": "Search cards by title, description or label",
                "parameters": [
                    {"type": "string", "description": "Search text", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "description": "Restrict to one board", "name": "board_id", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and a session JWT or an API token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8375",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Project Board API",
	Description:      "Kanban boards with columns, cards, mirrors, comments, checklists and a token-authenticated external API.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
