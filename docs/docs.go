// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "session": {"type": "apiKey", "in": "header", "name": "Cookie"},
        "bearer": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "security": [{"session": []}, {"bearer": []}],
    "paths": {
        "/members": {
            "post": {"tags": ["members"], "summary": "Register a member", "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid profile"}, "409": {"description": "Email already registered"}}}
        },
        "/members/{id}": {
            "get": {"tags": ["members"], "summary": "Get a member profile", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/profile": {
            "get": {"tags": ["members"], "summary": "Get own profile", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["members"], "summary": "Update own profile", "responses": {"200": {"description": "OK"}}}
        },
        "/profile/skills": {
            "put": {"tags": ["members"], "summary": "Replace offered and wanted skills", "responses": {"200": {"description": "OK"}}}
        },
        "/profile/visibility": {
            "put": {"tags": ["members"], "summary": "Set profile visibility", "responses": {"200": {"description": "OK"}}}
        },
        "/matches": {
            "get": {"tags": ["matching"], "summary": "Suggested swap partners, mutual matches first", "responses": {"200": {"description": "OK"}}}
        },
        "/browse": {
            "get": {"tags": ["matching"], "summary": "Search public profiles", "parameters": [{"name": "q", "in": "query", "type": "string"}, {"name": "filter", "in": "query", "type": "string", "enum": ["all", "skills-offered", "skills-wanted", "location"]}], "responses": {"200": {"description": "OK"}}}
        },
        "/swaps": {
            "get": {"tags": ["swaps"], "summary": "List own swap requests", "parameters": [{"name": "view", "in": "query", "type": "string", "enum": ["incoming", "outgoing", "active", "completed", "all"]}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["swaps"], "summary": "Create a swap request", "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid request"}}}
        },
        "/swaps/{id}": {
            "get": {"tags": ["swaps"], "summary": "Get a swap request", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/swaps/{id}/accept": {
            "post": {"tags": ["swaps"], "summary": "Recipient accepts a pending request", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition or concurrent update"}}}
        },
        "/swaps/{id}/reject": {
            "post": {"tags": ["swaps"], "summary": "Recipient rejects a pending request", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition or concurrent update"}}}
        },
        "/swaps/{id}/cancel": {
            "post": {"tags": ["swaps"], "summary": "Requester cancels a pending request", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition or concurrent update"}}}
        },
        "/swaps/{id}/complete": {
            "post": {"tags": ["swaps"], "summary": "Either party completes an accepted swap", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Invalid transition or concurrent update"}}}
        },
        "/swaps/{id}/rating": {
            "post": {"tags": ["ratings"], "summary": "Rate the counterparty of a completed swap", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Already rated"}}}
        },
        "/reports": {
            "post": {"tags": ["moderation"], "summary": "Report a member", "responses": {"201": {"description": "Created"}}}
        },
        "/skills/submissions": {
            "post": {"tags": ["moderation"], "summary": "Submit a skill for review", "responses": {"201": {"description": "Created"}}}
        },
        "/admin/overview": {
            "get": {"tags": ["admin"], "summary": "Platform counters", "responses": {"200": {"description": "OK"}, "403": {"description": "Admin only"}}}
        },
        "/admin/reports": {
            "get": {"tags": ["admin"], "summary": "Pending reports", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/reports/{id}/resolve": {
            "post": {"tags": ["admin"], "summary": "Resolve a report", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Already processed"}}}
        },
        "/admin/reports/{id}/dismiss": {
            "post": {"tags": ["admin"], "summary": "Dismiss a report", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "409": {"description": "Already processed"}}}
        },
        "/admin/submissions": {
            "get": {"tags": ["admin"], "summary": "Pending skill submissions", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/submissions/{id}/approve": {
            "post": {"tags": ["admin"], "summary": "Approve a skill submission", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/submissions/{id}/reject": {
            "post": {"tags": ["admin"], "summary": "Reject a skill submission", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/members/{id}/ban": {
            "post": {"tags": ["admin"], "summary": "Ban a member and cancel their active swaps", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "207": {"description": "Banned, some swaps could not be cancelled"}}}
        },
        "/admin/members/{id}/unban": {
            "post": {"tags": ["admin"], "summary": "Lift a ban", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/swaps/{id}/force-cancel": {
            "post": {"tags": ["admin"], "summary": "Cancel a pending or accepted swap", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/admin/broadcast": {
            "post": {"tags": ["admin"], "summary": "Message every active member", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Skill Swap API",
	Description:      "Member profiles, matching, swap requests, ratings and moderation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
