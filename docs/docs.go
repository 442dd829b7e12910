// Package docs serves the OpenAPI document for the exchange API.
//
// Regenerate with `swag init -g cmd/api/main.go -o docs` after changing
// handler annotations.
//
//	@title			Bottle Exchange API
//	@version		1.0.0
//	@description	Clients post bottle-exchange orders, runners accept and complete them.
//	@description	Order events and chat lines are pushed over /ws.
//	@BasePath		/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT from /auth/login. Format: "Bearer {token}"
//
//	@tag.name			auth
//	@tag.description	Registration, verification, login and profile
//	@tag.name			orders
//	@tag.description	Order lifecycle
//	@tag.name			messages
//	@tag.description	Per-order chat between client and runner
//	@tag.name			realtime
//	@tag.description	Notification channel
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
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "responses": {"201": {"description": "Created"}, "409": {"description": "USER_EXISTS"}, "422": {"description": "VALIDATION_FAILED"}}}},
        "/auth/verify": {"post": {"tags": ["auth"], "summary": "Verify an account with the mailed code", "responses": {"200": {"description": "OK"}, "400": {"description": "INVALID_CODE"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Log in with username or e-mail", "responses": {"200": {"description": "OK"}, "401": {"description": "INVALID_CREDENTIAL"}, "403": {"description": "NOT_VERIFIED"}}}},
        "/auth/forgot-password": {"post": {"tags": ["auth"], "summary": "Mail a password reset code", "responses": {"200": {"description": "OK"}}}},
        "/auth/reset-password": {"post": {"tags": ["auth"], "summary": "Reset the password with a code", "responses": {"200": {"description": "OK"}, "400": {"description": "INVALID_CODE"}}}},
        "/me": {
            "get": {"tags": ["auth"], "summary": "Current profile", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["auth"], "summary": "Update profile fields", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}, "400": {"description": "NOTHING_TO_UPDATE"}}}
        },
        "/orders": {
            "post": {"tags": ["orders"], "summary": "Place an exchange order", "security": [{"BearerAuth": []}], "responses": {"201": {"description": "Created"}, "409": {"description": "ACTIVE_ORDER_EXISTS"}}},
            "get": {"tags": ["orders"], "summary": "List pending orders", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
        },
        "/my-orders": {"get": {"tags": ["orders"], "summary": "List the caller's orders", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}},
        "/orders/{id}/accept": {"post": {"tags": ["orders"], "summary": "Accept a pending order", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "409": {"description": "ALREADY_ACCEPTED or ACTIVE_ORDER_EXISTS"}}}},
        "/orders/{id}/request-verification": {"post": {"tags": ["orders"], "summary": "Ask the client for the verification code", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "409": {"description": "INVALID_STATE"}}}},
        "/orders/{id}/complete": {"post": {"tags": ["orders"], "summary": "Complete an accepted order", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "400": {"description": "INVALID_CODE"}, "409": {"description": "INVALID_STATE"}}}},
        "/orders/{id}/cancel": {"post": {"tags": ["orders"], "summary": "Cancel an order", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "409": {"description": "INVALID_STATE"}}}},
        "/orders/{id}/messages": {
            "get": {"tags": ["messages"], "summary": "List an order's messages", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["messages"], "summary": "Send a message to the other participant", "security": [{"BearerAuth": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"201": {"description": "Created"}, "400": {"description": "NO_RECIPIENT"}}}
        },
        "/ws": {"get": {"tags": ["realtime"], "summary": "Open the notification channel", "parameters": [{"name": "token", "in": "query", "required": true, "type": "string"}], "responses": {"101": {"description": "Switching Protocols"}}}},
        "/health": {"get": {"summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}},
        "/health/ready": {"get": {"summary": "Readiness probe", "responses": {"200": {"description": "OK"}, "503": {"description": "degraded"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Bottle Exchange API",
	Description:      "Clients post bottle-exchange orders, runners accept and complete them.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
