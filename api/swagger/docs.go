// Package swagger registers the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o api/swagger
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/login": {"post": {"tags": ["auth"], "summary": "Login user", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/refresh": {"post": {"tags": ["auth"], "summary": "Refresh token", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/logout": {"post": {"tags": ["auth"], "summary": "Logout", "responses": {"200": {"description": "OK"}}}},
        "/me": {"get": {"security": [{"BearerAuth": []}], "tags": ["auth"], "summary": "Get current user", "responses": {"200": {"description": "OK"}}}},
        "/users": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "List users", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Create a new user", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/users/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Get user by ID", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/documents": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["documents"], "summary": "List my documents", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["documents"], "summary": "Upload document", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}, "422": {"description": "Unprocessable Entity"}}}
        },
        "/api/documents/upload-url": {"post": {"security": [{"BearerAuth": []}], "tags": ["documents"], "summary": "Presigned upload URL", "responses": {"200": {"description": "OK"}}}},
        "/api/documents/visa-progress": {"get": {"security": [{"BearerAuth": []}], "tags": ["documents"], "summary": "Visa progress", "responses": {"200": {"description": "OK"}}}},
        "/api/documents/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["documents"], "summary": "Get document", "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}},
        "/api/documents/{id}/download-url": {"get": {"security": [{"BearerAuth": []}], "tags": ["documents"], "summary": "Presigned download URL", "responses": {"200": {"description": "OK"}}}},
        "/api/hr/documents": {"get": {"security": [{"BearerAuth": []}], "tags": ["hr"], "summary": "List documents", "responses": {"200": {"description": "OK"}}}},
        "/api/hr/documents/{id}/review": {"put": {"security": [{"BearerAuth": []}], "tags": ["hr"], "summary": "Review document", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/onboarding": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["onboarding"], "summary": "Get my onboarding", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["onboarding"], "summary": "Submit onboarding", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}
        },
        "/api/hr/onboarding": {"get": {"security": [{"BearerAuth": []}], "tags": ["hr"], "summary": "List onboarding", "responses": {"200": {"description": "OK"}}}},
        "/api/hr/onboarding/{id}": {"get": {"security": [{"BearerAuth": []}], "tags": ["hr"], "summary": "Get onboarding", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/hr/onboarding/{id}/review": {"put": {"security": [{"BearerAuth": []}], "tags": ["hr"], "summary": "Review onboarding", "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}}},
        "/api/notifications": {"get": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "List notifications", "responses": {"200": {"description": "OK"}}}},
        "/api/notifications/read-all": {"put": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Mark all notifications read", "responses": {"200": {"description": "OK"}}}},
        "/api/notifications/{id}/read": {"put": {"security": [{"BearerAuth": []}], "tags": ["notifications"], "summary": "Mark notification read", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/hr/statistics": {"get": {"security": [{"BearerAuth": []}], "tags": ["hr"], "summary": "Get review dashboard statistics", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
        "/api/audit-logs": {"get": {"security": [{"BearerAuth": []}], "tags": ["audit"], "summary": "Get audit logs", "responses": {"200": {"description": "OK"}}}}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "HR Portal API",
	Description:      "Employee onboarding and visa document review.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
