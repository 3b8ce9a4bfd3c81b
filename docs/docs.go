// Package docs holds the OpenAPI document served under /swagger. It is kept
// in step with the handler annotations by hand and registered with swag on
// import.
package docs

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
        "/api/users": {
            "post": {
                "description": "Records a user and display name on first login. Repeat calls keep the first name.",
                "consumes": ["application/json"],
                "tags": ["users"],
                "summary": "Register user",
                "parameters": [
                    {"description": "User", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.registerRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/me/subscriptions": {
            "get": {
                "description": "Returns the caller's subscriptions with monthly and yearly spend.",
                "produces": ["application/json"],
                "tags": ["subscriptions"],
                "summary": "List subscriptions",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.dashboardView"}},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"}
                }
            },
            "post": {
                "description": "Adds a subscription and sends a new-subscription notice to the caller's webhook.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["subscriptions"],
                "summary": "Add subscription",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true},
                    {"description": "Subscription", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.SubscriptionInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/http.subscriptionView"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/api/me/subscriptions/{name}": {
            "put": {
                "description": "Replaces every field of the subscription currently named :name.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["subscriptions"],
                "summary": "Edit subscription",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Current subscription name", "name": "name", "in": "path", "required": true},
                    {"description": "Subscription", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/models.SubscriptionInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.subscriptionView"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"},
                    "409": {"description": "Conflict"}
                }
            },
            "delete": {
                "tags": ["subscriptions"],
                "summary": "Remove subscription",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Subscription name", "name": "name", "in": "path", "required": true}
                ],
                "responses": {"204": {"description": "No Content"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/me/webhook": {
            "put": {
                "description": "Sets the caller's notification webhook. An empty url turns notifications off.",
                "consumes": ["application/json"],
                "tags": ["users"],
                "summary": "Set webhook",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true},
                    {"description": "Webhook", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.webhookRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/me/currency": {
            "put": {
                "consumes": ["application/json"],
                "tags": ["users"],
                "summary": "Set display currency",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true},
                    {"description": "Currency", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.currencyRequest"}}
                ],
                "responses": {"204": {"description": "No Content"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/notifications/check": {
            "post": {
                "description": "Runs the renewal pipeline once and reports what happened.",
                "produces": ["application/json"],
                "tags": ["notifications"],
                "summary": "Run renewal notifications now",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/notifier.RunResult"}},
                    "401": {"description": "Unauthorized"},
                    "500": {"description": "Internal Server Error"}
                }
            }
        },
        "/api/operator/login": {
            "post": {
                "description": "Exchanges the operator secret for a capability token valid for one hour.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["operator"],
                "summary": "Operator login",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true},
                    {"description": "Secret", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/operator.Token"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "429": {"description": "Too Many Requests"}
                }
            }
        },
        "/api/operator/logout": {
            "post": {
                "tags": ["operator"],
                "summary": "Operator logout",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Capability token", "name": "X-Operator-Token", "in": "header", "required": true}
                ],
                "responses": {"204": {"description": "No Content"}, "401": {"description": "Unauthorized"}, "403": {"description": "Forbidden"}}
            }
        },
        "/api/operator/broadcast": {
            "post": {
                "description": "Sends an urgent message to every registered webhook, one at a time.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["operator"],
                "summary": "Broadcast urgent message",
                "parameters": [
                    {"type": "string", "description": "Authenticated user id", "name": "X-User-ID", "in": "header", "required": true},
                    {"type": "string", "description": "Capability token", "name": "X-Operator-Token", "in": "header", "required": true},
                    {"description": "Message", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.broadcastRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/broadcast.Summary"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"}
                }
            }
        }
    },
    "definitions": {
        "broadcast.Summary": {
            "type": "object",
            "properties": {"failedCount": {"type": "integer"}, "sentCount": {"type": "integer"}}
        },
        "http.broadcastRequest": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "title": {"type": "string"}}
        },
        "http.currencyRequest": {
            "type": "object",
            "required": ["currency"],
            "properties": {"currency": {"type": "string"}}
        },
        "http.dashboardView": {
            "type": "object",
            "properties": {
                "monthlyTotal": {"type": "string"},
                "subscriptions": {"type": "array", "items": {"$ref": "#/definitions/http.subscriptionView"}},
                "user": {"$ref": "#/definitions/http.userView"},
                "yearlyTotal": {"type": "string"}
            }
        },
        "http.loginRequest": {
            "type": "object",
            "required": ["secret"],
            "properties": {"secret": {"type": "string"}}
        },
        "http.registerRequest": {
            "type": "object",
            "required": ["id"],
            "properties": {"id": {"type": "string"}, "name": {"type": "string"}}
        },
        "http.subscriptionView": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "monthlyEquivalent": {"type": "string"},
                "name": {"type": "string"},
                "notifyDays": {"type": "integer"},
                "price": {"type": "string"},
                "renewalFrequency": {"type": "string"},
                "renewsAt": {"type": "string"}
            }
        },
        "http.userView": {
            "type": "object",
            "properties": {
                "currency": {"type": "string"},
                "id": {"type": "string"},
                "name": {"type": "string"},
                "webhookConfigured": {"type": "boolean"}
            }
        },
        "http.webhookRequest": {
            "type": "object",
            "properties": {"url": {"type": "string"}}
        },
        "models.SubscriptionInput": {
            "type": "object",
            "required": ["name", "price"],
            "properties": {
                "name": {"type": "string"},
                "notifyDays": {"type": "integer", "minimum": 0},
                "price": {"type": "string"},
                "renewalFrequency": {"type": "string", "enum": ["weekly", "monthly", "quarterly", "semi-annually", "yearly"]},
                "renewsAt": {"type": "string"}
            }
        },
        "notifier.RunResult": {
            "type": "object",
            "properties": {
                "due": {"type": "integer"},
                "failed": {"type": "integer"},
                "sent": {"type": "integer"},
                "skipped": {"type": "integer"}
            }
        },
        "operator.Token": {
            "type": "object",
            "properties": {"expiresAt": {"type": "string"}, "token": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Subscription Tracker API",
	Description:      "Tracks recurring subscriptions and notifies users through their webhooks before renewal.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
