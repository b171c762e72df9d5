// Package docs holds the generated OpenAPI document. Regenerate with
// `swag init -g cmd/chatd/docs.go -o docs` after changing handler annotations.
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
        "/api/chat": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Stream a chat completion",
                "parameters": [
                    {
                        "description": "chat request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.ChatRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "NDJSON stream of token lines",
                        "schema": {"$ref": "#/definitions/types.TokenMessage"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    }
                }
            }
        },
        "/api/chat/{id}/history": {
            "get": {
                "produces": ["application/json"],
                "summary": "Get conversation history",
                "parameters": [
                    {
                        "type": "string",
                        "description": "conversation id",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/types.HistoryResponse"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/types.ErrorResponse"}
                    }
                }
            }
        },
        "/api/conversations": {
            "post": {
                "produces": ["application/json"],
                "summary": "Create a conversation",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        }
    },
    "definitions": {
        "types.ChatEntry": {
            "type": "object",
            "properties": {
                "conversation_id": {"type": "string"},
                "type": {"type": "string"},
                "content": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "types.ChatRequest": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string"},
                "conversation_id": {"type": "string"},
                "system_prompt": {"type": "string"},
                "num_predict": {"type": "integer"},
                "n_batch": {"type": "integer"},
                "top_k": {"type": "integer"},
                "top_p": {"type": "number"},
                "repeat_penalty": {"type": "number"},
                "temperature": {"type": "number"},
                "play_back_tokens": {"type": "boolean"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer"}
            }
        },
        "types.HistoryResponse": {
            "type": "object",
            "properties": {
                "conversation_id": {"type": "string"},
                "entries": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/types.ChatEntry"}
                }
            }
        },
        "types.TokenMessage": {
            "type": "object",
            "properties": {
                "token": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "chatd API",
	Description:      "HTTP API for streamed LLM chat with persisted conversations.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
