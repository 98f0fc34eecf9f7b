package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleOpenAPISpec serves the OpenAPI JSON specification
func (s *APIServer) handleOpenAPISpec(c echo.Context) error {
	spec := getOpenAPISpec()
	spec["servers"] = []map[string]interface{}{
		{"url": "http://" + s.address + "/api/v1", "description": "Local server"},
	}
	return c.JSON(http.StatusOK, spec)
}

type operation struct {
	summary     string
	description string
	request     string
	response    string
	status      string
	pathID      bool
	query       string
}

func (op operation) build() map[string]interface{} {
	status := op.status
	if status == "" {
		status = "200"
	}
	out := map[string]interface{}{
		"summary": op.summary,
		"responses": map[string]interface{}{
			status: jsonContent("Success", op.response),
			"400":  jsonContent("Bad request", "ErrorResponse"),
			"500":  jsonContent("Internal server error", "ErrorResponse"),
		},
	}
	if op.description != "" {
		out["description"] = op.description
	}
	if op.request != "" {
		out["requestBody"] = map[string]interface{}{
			"required": true,
			"content": map[string]interface{}{
				"application/json": map[string]interface{}{"schema": ref(op.request)},
			},
		}
	}
	var params []map[string]interface{}
	if op.pathID {
		params = append(params, map[string]interface{}{
			"name": "id", "in": "path", "required": true,
			"schema": map[string]interface{}{"type": "string"},
		})
		out["responses"].(map[string]interface{})["404"] = jsonContent("Template not found", "ErrorResponse")
	}
	if op.query != "" {
		params = append(params, map[string]interface{}{
			"name": op.query, "in": "query", "required": false,
			"schema": map[string]interface{}{"type": "string"},
		})
	}
	if len(params) > 0 {
		out["parameters"] = params
	}
	return out
}

func ref(schema string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + schema}
}

func jsonContent(description, schema string) map[string]interface{} {
	out := map[string]interface{}{"description": description}
	if schema != "" {
		out["content"] = map[string]interface{}{
			"application/json": map[string]interface{}{"schema": ref(schema)},
		}
	}
	return out
}

func object(props map[string]string, required ...string) map[string]interface{} {
	properties := make(map[string]interface{}, len(props))
	for name, typ := range props {
		properties[name] = map[string]interface{}{"type": typ}
	}
	out := map[string]interface{}{"type": "object", "properties": properties}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

// getOpenAPISpec returns the OpenAPI 3.0 specification
func getOpenAPISpec() map[string]interface{} {
	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "pocket-meta API",
			"description": "Generate YAML front matter for markdown notes",
			"version":     "1.0.0",
		},
		"paths": map[string]interface{}{
			"/generate": map[string]interface{}{
				"post": operation{
					summary:     "Generate metadata",
					description: "Generates metadata for a file path or inline content. Inline content is always previewed.",
					request:     "GenerateRequest",
					response:    "APIResponse",
				}.build(),
			},
			"/insert": map[string]interface{}{
				"post": operation{summary: "Insert metadata", request: "InsertRequest", response: "APIResponse"}.build(),
			},
			"/suggest": map[string]interface{}{
				"post": operation{summary: "Suggest templates", request: "TextRequest", response: "APIResponse"}.build(),
			},
			"/estimate": map[string]interface{}{
				"post": operation{summary: "Estimate cost", request: "TextRequest", response: "APIResponse"}.build(),
			},
			"/templates": map[string]interface{}{
				"get":  operation{summary: "List or search templates", response: "APIResponse", query: "q"}.build(),
				"post": operation{summary: "Create a custom template", request: "TemplateInput", response: "APIResponse", status: "201"}.build(),
			},
			"/templates/{id}": map[string]interface{}{
				"get":    operation{summary: "Get a template", response: "APIResponse", pathID: true}.build(),
				"put":    operation{summary: "Update a custom template", request: "TemplatePatch", response: "APIResponse", pathID: true}.build(),
				"delete": operation{summary: "Delete a custom template", response: "APIResponse", pathID: true}.build(),
			},
			"/templates/{id}/duplicate": map[string]interface{}{
				"post": operation{summary: "Duplicate a template", response: "APIResponse", pathID: true, status: "201"}.build(),
			},
			"/usage": map[string]interface{}{
				"get":    operation{summary: "Usage statistics", response: "APIResponse"}.build(),
				"delete": operation{summary: "Reset usage statistics", response: "APIResponse"}.build(),
			},
			"/health": map[string]interface{}{
				"get": operation{summary: "Health check", response: "APIResponse"}.build(),
			},
		},
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"APIResponse": object(map[string]string{
					"success": "boolean", "data": "object", "message": "string", "error": "object", "timestamp": "string",
				}),
				"ErrorResponse": object(map[string]string{"success": "boolean", "error": "object", "timestamp": "string"}),
				"GenerateRequest": object(map[string]string{
					"path": "string", "content": "string", "fileName": "string", "templateId": "string", "autoSelect": "boolean", "preview": "boolean",
				}),
				"InsertRequest": object(map[string]string{
					"path": "string", "content": "string", "metadata": "string", "replaceExisting": "boolean",
				}, "metadata"),
				"TextRequest": object(map[string]string{"content": "string", "fileName": "string"}, "content"),
				"TemplateInput": object(map[string]string{
					"name": "string", "description": "string", "yamlSkeleton": "string", "generationInstructions": "string",
				}, "name", "yamlSkeleton", "generationInstructions"),
				"TemplatePatch": object(map[string]string{
					"name": "string", "description": "string", "yamlSkeleton": "string", "generationInstructions": "string",
				}),
			},
		},
	}
}
