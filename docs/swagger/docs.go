// Package swagger registers the OpenAPI document with swag.
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/jackzampolin/pcr"
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
        "/health": {
            "get": {
                "description": "Returns ok while the HTTP server is responding",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.HealthResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Returns ok when an LLM client is configured",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/endpoints.HealthResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "description": "Server version, registered providers and extraction settings",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Detailed status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.StatusResponse"}}
                }
            }
        },
        "/metrics": {
            "get": {
                "description": "Recent extraction calls, newest first, with optional filtering",
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "List metrics",
                "parameters": [
                    {"type": "string", "description": "Filter by provider", "name": "provider", "in": "query"},
                    {"type": "string", "description": "Filter by model", "name": "model", "in": "query"},
                    {"type": "string", "description": "Filter by repair status", "name": "repair_status", "in": "query"},
                    {"type": "boolean", "description": "Filter by call success", "name": "success", "in": "query"},
                    {"type": "integer", "description": "Maximum results (default 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.ListMetricsResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "description": "Counts, repair outcomes, token usage and latency percentiles over the recorded window",
                "produces": ["application/json"],
                "tags": ["metrics"],
                "summary": "Metrics summary",
                "parameters": [
                    {"type": "string", "description": "Filter by provider", "name": "provider", "in": "query"},
                    {"type": "string", "description": "Filter by model", "name": "model", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/endpoints.MetricsSummaryResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}}
                }
            }
        },
        "/report_create": {
            "post": {
                "description": "Sends the narrative to the LLM with the fixed extraction prompt and returns the repaired JSON value, or null when the model output could not be repaired. X-Repair-Status is ok, empty_input or parse_error.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Extract a patient care report",
                "parameters": [
                    {
                        "description": "Narrative text",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/endpoints.ReportCreateRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Extracted report, or null",
                        "schema": {"type": "object"},
                        "headers": {
                            "X-Repair-Status": {"type": "string", "description": "ok, empty_input or parse_error"},
                            "X-Request-ID": {"type": "string", "description": "Request identifier"},
                            "X-Schema-Issues": {"type": "integer", "description": "Schema violations (validation warn mode)"}
                        }
                    },
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}},
                    "422": {"description": "Schema violations (validation strict mode)", "schema": {"$ref": "#/definitions/endpoints.SchemaIssuesResponse"}},
                    "502": {"description": "Provider failure", "schema": {"$ref": "#/definitions/endpoints.ProviderErrorResponse"}},
                    "503": {"description": "No LLM provider configured", "schema": {"$ref": "#/definitions/endpoints.ErrorResponse"}},
                    "504": {"description": "Provider timeout", "schema": {"$ref": "#/definitions/endpoints.ProviderErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "endpoints.ListMetricsResponse": {
            "type": "object",
            "properties": {
                "count": {"type": "integer"},
                "metrics": {"type": "array", "items": {"$ref": "#/definitions/metrics.Metric"}}
            }
        },
        "endpoints.MetricsSummaryResponse": {
            "type": "object",
            "properties": {
                "by_provider": {"type": "object", "additionalProperties": {"$ref": "#/definitions/metrics.DetailedStats"}},
                "detailed": {"$ref": "#/definitions/metrics.DetailedStats"},
                "recorded": {"type": "integer"},
                "summary": {"$ref": "#/definitions/metrics.Summary"},
                "window": {"type": "integer"}
            }
        },
        "metrics.DetailedStats": {
            "type": "object",
            "properties": {
                "avg_completion_tokens": {"type": "number"},
                "avg_prompt_tokens": {"type": "number"},
                "avg_total_tokens": {"type": "number"},
                "count": {"type": "integer"},
                "error_count": {"type": "integer"},
                "latency_avg": {"type": "number"},
                "latency_max": {"type": "number"},
                "latency_min": {"type": "number"},
                "latency_p50": {"type": "number"},
                "latency_p95": {"type": "number"},
                "latency_p99": {"type": "number"},
                "success_count": {"type": "integer"},
                "total_completion_tokens": {"type": "integer"},
                "total_prompt_tokens": {"type": "integer"},
                "total_reasoning_tokens": {"type": "integer"},
                "total_tokens": {"type": "integer"}
            }
        },
        "metrics.Metric": {
            "type": "object",
            "properties": {
                "completion_tokens": {"type": "integer"},
                "created_at": {"type": "string"},
                "error_type": {"type": "string"},
                "execution_seconds": {"type": "number"},
                "id": {"type": "string"},
                "model": {"type": "string"},
                "prompt_tokens": {"type": "integer"},
                "provider": {"type": "string"},
                "reasoning_tokens": {"type": "integer"},
                "repair_status": {"type": "string"},
                "request_id": {"type": "string"},
                "schema_issues": {"type": "integer"},
                "success": {"type": "boolean"},
                "total_seconds": {"type": "number"},
                "total_tokens": {"type": "integer"}
            }
        },
        "metrics.Summary": {
            "type": "object",
            "properties": {
                "avg_time_seconds": {"type": "number"},
                "avg_tokens": {"type": "number"},
                "count": {"type": "integer"},
                "error_count": {"type": "integer"},
                "repair_status": {"type": "object", "additionalProperties": {"type": "integer"}},
                "success_count": {"type": "integer"},
                "total_time": {"type": "integer"},
                "total_tokens": {"type": "integer"}
            }
        },
        "endpoints.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "endpoints.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "llm": {"type": "string"}
            }
        },
        "endpoints.ProviderErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "type": {"type": "string"},
                "provider": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "endpoints.ReportCreateRequest": {
            "type": "object",
            "required": ["text"],
            "properties": {"text": {"type": "string"}}
        },
        "endpoints.SchemaIssuesResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "issues": {"type": "array", "items": {"$ref": "#/definitions/report.Issue"}}
            }
        },
        "endpoints.StatusResponse": {
            "type": "object",
            "properties": {
                "server": {"type": "string"},
                "version": {"type": "string"},
                "config_file": {"type": "string"},
                "providers": {"type": "object", "properties": {"llm": {"type": "array", "items": {"type": "string"}}}},
                "extraction": {
                    "type": "object",
                    "properties": {
                        "provider": {"type": "string"},
                        "model": {"type": "string"},
                        "validation": {"type": "string"}
                    }
                }
            }
        },
        "report.Issue": {
            "type": "object",
            "properties": {
                "path": {"type": "string"},
                "message": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "pcr API",
	Description:      "Extracts structured patient care reports from free-text EMS narratives.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
