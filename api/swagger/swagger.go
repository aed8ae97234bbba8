package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "University Portal API",
        "description": "Request lifecycle and routing backend for the academic portal",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Requests", "description": "Student request lifecycle"},
        {"name": "Routing", "description": "Request type routing rules"},
        {"name": "Deadlines", "description": "Per-type deadline windows"},
        {"name": "Notifications", "description": "In-app notification feed"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and receive an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/submit_request/create": {
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a new request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Handler resolution failed"}
                }
            }
        },
        "/request/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get one request with its timeline and replies",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/Requests/EditRequest/{id}": {
            "put": {
                "tags": ["Requests"],
                "summary": "Edit the details of an open request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditRequestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request no longer editable"}
                }
            }
        },
        "/Requests/{id}": {
            "delete": {
                "tags": ["Requests"],
                "summary": "Delete a pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Request no longer deletable"}
                }
            }
        },
        "/request/{id}/transfer": {
            "put": {
                "tags": ["Requests"],
                "summary": "Transfer a request to a new handler",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransferRequestRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Closed requests cannot be transferred"},
                    "422": {"description": "Handler resolution failed"}
                }
            }
        },
        "/submit_response": {
            "post": {
                "tags": ["Requests"],
                "summary": "Record a staff reply to a request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitResponseRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Request cannot accept a response"}
                }
            }
        },
        "/update_status": {
            "post": {
                "tags": ["Requests"],
                "summary": "Move a request to a new lifecycle status",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal status transition"}
                }
            }
        },
        "/requests/{user}": {
            "get": {
                "tags": ["Requests"],
                "summary": "List a student's requests with timelines",
                "parameters": [
                    {"name": "user", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/professor/{email}": {
            "get": {
                "tags": ["Requests"],
                "summary": "List requests assigned to an instructor",
                "parameters": [
                    {"name": "email", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/secretary/queue": {
            "get": {
                "tags": ["Requests"],
                "summary": "List open requests owned by the calling secretary",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/requests/export": {
            "get": {
                "tags": ["Requests"],
                "summary": "Export the request register as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/api/request_routing_rules": {
            "get": {
                "tags": ["Routing"],
                "summary": "List routing rules",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/request_routing_rules/{type}": {
            "get": {
                "tags": ["Routing"],
                "summary": "Get the routing rule for a request type",
                "parameters": [
                    {"name": "type", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No explicit rule"}
                }
            },
            "put": {
                "tags": ["Routing"],
                "summary": "Set the destination for a request type",
                "parameters": [
                    {"name": "type", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRoutingRuleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid destination"}
                }
            }
        },
        "/api/deadline_configs": {
            "get": {
                "tags": ["Deadlines"],
                "summary": "List active deadline windows",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Deadlines"],
                "summary": "Create or update a deadline window",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertDeadlineConfigRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/deadline_configs/{type}": {
            "delete": {
                "tags": ["Deadlines"],
                "summary": "Deactivate the deadline window for a request type",
                "parameters": [
                    {"name": "type", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deactivated"},
                    "404": {"description": "No active config"}
                }
            }
        },
        "/notifications/{user}": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List a user's notifications",
                "parameters": [
                    {"name": "user", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "put": {
                "tags": ["Notifications"],
                "summary": "Mark one notification as read",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Marked read"},
                    "404": {"description": "Not found or already read"}
                }
            }
        },
        "/notifications/read-all": {
            "put": {
                "tags": ["Notifications"],
                "summary": "Mark all of the caller's notifications as read",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "CreateRequestRequest": {
            "type": "object",
            "required": ["type", "details"],
            "properties": {
                "type": {"type": "string"},
                "title": {"type": "string"},
                "details": {"type": "string"},
                "course_id": {"type": "string"},
                "files": {"type": "object"},
                "grade_appeal": {"$ref": "#/definitions/GradeAppealDetails"},
                "schedule_change": {"$ref": "#/definitions/ScheduleChangeDetails"}
            }
        },
        "GradeAppealDetails": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "grade_component": {"type": "string"}
            }
        },
        "ScheduleChangeDetails": {
            "type": "object",
            "properties": {
                "candidate_instructors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "EditRequestRequest": {
            "type": "object",
            "required": ["details"],
            "properties": {
                "details": {"type": "string"}
            }
        },
        "TransferRequestRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "new_course_id": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "SubmitResponseRequest": {
            "type": "object",
            "required": ["request_id", "response_text"],
            "properties": {
                "request_id": {"type": "string"},
                "response_text": {"type": "string"},
                "files": {"type": "object"}
            }
        },
        "UpdateStatusRequest": {
            "type": "object",
            "required": ["request_id", "status"],
            "properties": {
                "request_id": {"type": "string"},
                "status": {"type": "string", "enum": ["RESPONDED", "REQUIRE_EDITING", "CLOSED"]},
                "note": {"type": "string"}
            }
        },
        "UpdateRoutingRuleRequest": {
            "type": "object",
            "required": ["destination"],
            "properties": {
                "destination": {"type": "string", "enum": ["instructor", "secretary"]}
            }
        },
        "UpsertDeadlineConfigRequest": {
            "type": "object",
            "required": ["request_type", "deadline_days"],
            "properties": {
                "request_type": {"type": "string"},
                "deadline_days": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
