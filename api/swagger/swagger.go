package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Research Track API",
        "description": "Graduate research progress tracking for multi-school universities",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Login, refresh tokens and session management"},
        {"name": "Statuses", "description": "Status catalog and timelines"},
        {"name": "Schools", "description": "Schools and campuses"},
        {"name": "Students", "description": "Student registry and progress"},
        {"name": "Workflow", "description": "Proposal, defense, book and examination transitions"},
        {"name": "Roster", "description": "Reviewers, panelists and examiners"},
        {"name": "Reports", "description": "Delay reports, exports and letters"},
        {"name": "Dashboard", "description": "Aggregate summaries"},
        {"name": "Metrics", "description": "Runtime metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue token pair",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}}
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate refresh token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Expired or revoked token"}}
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke refresh token",
                "responses": {"204": {"description": "Logged out"}}
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Auth"],
                "summary": "Change current user's password",
                "responses": {"204": {"description": "Changed"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/statuses": {
            "get": {
                "tags": ["Statuses"],
                "summary": "List status definitions",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Statuses"],
                "summary": "Create status definition",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Name already in use"}}
            }
        },
        "/statuses/{id}": {
            "put": {
                "tags": ["Statuses"],
                "summary": "Update status definition",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/timelines/{kind}/{id}/history": {
            "get": {
                "tags": ["Statuses"],
                "summary": "Status history for an owner",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["student", "proposal", "book"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/timelines/{kind}/{id}/current": {
            "get": {
                "tags": ["Statuses"],
                "summary": "Current status for an owner",
                "parameters": [
                    {"name": "kind", "in": "path", "required": true, "type": "string", "enum": ["student", "proposal", "book"]},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "No current status"}}
            }
        },
        "/schools": {
            "get": {
                "tags": ["Schools"],
                "summary": "List schools",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Schools"],
                "summary": "Create school",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/campuses": {
            "get": {
                "tags": ["Schools"],
                "summary": "List campuses",
                "parameters": [{"name": "schoolId", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Schools"],
                "summary": "Create campus",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/students": {
            "get": {
                "tags": ["Students"],
                "summary": "List students with filters and pagination",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Students"],
                "summary": "Register student",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Registration number in use"}}
            }
        },
        "/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Student detail",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Students"],
                "summary": "Update student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Students"],
                "summary": "Deactivate student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deactivated"}}
            }
        },
        "/students/{id}/supervisor": {
            "put": {
                "tags": ["Students"],
                "summary": "Assign or replace supervisor",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}/progress": {
            "get": {
                "tags": ["Students"],
                "summary": "Aggregated progress view",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}/proposals": {
            "get": {
                "tags": ["Workflow"],
                "summary": "Proposals for a student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Workflow"],
                "summary": "Submit proposal",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/proposals/{id}/reviewers": {
            "put": {
                "tags": ["Workflow"],
                "summary": "Assign reviewers",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/proposals/{id}/review-marks": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Record reviewer mark and verdict",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/proposals/{id}/defenses": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Schedule proposal defense",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"201": {"description": "Scheduled"}}
            }
        },
        "/proposals/{id}/defense-verdict": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Record defense verdict",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/proposals/{id}/defense-marks": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Record panelist defense mark",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}/field-letter": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Issue field research letter",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/students/{id}/field-letter.pdf": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download field authorization letter",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "produces": ["application/pdf"],
                "responses": {"200": {"description": "PDF"}, "409": {"description": "Letter not issued"}}
            }
        },
        "/students/{id}/books": {
            "get": {
                "tags": ["Workflow"],
                "summary": "Books for a student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Workflow"],
                "summary": "Submit book",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/books/{id}/examiners": {
            "put": {
                "tags": ["Workflow"],
                "summary": "Assign examiners",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/books/{id}/examiner-marks": {
            "post": {
                "tags": ["Workflow"],
                "summary": "Record examiner mark",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reviewers": {
            "get": {"tags": ["Roster"], "summary": "List reviewers", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Roster"], "summary": "Create reviewer", "responses": {"201": {"description": "Created"}}}
        },
        "/panelists": {
            "get": {"tags": ["Roster"], "summary": "List panelists", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Roster"], "summary": "Create panelist", "responses": {"201": {"description": "Created"}}}
        },
        "/examiners": {
            "get": {"tags": ["Roster"], "summary": "List examiners", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["Roster"], "summary": "Create examiner", "responses": {"201": {"description": "Created"}}}
        },
        "/reports/delays": {
            "get": {
                "tags": ["Reports"],
                "summary": "Delay report",
                "parameters": [{"name": "schoolId", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/exports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue delay report export",
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/reports/exports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export job status",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/reports/downloads/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download finished export",
                "parameters": [{"name": "token", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "File"}, "403": {"description": "Invalid or expired token"}}
            }
        },
        "/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Status distribution and school summaries",
                "parameters": [{"name": "schoolId", "in": "query", "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/dashboard/reconciliation": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Owners missing a current status record",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/metrics/snapshot": {
            "get": {
                "tags": ["Metrics"],
                "summary": "Runtime metrics snapshot",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
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
