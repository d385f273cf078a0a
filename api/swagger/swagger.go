package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "University Academic Data Platform API",
        "description": "Academic rules engine: policy configuration, enrollment eligibility, grade lifecycle, standings and graduation audits.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "Policies", "description": "Grading scale, academic policy and classification ladders"},
        {"name": "Students", "description": "Student records and computed academic views"},
        {"name": "Enrollments", "description": "Enrollment eligibility and registration"},
        {"name": "Grades", "description": "Grade lifecycle: draft, submit, approve, reject, reopen"},
        {"name": "Analytics", "description": "Read-only academic aggregates"},
        {"name": "Reports", "description": "Asynchronous report generation"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/policies/scale": {
            "get": {
                "tags": ["Policies"],
                "summary": "Get the grading scale",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Policies"],
                "summary": "Replace the grading scale",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateScaleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Bands do not cover 0-100 without gaps or overlaps"}
                }
            }
        },
        "/policies/academic": {
            "get": {
                "tags": ["Policies"],
                "summary": "Get the institutional academic policy",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Policies"],
                "summary": "Replace the institutional academic policy",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdatePolicyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/standing": {
            "get": {
                "tags": ["Students"],
                "summary": "Get computed academic standing",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/transcript": {
            "get": {
                "tags": ["Students"],
                "summary": "Get full academic transcript",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/graduation-audit": {
            "get": {
                "tags": ["Students"],
                "summary": "Run graduation audit for a student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments/check": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Check enrollment eligibility without enrolling",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckEligibilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/enrollments": {
            "post": {
                "tags": ["Enrollments"],
                "summary": "Enroll student into an offering",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EnrollRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already enrolled, offering full or repeat limit reached"},
                    "412": {"description": "Offering inactive or prerequisites not met"}
                }
            }
        },
        "/grades/scores": {
            "post": {
                "tags": ["Grades"],
                "summary": "Record component scores",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordScoresRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Grade is not editable in its current state"}
                }
            }
        },
        "/grades/{id}/submit": {
            "post": {
                "tags": ["Grades"],
                "summary": "Submit grade for review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal state transition"}
                }
            }
        },
        "/grades/{id}/approve": {
            "post": {
                "tags": ["Grades"],
                "summary": "Approve submitted grade",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal state transition"}
                }
            }
        },
        "/analytics/grade-distribution": {
            "get": {
                "tags": ["Analytics"],
                "summary": "Grade distribution for an offering, course or session",
                "parameters": [
                    {"name": "offeringId", "in": "query", "type": "string"},
                    {"name": "courseId", "in": "query", "type": "string"},
                    {"name": "sessionId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/generate": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue a report for generation",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Report scope not permitted for this role"}
                }
            }
        },
        "/reports/{id}/status": {
            "get": {
                "tags": ["Reports"],
                "summary": "Get report job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "UpdateScaleRequest": {
            "type": "object",
            "properties": {
                "bands": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/GradingBand"}
                }
            },
            "required": ["bands"]
        },
        "GradingBand": {
            "type": "object",
            "properties": {
                "letter": {"type": "string"},
                "min_total": {"type": "number"},
                "max_total": {"type": "number"},
                "grade_point": {"type": "number"},
                "passing": {"type": "boolean"}
            }
        },
        "UpdatePolicyRequest": {
            "type": "object",
            "properties": {
                "repeat_rule": {"type": "string", "enum": ["LAST", "BEST", "AVERAGE"]},
                "max_attempts": {"type": "integer"},
                "ca_max": {"type": "number"},
                "exam_max": {"type": "number"},
                "probation_gpa": {"type": "number"},
                "dismissal_gpa": {"type": "number"},
                "at_risk_completion_pct": {"type": "number"}
            },
            "required": ["repeat_rule", "max_attempts"]
        },
        "CheckEligibilityRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "offering_id": {"type": "string"},
                "strict": {"type": "boolean"}
            },
            "required": ["student_id", "offering_id"]
        },
        "EnrollRequest": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "offering_id": {"type": "string"},
                "strict": {"type": "boolean"}
            },
            "required": ["student_id", "offering_id"]
        },
        "RecordScoresRequest": {
            "type": "object",
            "properties": {
                "enrollment_id": {"type": "string"},
                "ca_score": {"type": "number"},
                "exam_score": {"type": "number"}
            },
            "required": ["enrollment_id"]
        },
        "ReportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["transcript", "grade_sheet", "cohort_audit"]},
                "student_id": {"type": "string"},
                "offering_id": {"type": "string"},
                "program_id": {"type": "string"},
                "level_id": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            },
            "required": ["type", "format"]
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
