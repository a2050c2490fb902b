package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "MFI Loan Engine API",
        "description": "Loan amortization, arrears classification and portfolio reclassification",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Loans", "description": "Schedule previews and per-loan evaluation"},
        {"name": "Portfolio", "description": "Batch reclassification and portfolio at risk"},
        {"name": "Observability", "description": "Health and metrics"}
    ],
    "paths": {
        "/loans/schedule/preview": {
            "post": {
                "tags": ["Loans"],
                "summary": "Preview an amortization schedule",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SchedulePreviewRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invalid loan terms", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/{id}/state": {
            "get": {
                "tags": ["Loans"],
                "summary": "Evaluate a loan as of a date",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "asOf", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Loan not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Loan cannot be evaluated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/states": {
            "get": {
                "tags": ["Loans"],
                "summary": "List stored loan classifications",
                "parameters": [
                    {"name": "class", "in": "query", "type": "string", "enum": ["performing", "watch", "substandard", "doubtful", "loss"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/portfolio/summary": {
            "get": {
                "tags": ["Portfolio"],
                "summary": "Portfolio summary of the last reclassification",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No run yet", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/loans/reclassify": {
            "post": {
                "tags": ["Portfolio"],
                "summary": "Run portfolio reclassification",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ReclassifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A run is already in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/metrics/snapshot": {
            "get": {
                "tags": ["Observability"],
                "summary": "Service metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SchedulePreviewRequest": {
            "type": "object",
            "required": ["principal", "annualInterestRate", "termMonths", "repaymentFrequency", "interestMethod", "startDate"],
            "properties": {
                "principal": {"type": "string", "example": "100000"},
                "annualInterestRate": {"type": "string", "example": "12"},
                "termMonths": {"type": "integer", "minimum": 1},
                "repaymentFrequency": {"type": "string", "enum": ["daily", "weekly", "bi_weekly", "monthly", "quarterly"]},
                "interestMethod": {"type": "string", "enum": ["flat", "reducing_balance"]},
                "startDate": {"type": "string", "format": "date"}
            }
        },
        "ReclassifyRequest": {
            "type": "object",
            "properties": {
                "asOf": {"type": "string", "format": "date"},
                "includeDeltas": {"type": "boolean"}
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
