// Package docs is generated by swag init; regenerate it after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "termsOfService": "http://swagger.io/terms/",
        "contact": {},
        "license": {
            "name": "Apache 2.0",
            "url": "http://www.apache.org/licenses/LICENSE-2.0.html"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ask": {
            "post": {
                "description": "Accepts a legal question, queues an answer job, and returns a job ID to track status.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Questions"],
                "summary": "Ask a legal question",
                "parameters": [
                    {
                        "description": "Question",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.AskRequest"}
                    }
                ],
                "responses": {
                    "202": {"description": "Job successfully created", "schema": {"$ref": "#/definitions/api.InitJobResponse"}},
                    "400": {"description": "Empty or malformed question", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/ingest": {
            "post": {
                "description": "Receives a PDF, DOCX, ODT, RTF or TXT file via multipart/form-data, saves it to the upload directory, and queues an ingestion job.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Ingestion"],
                "summary": "Upload a document for ingestion",
                "parameters": [
                    {"type": "string", "description": "Display name of the document", "name": "document_name", "in": "formData"},
                    {"type": "file", "description": "The document to ingest", "name": "document", "in": "formData", "required": true}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.InitJobResponse"}},
                    "400": {"description": "Missing file, unsupported type, or too large", "schema": {"$ref": "#/definitions/api.JobResponse"}},
                    "500": {"description": "Storage error", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/ingest/directory": {
            "post": {
                "description": "Queues ingestion of every PDF directly under a server-side directory.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Ingestion"],
                "summary": "Ingest a directory of PDFs",
                "parameters": [
                    {
                        "description": "Directory",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.IngestDirectoryRequest"}
                    }
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/api.InitJobResponse"}},
                    "400": {"description": "Directory missing", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        },
        "/status/{id}": {
            "get": {
                "description": "Retrieves status, progress and result of a job.",
                "produces": ["application/json"],
                "tags": ["Job Status"],
                "summary": "Get job status",
                "parameters": [
                    {"type": "string", "description": "Job ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "The current status of the job", "schema": {"$ref": "#/definitions/api.JobResponse"}},
                    "404": {"description": "Job not found", "schema": {"$ref": "#/definitions/api.JobResponse"}}
                }
            }
        }
    },
    "definitions": {
        "api.AskRequest": {
            "type": "object",
            "required": ["question"],
            "properties": {
                "question": {"type": "string", "example": "What notice must a landlord give before ending a tenancy?"}
            }
        },
        "api.IngestDirectoryRequest": {
            "type": "object",
            "required": ["directory"],
            "properties": {
                "directory": {"type": "string", "example": "./data"}
            }
        },
        "api.InitJobResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status_url": {"type": "string"}
            }
        },
        "api.JobOutgoingError": {
            "type": "object",
            "properties": {
                "can_retry": {"type": "boolean", "example": false},
                "code": {"type": "integer", "example": 400},
                "message": {"type": "string", "example": "Job not found"}
            }
        },
        "api.RAGResponse": {
            "type": "object",
            "properties": {
                "answer": {"type": "string"},
                "answer_kind": {"type": "string", "example": "structured"},
                "question": {"type": "string"},
                "sources": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.IngestResponse": {
            "type": "object",
            "properties": {
                "file_name": {"type": "string"},
                "directory": {"type": "string"},
                "files_processed": {"type": "integer"},
                "files_failed": {"type": "integer"},
                "total_chunks_processed": {"type": "integer"},
                "chunks_dropped": {"type": "integer"},
                "failed_files": {"type": "array", "items": {"type": "string"}}
            }
        },
        "api.Result": {
            "type": "object",
            "properties": {
                "current_step": {"type": "string", "example": "Summarize"},
                "ingest_response": {"$ref": "#/definitions/api.IngestResponse"},
                "progress": {"type": "integer", "example": 50},
                "rag_response": {"$ref": "#/definitions/api.RAGResponse"},
                "status": {"type": "string", "example": "RUNNING"}
            }
        },
        "api.JobResponse": {
            "type": "object",
            "properties": {
                "end_time": {"type": "string"},
                "error": {"$ref": "#/definitions/api.JobOutgoingError"},
                "id": {"type": "string"},
                "job_type": {"type": "string", "example": "Query"},
                "result": {"$ref": "#/definitions/api.Result"},
                "start_time": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:3000",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Legal RAG API",
	Description:      "Asynchronous legal question answering and PDF ingestion over a vector index.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
