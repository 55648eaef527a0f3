// Package routes defines HTTP route constants for the application.
package routes

const (
	RobotsPath = "/robots.txt"
	SyntaxCSS  = "/syntax.css"

	// SSE
	SSEPath = "/sse"

	// Documents
	Documents = "/api/documents"
	Document  = "/api/documents/{id}"

	// Editor sessions
	Session         = "/api/documents/{id}/session"
	SessionValue    = "/api/documents/{id}/session/value"
	SessionCommands = "/api/documents/{id}/session/commands"
	SessionImages   = "/api/documents/{id}/session/images"
	SessionImage    = "/api/documents/{id}/session/images/{upload}"
)

// Query parameters
const (
	QueryDocument = "document"
	QueryKind     = "kind"
)

// Multipart fields of an image upload
const (
	FormFile  = "file"
	FormCaret = "caret"
)
