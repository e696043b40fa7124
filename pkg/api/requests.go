package api

// ChatRequest is the HTTP request body for POST /chat.
// UseRAG is a pointer so an omitted field defaults to true rather than false.
type ChatRequest struct {
	Message   string `json:"message"`
	UseRAG    *bool  `json:"use_rag,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ResetRequest is the HTTP request body for POST /reset. An empty body
// resets the default session.
type ResetRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

// IngestRequest is the HTTP request body for POST /ingest. Metadata is
// attached verbatim to every chunk the document splits into.
type IngestRequest struct {
	Document string            `json:"document"`
	Metadata map[string]string `json:"metadata,omitempty"`
}
