package api

import "github.com/poiesic/graphqa/core"

// ChatRequest is the body of the /api/chat endpoints.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// AskRequest is the body of /api/ask.
type AskRequest struct {
	Question  string `json:"question"`
	Mode      string `json:"mode,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	// Sources requests the passages behind a similarity answer.
	Sources bool `json:"sources,omitempty"`
	// Narrate asks for a prose answer instead of raw query rows.
	Narrate bool `json:"narrate,omitempty"`
}

// ChatResponse is returned by every question endpoint.
type ChatResponse struct {
	Message  string    `json:"message"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// Metadata describes where an answer came from.
type Metadata struct {
	Mode         core.Mode       `json:"mode"`
	Contributors []core.Pipeline `json:"contributors"`
	Sources      Sources         `json:"sources"`
	Statement    string          `json:"statement,omitempty"`
	Passages     []Passage       `json:"passages,omitempty"`
}

// Sources holds each pipeline's own answer.
type Sources struct {
	Vector *string `json:"vector,omitempty"`
	Graph  *string `json:"graph,omitempty"`
}

// Passage identifies a retrieved passage behind a similarity answer.
type Passage struct {
	NodeID    string  `json:"node_id"`
	Source    string  `json:"source,omitempty"`
	Score     float64 `json:"score"`
	ContentID string  `json:"content_id"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error kind and a caller-safe message. Cause and
// Detail describe the pipeline failure behind a fusion_input_missing error.
type ErrorBody struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Cause     string `json:"cause,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Pipeline  string `json:"pipeline,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
