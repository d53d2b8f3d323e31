// Package api serves the question-answering engine over HTTP.
//
// Endpoints:
//
//	POST /api/chat         {"message": "...", "session_id": "..."}  fused answer
//	POST /api/chat/vector  {"message": "..."}                       similarity only
//	POST /api/chat/graph   {"message": "..."}                       graph query only
//	POST /api/ask          {"question": "...", "mode": "...", "sources": true}
//	GET  /health
//
// Every response carries an X-Request-ID header. Failures are reported as
// {"error": {"kind": "...", "message": "..."}} with a status code chosen by
// error kind; backend error text is logged, never returned.
package api
