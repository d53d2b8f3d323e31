package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// NoAnswerText is the canonical answer returned when a pipeline finds no evidence.
const NoAnswerText = "Sorry, I couldn't find an answer to your question"

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Mode selects which retrieval pipelines answer a question.
type Mode string

const (
	ModeStructured Mode = "structured"
	ModeSimilarity Mode = "similarity"
	ModeFused      Mode = "fused"
)

// Pipeline identifies a retrieval path.
type Pipeline string

const (
	PipelineStructured Pipeline = "structured"
	PipelineSimilarity Pipeline = "similarity"
)

// Shape controls how the structured pipeline renders result rows.
type Shape int

const (
	// ShapeRaw returns the rows directly, rendered as text.
	ShapeRaw Shape = iota
	// ShapeNarrated summarises the rows with the language model.
	ShapeNarrated
)

// Row is a single record returned by a graph query, keyed by column name.
type Row map[string]any

// Source identifies a passage that contributed to a similarity answer.
type Source struct {
	NodeID    string
	Name      string  // value of the node's "source" property, when present
	Score     float64 // similarity score reported by the index
	ContentID ID
}

// Passage is a retrieved node's text with its rank score.
type Passage struct {
	NodeID string
	Text   string
	Name   string
	Score  float64
}

// RetrieveOptions carries per-request knobs for a retrieval pipeline.
type RetrieveOptions struct {
	Attribution bool
	Shape       Shape
}

// RetrievalResult is a single pipeline's output.
type RetrievalResult struct {
	Pipeline Pipeline
	Answer   string
	// NoAnswer marks the sentinel result: valid absence of evidence.
	NoAnswer bool
	// Sources is populated by the similarity pipeline when attribution is requested.
	Sources []Source
	// Rows and Statement are populated by the structured pipeline.
	Rows      []Row
	Statement string
}

// NoAnswerResult returns the sentinel result for pipeline.
func NoAnswerResult(pipeline Pipeline) *RetrievalResult {
	return &RetrievalResult{
		Pipeline: pipeline,
		Answer:   NoAnswerText,
		NoAnswer: true,
	}
}

// HasEvidence reports whether r carries a real answer.
func (r *RetrievalResult) HasEvidence() bool {
	return r != nil && !r.NoAnswer
}

// FusedAnswer is the final answer returned to a caller.
type FusedAnswer struct {
	Answer string
	Mode   Mode
	// Contributors lists the pipelines that supplied evidence.
	Contributors []Pipeline
	Structured   *RetrievalResult
	Similarity   *RetrievalResult
}

// Turn is one question/answer exchange within a session.
type Turn struct {
	SessionID string    `msgpack:"session_id"`
	Question  string    `msgpack:"question"`
	Answer    string    `msgpack:"answer"`
	Mode      Mode      `msgpack:"mode"`
	Timestamp time.Time `msgpack:"timestamp"`
}
