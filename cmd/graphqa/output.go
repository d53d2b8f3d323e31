package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/fusion"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	answerColor  = color.New(color.Bold)
	dimColor     = color.New(color.Faint)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
)

type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) answer(a *core.FusedAnswer) {
	answerColor.Fprintln(p.w, a.Answer)
	if len(a.Contributors) == 0 {
		warnColor.Fprintln(p.w, "No source had relevant information.")
	}
}

func (p *printer) evidence(a *core.FusedAnswer) {
	if a.Structured != nil {
		fmt.Fprintln(p.w)
		headingColor.Fprintln(p.w, "Graph query")
		if a.Structured.Statement != "" {
			fmt.Fprintln(p.w, indent(a.Structured.Statement))
		} else {
			dimColor.Fprintln(p.w, "  (no statement)")
		}
		if a.Mode == core.ModeFused {
			fmt.Fprintf(p.w, "  => %s\n", a.Structured.Answer)
		}
	}
	if a.Similarity != nil {
		fmt.Fprintln(p.w)
		headingColor.Fprintln(p.w, "Passages")
		if len(a.Similarity.Sources) == 0 {
			dimColor.Fprintln(p.w, "  (none)")
		}
		for i, s := range a.Similarity.Sources {
			name := s.Name
			if name == "" {
				name = s.NodeID
			}
			fmt.Fprintf(p.w, "  [%d] %s ", i+1, name)
			dimColor.Fprintf(p.w, "score=%.3f id=%016x\n", s.Score, uint64(s.ContentID))
		}
		if a.Mode == core.ModeFused {
			fmt.Fprintf(p.w, "  => %s\n", a.Similarity.Answer)
		}
	}
}

func (p *printer) session(id string) {
	dimColor.Fprintf(p.w, "\nsession: %s\n", id)
}

func (p *printer) index(h *core.IndexHandle) {
	headingColor.Fprintf(p.w, "Index %s ready\n", h.Name)
	fmt.Fprintf(p.w, "  label:      :%s\n", h.NodeLabel)
	fmt.Fprintf(p.w, "  text:       %s\n", h.TextProperty)
	fmt.Fprintf(p.w, "  embedding:  %s\n", h.EmbeddingProperty)
	fmt.Fprintf(p.w, "  dimensions: %d\n", h.Dimensions)
	fmt.Fprintf(p.w, "  similarity: %s\n", h.Similarity)
}

func (p *printer) turns(turns []core.Turn) {
	if len(turns) == 0 {
		warnColor.Fprintln(p.w, "No turns recorded for this session.")
		return
	}
	for _, t := range turns {
		dimColor.Fprintf(p.w, "%s [%s]\n", t.Timestamp.Format("2006-01-02 15:04:05"), t.Mode)
		headingColor.Fprint(p.w, "Q: ")
		fmt.Fprintln(p.w, t.Question)
		headingColor.Fprint(p.w, "A: ")
		fmt.Fprintln(p.w, t.Answer)
		fmt.Fprintln(p.w)
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

// traceMonitor prints retrieval progress as it happens.
type traceMonitor struct {
	w io.Writer
}

var _ fusion.Monitor = (*traceMonitor)(nil)

func newTraceMonitor(w io.Writer) *traceMonitor {
	return &traceMonitor{w: w}
}

func (m *traceMonitor) Start(question string, mode core.Mode) {
	dimColor.Fprintf(m.w, "asking (%s): %s\n", mode, question)
}

func (m *traceMonitor) RetrievalStarted(pipeline core.Pipeline) {
	dimColor.Fprintf(m.w, "  %s: started\n", pipeline)
}

func (m *traceMonitor) RetrievalFinished(pipeline core.Pipeline, result *core.RetrievalResult, err error) {
	switch {
	case err != nil:
		errorColor.Fprintf(m.w, "  %s: failed: %v\n", pipeline, err)
	case result == nil || !result.HasEvidence():
		warnColor.Fprintf(m.w, "  %s: no evidence\n", pipeline)
	default:
		dimColor.Fprintf(m.w, "  %s: done\n", pipeline)
	}
}

func (m *traceMonitor) Finish(answer *core.FusedAnswer, err error) {
	if err != nil {
		errorColor.Fprintf(m.w, "failed: %v\n", err)
		return
	}
	dimColor.Fprintf(m.w, "answered from %d source(s)\n", len(answer.Contributors))
}
