package index

import (
	"fmt"
	"io"
	"time"

	"github.com/poiesic/graphqa/core"
)

// buildProgress keeps one status line updated while a build embeds the
// nodes of an index. A nil *buildProgress reports nothing.
type buildProgress struct {
	w        io.Writer
	index    string
	label    string
	total    int
	interval int
	done     int
	reported int
	start    time.Time
}

// newBuildProgress returns nil when w is nil. The line is rewritten every
// interval nodes.
func newBuildProgress(w io.Writer, spec core.IndexSpec, total, interval int) *buildProgress {
	if w == nil {
		return nil
	}
	return &buildProgress{
		w:        w,
		index:    spec.Name,
		label:    spec.NodeLabel,
		total:    total,
		interval: max(interval, 1),
		start:    time.Now(),
	}
}

// embedded records n more nodes written with their vectors.
func (p *buildProgress) embedded(n int) {
	if p == nil {
		return
	}
	p.done = min(p.done+n, p.total)
	if p.done-p.reported >= p.interval {
		p.line()
		p.reported = p.done
	}
}

// finish writes the final count and the build time.
func (p *buildProgress) finish() {
	if p == nil {
		return
	}
	p.line()
	fmt.Fprintf(p.w, " in %s\n", time.Since(p.start).Round(time.Millisecond))
}

func (p *buildProgress) line() {
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	rate := 0.0
	if s := time.Since(p.start).Seconds(); s > 0 {
		rate = float64(p.done) / s
	}
	fmt.Fprintf(p.w, "\rIndex %s (:%s): %d/%d nodes embedded (%.1f%%, %.1f nodes/s)",
		p.index, p.label, p.done, p.total, pct, rate)
}
