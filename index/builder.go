package index

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/graphqa/ai"
	"github.com/poiesic/graphqa/core"
	"github.com/poiesic/graphqa/graph"
	"github.com/poiesic/graphqa/retry"
	"golang.org/x/sync/errgroup"
)

// builder embeds every node that lacks a vector, one page at a time.
type builder struct {
	db          graph.IndexManager
	embedder    ai.Embedder
	retry       retry.Policy
	spec        core.IndexSpec
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

func (b *builder) embedAll(ctx context.Context, progress io.Writer, reportInterval int) error {
	total, err := b.db.CountUnembedded(ctx, b.spec)
	if err != nil {
		return fmt.Errorf("count nodes: %w", err)
	}
	if total == 0 {
		b.logger.Info("no nodes to embed", "label", b.spec.NodeLabel)
		if progress != nil {
			fmt.Fprintf(progress, "No :%s nodes need embedding\n", b.spec.NodeLabel)
		}
		return nil
	}

	if progress != nil {
		fmt.Fprintf(progress, "Embedding %d :%s nodes for index %s (batch size: %d)\n",
			total, b.spec.NodeLabel, b.spec.Name, b.batchSize)
	}
	tracker := newBuildProgress(progress, b.spec, total, reportInterval)

	seen := make(map[string]struct{}, total)
	pageSize := b.batchSize * b.concurrency
	embedded := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := b.db.ScanUnembedded(ctx, b.spec, pageSize)
		if err != nil {
			return fmt.Errorf("scan nodes: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, n := range page {
			if _, ok := seen[n.ID]; ok {
				return fmt.Errorf("%w: node %s", ErrStalledBuild, n.ID)
			}
			seen[n.ID] = struct{}{}
		}

		vectors, err := b.embedPage(ctx, page)
		if err != nil {
			return err
		}
		if err := b.db.WriteEmbeddings(ctx, b.spec, vectors); err != nil {
			return fmt.Errorf("write embeddings: %w", err)
		}

		embedded += len(page)
		tracker.embedded(len(page))
	}

	tracker.finish()
	b.logger.Info("embedded nodes", "count", embedded, "label", b.spec.NodeLabel)
	return nil
}

// embedPage embeds page in batches, at most concurrency batches at a time.
func (b *builder) embedPage(ctx context.Context, page []graph.NodeText) ([]graph.NodeEmbedding, error) {
	out := make([]graph.NodeEmbedding, len(page))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for start := 0; start < len(page); start += b.batchSize {
		end := min(start+b.batchSize, len(page))
		batch := page[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, n := range batch {
				texts[i] = n.Text
			}

			vectors, err := retry.Value(gctx, b.retry, func(ctx context.Context) ([][]float32, error) {
				return b.embedder.EmbedTexts(ctx, texts)
			})
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(vectors))
			}

			for i, n := range batch {
				if len(vectors[i]) != b.spec.Dimensions {
					return fmt.Errorf("%w: expected %d, got %d", ErrDimensionMismatch, b.spec.Dimensions, len(vectors[i]))
				}
				out[start+i] = graph.NodeEmbedding{ID: n.ID, Vector: vectors[i]}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
