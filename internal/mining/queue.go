// Package mining turns raw transcripts into deduplicated content ideas: a
// [Queue] that extracts ideas from transcripts as they arrive, and a
// [Miner] that runs on-demand extraction over stored transcripts in larger
// batches.
package mining

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"draftloop/internal/content"
	"draftloop/internal/drafting"
	"draftloop/internal/observe"
	"draftloop/internal/registry"
)

// drainBatchSize bounds how many pending transcripts one drain pass takes
// from the front of the queue.
const drainBatchSize = 5

// IdeaSaver persists recorded ideas. Satisfied by the record store.
type IdeaSaver interface {
	SaveIdea(ctx context.Context, idea content.ContentIdea) error
}

// Queue accepts freshly fetched transcripts, extracts idea candidates in
// small batches, drops duplicates against the registry, and records the
// rest. Drains run one at a time: an Enqueue that arrives while a drain is
// in progress only appends, and the running drain picks the new work up
// before finishing. Safe for concurrent use.
type Queue struct {
	svc     drafting.Service
	reg     *registry.Registry
	saver   IdeaSaver
	metrics *observe.Metrics
	sink    func(content.ContentIdea)

	mu       sync.Mutex
	pending  []content.Transcript
	draining bool
}

// NewQueue creates a Queue. sink receives every newly recorded idea; it may
// be nil. saver may be nil (registry-only operation, used in tests).
func NewQueue(svc drafting.Service, reg *registry.Registry, saver IdeaSaver, sink func(content.ContentIdea)) *Queue {
	return &Queue{
		svc:     svc,
		reg:     reg,
		saver:   saver,
		metrics: observe.DefaultMetrics(),
		sink:    sink,
	}
}

// Enqueue appends transcripts and drains the queue unless another drain is
// already running. The call returns once the queue is empty or the drain is
// handed off to the in-flight drainer.
func (q *Queue) Enqueue(ctx context.Context, transcripts ...content.Transcript) {
	q.mu.Lock()
	q.pending = append(q.pending, transcripts...)
	if q.draining {
		// The in-flight drain re-checks pending before finishing.
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()

	q.drain(ctx)
}

// drain processes pending transcripts in batches until none remain. Caller
// must have set q.draining.
func (q *Queue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		n := min(drainBatchSize, len(q.pending))
		batch := q.pending[:n:n]
		q.pending = q.pending[n:]
		q.mu.Unlock()

		q.extract(ctx, batch)
	}
}

// extract runs one extraction call over a batch and records the results.
// The batch counts as mined whether or not the call succeeded.
func (q *Queue) extract(ctx context.Context, batch []content.Transcript) {
	began := time.Now()
	candidates, err := q.svc.ExtractIdeas(ctx, batch)
	q.metrics.ExtractionDuration.Record(ctx, time.Since(began).Seconds())

	sources := make([]string, len(batch))
	for i, t := range batch {
		sources[i] = t.ID
		q.reg.MarkMined(t.ID)
	}

	if err != nil {
		slog.Error("mining: extraction batch failed", "batch_size", len(batch), "err", err)
		q.metrics.RecordExternalError(ctx, "llm")
		return
	}

	for _, c := range candidates {
		q.record(ctx, c, sources)
	}
}

// record checks one candidate against the registry and persists it when its
// hook is new. Duplicates are dropped silently.
func (q *Queue) record(ctx context.Context, c drafting.IdeaCandidate, sources []string) {
	if q.reg.IsDuplicate(c.Hook) {
		q.metrics.DuplicatesSkipped.Add(ctx, 1)
		slog.Debug("mining: duplicate hook skipped", "hook", c.Hook)
		return
	}

	format := c.SuggestedFormat
	if !format.IsValid() {
		format = content.FormatLinkedInPost
	}
	idea := content.ContentIdea{
		ID:                  uuid.NewString(),
		Theme:               c.Theme,
		Hook:                c.Hook,
		Quotes:              c.Quotes,
		SourceTranscriptIDs: sources,
		SuggestedFormat:     format,
		Status:              content.IdeaExtracted,
		CreatedAt:           time.Now(),
	}

	q.reg.Record(idea)
	q.metrics.IdeasExtracted.Add(ctx, 1)

	if q.saver != nil {
		if err := q.saver.SaveIdea(ctx, idea); err != nil {
			// The registry stays authoritative; persistence catches up on
			// the next save of this idea.
			slog.Warn("mining: persist idea failed", "idea_id", idea.ID, "err", err)
			q.metrics.RecordExternalError(ctx, "store")
		}
	}

	slog.Info("mining: idea recorded", "idea_id", idea.ID, "theme", idea.Theme)
	if q.sink != nil {
		q.sink(idea)
	}
}
