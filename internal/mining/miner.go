package mining

import (
	"context"
	"log/slog"
	"time"

	"draftloop/internal/content"
	"draftloop/internal/drafting"
	"draftloop/internal/observe"
	"draftloop/internal/registry"
)

const (
	// extractBatchSize bounds how many transcripts go into one on-demand
	// extraction call.
	extractBatchSize = 10

	// maxTranscriptRunes truncates transcript content before extraction to
	// keep prompts within model context limits.
	maxTranscriptRunes = 4000

	// loadAttempts bounds retries when lazily fetching transcript content
	// from the store.
	loadAttempts = 2
)

// TranscriptSource lists and loads stored transcripts. Satisfied by the
// record store.
type TranscriptSource interface {
	RecentTranscripts(ctx context.Context, since time.Time) ([]content.Transcript, error)
	LoadTranscriptContent(ctx context.Context, id string) (string, error)
}

// Miner runs on-demand idea extraction over stored transcripts. Already
// mined transcripts are skipped; everything the miner attempts is marked
// mined afterwards, whether or not extraction succeeded, so a broken
// transcript cannot wedge the pipeline by being retried forever.
type Miner struct {
	svc     drafting.Service
	source  TranscriptSource
	reg     *registry.Registry
	queue   *Queue
	metrics *observe.Metrics
}

// NewMiner creates a Miner. source may be nil when every transcript arrives
// with its content inline and MineRecent is never used.
func NewMiner(svc drafting.Service, source TranscriptSource, reg *registry.Registry, queue *Queue) *Miner {
	return &Miner{
		svc:     svc,
		source:  source,
		reg:     reg,
		queue:   queue,
		metrics: observe.DefaultMetrics(),
	}
}

// MineRecent mines every stored transcript newer than since. Used by the
// content cycle (7-day window) and the mine chat command (90-day window).
func (m *Miner) MineRecent(ctx context.Context, since time.Time) (int, error) {
	transcripts, err := m.source.RecentTranscripts(ctx, since)
	if err != nil {
		m.metrics.RecordExternalError(ctx, "store")
		return 0, err
	}
	return m.MineOnDemand(ctx, transcripts)
}

// MineOnDemand extracts ideas from the given transcripts in batches of
// [extractBatchSize], recording every new candidate through the queue's
// dedup path. Transcripts already mined are filtered out first. A
// transcript whose content cannot be loaded is skipped with a warning; a
// batch whose extraction call fails is logged and the remaining batches
// still run. Returns the number of candidates extracted.
func (m *Miner) MineOnDemand(ctx context.Context, transcripts []content.Transcript) (int, error) {
	var fresh []content.Transcript
	for _, t := range transcripts {
		if m.reg.IsMined(t.ID) {
			continue
		}
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	// Resolve content up front. Every transcript in fresh counts as
	// attempted from here on.
	batchable := make([]content.Transcript, 0, len(fresh))
	for _, t := range fresh {
		text := t.Content
		if text == "" {
			var err error
			text, err = m.loadContent(ctx, t.ID)
			if err != nil {
				slog.Warn("mining: load transcript content failed, skipping", "transcript_id", t.ID, "err", err)
				m.metrics.RecordExternalError(ctx, "store")
				m.reg.MarkMined(t.ID)
				continue
			}
		}
		if text == "" {
			slog.Debug("mining: empty transcript skipped", "transcript_id", t.ID)
			m.reg.MarkMined(t.ID)
			continue
		}
		t.Content = truncateRunes(text, maxTranscriptRunes)
		batchable = append(batchable, t)
	}

	total := 0
	for start := 0; start < len(batchable); start += extractBatchSize {
		end := min(start+extractBatchSize, len(batchable))
		batch := batchable[start:end]

		began := time.Now()
		candidates, err := m.svc.ExtractIdeas(ctx, batch)
		m.metrics.ExtractionDuration.Record(ctx, time.Since(began).Seconds())

		// Attempted is attempted: the batch is mined even when the call
		// failed.
		sources := make([]string, len(batch))
		for i, t := range batch {
			sources[i] = t.ID
			m.reg.MarkMined(t.ID)
		}

		if err != nil {
			slog.Error("mining: extraction batch failed", "batch_size", len(batch), "err", err)
			m.metrics.RecordExternalError(ctx, "llm")
			continue
		}

		for _, c := range candidates {
			m.queue.record(ctx, c, sources)
		}
		total += len(candidates)
	}

	slog.Info("mining: on-demand pass complete", "transcripts", len(fresh), "candidates", total)
	return total, nil
}

// loadContent fetches transcript content with a bounded retry.
func (m *Miner) loadContent(ctx context.Context, id string) (string, error) {
	if m.source == nil {
		return "", nil
	}
	var lastErr error
	for attempt := 1; attempt <= loadAttempts; attempt++ {
		text, err := m.source.LoadTranscriptContent(ctx, id)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
