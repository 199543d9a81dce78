package mining

import (
	"context"
	"fmt"
	"testing"
	"time"

	"draftloop/internal/content"
	"draftloop/internal/drafting"
	draftingmock "draftloop/internal/drafting/mock"
	"draftloop/internal/registry"
	storemock "draftloop/internal/store/mock"
)

func TestEnqueueExtractsAndPersists(t *testing.T) {
	t.Parallel()

	svc := &draftingmock.Service{
		ExtractResults: [][]drafting.IdeaCandidate{{
			{
				Theme:           "pricing psychology",
				Hook:            "Raise prices, keep clients",
				Quotes:          []string{"nobody left"},
				SuggestedFormat: content.FormatLinkedInPost,
			},
		}},
	}
	reg := registry.New()
	st := &storemock.Store{}
	var emitted []content.ContentIdea
	q := NewQueue(svc, reg, st, func(idea content.ContentIdea) {
		emitted = append(emitted, idea)
	})

	q.Enqueue(context.Background(), content.Transcript{ID: "t1", Content: "text"})

	if len(emitted) != 1 {
		t.Fatalf("emitted = %d ideas, want 1", len(emitted))
	}
	idea := emitted[0]
	if idea.ID == "" || idea.Status != content.IdeaExtracted {
		t.Errorf("unexpected idea: %+v", idea)
	}
	if len(idea.SourceTranscriptIDs) != 1 || idea.SourceTranscriptIDs[0] != "t1" {
		t.Errorf("sources = %v", idea.SourceTranscriptIDs)
	}
	if len(st.SavedIdeaIDs) != 1 || st.SavedIdeaIDs[0] != idea.ID {
		t.Errorf("saved ids = %v", st.SavedIdeaIDs)
	}
	if !reg.IsMined("t1") {
		t.Error("transcript not marked mined")
	}
}

func TestEnqueueSkipsDuplicateHooks(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.Record(content.ContentIdea{
		ID:        "existing",
		Hook:      "Raise prices, keep clients",
		Status:    content.IdeaExtracted,
		CreatedAt: time.Now(),
	})

	// Same hook modulo case and punctuation must be dropped silently.
	svc := &draftingmock.Service{
		ExtractResults: [][]drafting.IdeaCandidate{{
			{Theme: "x", Hook: "raise prices — keep clients!"},
			{Theme: "y", Hook: "a genuinely new hook"},
		}},
	}
	st := &storemock.Store{}
	var emitted int
	q := NewQueue(svc, reg, st, func(content.ContentIdea) { emitted++ })

	q.Enqueue(context.Background(), content.Transcript{ID: "t1", Content: "text"})

	if emitted != 1 {
		t.Errorf("emitted = %d, want 1 (duplicate dropped)", emitted)
	}
	if len(st.SavedIdeaIDs) != 1 {
		t.Errorf("saved = %d ideas, want 1", len(st.SavedIdeaIDs))
	}
}

func TestDrainBatchesOfFive(t *testing.T) {
	t.Parallel()

	svc := &draftingmock.Service{}
	reg := registry.New()
	q := NewQueue(svc, reg, nil, nil)

	q.Enqueue(context.Background(), makeTranscripts(12)...)

	if len(svc.ExtractCalls) != 3 {
		t.Fatalf("extract calls = %d, want 3", len(svc.ExtractCalls))
	}
	sizes := []int{
		len(svc.ExtractCalls[0].Transcripts),
		len(svc.ExtractCalls[1].Transcripts),
		len(svc.ExtractCalls[2].Transcripts),
	}
	if sizes[0] != 5 || sizes[1] != 5 || sizes[2] != 2 {
		t.Errorf("batch sizes = %v, want [5 5 2]", sizes)
	}
}

func TestEnqueueDuringDrainIsPickedUp(t *testing.T) {
	t.Parallel()

	svc := &draftingmock.Service{
		ExtractResults: [][]drafting.IdeaCandidate{
			{{Theme: "outer", Hook: "the outer hook"}},
			{{Theme: "nested", Hook: "hook from inside the drain"}},
		},
	}
	reg := registry.New()
	q := NewQueue(svc, reg, nil, nil)

	// The sink enqueues one more transcript while the first drain is still
	// running; the running drain must pick it up before returning.
	first := true
	q.sink = func(content.ContentIdea) {
		if first {
			first = false
			q.Enqueue(context.Background(), content.Transcript{ID: "t2", Content: "more"})
		}
	}

	q.Enqueue(context.Background(), content.Transcript{ID: "t1", Content: "text"})

	if got := len(reg.Unprocessed()); got != 2 {
		t.Errorf("recorded ideas = %d, want 2", got)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.draining || len(q.pending) != 0 {
		t.Errorf("queue not drained: draining=%v pending=%d", q.draining, len(q.pending))
	}
}

func TestEnqueueAbsorbsExtractionFailure(t *testing.T) {
	t.Parallel()

	svc := &draftingmock.Service{ExtractErr: fmt.Errorf("model overloaded")}
	reg := registry.New()
	var emitted int
	q := NewQueue(svc, reg, nil, func(content.ContentIdea) { emitted++ })

	q.Enqueue(context.Background(), content.Transcript{ID: "t1", Content: "text"})

	if emitted != 0 {
		t.Errorf("emitted = %d, want 0", emitted)
	}
	// Attempted batches count as mined even when the call failed.
	if !reg.IsMined("t1") {
		t.Error("failed batch not marked mined")
	}
}

func TestEnqueueAbsorbsPersistFailure(t *testing.T) {
	t.Parallel()

	svc := &draftingmock.Service{
		ExtractResults: [][]drafting.IdeaCandidate{{
			{Theme: "t", Hook: "still recorded in memory"},
		}},
	}
	reg := registry.New()
	st := &storemock.Store{IdeaErr: fmt.Errorf("db down")}
	var emitted int
	q := NewQueue(svc, reg, st, func(content.ContentIdea) { emitted++ })

	q.Enqueue(context.Background(), content.Transcript{ID: "t1", Content: "text"})

	// The registry stays authoritative even when the store write fails.
	if emitted != 1 {
		t.Errorf("emitted = %d, want 1", emitted)
	}
	if !reg.IsDuplicate("still recorded in memory") {
		t.Error("idea missing from registry after persist failure")
	}
}

func TestRecordDefaultsInvalidFormat(t *testing.T) {
	t.Parallel()

	svc := &draftingmock.Service{
		ExtractResults: [][]drafting.IdeaCandidate{{
			{Theme: "t", Hook: "h", SuggestedFormat: "carrier_pigeon"},
		}},
	}
	reg := registry.New()
	var got content.ContentIdea
	q := NewQueue(svc, reg, nil, func(idea content.ContentIdea) { got = idea })

	q.Enqueue(context.Background(), content.Transcript{ID: "t1", Content: "text"})

	if got.SuggestedFormat != content.FormatLinkedInPost {
		t.Errorf("format = %q, want linkedin_post fallback", got.SuggestedFormat)
	}
}
