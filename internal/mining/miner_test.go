package mining

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"draftloop/internal/content"
	"draftloop/internal/drafting"
	draftingmock "draftloop/internal/drafting/mock"
	"draftloop/internal/registry"
	storemock "draftloop/internal/store/mock"
)

// makeTranscripts builds n transcripts with inline content.
func makeTranscripts(n int) []content.Transcript {
	out := make([]content.Transcript, n)
	for i := range out {
		out[i] = content.Transcript{
			ID:      fmt.Sprintf("t%d", i+1),
			Content: fmt.Sprintf("speaker: transcript %d", i+1),
			Source:  content.SourceTLDV,
		}
	}
	return out
}

func TestMineOnDemandBatchesOfTen(t *testing.T) {
	t.Parallel()

	svc := &draftingmock.Service{
		// First batch fails; the second must still run.
		ExtractErrs: []error{fmt.Errorf("model overloaded")},
		ExtractResults: [][]drafting.IdeaCandidate{
			{{Theme: "a", Hook: "hook a"}},
		},
	}
	reg := registry.New()
	m := NewMiner(svc, nil, reg, NewQueue(svc, reg, nil, nil))

	n, err := m.MineOnDemand(context.Background(), makeTranscripts(12))
	if err != nil {
		t.Fatalf("MineOnDemand error: %v", err)
	}

	if len(svc.ExtractCalls) != 2 {
		t.Fatalf("extract calls = %d, want 2", len(svc.ExtractCalls))
	}
	if got := len(svc.ExtractCalls[0].Transcripts); got != 10 {
		t.Errorf("first batch size = %d, want 10", got)
	}
	if got := len(svc.ExtractCalls[1].Transcripts); got != 2 {
		t.Errorf("second batch size = %d, want 2", got)
	}
	// Only the second batch produced candidates.
	if n != 1 {
		t.Errorf("candidates = %d, want 1", n)
	}
	// All twelve transcripts were attempted, failed batch included.
	if got := reg.MinedCount(); got != 12 {
		t.Errorf("mined = %d, want 12", got)
	}
}

func TestMineOnDemandSkipsAlreadyMined(t *testing.T) {
	t.Parallel()

	svc := &draftingmock.Service{}
	reg := registry.New()
	m := NewMiner(svc, nil, reg, NewQueue(svc, reg, nil, nil))

	transcripts := makeTranscripts(3)
	if _, err := m.MineOnDemand(context.Background(), transcripts); err != nil {
		t.Fatalf("first pass error: %v", err)
	}
	if len(svc.ExtractCalls) != 1 {
		t.Fatalf("extract calls = %d, want 1", len(svc.ExtractCalls))
	}

	// A second pass over the same transcripts must not call the model again.
	if _, err := m.MineOnDemand(context.Background(), transcripts); err != nil {
		t.Fatalf("second pass error: %v", err)
	}
	if len(svc.ExtractCalls) != 1 {
		t.Errorf("extract calls after second pass = %d, want 1", len(svc.ExtractCalls))
	}
}

func TestMineOnDemandLoadsContentLazily(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{}
	_ = st.SaveTranscript(context.Background(), content.Transcript{
		ID:      "stored",
		Content: "the stored text",
	})

	svc := &draftingmock.Service{}
	reg := registry.New()
	m := NewMiner(svc, st, reg, NewQueue(svc, reg, nil, nil))

	// Content stripped, as RecentTranscripts returns it.
	_, err := m.MineOnDemand(context.Background(), []content.Transcript{{ID: "stored"}})
	if err != nil {
		t.Fatalf("MineOnDemand error: %v", err)
	}

	if st.ContentLoads["stored"] != 1 {
		t.Errorf("content loads = %d, want 1", st.ContentLoads["stored"])
	}
	if len(svc.ExtractCalls) != 1 {
		t.Fatalf("extract calls = %d, want 1", len(svc.ExtractCalls))
	}
	if got := svc.ExtractCalls[0].Transcripts[0].Content; got != "the stored text" {
		t.Errorf("batch content = %q", got)
	}
}

func TestMineOnDemandRetriesThenSkipsFailedLoad(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{ContentLoadErr: fmt.Errorf("connection reset")}
	svc := &draftingmock.Service{}
	reg := registry.New()
	m := NewMiner(svc, st, reg, NewQueue(svc, reg, nil, nil))

	n, err := m.MineOnDemand(context.Background(), []content.Transcript{{ID: "broken"}})
	if err != nil {
		t.Fatalf("MineOnDemand error: %v", err)
	}
	if n != 0 {
		t.Errorf("candidates = %d, want 0", n)
	}
	if st.ContentLoads["broken"] != loadAttempts {
		t.Errorf("load attempts = %d, want %d", st.ContentLoads["broken"], loadAttempts)
	}
	if len(svc.ExtractCalls) != 0 {
		t.Errorf("extract calls = %d, want 0", len(svc.ExtractCalls))
	}
	// Marked mined so it is not retried forever.
	if !reg.IsMined("broken") {
		t.Error("failed transcript not marked mined")
	}
}

func TestMineOnDemandTruncatesLongTranscripts(t *testing.T) {
	t.Parallel()

	svc := &draftingmock.Service{}
	reg := registry.New()
	m := NewMiner(svc, nil, reg, NewQueue(svc, reg, nil, nil))

	long := strings.Repeat("ä", maxTranscriptRunes+500)
	_, err := m.MineOnDemand(context.Background(), []content.Transcript{{ID: "long", Content: long}})
	if err != nil {
		t.Fatalf("MineOnDemand error: %v", err)
	}

	got := svc.ExtractCalls[0].Transcripts[0].Content
	if n := len([]rune(got)); n != maxTranscriptRunes {
		t.Errorf("content runes = %d, want %d", n, maxTranscriptRunes)
	}
}

func TestMineOnDemandMarksEmptyContentMined(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{}
	_ = st.SaveTranscript(context.Background(), content.Transcript{ID: "ghost"})

	svc := &draftingmock.Service{}
	reg := registry.New()
	m := NewMiner(svc, st, reg, NewQueue(svc, reg, nil, nil))

	_, err := m.MineOnDemand(context.Background(), []content.Transcript{{ID: "ghost"}})
	if err != nil {
		t.Fatalf("MineOnDemand error: %v", err)
	}
	if len(svc.ExtractCalls) != 0 {
		t.Errorf("extract calls = %d, want 0", len(svc.ExtractCalls))
	}
	if !reg.IsMined("ghost") {
		t.Error("empty transcript not marked mined")
	}
}

func TestMineRecentUsesStoredWindow(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{}
	old := content.Transcript{ID: "old", Content: "stale", Timestamp: time.Now().Add(-30 * 24 * time.Hour)}
	recent := content.Transcript{ID: "recent", Content: "fresh", Timestamp: time.Now().Add(-time.Hour)}
	_ = st.SaveTranscript(context.Background(), old)
	_ = st.SaveTranscript(context.Background(), recent)

	svc := &draftingmock.Service{}
	reg := registry.New()
	m := NewMiner(svc, st, reg, NewQueue(svc, reg, nil, nil))

	_, err := m.MineRecent(context.Background(), time.Now().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("MineRecent error: %v", err)
	}

	if len(svc.ExtractCalls) != 1 {
		t.Fatalf("extract calls = %d, want 1", len(svc.ExtractCalls))
	}
	batch := svc.ExtractCalls[0].Transcripts
	if len(batch) != 1 || batch[0].ID != "recent" {
		t.Errorf("batch = %+v, want only the recent transcript", batch)
	}
}

func TestMineRecentListFailurePropagates(t *testing.T) {
	t.Parallel()

	st := &storemock.Store{TranscriptErr: fmt.Errorf("db down")}
	svc := &draftingmock.Service{}
	reg := registry.New()
	m := NewMiner(svc, st, reg, NewQueue(svc, reg, nil, nil))

	if _, err := m.MineRecent(context.Background(), time.Now()); err == nil {
		t.Error("expected error from MineRecent")
	}
}
