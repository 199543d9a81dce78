package registry

import (
	"testing"

	"draftloop/internal/content"
)

func TestNormalizeHook(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in, want string
	}{
		{"Hello, World!", "hello world"},
		{"  Multiple   spaces\there ", "multiple spaces here"},
		{"ALL CAPS?!", "all caps"},
		{"already normal", "already normal"},
		{"", ""},
		{"!!!", ""},
		{"Don't stop believing", "dont stop believing"},
	}
	for _, tc := range cases {
		if got := NormalizeHook(tc.in); got != tc.want {
			t.Errorf("NormalizeHook(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDuplicateDetectionAcrossNormalForms(t *testing.T) {
	t.Parallel()

	r := New()
	r.Record(content.ContentIdea{ID: "i1", Hook: "Why Founders Fail!", Status: content.IdeaExtracted})

	if !r.IsDuplicate("why founders fail") {
		t.Error("expected lowercase form to be a duplicate")
	}
	if !r.IsDuplicate("  Why   founders FAIL?? ") {
		t.Error("expected whitespace/punctuation variant to be a duplicate")
	}
	if r.IsDuplicate("why founders succeed") {
		t.Error("distinct hook reported as duplicate")
	}
}

func TestRecordIsIdempotentByID(t *testing.T) {
	t.Parallel()

	r := New()
	idea := content.ContentIdea{ID: "i1", Hook: "hook one", Status: content.IdeaExtracted}
	r.Record(idea)
	idea.Hook = "changed hook"
	r.Record(idea)

	got, ok := r.Get("i1")
	if !ok {
		t.Fatal("idea not found")
	}
	if got.Hook != "hook one" {
		t.Errorf("Hook = %q, want original %q", got.Hook, "hook one")
	}
	if n := len(r.Unprocessed()); n != 1 {
		t.Errorf("Unprocessed count = %d, want 1", n)
	}
}

func TestMinedSetIdempotent(t *testing.T) {
	t.Parallel()

	r := New()
	if r.IsMined("t1") {
		t.Error("fresh transcript reported as mined")
	}
	r.MarkMined("t1")
	r.MarkMined("t1")
	if !r.IsMined("t1") {
		t.Error("marked transcript not reported as mined")
	}
	if r.MinedCount() != 1 {
		t.Errorf("MinedCount = %d, want 1", r.MinedCount())
	}
}

func TestLoadExistingSeedsMinedFromSources(t *testing.T) {
	t.Parallel()

	r := New()
	r.LoadExisting([]content.ContentIdea{
		{ID: "i1", Hook: "hook one", SourceTranscriptIDs: []string{"t1", "t2"}, Status: content.IdeaExtracted},
	}, []string{"t1", "t2", "t3", "t4", "t5"})

	if !r.IsMined("t1") || !r.IsMined("t2") {
		t.Error("source transcripts not marked mined")
	}
	if r.IsMined("t3") {
		t.Error("unrelated transcript marked mined without legacy ideas present")
	}
	if !r.IsDuplicate("Hook One") {
		t.Error("hook set not seeded")
	}
}

func TestLoadExistingLegacyMarksAllTranscriptsMined(t *testing.T) {
	t.Parallel()

	all := []string{"t1", "t2", "t3", "t4", "t5"}
	r := New()
	r.LoadExisting([]content.ContentIdea{
		{ID: "legacy", Hook: "old hook", Status: content.IdeaExtracted},
	}, all)

	for _, tid := range all {
		if !r.IsMined(tid) {
			t.Errorf("transcript %s not marked mined under legacy fallback", tid)
		}
	}
}

func TestUnprocessedInsertionOrderAndStatusFilter(t *testing.T) {
	t.Parallel()

	r := New()
	r.Record(content.ContentIdea{ID: "a", Hook: "h a", Status: content.IdeaExtracted})
	r.Record(content.ContentIdea{ID: "b", Hook: "h b", Status: content.IdeaExtracted})
	r.Record(content.ContentIdea{ID: "c", Hook: "h c", Status: content.IdeaExtracted})

	if !r.SetStatus("b", content.IdeaInterviewing) {
		t.Fatal("SetStatus returned false for known idea")
	}

	got := r.Unprocessed()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		ids := make([]string, len(got))
		for i, idea := range got {
			ids[i] = idea.ID
		}
		t.Errorf("Unprocessed order = %v, want [a c]", ids)
	}
}

func TestSetStatusUnknownIdea(t *testing.T) {
	t.Parallel()

	r := New()
	if r.SetStatus("ghost", content.IdeaPublished) {
		t.Error("SetStatus on unknown idea returned true")
	}
}

func TestCounts(t *testing.T) {
	t.Parallel()

	r := New()
	r.Record(content.ContentIdea{ID: "a", Hook: "h a", Status: content.IdeaExtracted})
	r.Record(content.ContentIdea{ID: "b", Hook: "h b", Status: content.IdeaExtracted})
	r.SetStatus("b", content.IdeaDraftReady)

	counts := r.Counts()
	if counts[content.IdeaExtracted] != 1 || counts[content.IdeaDraftReady] != 1 {
		t.Errorf("Counts = %v", counts)
	}
}
