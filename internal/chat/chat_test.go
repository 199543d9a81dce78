package chat

import "testing"

func TestCustomIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := CustomID(ActionRework, "draft-42")
	if id != "draft_rework:draft-42" {
		t.Fatalf("id = %q", id)
	}

	action, draftID, ok := ParseCustomID(id)
	if !ok || action != ActionRework || draftID != "draft-42" {
		t.Errorf("parsed = (%q, %q, %v)", action, draftID, ok)
	}
}

func TestParseCustomIDRejectsForeignIDs(t *testing.T) {
	t.Parallel()

	cases := []string{
		"",
		"draft_approve",       // no separator
		"draft_approve:",      // empty draft ID
		"unrelated:draft-1",   // unknown action
		"dashboard_refresh:x", // another component's namespace
	}
	for _, in := range cases {
		if _, _, ok := ParseCustomID(in); ok {
			t.Errorf("ParseCustomID(%q) ok = true, want false", in)
		}
	}
}
