package tldv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"draftloop/internal/content"
)

func TestListMeetingsFollowsPagination(t *testing.T) {
	t.Parallel()

	var pagesServed []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "key-123" {
			t.Errorf("x-api-key = %q", got)
		}
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)

		resp := meetingsPage{Page: 1, Pages: 2, Results: []Meeting{{ID: "m1", Name: "one"}}}
		if page == "2" {
			resp = meetingsPage{Page: 2, Pages: 2, Results: []Meeting{{ID: "m2", Name: "two"}}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c, err := New("key-123", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	meetings, err := c.ListMeetings(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListMeetings error: %v", err)
	}
	if len(meetings) != 2 || meetings[0].ID != "m1" || meetings[1].ID != "m2" {
		t.Errorf("meetings = %+v", meetings)
	}
	if len(pagesServed) != 2 {
		t.Errorf("pages served = %v, want 2 requests", pagesServed)
	}
}

func TestGetTranscriptNotReady(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := New("k", WithBaseURL(srv.URL))
	_, err := c.GetTranscript(context.Background(), "m1")
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("err = %v, want ErrNotReady", err)
	}
}

func TestGetTranscriptJoinsSegments(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(transcriptResponse{
			MeetingID: "m1",
			Data: []TranscriptSegment{
				{Speaker: "Ana", Text: "hello"},
				{Speaker: "Bo", Text: "hi"},
			},
		})
	}))
	defer srv.Close()

	c, _ := New("k", WithBaseURL(srv.URL))
	text, err := c.GetTranscript(context.Background(), "m1")
	if err != nil {
		t.Fatalf("GetTranscript error: %v", err)
	}
	want := "Ana: hello\nBo: hi\n"
	if text != want {
		t.Errorf("text = %q, want %q", text, want)
	}
}

// ---------------------------------------------------------------------------
// Poller
// ---------------------------------------------------------------------------

// mockAPI implements API for poller tests.
type mockAPI struct {
	mu          sync.Mutex
	meetings    []Meeting
	transcripts map[string]string // meeting ID → text; absent means not ready
	fetchErrs   map[string]error  // meeting ID → hard GetTranscript error
	listErr     error

	listSince  []time.Time    // since values passed to ListMeetings
	fetchCalls map[string]int // GetTranscript calls per meeting
}

func (m *mockAPI) ListMeetings(_ context.Context, since time.Time) ([]Meeting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listSince = append(m.listSince, since)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.meetings, nil
}

func (m *mockAPI) GetTranscript(_ context.Context, meetingID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchCalls == nil {
		m.fetchCalls = make(map[string]int)
	}
	m.fetchCalls[meetingID]++
	if err := m.fetchErrs[meetingID]; err != nil {
		return "", err
	}
	text, ok := m.transcripts[meetingID]
	if !ok {
		return "", ErrNotReady
	}
	return text, nil
}

func TestPollerSkipsNotReadyAndRetries(t *testing.T) {
	t.Parallel()

	api := &mockAPI{
		meetings: []Meeting{
			{ID: "m1", Name: "ready meeting", HappenedAt: time.Now()},
			{ID: "m2", Name: "pending meeting", HappenedAt: time.Now()},
		},
		transcripts: map[string]string{"m1": "Ana: hi\n"},
	}

	var got []content.Transcript
	p := NewPoller(api, nil, time.Hour, func(t content.Transcript) {
		got = append(got, t)
	})

	n, err := p.FetchNew(context.Background())
	if err != nil {
		t.Fatalf("FetchNew error: %v", err)
	}
	if n != 1 || len(got) != 1 || got[0].ID != "tldv-m1" {
		t.Fatalf("delivered = %d, transcripts = %+v", n, got)
	}
	if got[0].Source != content.SourceTLDV {
		t.Errorf("Source = %q, want tldv", got[0].Source)
	}

	// m2 becomes ready; the next poll must deliver it but not re-deliver m1.
	api.mu.Lock()
	api.transcripts["m2"] = "Bo: now ready\n"
	api.mu.Unlock()

	n, err = p.FetchNew(context.Background())
	if err != nil {
		t.Fatalf("second FetchNew error: %v", err)
	}
	if n != 1 || len(got) != 2 || got[1].ID != "tldv-m2" {
		t.Fatalf("second poll delivered = %d, transcripts = %+v", n, got)
	}
}

func TestPollerGivesUpOnRepeatedHardFailures(t *testing.T) {
	t.Parallel()

	api := &mockAPI{
		meetings: []Meeting{
			{ID: "m1", Name: "broken meeting", HappenedAt: time.Now()},
		},
		fetchErrs: map[string]error{"m1": fmt.Errorf("500 internal")},
	}
	p := NewPoller(api, nil, time.Hour, func(content.Transcript) {
		t.Error("broken transcript must not reach the sink")
	})

	start := time.Now()
	for i := 0; i < fetchAttempts; i++ {
		if _, err := p.FetchNew(context.Background()); err != nil {
			t.Fatalf("poll %d error: %v", i+1, err)
		}
	}
	if got := api.fetchCalls["m1"]; got != fetchAttempts {
		t.Errorf("fetch calls = %d, want %d", got, fetchAttempts)
	}

	// After giving up the meeting no longer pins the window: the next poll
	// skips the fetch and lists from an advanced since.
	if _, err := p.FetchNew(context.Background()); err != nil {
		t.Fatalf("final poll error: %v", err)
	}
	if got := api.fetchCalls["m1"]; got != fetchAttempts {
		t.Errorf("fetch calls after give-up = %d, want %d", got, fetchAttempts)
	}
	if last := api.listSince[len(api.listSince)-1]; last.Before(start) {
		t.Errorf("poll window did not advance: since = %v", last)
	}
}

func TestPollerListFailurePropagates(t *testing.T) {
	t.Parallel()

	api := &mockAPI{listErr: fmt.Errorf("boom")}
	p := NewPoller(api, nil, time.Hour, func(content.Transcript) {})

	if _, err := p.FetchNew(context.Background()); err == nil {
		t.Error("expected error from FetchNew")
	}
}
