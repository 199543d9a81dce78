package tldv

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"draftloop/internal/content"
)

// API is the subset of [Client] the poller needs. Satisfied by *Client and
// mocked in tests.
type API interface {
	ListMeetings(ctx context.Context, since time.Time) ([]Meeting, error)
	GetTranscript(ctx context.Context, meetingID string) (string, error)
}

// TranscriptSaver persists transcripts as they arrive. Satisfied by the
// record store.
type TranscriptSaver interface {
	SaveTranscript(ctx context.Context, t content.Transcript) error
}

// fetchAttempts bounds how many polls may hit a hard (non-ErrNotReady)
// transcript failure before the meeting is written off. Without a bound one
// permanently broken meeting would pin the poll window forever.
const fetchAttempts = 3

// Poller fetches new meetings since the last check and hands ready
// transcripts to a sink (the mining queue). Safe for concurrent use,
// though polls are expected to run one at a time.
type Poller struct {
	api   API
	saver TranscriptSaver
	sink  func(content.Transcript)

	mu          sync.Mutex
	lastChecked time.Time
	seen        map[string]struct{} // meeting IDs already handed to the sink
	fails       map[string]int      // hard fetch failures per meeting
}

// NewPoller creates a Poller. lookback bounds the first poll's window;
// subsequent polls continue from the previous poll's start time. sink
// receives each newly ready transcript.
func NewPoller(api API, saver TranscriptSaver, lookback time.Duration, sink func(content.Transcript)) *Poller {
	return &Poller{
		api:         api,
		saver:       saver,
		sink:        sink,
		lastChecked: time.Now().Add(-lookback),
		seen:        make(map[string]struct{}),
		fails:       make(map[string]int),
	}
}

// FetchNew lists meetings since the last check and forwards each ready
// transcript to the sink. Not-ready transcripts are skipped and retried on
// the next poll; hard fetch failures are retried up to [fetchAttempts]
// polls before the meeting is written off. The window only advances once
// nothing in it is still pending. Returns the number of transcripts
// delivered.
func (p *Poller) FetchNew(ctx context.Context) (int, error) {
	p.mu.Lock()
	since := p.lastChecked
	p.mu.Unlock()

	meetings, err := p.api.ListMeetings(ctx, since)
	if err != nil {
		return 0, err
	}

	delivered := 0
	allReady := true
	for _, m := range meetings {
		p.mu.Lock()
		_, done := p.seen[m.ID]
		p.mu.Unlock()
		if done {
			continue
		}

		text, err := p.api.GetTranscript(ctx, m.ID)
		if errors.Is(err, ErrNotReady) {
			slog.Debug("tldv: transcript not ready, will retry", "meeting_id", m.ID)
			allReady = false
			continue
		}
		if err != nil {
			p.mu.Lock()
			p.fails[m.ID]++
			attempts := p.fails[m.ID]
			gaveUp := attempts >= fetchAttempts
			if gaveUp {
				p.seen[m.ID] = struct{}{}
				delete(p.fails, m.ID)
			}
			p.mu.Unlock()

			if gaveUp {
				slog.Warn("tldv: giving up on transcript after repeated failures",
					"meeting_id", m.ID, "attempts", attempts, "err", err)
			} else {
				slog.Warn("tldv: fetch transcript failed", "meeting_id", m.ID, "err", err)
				allReady = false
			}
			continue
		}

		t := content.Transcript{
			ID:           "tldv-" + m.ID,
			MeetingID:    m.ID,
			Title:        m.Name,
			Timestamp:    m.HappenedAt,
			Participants: m.Participants(),
			Content:      text,
			Source:       content.SourceTLDV,
		}
		if p.saver != nil {
			if err := p.saver.SaveTranscript(ctx, t); err != nil {
				slog.Warn("tldv: persist transcript failed", "transcript_id", t.ID, "err", err)
			}
		}

		p.mu.Lock()
		p.seen[m.ID] = struct{}{}
		delete(p.fails, m.ID)
		p.mu.Unlock()

		p.sink(t)
		delivered++
	}

	// Only advance the window when nothing in it is still pending, so
	// not-ready meetings are listed again next poll.
	if allReady {
		p.mu.Lock()
		p.lastChecked = time.Now()
		p.mu.Unlock()
	}

	if delivered > 0 {
		slog.Info("tldv: new transcripts fetched", "count", delivered)
	}
	return delivered, nil
}
