// Package tldv is an HTTP client for the tl;dv meeting API: listing
// meetings since a timestamp (paginated) and fetching meeting transcripts.
//
// A transcript that is still being processed is reported via [ErrNotReady];
// callers must treat it as a skip, not a failure.
package tldv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production tl;dv API endpoint.
const DefaultBaseURL = "https://pasta.tldv.io/v1alpha1"

// ErrNotReady indicates the transcript for a meeting has not finished
// processing yet.
var ErrNotReady = errors.New("tldv: transcript not ready")

// Meeting is one meeting returned by the list endpoint.
type Meeting struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	HappenedAt time.Time `json:"happenedAt"`
	Organizer  Person    `json:"organizer"`
	Invitees   []Person  `json:"invitees"`
}

// Person identifies a meeting participant.
type Person struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Participants returns the organizer plus invitee names.
func (m Meeting) Participants() []string {
	names := make([]string, 0, len(m.Invitees)+1)
	if m.Organizer.Name != "" {
		names = append(names, m.Organizer.Name)
	}
	for _, p := range m.Invitees {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	return names
}

// TranscriptSegment is one speaker turn in a meeting transcript.
type TranscriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// meetingsPage is the wire shape of the paginated list response.
type meetingsPage struct {
	Page     int       `json:"page"`
	Pages    int       `json:"pages"`
	Total    int       `json:"total"`
	Results  []Meeting `json:"results"`
	PageSize int       `json:"pageSize"`
}

// transcriptResponse is the wire shape of the transcript endpoint.
type transcriptResponse struct {
	ID        string              `json:"id"`
	MeetingID string              `json:"meetingId"`
	Data      []TranscriptSegment `json:"data"`
}

// Client talks to the tl;dv API. Safe for concurrent use.
type Client struct {
	apiKey   string
	baseURL  string
	http     *http.Client
	pageSize int
}

// Option is a functional option for Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (used in tests).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithPageSize sets the page size requested from the list endpoint.
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = n
	}
}

// New creates a tl;dv Client.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tldv: apiKey must not be empty")
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ListMeetings returns all meetings that happened at or after since,
// following pagination until the last page.
func (c *Client) ListMeetings(ctx context.Context, since time.Time) ([]Meeting, error) {
	var all []Meeting
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("from", since.UTC().Format(time.RFC3339))
		q.Set("page", strconv.Itoa(page))
		if c.pageSize > 0 {
			q.Set("limit", strconv.Itoa(c.pageSize))
		}

		var resp meetingsPage
		if err := c.get(ctx, "/meetings?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("tldv: list meetings page %d: %w", page, err)
		}
		all = append(all, resp.Results...)
		if resp.Pages == 0 || page >= resp.Pages || len(resp.Results) == 0 {
			break
		}
	}
	return all, nil
}

// GetTranscript fetches the full transcript text for a meeting, joining
// speaker turns into "Speaker: text" lines. Returns [ErrNotReady] when the
// transcript is still processing.
func (c *Client) GetTranscript(ctx context.Context, meetingID string) (string, error) {
	var resp transcriptResponse
	err := c.get(ctx, "/meetings/"+url.PathEscape(meetingID)+"/transcript", &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", ErrNotReady
	}

	var b strings.Builder
	for _, seg := range resp.Data {
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			b.WriteString(": ")
		}
		b.WriteString(seg.Text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// get performs an authenticated GET and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("tldv: build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tldv: request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusAccepted:
		// The API answers 404/202 for transcripts still being processed.
		return ErrNotReady
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("tldv: %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tldv: decode %s: %w", path, err)
	}
	return nil
}
