package drafting

import (
	"encoding/json"
	"log/slog"
	"strings"

	"draftloop/internal/content"
)

// stripFences removes a surrounding markdown code fence, which models emit
// even when asked for bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop an optional language tag on the opening fence line.
	if idx := strings.IndexByte(s, '\n'); idx >= 0 && !strings.ContainsAny(s[:idx], "{[") {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseCandidates decodes an extraction response. Malformed input yields an
// empty slice, never an error. Candidates without a hook are dropped and an
// unrecognised suggested format falls back to linkedin_post.
func parseCandidates(raw string) []IdeaCandidate {
	var decoded []IdeaCandidate
	if err := json.Unmarshal([]byte(stripFences(raw)), &decoded); err != nil {
		slog.Debug("drafting: unparseable extraction response", "err", err)
		return nil
	}

	out := make([]IdeaCandidate, 0, len(decoded))
	for _, c := range decoded {
		if strings.TrimSpace(c.Hook) == "" {
			continue
		}
		if !c.SuggestedFormat.IsValid() {
			c.SuggestedFormat = content.FormatLinkedInPost
		}
		out = append(out, c)
	}
	return out
}

// parseDraft decodes a draft response. If the JSON is malformed, the whole
// response text becomes the body and fallbackTitle the title, so a
// format-breaking model still produces a usable draft.
func parseDraft(raw string, fallbackTitle string) Draft {
	var d Draft
	if err := json.Unmarshal([]byte(stripFences(raw)), &d); err == nil && strings.TrimSpace(d.Body) != "" {
		if strings.TrimSpace(d.Title) == "" {
			d.Title = fallbackTitle
		}
		return d
	}
	slog.Debug("drafting: draft response not valid JSON, using raw text as body")
	return Draft{Title: fallbackTitle, Body: strings.TrimSpace(raw)}
}

// parseYesNo interprets a judgment response. Anything that does not clearly
// say yes counts as no.
func parseYesNo(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(stripFences(raw)))
	s = strings.Trim(s, ".!\"' ")
	return s == "yes" || strings.HasPrefix(s, "yes")
}
