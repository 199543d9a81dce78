package drafting

import (
	"fmt"
	"strings"

	"draftloop/internal/content"
)

// extractSystemPrompt instructs the model to mine transcripts for ideas and
// reply with a JSON array only.
const extractSystemPrompt = `You mine business conversation transcripts for social content ideas.
Reply with a JSON array only, no prose. Each element:
{"theme": "...", "hook": "...", "quotes": ["..."], "suggested_format": "linkedin_post|youtube_script|newsletter|x_thread"}
The hook is the literal opening line the post would start with. Return at most 5 ideas. Return [] if nothing stands out.`

// interviewSystemPrompt frames the interviewer persona.
const interviewSystemPrompt = `You are a ghostwriter interviewing the speaker to gather material for one piece of content.
Ask short, concrete questions. One question at a time. Never answer for them.`

// judgeSystemPrompt asks for a bare yes/no.
const judgeSystemPrompt = `You decide whether an interview has gathered enough concrete material to write the piece.
Answer with exactly one word: yes or no.`

// buildExtractPrompt renders a transcript batch for extraction.
func buildExtractPrompt(transcripts []content.Transcript) string {
	var b strings.Builder
	for i, t := range transcripts {
		fmt.Fprintf(&b, "--- Transcript %d: %s (%s) ---\n", i+1, t.Title, t.Timestamp.Format("2006-01-02"))
		b.WriteString(t.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// buildIdeaContext renders an idea for interview prompts.
func buildIdeaContext(idea content.ContentIdea) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Idea theme: %s\nHook: %s\nSuggested format: %s\n", idea.Theme, idea.Hook, idea.SuggestedFormat)
	if len(idea.Quotes) > 0 {
		b.WriteString("Supporting quotes:\n")
		for _, q := range idea.Quotes {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	return b.String()
}

// buildHistory renders the interview exchange, newest last.
func buildHistory(history []content.InterviewMessage) string {
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Text)
	}
	return b.String()
}

// buildDraftPrompt renders the full drafting instruction.
func buildDraftPrompt(idea content.ContentIdea, history []content.InterviewMessage, format content.Format, voice string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s from the material below.\n\n", formatLabel(format))
	if voice != "" {
		fmt.Fprintf(&b, "Voice and style guide:\n%s\n\n", voice)
	}
	b.WriteString(buildIdeaContext(idea))
	b.WriteString("\nInterview:\n")
	b.WriteString(buildHistory(history))
	b.WriteString("\nReply with JSON only: {\"title\": \"...\", \"body\": \"...\"}")
	return b.String()
}

// formatLabel maps a Format to the phrase used in prompts.
func formatLabel(f content.Format) string {
	switch f {
	case content.FormatLinkedInPost:
		return "LinkedIn post"
	case content.FormatYouTubeScript:
		return "YouTube video script"
	case content.FormatNewsletter:
		return "newsletter issue"
	case content.FormatXThread:
		return "X thread"
	default:
		return "post"
	}
}
