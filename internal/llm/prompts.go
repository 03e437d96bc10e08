package llm

import (
	"fmt"
	"strings"

	"github.com/scottkmcmillan/relate/internal/domain"
)

const affirmingSystemPrompt = `You are a thoughtful personal advisor. Ground your advice in the
provided context sources, cite them by their [n] markers, and be warm and supportive.
If the context is insufficient, say so rather than inventing details.`

const candidSystemPrompt = `You are a thoughtful personal advisor. Ground your advice in the
provided context sources and cite them by their [n] markers. The user has opted into candid
feedback and the conversation shows patterns worth naming directly: be honest and specific,
challenge avoidance or rationalization where you see it, and do not soften your assessment
to be agreeable. Stay respectful; candor is not hostility.`

// BuildPrompt assembles the generation prompt from the query, the synthesized
// context, and the candor decision.
func BuildPrompt(query string, bundle domain.ContextBundle, candor domain.CandorDecision) string {
	var sb strings.Builder

	if candor.Activate {
		sb.WriteString(candidSystemPrompt)
	} else {
		sb.WriteString(affirmingSystemPrompt)
	}
	sb.WriteString("\n\n")

	if bundle.InsufficientContext {
		sb.WriteString("No relevant context was found in the user's knowledge base.\n")
	} else {
		sb.WriteString("Context sources:\n")
		for _, src := range bundle.Sources {
			fmt.Fprintf(&sb, "[%d] %s", src.CitationMarker, src.Title)
			if src.Snippet != "" {
				sb.WriteString(": ")
				sb.WriteString(src.Snippet)
			}
			sb.WriteString("\n")
		}
		for _, path := range bundle.SynthesisPath {
			sb.WriteString(path)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\nUser query: ")
	sb.WriteString(query)
	return sb.String()
}
