package rag

import (
	"fmt"
	"strings"

	"github.com/studynexus/nexus/internal/models"
)

const (
	prerequisitePreview = 100
	transcriptTail      = 2000
)

// FormatPrompt renders a retrieval context as markdown for a tutoring prompt.
func FormatPrompt(rc models.RAGContext) string {
	if len(rc.RelevantNodes) == 0 {
		return "No relevant concepts found in your knowledge base."
	}

	var b strings.Builder

	b.WriteString("## Your Knowledge Context\n\n")
	b.WriteString("### Relevant Concepts You've Learned:\n")

	for i, n := range rc.RelevantNodes {
		fmt.Fprintf(&b, "%d. **%s** (%d%% mastery)\n", i+1, n.Label, percent(n.SRS.Mastery))
		fmt.Fprintf(&b, "   %s\n\n", n.Explanation)
	}

	if len(rc.PrerequisiteChain) > 0 {
		b.WriteString("\n### Prerequisites (concepts this builds upon):\n")

		for _, n := range rc.PrerequisiteChain {
			fmt.Fprintf(&b, "- %s: %s\n", n.Label, preview(n.Explanation, prerequisitePreview))
		}
	}

	if len(rc.SuggestedReview) > 0 {
		b.WriteString("\n### Related concepts you should review:\n")

		for _, n := range rc.SuggestedReview {
			fmt.Fprintf(&b, "- %s (%d%% mastery)\n", n.Label, percent(n.SRS.Mastery))
		}
	}

	return b.String()
}

// TutorPrompt builds the full grounded prompt for a student question. Only
// the last 2000 characters of transcript are included.
func TutorPrompt(question string, rc models.RAGContext, transcript string) string {
	var b strings.Builder

	b.WriteString("You are a personalized tutor. The student has already learned the concepts below.\n")
	b.WriteString("Explain the answer through what they already know and point out missing prerequisites gently.\n\n")
	b.WriteString(FormatPrompt(rc))
	b.WriteString("\n\n")

	if transcript != "" {
		b.WriteString("## Recent Lecture Context:\n")
		b.WriteString(tail(transcript, transcriptTail))
		b.WriteString("\n\n")
	}

	b.WriteString("## Student's Question:\n")
	b.WriteString(question)
	b.WriteString("\n")

	return b.String()
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n]) + "..."
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[len(r)-n:])
}
