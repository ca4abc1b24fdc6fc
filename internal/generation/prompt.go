package generation

import (
	"fmt"
	"strings"

	"github.com/voicepost-platform/voicepost/internal/contextstore"
)

const promptTemplate = `You are an expert social media manager and content creator.

Given the following raw thoughts (transcribed from audio) and context retrieved from the user's past posts or knowledge base,
generate an engaging, native-feeling social media post.
Make sure the tone is consistent with the context provided, if any.
Ensure it's highly readable, uses appropriate emojis, and has relevant hashtags.
%s
Context from past posts:
%s

Raw Thoughts (Audio Transcript):
%s

Generated Social Media Post:`

// buildPrompt assembles the RAG prompt from the transcript, retrieved context,
// optional live news context, and an optional tone instruction.
func buildPrompt(req Request, newsContext string) string {
	toneLine := ""
	if req.Tone != "" {
		toneLine = fmt.Sprintf("\nWrite the post in a %s tone.\n", req.Tone)
	}

	return fmt.Sprintf(promptTemplate, toneLine, formatContext(req.Context)+newsContext, req.Transcript)
}

func formatContext(items []contextstore.Item) string {
	if len(items) == 0 {
		return "No specific past context found."
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, "- "+it.Text)
	}
	return strings.Join(lines, "\n")
}
