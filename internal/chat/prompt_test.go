package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	history := []string{"hello", "hi there"}
	recent := []string{"hi there"}

	tests := []struct {
		name     string
		kind     PromptKind
		contains []string
	}{
		{
			name: "send",
			kind: PromptSend,
			contains: []string{
				"Previous Responses (DO NOT REPEAT SIMILAR PATTERNS):\nhi there",
				"Latest User Message: what now?",
				"RESPONSE INSTRUCTIONS:",
			},
		},
		{
			name: "regenerate",
			kind: PromptRegenerate,
			contains: []string{
				"Previous Responses (DO NOT REPEAT THESE PATTERNS):\nhi there",
				"Latest User Message: what now?",
				"REGENERATION INSTRUCTIONS:",
				"Generate a response that feels fresh and unexpected.",
			},
		},
		{
			name: "edit",
			kind: PromptEdit,
			contains: []string{
				"Edited User Message: what now?",
				"EDIT RESPONSE INSTRUCTIONS:",
				"Ensure this response feels completely different",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			prompt := BuildPrompt(tc.kind, history, recent, "what now?", 421)
			assert.True(t, strings.HasPrefix(prompt, "Conversation Context:\nhello\nhi there\n"))
			assert.Contains(t, prompt, "Randomization Seed: 421")
			for _, want := range tc.contains {
				assert.Contains(t, prompt, want)
			}
		})
	}
}
