package chat

import (
	"fmt"
	"strings"
)

// PromptKind selects the instruction block appended to an augmented prompt.
type PromptKind int

const (
	PromptSend PromptKind = iota
	PromptRegenerate
	PromptEdit
)

const sendInstructions = `RESPONSE INSTRUCTIONS:
1. Provide a unique and fresh perspective
2. Use different examples and explanations than before
3. Vary your communication style and approach
4. Ensure response is distinct from previous ones
5. Maintain accuracy while being creative in presentation`

const regenerateInstructions = `REGENERATION INSTRUCTIONS:
IMPORTANT: Create a completely different response that:
1. Uses entirely new wording, examples, and structure
2. Takes a completely different approach or perspective
3. Avoids ANY similarities with previous responses
4. Uses a different tone and style
5. Explores alternative ways to explain the same concept
6. Maintains accuracy while being innovative`

const editInstructions = `EDIT RESPONSE INSTRUCTIONS:
IMPORTANT: Generate a completely fresh response that:
1. Addresses the edited message with an entirely new approach
2. Uses different examples, analogies, and explanations
3. Changes the entire structure and flow
4. Takes a unique perspective not seen in previous responses
5. Maintains relevance while being creative
6. Uses a different communication style`

// BuildPrompt assembles the text sent to the model: the context window, the
// recent responses to avoid repeating, the user content, the instruction block
// for kind and a sampling seed.
func BuildPrompt(kind PromptKind, context, recent []string, content string, seed int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Conversation Context:\n%s\n\n", strings.Join(context, "\n"))

	switch kind {
	case PromptSend:
		fmt.Fprintf(&b, "Previous Responses (DO NOT REPEAT SIMILAR PATTERNS):\n%s\n\n", strings.Join(recent, "\n"))
		fmt.Fprintf(&b, "Latest User Message: %s\n\n", content)
		fmt.Fprintf(&b, "%s\n\n", sendInstructions)
		fmt.Fprintf(&b, "Randomization Seed: %d\n", seed)
	case PromptRegenerate:
		fmt.Fprintf(&b, "Previous Responses (DO NOT REPEAT THESE PATTERNS):\n%s\n\n", strings.Join(recent, "\n"))
		fmt.Fprintf(&b, "Latest User Message: %s\n\n", content)
		fmt.Fprintf(&b, "%s\n\n", regenerateInstructions)
		fmt.Fprintf(&b, "Randomization Seed: %d\n", seed)
		b.WriteString("Generate a response that feels fresh and unexpected.\n")
	case PromptEdit:
		fmt.Fprintf(&b, "Previous Responses (DO NOT REPEAT THESE PATTERNS):\n%s\n\n", strings.Join(recent, "\n"))
		fmt.Fprintf(&b, "Edited User Message: %s\n\n", content)
		fmt.Fprintf(&b, "%s\n\n", editInstructions)
		fmt.Fprintf(&b, "Randomization Seed: %d\n", seed)
		b.WriteString("Ensure this response feels completely different from all previous ones.\n")
	}

	return b.String()
}
