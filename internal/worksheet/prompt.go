package worksheet

import (
	"fmt"
	"strings"

	"github.com/michaelssavage/spanish-worksheets/internal/llm"
)

const systemPrompt = `You generate Spanish-learning worksheets.

Rules:
- Write in neutral, standard Spanish suitable for intermediate learners (B1-B2).
- Use irregular verbs throughout: most missing verbs must be irregular in the target tense.
- Every sentence must be natural, grammatically correct and self-contained.
- Avoid repeating any forbidden content.
- Reply with the JSON object only. No English, no explanations.`

// Blank is the placeholder marking a missing verb.
const Blank = "____"

// Prompt is the two role-tagged blocks sent to the model.
type Prompt struct {
	System string
	User   string
}

// Messages returns the prompt as chat messages.
func (p Prompt) Messages() []llm.Message {
	return []llm.Message{{Role: llm.RoleUser, Content: p.User}}
}

// BuildPrompt renders the prompt for one worksheet. It is a pure function
// of its inputs. An empty themes slice yields an empty themes line.
func BuildPrompt(v SchemaVersion, themes, forbidden []string) Prompt {
	var b strings.Builder

	b.WriteString("Generate a Spanish worksheet.\n\n")

	b.WriteString("Themes for this worksheet:\n")
	b.WriteString(strings.Join(themes, ", "))
	b.WriteString("\n\n")

	b.WriteString("Forbidden sentences:\n")
	b.WriteString(buildForbidden(forbidden))
	b.WriteString("\n\n")

	b.WriteString("Sections required:\n")
	for i, s := range v.Sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, fmt.Sprintf(s.Instruction, v.Count))
	}

	b.WriteString("\nBlanks:\n")
	fmt.Fprintf(&b, "Mark each missing verb with %s, optionally followed by the infinitive in parentheses.\n", Blank)
	fmt.Fprintf(&b, "Example: Ayer nosotros %s (ir) al mercado.\n", Blank)

	b.WriteString("\nOutput format:\nJSON only.\nUse exactly this structure, replacing every empty string with a sentence:\n\n")
	b.WriteString(v.Skeleton())
	b.WriteString("\n\nRules:\n")
	b.WriteString("- No English.\n")
	b.WriteString("- No repetition of forbidden sentences.\n")
	fmt.Fprintf(&b, "- Exactly %d sentences per section.\n", v.Count)
	fmt.Fprintf(&b, "- Use only these keys: %s.\n", strings.Join(v.Keys(), ", "))
	b.WriteString("- No explanations.")

	return Prompt{System: systemPrompt, User: b.String()}
}

// buildForbidden lists sentences the model must not reuse, or "None.".
func buildForbidden(sentences []string) string {
	var lines []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		lines = append(lines, "- "+s)
	}
	if len(lines) == 0 {
		return "None."
	}
	return strings.Join(lines, "\n")
}
