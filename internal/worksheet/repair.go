package worksheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/michaelssavage/spanish-worksheets/internal/llm"
)

const repairSystemPrompt = `You repair malformed JSON produced by another model.
Fix the structure only. Do not alter, translate, reorder, add or remove any sentence.
Reply with one valid JSON object and nothing else.`

// Repairer asks the model to restructure output that could not be parsed.
// It makes exactly one request per call.
type Repairer struct {
	provider    llm.Provider
	maxTokens   int
	temperature float64
}

// NewRepairer returns a Repairer using provider.
func NewRepairer(provider llm.Provider, cfg Config) *Repairer {
	return &Repairer{provider: provider, maxTokens: cfg.MaxTokens, temperature: cfg.RepairTemperature}
}

// Repair sends raw back to the model and returns its reply unparsed.
func (r *Repairer) Repair(ctx context.Context, v SchemaVersion, raw string) (string, error) {
	ctx = llm.WithPurpose(ctx, PurposeRepair)
	resp, err := r.provider.Generate(ctx, llm.Request{
		System:      repairSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildRepairPrompt(v, raw)}},
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("repair request: %w", err)
	}
	return resp.Text, nil
}

func buildRepairPrompt(v SchemaVersion, raw string) string {
	var b strings.Builder
	b.WriteString("The previous output was not a valid JSON object.\n")
	b.WriteString("Rewrite it as a single JSON object with exactly this structure:\n\n")
	b.WriteString(v.Skeleton())
	b.WriteString("\n\nKeep every sentence exactly as written.\n\nPrevious output:\n")
	b.WriteString(raw)
	return b.String()
}
