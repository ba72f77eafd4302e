package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// LLMRequestEvent is one model call made while generating, repairing or
// previewing a worksheet. The llm commands read these back for cost and
// failure reports.
type LLMRequestEvent struct {
	ent.Schema
}

func (LLMRequestEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{Sequenced{}}
}

func (LLMRequestEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("provider").
			Comment("deepseek, openai, anthropic, gemini or openrouter"),
		field.String("model").
			Comment("Model ID reported by the provider"),
		field.String("purpose").
			Comment("worksheet-gen, worksheet-repair or passthrough"),
		field.Int("input_tokens").
			Default(0),
		field.Int("output_tokens").
			Default(0),
		field.Int64("latency_ms").
			Default(0),
		field.Bool("success"),
		field.String("error_message").
			Default(""),
		field.Text("request_body").
			Default("").
			Comment("Prompt as sent"),
		field.Text("response_body").
			Default("").
			Comment("Reply text before validation"),
	}
}

func (LLMRequestEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("purpose", "timestamp"),
		index.Fields("success"),
	}
}
