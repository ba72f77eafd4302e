package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
	"entgo.io/ent/schema/mixin"
)

// Sequenced stamps append-only rows with a process-wide ordering number
// and the time they were written. The number comes from the configs table
// counter, not the row id.
type Sequenced struct {
	mixin.Schema
}

func (Sequenced) Fields() []ent.Field {
	return []ent.Field{
		field.Int64("sequence").
			Unique().
			Immutable().
			Comment("Counter value at insert; newest rows sort first"),
		field.Time("timestamp").
			Default(time.Now).
			Immutable().
			Comment("UTC insert time"),
	}
}

func (Sequenced) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("timestamp"),
	}
}
