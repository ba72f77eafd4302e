package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// User is a worksheet subscriber.
type User struct {
	ent.Schema
}

func (User) Fields() []ent.Field {
	return []ent.Field{
		field.String("email").
			Unique().
			NotEmpty().
			Comment("Delivery address and API identity"),
		field.Bool("active").
			Default(true).
			Comment("Inactive users are skipped by the sweep"),
		field.String("next_delivery").
			Optional().
			MaxLen(10).
			Comment("Next delivery date as YYYY-MM-DD; null means never scheduled"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (User) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("worksheets", Worksheet.Type),
		edge.To("recipients", Recipient.Type),
	}
}

func (User) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("active", "next_delivery"),
	}
}
