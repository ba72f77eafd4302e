package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Recipient is an extra address that receives a user's worksheets.
type Recipient struct {
	ent.Schema
}

func (Recipient) Fields() []ent.Field {
	return []ent.Field{
		field.Int("user_id").
			Comment("Owning user"),
		field.String("email").
			NotEmpty(),
		field.String("name").
			Default("").
			MaxLen(100),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

func (Recipient) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("user", User.Type).
			Ref("recipients").
			Field("user_id").
			Unique().
			Required(),
	}
}

func (Recipient) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id", "email").Unique(),
	}
}
