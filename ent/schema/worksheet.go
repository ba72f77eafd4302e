package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Worksheet is the single live worksheet of a user. Generating a new one
// replaces every previous row for that user.
type Worksheet struct {
	ent.Schema
}

func (Worksheet) Fields() []ent.Field {
	return []ent.Field{
		field.Int("user_id").
			Comment("Owning user"),
		field.Time("created_at").
			Default(time.Now).
			Immutable(),
		field.String("content_hash").
			Unique().
			MaxLen(64).
			Immutable().
			Comment("Hex SHA-256 of content; unique across all users"),
		field.Text("content").
			Immutable().
			Comment("Validated worksheet JSON"),
		field.JSON("themes", []string{}).
			Optional().
			Comment("Theme labels the prompt was built with"),
		field.String("schema_version").
			Default("").
			Comment("Section layout the content was validated against"),
	}
}

func (Worksheet) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("user", User.Type).
			Ref("worksheets").
			Field("user_id").
			Unique().
			Required(),
	}
}

func (Worksheet) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("user_id"),
	}
}
