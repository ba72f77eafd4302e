package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// Config is a process-wide key/value row. The theme cursor and the event
// sequence live here.
type Config struct {
	ent.Schema
}

func (Config) Fields() []ent.Field {
	return []ent.Field{
		field.String("key").
			Unique().
			MaxLen(50),
		field.String("value").
			MaxLen(200),
	}
}
