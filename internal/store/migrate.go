package store

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"entgo.io/ent"
	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/michaelssavage/spanish-worksheets/ent/schema"
)

// entities maps each table to the ent schema that declares it. Order
// matters: referenced tables come first.
var entities = []struct {
	table  string
	schema ent.Interface
}{
	{"users", entschema.User{}},
	{"recipients", entschema.Recipient{}},
	{"worksheets", entschema.Worksheet{}},
	{"configs", entschema.Config{}},
	{"llm_request_events", entschema.LLMRequestEvent{}},
}

func migrate(ctx context.Context, drv dialect.Driver) error {
	tables, err := Tables()
	if err != nil {
		return err
	}
	m, err := schema.NewMigrate(drv, schema.WithForeignKeys(true))
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	return m.Create(ctx, tables...)
}

// Tables builds the migration tables from the ent schema declarations:
// one auto-increment "id" primary key per table, a column per field
// (mixins first), an index per declared index, and a cascading foreign key
// for every inverse edge bound to a field.
func Tables() ([]*schema.Table, error) {
	byType := make(map[string]*schema.Table, len(entities))
	tables := make([]*schema.Table, 0, len(entities))

	for _, e := range entities {
		t, err := buildTable(e.table, e.schema)
		if err != nil {
			return nil, err
		}
		byType[typeName(e.schema)] = t
		tables = append(tables, t)
	}

	for _, e := range entities {
		t := byType[typeName(e.schema)]
		for _, ed := range e.schema.Edges() {
			d := ed.Descriptor()
			if !d.Inverse || d.Field == "" {
				continue
			}
			ref, ok := byType[d.Type]
			if !ok {
				return nil, fmt.Errorf("%s: edge %q references unknown type %q", t.Name, d.Name, d.Type)
			}
			col, ok := t.Column(d.Field)
			if !ok {
				return nil, fmt.Errorf("%s: edge %q binds missing field %q", t.Name, d.Name, d.Field)
			}
			t.AddForeignKey(&schema.ForeignKey{
				Symbol:     fmt.Sprintf("%s_%s_%s", t.Name, ref.Name, d.RefName),
				Columns:    []*schema.Column{col},
				RefTable:   ref,
				RefColumns: []*schema.Column{ref.PrimaryKey[0]},
				OnDelete:   schema.Cascade,
			})
		}
	}

	return tables, nil
}

func buildTable(name string, s ent.Interface) (*schema.Table, error) {
	t := schema.NewTable(name)
	t.AddPrimary(&schema.Column{Name: "id", Type: field.TypeInt, Increment: true})

	var (
		fields  []ent.Field
		indexes []ent.Index
	)
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	for _, f := range fields {
		d := f.Descriptor()
		if d.Err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, d.Name, d.Err)
		}
		t.AddColumn(columnOf(d))
	}

	prefix := strings.ToLower(typeName(s))
	for _, idx := range indexes {
		d := idx.Descriptor()
		t.AddIndex(prefix+"_"+strings.Join(d.Fields, "_"), d.Unique, d.Fields)
	}
	return t, nil
}

func columnOf(d *field.Descriptor) *schema.Column {
	c := &schema.Column{
		Name:       d.Name,
		Type:       d.Info.Type,
		Unique:     d.Unique,
		Nullable:   d.Optional,
		Size:       int64(d.Size),
		SchemaType: d.SchemaType,
		Comment:    d.Comment,
	}
	if d.StorageKey != "" {
		c.Name = d.StorageKey
	}
	// Function defaults (time.Now) are applied by the repositories.
	switch v := d.Default.(type) {
	case string, bool, int, int64, float64:
		c.Default = v
	}
	return c
}

func typeName(s ent.Interface) string {
	return reflect.Indirect(reflect.ValueOf(s)).Type().Name()
}
