package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-ai/enact-go/fieldvalue"
)

type widget struct {
	name string
}

func (w widget) TypeID() string             { return TypeID{Name: "Widget"}.Canonical() }
func (w widget) FieldNames() []string       { return []string{"name"} }
func (w widget) FieldValues() []fieldvalue.Value { return []fieldvalue.Value{fieldvalue.String(w.name)} }
func (w widget) FromFields(fields map[string]fieldvalue.Value) (FieldsResource, error) {
	s, _ := fields["name"].String()
	return widget{name: s}, nil
}

func widgetDescriptor() Descriptor {
	return Descriptor{
		ID:         TypeID{Name: "Widget"},
		FieldNames: []string{"name"},
		New:        func() FieldsResource { return widget{} },
	}
}

func TestTypeIDCanonicalIsStableJSON(t *testing.T) {
	id := TypeID{Name: "Foo"}
	assert.Equal(t, `{"name":"Foo","distribution_key":null}`, id.Canonical())
}

func TestParseTypeIDRoundTrip(t *testing.T) {
	id := TypeID{Name: "Foo"}
	parsed, err := ParseTypeID(id.Canonical())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	d := widgetDescriptor()
	require.NoError(t, r.Register(d))

	got, err := r.LookupByTypeID(d.ID.Canonical())
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := New()
	d := widgetDescriptor()
	require.NoError(t, r.Register(d))
	require.NoError(t, r.Register(d))
}

func TestRegisterRejectsConflictingSchema(t *testing.T) {
	r := New()
	d := widgetDescriptor()
	require.NoError(t, r.Register(d))

	conflicting := d
	conflicting.FieldNames = []string{"name", "extra"}
	err := r.Register(conflicting)
	assert.Error(t, err)
}

func TestLookupUnknownTypeFails(t *testing.T) {
	r := New()
	_, err := r.LookupByTypeID(`{"name":"Nope","distribution_key":null}`)
	assert.Error(t, err)
}

func TestMustRegisterPanicsOnConflict(t *testing.T) {
	r := New()
	d := widgetDescriptor()
	r.MustRegister(d)

	conflicting := d
	conflicting.FieldNames = []string{"different"}
	assert.Panics(t, func() { r.MustRegister(conflicting) })
}

func TestWrapperLookup(t *testing.T) {
	r := New()
	d := widgetDescriptor()
	d.Wrapper = &Wrapper{
		ForeignType: "string",
		Wrap: func(v any) (FieldsResource, error) {
			return widget{name: v.(string)}, nil
		},
		Unwrap: func(fr FieldsResource) (any, error) {
			return fr.(widget).name, nil
		},
	}
	require.NoError(t, r.Register(d))

	got, ok := r.LookupWrapperFor("string")
	require.True(t, ok)
	assert.Equal(t, d.ID, got.ID)

	_, ok = r.LookupWrapperFor("int")
	assert.False(t, ok)
}
