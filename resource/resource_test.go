package resource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/registry"
)

type point struct {
	x, y int64
}

func (p point) TypeID() string       { return registry.TypeID{Name: "Point"}.Canonical() }
func (p point) FieldNames() []string { return []string{"x", "y"} }
func (p point) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{fieldvalue.Int(p.x), fieldvalue.Int(p.y)}
}
func (p point) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	x, _ := fields["x"].Int()
	y, _ := fields["y"].Int()
	return point{x: x, y: y}, nil
}

type celsius float64

func (c celsius) TypeID() string       { return registry.TypeID{Name: "Celsius"}.Canonical() }
func (c celsius) FieldNames() []string { return []string{"value"} }
func (c celsius) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{fieldvalue.Float(float64(c))}
}
func (c celsius) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	v, _ := fields["value"].Float()
	return celsius(v), nil
}

func TestItemsAlignsNamesAndValues(t *testing.T) {
	p := point{x: 1, y: 2}
	items := Items(p)
	require.Len(t, items, 2)
	assert.Equal(t, "x", items[0].Name)
	assert.Equal(t, "y", items[1].Name)
	v, _ := items[0].Value.Int()
	assert.Equal(t, int64(1), v)
}

func TestWrapPassesThroughExistingResource(t *testing.T) {
	reg := registry.New()
	p := point{x: 1, y: 2}
	got, err := Wrap(reg, p)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestWrapUsesRegisteredWrapper(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Descriptor{
		ID:         registry.TypeID{Name: "Celsius"},
		FieldNames: []string{"value"},
		New:        func() registry.FieldsResource { return celsius(0) },
		Wrapper: &registry.Wrapper{
			ForeignType: "float64",
			Wrap: func(v any) (registry.FieldsResource, error) {
				return celsius(v.(float64)), nil
			},
			Unwrap: func(fr registry.FieldsResource) (any, error) {
				return float64(fr.(celsius)), nil
			},
		},
	})

	wrapped, err := Wrap(reg, 37.5)
	require.NoError(t, err)
	assert.Equal(t, celsius(37.5).TypeID(), wrapped.TypeID())

	unwrapped, err := Unwrap(reg, wrapped)
	require.NoError(t, err)
	assert.Equal(t, 37.5, unwrapped)
}

func TestWrapFailsForUnregisteredForeignType(t *testing.T) {
	reg := registry.New()
	_, err := Wrap(reg, 42)
	assert.Error(t, err)
}

func TestFromFieldsReconstructsRegisteredType(t *testing.T) {
	reg := registry.New()
	reg.MustRegister(registry.Descriptor{
		ID:         registry.TypeID{Name: "Point"},
		FieldNames: []string{"x", "y"},
		New:        func() registry.FieldsResource { return point{} },
	})

	r, err := FromFields(reg, point{}.TypeID(), map[string]fieldvalue.Value{
		"x": fieldvalue.Int(3),
		"y": fieldvalue.Int(4),
	})
	require.NoError(t, err)
	assert.Equal(t, point{x: 3, y: 4}, r)
}

func TestSprintRendersTypeNameAndFields(t *testing.T) {
	p := point{x: 1, y: 2}
	out := Sprint(p)
	assert.True(t, strings.Contains(out, "Point"))
	assert.True(t, strings.Contains(out, "x:"))
	assert.True(t, strings.Contains(out, "y:"))
}
