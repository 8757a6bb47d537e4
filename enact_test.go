package enact

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/registry"
)

// word is a minimal committable string wrapper, standing in for a real
// registered enact resource type.
type word struct{ S string }

var wordTypeID = registry.TypeID{Name: "enact.test.Word"}

func (w word) TypeID() string       { return wordTypeID.Canonical() }
func (w word) FieldNames() []string { return []string{"s"} }
func (w word) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{fieldvalue.String(w.S)}
}
func (w word) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	s, _ := fields["s"].String()
	return word{S: s}, nil
}
func init() {
	registry.Default().MustRegister(registry.Descriptor{
		ID:         wordTypeID,
		FieldNames: []string{"s"},
		New:        func() registry.FieldsResource { return word{} },
	})
}

// echo is a stateless Invokable that appends "!" to its input word.
type echo struct{}

var echoTypeID = registry.TypeID{Name: "enact.test.Echo"}

func (echo) TypeID() string                  { return echoTypeID.Canonical() }
func (echo) FieldNames() []string            { return nil }
func (echo) FieldValues() []fieldvalue.Value { return nil }
func (echo) FromFields(map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	return echo{}, nil
}
func (echo) Call(ctx context.Context, input any) (any, error) {
	return word{S: input.(word).S + "!"}, nil
}
func init() {
	registry.Default().MustRegister(registry.Descriptor{
		ID:         echoTypeID,
		FieldNames: nil,
		New:        func() registry.FieldsResource { return echo{} },
	})
}

// TestSummaryGoldenInvocationRendering pins the human-readable journal
// summary format from spec §6 for the simplest possible tree: a single
// leaf call with no raised conditions and no children.
func TestSummaryGoldenInvocationRendering(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	invRef, err := Invoke(ctx, s, echo{}, word{S: "hi"})
	require.NoError(t, err)

	summary, err := Summary(ctx, s, invRef)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "invocation_summary", []byte(summary))
}
