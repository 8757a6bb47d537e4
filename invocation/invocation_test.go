package invocation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-ai/enact-go/enacterrors"
	"github.com/agentic-ai/enact-go/enactlog"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/registry"
	"github.com/agentic-ai/enact-go/store"
)

// intValue is a minimal committable wrapper around an int64, standing in
// for the argument/return values a real registered enact type would carry.
type intValue struct {
	N int64
}

var intValueTypeID = registry.TypeID{Name: "test.IntValue"}

func (v intValue) TypeID() string       { return intValueTypeID.Canonical() }
func (v intValue) FieldNames() []string { return []string{"n"} }
func (v intValue) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{fieldvalue.Int(v.N)}
}
func (v intValue) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	n, _ := fields["n"].Int()
	return intValue{N: n}, nil
}

func init() {
	registry.Default().MustRegister(registry.Descriptor{
		ID:         intValueTypeID,
		FieldNames: []string{"n"},
		New:        func() registry.FieldsResource { return intValue{} },
	})
}

// rollSource is a shared, mutable sequence of "random" die faces, consumed
// one value per fresh (non-shortcut) execution of a rollDie invokable.
type rollSource struct {
	values []int64
	i      int
}

func (s *rollSource) next() int64 {
	v := s.values[s.i]
	s.i++
	return v
}

// rollDie is a stateless callable identity (spec §4.6's "equality of
// callables"): its committed representation carries no fields at all, so
// every call to it commits to the same invokable ref regardless of which
// rollSource backs a particular Go instance in a given test.
type rollDie struct {
	source *rollSource
}

var rollDieTypeID = registry.TypeID{Name: "test.RollDie"}

func (r *rollDie) TypeID() string                  { return rollDieTypeID.Canonical() }
func (r *rollDie) FieldNames() []string            { return nil }
func (r *rollDie) FieldValues() []fieldvalue.Value { return nil }
func (r *rollDie) FromFields(map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	return &rollDie{}, nil
}
func (r *rollDie) Call(ctx context.Context, input any) (any, error) {
	return intValue{N: r.source.next()}, nil
}

func init() {
	registry.Default().MustRegister(registry.Descriptor{
		ID:         rollDieTypeID,
		FieldNames: nil,
		New:        func() registry.FieldsResource { return &rollDie{} },
	})
}

// rollSum calls die N times via Call, summing the results, matching
// spec §8's S3 scenario (roll_sum calling roll_die(6) repeatedly).
type rollSum struct {
	N     int64
	Sides int64
	die   *rollDie
}

var rollSumTypeID = registry.TypeID{Name: "test.RollSum"}

func (r *rollSum) TypeID() string       { return rollSumTypeID.Canonical() }
func (r *rollSum) FieldNames() []string { return []string{"n"} }
func (r *rollSum) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{fieldvalue.Int(r.N)}
}
func (r *rollSum) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	n, _ := fields["n"].Int()
	return &rollSum{N: n}, nil
}
func (r *rollSum) Call(ctx context.Context, input any) (any, error) {
	var total int64
	for i := int64(0); i < r.N; i++ {
		out, err := Call(ctx, r.die, intValue{N: r.Sides})
		if err != nil {
			return nil, err
		}
		total += out.(intValue).N
	}
	return intValue{N: total}, nil
}

func init() {
	registry.Default().MustRegister(registry.Descriptor{
		ID:         rollSumTypeID,
		FieldNames: []string{"n"},
		New:        func() registry.FieldsResource { return &rollSum{} },
	})
}

func newTestStore() *store.Store {
	return store.New(store.NewMemoryBackend())
}

func loadResp(t *testing.T, ctx context.Context, s *store.Store, invRef *store.Ref) Response {
	t.Helper()
	loaded, err := loadInvocation(ctx, s, invRef)
	require.NoError(t, err)
	return loaded.resp
}

func outputOf(t *testing.T, ctx context.Context, s *store.Store, resp Response) int64 {
	t.Helper()
	require.NotNil(t, resp.Output)
	res, err := s.Checkout(ctx, resp.Output)
	require.NoError(t, err)
	return res.(intValue).N
}

// TestCallPlainIsUntrackedOutsideInvocation covers spec §4.6's "deliberate
// escape hatch": Call outside any ambient Builder runs invokable directly
// and never touches the store.
func TestCallPlainIsUntrackedOutsideInvocation(t *testing.T) {
	ctx := context.Background()
	die := &rollDie{source: &rollSource{values: []int64{4}}}

	out, err := Call(ctx, die, intValue{N: 6})
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.(intValue).N)
}

// TestInvokeJournalsDiceRoll is spec §8's S3: roll_sum(2) records a root
// Invocation with two children, each an independent roll_die(6) call, and
// the root's own output is their sum.
func TestInvokeJournalsDiceRoll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	die := &rollDie{source: &rollSource{values: []int64{2, 5}}}
	sum := &rollSum{N: 2, Sides: 6, die: die}

	invRef, err := Invoke(ctx, s, sum, intValue{N: 2})
	require.NoError(t, err)

	resp := loadResp(t, ctx, s, invRef)
	require.Len(t, resp.Children, 2)
	assert.Equal(t, int64(7), outputOf(t, ctx, s, resp))

	child0 := loadResp(t, ctx, s, resp.Children[0])
	child1 := loadResp(t, ctx, s, resp.Children[1])
	assert.Equal(t, int64(2), outputOf(t, ctx, s, child0))
	assert.Equal(t, int64(5), outputOf(t, ctx, s, child1))
}

// TestRewindAndReplayResamplesOnlyDroppedLeaf is spec §8's S4: rewind(1)
// drops the last child entirely; a following Replay reuses the first
// child's memoized output (no re-roll: the reseeded source's first value is
// never consumed) and executes a fresh call for the removed second child.
func TestRewindAndReplayResamplesOnlyDroppedLeaf(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	die := &rollDie{source: &rollSource{values: []int64{2, 5}}}
	sum := &rollSum{N: 2, Sides: 6, die: die}

	invRef, err := Invoke(ctx, s, sum, intValue{N: 2})
	require.NoError(t, err)

	rewound, err := Rewind(ctx, s, invRef, 1)
	require.NoError(t, err)

	resp := loadResp(t, ctx, s, rewound)
	require.Len(t, resp.Children, 1)
	assert.False(t, resp.IsComplete())

	// Reseed the die: a value that would change the outcome if replay
	// re-executed the first (already recorded) call.
	die.source = &rollSource{values: []int64{6}}

	replayed, err := Replay(ctx, s, rewound)
	require.NoError(t, err)

	final := loadResp(t, ctx, s, replayed)
	require.Len(t, final.Children, 2)
	// First child's output is still 2: it was matched and shortcut, never
	// re-executed against the reseeded source.
	assert.Equal(t, int64(2), outputOf(t, ctx, s, loadResp(t, ctx, s, final.Children[0])))
	// Second child is fresh, consuming the reseeded source's first value.
	assert.Equal(t, int64(6), outputOf(t, ctx, s, loadResp(t, ctx, s, final.Children[1])))
	assert.Equal(t, int64(8), outputOf(t, ctx, s, final))
}

// TestMatchRecordedComparesByInvokableAndInputDigest exercises spec §4.7's
// match discipline directly: two builders with the same invokable but
// different committed input never match a recorded child, and identical
// (invokable, input) always does.
func TestMatchRecordedComparesByInvokableAndInputDigest(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	die := &rollDie{source: &rollSource{values: []int64{2, 5}}}
	sum := &rollSum{N: 2, Sides: 6, die: die}

	invRef, err := Invoke(ctx, s, sum, intValue{N: 2})
	require.NoError(t, err)

	sumRef, err := s.Commit(ctx, sum)
	require.NoError(t, err)

	differentInputRef, err := s.Commit(ctx, intValue{N: 3})
	require.NoError(t, err)
	mismatched := &Builder{store: s, logger: enactlog.Noop(), traceID: uuid.New()}
	mismatched.invokableRef = sumRef
	mismatched.inputRef = differentInputRef
	matched, err := mismatched.matchRecorded(ctx, invRef)
	require.NoError(t, err)
	assert.False(t, matched)

	sameInputRef, err := s.Commit(ctx, intValue{N: 2})
	require.NoError(t, err)
	exact := &Builder{store: s, logger: enactlog.Noop(), traceID: uuid.New()}
	exact.invokableRef = sumRef
	exact.inputRef = sameInputRef
	matched, err = exact.matchRecorded(ctx, invRef)
	require.NoError(t, err)
	assert.True(t, matched)
}

// TestStrictReplayDetectsDivergence is spec §8's S5: rollSum's Sides field
// is not part of its committed identity (only N is), so mutating it in
// place between the original run and a Replay still matches the recorded
// root by digest, but the nested roll_die calls it makes now commit a
// different input than what was recorded — the divergence strict mode
// must fail on rather than silently reconcile.
func TestStrictReplayDetectsDivergence(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	die := &rollDie{source: &rollSource{values: []int64{2, 5}}}
	sum := &rollSum{N: 2, Sides: 6, die: die}

	invRef, err := Invoke(ctx, s, sum, intValue{N: 2})
	require.NoError(t, err)

	rewound, err := Rewind(ctx, s, invRef, 0)
	require.NoError(t, err)

	sum.Sides = 8
	_, err = Replay(ctx, s, rewound)
	require.Error(t, err)
	assert.ErrorIs(t, err, enacterrors.ErrReplayError)
}

// TestGeneratorDriverResolvesInputRequests is spec §8's S6: a callable that
// calls RequestInput n times in a loop, each answered with (i%7)+1,
// summing to 28 for n=7 (1+2+3+4+5+6+7).
type sumRequestedInputs struct {
	N int64
}

var sumRequestedInputsTypeID = registry.TypeID{Name: "test.SumRequestedInputs"}

func (s *sumRequestedInputs) TypeID() string       { return sumRequestedInputsTypeID.Canonical() }
func (s *sumRequestedInputs) FieldNames() []string { return []string{"n"} }
func (s *sumRequestedInputs) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{fieldvalue.Int(s.N)}
}
func (s *sumRequestedInputs) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	n, _ := fields["n"].Int()
	return &sumRequestedInputs{N: n}, nil
}
func (s *sumRequestedInputs) Call(ctx context.Context, input any) (any, error) {
	var total int64
	for i := int64(0); i < s.N; i++ {
		v, err := RequestInput(ctx, "test.Int", intValue{N: i}, fieldvalue.Null())
		if err != nil {
			return nil, err
		}
		total += v.(intValue).N
	}
	return intValue{N: total}, nil
}

func init() {
	registry.Default().MustRegister(registry.Descriptor{
		ID:         sumRequestedInputsTypeID,
		FieldNames: []string{"n"},
		New:        func() registry.FieldsResource { return &sumRequestedInputs{} },
	})
}

func TestGeneratorDriverResolvesInputRequests(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	driver, err := NewGeneratorDriver(ctx, s, &sumRequestedInputs{N: 7}, intValue{})
	require.NoError(t, err)

	var got int64
	for i := int64(0); i < 7; i++ {
		require.NotNil(t, driver.Pending(), "expected a pending input request at step %d", i)
		got++
		require.NoError(t, driver.SetInput(intValue{N: i%7 + 1}))
	}
	require.Nil(t, driver.Pending())

	resp := loadResp(t, ctx, s, driver.InvocationRef())
	assert.Equal(t, int64(28), outputOf(t, ctx, s, resp))
	assert.Equal(t, int64(7), got)
}
