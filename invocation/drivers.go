package invocation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/digest"
	"github.com/agentic-ai/enact-go/store"
)

// Pending describes an outstanding InputRequest surfaced by a driver: the
// decoded condition plus the ref identifying it, which callers pass back to
// SetInput/SetInputFor to resolve it.
type Pending struct {
	Ref     *store.Ref
	Request *InputRequest
}

// findPendingInputRequest walks invRef's tree depth-first looking for a
// raised InputRequest, following exactly the rightmost/most-recent path a
// synchronous execution would have taken: at most one branch of the tree is
// ever mid-raise at a time in this engine, so the first Raised!=nil node
// encountered is the one occupying it.
func findPendingInputRequest(ctx context.Context, s *store.Store, invRef *store.Ref) (*Pending, error) {
	loaded, err := loadInvocation(ctx, s, invRef)
	if err != nil {
		return nil, err
	}
	resp := loaded.resp
	if resp.Raised == nil {
		return nil, nil
	}
	if resp.RaisedHere {
		raisedRes, err := s.Checkout(ctx, resp.Raised)
		if err != nil {
			return nil, err
		}
		if ir, ok := raisedRes.(*InputRequest); ok {
			return &Pending{Ref: resp.Raised, Request: ir}, nil
		}
		return nil, errors.Errorf("invocation: %s raised a non-input condition", invRef.Digest())
	}
	if len(resp.Children) == 0 {
		return nil, errors.Errorf("invocation: %s propagates a raise with no recorded origin", invRef.Digest())
	}
	return findPendingInputRequest(ctx, s, resp.Children[len(resp.Children)-1])
}

// GeneratorDriver is spec §4.8's "lazy sequence of InputRequest values":
// each call to SetInput triggers a fresh Replay with an override that
// resolves the most recently yielded request and re-runs until either the
// next InputRequest surfaces or the invocation completes.
//
// Grounded on original_source/src/enact/invocations.py's generator-based
// input-request driver, rendered as an explicit pull-based Go type since Go
// has no generator/coroutine syntax to imitate directly.
type GeneratorDriver struct {
	ctx       context.Context
	store     *store.Store
	opts      []InvokeOption
	answers   map[digest.Digest]any
	invRef    *store.Ref
	pending   *Pending
}

// NewGeneratorDriver starts invokable(input) and returns a driver positioned
// at either the first InputRequest or a completed invocation.
func NewGeneratorDriver(ctx context.Context, s *store.Store, invokable Invokable, input any, opts ...InvokeOption) (*GeneratorDriver, error) {
	d := &GeneratorDriver{ctx: ctx, store: s, opts: opts, answers: make(map[digest.Digest]any)}
	invRef, err := Invoke(ctx, s, invokable, input, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.advance(invRef); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *GeneratorDriver) advance(invRef *store.Ref) error {
	d.invRef = invRef
	pending, err := findPendingInputRequest(d.ctx, d.store, invRef)
	if err != nil {
		return err
	}
	d.pending = pending
	return nil
}

// Pending returns the outstanding InputRequest, or nil if the invocation is
// complete.
func (d *GeneratorDriver) Pending() *Pending { return d.pending }

// InvocationRef returns the most recent Invocation snapshot.
func (d *GeneratorDriver) InvocationRef() *store.Ref { return d.invRef }

// SetInput resolves the current pending request with value and replays,
// advancing to the next pending request or to completion.
func (d *GeneratorDriver) SetInput(value any) error {
	if d.pending == nil {
		return errors.New("invocation: generator driver has no pending input request")
	}
	d.answers[d.pending.Ref.Digest()] = value
	override := func(raised *store.Ref) (any, bool) {
		v, ok := d.answers[raised.Digest()]
		return v, ok
	}
	opts := append(append([]InvokeOption(nil), d.opts...), WithExceptionOverride(override))
	invRef, err := Replay(d.ctx, d.store, d.invRef, opts...)
	if err != nil {
		return err
	}
	return d.advance(invRef)
}

// AsyncDriver behaves like GeneratorDriver but allows accumulating several
// answers, gathered concurrently, before triggering a single replay (spec
// §4.8's async driver: "overrides are keyed by the InputRequest's own Ref
// so concurrent requests do not collide").
type AsyncDriver struct {
	ctx     context.Context
	store   *store.Store
	opts    []InvokeOption
	answers map[digest.Digest]any
	invRef  *store.Ref
	pending map[digest.Digest]*Pending
}

// NewAsyncDriver starts invokable(input).
func NewAsyncDriver(ctx context.Context, s *store.Store, invokable Invokable, input any, opts ...InvokeOption) (*AsyncDriver, error) {
	d := &AsyncDriver{ctx: ctx, store: s, opts: opts, answers: make(map[digest.Digest]any), pending: make(map[digest.Digest]*Pending)}
	invRef, err := Invoke(ctx, s, invokable, input, opts...)
	if err != nil {
		return nil, err
	}
	if err := d.observe(invRef); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *AsyncDriver) observe(invRef *store.Ref) error {
	d.invRef = invRef
	pending, err := findPendingInputRequest(d.ctx, d.store, invRef)
	if err != nil {
		return err
	}
	if pending != nil {
		d.pending[pending.Ref.Digest()] = pending
	}
	return nil
}

// Pending returns every currently outstanding InputRequest gathered across
// replays so far that has not yet been answered.
func (d *AsyncDriver) Pending() []*Pending {
	out := make([]*Pending, 0, len(d.pending))
	for k, p := range d.pending {
		if _, answered := d.answers[k]; !answered {
			out = append(out, p)
		}
	}
	return out
}

// SetInputFor resolves a specific pending request by its ref, without
// triggering a replay: call Sync afterward to apply all accumulated
// answers in one pass.
func (d *AsyncDriver) SetInputFor(requestRef *store.Ref, value any) {
	d.answers[requestRef.Digest()] = value
}

// Sync replays with every accumulated answer applied at once, then
// re-observes for newly surfaced requests.
func (d *AsyncDriver) Sync() error {
	override := func(raised *store.Ref) (any, bool) {
		v, ok := d.answers[raised.Digest()]
		return v, ok
	}
	opts := append(append([]InvokeOption(nil), d.opts...), WithExceptionOverride(override))
	invRef, err := Replay(d.ctx, d.store, d.invRef, opts...)
	if err != nil {
		return err
	}
	return d.observe(invRef)
}

// InvocationRef returns the most recent Invocation snapshot.
func (d *AsyncDriver) InvocationRef() *store.Ref { return d.invRef }
