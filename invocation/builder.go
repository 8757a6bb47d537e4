package invocation

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/enactlog"
	"github.com/agentic-ai/enact-go/resource"
	"github.com/agentic-ai/enact-go/store"
)

// ReplayMode selects strict-vs-non-strict divergence handling for a replay
// tree (spec §4.7's "Strict vs. non-strict").
type ReplayMode int

const (
	// Strict fails the whole replay on the first divergence.
	Strict ReplayMode = iota
	// NonStrict discards the recorded suffix at the point of divergence and
	// continues executing normally, journaling fresh children from there
	// (SPEC_FULL.md §13's resolution of the non-strict open question).
	NonStrict
)

// replayOptions is shared, unmodified, by every Builder node descended from
// a single top-level Invoke/Replay call: the mode and override policy are
// fixed for the whole tree, only the per-node "available children" list
// varies as replay descends (spec §4.7).
type replayOptions struct {
	mode              ReplayMode
	exceptionOverride ExceptionOverride
}

// ExceptionOverride intercepts a recorded raised condition during replay
// and may substitute a resolved value for it (spec §4.8's input-request
// resolution mechanism). ok=false means "do not override; re-raise."
type ExceptionOverride func(raised *store.Ref) (any, bool)

// Builder is the interposition layer of spec §4.6: one instance per node of
// the in-progress invocation tree, holding the state that will become that
// node's committed Request/Response once finalize runs.
//
// Grounded on original_source/src/enact/invocations.py's Builder class,
// generalized from Python's contextvar-scoped singleton per task to an
// explicit context.Context value (design notes §9: "a thin ambient-context
// façade for ergonomics" instead of goroutine-local state).
type Builder struct {
	store        *store.Store
	logger       enactlog.Logger
	traceID      uuid.UUID
	parent       *Builder
	invokableRef *store.Ref
	inputRef     *store.Ref

	mu       sync.Mutex
	children []*store.Ref

	output     *store.Ref
	raised     *store.Ref
	raisedHere bool

	replayOpts       *replayOptions
	replayAvailable  []*store.Ref
	replayResponse   *Response
	replayDivergence *ReplayError
}

type builderCtxKey struct{}

func withBuilder(ctx context.Context, b *Builder) context.Context {
	return context.WithValue(ctx, builderCtxKey{}, b)
}

func currentBuilder(ctx context.Context) *Builder {
	b, _ := ctx.Value(builderCtxKey{}).(*Builder)
	return b
}

// childRaised marks an error that already propagated through a nested
// Builder node's own run (and was already committed as that node's
// response.raised), so an ancestor's run knows to record raised_here=false
// instead of true when it sees the same error surface from its own body
// call (spec §4.6 step 6: "records raised_here=false (propagation, not
// origination)").
type childRaised struct {
	cond Condition
}

func (c *childRaised) Error() string { return c.cond.Error() }
func (c *childRaised) Unwrap() error { return c.cond }

// Call is the framework's tracked entry point (spec §6 `invoke`, and the
// "nested call" half of §4.6 step 4). If ctx carries an ambient Builder
// (i.e. this call happens inside another tracked invocation's body), a
// child node is created, journaled and finalized. Otherwise this is a
// plain call: it runs invokable directly and is invisible to the journal
// (spec §4.6, "a deliberate escape hatch for non-determinism").
func Call(ctx context.Context, invokable Invokable, input any) (any, error) {
	parent := currentBuilder(ctx)
	if parent == nil {
		return invokable.Call(ctx, input)
	}
	return parent.call(ctx, invokable, input)
}

func (b *Builder) call(ctx context.Context, invokable Invokable, input any) (any, error) {
	invokableRef, err := b.store.Commit(ctx, invokable)
	if err != nil {
		return nil, errors.Wrap(err, "invocation: committing invokable")
	}
	inputRef, err := b.store.Commit(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "invocation: committing input")
	}

	child := &Builder{
		store:        b.store,
		logger:       b.logger,
		traceID:      uuid.New(),
		parent:       b,
		invokableRef: invokableRef,
		inputRef:     inputRef,
		replayOpts:   b.replayOpts,
	}
	child.logger.DebugCtx(ctx, "invocation: entering node",
		"trace_id", child.traceID.String(),
		"invokable", invokableRef.Digest().String(),
		"input", inputRef.Digest().String())

	if b.replayOpts != nil && len(b.replayAvailable) > 0 {
		recordedRef := b.replayAvailable[0]
		matched, err := child.matchRecorded(ctx, recordedRef)
		if err != nil {
			return nil, errors.Wrap(err, "invocation: reading recorded child during replay")
		}
		if matched {
			b.replayAvailable = b.replayAvailable[1:]
		} else {
			// Non-strict discards the remaining recorded suffix at this
			// node and falls through to normal execution (SPEC_FULL.md
			// §13's resolution of the non-strict open question); strict
			// records the mismatch itself as this node's raised condition.
			b.replayAvailable = nil
			if b.replayOpts.mode == Strict {
				child.replayDivergence = NewReplayError(
					"replay divergence: recorded child %s does not match call to invokable %s with input %s",
					recordedRef.Digest(), invokableRef.Digest(), inputRef.Digest())
				child.logger.WarnCtx(ctx, "invocation: replay divergence",
					"trace_id", child.traceID.String(), "recorded_child", recordedRef.Digest().String())
			}
		}
	}

	out, callErr := child.run(ctx, invokable, input)

	invRef, finalizeErr := child.finalize(ctx)
	if finalizeErr != nil {
		child.logger.WarnCtx(ctx, "invocation: finalize failed",
			"trace_id", child.traceID.String(), "error", finalizeErr.Error())
		return nil, finalizeErr
	}
	b.mu.Lock()
	b.children = append(b.children, invRef)
	b.mu.Unlock()

	return out, callErr
}

// matchRecorded checks out recordedRef's Request and compares it against
// child's own (invokable, input) refs by digest equality (spec §4.7's
// "match discipline"). On a match it seeds child's own replay state from
// the recorded Response so nested calls within child's body can themselves
// be matched further.
func (b *Builder) matchRecorded(ctx context.Context, recordedRef *store.Ref) (bool, error) {
	recordedRes, err := b.store.Checkout(ctx, recordedRef)
	if err != nil {
		return false, err
	}
	recordedInv, ok := recordedRes.(Invocation)
	if !ok {
		return false, errors.Errorf("recorded child %s is not an Invocation", recordedRef.Digest())
	}
	reqRes, err := b.store.Checkout(ctx, recordedInv.Request)
	if err != nil {
		return false, err
	}
	req, ok := reqRes.(Request)
	if !ok {
		return false, errors.Errorf("recorded request %s is malformed", recordedInv.Request.Digest())
	}
	if !req.Invokable.Equal(b.invokableRef) || !req.Input.Equal(b.inputRef) {
		return false, nil
	}
	respRes, err := b.store.Checkout(ctx, recordedInv.Response)
	if err != nil {
		return false, err
	}
	resp, ok := respRes.(Response)
	if !ok {
		return false, errors.Errorf("recorded response %s is malformed", recordedInv.Response.Digest())
	}
	b.replayResponse = &resp
	b.replayAvailable = resp.Children
	return true, nil
}

// run executes (or shortcuts) this node's body and records the outcome.
// A raised Condition is returned as a *childRaised wrapping the Condition
// that was committed as this node's response.raised; a failure to commit the
// outcome, or to check out a recorded one, is returned as that plain error.
func (b *Builder) run(ctx context.Context, invokable Invokable, input any) (any, error) {
	ctx = withBuilder(ctx, b)

	if b.replayDivergence != nil {
		if err := b.recordRaised(ctx, b.replayDivergence, true); err != nil {
			return nil, err
		}
		return nil, &childRaised{cond: b.replayDivergence}
	}

	if b.replayResponse != nil {
		resp := b.replayResponse
		switch {
		case resp.Output != nil:
			// A deterministic memoized subcall: reuse without re-running
			// the body (spec §4.7 step 1, generalized to nested matches).
			return b.replayShortcutOutput(ctx)
		case resp.Raised != nil && resp.RaisedHere:
			// This exact node originated the recorded raise: either
			// resolve it via an exception_override, or re-raise the
			// cached condition (spec §4.7 step 3, §4.8).
			return b.replayShortcutRaised(ctx)
		}
		// Otherwise the recorded raise (if any) was only a propagation
		// from a descendant, or the node was left incomplete by a
		// Rewind. Either way the body must actually run so execution can
		// re-descend to the node that raised, applying any override and
		// continuing past it with fresh statements (this is what lets an
		// input-request loop resume instead of being shortcut wholesale).
	}

	out, err := invokable.Call(ctx, input)
	if err != nil {
		var cr *childRaised
		raisedHere := !stderrors.As(err, &cr)
		cond := wrapError(err)
		if cr != nil {
			cond = cr.cond
		}
		if commitErr := b.recordRaised(ctx, cond, raisedHere); commitErr != nil {
			return nil, commitErr
		}
		return nil, &childRaised{cond: cond}
	}
	if commitErr := b.recordOutput(ctx, out); commitErr != nil {
		return nil, commitErr
	}
	return out, nil
}

// replayShortcutOutput reuses a matched node's recorded deterministic
// output without re-running its body.
func (b *Builder) replayShortcutOutput(ctx context.Context) (any, error) {
	resp := b.replayResponse
	b.children = append([]*store.Ref(nil), resp.Children...)

	outputRes, err := b.store.Checkout(ctx, resp.Output)
	if err != nil {
		return nil, err
	}
	out, err := resource.Unwrap(b.store.Registry(), outputRes)
	if err != nil {
		out = outputRes
	}
	b.output = resp.Output
	return out, nil
}

// replayShortcutRaised handles a matched node that originated its own
// recorded raise (RaisedHere==true): an exception_override may resolve it
// to a fresh output (spec §4.8's input-request resolution), otherwise the
// cached condition is re-raised without recomputation, since re-running a
// deterministic origin body (e.g. request_input's) would only reconstruct
// the same condition.
func (b *Builder) replayShortcutRaised(ctx context.Context) (any, error) {
	resp := b.replayResponse
	b.children = append([]*store.Ref(nil), resp.Children...)

	if b.replayOpts.exceptionOverride != nil {
		if val, ok := b.replayOpts.exceptionOverride(resp.Raised); ok {
			ref, err := b.store.Commit(ctx, val)
			if err != nil {
				return nil, errors.Wrap(err, "invocation: committing override value")
			}
			b.output = ref
			return val, nil
		}
	}
	raisedRes, err := b.store.Checkout(ctx, resp.Raised)
	if err != nil {
		return nil, err
	}
	cond, ok := raisedRes.(Condition)
	if !ok {
		cond = NewExceptionResource(resource.Sprint(raisedRes))
	}
	b.raised = resp.Raised
	b.raisedHere = true
	return nil, &childRaised{cond: cond}
}

func (b *Builder) recordOutput(ctx context.Context, out any) error {
	ref, err := b.store.Commit(ctx, out)
	if err != nil {
		return errors.Wrap(err, "invocation: committing output")
	}
	b.output = ref
	return nil
}

func (b *Builder) recordRaised(ctx context.Context, cond Condition, here bool) error {
	ref, err := b.store.Commit(ctx, cond)
	if err != nil {
		return errors.Wrap(err, "invocation: committing raised condition")
	}
	b.raised = ref
	b.raisedHere = here
	return nil
}

// finalize commits this node's Request, Response and Invocation, in that
// order, and returns a Ref to the Invocation (spec §4.6 step 7). A node
// with neither output nor raised set never reached a terminal outcome (run
// failed to commit it, or to check out a recorded output), and finalize
// returns an IncompleteSubinvocationError for it. Whether this node's
// children have finished is not checked: a child invocation still running
// when its parent finalizes is not detected.
func (b *Builder) finalize(ctx context.Context) (*store.Ref, error) {
	if b.output == nil && b.raised == nil {
		return nil, newIncompleteSubinvocationError(
			"invocation of %s was never finalized before its parent", b.invokableRef.Digest())
	}
	reqRef, err := b.store.Commit(ctx, Request{Invokable: b.invokableRef, Input: b.inputRef})
	if err != nil {
		return nil, errors.Wrap(err, "invocation: committing request")
	}
	b.mu.Lock()
	children := append([]*store.Ref(nil), b.children...)
	b.mu.Unlock()
	respRef, err := b.store.Commit(ctx, Response{
		Invokable:  b.invokableRef,
		Output:     b.output,
		Raised:     b.raised,
		RaisedHere: b.raisedHere,
		Children:   children,
	})
	if err != nil {
		return nil, errors.Wrap(err, "invocation: committing response")
	}
	return b.store.Commit(ctx, Invocation{Request: reqRef, Response: respRef})
}
