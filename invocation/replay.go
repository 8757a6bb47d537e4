package invocation

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/enactlog"
	"github.com/agentic-ai/enact-go/resource"
	"github.com/agentic-ai/enact-go/store"
)

// invokeConfig collects InvokeOption settings. mode defaults to Strict:
// the design goal in spec §1 ("replay must detect non-deterministic
// divergence cheaply and fail loudly") argues for opting IN to leniency
// rather than opting in to strictness.
type invokeConfig struct {
	logger            enactlog.Logger
	replayFrom        *store.Ref
	mode              ReplayMode
	exceptionOverride ExceptionOverride
}

// InvokeOption configures a call to Invoke.
type InvokeOption func(*invokeConfig)

// WithLogger attaches a structured logger to the invocation tree.
func WithLogger(l enactlog.Logger) InvokeOption {
	return func(c *invokeConfig) { c.logger = l }
}

// WithReplayFrom puts Invoke into replay mode against a previously
// committed root Invocation, matching spec §4.7's "given a previous
// invocation and a new top-level invocation of the same callable on the
// same input." Replay and Rewind construct this internally; user code
// normally calls Replay instead.
func WithReplayFrom(ref *store.Ref) InvokeOption {
	return func(c *invokeConfig) { c.replayFrom = ref }
}

// WithExceptionOverride installs the hook spec §4.7 step 3 and §4.8
// describe: it intercepts a recorded raised condition during replay and
// may substitute a resolved value for it.
func WithExceptionOverride(o ExceptionOverride) InvokeOption {
	return func(c *invokeConfig) { c.exceptionOverride = o }
}

// WithNonStrict opts into spec §4.7's non-strict replay: discard the
// recorded suffix at first divergence and continue executing normally,
// instead of failing with ReplayError.
func WithNonStrict() InvokeOption {
	return func(c *invokeConfig) { c.mode = NonStrict }
}

// Invoke is the framework's always-root tracked entry point (spec §6
// `invoke(callable, args) -> Invocation`): unlike Call, it always starts a
// fresh Builder, shadowing any ambient builder or replay context already
// active in ctx. This is the Go rendering of Python's
// `Builder.top_level()`/`ReplayContext.top_level()` split collapsed into
// one function with options.
func Invoke(ctx context.Context, s *store.Store, invokable Invokable, input any, opts ...InvokeOption) (*store.Ref, error) {
	cfg := invokeConfig{mode: Strict}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = enactlog.Noop()
	}

	root := &Builder{store: s, logger: logger, traceID: uuid.New()}

	if cfg.replayFrom != nil || cfg.exceptionOverride != nil {
		root.replayOpts = &replayOptions{mode: cfg.mode, exceptionOverride: cfg.exceptionOverride}
	}

	invokableRef, err := s.Commit(ctx, invokable)
	if err != nil {
		return nil, errors.Wrap(err, "invocation: committing invokable")
	}
	inputRef, err := s.Commit(ctx, input)
	if err != nil {
		return nil, errors.Wrap(err, "invocation: committing input")
	}
	root.invokableRef = invokableRef
	root.inputRef = inputRef

	if cfg.replayFrom != nil {
		matched, err := root.matchRecorded(ctx, cfg.replayFrom)
		if err != nil {
			return nil, errors.Wrap(err, "invocation: reading replay root")
		}
		if !matched {
			return nil, errors.Wrapf(
				NewReplayError("replay root %s: recorded callable/input does not match the one given to Invoke", cfg.replayFrom.Digest()),
				"invocation")
		}
	}

	_, callErr := root.run(ctx, invokable, input)

	invRef, finalizeErr := root.finalize(ctx)
	if finalizeErr != nil {
		logger.WarnCtx(ctx, "invocation: root finalize failed", "error", finalizeErr.Error())
		return nil, finalizeErr
	}

	if callErr == nil {
		return invRef, nil
	}
	cr, ok := callErr.(*childRaised)
	if !ok {
		return invRef, callErr
	}
	if isFrameworkError(cr.cond) {
		return invRef, cr.cond
	}
	// Ordinary user-raised conditions, including InputRequest, are recorded
	// in the returned Invocation and swallowed here: callers inspect the
	// Invocation's response rather than a Go error (spec §6/§8's S6:
	// "Invoke; expect InputRequest raised" describes inspecting the
	// journal, not catching an exception).
	return invRef, nil
}

// isFrameworkError mirrors the original implementation's
// raise_on_errors=(InvocationError, FrameworkError) default: only
// conditions signaling a framework-level failure propagate as a real Go
// error from Invoke; everything else (including InputRequest) is recorded
// and swallowed.
func isFrameworkError(cond Condition) bool {
	_, ok := cond.(*ReplayError)
	return ok
}

// Replay re-executes invRef's callable against its recorded input, in
// replay mode seeded from invRef itself (spec §4.7). It is the concrete
// counterpart to spec §6's `Invocation.replay(exception_override?)`.
func Replay(ctx context.Context, s *store.Store, invRef *store.Ref, opts ...InvokeOption) (*store.Ref, error) {
	loaded, err := loadInvocation(ctx, s, invRef)
	if err != nil {
		return nil, errors.Wrap(err, "replay")
	}
	reqRes, err := s.Checkout(ctx, loaded.reqRef)
	if err != nil {
		return nil, errors.Wrap(err, "replay")
	}
	req, ok := reqRes.(Request)
	if !ok {
		return nil, errors.Errorf("replay: request %s is malformed", loaded.reqRef.Digest())
	}
	invokableRes, err := s.Checkout(ctx, req.Invokable)
	if err != nil {
		return nil, errors.Wrap(err, "replay")
	}
	invokable, ok := invokableRes.(Invokable)
	if !ok {
		return nil, errors.Errorf("replay: %s is not a registered Invokable", req.Invokable.Digest())
	}
	inputRes, err := s.Checkout(ctx, req.Input)
	if err != nil {
		return nil, errors.Wrap(err, "replay")
	}
	input, err := resource.Unwrap(s.Registry(), inputRes)
	if err != nil {
		input = inputRes
	}

	opts = append(append([]InvokeOption(nil), opts...), WithReplayFrom(invRef))
	return Invoke(ctx, s, invokable, input, opts...)
}

type loadedInvocation struct {
	reqRef *store.Ref
	resp   Response
}

func loadInvocation(ctx context.Context, s *store.Store, invRef *store.Ref) (loadedInvocation, error) {
	invRes, err := s.Checkout(ctx, invRef)
	if err != nil {
		return loadedInvocation{}, err
	}
	inv, ok := invRes.(Invocation)
	if !ok {
		return loadedInvocation{}, errors.Errorf("%s is not an Invocation", invRef.Digest())
	}
	respRes, err := s.Checkout(ctx, inv.Response)
	if err != nil {
		return loadedInvocation{}, err
	}
	resp, ok := respRes.(Response)
	if !ok {
		return loadedInvocation{}, errors.Errorf("response %s is malformed", inv.Response.Digest())
	}
	return loadedInvocation{reqRef: inv.Request, resp: resp}, nil
}

func commitRewound(ctx context.Context, s *store.Store, reqRef *store.Ref, resp Response) (*store.Ref, error) {
	respRef, err := s.Commit(ctx, resp)
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, Invocation{Request: reqRef, Response: respRef})
}

// Rewind implements spec §6's `Invocation.rewind(n)`: returns a new
// Invocation with the last n leaf calls, depth-first from the right,
// removed, and every ancestor along that rightmost spine marked incomplete
// (output and raised cleared) so a following Replay re-runs their bodies.
// n=0 clears only invRef's own outcome, leaving its children untouched.
func Rewind(ctx context.Context, s *store.Store, invRef *store.Ref, n int) (*store.Ref, error) {
	if n < 0 {
		return nil, errors.Errorf("invocation: rewind count must be >= 0, got %d", n)
	}
	if n == 0 {
		loaded, err := loadInvocation(ctx, s, invRef)
		if err != nil {
			return nil, errors.Wrap(err, "rewind")
		}
		resp := loaded.resp
		resp.Output, resp.Raised, resp.RaisedHere = nil, nil, false
		return commitRewound(ctx, s, loaded.reqRef, resp)
	}
	ref, remaining, err := rewindLeaves(ctx, s, invRef, n)
	if err != nil {
		return nil, errors.Wrap(err, "rewind")
	}
	if ref == nil || remaining > 0 {
		return nil, errors.Errorf("invocation: cannot rewind %d calls past the root", n)
	}
	return ref, nil
}

// rewindLeaves removes up to n leaf calls from invRef's rightmost
// depth-first spine. It returns the rewritten ref (nil if invRef itself
// was consumed as a leaf and must be dropped by its caller) and how many
// of n remain unconsumed.
func rewindLeaves(ctx context.Context, s *store.Store, invRef *store.Ref, n int) (*store.Ref, int, error) {
	if n <= 0 {
		return invRef, n, nil
	}
	loaded, err := loadInvocation(ctx, s, invRef)
	if err != nil {
		return nil, n, err
	}
	if len(loaded.resp.Children) == 0 {
		return nil, n - 1, nil
	}

	children := loaded.resp.Children
	newLast, remaining, err := rewindLeaves(ctx, s, children[len(children)-1], n)
	if err != nil {
		return nil, n, err
	}

	newChildren := append([]*store.Ref(nil), children[:len(children)-1]...)
	if newLast != nil {
		newChildren = append(newChildren, newLast)
	}
	resp := Response{
		Invokable: loaded.resp.Invokable,
		Children:  newChildren,
	}
	ref, err := commitRewound(ctx, s, loaded.reqRef, resp)
	if err != nil {
		return nil, n, err
	}
	if remaining > 0 {
		return rewindLeaves(ctx, s, ref, remaining)
	}
	return ref, 0, nil
}
