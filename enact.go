package enact

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentic-ai/enact-go/enactlog"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/invocation"
	"github.com/agentic-ai/enact-go/registry"
	"github.com/agentic-ai/enact-go/resource"
	"github.com/agentic-ai/enact-go/store"
)

// Re-exported types callers of this façade need without importing the
// underlying packages directly.
type (
	// Ref addresses an immutable resource by content digest (spec §4.5).
	Ref = store.Ref
	// Store owns a backend and mediates commit/checkout (spec §4.5).
	Store = store.Store
	// Invokable is a registered callable that participates in journaling
	// (spec §4.6).
	Invokable = invocation.Invokable
	// Condition is anything an invocation body may raise instead of
	// returning normally (spec §4.6).
	Condition = invocation.Condition
	// InputRequest suspends an invocation pending an externally supplied
	// value (spec §4.8).
	InputRequest = invocation.InputRequest
	// InvokeOption configures Invoke/Replay (logger, replay mode, exception
	// overrides).
	InvokeOption = invocation.InvokeOption
	// Descriptor registers a resource type with the type registry
	// (spec §4.1).
	Descriptor = registry.Descriptor
	// TypeID is a registry type-id's structured form.
	TypeID = registry.TypeID
)

// Re-exported option constructors.
var (
	WithLogger            = invocation.WithLogger
	WithNonStrict         = invocation.WithNonStrict
	WithExceptionOverride = invocation.WithExceptionOverride
)

// Register enrolls a resource type in the default registry, per spec §6's
// `register(type | callable)`. Callables register the same way: Invokable
// is itself a registry.FieldsResource.
func Register(d Descriptor) error {
	return registry.Default().Register(d)
}

// MustRegister is Register, panicking on error. Intended for package-level
// init() calls where a bad descriptor is a programming error.
func MustRegister(d Descriptor) {
	registry.Default().MustRegister(d)
}

// NewStore constructs a Store over backend, using the default registry and
// a no-op logger unless overridden with store.Option values.
func NewStore(backend store.Backend, opts ...store.Option) *Store {
	return store.New(backend, opts...)
}

// NewMemoryStore is a convenience for the common case of an ephemeral,
// in-process store (tests, scratch invocations).
func NewMemoryStore(opts ...store.Option) *Store {
	return store.New(store.NewMemoryBackend(), opts...)
}

// WithStore pushes s as ctx's ambient store for Commit/Checkout to resolve
// against, per spec §4.5's "active store."
func WithStore(ctx context.Context, s *Store) context.Context {
	return store.WithStore(ctx, s)
}

// Commit commits value to ctx's ambient store, per spec §6's
// `commit(resource) -> Ref`.
func Commit(ctx context.Context, value any) (*Ref, error) {
	s, err := store.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, value)
}

// Checkout resolves ref against ctx's ambient store, per spec §6's
// `Ref.checkout() -> resource`.
func Checkout(ctx context.Context, ref *Ref) (resource.Resource, error) {
	s, err := store.Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.Checkout(ctx, ref)
}

// Invoke starts a tracked, journaled call, per spec §6's
// `invoke(callable, args) -> Invocation`. It always begins a fresh
// Builder, shadowing any invocation already in progress on ctx.
func Invoke(ctx context.Context, s *Store, invokable Invokable, input any, opts ...InvokeOption) (*Ref, error) {
	return invocation.Invoke(ctx, s, invokable, input, opts...)
}

// Call is the tracked-if-inside-an-invocation counterpart to Invoke: it
// journals as a child call when ctx is already inside one, and falls back
// to invokable.Call directly otherwise (spec §4.6's plain-call escape
// hatch).
func Call(ctx context.Context, invokable Invokable, input any) (any, error) {
	return invocation.Call(ctx, invokable, input)
}

// Replay re-executes invRef's callable against its recorded input, per
// spec §6's `Invocation.replay(exception_override?) -> Invocation`.
func Replay(ctx context.Context, s *Store, invRef *Ref, opts ...InvokeOption) (*Ref, error) {
	return invocation.Replay(ctx, s, invRef, opts...)
}

// Rewind returns a new Invocation with invRef's last n leaf calls
// (depth-first from the right) removed, per spec §6's
// `Invocation.rewind(n) -> Invocation`.
func Rewind(ctx context.Context, s *Store, invRef *Ref, n int) (*Ref, error) {
	return invocation.Rewind(ctx, s, invRef, n)
}

// RequestInput raises an InputRequest to suspend the current invocation
// pending an externally supplied value, per spec §4.8 and §6's
// `request_input(requested_type, for_value?, context?)`. It must be called
// from inside a tracked invocation.
func RequestInput(ctx context.Context, requestedType string, forValue any, requestContext fieldvalue.Value) (any, error) {
	return invocation.RequestInput(ctx, requestedType, forValue, requestContext)
}

// Summary renders invRef's recorded call tree as the human-readable
// journal summary spec §6 calls non-normative: each call is named with its
// invokable, input and output/raised outcome, indented one level per
// nesting level of the call tree. Unlike resource.Sprint (which never
// expands a Ref), Summary walks Request/Response/children through the
// store so a reader sees the actual call chain, not bare digests.
func Summary(ctx context.Context, s *Store, invRef *Ref) (string, error) {
	var b strings.Builder
	if err := writeSummary(ctx, s, invRef, 0, &b); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeSummary(ctx context.Context, s *Store, invRef *Ref, depth int, b *strings.Builder) error {
	invRes, err := s.Checkout(ctx, invRef)
	if err != nil {
		return err
	}
	inv, ok := invRes.(invocation.Invocation)
	if !ok {
		return fmt.Errorf("%s is not an Invocation", invRef.Digest())
	}
	reqRes, err := s.Checkout(ctx, inv.Request)
	if err != nil {
		return err
	}
	req, ok := reqRes.(invocation.Request)
	if !ok {
		return fmt.Errorf("%s is not a Request", inv.Request.Digest())
	}
	respRes, err := s.Checkout(ctx, inv.Response)
	if err != nil {
		return err
	}
	resp, ok := respRes.(invocation.Response)
	if !ok {
		return fmt.Errorf("%s is not a Response", inv.Response.Digest())
	}

	invokableRes, err := s.Checkout(ctx, req.Invokable)
	if err != nil {
		return err
	}
	inputRes, err := s.Checkout(ctx, req.Input)
	if err != nil {
		return err
	}

	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%scall %s <- %s\n", indent, shortTypeName(invokableRes.TypeID()), renderInline(inputRes))

	switch {
	case resp.Output != nil:
		outRes, err := s.Checkout(ctx, resp.Output)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "%s  -> %s\n", indent, renderInline(outRes))
	case resp.Raised != nil:
		raisedRes, err := s.Checkout(ctx, resp.Raised)
		if err != nil {
			return err
		}
		origin := "propagated"
		if resp.RaisedHere {
			origin = "raised"
		}
		fmt.Fprintf(b, "%s  %s %s\n", indent, origin, renderInline(raisedRes))
	default:
		fmt.Fprintf(b, "%s  -> (incomplete)\n", indent)
	}

	for _, child := range resp.Children {
		if err := writeSummary(ctx, s, child, depth+1, b); err != nil {
			return err
		}
	}
	return nil
}

// renderInline renders a resource as a single line: its short type name
// plus its declared fields, for use inside Summary where each call needs
// to be named without pulling in Sprint's full recursive tree layout.
func renderInline(res resource.Resource) string {
	items := resource.Items(res)
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s=%s", item.Name, inlineValue(item.Value))
	}
	return fmt.Sprintf("%s(%s)", shortTypeName(res.TypeID()), strings.Join(parts, ", "))
}

func inlineValue(v fieldvalue.Value) string {
	switch v.Kind() {
	case fieldvalue.KindRef:
		r, _ := v.Ref()
		return fmt.Sprintf("ref(%s)", r.RefDigest())
	case fieldvalue.KindResource:
		res, _ := v.Resource()
		return shortTypeName(res.TypeID())
	default:
		return v.GoString()
	}
}

// shortTypeName extracts the "name" field out of a canonical type-id's
// JSON text, the same convention resource.Sprint uses for readability.
func shortTypeName(typeID string) string {
	const marker = `"name":"`
	i := strings.Index(typeID, marker)
	if i < 0 {
		return typeID
	}
	rest := typeID[i+len(marker):]
	j := strings.Index(rest, `"`)
	if j < 0 {
		return typeID
	}
	return rest[:j]
}

// NoopLogger is a logger that discards everything, the default for Invoke
// when no logger option is supplied.
func NoopLogger() enactlog.Logger { return enactlog.Noop() }
