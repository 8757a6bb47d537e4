package invocation

import (
	"fmt"

	"github.com/agentic-ai/enact-go/enacterrors"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/registry"
)

// Condition is any resource that also carries a Go error, matching spec
// §4.6's "raised condition": a resource so it can be committed into the
// journal, an error so ordinary Go control flow (return err) propagates it.
type Condition interface {
	registry.FieldsResource
	error
}

var (
	exceptionResourceTypeID = registry.TypeID{Name: "enact.ExceptionResource"}
	wrappedExceptionTypeID  = registry.TypeID{Name: "enact.WrappedException"}
	replayErrorTypeID       = registry.TypeID{Name: "enact.ReplayError"}
)

// ExceptionResource is the base condition: a message, committable as-is.
// User-defined conditions should embed it the way WrappedException and
// InputRequest do, overriding TypeID/FromFields for their own field set.
type ExceptionResource struct {
	Message string
}

func NewExceptionResource(message string) *ExceptionResource {
	return &ExceptionResource{Message: message}
}

func (e *ExceptionResource) Error() string        { return e.Message }
func (e *ExceptionResource) TypeID() string       { return exceptionResourceTypeID.Canonical() }
func (e *ExceptionResource) FieldNames() []string { return []string{"message"} }
func (e *ExceptionResource) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{fieldvalue.String(e.Message)}
}
func (e *ExceptionResource) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	msg, _ := fields["message"].String()
	return &ExceptionResource{Message: msg}, nil
}

// WrappedException wraps an arbitrary Go error raised by an invokable that
// did not itself supply a Condition, matching spec §4.6's "wraps the
// exception if necessary" fallback.
type WrappedException struct {
	ExceptionResource
}

func NewWrappedException(err error) *WrappedException {
	return &WrappedException{ExceptionResource{Message: err.Error()}}
}

func (w *WrappedException) TypeID() string { return wrappedExceptionTypeID.Canonical() }
func (w *WrappedException) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	msg, _ := fields["message"].String()
	return &WrappedException{ExceptionResource{Message: msg}}, nil
}

// ReplayError signals divergence between a recorded and a live call in
// strict replay mode (spec §4.7, §7). It is itself a Condition so the
// divergent node's own Invocation records it as the raised value, exactly
// like a user-raised condition, before propagating to the caller of Invoke.
type ReplayError struct {
	ExceptionResource
}

func NewReplayError(format string, args ...any) *ReplayError {
	return &ReplayError{ExceptionResource{Message: fmt.Sprintf(format, args...)}}
}

func (r *ReplayError) TypeID() string { return replayErrorTypeID.Canonical() }

// Unwrap lets callers use errors.Is(err, enacterrors.ErrReplayError) without
// caring whether the error already went through the journal as a Condition.
func (r *ReplayError) Unwrap() error { return enacterrors.ErrReplayError }
func (r *ReplayError) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	msg, _ := fields["message"].String()
	return &ReplayError{ExceptionResource{Message: msg}}, nil
}

// IncompleteSubinvocationError is returned when an invocation node is
// finalized with neither an output nor a raised condition recorded. It is
// not raised for a child invocation that is still running when its parent
// finalizes; that case is not detected. Unlike the Condition types above it
// is never committed into the journal: the invocation it names cannot be
// finalized at all.
type IncompleteSubinvocationError struct {
	msg string
}

func (e *IncompleteSubinvocationError) Error() string { return e.msg }
func (e *IncompleteSubinvocationError) Unwrap() error { return enacterrors.ErrIncompleteSubinvocation }

func newIncompleteSubinvocationError(format string, args ...any) *IncompleteSubinvocationError {
	return &IncompleteSubinvocationError{msg: fmt.Sprintf(format, args...)}
}

func init() {
	reg := registry.Default()
	reg.MustRegister(registry.Descriptor{
		ID:         exceptionResourceTypeID,
		FieldNames: []string{"message"},
		New:        func() registry.FieldsResource { return &ExceptionResource{} },
	})
	reg.MustRegister(registry.Descriptor{
		ID:         wrappedExceptionTypeID,
		FieldNames: []string{"message"},
		New:        func() registry.FieldsResource { return &WrappedException{} },
	})
	reg.MustRegister(registry.Descriptor{
		ID:         replayErrorTypeID,
		FieldNames: []string{"message"},
		New:        func() registry.FieldsResource { return &ReplayError{} },
	})
}

// wrapError converts an error returned by an invokable's Call into a
// Condition: passed through unchanged if it already is one (spec §4.6 step
// 6), otherwise wrapped.
func wrapError(err error) Condition {
	if c, ok := err.(Condition); ok {
		return c
	}
	return NewWrappedException(err)
}
