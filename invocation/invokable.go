package invocation

import (
	"context"

	"github.com/pkg/errors"

	"github.com/agentic-ai/enact-go/enacterrors"
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/registry"
	"github.com/agentic-ai/enact-go/store"
)

// Invokable is a registered callable, itself a resource so it can be
// committed and compared by digest (spec §4.6, "Equality of callables").
// Call is the untracked body; Call/Invoke below add journaling around it.
type Invokable interface {
	registry.FieldsResource
	Call(ctx context.Context, input any) (any, error)
}

var inputRequestTypeID = registry.TypeID{Name: "enact.InputRequest"}

// InputRequest is the distinguished raised condition of spec §4.8: raising
// it suspends the invocation pending an externally supplied value. Because
// it is a Condition it commits cleanly into the journal like any other
// raised value.
type InputRequest struct {
	ExceptionResource
	RequestedType string // a TypeRef's canonical type-id, or "" if untyped
	ForValue      *store.Ref
	Context       fieldvalue.Value
}

func (r *InputRequest) TypeID() string { return inputRequestTypeID.Canonical() }
func (r *InputRequest) FieldNames() []string {
	return []string{"message", "requested_type", "for_value", "context"}
}
func (r *InputRequest) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{
		fieldvalue.String(r.Message),
		fieldvalue.TypeRef(r.RequestedType),
		refValue(r.ForValue),
		r.Context,
	}
}
func (r *InputRequest) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	msg, _ := fields["message"].String()
	requestedType, _ := fields["requested_type"].TypeRef()
	forValue, err := optRefField(fields, "for_value")
	if err != nil {
		return nil, err
	}
	return &InputRequest{
		ExceptionResource: ExceptionResource{Message: msg},
		RequestedType:     requestedType,
		ForValue:          forValue,
		Context:           fields["context"],
	}, nil
}

func init() {
	registry.Default().MustRegister(registry.Descriptor{
		ID:         inputRequestTypeID,
		FieldNames: []string{"message", "requested_type", "for_value", "context"},
		New:        func() registry.FieldsResource { return &InputRequest{} },
	})
}

var requestInputInvokableTypeID = registry.TypeID{Name: "enact.RequestInput"}

// requestInputInvokable is the invokable RequestInput calls via Call, so
// that the input request itself becomes a tracked node in the journal
// (spec §4.8: "Because raised conditions are recorded, an InputRequest
// commits cleanly into the journal").
type requestInputInvokable struct {
	RequestedType string
	ReqContext    fieldvalue.Value
}

func (r *requestInputInvokable) TypeID() string       { return requestInputInvokableTypeID.Canonical() }
func (r *requestInputInvokable) FieldNames() []string { return []string{"requested_type", "context"} }
func (r *requestInputInvokable) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{fieldvalue.TypeRef(r.RequestedType), r.ReqContext}
}
func (r *requestInputInvokable) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	rt, _ := fields["requested_type"].TypeRef()
	return &requestInputInvokable{RequestedType: rt, ReqContext: fields["context"]}, nil
}

func (r *requestInputInvokable) Call(ctx context.Context, _ any) (any, error) {
	b := currentBuilder(ctx)
	if b == nil {
		return nil, errors.Wrap(enacterrors.ErrInputRequestOutsideInvocation, "request_input")
	}
	return nil, &InputRequest{
		ExceptionResource: ExceptionResource{Message: "input requested"},
		RequestedType:     r.RequestedType,
		ForValue:          b.inputRef,
		Context:           r.ReqContext,
	}
}

func init() {
	registry.Default().MustRegister(registry.Descriptor{
		ID:         requestInputInvokableTypeID,
		FieldNames: []string{"requested_type", "context"},
		New:        func() registry.FieldsResource { return &requestInputInvokable{} },
	})
}

// RequestInput raises an InputRequest condition to suspend the current
// invocation pending an externally supplied value, per spec §4.8. It must
// be called from inside a tracked invocation (one reached through Call or
// Invoke); otherwise it fails with enacterrors.ErrInputRequestOutsideInvocation.
func RequestInput(ctx context.Context, requestedType string, forValue any, requestContext fieldvalue.Value) (any, error) {
	return Call(ctx, &requestInputInvokable{RequestedType: requestedType, ReqContext: requestContext}, forValue)
}
