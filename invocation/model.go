// Package invocation implements the journaled execution engine and replay
// engine (spec §4.6-§4.8): Request/Response/Invocation resources, the
// Builder that interposes on every tracked call, and the Replay engine that
// re-executes a previous invocation tree in lockstep with a fresh one.
//
// Grounded on drpcorg-chotki's op-log model (op.go, packets.go: an
// append-only, causally ordered log of operations each carrying a parent
// reference) generalized from a replicated operation log to Enact's
// recursive call tree, and on
// original_source/src/enact/invocations.py for the exact Request/Response/
// Invocation field shapes and the Builder/ReplayContext algorithms.
package invocation

import (
	"github.com/agentic-ai/enact-go/fieldvalue"
	"github.com/agentic-ai/enact-go/registry"
	"github.com/agentic-ai/enact-go/store"
)

var (
	requestTypeID    = registry.TypeID{Name: "enact.Request"}
	responseTypeID   = registry.TypeID{Name: "enact.Response"}
	invocationTypeID = registry.TypeID{Name: "enact.Invocation"}
)

// Request pairs a committed callable (invokable) with its committed input,
// per spec §3's Invocation.request field.
type Request struct {
	Invokable *store.Ref
	Input     *store.Ref
}

func (r Request) TypeID() string       { return requestTypeID.Canonical() }
func (r Request) FieldNames() []string { return []string{"invokable", "input"} }
func (r Request) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{refValue(r.Invokable), refValue(r.Input)}
}
func (r Request) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	invokable, err := refField(fields, "invokable")
	if err != nil {
		return nil, err
	}
	input, err := refField(fields, "input")
	if err != nil {
		return nil, err
	}
	return Request{Invokable: invokable, Input: input}, nil
}

// Response carries the outcome of one call: exactly one of Output/Raised is
// non-nil once complete (spec §3 invariant 3), plus the ordered children
// list consumed positionally during replay.
type Response struct {
	Invokable  *store.Ref
	Output     *store.Ref
	Raised     *store.Ref
	RaisedHere bool
	Children   []*store.Ref
}

// IsComplete reports whether the response has a terminal outcome.
func (r Response) IsComplete() bool { return r.Output != nil || r.Raised != nil }

func (r Response) TypeID() string { return responseTypeID.Canonical() }
func (r Response) FieldNames() []string {
	return []string{"invokable", "output", "raised", "raised_here", "children"}
}
func (r Response) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{
		refValue(r.Invokable),
		refValue(r.Output),
		refValue(r.Raised),
		fieldvalue.Bool(r.RaisedHere),
		refSeqValue(r.Children),
	}
}
func (r Response) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	invokable, err := refField(fields, "invokable")
	if err != nil {
		return nil, err
	}
	output, err := optRefField(fields, "output")
	if err != nil {
		return nil, err
	}
	raised, err := optRefField(fields, "raised")
	if err != nil {
		return nil, err
	}
	raisedHere, _ := fields["raised_here"].Bool()
	children, err := refSeqField(fields, "children")
	if err != nil {
		return nil, err
	}
	return Response{
		Invokable:  invokable,
		Output:     output,
		Raised:     raised,
		RaisedHere: raisedHere,
		Children:   children,
	}, nil
}

// Invocation is a resource describing one recursive execution: a Request
// and a Response, per spec §3. It is itself committable, which is what
// lets an Invocation appear as an entry in a parent's Response.Children.
type Invocation struct {
	Request  *store.Ref
	Response *store.Ref
}

func (i Invocation) TypeID() string       { return invocationTypeID.Canonical() }
func (i Invocation) FieldNames() []string { return []string{"request", "response"} }
func (i Invocation) FieldValues() []fieldvalue.Value {
	return []fieldvalue.Value{refValue(i.Request), refValue(i.Response)}
}
func (i Invocation) FromFields(fields map[string]fieldvalue.Value) (registry.FieldsResource, error) {
	req, err := refField(fields, "request")
	if err != nil {
		return nil, err
	}
	resp, err := refField(fields, "response")
	if err != nil {
		return nil, err
	}
	return Invocation{Request: req, Response: resp}, nil
}

func init() {
	reg := registry.Default()
	reg.MustRegister(registry.Descriptor{
		ID:         requestTypeID,
		FieldNames: []string{"invokable", "input"},
		New:        func() registry.FieldsResource { return Request{} },
	})
	reg.MustRegister(registry.Descriptor{
		ID:         responseTypeID,
		FieldNames: []string{"invokable", "output", "raised", "raised_here", "children"},
		New:        func() registry.FieldsResource { return Response{} },
	})
	reg.MustRegister(registry.Descriptor{
		ID:         invocationTypeID,
		FieldNames: []string{"request", "response"},
		New:        func() registry.FieldsResource { return Invocation{} },
	})
}
