// Package enact re-exports the core API surface of the enact-go module
// (registry, store, invocation) as a single façade, per spec §6's
// language-agnostic external interface: register, commit, checkout,
// invoke, rewind, replay and request_input.
//
// Programs that only need this surface can depend on package enact alone;
// programs building custom resource types, backends or drivers reach into
// the underlying registry/resource/store/invocation packages directly, the
// same way this package does.
package enact
