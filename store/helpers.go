package store

import "context"

// Commit commits value to the ambient store in ctx, per the spec §6
// external interface `commit(resource) -> Ref in an active store`. Returns
// enacterrors.ErrNoActiveStore if ctx has no store pushed with WithStore.
func Commit(ctx context.Context, value any) (*Ref, error) {
	s, err := Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, value)
}

// Checkout fetches the resource ref points to from the ambient store.
func Checkout(ctx context.Context, ref *Ref) (any, error) {
	s, err := Current(ctx)
	if err != nil {
		return nil, err
	}
	return s.Checkout(ctx, ref)
}
