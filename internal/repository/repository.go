package repository

import "context"

// StateRepository persists opaque state records, one per namespace.
//
// The snippet store keeps its whole collection as a single serialized record,
// so this is all the storage it needs. Load returns an apperror.ErrNotFound
// error when nothing was saved under the namespace yet.
type StateRepository interface {
	Load(ctx context.Context, namespace string) ([]byte, error)
	Save(ctx context.Context, namespace string, data []byte) error
}
