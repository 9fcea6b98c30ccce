package repository

import "context"

// Backend persists the raw state document. Implementations overwrite the whole
// document on every Write and return domain.ErrNoDocument from Read when
// nothing has been stored yet.
type Backend interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}
