package storage

import "context"

// ObjectStore is the durable home of original document files. Metadata
// travels with the object so a key alone tells where a file came from.
type ObjectStore interface {
	Put(ctx context.Context, key string, content []byte, contentType string, metadata map[string]string) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string) (string, error)
}
