package content

import "context"

// Repository defines persistence operations for site content.
type Repository interface {
	Get(ctx context.Context, key string) (*Entry, error)
	List(ctx context.Context, prefix string) ([]Entry, error)
	Upsert(ctx context.Context, e *Entry) error
	Delete(ctx context.Context, key string) error
}
