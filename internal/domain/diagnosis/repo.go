package diagnosis

import "context"

type Repository interface {
	// GetOrCreate returns the id of the diagnosis matching name
	// (case-insensitive, surrounding whitespace ignored), inserting it
	// first when absent. An empty name is a validation error.
	GetOrCreate(ctx context.Context, name string) (int64, error)
	GetByID(ctx context.Context, id int64) (*Diagnosis, error)
	List(ctx context.Context) ([]Diagnosis, error)
	// DeleteIfOrphaned removes the diagnosis when no patient references it
	// anymore and reports whether a row was deleted.
	DeleteIfOrphaned(ctx context.Context, id int64) (bool, error)
}
