package address

import "context"

type Repository interface {
	// GetOrCreate returns the id of the address whose trimmed five-field
	// tuple matches a, inserting a new row when none does. It returns
	// (nil, nil) when municipality or barangay is blank: an address is
	// optional at the patient level and a partial one is treated as none.
	GetOrCreate(ctx context.Context, a Address) (*int64, error)
	GetByID(ctx context.Context, id int64) (*Address, error)
	List(ctx context.Context) ([]Address, error)
	// DeleteIfOrphaned removes the address when no patient references it
	// anymore and reports whether a row was deleted.
	DeleteIfOrphaned(ctx context.Context, id int64) (bool, error)
}
