package patient

import "context"

type Repository interface {
	Create(ctx context.Context, p *Patient) (int64, error)
	// GetByID returns errs.ErrNotFound when no row has the id.
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// FindIDByKey returns the id of the patient matching key, excluding
	// excludeID (pass 0 to exclude nothing). The second result reports
	// whether a match was found.
	FindIDByKey(ctx context.Context, key CandidateKey, excludeID int64) (int64, bool, error)
	// Update rewrites all mutable fields of the row with p.ID and reports
	// whether a row was affected.
	Update(ctx context.Context, p *Patient) (bool, error)
	// Delete removes the row and reports whether one existed.
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]*Patient, error)
	SearchByName(ctx context.Context, term string) ([]*Patient, error)
	// ListDetails returns the flat view of every patient, newest first,
	// with diagnosis and address references resolved.
	ListDetails(ctx context.Context) ([]*Detail, error)
}
