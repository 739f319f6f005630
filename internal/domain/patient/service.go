package patient

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/patientdesk/patientdesk/internal/domain/address"
	"github.com/patientdesk/patientdesk/internal/domain/diagnosis"
	"github.com/patientdesk/patientdesk/internal/domain/errs"
	"github.com/patientdesk/patientdesk/internal/platform/db"
)

// Service enforces the patient store's rules: required fields, the
// candidate-key duplicate policy, and orphan cleanup of lookup rows when the
// last referencing patient is deleted. Every mutating operation runs in one
// transaction, so a failure never leaves a patient without its cleanup or
// vice versa.
type Service struct {
	tx     db.TxRunner
	repo   Repository
	diags  diagnosis.Repository
	addrs  address.Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(tx db.TxRunner, repo Repository, diags diagnosis.Repository, addrs address.Repository, logger zerolog.Logger) *Service {
	return &Service{
		tx:     tx,
		repo:   repo,
		diags:  diags,
		addrs:  addrs,
		logger: logger,
		now:    time.Now,
	}
}

// normalize strips surrounding whitespace from every text field so stored
// rows always carry the trimmed form the duplicate check compares against.
func normalize(p *Patient) {
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.MiddleName = strings.TrimSpace(p.MiddleName)
	p.LastName = strings.TrimSpace(p.LastName)
	p.NameExt = strings.TrimSpace(p.NameExt)
	p.Sex = strings.TrimSpace(p.Sex)
	p.Birthdate = strings.TrimSpace(p.Birthdate)
	p.Contact = strings.TrimSpace(p.Contact)
	p.Notes = strings.TrimSpace(p.Notes)
}

func validate(p *Patient) error {
	if p.FirstName == "" {
		return errs.Required("first name")
	}
	if p.LastName == "" {
		return errs.Required("last name")
	}
	if p.Sex == "" {
		return errs.Required("sex")
	}
	if p.Birthdate == "" {
		return errs.Required("birthdate")
	}
	if _, err := time.Parse("2006-01-02", p.Birthdate); err != nil {
		return errs.Invalid("birthdate", "must be a YYYY-MM-DD date")
	}
	return nil
}

// Add stores a new patient and returns its id. It fails with a
// ValidationError when a required field is missing and with ErrDuplicate
// when another patient already has the same name and birthdate.
func (s *Service) Add(ctx context.Context, p *Patient) (int64, error) {
	normalize(p)
	if err := validate(p); err != nil {
		return 0, err
	}
	var id int64
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if _, found, err := s.repo.FindIDByKey(ctx, p.Key(), 0); err != nil {
			return err
		} else if found {
			return errs.ErrDuplicate
		}
		now := s.now()
		p.CreatedAt = now
		p.UpdatedAt = now
		var err error
		id, err = s.repo.Create(ctx, p)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info().Int64("patient_id", id).Msg("patient added")
	return id, nil
}

// Get returns the patient with the given id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// Update rewrites all mutable fields of the patient with the given id.
// It fails with ErrDuplicate when the new candidate key collides with a
// different patient, and with ErrNotFound when the row no longer exists.
func (s *Service) Update(ctx context.Context, id int64, p *Patient) error {
	normalize(p)
	if err := validate(p); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, found, err := s.repo.FindIDByKey(ctx, p.Key(), id); err != nil {
			return err
		} else if found {
			return errs.ErrDuplicate
		}
		p.ID = id
		p.CreatedAt = existing.CreatedAt
		p.UpdatedAt = s.now()
		applied, err := s.repo.Update(ctx, p)
		if err != nil {
			return err
		}
		if !applied {
			return errs.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("patient_id", id).Msg("patient updated")
	return nil
}

// Delete removes the patient and any lookup rows it was the last to
// reference. Returns ErrNotFound when the id has no row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		deleted, err := s.repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !deleted {
			return errs.ErrNotFound
		}
		if p.DiagnosisID != nil {
			removed, err := s.diags.DeleteIfOrphaned(ctx, *p.DiagnosisID)
			if err != nil {
				return err
			}
			if removed {
				s.logger.Debug().Int64("diagnosis_id", *p.DiagnosisID).Msg("removed orphaned diagnosis")
			}
		}
		if p.AddressID != nil {
			removed, err := s.addrs.DeleteIfOrphaned(ctx, *p.AddressID)
			if err != nil {
				return err
			}
			if removed {
				s.logger.Debug().Int64("address_id", *p.AddressID).Msg("removed orphaned address")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int64("patient_id", id).Msg("patient deleted")
	return nil
}

// List returns all patients, most recently created first.
func (s *Service) List(ctx context.Context) ([]*Patient, error) {
	return s.repo.List(ctx)
}

// Search returns the patients whose first, middle, or last name contains
// term, case-insensitively. A blank term returns the full list.
func (s *Service) Search(ctx context.Context, term string) ([]*Patient, error) {
	return s.repo.SearchByName(ctx, strings.TrimSpace(term))
}

// ListDetails returns the flat view consumed by export and reporting.
func (s *Service) ListDetails(ctx context.Context) ([]*Detail, error) {
	return s.repo.ListDetails(ctx)
}
