package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/patientdesk/patientdesk/internal/domain/address"
	"github.com/patientdesk/patientdesk/internal/domain/diagnosis"
	"github.com/patientdesk/patientdesk/internal/domain/errs"
	"github.com/patientdesk/patientdesk/internal/domain/patient"
	"github.com/patientdesk/patientdesk/internal/platform/db"
)

// Importer feeds flat records back into the store. Each record resolves its
// diagnosis and address through get-or-create and then goes through the
// duplicate-aware Add, so importing a file twice never doubles the data.
type Importer struct {
	tx     db.TxRunner
	svc    *patient.Service
	diags  diagnosis.Repository
	addrs  address.Repository
	logger zerolog.Logger
}

func NewImporter(tx db.TxRunner, svc *patient.Service, diags diagnosis.Repository, addrs address.Repository, logger zerolog.Logger) *Importer {
	return &Importer{tx: tx, svc: svc, diags: diags, addrs: addrs, logger: logger}
}

// ImportResult counts what happened to each record in an import run.
type ImportResult struct {
	Imported   int
	Duplicates int
	Invalid    int
}

// ImportJSON reads an array of flat records from r and stores each one.
// Duplicates and invalid records are counted and skipped, never fatal;
// a storage failure aborts the run.
func (im *Importer) ImportJSON(ctx context.Context, r io.Reader) (ImportResult, error) {
	var records []patient.Detail
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return ImportResult{}, fmt.Errorf("decode import file: %w", err)
	}

	var res ImportResult
	for i := range records {
		rec := &records[i]
		err := im.tx.WithTx(ctx, func(ctx context.Context) error {
			p := rec.Patient
			p.ID = 0
			p.DiagnosisID = nil
			p.AddressID = nil

			if rec.DiagnosisName != "" {
				id, err := im.diags.GetOrCreate(ctx, rec.DiagnosisName)
				if err != nil {
					return err
				}
				p.DiagnosisID = &id
			}
			addrID, err := im.addrs.GetOrCreate(ctx, address.Address{
				Municipality: rec.Municipality,
				Barangay:     rec.Barangay,
				Street:       rec.Street,
				HouseNo:      rec.HouseNo,
				PostalCode:   rec.PostalCode,
			})
			if err != nil {
				return err
			}
			p.AddressID = addrID

			_, err = im.svc.Add(ctx, &p)
			return err
		})
		switch {
		case err == nil:
			res.Imported++
		case errors.Is(err, errs.ErrDuplicate):
			res.Duplicates++
			im.logger.Debug().Str("name", rec.FullName()).Msg("skipped duplicate record on import")
		case errs.IsValidation(err):
			res.Invalid++
			im.logger.Warn().Err(err).Int("record", i).Msg("skipped invalid record on import")
		default:
			return res, fmt.Errorf("import record %d: %w", i, err)
		}
	}
	return res, nil
}
