package patient

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/patientdesk/patientdesk/internal/domain/errs"
	"github.com/patientdesk/patientdesk/internal/platform/db"
)

type patientRepoSQLite struct{ sqldb *sql.DB }

func NewRepoSQLite(sqldb *sql.DB) Repository {
	return &patientRepoSQLite{sqldb: sqldb}
}

func (r *patientRepoSQLite) conn(ctx context.Context) db.Executor {
	return db.Conn(ctx, r.sqldb)
}

const patientCols = `id, first_name, middle_name, last_name, name_ext, sex, birthdate,
	contact, height, weight, notes, diagnosis_id, address_id, created_at, updated_at`

func scanPatient(row interface{ Scan(dest ...interface{}) error }) (*Patient, error) {
	var (
		p         Patient
		height    sql.NullFloat64
		weight    sql.NullFloat64
		diagID    sql.NullInt64
		addrID    sql.NullInt64
		createdAt string
		updatedAt string
	)
	err := row.Scan(&p.ID, &p.FirstName, &p.MiddleName, &p.LastName, &p.NameExt, &p.Sex, &p.Birthdate,
		&p.Contact, &height, &weight, &p.Notes, &diagID, &addrID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if height.Valid {
		p.Height = &height.Float64
	}
	if weight.Valid {
		p.Weight = &weight.Float64
	}
	if diagID.Valid {
		p.DiagnosisID = &diagID.Int64
	}
	if addrID.Valid {
		p.AddressID = &addrID.Int64
	}
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return &p, nil
}

// parseTimestamp tolerates the empty strings left behind by the additive
// schema patch on rows that predate the timestamp columns.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func (r *patientRepoSQLite) Create(ctx context.Context, p *Patient) (int64, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO patients (first_name, middle_name, last_name, name_ext, sex, birthdate,
			contact, height, weight, notes, diagnosis_id, address_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.FirstName, p.MiddleName, p.LastName, p.NameExt, p.Sex, p.Birthdate,
		p.Contact, nullFloat(p.Height), nullFloat(p.Weight), p.Notes,
		nullInt(p.DiagnosisID), nullInt(p.AddressID),
		formatTimestamp(p.CreatedAt), formatTimestamp(p.UpdatedAt))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	return id, nil
}

func (r *patientRepoSQLite) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *patientRepoSQLite) FindIDByKey(ctx context.Context, key CandidateKey, excludeID int64) (int64, bool, error) {
	var id int64
	err := r.conn(ctx).QueryRowContext(ctx, `
		SELECT id FROM patients
		WHERE first_name = ? AND middle_name = ? AND last_name = ? AND birthdate = ? AND id != ?
		LIMIT 1`,
		key.FirstName, key.MiddleName, key.LastName, key.Birthdate, excludeID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *patientRepoSQLite) Update(ctx context.Context, p *Patient) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `
		UPDATE patients SET first_name = ?, middle_name = ?, last_name = ?, name_ext = ?,
			sex = ?, birthdate = ?, contact = ?, height = ?, weight = ?, notes = ?,
			diagnosis_id = ?, address_id = ?, updated_at = ?
		WHERE id = ?`,
		p.FirstName, p.MiddleName, p.LastName, p.NameExt,
		p.Sex, p.Birthdate, p.Contact, nullFloat(p.Height), nullFloat(p.Weight), p.Notes,
		nullInt(p.DiagnosisID), nullInt(p.AddressID), formatTimestamp(p.UpdatedAt),
		p.ID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *patientRepoSQLite) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *patientRepoSQLite) List(ctx context.Context) ([]*Patient, error) {
	return r.queryPatients(ctx, `SELECT `+patientCols+` FROM patients ORDER BY id DESC`)
}

func (r *patientRepoSQLite) SearchByName(ctx context.Context, term string) ([]*Patient, error) {
	if term == "" {
		return r.List(ctx)
	}
	pattern := "%" + term + "%"
	return r.queryPatients(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE first_name LIKE ? COLLATE NOCASE
		   OR middle_name LIKE ? COLLATE NOCASE
		   OR last_name LIKE ? COLLATE NOCASE
		ORDER BY id DESC`, pattern, pattern, pattern)
}

func (r *patientRepoSQLite) queryPatients(ctx context.Context, query string, args ...interface{}) ([]*Patient, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *patientRepoSQLite) ListDetails(ctx context.Context) ([]*Detail, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, `
		SELECT p.id, p.first_name, p.middle_name, p.last_name, p.name_ext, p.sex, p.birthdate,
			p.contact, p.height, p.weight, p.notes, p.diagnosis_id, p.address_id,
			p.created_at, p.updated_at,
			COALESCE(d.name, ''),
			COALESCE(a.municipality, ''), COALESCE(a.barangay, ''),
			COALESCE(a.street, ''), COALESCE(a.house_no, ''), COALESCE(a.postal_code, '')
		FROM patients p
		LEFT JOIN diagnoses d ON d.id = p.diagnosis_id
		LEFT JOIN addresses a ON a.id = p.address_id
		ORDER BY p.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Detail
	for rows.Next() {
		var (
			dt        Detail
			height    sql.NullFloat64
			weight    sql.NullFloat64
			diagID    sql.NullInt64
			addrID    sql.NullInt64
			createdAt string
			updatedAt string
		)
		err := rows.Scan(&dt.ID, &dt.FirstName, &dt.MiddleName, &dt.LastName, &dt.NameExt, &dt.Sex, &dt.Birthdate,
			&dt.Contact, &height, &weight, &dt.Notes, &diagID, &addrID, &createdAt, &updatedAt,
			&dt.DiagnosisName,
			&dt.Municipality, &dt.Barangay, &dt.Street, &dt.HouseNo, &dt.PostalCode)
		if err != nil {
			return nil, err
		}
		if height.Valid {
			dt.Height = &height.Float64
		}
		if weight.Valid {
			dt.Weight = &weight.Float64
		}
		if diagID.Valid {
			dt.DiagnosisID = &diagID.Int64
		}
		if addrID.Valid {
			dt.AddressID = &addrID.Int64
		}
		dt.CreatedAt = parseTimestamp(createdAt)
		dt.UpdatedAt = parseTimestamp(updatedAt)
		items = append(items, &dt)
	}
	return items, rows.Err()
}
