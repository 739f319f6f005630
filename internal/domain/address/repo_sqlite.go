package address

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/patientdesk/patientdesk/internal/domain/errs"
	"github.com/patientdesk/patientdesk/internal/platform/db"
)

type addressRepoSQLite struct{ sqldb *sql.DB }

func NewRepoSQLite(sqldb *sql.DB) Repository {
	return &addressRepoSQLite{sqldb: sqldb}
}

func (r *addressRepoSQLite) conn(ctx context.Context) db.Executor {
	return db.Conn(ctx, r.sqldb)
}

const addressCols = `id, municipality, barangay, street, house_no, postal_code`

func scanAddress(row interface{ Scan(dest ...interface{}) error }) (*Address, error) {
	var a Address
	err := row.Scan(&a.ID, &a.Municipality, &a.Barangay, &a.Street, &a.HouseNo, &a.PostalCode)
	return &a, err
}

func (r *addressRepoSQLite) GetOrCreate(ctx context.Context, a Address) (*int64, error) {
	a.Municipality = strings.TrimSpace(a.Municipality)
	a.Barangay = strings.TrimSpace(a.Barangay)
	a.Street = strings.TrimSpace(a.Street)
	a.HouseNo = strings.TrimSpace(a.HouseNo)
	a.PostalCode = strings.TrimSpace(a.PostalCode)

	if a.Municipality == "" || a.Barangay == "" {
		return nil, nil
	}

	var id int64
	err := r.conn(ctx).QueryRowContext(ctx, `
		SELECT id FROM addresses
		WHERE municipality = ? AND barangay = ? AND street = ? AND house_no = ? AND postal_code = ?`,
		a.Municipality, a.Barangay, a.Street, a.HouseNo, a.PostalCode).Scan(&id)
	if err == nil {
		return &id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	res, err := r.conn(ctx).ExecContext(ctx, `
		INSERT INTO addresses (municipality, barangay, street, house_no, postal_code)
		VALUES (?, ?, ?, ?, ?)`,
		a.Municipality, a.Barangay, a.Street, a.HouseNo, a.PostalCode)
	if err != nil {
		return nil, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *addressRepoSQLite) GetByID(ctx context.Context, id int64) (*Address, error) {
	a, err := scanAddress(r.conn(ctx).QueryRowContext(ctx,
		`SELECT `+addressCols+` FROM addresses WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *addressRepoSQLite) List(ctx context.Context) ([]Address, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT `+addressCols+` FROM addresses ORDER BY municipality, barangay`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	return items, rows.Err()
}

func (r *addressRepoSQLite) DeleteIfOrphaned(ctx context.Context, id int64) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `
		DELETE FROM addresses
		WHERE id = ?
		  AND NOT EXISTS (SELECT 1 FROM patients WHERE address_id = ?)`, id, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
