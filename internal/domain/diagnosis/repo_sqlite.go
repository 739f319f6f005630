package diagnosis

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/patientdesk/patientdesk/internal/domain/errs"
	"github.com/patientdesk/patientdesk/internal/platform/db"
)

type diagnosisRepoSQLite struct{ sqldb *sql.DB }

func NewRepoSQLite(sqldb *sql.DB) Repository {
	return &diagnosisRepoSQLite{sqldb: sqldb}
}

func (r *diagnosisRepoSQLite) conn(ctx context.Context) db.Executor {
	return db.Conn(ctx, r.sqldb)
}

func (r *diagnosisRepoSQLite) GetOrCreate(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, errs.Required("diagnosis")
	}

	var id int64
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id FROM diagnoses WHERE name = ? COLLATE NOCASE`, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	// INSERT OR IGNORE plus re-select keeps this safe against a second
	// process inserting the same name between our select and insert; the
	// NOCASE unique index is the arbiter.
	if _, err := r.conn(ctx).ExecContext(ctx,
		`INSERT OR IGNORE INTO diagnoses (name) VALUES (?)`, name); err != nil {
		return 0, err
	}
	err = r.conn(ctx).QueryRowContext(ctx,
		`SELECT id FROM diagnoses WHERE name = ? COLLATE NOCASE`, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *diagnosisRepoSQLite) GetByID(ctx context.Context, id int64) (*Diagnosis, error) {
	var d Diagnosis
	err := r.conn(ctx).QueryRowContext(ctx,
		`SELECT id, name FROM diagnoses WHERE id = ?`, id).Scan(&d.ID, &d.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *diagnosisRepoSQLite) List(ctx context.Context) ([]Diagnosis, error) {
	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT id, name FROM diagnoses ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Diagnosis
	for rows.Next() {
		var d Diagnosis
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *diagnosisRepoSQLite) DeleteIfOrphaned(ctx context.Context, id int64) (bool, error) {
	res, err := r.conn(ctx).ExecContext(ctx, `
		DELETE FROM diagnoses
		WHERE id = ?
		  AND NOT EXISTS (SELECT 1 FROM patients WHERE diagnosis_id = ?)`, id, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
