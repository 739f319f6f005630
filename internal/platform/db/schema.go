package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Schema statements. Lookup tables come first so the patient FK references
// resolve. Deleting a lookup row never deletes a patient: both references
// fall back to NULL.
var createTableStmts = []string{
	`CREATE TABLE IF NOT EXISTS diagnoses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_diagnoses_name_nocase
		ON diagnoses(name COLLATE NOCASE)`,
	`CREATE TABLE IF NOT EXISTS addresses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		municipality TEXT NOT NULL,
		barangay TEXT NOT NULL,
		street TEXT NOT NULL DEFAULT '',
		house_no TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_addresses_municipality_barangay
		ON addresses(municipality, barangay)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		first_name TEXT NOT NULL,
		middle_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL,
		name_ext TEXT NOT NULL DEFAULT '',
		sex TEXT NOT NULL,
		birthdate TEXT NOT NULL,
		contact TEXT NOT NULL DEFAULT '',
		height REAL,
		weight REAL,
		notes TEXT NOT NULL DEFAULT '',
		diagnosis_id INTEGER REFERENCES diagnoses(id) ON DELETE SET NULL,
		address_id INTEGER REFERENCES addresses(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_patients_candidate_key
		ON patients(first_name, middle_name, last_name, birthdate)`,
}

// patientColumns is the full expected column set of the patients table with
// the SQL type each compatibility patch uses. Older database files created by
// earlier releases may lack some of these.
var patientColumns = []struct {
	Name string
	Type string
}{
	{"first_name", "TEXT"},
	{"middle_name", "TEXT"},
	{"last_name", "TEXT"},
	{"name_ext", "TEXT"},
	{"sex", "TEXT"},
	{"birthdate", "TEXT"},
	{"contact", "TEXT"},
	{"height", "REAL"},
	{"weight", "REAL"},
	{"notes", "TEXT"},
	{"diagnosis_id", "INTEGER REFERENCES diagnoses(id) ON DELETE SET NULL"},
	{"address_id", "INTEGER REFERENCES addresses(id) ON DELETE SET NULL"},
	{"created_at", "TEXT"},
	{"updated_at", "TEXT"},
}

// EnsureSchema creates any missing tables and additively patches an existing
// patients table that predates the current column set. Idempotent, and safe
// to run on every start: a column that cannot be added is logged and skipped
// rather than failing initialization.
func EnsureSchema(ctx context.Context, sqldb *sql.DB, logger zerolog.Logger) error {
	for _, stmt := range createTableStmts {
		if _, err := sqldb.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return patchPatientColumns(ctx, sqldb, logger)
}

func patchPatientColumns(ctx context.Context, sqldb *sql.DB, logger zerolog.Logger) error {
	existing, err := tableColumns(ctx, sqldb, "patients")
	if err != nil {
		return fmt.Errorf("inspect patients table: %w", err)
	}
	for _, col := range patientColumns {
		if existing[col.Name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE patients ADD COLUMN %s %s", col.Name, col.Type)
		if _, err := sqldb.ExecContext(ctx, stmt); err != nil {
			// Best-effort: an old engine that rejects the ALTER must not
			// keep the application from starting.
			logger.Warn().Err(err).Str("column", col.Name).Msg("could not add patients column")
			continue
		}
		logger.Info().Str("column", col.Name).Msg("added missing patients column")
	}
	return nil
}

func tableColumns(ctx context.Context, sqldb *sql.DB, table string) (map[string]bool, error) {
	rows, err := sqldb.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
