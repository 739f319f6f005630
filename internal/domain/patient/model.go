package patient

import (
	"strings"
	"time"
)

// Patient maps to the patients table. Birthdate is kept as a YYYY-MM-DD
// string, the format it is stored in. Height and weight are optional
// measurements; DiagnosisID and AddressID reference lookup rows and are nil
// when the patient has none.
type Patient struct {
	ID          int64     `db:"id" json:"id"`
	FirstName   string    `db:"first_name" json:"first_name"`
	MiddleName  string    `db:"middle_name" json:"middle_name"`
	LastName    string    `db:"last_name" json:"last_name"`
	NameExt     string    `db:"name_ext" json:"name_ext"`
	Sex         string    `db:"sex" json:"sex"`
	Birthdate   string    `db:"birthdate" json:"birthdate"`
	Contact     string    `db:"contact" json:"contact"`
	Height      *float64  `db:"height" json:"height,omitempty"`
	Weight      *float64  `db:"weight" json:"weight,omitempty"`
	Notes       string    `db:"notes" json:"notes"`
	DiagnosisID *int64    `db:"diagnosis_id" json:"diagnosis_id,omitempty"`
	AddressID   *int64    `db:"address_id" json:"address_id,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CandidateKey is the tuple that identifies a person in the absence of a
// natural identifier. Two patient rows may never share it.
type CandidateKey struct {
	FirstName  string
	MiddleName string
	LastName   string
	Birthdate  string
}

// Key returns the patient's candidate key with surrounding whitespace
// stripped from each component.
func (p *Patient) Key() CandidateKey {
	return CandidateKey{
		FirstName:  strings.TrimSpace(p.FirstName),
		MiddleName: strings.TrimSpace(p.MiddleName),
		LastName:   strings.TrimSpace(p.LastName),
		Birthdate:  strings.TrimSpace(p.Birthdate),
	}
}

// FullName joins the non-empty name parts with single spaces.
func (p *Patient) FullName() string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.FirstName, p.MiddleName, p.LastName, p.NameExt} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Detail is the flat view of a patient with its lookup references resolved,
// consumed by export and reporting. Fields are empty strings when the
// patient has no diagnosis or address.
type Detail struct {
	Patient
	DiagnosisName string `json:"diagnosis"`
	Municipality  string `json:"municipality"`
	Barangay      string `json:"barangay"`
	Street        string `json:"street"`
	HouseNo       string `json:"house_no"`
	PostalCode    string `json:"postal_code"`
}
