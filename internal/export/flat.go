// Package export writes the patient flat view (patient fields with resolved
// diagnosis and address) to CSV, JSON, and XLSX files, and imports records
// back from JSON through the duplicate-aware patient service.
package export

import (
	"strconv"
	"time"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

// FlatHeader is the documented column order of the flat view. Every export
// format and the CSV round-trip guarantee follow it.
var FlatHeader = []string{
	"id",
	"first_name",
	"middle_name",
	"last_name",
	"name_ext",
	"sex",
	"birthdate",
	"contact",
	"height",
	"weight",
	"diagnosis",
	"municipality",
	"barangay",
	"street",
	"house_no",
	"postal_code",
	"notes",
	"created_at",
	"updated_at",
}

func flatRecord(d *patient.Detail) []string {
	return []string{
		strconv.FormatInt(d.ID, 10),
		d.FirstName,
		d.MiddleName,
		d.LastName,
		d.NameExt,
		d.Sex,
		d.Birthdate,
		d.Contact,
		formatFloat(d.Height),
		formatFloat(d.Weight),
		d.DiagnosisName,
		d.Municipality,
		d.Barangay,
		d.Street,
		d.HouseNo,
		d.PostalCode,
		d.Notes,
		formatTime(d.CreatedAt),
		formatTime(d.UpdatedAt),
	}
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
