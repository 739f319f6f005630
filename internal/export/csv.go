package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

// WriteCSV writes the flat view to w, one row per patient. The header row is
// always written, so an empty store still produces a valid header-only file.
func WriteCSV(w io.Writer, details []*patient.Detail) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(FlatHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, d := range details {
		if err := cw.Write(flatRecord(d)); err != nil {
			return fmt.Errorf("write csv row for patient %d: %w", d.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
