package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

// WriteJSON writes the flat view to w as a pretty-printed array. An empty
// store produces an empty array, never null.
func WriteJSON(w io.Writer, details []*patient.Detail) error {
	if details == nil {
		details = []*patient.Detail{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(details); err != nil {
		return fmt.Errorf("encode json export: %w", err)
	}
	return nil
}
