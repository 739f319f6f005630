package diagnosis

// Diagnosis is a normalized lookup row shared by any number of patients.
// Names are matched case-insensitively but stored with their original case.
type Diagnosis struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
