package address

// Address is a normalized lookup row shared by any number of patients.
// Municipality and barangay are mandatory; the remaining fields default to
// empty strings and participate in equality all the same, so two addresses
// are the same row only when every field matches.
type Address struct {
	ID           int64  `db:"id" json:"id"`
	Municipality string `db:"municipality" json:"municipality"`
	Barangay     string `db:"barangay" json:"barangay"`
	Street       string `db:"street" json:"street"`
	HouseNo      string `db:"house_no" json:"house_no"`
	PostalCode   string `db:"postal_code" json:"postal_code"`
}
