// Package report builds the age-distribution chart and the master-list PDF
// from the patient flat view.
package report

import (
	"time"

	"github.com/patientdesk/patientdesk/internal/domain/patient"
)

// AgeAt returns the whole-year age for a YYYY-MM-DD birthdate at the given
// instant. Unparseable birthdates and dates in the future count as 0.
func AgeAt(birthdate string, now time.Time) int {
	birth, err := time.Parse("2006-01-02", birthdate)
	if err != nil {
		return 0
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// Bucket is one slice of the age distribution.
type Bucket struct {
	Label string
	Count int
}

var bucketUpperBounds = []struct {
	label string
	max   int
}{
	{"0-12", 12},
	{"13-19", 19},
	{"20-35", 35},
	{"36-59", 59},
}

// Distribution counts patients per age group, in fixed bucket order.
func Distribution(details []*patient.Detail, now time.Time) []Bucket {
	buckets := make([]Bucket, 0, len(bucketUpperBounds)+1)
	for _, b := range bucketUpperBounds {
		buckets = append(buckets, Bucket{Label: b.label})
	}
	buckets = append(buckets, Bucket{Label: "60+"})

	for _, d := range details {
		age := AgeAt(d.Birthdate, now)
		placed := false
		for i, b := range bucketUpperBounds {
			if age <= b.max {
				buckets[i].Count++
				placed = true
				break
			}
		}
		if !placed {
			buckets[len(buckets)-1].Count++
		}
	}
	return buckets
}
