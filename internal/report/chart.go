package report

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
)

// RenderPieChart renders the age distribution as a PNG pie chart. Empty
// buckets are left out of the pie; an all-empty distribution is an error.
func RenderPieChart(buckets []Bucket) ([]byte, error) {
	var values []chart.Value
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		values = append(values, chart.Value{
			Value: float64(b.Count),
			Label: fmt.Sprintf("%s (%d)", b.Label, b.Count),
		})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no patients to chart")
	}

	pie := chart.PieChart{
		Title:  "Age Group Distribution",
		Width:  512,
		Height: 512,
		Values: values,
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie chart: %w", err)
	}
	return buf.Bytes(), nil
}
