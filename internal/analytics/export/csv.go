// Package export serialises the market overview for download, as CSV for
// spreadsheets and as printable HTML handed to the PDF renderer.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/firmlens/firmlens/internal/analytics"
)

// WriteOverviewCSV writes the overview as one record per metric. The section
// column keys the record type; turnover is blank when no accounts back it.
func WriteOverviewCSV(w io.Writer, overview analytics.Overview) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"section", "key", "label", "value"}); err != nil {
		return err
	}

	records := [][]string{
		{"meta", "year", "", strconv.Itoa(overview.Year)},
		{"meta", "generated_at", "", overview.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	for _, status := range overview.StatusCounts {
		records = append(records, []string{"status", status.Status, "", strconv.Itoa(status.Count)})
	}
	for _, month := range overview.Registrations {
		records = append(records, []string{"registrations", month.Month, "", strconv.Itoa(month.Count)})
	}
	for _, industry := range overview.TopIndustries {
		records = append(records, []string{"industry", industry.NACECode, industry.Label, formatTurnover(industry.Turnover)})
	}
	for _, region := range overview.TopRegions {
		records = append(records, []string{"region", region.Code, region.Name, formatTurnover(region.Turnover)})
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatTurnover(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
