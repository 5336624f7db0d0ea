package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"sitediary/models"
)

// BOM is written ahead of the CSV so spreadsheet tools detect UTF-8.
const BOM = "\uFEFF"

// ContentTypeCSV is the media type served for CSV downloads.
const ContentTypeCSV = "text/csv; charset=utf-8"

// WriteCSV writes the BOM, header and flattened rows of reports to w.
// Returns the number of data rows written.
func WriteCSV(w io.Writer, reports []models.DailyReport) (int, error) {
	if _, err := io.WriteString(w, BOM); err != nil {
		return 0, fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return 0, fmt.Errorf("write header: %w", err)
	}
	rows := Rows(reports)
	if err := cw.WriteAll(rows); err != nil {
		return 0, fmt.Errorf("write rows: %w", err)
	}
	return len(rows), nil
}

// FileName builds the download name for an export covering from..to.
func FileName(ext, from, to string) string {
	switch {
	case from != "" && to != "":
		return fmt.Sprintf("daily-reports_%s_%s.%s", from, to, ext)
	case from != "":
		return fmt.Sprintf("daily-reports_from_%s.%s", from, ext)
	case to != "":
		return fmt.Sprintf("daily-reports_to_%s.%s", to, ext)
	default:
		return "daily-reports." + ext
	}
}
