package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/hongminglow/syncink-attendance/internal/models"
)

// Header is the column order shared by every export format.
var Header = []string{"Date", "User", "Email", "Attendance", "Seconds Done", "Remarks", "Submitted At", "Late Submission"}

const sheetName = "Entries"

var columnWidths = []struct {
	from, to string
	width    float64
}{
	{"A", "A", 12},
	{"B", "C", 24},
	{"D", "E", 14},
	{"F", "F", 40},
	{"G", "G", 22},
	{"H", "H", 16},
}

// escapeFormula keeps spreadsheet applications from evaluating user text that
// starts with a formula trigger.
func escapeFormula(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}

// Row is one exported entry joined with its owner.
type Row struct {
	Date        string
	User        string
	Email       string
	Attendance  models.Attendance
	SecondsDone int64
	Remarks     string
	SubmittedAt string
	Late        bool
}

// Rows joins entries with their users. Entries whose user is gone are
// labelled Unknown.
func Rows(entries []models.WorkEntry, users []models.User) []Row {
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]Row, 0, len(entries))
	for _, e := range entries {
		row := Row{
			Date:        e.Date,
			User:        "Unknown",
			Email:       "Unknown",
			Attendance:  e.Report.Attendance(),
			SubmittedAt: e.SubmittedAt.UTC().Format(time.RFC3339),
			Late:        e.IsLate,
		}
		if u, ok := byID[e.UserID]; ok {
			row.User = u.Name
			row.Email = u.Email
		}
		if w, ok := e.Report.Work(); ok {
			row.SecondsDone = w.SecondsDone
			row.Remarks = w.Remarks
		}
		out = append(out, row)
	}
	return out
}

func (r Row) late() string {
	if r.Late {
		return "Yes"
	}
	return "No"
}

// WriteCSV writes rows as UTF-8 CSV with a byte order mark so spreadsheet
// applications detect the encoding.
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Date,
			escapeFormula(r.User),
			escapeFormula(r.Email),
			string(r.Attendance),
			strconv.FormatInt(r.SecondsDone, 10),
			escapeFormula(r.Remarks),
			r.SubmittedAt,
			r.late(),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes rows as a single-sheet Excel workbook.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, h := range Header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("set header: %w", err)
		}
	}
	for i, r := range rows {
		line := i + 2
		values := []any{r.Date, r.User, r.Email, string(r.Attendance), r.SecondsDone, r.Remarks, r.SubmittedAt, r.late()}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, line)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
	}

	for _, col := range columnWidths {
		if err := f.SetColWidth(sheetName, col.from, col.to, col.width); err != nil {
			return fmt.Errorf("set width %s:%s: %w", col.from, col.to, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
