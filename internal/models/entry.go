package models

import (
	"encoding/json"
	"time"
)

// DateLayout is the ISO calendar date format used for entry dates.
const DateLayout = "2006-01-02"

// WorkEntry is one user's report for one calendar date.
type WorkEntry struct {
	ID          string
	UserID      string
	Date        string
	Report      Report
	CreatedAt   time.Time
	SubmittedAt time.Time
	IsLate      bool
	// RequestID references the retroactive request that last modified the entry.
	RequestID string
}

type workEntryJSON struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Date        string     `json:"date"`
	Attendance  Attendance `json:"attendance"`
	SecondsDone *int64     `json:"secondsDone,omitempty"`
	Remarks     *string    `json:"remarks,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	SubmittedAt time.Time  `json:"submittedAt"`
	IsLate      bool       `json:"isLate"`
	RequestID   string     `json:"retroactiveRequestId,omitempty"`
}

// MarshalJSON flattens the report into attendance, secondsDone, and remarks.
func (e WorkEntry) MarshalJSON() ([]byte, error) {
	kind, seconds, remarks := e.Report.Fields()
	return json.Marshal(workEntryJSON{
		ID:          e.ID,
		UserID:      e.UserID,
		Date:        e.Date,
		Attendance:  kind,
		SecondsDone: seconds,
		Remarks:     remarks,
		CreatedAt:   e.CreatedAt,
		SubmittedAt: e.SubmittedAt,
		IsLate:      e.IsLate,
		RequestID:   e.RequestID,
	})
}

// UnmarshalJSON rebuilds the report, rejecting work fields on non-Present entries.
func (e *WorkEntry) UnmarshalJSON(data []byte) error {
	var raw workEntryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	report, err := NewReport(raw.Attendance, raw.SecondsDone, raw.Remarks)
	if err != nil {
		return err
	}
	*e = WorkEntry{
		ID:          raw.ID,
		UserID:      raw.UserID,
		Date:        raw.Date,
		Report:      report,
		CreatedAt:   raw.CreatedAt,
		SubmittedAt: raw.SubmittedAt,
		IsLate:      raw.IsLate,
		RequestID:   raw.RequestID,
	}
	return nil
}
