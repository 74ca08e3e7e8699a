package dto

import (
	"github.com/hongminglow/syncink-attendance/internal/models"
)

// SubmitEntryRequest is the body of POST /entries. The entry is always for
// the current day in the configured time zone.
type SubmitEntryRequest struct {
	Attendance  string  `json:"attendance"`
	SecondsDone *int64  `json:"secondsDone,omitempty"`
	Remarks     *string `json:"remarks,omitempty"`
}

// Report converts the payload into a validated report.
func (r SubmitEntryRequest) Report() (models.Report, error) {
	kind, err := models.ParseAttendance(r.Attendance)
	if err != nil {
		return models.Report{}, err
	}
	return models.NewReport(kind, r.SecondsDone, r.Remarks)
}

type TodayResponse struct {
	Date      string            `json:"date"`
	Submitted bool              `json:"submitted"`
	Entry     *models.WorkEntry `json:"entry,omitempty"`
}

type CreateRetroactiveRequest struct {
	EntryID              string  `json:"entryId"`
	Reason               string  `json:"reason"`
	RequestedAttendance  string  `json:"requestedAttendance"`
	RequestedSecondsDone *int64  `json:"requestedSecondsDone,omitempty"`
	RequestedRemarks     *string `json:"requestedRemarks,omitempty"`
}

// Report converts the requested correction into a validated report.
func (r CreateRetroactiveRequest) Report() (models.Report, error) {
	kind, err := models.ParseAttendance(r.RequestedAttendance)
	if err != nil {
		return models.Report{}, err
	}
	return models.NewReport(kind, r.RequestedSecondsDone, r.RequestedRemarks)
}

type ReviewRequest struct {
	Decision string `json:"decision"`
	Comments string `json:"comments"`
}

type SweepResponse struct {
	Marked  int                `json:"marked"`
	Entries []models.WorkEntry `json:"entries"`
}
