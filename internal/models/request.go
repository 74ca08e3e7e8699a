package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RequestStatus tracks a retroactive request through review.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// ParseRequestStatus converts a raw string into a RequestStatus.
func ParseRequestStatus(raw string) (RequestStatus, error) {
	switch s := RequestStatus(raw); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, nil
	default:
		return "", fmt.Errorf("unknown request status %q", raw)
	}
}

// Terminal reports whether no further transition is allowed.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// RetroactiveRequest proposes a correction to one auto-absent WorkEntry.
type RetroactiveRequest struct {
	ID                 string
	EntryID            string
	UserID             string
	RequestedBy        string
	RequestDate        time.Time
	Reason             string
	OriginalAttendance Attendance
	// Requested is never an AutoAbsent report.
	Requested      Report
	Status         RequestStatus
	ReviewedBy     string
	ReviewedAt     *time.Time
	ReviewComments string
}

type retroactiveRequestJSON struct {
	ID                   string        `json:"id"`
	EntryID              string        `json:"entryId"`
	UserID               string        `json:"userId"`
	RequestedBy          string        `json:"requestedBy"`
	RequestDate          time.Time     `json:"requestDate"`
	Reason               string        `json:"reason"`
	OriginalAttendance   Attendance    `json:"originalAttendance"`
	RequestedAttendance  Attendance    `json:"requestedAttendance"`
	RequestedSecondsDone *int64        `json:"requestedSecondsDone,omitempty"`
	RequestedRemarks     *string       `json:"requestedRemarks,omitempty"`
	Status               RequestStatus `json:"status"`
	ReviewedBy           string        `json:"reviewedBy,omitempty"`
	ReviewedAt           *time.Time    `json:"reviewedAt,omitempty"`
	ReviewComments       string        `json:"reviewComments,omitempty"`
}

// MarshalJSON flattens the requested report.
func (r RetroactiveRequest) MarshalJSON() ([]byte, error) {
	kind, seconds, remarks := r.Requested.Fields()
	return json.Marshal(retroactiveRequestJSON{
		ID:                   r.ID,
		EntryID:              r.EntryID,
		UserID:               r.UserID,
		RequestedBy:          r.RequestedBy,
		RequestDate:          r.RequestDate,
		Reason:               r.Reason,
		OriginalAttendance:   r.OriginalAttendance,
		RequestedAttendance:  kind,
		RequestedSecondsDone: seconds,
		RequestedRemarks:     remarks,
		Status:               r.Status,
		ReviewedBy:           r.ReviewedBy,
		ReviewedAt:           r.ReviewedAt,
		ReviewComments:       r.ReviewComments,
	})
}

// UnmarshalJSON rebuilds the requested report.
func (r *RetroactiveRequest) UnmarshalJSON(data []byte) error {
	var raw retroactiveRequestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	requested, err := NewReport(raw.RequestedAttendance, raw.RequestedSecondsDone, raw.RequestedRemarks)
	if err != nil {
		return err
	}
	*r = RetroactiveRequest{
		ID:                 raw.ID,
		EntryID:            raw.EntryID,
		UserID:             raw.UserID,
		RequestedBy:        raw.RequestedBy,
		RequestDate:        raw.RequestDate,
		Reason:             raw.Reason,
		OriginalAttendance: raw.OriginalAttendance,
		Requested:          requested,
		Status:             raw.Status,
		ReviewedBy:         raw.ReviewedBy,
		ReviewedAt:         raw.ReviewedAt,
		ReviewComments:     raw.ReviewComments,
	}
	return nil
}
