package models

import "fmt"

// Attendance is the kind of a daily report.
type Attendance string

const (
	Present    Attendance = "Present"
	Absent     Attendance = "Absent"
	AutoAbsent Attendance = "Auto-Absent"
)

// ParseAttendance converts a raw string into an Attendance.
func ParseAttendance(raw string) (Attendance, error) {
	switch a := Attendance(raw); a {
	case Present, Absent, AutoAbsent:
		return a, nil
	default:
		return "", fmt.Errorf("unknown attendance %q", raw)
	}
}

// Work is the output recorded with a Present report.
type Work struct {
	SecondsDone int64
	Remarks     string
}

// Report is a daily attendance outcome. Work is only carried by Present
// reports; the zero Report is invalid.
type Report struct {
	kind Attendance
	work Work
}

// PresentReport builds a Present report with the seconds worked and optional remarks.
func PresentReport(secondsDone int64, remarks string) Report {
	return Report{kind: Present, work: Work{SecondsDone: secondsDone, Remarks: remarks}}
}

// AbsentReport builds a manually submitted Absent report.
func AbsentReport() Report {
	return Report{kind: Absent}
}

// AutoAbsentReport builds the report written by the auto-absent sweep.
func AutoAbsentReport() Report {
	return Report{kind: AutoAbsent}
}

// NewReport builds a report from loosely typed input, rejecting work fields on
// non-Present kinds.
func NewReport(kind Attendance, secondsDone *int64, remarks *string) (Report, error) {
	switch kind {
	case Present:
		if secondsDone == nil {
			return Report{}, fmt.Errorf("secondsDone is required when attendance is %s", Present)
		}
		if *secondsDone < 0 {
			return Report{}, fmt.Errorf("secondsDone must not be negative")
		}
		var r string
		if remarks != nil {
			r = *remarks
		}
		return PresentReport(*secondsDone, r), nil
	case Absent, AutoAbsent:
		if secondsDone != nil || (remarks != nil && *remarks != "") {
			return Report{}, fmt.Errorf("secondsDone and remarks are only allowed when attendance is %s", Present)
		}
		return Report{kind: kind}, nil
	default:
		return Report{}, fmt.Errorf("unknown attendance %q", kind)
	}
}

// Attendance returns the report kind.
func (r Report) Attendance() Attendance { return r.kind }

// Work returns the recorded output and true for Present reports.
func (r Report) Work() (Work, bool) {
	if r.kind != Present {
		return Work{}, false
	}
	return r.work, true
}

// Valid reports whether the report was built through one of the constructors.
func (r Report) Valid() bool {
	switch r.kind {
	case Present, Absent, AutoAbsent:
		return true
	default:
		return false
	}
}

// Fields flattens the report into its storage columns. Seconds and remarks are
// nil unless the report is Present; empty remarks are stored as nil.
func (r Report) Fields() (Attendance, *int64, *string) {
	w, ok := r.Work()
	if !ok {
		return r.kind, nil, nil
	}
	seconds := w.SecondsDone
	if w.Remarks == "" {
		return r.kind, &seconds, nil
	}
	remarks := w.Remarks
	return r.kind, &seconds, &remarks
}
