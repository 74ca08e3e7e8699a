package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReportRejectsWorkOnNonPresent(t *testing.T) {
	secs := int64(60)
	remarks := "note"
	empty := ""

	_, err := NewReport(Absent, &secs, nil)
	assert.Error(t, err)
	_, err = NewReport(AutoAbsent, nil, &remarks)
	assert.Error(t, err)
	_, err = NewReport(Present, nil, nil)
	assert.Error(t, err)
	_, err = NewReport("Holiday", nil, nil)
	assert.Error(t, err)

	r, err := NewReport(Absent, nil, &empty)
	require.NoError(t, err)
	assert.Equal(t, Absent, r.Attendance())

	r, err = NewReport(Present, &secs, &remarks)
	require.NoError(t, err)
	w, ok := r.Work()
	require.True(t, ok)
	assert.Equal(t, Work{SecondsDone: 60, Remarks: "note"}, w)
}

func TestZeroReportIsInvalid(t *testing.T) {
	var r Report
	assert.False(t, r.Valid())
	assert.True(t, AbsentReport().Valid())
}

func TestWorkEntryJSONOmitsWorkUnlessPresent(t *testing.T) {
	ts := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)
	absent := WorkEntry{ID: "e1", UserID: "u1", Date: "2024-03-04", Report: AutoAbsentReport(), CreatedAt: ts, SubmittedAt: ts}

	raw, err := json.Marshal(absent)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "Auto-Absent", fields["attendance"])
	assert.NotContains(t, fields, "secondsDone")
	assert.NotContains(t, fields, "remarks")

	present := absent
	present.Report = PresentReport(3600, "")
	raw, err = json.Marshal(present)
	require.NoError(t, err)
	var decoded WorkEntry
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, present, decoded)

	err = json.Unmarshal([]byte(`{"attendance":"Absent","secondsDone":5}`), &decoded)
	assert.Error(t, err)
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, RoleAdmin.CanReview())
	assert.True(t, RoleManager.CanReview())
	assert.False(t, RoleEmployee.CanReview())
	assert.True(t, RoleAdmin.CanManageUsers())
	assert.False(t, RoleManager.CanManageUsers())
	assert.True(t, RoleEmployee.TracksAttendance())
	assert.False(t, RoleManager.TracksAttendance())
	assert.False(t, Role("owner").CanReview())

	_, err := ParseRole("owner")
	assert.Error(t, err)
}
