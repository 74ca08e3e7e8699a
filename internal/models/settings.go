package models

// AttendanceSettings is the single global policy record.
type AttendanceSettings struct {
	// DailyDeadline is a 24-hour HH:MM time of day interpreted in TimeZone.
	DailyDeadline               string `json:"dailyDeadline"`
	TimeZone                    string `json:"timeZone"`
	AllowRetroactive            bool   `json:"allowRetroactive"`
	RetroactiveRequiresApproval bool   `json:"retroactiveRequiresApproval"`
	AutoAbsentAfterDeadline     bool   `json:"autoAbsentAfterDeadline"`
}

// DefaultSettings returns the settings applied on first initialization.
func DefaultSettings(timeZone string) AttendanceSettings {
	if timeZone == "" {
		timeZone = "UTC"
	}
	return AttendanceSettings{
		DailyDeadline:               "18:00",
		TimeZone:                    timeZone,
		AllowRetroactive:            true,
		RetroactiveRequiresApproval: true,
		AutoAbsentAfterDeadline:     true,
	}
}
