package models

import "time"

// Setting keys recognised by the workflow.
const (
	SettingReportOffsetDays = "report_offset_days"
	SettingReportFillDays   = "report_fill_days"
)

// Setting is an administrator override stored in system_settings.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ReportCadence is the effective post-adoption report schedule.
type ReportCadence struct {
	OffsetDays int `json:"offset_days"`
	FillDays   int `json:"fill_days"`
}
