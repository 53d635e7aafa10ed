package models

import (
	"time"
)

// Status is the reported condition of the sensor at sampling time.
type Status string

const (
	StatusOK      Status = "OK"
	StatusWarning Status = "WARNING"
	StatusError   Status = "ERROR"
	StatusOffline Status = "OFFLINE"
)

// AllStatuses lists every status a generated record may carry.
var AllStatuses = []Status{StatusOK, StatusWarning, StatusError, StatusOffline}

// TelemetryRecord is one generated observation, stored in telemetry_legacy.
type TelemetryRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id,omitempty"`
	RecordedAt  time.Time `gorm:"type:timestamptz;not null" json:"recorded_at"`
	Voltage     float64   `gorm:"type:numeric(5,2);not null" json:"voltage"`
	Temp        float64   `gorm:"column:temp;type:numeric(5,2);not null" json:"temp"`
	Operational bool      `gorm:"not null" json:"operational"`
	SourceFile  string    `gorm:"type:text;not null" json:"source_file"`
	Status      Status    `gorm:"type:text;not null" json:"status"`
	CreatedAt   time.Time `gorm:"type:timestamptz;default:now();<-:false" json:"created_at,omitempty"`
}

func (TelemetryRecord) TableName() string {
	return "telemetry_legacy"
}
