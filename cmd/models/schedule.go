package models

import (
	"time"

	"gorm.io/gorm"
)

// Schedule is a counselor's working window on one calendar date. A counselor
// has at most one schedule per date, and current_appointments never exceeds
// max_appointments.
type Schedule struct {
	gorm.Model
	CounselorID         uint      `gorm:"column:counselor_id;not null;uniqueIndex:idx_schedules_counselor_date" json:"counselor_id"`
	Date                time.Time `gorm:"column:date;not null;uniqueIndex:idx_schedules_counselor_date" json:"date"`
	StartTime           string    `gorm:"column:start_time;size:5;not null" json:"start_time"`
	EndTime             string    `gorm:"column:end_time;size:5;not null" json:"end_time"`
	IsAvailable         bool      `gorm:"column:is_available;default:true" json:"is_available"`
	MaxAppointments     int       `gorm:"column:max_appointments;not null" json:"max_appointments"`
	CurrentAppointments int       `gorm:"column:current_appointments;not null;default:0" json:"current_appointments"`
	BreakDurationMins   int       `gorm:"column:break_duration_minutes;not null;default:0" json:"break_duration_minutes"`
	Notes               string    `gorm:"column:notes;size:500" json:"notes,omitempty"`

	Counselor *User `gorm:"foreignKey:CounselorID" json:"counselor,omitempty"`
}

func (Schedule) TableName() string {
	return "schedules"
}
