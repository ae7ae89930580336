package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SessionScheduled = "Scheduled"
	SessionCompleted = "Completed"
	SessionCanceled  = "Canceled"
	SessionNoShow    = "No Show"
)

type ConsultationSession struct {
	gorm.Model
	CounselorID     uint      `gorm:"column:counselor_id;not null;index" json:"counselor_id"`
	StudentID       uint      `gorm:"column:student_id;not null;index" json:"student_id"`
	SessionDate     time.Time `gorm:"column:session_date;not null;index" json:"session_date"`
	DurationMinutes int       `gorm:"column:duration_minutes;not null" json:"duration_minutes"`
	Notes           string    `gorm:"column:notes;size:2000" json:"notes,omitempty"`
	SessionType     string    `gorm:"column:session_type;size:50;not null" json:"session_type"`
	SessionStatus   string    `gorm:"column:session_status;size:50;not null;default:Scheduled;index" json:"session_status"`

	Counselor *User    `gorm:"foreignKey:CounselorID" json:"counselor,omitempty"`
	Student   *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (ConsultationSession) TableName() string {
	return "consultation_sessions"
}

func ValidSessionType(t string) bool {
	switch t {
	case "Phone Call", "Online Meeting", "In-Person", "Email", "Chat":
		return true
	}
	return false
}

func ValidSessionStatus(s string) bool {
	switch s {
	case SessionScheduled, SessionCompleted, SessionCanceled, SessionNoShow:
		return true
	}
	return false
}
