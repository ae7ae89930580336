package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AppointmentScheduled = "scheduled"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no_show"
)

const (
	AppointmentTypePhone    = "phone"
	AppointmentTypeOnline   = "online"
	AppointmentTypeInPerson = "in_person"
)

// Appointment is a booked consultation slot inside a Schedule. Appointments in
// the scheduled or confirmed state hold a counselor's time: no two of them may
// overlap for the same counselor and date.
type Appointment struct {
	gorm.Model
	StudentID        uint      `gorm:"column:student_id;not null;index" json:"student_id"`
	CounselorID      uint      `gorm:"column:counselor_id;not null;index:idx_appointments_counselor_date" json:"counselor_id"`
	ScheduleID       uint      `gorm:"column:schedule_id;not null;index" json:"schedule_id"`
	AppointmentDate  time.Time `gorm:"column:appointment_date;not null;index:idx_appointments_counselor_date" json:"appointment_date"`
	StartTime        string    `gorm:"column:start_time;size:5;not null" json:"start_time"`
	EndTime          string    `gorm:"column:end_time;size:5;not null" json:"end_time"`
	Status           string    `gorm:"column:status;size:20;not null;default:scheduled;index" json:"status"`
	AppointmentType  string    `gorm:"column:appointment_type;size:20;not null" json:"appointment_type"`
	Notes            string    `gorm:"column:notes;size:1000" json:"notes,omitempty"`
	ReminderSent     bool      `gorm:"column:reminder_sent;default:false" json:"reminder_sent"`
	ConfirmationSent bool      `gorm:"column:confirmation_sent;default:false" json:"confirmation_sent"`
	CreatedByID      uint      `gorm:"column:created_by;not null" json:"created_by"`

	Student   *Student  `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Counselor *User     `gorm:"foreignKey:CounselorID" json:"counselor,omitempty"`
	Schedule  *Schedule `gorm:"foreignKey:ScheduleID" json:"schedule,omitempty"`
	CreatedBy *User     `gorm:"foreignKey:CreatedByID" json:"-"`
}

func (Appointment) TableName() string {
	return "appointments"
}

func ValidAppointmentStatus(s string) bool {
	switch s {
	case AppointmentScheduled, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}

func ValidAppointmentType(t string) bool {
	switch t {
	case AppointmentTypePhone, AppointmentTypeOnline, AppointmentTypeInPerson:
		return true
	}
	return false
}

// ActiveAppointmentStatuses are the states that occupy a counselor's time for
// the purpose of conflict detection.
var ActiveAppointmentStatuses = []string{AppointmentScheduled, AppointmentConfirmed}
