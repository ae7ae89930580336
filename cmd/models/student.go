package models

import (
	"time"

	"gorm.io/gorm"
)

// Student statuses follow the lead funnel: Lead -> Engaging -> Registered,
// with Dropped Out and Archived as terminal states.
const (
	StudentStatusLead       = "Lead"
	StudentStatusEngaging   = "Engaging"
	StudentStatusRegistered = "Registered"
	StudentStatusDropped    = "Dropped Out"
	StudentStatusArchived   = "Archived"
)

type Student struct {
	gorm.Model
	StudentName           string    `gorm:"column:student_name;size:100;not null" json:"student_name"`
	Email                 string    `gorm:"column:email;size:255;not null;index" json:"email"`
	PhoneNumber           string    `gorm:"column:phone_number;size:20;not null;index" json:"phone_number"`
	Gender                string    `gorm:"column:gender;size:10;not null" json:"gender"`
	ZaloPhone             string    `gorm:"column:zalo_phone;size:20" json:"zalo_phone,omitempty"`
	LinkFacebook          string    `gorm:"column:link_facebook;size:255" json:"link_facebook,omitempty"`
	DateOfBirth           time.Time `gorm:"column:date_of_birth;not null" json:"date_of_birth"`
	CurrentEducationLevel string    `gorm:"column:current_education_level;size:50;not null" json:"current_education_level"`
	HighSchoolName        string    `gorm:"column:high_school_name;size:200" json:"high_school_name,omitempty"`
	City                  string    `gorm:"column:city;size:100;not null" json:"city"`
	Source                string    `gorm:"column:source;size:50;not null;index" json:"source"`
	NotificationConsent   string    `gorm:"column:notification_consent;size:20;not null" json:"notification_consent"`
	CurrentStatus         string    `gorm:"column:current_status;size:50;not null;default:Lead;index" json:"current_status"`
	AssignedCounselorID   *uint     `gorm:"column:assigned_counselor_id;index" json:"assigned_counselor_id,omitempty"`

	AssignedCounselor *User `gorm:"foreignKey:AssignedCounselorID" json:"assigned_counselor,omitempty"`
}

func (Student) TableName() string {
	return "students"
}

type StudentStatusHistory struct {
	gorm.Model
	StudentID       uint      `gorm:"column:student_id;not null;index" json:"student_id"`
	OldStatus       string    `gorm:"column:old_status;size:50;not null" json:"old_status"`
	NewStatus       string    `gorm:"column:new_status;size:50;not null" json:"new_status"`
	ChangeDate      time.Time `gorm:"column:change_date;not null" json:"change_date"`
	ChangedByUserID uint      `gorm:"column:changed_by_user_id;not null" json:"changed_by_user_id"`

	Student   *Student `gorm:"foreignKey:StudentID" json:"-"`
	ChangedBy *User    `gorm:"foreignKey:ChangedByUserID" json:"changed_by,omitempty"`
}

func (StudentStatusHistory) TableName() string {
	return "student_status_histories"
}
