package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin     = "admin"
	RoleCounselor = "counselor"
	RoleManager   = "manager"
)

type User struct {
	gorm.Model
	Email                 string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash          string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	FullName              string    `gorm:"column:full_name;size:100;not null" json:"full_name"`
	UserType              string    `gorm:"column:user_type;size:50;not null;default:counselor" json:"user_type"`
	IsMainConsultant      bool      `gorm:"column:is_main_consultant;default:false" json:"is_main_consultant"`
	EmploymentDate        time.Time `gorm:"column:employment_date" json:"employment_date"`
	Status                string    `gorm:"column:status;size:50;not null;default:active" json:"status"`
	ProgramType           string    `gorm:"column:program_type;size:50" json:"program_type,omitempty"`
	RefreshToken          string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`
}

func (User) TableName() string {
	return "users"
}
