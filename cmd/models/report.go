package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	ReportGenerating = "generating"
	ReportCompleted  = "completed"
	ReportFailed     = "failed"
)

type Report struct {
	gorm.Model
	ReportName    string    `gorm:"column:report_name;size:200;not null" json:"report_name"`
	ReportType    string    `gorm:"column:report_type;size:50;not null;index" json:"report_type"`
	ReportPeriod  string    `gorm:"column:report_period;size:20;not null" json:"report_period"`
	StartDate     time.Time `gorm:"column:start_date;not null" json:"start_date"`
	EndDate       time.Time `gorm:"column:end_date;not null" json:"end_date"`
	GeneratedByID uint      `gorm:"column:generated_by;not null;index" json:"generated_by"`
	FilePath      string    `gorm:"column:file_path;size:500" json:"file_path,omitempty"`
	FileFormat    string    `gorm:"column:file_format;size:10;not null" json:"file_format"`
	Status        string    `gorm:"column:status;size:20;not null;default:generating;index" json:"status"`
	ErrorMessage  string    `gorm:"column:error_message;size:500" json:"error_message,omitempty"`
	DownloadCount int       `gorm:"column:download_count;not null;default:0" json:"download_count"`

	GeneratedBy *User `gorm:"foreignKey:GeneratedByID" json:"generated_by_user,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

func ValidReportType(t string) bool {
	switch t {
	case "statistics", "conversion", "source", "counselor_performance", "student_progress":
		return true
	}
	return false
}

func ValidReportFormat(f string) bool {
	switch f {
	case "excel", "csv":
		return true
	}
	return false
}
