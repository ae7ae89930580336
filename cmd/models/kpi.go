package models

import (
	"time"

	"gorm.io/gorm"
)

type KpiDefinition struct {
	gorm.Model
	Name string `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
	Unit string `gorm:"column:unit;size:50;not null" json:"unit"`
}

func (KpiDefinition) TableName() string {
	return "kpi_definitions"
}

type CounselorKpiTarget struct {
	gorm.Model
	CounselorID uint      `gorm:"column:counselor_id;not null;index" json:"counselor_id"`
	KpiID       uint      `gorm:"column:kpi_id;not null;index" json:"kpi_id"`
	TargetValue float64   `gorm:"column:target_value;not null" json:"target_value"`
	StartDate   time.Time `gorm:"column:start_date;not null" json:"start_date"`
	EndDate     time.Time `gorm:"column:end_date;not null" json:"end_date"`

	Counselor *User          `gorm:"foreignKey:CounselorID" json:"counselor,omitempty"`
	Kpi       *KpiDefinition `gorm:"foreignKey:KpiID" json:"kpi,omitempty"`
}

func (CounselorKpiTarget) TableName() string {
	return "counselor_kpi_targets"
}
