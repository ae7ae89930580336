package models

import "gorm.io/gorm"

type CourseCategory struct {
	gorm.Model
	Name        string `gorm:"column:name;size:100;not null;uniqueIndex" json:"name"`
	Description string `gorm:"column:description;size:500" json:"description,omitempty"`
}

func (CourseCategory) TableName() string {
	return "course_categories"
}

type Course struct {
	gorm.Model
	CategoryID   uint    `gorm:"column:category_id;not null;index" json:"category_id"`
	Name         string  `gorm:"column:name;size:200;not null" json:"name"`
	Description  string  `gorm:"column:description;size:1000;not null" json:"description"`
	DurationText string  `gorm:"column:duration_text;size:100;not null" json:"duration_text"`
	Price        float64 `gorm:"column:price;not null" json:"price"`
	IsActive     bool    `gorm:"column:is_active;default:true;index" json:"is_active"`
	ProgramType  string  `gorm:"column:program_type;size:50;not null;index" json:"program_type"`

	Category *CourseCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}
