package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	NotificationPending   = "pending"
	NotificationSent      = "sent"
	NotificationFailed    = "failed"
	NotificationDelivered = "delivered"
)

const (
	NotificationEmail  = "email"
	NotificationSMS    = "sms"
	NotificationSystem = "system"
)

const (
	RecipientStudent   = "student"
	RecipientCounselor = "counselor"
	RecipientAdmin     = "admin"
)

type Notification struct {
	gorm.Model
	RecipientID      uint       `gorm:"column:recipient_id;not null;index" json:"recipient_id"`
	RecipientType    string     `gorm:"column:recipient_type;size:20;not null;index" json:"recipient_type"`
	NotificationType string     `gorm:"column:notification_type;size:20;not null;index" json:"notification_type"`
	Title            string     `gorm:"column:title;size:200;not null" json:"title"`
	Content          string     `gorm:"column:content;size:2000;not null" json:"content"`
	Status           string     `gorm:"column:status;size:20;not null;default:pending;index" json:"status"`
	ScheduledAt      *time.Time `gorm:"column:scheduled_at" json:"scheduled_at,omitempty"`
	SentAt           *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
	DeliveryAttempts int        `gorm:"column:delivery_attempts;not null;default:0" json:"delivery_attempts"`
	ErrorMessage     string     `gorm:"column:error_message;size:500" json:"error_message,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

func ValidNotificationType(t string) bool {
	switch t {
	case NotificationEmail, NotificationSMS, NotificationSystem:
		return true
	}
	return false
}

func ValidRecipientType(t string) bool {
	switch t {
	case RecipientStudent, RecipientCounselor, RecipientAdmin:
		return true
	}
	return false
}

func ValidNotificationStatus(s string) bool {
	switch s {
	case NotificationPending, NotificationSent, NotificationFailed, NotificationDelivered:
		return true
	}
	return false
}
