package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission is one recorded form response. Rows are insert-only.
type Submission struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	FormName  string         `gorm:"type:varchar(64);not null;index:idx_submissions_form_created_at,priority:1" json:"form"`
	Payload   datatypes.JSON `gorm:"not null" json:"data"`
	UserAgent *string        `gorm:"type:text" json:"user_agent"`
	IP        *string        `gorm:"type:varchar(64)" json:"ip"`
	CreatedAt time.Time      `gorm:"not null;index:idx_submissions_form_created_at,priority:2,sort:desc" json:"created_at"`
}

func (Submission) TableName() string {
	return "submissions"
}
