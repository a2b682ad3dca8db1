package models

import (
	"encoding/json"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// ApplyFormName is the only form that gets a typed projection.
const ApplyFormName = "apply"

// ApplySubmission mirrors the known fields of the apply form for reporting.
// Every column is nullable because the generic endpoint accepts any payload.
type ApplySubmission struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName     *string        `gorm:"type:text" json:"full_name"`
	XProfileLink *string        `gorm:"type:text" json:"x_profile_link"`
	Region       *string        `gorm:"type:text" json:"region"`
	Phone        *string        `gorm:"type:text" json:"phone"`
	Niche        *string        `gorm:"type:text" json:"niche"`
	Skills       *string        `gorm:"type:text" json:"skills"`
	OtherSkill   *string        `gorm:"type:text" json:"other_skill"`
	Category     *string        `gorm:"type:text" json:"category"`
	Followers    *string        `gorm:"type:text" json:"followers"`
	Reason       *string        `gorm:"type:text" json:"reason"`
	UserAgent    *string        `gorm:"type:text" json:"user_agent"`
	IP           *string        `gorm:"type:varchar(64)" json:"ip"`
	CreatedAt    time.Time      `gorm:"not null;index:idx_apply_created_at,sort:desc" json:"created_at"`
	Payload      datatypes.JSON `json:"payload"`
}

func (ApplySubmission) TableName() string {
	return "apply_submissions"
}

// Payload keys read into the typed row. XProfileKeys are tried in order.
var XProfileKeys = []string{"x profile link", "xProfile"}

// MapApplyPayload projects known payload keys onto an ApplySubmission.
// Missing, empty or non-scalar values become nil; it never fails.
func MapApplyPayload(payload map[string]interface{}) ApplySubmission {
	return ApplySubmission{
		FullName:     textField(payload, "fullName"),
		XProfileLink: textField(payload, XProfileKeys...),
		Region:       textField(payload, "region"),
		Phone:        textField(payload, "phone"),
		Niche:        textField(payload, "niche"),
		Skills:       textField(payload, "skills"),
		OtherSkill:   textField(payload, "otherSkill"),
		Category:     textField(payload, "category"),
		Followers:    textField(payload, "followers"),
		Reason:       textField(payload, "reason"),
	}
}

func textField(payload map[string]interface{}, keys ...string) *string {
	for _, k := range keys {
		if s, ok := scalarText(payload[k]); ok {
			return &s
		}
	}
	return nil
}

func scalarText(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, val != ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case json.Number:
		return val.String(), val != ""
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}
