// Package models contains data structures for the application's domain models.
package models

import "time"

// ApplicationStatus defines lifecycle states for supply requests.
type ApplicationStatus string

const (
	// ApplicationStatusActive indicates the request is open and unfulfilled.
	ApplicationStatusActive ApplicationStatus = "active"
	// ApplicationStatusCompleted indicates the request was fulfilled.
	ApplicationStatusCompleted ApplicationStatus = "completed"
	// ApplicationStatusCancelled indicates the request was withdrawn.
	ApplicationStatusCancelled ApplicationStatus = "cancelled"
)

// ApplicationPriority defines urgency levels for supply requests.
type ApplicationPriority string

const (
	ApplicationPriorityNormal ApplicationPriority = "normal"
	ApplicationPriorityHigh   ApplicationPriority = "high"
	ApplicationPriorityUrgent ApplicationPriority = "urgent"
)

// ValidStatus reports whether s is one of the enumerated statuses.
func ValidStatus(s ApplicationStatus) bool {
	switch s {
	case ApplicationStatusActive, ApplicationStatusCompleted, ApplicationStatusCancelled:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the enumerated priorities.
func ValidPriority(p ApplicationPriority) bool {
	switch p {
	case ApplicationPriorityNormal, ApplicationPriorityHigh, ApplicationPriorityUrgent:
		return true
	}
	return false
}

// Application is a single supply request submitted by a user.
// Owner fields are captured from the session at creation time and never
// change afterwards; only status, priority and updated_at are mutable.
type Application struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	OwnerUsername    string              `gorm:"size:120;not null;index" json:"owner_username"`
	OwnerDisplayName string              `gorm:"size:200;not null" json:"owner_display_name"`
	Subject          string              `gorm:"type:text;not null" json:"subject"`
	Quantity         int                 `gorm:"not null" json:"quantity"`
	NeedByDate       string              `gorm:"size:40;not null" json:"need_by_date"`
	Link             string              `gorm:"type:text" json:"link"`
	Status           ApplicationStatus   `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	Priority         ApplicationPriority `gorm:"type:varchar(20);not null;default:'normal';index" json:"priority"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// TableName pins the legacy table name used by earlier deployments.
func (Application) TableName() string {
	return "applications"
}
