package models

import (
	"time"

	"gorm.io/gorm"
)

// Renewal marks one elapsed policy-year beyond the first. RenewalNumber is
// 1-based and sequential; AnniversaryAt is the start-date anniversary the
// renewal corresponds to.
type Renewal struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PolicyID      uint      `gorm:"index;uniqueIndex:idx_renewals_policy_number" json:"policy_id"`
	RenewalNumber int       `gorm:"uniqueIndex:idx_renewals_policy_number" json:"renewal_number"`
	AnniversaryAt time.Time `json:"anniversary_at"`

	// Relationships
	Policy Policy `gorm:"foreignKey:PolicyID" json:"policy,omitempty"`
}
