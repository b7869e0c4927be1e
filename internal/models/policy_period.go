package models

import (
	"time"

	"gorm.io/gorm"
)

// PolicyPeriodData snapshots the rates applicable to one calendar year of a
// policy's life, so later rate changes never mutate history. Unique per
// (policy, year).
type PolicyPeriodData struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PolicyID          uint    `gorm:"index;uniqueIndex:idx_policy_periods_policy_year" json:"policy_id"`
	Year              int     `gorm:"uniqueIndex:idx_policy_periods_policy_year" json:"year"`
	PolicyValue       float64 `gorm:"type:decimal(15,2)" json:"policy_value"`
	AgencyPercentage  float64 `gorm:"type:decimal(5,2)" json:"agency_percentage"`
	AdvisorPercentage float64 `gorm:"type:decimal(5,2)" json:"advisor_percentage"`
	PolicyFee         float64 `gorm:"type:decimal(15,2)" json:"policy_fee"`

	// Relationships
	Policy Policy `gorm:"foreignKey:PolicyID" json:"policy,omitempty"`
}
