package models

import (
	"time"

	"gorm.io/gorm"
)

// CommissionRefund records a commission clawback after a cancellation. The
// ledger never nets refunds automatically; reporting reads them separately.
type CommissionRefund struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	AdvisorID        uint      `gorm:"index" json:"advisor_id"`
	PolicyID         uint      `gorm:"index" json:"policy_id"`
	AmountRefunds    float64   `gorm:"type:decimal(15,2)" json:"amount_refunds"`
	CancellationDate time.Time `json:"cancellation_date"`
	Reason           string    `gorm:"type:text" json:"reason"`

	// Relationships
	Advisor Advisor `gorm:"foreignKey:AdvisorID" json:"advisor,omitempty"`
	Policy  Policy  `gorm:"foreignKey:PolicyID" json:"policy,omitempty"`
}
