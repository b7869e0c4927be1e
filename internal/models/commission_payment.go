package models

import (
	"time"

	"gorm.io/gorm"
)

// Advance status values for CommissionPayment.StatusAdvanceID. A nil status
// means the row is a settled commission payment, not an advance.
const (
	AdvanceStatusOutstanding = 1
	AdvanceStatusLiquidated  = 2
)

// CommissionPayment is one row of the advisor commission ledger.
//
// PolicyID nil + StatusAdvanceID = AdvanceStatusOutstanding is a "general
// advance": cash handed to the advisor not yet attributed to any policy. Once
// fully consumed by a distribution the row transitions to
// AdvanceStatusLiquidated and is never reused. Rows with a nil
// StatusAdvanceID are settled commission payments against a policy.
type CommissionPayment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	AdvisorID       uint    `gorm:"index" json:"advisor_id"`
	PolicyID        *uint   `gorm:"index" json:"policy_id"`
	AdvanceAmount   float64 `gorm:"type:decimal(15,2)" json:"advance_amount"`
	StatusAdvanceID *int    `gorm:"index" json:"status_advance_id"`
	ReceiptNumber   string  `gorm:"type:varchar(100);index" json:"receipt_number"`
	PaymentMethod   string  `gorm:"type:varchar(100)" json:"payment_method"`
	Observations    string  `gorm:"type:text" json:"observations"`

	// Relationships
	Advisor Advisor `gorm:"foreignKey:AdvisorID" json:"advisor,omitempty"`
	Policy  *Policy `gorm:"foreignKey:PolicyID" json:"policy,omitempty"`
}

// IsGeneralAdvance reports whether the row is an unallocated advisor credit.
func (c CommissionPayment) IsGeneralAdvance() bool {
	return c.PolicyID == nil && c.StatusAdvanceID != nil && *c.StatusAdvanceID == AdvanceStatusOutstanding
}
