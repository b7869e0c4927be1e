package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus identifies the collection state of an installment
type PaymentStatus uint

const (
	PaymentStatusPending PaymentStatus = 1
	PaymentStatusPaid    PaymentStatus = 2
)

// Payment represents a single installment on a policy's payment schedule.
// NumberPayment is strictly increasing per policy and is never reset across
// yearly periods. PendingValue is the balance left on the period after this
// installment; the sequence is non-increasing and floored at zero.
type Payment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PolicyID        uint          `gorm:"index;uniqueIndex:idx_payments_policy_number" json:"policy_id"`
	NumberPayment   int           `gorm:"uniqueIndex:idx_payments_policy_number" json:"number_payment"`
	Value           float64       `gorm:"type:decimal(15,2)" json:"value"`
	PendingValue    float64       `gorm:"type:decimal(15,2)" json:"pending_value"`
	StatusPaymentID PaymentStatus `gorm:"index;default:1" json:"status_payment_id"`
	AppliedAt       time.Time     `gorm:"index" json:"applied_at"`

	// Relationships
	Policy Policy `gorm:"foreignKey:PolicyID" json:"policy,omitempty"`
}
