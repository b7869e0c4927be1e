package models

import (
	"time"

	"gorm.io/gorm"
)

// Advisor represents an insurance advisor receiving commissions
type Advisor struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FirstName string `gorm:"type:varchar(100)" json:"first_name"`
	LastName  string `gorm:"type:varchar(100)" json:"last_name"`
	Email     string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Phone     string `gorm:"type:varchar(50)" json:"phone"`
	IsActive  bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Policies           []Policy            `gorm:"foreignKey:AdvisorID" json:"policies,omitempty"`
	CommissionPayments []CommissionPayment `gorm:"foreignKey:AdvisorID" json:"commission_payments,omitempty"`
}
