package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer represents a policy holder
type Customer struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FirstName      string `gorm:"type:varchar(100)" json:"first_name"`
	LastName       string `gorm:"type:varchar(100)" json:"last_name"`
	DocumentNumber string `gorm:"type:varchar(50);uniqueIndex" json:"document_number"`
	Email          string `gorm:"type:varchar(255)" json:"email"`
	Phone          string `gorm:"type:varchar(50)" json:"phone"`

	// Relationships
	Policies []Policy `gorm:"foreignKey:CustomerID" json:"policies,omitempty"`
}
