package models

import (
	"time"

	"gorm.io/gorm"
)

// PolicyStatus identifies the lifecycle state of a policy
type PolicyStatus uint

const (
	PolicyStatusActive    PolicyStatus = 1
	PolicyStatusCancelled PolicyStatus = 2
	PolicyStatusEnded     PolicyStatus = 3
)

// PaymentFrequency identifies how often installments fall due
type PaymentFrequency uint

const (
	FrequencyMonthly    PaymentFrequency = 1
	FrequencyQuarterly  PaymentFrequency = 2
	FrequencySemiannual PaymentFrequency = 3
	FrequencyAnnual     PaymentFrequency = 4
	FrequencyCustom     PaymentFrequency = 5 // NumberOfPayments spread over the year
)

// Policy represents an insurance policy sold through an advisor
type Policy struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	PolicyNumber   string    `gorm:"type:varchar(100);uniqueIndex" json:"policy_number"`
	CustomerID     uint      `gorm:"index" json:"customer_id"`
	AdvisorID      uint      `gorm:"index" json:"advisor_id"`
	CoverageAmount float64   `gorm:"type:decimal(15,2)" json:"coverage_amount"`
	PolicyValue    float64   `gorm:"type:decimal(15,2)" json:"policy_value"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`

	// NumberOfPayments is only meaningful for FrequencyCustom; for the fixed
	// frequencies the installment count per year is implied by the frequency.
	NumberOfPayments   int              `json:"number_of_payments"`
	PaymentFrequencyID PaymentFrequency `gorm:"index" json:"payment_frequency_id"`
	StatusID           PolicyStatus     `gorm:"index;default:1" json:"status_id"`

	// Commission terms. When IsCommissionAnnualized is set the advisor earns
	// PaymentsToAdvisor once per policy year regardless of collected installments;
	// otherwise commission is released as installments are actually paid.
	PaymentsToAdvisor      float64 `gorm:"type:decimal(15,2)" json:"payments_to_advisor"`
	IsCommissionAnnualized bool    `gorm:"default:false" json:"is_commission_annualized"`
	AgencyPercentage       float64 `gorm:"type:decimal(5,2)" json:"agency_percentage"`
	AdvisorPercentage      float64 `gorm:"type:decimal(5,2)" json:"advisor_percentage"`
	PolicyFee              float64 `gorm:"type:decimal(15,2)" json:"policy_fee"`

	// Relationships
	Customer           Customer            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Advisor            Advisor             `gorm:"foreignKey:AdvisorID" json:"advisor,omitempty"`
	Payments           []Payment           `gorm:"foreignKey:PolicyID" json:"payments,omitempty"`
	Renewals           []Renewal           `gorm:"foreignKey:PolicyID" json:"renewals,omitempty"`
	Periods            []PolicyPeriodData  `gorm:"foreignKey:PolicyID" json:"periods,omitempty"`
	CommissionPayments []CommissionPayment `gorm:"foreignKey:PolicyID" json:"commission_payments,omitempty"`
}

// IsReconcilable reports whether the timeline reconciler should touch this policy.
// Cancelled and ended policies are left exactly as they are.
func (p Policy) IsReconcilable() bool {
	return p.StatusID != PolicyStatusCancelled && p.StatusID != PolicyStatusEnded
}

// Anniversary returns the policy's start-date anniversary in the given year.
func (p Policy) Anniversary(year int) time.Time {
	return time.Date(year, p.StartDate.Month(), p.StartDate.Day(), 0, 0, 0, 0, p.StartDate.Location())
}
