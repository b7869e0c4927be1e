package services

import (
	"time"

	"github.com/teambition/rrule-go"

	"northsouth_agency/internal/models"
)

// PaymentSchedule answers the payment-frequency questions the timeline
// reconciler needs: how many installments fit in one policy year, when the
// next one falls due, and how much each one is worth.
type PaymentSchedule interface {
	// InstallmentsPerCycle returns the number of installments in one policy year.
	InstallmentsPerCycle(freq models.PaymentFrequency, numberOfPayments int) int

	// NextDueDate returns the due date following current. periodStart anchors
	// the recurrence so due days stay aligned to the policy anniversary.
	NextDueDate(current time.Time, freq models.PaymentFrequency, numberOfPayments int, periodStart time.Time) time.Time

	// InstallmentAmount returns the value of a single installment for the
	// given period policy value.
	InstallmentAmount(policyValue float64, freq models.PaymentFrequency, numberOfPayments int) float64
}

// RRuleSchedule implements PaymentSchedule with RFC 5545 monthly recurrence
// rules anchored at the period start.
type RRuleSchedule struct{}

func (RRuleSchedule) InstallmentsPerCycle(freq models.PaymentFrequency, numberOfPayments int) int {
	switch freq {
	case models.FrequencyMonthly:
		return 12
	case models.FrequencyQuarterly:
		return 4
	case models.FrequencySemiannual:
		return 2
	case models.FrequencyAnnual:
		return 1
	default:
		if numberOfPayments > 0 {
			return numberOfPayments
		}
		return 1
	}
}

// intervalMonths maps an installment count to a month interval. Custom counts
// that don't divide the year evenly are rounded down to the nearest whole
// month, never below one.
func (s RRuleSchedule) intervalMonths(freq models.PaymentFrequency, numberOfPayments int) int {
	per := s.InstallmentsPerCycle(freq, numberOfPayments)
	if per <= 0 || per > 12 {
		per = 12
	}
	interval := 12 / per
	if interval < 1 {
		interval = 1
	}
	return interval
}

func (s RRuleSchedule) NextDueDate(current time.Time, freq models.PaymentFrequency, numberOfPayments int, periodStart time.Time) time.Time {
	interval := s.intervalMonths(freq, numberOfPayments)

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:     rrule.MONTHLY,
		Interval: interval,
		Dtstart:  periodStart,
	})
	if err != nil {
		return current.AddDate(0, interval, 0)
	}

	next := rule.After(current, false)
	if next.IsZero() {
		return current.AddDate(0, interval, 0)
	}
	return next
}

func (s RRuleSchedule) InstallmentAmount(policyValue float64, freq models.PaymentFrequency, numberOfPayments int) float64 {
	per := s.InstallmentsPerCycle(freq, numberOfPayments)
	if per <= 0 {
		per = 1
	}
	return policyValue / float64(per)
}
