package services

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"northsouth_agency/internal/models"
)

// ReconcileService backfills a policy's timeline: for every policy year that
// has elapsed it makes sure the renewal record, the yearly rate period, and
// the installment rows exist, without duplicating anything that is already
// there. Policies cancelled or ended are never touched.
//
// Each policy is reconciled inside one transaction with the policy row locked,
// so concurrent runs for the same policy cannot double-create rows.
type ReconcileService struct {
	db       *gorm.DB
	cache    *RedisCache
	schedule PaymentSchedule
}

func NewReconcileService(db *gorm.DB, cache *RedisCache, schedule PaymentSchedule) *ReconcileService {
	return &ReconcileService{db: db, cache: cache, schedule: schedule}
}

// ReconcileResult reports what a reconciliation run created.
type ReconcileResult struct {
	PolicyID        uint `json:"policy_id"`
	Skipped         bool `json:"skipped"`
	RenewalsCreated int  `json:"renewals_created"`
	PeriodsCreated  int  `json:"periods_created"`
	PaymentsCreated int  `json:"payments_created"`
}

// ReconcilePolicy brings one policy's renewals, periods and payments up to
// date as of today (clipped to the policy's end date).
func (s *ReconcileService) ReconcilePolicy(ctx context.Context, policyID uint, today time.Time) (*ReconcileResult, error) {
	result := &ReconcileResult{PolicyID: policyID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var policy models.Policy
		if err := lockForUpdate(tx).First(&policy, policyID).Error; err != nil {
			return err
		}

		if !policy.IsReconcilable() {
			result.Skipped = true
			return nil
		}

		startYear := policy.StartDate.Year()
		endYear := policy.EndDate.Year()

		// The in-progress year only counts once its anniversary has passed;
		// renewals and periods are never created early.
		effectiveYear := today.Year()
		if today.Before(policy.Anniversary(today.Year())) {
			effectiveYear--
		}
		if effectiveYear > endYear {
			effectiveYear = endYear
		}
		if effectiveYear < startYear {
			effectiveYear = startYear
		}

		yearsElapsed := effectiveYear - startYear

		if yearsElapsed > 0 {
			if err := s.ensureRenewals(tx, &policy, yearsElapsed, result); err != nil {
				return err
			}
		}
		if err := s.ensurePeriods(tx, &policy, startYear, effectiveYear, result); err != nil {
			return err
		}
		return s.ensurePayments(tx, &policy, today, result)
	})
	if err != nil {
		return nil, err
	}

	if !result.Skipped {
		InvalidatePolicyCaches(ctx, s.cache, policyID)
	}
	return result, nil
}

// ReconcileAllPolicies runs ReconcilePolicy over every policy that is neither
// cancelled nor ended. Per-policy failures are logged and skipped so one bad
// policy cannot stall the rest of the run.
func (s *ReconcileService) ReconcileAllPolicies(ctx context.Context, today time.Time) ([]ReconcileResult, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Policy{}).
		Where("status_id NOT IN ?", []models.PolicyStatus{models.PolicyStatusCancelled, models.PolicyStatusEnded}).
		Order("id asc").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	results := make([]ReconcileResult, 0, len(ids))
	for _, id := range ids {
		res, err := s.ReconcilePolicy(ctx, id, today)
		if err != nil {
			log.Printf("reconciliation failed for policy %d: %v", id, err)
			continue
		}
		results = append(results, *res)
	}
	return results, nil
}

// ensureRenewals creates the missing renewal rows, numbering sequentially
// after whatever already exists and dating each at its anniversary.
func (s *ReconcileService) ensureRenewals(tx *gorm.DB, policy *models.Policy, yearsElapsed int, result *ReconcileResult) error {
	var existing int64
	if err := tx.Model(&models.Renewal{}).Where("policy_id = ?", policy.ID).Count(&existing).Error; err != nil {
		return err
	}

	startYear := policy.StartDate.Year()
	for n := int(existing) + 1; n <= yearsElapsed; n++ {
		renewal := models.Renewal{
			PolicyID:      policy.ID,
			RenewalNumber: n,
			AnniversaryAt: policy.Anniversary(startYear + n),
		}
		if err := tx.Create(&renewal).Error; err != nil {
			return err
		}
		result.RenewalsCreated++
	}
	return nil
}

// ensurePeriods creates a rate snapshot for every policy year up to the
// effective year. Periods created late inherit the policy's current rates,
// not historical ones.
func (s *ReconcileService) ensurePeriods(tx *gorm.DB, policy *models.Policy, startYear, effectiveYear int, result *ReconcileResult) error {
	var existingYears []int
	if err := tx.Model(&models.PolicyPeriodData{}).
		Where("policy_id = ?", policy.ID).
		Pluck("year", &existingYears).Error; err != nil {
		return err
	}
	have := make(map[int]bool, len(existingYears))
	for _, y := range existingYears {
		have[y] = true
	}

	for year := startYear; year <= effectiveYear; year++ {
		if have[year] {
			continue
		}
		period := models.PolicyPeriodData{
			PolicyID:          policy.ID,
			Year:              year,
			PolicyValue:       policy.PolicyValue,
			AgencyPercentage:  policy.AgencyPercentage,
			AdvisorPercentage: policy.AdvisorPercentage,
			PolicyFee:         policy.PolicyFee,
		}
		if err := tx.Create(&period).Error; err != nil {
			return err
		}
		result.PeriodsCreated++
	}
	return nil
}

// ensurePayments fills each period's installment window up to min(today,
// endDate). The payment-number counter is global across periods and
// initialized once, so numbers stay strictly increasing with no resets; the
// pending value uses that same global counter and is floored at zero.
func (s *ReconcileService) ensurePayments(tx *gorm.DB, policy *models.Policy, today time.Time, result *ReconcileResult) error {
	var periods []models.PolicyPeriodData
	if err := tx.Where("policy_id = ?", policy.ID).Order("year asc").Find(&periods).Error; err != nil {
		return err
	}

	limit := today
	if policy.EndDate.Before(limit) {
		limit = policy.EndDate
	}

	var counter int
	if err := tx.Model(&models.Payment{}).
		Where("policy_id = ?", policy.ID).
		Select("COALESCE(MAX(number_payment), 0)").
		Scan(&counter).Error; err != nil {
		return err
	}

	freq := policy.PaymentFrequencyID
	count := policy.NumberOfPayments
	perCycle := s.schedule.InstallmentsPerCycle(freq, count)

	for _, period := range periods {
		periodStart := policy.Anniversary(period.Year)
		windowEnd := periodStart.AddDate(1, 0, 0)

		var existing []models.Payment
		if err := tx.Where("policy_id = ? AND applied_at >= ? AND applied_at < ?", policy.ID, periodStart, windowEnd).
			Order("applied_at asc").
			Find(&existing).Error; err != nil {
			return err
		}

		made := len(existing)
		value := s.schedule.InstallmentAmount(period.PolicyValue, freq, count)

		next := periodStart
		if made > 0 {
			next = s.schedule.NextDueDate(existing[made-1].AppliedAt, freq, count, periodStart)
		}

		for made < perCycle && next.Before(windowEnd) && !next.After(limit) {
			counter++
			made++

			pending := period.PolicyValue - value*float64(counter)
			if pending < 0 {
				pending = 0
			}

			payment := models.Payment{
				PolicyID:        policy.ID,
				NumberPayment:   counter,
				Value:           value,
				PendingValue:    pending,
				StatusPaymentID: models.PaymentStatusPending,
				AppliedAt:       next,
			}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			result.PaymentsCreated++

			next = s.schedule.NextDueDate(next, freq, count, periodStart)
		}
	}
	return nil
}
