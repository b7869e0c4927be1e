package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"northsouth_agency/internal/models"
)

const commissionCacheTTL = 5 * time.Minute

// CommissionService is the advisor commission ledger: it registers general
// advances, distributes pooled advance credit across policies with outstanding
// commission balance, and liquidates advances once fully consumed.
//
// Every mutating operation runs inside a single database transaction with the
// advisor's outstanding advance rows locked, so two concurrent distributions
// cannot spend the same advance pool twice.
type CommissionService struct {
	db    *gorm.DB
	cache *RedisCache
}

func NewCommissionService(db *gorm.DB, cache *RedisCache) *CommissionService {
	return &CommissionService{db: db, cache: cache}
}

// PolicyBalance is one policy's commission position.
type PolicyBalance struct {
	PolicyID           uint    `json:"policy_id"`
	PolicyNumber       string  `json:"policy_number"`
	ReleasedCommission float64 `json:"released_commission"`
	PaidCommission     float64 `json:"paid_commission"`
}

// Pending is the commission balance still owed on the policy.
func (b PolicyBalance) Pending() float64 {
	return b.ReleasedCommission - b.PaidCommission
}

// Allocation is the slice of the general-advance pool assigned to one policy.
type Allocation struct {
	PolicyID uint    `json:"policy_id"`
	Amount   float64 `json:"amount"`
}

// AdvanceRequest asks for a manual advance amount to be applied to a policy.
type AdvanceRequest struct {
	PolicyID       uint    `json:"policy_id"`
	AdvanceToApply float64 `json:"advance_to_apply"`
}

// DistributionMeta carries the receipt metadata shared by every ledger row a
// distribution writes.
type DistributionMeta struct {
	ReceiptNumber string `json:"receipt_number"`
	PaymentMethod string `json:"payment_method"`
	Observations  string `json:"observations"`
}

// DistributionResult reports what a distribution did.
type DistributionResult struct {
	ReceiptNumber       string       `json:"receipt_number"`
	TotalGeneralAdvance float64      `json:"total_general_advance"`
	Allocations         []Allocation `json:"allocations"`
	RemainingPool       float64      `json:"remaining_pool"`
	AdvancesLiquidated  bool         `json:"advances_liquidated"`
	RowsWritten         int          `json:"rows_written"`
}

// DistributeGeneralAdvance allocates a pooled advance amount across policies
// by largest pending balance first: walk the policies in descending pending
// order, give each min(pending, remaining pool), stop when the pool runs dry.
// Ties keep input order (stable sort); policies with zero or negative pending
// get nothing. Returns one allocation per input policy, in input order, plus
// the unallocated remainder.
func DistributeGeneralAdvance(policies []PolicyBalance, pool float64) ([]Allocation, float64) {
	ordered := make([]PolicyBalance, len(policies))
	copy(ordered, policies)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Pending() > ordered[j].Pending()
	})

	amounts := make(map[uint]float64, len(ordered))
	remaining := pool
	for _, p := range ordered {
		pending := p.Pending()
		if pending <= 0 || remaining <= 0 {
			amounts[p.PolicyID] = 0
			continue
		}
		granted := pending
		if remaining < granted {
			granted = remaining
		}
		amounts[p.PolicyID] = granted
		remaining -= granted
	}

	allocations := make([]Allocation, len(policies))
	for i, p := range policies {
		allocations[i] = Allocation{PolicyID: p.PolicyID, Amount: amounts[p.PolicyID]}
	}
	return allocations, remaining
}

// ReleasedCommission computes how much commission a policy has earned so far.
// Annualized policies release a flat amount per elapsed policy year; the rest
// release in step with actually collected installments.
func ReleasedCommission(db *gorm.DB, policy *models.Policy) (float64, error) {
	if policy.IsCommissionAnnualized {
		var renewals int64
		if err := db.Model(&models.Renewal{}).Where("policy_id = ?", policy.ID).Count(&renewals).Error; err != nil {
			return 0, err
		}
		return policy.PaymentsToAdvisor * float64(renewals+1), nil
	}

	var total float64
	err := db.Model(&models.Payment{}).
		Where("policy_id = ? AND status_payment_id = ?", policy.ID, models.PaymentStatusPaid).
		Select("COALESCE(SUM(value), 0)").
		Scan(&total).Error
	return total, err
}

// PaidCommission sums the settled (non-advance) ledger rows for a policy.
func PaidCommission(db *gorm.DB, policyID uint) (float64, error) {
	var total float64
	err := db.Model(&models.CommissionPayment{}).
		Where("policy_id = ? AND status_advance_id IS NULL", policyID).
		Select("COALESCE(SUM(advance_amount), 0)").
		Scan(&total).Error
	return total, err
}

// ApplyAdvanceDistribution distributes the advisor's outstanding general
// advances across the requested policies and records the manual amounts.
//
// For each request, the available balance is released minus paid commission;
// the general-advance allocation does NOT shrink that cap. When a policy both
// receives a pool allocation and carries a manual amount, two ledger rows are
// written and the manual row holds the FULL requested amount, not reduced by
// the allocation. That double-booking mirrors how receipts are issued today
// and is a known over-counting risk for PaidCommission on subsequent runs;
// do not change it without product sign-off.
func (s *CommissionService) ApplyAdvanceDistribution(ctx context.Context, advisorID uint, requests []AdvanceRequest, meta DistributionMeta) (*DistributionResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: distribution requires at least one policy", ErrBusinessRule)
	}
	for _, req := range requests {
		if req.AdvanceToApply < 0 {
			return nil, fmt.Errorf("%w: advance amounts cannot be negative", ErrBusinessRule)
		}
	}

	receipt := meta.ReceiptNumber
	if receipt == "" {
		receipt = uuid.New().String()
	}

	result := &DistributionResult{ReceiptNumber: receipt}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the advisor's unallocated advances for the whole batch.
		var advances []models.CommissionPayment
		if err := lockForUpdate(tx).
			Where("advisor_id = ? AND policy_id IS NULL AND status_advance_id = ?", advisorID, models.AdvanceStatusOutstanding).
			Order("created_at asc").
			Find(&advances).Error; err != nil {
			return err
		}

		pool := 0.0
		for _, adv := range advances {
			pool += adv.AdvanceAmount
		}
		result.TotalGeneralAdvance = pool

		balances := make([]PolicyBalance, 0, len(requests))
		for _, req := range requests {
			var policy models.Policy
			if err := tx.First(&policy, req.PolicyID).Error; err != nil {
				return err
			}
			if policy.AdvisorID != advisorID {
				return fmt.Errorf("%w: policy %s does not belong to advisor %d", ErrBusinessRule, policy.PolicyNumber, advisorID)
			}

			released, err := ReleasedCommission(tx, &policy)
			if err != nil {
				return err
			}
			paid, err := PaidCommission(tx, policy.ID)
			if err != nil {
				return err
			}
			balances = append(balances, PolicyBalance{
				PolicyID:           policy.ID,
				PolicyNumber:       policy.PolicyNumber,
				ReleasedCommission: released,
				PaidCommission:     paid,
			})
		}

		allocations, remaining := DistributeGeneralAdvance(balances, pool)
		result.Allocations = allocations
		result.RemainingPool = remaining

		for i, req := range requests {
			bal := balances[i]
			if req.AdvanceToApply > bal.Pending() {
				return &ExceedsAvailableBalanceError{
					PolicyNumber: bal.PolicyNumber,
					Requested:    req.AdvanceToApply,
					Released:     bal.ReleasedCommission,
					Paid:         bal.PaidCommission,
				}
			}

			policyID := req.PolicyID
			if allocations[i].Amount > 0 {
				row := models.CommissionPayment{
					AdvisorID:     advisorID,
					PolicyID:      &policyID,
					AdvanceAmount: allocations[i].Amount,
					ReceiptNumber: receipt,
					PaymentMethod: meta.PaymentMethod,
					Observations:  meta.Observations,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				result.RowsWritten++
			}

			if req.AdvanceToApply > 0 {
				row := models.CommissionPayment{
					AdvisorID:     advisorID,
					PolicyID:      &policyID,
					AdvanceAmount: req.AdvanceToApply,
					ReceiptNumber: receipt,
					PaymentMethod: meta.PaymentMethod,
					Observations:  meta.Observations,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				result.RowsWritten++
			}
		}

		// Pool fully consumed: the locked advance rows are spent for good.
		if remaining == 0 && pool > 0 {
			ids := make([]uint, len(advances))
			for i, adv := range advances {
				ids[i] = adv.ID
			}
			if err := tx.Model(&models.CommissionPayment{}).
				Where("id IN ?", ids).
				Update("status_advance_id", models.AdvanceStatusLiquidated).Error; err != nil {
				return err
			}
			result.AdvancesLiquidated = true
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Advisor-wide safety net, independent of the batch-level liquidation.
	liquidated, err := s.LiquidateAdvancesIfNeeded(ctx, advisorID)
	if err != nil {
		log.Printf("advisor-wide liquidation check failed for advisor %d: %v", advisorID, err)
	} else if liquidated {
		result.AdvancesLiquidated = true
	}

	InvalidateCommissionCaches(ctx, s.cache, advisorID)
	return result, nil
}

// LiquidateAdvancesIfNeeded compares the advisor's total outstanding general
// advances against their total settled commissions and liquidates every
// outstanding advance once settled commissions cover them. Coarser than the
// batch-level liquidation; runs after every distribution as a safety net.
func (s *CommissionService) LiquidateAdvancesIfNeeded(ctx context.Context, advisorID uint) (bool, error) {
	liquidated := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var advances []models.CommissionPayment
		if err := lockForUpdate(tx).
			Where("advisor_id = ? AND policy_id IS NULL AND status_advance_id = ?", advisorID, models.AdvanceStatusOutstanding).
			Find(&advances).Error; err != nil {
			return err
		}
		if len(advances) == 0 {
			return nil
		}

		outstanding := 0.0
		for _, adv := range advances {
			outstanding += adv.AdvanceAmount
		}

		var settled float64
		if err := tx.Model(&models.CommissionPayment{}).
			Where("advisor_id = ? AND status_advance_id IS NULL", advisorID).
			Select("COALESCE(SUM(advance_amount), 0)").
			Scan(&settled).Error; err != nil {
			return err
		}

		if settled < outstanding {
			return nil
		}

		ids := make([]uint, len(advances))
		for i, adv := range advances {
			ids[i] = adv.ID
		}
		if err := tx.Model(&models.CommissionPayment{}).
			Where("id IN ?", ids).
			Update("status_advance_id", models.AdvanceStatusLiquidated).Error; err != nil {
			return err
		}
		liquidated = true
		return nil
	})
	return liquidated, err
}

// RegisterGeneralAdvance hands the advisor cash not yet tied to any policy.
func (s *CommissionService) RegisterGeneralAdvance(ctx context.Context, advisorID uint, amount float64, meta DistributionMeta) (*models.CommissionPayment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: advance amount must be positive", ErrBusinessRule)
	}

	receipt := meta.ReceiptNumber
	if receipt == "" {
		receipt = uuid.New().String()
	}

	status := models.AdvanceStatusOutstanding
	row := models.CommissionPayment{
		AdvisorID:       advisorID,
		AdvanceAmount:   amount,
		StatusAdvanceID: &status,
		ReceiptNumber:   receipt,
		PaymentMethod:   meta.PaymentMethod,
		Observations:    meta.Observations,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}

	InvalidateCommissionCaches(ctx, s.cache, advisorID)
	return &row, nil
}

// RegisterRefund records a commission clawback. Refunds are never netted
// against the ledger automatically; reporting reads them separately.
func (s *CommissionService) RegisterRefund(ctx context.Context, refund *models.CommissionRefund) error {
	if refund.AmountRefunds <= 0 {
		return fmt.Errorf("%w: refund amount must be positive", ErrBusinessRule)
	}
	if err := s.db.WithContext(ctx).Create(refund).Error; err != nil {
		return err
	}
	InvalidateCommissionCaches(ctx, s.cache, refund.AdvisorID)
	return nil
}

// ListCommissions returns the global commission ledger, newest first, cached.
func (s *CommissionService) ListCommissions(ctx context.Context) ([]models.CommissionPayment, error) {
	return GetOrSet(s.cache, ctx, CacheKeyAllCommissions(), commissionCacheTTL, func() ([]models.CommissionPayment, error) {
		var rows []models.CommissionPayment
		err := s.db.WithContext(ctx).Order("created_at desc").Find(&rows).Error
		return rows, err
	})
}

// ListAdvisorCommissions returns one advisor's ledger, newest first, cached.
func (s *CommissionService) ListAdvisorCommissions(ctx context.Context, advisorID uint) ([]models.CommissionPayment, error) {
	return GetOrSet(s.cache, ctx, CacheKeyAdvisorCommissions(advisorID), commissionCacheTTL, func() ([]models.CommissionPayment, error) {
		var rows []models.CommissionPayment
		err := s.db.WithContext(ctx).Where("advisor_id = ?", advisorID).Order("created_at desc").Find(&rows).Error
		return rows, err
	})
}

// AdvisorSummary computes the released/paid/pending commission position for
// every policy of the advisor. Not cached: it feeds the distribution form and
// must reflect the latest ledger writes.
func (s *CommissionService) AdvisorSummary(ctx context.Context, advisorID uint) ([]PolicyBalance, error) {
	var policies []models.Policy
	if err := s.db.WithContext(ctx).Where("advisor_id = ?", advisorID).Order("id asc").Find(&policies).Error; err != nil {
		return nil, err
	}

	balances := make([]PolicyBalance, 0, len(policies))
	for i := range policies {
		released, err := ReleasedCommission(s.db.WithContext(ctx), &policies[i])
		if err != nil {
			return nil, err
		}
		paid, err := PaidCommission(s.db.WithContext(ctx), policies[i].ID)
		if err != nil {
			return nil, err
		}
		balances = append(balances, PolicyBalance{
			PolicyID:           policies[i].ID,
			PolicyNumber:       policies[i].PolicyNumber,
			ReleasedCommission: released,
			PaidCommission:     paid,
		})
	}
	return balances, nil
}
