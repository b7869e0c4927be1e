package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"gorm.io/gorm"

	"northsouth_agency/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 0.0001
}

func TestDistributeGeneralAdvance(t *testing.T) {
	tests := []struct {
		name          string
		policies      []PolicyBalance
		pool          float64
		wantAmounts   []float64
		wantRemaining float64
	}{
		{
			name: "pool exhausted largest first",
			policies: []PolicyBalance{
				{PolicyID: 1, ReleasedCommission: 800, PaidCommission: 0},
				{PolicyID: 2, ReleasedCommission: 300, PaidCommission: 0},
			},
			pool:          1000,
			wantAmounts:   []float64{800, 200},
			wantRemaining: 0,
		},
		{
			name: "pool covers everything",
			policies: []PolicyBalance{
				{PolicyID: 1, ReleasedCommission: 400, PaidCommission: 100},
				{PolicyID: 2, ReleasedCommission: 200, PaidCommission: 0},
			},
			pool:          1000,
			wantAmounts:   []float64{300, 200},
			wantRemaining: 500,
		},
		{
			name: "largest pending served before smaller regardless of input order",
			policies: []PolicyBalance{
				{PolicyID: 1, ReleasedCommission: 100, PaidCommission: 0},
				{PolicyID: 2, ReleasedCommission: 900, PaidCommission: 0},
			},
			pool:          500,
			wantAmounts:   []float64{0, 500},
			wantRemaining: 0,
		},
		{
			name: "zero and negative pending get nothing",
			policies: []PolicyBalance{
				{PolicyID: 1, ReleasedCommission: 500, PaidCommission: 500},
				{PolicyID: 2, ReleasedCommission: 300, PaidCommission: 400},
				{PolicyID: 3, ReleasedCommission: 250, PaidCommission: 0},
			},
			pool:          1000,
			wantAmounts:   []float64{0, 0, 250},
			wantRemaining: 750,
		},
		{
			name:          "empty pool",
			policies:      []PolicyBalance{{PolicyID: 1, ReleasedCommission: 800, PaidCommission: 0}},
			pool:          0,
			wantAmounts:   []float64{0},
			wantRemaining: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allocations, remaining := DistributeGeneralAdvance(tt.policies, tt.pool)

			if len(allocations) != len(tt.policies) {
				t.Fatalf("expected %d allocations, got %d", len(tt.policies), len(allocations))
			}
			for i, alloc := range allocations {
				if alloc.PolicyID != tt.policies[i].PolicyID {
					t.Errorf("allocation %d: expected policy %d, got %d", i, tt.policies[i].PolicyID, alloc.PolicyID)
				}
				if !almostEqual(alloc.Amount, tt.wantAmounts[i]) {
					t.Errorf("allocation %d: expected %.2f, got %.2f", i, tt.wantAmounts[i], alloc.Amount)
				}
			}
			if !almostEqual(remaining, tt.wantRemaining) {
				t.Errorf("expected remaining %.2f, got %.2f", tt.wantRemaining, remaining)
			}

			// Conservation: allocated + remaining must equal min(pool, total positive pending)
			totalPending := 0.0
			for _, p := range tt.policies {
				if pending := p.Pending(); pending > 0 {
					totalPending += pending
				}
			}
			allocated := 0.0
			for i, alloc := range allocations {
				allocated += alloc.Amount
				if alloc.Amount > tt.policies[i].Pending()+0.0001 {
					t.Errorf("allocation %d exceeds its pending balance", i)
				}
			}
			if !almostEqual(allocated, math.Min(tt.pool, totalPending)) {
				t.Errorf("conservation violated: allocated %.2f, pool %.2f, total pending %.2f", allocated, tt.pool, totalPending)
			}
		})
	}
}

func seedAdvisorPolicy(t *testing.T, db *gorm.DB, policyNumber string, annualized bool, paymentsToAdvisor float64) (models.Advisor, models.Policy) {
	t.Helper()

	advisor := models.Advisor{FirstName: "Maria", LastName: "Suarez", Email: policyNumber + "@agency.test"}
	if err := db.Create(&advisor).Error; err != nil {
		t.Fatalf("failed to create advisor: %v", err)
	}

	policy := models.Policy{
		PolicyNumber:           policyNumber,
		AdvisorID:              advisor.ID,
		PolicyValue:            6000,
		StartDate:              time.Date(2022, time.January, 10, 0, 0, 0, 0, time.UTC),
		EndDate:                time.Date(2032, time.January, 10, 0, 0, 0, 0, time.UTC),
		PaymentFrequencyID:     models.FrequencyMonthly,
		StatusID:               models.PolicyStatusActive,
		PaymentsToAdvisor:      paymentsToAdvisor,
		IsCommissionAnnualized: annualized,
	}
	if err := db.Create(&policy).Error; err != nil {
		t.Fatalf("failed to create policy: %v", err)
	}
	return advisor, policy
}

func seedPaidInstallments(t *testing.T, db *gorm.DB, policyID uint, values ...float64) {
	t.Helper()
	for i, value := range values {
		payment := models.Payment{
			PolicyID:        policyID,
			NumberPayment:   i + 1,
			Value:           value,
			StatusPaymentID: models.PaymentStatusPaid,
			AppliedAt:       time.Date(2022, time.Month(i+1), 10, 0, 0, 0, 0, time.UTC),
		}
		if err := db.Create(&payment).Error; err != nil {
			t.Fatalf("failed to create payment: %v", err)
		}
	}
}

func seedGeneralAdvance(t *testing.T, db *gorm.DB, advisorID uint, amount float64) models.CommissionPayment {
	t.Helper()
	status := models.AdvanceStatusOutstanding
	row := models.CommissionPayment{
		AdvisorID:       advisorID,
		AdvanceAmount:   amount,
		StatusAdvanceID: &status,
		ReceiptNumber:   "ADV-TEST",
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("failed to create general advance: %v", err)
	}
	return row
}

func TestReleasedCommission(t *testing.T) {
	db := newTestDB(t)

	t.Run("non-annualized sums paid installments", func(t *testing.T) {
		_, policy := seedAdvisorPolicy(t, db, "POL-REL-1", false, 0)
		seedPaidInstallments(t, db, policy.ID, 500, 500)
		// An unpaid installment must not count
		pending := models.Payment{PolicyID: policy.ID, NumberPayment: 3, Value: 500, StatusPaymentID: models.PaymentStatusPending, AppliedAt: time.Now()}
		if err := db.Create(&pending).Error; err != nil {
			t.Fatalf("failed to create pending payment: %v", err)
		}

		released, err := ReleasedCommission(db, &policy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(released, 1000) {
			t.Errorf("expected released 1000, got %.2f", released)
		}
	})

	t.Run("annualized multiplies by elapsed periods", func(t *testing.T) {
		_, policy := seedAdvisorPolicy(t, db, "POL-REL-2", true, 1000)
		for n := 1; n <= 2; n++ {
			renewal := models.Renewal{PolicyID: policy.ID, RenewalNumber: n, AnniversaryAt: policy.Anniversary(2022 + n)}
			if err := db.Create(&renewal).Error; err != nil {
				t.Fatalf("failed to create renewal: %v", err)
			}
		}

		released, err := ReleasedCommission(db, &policy)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !almostEqual(released, 3000) {
			t.Errorf("expected released 3000, got %.2f", released)
		}
	})
}

func TestApplyAdvanceDistribution_WithinBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommissionService(db, nil)
	ctx := context.Background()

	advisor, policy := seedAdvisorPolicy(t, db, "POL-1", false, 0)
	seedPaidInstallments(t, db, policy.ID, 500, 500)

	result, err := svc.ApplyAdvanceDistribution(ctx, advisor.ID, []AdvanceRequest{
		{PolicyID: policy.ID, AdvanceToApply: 800},
	}, DistributionMeta{ReceiptNumber: "R-100", PaymentMethod: "transfer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RowsWritten != 1 {
		t.Errorf("expected 1 ledger row, got %d", result.RowsWritten)
	}

	var rows []models.CommissionPayment
	if err := db.Where("policy_id = ?", policy.ID).Find(&rows).Error; err != nil {
		t.Fatalf("failed to load ledger rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 ledger row, got %d", len(rows))
	}
	if !almostEqual(rows[0].AdvanceAmount, 800) {
		t.Errorf("expected amount 800, got %.2f", rows[0].AdvanceAmount)
	}
	if rows[0].StatusAdvanceID != nil {
		t.Errorf("settled commission row must have nil advance status")
	}
	if rows[0].ReceiptNumber != "R-100" {
		t.Errorf("expected receipt R-100, got %s", rows[0].ReceiptNumber)
	}
}

func TestApplyAdvanceDistribution_ExceedsBalance(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommissionService(db, nil)
	ctx := context.Background()

	advisor, policy := seedAdvisorPolicy(t, db, "POL-1", false, 0)
	seedPaidInstallments(t, db, policy.ID, 500, 500)

	_, err := svc.ApplyAdvanceDistribution(ctx, advisor.ID, []AdvanceRequest{
		{PolicyID: policy.ID, AdvanceToApply: 1200},
	}, DistributionMeta{})
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if !errors.Is(err, ErrBusinessRule) {
		t.Errorf("expected a business-rule error, got %v", err)
	}

	var balErr *ExceedsAvailableBalanceError
	if !errors.As(err, &balErr) {
		t.Fatalf("expected ExceedsAvailableBalanceError, got %T", err)
	}
	if balErr.PolicyNumber != "POL-1" {
		t.Errorf("error must name the policy, got %s", balErr.PolicyNumber)
	}
	if !almostEqual(balErr.Released, 1000) || !almostEqual(balErr.Paid, 0) {
		t.Errorf("expected released 1000 / paid 0, got %.2f / %.2f", balErr.Released, balErr.Paid)
	}

	// The whole batch must roll back: no ledger rows for the policy
	var count int64
	if err := db.Model(&models.CommissionPayment{}).Where("policy_id = ?", policy.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count ledger rows: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no ledger rows after rejection, got %d", count)
	}
}

func TestApplyAdvanceDistribution_PoolExhaustionLiquidates(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommissionService(db, nil)
	ctx := context.Background()

	advisor, policy1 := seedAdvisorPolicy(t, db, "POL-1", false, 0)
	seedPaidInstallments(t, db, policy1.ID, 500, 300)

	policy2 := models.Policy{
		PolicyNumber:       "POL-2",
		AdvisorID:          advisor.ID,
		PolicyValue:        3600,
		StartDate:          time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:            time.Date(2033, time.March, 1, 0, 0, 0, 0, time.UTC),
		PaymentFrequencyID: models.FrequencyMonthly,
		StatusID:           models.PolicyStatusActive,
	}
	if err := db.Create(&policy2).Error; err != nil {
		t.Fatalf("failed to create second policy: %v", err)
	}
	payment := models.Payment{PolicyID: policy2.ID, NumberPayment: 1, Value: 300, StatusPaymentID: models.PaymentStatusPaid, AppliedAt: time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)}
	if err := db.Create(&payment).Error; err != nil {
		t.Fatalf("failed to create payment: %v", err)
	}

	advance := seedGeneralAdvance(t, db, advisor.ID, 1000)

	result, err := svc.ApplyAdvanceDistribution(ctx, advisor.ID, []AdvanceRequest{
		{PolicyID: policy1.ID},
		{PolicyID: policy2.ID},
	}, DistributionMeta{ReceiptNumber: "R-200"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !almostEqual(result.TotalGeneralAdvance, 1000) {
		t.Errorf("expected pool 1000, got %.2f", result.TotalGeneralAdvance)
	}
	if !almostEqual(result.Allocations[0].Amount, 800) || !almostEqual(result.Allocations[1].Amount, 200) {
		t.Errorf("expected allocations 800/200, got %.2f/%.2f", result.Allocations[0].Amount, result.Allocations[1].Amount)
	}
	if !almostEqual(result.RemainingPool, 0) {
		t.Errorf("expected pool exhausted, got %.2f remaining", result.RemainingPool)
	}
	if !result.AdvancesLiquidated {
		t.Error("expected the consumed advance to be liquidated")
	}

	var reloaded models.CommissionPayment
	if err := db.First(&reloaded, advance.ID).Error; err != nil {
		t.Fatalf("failed to reload advance: %v", err)
	}
	if reloaded.StatusAdvanceID == nil || *reloaded.StatusAdvanceID != models.AdvanceStatusLiquidated {
		t.Errorf("expected advance status %d, got %v", models.AdvanceStatusLiquidated, reloaded.StatusAdvanceID)
	}
}

func TestApplyAdvanceDistribution_PartialPoolKeepsAdvanceOutstanding(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommissionService(db, nil)
	ctx := context.Background()

	advisor, policy := seedAdvisorPolicy(t, db, "POL-1", false, 0)
	seedPaidInstallments(t, db, policy.ID, 300)

	advance := seedGeneralAdvance(t, db, advisor.ID, 1000)

	result, err := svc.ApplyAdvanceDistribution(ctx, advisor.ID, []AdvanceRequest{
		{PolicyID: policy.ID},
	}, DistributionMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !almostEqual(result.RemainingPool, 700) {
		t.Errorf("expected 700 remaining, got %.2f", result.RemainingPool)
	}
	if result.AdvancesLiquidated {
		t.Error("a partially consumed pool must not liquidate via the batch path")
	}

	var reloaded models.CommissionPayment
	if err := db.First(&reloaded, advance.ID).Error; err != nil {
		t.Fatalf("failed to reload advance: %v", err)
	}
	if reloaded.StatusAdvanceID == nil || *reloaded.StatusAdvanceID != models.AdvanceStatusOutstanding {
		t.Errorf("expected advance still outstanding, got %v", reloaded.StatusAdvanceID)
	}
}

func TestApplyAdvanceDistribution_DoubleBooksAllocationAndManualAmount(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommissionService(db, nil)
	ctx := context.Background()

	advisor, policy := seedAdvisorPolicy(t, db, "POL-1", false, 0)
	seedPaidInstallments(t, db, policy.ID, 500, 500)
	seedGeneralAdvance(t, db, advisor.ID, 400)

	result, err := svc.ApplyAdvanceDistribution(ctx, advisor.ID, []AdvanceRequest{
		{PolicyID: policy.ID, AdvanceToApply: 600},
	}, DistributionMeta{ReceiptNumber: "R-300"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Allocation row of 400 and a manual row for the FULL 600 - the manual
	// amount is deliberately not reduced by the general-advance portion.
	if result.RowsWritten != 2 {
		t.Errorf("expected 2 ledger rows, got %d", result.RowsWritten)
	}

	var rows []models.CommissionPayment
	if err := db.Where("policy_id = ?", policy.ID).Order("advance_amount asc").Find(&rows).Error; err != nil {
		t.Fatalf("failed to load ledger rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", len(rows))
	}
	if !almostEqual(rows[0].AdvanceAmount, 400) || !almostEqual(rows[1].AdvanceAmount, 600) {
		t.Errorf("expected rows 400 and 600, got %.2f and %.2f", rows[0].AdvanceAmount, rows[1].AdvanceAmount)
	}
}

func TestLiquidateAdvancesIfNeeded(t *testing.T) {
	ctx := context.Background()

	t.Run("liquidates once settled covers outstanding", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewCommissionService(db, nil)

		advisor, policy := seedAdvisorPolicy(t, db, "POL-1", false, 0)
		advance := seedGeneralAdvance(t, db, advisor.ID, 500)

		policyID := policy.ID
		settledRow := models.CommissionPayment{AdvisorID: advisor.ID, PolicyID: &policyID, AdvanceAmount: 500}
		if err := db.Create(&settledRow).Error; err != nil {
			t.Fatalf("failed to create settled row: %v", err)
		}

		liquidated, err := svc.LiquidateAdvancesIfNeeded(ctx, advisor.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !liquidated {
			t.Fatal("expected liquidation")
		}

		var reloaded models.CommissionPayment
		if err := db.First(&reloaded, advance.ID).Error; err != nil {
			t.Fatalf("failed to reload advance: %v", err)
		}
		if reloaded.StatusAdvanceID == nil || *reloaded.StatusAdvanceID != models.AdvanceStatusLiquidated {
			t.Errorf("expected liquidated status, got %v", reloaded.StatusAdvanceID)
		}
	})

	t.Run("keeps advances outstanding while settled is short", func(t *testing.T) {
		db := newTestDB(t)
		svc := NewCommissionService(db, nil)

		advisor, policy := seedAdvisorPolicy(t, db, "POL-1", false, 0)
		seedGeneralAdvance(t, db, advisor.ID, 500)

		policyID := policy.ID
		settledRow := models.CommissionPayment{AdvisorID: advisor.ID, PolicyID: &policyID, AdvanceAmount: 200}
		if err := db.Create(&settledRow).Error; err != nil {
			t.Fatalf("failed to create settled row: %v", err)
		}

		liquidated, err := svc.LiquidateAdvancesIfNeeded(ctx, advisor.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if liquidated {
			t.Error("must not liquidate while settled commissions are below outstanding advances")
		}
	})
}

func TestRegisterGeneralAdvance(t *testing.T) {
	db := newTestDB(t)
	svc := NewCommissionService(db, nil)
	ctx := context.Background()

	advisor, _ := seedAdvisorPolicy(t, db, "POL-1", false, 0)

	row, err := svc.RegisterGeneralAdvance(ctx, advisor.ID, 750, DistributionMeta{PaymentMethod: "cash"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !row.IsGeneralAdvance() {
		t.Error("expected an outstanding general advance row")
	}
	if row.ReceiptNumber == "" {
		t.Error("expected a generated receipt number")
	}

	if _, err := svc.RegisterGeneralAdvance(ctx, advisor.ID, 0, DistributionMeta{}); !errors.Is(err, ErrBusinessRule) {
		t.Errorf("expected business-rule error for zero amount, got %v", err)
	}
}
