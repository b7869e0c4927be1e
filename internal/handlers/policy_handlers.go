package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"northsouth_agency/internal/models"
	"northsouth_agency/internal/services"
	"northsouth_agency/internal/tasks"
)

type PolicyHandler struct {
	db        *gorm.DB
	cache     *services.RedisCache
	reconcile *services.ReconcileService
}

func NewPolicyHandler(db *gorm.DB, cache *services.RedisCache, reconcile *services.ReconcileService) *PolicyHandler {
	return &PolicyHandler{db: db, cache: cache, reconcile: reconcile}
}

// CreatePolicyRequest is the payload for registering a policy
type CreatePolicyRequest struct {
	PolicyNumber           string    `json:"policy_number"`
	CustomerID             uint      `json:"customer_id"`
	AdvisorID              uint      `json:"advisor_id"`
	CoverageAmount         float64   `json:"coverage_amount"`
	PolicyValue            float64   `json:"policy_value"`
	StartDate              time.Time `json:"start_date"`
	EndDate                time.Time `json:"end_date"`
	NumberOfPayments       int       `json:"number_of_payments"`
	PaymentFrequencyID     uint      `json:"payment_frequency_id"`
	PaymentsToAdvisor      float64   `json:"payments_to_advisor"`
	IsCommissionAnnualized bool      `json:"is_commission_annualized"`
	AgencyPercentage       float64   `json:"agency_percentage"`
	AdvisorPercentage      float64   `json:"advisor_percentage"`
	PolicyFee              float64   `json:"policy_fee"`
}

// CreatePolicy registers a new policy. The initial status is derived from the
// end date: already-expired policies are created as ended.
func (h *PolicyHandler) CreatePolicy(c echo.Context) error {
	var req CreatePolicyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PolicyNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "policy number is required")
	}
	if req.EndDate.Before(req.StartDate) {
		return echo.NewHTTPError(http.StatusBadRequest, "end date cannot be before start date")
	}

	status := models.PolicyStatusActive
	if req.EndDate.Before(time.Now()) {
		status = models.PolicyStatusEnded
	}

	policy := models.Policy{
		PolicyNumber:           req.PolicyNumber,
		CustomerID:             req.CustomerID,
		AdvisorID:              req.AdvisorID,
		CoverageAmount:         req.CoverageAmount,
		PolicyValue:            req.PolicyValue,
		StartDate:              req.StartDate,
		EndDate:                req.EndDate,
		NumberOfPayments:       req.NumberOfPayments,
		PaymentFrequencyID:     models.PaymentFrequency(req.PaymentFrequencyID),
		StatusID:               status,
		PaymentsToAdvisor:      req.PaymentsToAdvisor,
		IsCommissionAnnualized: req.IsCommissionAnnualized,
		AgencyPercentage:       req.AgencyPercentage,
		AdvisorPercentage:      req.AdvisorPercentage,
		PolicyFee:              req.PolicyFee,
	}
	if err := h.db.Create(&policy).Error; err != nil {
		return err
	}

	// Hand the initial backfill to the worker so creating a years-old policy
	// doesn't stall the request. Failing to enqueue is not fatal: the
	// recurring all-policies run will pick the policy up on its next pass.
	if task, err := tasks.ReconcilePolicyTask.CreateTask(policy.ID, time.Now()); err != nil {
		log.Printf("failed to build reconcile task for policy %d: %v", policy.ID, err)
	} else if err := h.db.Create(task).Error; err != nil {
		log.Printf("failed to enqueue reconcile task for policy %d: %v", policy.ID, err)
	}

	services.InvalidatePolicyCaches(c.Request().Context(), h.cache, policy.ID)
	return c.JSON(http.StatusCreated, policy)
}

// ListPolicies returns all policies with customer and advisor preloaded
func (h *PolicyHandler) ListPolicies(c echo.Context) error {
	var policies []models.Policy
	if err := h.db.Preload("Customer").Preload("Advisor").Order("id asc").Find(&policies).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, policies)
}

// GetPolicy returns one policy with its full schedule, cached
func (h *PolicyHandler) GetPolicy(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid policy id")
	}

	ctx := c.Request().Context()
	policy, err := services.GetOrSet(h.cache, ctx, services.CacheKeyPolicy(uint(id)), listCacheTTL, func() (models.Policy, error) {
		var p models.Policy
		err := h.db.
			Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("number_payment asc") }).
			Preload("Renewals", func(db *gorm.DB) *gorm.DB { return db.Order("renewal_number asc") }).
			Preload("Periods", func(db *gorm.DB) *gorm.DB { return db.Order("year asc") }).
			Preload("Customer").
			Preload("Advisor").
			First(&p, uint(id)).Error
		return p, err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, policy)
}

// ReconcilePolicy backfills renewals, periods and payments for one policy
func (h *PolicyHandler) ReconcilePolicy(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid policy id")
	}

	result, err := h.reconcile.ReconcilePolicy(c.Request().Context(), uint(id), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// ReconcileAllPolicies backfills every active policy
func (h *PolicyHandler) ReconcileAllPolicies(c echo.Context) error {
	results, err := h.reconcile.ReconcileAllPolicies(c.Request().Context(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"policies_checked": len(results),
		"results":          results,
	})
}
