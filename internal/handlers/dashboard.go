package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"northsouth_agency/internal/models"
	"northsouth_agency/internal/services"
)

type DashboardHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewDashboardHandler(db *gorm.DB, cache *services.RedisCache) *DashboardHandler {
	return &DashboardHandler{db: db, cache: cache}
}

// DashboardSummary aggregates the headline numbers for the back-office landing page
type DashboardSummary struct {
	ActivePolicies      int64   `json:"active_policies"`
	CancelledPolicies   int64   `json:"cancelled_policies"`
	EndedPolicies       int64   `json:"ended_policies"`
	Advisors            int64   `json:"advisors"`
	Customers           int64   `json:"customers"`
	OutstandingAdvances float64 `json:"outstanding_advances"`
	SettledCommissions  float64 `json:"settled_commissions"`
}

// Summary returns the dashboard aggregates, cached
func (h *DashboardHandler) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	summary, err := services.GetOrSet(h.cache, ctx, services.CacheKeyDashboard(), listCacheTTL, func() (DashboardSummary, error) {
		var s DashboardSummary

		if err := h.db.Model(&models.Policy{}).Where("status_id = ?", models.PolicyStatusActive).Count(&s.ActivePolicies).Error; err != nil {
			return s, err
		}
		if err := h.db.Model(&models.Policy{}).Where("status_id = ?", models.PolicyStatusCancelled).Count(&s.CancelledPolicies).Error; err != nil {
			return s, err
		}
		if err := h.db.Model(&models.Policy{}).Where("status_id = ?", models.PolicyStatusEnded).Count(&s.EndedPolicies).Error; err != nil {
			return s, err
		}
		if err := h.db.Model(&models.Advisor{}).Count(&s.Advisors).Error; err != nil {
			return s, err
		}
		if err := h.db.Model(&models.Customer{}).Count(&s.Customers).Error; err != nil {
			return s, err
		}
		if err := h.db.Model(&models.CommissionPayment{}).
			Where("policy_id IS NULL AND status_advance_id = ?", models.AdvanceStatusOutstanding).
			Select("COALESCE(SUM(advance_amount), 0)").
			Scan(&s.OutstandingAdvances).Error; err != nil {
			return s, err
		}
		if err := h.db.Model(&models.CommissionPayment{}).
			Where("status_advance_id IS NULL").
			Select("COALESCE(SUM(advance_amount), 0)").
			Scan(&s.SettledCommissions).Error; err != nil {
			return s, err
		}
		return s, nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
