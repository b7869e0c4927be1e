package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"northsouth_agency/internal/models"
	"northsouth_agency/internal/services"
)

const listCacheTTL = 5 * time.Minute

type AdvisorHandler struct {
	db    *gorm.DB
	cache *services.RedisCache
}

func NewAdvisorHandler(db *gorm.DB, cache *services.RedisCache) *AdvisorHandler {
	return &AdvisorHandler{db: db, cache: cache}
}

// CreateAdvisor registers a new advisor
func (h *AdvisorHandler) CreateAdvisor(c echo.Context) error {
	var advisor models.Advisor
	if err := c.Bind(&advisor); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if advisor.FirstName == "" || advisor.LastName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "first and last name are required")
	}

	if err := h.db.Create(&advisor).Error; err != nil {
		return err
	}

	if h.cache != nil {
		_ = h.cache.Delete(c.Request().Context(), services.CacheKeyAllAdvisors())
	}
	return c.JSON(http.StatusCreated, advisor)
}

// ListAdvisors returns all advisors, cached
func (h *AdvisorHandler) ListAdvisors(c echo.Context) error {
	ctx := c.Request().Context()
	advisors, err := services.GetOrSet(h.cache, ctx, services.CacheKeyAllAdvisors(), listCacheTTL, func() ([]models.Advisor, error) {
		var list []models.Advisor
		err := h.db.Order("last_name asc, first_name asc").Find(&list).Error
		return list, err
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, advisors)
}

// GetAdvisor returns one advisor with their policies
func (h *AdvisorHandler) GetAdvisor(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid advisor id")
	}

	var advisor models.Advisor
	if err := h.db.Preload("Policies").First(&advisor, uint(id)).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, advisor)
}
