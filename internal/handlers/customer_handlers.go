package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"northsouth_agency/internal/models"
)

type CustomerHandler struct {
	db *gorm.DB
}

func NewCustomerHandler(db *gorm.DB) *CustomerHandler {
	return &CustomerHandler{db: db}
}

// CreateCustomer registers a new policy holder
func (h *CustomerHandler) CreateCustomer(c echo.Context) error {
	var customer models.Customer
	if err := c.Bind(&customer); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if customer.DocumentNumber == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document number is required")
	}

	if err := h.db.Create(&customer).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, customer)
}

// ListCustomers returns all customers
func (h *CustomerHandler) ListCustomers(c echo.Context) error {
	var customers []models.Customer
	if err := h.db.Order("last_name asc, first_name asc").Find(&customers).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customers)
}

// GetCustomer returns one customer with their policies
func (h *CustomerHandler) GetCustomer(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid customer id")
	}

	var customer models.Customer
	if err := h.db.Preload("Policies").First(&customer, uint(id)).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}
