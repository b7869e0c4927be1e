package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"northsouth_agency/internal/models"
	"northsouth_agency/internal/services"
)

type CommissionHandler struct {
	commissions *services.CommissionService
}

func NewCommissionHandler(commissions *services.CommissionService) *CommissionHandler {
	return &CommissionHandler{commissions: commissions}
}

// RegisterAdvanceRequest is the payload for handing an advisor a general advance
type RegisterAdvanceRequest struct {
	AdvisorID     uint    `json:"advisor_id"`
	Amount        float64 `json:"amount"`
	ReceiptNumber string  `json:"receipt_number"`
	PaymentMethod string  `json:"payment_method"`
	Observations  string  `json:"observations"`
}

// RegisterAdvance records a general advance not yet tied to any policy
func (h *CommissionHandler) RegisterAdvance(c echo.Context) error {
	var req RegisterAdvanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	row, err := h.commissions.RegisterGeneralAdvance(c.Request().Context(), req.AdvisorID, req.Amount, services.DistributionMeta{
		ReceiptNumber: req.ReceiptNumber,
		PaymentMethod: req.PaymentMethod,
		Observations:  req.Observations,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, row)
}

// ApplyDistributionRequest is the payload for distributing advances to policies
type ApplyDistributionRequest struct {
	AdvisorID     uint                      `json:"advisor_id"`
	Policies      []services.AdvanceRequest `json:"policies"`
	ReceiptNumber string                    `json:"receipt_number"`
	PaymentMethod string                    `json:"payment_method"`
	Observations  string                    `json:"observations"`
}

// ApplyDistribution distributes the advisor's pooled general advances across
// the requested policies and records the manual amounts
func (h *CommissionHandler) ApplyDistribution(c echo.Context) error {
	var req ApplyDistributionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	result, err := h.commissions.ApplyAdvanceDistribution(c.Request().Context(), req.AdvisorID, req.Policies, services.DistributionMeta{
		ReceiptNumber: req.ReceiptNumber,
		PaymentMethod: req.PaymentMethod,
		Observations:  req.Observations,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// RegisterRefundRequest is the payload for recording a commission clawback
type RegisterRefundRequest struct {
	AdvisorID        uint      `json:"advisor_id"`
	PolicyID         uint      `json:"policy_id"`
	AmountRefunds    float64   `json:"amount_refunds"`
	CancellationDate time.Time `json:"cancellation_date"`
	Reason           string    `json:"reason"`
}

// RegisterRefund records a commission clawback after a cancellation
func (h *CommissionHandler) RegisterRefund(c echo.Context) error {
	var req RegisterRefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	refund := models.CommissionRefund{
		AdvisorID:        req.AdvisorID,
		PolicyID:         req.PolicyID,
		AmountRefunds:    req.AmountRefunds,
		CancellationDate: req.CancellationDate,
		Reason:           req.Reason,
	}
	if err := h.commissions.RegisterRefund(c.Request().Context(), &refund); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, refund)
}

// ListCommissions returns the global commission ledger
func (h *CommissionHandler) ListCommissions(c echo.Context) error {
	rows, err := h.commissions.ListCommissions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// ListAdvisorCommissions returns one advisor's commission ledger
func (h *CommissionHandler) ListAdvisorCommissions(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid advisor id")
	}

	rows, err := h.commissions.ListAdvisorCommissions(c.Request().Context(), uint(id))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

// AdvisorSummary returns the released/paid/pending position per policy
func (h *CommissionHandler) AdvisorSummary(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid advisor id")
	}

	balances, err := h.commissions.AdvisorSummary(c.Request().Context(), uint(id))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, balances)
}
