package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loopcrm/billing/internal/api/dto"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/service"
	"github.com/loopcrm/billing/internal/types"
)

type PaymentHandler struct {
	service service.CashPaymentService
	log     *logger.Logger
}

func NewPaymentHandler(
	service service.CashPaymentService,
	log *logger.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

// @Summary Record a cash payment
// @Description Record a collected cash payment as pending verification
// @Tags Payments
// @Accept json
// @Produce json
// @Param payment body dto.RecordCashPaymentRequest true "Payment details"
// @Success 201 {object} dto.CashPaymentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /payments/cash [post]
func (h *PaymentHandler) RecordCashPayment(c *gin.Context) {
	var req dto.RecordCashPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RecordCashPayment(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Verify or reject a cash payment
// @Description Decide a pending cash payment; verification activates the subscription
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param decision body dto.VerifyCashPaymentRequest true "Decision"
// @Success 200 {object} dto.CashPaymentResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /payments/cash/{id}/verify [post]
func (h *PaymentHandler) VerifyCashPayment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("payment ID is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.VerifyCashPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.VerifyCashPayment(c.Request.Context(), id, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get cash payment summary
// @Description Aggregate the tenant's cash payment ledger over a date range
// @Tags Payments
// @Accept json
// @Produce json
// @Param start_date query string false "Range start (RFC3339)"
// @Param end_date query string false "Range end (RFC3339)"
// @Success 200 {object} dto.CashPaymentSummaryResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /payments/cash/summary [get]
func (h *PaymentHandler) GetSummary(c *gin.Context) {
	var start, end time.Time
	var err error

	if v := c.Query("start_date"); v != "" {
		start, err = time.Parse(time.RFC3339, v)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("start_date must be RFC3339").
				Mark(ierr.ErrValidation))
			return
		}
	}
	if v := c.Query("end_date"); v != "" {
		end, err = time.Parse(time.RFC3339, v)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("end_date must be RFC3339").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.service.GetCashPaymentSummary(c.Request.Context(), start, end)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List cash payments
// @Description List the tenant's cash payment ledger
// @Tags Payments
// @Accept json
// @Produce json
// @Param filter query types.CashPaymentFilter false "Filter"
// @Success 200 {object} dto.ListCashPaymentsResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /payments/cash [get]
func (h *PaymentHandler) ListCashPayments(c *gin.Context) {
	var filter types.CashPaymentFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}
	if filter.QueryFilter == nil {
		filter.QueryFilter = types.NewDefaultQueryFilter()
	}

	resp, err := h.service.ListCashPayments(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
