package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopcrm/billing/internal/api/dto"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	trialService        service.TrialService
	planChangeService   service.PlanChangeService
	log                 *logger.Logger
}

func NewSubscriptionHandler(
	subscriptionService service.SubscriptionService,
	trialService service.TrialService,
	planChangeService service.PlanChangeService,
	log *logger.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		trialService:        trialService,
		planChangeService:   planChangeService,
		log:                 log,
	}
}

// @Summary Start a trial subscription
// @Description Create a trial subscription for the tenant at signup
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.CreateSubscriptionRequest true "Subscription configuration"
// @Success 201 {object} dto.SubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions [post]
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	var req dto.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.subscriptionService.CreateTrialSubscription(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get subscription status
// @Description Get the tenant's trial and grace period status
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Success 200 {object} dto.TrialStatusResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/status [get]
func (h *SubscriptionHandler) GetStatus(c *gin.Context) {
	resp, err := h.trialService.GetTrialStatus(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get current subscription
// @Description Get the tenant's current subscription with its plan
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/current [get]
func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	resp, err := h.subscriptionService.GetCurrentSubscription(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Cancel subscription at period end
// @Description Flag the current subscription so it does not renew
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/cancel [post]
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	resp, err := h.subscriptionService.CancelAtPeriodEnd(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Change subscription plan
// @Description Move the current subscription to a different plan
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param plan body dto.ChangePlanRequest true "Target plan"
// @Success 200 {object} dto.SubscriptionResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /subscriptions/plan [post]
func (h *SubscriptionHandler) ChangePlan(c *gin.Context) {
	var req dto.ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.planChangeService.ChangeSubscriptionPlan(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
