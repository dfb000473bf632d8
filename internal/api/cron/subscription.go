package cron

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/service"
)

// SubscriptionHandler handles subscription related cron jobs
type SubscriptionHandler struct {
	trialService service.TrialService
	logger       *logger.Logger
}

// NewSubscriptionHandler creates a new subscription cron handler
func NewSubscriptionHandler(
	trialService service.TrialService,
	logger *logger.Logger,
) *SubscriptionHandler {
	return &SubscriptionHandler{
		trialService: trialService,
		logger:       logger,
	}
}

// SweepSubscriptions walks every subscription due for a lifecycle transition
// and applies it: ended trials into grace, lapsed grace into suspension, and
// elapsed active periods into past_due or cancellation.
func (h *SubscriptionHandler) SweepSubscriptions(c *gin.Context) {
	h.logger.Infow("starting subscription sweep cron job")

	response, err := h.trialService.ProcessTrialExpirations(c.Request.Context())
	if err != nil {
		h.logger.Errorw("failed to sweep subscriptions",
			"error", err)
		c.Error(err)
		return
	}

	h.logger.Infow("completed subscription sweep cron job",
		"processed", response.Processed,
		"expired", response.Expired,
		"suspended", response.Suspended)
	c.JSON(http.StatusOK, response)
}
