package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopcrm/billing/internal/api/dto"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/service"
	"github.com/loopcrm/billing/internal/types"
)

type UsageHandler struct {
	service service.UsageService
	log     *logger.Logger
}

func NewUsageHandler(
	service service.UsageService,
	log *logger.Logger,
) *UsageHandler {
	return &UsageHandler{
		service: service,
		log:     log,
	}
}

// @Summary Check a usage limit
// @Description Check the tenant's current count against the plan limit for one resource type
// @Tags Usage
// @Accept json
// @Produce json
// @Param resource_type path string true "Resource type"
// @Success 200 {object} dto.UsageLimitResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /usage/{resource_type} [get]
func (h *UsageHandler) CheckUsageLimit(c *gin.Context) {
	resourceType := types.ResourceType(c.Param("resource_type"))
	if err := resourceType.Validate(); err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.CheckUsageLimit(c.Request.Context(), resourceType)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Get usage summary
// @Description Report current usage against plan limits for every metered resource
// @Tags Usage
// @Accept json
// @Produce json
// @Success 200 {object} dto.UsageSummaryResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /usage [get]
func (h *UsageHandler) GetUsageSummary(c *gin.Context) {
	resp, err := h.service.GetUsageSummary(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Record usage
// @Description Record resource creation events against the current metering period
// @Tags Usage
// @Accept json
// @Produce json
// @Param usage body dto.RecordUsageRequest true "Usage event"
// @Success 202 {object} map[string]string
// @Failure 400 {object} ierr.ErrorResponse
// @Router /usage [post]
func (h *UsageHandler) RecordUsage(c *gin.Context) {
	var req dto.RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.RecordUsage(c.Request.Context(), &req); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}
