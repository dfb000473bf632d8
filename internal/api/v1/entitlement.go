package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/loopcrm/billing/internal/api/dto"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/service"
)

type EntitlementHandler struct {
	service service.EntitlementService
	log     *logger.Logger
}

func NewEntitlementHandler(
	service service.EntitlementService,
	log *logger.Logger,
) *EntitlementHandler {
	return &EntitlementHandler{
		service: service,
		log:     log,
	}
}

// @Summary Check feature access
// @Description Check whether the tenant's subscription grants a feature
// @Tags Entitlement
// @Accept json
// @Produce json
// @Param feature path string true "Feature name"
// @Success 200 {object} dto.FeatureAccessResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /entitlement/features/{feature} [get]
func (h *EntitlementHandler) CheckFeatureAccess(c *gin.Context) {
	feature := c.Param("feature")
	if feature == "" {
		c.Error(ierr.NewError("feature is required").
			WithHint("Feature name is required").
			Mark(ierr.ErrValidation))
		return
	}

	hasAccess, err := h.service.HasFeatureAccessEnhanced(c.Request.Context(), feature)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, &dto.FeatureAccessResponse{
		Feature:   feature,
		HasAccess: hasAccess,
	})
}

// @Summary Check module access
// @Description Check whether the tenant may use a CRM module
// @Tags Entitlement
// @Accept json
// @Produce json
// @Param module path string true "Module name"
// @Success 200 {object} dto.ModuleAccessResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Failure 500 {object} ierr.ErrorResponse
// @Router /entitlement/modules/{module} [get]
func (h *EntitlementHandler) CheckModuleAccess(c *gin.Context) {
	module := c.Param("module")
	if module == "" {
		c.Error(ierr.NewError("module is required").
			WithHint("Module name is required").
			Mark(ierr.ErrValidation))
		return
	}

	hasAccess, err := h.service.HasModuleAccess(c.Request.Context(), module)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, &dto.ModuleAccessResponse{
		Module:    module,
		HasAccess: hasAccess,
	})
}
