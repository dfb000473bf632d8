package service

import (
	"context"
	"time"

	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
)

// EntitlementService answers feature and module access questions for the
// tenant in context. The read path is deliberately failure-tolerant: store
// trouble degrades to "denied" with a log line rather than an error, and a
// cancelled request resolves to denied without being logged at all.
type EntitlementService interface {
	// HasFeatureAccess is the standalone fallback decision: the current
	// subscription's status gate plus plan feature membership.
	HasFeatureAccess(ctx context.Context, feature string) (bool, error)

	// HasFeatureAccessEnhanced additionally folds in the grace-period
	// decision. Any internal failure silently falls back to HasFeatureAccess.
	HasFeatureAccessEnhanced(ctx context.Context, feature string) (bool, error)

	HasModuleAccess(ctx context.Context, module string) (bool, error)
}

type entitlementService struct {
	ServiceParams
	trialService TrialService
}

func NewEntitlementService(params ServiceParams, trialService TrialService) EntitlementService {
	return &entitlementService{
		ServiceParams: params,
		trialService:  trialService,
	}
}

func (s *entitlementService) HasFeatureAccess(ctx context.Context, feature string) (bool, error) {
	sub, err := s.SubRepo.GetCurrent(ctx)
	if err != nil {
		return false, s.denied(ctx, feature, err)
	}

	if !sub.SubscriptionStatus.GrantsFeatureAccess() {
		return false, nil
	}
	if sub.SubscriptionStatus == types.SubscriptionStatusActive && sub.IsPeriodElapsed(time.Now().UTC()) {
		return false, nil
	}

	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return false, s.denied(ctx, feature, err)
	}

	return p.HasFeature(feature), nil
}

func (s *entitlementService) HasFeatureAccessEnhanced(ctx context.Context, feature string) (bool, error) {
	timeout := time.Duration(s.Config.Billing.EntitlementTimeoutMS) * time.Millisecond
	enhancedCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	allowed, err := s.enhancedDecision(enhancedCtx, feature)
	if err != nil {
		if !ierr.IsCancelled(err) {
			s.Logger.Debugw("enhanced entitlement path unavailable, falling back",
				"feature", feature,
				"error", err)
		}
		return s.HasFeatureAccess(ctx, feature)
	}
	return allowed, nil
}

// enhancedDecision is the richer path: the trial service's grace-aware
// access decision gates the plan feature check, so a past_due tenant inside
// the grace window still resolves features.
func (s *entitlementService) enhancedDecision(ctx context.Context, feature string) (bool, error) {
	status, err := s.trialService.GetTrialStatus(ctx)
	if err != nil {
		return false, err
	}
	if !status.CanAccessFeatures {
		return false, nil
	}

	sub, err := latestSubscriptionAnyStatus(ctx, s.ServiceParams)
	if err != nil {
		return false, err
	}

	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return false, err
	}

	return p.HasFeature(feature), nil
}

func (s *entitlementService) HasModuleAccess(ctx context.Context, module string) (bool, error) {
	feature, gated := types.ModuleFeatureMap[module]
	if !gated {
		// Baseline module, available to every plan.
		return true, nil
	}
	return s.HasFeatureAccessEnhanced(ctx, feature)
}

// denied converts read-path failures into an access denial. NotFound simply
// means no subscription; store failures are logged; a cancelled request is
// not an error at all.
func (s *entitlementService) denied(ctx context.Context, feature string, err error) error {
	switch {
	case ierr.IsNotFound(err):
	case ierr.IsCancelled(err):
	default:
		s.Logger.Errorw("entitlement lookup failed, denying access",
			"feature", feature,
			"tenant_id", types.GetTenantID(ctx),
			"error", err)
	}
	return nil
}
