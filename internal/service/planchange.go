package service

import (
	"context"
	"time"

	"github.com/loopcrm/billing/internal/api/dto"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
)

// PlanChangeService moves a tenant's current subscription to a different
// plan. The change is a single compare-and-set write: the new plan takes
// effect with a fresh billing period, and a concurrent mutation leaves the
// row untouched and surfaces as a conflict.
type PlanChangeService interface {
	ChangeSubscriptionPlan(ctx context.Context, req *dto.ChangePlanRequest) (*dto.SubscriptionResponse, error)
}

type planChangeService struct {
	ServiceParams
}

func NewPlanChangeService(params ServiceParams) PlanChangeService {
	return &planChangeService{ServiceParams: params}
}

func (s *planChangeService) ChangeSubscriptionPlan(ctx context.Context, req *dto.ChangePlanRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	targetPlan, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}

	if sub.PlanID == req.PlanID && sub.BillingCycle == req.BillingCycle {
		return nil, ierr.NewError("already on requested plan").
			WithHint("The subscription is already on this plan and billing cycle").
			Mark(ierr.ErrInvalidOperation)
	}

	oldPlanID := sub.PlanID
	now := time.Now().UTC()
	sub.PlanID = targetPlan.ID
	sub.BillingCycle = req.BillingCycle
	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = req.BillingCycle.PeriodEnd(now)

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.AuditPublisher.Publish(ctx, types.NewAuditEvent(
		ctx, types.AuditActionPlanChanged, types.AuditResourceSubscription, sub.ID,
	).WithMetadata(types.Metadata{
		"old_plan_id":   oldPlanID,
		"new_plan_id":   targetPlan.ID,
		"billing_cycle": req.BillingCycle.String(),
	}))

	s.Logger.Infow("subscription plan changed",
		"subscription_id", sub.ID,
		"old_plan_id", oldPlanID,
		"new_plan_id", targetPlan.ID)

	resp := dto.NewSubscriptionResponse(sub)
	resp.Plan = dto.NewPlanResponse(targetPlan)
	return resp, nil
}
