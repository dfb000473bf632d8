package service

import (
	"context"
	"time"

	"github.com/loopcrm/billing/internal/api/dto"
	"github.com/loopcrm/billing/internal/domain/subscription"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
	"github.com/samber/lo"
)

// SubscriptionService owns the signup and cancellation flows. All other
// lifecycle transitions belong to TrialService and the payment workflow.
type SubscriptionService interface {
	CreateTrialSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error)
	CancelAtPeriodEnd(ctx context.Context) (*dto.SubscriptionResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) CreateTrialSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	targetPlan, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	// One current subscription per tenant. Historical rows are fine.
	existing, err := s.SubRepo.GetCurrent(ctx)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ierr.NewError("subscription already exists").
			WithHint("This account already has an active or trial subscription").
			WithReportableDetails(map[string]any{
				"subscription_id": existing.ID,
				"status":          existing.SubscriptionStatus,
			}).
			Mark(ierr.ErrAlreadyExists)
	}

	sub := req.ToSubscription(ctx, s.Config.Billing.TrialPeriodDays)
	if err := s.SubRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.AuditPublisher.Publish(ctx, types.NewAuditEvent(
		ctx, types.AuditActionSubscriptionCreated, types.AuditResourceSubscription, sub.ID,
	).WithMetadata(types.Metadata{
		"plan_id":       sub.PlanID,
		"billing_cycle": sub.BillingCycle.String(),
		"trial_end":     sub.TrialEnd.Format(time.RFC3339),
	}))

	s.Logger.Infow("created trial subscription",
		"subscription_id", sub.ID,
		"plan_id", sub.PlanID,
		"trial_end", sub.TrialEnd)

	resp := dto.NewSubscriptionResponse(sub)
	resp.Plan = dto.NewPlanResponse(targetPlan)
	return resp, nil
}

func (s *subscriptionService) GetCurrentSubscription(ctx context.Context) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}

	resp := dto.NewSubscriptionResponse(sub)
	if p, err := s.PlanRepo.Get(ctx, sub.PlanID); err == nil {
		resp.Plan = dto.NewPlanResponse(p)
	}
	return resp, nil
}

func (s *subscriptionService) CancelAtPeriodEnd(ctx context.Context) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}

	if sub.CancelAtPeriodEnd {
		return dto.NewSubscriptionResponse(sub), nil
	}

	sub.CancelAtPeriodEnd = true
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.AuditPublisher.Publish(ctx, types.NewAuditEvent(
		ctx, types.AuditActionSubscriptionCancelScheduled, types.AuditResourceSubscription, sub.ID,
	).WithMetadata(types.Metadata{
		"cancel_at": sub.CurrentPeriodEnd.Format(time.RFC3339),
	}))

	s.Logger.Infow("subscription flagged for cancellation at period end",
		"subscription_id", sub.ID,
		"current_period_end", sub.CurrentPeriodEnd)

	return dto.NewSubscriptionResponse(sub), nil
}

// latestSubscriptionAnyStatus returns the tenant's most recent subscription
// row regardless of lifecycle status. Used by the trial and entitlement
// paths, which must still see past_due and suspended rows.
func latestSubscriptionAnyStatus(ctx context.Context, params ServiceParams) (*subscription.Subscription, error) {
	filter := types.NewSubscriptionFilter()
	filter.QueryFilter.Limit = lo.ToPtr(1)

	subs, err := params.SubRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ierr.NewError("no subscription").
			WithHint("No subscription exists for this account").
			Mark(ierr.ErrNotFound)
	}
	return subs[0], nil
}
