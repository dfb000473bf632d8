package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/loopcrm/billing/internal/api/dto"
	"github.com/loopcrm/billing/internal/domain/subscription"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
	"github.com/sourcegraph/conc/pool"
)

const sweepWorkers = 8

// TrialService computes trial and grace-period state from subscription dates
// and performs the date-driven lifecycle transitions. Status queries are pure
// and never mutate; only the sweep and payment activation write.
type TrialService interface {
	GetTrialStatus(ctx context.Context) (*dto.TrialStatusResponse, error)
	ProcessTrialExpirations(ctx context.Context) (*dto.SweepResponse, error)

	// ActivateFromPayment transitions the subscription to active and starts a
	// fresh billing period anchored at now. Invoked by payment verification.
	ActivateFromPayment(ctx context.Context, sub *subscription.Subscription) error
}

type trialService struct {
	ServiceParams
}

func NewTrialService(params ServiceParams) TrialService {
	return &trialService{ServiceParams: params}
}

func (s *trialService) GetTrialStatus(ctx context.Context) (*dto.TrialStatusResponse, error) {
	sub, err := latestSubscriptionAnyStatus(ctx, s.ServiceParams)
	if err != nil {
		if ierr.IsNotFound(err) {
			return &dto.TrialStatusResponse{
				Message: "no subscription found",
			}, nil
		}
		return nil, err
	}

	return s.statusAt(sub, time.Now().UTC()), nil
}

// statusAt derives the full trial status view from the subscription's dates.
// Pure function of the row and the clock.
func (s *trialService) statusAt(sub *subscription.Subscription, now time.Time) *dto.TrialStatusResponse {
	grace := s.Config.Billing.GracePeriodDays

	switch sub.SubscriptionStatus {
	case types.SubscriptionStatusActive:
		if sub.IsPeriodElapsed(now) {
			return &dto.TrialStatusResponse{
				Message: "subscription period has ended, payment required",
			}
		}
		return &dto.TrialStatusResponse{
			CanAccessFeatures: true,
			Message:           "subscription active",
		}

	case types.SubscriptionStatusTrial:
		if sub.TrialEnd == nil {
			return &dto.TrialStatusResponse{
				IsTrial:           true,
				CanAccessFeatures: true,
				Message:           "trial active",
			}
		}
		if !sub.IsTrialExpired(now) {
			daysLeft := types.TrialDaysLeft(*sub.TrialEnd, now)
			return &dto.TrialStatusResponse{
				IsTrial:           true,
				DaysLeft:          daysLeft,
				CanAccessFeatures: true,
				Message:           fmt.Sprintf("trial active, %d days left", daysLeft),
			}
		}
		return graceStatus(*sub.TrialEnd, now, grace)

	case types.SubscriptionStatusPastDue:
		// Grace is anchored at the trial end when the row came out of a trial,
		// and at the paid period end when an active subscription lapsed.
		return graceStatus(sub.GraceAnchor(), now, grace)

	case types.SubscriptionStatusSuspended:
		return &dto.TrialStatusResponse{
			Message: "subscription suspended, payment required to reactivate",
		}

	case types.SubscriptionStatusCancelled:
		return &dto.TrialStatusResponse{
			Message: "subscription cancelled",
		}

	default:
		return &dto.TrialStatusResponse{
			Message: "subscription expired",
		}
	}
}

// graceStatus computes the grace-period view for a subscription whose anchor
// date (trial end or period end) has passed.
func graceStatus(anchor, now time.Time, graceWindowDays int) *dto.TrialStatusResponse {
	daysSince := types.DaysSinceTrialEnd(anchor, now)
	inGrace := daysSince >= 0 && daysSince <= graceWindowDays

	daysLeft := graceWindowDays - daysSince
	if daysLeft < 0 {
		daysLeft = 0
	}

	if inGrace {
		return &dto.TrialStatusResponse{
			IsInGracePeriod:     true,
			GracePeriodDaysLeft: daysLeft,
			CanAccessFeatures:   true,
			Message:             fmt.Sprintf("payment due, %d grace days left", daysLeft),
		}
	}
	return &dto.TrialStatusResponse{
		Message: "grace period exceeded, access suspended until payment",
	}
}

func (s *trialService) ProcessTrialExpirations(ctx context.Context) (*dto.SweepResponse, error) {
	subs, err := s.SubRepo.ListDueForSweep(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var processed, expired, suspended atomic.Int64

	p := pool.New().WithMaxGoroutines(sweepWorkers).WithContext(ctx)
	for _, sub := range subs {
		sub := sub
		p.Go(func(ctx context.Context) error {
			processed.Add(1)

			transition, err := s.sweepOne(ctx, sub, now)
			if err != nil {
				// Row transitions are independent; log and keep sweeping.
				s.Logger.Errorw("sweep transition failed",
					"subscription_id", sub.ID,
					"status", sub.SubscriptionStatus,
					"error", err)
				return nil
			}

			switch transition {
			case types.SubscriptionStatusPastDue:
				expired.Add(1)
			case types.SubscriptionStatusSuspended:
				suspended.Add(1)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	resp := &dto.SweepResponse{
		Processed: int(processed.Load()),
		Expired:   int(expired.Load()),
		Suspended: int(suspended.Load()),
	}
	s.Logger.Infow("subscription sweep complete",
		"processed", resp.Processed,
		"expired", resp.Expired,
		"suspended", resp.Suspended)
	return resp, nil
}

// sweepOne applies the date-derived transition for a single row and returns
// the status it moved to, or empty when no transition applies. Transitions
// derive from absolute dates, so re-running the sweep is a no-op.
func (s *trialService) sweepOne(ctx context.Context, sub *subscription.Subscription, now time.Time) (types.SubscriptionStatus, error) {
	// Writes carry the row's own tenant; the sweep runs across tenants.
	ctx = types.SetTenantID(ctx, sub.TenantID)

	target, ok := s.deriveTransition(sub, now)
	if !ok {
		return "", nil
	}

	err := s.applyTransition(ctx, sub, target, now)
	if ierr.IsVersionConflict(err) {
		// A concurrent writer (payment verification, plan change) touched the
		// row. Re-read and re-derive once; the fresh dates decide.
		fresh, getErr := s.SubRepo.Get(ctx, sub.ID)
		if getErr != nil {
			return "", getErr
		}
		target, ok = s.deriveTransition(fresh, now)
		if !ok {
			return "", nil
		}
		if err := s.applyTransition(ctx, fresh, target, now); err != nil {
			return "", err
		}
		return target, nil
	}
	if err != nil {
		return "", err
	}
	return target, nil
}

func (s *trialService) deriveTransition(sub *subscription.Subscription, now time.Time) (types.SubscriptionStatus, bool) {
	grace := s.Config.Billing.GracePeriodDays

	switch sub.SubscriptionStatus {
	case types.SubscriptionStatusTrial:
		if !sub.IsTrialExpired(now) {
			return "", false
		}
		if types.DaysSinceTrialEnd(*sub.TrialEnd, now) > grace {
			return types.SubscriptionStatusSuspended, true
		}
		return types.SubscriptionStatusPastDue, true

	case types.SubscriptionStatusPastDue:
		if types.DaysSinceTrialEnd(sub.GraceAnchor(), now) > grace {
			return types.SubscriptionStatusSuspended, true
		}
		return "", false

	case types.SubscriptionStatusActive:
		if !sub.IsPeriodElapsed(now) {
			return "", false
		}
		if sub.CancelAtPeriodEnd {
			return types.SubscriptionStatusCancelled, true
		}
		return types.SubscriptionStatusPastDue, true
	}

	return "", false
}

func (s *trialService) applyTransition(ctx context.Context, sub *subscription.Subscription, target types.SubscriptionStatus, now time.Time) error {
	from := sub.SubscriptionStatus
	sub.SubscriptionStatus = target
	if err := s.SubRepo.Update(ctx, sub); err != nil {
		sub.SubscriptionStatus = from
		return err
	}

	action := types.AuditActionSubscriptionPastDue
	switch target {
	case types.SubscriptionStatusSuspended:
		action = types.AuditActionSubscriptionSuspended
	case types.SubscriptionStatusCancelled:
		action = types.AuditActionSubscriptionCancelled
	}

	s.AuditPublisher.Publish(ctx, types.NewAuditEvent(
		ctx, action, types.AuditResourceSubscription, sub.ID,
	).WithMetadata(types.Metadata{
		"from":     from.String(),
		"to":       target.String(),
		"swept_at": now.Format(time.RFC3339),
	}))

	s.Logger.Infow("subscription transitioned",
		"subscription_id", sub.ID,
		"from", from,
		"to", target)
	return nil
}

func (s *trialService) ActivateFromPayment(ctx context.Context, sub *subscription.Subscription) error {
	switch sub.SubscriptionStatus {
	case types.SubscriptionStatusTrial,
		types.SubscriptionStatusActive,
		types.SubscriptionStatusPastDue,
		types.SubscriptionStatusSuspended,
		types.SubscriptionStatusExpired:
	default:
		return ierr.NewError("subscription cannot be activated").
			WithHintf("A %s subscription cannot be activated by payment", sub.SubscriptionStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	// The new period starts today. Never extend from the old period end;
	// lapsed time is not sold retroactively.
	now := time.Now().UTC()
	from := sub.SubscriptionStatus
	sub.SubscriptionStatus = types.SubscriptionStatusActive
	sub.CurrentPeriodStart = now
	sub.CurrentPeriodEnd = sub.BillingCycle.PeriodEnd(now)
	sub.LastPaymentDate = &now

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return err
	}

	s.AuditPublisher.Publish(ctx, types.NewAuditEvent(
		ctx, types.AuditActionSubscriptionActivated, types.AuditResourceSubscription, sub.ID,
	).WithMetadata(types.Metadata{
		"from":               from.String(),
		"current_period_end": sub.CurrentPeriodEnd.Format(time.RFC3339),
	}))

	s.Logger.Infow("subscription activated from payment",
		"subscription_id", sub.ID,
		"from", from,
		"current_period_end", sub.CurrentPeriodEnd)
	return nil
}
