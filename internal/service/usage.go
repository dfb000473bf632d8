package service

import (
	"context"
	"fmt"
	"time"

	"github.com/loopcrm/billing/internal/api/dto"
	"github.com/loopcrm/billing/internal/domain/plan"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/types"
)

// UsageService enforces plan limits against live resource counts and keeps
// the advisory per-month usage counters. Limit checks never trust the
// counters; they always count live through the Counter collaborator.
type UsageService interface {
	CheckUsageLimit(ctx context.Context, resourceType types.ResourceType) (*dto.UsageLimitResponse, error)
	RecordUsage(ctx context.Context, req *dto.RecordUsageRequest) error
	GetUsageSummary(ctx context.Context) (*dto.UsageSummaryResponse, error)
}

type usageService struct {
	ServiceParams
}

func NewUsageService(params ServiceParams) UsageService {
	return &usageService{ServiceParams: params}
}

func (s *usageService) CheckUsageLimit(ctx context.Context, resourceType types.ResourceType) (*dto.UsageLimitResponse, error) {
	if err := resourceType.Validate(); err != nil {
		return nil, err
	}

	p, err := s.currentPlan(ctx)
	if err != nil {
		// Deny-by-default on the read path: no subscription or a store
		// failure both report the resource as not addable.
		if !ierr.IsNotFound(err) && !ierr.IsCancelled(err) {
			s.Logger.Errorw("usage limit check failed, denying",
				"resource_type", resourceType,
				"error", err)
		}
		return &dto.UsageLimitResponse{
			ResourceType: resourceType,
			CanAdd:       false,
		}, nil
	}

	limit := p.LimitFor(resourceType)
	current, err := s.liveCount(ctx, resourceType)
	if err != nil {
		// Without a trustworthy count the conservative answer is at-limit.
		if !ierr.IsCancelled(err) {
			s.Logger.Errorw("live resource count failed, denying",
				"resource_type", resourceType,
				"error", err)
		}
		return &dto.UsageLimitResponse{
			ResourceType: resourceType,
			Limit:        limit,
			CanAdd:       false,
		}, nil
	}

	if limit == types.UnlimitedLimit {
		return &dto.UsageLimitResponse{
			ResourceType: resourceType,
			CurrentCount: current,
			Limit:        types.UnlimitedDisplayValue,
			CanAdd:       true,
			Unlimited:    true,
		}, nil
	}

	return &dto.UsageLimitResponse{
		ResourceType: resourceType,
		CurrentCount: current,
		Limit:        limit,
		CanAdd:       current < int64(limit),
	}, nil
}

func (s *usageService) RecordUsage(ctx context.Context, req *dto.RecordUsageRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	periodStart, periodEnd := types.CalendarPeriod(time.Now())
	if err := s.UsageRepo.Upsert(ctx, req.ResourceType, periodStart, periodEnd, req.Count); err != nil {
		// The counters are advisory; never fail the caller over them.
		if !ierr.IsCancelled(err) {
			s.Logger.Errorw("failed to record usage",
				"resource_type", req.ResourceType,
				"count", req.Count,
				"error", err)
		}
		return nil
	}

	s.AuditPublisher.Publish(ctx, types.NewAuditEvent(
		ctx, types.AuditActionUsageRecorded, types.AuditResourceUsageRecord, req.ResourceType.String(),
	).WithMetadata(types.Metadata{
		"count":        fmt.Sprintf("%d", req.Count),
		"period_start": periodStart.Format(time.RFC3339),
	}))
	return nil
}

func (s *usageService) GetUsageSummary(ctx context.Context) (*dto.UsageSummaryResponse, error) {
	sub, err := s.SubRepo.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	resources := make([]*dto.ResourceUsage, 0, len(types.AllResourceTypes))
	for _, rt := range types.AllResourceTypes {
		limit := p.LimitFor(rt)

		// The summary is a reporting view; a failed count shows as zero.
		current, err := s.liveCount(ctx, rt)
		if err != nil && !ierr.IsCancelled(err) {
			s.Logger.Errorw("live resource count failed",
				"resource_type", rt,
				"error", err)
		}

		usage := &dto.ResourceUsage{
			ResourceType: rt,
			CurrentCount: current,
		}
		if limit == types.UnlimitedLimit {
			usage.Limit = types.UnlimitedDisplayValue
			usage.Unlimited = true
		} else {
			usage.Limit = limit
			if limit > 0 {
				usage.PercentUsed = float64(current) / float64(limit) * 100
			}
		}
		resources = append(resources, usage)
	}

	return &dto.UsageSummaryResponse{
		PlanID:    p.ID,
		PlanName:  p.DisplayName,
		Resources: resources,
	}, nil
}

func (s *usageService) currentPlan(ctx context.Context) (*plan.Plan, error) {
	sub, err := s.SubRepo.GetCurrent(ctx)
	if err != nil {
		return nil, err
	}
	return s.PlanRepo.Get(ctx, sub.PlanID)
}

// liveCount returns the live count for a resource, scoped to the current
// calendar month for periodic resources.
func (s *usageService) liveCount(ctx context.Context, resourceType types.ResourceType) (int64, error) {
	since := time.Time{}
	if resourceType == types.ResourceTypeInvoices {
		since, _ = types.CalendarPeriod(time.Now())
	}

	count, err := s.UsageCounter.Count(ctx, resourceType, since)
	if err != nil {
		return 0, err
	}
	return int64(count), nil
}
