package service

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/loopcrm/billing/internal/domain/plan"
	"github.com/loopcrm/billing/internal/domain/subscription"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/testutil"
	"github.com/loopcrm/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TrialServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  TrialService
	testData struct {
		plan *plan.Plan
	}
}

func TestTrialService(t *testing.T) {
	suite.Run(t, new(TrialServiceSuite))
}

func (s *TrialServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewTrialService(s.params())
	s.setupTestData()
}

func (s *TrialServiceSuite) params() ServiceParams {
	return ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		DB:             s.GetDB(),
		Cache:          s.GetCache(),
		AuditPublisher: s.GetAuditPublisher(),
		PlanRepo:       s.GetStores().PlanRepo,
		SubRepo:        s.GetStores().SubRepo,
		PaymentRepo:    s.GetStores().PaymentRepo,
		UsageRepo:      s.GetStores().UsageRepo,
		UsageCounter:   s.GetUsageCounter(),
	}
}

func (s *TrialServiceSuite) setupTestData() {
	s.testData.plan = &plan.Plan{
		ID:           "plan_basic",
		Name:         "basic",
		DisplayName:  "Basic",
		Features:     pq.StringArray{types.FeaturePOS},
		MaxUsers:     5,
		Price:        decimal.NewFromInt(29),
		BillingCycle: types.BillingCycleMonthly,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	err := s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore).AddPlan(s.GetContext(), s.testData.plan)
	s.NoError(err)
}

func (s *TrialServiceSuite) seedSubscription(status types.SubscriptionStatus, trialEnd *time.Time, periodEnd time.Time) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:             s.testData.plan.ID,
		SubscriptionStatus: status,
		BillingCycle:       types.BillingCycleMonthly,
		TrialEnd:           trialEnd,
		CurrentPeriodStart: s.GetNow().AddDate(0, 0, -14),
		CurrentPeriodEnd:   periodEnd,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	if trialEnd != nil {
		trialStart := trialEnd.AddDate(0, 0, -14)
		sub.TrialStart = &trialStart
	}
	err := s.GetStores().SubRepo.Create(s.GetContext(), sub)
	s.NoError(err)
	return sub
}

func (s *TrialServiceSuite) TestGetTrialStatusNoSubscription() {
	resp, err := s.service.GetTrialStatus(s.GetContext())
	s.NoError(err)
	s.False(resp.IsTrial)
	s.False(resp.CanAccessFeatures)
	s.Equal("no subscription found", resp.Message)
}

func (s *TrialServiceSuite) TestGetTrialStatusActiveTrial() {
	trialEnd := s.GetNow().AddDate(0, 0, 10)
	s.seedSubscription(types.SubscriptionStatusTrial, &trialEnd, trialEnd)

	resp, err := s.service.GetTrialStatus(s.GetContext())
	s.NoError(err)
	s.True(resp.IsTrial)
	s.Equal(10, resp.DaysLeft)
	s.True(resp.CanAccessFeatures)
	s.False(resp.IsInGracePeriod)
}

func (s *TrialServiceSuite) TestGetTrialStatusGracePeriod() {
	// Trial ended two days ago with a five day grace window: three grace
	// days remain and access is still granted.
	trialEnd := s.GetNow().AddDate(0, 0, -2)
	s.seedSubscription(types.SubscriptionStatusTrial, &trialEnd, trialEnd)

	resp, err := s.service.GetTrialStatus(s.GetContext())
	s.NoError(err)
	s.True(resp.IsInGracePeriod)
	s.Equal(3, resp.GracePeriodDaysLeft)
	s.True(resp.CanAccessFeatures)
	s.Equal(0, resp.DaysLeft)
}

func (s *TrialServiceSuite) TestGetTrialStatusGraceExceeded() {
	trialEnd := s.GetNow().AddDate(0, 0, -10)
	s.seedSubscription(types.SubscriptionStatusTrial, &trialEnd, trialEnd)

	resp, err := s.service.GetTrialStatus(s.GetContext())
	s.NoError(err)
	s.False(resp.IsInGracePeriod)
	s.Equal(0, resp.GracePeriodDaysLeft)
	s.False(resp.CanAccessFeatures)
}

func (s *TrialServiceSuite) TestGetTrialStatusPastDueInGrace() {
	trialEnd := s.GetNow().AddDate(0, 0, -1)
	s.seedSubscription(types.SubscriptionStatusPastDue, &trialEnd, trialEnd)

	resp, err := s.service.GetTrialStatus(s.GetContext())
	s.NoError(err)
	s.True(resp.IsInGracePeriod)
	s.Equal(4, resp.GracePeriodDaysLeft)
	s.True(resp.CanAccessFeatures)
}

func (s *TrialServiceSuite) TestGetTrialStatusLapsedPaidSubscriberInGrace() {
	// Trialed, paid, ran an active period, and lapsed yesterday: grace is
	// measured from the paid period end, not the weeks-old trial end.
	trialEnd := s.GetNow().AddDate(0, 0, -60)
	s.seedSubscription(types.SubscriptionStatusPastDue, &trialEnd, s.GetNow().AddDate(0, 0, -1))

	resp, err := s.service.GetTrialStatus(s.GetContext())
	s.NoError(err)
	s.True(resp.IsInGracePeriod)
	s.Equal(4, resp.GracePeriodDaysLeft)
	s.True(resp.CanAccessFeatures)
}

func (s *TrialServiceSuite) TestGetTrialStatusActive() {
	s.seedSubscription(types.SubscriptionStatusActive, nil, s.GetNow().AddDate(0, 0, 20))

	resp, err := s.service.GetTrialStatus(s.GetContext())
	s.NoError(err)
	s.False(resp.IsTrial)
	s.True(resp.CanAccessFeatures)
}

func (s *TrialServiceSuite) TestGetTrialStatusIsIdempotent() {
	trialEnd := s.GetNow().AddDate(0, 0, -2)
	sub := s.seedSubscription(types.SubscriptionStatusTrial, &trialEnd, trialEnd)

	first, err := s.service.GetTrialStatus(s.GetContext())
	s.NoError(err)
	second, err := s.service.GetTrialStatus(s.GetContext())
	s.NoError(err)
	s.Equal(first, second)

	// Status queries never mutate the row.
	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusTrial, stored.SubscriptionStatus)
	s.Equal(1, stored.Version)
}

func (s *TrialServiceSuite) TestSweepExpiresTrialIntoGrace() {
	trialEnd := s.GetNow().AddDate(0, 0, -2)
	sub := s.seedSubscription(types.SubscriptionStatusTrial, &trialEnd, trialEnd)

	resp, err := s.service.ProcessTrialExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(1, resp.Processed)
	s.Equal(1, resp.Expired)
	s.Equal(0, resp.Suspended)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, stored.SubscriptionStatus)

	events := s.GetAuditPublisher().EventsByAction(types.AuditActionSubscriptionPastDue)
	s.Len(events, 1)
}

func (s *TrialServiceSuite) TestSweepSuspendsBeyondGrace() {
	trialEnd := s.GetNow().AddDate(0, 0, -10)
	sub := s.seedSubscription(types.SubscriptionStatusTrial, &trialEnd, trialEnd)

	resp, err := s.service.ProcessTrialExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(1, resp.Suspended)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusSuspended, stored.SubscriptionStatus)

	events := s.GetAuditPublisher().EventsByAction(types.AuditActionSubscriptionSuspended)
	s.Len(events, 1)
}

func (s *TrialServiceSuite) TestSweepSuspendsPastDueBeyondGrace() {
	trialEnd := s.GetNow().AddDate(0, 0, -8)
	sub := s.seedSubscription(types.SubscriptionStatusPastDue, &trialEnd, trialEnd)

	resp, err := s.service.ProcessTrialExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(1, resp.Suspended)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusSuspended, stored.SubscriptionStatus)
}

func (s *TrialServiceSuite) TestSweepKeepsLapsedPaidSubscriberInGrace() {
	trialEnd := s.GetNow().AddDate(0, 0, -60)
	sub := s.seedSubscription(types.SubscriptionStatusPastDue, &trialEnd, s.GetNow().AddDate(0, 0, -1))

	resp, err := s.service.ProcessTrialExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(1, resp.Processed)
	s.Equal(0, resp.Suspended)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, stored.SubscriptionStatus)
	s.Equal(1, stored.Version)
}

func (s *TrialServiceSuite) TestSweepLeavesHealthyRowsAlone() {
	trialEnd := s.GetNow().AddDate(0, 0, 7)
	sub := s.seedSubscription(types.SubscriptionStatusTrial, &trialEnd, trialEnd)
	active := s.seedSubscription(types.SubscriptionStatusActive, nil, s.GetNow().AddDate(0, 0, 20))

	resp, err := s.service.ProcessTrialExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(2, resp.Processed)
	s.Equal(0, resp.Expired)
	s.Equal(0, resp.Suspended)

	for _, id := range []string{sub.ID, active.ID} {
		stored, err := s.GetStores().SubRepo.Get(s.GetContext(), id)
		s.NoError(err)
		s.Equal(1, stored.Version)
	}
}

func (s *TrialServiceSuite) TestSweepMovesLapsedActiveToPastDue() {
	sub := s.seedSubscription(types.SubscriptionStatusActive, nil, s.GetNow().AddDate(0, 0, -1))

	resp, err := s.service.ProcessTrialExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(1, resp.Expired)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, stored.SubscriptionStatus)
}

func (s *TrialServiceSuite) TestSweepFinalizesCancellation() {
	sub := s.seedSubscription(types.SubscriptionStatusActive, nil, s.GetNow().AddDate(0, 0, -1))
	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	stored.CancelAtPeriodEnd = true
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), stored))

	_, err = s.service.ProcessTrialExpirations(s.GetContext())
	s.NoError(err)

	final, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, final.SubscriptionStatus)
}

func (s *TrialServiceSuite) TestSweepIsIdempotent() {
	trialEnd := s.GetNow().AddDate(0, 0, -10)
	sub := s.seedSubscription(types.SubscriptionStatusTrial, &trialEnd, trialEnd)

	first, err := s.service.ProcessTrialExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(1, first.Suspended)

	second, err := s.service.ProcessTrialExpirations(s.GetContext())
	s.NoError(err)
	s.Equal(0, second.Expired)
	s.Equal(0, second.Suspended)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusSuspended, stored.SubscriptionStatus)
}

func (s *TrialServiceSuite) TestActivateFromPaymentStartsFreshPeriod() {
	trialEnd := s.GetNow().AddDate(0, 0, -3)
	seeded := s.seedSubscription(types.SubscriptionStatusPastDue, &trialEnd, trialEnd)

	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), seeded.ID)
	s.NoError(err)
	s.NoError(s.service.ActivateFromPayment(s.GetContext(), sub))

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), seeded.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, stored.SubscriptionStatus)
	s.NotNil(stored.LastPaymentDate)

	// The new period is anchored at now, not at the old period end.
	expectedEnd := stored.CurrentPeriodStart.AddDate(0, 0, 30)
	s.Equal(expectedEnd, stored.CurrentPeriodEnd)
	s.WithinDuration(s.GetNow(), stored.CurrentPeriodStart, time.Minute)

	events := s.GetAuditPublisher().EventsByAction(types.AuditActionSubscriptionActivated)
	s.Len(events, 1)
}

func (s *TrialServiceSuite) TestActivateFromPaymentAnnualCycle() {
	trialEnd := s.GetNow().AddDate(0, 0, -3)
	seeded := s.seedSubscription(types.SubscriptionStatusPastDue, &trialEnd, trialEnd)

	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), seeded.ID)
	s.NoError(err)
	sub.BillingCycle = types.BillingCycleAnnual
	s.NoError(s.service.ActivateFromPayment(s.GetContext(), sub))

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), seeded.ID)
	s.NoError(err)
	s.Equal(stored.CurrentPeriodStart.AddDate(0, 0, 365), stored.CurrentPeriodEnd)
}

func (s *TrialServiceSuite) TestActivateFromPaymentRejectsCancelled() {
	seeded := s.seedSubscription(types.SubscriptionStatusCancelled, nil, s.GetNow())

	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), seeded.ID)
	s.NoError(err)
	err = s.service.ActivateFromPayment(s.GetContext(), sub)
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), seeded.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, stored.SubscriptionStatus)
}
