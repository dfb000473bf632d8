package service

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/loopcrm/billing/internal/domain/plan"
	"github.com/loopcrm/billing/internal/domain/subscription"
	"github.com/loopcrm/billing/internal/testutil"
	"github.com/loopcrm/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type EntitlementServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  EntitlementService
	testData struct {
		basicPlan      *plan.Plan
		enterprisePlan *plan.Plan
	}
}

func TestEntitlementService(t *testing.T) {
	suite.Run(t, new(EntitlementServiceSuite))
}

func (s *EntitlementServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	params := s.params()
	s.service = NewEntitlementService(params, NewTrialService(params))
	s.setupTestData()
}

func (s *EntitlementServiceSuite) params() ServiceParams {
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

func (s *EntitlementServiceSuite) setupTestData() {
	s.testData.basicPlan = &plan.Plan{
		ID:           "plan_basic",
		Name:         "basic",
		DisplayName:  "Basic",
		Features:     pq.StringArray{types.FeaturePOS, types.FeatureInventory},
		Price:        decimal.NewFromInt(29),
		BillingCycle: types.BillingCycleMonthly,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	s.testData.enterprisePlan = &plan.Plan{
		ID:           "plan_enterprise",
		Name:         "enterprise",
		DisplayName:  "Enterprise",
		Features:     pq.StringArray{types.FeatureAllWildcard},
		Price:        decimal.NewFromInt(199),
		BillingCycle: types.BillingCycleMonthly,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}

	planStore := s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore)
	s.NoError(planStore.AddPlan(s.GetContext(), s.testData.basicPlan))
	s.NoError(planStore.AddPlan(s.GetContext(), s.testData.enterprisePlan))
}

func (s *EntitlementServiceSuite) seedSubscription(planID string, status types.SubscriptionStatus, periodEnd time.Time) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:             planID,
		SubscriptionStatus: status,
		BillingCycle:       types.BillingCycleMonthly,
		CurrentPeriodStart: s.GetNow().AddDate(0, 0, -10),
		CurrentPeriodEnd:   periodEnd,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), sub))
	return sub
}

func (s *EntitlementServiceSuite) TestNoSubscriptionDeniesAccess() {
	allowed, err := s.service.HasFeatureAccess(s.GetContext(), types.FeaturePOS)
	s.NoError(err)
	s.False(allowed)
}

func (s *EntitlementServiceSuite) TestDenyStatusesAlwaysDeny() {
	// Even a plan granting every feature cannot open access for these
	// statuses.
	denyStatuses := []types.SubscriptionStatus{
		types.SubscriptionStatusPastDue,
		types.SubscriptionStatusExpired,
		types.SubscriptionStatusCancelled,
		types.SubscriptionStatusSuspended,
	}

	for _, status := range denyStatuses {
		s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Clear()
		s.seedSubscription(s.testData.enterprisePlan.ID, status, s.GetNow().AddDate(0, 0, 30))

		allowed, err := s.service.HasFeatureAccess(s.GetContext(), types.FeaturePOS)
		s.NoError(err, "status %s", status)
		s.False(allowed, "status %s must deny", status)
	}
}

func (s *EntitlementServiceSuite) TestTrialGrantsPlanFeatures() {
	s.seedSubscription(s.testData.basicPlan.ID, types.SubscriptionStatusTrial, s.GetNow().AddDate(0, 0, 10))

	allowed, err := s.service.HasFeatureAccess(s.GetContext(), types.FeaturePOS)
	s.NoError(err)
	s.True(allowed)

	allowed, err = s.service.HasFeatureAccess(s.GetContext(), types.FeatureDebtCollection)
	s.NoError(err)
	s.False(allowed)
}

func (s *EntitlementServiceSuite) TestWildcardGrantsUnknownFeature() {
	s.seedSubscription(s.testData.enterprisePlan.ID, types.SubscriptionStatusActive, s.GetNow().AddDate(0, 0, 30))

	allowed, err := s.service.HasFeatureAccess(s.GetContext(), "some_future_feature")
	s.NoError(err)
	s.True(allowed)
}

func (s *EntitlementServiceSuite) TestActiveWithElapsedPeriodDenies() {
	s.seedSubscription(s.testData.enterprisePlan.ID, types.SubscriptionStatusActive, s.GetNow().AddDate(0, 0, -1))

	allowed, err := s.service.HasFeatureAccess(s.GetContext(), types.FeaturePOS)
	s.NoError(err)
	s.False(allowed)
}

func (s *EntitlementServiceSuite) TestEnhancedGrantsDuringGrace() {
	// past_due inside the grace window: the fallback path denies, the
	// enhanced path still grants plan features.
	trialEnd := s.GetNow().AddDate(0, 0, -2)
	sub := s.seedSubscription(s.testData.basicPlan.ID, types.SubscriptionStatusPastDue, trialEnd)
	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	stored.TrialEnd = &trialEnd
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), stored))

	fallback, err := s.service.HasFeatureAccess(s.GetContext(), types.FeaturePOS)
	s.NoError(err)
	s.False(fallback)

	enhanced, err := s.service.HasFeatureAccessEnhanced(s.GetContext(), types.FeaturePOS)
	s.NoError(err)
	s.True(enhanced)

	// A feature outside the plan stays denied even in grace.
	enhanced, err = s.service.HasFeatureAccessEnhanced(s.GetContext(), types.FeatureDebtCollection)
	s.NoError(err)
	s.False(enhanced)
}

func (s *EntitlementServiceSuite) TestEnhancedDeniesBeyondGrace() {
	trialEnd := s.GetNow().AddDate(0, 0, -10)
	sub := s.seedSubscription(s.testData.basicPlan.ID, types.SubscriptionStatusPastDue, trialEnd)
	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), sub.ID)
	s.NoError(err)
	stored.TrialEnd = &trialEnd
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), stored))

	enhanced, err := s.service.HasFeatureAccessEnhanced(s.GetContext(), types.FeaturePOS)
	s.NoError(err)
	s.False(enhanced)
}

func (s *EntitlementServiceSuite) TestUnmappedModuleIsAlwaysAllowed() {
	// No subscription at all: baseline modules still open.
	allowed, err := s.service.HasModuleAccess(s.GetContext(), "dashboard")
	s.NoError(err)
	s.True(allowed)
}

func (s *EntitlementServiceSuite) TestMappedModuleFollowsFeature() {
	s.seedSubscription(s.testData.basicPlan.ID, types.SubscriptionStatusActive, s.GetNow().AddDate(0, 0, 30))

	allowed, err := s.service.HasModuleAccess(s.GetContext(), "pos")
	s.NoError(err)
	s.True(allowed)

	allowed, err = s.service.HasModuleAccess(s.GetContext(), "debt-collection")
	s.NoError(err)
	s.False(allowed)
}

func (s *EntitlementServiceSuite) TestMostRecentCurrentRowWins() {
	old := s.seedSubscription(s.testData.enterprisePlan.ID, types.SubscriptionStatusTrial, s.GetNow().AddDate(0, 0, 10))
	oldStored, err := s.GetStores().SubRepo.Get(s.GetContext(), old.ID)
	s.NoError(err)
	oldStored.CreatedAt = s.GetNow().AddDate(0, -1, 0)
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), oldStored))

	s.seedSubscription(s.testData.basicPlan.ID, types.SubscriptionStatusActive, s.GetNow().AddDate(0, 0, 30))

	// The newer basic subscription is authoritative, so the wildcard plan on
	// the older row no longer applies.
	allowed, err := s.service.HasFeatureAccess(s.GetContext(), types.FeatureDebtCollection)
	s.NoError(err)
	s.False(allowed)
}
