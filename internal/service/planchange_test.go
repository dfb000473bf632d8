package service

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/loopcrm/billing/internal/api/dto"
	"github.com/loopcrm/billing/internal/domain/plan"
	"github.com/loopcrm/billing/internal/domain/subscription"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/testutil"
	"github.com/loopcrm/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanChangeServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  PlanChangeService
	testData struct {
		basicPlan *plan.Plan
		proPlan   *plan.Plan
		sub       *subscription.Subscription
	}
}

func TestPlanChangeService(t *testing.T) {
	suite.Run(t, new(PlanChangeServiceSuite))
}

func (s *PlanChangeServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewPlanChangeService(ServiceParams{
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
	})
	s.setupTestData()
}

func (s *PlanChangeServiceSuite) setupTestData() {
	s.testData.basicPlan = &plan.Plan{
		ID:           "plan_basic",
		Name:         "basic",
		DisplayName:  "Basic",
		Features:     pq.StringArray{types.FeaturePOS},
		MaxUsers:     5,
		Price:        decimal.NewFromInt(29),
		BillingCycle: types.BillingCycleMonthly,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	s.testData.proPlan = &plan.Plan{
		ID:           "plan_pro",
		Name:         "pro",
		DisplayName:  "Pro",
		Features:     pq.StringArray{types.FeaturePOS, types.FeatureDebtCollection},
		MaxUsers:     types.UnlimitedLimit,
		Price:        decimal.NewFromInt(99),
		BillingCycle: types.BillingCycleMonthly,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}

	planStore := s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore)
	s.NoError(planStore.AddPlan(s.GetContext(), s.testData.basicPlan))
	s.NoError(planStore.AddPlan(s.GetContext(), s.testData.proPlan))

	s.testData.sub = &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:             s.testData.basicPlan.ID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		BillingCycle:       types.BillingCycleMonthly,
		CurrentPeriodStart: s.GetNow().AddDate(0, 0, -10),
		CurrentPeriodEnd:   s.GetNow().AddDate(0, 0, 20),
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), s.testData.sub))
}

func (s *PlanChangeServiceSuite) TestChangePlan() {
	resp, err := s.service.ChangeSubscriptionPlan(s.GetContext(), &dto.ChangePlanRequest{
		PlanID: s.testData.proPlan.ID,
	})
	s.NoError(err)
	s.Equal(s.testData.proPlan.ID, resp.PlanID)
	s.NotNil(resp.Plan)

	// The new plan starts a fresh billing period anchored at now.
	s.WithinDuration(s.GetNow(), resp.CurrentPeriodStart, time.Minute)
	s.Equal(resp.CurrentPeriodStart.AddDate(0, 0, 30), resp.CurrentPeriodEnd)

	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)
	s.Equal(s.testData.proPlan.ID, stored.PlanID)

	events := s.GetAuditPublisher().EventsByAction(types.AuditActionPlanChanged)
	s.Len(events, 1)
	s.Equal(s.testData.basicPlan.ID, events[0].Metadata["old_plan_id"])
}

func (s *PlanChangeServiceSuite) TestChangePlanAnnualCycle() {
	resp, err := s.service.ChangeSubscriptionPlan(s.GetContext(), &dto.ChangePlanRequest{
		PlanID:       s.testData.proPlan.ID,
		BillingCycle: types.BillingCycleAnnual,
	})
	s.NoError(err)
	s.Equal(types.BillingCycleAnnual, resp.BillingCycle)
	s.Equal(resp.CurrentPeriodStart.AddDate(0, 0, 365), resp.CurrentPeriodEnd)
}

func (s *PlanChangeServiceSuite) TestChangePlanRejectsUnknownPlan() {
	_, err := s.service.ChangeSubscriptionPlan(s.GetContext(), &dto.ChangePlanRequest{
		PlanID: "plan_missing",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))

	// The subscription is untouched on failure.
	stored, err := s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)
	s.Equal(s.testData.basicPlan.ID, stored.PlanID)
	s.Equal(1, stored.Version)
}

func (s *PlanChangeServiceSuite) TestChangePlanRejectsSamePlan() {
	_, err := s.service.ChangeSubscriptionPlan(s.GetContext(), &dto.ChangePlanRequest{
		PlanID: s.testData.basicPlan.ID,
	})
	s.Error(err)
	s.True(ierr.IsInvalidOperation(err))
}

func (s *PlanChangeServiceSuite) TestConcurrentUpdateConflict() {
	stale, err := s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)

	// A concurrent writer lands first.
	winner, err := s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)
	winner.CancelAtPeriodEnd = true
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), winner))

	// The stale write loses and the row keeps the winner's state.
	stale.PlanID = s.testData.proPlan.ID
	err = s.GetStores().SubRepo.Update(s.GetContext(), stale)
	s.Error(err)
	s.True(ierr.IsVersionConflict(err))

	final, err := s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)
	s.Equal(s.testData.basicPlan.ID, final.PlanID)
	s.True(final.CancelAtPeriodEnd)
}
