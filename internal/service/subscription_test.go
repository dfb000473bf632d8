package service

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/loopcrm/billing/internal/api/dto"
	"github.com/loopcrm/billing/internal/domain/plan"
	ierr "github.com/loopcrm/billing/internal/errors"
	"github.com/loopcrm/billing/internal/testutil"
	"github.com/loopcrm/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  SubscriptionService
	testData struct {
		plan *plan.Plan
	}
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewSubscriptionService(ServiceParams{
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

func (s *SubscriptionServiceSuite) setupTestData() {
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
	s.NoError(s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore).AddPlan(s.GetContext(), s.testData.plan))
}

func (s *SubscriptionServiceSuite) TestCreateTrialSubscription() {
	resp, err := s.service.CreateTrialSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		PlanID: s.testData.plan.ID,
	})
	s.NoError(err)
	s.Equal(types.SubscriptionStatusTrial, resp.SubscriptionStatus)
	s.Equal(types.BillingCycleMonthly, resp.BillingCycle)
	s.NotNil(resp.TrialEnd)
	s.NotNil(resp.Plan)

	// Trial window comes from configuration.
	expectedEnd := resp.TrialStart.AddDate(0, 0, s.GetConfig().Billing.TrialPeriodDays)
	s.Equal(expectedEnd, *resp.TrialEnd)
	s.WithinDuration(s.GetNow(), *resp.TrialStart, time.Minute)

	events := s.GetAuditPublisher().EventsByAction(types.AuditActionSubscriptionCreated)
	s.Len(events, 1)
}

func (s *SubscriptionServiceSuite) TestCreateRejectsUnknownPlan() {
	_, err := s.service.CreateTrialSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		PlanID: "plan_missing",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestCreateRejectsSecondCurrentSubscription() {
	_, err := s.service.CreateTrialSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		PlanID: s.testData.plan.ID,
	})
	s.NoError(err)

	_, err = s.service.CreateTrialSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		PlanID: s.testData.plan.ID,
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestCreateValidatesBillingCycle() {
	_, err := s.service.CreateTrialSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		PlanID:       s.testData.plan.ID,
		BillingCycle: types.BillingCycle("weekly"),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestGetCurrentSubscription() {
	created, err := s.service.CreateTrialSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		PlanID: s.testData.plan.ID,
	})
	s.NoError(err)

	current, err := s.service.GetCurrentSubscription(s.GetContext())
	s.NoError(err)
	s.Equal(created.ID, current.ID)
	s.NotNil(current.Plan)
}

func (s *SubscriptionServiceSuite) TestGetCurrentSubscriptionNotFound() {
	_, err := s.service.GetCurrentSubscription(s.GetContext())
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestCancelAtPeriodEnd() {
	created, err := s.service.CreateTrialSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		PlanID: s.testData.plan.ID,
	})
	s.NoError(err)

	resp, err := s.service.CancelAtPeriodEnd(s.GetContext())
	s.NoError(err)
	s.True(resp.CancelAtPeriodEnd)

	// Cancellation is a flag; the subscription stays usable until the period
	// runs out.
	s.Equal(created.ID, resp.ID)
	s.Equal(types.SubscriptionStatusTrial, resp.SubscriptionStatus)

	// Scheduling the cancellation and the sweep finalizing it are distinct
	// audit actions.
	events := s.GetAuditPublisher().EventsByAction(types.AuditActionSubscriptionCancelScheduled)
	s.Len(events, 1)
	s.Empty(s.GetAuditPublisher().EventsByAction(types.AuditActionSubscriptionCancelled))

	// Calling again is a no-op.
	again, err := s.service.CancelAtPeriodEnd(s.GetContext())
	s.NoError(err)
	s.True(again.CancelAtPeriodEnd)
	s.Len(s.GetAuditPublisher().EventsByAction(types.AuditActionSubscriptionCancelScheduled), 1)
}
