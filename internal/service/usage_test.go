package service

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/loopcrm/billing/internal/api/dto"
	"github.com/loopcrm/billing/internal/domain/plan"
	"github.com/loopcrm/billing/internal/domain/subscription"
	"github.com/loopcrm/billing/internal/testutil"
	"github.com/loopcrm/billing/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type UsageServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  UsageService
	testData struct {
		plan *plan.Plan
		sub  *subscription.Subscription
	}
}

func TestUsageService(t *testing.T) {
	suite.Run(t, new(UsageServiceSuite))
}

func (s *UsageServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewUsageService(ServiceParams{
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

func (s *UsageServiceSuite) setupTestData() {
	s.testData.plan = &plan.Plan{
		ID:                 "plan_basic",
		Name:               "basic",
		DisplayName:        "Basic",
		Features:           pq.StringArray{types.FeaturePOS},
		MaxUsers:           5,
		MaxProducts:        types.UnlimitedLimit,
		MaxInvoicesMonthly: 100,
		MaxPOSLocations:    1,
		Price:              decimal.NewFromInt(29),
		BillingCycle:       types.BillingCycleMonthly,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore).AddPlan(s.GetContext(), s.testData.plan))

	s.testData.sub = &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:             s.testData.plan.ID,
		SubscriptionStatus: types.SubscriptionStatusActive,
		BillingCycle:       types.BillingCycleMonthly,
		CurrentPeriodStart: s.GetNow().AddDate(0, 0, -10),
		CurrentPeriodEnd:   s.GetNow().AddDate(0, 0, 20),
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), s.testData.sub))
}

func (s *UsageServiceSuite) TestCheckLimitUnderLimit() {
	s.GetUsageCounter().SetCount(types.ResourceTypeUsers, 4)

	resp, err := s.service.CheckUsageLimit(s.GetContext(), types.ResourceTypeUsers)
	s.NoError(err)
	s.Equal(int64(4), resp.CurrentCount)
	s.Equal(5, resp.Limit)
	s.True(resp.CanAdd)
	s.False(resp.Unlimited)
}

func (s *UsageServiceSuite) TestCheckLimitAtLimit() {
	s.GetUsageCounter().SetCount(types.ResourceTypeUsers, 5)

	resp, err := s.service.CheckUsageLimit(s.GetContext(), types.ResourceTypeUsers)
	s.NoError(err)
	s.Equal(int64(5), resp.CurrentCount)
	s.False(resp.CanAdd)
}

func (s *UsageServiceSuite) TestCheckLimitUnlimited() {
	s.GetUsageCounter().SetCount(types.ResourceTypeProducts, 123456)

	resp, err := s.service.CheckUsageLimit(s.GetContext(), types.ResourceTypeProducts)
	s.NoError(err)
	s.True(resp.CanAdd)
	s.True(resp.Unlimited)
	s.Equal(types.UnlimitedDisplayValue, resp.Limit)
}

func (s *UsageServiceSuite) TestCheckLimitDefaultsWhenPlanSilent() {
	// The plan defines no storage limit; the conservative default applies.
	s.GetUsageCounter().SetCount(types.ResourceTypeStorage, types.DefaultResourceLimit)

	resp, err := s.service.CheckUsageLimit(s.GetContext(), types.ResourceTypeStorage)
	s.NoError(err)
	s.Equal(types.DefaultResourceLimit, resp.Limit)
	s.False(resp.CanAdd)
}

func (s *UsageServiceSuite) TestCheckLimitDeniesWithoutSubscription() {
	s.GetStores().SubRepo.(*testutil.InMemorySubscriptionStore).Clear()

	resp, err := s.service.CheckUsageLimit(s.GetContext(), types.ResourceTypeUsers)
	s.NoError(err)
	s.False(resp.CanAdd)
}

func (s *UsageServiceSuite) TestCheckLimitDeniesOnCountFailure() {
	s.GetUsageCounter().SetError(errors.New("connection refused"))

	resp, err := s.service.CheckUsageLimit(s.GetContext(), types.ResourceTypeUsers)
	s.NoError(err)
	s.False(resp.CanAdd)
}

func (s *UsageServiceSuite) TestCheckLimitRejectsUnknownResource() {
	_, err := s.service.CheckUsageLimit(s.GetContext(), types.ResourceType("widgets"))
	s.Error(err)
}

func (s *UsageServiceSuite) TestRecordUsageAccumulates() {
	s.NoError(s.service.RecordUsage(s.GetContext(), &dto.RecordUsageRequest{
		ResourceType: types.ResourceTypeInvoices,
		Count:        3,
	}))
	s.NoError(s.service.RecordUsage(s.GetContext(), &dto.RecordUsageRequest{
		ResourceType: types.ResourceTypeInvoices,
	}))

	periodStart, _ := types.CalendarPeriod(time.Now())
	record, err := s.GetStores().UsageRepo.GetForPeriod(s.GetContext(), types.ResourceTypeInvoices, periodStart)
	s.NoError(err)
	s.Equal(int64(4), record.Count)
}

func (s *UsageServiceSuite) TestGetUsageSummary() {
	s.GetUsageCounter().SetCount(types.ResourceTypeUsers, 4)
	s.GetUsageCounter().SetCount(types.ResourceTypeInvoices, 50)

	resp, err := s.service.GetUsageSummary(s.GetContext())
	s.NoError(err)
	s.Equal(s.testData.plan.ID, resp.PlanID)
	s.Len(resp.Resources, len(types.AllResourceTypes))

	byType := make(map[types.ResourceType]*dto.ResourceUsage)
	for _, r := range resp.Resources {
		byType[r.ResourceType] = r
	}

	s.Equal(int64(4), byType[types.ResourceTypeUsers].CurrentCount)
	s.InDelta(80.0, byType[types.ResourceTypeUsers].PercentUsed, 0.01)
	s.True(byType[types.ResourceTypeProducts].Unlimited)
	s.InDelta(50.0, byType[types.ResourceTypeInvoices].PercentUsed, 0.01)
}
