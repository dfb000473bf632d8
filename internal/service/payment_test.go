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

type CashPaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  CashPaymentService
	testData struct {
		plan *plan.Plan
		sub  *subscription.Subscription
	}
}

func TestCashPaymentService(t *testing.T) {
	suite.Run(t, new(CashPaymentServiceSuite))
}

func (s *CashPaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	params := s.params()
	s.service = NewCashPaymentService(params, NewTrialService(params))
	s.setupTestData()
}

func (s *CashPaymentServiceSuite) params() ServiceParams {
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

func (s *CashPaymentServiceSuite) setupTestData() {
	s.testData.plan = &plan.Plan{
		ID:           "plan_basic",
		Name:         "basic",
		DisplayName:  "Basic",
		Features:     pq.StringArray{types.FeaturePOS},
		Price:        decimal.NewFromInt(29),
		BillingCycle: types.BillingCycleMonthly,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().PlanRepo.(*testutil.InMemoryPlanStore).AddPlan(s.GetContext(), s.testData.plan))

	trialEnd := s.GetNow().AddDate(0, 0, -2)
	trialStart := trialEnd.AddDate(0, 0, -14)
	oldPeriodEnd := trialEnd
	s.testData.sub = &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		PlanID:             s.testData.plan.ID,
		SubscriptionStatus: types.SubscriptionStatusPastDue,
		BillingCycle:       types.BillingCycleMonthly,
		TrialStart:         &trialStart,
		TrialEnd:           &trialEnd,
		CurrentPeriodStart: trialStart,
		CurrentPeriodEnd:   oldPeriodEnd,
		Version:            1,
		BaseModel:          types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.GetStores().SubRepo.Create(s.GetContext(), s.testData.sub))
}

func (s *CashPaymentServiceSuite) recordPayment() *dto.CashPaymentResponse {
	resp, err := s.service.RecordCashPayment(s.GetContext(), &dto.RecordCashPaymentRequest{
		SubscriptionID: s.testData.sub.ID,
		Amount:         decimal.NewFromInt(29),
		Currency:       "usd",
	})
	s.NoError(err)
	return resp
}

func (s *CashPaymentServiceSuite) TestRecordCreatesPendingRecord() {
	resp := s.recordPayment()

	s.Equal(types.CashPaymentStatusPending, resp.PaymentStatus)
	s.Equal(types.DefaultUserID, resp.CollectedBy)
	s.Nil(resp.VerifiedBy)
	s.NotEmpty(resp.ReceiptNumber)

	events := s.GetAuditPublisher().EventsByAction(types.AuditActionPaymentRecorded)
	s.Len(events, 1)
}

func (s *CashPaymentServiceSuite) TestRecordRejectsUnknownSubscription() {
	_, err := s.service.RecordCashPayment(s.GetContext(), &dto.RecordCashPaymentRequest{
		SubscriptionID: "subs_missing",
		Amount:         decimal.NewFromInt(29),
		Currency:       "usd",
	})
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *CashPaymentServiceSuite) TestRecordRejectsInvalidAmount() {
	_, err := s.service.RecordCashPayment(s.GetContext(), &dto.RecordCashPaymentRequest{
		SubscriptionID: s.testData.sub.ID,
		Amount:         decimal.NewFromInt(-5),
		Currency:       "usd",
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *CashPaymentServiceSuite) TestVerifyActivatesSubscription() {
	recorded := s.recordPayment()

	resp, err := s.service.VerifyCashPayment(s.GetContext(), recorded.ID, &dto.VerifyCashPaymentRequest{
		Decision: types.PaymentDecisionVerified,
	})
	s.NoError(err)
	s.Equal(types.CashPaymentStatusVerified, resp.PaymentStatus)
	s.NotNil(resp.VerifiedBy)
	s.NotNil(resp.VerifiedAt)

	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)
	s.NotNil(sub.LastPaymentDate)

	// Period runs one cycle from today, never from the lapsed period end.
	s.WithinDuration(s.GetNow(), sub.CurrentPeriodStart, time.Minute)
	s.Equal(sub.CurrentPeriodStart.AddDate(0, 0, 30), sub.CurrentPeriodEnd)

	events := s.GetAuditPublisher().EventsByAction(types.AuditActionPaymentVerified)
	s.Len(events, 1)
}

func (s *CashPaymentServiceSuite) TestVerifyIsOneShot() {
	recorded := s.recordPayment()

	_, err := s.service.VerifyCashPayment(s.GetContext(), recorded.ID, &dto.VerifyCashPaymentRequest{
		Decision: types.PaymentDecisionVerified,
	})
	s.NoError(err)

	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)
	firstPeriodEnd := sub.CurrentPeriodEnd

	_, err = s.service.VerifyCashPayment(s.GetContext(), recorded.ID, &dto.VerifyCashPaymentRequest{
		Decision: types.PaymentDecisionVerified,
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))

	// No second extension happened.
	sub, err = s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)
	s.Equal(firstPeriodEnd, sub.CurrentPeriodEnd)
}

func (s *CashPaymentServiceSuite) TestRejectLeavesSubscriptionUntouched() {
	recorded := s.recordPayment()

	resp, err := s.service.VerifyCashPayment(s.GetContext(), recorded.ID, &dto.VerifyCashPaymentRequest{
		Decision: types.PaymentDecisionRejected,
		Notes:    "amount does not match receipt",
	})
	s.NoError(err)
	s.Equal(types.CashPaymentStatusRejected, resp.PaymentStatus)

	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusPastDue, sub.SubscriptionStatus)
	s.Nil(sub.LastPaymentDate)

	events := s.GetAuditPublisher().EventsByAction(types.AuditActionPaymentRejected)
	s.Len(events, 1)
}

func (s *CashPaymentServiceSuite) TestRejectIsTerminal() {
	recorded := s.recordPayment()

	_, err := s.service.VerifyCashPayment(s.GetContext(), recorded.ID, &dto.VerifyCashPaymentRequest{
		Decision: types.PaymentDecisionRejected,
	})
	s.NoError(err)

	_, err = s.service.VerifyCashPayment(s.GetContext(), recorded.ID, &dto.VerifyCashPaymentRequest{
		Decision: types.PaymentDecisionVerified,
	})
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *CashPaymentServiceSuite) TestSelfVerifyActivatesAndAudits() {
	resp, err := s.service.RecordCashPayment(s.GetContext(), &dto.RecordCashPaymentRequest{
		SubscriptionID: s.testData.sub.ID,
		Amount:         decimal.NewFromInt(29),
		Currency:       "usd",
		SelfVerify:     true,
	})
	s.NoError(err)
	s.Equal(types.CashPaymentStatusVerified, resp.PaymentStatus)
	s.True(resp.SelfVerified)

	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), s.testData.sub.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.SubscriptionStatus)

	warnings := s.GetAuditPublisher().EventsByAction(types.AuditActionPaymentSelfVerified)
	s.Len(warnings, 1)
	s.Equal(types.AuditStatusWarning, warnings[0].Status)
}

func (s *CashPaymentServiceSuite) TestSelfVerifyCanBeDisabled() {
	s.GetConfig().Billing.AllowSelfVerify = false
	defer func() { s.GetConfig().Billing.AllowSelfVerify = true }()

	_, err := s.service.RecordCashPayment(s.GetContext(), &dto.RecordCashPaymentRequest{
		SubscriptionID: s.testData.sub.ID,
		Amount:         decimal.NewFromInt(29),
		Currency:       "usd",
		SelfVerify:     true,
	})
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrPermissionDenied))
}

func (s *CashPaymentServiceSuite) TestGetSummary() {
	first := s.recordPayment()
	s.recordPayment()
	third := s.recordPayment()

	_, err := s.service.VerifyCashPayment(s.GetContext(), first.ID, &dto.VerifyCashPaymentRequest{
		Decision: types.PaymentDecisionVerified,
	})
	s.NoError(err)
	_, err = s.service.VerifyCashPayment(s.GetContext(), third.ID, &dto.VerifyCashPaymentRequest{
		Decision: types.PaymentDecisionRejected,
	})
	s.NoError(err)

	summary, err := s.service.GetCashPaymentSummary(s.GetContext(), time.Time{}, time.Time{})
	s.NoError(err)
	s.Equal(3, summary.TotalPayments)
	s.Equal(1, summary.VerifiedPayments)
	s.Equal(1, summary.PendingPayments)
	s.Equal(1, summary.RejectedPayments)
	s.True(summary.TotalAmount.Equal(decimal.NewFromInt(87)))
}

func (s *CashPaymentServiceSuite) TestListCashPayments() {
	s.recordPayment()
	s.recordPayment()

	resp, err := s.service.ListCashPayments(s.GetContext(), nil)
	s.NoError(err)
	s.Equal(2, resp.Total)
	s.Len(resp.Items, 2)

	status := types.CashPaymentStatusPending
	filter := types.NewCashPaymentFilter()
	filter.PaymentStatus = &status
	resp, err = s.service.ListCashPayments(s.GetContext(), filter)
	s.NoError(err)
	s.Equal(2, resp.Total)
}
