package testutil

import (
	"context"
	"time"

	"github.com/loopcrm/billing/internal/cache"
	"github.com/loopcrm/billing/internal/config"
	"github.com/loopcrm/billing/internal/domain/payment"
	"github.com/loopcrm/billing/internal/domain/plan"
	"github.com/loopcrm/billing/internal/domain/subscription"
	"github.com/loopcrm/billing/internal/domain/usage"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/postgres"
	"github.com/loopcrm/billing/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	PlanRepo    plan.Repository
	SubRepo     subscription.Repository
	PaymentRepo payment.Repository
	UsageRepo   usage.Repository
}

// BaseServiceTestSuite provides common functionality for all service test
// suites: in-memory stores, a capturing audit publisher, and a tenant-scoped
// context.
type BaseServiceTestSuite struct {
	suite.Suite
	ctx            context.Context
	stores         Stores
	auditPublisher *InMemoryAuditPublisher
	usageCounter   *FakeCounter
	db             postgres.IClient
	cache          cache.Cache
	logger         *logger.Logger
	config         *config.Configuration
	now            time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	s.config = config.GetDefaultConfig()

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.setupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupContext() {
	s.ctx = SetupContext()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		PlanRepo:    NewInMemoryPlanStore(),
		SubRepo:     NewInMemorySubscriptionStore(),
		PaymentRepo: NewInMemoryPaymentStore(),
		UsageRepo:   NewInMemoryUsageStore(),
	}

	s.db = NewMockPostgresClient(s.logger)
	s.cache = cache.NewInMemoryCache()
	s.auditPublisher = NewInMemoryAuditPublisher()
	s.usageCounter = NewFakeCounter()
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.PlanRepo.(*InMemoryPlanStore).Clear()
	s.stores.SubRepo.(*InMemorySubscriptionStore).Clear()
	s.stores.PaymentRepo.(*InMemoryPaymentStore).Clear()
	s.stores.UsageRepo.(*InMemoryUsageStore).Clear()
	s.auditPublisher.Clear()
	s.usageCounter.Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the mock postgres client
func (s *BaseServiceTestSuite) GetDB() postgres.IClient {
	return s.db
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetAuditPublisher returns the capturing audit publisher
func (s *BaseServiceTestSuite) GetAuditPublisher() *InMemoryAuditPublisher {
	return s.auditPublisher
}

// GetUsageCounter returns the fake live counter
func (s *BaseServiceTestSuite) GetUsageCounter() *FakeCounter {
	return s.usageCounter
}

// GetNow returns the current timestamp for the test
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}

// GetUUID returns a new UUID
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
