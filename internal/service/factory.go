package service

import (
	"github.com/loopcrm/billing/internal/audit"
	"github.com/loopcrm/billing/internal/cache"
	"github.com/loopcrm/billing/internal/config"
	"github.com/loopcrm/billing/internal/domain/payment"
	"github.com/loopcrm/billing/internal/domain/plan"
	"github.com/loopcrm/billing/internal/domain/subscription"
	"github.com/loopcrm/billing/internal/domain/usage"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/postgres"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache

	AuditPublisher audit.Publisher

	// Repositories
	PlanRepo    plan.Repository
	SubRepo     subscription.Repository
	PaymentRepo payment.Repository
	UsageRepo   usage.Repository

	// UsageCounter provides live resource counts for limit checks
	UsageCounter usage.Counter
}

// NewServiceParams assembles the shared dependency bundle the services embed
func NewServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	db postgres.IClient,
	c *cache.InMemoryCache,
	auditPublisher audit.Publisher,
	planRepo plan.Repository,
	subRepo subscription.Repository,
	paymentRepo payment.Repository,
	usageRepo usage.Repository,
	usageCounter usage.Counter,
) ServiceParams {
	return ServiceParams{
		Logger:         logger,
		Config:         cfg,
		DB:             db,
		Cache:          c,
		AuditPublisher: auditPublisher,
		PlanRepo:       planRepo,
		SubRepo:        subRepo,
		PaymentRepo:    paymentRepo,
		UsageRepo:      usageRepo,
		UsageCounter:   usageCounter,
	}
}
