package repository

import (
	"github.com/loopcrm/billing/internal/cache"
	"github.com/loopcrm/billing/internal/domain/payment"
	"github.com/loopcrm/billing/internal/domain/plan"
	"github.com/loopcrm/billing/internal/domain/subscription"
	"github.com/loopcrm/billing/internal/domain/usage"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/postgres"
	postgresRepo "github.com/loopcrm/billing/internal/repository/postgres"
)

func NewPlanRepository(db postgres.IClient, logger *logger.Logger, c *cache.InMemoryCache) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger, c)
}

func NewSubscriptionRepository(db postgres.IClient, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewPaymentRepository(db postgres.IClient, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewUsageRepository(db postgres.IClient, logger *logger.Logger) usage.Repository {
	return postgresRepo.NewUsageRepository(db, logger)
}

func NewLiveCounter(db postgres.IClient, logger *logger.Logger) usage.Counter {
	return postgresRepo.NewLiveCounter(db, logger)
}
