package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/loopcrm/billing/internal/api"
	"github.com/loopcrm/billing/internal/api/cron"
	v1 "github.com/loopcrm/billing/internal/api/v1"
	"github.com/loopcrm/billing/internal/audit"
	"github.com/loopcrm/billing/internal/cache"
	"github.com/loopcrm/billing/internal/config"
	"github.com/loopcrm/billing/internal/logger"
	"github.com/loopcrm/billing/internal/postgres"
	"github.com/loopcrm/billing/internal/pubsub/memory"
	"github.com/loopcrm/billing/internal/repository"
	"github.com/loopcrm/billing/internal/service"
)

// @title LoopCRM Billing API
// @version 1.0
// @description Subscription entitlement and billing state engine
// @BasePath /v1
// @schemes http https

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.Initialize,

			// Postgres
			postgres.NewClient,

			// PubSub and audit trail
			memory.NewPubSub,
			audit.NewPublisher,

			// Repositories
			repository.NewPlanRepository,
			repository.NewSubscriptionRepository,
			repository.NewPaymentRepository,
			repository.NewUsageRepository,
			repository.NewLiveCounter,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,

			service.NewPlanService,
			service.NewSubscriptionService,
			service.NewTrialService,
			service.NewEntitlementService,
			service.NewCashPaymentService,
			service.NewUsageService,
			service.NewPlanChangeService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	planService service.PlanService,
	subscriptionService service.SubscriptionService,
	trialService service.TrialService,
	entitlementService service.EntitlementService,
	paymentService service.CashPaymentService,
	usageService service.UsageService,
	planChangeService service.PlanChangeService,
) api.Handlers {
	return api.Handlers{
		Health:           v1.NewHealthHandler(logger),
		Plan:             v1.NewPlanHandler(planService, logger),
		Subscription:     v1.NewSubscriptionHandler(subscriptionService, trialService, planChangeService, logger),
		Entitlement:      v1.NewEntitlementHandler(entitlementService, logger),
		Payment:          v1.NewPaymentHandler(paymentService, logger),
		Usage:            v1.NewUsageHandler(usageService, logger),
		SubscriptionCron: cron.NewSubscriptionHandler(trialService, logger),
	}
}

func provideRouter(handlers api.Handlers) *gin.Engine {
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
