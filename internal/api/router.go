package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/loopcrm/billing/internal/api/cron"
	v1 "github.com/loopcrm/billing/internal/api/v1"
	"github.com/loopcrm/billing/internal/rest/middleware"
)

type Handlers struct {
	Health           *v1.HealthHandler
	Plan             *v1.PlanHandler
	Subscription     *v1.SubscriptionHandler
	Entitlement      *v1.EntitlementHandler
	Payment          *v1.PaymentHandler
	Usage            *v1.UsageHandler
	SubscriptionCron *cron.SubscriptionHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)
	router.GET("/v1/health", handlers.Health.Health)

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	// Plan catalog is not tenant scoped
	plans := router.Group("/plans")
	{
		plans.GET("", handlers.Plan.ListPlans)
		plans.GET("/:id", handlers.Plan.GetPlan)
	}

	// Cron routes are invoked by the scheduler, not by tenants
	cronGroup := router.Group("/cron")
	{
		cronGroup.POST("/subscriptions/sweep", handlers.SubscriptionCron.SweepSubscriptions)
	}

	tenant := router.Group("", middleware.TenantMiddleware)

	subscriptions := tenant.Group("/subscriptions")
	{
		subscriptions.POST("", handlers.Subscription.CreateSubscription)
		subscriptions.GET("/current", handlers.Subscription.GetCurrent)
		subscriptions.GET("/status", handlers.Subscription.GetStatus)
		subscriptions.POST("/cancel", handlers.Subscription.Cancel)
		subscriptions.POST("/plan", handlers.Subscription.ChangePlan)
	}

	entitlement := tenant.Group("/entitlement")
	{
		entitlement.GET("/features/:feature", handlers.Entitlement.CheckFeatureAccess)
		entitlement.GET("/modules/:module", handlers.Entitlement.CheckModuleAccess)
	}

	payments := tenant.Group("/payments/cash")
	{
		payments.POST("", handlers.Payment.RecordCashPayment)
		payments.GET("", handlers.Payment.ListCashPayments)
		payments.GET("/summary", handlers.Payment.GetSummary)
		payments.POST("/:id/verify", handlers.Payment.VerifyCashPayment)
	}

	usage := tenant.Group("/usage")
	{
		usage.GET("", handlers.Usage.GetUsageSummary)
		usage.POST("", handlers.Usage.RecordUsage)
		usage.GET("/:resource_type", handlers.Usage.CheckUsageLimit)
	}
}
