package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/quoteflow-backend/api/controllers"
	"github.com/angelmondragon/quoteflow-backend/api/middleware"
	"github.com/angelmondragon/quoteflow-backend/internal/bootstrap"
	"github.com/angelmondragon/quoteflow-backend/pkg/config"
	"github.com/angelmondragon/quoteflow-backend/pkg/db"
	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/quoteflow-backend/pkg/redis"
)

// Store is the redis surface the command middleware needs. *redis.Client
// satisfies it.
type Store interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store Store,
	stack *bootstrap.Stack,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	commandPolicy := middleware.NewRateLimitPolicy(
		"commands",
		cfg.RateLimit.Window,
		cfg.RateLimit.IPLimit,
		cfg.RateLimit.ActorLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": store,
		}))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	wf := stack.Workflow
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, stack.Users, logg))
		r.Use(middleware.Idempotency(store, logg))
		r.Use(middleware.RateLimit(commandPolicy, store, logg))

		r.Route("/inquiries", func(r chi.Router) {
			r.Get("/", controllers.ListInquiries(wf, logg))
			r.Post("/", controllers.CreateInquiry(wf, logg))
			r.Route("/{inquiryId}", func(r chi.Router) {
				r.Get("/", controllers.GetInquiry(wf, logg))
				r.Post("/submit", controllers.SubmitInquiry(wf, logg))
				r.Post("/cancel", controllers.CancelInquiry(wf, logg))
				r.Post("/quotes", controllers.GenerateQuote(wf, logg))
			})
		})

		r.Route("/items", func(r chi.Router) {
			r.Post("/assign", controllers.AssignItems(wf, logg))
			r.Post("/unassign", controllers.UnassignItems(wf, logg))
			r.Put("/{itemId}/cost", controllers.RecordCost(wf, logg))
		})
		r.Post("/costs/{costId}/approval", controllers.RequestCostApproval(wf, logg))
		r.Post("/approvals/{approvalId}/decision", controllers.DecideApproval(wf, logg))

		r.Route("/quotes/{quoteId}", func(r chi.Router) {
			r.Get("/", controllers.GetQuote(wf, logg))
			r.Post("/send", controllers.SendQuote(wf, logg))
			r.Post("/outcome", controllers.RecordQuoteOutcome(wf, logg))
		})

		r.Route("/production-orders/{orderId}", func(r chi.Router) {
			r.Get("/", controllers.GetProductionOrder(wf, logg))
			r.Post("/advance", controllers.AdvanceProductionOrder(wf, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.ListCustomers(stack.Customers, logg))
			r.Post("/", controllers.CreateCustomer(stack.Customers, logg))
			r.Get("/{customerId}", controllers.GetCustomer(stack.Customers, logg))
		})

		r.Get("/workload", controllers.Workload(stack.Balancer, stack.Policy, logg))

		r.Route("/automation", func(r chi.Router) {
			r.Route("/rules", func(r chi.Router) {
				r.Get("/", controllers.ListAutomationRules(stack.Rules, logg))
				r.Post("/", controllers.CreateAutomationRule(stack.Rules, logg))
				r.Route("/{ruleId}", func(r chi.Router) {
					r.Get("/", controllers.GetAutomationRule(stack.Rules, logg))
					r.Put("/", controllers.UpdateAutomationRule(stack.Rules, logg))
					r.Delete("/", controllers.DeleteAutomationRule(stack.Rules, logg))
					r.Post("/activation", controllers.SetAutomationRuleActive(stack.Rules, logg))
				})
			})
			r.Get("/logs", controllers.ListAutomationLogs(stack.Rules, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(stack.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(stack.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(stack.Notifications, logg))
		})
	})

	return r
}
