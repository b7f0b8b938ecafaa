package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/coursehub-backend/api/controllers"
	"github.com/angelmondragon/coursehub-backend/api/middleware"
	"github.com/angelmondragon/coursehub-backend/pkg/config"
	"github.com/angelmondragon/coursehub-backend/pkg/enums"
	"github.com/angelmondragon/coursehub-backend/pkg/logger"
)

// Services groups what the admin API serves. Metrics is mounted at /metrics
// when set.
type Services struct {
	Settlement   controllers.SettlementService
	Runs         controllers.RunLister
	Invoices     controllers.InvoiceReader
	FeeSchedules controllers.FeeScheduleService
	Ready        map[string]controllers.Pinger
	Metrics      http.Handler
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, svc.Ready))
	})
	if svc.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", svc.Metrics)
	}

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.StaffRoles()...))

		adminOnly := middleware.RequireRole(logg, enums.MemberRoleAdmin)

		r.Route("/settlements", func(r chi.Router) {
			r.With(adminOnly).Post("/", controllers.AdminGenerateInvoices(svc.Settlement, logg))
			r.Get("/{year}/{month}/invoices", controllers.AdminPeriodInvoices(svc.Settlement, logg))
			r.Get("/{year}/{month}/export", controllers.AdminExportInvoices(svc.Settlement, logg))
			r.Get("/{year}/{month}/runs", controllers.AdminPeriodRuns(svc.Runs, logg))
		})

		r.Route("/tenants/{tenantId}/invoices", func(r chi.Router) {
			r.Get("/", controllers.AdminTenantInvoices(svc.Invoices, logg))
			r.Get("/{year}/{month}", controllers.AdminTenantInvoice(svc.Invoices, logg))
			r.With(adminOnly).Post("/{year}/{month}/paid", controllers.AdminMarkInvoicePaid(svc.Invoices, logg))
		})

		r.Route("/fee-schedule", func(r chi.Router) {
			r.Get("/", controllers.AdminCurrentFeeSchedule(svc.FeeSchedules, logg))
			r.Get("/history", controllers.AdminFeeScheduleHistory(svc.FeeSchedules, logg))
			r.With(adminOnly).Post("/", controllers.AdminSaveFeeSchedule(svc.FeeSchedules, logg))
		})
	})

	return r
}
