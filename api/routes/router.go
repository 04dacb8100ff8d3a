package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/franmoretti/tiendabot-backend/api/controllers"
	"github.com/franmoretti/tiendabot-backend/api/middleware"
	"github.com/franmoretti/tiendabot-backend/internal/catalog"
	"github.com/franmoretti/tiendabot-backend/internal/conversation"
	"github.com/franmoretti/tiendabot-backend/internal/schedule"
	"github.com/franmoretti/tiendabot-backend/pkg/config"
	"github.com/franmoretti/tiendabot-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   middleware.IdempotencyStore
	Conversations conversation.Service
	Catalog       catalog.Service
	Hours         schedule.HoursStore
	Metrics       http.Handler
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.WebhookIdempotency(deps.Idempotency, deps.Logger)).
			Post("/webhooks/chat", controllers.ChatWebhook(deps.Conversations, deps.Logger))

		r.Route("/admin", func(r chi.Router) {
			r.Route("/catalog", func(r chi.Router) {
				r.Get("/", controllers.AdminCatalogList(deps.Catalog, deps.Logger))
				r.Post("/", controllers.AdminCatalogUpsert(deps.Catalog, deps.Logger))
			})
			r.Route("/hours", func(r chi.Router) {
				r.Get("/", controllers.AdminHoursGet(deps.Hours, deps.Logger))
				r.Put("/", controllers.AdminHoursPut(deps.Hours, deps.Logger))
			})
			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", controllers.AdminConversationsList(deps.Conversations, deps.Logger))
				r.Get("/{conversationId}", controllers.AdminConversationDetail(deps.Conversations, deps.Logger))
				r.Post("/{conversationId}/override", controllers.AdminConversationOverride(deps.Conversations, deps.Logger))
			})
		})
	})

	return r
}
