package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mavi-pizzeria/api/internal/cache"
	"github.com/mavi-pizzeria/api/internal/config"
	"github.com/mavi-pizzeria/api/internal/database"
	"github.com/mavi-pizzeria/api/internal/events"
	"github.com/mavi-pizzeria/api/internal/handler"
	mw "github.com/mavi-pizzeria/api/internal/middleware"
	"github.com/mavi-pizzeria/api/internal/payment"
	"github.com/mavi-pizzeria/api/internal/printjob"
	"github.com/mavi-pizzeria/api/internal/service"
	"github.com/mavi-pizzeria/api/internal/ws"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Deps are the long-lived components the process owns. The router builds
// the request-scoped services on top of them.
type Deps struct {
	Pool      *pgxpool.Pool
	Hub       *ws.Hub
	Queue     *printjob.Queue
	Printers  *printjob.Printers
	Providers *payment.Registry
	Cache     cache.Cache
	Publisher events.Publisher
	Tasks     *service.Tasks
	// Metrics serves /metrics. Nil leaves the route out.
	Metrics http.Handler
}

// New creates a Chi router with all application routes wired up under /api.
func New(cfg *config.Config, d Deps) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(otelhttp.NewMiddleware("http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	))
	r.Use(mw.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", mw.APIKeyHeader, "Stripe-Signature"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	// Real-time channel (origin or printer secret checked in the handshake)
	r.Handle("/ws", ws.NewGateway(d.Hub, ws.GatewayConfig{
		JWTSecret:      cfg.JWT.Secret,
		PrinterSecret:  cfg.Printer.SecretKey,
		AllowedOrigins: cfg.AllowedOrigins(),
		DefaultStoreID: cfg.Printer.StoreID,
	}, d.Printers))

	queries := database.New(d.Pool)
	menuCache := d.Cache
	if menuCache == nil {
		menuCache = cache.Noop{}
	}
	publisher := d.Publisher
	if publisher == nil {
		publisher = events.Noop{}
	}

	// Services
	newOrderStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	notifier := service.NewNotifier(d.Hub)
	lifecycle := service.NewLifecycle(d.Pool, queries, newOrderStore, notifier, d.Queue, publisher, d.Tasks)
	orderService := service.NewOrderService(
		d.Pool,
		newOrderStore,
		service.NewOrderValidator(queries),
		d.Providers,
		notifier,
		publisher,
		d.Tasks,
	)
	paymentService := service.NewPaymentService(queries, d.Providers, lifecycle)

	// Handlers
	authHandler := handler.NewAuthHandler(queries, handler.TokenConfig{
		Secret:        cfg.JWT.Secret,
		TTL:           cfg.JWT.ExpiresIn,
		RefreshSecret: cfg.JWT.RefreshSecret,
		RefreshTTL:    cfg.JWT.RefreshExpiresIn,
	})
	orderHandler := handler.NewOrderHandler(orderService, lifecycle, queries, cfg.JWT.Secret, cfg.Location())
	printerHandler := handler.NewPrinterHandler(d.Queue, d.Printers, d.Hub, cfg.Printer.SecretKey, cfg.Printer.StoreID)

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", authHandler.RegisterRoutes)
		r.Route("/menu", handler.NewMenuHandler(queries, menuCache).RegisterRoutes)
		r.Route("/orders", orderHandler.RegisterRoutes)
		r.Route("/payments", handler.NewPaymentHandler(paymentService, cfg.JWT.Secret).RegisterRoutes)
		r.Route("/webhooks", handler.NewWebhookHandler(lifecycle, cfg.Webhook.Secret).RegisterRoutes)

		// Printer agents (API key checked inside)
		r.Route("/printer", printerHandler.RegisterRoutes)

		// Customer routes
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWT.Secret))
			r.Route("/users", handler.NewUserHandler(queries).RegisterRoutes)
		})

		// Staff routes
		r.Route("/admin", func(r chi.Router) {
			r.Route("/auth", authHandler.RegisterAdminRoutes)

			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(cfg.JWT.Secret))
				r.Use(mw.RequireAdmin)

				r.Route("/categories", handler.NewCategoryHandler(queries, menuCache).RegisterRoutes)
				r.Route("/products", handler.NewProductHandler(queries, menuCache).RegisterRoutes)
				r.Route("/ingredients", handler.NewIngredientHandler(queries, menuCache).RegisterRoutes)
				r.Route("/orders", orderHandler.RegisterAdminRoutes)
				r.Route("/users", handler.NewCustomerHandler(queries).RegisterRoutes)
				r.Route("/print", printerHandler.RegisterAdminRoutes)
				r.Route("/upload", handler.NewUploadHandler(cfg.Upload.Dir, cfg.Upload.MaxBytes).RegisterRoutes)
			})
		})
	})

	zap.L().Info("router initialized", zap.Strings("origins", cfg.AllowedOrigins()))
	return r
}
