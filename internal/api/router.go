package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/rankontop/backend/internal/api/handlers"
	"github.com/rankontop/backend/internal/auth"
	"github.com/rankontop/backend/internal/metrics"
	"github.com/rankontop/backend/internal/middleware/ratelimit"
	"github.com/rankontop/backend/internal/middleware/security"
	"github.com/rankontop/backend/internal/middleware/validation"
	"github.com/rankontop/backend/internal/quota"
	"github.com/rankontop/backend/pkg/logger"
)

// Store is everything the HTTP layer needs from persistence.
type Store interface {
	handlers.HistoryStore
	handlers.UserStore
	handlers.Pinger
}

type Deps struct {
	Analyzer    handlers.Analyzer
	Store       Store
	Tokens      *auth.Tokens
	RateLimiter *ratelimit.RateLimiter
	Gate        *quota.Gate

	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	BodyLimit      int
	AllowedOrigins []string
	IsDevelopment  bool
	AccessLog      bool
	EnableMetrics  bool
}

// NewApp wires middleware and routes. All routing lives here.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           d.ReadTimeout,
		WriteTimeout:          d.WriteTimeout,
		BodyLimit:             d.BodyLimit,
		DisableStartupMessage: true,
	})

	origins := "*"
	if len(d.AllowedOrigins) > 0 {
		origins = strings.Join(d.AllowedOrigins, ", ")
	}

	app.Use(recover.New())
	if d.AccessLog {
		app.Use(fiberlogger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: d.AllowedOrigins,
		IsDevelopment:  d.IsDevelopment,
	}))

	health := handlers.NewHealthHandler(d.Store)
	authHandler := handlers.NewAuthHandler(d.Store, d.Tokens)
	analysisHandler := handlers.NewAnalysisHandler(d.Analyzer, d.Store, d.Gate)
	wsHandler := handlers.NewWebSocketHandler(d.Analyzer, 0)

	requireAuth := auth.Middleware(d.Tokens)
	limit := func(c *fiber.Ctx) error { return c.Next() }
	if d.RateLimiter != nil {
		limit = d.RateLimiter.Middleware()
	}

	app.Get("/", health.Live)
	app.Get("/health", health.Ready)
	if d.EnableMetrics {
		app.Get("/metrics", metrics.MetricsHandler())
	}

	app.Post("/register", limit, validation.CredentialsBody(), authHandler.Register)
	app.Post("/login", limit, validation.CredentialsBody(), authHandler.Login)

	app.Post("/analyze", requireAuth, limit,
		validation.AnalyzeBody(validation.Config{Logger: logger.Named("validation")}),
		analysisHandler.HandleAnalyze,
	)
	app.Get("/analyses", requireAuth, analysisHandler.ListAnalyses)

	app.Get("/ws/analyze", websocketUpgrade, tokenFromQuery, requireAuth, limit,
		websocket.New(wsHandler.HandleConnection),
	)

	return app
}

func websocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// tokenFromQuery lets browser sockets, which cannot set headers, pass the
// bearer token as ?access_token=.
func tokenFromQuery(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		if token := c.Query("access_token"); token != "" {
			c.Request().Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
	}
	return c.Next()
}
