package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/libralend/libralend-backend/api/controllers"
	"github.com/libralend/libralend-backend/api/middleware"
	"github.com/libralend/libralend-backend/internal/alerts"
	"github.com/libralend/libralend-backend/internal/auth"
	"github.com/libralend/libralend-backend/internal/books"
	"github.com/libralend/libralend-backend/internal/lending"
	"github.com/libralend/libralend-backend/internal/stats"
	"github.com/libralend/libralend-backend/internal/users"
	"github.com/libralend/libralend-backend/pkg/auth/session"
	"github.com/libralend/libralend-backend/pkg/config"
	"github.com/libralend/libralend-backend/pkg/db"
	"github.com/libralend/libralend-backend/pkg/enums"
	"github.com/libralend/libralend-backend/pkg/logger"
	"github.com/libralend/libralend-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services bundles the domain layer the router exposes.
type Services struct {
	Auth    auth.Service
	Books   books.Service
	Users   users.Service
	Lending lending.Service
	Alerts  alerts.Service
	Stats   stats.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessDep{Name: "postgres", Pinger: dbP},
			controllers.ReadinessDep{Name: "redis", Pinger: redisClient},
		))
	})

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(svcs.Auth, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(svcs.Auth, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.StaffPing())

		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.ListBooks(svcs.Books, logg))
			r.Post("/", controllers.CreateBook(svcs.Books, logg))
			r.Get("/{bookId}", controllers.GetBook(svcs.Books, logg))
			r.Patch("/{bookId}", controllers.UpdateBook(svcs.Books, logg))
			r.Delete("/{bookId}", controllers.DeleteBook(svcs.Books, logg))
			r.Post("/{bookId}/restock", controllers.RestockBook(svcs.Books, logg))
			r.Post("/{bookId}/cover/presign", controllers.PresignBookCover(svcs.Books, logg))
		})

		r.Route("/users", func(r chi.Router) {
			adminOnly := middleware.RequireRole(string(enums.StaffRoleAdmin), logg)

			r.Get("/", controllers.ListUsers(svcs.Users, logg))
			r.With(adminOnly).Post("/", controllers.CreateMember(svcs.Users, logg))
			r.Get("/{userId}", controllers.GetUser(svcs.Users, logg))
			r.With(adminOnly).Patch("/{userId}/active", controllers.SetUserActive(svcs.Users, logg))
			r.Get("/{userId}/requests", controllers.UserRequests(svcs.Lending, logg))
			r.Get("/{userId}/stats", controllers.UserStats(svcs.Lending, logg))
		})

		r.Route("/borrow-requests", func(r chi.Router) {
			r.Get("/pending", controllers.PendingBorrowRequests(svcs.Lending, logg))
			r.Post("/", controllers.CreateBorrowRequest(svcs.Lending, logg))
			r.Get("/{requestId}", controllers.GetLendingRequest(svcs.Lending, logg))
			r.Post("/{requestId}/approve", controllers.ApproveBorrowRequest(svcs.Lending, logg))
			r.Post("/{requestId}/reject", controllers.RejectBorrowRequest(svcs.Lending, logg))
			r.Post("/{requestId}/return", controllers.FlagReturnRequest(svcs.Lending, logg))
		})

		r.Route("/return-requests", func(r chi.Router) {
			r.Get("/pending", controllers.PendingReturnRequests(svcs.Lending, logg))
			r.Post("/{requestId}/process", controllers.ProcessReturnRequest(svcs.Lending, logg))
		})

		r.Route("/penalties", func(r chi.Router) {
			r.Get("/", controllers.Penalties(svcs.Lending, logg))
			r.Post("/{requestId}/paid", controllers.MarkPenaltyPaid(svcs.Lending, logg))
		})

		r.Get("/history", controllers.History(svcs.Lending, logg))

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", controllers.ListAlerts(svcs.Alerts, logg))
			r.Post("/{alertId}/read", controllers.MarkAlertRead(svcs.Alerts, logg))
			r.Post("/read-all", controllers.MarkAllAlertsRead(svcs.Alerts, logg))
		})

		r.Get("/stats/catalog", controllers.CatalogStats(svcs.Stats, logg))
	})

	return r
}
