package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/taakra/engine/internal/api/handlers"
	mw "github.com/taakra/engine/internal/api/middleware"
	"github.com/taakra/engine/internal/metrics"
	"github.com/taakra/engine/internal/models"
)

type Dependencies struct {
	Authenticator mw.Authenticator
	CORSOrigins   []string
	RateLimiter   *mw.RateLimiter

	AuthHandler         *handlers.AuthHandler
	CompetitionsHandler *handlers.CompetitionsHandler
	CategoriesHandler   *handlers.CategoriesHandler
	UsersHandler        *handlers.UsersHandler
	ChatHandler         *handlers.ChatHandler
	ChatbotHandler      *handlers.ChatbotHandler
	HealthHandler       *handlers.HealthHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS(dep.CORSOrigins))
	if dep.RateLimiter != nil {
		r.Use(dep.RateLimiter.Handler)
	}
	r.Use(chimid.Compress(5))

	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	authenticated := mw.Auth(dep.Authenticator)
	admin := mw.RequireRoles(models.RoleAdmin)

	r.Route("/api", func(api chi.Router) {
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", dep.AuthHandler.Register)
			ar.Post("/login", dep.AuthHandler.Login)
			ar.Post("/logout", dep.AuthHandler.Logout)
			ar.Post("/refresh-token", dep.AuthHandler.Refresh)
			ar.Get("/google", dep.AuthHandler.Google)
			ar.Get("/google/callback", dep.AuthHandler.GoogleCallback)
			ar.With(authenticated).Get("/me", dep.AuthHandler.Me)
		})

		api.Route("/competitions", func(cr chi.Router) {
			cr.Get("/", dep.CompetitionsHandler.List)
			cr.Get("/{id}", dep.CompetitionsHandler.Get)

			cr.Group(func(pr chi.Router) {
				pr.Use(authenticated)
				pr.Post("/{id}/register", dep.CompetitionsHandler.Register)

				pr.Group(func(ad chi.Router) {
					ad.Use(admin)
					ad.Post("/", dep.CompetitionsHandler.Create)
					ad.Put("/{id}", dep.CompetitionsHandler.Update)
					ad.Delete("/{id}", dep.CompetitionsHandler.Delete)
					ad.Get("/{id}/registrations", dep.CompetitionsHandler.Registrations)
					ad.Patch("/{id}/registrations/{userId}", dep.CompetitionsHandler.UpdateRegistrationStatus)
				})
			})
		})

		api.Route("/categories", func(cr chi.Router) {
			cr.Get("/", dep.CategoriesHandler.List)
			cr.Get("/{id}", dep.CategoriesHandler.Get)

			cr.Group(func(ad chi.Router) {
				ad.Use(authenticated, admin)
				ad.Post("/", dep.CategoriesHandler.Create)
				ad.Put("/{id}", dep.CategoriesHandler.Update)
				ad.Delete("/{id}", dep.CategoriesHandler.Delete)
			})
		})

		api.Route("/users", func(ur chi.Router) {
			ur.Use(authenticated)
			ur.Get("/my-competitions", dep.UsersHandler.MyCompetitions)
			ur.Put("/profile", dep.UsersHandler.UpdateProfile)
			ur.Put("/change-password", dep.UsersHandler.ChangePassword)

			ur.Group(func(ad chi.Router) {
				ad.Use(admin)
				ad.Get("/", dep.UsersHandler.List)
				ad.Get("/{id}", dep.UsersHandler.Get)
				ad.Put("/{id}/role", dep.UsersHandler.UpdateRole)
				ad.Delete("/{id}", dep.UsersHandler.Delete)
			})
		})

		api.Route("/chat", func(ch chi.Router) {
			ch.Use(authenticated)
			ch.With(mw.RequireRoles(models.RoleAdmin, models.RoleSupport)).Get("/rooms", dep.ChatHandler.Rooms)
			ch.Get("/{roomId}", dep.ChatHandler.History)
		})

		api.Route("/chatbot", func(cb chi.Router) {
			cb.Use(authenticated)
			cb.Post("/message", dep.ChatbotHandler.Message)
			cb.Delete("/history", dep.ChatbotHandler.ClearHistory)
		})
	})

	return r
}
