package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mealsync/api/internal/booking"
	"github.com/mealsync/api/internal/clock"
	"github.com/mealsync/api/internal/config"
	"github.com/mealsync/api/internal/handler"
	"github.com/mealsync/api/internal/lifecycle"
	mw "github.com/mealsync/api/internal/middleware"
	"github.com/mealsync/api/internal/service"
	"github.com/mealsync/api/internal/session"
	"github.com/mealsync/api/internal/store"
	"github.com/mealsync/api/internal/ws"
)

// Deps are the long-lived components the routes are built on.
type Deps struct {
	Store     *store.Store
	Clock     clock.Clock
	Sessions  *session.Manager
	Simulator *lifecycle.Simulator
	Hub       *ws.Hub

	// Notifier defaults to pushing through Hub.
	Notifier service.Notifier
}

// New creates a Chi router with all application routes wired up.
// Session routes require a bearer token of a user who is signed in; user
// record routes require the token to belong to the user in the path.
func New(cfg *config.Config, d Deps) chi.Router {
	st, c, sessions, hub := d.Store, d.Clock, d.Sessions, d.Hub
	notifier := d.Notifier
	if notifier == nil {
		notifier = service.NewHubNotifier(hub)
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/notifications", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	accounts := service.NewAccountService(st, sessions, c)
	menus := service.NewMenuService(st, sessions, c)
	purchases := service.NewPurchaseService(st, sessions, notifier, c, service.PurchaseConfig{
		Delay:          cfg.DirectBuyDelay,
		CreditsPerUnit: cfg.GreenCreditsPerUnit,
	})
	meetings := service.NewMeetingService(st, sessions, d.Simulator, notifier, c)
	machine := booking.NewMachine(st, c, booking.Cutoff{Hour: cfg.PrebookCutoffHour, Minute: cfg.PrebookCutoffMinute})
	prebooks := service.NewPrebookService(machine, sessions, notifier)

	// Handlers
	authHandler := handler.NewAuthHandler(accounts, cfg.JWTSecret)
	menuHandler := handler.NewMenuHandler(st, menus, sessions, notifier)
	userHandler := handler.NewUserHandler(accounts, notifier)
	prebookHandler := handler.NewPrebookHandler(st, prebooks, notifier)
	purchaseHandler := handler.NewPurchaseHandler(purchases, notifier)
	meetingHandler := handler.NewMeetingHandler(meetings, notifier)
	sessionHandler := handler.NewSessionHandler(sessions)

	r.Route("/api", func(r chi.Router) {
		// Public record routes
		authHandler.RegisterRoutes(r)
		menuHandler.RegisterRoutes(r)
		prebookHandler.RegisterRoutes(r)
		sessionHandler.RegisterRoutes(r)

		r.Route("/user/{userId}", func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireSelf("userId"))
			userHandler.RegisterRoutes(r)
		})

		r.Route("/session", func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))
			r.Use(mw.RequireSignedIn(sessions))
			sessionHandler.RegisterSessionRoutes(r)
			authHandler.RegisterSessionRoutes(r)
			menuHandler.RegisterSessionRoutes(r)
			userHandler.RegisterSessionRoutes(r)
			prebookHandler.RegisterSessionRoutes(r)
			purchaseHandler.RegisterSessionRoutes(r)
			meetingHandler.RegisterSessionRoutes(r)
		})
	})

	return r
}
