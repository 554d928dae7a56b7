package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"worklog/config"
	"worklog/database"
	"worklog/handlers"
	"worklog/identity"
	"worklog/jira"
	"worklog/middleware"
	"worklog/secrets"
	"worklog/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := newLogger(cfg)
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer log.Sync()

	db, err := database.Init(cfg.DatabaseURL, !cfg.IsProduction())
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	var box *secrets.Box
	if cfg.TokenSealKey != "" {
		box, err = secrets.NewBox(cfg.TokenSealKey)
		if err != nil {
			log.Fatal("invalid token seal key", zap.Error(err))
		}
	} else {
		log.Warn("TOKEN_SEAL_KEY not set, tracker tokens stored unsealed")
	}

	entries := store.NewWorklogStore(db, log)
	configs := store.NewJiraConfigStore(db, box, log)

	idClient := identity.NewClient(cfg.Supabase.URL, cfg.Supabase.PublishableKey, log)
	var admin middleware.AdminLookup
	if ac := identity.NewAdminClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey); ac != nil {
		admin = ac
	}
	auth := middleware.NewAuthenticator(cfg.JWTSecret, idClient, admin, log)

	submitter := jira.NewClient(configs, cfg.Jira.Timeout, log)

	statusHandler := handlers.NewStatusHandler(db, cfg.Env)
	authHandler := handlers.NewAuthHandler(idClient, cfg.FrontendURL, log)
	worklogHandler := handlers.NewWorklogHandler(entries, log)
	jiraHandler := handlers.NewJiraHandler(entries, configs, submitter, log)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public routes
	router.Get("/health", statusHandler.Health)
	router.Get("/api/status", statusHandler.APIStatus)
	router.Get("/api/db/status", statusHandler.DBStatus)

	router.Route("/api/auth", func(r chi.Router) {
		r.Get("/google", authHandler.GoogleAuth)
		r.Get("/google/redirect", authHandler.GoogleRedirect)
		r.Post("/callback", authHandler.Callback)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)
			r.Get("/me", authHandler.Me)
		})
	})

	// Protected routes
	router.Route("/api/worklog", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/range", worklogHandler.GetRange)

		r.Get("/jira/config", jiraHandler.GetConfig)
		r.Put("/jira/config", jiraHandler.UpdateConfig)

		r.Get("/entries/{entryID}", worklogHandler.GetEntry)
		r.Patch("/entries/{entryID}", worklogHandler.UpdateEntry)
		r.Delete("/entries/{entryID}", worklogHandler.DeleteEntry)

		r.Get("/{date}", worklogHandler.GetDay)
		r.Put("/{date}", worklogHandler.SaveDay)
		r.Post("/{date}/entries", worklogHandler.CreateEntry)
		r.Post("/{date}/entries/{entryID}/log-to-jira", jiraHandler.LogEntry)
		r.Post("/{date}/bulk-log-to-jira", jiraHandler.BulkLog)
	})

	log.Info("server starting",
		zap.String("addr", cfg.ServerAddr()),
		zap.String("env", cfg.Env))
	if err := http.ListenAndServe(cfg.ServerAddr(), router); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
