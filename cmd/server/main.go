package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/clubedasmusas/backend/internal/config"
	"github.com/clubedasmusas/backend/internal/handlers"
	appMiddleware "github.com/clubedasmusas/backend/internal/middleware"
	"github.com/clubedasmusas/backend/internal/services"
	"github.com/clubedasmusas/backend/internal/storage"
)

func main() {
	// Local development convenience; Cloud Run injects real env vars.
	_ = godotenv.Load()

	cfg := config.Load()
	ctx := context.Background()

	// Firebase Auth (server-side verification of ID tokens)
	authClient, err := appMiddleware.NewFirebaseAuthClient(ctx, appMiddleware.FirebaseAuthConfig{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
	})
	if err != nil {
		log.Printf("Warning: failed to initialize Firebase Auth client: %v", err)
	}

	// Mongo-backed services
	profileService, err := services.NewMongoProfileService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("profile service: %v", err)
	}
	flagService, err := services.NewMongoFlagService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("flag service: %v", err)
	}
	logService, err := services.NewMongoLogService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("log service: %v", err)
	}
	challengeService, err := services.NewMongoChallengeService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("challenge service: %v", err)
	}
	postService, err := services.NewMongoPostService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("post service: %v", err)
	}
	lessonService, err := services.NewMongoLessonService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("lesson service: %v", err)
	}
	adminService, err := services.NewMongoAdminService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("admin service: %v", err)
	}
	reportService, err := services.NewMongoReportService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("report service: %v", err)
	}
	accountService, err := services.NewMongoAccountService(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("account service: %v", err)
	}

	// Redis rate limiter for login and report abuse protection. Optional:
	// without Redis those endpoints run unthrottled.
	var limiter *services.RateLimiter
	if cfg.RedisAddr != "" {
		limiter, err = services.NewRateLimiter(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Printf("Warning: rate limiter disabled: %v", err)
			limiter = nil
		}
	}

	// Storage moderation for account-deletion cleanup. Optional in local dev.
	var moderationService *services.ModerationService
	if cfg.StorageBucket != "" {
		moderationService, err = services.NewModerationService(ctx, cfg.StorageBucket, nil)
		if err != nil {
			log.Printf("Warning: storage cleanup disabled: %v", err)
			moderationService = nil
		}
	}

	exportWriter, err := storage.NewExportWriter(cfg.ExportDir)
	if err != nil {
		log.Printf("Warning: exports disabled: %v", err)
		exportWriter = nil
	}

	recaptcha := services.NewRecaptchaVerifier(cfg.RecaptchaSecret)
	mailer := services.NewSendGridMailer(cfg.SendGridAPIKey, cfg.ReportFromEmail, cfg.ReportToEmail)

	// Handlers
	profileHandler := handlers.NewProfileHandler(profileService, authClient)
	logHandler := handlers.NewLogHandler(logService)
	challengeHandler := handlers.NewChallengeHandler(challengeService, profileService)
	feedHandler := handlers.NewFeedHandler(postService, flagService)
	lessonHandler := handlers.NewLessonHandler(lessonService)
	reportHandler := handlers.NewReportHandler(reportService, recaptcha, mailer, limiter)
	accountHandler := handlers.NewAccountHandler(accountService, moderationService)
	adminHandler := handlers.NewAdminHandler(adminService, profileService, flagService, limiter, cfg.AdminJWTSecret, cfg.AdminJWTExpiration)
	adminContentHandler := handlers.NewAdminContentHandler(challengeService, lessonService, postService, reportService, profileService, flagService, exportWriter)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		// App routes: Firebase identity plus the ban gate. Profile and account
		// deletion stay reachable for banned users, everything else is gated.
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.FirebaseAuth(authClient))

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", profileHandler.GetProfile)
				r.Put("/", profileHandler.UpsertProfile)
				r.Post("/weights", profileHandler.AddWeight)
			})
			r.Delete("/account", accountHandler.DeleteAccount)

			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.AccessGate(flagService))

				r.Get("/users/{userId}", profileHandler.GetPublicProfileByUserID)

				r.Route("/logs", func(r chi.Router) {
					r.Get("/today", logHandler.GetToday)
					r.Patch("/today/{field}", logHandler.ToggleCheck)
					r.Put("/today/note", logHandler.SetNote)
					r.Get("/calendar", logHandler.GetCalendar)
					r.Get("/consistency", logHandler.GetConsistency)
				})

				r.Route("/challenges", func(r chi.Router) {
					r.Get("/", challengeHandler.List)
					r.Get("/stats", challengeHandler.MyStats)
					r.Post("/{challengeId}/join", challengeHandler.Join)
					r.Put("/{challengeId}/progress", challengeHandler.UpdateProgress)
				})

				r.Route("/feed", func(r chi.Router) {
					r.Get("/", feedHandler.List)
					r.Post("/", feedHandler.CreatePost)
					r.Route("/{postId}", func(r chi.Router) {
						r.Delete("/", feedHandler.DeletePost)
						r.Post("/like", feedHandler.Like)
						r.Delete("/like", feedHandler.Unlike)
					})
				})

				r.Route("/lessons", func(r chi.Router) {
					r.Get("/", lessonHandler.List)
					r.Post("/{lessonId}/watched", lessonHandler.MarkWatched)
				})

				r.Post("/reports", reportHandler.SubmitReport)
			})
		})

		// Admin panel routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", adminHandler.Login)

			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.AdminJWTAuth(cfg.AdminJWTSecret))

				r.Get("/users", adminHandler.ListUsers)
				r.Route("/users/{userId}", func(r chi.Router) {
					r.Post("/mute", adminHandler.MuteUser)
					r.Post("/mute-permanent", adminHandler.MuteUserPermanently)
					r.Post("/unmute", adminHandler.UnmuteUser)
					r.Post("/ban-feed", adminHandler.BanUserFromFeed)
					r.Post("/ban-app", adminHandler.BanUserFromApp)
					r.Post("/ban-permanent", adminHandler.BanUserPermanently)
					r.Post("/unban", adminHandler.UnbanUser)
					r.Post("/penalize", adminHandler.PenalizeUser)
				})

				r.Route("/challenges", func(r chi.Router) {
					r.Post("/", adminContentHandler.CreateChallenge)
					r.Put("/{challengeId}", adminContentHandler.UpdateChallenge)
					r.Delete("/{challengeId}", adminContentHandler.DeleteChallenge)
				})

				r.Route("/lessons", func(r chi.Router) {
					r.Post("/", adminContentHandler.CreateLesson)
					r.Put("/{lessonId}", adminContentHandler.UpdateLesson)
					r.Delete("/{lessonId}", adminContentHandler.DeleteLesson)
				})

				r.Delete("/posts/{postId}", adminContentHandler.DeletePost)
				r.Get("/reports", adminContentHandler.ListReports)
				r.Get("/dashboard", adminContentHandler.Dashboard)
				r.Post("/export", adminContentHandler.Export)
			})
		})
	})

	log.Printf("Clube das Musas API server starting on %s", cfg.ServerAddress)
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
