package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"barberbook-backend/internal/auth"
	"barberbook-backend/internal/booking"
	"barberbook-backend/internal/cache"
	"barberbook-backend/internal/catalog"
	"barberbook-backend/internal/config"
	"barberbook-backend/internal/db"
	"barberbook-backend/internal/finance"
	"barberbook-backend/internal/loyalty"
	"barberbook-backend/internal/middleware"
	"barberbook-backend/internal/notifications"
	"barberbook-backend/internal/slots"
	"barberbook-backend/internal/validation"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, cols, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Error("mongo connection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("mongo connected")
	defer client.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx, cols); err != nil {
		logger.Error("index creation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var cacheStore cache.Cache = cache.NewNoop()
	if cfg.RedisURL != "" || cfg.RedisAddr != "" {
		var redisCache *cache.RedisCache
		var err error
		if cfg.RedisURL != "" {
			redisCache, err = cache.NewRedisFromURL(cfg.RedisURL)
		} else {
			redisCache = cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		}
		if err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := redisCache.Ping(ctx); err != nil {
			logger.Error("redis connection failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("redis connected")
		cacheStore = redisCache
	}

	var jwtManager *auth.Manager
	if cfg.JWTSecret != "" {
		jwtManager = &auth.Manager{
			Secret:     []byte(cfg.JWTSecret),
			AccessTTL:  time.Duration(cfg.AccessTTLMinutes) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLMinutes) * time.Minute,
			Issuer:     "barberbook-backend",
		}
	}

	mailer := notifications.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoSenderEmail, cfg.BrevoSenderName, cfg.BrevoSandbox)
	if mailer == nil {
		logger.Info("brevo mailer disabled")
	} else {
		logger.Info("brevo mailer enabled", slog.String("sender", cfg.BrevoSenderEmail), slog.Bool("sandbox", cfg.BrevoSandbox))
	}

	val := validation.New()
	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second

	calendar := slots.NewCalendar(cols.SlotDays)
	slotsHandler := slots.NewHandler(cfg, calendar, cacheStore, val, logger)

	catalogRepo := catalog.NewRepository(cols.Services)
	catalogHandler := catalog.NewHandler(catalogRepo, cacheStore, val, logger, cfg.Timezone, cacheTTL)

	bookingRepo := booking.NewRepository(cols.Appointments)
	var notifier booking.Notifier
	if mailer != nil {
		notifier = mailer
	}
	bookingService := booking.NewService(bookingRepo, calendar, catalogRepo, notifier, cfg.Timezone)
	bookingHandler := booking.NewHandler(bookingService, cacheStore, val, logger, cfg.Timezone)

	loyaltyRepo := loyalty.NewRepository(cols.LoyaltyCards)
	loyaltyService := loyalty.NewService(loyaltyRepo, cfg.Timezone)
	loyaltyHandler := loyalty.NewHandler(loyaltyService, val, logger)

	financeRepo := finance.NewRepository(cols.Transactions)
	financeService := finance.NewService(financeRepo, bookingRepo, cfg.Timezone)
	financeHandler := finance.NewHandler(financeService, val, logger, cfg.Timezone)

	authHandler := auth.NewHandler(cfg, jwtManager, val, logger)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.FrontendOrigin))
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	bookingsLimiter := middleware.NewRateLimiter(cfg.RateLimitBookings, time.Duration(cfg.RateLimitWindowSec)*time.Second)
	lookupLimiter := middleware.NewRateLimiter(cfg.RateLimitLookup, time.Duration(cfg.RateLimitWindowSec)*time.Second)

	r.Route("/api", func(api chi.Router) {
		api.Get("/services", catalogHandler.List)
		api.Get("/services/{id}", catalogHandler.Get)

		api.Get("/availability", slotsHandler.GetAvailability)
		api.Get("/availability/dates", slotsHandler.GetOpenDates)
		api.Get("/availability/next", slotsHandler.GetNextAvailability)

		api.With(bookingsLimiter.Middleware).Post("/appointments", bookingHandler.Create)
		api.With(lookupLimiter.Middleware).Post("/appointments/lookup", bookingHandler.Lookup)
		api.Get("/appointments/{id}", bookingHandler.Get)

		api.Route("/admin", func(admin chi.Router) {
			admin.Post("/login", authHandler.Login)
			admin.Post("/refresh", authHandler.Refresh)
			admin.Post("/logout", authHandler.Logout)

			// chi requires middlewares before routes, so the protected
			// surface lives on a sub-router.
			admin.Group(func(protected chi.Router) {
				protected.Use(middleware.AdminAuth(cfg.AdminAPIKey, jwtManager))

				protected.Get("/appointments", bookingHandler.AdminList)
				protected.Patch("/appointments/{id}/confirm", bookingHandler.AdminConfirm)
				protected.Patch("/appointments/{id}/cancel", bookingHandler.AdminCancel)
				protected.Patch("/appointments/{id}/reminder", bookingHandler.AdminMarkReminder)

				protected.Post("/services", catalogHandler.AdminCreate)
				protected.Put("/services/{id}", catalogHandler.AdminUpdate)
				protected.Delete("/services/{id}", catalogHandler.AdminDelete)

				protected.Post("/slots/seed", slotsHandler.AdminSeedWindow)

				protected.Post("/loyalty/star", loyaltyHandler.AddStar)
				protected.Post("/loyalty/redeem", loyaltyHandler.Redeem)
				protected.Post("/loyalty/cards", loyaltyHandler.CreateCard)
				protected.Get("/loyalty/cards", loyaltyHandler.List)
				protected.Get("/loyalty/cards/{contact}", loyaltyHandler.Get)

				protected.Post("/finance/sync", financeHandler.AdminSync)
				protected.Post("/finance/expenses", financeHandler.AdminAddExpense)
				protected.Get("/finance/transactions", financeHandler.AdminListTransactions)
				protected.Get("/finance/summary", financeHandler.AdminSummary)
			})
		})
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: r,
	}

	go func() {
		logger.Info("server started", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
}
