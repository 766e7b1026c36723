package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sudo-init-do/taskhub/internal/admin"
	"github.com/sudo-init-do/taskhub/internal/alerts"
	"github.com/sudo-init-do/taskhub/internal/auth"
	"github.com/sudo-init-do/taskhub/internal/cache"
	"github.com/sudo-init-do/taskhub/internal/config"
	"github.com/sudo-init-do/taskhub/internal/dashboard"
	"github.com/sudo-init-do/taskhub/internal/db"
	"github.com/sudo-init-do/taskhub/internal/i18n"
	"github.com/sudo-init-do/taskhub/internal/logging"
	"github.com/sudo-init-do/taskhub/internal/marketplace"
	"github.com/sudo-init-do/taskhub/internal/messaging"
	"github.com/sudo-init-do/taskhub/internal/metrics"
	mw "github.com/sudo-init-do/taskhub/internal/middleware"
	"github.com/sudo-init-do/taskhub/internal/realtime"
	"github.com/sudo-init-do/taskhub/internal/user"
	"github.com/sudo-init-do/taskhub/internal/wallet"
)

// protectedPrefixes are the path prefixes the locale proxy gates behind a
// valid session.
var protectedPrefixes = []string{
	"/dashboard", "/me", "/user", "/my", "/wallet",
	"/bookings", "/conversations", "/messages", "/notifications",
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.Registry(cfg.MetricsNamespace)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Init(ctx, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	rds := cache.Init(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	defer rds.Close()
	if err := rds.Ping(ctx); err != nil {
		logger.Warn("redis unreachable at startup", "error", err)
	}

	auth.Init(cfg.JWTSecret, cfg.TokenTTL)

	if err := alerts.ConfigureMailerFromEnv(); err != nil {
		logger.Warn("mailer not configured, emails disabled", "error", err)
	}
	alerts.Init(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger, m)
	defer alerts.Close()

	realtime.Init(logger, m)
	dashboard.Init(logger, m)
	marketplace.Metrics = m

	cat, err := i18n.Load(cfg.DefaultLocale)
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Pre(mw.LocaleProxy(cat, protectedPrefixes))
	e.Use(mw.Instrument(m))

	// Public routes
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/signup", auth.Signup)
	e.POST("/login", auth.Login)
	e.POST("/auth/password-reset/request", auth.RequestPasswordReset)
	e.POST("/auth/password-reset/confirm", auth.ResetPassword)
	e.POST("/auth/bootstrap-admin", auth.BootstrapAdmin)

	e.GET("/services", marketplace.GetAllServices)
	e.GET("/users/:id", user.GetPublicProfile)
	e.GET("/taskers/:id/reviews", marketplace.GetTaskerReviews)

	// Authenticated routes
	g := e.Group("", mw.JWTMiddleware)
	g.POST("/logout", auth.Logout)
	g.GET("/me", auth.Me)
	g.POST("/auth/verify-otp", auth.VerifyOTP)
	g.POST("/auth/resend-otp", auth.ResendOTP)
	g.GET("/user/profile", user.GetProfile)
	g.PATCH("/user/profile", user.UpdateProfile)

	g.POST("/services", marketplace.CreateService, mw.RequireRoles("tasker"))
	g.GET("/my/services", marketplace.GetUserServices, mw.RequireRoles("tasker"))

	g.POST("/bookings", marketplace.CreateBooking, mw.RequireRoles("customer"))
	g.GET("/bookings", marketplace.GetUserBookings)
	g.POST("/bookings/:id/accept", marketplace.AcceptBooking, mw.RequireRoles("tasker"))
	g.POST("/bookings/:id/confirm", marketplace.ConfirmBooking, mw.RequireRoles("customer"))
	g.POST("/bookings/:id/start", marketplace.StartBooking, mw.RequireRoles("tasker"))
	g.POST("/bookings/:id/complete", marketplace.CompleteBooking, mw.RequireRoles("customer"))
	g.POST("/bookings/:id/cancel", marketplace.CancelBooking)
	g.GET("/bookings/:id/review", marketplace.GetBookingReview)
	g.POST("/reviews", marketplace.CreateReview, mw.RequireRoles("customer"))
	g.POST("/disputes", marketplace.OpenDispute)
	g.GET("/disputes", marketplace.GetUserDisputes)

	g.POST("/messages", messaging.SendMessage)
	g.GET("/conversations", messaging.ListConversations)
	g.GET("/conversations/:id/messages", messaging.ListMessages)
	g.POST("/conversations/:id/read", messaging.MarkConversationRead)
	g.GET("/messages/unread-count", messaging.UnreadCount)

	g.GET("/dashboard", dashboard.Handler)

	g.GET("/wallet/balance", wallet.Balance)
	g.POST("/wallet/topup", wallet.TopupInit)
	g.POST("/wallet/topup/:id/confirm", wallet.TopupConfirm)
	g.POST("/wallet/withdraw", wallet.InitWithdrawal)
	g.GET("/wallet/transactions", wallet.TransactionsHandler)

	g.GET("/notifications", alerts.ListNotifications)
	g.POST("/notifications/:id/read", alerts.MarkNotificationRead)

	g.GET("/ws", realtime.ServeWS)

	// Admin routes
	a := e.Group("/admin", mw.JWTMiddleware, mw.AdminGuard)
	a.GET("/stats", admin.Stats)
	a.GET("/users", admin.ListUsers)
	a.POST("/users/:id/suspend", admin.SuspendUser)
	a.POST("/users/:id/activate", admin.ActivateUser)
	a.GET("/disputes", admin.ListDisputes)
	a.POST("/disputes/:id/resolve", admin.ResolveDispute)

	go func() {
		logger.Info("server starting", "addr", cfg.HTTPListenAddr, "env", cfg.AppEnv)
		if err := e.Start(cfg.HTTPListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
