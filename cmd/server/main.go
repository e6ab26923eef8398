package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-biz-server/internal/ai"
	"go-biz-server/internal/auth"
	"go-biz-server/internal/config"
	"go-biz-server/internal/database"
	"go-biz-server/internal/handlers"
	"go-biz-server/internal/middleware"
	"go-biz-server/internal/mpesa"
	"go-biz-server/internal/sales"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to build logger: ", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DBDSN, logger)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	// Build the components and hand them their dependencies. Nothing
	// here lives in a package global.
	tokens := auth.NewManager(cfg.JWTSecret)
	gateway := mpesa.NewClient(cfg.Mpesa, logger.Named("mpesa"))
	salesSvc := sales.NewService(db, gateway, logger.Named("sales"))

	var agent *ai.Agent
	if cfg.GeminiAPIKey != "" {
		agent = ai.NewAgent(db, cfg.GeminiAPIKey)
	}

	h := handlers.New(db, cfg, tokens, salesSvc, agent, logger.Named("http"))

	r := gin.Default()
	r.Use(middleware.RequestID())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "online"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/login", h.Login)
	r.Static("/uploads", "./uploads")

	// The provider calls back unauthenticated; the URL carries the
	// transaction id it was issued with.
	r.POST("/api/mpesa/callback/:id", h.MpesaCallback)

	// Only opens if we explicitly allow it in .env
	if cfg.AllowRegistration {
		r.POST("/register", h.Register)
		logger.Warn("registration route is OPEN, disable this in production")
	}

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokens))
	{
		// EMPLOYEE + ADMIN
		api.GET("/system/status", h.SystemStatus)
		api.GET("/businesses", h.ListBusinesses)
		api.GET("/snacks", h.ListSnacks)
		api.POST("/snack-center", h.CreateSale)
		api.GET("/snack-center/:id", h.GetTransaction)
		api.POST("/snack-center/:id/pay", h.RequestPayment)
		api.POST("/farm", h.CreateFarmRecord)
		api.POST("/pool", h.CreatePoolRecord)
		api.POST("/ps-station", h.CreateStationRecord)

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.GET("/admin/dashboard", h.Dashboard)
			admin.POST("/expenses", h.CreateExpense)
			admin.POST("/ask", h.Ask)
			admin.POST("/upload", h.UploadImage)
			admin.POST("/snacks", h.AddSnack)
			admin.PUT("/snacks/:id", h.UpdateSnack)
			admin.DELETE("/snacks/:id", h.DeleteSnack)
		}
	}

	// Pending payments whose callback never arrives get failed by the
	// sweep, so clients polling the status always see an outcome.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := sales.NewSweeper(db, logger.Named("sweep"), cfg.PaymentTimeout, cfg.SweepInterval)
	go sweeper.Run(ctx)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("base_url", cfg.BaseURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
