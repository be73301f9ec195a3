package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm/logger"

	"task-market/backend/internal/cache"
	"task-market/backend/internal/config"
	"task-market/backend/internal/database"
	"task-market/backend/internal/handlers"
	applog "task-market/backend/internal/logger"
	"task-market/backend/internal/middleware"
	"task-market/backend/internal/monitoring"
	"task-market/backend/internal/notify"
	"task-market/backend/internal/services"
	"task-market/backend/internal/storage"
	"task-market/backend/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := applog.New(cfg.Server.Environment)

	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		DSN:             cfg.GetDatabaseDSN(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        logLevel,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Migrate(); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	db := pool.DB

	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	defer redisClient.Close()

	monitoring.RegisterHealthCheck("database", func(ctx context.Context) error {
		return pool.Health()
	})
	monitoring.RegisterHealthCheck("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	files := storage.NewDiskStorage(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix, log)
	notifier := notify.NewQueueNotifier(redisClient, notify.DefaultQueue)

	catalogCache := cache.NewCatalogCache(redisClient, 5*time.Minute)
	taskService := services.NewCachedTaskService(
		services.NewTaskService(notifier, files, log), catalogCache, log)
	authService := services.NewAuthService()
	registerService := services.NewRegisterService()

	deliveryWorker := worker.New(worker.Config{
		RedisClient:  redisClient,
		Logger:       log,
		PollInterval: cfg.Worker.PollInterval,
		Queues:       cfg.Worker.Queues,
	})
	deliveryWorker.RegisterHandler(worker.JobTypeNotification, notify.NewDeliveryHandler(db))
	deliveryWorker.Start(cfg.Worker.Concurrency)
	defer deliveryWorker.Stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryWithLog())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(cors.Default())

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize, cfg.RateLimit.CleanupInterval)
		router.Use(limiter.Middleware())
	}

	taskHandler := handlers.NewTaskHandler(db, taskService)
	authHandler := handlers.NewAuthHandler(db, authService)
	registerHandler := handlers.NewRegisterHandler(db, registerService, log)
	refreshHandler := handlers.NewRefreshHandler(db, authService)
	logoutHandler := handlers.NewLogoutHandler(db, authService)
	notificationHandler := handlers.NewNotificationHandler(db)

	router.GET("/health", monitoring.HealthHandler())
	router.GET("/live", monitoring.LivenessHandler())
	router.GET("/metrics", monitoring.MetricsHandler())

	api := router.Group("/api/v1")
	{
		api.POST("/auth/register", registerHandler.Registration)
		api.POST("/auth/token", authHandler.Token)
		api.POST("/auth/refresh", refreshHandler.Refresh)
		api.POST("/auth/logout", logoutHandler.Logout)

		public := api.Group("/", middleware.AuthzMiddleware(middleware.AuthzConfig{Optional: true}))
		{
			public.GET("/tasks", taskHandler.GetTasks)
			public.GET("/tasks/:id", taskHandler.GetTaskByID)
		}

		authed := api.Group("/", middleware.AuthzMiddleware(middleware.AuthzConfig{}))
		{
			authed.POST("/tasks", taskHandler.CreateTask)
			authed.PATCH("/tasks/:id", taskHandler.UpdateTask)
			authed.DELETE("/tasks/:id", taskHandler.DeleteTask)
			authed.POST("/tasks/:id/close", taskHandler.CloseTask)
			authed.GET("/notifications", notificationHandler.GetNotifications)
			authed.POST("/notifications/:id/read", notificationHandler.MarkRead)
		}

		admin := api.Group("/admin", middleware.AuthzMiddleware(middleware.AuthzConfig{Role: "admin"}))
		{
			admin.GET("/tasks/pending", taskHandler.GetPendingTasks)
			admin.GET("/tasks/pending/count", taskHandler.GetPendingCount)
			admin.POST("/tasks/:id/moderate", taskHandler.ModerateTask)
		}
	}

	server := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
}
