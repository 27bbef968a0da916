package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend/internal/api/handlers"
	"backend/internal/api/middleware"
	"backend/internal/config"
	"backend/internal/jobs"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize PostgreSQL with connection pooling
	db, err := initPostgres(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	log.Println("✓ Connected to PostgreSQL")

	// Initialize Redis
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("✓ Connected to Redis")

	// Initialize repositories
	postgresRepo := repository.NewPostgresRepository(db)
	redisRepo := repository.NewRedisRepository(redisClient, cfg.Redis.LeaderboardTTL)

	// Run migrations
	if err := postgresRepo.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("✓ Database migrations completed")

	// Initialize worker pool for per-user rank persistence
	workerCount := 20
	queueSize := 1000
	pool := worker.NewPool(workerCount, queueSize)
	pool.Start()

	// Initialize services
	achievementService := service.NewAchievementService(postgresRepo, redisRepo)
	rankService := service.NewRankService(postgresRepo, achievementService, pool, redisRepo)
	questService := service.NewQuestService(postgresRepo, redisRepo)
	leaderboardService := service.NewLeaderboardService(postgresRepo, redisRepo)

	// Initialize the recalculation scheduler
	scheduler := jobs.NewRecalcScheduler(rankService, jobs.SchedulerConfig{
		Interval: cfg.Scheduler.RecalcInterval,
	})
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	if cfg.Scheduler.RecalcEnabled {
		if err := scheduler.Start(schedCtx); err != nil {
			log.Printf("⚠️ Failed to start scheduler: %v", err)
		}
	}

	// Health probe shared by the health endpoint
	healthCheck := func(ctx context.Context) error {
		if err := postgresRepo.Ping(ctx); err != nil {
			return fmt.Errorf("PostgreSQL health check failed: %w", err)
		}
		if err := redisRepo.Ping(ctx); err != nil {
			return fmt.Errorf("Redis health check failed: %w", err)
		}
		return nil
	}

	// Initialize handlers
	leaderboardHandler := handlers.NewLeaderboardHandler(leaderboardService, rankService, pool, healthCheck)
	questHandler := handlers.NewQuestHandler(questService, achievementService)
	awardHandler := handlers.NewAwardHandler(achievementService)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Progression Engine",
		DisableStartupMessage: false,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")
	api.Get("/health", leaderboardHandler.HealthCheck)

	authed := api.Group("", middleware.Auth(cfg.Auth.JWTSecret))

	authed.Get("/leaderboard", leaderboardHandler.GetLeaderboard)
	authed.Get("/rank", leaderboardHandler.GetMyRank)

	admin := authed.Group("/admin", middleware.RequireAdmin())
	admin.Post("/recalculate", leaderboardHandler.Recalculate)

	authed.Get("/quests/week", questHandler.GetWeekStatus)
	authed.Post("/quests/reward/claim", questHandler.ClaimWeeklyReward)
	authed.Get("/quests/:day", questHandler.GetQuestDay)
	authed.Post("/quests/:day/complete", questHandler.CompleteQuestDay)

	authed.Post("/duty-passes/claim", questHandler.ClaimDutyPass)
	authed.Post("/duty-passes/spend", questHandler.SpendDutyPass)

	authed.Get("/achievements", awardHandler.ListAchievements)
	authed.Post("/achievements/sync", awardHandler.SyncAchievements)
	authed.Post("/achievements/seen", awardHandler.MarkSeen)

	authed.Post("/lessons/:id/complete", awardHandler.CompleteLesson)
	authed.Post("/quizzes/:id/complete", awardHandler.CompleteQuiz)

	// Root route
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Progression Engine API",
			"version": "1.0.0",
		})
	})

	// Graceful shutdown with worker pool flushing
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("\n🛑 Shutting down server...")

		// First, stop the scheduler
		scheduler.Stop()

		// Second, stop accepting new HTTP requests
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}

		// Third, flush pending rank writes
		log.Println("🔄 Flushing worker pool (pending rank writes)...")
		if err := pool.Shutdown(30 * time.Second); err != nil {
			log.Printf("Worker pool shutdown error: %v", err)
		}

		// Finally, close connections
		if err := postgresRepo.Close(); err != nil {
			log.Printf("Error closing PostgreSQL: %v", err)
		}
		if err := redisRepo.Close(); err != nil {
			log.Printf("Error closing Redis: %v", err)
		}

		log.Println("✓ Server shutdown complete")
	}()

	// Start server
	port := cfg.Server.Port
	log.Printf("🚀 Server starting on port %d...", port)
	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initPostgres initializes PostgreSQL connection with connection pooling
func initPostgres(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.GetDSN()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Max connections should cover the worker pool plus request traffic
	sqlDB.SetMaxOpenConns(30)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

// initRedis initializes Redis connection with connection pooling
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Username:     cfg.Redis.Username,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}
