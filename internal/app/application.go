package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"cryptoacademy-backend/internal/background"
	"cryptoacademy-backend/internal/config"
	"cryptoacademy-backend/internal/handlers"
	"cryptoacademy-backend/internal/middleware"
	"cryptoacademy-backend/internal/repository"
	"cryptoacademy-backend/internal/seed"
	"cryptoacademy-backend/internal/service"
	"cryptoacademy-backend/pkg/cache"
	"cryptoacademy-backend/pkg/logger"
)

type Application struct {
	cfg *config.Config

	db        *gorm.DB
	cache     *cache.Cache
	store     repository.Store
	scheduler *background.Scheduler
	limiter   *middleware.RateLimitManager

	ctx    context.Context
	cancel context.CancelFunc

	services serviceContainer
	handlers handlerContainer

	router *gin.Engine
	server *http.Server
}

type serviceContainer struct {
	Stats        *service.StatsService
	Achievements *service.AchievementService
	Progress     *service.ProgressService
	Leaderboard  *service.LeaderboardService
	Courses      *service.CourseService
	Lessons      *service.LessonService
	Quizzes      *service.QuizService
	Forum        *service.ForumService
	Users        *service.UserService
	Avatars      *service.AvatarService
	Admin        *service.AdminService
}

type handlerContainer struct {
	Course  *handlers.CourseHandler
	Lesson  *handlers.LessonHandler
	Quiz    *handlers.QuizHandler
	Learner *handlers.LearnerHandler
	Forum   *handlers.ForumHandler
	Admin   *handlers.AdminHandler
}

func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initDatabase(); err != nil {
		cancel()
		return nil, err
	}

	if err := app.runMigrations(); err != nil {
		cancel()
		return nil, err
	}

	if err := app.initCache(); err != nil {
		cancel()
		return nil, err
	}

	app.store = repository.NewStore(app.db)
	app.initScheduler()
	app.initServices()
	app.initHandlers()

	if cfg.EnableSeed {
		seed.EnsureDemoCourses(seed.Services{
			Courses: app.services.Courses,
			Lessons: app.services.Lessons,
			Quizzes: app.services.Quizzes,
		}, cfg.SeedAuthorID)
	}

	if err := app.scheduler.Every(cfg.ReconcileInterval, app.services.Admin.ReconcileLessonsJob()); err != nil {
		logger.Error(err, "Failed to schedule lesson count reconciliation", nil)
	}

	app.limiter = middleware.NewRateLimitManager(ctx)
	app.initRouter()

	app.server = &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        app.router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	return app, nil
}

func (a *Application) Run() error {
	logger.Info("Server starting", map[string]interface{}{
		"port":        a.cfg.Port,
		"environment": a.cfg.Environment,
	})

	return a.server.ListenAndServe()
}

func (a *Application) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}

	if a.limiter != nil {
		_ = a.limiter.Shutdown()
	}

	if a.scheduler != nil {
		if err := a.scheduler.Shutdown(ctx); err != nil {
			logger.Error(err, "Background jobs did not finish before shutdown", nil)
			shutdownErr = errors.Join(shutdownErr, err)
		}
	}

	if a.cancel != nil {
		a.cancel()
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logger.Error(err, "Failed to close cache connection", nil)
		}
	}

	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	return shutdownErr
}

func (a *Application) Router() *gin.Engine {
	return a.router
}

func (a *Application) initDatabase() error {
	logger.Info("Connecting to database", nil)

	db, err := gorm.Open(postgres.Open(a.cfg.DatabaseURL), &gorm.Config{
		Logger: logger.NewGormLogger(),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	a.db = db
	return nil
}

func (a *Application) runMigrations() error {
	if a.db == nil {
		return fmt.Errorf("database connection is not initialized")
	}

	logger.Info("Running database migrations", nil)

	if err := repository.Migrate(a.db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Database migration completed", nil)
	return nil
}

func (a *Application) initCache() error {
	c, err := cache.NewCache(a.cfg.RedisURL, a.cfg.RedisPassword, a.cfg.EnableCache)
	if err != nil {
		if a.cfg.IsProduction() {
			return err
		}
		logger.Warn("Redis unavailable, running without cache", map[string]interface{}{"error": err.Error()})
		c, _ = cache.NewCache("", "", false)
	}
	c.SetTTLs(a.cfg.LeaderboardCacheTTL, a.cfg.CatalogCacheTTL)
	a.cache = c
	return nil
}

func (a *Application) initScheduler() {
	a.scheduler = background.NewScheduler(background.SchedulerConfig{
		WorkerCount: a.cfg.SchedulerWorkers,
		QueueSize:   a.cfg.SchedulerQueueSize,
	})
	a.scheduler.Start(a.ctx)
}

func (a *Application) initServices() {
	stats := service.NewStatsService(a.store)
	achievements := service.NewAchievementService(a.store)
	progress := service.NewProgressService(a.store, stats, achievements, a.cache, a.scheduler)
	courses := service.NewCourseService(a.store, a.cache)

	a.services = serviceContainer{
		Stats:        stats,
		Achievements: achievements,
		Progress:     progress,
		Leaderboard:  service.NewLeaderboardService(a.store, a.cache),
		Courses:      courses,
		Lessons:      service.NewLessonService(a.store, courses),
		Quizzes:      service.NewQuizService(a.store, progress),
		Forum:        service.NewForumService(a.store),
		Users:        service.NewUserService(a.store, a.cache),
		Avatars:      service.NewAvatarService(),
		Admin:        service.NewAdminService(a.store, a.scheduler, a.cache),
	}
}

func (a *Application) initHandlers() {
	a.handlers = handlerContainer{
		Course:  handlers.NewCourseHandler(a.services.Courses),
		Lesson:  handlers.NewLessonHandler(a.services.Lessons, a.services.Progress),
		Quiz:    handlers.NewQuizHandler(a.services.Quizzes),
		Learner: handlers.NewLearnerHandler(a.services.Users, a.services.Stats, a.services.Achievements, a.services.Leaderboard, a.services.Avatars),
		Forum:   handlers.NewForumHandler(a.services.Forum),
		Admin:   handlers.NewAdminHandler(a.services.Admin, a.services.Courses),
	}
}

func (a *Application) initRouter() {
	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(logger.GinLogger())
	router.Use(middleware.SecurityHeadersMiddleware())
	if a.cfg.EnableMetrics {
		router.Use(middleware.MetricsMiddleware())
	}
	router.Use(middleware.RateLimitMiddleware(a.cfg, a.limiter))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)
	if a.cfg.EnableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	auth := middleware.AuthMiddleware(a.cfg.JWTSecret)
	userSync := middleware.UserSyncMiddleware(a.services.Users)
	completionLimit := middleware.CompletionRateLimitMiddleware(a.limiter, a.cfg.CompletionRateLimit, a.cfg.CompletionRateLimitWindow)

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("")
		public.Use(middleware.OptionalAuthMiddleware(a.cfg.JWTSecret), userSync)
		{
			public.GET("/courses", a.handlers.Course.List)
			public.GET("/courses/:id", a.handlers.Course.Get)
			public.GET("/lessons/:id", a.handlers.Lesson.Get)
			public.GET("/leaderboard", a.handlers.Learner.Leaderboard)
			public.GET("/users/:id/avatar", a.handlers.Learner.Avatar)

			public.GET("/forum/threads", a.handlers.Forum.ListThreads)
			public.GET("/forum/threads/:id", a.handlers.Forum.GetThread)
		}

		protected := v1.Group("")
		protected.Use(auth, userSync)
		{
			protected.POST("/lessons/:id/complete", completionLimit, a.handlers.Lesson.Complete)
			protected.GET("/lessons/:id/quiz", a.handlers.Quiz.Get)
			protected.POST("/lessons/:id/quiz/submit", completionLimit, a.handlers.Quiz.Submit)

			protected.GET("/me", a.handlers.Learner.Profile)
			protected.GET("/me/stats", a.handlers.Learner.Stats)
			protected.GET("/me/achievements", a.handlers.Learner.Achievements)

			protected.POST("/courses", a.handlers.Course.Create)
			protected.PUT("/courses/:id", a.handlers.Course.Update)
			protected.DELETE("/courses/:id", a.handlers.Course.Delete)
			protected.PUT("/courses/:id/publish", a.handlers.Course.Publish)
			protected.PUT("/courses/:id/unpublish", a.handlers.Course.Unpublish)

			protected.POST("/courses/:id/lessons", a.handlers.Lesson.Create)
			protected.PUT("/courses/:id/lessons/order", a.handlers.Lesson.Reorder)
			protected.PUT("/lessons/:id", a.handlers.Lesson.Update)
			protected.DELETE("/lessons/:id", a.handlers.Lesson.Delete)
			protected.PUT("/lessons/:id/quiz", a.handlers.Quiz.Upsert)
			protected.DELETE("/lessons/:id/quiz", a.handlers.Quiz.Delete)

			protected.POST("/forum/threads", a.handlers.Forum.CreateThread)
			protected.PUT("/forum/threads/:id", a.handlers.Forum.UpdateThread)
			protected.DELETE("/forum/threads/:id", a.handlers.Forum.DeleteThread)
			protected.POST("/forum/threads/:id/vote", a.handlers.Forum.Vote)
			protected.POST("/forum/threads/:id/replies", a.handlers.Forum.CreateReply)
			protected.PUT("/forum/replies/:id", a.handlers.Forum.UpdateReply)
			protected.DELETE("/forum/replies/:id", a.handlers.Forum.DeleteReply)
		}

		admin := v1.Group("/admin")
		admin.Use(auth, userSync, middleware.AdminMiddleware())
		{
			admin.GET("/stats", a.handlers.Admin.Stats)
			admin.GET("/users", a.handlers.Admin.ListUsers)
			admin.PUT("/users/:id/role", a.handlers.Admin.UpdateUserRole)
			admin.DELETE("/users/:id", a.handlers.Admin.DeleteUser)
			admin.GET("/courses", a.handlers.Admin.ListCourses)
			admin.POST("/maintenance/reconcile-lessons", a.handlers.Admin.ReconcileLessons)
			admin.DELETE("/cache", a.handlers.Admin.FlushCache)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Route not found",
			"path":  c.Request.URL.Path,
		})
	})

	a.router = router
}

func (a *Application) health(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK

	checks := gin.H{}
	if sqlDB, err := a.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		checks["database"] = "unreachable"
	} else {
		checks["database"] = "ok"
	}
	if a.cache.Enabled() {
		checks["cache"] = "enabled"
	} else {
		checks["cache"] = "disabled"
	}
	checks["pending_jobs"] = a.scheduler.PendingJobCount()

	c.JSON(code, gin.H{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
		"checks": checks,
	})
}
