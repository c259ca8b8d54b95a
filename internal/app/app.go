package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainacademy_backend/internal/chain"
	"chainacademy_backend/internal/config"
	"chainacademy_backend/internal/controller"
	"chainacademy_backend/internal/repository"
	"chainacademy_backend/internal/service"
	"chainacademy_backend/pkg/configwatcher"
	"chainacademy_backend/pkg/database"
	"chainacademy_backend/pkg/logger"
	"chainacademy_backend/pkg/mailer"
	"chainacademy_backend/pkg/monitoring"
	"chainacademy_backend/pkg/security"
	"chainacademy_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// staleSessionMaxOpen bounds how much time an abandoned session can credit.
const staleSessionMaxOpen = 4 * time.Hour

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	cron   *cron.Cron
}

type repositories struct {
	user            *repository.UserRepository
	course          *repository.CourseRepository
	test            *repository.TestRepository
	enrollment      *repository.EnrollmentRepository
	sectionProgress *repository.SectionProgressRepository
	attempt         *repository.AttemptRepository
	session         *repository.SessionRepository
}

type services struct {
	auth       *service.AuthService
	course     *service.CourseService
	enrollment *service.EnrollmentService
	testing    *service.TestingService
	progress   *service.ProgressService
	stake      *service.StakeService
	storage    *service.StorageService
}

type controllers struct {
	auth       *controller.AuthController
	course     *controller.CourseController
	enrollment *controller.EnrollmentController
	test       *controller.TestController
	progress   *controller.ProgressController
	stake      *controller.StakeController
	health     *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:            repository.NewUserRepository(db),
		course:          repository.NewCourseRepository(db),
		test:            repository.NewTestRepository(db),
		enrollment:      repository.NewEnrollmentRepository(db),
		sectionProgress: repository.NewSectionProgressRepository(db),
		attempt:         repository.NewAttemptRepository(db),
		session:         repository.NewSessionRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.storage = storage

	m := mailer.New(&cfg.SMTP)
	chainClient := chain.NewClient(cfg.Chain)

	s.auth = service.NewAuthService(repos.user, cfg)
	s.course = service.NewCourseService(repos.course, repos.test)
	s.enrollment = service.NewEnrollmentService(repos.enrollment, repos.course, repos.sectionProgress, repos.attempt, repos.user, m)
	s.testing = service.NewTestingService(db, repos.test, repos.attempt, repos.course, s.enrollment, repos.user, m)
	s.progress = service.NewProgressService(db, rdb, repos.enrollment, repos.course, repos.session, repos.user, m)
	s.stake = service.NewStakeService(repos.enrollment, repos.course, repos.user, chainClient, rdb, cfg.Chain.CacheTTL)

	return s, nil
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth),
		course:     controller.NewCourseController(s.course, s.storage),
		enrollment: controller.NewEnrollmentController(s.enrollment),
		test:       controller.NewTestController(s.testing),
		progress:   controller.NewProgressController(s.progress),
		stake:      controller.NewStakeController(s.stake),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundJobs(s *services) {
	a.cron = cron.New()

	if _, err := a.cron.AddFunc("@every 1m", s.course.ProcessScheduledPublishes); err != nil {
		logger.Log.Fatal("failed to schedule course publishes", zap.Error(err))
	}
	if _, err := a.cron.AddFunc("@every 15m", func() {
		s.progress.SweepStaleSessions(staleSessionMaxOpen)
	}); err != nil {
		logger.Log.Fatal("failed to schedule session sweep", zap.Error(err))
	}

	a.cron.Start()
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("logger initialized")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("database migration failed", zap.Error(err))
		}
		logger.Log.Info("database migration complete")
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services, err := app.initServices(repos, cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("failed to initialize services", zap.Error(err))
	}
	ctls := app.initControllers(services, db, rdb)

	monitoring.Init()

	gin.SetMode(ginMode(cfg.Server.Mode))
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("chainacademy", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, ctls, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundJobs(services)

	go configwatcher.WatchConfig("configs/config.yaml", cfg, func(newCfg interface{}) {
		if updated, ok := newCfg.(*config.Config); ok {
			// The mailer reads its config per send; everything else is
			// wired at startup and needs a restart to change.
			cfg.SMTP = updated.SMTP
			logger.Log.Info("configuration reloaded")
		}
	})

	return app
}

func ginMode(mode string) string {
	switch mode {
	case "release":
		return gin.ReleaseMode
	case "test":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	if a.cron != nil {
		a.cron.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown:", err)
	}

	log.Println("server exiting")
}
