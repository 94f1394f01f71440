package app

import (
	"context"
	"learner_dashboard/internal/config"
	"learner_dashboard/internal/controller"
	"learner_dashboard/internal/repository"
	"learner_dashboard/internal/service"
	"learner_dashboard/pkg/configwatcher"
	"learner_dashboard/pkg/database"
	"learner_dashboard/pkg/logger"
	"learner_dashboard/pkg/monitoring"
	"learner_dashboard/pkg/security"
	"learner_dashboard/pkg/tracing"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	limiter         *security.Limiter
	stop            chan struct{}
	cfgMu           sync.RWMutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	event       *repository.EventRepository
	activity    *repository.ActivityRepository
	course      *repository.CourseRepository
	meta        *repository.UserMetaRepository
	chat        *repository.ChatRepository
	certificate *repository.CertificateRepository
	membership  *repository.MembershipRepository
	leaderboard *repository.LeaderboardRepository
}

type services struct {
	storage      *service.StorageService
	mail         *service.MailService
	event        *service.EventService
	notification *service.NotificationService
	analytics    *service.AnalyticsService
	badge        *service.BadgeService
	progress     *service.ProgressService
	certificate  *service.CertificateService
	parcours     *service.ParcoursService
	dashboard    *service.DashboardService
	chatbot      *service.ChatbotService
	auth         *service.AuthService
	profile      *service.ProfileService
	tracking     *service.TrackingService
	report       *service.ReportService
}

type controllers struct {
	auth         *controller.AuthController
	dashboard    *controller.DashboardController
	analytics    *controller.AnalyticsController
	badge        *controller.BadgeController
	course       *controller.CourseController
	chatbot      *controller.ChatbotController
	parcours     *controller.ParcoursController
	notification *controller.NotificationController
	profile      *controller.ProfileController
	event        *controller.EventController
	admin        *controller.AdminController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) currentConfig() *config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return a.Config
}

func (a *App) reloadConfig(cfg *config.Config) {
	a.cfgMu.Lock()
	// 运行时标志不来自配置文件
	cfg.ForceMigrate, cfg.MigrateOnly = a.Config.ForceMigrate, a.Config.MigrateOnly
	a.Config = cfg
	a.cfgMu.Unlock()

	logger.Log.Info("配置已重新加载")
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		user:        repository.NewUserRepository(db),
		event:       repository.NewEventRepository(db),
		activity:    repository.NewActivityRepository(db, cfg.Database.LMSTable),
		course:      repository.NewCourseRepository(db),
		meta:        repository.NewUserMetaRepository(db),
		chat:        repository.NewChatRepository(db),
		certificate: repository.NewCertificateRepository(db),
		membership:  repository.NewMembershipRepository(db),
		leaderboard: repository.NewLeaderboardRepository(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}
	loc := cfg.Analytics.Location()
	catalog := service.DefaultCatalog()

	s.storage = service.NewStorageService(cfg)
	s.mail = service.NewMailService(service.NewMailer(&cfg.Mail))
	s.event = service.NewEventService(repos.event)
	s.notification = service.NewNotificationService(repos.meta)
	s.analytics = service.NewAnalyticsService(repos.event, repos.activity, repos.course, loc)
	s.badge = service.NewBadgeService(
		repos.event,
		repos.activity,
		repos.certificate,
		repos.meta,
		repos.user,
		repos.leaderboard,
		s.event,
		s.notification,
		s.mail,
		catalog,
		loc,
	)
	s.progress = service.NewProgressService(repos.course, repos.activity, repos.meta)
	s.certificate = service.NewCertificateService(s.storage, repos.certificate)
	s.parcours = service.NewParcoursService(
		catalog,
		repos.membership,
		repos.meta,
		repos.user,
		s.event,
		s.badge,
		s.certificate,
		s.notification,
		s.mail,
	)
	s.dashboard = service.NewDashboardService(s.analytics, s.badge, s.progress, s.parcours, s.certificate, s.notification)
	s.chatbot = service.NewChatbotService(repos.chat, s.dashboard, s.event, rand.New(rand.NewSource(time.Now().UnixNano())))
	s.auth = service.NewAuthService(repos.user, s.event, s.badge, cfg)
	s.profile = service.NewProfileService(repos.user, s.event, s.notification, s.mail)
	s.tracking = service.NewTrackingService(s.event, s.badge)
	s.report = service.NewReportService(
		&cfg.Analytics,
		repos.user,
		repos.meta,
		s.event,
		s.analytics,
		s.badge,
		s.chatbot,
		s.notification,
		s.mail,
	)

	return s
}

func (a *App) initControllers(s *services, r *repositories, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		dashboard:    controller.NewDashboardController(s.dashboard),
		analytics:    controller.NewAnalyticsController(s.analytics),
		badge:        controller.NewBadgeController(s.badge),
		course:       controller.NewCourseController(s.progress),
		chatbot:      controller.NewChatbotController(s.chatbot),
		parcours:     controller.NewParcoursController(s.parcours),
		notification: controller.NewNotificationController(s.notification),
		profile:      controller.NewProfileController(s.profile),
		event:        controller.NewEventController(s.event, s.tracking),
		admin:        controller.NewAdminController(s.report),
		health:       controller.NewHealthController(db, rdb, r.activity),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(func(c *gin.Context) {
		c.Set("config", a.currentConfig())
		c.Next()
	})
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	a.limiter = security.NewLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// watchConfig 热加载配置，监听失败只影响热加载
func (a *App) watchConfig(dir string) {
	ctx, cancel := context.WithCancel(context.Background())
	w := configwatcher.New(dir, a.reloadConfig)
	go func() {
		<-a.stop
		cancel()
	}()
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Log.Warn("配置热加载不可用", zap.Error(err))
		}
	}()
}

// startBackgroundTasks 每小时检查一次，每个自然日只执行一次每日任务
func (a *App) startBackgroundTasks(s *services) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		lastRun := ""
		for {
			cfg := a.currentConfig()
			today := time.Now().In(cfg.Analytics.Location()).Format("2006-01-02")
			if today != lastRun {
				s.report.ApplyConfig(&cfg.Analytics)
				s.report.RunDaily(context.Background())
				lastRun = today
			}
			select {
			case <-ticker.C:
			case <-a.stop:
				return
			}
		}
	}()
}

func NewApp(cfg *config.Config) *App {
	if err := logger.InitLogger(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}

	app := &App{
		Config: cfg,
		DB:     db,
		stop:   make(chan struct{}),
	}
	if cfg.MigrateOnly {
		return app
	}

	// Redis 只用于排行榜，连接失败时退回内存实现
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, leaderboard kept in memory", zap.Error(err))
		rdb = nil
	}
	app.Redis = rdb

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, repos, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.AccessLog(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.registerRoutes(router, controllers)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.Log.Info("analytics settings reloaded",
			zap.Int("chatRetentionDays", newCfg.Analytics.ChatRetentionDays),
			zap.Int("eventRetentionDays", newCfg.Analytics.EventRetentionDays),
			zap.Bool("weeklyReports", newCfg.Analytics.WeeklyReports))
	})
	app.watchConfig(cfg.Dir)

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	close(a.stop)
	if a.limiter != nil {
		a.limiter.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
