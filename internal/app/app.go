package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"microblog_backend/internal/auth"
	"microblog_backend/internal/config"
	"microblog_backend/internal/handlers"
	"microblog_backend/internal/logger"
	"microblog_backend/internal/metrics"
	"microblog_backend/internal/middleware"
	"microblog_backend/internal/models"
	"microblog_backend/internal/pkg/email"
	"microblog_backend/internal/repositories"
	"microblog_backend/internal/routes"
	"microblog_backend/internal/search"
	"microblog_backend/internal/services"
	"microblog_backend/internal/validator"
	"microblog_backend/internal/workers"
)

const mailQueueSize = 64

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	gormDB := openDatabase(cfg)

	index, err := search.NewElastic(cfg.Search.ElasticsearchURL)
	if err != nil {
		logger.Fatal("Failed to initialize search backend", "error", err)
	}
	if !index.Enabled() {
		logger.Warn("No Elasticsearch URL configured: search is disabled")
	}
	syncer := search.NewSyncer(index)

	mailWorker := startMailWorker(context.Background(), cfg)

	ginRouter := SetupRouter(cfg, gormDB, syncer, mailWorker)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

// Reindex rebuilds the full-text index from the relational store. Run
// from the reindex command after an index loss or mapping change.
func Reindex() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)

	gormDB := openDatabase(cfg)

	index, err := search.NewElastic(cfg.Search.ElasticsearchURL)
	if err != nil {
		logger.Fatal("Failed to initialize search backend", "error", err)
	}
	if !index.Enabled() {
		logger.Fatal("Cannot reindex: no Elasticsearch URL configured")
	}
	syncer := search.NewSyncer(index)

	postService := services.NewPostService(repositories.NewPostRepository(), syncer)
	if err := postService.ReindexAll(context.Background(), gormDB); err != nil {
		logger.Fatal("Reindex failed", "error", err)
	}
	logger.Info("Reindex complete")
}

// SetupRouter assembles the full engine. Tests call it with their own
// database and syncer; callbacks are registered on whatever root they
// pass in.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB, syncer *search.Syncer, mailWorker *workers.MailWorker) *gin.Engine {
	if err := syncer.RegisterCallbacks(gormDB); err != nil {
		logger.Fatal("Failed to register search callbacks", "error", err)
	}

	serviceContainer := initializeServices(cfg, syncer, mailWorker)
	appHandlers := initializeHandlers(cfg, serviceContainer)

	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers, gormDB)

	return ginRouter
}

func openDatabase(cfg *config.Config) *gorm.DB {
	logger.Info("Connecting to database...")
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}

	if err := AutoMigrate(gormDB); err != nil {
		logger.Fatal("Migration failed", "error", err)
	}
	logger.Info("Database connected")
	return gormDB
}

// AutoMigrate applies the schema. Follow rows are plain join records
// with a composite key, so the model is migrated explicitly.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Post{}, &models.Follow{})
}

func startMailWorker(ctx context.Context, cfg *config.Config) *workers.MailWorker {
	mailer, err := email.NewGomailSender(email.Config{
		SMTPHost:  cfg.Email.SMTPHost,
		SMTPPort:  cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		BaseURL:   cfg.App.BaseURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize mail sender", "error", err)
	}
	if cfg.Email.SMTPHost == "" {
		logger.Warn("No SMTP relay configured: outgoing mail is disabled")
	}

	mailWorker := workers.NewMailWorker(mailer, mailQueueSize)
	mailWorker.Start(ctx)
	return mailWorker
}

type serviceContainer struct {
	AuthService  services.AuthService
	TokenService services.TokenService
	UserService  services.UserService
	PostService  services.PostService
}

func initializeServices(cfg *config.Config, syncer *search.Syncer, mailWorker *workers.MailWorker) *serviceContainer {
	userRepo := repositories.NewUserRepository()
	postRepo := repositories.NewPostRepository()

	resetCodec := auth.NewResetTokenCodec(cfg.Auth.Secret, time.Duration(cfg.Auth.ResetTokenTTL)*time.Second)

	return &serviceContainer{
		AuthService:  services.NewAuthService(userRepo, resetCodec, mailWorker),
		TokenService: services.NewTokenService(userRepo, time.Duration(cfg.Auth.TokenTTL)*time.Second),
		UserService:  services.NewUserService(userRepo),
		PostService:  services.NewPostService(postRepo, syncer),
	}
}

func initializeHandlers(cfg *config.Config, sc *serviceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator, cfg.App.PostsPerPage)

	return &handlers.AppHandlers{
		AuthHandler:  handlers.NewAuthHandler(baseHandler, sc.AuthService, sc.TokenService, sc.UserService),
		TokenHandler: handlers.NewTokenHandler(baseHandler, sc.TokenService, sc.AuthService, sc.UserService),
		UserHandler:  handlers.NewUserHandler(baseHandler, sc.UserService, sc.AuthService, sc.TokenService),
		PostHandler:  handlers.NewPostHandler(baseHandler, sc.PostService, sc.TokenService, sc.UserService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.RecoveryMiddleware())
	router.Use(metrics.Middleware())
	router.Use(middleware.DBMiddleware(db))
	return router
}
