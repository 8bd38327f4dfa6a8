package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"civicsync/blob"
	"civicsync/config"
	"civicsync/controllers"
	"civicsync/identity"
	"civicsync/routes"
	"civicsync/services"
	"civicsync/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, loadedDotenv, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := config.NewLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()
	if !loadedDotenv {
		logger.Info("No .env file found")
	}
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		kv          store.KV
		redisClient *redis.Client
	)
	if cfg.RedisAddress != "" {
		redisClient, err = config.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Fatal("Redis unavailable", zap.Error(err))
		}
		defer redisClient.Close()
		kv = store.NewRedis(redisClient)
		logger.Info("Connected to Redis", zap.String("address", cfg.RedisAddress))
	} else {
		kv = store.NewMemory()
		logger.Warn("REDIS_ADDRESS not set, using in-memory store")
	}

	var users identity.UserRepository
	if cfg.MongoURI != "" {
		db, err := config.ConnectDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			logger.Fatal("MongoDB unavailable", zap.Error(err))
		}
		defer func() { _ = db.Client().Disconnect(context.Background()) }()
		mongoUsers := identity.NewMongoUsers(db.Collection("users"))
		if err := mongoUsers.EnsureIndexes(ctx); err != nil {
			logger.Fatal("Failed to create user indexes", zap.Error(err))
		}
		users = mongoUsers
		logger.Info("MongoDB connection established successfully", zap.String("database", cfg.MongoDatabase))
	} else {
		users = identity.NewMemoryUsers()
		logger.Warn("MONGODB_URI not set, using in-memory user directory")
	}

	var photos, avatars blob.Store
	if cfg.S3Bucket != "" {
		s3Store, err := blob.NewS3Store(ctx, blob.S3Config{
			Bucket:    cfg.S3Bucket,
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			logger.Fatal("Failed to configure S3", zap.Error(err))
		}
		photos, avatars = s3Store.Prefixed("issues/"), s3Store.Prefixed("avatars/")
	} else {
		photos, avatars = blob.NewMemory("issues/"), blob.NewMemory("avatars/")
		logger.Warn("S3_BUCKET not set, uploads are kept in memory")
	}

	idService := identity.NewService(users, []byte(cfg.JWTSecret), cfg.JWTTTL, logger.Named("identity"))
	if cfg.AdminEmail != "" {
		admin, err := idService.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.Fatal("Failed to provision administrator", zap.Error(err))
		}
		logger.Info("Administrator ready", zap.String("user_id", admin.ID))
	}
	clock := services.RealClock()
	issueStore := services.NewIssueStore(kv, clock, logger.Named("issues"))
	notifier := services.NewNotifier(kv, idService, clock, logger.Named("notifications"))
	workflow := services.NewWorkflow(services.WorkflowDeps{
		Issues:     issueStore,
		Notifier:   notifier,
		Principals: idService,
		Picker:     services.NewRandomPicker(uint64(time.Now().UnixNano())),
		Photos:     photos,
		Clock:      clock,
		Logger:     logger.Named("workflow"),
	})
	analytics := services.NewAnalytics(issueStore, clock)

	router := routes.NewRouter(routes.Deps{
		Auth:              controllers.NewAuthController(idService),
		Users:             controllers.NewUserController(idService, avatars, cfg.MaxUploadBytes, logger),
		Issues:            controllers.NewIssueController(workflow, issueStore, cfg.MaxUploadBytes),
		Notifications:     controllers.NewNotificationController(notifier),
		Analytics:         controllers.NewAnalyticsController(analytics),
		Resolver:          idService,
		AllowRoleOverride: cfg.AllowRoleOverride,
		RateLimitClient:   redisClient,
		IssueLimitPrefix:  cfg.IssueLimitPrefix,
		IssueRateLimit:    cfg.IssueRateLimit,
		CORSOrigins:       cfg.CORSOrigins,
		Logger:            logger,
	})
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}
