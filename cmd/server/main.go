package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"yukifiles/internal/MinIO"
	"yukifiles/internal/config"
	"yukifiles/internal/handler/authHandler"
	"yukifiles/internal/handler/fileHandler"
	"yukifiles/internal/metrics"
	"yukifiles/internal/model/storedfile"
	"yukifiles/internal/reputation"
	"yukifiles/internal/repository/BlackListRepo"
	"yukifiles/internal/repository/fileRepo"
	"yukifiles/internal/repository/ipLogRepo"
	"yukifiles/internal/repository/quotaRepo"
	"yukifiles/internal/repository/refreshToken"
	"yukifiles/internal/repository/userRepo"
	"yukifiles/internal/service/authService"
	"yukifiles/internal/service/fileService"
	"yukifiles/internal/service/riskService"
	"yukifiles/pkg/database/postgres"
	"yukifiles/pkg/database/redis"
	"yukifiles/pkg/logger"
	"yukifiles/pkg/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const reputationCacheTTL = 15 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("error loading config: %v", err))
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(fmt.Sprintf("error creating logger: %v", err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.RunMigrations(ctx, cfg.Postgres); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.New(cfg.Redis)
	defer redisClient.Close()

	minioClient, err := MinIO.New(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("failed to connect to object storage", zap.Error(err))
	}

	users := userRepo.New(pool)
	files := fileRepo.New(pool)
	quotas := quotaRepo.New(pool)
	ipLogs := ipLogRepo.New(pool)

	reputationChecker := reputation.NewCachedChecker(reputation.NewHTTPChecker(cfg.Reputation), reputationCacheTTL)
	reputationChecker.StartSweeper(reputationCacheTTL, ctx.Done())

	riskSvc := riskService.New(cfg.Risk, reputationChecker, users, ipLogs, !cfg.Development(), log)
	if cfg.Development() {
		log.Warn("risk gate disabled in development mode")
	}

	authSvc := authService.New(
		users,
		quotas,
		riskSvc,
		refreshToken.New(redisClient),
		BlackListRepo.NewBlackListRepo(redisClient),
		cfg.JWTSecret,
		cfg.DefaultQuotaLimit,
	)
	fileSvc := fileService.New(files, quotas, minioClient, storedfile.Visibility(cfg.DefaultVisibility), log)

	mCounter := metrics.NewCounter()

	router := buildRouter(cfg, log, mCounter, authSvc, fileSvc, riskSvc)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
	log.Info("server stopped")
}

func buildRouter(
	cfg *config.Config,
	log *zap.Logger,
	mCounter *prometheus.CounterVec,
	authSvc *authService.AuthService,
	fileSvc *fileService.FileService,
	riskSvc *riskService.RiskService,
) *gin.Engine {
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.RequestLog(log, mCounter))

	authH := authHandler.New(authSvc, riskSvc, cfg.RateLimit, cfg.RateLimitWindow)
	fileH := fileHandler.New(fileSvc, cfg.MaxUploadSize, log)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/s/:token", fileH.SharedDownload)

	api := router.Group("/api")
	{
		api.POST("/register", authH.Register)
		api.POST("/login", authH.Login)
		api.POST("/refresh", authH.Refresh)

		authed := api.Group("", middleware.Auth(authSvc))
		{
			authed.POST("/logout", authH.Logout)
			authed.POST("/upload", fileH.Upload)
			authed.GET("/files", fileH.List)
			authed.GET("/files/:id", fileH.Download)
			authed.DELETE("/files/:id", fileH.Delete)
			authed.PUT("/files/:id/name", fileH.Rename)
			authed.PUT("/files/:id/visibility", fileH.SetVisibility)
			authed.POST("/files/:id/share", fileH.RotateShareToken)
		}
	}

	return router
}
