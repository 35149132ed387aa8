package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeverse/internal/common/cache"
	"codeverse/internal/common/db"
	commonmw "codeverse/internal/common/http/middleware"
	"codeverse/internal/common/mq"
	"codeverse/internal/common/storage"
	"codeverse/internal/judge"
	problemCtrl "codeverse/internal/problem/controller"
	problemRepo "codeverse/internal/problem/repository"
	problemSvc "codeverse/internal/problem/service"
	submissionCtrl "codeverse/internal/submission/controller"
	submissionRepo "codeverse/internal/submission/repository"
	submissionSvc "codeverse/internal/submission/service"
	userCtrl "codeverse/internal/user/controller"
	userRepo "codeverse/internal/user/repository"
	userSvc "codeverse/internal/user/service"
	"codeverse/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/codeverse.yaml"

type controllers struct {
	auth        *userCtrl.AuthController
	authService *userSvc.AuthService
	problems    *problemCtrl.ProblemController
	submissions *submissionCtrl.SubmissionController
}

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	producer, err := mq.NewKafkaProducer(appCfg.Kafka)
	if err != nil {
		logger.Error(context.Background(), "init kafka failed", zap.Error(err))
		return
	}
	defer func() {
		_ = producer.Close()
	}()

	objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
	if err != nil {
		logger.Error(context.Background(), "init minio failed", zap.Error(err))
		return
	}

	judgeClient, err := judge.NewHTTPClient(appCfg.Judge)
	if err != nil {
		logger.Error(context.Background(), "init judge client failed", zap.Error(err))
		return
	}
	judgePipeline := judge.NewPipeline(judgeClient, nil, nil)

	ctrls, err := buildControllers(appCfg, mysqlDB, redisCache, producer, objStorage, judgePipeline)
	if err != nil {
		logger.Error(context.Background(), "init services failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg.Server, ctrls)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildControllers(
	appCfg *AppConfig,
	database db.Database,
	redisCache cache.Cache,
	producer mq.Producer,
	objStorage storage.ObjectStorage,
	judgePipeline judge.Executor,
) (*controllers, error) {
	users := userRepo.NewUserRepository(database, redisCache)
	problems := problemRepo.NewProblemRepository(database, redisCache)
	submissions := submissionRepo.NewSubmissionRepository(database, redisCache)
	verdicts := submissionRepo.NewMQVerdictEventPublisher(producer, appCfg.Submit.VerdictTopic)

	authService, err := userSvc.NewAuthService(userSvc.Config{
		UserRepo:  users,
		Blocklist: userRepo.NewCacheTokenBlocklist(redisCache),
		JWTSecret: []byte(appCfg.Auth.JWTSecret),
		JWTIssuer: appCfg.Auth.JWTIssuer,
		TokenTTL:  appCfg.Auth.TokenTTL,
		DBTimeout: appCfg.Auth.DBTimeout,
	})
	if err != nil {
		return nil, err
	}

	problemService, err := problemSvc.NewProblemService(problemSvc.Config{
		ProblemRepo: problems,
		Judge:       judgePipeline,
		DBTimeout:   appCfg.Submit.Timeouts.DB,
	})
	if err != nil {
		return nil, err
	}

	submissionService, err := submissionSvc.NewSubmissionService(submissionSvc.Config{
		SubmissionRepo:  submissions,
		ProblemRepo:     problems,
		UserRepo:        users,
		Judge:           judgePipeline,
		Limiter:         submissionSvc.NewCooldownLimiterWithTTL(redisCache, appCfg.Submit.CooldownTTL),
		Storage:         objStorage,
		Verdicts:        verdicts,
		SourceBucket:    appCfg.Submit.SourceBucket,
		SourceKeyPrefix: appCfg.Submit.SourceKeyPrefix,
		MaxCodeBytes:    appCfg.Submit.MaxCodeBytes,
		Timeouts:        appCfg.Submit.Timeouts,
	})
	if err != nil {
		return nil, err
	}

	return &controllers{
		auth:        userCtrl.NewAuthController(authService),
		authService: authService,
		problems:    problemCtrl.NewProblemController(problemService),
		submissions: submissionCtrl.NewSubmissionController(submissionService),
	}, nil
}

func buildHTTPServer(cfg ServerConfig, ctrls *controllers) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContext())
	router.Use(requestLogger())

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/register", ctrls.auth.Register)
	auth.POST("/login", ctrls.auth.Login)

	requireAuth := commonmw.RequireAuth(ctrls.authService)
	authed := api.Group("", requireAuth)
	authed.POST("/auth/logout", ctrls.auth.Logout)
	authed.GET("/auth/profile", ctrls.auth.Profile)
	authed.GET("/auth/solved", ctrls.auth.SolvedProblems)
	authed.DELETE("/auth/account", ctrls.auth.Delete)

	authed.GET("/problems", ctrls.problems.List)
	authed.GET("/problems/:id", ctrls.problems.Get)
	authed.POST("/problems/:id/submit", ctrls.submissions.Submit)
	authed.POST("/problems/:id/run", ctrls.submissions.Run)
	authed.GET("/problems/:id/submissions", ctrls.submissions.ListForProblem)
	authed.GET("/submissions/:id", ctrls.submissions.Get)

	admin := api.Group("/admin", requireAuth, commonmw.RequireAdmin())
	admin.POST("/problems", ctrls.problems.Create)
	admin.PUT("/problems/:id", ctrls.problems.Update)
	admin.DELETE("/problems/:id", ctrls.problems.Delete)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
