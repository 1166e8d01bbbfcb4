// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"minicrm-service/internal/config"
	"minicrm-service/internal/db"
	authHandler "minicrm-service/internal/handlers/auth"
	crmHandler "minicrm-service/internal/handlers/crm"
	wsHandler "minicrm-service/internal/handlers/websocket"
	"minicrm-service/internal/events"
	"minicrm-service/internal/middleware"
	"minicrm-service/internal/pkg/jwt"
	"minicrm-service/internal/pkg/session"
	"minicrm-service/internal/repository/postgres"
	authUsecase "minicrm-service/internal/service/auth"
	crmUsecase "minicrm-service/internal/service/crm"
	"minicrm-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = 10 * time.Minute
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine, logger: logger}
}

// Run wires the service and serves HTTP until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logger := s.logger

	// ----- PostgreSQL -----
	pool, err := postgres.ConnectDB(ctx, s.cfg.DatabaseURL, s.cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to PostgreSQL")

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		Address:  s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       s.cfg.RedisDB,
		PoolSize: 10,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}
	if s.cfg.JWT.PrivPath == "" {
		logger.Warn("JWT_PRIVATE_KEY_PATH not set, using an ephemeral signing key")
	}

	passwords, err := authUsecase.ParsePasswordMode(s.cfg.PasswordMode)
	if err != nil {
		return err
	}

	// ----- Session Manager -----
	sessionManager := session.NewManager(redisClient, logger)

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	userRepo := postgres.NewUserRepository(dbWrapper)
	customerRepo := postgres.NewCustomerRepository(dbWrapper)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(logger)
	hubDone := make(chan struct{})
	hubCtx, stopHub := context.WithCancel(context.Background())
	go func() {
		defer close(hubDone)
		hub.Run(hubCtx)
	}()
	defer func() {
		stopHub()
		<-hubDone
	}()

	// ----- Events -----
	publishers := events.Fanout{hub}
	if s.cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(s.cfg.AMQPURL, s.cfg.AMQPExchange, logger)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
		logger.Info("publishing events to RabbitMQ", zap.String("exchange", s.cfg.AMQPExchange))
	}

	// ----- Services (Usecases) -----
	authService := authUsecase.NewAuthService(
		userRepo,
		jwtManager,
		sessionManager,
		passwords,
		hub,
		logger,
	)
	crmService := crmUsecase.NewCRMService(customerRepo, publishers, logger)

	workspaces := session.NewWorkspaces[crmUsecase.State]()
	go s.pruneWorkspaces(ctx, workspaces)

	// ----- Handlers -----
	crmHandlerInst := crmHandler.NewCRMHandler(crmService, workspaces, logger)
	authHandlerInst := authHandler.NewAuthHandler(authService, crmHandlerInst, logger)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, authService, s.cfg.CORSOrigins, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authService)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.CORSOrigins),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		AuthHandler:    authHandlerInst,
		CRMHandler:     crmHandlerInst,
		WSHandler:      wsHandlerInst,
		AuthMiddleware: authMiddleware,
	})

	// ----- Start HTTP -----
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// pruneWorkspaces drops per-session state that has not been touched for a
// full token lifetime; such sessions can no longer authenticate.
func (s *Server) pruneWorkspaces(ctx context.Context, workspaces *session.Workspaces[crmUsecase.State]) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := workspaces.Prune(now.Add(-s.cfg.JWT.TTL)); n > 0 {
				s.logger.Info("pruned idle workspaces", zap.Int("count", n), zap.Int("remaining", workspaces.Len()))
			}
		}
	}
}
