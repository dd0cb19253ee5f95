package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shop-api/internal/config"
	"shop-api/internal/database"
	custommiddleware "shop-api/internal/middleware"
	"shop-api/internal/repository"
	"shop-api/internal/service"
	"shop-api/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config  *config.Config
	logger  *zap.Logger
	db      database.Service
	redis   *redis.Client
	members service.MemberService
}

// NewServer wires repositories, services and handlers onto a chi router.
// redisClient may be nil, in which case login is not rate limited.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) *Server {
	router := chi.NewRouter()

	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.CORSMiddleware(cfg.Server))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Repositories
	sqlDB := db.DB()
	tx := repository.NewTransactor(sqlDB)
	memberRepo := repository.NewMemberRepository(sqlDB)
	adminRepo := repository.NewAdministratorRepository(sqlDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(sqlDB)
	itemRepo := repository.NewItemRepository(sqlDB)
	categoryRepo := repository.NewCategoryRepository(sqlDB)
	orderRepo := repository.NewOrderRepository(sqlDB)

	// Services
	memberService := service.NewMemberService(memberRepo, adminRepo, refreshTokenRepo, tx, cfg.JWT, logger)
	itemService := service.NewItemService(itemRepo, categoryRepo, cfg.Upload, logger)
	categoryService := service.NewCategoryService(categoryRepo, itemRepo, tx, logger)
	orderService := service.NewOrderService(orderRepo, itemRepo, memberRepo, tx, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)

	var loginLimiter func(http.Handler) http.Handler
	if redisClient != nil && !cfg.Redis.RateLimitingDisabled {
		loginLimiter = custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.Redis.LoginRequestsPerMin,
			Window:            time.Minute,
			KeyPrefix:         "ratelimit:login",
		}, logger)
	} else {
		logger.Warn("Login rate limiting disabled")
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		db:      db,
		redis:   redisClient,
		members: memberService,
	}

	router.Get("/health", s.health)
	router.Handle("/static/*", http.StripPrefix(service.StaticPrefix, http.FileServer(http.Dir(cfg.Upload.Dir))))

	transport.NewMemberHandler(memberService, logger).RegisterRoutes(router, authMiddleware, loginLimiter)
	transport.NewItemHandler(itemService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCategoryHandler(categoryService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, authMiddleware)

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Bootstrap ensures the configured administrator account exists. It is a
// no-op when no administrator email is configured.
func (s *Server) Bootstrap(ctx context.Context) error {
	admin := s.config.Admin
	if admin.Email == "" {
		s.logger.Info("No administrator configured, skipping bootstrap")
		return nil
	}

	account, err := s.members.EnsureAdministrator(ctx, admin.Name, admin.Email, admin.Password)
	if err != nil {
		return fmt.Errorf("failed to ensure administrator: %w", err)
	}

	s.logger.Info("Administrator ready", zap.Int64("admin_id", account.ID), zap.String("email", account.Email))
	return nil
}

type healthResponse struct {
	Status   string            `json:"status"`
	Database map[string]string `json:"database"`
	Redis    string            `json:"redis"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	response := healthResponse{
		Status:   "ok",
		Database: s.db.Health(),
		Redis:    "disabled",
	}
	status := http.StatusOK

	if response.Database["status"] != "up" {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	if s.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			// Rate limiting fails open, so redis alone does not fail the check
			s.logger.Warn("Redis ping failed", zap.Error(err))
			response.Redis = "down"
		} else {
			response.Redis = "up"
		}
	}

	custommiddleware.RespondWithJSON(w, status, response)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	_ = s.logger.Sync()
	return nil
}
