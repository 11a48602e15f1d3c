package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"skillswap/cfg"
	"skillswap/internal/events"
	"skillswap/internal/identity"
	"skillswap/internal/jobs"
	"skillswap/internal/service/matching"
	"skillswap/internal/service/member"
	"skillswap/internal/service/moderation"
	"skillswap/internal/service/rating"
	"skillswap/internal/service/swap"
	"skillswap/pkg/cache"
	"skillswap/pkg/db"
	"skillswap/pkg/idgen"
	"skillswap/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Server holds all application dependencies
type Server struct {
	config    *cfg.Config
	router    *gin.Engine
	http      *http.Server
	logger    *logger.AppLogger
	db        *db.SQLClient
	cache     *cache.RedisCache
	embedded  *miniredis.Miniredis
	sessions  identity.SessionStore
	oidc      *identity.OIDC
	auth      *identity.Authenticator
	emitter   *events.Emitter
	ids       idgen.Generator
	scheduler *jobs.Scheduler
	shutdown  func(context.Context) error

	memberRepo     member.Repository
	swapRepo       swap.Repository
	reportRepo     moderation.ReportRepository
	submissionRepo moderation.SubmissionRepository

	// internal service
	memberService     *member.Service
	matchingService   *matching.Service
	swapService       *swap.Service
	ratingService     *rating.Service
	moderationService *moderation.Service
}

// NewServer creates and initializes a new server instance
func NewServer(ctx context.Context, config *cfg.Config) (*Server, error) {
	s := &Server{
		config: config,
	}

	shutdown, err := setupObservability(ctx, &config.Observability)
	if err != nil {
		return nil, fmt.Errorf("observability setup: %w", err)
	}
	s.shutdown = shutdown

	s.logger = logger.NewLogger(config.AppEnv)
	s.logger.Info(ctx, "Initializing server...",
		logger.Field{Key: "storage", Value: config.StorageDriver},
		logger.Field{Key: "oidc", Value: config.OIDC.Enabled()},
	)

	if err := s.initStorage(); err != nil {
		return nil, fmt.Errorf("storage init: %w", err)
	}

	if err := s.initCache(ctx); err != nil {
		return nil, fmt.Errorf("cache init: %w", err)
	}

	ids, err := idgen.New(config.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("idgen init: %w", err)
	}
	s.ids = ids

	s.sessions = identity.NewRedisSessionStore(s.cache.Client(), config.SessionTTL)
	s.emitter = events.NewEmitter(events.NewRedisPublisher(s.cache.Client(), events.DefaultStream, 0), s.logger)

	s.initServices()

	if err := s.initIdentity(ctx); err != nil {
		return nil, fmt.Errorf("identity init: %w", err)
	}

	s.initRoutes()

	s.scheduler = jobs.NewScheduler(s.moderationService, s.emitter, s.logger)
	if err := s.scheduler.Start(ctx, config.DigestSchedule); err != nil {
		return nil, fmt.Errorf("scheduler init: %w", err)
	}

	s.logger.Info(ctx, "Server initialized successfully")
	return s, nil
}

func (s *Server) initStorage() error {
	if s.config.StorageDriver == cfg.StorageMemory {
		s.memberRepo = member.NewMemoryRepository()
		s.swapRepo = swap.NewMemoryRepository()
		s.reportRepo = moderation.NewMemoryReportRepository()
		s.submissionRepo = moderation.NewMemorySubmissionRepository()
		return nil
	}

	dsn := s.config.Postgres.DSN()

	dbClient, err := db.NewSQLClient("postgres", dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	s.db = dbClient

	if err := runMigrations(dsn); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	s.memberRepo = member.NewRepository(s.db)
	s.swapRepo = swap.NewRepository(s.db)
	s.reportRepo = moderation.NewReportRepository(s.db)
	s.submissionRepo = moderation.NewSubmissionRepository(s.db)
	return nil
}

// initCache connects to Redis, or starts an embedded server when
// REDIS_EMBEDDED is set so the binary runs standalone.
func (s *Server) initCache(ctx context.Context) error {
	rc := s.config.Redis
	if rc.Embedded {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start embedded redis: %w", err)
		}
		s.embedded = mr
		s.cache = cache.NewRedisCache(mr.Addr())
		s.logger.Warn(ctx, "using embedded redis", logger.Field{Key: "addr", Value: mr.Addr()})
		return nil
	}

	s.cache = cache.NewRedisCacheWithOptions(&redis.Options{
		Addr:     rc.Addr(),
		Password: rc.Password,
		DB:       rc.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.cache.Ping(pingCtx); err != nil {
		return fmt.Errorf("ping redis %s: %w", rc.Addr(), err)
	}
	return nil
}

func (s *Server) initServices() {
	reg := prometheus.DefaultRegisterer

	s.memberService = member.NewService(
		s.memberRepo,
		s.ids,
		s.cache,
		s.emitter,
		s.logger,
		member.WithAdminEmails(s.config.AdminEmails...),
	)

	matcher := matching.NewCatalogMatcher(s.memberService)
	s.matchingService = matching.NewService(s.memberService, matcher, s.cache, s.config.MatchCacheTTL, s.logger)

	s.swapService = swap.NewService(s.swapRepo, s.memberService, s.ids, s.emitter, swap.NewMetrics(reg), s.logger)
	s.ratingService = rating.NewService(s.swapRepo, s.memberService, s.emitter, rating.NewMetrics(reg), s.logger)

	s.moderationService = moderation.NewService(
		s.reportRepo,
		s.submissionRepo,
		s.memberService,
		s.swapService,
		s.ids,
		s.emitter,
		moderation.NewMetrics(reg),
		s.logger,
		moderation.WithFlagTerms(s.config.FlagTerms...),
	)
}

func (s *Server) initIdentity(ctx context.Context) error {
	var verifier identity.TokenVerifier
	if s.config.OIDC.Enabled() {
		o, err := identity.NewOIDC(ctx, identity.OIDCConfig{
			Issuer:       s.config.OIDC.Issuer,
			ClientID:     s.config.OIDC.ClientID,
			ClientSecret: s.config.OIDC.ClientSecret,
			RedirectURL:  s.config.OIDC.RedirectURL,
		}, s.sessions, s.memberService, s.logger)
		if err != nil {
			return err
		}
		s.oidc = o
		verifier = o
	}

	if s.config.TrustIdentityHeader {
		s.logger.Warn(ctx, "trusting identity header", logger.Field{Key: "header", Value: identity.MemberIDHeader})
	}

	s.auth = identity.NewAuthenticator(s.sessions, s.memberService, verifier, s.config.TrustIdentityHeader, s.logger)
	return nil
}

func (s *Server) initRoutes() {
	if s.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	routes := NewRoutes(r, s.auth)
	routes.setupCORS(s.config.CORSAllowedOrigins)
	routes.setupInfraRoutes(s.healthCheck)
	// Business logic endpoints
	routes.setupAuthRoutes(s.oidc)
	routes.setupMemberRoutes(member.NewHandler(s.memberService))
	routes.setupMatchingRoutes(matching.NewHandler(s.matchingService))
	routes.setupSwapRoutes(swap.NewHandler(s.swapService), rating.NewHandler(s.ratingService))
	routes.setupModerationRoutes(moderation.NewHandler(s.moderationService))

	s.router = r
	s.http = &http.Server{
		Addr:              s.config.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) healthCheck(ctx context.Context) error {
	if err := s.cache.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if s.db != nil {
		if err := s.db.DB().PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	}
	return nil
}

// Run starts the HTTP server and blocks until it is shut down
func (s *Server) Run() error {
	s.logger.Info(context.Background(), "Server listening", logger.Field{Key: "addr", Value: s.http.Addr})

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if s.embedded != nil {
		s.embedded.Close()
	}
	if s.shutdown != nil {
		if err := s.shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}
