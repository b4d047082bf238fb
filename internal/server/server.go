package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	bookingdomain "github.com/smallbiznis/studiobook/internal/booking/domain"
	"github.com/smallbiznis/studiobook/internal/config"
	gamificationdomain "github.com/smallbiznis/studiobook/internal/gamification/domain"
	"github.com/smallbiznis/studiobook/internal/observability"
	obsmiddleware "github.com/smallbiznis/studiobook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/studiobook/internal/observability/metrics"
	obstracing "github.com/smallbiznis/studiobook/internal/observability/tracing"
	"github.com/smallbiznis/studiobook/internal/ratelimit"
	reviewdomain "github.com/smallbiznis/studiobook/internal/review/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	bookingSvc      bookingdomain.Service
	reviewSvc       reviewdomain.Service
	gamificationSvc gamificationdomain.Service
	evaluateLimiter *ratelimit.EvaluateLimiter
	levelingMetrics *obsmetrics.LevelingMetrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	BookingSvc      bookingdomain.Service
	ReviewSvc       reviewdomain.Service
	GamificationSvc gamificationdomain.Service

	EvaluateLimiter *ratelimit.EvaluateLimiter   `optional:"true"`
	LevelingMetrics *obsmetrics.LevelingMetrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		bookingSvc:      p.BookingSvc,
		reviewSvc:       p.ReviewSvc,
		gamificationSvc: p.GamificationSvc,
		evaluateLimiter: p.EvaluateLimiter,
		levelingMetrics: p.LevelingMetrics,
	}

	svc.registerHealthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerHealthRoutes() {
	s.engine.GET("/health", s.Health)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Bookings --------
	api.POST("/bookings", s.CreateBooking)
	api.GET("/bookings", s.ListBookings)
	api.GET("/bookings/:id", s.GetBookingByID)
	api.PATCH("/bookings/:id/status", s.UpdateBookingStatus)

	// -------- Reviews --------
	api.POST("/reviews", s.CreateReview)

	// -------- Gamification --------
	api.GET("/artists/:id/gamification", s.GetSubjectGamification(gamificationdomain.SubjectRoleArtist))
	api.GET("/studios/:id/gamification", s.GetSubjectGamification(gamificationdomain.SubjectRoleStudio))

	gamification := api.Group("/gamification")
	{
		gamification.GET("/requirements", s.GetLevelRequirements)
		gamification.GET("/stats", s.GetGamificationStats)
		gamification.PUT("/:subjectRole/:subjectId", s.ManualEvaluateRateLimit(), s.EvaluateSubject)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
	s.engine.NoMethod(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

// Health pings the database; a failed ping reports 503.
func (s *Server) Health(c *gin.Context) {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unreachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
