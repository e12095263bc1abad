package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/smallbiznis/crudforge/internal/auth/domain"
	"github.com/smallbiznis/crudforge/internal/authorization"
	"github.com/smallbiznis/crudforge/internal/codegen"
	"github.com/smallbiznis/crudforge/internal/config"
	obsmiddleware "github.com/smallbiznis/crudforge/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/crudforge/internal/observability/metrics"
	obstracing "github.com/smallbiznis/crudforge/internal/observability/tracing"
	orgdomain "github.com/smallbiznis/crudforge/internal/organization/domain"
	"github.com/smallbiznis/crudforge/internal/ratelimit"
	userdomain "github.com/smallbiznis/crudforge/internal/user/domain"
	"github.com/smallbiznis/crudforge/internal/web"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(cfg config.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           cfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	policy       *config.PolicyHolder
	orgSvc       orgdomain.Service
	userSvc      userdomain.Service
	authSvc      authdomain.Service
	authzSvc     *authorization.Service
	codegen      *codegen.Generator
	page         *web.Page
	obsMetrics   *obsmetrics.Metrics
	loginLimiter *ratelimit.LoginLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Policy       *config.PolicyHolder
	OrgSvc       orgdomain.Service
	UserSvc      userdomain.Service
	AuthSvc      authdomain.Service
	AuthzSvc     *authorization.Service
	Codegen      *codegen.Generator
	Page         *web.Page
	ObsMetrics   *obsmetrics.Metrics     `optional:"true"`
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		policy:       p.Policy,
		orgSvc:       p.OrgSvc,
		userSvc:      p.UserSvc,
		authSvc:      p.AuthSvc,
		authzSvc:     p.AuthzSvc,
		codegen:      p.Codegen,
		page:         p.Page,
		obsMetrics:   p.ObsMetrics,
		loginLimiter: p.LoginLimiter,
	}

	svc.registerUIRoutes()
	svc.registerOrgRoutes()
	svc.registerAuthRoutes()
	svc.registerUserRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerUIRoutes() {
	if s.page != nil {
		s.page.Register(s.engine)
	}
}

func (s *Server) registerOrgRoutes() {
	s.engine.GET("/generate_org", s.GenerateOrg)
	s.engine.GET("/generate_sample_code", s.GenerateSampleCode)
	s.engine.GET("/api/org/:org_id", s.GetOrg)
}

func (s *Server) registerAuthRoutes() {
	s.engine.POST("/token", s.LoginRateLimit(), s.Login)
}

func (s *Server) registerUserRoutes() {
	users := s.engine.Group("/api/org/:org_id/users")

	users.POST("/", s.authorizeUserRoute(routeCreate), s.CreateUser)
	users.GET("/:org_user_id", s.authorizeUserRoute(routeGet), s.GetUser)
	users.PUT("/:org_user_id", s.authorizeUserRoute(routeUpdate), s.UpdateUser)
	users.DELETE("/:org_user_id", s.authorizeUserRoute(routeDelete), s.DeleteUser)
}

// RunHTTP serves the engine for the lifetime of the fx app.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
