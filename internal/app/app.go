package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/session-auth/internal/config"
	"github.com/prperemyshlev/session-auth/internal/domain"
	"github.com/prperemyshlev/session-auth/internal/handler"
	"github.com/prperemyshlev/session-auth/internal/repository"
	"github.com/prperemyshlev/session-auth/internal/service"
	"github.com/prperemyshlev/session-auth/internal/utils"
	"github.com/prperemyshlev/session-auth/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra  Infrastructure
	config *config.Config
	router *gin.Engine
	server *http.Server
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	logger := infra.Logger()
	repos := repository.NewRepositories(infra.Postgres())

	metrics, err := service.NewMetrics(infra.MeterProvider().Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	jwtManager := utils.NewJWTManager(cfg.Token.Secret, cfg.Token.AccessTokenTTL.Duration)
	signedCodec := utils.NewSignedTokenCodec(cfg.SignedToken.Secret, map[domain.TokenPurpose]time.Duration{
		domain.PurposeConfirmEmail:  cfg.SignedToken.ConfirmEmailTTL.Duration,
		domain.PurposeResetPassword: cfg.SignedToken.ResetPasswordTTL.Duration,
	}, time.Now)

	credentialStore := service.NewCredentialStore(
		repos.User,
		cfg.Security.BCryptCost,
		cfg.Security.RequireEmailConfirmation,
		time.Now,
	)
	signedTokens := service.NewSignedTokenService(signedCodec, repos.User, logger)
	tokenManager := service.NewTokenManager(repos.OAuthToken, jwtManager, time.Now, logger, metrics)
	notifier := service.NewLogNotifier(logger, cfg.Env != "production")

	authService := service.NewAuthService(
		credentialStore,
		signedTokens,
		tokenManager,
		notifier,
		logger,
		metrics,
	)

	rateLimiter := service.NewRateLimiter(infra.Redis(), time.Now)
	healthChecker := NewHealthChecker(infra)
	authHandler := handler.NewAuthHandler(authService, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(handler.LoggerMiddleware(logger))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, authHandler, authService, rateLimiter, healthChecker, infra.MetricsHandler(), logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:  infra,
		config: cfg,
		router: router,
		server: srv,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	authService service.AuthService,
	limiter service.Limiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
	logger *zap.Logger,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	limited := handler.RateLimitMiddleware(
		limiter,
		cfg.Security.RateLimitRequests,
		cfg.Security.RateLimitWindow.Duration,
		handler.RouteAndIPKey,
		logger,
	)
	authenticated := handler.AuthMiddleware(authService, logger)

	api := router.Group("/api")
	{
		users := api.Group("/users")
		{
			users.POST("", limited, authHandler.Register)
			users.GET("/me", authenticated, authHandler.GetMe)
			users.PUT("/me/email", authenticated, authHandler.ChangeEmail)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("/sign_in", limited, authHandler.SignIn)
			sessions.DELETE("/sign_out", authHandler.SignOut)
			sessions.PUT("/refresh_token", limited, authHandler.RefreshToken)
		}

		confirmations := api.Group("/confirmations")
		{
			confirmations.POST("", limited, authHandler.ResendConfirmation)
			confirmations.PUT("/:token", limited, authHandler.ConfirmEmail)
		}

		passwords := api.Group("/passwords")
		{
			passwords.POST("", limited, authHandler.RequestPasswordReset)
			passwords.PUT("/:token", limited, authHandler.ResetPassword)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 2)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
