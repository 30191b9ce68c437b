package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/brpaz/echozap"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/auth"
	"github.com/tidepool-org/blip/authz"
	"github.com/tidepool-org/blip/config"
	"github.com/tidepool-org/blip/errors"
)

const readinessRoute = "/ready"

type HealthCheck struct {
	ready bool
}

func NewHealthCheck() *HealthCheck {
	return &HealthCheck{}
}

func (h *HealthCheck) SetReady(ready bool) {
	h.ready = ready
}

// Ready responds with 503 until the database has been reached
func (h *HealthCheck) Ready(ec echo.Context) error {
	if !h.ready {
		return ec.NoContent(http.StatusServiceUnavailable)
	}
	return ec.NoContent(http.StatusOK)
}

// RouteSkipper matches requests by their registered route path
func RouteSkipper(routes ...string) middleware.Skipper {
	skipped := make(map[string]struct{}, len(routes))
	for _, route := range routes {
		skipped[route] = struct{}{}
	}

	return func(ec echo.Context) bool {
		_, ok := skipped[ec.Path()]
		return ok
	}
}

type ServerParams struct {
	fx.In

	Handler       *Handler
	HealthCheck   *HealthCheck
	Authenticator auth.Authenticator
	Authorizer    authz.RequestAuthorizer
	Logger        *zap.Logger
}

func NewServer(p ServerParams) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	skipper := RouteSkipper(readinessRoute)

	e.Use(middleware.Recover())
	e.Use(echozap.ZapLogger(p.Logger))
	e.Use(auth.NewAuthMiddleware(p.Authenticator, auth.AuthMiddlewareOpts{
		Skipper: skipper,
	}))
	e.Use(authz.NewMiddleware(p.Authorizer, authz.MiddlewareOpts{
		Skipper: skipper,
	}))

	e.HTTPErrorHandler = errors.CustomHTTPErrorHandler

	e.GET(readinessRoute, p.HealthCheck.Ready)
	RegisterHandlers(e, p.Handler)

	return e
}

func Start(e *echo.Echo, cfg *config.Config, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) {
	address := fmt.Sprintf(":%d", cfg.HttpPort)
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(address); err != nil && err != http.ErrServerClosed {
					logger.Errorw("server stopped unexpectedly", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

// SetReady marks the service ready once the database responds. Hooks run in
// dependency order so the repositories are initialized by then.
func SetReady(healthCheck *HealthCheck, db *mongo.Database, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Client().Ping(ctx, nil); err != nil {
				return err
			}
			healthCheck.SetReady(true)
			return nil
		},
	})
}
