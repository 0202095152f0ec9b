// Package api serves the admin HTTP API.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/alliancehq/alliance-manager/internal/alerting"
	"github.com/alliancehq/alliance-manager/internal/auth"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/errors"
	"github.com/alliancehq/alliance-manager/internal/logger"
)

const (
	// Manual checks and test sends hit the database and external services.
	defaultThrottleInterval = 5 * time.Second
	defaultThrottleBurst    = 3

	ctxUserKey = "user"
)

// Options wires a Controller.
type Options struct {
	Rules    repository.AlertRuleRepository
	Configs  repository.NotificationConfigRepository
	Alerting *alerting.Service
	Auth     *auth.Service
	Gatherer prometheus.Gatherer
	Logger   logger.Logger

	// Throttle limits manual checks and test sends. Nil uses the default.
	Throttle *rate.Limiter
}

// Controller owns the admin routes and their dependencies.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	rules     repository.AlertRuleRepository
	configs   repository.NotificationConfigRepository
	engine    *alerting.Engine
	scheduler *alerting.Scheduler
	feed      *alerting.AlertFeed
	auth      *auth.Service
	gatherer  prometheus.Gatherer
	throttle  *rate.Limiter
	log       logger.Logger
}

// NewEcho returns an echo instance with the standard middleware.
func NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	return e
}

// New creates the controller and registers its routes on e.
func New(e *echo.Echo, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logger.NewNoopLogger()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Throttle == nil {
		opts.Throttle = rate.NewLimiter(rate.Every(defaultThrottleInterval), defaultThrottleBurst)
	}

	c := &Controller{
		Echo:      e,
		rules:     opts.Rules,
		configs:   opts.Configs,
		engine:    opts.Alerting.Engine,
		scheduler: opts.Alerting.Scheduler,
		feed:      opts.Alerting.Feed,
		auth:      opts.Auth,
		gatherer:  opts.Gatherer,
		throttle:  opts.Throttle,
		log:       opts.Logger.Module("api"),
	}
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})))

	c.initAuthRoutes()

	c.Group = c.Echo.Group("/api/admin", c.authMiddleware)
	c.initAlertRoutes()
	c.initHistoryRoutes()
	c.initSchedulerRoutes()
	c.initNotificationRoutes()
	c.initStreamRoutes()
}

// authMiddleware rejects requests without a valid admin session.
func (c *Controller) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		user, ok := c.auth.CurrentUser(ctx.Request())
		if !ok {
			return ctx.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required"})
		}
		ctx.Set(ctxUserKey, user)
		return next(ctx)
	}
}

// throttled rejects a request when the shared limiter is exhausted.
func (c *Controller) throttled(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !c.throttle.Allow() {
			return ctx.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many requests, please wait before trying again",
			})
		}
		return next(ctx)
	}
}

// HandleError logs err and writes a JSON error response. Validation errors
// are returned to the client as 400 with their own message.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	if errors.CategoryOf(err) == errors.CategoryValidation {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if code >= http.StatusInternalServerError {
		c.logErrorIfEnabled(message,
			logger.String("path", ctx.Path()),
			logger.Error(err))
	}
	return ctx.JSON(code, map[string]string{"error": message})
}

func (c *Controller) logErrorIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil {
		c.log.Error(msg, fields...)
	}
}

func (c *Controller) logInfoIfEnabled(msg string, fields ...logger.Field) {
	if c.log != nil {
		c.log.Info(msg, fields...)
	}
}

// parseUintParam parses a uint route parameter.
func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
