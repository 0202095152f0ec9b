package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alliancehq/alliance-manager/internal/alerting"
	"github.com/alliancehq/alliance-manager/internal/errors"
	"github.com/alliancehq/alliance-manager/internal/logger"
)

const schedulerHistorySize = 10

// initSchedulerRoutes registers scheduler control endpoints.
func (c *Controller) initSchedulerRoutes() {
	scheduler := c.Group.Group("/alerts/scheduler")

	scheduler.GET("", c.GetSchedulerStatus)
	scheduler.POST("/start", c.StartScheduler)
	scheduler.POST("/stop", c.StopScheduler)
	scheduler.PUT("/interval", c.SetSchedulerInterval)
}

// GetSchedulerStatus returns the scheduler state and its recent runs.
func (c *Controller) GetSchedulerStatus(ctx echo.Context) error {
	return c.schedulerResponse(ctx)
}

// StartScheduler starts periodic checks. Starting twice is a no-op.
func (c *Controller) StartScheduler(ctx echo.Context) error {
	c.scheduler.Start()
	c.logInfoIfEnabled("alert scheduler started from API",
		logger.Any("user", ctx.Get(ctxUserKey)))
	return c.schedulerResponse(ctx)
}

// StopScheduler stops periodic checks, waiting for a running cycle.
func (c *Controller) StopScheduler(ctx echo.Context) error {
	c.scheduler.Stop()
	c.logInfoIfEnabled("alert scheduler stopped from API",
		logger.Any("user", ctx.Get(ctxUserKey)))
	return c.schedulerResponse(ctx)
}

// SetSchedulerInterval changes the check interval in minutes.
func (c *Controller) SetSchedulerInterval(ctx echo.Context) error {
	var body struct {
		IntervalMinutes int `json:"intervalMinutes"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := c.scheduler.SetInterval(body.IntervalMinutes); err != nil {
		if errors.Is(err, alerting.ErrInvalidInterval) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.HandleError(ctx, err, "Failed to set interval", http.StatusInternalServerError)
	}
	return c.schedulerResponse(ctx)
}

func (c *Controller) schedulerResponse(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":  c.scheduler.Status(),
		"history": c.scheduler.History(schedulerHistorySize),
	})
}
