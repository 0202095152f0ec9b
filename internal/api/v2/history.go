package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/errors"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// initHistoryRoutes registers alert history endpoints.
func (c *Controller) initHistoryRoutes() {
	history := c.Group.Group("/alerts/history")

	history.GET("", c.ListAlertHistory)
	history.PUT("/:id/read", c.MarkAlertRead)
	history.PUT("/:id/resolve", c.ResolveAlert)
	history.GET("/:id/notifications", c.ListAlertNotifications)
}

// ListAlertHistory returns raised alerts, newest first, with pagination.
func (c *Controller) ListAlertHistory(ctx echo.Context) error {
	filter := repository.AlertFilter{
		Unread:     ctx.QueryParam("unread") == QueryValueTrue,
		Unresolved: ctx.QueryParam("unresolved") == QueryValueTrue,
		Limit:      defaultHistoryLimit,
	}

	if v := ctx.QueryParam("rule_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule_id"})
		}
		filter.RuleID = uint(id)
	}
	if v := ctx.QueryParam("severity"); v != "" {
		sev := entities.Severity(v)
		if !sev.Valid() {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid severity"})
		}
		filter.Severity = sev
	}
	if v := ctx.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid limit"})
		}
		filter.Limit = min(limit, maxHistoryLimit)
	}
	if v := ctx.QueryParam("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid offset"})
		}
		filter.Offset = offset
	}

	alerts, total, err := c.rules.ListAlerts(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list alert history", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alerts": alerts,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// MarkAlertRead flags an alert as read.
func (c *Controller) MarkAlertRead(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alert ID"})
	}
	if err := c.rules.MarkAlertRead(ctx.Request().Context(), id); err != nil {
		return c.alertError(ctx, err, "Failed to mark alert as read")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ResolveAlert marks an alert resolved at the current time.
func (c *Controller) ResolveAlert(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alert ID"})
	}
	if err := c.rules.ResolveAlert(ctx.Request().Context(), id, time.Now()); err != nil {
		return c.alertError(ctx, err, "Failed to resolve alert")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ListAlertNotifications returns the delivery audit of one alert.
func (c *Controller) ListAlertNotifications(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alert ID"})
	}

	reqCtx := ctx.Request().Context()
	if _, err := c.rules.GetAlert(reqCtx, id); err != nil {
		return c.alertError(ctx, err, "Failed to get alert")
	}
	notifications, err := c.rules.ListNotifications(reqCtx, id)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list notifications", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": notifications,
		"count":         len(notifications),
	})
}

func (c *Controller) alertError(ctx echo.Context, err error, message string) error {
	if errors.Is(err, repository.ErrAlertNotFound) {
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert not found"})
	}
	return c.HandleError(ctx, err, message, http.StatusInternalServerError)
}
