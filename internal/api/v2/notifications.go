package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/errors"
	"github.com/alliancehq/alliance-manager/internal/logger"
	"github.com/alliancehq/alliance-manager/internal/notification"
)

const (
	testNotificationTitle = "Test de notification"
	testNotificationBody  = "Ce canal est correctement configuré pour recevoir les alertes de l'alliance."
)

// initNotificationRoutes registers notification channel endpoints.
func (c *Controller) initNotificationRoutes() {
	notifications := c.Group.Group("/notifications")

	notifications.GET("", c.ListNotificationConfigs)
	notifications.POST("", c.UpsertNotificationConfig)
	notifications.POST("/test", c.TestNotificationConfig, c.throttled)
	notifications.PUT("/:channel", c.UpsertNotificationConfig)
}

type notificationConfigRequest struct {
	Channel   entities.Channel `json:"channel"`
	IsEnabled bool             `json:"isEnabled"`
	Config    json.RawMessage  `json:"config"`
}

// ListNotificationConfigs returns every channel configuration.
func (c *Controller) ListNotificationConfigs(ctx echo.Context) error {
	configs, err := c.configs.List(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list notification configs", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"configs": configs,
		"count":   len(configs),
	})
}

// UpsertNotificationConfig creates or replaces the config of a channel and
// reloads the engine's destinations.
func (c *Controller) UpsertNotificationConfig(ctx echo.Context) error {
	var req notificationConfigRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if p := ctx.Param("channel"); p != "" {
		req.Channel = entities.Channel(strings.ToUpper(p))
	}

	if !req.Channel.Valid() || req.Channel == entities.ChannelInApp {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid notification channel"})
	}

	cfg := entities.NotificationConfig{
		Channel:   req.Channel,
		IsEnabled: req.IsEnabled,
		Config:    []byte(req.Config),
	}
	if err := c.engine.Directory().ValidateConfig(cfg); err != nil {
		return c.HandleError(ctx, err, "Invalid notification config", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	if err := c.configs.Upsert(reqCtx, &cfg); err != nil {
		return c.HandleError(ctx, err, "Failed to save notification config", http.StatusInternalServerError)
	}
	if err := c.engine.Initialize(reqCtx); err != nil {
		return c.HandleError(ctx, err, "Failed to reload notification channels", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("notification config saved",
		logger.String("channel", string(cfg.Channel)),
		logger.Bool("enabled", cfg.IsEnabled))

	return ctx.JSON(http.StatusOK, cfg)
}

// TestNotificationConfig sends a test message through a stored channel
// config, enabled or not, and records the outcome on the config.
func (c *Controller) TestNotificationConfig(ctx echo.Context) error {
	var body struct {
		Channel entities.Channel `json:"channel"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if !body.Channel.Valid() || body.Channel == entities.ChannelInApp {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid notification channel"})
	}

	reqCtx := ctx.Request().Context()
	cfg, err := c.configs.GetByChannel(reqCtx, body.Channel)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationConfigNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification channel is not configured"})
		}
		return c.HandleError(ctx, err, "Failed to load notification config", http.StatusInternalServerError)
	}

	now := time.Now()
	sendErr := c.sendTestNotification(ctx, *cfg, now)

	status := entities.TestSuccess
	var errMsg *string
	if sendErr != nil {
		status = entities.TestFailed
		msg := sendErr.Error()
		errMsg = &msg
		c.log.Warn("notification test failed",
			logger.String("channel", string(body.Channel)),
			logger.Error(sendErr))
	}

	if err := c.configs.UpdateTestResult(reqCtx, body.Channel, status, errMsg, now); err != nil {
		return c.HandleError(ctx, err, "Failed to record test result", http.StatusInternalServerError)
	}

	resp := map[string]any{"success": sendErr == nil}
	if errMsg != nil {
		resp["error"] = *errMsg
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) sendTestNotification(ctx echo.Context, cfg entities.NotificationConfig, now time.Time) error {
	sender, err := c.engine.Directory().Build(cfg)
	if err != nil {
		return err
	}
	return sender.Send(ctx.Request().Context(), notification.Message{
		Title:     testNotificationTitle,
		Body:      testNotificationBody,
		Severity:  entities.SeverityLow,
		Timestamp: now,
	})
}
