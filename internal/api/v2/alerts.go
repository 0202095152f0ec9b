package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alliancehq/alliance-manager/internal/alerting"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/errors"
	"github.com/alliancehq/alliance-manager/internal/logger"
)

// QueryValueTrue is the query string value accepted as true.
const QueryValueTrue = "true"

// initAlertRoutes registers alert rule API endpoints.
func (c *Controller) initAlertRoutes() {
	alerts := c.Group.Group("/alerts")

	alerts.GET("", c.ListAlertRules)
	alerts.POST("", c.CreateAlertRule)
	alerts.GET("/templates", c.GetAlertTemplates)
	alerts.POST("/check", c.CheckAlertsNow, c.throttled)
	alerts.POST("/reset-defaults", c.ResetDefaultAlertRules)
	alerts.GET("/:id", c.GetAlertRule)
	alerts.PUT("/:id", c.UpdateAlertRule)
	alerts.DELETE("/:id", c.DeleteAlertRule)
	alerts.PATCH("/:id/toggle", c.ToggleAlertRule)
	alerts.POST("/:id/test", c.TestAlertRule, c.throttled)
}

// ruleRequest is the body of create and update.
type ruleRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Type        string             `json:"type"`
	IsActive    *bool              `json:"isActive"`
	Conditions  json.RawMessage    `json:"conditions"`
	Severity    entities.Severity  `json:"severity"`
	Channels    []entities.Channel `json:"channels"`
	Cooldown    int                `json:"cooldown"`
}

// apply validates req and copies it onto rule.
func (req *ruleRequest) apply(rule *entities.AlertRule) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return validationError("rule name is required")
	}
	if req.Name == alerting.SystemErrorRuleName {
		return validationError("rule name is reserved")
	}

	t := alerting.AlertType(req.Type)
	if _, ok := alerting.GetTemplate(t); !ok {
		return validationError(fmt.Sprintf("unsupported alert type %q", req.Type))
	}
	if len(req.Conditions) == 0 {
		req.Conditions = json.RawMessage(`{}`)
	}
	if err := alerting.ValidateConditions(t, req.Conditions); err != nil {
		return err
	}

	if req.Severity == "" {
		req.Severity = entities.SeverityMedium
	}
	if !req.Severity.Valid() {
		return validationError(fmt.Sprintf("unsupported severity %q", req.Severity))
	}

	if len(req.Channels) == 0 {
		req.Channels = []entities.Channel{entities.ChannelInApp}
	}
	for _, ch := range req.Channels {
		if !ch.Valid() {
			return validationError(fmt.Sprintf("unsupported channel %q", ch))
		}
	}
	if req.Cooldown < 0 {
		return validationError("cooldown must not be negative")
	}

	rule.Name = req.Name
	rule.Description = req.Description
	rule.Type = req.Type
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	rule.Conditions = []byte(req.Conditions)
	rule.Severity = req.Severity
	rule.Channels = req.Channels
	rule.Cooldown = req.Cooldown
	return nil
}

func validationError(msg string) error {
	return errors.Newf("%s", msg).
		Component("api").
		Category(errors.CategoryValidation).
		Build()
}

// ListAlertRules returns all alert rules, optionally filtered.
func (c *Controller) ListAlertRules(ctx echo.Context) error {
	filter := repository.AlertRuleFilter{Type: ctx.QueryParam("type")}
	if activeParam := ctx.QueryParam("active"); activeParam != "" {
		v := activeParam == QueryValueTrue
		filter.Active = &v
	}

	rules, err := c.rules.ListRules(ctx.Request().Context(), filter)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list alert rules", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// GetAlertRule returns a single alert rule by ID.
func (c *Controller) GetAlertRule(ctx echo.Context) error {
	rule, err := c.loadRule(ctx)
	if err != nil {
		return err
	}
	if rule == nil {
		return nil
	}
	return ctx.JSON(http.StatusOK, rule)
}

// CreateAlertRule creates a new alert rule.
func (c *Controller) CreateAlertRule(ctx echo.Context) error {
	var req ruleRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	rule := entities.AlertRule{IsActive: true}
	if err := req.apply(&rule); err != nil {
		return c.HandleError(ctx, err, "Invalid alert rule", http.StatusBadRequest)
	}

	count, err := c.rules.CountRulesByName(ctx.Request().Context(), rule.Name)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create alert rule", http.StatusInternalServerError)
	}
	if count > 0 {
		return ctx.JSON(http.StatusConflict, map[string]string{"error": "A rule with this name already exists"})
	}

	if err := c.rules.CreateRule(ctx.Request().Context(), &rule); err != nil {
		return c.HandleError(ctx, err, "Failed to create alert rule", http.StatusInternalServerError)
	}

	c.logInfoIfEnabled("alert rule created",
		logger.String("name", rule.Name),
		logger.Uint64("id", uint64(rule.ID)))

	return ctx.JSON(http.StatusCreated, rule)
}

// UpdateAlertRule replaces an existing alert rule. The built-in flag and
// the last trigger time are kept.
func (c *Controller) UpdateAlertRule(ctx echo.Context) error {
	rule, err := c.loadRule(ctx)
	if err != nil || rule == nil {
		return err
	}

	var req ruleRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	previousName := rule.Name
	if err := req.apply(rule); err != nil {
		return c.HandleError(ctx, err, "Invalid alert rule", http.StatusBadRequest)
	}

	if rule.Name != previousName {
		count, err := c.rules.CountRulesByName(ctx.Request().Context(), rule.Name)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to update alert rule", http.StatusInternalServerError)
		}
		if count > 0 {
			return ctx.JSON(http.StatusConflict, map[string]string{"error": "A rule with this name already exists"})
		}
	}

	if err := c.rules.UpdateRule(ctx.Request().Context(), rule); err != nil {
		return c.HandleError(ctx, err, "Failed to update alert rule", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, rule)
}

// ToggleAlertRule enables or disables an alert rule.
func (c *Controller) ToggleAlertRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	var body struct {
		IsActive bool `json:"isActive"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	if err := c.rules.ToggleRule(ctx.Request().Context(), id, body.IsActive); err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to toggle alert rule", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "isActive": body.IsActive})
}

// DeleteAlertRule deletes an alert rule and its alerts.
func (c *Controller) DeleteAlertRule(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	if err := c.rules.DeleteRule(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert rule not found"})
		}
		return c.HandleError(ctx, err, "Failed to delete alert rule", http.StatusInternalServerError)
	}

	return ctx.NoContent(http.StatusNoContent)
}

// CheckAlertsNow runs one alert-check cycle on the request goroutine.
func (c *Controller) CheckAlertsNow(ctx echo.Context) error {
	result, err := c.scheduler.RunNow(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Alert check failed", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"result": result})
}

// TestAlertRule evaluates a rule without recording an alert, and optionally
// sends the result to the rule's channels.
func (c *Controller) TestAlertRule(ctx echo.Context) error {
	rule, err := c.loadRule(ctx)
	if err != nil || rule == nil {
		return err
	}

	var body struct {
		SendNotifications bool `json:"sendNotifications"`
	}
	if ctx.Request().ContentLength != 0 {
		if err := ctx.Bind(&body); err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		}
	}

	reqCtx := ctx.Request().Context()
	result, err := c.engine.TestRule(reqCtx, rule)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to test alert rule", http.StatusInternalServerError)
	}

	resp := map[string]any{"result": result}
	if body.SendNotifications {
		delivery, err := c.engine.SendTestNotifications(reqCtx, rule, result)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to send test notifications", http.StatusInternalServerError)
		}
		resp["delivery"] = delivery
	}
	return ctx.JSON(http.StatusOK, resp)
}

// ResetDefaultAlertRules deletes all built-in rules and seeds them again.
func (c *Controller) ResetDefaultAlertRules(ctx echo.Context) error {
	deleted, created, err := alerting.ResetDefaultRules(ctx.Request().Context(), c.rules, c.log)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to reset default rules", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"deleted": deleted,
		"created": created,
	})
}

type templateResponse struct {
	alerting.Template
	ComparisonOptions []alerting.ComparisonOption `json:"comparisonOptions"`
}

// GetAlertTemplates returns the template registry for the rule editor.
func (c *Controller) GetAlertTemplates(ctx echo.Context) error {
	renderer := c.engine.Renderer()
	templates := alerting.Templates()
	out := make([]templateResponse, 0, len(templates))
	for _, tpl := range templates {
		out = append(out, templateResponse{
			Template:          tpl,
			ComparisonOptions: alerting.ComparisonOptions(tpl.Type, renderer),
		})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"templates": out})
}

// loadRule resolves the :id parameter. When it returns a nil rule and a nil
// error, the response has already been written.
func (c *Controller) loadRule(ctx echo.Context) (*entities.AlertRule, error) {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return nil, ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid rule ID"})
	}

	rule, err := c.rules.GetRule(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertRuleNotFound) {
			return nil, ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alert rule not found"})
		}
		return nil, c.HandleError(ctx, err, "Failed to get alert rule", http.StatusInternalServerError)
	}
	return rule, nil
}
