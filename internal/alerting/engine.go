package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/datastore/v2/repository"
	"github.com/alliancehq/alliance-manager/internal/errors"
	"github.com/alliancehq/alliance-manager/internal/logger"
	"github.com/alliancehq/alliance-manager/internal/notification"
	"github.com/alliancehq/alliance-manager/internal/observability/metrics"
	"github.com/alliancehq/alliance-manager/internal/observability/telemetry"
)

// CheckOutcome is the result of checking one rule.
type CheckOutcome string

const (
	OutcomeTriggered CheckOutcome = metrics.ResultTriggered
	OutcomeNotMet    CheckOutcome = metrics.ResultNotMet
	OutcomeCooldown  CheckOutcome = metrics.ResultCooldown
	OutcomeError     CheckOutcome = metrics.ResultError
	OutcomeInactive  CheckOutcome = "inactive"
)

// CycleResult counts the outcomes of one pass over the active rules.
type CycleResult struct {
	RulesChecked int `json:"rulesChecked"`
	Triggered    int `json:"triggered"`
	NotMet       int `json:"notMet"`
	Cooldown     int `json:"cooldown"`
	Errors       int `json:"errors"`
}

func (r *CycleResult) add(o CheckOutcome) {
	r.RulesChecked++
	switch o {
	case OutcomeTriggered:
		r.Triggered++
	case OutcomeNotMet:
		r.NotMet++
	case OutcomeCooldown:
		r.Cooldown++
	case OutcomeError:
		r.Errors++
	}
}

// Evaluation is a rendered rule check that has not been persisted.
type Evaluation struct {
	Triggered   bool           `json:"triggered"`
	Value       Scalar         `json:"value"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Measurement Measurement    `json:"measurement"`
	Conditions  map[string]any `json:"conditions"`
}

// TestResult is returned by a rule test.
type TestResult struct {
	Evaluation
	InCooldown bool `json:"inCooldown"`
}

// TestDelivery is the result of sending a rule test to its channels.
type TestDelivery struct {
	AlertID string           `json:"alertId"`
	Results []DeliveryResult `json:"results"`
}

// EngineOptions wires an Engine.
type EngineOptions struct {
	Rules     repository.AlertRuleRepository
	Configs   notification.ConfigLister
	Alliance  repository.AllianceRepository
	Directory *notification.Directory
	Feed      *AlertFeed
	Reporter  telemetry.Reporter
	Metrics   *metrics.AlertingMetrics
	Clock     Clock
	Logger    logger.Logger
	Locale    string
	Location  *time.Location
	Capacity  int
}

// Engine checks alert rules, persists the alerts they raise and dispatches
// them to the rule channels.
type Engine struct {
	rules      repository.AlertRuleRepository
	configs    notification.ConfigLister
	directory  *notification.Directory
	collectors *Collectors
	renderer   *Renderer
	dispatcher *Dispatcher
	feed       *AlertFeed
	reporter   telemetry.Reporter
	metrics    *metrics.AlertingMetrics
	clock      Clock
	log        logger.Logger
}

// NewEngine creates a new alert engine.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNoopLogger()
	}
	if opts.Reporter == nil {
		opts.Reporter = telemetry.NoopReporter{}
	}
	if opts.Directory == nil {
		opts.Directory = notification.NewDirectory(notification.Options{})
	}
	log := opts.Logger.Module("alerting")
	return &Engine{
		rules:      opts.Rules,
		configs:    opts.Configs,
		directory:  opts.Directory,
		collectors: NewCollectors(opts.Alliance, opts.Clock, opts.Capacity, opts.Location),
		renderer:   NewRenderer(opts.Locale, opts.Location),
		dispatcher: NewDispatcher(opts.Rules, opts.Directory, opts.Clock, opts.Metrics, log),
		feed:       opts.Feed,
		reporter:   opts.Reporter,
		metrics:    opts.Metrics,
		clock:      opts.Clock,
		log:        log,
	}
}

// Renderer returns the engine's message renderer.
func (e *Engine) Renderer() *Renderer { return e.renderer }

// Directory returns the notification destinations loaded by Initialize.
func (e *Engine) Directory() *notification.Directory { return e.directory }

// Initialize loads the enabled notification destinations.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.configs == nil {
		return nil
	}
	if err := e.directory.Load(ctx, e.configs); err != nil {
		return errors.New(err).
			Component("alerting").
			Category(errors.CategoryDatabase).
			Build()
	}
	e.log.Debug("notification destinations loaded",
		logger.Int("channels", len(e.directory.Channels())))
	return nil
}

// RunAlertChecks reloads the destinations and checks every active rule.
func (e *Engine) RunAlertChecks(ctx context.Context) (CycleResult, error) {
	start := e.clock.Now()
	defer func() { e.metrics.ObserveCycle(e.clock.Now().Sub(start)) }()

	if err := e.Initialize(ctx); err != nil {
		return CycleResult{}, err
	}
	return e.CheckAllRules(ctx)
}

// CheckAllRules checks the active rules one after another.
func (e *Engine) CheckAllRules(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	rules, err := e.rules.GetActiveRules(ctx)
	if err != nil {
		return result, errors.New(err).
			Component("alerting").
			Category(errors.CategoryDatabase).
			Build()
	}

	for i := range rules {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.add(e.CheckRule(ctx, &rules[i]))
	}

	e.log.Info("alert check cycle completed",
		logger.Int("rules", result.RulesChecked),
		logger.Int("triggered", result.Triggered),
		logger.Int("errors", result.Errors))
	return result, nil
}

// CheckRule runs the production path for one rule. Failures are filed as
// SYSTEM_ERROR alerts and never returned.
func (e *Engine) CheckRule(ctx context.Context, rule *entities.AlertRule) CheckOutcome {
	outcome := e.checkRule(ctx, rule)
	if outcome != OutcomeInactive {
		e.metrics.RecordCheck(string(outcome))
	}
	return outcome
}

func (e *Engine) checkRule(ctx context.Context, rule *entities.AlertRule) CheckOutcome {
	if !rule.IsActive {
		return OutcomeInactive
	}
	now := e.clock.Now()
	if IsInCooldown(rule, now) {
		e.log.Debug("rule in cooldown",
			logger.Uint64("rule_id", uint64(rule.ID)),
			logger.Duration("remaining", CooldownRemaining(rule, now)))
		return OutcomeCooldown
	}

	eval, err := e.evaluate(ctx, rule)
	if err != nil {
		if isCancellation(err) {
			e.log.Warn("rule check interrupted",
				logger.Uint64("rule_id", uint64(rule.ID)),
				logger.Error(err))
			return OutcomeError
		}
		e.handleSystemError(context.WithoutCancel(ctx), rule, err)
		return OutcomeError
	}
	if !eval.Triggered {
		return OutcomeNotMet
	}

	alert, err := e.raise(ctx, rule, eval)
	if err != nil {
		if isCancellation(err) {
			e.log.Warn("rule check interrupted before the alert was stored",
				logger.Uint64("rule_id", uint64(rule.ID)),
				logger.Error(err))
			return OutcomeError
		}
		e.handleSystemError(context.WithoutCancel(ctx), rule, err)
		return OutcomeError
	}

	e.log.Info("alert triggered",
		logger.Uint64("rule_id", uint64(rule.ID)),
		logger.String("rule", rule.Name),
		logger.Uint64("alert_id", uint64(alert.ID)),
		logger.String("severity", string(rule.Severity)))
	return OutcomeTriggered
}

// raise persists the alert, dispatches it and stamps the rule. Once the
// alert row exists, delivery, audit and stamping run to completion even if
// ctx is cancelled.
func (e *Engine) raise(ctx context.Context, rule *entities.AlertRule, eval *Evaluation) (*entities.Alert, error) {
	data, err := json.Marshal(eval.Measurement)
	if err != nil {
		return nil, fmt.Errorf("failed to encode measurement: %w", err)
	}

	alert := &entities.Alert{
		RuleID:   rule.ID,
		Severity: rule.Severity,
		Title:    eval.Title,
		Message:  eval.Message,
		Data:     data,
	}
	if err := e.rules.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	e.dispatcher.Dispatch(ctx, rule, alert)

	now := e.clock.Now().UTC()
	if err := e.rules.MarkTriggered(ctx, rule.ID, now); err != nil {
		return nil, err
	}
	rule.LastTriggered = &now

	e.feed.Publish(alert)
	return alert, nil
}

// evaluate collects, compares and renders rule without side effects.
func (e *Engine) evaluate(ctx context.Context, rule *entities.AlertRule) (*Evaluation, error) {
	alertType := AlertType(rule.Type)
	tpl, ok := GetTemplate(alertType)
	if !ok {
		return nil, errors.New(fmt.Errorf("%w: %s", ErrUnknownAlertType, rule.Type)).
			Component("alerting").
			Category(errors.CategoryConfiguration).
			Context("rule_id", rule.ID).
			Build()
	}

	cond, raw, err := DecodeConditions(alertType, rule.Conditions)
	if err != nil {
		return nil, err
	}

	m, err := e.collectors.Collect(ctx, cond)
	if err != nil {
		return nil, errors.New(err).
			Component("alerting").
			Category(errors.CategoryDatabase).
			Context("rule_id", rule.ID).
			Context("alert_type", rule.Type).
			Build()
	}

	vars := m.Data.Variables()
	msgTemplate := tpl.MessageTemplate
	if strings.TrimSpace(rule.Description) != "" {
		msgTemplate = rule.Description
	}
	title := rule.Name
	if manual, ok := cond.(*ManualMessageConditions); ok && manual.Title != "" {
		title = manual.Title
	}

	return &Evaluation{
		Triggered:   Evaluate(m.Value, cond.Base()),
		Value:       m.Value,
		Title:       e.renderer.Render(title, vars, raw),
		Message:     e.renderer.Render(msgTemplate, vars, raw),
		Measurement: m,
		Conditions:  raw,
	}, nil
}

// handleSystemError files err as an alert of the system error rule and
// forwards it to telemetry.
func (e *Engine) handleSystemError(ctx context.Context, rule *entities.AlertRule, cause error) {
	e.log.Error("alert rule check failed",
		logger.Uint64("rule_id", uint64(rule.ID)),
		logger.String("rule", rule.Name),
		logger.Error(cause))
	if errors.CategoryOf(cause) != errors.CategoryValidation {
		e.reporter.CaptureError(cause, map[string]string{
			"rule_id":    strconv.FormatUint(uint64(rule.ID), 10),
			"alert_type": rule.Type,
		})
	}

	sys, err := e.systemRule(ctx)
	if err != nil {
		e.log.Error("failed to resolve system error rule", logger.Error(err))
		return
	}

	data, _ := json.Marshal(map[string]any{
		"ruleId":   rule.ID,
		"ruleName": rule.Name,
		"ruleType": rule.Type,
		"error":    cause.Error(),
	})
	alert := &entities.Alert{
		RuleID:   sys.ID,
		Severity: sys.Severity,
		Title:    "Erreur lors de la vérification: " + rule.Name,
		Message:  cause.Error(),
		Data:     data,
	}
	if err := e.rules.CreateAlert(ctx, alert); err != nil {
		e.log.Error("failed to record system error alert", logger.Error(err))
		return
	}
	e.feed.Publish(alert)
}

// isCancellation reports whether err comes from a cancelled or expired
// context rather than from the rule itself.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// systemRule returns the singleton system error rule, creating it on first use.
func (e *Engine) systemRule(ctx context.Context) (*entities.AlertRule, error) {
	rule, err := e.rules.GetRuleByName(ctx, SystemErrorRuleName)
	if err == nil {
		return rule, nil
	}
	if !errors.Is(err, repository.ErrAlertRuleNotFound) {
		return nil, err
	}

	rule = &entities.AlertRule{
		Name:        SystemErrorRuleName,
		Description: "Erreurs rencontrées par le moteur d'alertes",
		Type:        string(TypeSystemError),
		IsActive:    false,
		BuiltIn:     true,
		Conditions:  []byte("{}"),
		Severity:    entities.SeverityHigh,
		Channels:    []entities.Channel{entities.ChannelInApp},
	}
	if err := e.rules.CreateRule(ctx, rule); err != nil {
		// Another cycle may have created it concurrently.
		if existing, getErr := e.rules.GetRuleByName(ctx, SystemErrorRuleName); getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return rule, nil
}

// TestRule evaluates rule regardless of its active flag and cooldown. No
// alert is created and the rule is not stamped.
func (e *Engine) TestRule(ctx context.Context, rule *entities.AlertRule) (*TestResult, error) {
	eval, err := e.evaluate(ctx, rule)
	if err != nil {
		return nil, err
	}
	return &TestResult{
		Evaluation: *eval,
		InCooldown: IsInCooldown(rule, e.clock.Now()),
	}, nil
}

// SendTestNotifications delivers a test result to the channels of rule using
// a synthetic, unpersisted alert. Only IN_APP leaves a row, prefixed [TEST].
func (e *Engine) SendTestNotifications(ctx context.Context, rule *entities.AlertRule, result *TestResult) (*TestDelivery, error) {
	if result == nil {
		return nil, errors.Newf("missing test result").
			Component("alerting").
			Category(errors.CategoryValidation).
			Build()
	}
	if err := e.Initialize(ctx); err != nil {
		return nil, err
	}
	msg := testMessage(result.Title, result.Message, rule.Severity, e.clock.Now())
	return &TestDelivery{
		AlertID: "test-" + uuid.NewString(),
		Results: e.dispatcher.SendTest(ctx, rule, msg),
	}, nil
}
