// Package telemetry forwards operational errors to Sentry.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/alliancehq/alliance-manager/internal/errors"
)

// Reporter receives errors worth surfacing outside the process.
type Reporter interface {
	CaptureError(err error, tags map[string]string)
	Flush(timeout time.Duration) bool
}

// NoopReporter drops everything. Used when telemetry is disabled.
type NoopReporter struct{}

func (NoopReporter) CaptureError(error, map[string]string) {}
func (NoopReporter) Flush(time.Duration) bool              { return true }

// SentryReporter sends errors to a Sentry project through its own hub so
// that several reporters can coexist in one process (tests included).
type SentryReporter struct {
	hub *sentry.Hub
}

// Options configures a SentryReporter.
type Options struct {
	DSN         string
	Environment string
	Release     string

	// Transport overrides the HTTP transport. Tests use sentry.NewHTTPSyncTransport or a mock.
	Transport sentry.Transport
}

// NewSentryReporter builds a reporter bound to a fresh client and scope.
func NewSentryReporter(opts Options) (*SentryReporter, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Environment: opts.Environment,
		Release:     opts.Release,
		Transport:   opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}
	return &SentryReporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// CaptureError reports err with the given tags. Tags from an EnhancedError in
// the chain are merged in, explicit tags win.
func (r *SentryReporter) CaptureError(err error, tags map[string]string) {
	if err == nil {
		return
	}
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.Category() == errors.CategoryValidation {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		if ee != nil {
			scope.SetTags(ee.Tags())
		}
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

func (r *SentryReporter) Flush(timeout time.Duration) bool {
	return r.hub.Flush(timeout)
}
