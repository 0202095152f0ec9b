// Package notification delivers rendered alerts to external channels.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/errors"
)

// Message is one alert ready for delivery.
type Message struct {
	Title     string
	Body      string
	Severity  entities.Severity
	Timestamp time.Time
}

// Sender delivers a message to one destination.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// maxErrorBody caps how much of a failed response is kept in error messages.
const maxErrorBody = 512

func postJSON(ctx context.Context, client *http.Client, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return client.Do(req)
}

func readErrorBody(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return strings.TrimSpace(string(b))
}

func deliveryError(channel entities.Channel, err error) error {
	return errors.New(err).
		Component("notification").
		Category(errors.CategoryNotification).
		Context("channel", string(channel)).
		Build()
}

// flexString decodes a JSON string or number into a string. Telegram chat
// ids are often stored as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexString(n.String())
	return nil
}
