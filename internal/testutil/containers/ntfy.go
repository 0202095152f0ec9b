//go:build integration

package containers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// ntfyContainerPort is the default port exposed by the ntfy container.
const ntfyContainerPort = "80/tcp"

// NtfyContainer wraps a testcontainers ntfy push notification server instance.
type NtfyContainer struct {
	container testcontainers.Container
	host      string
	port      int
}

// NtfyMessage represents a message received from an ntfy topic.
type NtfyMessage struct {
	ID      string `json:"id"`
	Topic   string `json:"topic"`
	Message string `json:"message"`
	Title   string `json:"title"`
	Time    int64  `json:"time"`
}

// NewNtfyContainer creates and starts an ntfy server without authentication.
func NewNtfyContainer(ctx context.Context, imageTag string) (*NtfyContainer, error) {
	if imageTag == "" {
		imageTag = "latest"
	}

	req := testcontainers.ContainerRequest{
		Image:        "binwiederhier/ntfy:" + imageTag,
		ExposedPorts: []string{ntfyContainerPort},
		Cmd:          []string{"serve", "--cache-file=/tmp/ntfy/cache.db"},
		Tmpfs:        map[string]string{"/tmp/ntfy": "rw"},
		WaitingFor: wait.ForHTTP("/v1/health").
			WithPort(ntfyContainerPort).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start ntfy container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "80")
	if err != nil {
		_ = container.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	return &NtfyContainer{
		container: container,
		host:      host,
		port:      mappedPort.Int(),
	}, nil
}

// GetURL returns the HTTP base URL of the server.
func (c *NtfyContainer) GetURL() string {
	return "http://" + net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// ShoutrrrURL returns a shoutrrr service URL publishing to topic.
func (c *NtfyContainer) ShoutrrrURL(topic string) string {
	return fmt.Sprintf("ntfy://%s/%s?scheme=http", net.JoinHostPort(c.host, strconv.Itoa(c.port)), topic)
}

// PollMessages retrieves all cached messages from a topic using poll mode.
func (c *NtfyContainer) PollMessages(ctx context.Context, topic string) ([]NtfyMessage, error) {
	url := fmt.Sprintf("%s/%s/json?poll=1", c.GetURL(), topic)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll messages: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("poll request failed with status %d: %s", resp.StatusCode, string(body))
	}

	// One JSON message per line.
	var messages []NtfyMessage
	for line := range strings.SplitSeq(strings.TrimSpace(string(body)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var msg NtfyMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			return nil, fmt.Errorf("failed to parse message JSON: %w", err)
		}
		if msg.Message == "" && msg.ID == "" {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// WaitForMessages polls topic until at least n messages have arrived.
func (c *NtfyContainer) WaitForMessages(ctx context.Context, topic string, n int) ([]NtfyMessage, error) {
	var messages []NtfyMessage
	err := RetryWithBackoff(ctx, 8, 100*time.Millisecond, 2*time.Second, func() error {
		got, err := c.PollMessages(ctx, topic)
		if err != nil {
			return err
		}
		if len(got) < n {
			return fmt.Errorf("got %d messages on %s, want %d", len(got), topic, n)
		}
		messages = got
		return nil
	})
	return messages, err
}

// Terminate stops and removes the ntfy container.
func (c *NtfyContainer) Terminate(ctx context.Context) error {
	if c.container != nil {
		if err := c.container.Terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate container: %w", err)
		}
	}
	return nil
}
