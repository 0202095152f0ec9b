//go:build integration

package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/alliancehq/alliance-manager/internal/datastore/v2/entities"
	"github.com/alliancehq/alliance-manager/internal/testutil/containers"
)

func TestShoutrrrSender_NtfyContainer(t *testing.T) {
	ctx := t.Context()
	ntfy, err := containers.NewNtfyContainer(ctx, "")
	require.NoError(t, err, "failed to start ntfy container")
	t.Cleanup(func() { _ = ntfy.Terminate(context.Background()) })

	dir := NewDirectory(Options{})
	sender, err := dir.Build(entities.NotificationConfig{
		Channel:   entities.ChannelEmail,
		IsEnabled: true,
		Config:    datatypes.JSON(`{"url":"` + ntfy.ShoutrrrURL("alliance-alerts") + `"}`),
	})
	require.NoError(t, err)

	msg := Message{
		Title:     "Couverture des trains faible",
		Body:      "Seulement 62.5% des trains ont un conducteur",
		Severity:  entities.SeverityHigh,
		Timestamp: time.Now(),
	}
	require.NoError(t, sender.Send(ctx, msg))

	messages, err := ntfy.WaitForMessages(ctx, "alliance-alerts", 1)
	require.NoError(t, err)
	assert.Contains(t, messages[0].Message, "Couverture des trains faible")
	assert.Contains(t, messages[0].Message, "Sévérité: HIGH")
}
