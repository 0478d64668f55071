package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/httputil"
	"github.com/ADIIIIB/rtes-shake-rattle-roll/internal/monitor"
)

func tremorResult(seq int64, intensity int) monitor.WindowResult {
	return monitor.WindowResult{
		Seq:       seq,
		Outcome:   monitor.OutcomeTremor,
		Detection: monitor.Detection{TremorIntensity: intensity},
	}
}

func TestWebhookPublishResult(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddResponse(200, `ok`)
	p := NewWebhookPublisher("http://example.test/hook", client)

	err := p.PublishResult(context.Background(), tremorResult(7, 38))
	require.NoError(t, err)
	require.Equal(t, 1, client.RequestCount())

	req := client.GetRequest(0)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "http://example.test/hook", req.URL.String())
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var env webhookEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, "window", env.Kind)
	require.NotNil(t, env.Window)
	assert.Equal(t, int64(7), env.Window.Seq)
	assert.Equal(t, 38, env.Window.Detection.TremorIntensity)
	assert.Nil(t, env.Episode)
}

func TestWebhookPublishEpisode(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddResponse(204, "")
	p := NewWebhookPublisher("http://example.test/hook", client)

	err := p.PublishEpisode(context.Background(), monitor.Episode{
		Symptom: monitor.OutcomeFOG, StartSeq: 3, EndSeq: 5, Windows: 3,
	})
	require.NoError(t, err)

	body, err := io.ReadAll(client.GetRequest(0).Body)
	require.NoError(t, err)
	var env webhookEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	assert.Equal(t, "episode", env.Kind)
	require.NotNil(t, env.Episode)
	assert.Equal(t, monitor.OutcomeFOG, env.Episode.Symptom)
}

func TestWebhookNonSuccessStatus(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddResponse(500, "boom")
	p := NewWebhookPublisher("http://example.test/hook", client)

	err := p.PublishResult(context.Background(), tremorResult(1, 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestWebhookTransportError(t *testing.T) {
	client := httputil.NewMockHTTPClient()
	client.AddErrorResponse(errors.New("connection refused"))
	p := NewWebhookPublisher("http://example.test/hook", client)

	err := p.PublishResult(context.Background(), tremorResult(1, 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
