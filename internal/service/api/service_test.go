package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftraffles/raffle-notify-server/internal/config"

	"github.com/swiftraffles/raffle-notify-server/internal/service/poller"
)

// fakeStatusProvider serves fixed poller status values.
type fakeStatusProvider struct {
	status    poller.CycleStatus
	seenCount int
}

func (f *fakeStatusProvider) Status() poller.CycleStatus { return f.status }
func (f *fakeStatusProvider) SeenCount() int             { return f.seenCount }

// fakeWebhookCounter serves fixed per-bucket webhook counts.
type fakeWebhookCounter struct {
	counts map[string]int
}

func (f *fakeWebhookCounter) URLCounts() map[string]int { return f.counts }

func testAPIConfig(enabled bool) *config.AppConfig {
	return &config.AppConfig{
		API: config.APIConfig{
			Enabled:    enabled,
			ListenPort: 18080,
		},
	}
}

func TestService_Handlers(t *testing.T) {
	statusProvider := &fakeStatusProvider{
		status: poller.CycleStatus{
			LastRun:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Fetched:  16,
			Notified: 2,
		},
		seenCount: 128,
	}
	webhookCounter := &fakeWebhookCounter{counts: map[string]int{"US": 2, "EU": 1}}

	s := NewService(testAPIConfig(true), statusProvider, webhookCounter)
	s.startedAt = time.Now()

	e := s.newEcho()

	t.Run("healthz 엔드포인트", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("status 엔드포인트", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var response statusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))

		assert.Equal(t, 128, response.SeenCount)
		assert.Equal(t, 16, response.LastPoll.Fetched)
		assert.Equal(t, 2, response.LastPoll.Notified)
		assert.Equal(t, map[string]int{"US": 2, "EU": 1}, response.Webhooks)
	})

	t.Run("정의되지 않은 경로는 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/unknown", nil)
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestService_StartDisabled(t *testing.T) {
	s := NewService(testAPIConfig(false), &fakeStatusProvider{}, &fakeWebhookCounter{})

	serviceStopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serviceStopWG := &sync.WaitGroup{}
	serviceStopWG.Add(1)

	// 비활성화된 경우 서버를 구동하지 않고 즉시 반환한다.
	require.NoError(t, s.Start(serviceStopCtx, serviceStopWG))
	serviceStopWG.Wait()
}
