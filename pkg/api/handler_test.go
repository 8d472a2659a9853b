package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workstream/workstream/pkg/workstream"
)

func newTestHandler(t *testing.T, conf workstream.Config) (*Handler, *workstream.Pipeline) {
	t.Helper()
	if conf.Debounce == 0 {
		conf.Debounce = 10 * time.Millisecond
	}
	p := workstream.New(nil, nil, conf)
	t.Cleanup(func() { _ = p.Close() })

	h, err := NewHandler(Config{Pipeline: p})
	require.NoError(t, err)
	return h, p
}

func doRequest(t *testing.T, h *Handler, method, target string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_RequiresPipeline(t *testing.T) {
	_, err := NewHandler(Config{})
	assert.Error(t, err)
}

func TestHandleWebhook_Accepted(t *testing.T) {
	h, _ := newTestHandler(t, workstream.Config{})

	body := []byte(`{"eventType":"workitem.created","resource":{"id":1}}`)
	rec := doRequest(t, h, http.MethodPost, "/webhook", body, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var result workstream.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "workitem.created", result.EventType)
	assert.NotEmpty(t, result.EventID)
}

func TestHandleWebhook_Rejected(t *testing.T) {
	h, _ := newTestHandler(t, workstream.Config{})

	rec := doRequest(t, h, http.MethodPost, "/webhook",
		[]byte(`{"eventType":"workitem.archived","resource":{"id":1}}`), nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var result workstream.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
}

func TestHandleWebhook_SignatureChecks(t *testing.T) {
	secret := "s3cret"
	h, _ := newTestHandler(t, workstream.Config{
		Secret:            secret,
		ValidateSignature: true,
	})

	body := []byte(`{"eventType":"workitem.created","resource":{"id":1}}`)

	// Missing and wrong signatures are unauthorized, not bad requests.
	rec := doRequest(t, h, http.MethodPost, "/webhook", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, h, http.MethodPost, "/webhook", body, map[string]string{
		DefaultSignatureHeader: "sha256=deadbeef",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	v := workstream.NewSignatureValidator(secret, true, nil)
	rec = doRequest(t, h, http.MethodPost, "/webhook", body, map[string]string{
		DefaultSignatureHeader: v.Sign(body),
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetStatistics(t *testing.T) {
	h, p := newTestHandler(t, workstream.Config{})

	p.Ingest(context.Background(), []byte(`{"eventType":"workitem.created","resource":{"id":1}}`), "")

	rec := doRequest(t, h, http.MethodGet, "/statistics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats workstream.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, uint64(1), stats.EventsReceived)
}

func TestGetDetailedMetrics(t *testing.T) {
	h, _ := newTestHandler(t, workstream.Config{})

	rec := doRequest(t, h, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var metrics workstream.DetailedMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, "24h", metrics.Timeframe, "timeframe defaults to 24h")

	rec = doRequest(t, h, http.MethodGet, "/metrics?timeframe=7d", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, "7d", metrics.Timeframe)

	rec = doRequest(t, h, http.MethodGet, "/metrics?timeframe=bogus", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAlertStatus(t *testing.T) {
	h, _ := newTestHandler(t, workstream.Config{})

	rec := doRequest(t, h, http.MethodGet, "/alerts", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status workstream.AlertStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Empty(t, status.Active)
	assert.Equal(t, workstream.DefaultThresholds(), status.Thresholds)
}

func TestConfigureAlerts(t *testing.T) {
	h, _ := newTestHandler(t, workstream.Config{})

	rec := doRequest(t, h, http.MethodPost, "/alerts/config",
		[]byte(`{"maxQueueSize":5,"minSuccessRate":90}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var thresholds workstream.AlertThresholds
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thresholds))
	assert.Equal(t, 5, thresholds.MaxQueueSize)
	assert.Equal(t, float64(90), thresholds.MinSuccessRate)
	assert.Equal(t, workstream.DefaultThresholds().MaxErrorRate, thresholds.MaxErrorRate)
}

func TestConfigureAlerts_Malformed(t *testing.T) {
	h, _ := newTestHandler(t, workstream.Config{})

	rec := doRequest(t, h, http.MethodPost, "/alerts/config", []byte(`{`), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearQueue(t *testing.T) {
	h, p := newTestHandler(t, workstream.Config{Debounce: time.Hour})

	p.Ingest(context.Background(), []byte(`{"eventType":"workitem.created","resource":{"id":1}}`), "")
	p.Ingest(context.Background(), []byte(`{"eventType":"workitem.created","resource":{"id":2}}`), "")

	rec := doRequest(t, h, http.MethodPost, "/queue/clear", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp["dropped"])
	assert.Equal(t, 0, p.QueueDepth())
}

func TestResetStatistics(t *testing.T) {
	h, p := newTestHandler(t, workstream.Config{Debounce: time.Hour})

	p.Ingest(context.Background(), []byte(`{"eventType":"workitem.created","resource":{"id":1}}`), "")
	require.Equal(t, uint64(1), p.Statistics().EventsReceived)

	rec := doRequest(t, h, http.MethodPost, "/statistics/reset", nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(0), p.Statistics().EventsReceived)
}
