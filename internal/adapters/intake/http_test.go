package intake

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mikey/threat-alert-engine/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testRecord struct {
	ID         string `json:"id"`
	HomeID     string `json:"home_id"`
	Assessment struct {
		Probability *float64 `json:"probability"`
		Decision    string   `json:"decision"`
		Discarded   []struct {
			Factor string `json:"factor"`
			Reason string `json:"reason"`
		} `json:"discarded"`
	} `json:"assessment"`
}

func newTestServer(t *testing.T) (*httptest.Server, *HTTPIntake) {
	t.Helper()
	svc, m := newTestService(t)
	h := NewHTTPIntake(svc, zap.NewNop(), m, config.ServerConfig{MaxBatchSize: 3})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv, h
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusReportsBands(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Thresholds struct {
			Critical float64 `json:"critical"`
			Alert    float64 `json:"alert"`
			Wait     float64 `json:"wait"`
			FailSafe string  `json:"fail_safe"`
		} `json:"thresholds"`
		Bands []struct {
			Decision string  `json:"decision"`
			Lower    float64 `json:"lower"`
		} `json:"bands"`
	}](t, resp)

	assert.Equal(t, 0.5, body.Thresholds.Critical)
	assert.Equal(t, 0.15, body.Thresholds.Alert)
	assert.Equal(t, 0.075, body.Thresholds.Wait)
	assert.Equal(t, "standard", body.Thresholds.FailSafe)
	require.Len(t, body.Bands, 5)
	assert.Equal(t, "critical", body.Bands[0].Decision)
	assert.Equal(t, "ignore", body.Bands[4].Decision)
}

func TestAssessAndFetch(t *testing.T) {
	srv, h := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/assessments",
		`{"event_id":"e1","home_id":"home-1","timestamp":"2026-03-01T02:00:00Z","evidence":{"entry_point":3,"time_of_day":3}}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[testRecord](t, resp)
	assert.Equal(t, "critical", rec.Assessment.Decision)
	require.NotNil(t, rec.Assessment.Probability)
	assert.GreaterOrEqual(t, *rec.Assessment.Probability, 0.95)

	getResp, err := http.Get(srv.URL + "/v1/assessments/" + rec.ID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	fetched := decode[testRecord](t, getResp)
	assert.Equal(t, rec.ID, fetched.ID)
	assert.Equal(t, "critical", fetched.Assessment.Decision)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.IntakeEvents.WithLabelValues("http", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.Decisions.WithLabelValues("critical")))
}

func TestAssessCorruptedEvidenceFailsSafe(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/assessments",
		`{"home_id":"home-1","evidence":[{"factor":"behavior","weight":"NaN"},{"factor":"entry_point","weight":null}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rec := decode[testRecord](t, resp)

	assert.Nil(t, rec.Assessment.Probability)
	assert.Equal(t, "standard", rec.Assessment.Decision)
	require.Len(t, rec.Assessment.Discarded, 2)
	assert.Equal(t, "non_finite", rec.Assessment.Discarded[0].Reason)
}

func TestAssessRejectsBadRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"home_id":`},
		{"missing home", `{"evidence":{"behavior":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/v1/assessments", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestBatchPreservesOrder(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/assessments/batch", `{"events":[
		{"home_id":"h","event_id":"a","evidence":{"behavior":6}},
		{"home_id":"h","event_id":"b","evidence":{"behavior":-6}},
		{"home_id":"h","event_id":"c","evidence":{}}
	]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[struct {
		Assessments []testRecord `json:"assessments"`
	}](t, resp)
	require.Len(t, body.Assessments, 3)
	assert.Equal(t, "critical", body.Assessments[0].Assessment.Decision)
	assert.Equal(t, "ignore", body.Assessments[1].Assessment.Decision)
	assert.Equal(t, "standard", body.Assessments[2].Assessment.Decision)
}

func TestBatchTooLarge(t *testing.T) {
	srv, _ := newTestServer(t)

	events := make([]string, 4)
	for i := range events {
		events[i] = fmt.Sprintf(`{"home_id":"h","event_id":"%d"}`, i)
	}
	resp := postJSON(t, srv.URL+"/v1/assessments/batch", `{"events":[`+strings.Join(events, ",")+`]}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestGetMissing(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/assessments/does-not-exist")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListByHome(t *testing.T) {
	srv, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv.URL+"/v1/assessments", `{"home_id":"home-7","evidence":{"presence":0.5}}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	postJSON(t, srv.URL+"/v1/assessments", `{"home_id":"home-8","evidence":{"presence":0.5}}`)

	resp, err := http.Get(srv.URL + "/v1/homes/home-7/assessments?limit=2")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Assessments []testRecord `json:"assessments"`
	}](t, resp)
	assert.Len(t, body.Assessments, 2)
	for _, rec := range body.Assessments {
		assert.Equal(t, "home-7", rec.HomeID)
	}

	bad, err := http.Get(srv.URL + "/v1/homes/home-7/assessments?limit=zero")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	postJSON(t, srv.URL+"/v1/assessments", `{"home_id":"h","evidence":{"presence":0.5}}`)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `alert_engine_decisions_total{decision="standard"} 1`)
	assert.Contains(t, string(raw), "alert_engine_assess_duration_seconds")
}
