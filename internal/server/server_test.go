package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxigesture.klederson.com/internal/clock"
	"proxigesture.klederson.com/internal/gesture"
	"proxigesture.klederson.com/internal/monitor"
	"proxigesture.klederson.com/internal/samplelog"
	"proxigesture.klederson.com/internal/sensor"
)

type stubProvider struct {
	mu   sync.Mutex
	emit func(sensor.Sample)
}

func (p *stubProvider) Name() string              { return "stub" }
func (p *stubProvider) Modality() sensor.Modality { return sensor.ModalityProximity }
func (p *stubProvider) Available() bool           { return true }
func (p *stubProvider) MaxRange() float64         { return 8 }
func (p *stubProvider) Stop() error               { return nil }

func (p *stubProvider) Start(_ context.Context, emit func(sensor.Sample)) error {
	p.mu.Lock()
	p.emit = emit
	p.mu.Unlock()
	return nil
}

func (p *stubProvider) send(ts int64, d float64) {
	p.mu.Lock()
	emit := p.emit
	p.mu.Unlock()
	emit(sensor.Sample{Timestamp: ts, Values: []float64{d}})
}

type harness struct {
	srv      *Server
	mon      *monitor.Monitor
	provider *stubProvider
	clock    *clock.Manual
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	p := &stubProvider{}
	c := clock.NewManual(0)
	metrics := monitor.NewMetrics()
	mon := monitor.New(monitor.Options{
		Selector: sensor.NewSelector(nil, p),
		Log:      samplelog.New(100, time.Minute, c),
		Clock:    c,
		Detector: gesture.Config{Window: 2 * time.Second, RequiredEvents: 3, Cooldown: time.Second},
		Significance: map[sensor.Modality]float64{
			sensor.ModalityProximity: 0.1,
		},
		Metrics: metrics,
	})
	srv := New(Options{Monitor: mon, Metrics: metrics, GraphWindow: time.Minute})
	mon.AddListener(srv.Listener)
	t.Cleanup(mon.Close)
	return &harness{srv: srv, mon: mon, provider: p, clock: c}
}

// feed pushes distances at 100 ms spacing and waits until they are logged.
func (h *harness) feed(t *testing.T, distances ...float64) {
	t.Helper()
	want := h.mon.Log().Count() + len(distances)
	for _, d := range distances {
		h.clock.Advance(100 * time.Millisecond)
		h.provider.send(h.clock.NowMillis(), d)
	}
	require.Eventually(t, func() bool { return h.mon.Log().Count() == want }, time.Second, time.Millisecond)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServer_Status(t *testing.T) {
	h := newHarness(t)
	_, err := h.mon.Start(context.Background())
	require.NoError(t, err)
	h.feed(t, 6, 1)

	rec := get(t, h.srv.Handler(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var st struct {
		Running  bool   `json:"running"`
		Modality string `json:"modality"`
		Samples  int    `json:"samples"`
		Detector struct {
			State   string `json:"state"`
			Pending int    `json:"pending"`
		} `json:"detector"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Running)
	assert.Equal(t, "proximity", st.Modality)
	assert.Equal(t, 2, st.Samples)
	assert.Equal(t, "accumulating", st.Detector.State)
	assert.Equal(t, 1, st.Detector.Pending)
}

func TestServer_Readings(t *testing.T) {
	h := newHarness(t)
	_, err := h.mon.Start(context.Background())
	require.NoError(t, err)
	h.feed(t, 6, 5, 4, 1)

	var all readingsResponse
	rec := get(t, h.srv.Handler(), "/api/readings")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, 4, all.Count)

	var recent readingsResponse
	rec = get(t, h.srv.Handler(), "/api/readings?seconds=0.15")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recent))
	want := []sensor.Reading{
		{Timestamp: 300, Distance: 4},
		{Timestamp: 400, Distance: 1, IsNear: true},
	}
	if diff := cmp.Diff(want, recent.Readings); diff != "" {
		t.Errorf("recent readings mismatch (-want +got):\n%s", diff)
	}

	rec = get(t, h.srv.Handler(), "/api/readings?seconds=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = get(t, h.srv.Handler(), "/api/readings?seconds=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ReadingsEmpty(t *testing.T) {
	h := newHarness(t)
	rec := get(t, h.srv.Handler(), "/api/readings")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":0,"readings":[]}`, rec.Body.String())
}

func TestServer_Summary(t *testing.T) {
	h := newHarness(t)
	_, err := h.mon.Start(context.Background())
	require.NoError(t, err)
	h.feed(t, 6, 2, 4)

	var sum samplelog.Summary
	rec := get(t, h.srv.Handler(), "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 3, sum.Count)
	assert.InDelta(t, 4.0, sum.Mean, 1e-9)
	assert.Equal(t, 2.0, sum.Min)
	assert.Equal(t, 6.0, sum.Max)
	assert.InDelta(t, 1.0/3, sum.NearFraction, 1e-9)
}

func TestServer_Graphs(t *testing.T) {
	h := newHarness(t)
	_, err := h.mon.Start(context.Background())
	require.NoError(t, err)
	h.feed(t, 6, 1, 6)

	rec := get(t, h.srv.Handler(), "/graph")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "echarts")

	rec = get(t, h.srv.Handler(), "/graph.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")), "body is a png")
}

func TestServer_GraphPNGWithoutReadings(t *testing.T) {
	h := newHarness(t)
	rec := get(t, h.srv.Handler(), "/graph.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))
}

func TestServer_MetricsAndMethods(t *testing.T) {
	h := newHarness(t)
	handler := h.srv.Handler()
	get(t, handler, "/api/status")

	rec := get(t, handler, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `proxigesture_http_requests_total{route="/api/status",status="200"} 1`)

	post := httptest.NewRecorder()
	handler.ServeHTTP(post, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, post.Code)

	assert.Equal(t, http.StatusNotFound, get(t, handler, "/nope").Code)
}

func TestServer_WebSocketStream(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.srv.hub.Run(ctx)

	ts := httptest.NewServer(h.srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readType := func() (string, json.RawMessage) {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg, &env))
		return env.Type, env.Data
	}

	kind, _ := readType()
	assert.Equal(t, "status", kind)
	require.Eventually(t, func() bool { return h.srv.hub.Clients() == 1 }, time.Second, time.Millisecond)

	_, err = h.mon.Start(context.Background())
	require.NoError(t, err)
	kind, _ = readType()
	assert.Equal(t, "started", kind)

	h.feed(t, 1)
	kind, data := readType()
	assert.Equal(t, "reading", kind)
	var ev struct {
		Reading sensor.Reading `json:"reading"`
	}
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, sensor.Reading{Timestamp: 100, Distance: 1, IsNear: true}, ev.Reading)

	h.mon.Stop()
	kind, _ = readType()
	assert.Equal(t, "stopped", kind)
}

func TestServer_ListenAndServeShutdown(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
