package main

import (
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nasa-jpl/rawlab/config"
)

func testMux(t *testing.T, rate float64) http.Handler {
	t.Helper()
	c := config.Template()
	c.Input.Dir = t.TempDir()
	c.Output.Dir = t.TempDir()
	c.Sensor.Width, c.Sensor.Height = 8, 4
	c.Server.RateLimit = rate
	c.Server.Burst = 1
	mux, err := BuildMux(c, prometheus.NewRegistry(), log.New(ioutil.Discard, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	return mux
}

func get(h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, strings.NewReader(body)))
	return w
}

func TestMuxRoutes(t *testing.T) {
	mux := testMux(t, 0)
	if w := get(mux, http.MethodGet, "/iso?gain=1", ""); strings.TrimSpace(w.Body.String()) != `{"int":100}` {
		t.Errorf("unexpected iso reply %d %s", w.Code, w.Body.String())
	}
	if w := get(mux, http.MethodPost, "/decode", "short"); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a short buffer got %d", w.Code)
	}
	w := get(mux, http.MethodGet, "/metrics", "")
	if !strings.Contains(w.Body.String(), `rawlab_decodes_total{kind="ShapeMismatch"} 1`) {
		t.Errorf("metrics missing the failed decode:\n%s", w.Body.String())
	}
	w = get(mux, http.MethodGet, "/endpoints", "")
	if !strings.Contains(w.Body.String(), "/decode") || !strings.Contains(w.Body.String(), "/ratelimit") {
		t.Errorf("unexpected endpoints %s", w.Body.String())
	}
	if w = get(mux, http.MethodGet, "/frame", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected no /frame without captures got %d", w.Code)
	}
}

func TestMuxRateLimit(t *testing.T) {
	mux := testMux(t, 0.001)
	get(mux, http.MethodPost, "/decode", "short")
	if w := get(mux, http.MethodPost, "/decode", "short"); w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 got %d", w.Code)
	}
	if w := get(mux, http.MethodGet, "/iso?gain=2", ""); w.Code != http.StatusOK {
		t.Errorf("iso is not rate limited, got %d", w.Code)
	}
}
