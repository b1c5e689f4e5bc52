package limiter_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/rawlab/generichttp"
	"github.com/nasa-jpl/rawlab/server/middleware/limiter"
)

func ok(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func status(h http.Handler, method, path, body string) int {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestBurstThenLimited(t *testing.T) {
	// one token every ~3 hours; the test never sees a refill
	l := limiter.New(0.0001, 2, "/decode")
	h := l.Check(http.HandlerFunc(ok))
	for i := 0; i < 2; i++ {
		if code := status(h, http.MethodPost, "/decode", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, code)
		}
	}
	if code := status(h, http.MethodPost, "/decode", ""); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 got %d", code)
	}
	// unprotected paths pass
	if code := status(h, http.MethodGet, "/iso", ""); code != http.StatusOK {
		t.Errorf("expected 200 for /iso got %d", code)
	}
}

func TestUnlimited(t *testing.T) {
	l := limiter.New(0, 1)
	h := l.Check(http.HandlerFunc(ok))
	for i := 0; i < 50; i++ {
		if code := status(h, http.MethodGet, "/x", ""); code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, code)
		}
	}
	if l.Rate() != 0 {
		t.Errorf("expected rate 0 for unlimited got %v", l.Rate())
	}
}

type table struct{ rt generichttp.RouteTable }

func (t table) RT() generichttp.RouteTable { return t.rt }

func TestHTTPControl(t *testing.T) {
	l := limiter.New(5, 1)
	tbl := table{generichttp.RouteTable{}}
	limiter.Inject(tbl, l)
	r := chi.NewRouter()
	tbl.rt.Bind(r)
	if code := status(r, http.MethodPost, "/ratelimit", `{"f64": 2.5}`); code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if l.Rate() != 2.5 {
		t.Errorf("expected rate 2.5 got %v", l.Rate())
	}
	req := httptest.NewRequest(http.MethodGet, "/ratelimit", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if body := strings.TrimSpace(w.Body.String()); body != `{"f64":2.5}` {
		t.Errorf("unexpected body %s", body)
	}
	if code := status(r, http.MethodPost, "/ratelimit", `nope`); code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad json got %d", code)
	}
}
