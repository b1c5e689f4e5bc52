package generichttp_test

import (
	"errors"
	"go/types"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/google/go-cmp/cmp"

	"github.com/nasa-jpl/rawlab/generichttp"
	"github.com/nasa-jpl/rawlab/rawerr"
)

func TestHumanPayload(t *testing.T) {
	cases := []struct {
		hp   generichttp.HumanPayload
		want string
	}{
		{generichttp.HumanPayload{T: types.Int, Int: 800}, `{"int":800}`},
		{generichttp.HumanPayload{T: types.Float64, Float: 1.5}, `{"f64":1.5}`},
		{generichttp.HumanPayload{T: types.String, String: "RGGB"}, `{"str":"RGGB"}`},
		{generichttp.HumanPayload{T: types.Bool, Bool: true}, `{"bool":true}`},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		c.hp.EncodeAndRespond(w, httptest.NewRequest(http.MethodGet, "/", nil))
		if got := strings.TrimSpace(w.Body.String()); got != c.want {
			t.Errorf("expected %s got %s", c.want, got)
		}
	}
}

func TestRouteTable(t *testing.T) {
	hit := ""
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/iso"}:      func(w http.ResponseWriter, r *http.Request) { hit = "get iso" },
		{Method: http.MethodPost, Path: "/decode"}:  func(w http.ResponseWriter, r *http.Request) { hit = "decode" },
		{Method: http.MethodPost, Path: "/iso"}:     func(w http.ResponseWriter, r *http.Request) { hit = "post iso" },
		{Method: http.MethodGet, Path: "/profile"}:  func(w http.ResponseWriter, r *http.Request) { hit = "profile" },
	}
	if diff := cmp.Diff([]string{"/decode", "/iso", "/profile"}, rt.Endpoints()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	r := chi.NewRouter()
	rt.Bind(r)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/iso", nil))
	if hit != "post iso" {
		t.Errorf("expected post iso got %q", hit)
	}
}

func TestErrorStatus(t *testing.T) {
	cases := map[rawerr.Kind]int{
		rawerr.ShapeMismatch:     http.StatusBadRequest,
		rawerr.InvalidGeometry:   http.StatusBadRequest,
		rawerr.UnsupportedFormat: http.StatusBadRequest,
		rawerr.Corrupt:           http.StatusUnprocessableEntity,
		rawerr.IO:                http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := generichttp.ErrorStatus(rawerr.New(k, "test", "x")); got != want {
			t.Errorf("%s: expected %d got %d", k, want, got)
		}
	}
	if got := generichttp.ErrorStatus(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("plain error: expected 500 got %d", got)
	}
}

func TestSetBoolBadBody(t *testing.T) {
	h := generichttp.SetBool(func(bool) error { return nil })
	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 got %d", w.Code)
	}
}
