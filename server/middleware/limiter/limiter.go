// Package limiter provides an HTTP middleware which rate limits expensive
// routes, returning 429 (too many requests) when the budget is spent
package limiter

import (
	"encoding/json"
	"go/types"
	"math"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/nasa-jpl/rawlab/generichttp"
)

// Inject adds a ratelimit route to a generichttp.HTTPer which is used to manipulate the limiter
func Inject(other generichttp.HTTPer, l *Limiter) {
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/ratelimit"}] = l.HTTPGet
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/ratelimit"}] = l.HTTPSet
}

// Limiter is a token bucket shared by every request to the paths it
// protects
type Limiter struct {
	lim *rate.Limiter

	// Protect is a list of path fragments the limit applies to; empty
	// protects every path
	Protect []string
}

// New returns a Limiter allowing perSecond requests on average and burst at
// once.  perSecond <= 0 means no limit.
func New(perSecond float64, burst int, protect ...string) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{lim: rate.NewLimiter(toLimit(perSecond), burst), Protect: protect}
}

func toLimit(perSecond float64) rate.Limit {
	if perSecond <= 0 || math.IsInf(perSecond, 1) {
		return rate.Inf
	}
	return rate.Limit(perSecond)
}

// Rate returns the sustained rate, 0 when unlimited
func (l *Limiter) Rate() float64 {
	lim := l.lim.Limit()
	if lim == rate.Inf {
		return 0
	}
	return float64(lim)
}

// SetRate changes the sustained rate, <= 0 removes the limit
func (l *Limiter) SetRate(perSecond float64) {
	l.lim.SetLimit(toLimit(perSecond))
}

func (l *Limiter) protected(path string) bool {
	if len(l.Protect) == 0 {
		return true
	}
	for _, str := range l.Protect {
		if strings.Contains(path, str) {
			return true
		}
	}
	return false
}

// Check is an HTTP middleware that returns http.StatusTooManyRequests if the budget is spent, otherwise passes down the line
func (l *Limiter) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.protected(r.URL.Path) && !l.lim.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "decode rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HTTPSet sets the rate from json:f64 on the request body
func (l *Limiter) HTTPSet(w http.ResponseWriter, r *http.Request) {
	f := generichttp.FloatT{}
	err := json.NewDecoder(r.Body).Decode(&f)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	l.SetRate(f.F64)
	w.WriteHeader(http.StatusOK)
}

// HTTPGet returns Rate() over HTTP as JSON
func (l *Limiter) HTTPGet(w http.ResponseWriter, r *http.Request) {
	hp := generichttp.HumanPayload{T: types.Float64, Float: l.Rate()}
	hp.EncodeAndRespond(w, r)
}
