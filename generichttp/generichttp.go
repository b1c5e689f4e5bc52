// Package generichttp defines the JSON payloads, route tables and small
// handler generators shared by the HTTP services
package generichttp

import (
	"encoding/json"
	"go/types"
	"net/http"
	"sort"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/rawlab/rawerr"
)

// FloatT is a struct with a single float64 field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single string field
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a struct containing the basic types a route may reply with
// and the type tag selecting which one is sent
type HumanPayload struct {
	Bool   bool
	Float  float64
	Int    int
	String string

	// T holds the type of data actually contained in the payload
	T types.BasicKind
}

// EncodeAndRespond writes the payload as a single-field JSON object,
// {"bool": ...}, {"f64": ...}, {"int": ...} or {"str": ...}
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	var v interface{}
	switch hp.T {
	case types.Bool:
		v = BoolT{Bool: hp.Bool}
	case types.Float64:
		v = FloatT{F64: hp.Float}
	case types.Int:
		v = IntT{Int: hp.Int}
	case types.String:
		v = StrT{Str: hp.String}
	default:
		http.Error(w, "payload has no type", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// MethodPath is a struct containing an HTTP method and a URL path
type MethodPath struct {
	Method, Path string
}

// RouteTable maps method+path pairs to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints returns the paths in the table, sorted and deduplicated
func (rt RouteTable) Endpoints() []string {
	seen := map[string]bool{}
	routes := make([]string, 0, len(rt))
	for k := range rt {
		if !seen[k.Path] {
			seen[k.Path] = true
			routes = append(routes, k.Path)
		}
	}
	sort.Strings(routes)
	return routes
}

// Bind registers every route in the table on r
func (rt RouteTable) Bind(r chi.Router) {
	for k, f := range rt {
		r.MethodFunc(k.Method, k.Path, f)
	}
}

// HTTPer is an object that exposes a route table
type HTTPer interface {
	RT() RouteTable
}

// ErrorStatus maps an error to the status code it is reported with.
// Malformed input is the client's fault, a corrupt capture is
// unprocessable, everything else is a server error.
func ErrorStatus(err error) int {
	switch rawerr.KindOf(err) {
	case rawerr.ShapeMismatch, rawerr.InvalidGeometry, rawerr.UnsupportedFormat, rawerr.Config:
		return http.StatusBadRequest
	case rawerr.Corrupt:
		return http.StatusUnprocessableEntity
	case rawerr.Canceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ReplyError writes err with the status from ErrorStatus
func ReplyError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), ErrorStatus(err))
}

// GetString calls a string-getting function and returns the response
// as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			ReplyError(w, err)
			return
		}
		hp := HumanPayload{T: types.String, String: s}
		hp.EncodeAndRespond(w, r)
	}
}

// SetString parses a JSON input of {'str': value} and
// calls fcn with it
func SetString(fcn func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := StrT{}
		err := json.NewDecoder(r.Body).Decode(&s)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(s.Str)
		if err != nil {
			ReplyError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			ReplyError(w, err)
			return
		}
		hp := HumanPayload{T: types.Bool, Bool: b}
		hp.EncodeAndRespond(w, r)
	}
}

// SetBool parses a JSON input of {'bool': value} and
// calls fcn with it
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := BoolT{}
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(b.Bool)
		if err != nil {
			ReplyError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			ReplyError(w, err)
			return
		}
		hp := HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// GetInt calls an int-getting function and returns the response
// as json {'int': value}
func GetInt(fcn func() (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := fcn()
		if err != nil {
			ReplyError(w, err)
			return
		}
		hp := HumanPayload{T: types.Int, Int: i}
		hp.EncodeAndRespond(w, r)
	}
}
