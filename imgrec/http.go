package imgrec

import (
	"net/http"

	"github.com/nasa-jpl/rawlab/generichttp"
)

// HTTPWrapper is an HTTP wrapper around an image recorder that allows the
// folder, prefix and format to be changed on the fly
//
// it does not implement generichttp.HTTPer, offering an Inject method allowing it to be injected
// into another HTTPer
type HTTPWrapper struct {
	*Recorder
}

// NewHTTPWrapper returns an HTTP wrapper around a recorder
func NewHTTPWrapper(r *Recorder) HTTPWrapper {
	return HTTPWrapper{r}
}

// Inject adds GET and POST routes for /autowrite/{root,prefix,format,enabled}
// to the HTTPer which manipulate this wrapper's recorder
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	rec := h.Recorder
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/root"}] = generichttp.SetString(rec.SetRoot)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/root"}] = generichttp.GetString(func() (string, error) {
		return rec.Settings().Root, nil
	})
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/prefix"}] = generichttp.SetString(func(s string) error {
		rec.SetPrefix(s)
		return nil
	})
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/prefix"}] = generichttp.GetString(func() (string, error) {
		return rec.Settings().Prefix, nil
	})
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/format"}] = generichttp.SetString(func(s string) error {
		f, err := ParseFormat(s)
		if err != nil {
			return err
		}
		rec.SetFormat(f)
		return nil
	})
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/format"}] = generichttp.GetString(func() (string, error) {
		return string(rec.Settings().Format), nil
	})
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/autowrite/enabled"}] = generichttp.SetBool(func(b bool) error {
		rec.SetEnabled(b)
		return nil
	})
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/autowrite/enabled"}] = generichttp.GetBool(func() (bool, error) {
		return rec.Settings().Enabled, nil
	})
}
