// Package camera provides an HTTP interface to the raw decoder and, when
// one is attached, to a camera producing raw captures
package camera

import (
	"bytes"
	"encoding/json"
	"go/types"
	"io"
	"io/ioutil"
	"net/http"
	"strconv"
	"time"

	"github.com/nasa-jpl/rawlab/camera"
	"github.com/nasa-jpl/rawlab/capture"
	"github.com/nasa-jpl/rawlab/generichttp"
	"github.com/nasa-jpl/rawlab/imgrec"
	"github.com/nasa-jpl/rawlab/iso"
	"github.com/nasa-jpl/rawlab/pipeline"
	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
	"github.com/nasa-jpl/rawlab/util"
)

// Observer is told the outcome and duration of every decode
type Observer interface {
	Observe(kind string, d time.Duration)
}

// Geometry is the buffer description used when a request does not carry one
type Geometry struct {
	Width  int
	Height int
	Format string
}

// HTTPDecoder binds decode, ISO and camera routes to a pipeline
type HTTPDecoder struct {
	pipe    *pipeline.Pipeline
	geom    Geometry
	maxBody int64
	cam     camera.Minimal
	rec     *imgrec.Recorder
	obs     Observer

	RouteTable generichttp.RouteTable
}

// Options holds the optional collaborators of an HTTPDecoder
type Options struct {
	// Camera serves /frame, /exposure-time and /gain when not nil
	Camera camera.Minimal

	// Recorder also saves every decoded image while it is enabled
	Recorder *imgrec.Recorder

	// Observer receives decode outcomes, e.g. *server.Metrics
	Observer Observer

	// MaxBody bounds uploads, zero is 64 MiB
	MaxBody int64
}

// NewHTTPDecoder returns a decoder with its route table populated
func NewHTTPDecoder(p *pipeline.Pipeline, g Geometry, o Options) *HTTPDecoder {
	h := &HTTPDecoder{pipe: p, geom: g, maxBody: o.MaxBody, cam: o.Camera, rec: o.Recorder, obs: o.Observer}
	if h.maxBody <= 0 {
		h.maxBody = 64 << 20
	}
	rt := generichttp.RouteTable{
		{Method: http.MethodPost, Path: "/decode"}: h.Decode,
		{Method: http.MethodGet, Path: "/iso"}:     h.ISO,
		{Method: http.MethodGet, Path: "/profile"}: h.Profile,
	}
	if h.cam != nil {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/frame"}] = h.Frame
		if e, ok := h.cam.(camera.Exposer); ok {
			rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/exposure-time"}] = GetExposureTime(e)
			rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/exposure-time"}] = SetExposureTime(e)
			rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/gain"}] = generichttp.GetFloat(func() (float64, error) {
				g, err := e.GetGain()
				return g.Analogue, err
			})
			rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/gain"}] = SetGain(e)
		}
	}
	h.RouteTable = rt
	if h.rec != nil {
		imgrec.NewHTTPWrapper(h.rec).Inject(h)
	}
	return h
}

// RT satisfies generichttp.HTTPer
func (h *HTTPDecoder) RT() generichttp.RouteTable {
	return h.RouteTable
}

func (h *HTTPDecoder) observe(err error, start time.Time) {
	if h.obs == nil {
		return
	}
	kind := "ok"
	if err != nil {
		kind = rawerr.KindOf(err).String()
	}
	h.obs.Observe(kind, time.Since(start))
}

// Decode renders a packed buffer posted as the request body.
//
// the geometry is given by the width, height and format query parameters,
// falling back to the configured sensor.  The output container is chosen
// with fmt (png, tiff, fits, jpg; default png).  exposureUs, gain and
// digital are optional and only feed the ISO header and FITS cards.
func (h *HTTPDecoder) Decode(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	c := capture.Capture{ID: "upload", Frame: raw10.Packed{Width: h.geom.Width, Height: h.geom.Height, Format: h.geom.Format}}
	if s := q.Get("width"); s != "" {
		c.Frame.Width = util.ParseDimension(s)
	}
	if s := q.Get("height"); s != "" {
		c.Frame.Height = util.ParseDimension(s)
	}
	if s := q.Get("format"); s != "" {
		c.Frame.Format = s
	}
	var err error
	if c.Meta.ExposureUS, err = queryInt(q.Get("exposureUs")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if c.Meta.AnalogueGain, err = queryFloat(q.Get("gain")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if c.Meta.DigitalGain, err = queryFloat(q.Get("digital")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	format, err := imgrec.ParseFormat(q.Get("fmt"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	defer r.Body.Close()
	data, err := ioutil.ReadAll(io.LimitReader(r.Body, h.maxBody+1))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if int64(len(data)) > h.maxBody {
		http.Error(w, "raw buffer too large", http.StatusRequestEntityTooLarge)
		return
	}
	c.Frame.Data = data
	h.render(w, c, format, start)
}

// render runs c through the pipeline and writes the encoded image
func (h *HTTPDecoder) render(w http.ResponseWriter, c capture.Capture, format imgrec.Format, start time.Time) {
	rendered, err := h.pipe.Render(c)
	if err != nil {
		h.observe(err, start)
		generichttp.ReplyError(w, err)
		return
	}
	var buf bytes.Buffer
	if err = imgrec.Encode(&buf, rendered.Image, format, rendered.Cards); err != nil {
		h.observe(err, start)
		generichttp.ReplyError(w, err)
		return
	}
	if h.rec != nil && h.rec.Settings().Enabled && h.rec.Settings().Root != "" {
		if _, err = h.rec.Save("", rendered.Image, rendered.Cards); err != nil {
			h.observe(err, start)
			generichttp.ReplyError(w, err)
			return
		}
	}
	h.observe(nil, start)
	hdr := w.Header()
	hdr.Set("Content-Type", format.ContentType())
	if format == imgrec.FITS {
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
	}
	if rendered.ISO != 0 {
		hdr.Set("X-ISO", strconv.Itoa(rendered.ISO))
	}
	hdr.Set("X-Shutter", iso.FormatShutter(c.Meta.ExposureUS))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ISO maps the gain and digital query parameters to an ISO, as json {'int': value}
func (h *HTTPDecoder) ISO(w http.ResponseWriter, r *http.Request) {
	if h.pipe.Mapper == nil {
		http.Error(w, "no gain profile configured", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	gain, err := queryFloat(q.Get("gain"))
	if err != nil || q.Get("gain") == "" {
		http.Error(w, "gain query parameter must be a number", http.StatusBadRequest)
		return
	}
	digital, err := queryFloat(q.Get("digital"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	v := h.pipe.Mapper.MapSample(iso.GainSample{Analogue: gain, Digital: digital})
	hp := generichttp.HumanPayload{T: types.Int, Int: v}
	hp.EncodeAndRespond(w, r)
}

// Profile returns the active gain profile and its power law exponent as JSON
func (h *HTTPDecoder) Profile(w http.ResponseWriter, r *http.Request) {
	if h.pipe.Mapper == nil {
		http.Error(w, "no gain profile configured", http.StatusNotFound)
		return
	}
	out := struct {
		iso.Profile
		Exponent float64 `json:"exponent"`
	}{h.pipe.Mapper.Profile(), h.pipe.Mapper.Exponent()}
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(out)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Frame takes a capture from the camera and returns it rendered.
//
// the image format may be specified in the fmt query parameter; default to jpg
//
// the exposure time may be specified as a query parameter in any time-looking
// format, such as "25ms" or "10us".  Strictly speaking, it must be a valid
// input to golang time.ParseDuration.
//
// if no unit is appended, an s (seconds) is added.
//
// if no exposure time is provided, it is not updated and the existing value is used.
func (h *HTTPDecoder) Frame(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	q := r.URL.Query()
	if texp := q.Get("exposureTime"); texp != "" {
		e, ok := h.cam.(camera.Exposer)
		if !ok {
			http.Error(w, "camera has no exposure control", http.StatusBadRequest)
			return
		}
		if util.AllElementsNumbers(texp) {
			texp = texp + "s"
		}
		T, err := time.ParseDuration(texp)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = e.SetExposureUS(T.Microseconds()); err != nil {
			generichttp.ReplyError(w, err)
			return
		}
	}
	format := imgrec.JPEG
	if s := q.Get("fmt"); s != "" {
		var err error
		if format, err = imgrec.ParseFormat(s); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	c, err := h.cam.Capture(r.Context())
	if err != nil {
		h.observe(err, start)
		generichttp.ReplyError(w, err)
		return
	}
	h.render(w, c, format, start)
}

// SetExposureTime sets the exposure time on a POST request.
// it can be provided either as a query parameter exposureTime, formatted in a
// way that is parseable by golang/time.ParseDuration, or a json payload with
// key f64, holding the exposure time in seconds.
func SetExposureTime(e camera.Exposer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		texp := q.Get("exposureTime")
		defer r.Body.Close()
		var d time.Duration
		var err error
		if texp == "" {
			f := generichttp.FloatT{}
			err = json.NewDecoder(r.Body).Decode(&f)
			d = time.Duration(f.F64 * 1e9) // s => ns
		} else {
			d, err = time.ParseDuration(texp)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = e.SetExposureUS(d.Microseconds()); err != nil {
			generichttp.ReplyError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetExposureTime gets the exposure time in seconds on a GET request
func GetExposureTime(e camera.Exposer) http.HandlerFunc {
	return generichttp.GetFloat(func() (float64, error) {
		us, err := e.GetExposureUS()
		return util.MicrosToDuration(us).Seconds(), err
	})
}

// SetGain sets the analogue gain from a json payload with key f64
func SetGain(e camera.Exposer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := generichttp.FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err = e.SetAnalogueGain(f.F64); err != nil {
			generichttp.ReplyError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func queryFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func queryInt(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
