package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nasa-jpl/rawlab/camera"
	"github.com/nasa-jpl/rawlab/capture"
	"github.com/nasa-jpl/rawlab/config"
	httpcam "github.com/nasa-jpl/rawlab/generichttp/camera"
	"github.com/nasa-jpl/rawlab/pipeline"
	"github.com/nasa-jpl/rawlab/server"
	"github.com/nasa-jpl/rawlab/server/middleware/limiter"
)

// BuildMux wires the decoder, its rate limit, metrics and the output file
// server into one router.  Every metric is registered with reg.
func BuildMux(c config.Config, reg *prometheus.Registry, l *log.Logger) (chi.Router, error) {
	proc, err := c.Processor()
	if err != nil {
		return nil, err
	}
	mapper, err := c.Mapper()
	if err != nil {
		return nil, err
	}
	rec, err := c.Recorder()
	if err != nil {
		return nil, err
	}
	// uploads are only written once a client turns autowrite on
	rec.Enabled = false

	metrics, err := server.NewMetrics(reg)
	if err != nil {
		return nil, err
	}

	var cam camera.Minimal
	if c.Input.Dir != "" {
		items, err := capture.Dir{Root: c.Input.Dir}.List()
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			pb := camera.NewPlayback(items)
			if err = pb.Initialize(); err != nil {
				return nil, err
			}
			l.Printf("playing back %d captures from %s on /frame", len(items), c.Input.Dir)
			cam = pb
		}
	}

	pipe := &pipeline.Pipeline{Processor: proc, Mapper: mapper, Log: l}
	geom := httpcam.Geometry{Width: c.Sensor.Width, Height: c.Sensor.Height, Format: c.Sensor.Format}
	dec := httpcam.NewHTTPDecoder(pipe, geom, httpcam.Options{
		Camera:   cam,
		Recorder: rec,
		Observer: metrics,
		MaxBody:  c.Server.MaxBody,
	})
	lim := limiter.New(c.Server.RateLimit, c.Server.Burst, "/decode", "/frame")
	limiter.Inject(dec, lim)

	supergraph := map[string][]string{"/": dec.RT().Endpoints()}

	root := chi.NewRouter()
	root.Use(middleware.Logger)
	root.Group(func(r chi.Router) {
		r.Use(lim.Check)
		dec.RT().Bind(r)
	})
	root.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	root.Get("/outputs/*", server.FileServer(func() string { return rec.Settings().Root }))
	supergraph["/"] = append(supergraph["/"], "/metrics", "/outputs/*")
	root.Get("/endpoints", server.Endpoints(supergraph))
	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no route "+r.URL.Path+", see /endpoints", http.StatusNotFound)
	})
	return root, nil
}
