/*Package pipeline runs stored captures through decode, render, ISO mapping
and output with a bounded pool of workers.

A failed item never stops the batch: its error is recorded in the Report
next to the successes, in the same order the items were given.

*/
package pipeline

import (
	"context"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/nasa-jpl/rawlab/capture"
	"github.com/nasa-jpl/rawlab/iso"
	"github.com/nasa-jpl/rawlab/isp"
	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Sink receives rendered images.  *imgrec.Recorder is the usual one.
type Sink interface {
	Save(name string, im *isp.Image, cards []fitsio.Card) (string, error)
}

// Reporter is told about every result as it completes.  Calls are
// serialized.
type Reporter interface {
	Report(runID string, r Result)
}

// Pipeline holds the immutable stage configuration of a batch
type Pipeline struct {
	// Processor demosaics and tone maps.  Required.
	Processor *isp.Processor

	// Mapper turns capture gain into ISO; nil skips ISO mapping
	Mapper *iso.Mapper

	// Sink writes the rendered images; nil renders without writing
	Sink Sink

	// Workers is the pool size, <= 0 uses one per CPU
	Workers int

	// Log receives progress lines; nil uses the standard logger
	Log *log.Logger

	// Reporters are told about each result
	Reporters []Reporter
}

// Rendered is one decoded and rendered capture
type Rendered struct {
	Image *isp.Image
	ISO   int
	Stats raw10.Stats
	Cards []fitsio.Card
}

// Render unpacks and renders c and maps its gain to ISO.  It does not write.
func (p *Pipeline) Render(c capture.Capture) (Rendered, error) {
	if p.Processor == nil {
		return Rendered{}, rawerr.New(rawerr.Config, "pipeline.Render", "no processor configured")
	}
	if hint, err := raw10.ParseFormat(c.Frame.Format); err == nil && hint != "" && hint != p.Processor.Pattern().String() {
		p.logf("%s: format %s names a %s mosaic, rendering as configured %s", c.ID, c.Frame.Format, hint, p.Processor.Pattern())
	}
	f, err := raw10.Unpack(c.Frame)
	if err != nil {
		return Rendered{}, err
	}
	im, err := p.Processor.Render(f)
	if err != nil {
		return Rendered{}, err
	}
	out := Rendered{Image: im, Stats: raw10.ComputeStats(f)}
	if p.Mapper != nil {
		out.ISO = p.Mapper.MapSample(c.Meta.Gain())
	}
	out.Cards = p.cards(c, out)
	return out, nil
}

func (p *Pipeline) cards(c capture.Capture, r Rendered) []fitsio.Card {
	cards := []fitsio.Card{
		{Name: "SOURCE", Value: c.ID, Comment: "capture the image was rendered from"},
		{Name: "BAYER", Value: p.Processor.Pattern().String()},
		{Name: "TONE", Value: p.Processor.Mode().String()},
		{Name: "DEMOSAIC", Value: p.Processor.DemosaicName()},
		{Name: "RAWMIN", Value: int(r.Stats.Min)},
		{Name: "RAWMAX", Value: int(r.Stats.Max)},
		{Name: "RAWMEAN", Value: r.Stats.Mean},
		{Name: "EXPUS", Value: c.Meta.ExposureUS, Comment: "exposure time, us"},
		{Name: "SHUTTER", Value: iso.FormatShutter(c.Meta.ExposureUS)},
		{Name: "AGAIN", Value: c.Meta.AnalogueGain, Comment: "analogue gain"},
		{Name: "DGAIN", Value: c.Meta.DigitalGain, Comment: "digital gain"},
	}
	if p.Mapper != nil {
		cards = append(cards, fitsio.Card{Name: "ISO", Value: r.ISO, Comment: p.Mapper.Profile().Name})
	}
	return cards
}

// Process loads, renders and writes a single item.  Index is copied into
// the result.
func (p *Pipeline) Process(index int, item capture.Item) Result {
	start := time.Now()
	res := Result{Index: index, ID: item.ID()}
	finish := func(err error) Result {
		res.Duration = time.Since(start)
		if err != nil {
			res.Err = err
			res.Kind = rawerr.KindOf(err)
		}
		return res
	}
	c, err := item.Load()
	if err != nil {
		return finish(err)
	}
	r, err := p.Render(c)
	if err != nil {
		return finish(err)
	}
	res.ISO = r.ISO
	res.Stats = r.Stats
	if p.Sink != nil {
		fn, err := p.Sink.Save(c.ID, r.Image, r.Cards)
		if err != nil {
			return finish(errors.Wrapf(err, "writing %s", c.ID))
		}
		res.Output = fn
	}
	return finish(nil)
}

// Run processes every item.  Once ctx is done no further item is started;
// items already being processed finish and the rest are reported Canceled.
// The report holds one result per item, ordered like items.
func (p *Pipeline) Run(ctx context.Context, items []capture.Item) Report {
	rep := Report{RunID: uuid.New().String(), Started: time.Now(), Results: make([]Result, len(items))}
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(items) {
		workers = len(items)
	}
	p.logf("run %s: %d captures, %d workers", rep.RunID, len(items), workers)

	jobs := make(chan int)
	results := make(chan Result)
	canceled := func(i int) Result {
		return Result{Index: i, ID: items[i].ID(), Kind: rawerr.Canceled,
			Err: rawerr.Wrap(rawerr.Canceled, "pipeline.Run", ctx.Err())}
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					results <- canceled(i)
					continue
				}
				results <- p.Process(i, items[i])
			}
		}()
	}
	go func() {
		defer close(jobs)
		for i := range items {
			if ctx.Err() != nil {
				for j := i; j < len(items); j++ {
					results <- canceled(j)
				}
				return
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				for j := i; j < len(items); j++ {
					results <- canceled(j)
				}
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		// the dispatcher closes jobs only after sending its canceled results,
		// and the workers exit only after jobs is closed
		close(results)
	}()

	for r := range results {
		rep.Results[r.Index] = r
		p.report(rep.RunID, r)
	}
	rep.Finished = time.Now()
	p.logf("run %s: %d of %d rendered in %v", rep.RunID, rep.Succeeded(), len(items), rep.Finished.Sub(rep.Started))
	return rep
}

func (p *Pipeline) report(runID string, r Result) {
	if r.Err != nil {
		p.logf("%s: %s", r.ID, r.Err)
	} else {
		p.logf("%s: ISO %d, raw min %d max %d mean %.1f -> %s", r.ID, r.ISO, r.Stats.Min, r.Stats.Max, r.Stats.Mean, r.Output)
	}
	for _, rp := range p.Reporters {
		rp.Report(runID, r)
	}
}

func (p *Pipeline) logf(format string, args ...interface{}) {
	if p.Log != nil {
		p.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}
