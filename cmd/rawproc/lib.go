package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/theckman/yacspin"

	"github.com/nasa-jpl/rawlab/capture"
	"github.com/nasa-jpl/rawlab/config"
	"github.com/nasa-jpl/rawlab/notify"
	"github.com/nasa-jpl/rawlab/pipeline"
)

// settle is how long a capture file must go without events before it is
// considered completely written
const settle = 250 * time.Millisecond

// BuildPipeline turns the configuration into a pipeline writing through the
// configured recorder.  The returned notifier is nil when MQTT is disabled.
func BuildPipeline(c config.Config, l *log.Logger) (*pipeline.Pipeline, *notify.Reporter, error) {
	proc, err := c.Processor()
	if err != nil {
		return nil, nil, err
	}
	mapper, err := c.Mapper()
	if err != nil {
		return nil, nil, err
	}
	rec, err := c.Recorder()
	if err != nil {
		return nil, nil, err
	}
	p := &pipeline.Pipeline{
		Processor: proc,
		Mapper:    mapper,
		Sink:      rec,
		Workers:   c.Workers,
		Log:       l,
		Reporters: []pipeline.Reporter{pipeline.LogReporter{Log: l}},
	}
	ncfg, ok := c.Notify()
	if !ok {
		return p, nil, nil
	}
	n, err := notify.Dial(ncfg, l)
	if err != nil {
		return nil, nil, err
	}
	p.Reporters = append(p.Reporters, n)
	return p, n, nil
}

// progress drives a terminal spinner from pipeline results
type progress struct {
	spin  *yacspin.Spinner
	total int
	done  int
	fail  int
}

func newProgress(total int) (*progress, error) {
	spin, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " rendering",
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		return nil, err
	}
	return &progress{spin: spin, total: total}, nil
}

// Report implements pipeline.Reporter
func (p *progress) Report(runID string, r pipeline.Result) {
	p.done++
	if !r.OK() {
		p.fail++
	}
	p.spin.Message(fmt.Sprintf("%d/%d (%d failed)", p.done, p.total, p.fail))
}

func (p *progress) start() {
	p.spin.Start()
}

func (p *progress) stop(rep pipeline.Report) {
	msg := fmt.Sprintf("%d of %d rendered in %s", rep.Succeeded(), len(rep.Results), rep.Finished.Sub(rep.Started).Round(time.Millisecond))
	if len(rep.Failed()) > 0 {
		p.spin.StopFailMessage(msg)
		p.spin.StopFail()
		return
	}
	p.spin.StopMessage(msg)
	p.spin.Stop()
}

// Watch processes every capture that appears in dir until done is closed.
// Each capture is processed once its file has been quiet for settle.
func Watch(p *pipeline.Pipeline, dir string, done <-chan struct{}, l *log.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err = w.Add(dir); err != nil {
		return err
	}

	q := newQuiet(settle, done)
	index := 0
	for {
		select {
		case <-done:
			q.stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !capture.IsCapture(ev.Name) {
				continue
			}
			q.touch(ev.Name)
		case name := <-q.ready:
			q.release(name)
			res := p.Process(index, capture.FileItem(name))
			index++
			for _, r := range p.Reporters {
				r.Report("watch", res)
			}
			if res.OK() {
				l.Printf("%s -> %s ISO %d", res.ID, res.Output, res.ISO)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Println("watch error:", err)
		}
	}
}

// quiet delivers a name on ready once it has gone a full period without
// being touched.  It is owned by one goroutine; only the timers send.
type quiet struct {
	period time.Duration
	done   <-chan struct{}
	ready  chan string
	timers map[string]*time.Timer
}

func newQuiet(period time.Duration, done <-chan struct{}) *quiet {
	return &quiet{period: period, done: done, ready: make(chan string), timers: map[string]*time.Timer{}}
}

// touch restarts the quiet period of name
func (q *quiet) touch(name string) {
	if t, ok := q.timers[name]; ok {
		// a timer that already fired is waiting to deliver; that delivery
		// is read after this event, so it covers the new write too
		if t.Stop() {
			t.Reset(q.period)
		}
		return
	}
	q.timers[name] = time.AfterFunc(q.period, func() {
		select {
		case q.ready <- name:
		case <-q.done:
		}
	})
}

// release forgets name after its delivery was received
func (q *quiet) release(name string) {
	delete(q.timers, name)
}

func (q *quiet) stop() {
	for _, t := range q.timers {
		t.Stop()
	}
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}
