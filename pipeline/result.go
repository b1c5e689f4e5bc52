package pipeline

import (
	"encoding/json"
	"log"
	"time"

	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Result is the outcome of one item
type Result struct {
	// Index is the position of the item in the batch
	Index int

	// ID is the item's ID
	ID string

	// Output is the path written, empty without a sink or on failure
	Output string

	// ISO is the mapped ISO, zero if not mapped
	ISO int

	// Stats summarizes the raw mosaic
	Stats raw10.Stats

	// Kind classifies Err; Unknown when Err is nil
	Kind rawerr.Kind

	// Err is the failure, nil on success
	Err error

	// Duration is the time spent on the item
	Duration time.Duration
}

// OK returns true if the item was rendered
func (r Result) OK() bool { return r.Err == nil }

// MarshalJSON flattens the error to a string
func (r Result) MarshalJSON() ([]byte, error) {
	type wire struct {
		Index    int         `json:"index"`
		ID       string      `json:"id"`
		Output   string      `json:"output,omitempty"`
		ISO      int         `json:"iso,omitempty"`
		Stats    raw10.Stats `json:"stats"`
		Kind     string      `json:"kind,omitempty"`
		Error    string      `json:"error,omitempty"`
		Duration float64     `json:"durationSeconds"`
	}
	w := wire{Index: r.Index, ID: r.ID, Output: r.Output, ISO: r.ISO, Stats: r.Stats, Duration: r.Duration.Seconds()}
	if r.Err != nil {
		w.Kind = r.Kind.String()
		w.Error = r.Err.Error()
	}
	return json.Marshal(w)
}

// Report is the outcome of a batch
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time

	// Results has one entry per item, in item order
	Results []Result
}

// Succeeded returns the number of rendered items
func (r Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

// Failed returns the results that carry an error
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// ByKind counts the failures of each kind
func (r Report) ByKind() map[rawerr.Kind]int {
	out := map[rawerr.Kind]int{}
	for _, res := range r.Results {
		if !res.OK() {
			out[res.Kind]++
		}
	}
	return out
}

// LogReporter writes one line per failed result to a logger
type LogReporter struct {
	Log *log.Logger
}

// Report implements Reporter
func (l LogReporter) Report(runID string, r Result) {
	if r.OK() {
		return
	}
	l.Log.Printf("run %s item %d (%s) failed with %s: %v", runID, r.Index, r.ID, r.Kind, r.Err)
}
