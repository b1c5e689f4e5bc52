// Package imgrec contains an image recorder used to save rendered images to disk.
package imgrec

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/cenkalti/backoff"

	"github.com/nasa-jpl/rawlab/isp"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// Recorder writes rendered images either under a given name or with
// incrementing filenames, optionally in yyyy-mm-dd subfolders.  It is safe
// for concurrent use.
type Recorder struct {
	mu sync.Mutex

	// counter is the internally incrementing counter
	counter int

	// Root is the root path
	Root string

	// Prefix is the prefix for counter based filenames
	Prefix string

	// DateFolders puts images in a yyyy-mm-dd subfolder of Root
	DateFolders bool

	// Format is the output container
	Format Format

	// Preview also writes a downsampled JPEG next to each image
	Preview bool

	// MaxElapsed bounds the time spent retrying a failed write, zero is 3s
	MaxElapsed time.Duration

	// Enabled is a flag unused by this struct that allows consumers to disable its use in their code
	Enabled bool
}

// folder returns the folder images go to right now and makes sure it exists
func (r *Recorder) folder() (string, error) {
	fldr := r.Root
	if r.DateFolders {
		now := time.Now()
		fldr = filepath.Join(fldr, fmt.Sprintf("%04d-%02d-%02d", now.Year(), now.Month(), now.Day()))
	}
	err := os.MkdirAll(fldr, 0777)
	return fldr, err
}

func (r *Recorder) format() Format {
	if r.Format == "" {
		return PNG
	}
	return r.Format
}

// Save encodes im and writes it as <name>.<ext> in the current folder.  An
// empty name takes the next <prefix><counter> name.  The path written is
// returned.  Encoding failures are returned as is; file writes are retried
// with exponential backoff before failing with kind IO.
func (r *Recorder) Save(name string, im *isp.Image, cards []fitsio.Card) (string, error) {
	const op = "imgrec.Save"
	r.mu.Lock()
	f := r.format()
	preview := r.Preview && f != JPEG
	maxElapsed := r.MaxElapsed
	fldr, err := r.folder()
	if err != nil {
		r.mu.Unlock()
		return "", rawerr.Wrap(rawerr.IO, op, err)
	}
	if name == "" {
		if r.counter == 0 {
			r.incr(fldr, f)
		}
		name = fmt.Sprintf("%s%06d", r.Prefix, r.counter)
		r.counter++
	}
	r.mu.Unlock()

	var buf bytes.Buffer
	if err = Encode(&buf, im, f, cards); err != nil {
		return "", err
	}
	fn := filepath.Join(fldr, name+f.Ext())
	if err = writeRetry(fn, buf.Bytes(), maxElapsed); err != nil {
		return "", rawerr.Wrap(rawerr.IO, op, err)
	}
	if preview {
		buf.Reset()
		if err = Encode(&buf, im, JPEG, nil); err != nil {
			return fn, err
		}
		if err = writeRetry(filepath.Join(fldr, name+JPEG.Ext()), buf.Bytes(), maxElapsed); err != nil {
			return fn, rawerr.Wrap(rawerr.IO, op, err)
		}
	}
	return fn, nil
}

func writeRetry(fn string, data []byte, maxElapsed time.Duration) error {
	if maxElapsed <= 0 {
		maxElapsed = 3 * time.Second
	}
	op := func() error {
		return ioutil.WriteFile(fn, data, 0666)
	}
	return backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      maxElapsed,
		Clock:               backoff.SystemClock})
}

// Incr updates the filename counter; it scans the folder to do so
func (r *Recorder) Incr() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fldr, err := r.folder()
	if err != nil {
		return
	}
	r.incr(fldr, r.format())
}

// incr sets the counter one past the highest numbered file in fldr.  If the
// folder cannot be read the counter is not changed.
func (r *Recorder) incr(fldr string, f Format) {
	files, err := ioutil.ReadDir(fldr)
	if err != nil {
		return
	}
	count := -1
	ext := f.Ext()
	for _, file := range files {
		// skip directories, other formats, and wrong prefix
		if file.IsDir() {
			continue
		}
		fn := file.Name()
		if !strings.HasSuffix(fn, ext) || !strings.HasPrefix(fn, r.Prefix) {
			continue
		}
		bit := strings.TrimSuffix(strings.TrimPrefix(fn, r.Prefix), ext)
		n, err := strconv.Atoi(bit)
		if err != nil {
			continue
		}
		if count < n {
			count = n
		}
	}
	r.counter = count + 1
}

// Settings is a snapshot of the user controllable fields
type Settings struct {
	Root    string `json:"root"`
	Prefix  string `json:"prefix"`
	Format  Format `json:"format"`
	Enabled bool   `json:"enabled"`
}

// Settings returns the current settings
func (r *Recorder) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Settings{Root: r.Root, Prefix: r.Prefix, Format: r.format(), Enabled: r.Enabled}
}

// SetRoot changes the root folder and creates it
func (r *Recorder) SetRoot(root string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Root = root
	r.counter = 0
	_, err := r.folder()
	return err
}

// SetPrefix changes the filename prefix and resets the counter
func (r *Recorder) SetPrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Prefix = prefix
	r.counter = 0
}

// SetEnabled sets the Enabled flag
func (r *Recorder) SetEnabled(b bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Enabled = b
}

// SetFormat changes the output container
func (r *Recorder) SetFormat(f Format) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Format = f
	r.counter = 0
}
