package capture

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nasa-jpl/rawlab/rawerr"
)

// Dir is a folder of stored captures, FITS archives and raw sidecars
// side by side
type Dir struct {
	Root string
}

// fileItem is a capture on disk, loaded lazily
type fileItem struct {
	id   string
	path string
}

func (f fileItem) ID() string { return f.id }

func (f fileItem) Load() (Capture, error) {
	return Open(f.path)
}

// Open loads the capture at path, dispatching on its extension
func Open(path string) (Capture, error) {
	const op = "capture.Open"
	switch {
	case strings.HasSuffix(path, ExtFITS):
		f, err := os.Open(path)
		if err != nil {
			return Capture{}, rawerr.Wrap(rawerr.IO, op, err)
		}
		defer f.Close()
		return ReadFITS(f, idFromPath(path))
	case strings.HasSuffix(path, ExtSidecar):
		return ReadSidecar(path)
	default:
		return Capture{}, rawerr.New(rawerr.UnsupportedFormat, op, "%s is neither a FITS archive nor a sidecar", filepath.Base(path))
	}
}

// IsCapture reports if path names a loadable capture file.  Raw payloads
// are not captures by themselves; their sidecar is.
func IsCapture(path string) bool {
	return strings.HasSuffix(path, ExtFITS) || strings.HasSuffix(path, ExtSidecar)
}

// FileItem returns a lazily loaded Item for the file at path
func FileItem(path string) Item {
	return fileItem{id: idFromPath(path), path: path}
}

// List returns the captures in the folder, sorted by file name
func (d Dir) List() ([]Item, error) {
	const op = "capture.Dir.List"
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.IO, op, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsCapture(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	items := make([]Item, 0, len(names))
	for _, n := range names {
		items = append(items, FileItem(filepath.Join(d.Root, n)))
	}
	return items, nil
}

// Save writes c into the folder as a FITS archive and returns its path
func (d Dir) Save(c Capture) (string, error) {
	const op = "capture.Dir.Save"
	if err := os.MkdirAll(d.Root, 0777); err != nil {
		return "", rawerr.Wrap(rawerr.IO, op, err)
	}
	path := filepath.Join(d.Root, c.ID+ExtFITS)
	f, err := os.Create(path)
	if err != nil {
		return "", rawerr.Wrap(rawerr.IO, op, err)
	}
	if err = WriteFITS(f, c); err != nil {
		f.Close()
		return "", err
	}
	if err = f.Close(); err != nil {
		return "", rawerr.Wrap(rawerr.IO, op, err)
	}
	return path, nil
}
