package capture

import (
	"bytes"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
)

const (
	// ExtRaw is the extension of an uncompressed raw payload
	ExtRaw = ".raw"

	// ExtRawZstd is the extension of a zstd compressed raw payload
	ExtRawZstd = ".raw.zst"

	// ExtSidecar is the extension of the YAML metadata next to a payload
	ExtSidecar = ".yml"

	// ExtFITS is the extension of a FITS capture archive
	ExtFITS = ".fits"
)

// Sidecar is the YAML document stored next to a raw payload
type Sidecar struct {
	Width    int      `yaml:"width"`
	Height   int      `yaml:"height"`
	Format   string   `yaml:"format"`
	CRC32    uint32   `yaml:"crc32"`
	Payload  string   `yaml:"payload"`
	Metadata Metadata `yaml:"metadata"`
	Captured string   `yaml:"captured,omitempty"`
}

// WriteSidecar writes c as dir/<id>.raw (or .raw.zst when compress is true)
// and dir/<id>.yml.  It returns the path of the sidecar.
func WriteSidecar(dir string, c Capture, compress bool) (string, error) {
	const op = "capture.WriteSidecar"
	if _, err := c.Frame.Stride(); err != nil {
		return "", err
	}
	ext := ExtRaw
	if compress {
		ext = ExtRawZstd
	}
	payload := c.ID + ext
	format := c.Frame.Format
	if format == "" {
		format = raw10.FormatRAW10
	}
	sc := Sidecar{
		Width:    c.Frame.Width,
		Height:   c.Frame.Height,
		Format:   format,
		CRC32:    Checksum(c.Frame.Data),
		Payload:  payload,
		Metadata: c.Meta,
	}
	if !c.Meta.Timestamp.IsZero() {
		sc.Captured = c.Meta.Timestamp.UTC().Format(time.RFC3339Nano)
	}

	var buf bytes.Buffer
	if compress {
		enc, err := zstd.NewWriter(&buf)
		if err != nil {
			return "", rawerr.Wrap(rawerr.IO, op, err)
		}
		if _, err = enc.Write(c.Frame.Data); err != nil {
			enc.Close()
			return "", rawerr.Wrap(rawerr.IO, op, err)
		}
		if err = enc.Close(); err != nil {
			return "", rawerr.Wrap(rawerr.IO, op, err)
		}
	} else {
		buf.Write(c.Frame.Data)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, payload), buf.Bytes(), 0644); err != nil {
		return "", rawerr.Wrap(rawerr.IO, op, err)
	}

	doc, err := yaml.Marshal(sc)
	if err != nil {
		return "", rawerr.Wrap(rawerr.IO, op, err)
	}
	scPath := filepath.Join(dir, c.ID+ExtSidecar)
	if err = ioutil.WriteFile(scPath, doc, 0644); err != nil {
		return "", rawerr.Wrap(rawerr.IO, op, err)
	}
	return scPath, nil
}

// ReadSidecar loads the capture described by the sidecar at path.  The
// payload is resolved relative to the sidecar's directory.
func ReadSidecar(path string) (Capture, error) {
	const op = "capture.ReadSidecar"
	doc, err := ioutil.ReadFile(path)
	if err != nil {
		return Capture{}, rawerr.Wrap(rawerr.IO, op, err)
	}
	var sc Sidecar
	if err = yaml.Unmarshal(doc, &sc); err != nil {
		return Capture{}, rawerr.Wrap(rawerr.Corrupt, op, errors.Wrapf(err, "parsing %s", path))
	}
	if sc.Payload == "" {
		return Capture{}, rawerr.New(rawerr.Corrupt, op, "%s names no payload", path)
	}
	payloadPath := filepath.Join(filepath.Dir(path), filepath.Base(sc.Payload))
	data, err := readPayload(payloadPath)
	if err != nil {
		return Capture{}, rawerr.Wrap(rawerr.IO, op, err)
	}
	if err = verify(op, data, sc.CRC32); err != nil {
		return Capture{}, err
	}
	if sc.Captured != "" {
		t, err := time.Parse(time.RFC3339Nano, sc.Captured)
		if err != nil {
			return Capture{}, rawerr.Wrap(rawerr.Corrupt, op, errors.Wrapf(err, "parsing capture time in %s", path))
		}
		sc.Metadata.Timestamp = t
	}
	return Capture{
		ID:    idFromPath(path),
		Frame: raw10.Packed{Data: data, Width: sc.Width, Height: sc.Height, Format: sc.Format},
		Meta:  sc.Metadata,
	}, nil
}

func readPayload(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if !strings.HasSuffix(path, ExtRawZstd) {
		return ioutil.ReadAll(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.Wrap(err, "opening zstd stream")
	}
	defer dec.Close()
	return ioutil.ReadAll(io.Reader(dec))
}

// idFromPath strips the directory and every known capture extension
func idFromPath(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{ExtRawZstd, ExtRaw, ExtSidecar, ExtFITS} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
