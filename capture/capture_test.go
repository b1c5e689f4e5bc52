package capture_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nasa-jpl/rawlab/capture"
	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
)

func sample(t *testing.T, id string) capture.Capture {
	t.Helper()
	const w, h = 8, 4
	f := &raw10.Frame{Width: w, Height: h, Pix: make([]uint16, w*h)}
	for i := range f.Pix {
		f.Pix[i] = uint16((i * 37) % 1024)
	}
	// 10 packed bytes per row plus 6 bytes of padding
	p, err := raw10.Pack(f, 16)
	if err != nil {
		t.Fatal(err)
	}
	p.Format = "SRGGB10_CSI2P"
	return capture.Capture{
		ID:    id,
		Frame: p,
		Meta: capture.Metadata{
			Sensor:       "imx335",
			ExposureUS:   8000,
			AnalogueGain: 4.8,
			DigitalGain:  1.5,
			Timestamp:    time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		},
	}
}

func TestFITSRoundTrip(t *testing.T) {
	c := sample(t, "frame0001")
	var buf bytes.Buffer
	if err := capture.WriteFITS(&buf, c); err != nil {
		t.Fatal(err)
	}
	got, err := capture.ReadFITS(bytes.NewReader(buf.Bytes()), "frame0001")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got.Frame.Data, c.Frame.Data) {
		t.Error("payload changed in the archive")
	}
	if got.Frame.Width != 8 || got.Frame.Height != 4 || got.Frame.Format != "SRGGB10_CSI2P" {
		t.Errorf("unexpected geometry %dx%d %s", got.Frame.Width, got.Frame.Height, got.Frame.Format)
	}
	if got.Meta.Sensor != "imx335" || got.Meta.ExposureUS != 8000 {
		t.Errorf("unexpected metadata %+v", got.Meta)
	}
	if got.Meta.AnalogueGain != 4.8 || got.Meta.DigitalGain != 1.5 {
		t.Errorf("expected gains 4.8 and 1.5 got %v and %v", got.Meta.AnalogueGain, got.Meta.DigitalGain)
	}
	if !got.Meta.Timestamp.Equal(c.Meta.Timestamp) {
		t.Errorf("expected timestamp %v got %v", c.Meta.Timestamp, got.Meta.Timestamp)
	}
}

func TestFITSCorruptPayload(t *testing.T) {
	c := sample(t, "bad")
	var buf bytes.Buffer
	if err := capture.WriteFITS(&buf, c); err != nil {
		t.Fatal(err)
	}
	// the header fits in one 2880 byte block, the payload follows it
	b := buf.Bytes()
	b[2880] ^= 0xff
	_, err := capture.ReadFITS(bytes.NewReader(b), "bad")
	if !rawerr.Is(err, rawerr.Corrupt) {
		t.Errorf("expected Corrupt got %v", err)
	}
}

func TestFITSGarbage(t *testing.T) {
	_, err := capture.ReadFITS(bytes.NewReader([]byte("not a fits file")), "junk")
	if !rawerr.Is(err, rawerr.Corrupt) {
		t.Errorf("expected Corrupt got %v", err)
	}
}

func TestSidecarRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		c := sample(t, "side")
		path, err := capture.WriteSidecar(dir, c, compress)
		if err != nil {
			t.Fatal(err)
		}
		got, err := capture.ReadSidecar(path)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != "side" {
			t.Errorf("expected id side got %s", got.ID)
		}
		if diff := cmp.Diff(c.Frame, got.Frame); diff != "" {
			t.Errorf("compress=%v frame (-want +got):\n%s", compress, diff)
		}
		if !got.Meta.Timestamp.Equal(c.Meta.Timestamp) || got.Meta.AnalogueGain != 4.8 {
			t.Errorf("compress=%v unexpected metadata %+v", compress, got.Meta)
		}
		ext := capture.ExtRaw
		if compress {
			ext = capture.ExtRawZstd
		}
		if _, err := os.Stat(filepath.Join(dir, "side"+ext)); err != nil {
			t.Errorf("expected payload side%s: %v", ext, err)
		}
	}
}

func TestSidecarCorruptPayload(t *testing.T) {
	dir := t.TempDir()
	c := sample(t, "side")
	path, err := capture.WriteSidecar(dir, c, false)
	if err != nil {
		t.Fatal(err)
	}
	data := append([]byte(nil), c.Frame.Data...)
	data[0] ^= 0x01
	if err := ioutil.WriteFile(filepath.Join(dir, "side.raw"), data, 0644); err != nil {
		t.Fatal(err)
	}
	_, err = capture.ReadSidecar(path)
	if !rawerr.Is(err, rawerr.Corrupt) {
		t.Errorf("expected Corrupt got %v", err)
	}
}

func TestDirListAndLoad(t *testing.T) {
	d := capture.Dir{Root: t.TempDir()}
	if _, err := d.Save(sample(t, "b")); err != nil {
		t.Fatal(err)
	}
	if _, err := capture.WriteSidecar(d.Root, sample(t, "a"), true); err != nil {
		t.Fatal(err)
	}
	// stray files are ignored
	if err := ioutil.WriteFile(filepath.Join(d.Root, "notes.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	items, err := d.List()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID())
		if _, err := it.Load(); err != nil {
			t.Errorf("%s: %v", it.ID(), err)
		}
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
}

func TestOpenUnknownExtension(t *testing.T) {
	_, err := capture.Open("frame.png")
	if !rawerr.Is(err, rawerr.UnsupportedFormat) {
		t.Errorf("expected UnsupportedFormat got %v", err)
	}
}

func TestGainSample(t *testing.T) {
	m := capture.Metadata{AnalogueGain: 4.8012, DigitalGain: 2}
	g := m.Gain()
	if g.Combined() != 9.6 {
		t.Errorf("expected combined gain 9.6 got %v", g.Combined())
	}
}
