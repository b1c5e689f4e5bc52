package imgrec_test

import (
	"bytes"
	"image/png"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/go-chi/chi"
	"golang.org/x/image/tiff"

	"github.com/nasa-jpl/rawlab/generichttp"
	"github.com/nasa-jpl/rawlab/imgrec"
	"github.com/nasa-jpl/rawlab/isp"
	"github.com/nasa-jpl/rawlab/rawerr"
)

func gradient(w, h int) *isp.Image {
	im := &isp.Image{Width: w, Height: h, Pix: make([]uint16, 3*w*h)}
	for i := 0; i < w*h; i++ {
		im.Pix[3*i] = uint16(i * 1000)
		im.Pix[3*i+1] = 0x8000
		im.Pix[3*i+2] = 0xffff
	}
	return im
}

func TestPNGKeeps16Bits(t *testing.T) {
	im := gradient(4, 2)
	var buf bytes.Buffer
	if err := imgrec.Encode(&buf, im, imgrec.PNG, nil); err != nil {
		t.Fatal(err)
	}
	dec, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, _ := dec.At(3, 1).RGBA()
	if r != 7000 || g != 0x8000 || b != 0xffff {
		t.Errorf("expected 7000 32768 65535 got %d %d %d", r, g, b)
	}
}

func TestTIFFKeeps16Bits(t *testing.T) {
	im := gradient(4, 2)
	var buf bytes.Buffer
	if err := imgrec.Encode(&buf, im, imgrec.TIFF, nil); err != nil {
		t.Fatal(err)
	}
	dec, err := tiff.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	r, _, _, _ := dec.At(1, 0).RGBA()
	if r != 1000 {
		t.Errorf("expected red 1000 got %d", r)
	}
}

func TestFITSCube(t *testing.T) {
	im := gradient(4, 2)
	var buf bytes.Buffer
	cards := []fitsio.Card{{Name: "ISO", Value: 800}}
	if err := imgrec.Encode(&buf, im, imgrec.FITS, cards); err != nil {
		t.Fatal(err)
	}
	f, err := fitsio.Open(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	hdr := f.HDU(0).Header()
	axes := hdr.Axes()
	if len(axes) != 3 || axes[0] != 4 || axes[1] != 2 || axes[2] != 3 {
		t.Errorf("expected axes [4 2 3] got %v", axes)
	}
	if hdr.Get("ISO") == nil {
		t.Error("ISO card missing")
	}
	if hdr.Get("BZERO") == nil {
		t.Error("BZERO card missing")
	}
}

func TestWriteFitsLeavesCallerCardsAlone(t *testing.T) {
	cards := make([]fitsio.Card, 1, 4)
	cards[0] = fitsio.Card{Name: "ISO", Value: 800}
	spare := cards[:cap(cards)]
	if err := imgrec.WriteFits(ioutil.Discard, cards, gradient(4, 2)); err != nil {
		t.Fatal(err)
	}
	if len(cards) != 1 {
		t.Errorf("expected 1 card got %d", len(cards))
	}
	if spare[1].Name != "" || spare[2].Name != "" {
		t.Errorf("spare capacity was written: %q %q", spare[1].Name, spare[2].Name)
	}
}

func TestJPEGPreview(t *testing.T) {
	var buf bytes.Buffer
	if err := imgrec.Encode(&buf, gradient(8, 8), imgrec.JPEG, nil); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte{0xff, 0xd8}) {
		t.Error("output is not a JPEG")
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]imgrec.Format{"": imgrec.PNG, ".tif": imgrec.TIFF, "FITS": imgrec.FITS, "jpeg": imgrec.JPEG}
	for in, want := range cases {
		got, err := imgrec.ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("%q: expected %s got %s %v", in, want, got, err)
		}
	}
	if _, err := imgrec.ParseFormat("bmp"); !rawerr.Is(err, rawerr.Config) {
		t.Errorf("expected Config error got %v", err)
	}
}

func TestSaveNamedWithPreview(t *testing.T) {
	rec := &imgrec.Recorder{Root: filepath.Join(t.TempDir(), "out"), Preview: true}
	fn, err := rec.Save("frame0001", gradient(4, 4), nil)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(fn) != "frame0001.png" {
		t.Errorf("expected frame0001.png got %s", fn)
	}
	for _, name := range []string{"frame0001.png", "frame0001.jpg"} {
		if _, err := os.Stat(filepath.Join(rec.Root, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestSaveCountsUp(t *testing.T) {
	root := t.TempDir()
	// an existing file from an earlier session
	if err := ioutil.WriteFile(filepath.Join(root, "cap000004.png"), nil, 0644); err != nil {
		t.Fatal(err)
	}
	rec := &imgrec.Recorder{Root: root, Prefix: "cap"}
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := rec.Save("", gradient(2, 2), nil); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	for _, n := range []string{"cap000005.png", "cap000006.png", "cap000007.png"} {
		if _, err := os.Stat(filepath.Join(root, n)); err != nil {
			t.Errorf("%s: %v", n, err)
		}
	}
}

func TestSaveDateFolder(t *testing.T) {
	rec := &imgrec.Recorder{Root: t.TempDir(), DateFolders: true, Format: imgrec.TIFF}
	fn, err := rec.Save("x", gradient(2, 2), nil)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Base(filepath.Dir(fn))
	if len(dir) != len("2006-01-02") || strings.Count(dir, "-") != 2 {
		t.Errorf("expected a yyyy-mm-dd folder got %s", dir)
	}
}

func TestSaveFailsWithIO(t *testing.T) {
	root := t.TempDir()
	// a file where the output folder should be
	blocker := filepath.Join(root, "blocked")
	if err := ioutil.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	rec := &imgrec.Recorder{Root: blocker, MaxElapsed: 1}
	_, err := rec.Save("x", gradient(2, 2), nil)
	if !rawerr.Is(err, rawerr.IO) {
		t.Errorf("expected IO got %v", err)
	}
}

type table struct{ rt generichttp.RouteTable }

func (t table) RT() generichttp.RouteTable { return t.rt }

func TestHTTPWrapper(t *testing.T) {
	rec := &imgrec.Recorder{Root: t.TempDir()}
	tbl := table{generichttp.RouteTable{}}
	imgrec.NewHTTPWrapper(rec).Inject(tbl)
	r := chi.NewRouter()
	tbl.rt.Bind(r)

	post := func(path, body string) int {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if code := post("/autowrite/prefix", `{"str":"run1_"}`); code != http.StatusOK {
		t.Errorf("prefix: status %d", code)
	}
	if code := post("/autowrite/format", `{"str":"tiff"}`); code != http.StatusOK {
		t.Errorf("format: status %d", code)
	}
	if code := post("/autowrite/format", `{"str":"gif"}`); code != http.StatusBadRequest {
		t.Errorf("bad format: expected 400 got %d", code)
	}
	if code := post("/autowrite/enabled", `{"bool":true}`); code != http.StatusOK {
		t.Errorf("enabled: status %d", code)
	}
	s := rec.Settings()
	if s.Prefix != "run1_" || s.Format != imgrec.TIFF || !s.Enabled {
		t.Errorf("unexpected settings %+v", s)
	}

	req := httptest.NewRequest(http.MethodGet, "/autowrite/prefix", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if body := strings.TrimSpace(w.Body.String()); body != `{"str":"run1_"}` {
		t.Errorf("unexpected body %s", body)
	}
}
