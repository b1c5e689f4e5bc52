package config_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nasa-jpl/rawlab/config"
	"github.com/nasa-jpl/rawlab/imgrec"
	"github.com/nasa-jpl/rawlab/isp"
	"github.com/nasa-jpl/rawlab/rawerr"
)

const sample = `
sensor:
  profile: imx335-wide
isp:
  pattern: BGGR
  mode: linear
output:
  dir: /tmp/rendered
  format: tiff
  maxretry: 2s
workers: 3
`

func writeConf(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rawlab.yml")
	if err := ioutil.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	c, err := config.Load(writeConf(t, sample))
	if err != nil {
		t.Fatal(err)
	}
	if c.Workers != 3 || c.Output.MaxRetry != 2*time.Second {
		t.Errorf("unexpected workers %d maxretry %v", c.Workers, c.Output.MaxRetry)
	}
	// untouched values keep their defaults
	if c.Server.Addr != ":8000" || c.Sensor.Width != 2592 {
		t.Errorf("defaults lost: %+v %+v", c.Server, c.Sensor)
	}
	proc, err := c.Processor()
	if err != nil {
		t.Fatal(err)
	}
	if proc.Pattern() != isp.BGGR || proc.Mode() != isp.ModeLinear {
		t.Errorf("unexpected processor %s %s", proc.Pattern(), proc.Mode())
	}
	m, err := c.Mapper()
	if err != nil {
		t.Fatal(err)
	}
	if m.Map(16) != 6400 {
		t.Errorf("expected the wide profile to reach 6400 at 16x, got %d", m.Map(16))
	}
	rec, err := c.Recorder()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Format != imgrec.TIFF || rec.Root != "/tmp/rendered" {
		t.Errorf("unexpected recorder %+v", rec.Settings())
	}
}

func TestMissingFileUsesDefaults(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(config.Defaults(), c, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	os.Setenv("RAWLAB_ISP_MODE", "gamma")
	os.Setenv("RAWLAB_WORKERS", "7")
	defer os.Unsetenv("RAWLAB_ISP_MODE")
	defer os.Unsetenv("RAWLAB_WORKERS")
	c, err := config.Load(writeConf(t, sample))
	if err != nil {
		t.Fatal(err)
	}
	if c.ISP.Mode != "gamma" || c.Workers != 7 {
		t.Errorf("expected env overrides, got mode %s workers %d", c.ISP.Mode, c.Workers)
	}
}

func TestNoImplicitPatternOrProfile(t *testing.T) {
	c := config.Defaults()
	if _, err := c.Processor(); !rawerr.Is(err, rawerr.Config) {
		t.Errorf("expected Config error for missing pattern got %v", err)
	}
	if _, err := c.Mapper(); !rawerr.Is(err, rawerr.Config) {
		t.Errorf("expected Config error for missing profile got %v", err)
	}
}

func TestTemplateIsComplete(t *testing.T) {
	c := config.Template()
	if _, err := c.Processor(); err != nil {
		t.Error(err)
	}
	m, err := c.Mapper()
	if err != nil {
		t.Fatal(err)
	}
	if m.Map(9.6) != 6400 {
		t.Errorf("expected 6400 at 9.6x got %d", m.Map(9.6))
	}
}

func TestExplicitProfileOverrides(t *testing.T) {
	c := config.Template()
	c.Sensor.GainMax = 12
	p, err := c.Profile()
	if err != nil {
		t.Fatal(err)
	}
	if p.GainMax != 12 || p.GainMin != 1 || p.ISOMax != 6400 {
		t.Errorf("unexpected profile %+v", p)
	}

	c = config.Defaults()
	c.Sensor.GainMin, c.Sensor.GainMax = 2, 1
	if _, err := c.Profile(); !rawerr.Is(err, rawerr.Config) {
		t.Errorf("expected Config error for a decreasing gain range got %v", err)
	}
}

func TestNotifyDisabledWithoutBroker(t *testing.T) {
	if _, ok := config.Defaults().Notify(); ok {
		t.Error("expected publishing to be off by default")
	}
	c := config.Defaults()
	c.MQTT.Broker = "tcp://localhost:1883"
	n, ok := c.Notify()
	if !ok || n.Topic != "rawlab" {
		t.Errorf("unexpected notify config %+v %v", n, ok)
	}
}
