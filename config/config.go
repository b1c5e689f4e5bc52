/*Package config loads the startup configuration of the rawlab commands.

Values are layered the same way for every command: built in defaults, then
a YAML file, then environment variables prefixed RAWLAB_ (RAWLAB_ISP_MODE
sets isp.mode).  The loaded Config is only read afterwards; the helper
methods turn it into the immutable component values the pipeline uses.

The gain profile, Bayer pattern and tone mode have no built in default.  A
capture rendered with the wrong pattern or the wrong ISO anchor looks
plausible, so they must come from the file or the environment.

*/
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	"github.com/nasa-jpl/rawlab/imgrec"
	"github.com/nasa-jpl/rawlab/iso"
	"github.com/nasa-jpl/rawlab/isp"
	"github.com/nasa-jpl/rawlab/notify"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// EnvPrefix prefixes the environment variables that override the file
const EnvPrefix = "RAWLAB_"

// Sensor describes the sensor the captures come from
type Sensor struct {
	// Profile is a built in gain profile, imx335-narrow or imx335-wide.
	// Nonzero explicit values below override its fields.
	Profile string `koanf:"profile" yaml:"profile"`

	GainMin  float64 `koanf:"gainmin" yaml:"gainmin"`
	GainMax  float64 `koanf:"gainmax" yaml:"gainmax"`
	ISOMin   int     `koanf:"isomin" yaml:"isomin"`
	ISOMax   int     `koanf:"isomax" yaml:"isomax"`
	ISOTable []int   `koanf:"isotable" yaml:"isotable"`

	// Width and Height are the default geometry of raw buffers posted
	// without one
	Width  int `koanf:"width" yaml:"width"`
	Height int `koanf:"height" yaml:"height"`

	// Format is the default packed format name
	Format string `koanf:"format" yaml:"format"`
}

// ISP holds the rendering settings
type ISP struct {
	// Pattern is the Bayer pattern, RGGB, BGGR, GRBG or GBRG
	Pattern string `koanf:"pattern" yaml:"pattern"`

	// Mode is the tone mode, gamma or linear
	Mode string `koanf:"mode" yaml:"mode"`

	// Demosaic names the demosaic algorithm
	Demosaic string `koanf:"demosaic" yaml:"demosaic"`
}

// Input is where stored captures are read from
type Input struct {
	Dir string `koanf:"dir" yaml:"dir"`
}

// Output is where rendered images are written
type Output struct {
	Dir         string        `koanf:"dir" yaml:"dir"`
	Prefix      string        `koanf:"prefix" yaml:"prefix"`
	Format      string        `koanf:"format" yaml:"format"`
	Preview     bool          `koanf:"preview" yaml:"preview"`
	DateFolders bool          `koanf:"datefolders" yaml:"datefolders"`
	MaxRetry    time.Duration `koanf:"maxretry" yaml:"maxretry"`
}

// MQTT holds the optional result publisher settings.  An empty broker
// disables publishing.
type MQTT struct {
	Broker   string        `koanf:"broker" yaml:"broker"`
	ClientID string        `koanf:"clientid" yaml:"clientid"`
	Topic    string        `koanf:"topic" yaml:"topic"`
	QoS      int           `koanf:"qos" yaml:"qos"`
	Timeout  time.Duration `koanf:"timeout" yaml:"timeout"`
}

// Server holds the HTTP service settings
type Server struct {
	// Addr is the address to listen at
	Addr string `koanf:"addr" yaml:"addr"`

	// RateLimit is the sustained decode requests per second, 0 is unlimited
	RateLimit float64 `koanf:"ratelimit" yaml:"ratelimit"`

	// Burst is the number of decode requests allowed at once
	Burst int `koanf:"burst" yaml:"burst"`

	// MaxBody is the largest accepted raw upload in bytes
	MaxBody int64 `koanf:"maxbody" yaml:"maxbody"`
}

// Config is the whole configuration
type Config struct {
	Sensor Sensor `koanf:"sensor" yaml:"sensor"`
	ISP    ISP    `koanf:"isp" yaml:"isp"`
	Input  Input  `koanf:"input" yaml:"input"`
	Output Output `koanf:"output" yaml:"output"`
	MQTT   MQTT   `koanf:"mqtt" yaml:"mqtt"`
	Server Server `koanf:"server" yaml:"server"`

	// Workers is the batch worker count, <= 0 is one per CPU
	Workers int `koanf:"workers" yaml:"workers"`
}

// Defaults returns the built in configuration
func Defaults() Config {
	return Config{
		Sensor: Sensor{Width: 2592, Height: 1944, Format: "SRGGB10_CSI2P"},
		ISP:    ISP{Demosaic: "bilinear"},
		Input:  Input{Dir: "."},
		Output: Output{Dir: "out", Format: "png", MaxRetry: 3 * time.Second},
		MQTT:   MQTT{ClientID: "rawlab", Topic: "rawlab", Timeout: 5 * time.Second},
		Server: Server{Addr: ":8000", Burst: 4, MaxBody: 64 << 20},
	}
}

// Template is Defaults with the IMX335 reference settings filled in, the
// starting point written by mkconf
func Template() Config {
	c := Defaults()
	c.Sensor.Profile = "imx335-narrow"
	c.ISP.Pattern = "RGGB"
	c.ISP.Mode = "gamma"
	return c
}

// Load layers defaults, the YAML file at path (skipped if it does not
// exist, or if path is empty), and the environment
func Load(path string) (Config, error) {
	const op = "config.Load"
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, rawerr.Wrap(rawerr.Config, op, err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			errtxt := err.Error()
			if !strings.Contains(errtxt, "no such") { // file missing, who cares
				return Config{}, rawerr.Wrap(rawerr.Config, op, err)
			}
		}
	}
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", -1)
	}), nil)
	if err != nil {
		return Config{}, rawerr.Wrap(rawerr.Config, op, err)
	}
	c := Config{}
	if err = k.Unmarshal("", &c); err != nil {
		return Config{}, rawerr.Wrap(rawerr.Config, op, err)
	}
	return c, nil
}

// Profile resolves the gain profile
func (c Config) Profile() (iso.Profile, error) {
	s := c.Sensor
	var p iso.Profile
	if s.Profile != "" {
		var err error
		p, err = iso.ByName(s.Profile)
		if err != nil {
			return p, err
		}
	} else {
		p = iso.Profile{Name: "custom", Table: iso.StandardTable()}
	}
	if s.GainMin != 0 {
		p.GainMin = s.GainMin
	}
	if s.GainMax != 0 {
		p.GainMax = s.GainMax
	}
	if s.ISOMin != 0 {
		p.ISOMin = s.ISOMin
	}
	if s.ISOMax != 0 {
		p.ISOMax = s.ISOMax
	}
	if len(s.ISOTable) != 0 {
		p.Table = append([]int(nil), s.ISOTable...)
	}
	if s.Profile == "" && p.GainMin == 0 && p.GainMax == 0 {
		return p, rawerr.New(rawerr.Config, "config.Profile", "no gain profile configured, set sensor.profile or sensor.gainmin/gainmax")
	}
	return p, p.Validate()
}

// Mapper builds the ISO mapper
func (c Config) Mapper() (*iso.Mapper, error) {
	p, err := c.Profile()
	if err != nil {
		return nil, err
	}
	return iso.New(p)
}

// Processor builds the ISP
func (c Config) Processor() (*isp.Processor, error) {
	pat, err := isp.ParsePattern(c.ISP.Pattern)
	if err != nil {
		return nil, err
	}
	mode, err := isp.ParseMode(c.ISP.Mode)
	if err != nil {
		return nil, err
	}
	return isp.NewProcessor(pat, mode, c.ISP.Demosaic)
}

// Recorder builds the output recorder
func (c Config) Recorder() (*imgrec.Recorder, error) {
	f, err := imgrec.ParseFormat(c.Output.Format)
	if err != nil {
		return nil, err
	}
	return &imgrec.Recorder{
		Root:        c.Output.Dir,
		Prefix:      c.Output.Prefix,
		Format:      f,
		Preview:     c.Output.Preview,
		DateFolders: c.Output.DateFolders,
		MaxElapsed:  c.Output.MaxRetry,
		Enabled:     true,
	}, nil
}

// Notify returns the MQTT settings and whether publishing is enabled
func (c Config) Notify() (notify.Config, bool) {
	m := c.MQTT
	return notify.Config{
		Broker:   m.Broker,
		ClientID: m.ClientID,
		Topic:    m.Topic,
		QoS:      byte(m.QoS),
		Timeout:  m.Timeout,
	}, m.Broker != ""
}
