package capture

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/rawlab/raw10"
	"github.com/nasa-jpl/rawlab/rawerr"
)

// header card names used in capture archives
const (
	cardWidth   = "RAWCOLS"
	cardHeight  = "RAWROWS"
	cardFormat  = "RAWFMT"
	cardCRC     = "RAWCRC"
	cardSensor  = "SENSOR"
	cardExpUS   = "EXPUS"
	cardExpTime = "EXPTIME"
	cardAGain   = "AGAIN"
	cardDGain   = "DGAIN"
	cardDate    = "DATE-OBS"
)

// Cards returns the header cards describing c.  The payload CRC is included.
func Cards(c Capture) []fitsio.Card {
	format := c.Frame.Format
	if format == "" {
		format = raw10.FormatRAW10
	}
	cards := []fitsio.Card{
		{Name: cardWidth, Value: c.Frame.Width, Comment: "active pixels per row"},
		{Name: cardHeight, Value: c.Frame.Height, Comment: "rows"},
		{Name: cardFormat, Value: format, Comment: "packed pixel format"},
		{Name: cardCRC, Value: int64(Checksum(c.Frame.Data)), Comment: "CRC-32 of the packed payload"},
		{Name: cardSensor, Value: c.Meta.Sensor},
		{Name: cardExpUS, Value: c.Meta.ExposureUS, Comment: "exposure time, us"},
		{Name: cardExpTime, Value: float64(c.Meta.ExposureUS) / 1e6, Comment: "exposure time, s"},
		{Name: cardAGain, Value: c.Meta.AnalogueGain, Comment: "analogue gain"},
		{Name: cardDGain, Value: c.Meta.DigitalGain, Comment: "digital gain"},
	}
	if !c.Meta.Timestamp.IsZero() {
		cards = append(cards, fitsio.Card{Name: cardDate, Value: c.Meta.Timestamp.UTC().Format(time.RFC3339Nano)})
	}
	return cards
}

// WriteFITS streams c to w as a single 8-bit image HDU of stride x height
// bytes, the packed payload untouched, with the metadata in header cards
func WriteFITS(w io.Writer, c Capture) error {
	const op = "capture.WriteFITS"
	stride, err := c.Frame.Stride()
	if err != nil {
		return err
	}
	fits, err := fitsio.Create(w)
	if err != nil {
		return rawerr.Wrap(rawerr.IO, op, err)
	}
	defer fits.Close()
	im := fitsio.NewImage(8, []int{stride, c.Frame.Height})
	defer im.Close()
	if err = im.Header().Append(Cards(c)...); err != nil {
		return rawerr.Wrap(rawerr.IO, op, err)
	}
	if err = im.Write(c.Frame.Data); err != nil {
		return rawerr.Wrap(rawerr.IO, op, err)
	}
	if err = fits.Write(im); err != nil {
		return rawerr.Wrap(rawerr.IO, op, err)
	}
	return nil
}

// ReadFITS reads a capture archive written by WriteFITS.  A payload whose
// CRC does not match the header is Corrupt.
func ReadFITS(r io.Reader, id string) (Capture, error) {
	const op = "capture.ReadFITS"
	fits, err := fitsio.Open(r)
	if err != nil {
		return Capture{}, rawerr.Wrap(rawerr.Corrupt, op, err)
	}
	defer fits.Close()
	if len(fits.HDUs()) == 0 {
		return Capture{}, rawerr.New(rawerr.Corrupt, op, "no HDUs in %s", id)
	}
	img, ok := fits.HDU(0).(fitsio.Image)
	if !ok {
		return Capture{}, rawerr.New(rawerr.Corrupt, op, "primary HDU of %s is not an image", id)
	}
	hdr := img.Header()
	if hdr.Bitpix() != 8 || len(hdr.Axes()) != 2 {
		return Capture{}, rawerr.New(rawerr.Corrupt, op, "%s is not an 8-bit 2D byte image", id)
	}
	axes := hdr.Axes()
	stride, rows := axes[0], axes[1]

	width, err := cardInt(hdr, cardWidth)
	if err != nil {
		return Capture{}, rawerr.Wrap(rawerr.Corrupt, op, err)
	}
	height, err := cardInt(hdr, cardHeight)
	if err != nil {
		return Capture{}, rawerr.Wrap(rawerr.Corrupt, op, err)
	}
	if int(height) != rows {
		return Capture{}, rawerr.New(rawerr.Corrupt, op, "%s declares %d rows but stores %d", id, height, rows)
	}
	raw := img.Raw()
	if len(raw) < stride*rows {
		return Capture{}, rawerr.New(rawerr.Corrupt, op, "%s holds %d bytes, expected %d", id, len(raw), stride*rows)
	}
	data := make([]byte, stride*rows)
	copy(data, raw)

	if sum, err := cardInt(hdr, cardCRC); err == nil {
		if err := verify(op, data, uint32(sum)); err != nil {
			return Capture{}, err
		}
	}

	c := Capture{
		ID:    id,
		Frame: raw10.Packed{Data: data, Width: int(width), Height: int(height), Format: cardString(hdr, cardFormat)},
	}
	c.Meta.Sensor = cardString(hdr, cardSensor)
	if us, err := cardInt(hdr, cardExpUS); err == nil {
		c.Meta.ExposureUS = us
	}
	c.Meta.AnalogueGain = cardFloat(hdr, cardAGain)
	c.Meta.DigitalGain = cardFloat(hdr, cardDGain)
	if s := cardString(hdr, cardDate); s != "" {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			c.Meta.Timestamp = t
		}
	}
	return c, nil
}

func cardInt(hdr *fitsio.Header, name string) (int64, error) {
	card := hdr.Get(name)
	if card == nil {
		return 0, fmt.Errorf("missing %s card", name)
	}
	switch v := card.Value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%s card is %T, not an integer", name, card.Value)
	}
}

func cardFloat(hdr *fitsio.Header, name string) float64 {
	card := hdr.Get(name)
	if card == nil {
		return 0
	}
	switch v := card.Value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

func cardString(hdr *fitsio.Header, name string) string {
	card := hdr.Get(name)
	if card == nil {
		return ""
	}
	if s, ok := card.Value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
