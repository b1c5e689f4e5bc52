package rawerr_test

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"

	"github.com/nasa-jpl/rawlab/rawerr"
)

func ExampleKindOf() {
	err := rawerr.New(rawerr.ShapeMismatch, "raw10.Unpack", "buffer of %d bytes does not divide into %d rows", 10, 3)
	fmt.Println(rawerr.KindOf(err))
	fmt.Println(err)
	// Output:
	// ShapeMismatch
	// raw10.Unpack: ShapeMismatch: buffer of 10 bytes does not divide into 3 rows
}

func TestKindSurvivesWrapping(t *testing.T) {
	base := rawerr.New(rawerr.InvalidGeometry, "isp.Render", "odd width")
	wrapped := errors.Wrap(fmt.Errorf("item 2: %w", base), "batch")
	if k := rawerr.KindOf(wrapped); k != rawerr.InvalidGeometry {
		t.Errorf("expected InvalidGeometry got %s", k)
	}
	if !rawerr.Is(wrapped, rawerr.InvalidGeometry) {
		t.Error("expected Is to see through wrapping")
	}
}

func TestForeignErrorIsUnknown(t *testing.T) {
	if k := rawerr.KindOf(errors.New("boom")); k != rawerr.Unknown {
		t.Errorf("expected Unknown got %s", k)
	}
	if rawerr.Is(nil, rawerr.Unknown) {
		t.Error("nil should not match any kind")
	}
}

func TestWrapNil(t *testing.T) {
	if rawerr.Wrap(rawerr.IO, "op", nil) != nil {
		t.Error("wrapping nil should give nil")
	}
}

func TestKindText(t *testing.T) {
	b, _ := rawerr.Corrupt.MarshalText()
	if string(b) != "Corrupt" {
		t.Errorf("expected Corrupt got %s", b)
	}
	if s := rawerr.Kind(99).String(); s != "Kind(99)" {
		t.Errorf("expected Kind(99) got %s", s)
	}
}
