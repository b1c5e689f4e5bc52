package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/nasa-jpl/rawlab/util"
)

func ExampleIntSliceToCSV() {
	fmt.Println(util.IntSliceToCSV([]int{100, 125, 160}))
	// Output: 100,125,160
}

func TestIntSliceToCSV(t *testing.T) {
	inp := []int{1, 2, 3}
	expected := "1,2,3"
	out := util.IntSliceToCSV(inp)
	if expected != out {
		t.Errorf("expected %s got %s", expected, out)
	}
}

func TestAllElementsNumbers(t *testing.T) {
	if !util.AllElementsNumbers("25.5") {
		t.Error("expected 25.5 to be all numbers")
	}
	if util.AllElementsNumbers("25ms") {
		t.Error("expected 25ms to contain a unit")
	}
	if util.AllElementsNumbers("") {
		t.Error("expected the empty string to not be a number")
	}
}

func TestMicrosToDuration(t *testing.T) {
	out := util.MicrosToDuration(85000)
	if out != 85*time.Millisecond {
		t.Errorf("expected 85ms got %v", out)
	}
}

func TestParseDimension(t *testing.T) {
	if n := util.ParseDimension(" 2592"); n != 2592 {
		t.Errorf("expected 2592 got %d", n)
	}
	if n := util.ParseDimension("-4"); n != 0 {
		t.Errorf("expected 0 for a negative got %d", n)
	}
	if n := util.ParseDimension("abc"); n != 0 {
		t.Errorf("expected 0 for garbage got %d", n)
	}
}
