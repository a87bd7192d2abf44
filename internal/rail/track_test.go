package rail

import (
	"math"
	"testing"

	"github.com/dista-flow/railsim/internal/units"
)

// testSegments mirrors the demo line: 80 km/h to 6900 m, 40 km/h to
// 12600 m, 60 km/h to the end at 18300 m.
func testSegments() []Segment {
	return []Segment{
		{From: "A", To: "B", LengthM: 6900, SpeedMps: units.KmhToMps(80), Tracks: 2, Signalling: "ETCS L1"},
		{From: "B", To: "C", LengthM: 5700, SpeedMps: units.KmhToMps(40), Tracks: 2, Signalling: "ETCS L1"},
		{From: "C", To: "D", LengthM: 5700, SpeedMps: units.KmhToMps(60), Tracks: 1, Signalling: "legacy"},
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error for empty segment list")
	}
	if _, err := New([]Segment{{LengthM: 0, SpeedMps: 10}}); err == nil {
		t.Fatal("expected error for zero-length segment")
	}
	if _, err := New([]Segment{{LengthM: 100, SpeedMps: -1}}); err == nil {
		t.Fatal("expected error for negative speed limit")
	}
}

func TestSpeedLimitBoundaries(t *testing.T) {
	track, err := New(testSegments())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := track.TotalLength(); got != 18300 {
		t.Fatalf("TotalLength = %v, want 18300", got)
	}

	cases := []struct {
		posM    float64
		wantKmh float64
	}{
		{0, 80},
		{1000, 80},
		{6899, 80},
		{6900, 40}, // boundary belongs to the lower-limit segment
		{7000, 40},
		{12599, 40},
		{12600, 60},
		{18299, 60},
		{18300, 60}, // at destination, still bounded by last limit
		{20000, 60}, // past the end of the line
		{-5, 80},
	}
	for _, c := range cases {
		got := track.SpeedLimit(c.posM)
		want := units.KmhToMps(c.wantKmh)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("SpeedLimit(%v) = %v km/h, want %v km/h", c.posM, units.MpsToKmh(got), c.wantKmh)
		}
	}
}

func TestNextSpeedChange(t *testing.T) {
	track, err := New(testSegments())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// From the 80 km/h segment the next drop is at 6900 m.
	dist, next := track.NextSpeedChange(5000)
	if math.Abs(dist-1900) > 1e-9 {
		t.Errorf("distance = %v, want 1900", dist)
	}
	if math.Abs(next-units.KmhToMps(40)) > 1e-9 {
		t.Errorf("next limit = %v km/h, want 40", units.MpsToKmh(next))
	}

	// From the 40 km/h segment there is no lower limit ahead: the 60 km/h
	// segment is faster, so the sentinel applies.
	dist, next = track.NextSpeedChange(8000)
	if !math.IsInf(dist, 1) {
		t.Errorf("distance = %v, want +Inf", dist)
	}
	if math.Abs(next-units.KmhToMps(40)) > 1e-9 {
		t.Errorf("next limit = %v km/h, want current 40", units.MpsToKmh(next))
	}

	// From the last segment the sentinel always applies.
	dist, next = track.NextSpeedChange(15000)
	if !math.IsInf(dist, 1) {
		t.Errorf("distance = %v, want +Inf", dist)
	}
	if math.Abs(next-units.KmhToMps(60)) > 1e-9 {
		t.Errorf("next limit = %v km/h, want current 60", units.MpsToKmh(next))
	}
}

func TestSegmentsCopy(t *testing.T) {
	track, err := New(testSegments())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	segs := track.Segments()
	segs[0].SpeedMps = 1
	if track.SpeedLimit(0) == 1 {
		t.Fatal("Segments() must return a copy, not the internal slice")
	}
}
