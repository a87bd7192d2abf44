// Package rail models a single linear line as an ordered sequence of
// speed-limited segments and answers position lookups against it.
package rail

import (
	"fmt"
	"math"
	"sort"
)

// Segment is one fixed-speed-limit stretch of line between two named
// points. The from/to labels are informational only; geometry is derived
// from segment order and length.
type Segment struct {
	From       string
	To         string
	LengthM    float64
	SpeedMps   float64
	Tracks     int
	Signalling string
}

// Track is an immutable ordered sequence of segments together with the
// cumulative start offset of each segment. Any position in
// [0, TotalLength()] maps to exactly one segment: segment i covers the
// half-open interval [cum[i], cum[i+1]), with the last segment closed at
// the line end.
type Track struct {
	segments []Segment
	cum      []float64
	totalM   float64
}

// New validates the segment list and builds a Track. Segments must have
// positive length and a positive speed limit.
func New(segments []Segment) (*Track, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("track requires at least one segment")
	}
	segs := make([]Segment, len(segments))
	copy(segs, segments)

	cum := make([]float64, len(segs)+1)
	for i, s := range segs {
		if s.LengthM <= 0 {
			return nil, fmt.Errorf("segment %d (%s-%s): length must be positive, got %v", i, s.From, s.To, s.LengthM)
		}
		if s.SpeedMps <= 0 {
			return nil, fmt.Errorf("segment %d (%s-%s): speed limit must be positive, got %v", i, s.From, s.To, s.SpeedMps)
		}
		cum[i+1] = cum[i] + s.LengthM
	}

	return &Track{segments: segs, cum: cum, totalM: cum[len(segs)]}, nil
}

// TotalLength returns the length of the whole line in metres.
func (t *Track) TotalLength() float64 {
	return t.totalM
}

// Segments returns a copy of the segment list.
func (t *Track) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// segmentIndex returns the index of the segment containing posM.
// Positions past the end of the line map to the final segment; negative
// positions map to the first.
func (t *Track) segmentIndex(posM float64) int {
	if posM < 0 {
		return 0
	}
	if posM >= t.totalM {
		return len(t.segments) - 1
	}
	// sort.SearchFloat64s on the cumulative offsets: find the first
	// boundary strictly greater than posM, the containing segment is the
	// one before it.
	i := sort.SearchFloat64s(t.cum, posM)
	if i < len(t.cum) && t.cum[i] == posM {
		return i
	}
	return i - 1
}

// SpeedLimit returns the speed limit (m/s) of the segment containing
// posM. A train at or past the end of the line is still bounded by the
// final segment's limit.
func (t *Track) SpeedLimit(posM float64) float64 {
	return t.segments[t.segmentIndex(posM)].SpeedMps
}

// NextSpeedChange scans forward from the segment containing posM for the
// next segment whose limit is lower than the current one. It returns the
// distance from posM to the start of that segment and its limit. When no
// lower limit lies ahead it returns (+Inf, current limit), which keeps
// anticipatory braking logic from ever triggering.
func (t *Track) NextSpeedChange(posM float64) (distM, nextLimitMps float64) {
	i := t.segmentIndex(posM)
	current := t.segments[i].SpeedMps
	for j := i + 1; j < len(t.segments); j++ {
		if t.segments[j].SpeedMps < current {
			return t.cum[j] - posM, t.segments[j].SpeedMps
		}
	}
	return math.Inf(1), current
}
