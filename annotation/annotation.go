// Package annotation provides the time-based value types produced by the
// built-in loaders: segments, timelines and labeled annotations.
package annotation

import (
	"fmt"
	"sort"
)

// Segment is a [Start, End) time interval in seconds.
type Segment struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Duration returns End - Start.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Empty reports whether the segment has no positive duration.
func (s Segment) Empty() bool {
	return s.End <= s.Start
}

func (s Segment) String() string {
	return fmt.Sprintf("[%.3f --> %.3f]", s.Start, s.End)
}

// Timeline is an ordered set of segments belonging to one uri.
type Timeline struct {
	URI      string
	segments []Segment
}

// NewTimeline builds a timeline from segments.
func NewTimeline(uri string, segments ...Segment) *Timeline {
	t := &Timeline{URI: uri}
	for _, s := range segments {
		t.Add(s)
	}
	return t
}

// Add inserts a segment, keeping segments sorted by start then end.
func (t *Timeline) Add(s Segment) {
	i := sort.Search(len(t.segments), func(i int) bool {
		o := t.segments[i]
		return o.Start > s.Start || (o.Start == s.Start && o.End > s.End)
	})
	t.segments = append(t.segments, Segment{})
	copy(t.segments[i+1:], t.segments[i:])
	t.segments[i] = s
}

// Segments returns a copy of the sorted segments.
func (t *Timeline) Segments() []Segment {
	out := make([]Segment, len(t.segments))
	copy(out, t.segments)
	return out
}

// Len returns the number of segments.
func (t *Timeline) Len() int {
	return len(t.segments)
}

// Extent returns the smallest segment covering every segment of the
// timeline. It is the zero Segment for an empty timeline.
func (t *Timeline) Extent() Segment {
	if len(t.segments) == 0 {
		return Segment{}
	}
	extent := t.segments[0]
	for _, s := range t.segments[1:] {
		if s.End > extent.End {
			extent.End = s.End
		}
	}
	return extent
}

// Duration returns the sum of segment durations.
func (t *Timeline) Duration() float64 {
	var total float64
	for _, s := range t.segments {
		total += s.Duration()
	}
	return total
}

// Track is one labeled segment of an annotation.
type Track struct {
	Segment Segment
	Label   string
}

// Annotation is a set of labeled segments belonging to one uri.
type Annotation struct {
	URI    string
	tracks []Track
}

// NewAnnotation creates an empty annotation.
func NewAnnotation(uri string) *Annotation {
	return &Annotation{URI: uri}
}

// Add appends a labeled segment.
func (a *Annotation) Add(s Segment, label string) {
	a.tracks = append(a.tracks, Track{Segment: s, Label: label})
}

// Tracks returns the tracks sorted by segment.
func (a *Annotation) Tracks() []Track {
	out := make([]Track, len(a.tracks))
	copy(out, a.tracks)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Segment.Start != out[j].Segment.Start {
			return out[i].Segment.Start < out[j].Segment.Start
		}
		return out[i].Segment.End < out[j].Segment.End
	})
	return out
}

// Labels returns the distinct labels in sorted order.
func (a *Annotation) Labels() []string {
	seen := make(map[string]bool)
	var labels []string
	for _, tr := range a.tracks {
		if !seen[tr.Label] {
			seen[tr.Label] = true
			labels = append(labels, tr.Label)
		}
	}
	sort.Strings(labels)
	return labels
}

// Timeline returns the segments of the annotation, labels dropped.
func (a *Annotation) Timeline() *Timeline {
	t := NewTimeline(a.URI)
	for _, tr := range a.tracks {
		t.Add(tr.Segment)
	}
	return t
}

// Len returns the number of tracks.
func (a *Annotation) Len() int {
	return len(a.tracks)
}
