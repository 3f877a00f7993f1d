package annotation

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/c360studio/protodb/record"
)

// Field names read by Annotated.
const (
	FieldAnnotated  = "annotated"
	FieldAnnotation = "annotation"
	FieldAudio      = "audio"
)

// ErrUnexpectedType is returned when a field holds a value of the wrong type.
var ErrUnexpectedType = errors.New("unexpected field type")

// DurationProber returns the duration in seconds of a record's audio.
type DurationProber interface {
	Duration(r *record.Record) (float64, error)
}

// DurationProberFunc adapts a function to DurationProber.
type DurationProberFunc func(r *record.Record) (float64, error)

// Duration implements DurationProber.
func (f DurationProberFunc) Duration(r *record.Record) (float64, error) {
	return f(r)
}

// Annotated returns the part of the record that was annotated.
//
// The "annotated" field wins when present. Otherwise the whole audio
// duration is used when the record has "audio" and a prober is given.
// As a last resort the extent of "annotation" is used. Both approximations
// are logged as warnings.
func Annotated(r *record.Record, prober DurationProber, logger *slog.Logger) (*Timeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if r.Has(FieldAnnotated) {
		v, err := r.Get(FieldAnnotated)
		if err != nil {
			return nil, err
		}
		t, ok := v.(*Timeline)
		if !ok {
			return nil, fmt.Errorf("%w: %q is %T", ErrUnexpectedType, FieldAnnotated, v)
		}
		return t, nil
	}

	if r.Has(FieldAudio) && prober != nil {
		duration, err := prober.Duration(r)
		if err != nil {
			return nil, fmt.Errorf("probe audio duration: %w", err)
		}
		logger.Warn("annotated was approximated by audio duration", "uri", r.URI())
		return NewTimeline(r.URI(), Segment{Start: 0, End: duration}), nil
	}

	v, err := r.Get(FieldAnnotation)
	if err != nil {
		return nil, err
	}
	a, ok := v.(*Annotation)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T", ErrUnexpectedType, FieldAnnotation, v)
	}
	logger.Warn("annotated was approximated by annotation extent", "uri", r.URI())
	return NewTimeline(r.URI(), a.Timeline().Extent()), nil
}
