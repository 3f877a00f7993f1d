package annotation

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/c360studio/protodb/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeline_SortedAndExtent(t *testing.T) {
	tl := NewTimeline("f",
		Segment{Start: 5, End: 6},
		Segment{Start: 1, End: 2},
		Segment{Start: 1, End: 9},
	)

	assert.Equal(t, []Segment{{1, 2}, {1, 9}, {5, 6}}, tl.Segments())
	assert.Equal(t, Segment{Start: 1, End: 9}, tl.Extent())
	assert.InDelta(t, 10.0, tl.Duration(), 1e-9)
	assert.Equal(t, Segment{}, NewTimeline("empty").Extent())
}

func TestAnnotation_LabelsAndTimeline(t *testing.T) {
	a := NewAnnotation("f")
	a.Add(Segment{Start: 3, End: 4}, "bob")
	a.Add(Segment{Start: 0, End: 1}, "alice")
	a.Add(Segment{Start: 2, End: 3}, "bob")

	assert.Equal(t, []string{"alice", "bob"}, a.Labels())
	assert.Equal(t, 3, a.Len())
	assert.Equal(t, "alice", a.Tracks()[0].Label)
	assert.Equal(t, Segment{Start: 0, End: 4}, a.Timeline().Extent())
}

func TestAnnotated(t *testing.T) {
	annotation := NewAnnotation("f")
	annotation.Add(Segment{Start: 2, End: 5}, "spk")

	t.Run("annotated field wins", func(t *testing.T) {
		want := NewTimeline("f", Segment{Start: 0, End: 10})
		r := record.New().Set(record.FieldURI, "f").Set(FieldAnnotated, want)

		got, err := Annotated(r, nil, nil)
		require.NoError(t, err)
		assert.Same(t, want, got)
	})

	t.Run("audio duration", func(t *testing.T) {
		r := record.New().Set(record.FieldURI, "f").Set(FieldAudio, "/x/f.wav")
		prober := DurationProberFunc(func(*record.Record) (float64, error) { return 12.5, nil })

		got, err := Annotated(r, prober, nil)
		require.NoError(t, err)
		assert.Equal(t, []Segment{{Start: 0, End: 12.5}}, got.Segments())
	})

	t.Run("audio probe failure", func(t *testing.T) {
		r := record.New().Set(FieldAudio, "/x/f.wav")
		boom := errors.New("boom")
		prober := DurationProberFunc(func(*record.Record) (float64, error) { return 0, boom })

		_, err := Annotated(r, prober, nil)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("annotation extent without prober", func(t *testing.T) {
		r := record.New().
			Set(record.FieldURI, "f").
			Set(FieldAudio, "/x/f.wav").
			Set(FieldAnnotation, annotation)

		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, nil))

		got, err := Annotated(r, nil, logger)
		require.NoError(t, err)
		assert.Equal(t, []Segment{{Start: 2, End: 5}}, got.Segments())
		assert.Contains(t, logs.String(), "approximated by annotation extent")
	})

	t.Run("no annotation to approximate from", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&logs, nil))

		_, err := Annotated(record.New().Set(record.FieldURI, "f"), nil, logger)
		assert.ErrorIs(t, err, record.ErrMissingField)
		assert.Empty(t, logs.String())

		r := record.New().Set(record.FieldURI, "f").Set(FieldAnnotation, "not an annotation")
		_, err = Annotated(r, nil, logger)
		assert.ErrorIs(t, err, ErrUnexpectedType)
		assert.Empty(t, logs.String())
	})

	t.Run("wrong type", func(t *testing.T) {
		r := record.New().Set(FieldAnnotated, "not a timeline")
		_, err := Annotated(r, nil, nil)
		assert.ErrorIs(t, err, ErrUnexpectedType)
	})
}
