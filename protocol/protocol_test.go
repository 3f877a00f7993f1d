package protocol

import (
	"errors"
	"iter"
	"testing"

	"github.com/c360studio/protodb/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uris(names ...string) SubsetFunc {
	return func() iter.Seq2[*record.Record, error] {
		return func(yield func(*record.Record, error) bool) {
			for _, n := range names {
				if !yield(record.New().Set(record.FieldURI, n), nil) {
					return
				}
			}
		}
	}
}

func TestLookupCapability(t *testing.T) {
	tests := []struct {
		task string
		name string
		ok   bool
	}{
		{"SpeakerDiarization", "SpeakerDiarizationProtocol", true},
		{"Collection", "CollectionProtocol", true},
		{"Protocol", "Protocol", true},
		{"SpeakerVerification", "SpeakerVerificationProtocol", true},
		{"Translation", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.task, func(t *testing.T) {
			c, ok := LookupCapability(tt.task)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.name, c.Name)
				assert.Equal(t, tt.task, c.Task)
			}
		})
	}
}

func TestParseSubset(t *testing.T) {
	for _, name := range []string{"files", "train", "development", "test"} {
		s, ok := ParseSubset(name)
		assert.True(t, ok, name)
		assert.Equal(t, name+"_iter", s.MethodName())
	}
	_, ok := ParseSubset("validation")
	assert.False(t, ok)

	s, ok := ParseMethodName("train_iter")
	assert.True(t, ok)
	assert.Equal(t, SubsetTrain, s)
}

func TestProtocol_Dispatch(t *testing.T) {
	c, _ := LookupCapability(TaskSpeakerDiarization)
	p := New("DB", TaskSpeakerDiarization, "Proto", c)
	p.Bind(SubsetTrain, uris("a", "b"))
	p.Bind(SubsetTest, uris("c"))

	assert.Equal(t, "DB.SpeakerDiarization.Proto", p.FullName())
	assert.Equal(t, []Subset{SubsetTrain, SubsetTest}, p.Subsets())
	assert.True(t, p.Has(SubsetTrain))
	assert.False(t, p.Has(SubsetDevelopment))

	recs, err := Collect(p.Train())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].URI())

	_, err = Collect(p.Development())
	assert.ErrorIs(t, err, ErrSubsetNotDeclared)

	p.Bind(SubsetTrain, uris("z"))
	recs, err = Collect(p.Train())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []Subset{SubsetTrain, SubsetTest}, p.Subsets())
}

func TestCollect_StopsAtError(t *testing.T) {
	boom := errors.New("boom")
	seq := func(yield func(*record.Record, error) bool) {
		if !yield(record.New(), nil) {
			return
		}
		if !yield(nil, boom) {
			return
		}
		yield(record.New(), nil)
	}

	recs, err := Collect(seq)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, recs, 1)
}

func TestDatabase(t *testing.T) {
	db := NewDatabase("DB")
	c, _ := LookupCapability(TaskSpeakerDiarization)
	p1 := New("DB", TaskSpeakerDiarization, "P1", c)
	p2 := New("DB", TaskSpeakerDiarization, "P2", c)

	db.RegisterProtocol(TaskSpeakerDiarization, "P1", p1)
	db.RegisterProtocol(TaskSpeakerDiarization, "P2", p2)
	db.RegisterProtocol(TaskSpeakerDiarization, "P1", p1)

	assert.Equal(t, []string{TaskSpeakerDiarization}, db.Tasks())
	assert.Equal(t, []string{"P1", "P2"}, db.Protocols(TaskSpeakerDiarization))

	got, err := db.Protocol(TaskSpeakerDiarization, "P2")
	require.NoError(t, err)
	assert.Same(t, p2, got)

	_, err = db.Protocol("Collection", "P2")
	assert.ErrorIs(t, err, ErrProtocolNotFound)
}
