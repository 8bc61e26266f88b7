package storage

import (
	"math"
	"testing"
	"time"

	"github.com/poiesic/docqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"large ID", core.ID(math.MaxUint64)},
		{"sequence ID", core.ID(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := UnmarshalID(MarshalID(tt.id))
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestDocumentRoundTrip(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	doc := &core.Document{
		ID:           12,
		CollectionID: 3,
		Title:        "Annual Report",
		Filename:     "report.pdf",
		FilePath:     "/data/report.pdf",
		Status:       core.DocumentStatusFailed,
		CreatedAt:    now,
		UpdatedAt:    now.Add(time.Minute),
	}

	decoded, err := UnmarshalDocument(MarshalDocument(doc))
	require.NoError(t, err)
	assert.Equal(t, doc, decoded)
}

func TestVectorRoundTripIsExact(t *testing.T) {
	v := []float32{0, -0.5, 1.0 / 3.0, math.MaxFloat32, math.SmallestNonzeroFloat32}
	decoded, err := UnmarshalVector(MarshalVector(v))
	require.NoError(t, err)
	require.Len(t, decoded, len(v))
	for i := range v {
		assert.Equal(t, math.Float32bits(v[i]), math.Float32bits(decoded[i]))
	}
}

func TestReader_Truncated(t *testing.T) {
	now := time.Now().UTC()
	data := MarshalQueryRecord(&core.QueryRecord{
		ID:           1,
		CollectionID: 2,
		Question:     "What is the refund policy?",
		Answer:       "Thirty days.",
		SourcesCount: 3,
		Timestamp:    now,
	})

	for _, cut := range []int{1, len(data) / 2, len(data) - 1} {
		_, err := UnmarshalQueryRecord(data[:cut])
		assert.ErrorIs(t, err, ErrSerializationFailed, "cut at %d", cut)
	}
}

func TestReader_LengthBeyondInput(t *testing.T) {
	var w Writer
	w.Len(1000)
	r := NewReader(w.Bytes())
	assert.Nil(t, r.Float32s())
	assert.ErrorIs(t, r.Err(), ErrTruncatedData)
}

func TestWriter_StringMapIsCanonical(t *testing.T) {
	m := map[string]string{"z": "1", "a": "2", "m": "3"}
	var w1, w2 Writer
	w1.StringMap(m)
	w2.StringMap(map[string]string{"m": "3", "z": "1", "a": "2"})
	assert.Equal(t, w1.Bytes(), w2.Bytes())

	r := NewReader(w1.Bytes())
	assert.Equal(t, m, r.StringMap())
	require.NoError(t, r.Err())
}
