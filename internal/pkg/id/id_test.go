package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAt_Unique(t *testing.T) {
	now := time.Now()
	a, b := NewAt(now), NewAt(now)
	assert.Len(t, a, ulid.EncodedSize)
	assert.NotEqual(t, a, b)
}

func TestNewAt_EncodesTimestamp(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	parsed, err := ulid.Parse(NewAt(at))
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(at), parsed.Time())
}

func TestNewAt_SortsByTime(t *testing.T) {
	earlier := NewAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	later := NewAt(time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC))
	assert.Less(t, earlier, later)
}
