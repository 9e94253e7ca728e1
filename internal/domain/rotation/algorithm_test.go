package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tracked is a minimal Tracked implementation for tests.
type tracked struct {
	id       int64
	useCount int
	lastUsed *time.Time
}

func (t tracked) TrackID() int64       { return t.id }
func (t tracked) UseCount() int        { return t.useCount }
func (t tracked) LastUsed() *time.Time { return t.lastUsed }

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestLeastUsed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		pool   []tracked
		wantID int64
	}{
		{
			name: "lowest use count wins",
			pool: []tracked{
				{id: 1, useCount: 3, lastUsed: ts("2026-01-01T10:00:00Z")},
				{id: 2, useCount: 1, lastUsed: ts("2026-01-02T10:00:00Z")},
				{id: 3, useCount: 2, lastUsed: ts("2026-01-03T10:00:00Z")},
			},
			wantID: 2,
		},
		{
			name: "tie broken by oldest last used",
			pool: []tracked{
				{id: 1, useCount: 2, lastUsed: ts("2026-01-05T10:00:00Z")},
				{id: 2, useCount: 2, lastUsed: ts("2026-01-01T10:00:00Z")},
			},
			wantID: 2,
		},
		{
			name: "never used sorts before used on equal count",
			pool: []tracked{
				{id: 1, useCount: 0, lastUsed: ts("2026-01-01T10:00:00Z")},
				{id: 2, useCount: 0, lastUsed: nil},
			},
			wantID: 2,
		},
		{
			name: "full tie broken by lowest ID",
			pool: []tracked{
				{id: 9, useCount: 0},
				{id: 4, useCount: 0},
				{id: 7, useCount: 0},
			},
			wantID: 4,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := LeastUsed(tc.pool)
			require.True(t, ok)
			assert.Equal(t, tc.wantID, got.TrackID())
		})
	}
}

func TestLeastUsedEmptyPool(t *testing.T) {
	t.Parallel()

	_, ok := LeastUsed([]tracked{})
	assert.False(t, ok)
}

func TestLeastUsedIsDeterministic(t *testing.T) {
	t.Parallel()

	pool := []tracked{
		{id: 3, useCount: 1, lastUsed: ts("2026-01-01T10:00:00Z")},
		{id: 1, useCount: 1, lastUsed: ts("2026-01-01T10:00:00Z")},
		{id: 2, useCount: 0, lastUsed: nil},
	}

	first, ok := LeastUsed(pool)
	require.True(t, ok)
	for i := 0; i < 20; i++ {
		got, ok := LeastUsed(pool)
		require.True(t, ok)
		assert.Equal(t, first.TrackID(), got.TrackID())
	}
}

func TestLeastUsedDoesNotMutatePool(t *testing.T) {
	t.Parallel()

	pool := []tracked{
		{id: 3, useCount: 5},
		{id: 1, useCount: 0},
		{id: 2, useCount: 2},
	}

	_, ok := LeastUsed(pool)
	require.True(t, ok)

	assert.Equal(t, int64(3), pool[0].id)
	assert.Equal(t, int64(1), pool[1].id)
	assert.Equal(t, int64(2), pool[2].id)
}

func TestExhausted(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pool      []tracked
		threshold int
		want      bool
	}{
		{
			name:      "empty pool is never exhausted",
			pool:      nil,
			threshold: 10,
			want:      false,
		},
		{
			name: "all strictly above threshold",
			pool: []tracked{
				{id: 1, useCount: 11, lastUsed: ts("2026-01-01T10:00:00Z")},
				{id: 2, useCount: 12, lastUsed: ts("2026-01-01T10:00:00Z")},
			},
			threshold: 10,
			want:      true,
		},
		{
			name: "one item at threshold keeps the pool alive",
			pool: []tracked{
				{id: 1, useCount: 11, lastUsed: ts("2026-01-01T10:00:00Z")},
				{id: 2, useCount: 10, lastUsed: ts("2026-01-01T10:00:00Z")},
			},
			threshold: 10,
			want:      false,
		},
		{
			name: "fresh item keeps the pool alive",
			pool: []tracked{
				{id: 1, useCount: 50, lastUsed: ts("2026-01-01T10:00:00Z")},
				{id: 2, useCount: 0},
			},
			threshold: 10,
			want:      false,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Exhausted(tc.pool, tc.threshold))
		})
	}
}

func TestLessOrderingAgreesWithLeastUsed(t *testing.T) {
	t.Parallel()

	a := tracked{id: 1, useCount: 2, lastUsed: ts("2026-01-01T10:00:00Z")}
	b := tracked{id: 2, useCount: 2, lastUsed: ts("2026-01-02T10:00:00Z")}

	assert.True(t, Less(a, b))
	assert.False(t, Less(b, a))

	got, ok := LeastUsed([]tracked{b, a})
	require.True(t, ok)
	assert.Equal(t, a.id, got.TrackID())
}
