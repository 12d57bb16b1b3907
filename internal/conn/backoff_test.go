package conn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextBackoffGrowsTowardCap(t *testing.T) {
	min := time.Second
	max := 30 * time.Second

	for attempt := 0; attempt < 12; attempt++ {
		delay := nextBackoff(attempt, min, max)
		require.GreaterOrEqual(t, delay, min)
		// base is capped at max, jitter adds at most 20%
		require.LessOrEqual(t, delay, max+max/5)
	}

	first := nextBackoff(0, min, max)
	require.Less(t, first, 2*min)
}

func TestNextBackoffDefaults(t *testing.T) {
	delay := nextBackoff(0, 0, 0)
	require.GreaterOrEqual(t, delay, time.Second)
}

func TestErrorRingBoundsAndOrder(t *testing.T) {
	ring := newErrorRing(3)
	require.Equal(t, 0, ring.len())

	ring.add(errFor("a"))
	ring.add(errFor("b"))
	require.Equal(t, 2, ring.len())

	ring.add(errFor("c"))
	ring.add(errFor("d"))
	require.Equal(t, 3, ring.len())

	snapshot := ring.snapshot()
	require.Len(t, snapshot, 3)
	require.Equal(t, "d", snapshot[0].Message)
	require.Equal(t, "c", snapshot[1].Message)
	require.Equal(t, "b", snapshot[2].Message)
}

type labelErr string

func (e labelErr) Error() string { return string(e) }

func errFor(label string) error { return labelErr(label) }
