package table

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBurstCoalescesIntoOneFetch(t *testing.T) {
	var fetches atomic.Int32
	r := NewRefetcher(30*time.Millisecond, func() { fetches.Add(1) })
	defer r.Stop()

	for i := 0; i < 20; i++ {
		r.Schedule()
	}
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(1), fetches.Load())
}

func TestSeparateWindowsFetchSeparately(t *testing.T) {
	var fetches atomic.Int32
	r := NewRefetcher(10*time.Millisecond, func() { fetches.Add(1) })
	defer r.Stop()

	r.Schedule()
	time.Sleep(40 * time.Millisecond)
	r.Schedule()
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, int32(2), fetches.Load())
}

func TestStopSuppressesPendingFetch(t *testing.T) {
	var fetches atomic.Int32
	r := NewRefetcher(20*time.Millisecond, func() { fetches.Add(1) })

	r.Schedule()
	r.Stop()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), fetches.Load())

	// scheduling after stop stays inert
	r.Schedule()
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), fetches.Load())
}
