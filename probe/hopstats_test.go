package probe

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successAt(ttl uint8, rttMs int64) Result {
	return Result{
		TTL:       ttl,
		Responder: netip.MustParseAddr("10.0.0.1"),
		RTT:       time.Duration(rttMs) * time.Millisecond,
		Succeeded: true,
	}
}

func failureAt(ttl uint8) Result {
	return Result{TTL: ttl}
}

func TestAggregatorKnownSequence(t *testing.T) {
	agg := NewAggregator()
	for _, rtt := range []int64{10, 20, 30} {
		agg.Record(successAt(1, rtt))
	}

	hops := agg.Hops()
	require.Len(t, hops, 1)
	hop := hops[0]
	assert.Equal(t, uint64(3), hop.Sent)
	assert.Equal(t, uint64(3), hop.Received)
	assert.Equal(t, int64(10), hop.Best)
	assert.Equal(t, int64(30), hop.Worst)
	assert.Equal(t, int64(20), hop.Avg)
	assert.Equal(t, int64(30), hop.Last)
	assert.Equal(t, 0.0, hop.Loss)
	// Running-average jitter: first delta 10 (vs zero), then |20-10| and
	// |30-20| folded in, staying at 10.
	assert.Equal(t, int64(10), hop.Jitter)
}

func TestAggregatorLossBounds(t *testing.T) {
	sequences := [][]Result{
		{failureAt(1), failureAt(1), failureAt(1)},
		{successAt(1, 5), failureAt(1), successAt(1, 7)},
		{successAt(1, 5)},
		{failureAt(1), successAt(1, 12)},
	}

	for _, seq := range sequences {
		agg := NewAggregator()
		for _, res := range seq {
			agg.Record(res)
			hop := agg.Hops()[0]
			assert.LessOrEqual(t, hop.Received, hop.Sent)
			assert.GreaterOrEqual(t, hop.Loss, 0.0)
			assert.LessOrEqual(t, hop.Loss, 100.0)
		}
	}
}

func TestAggregatorLossPercentage(t *testing.T) {
	agg := NewAggregator()
	agg.Record(successAt(1, 10))
	agg.Record(failureAt(1))
	agg.Record(failureAt(1))
	agg.Record(successAt(1, 10))

	hop := agg.Hops()[0]
	assert.Equal(t, uint64(4), hop.Sent)
	assert.Equal(t, uint64(2), hop.Received)
	assert.Equal(t, 50.0, hop.Loss)
}

func TestAggregatorGrowsByTTL(t *testing.T) {
	agg := NewAggregator()
	agg.Record(successAt(5, 42))

	hops := agg.Hops()
	require.Len(t, hops, 5)
	// Intermediate hops exist as placeholders.
	for i := 0; i < 4; i++ {
		assert.Equal(t, uint64(0), hops[i].Sent)
		assert.Equal(t, hostPlaceholder, hops[i].Host)
		assert.Equal(t, int64(hopBestSentinel), hops[i].Best)
	}
	assert.Equal(t, uint64(1), hops[4].Sent)
	assert.Equal(t, "10.0.0.1", hops[4].Host)

	// A closer hop arriving later does not shrink the slice.
	agg.Record(successAt(2, 7))
	assert.Len(t, agg.Hops(), 5)
}

func TestAggregatorHistoryBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < hopHistorySize+25; i++ {
		agg.Record(successAt(1, int64(i)))
	}

	hop := agg.Hops()[0]
	require.Len(t, hop.History, hopHistorySize)
	// Oldest-first: after capacity+n pushes the buffer holds the last
	// capacity values.
	assert.Equal(t, int64(25), hop.History[0])
	assert.Equal(t, int64(hopHistorySize+24), hop.History[hopHistorySize-1])
}

func TestAggregatorFailedResultKeepsHost(t *testing.T) {
	agg := NewAggregator()
	agg.Record(successAt(1, 10))
	agg.Record(failureAt(1))

	hop := agg.Hops()[0]
	assert.Equal(t, "10.0.0.1", hop.Host)
	assert.Equal(t, int64(10), hop.Last)
}

func TestAggregatorReset(t *testing.T) {
	agg := NewAggregator()
	agg.Record(successAt(3, 10))
	require.Len(t, agg.Hops(), 3)

	agg.Reset()
	assert.Empty(t, agg.Hops())
}
