package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpClassify, 10*time.Millisecond)
	c.RecordTiming(OpClassify, 30*time.Millisecond)

	snap := c.Snapshot()
	require.NotNil(t, snap.Classify)
	assert.Equal(t, int64(2), snap.Classify.Count)
	assert.Equal(t, int64(10), snap.Classify.MinTimeMs)
	assert.Equal(t, int64(30), snap.Classify.MaxTimeMs)
	assert.InDelta(t, 20.0, snap.Classify.AvgTimeMs, 0.001)
	assert.Nil(t, snap.Classify.TotalInputTokens)
	assert.Nil(t, snap.Extract, "unrecorded ops are nil")
}

func TestRecordLLMUsage(t *testing.T) {
	c := NewCollector()
	c.RecordLLMUsage(OpLLMGenerate, time.Millisecond, 100, 20)
	c.RecordLLMUsage(OpLLMGenerate, time.Millisecond, 50, 40)

	snap := c.Snapshot().LLMGenerate
	require.NotNil(t, snap)
	assert.Equal(t, int64(150), *snap.TotalInputTokens)
	assert.Equal(t, int64(60), *snap.TotalOutputTokens)
	assert.Equal(t, int64(50), *snap.MinInputTokens)
	assert.Equal(t, int64(40), *snap.MaxOutputTokens)
}

func TestSinceOnNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() { c.Since(OpRetrieval, time.Now()) })
}

func TestOperations(t *testing.T) {
	c := NewCollector()
	c.Since(OpTicketCreate, time.Now())
	c.Since(OpRetrieval, time.Now())

	ops := c.Operations()
	assert.Len(t, ops, 2)
	assert.Equal(t, int64(1), ops[OpTicketCreate].Count)
}
