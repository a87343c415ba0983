package trace

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAssignsIncreasingIndices(t *testing.T) {
	c := NewCollector()

	for i := 0; i < 5; i++ {
		c.Record(Entry{Action: "tool_call", Tool: "classify_document"})
	}

	steps := c.Snapshot()
	require.Len(t, steps, 5)
	for i, s := range steps {
		assert.Equal(t, i+1, s.Index)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := NewCollector()
	c.Record(Entry{Action: "agent_session", Duration: 10 * time.Millisecond})

	snap := c.Snapshot()
	require.Len(t, snap, 1)

	c.Record(Entry{Action: "tool_call", Tool: "extract_invoice"})
	assert.Len(t, snap, 1, "earlier snapshot must not see later appends")
	assert.Equal(t, 2, c.Len())

	// Mutating the snapshot must not leak back into the collector.
	snap[0].Action = "mutated"
	assert.Equal(t, "agent_session", c.Snapshot()[0].Action)
}

func TestConcurrentWritersNeverCollide(t *testing.T) {
	c := NewCollector()

	const writers = 8
	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				c.Record(Entry{Action: "tool_call", Tool: "lookup_contact"})
			}
		}()
	}
	wg.Wait()

	steps := c.Snapshot()
	require.Len(t, steps, writers*perWriter)
	seen := make(map[int]bool, len(steps))
	for i, s := range steps {
		assert.Equal(t, i+1, s.Index, "indices must be gapless and ordered")
		assert.False(t, seen[s.Index], "index %d assigned twice", s.Index)
		seen[s.Index] = true
	}
}
