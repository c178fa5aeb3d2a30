package seedcache

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestAddSeedIsOrderedAndDeduplicated(t *testing.T) {
	c := New()

	c.AddSeed("a")
	c.AddSeed("b")
	c.AddSeed("a") // re-add moves to tail, doesn't duplicate

	assert.Equal(t, []Seed{"b", "a"}, c.GetSeeds())
}

func TestAddSeedPreservesExistingInfoOnReAdd(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(WithClock(fixedClock(start)))

	c.AddSeed("a")
	require.NoError(t, c.UpdateSeedStatus("a", StatusSuccessful, "done"))

	c.AddSeed("a") // re-add must not reset status/timestamps

	info, ok := c.GetSeedInfo("a")
	require.True(t, ok)
	assert.Equal(t, StatusSuccessful, info.Status)
	assert.Equal(t, "done", info.Note)
}

func TestGetNextSeedReturnsEarliestMatchingStatus(t *testing.T) {
	c := New()
	c.AddSeed("a")
	c.AddSeed("b")
	c.AddSeed("c")

	require.NoError(t, c.UpdateSeedStatus("a", StatusSuccessful, ""))

	next, ok := c.GetNextSeed(StatusUnknown)
	require.True(t, ok)
	assert.Equal(t, Seed("b"), next)
}

func TestGetNextSeedNoMatch(t *testing.T) {
	c := New()
	c.AddSeed("a")
	require.NoError(t, c.UpdateSeedStatus("a", StatusSuccessful, ""))

	_, ok := c.GetNextSeed(StatusUnknown)
	assert.False(t, ok)
}

func TestUpdateSeedStatusUnknownSeedErrors(t *testing.T) {
	c := New()
	err := c.UpdateSeedStatus("missing", StatusSuccessful, "")
	assert.ErrorIs(t, err, ErrUnknownSeed)
}

func TestUpdateSeedStatusBumpsLastModified(t *testing.T) {
	added := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := added.Add(time.Hour)

	calls := 0
	clock := func() time.Time {
		calls++
		if calls == 1 {
			return added
		}
		return later
	}

	c := New(WithClock(clock))
	c.AddSeed("a")
	require.NoError(t, c.UpdateSeedStatus("a", StatusFailed, "boom"))

	info, ok := c.GetSeedInfo("a")
	require.True(t, ok)
	assert.True(t, info.AddedTimestamp.Equal(added))
	assert.True(t, info.LastModifiedTimestamp.Equal(later))
	assert.Equal(t, "boom", info.Note)
}

func TestRemoveSeedIsNoopWhenAbsent(t *testing.T) {
	c := New()
	c.RemoveSeed("nope") // must not panic or publish
	assert.Empty(t, c.GetSeeds())
}

func TestRemoveSeedsByStatus(t *testing.T) {
	c := New()
	c.AddSeed("a")
	c.AddSeed("b")
	c.AddSeed("c")
	require.NoError(t, c.UpdateSeedStatus("a", StatusDeleted, ""))
	require.NoError(t, c.UpdateSeedStatus("c", StatusDeleted, ""))

	c.RemoveSeeds(StatusDeleted)

	assert.Equal(t, []Seed{"b"}, c.GetSeeds())
}

func TestAdvanceAndDelaySeed(t *testing.T) {
	c := New()
	c.AddSeed("a")
	c.AddSeed("b")
	c.AddSeed("c")

	c.AdvanceSeed("b")
	assert.Equal(t, []Seed{"b", "a", "c"}, c.GetSeeds())

	c.DelaySeed("b")
	assert.Equal(t, []Seed{"a", "b", "c"}, c.GetSeeds())

	// No-ops at the boundaries.
	c.AdvanceSeed("a")
	c.DelaySeed("c")
	assert.Equal(t, []Seed{"a", "b", "c"}, c.GetSeeds())
}

func TestGetStatusCountsExcludeUnknown(t *testing.T) {
	c := New()
	c.AddSeed("a")
	c.AddSeed("b")
	c.AddSeed("c")
	require.NoError(t, c.UpdateSeedStatus("a", StatusSuccessful, ""))
	require.NoError(t, c.UpdateSeedStatus("b", StatusFailed, ""))

	summary, counts := c.GetStatus()
	assert.Contains(t, summary, "1 successful")
	assert.Contains(t, summary, "1 failed")
	assert.Equal(t, 2, counts.Processed)
	assert.Equal(t, 3, counts.Total)
}

func TestSerializeRoundTrip(t *testing.T) {
	added := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(WithClock(fixedClock(added)))
	c.AddSeed("a")
	c.AddSeed("b")
	require.NoError(t, c.UpdateSeedStatus("a", StatusSuccessful, "note a"))

	data, err := json.Marshal(c)
	require.NoError(t, err)

	restored := New()
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, c.GetSeeds(), restored.GetSeeds())

	origInfo, _ := c.GetSeedInfo("a")
	restoredInfo, _ := restored.GetSeedInfo("a")
	assert.Equal(t, origInfo.Status, restoredInfo.Status)
	assert.Equal(t, origInfo.Note, restoredInfo.Note)
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	c := New()
	for i := 0; i < 100; i++ {
		c.AddSeed(Seed(string(rune('a' + i%26))))
	}

	var wg sync.WaitGroup
	for _, s := range c.GetSeeds() {
		wg.Add(1)
		go func(seed Seed) {
			defer wg.Done()
			_ = c.UpdateSeedStatus(seed, StatusSuccessful, "")
		}(s)
	}
	wg.Wait()

	_, counts := c.GetStatus()
	assert.Equal(t, counts.Total, counts.Processed)
}

func TestEventSinkPublishesOneEventPerMutation(t *testing.T) {
	sink := make(ChanSink, 16)
	c := New(WithSink(sink))

	c.AddSeed("a")
	c.AddSeed("b")
	require.NoError(t, c.UpdateSeedStatus("a", StatusSuccessful, ""))
	c.RemoveSeed("b")

	var got []Seed
	for len(sink) > 0 {
		got = append(got, (<-sink).Seed)
	}
	assert.Equal(t, []Seed{"a", "b", "a", "b"}, got)
}
