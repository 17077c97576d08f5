package dev

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lalilo-dev/lalilo/internal/clock"
)

const testReloadDelay = 300 * time.Millisecond

type notifications struct {
	batches [][]string
}

func (n *notifications) record(lines []string) {
	n.batches = append(n.batches, lines)
}

func TestAggregator_BurstCoalesces(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	var got notifications
	a := NewAggregator(clk, testReloadDelay, 0, got.record)

	for i := 0; i < 3; i++ {
		a.Record("Modified: a.js")
		clk.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, got.batches)

	clk.Advance(testReloadDelay)
	assert.Equal(t, [][]string{{"Modified: a.js (3)"}}, got.batches)
	assert.Zero(t, a.Pending())
}

func TestAggregator_SpacedEventsNotifySeparately(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	var got notifications
	a := NewAggregator(clk, testReloadDelay, 0, got.record)

	a.Record("Modified: a.js")
	clk.Advance(testReloadDelay + time.Millisecond)
	a.Record("Modified: a.js")
	clk.Advance(testReloadDelay + time.Millisecond)

	assert.Equal(t, [][]string{{"Modified: a.js"}, {"Modified: a.js"}}, got.batches)
}

func TestAggregator_KeepsFirstSeenOrder(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	var got notifications
	a := NewAggregator(clk, testReloadDelay, 0, got.record)

	a.Record("Modified: b.css")
	a.Record("Created: a.html")
	a.Record("Modified: b.css")
	a.Record("Deleted: c.js")
	clk.Advance(testReloadDelay)

	assert.Equal(t, [][]string{{"Modified: b.css (2)", "Created: a.html", "Deleted: c.js"}}, got.batches)
}

func TestAggregator_MaxWaitCapsQuietPeriod(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	var got notifications
	a := NewAggregator(clk, testReloadDelay, time.Second, got.record)

	// One change every 200ms never leaves a 300ms quiet period.
	for i := 0; i < 5; i++ {
		a.Record("Modified: a.js")
		clk.Advance(200 * time.Millisecond)
	}
	assert.Empty(t, got.batches)

	a.Record("Modified: a.js")
	assert.Equal(t, [][]string{{"Modified: a.js (6)"}}, got.batches)
	assert.Zero(t, a.Pending())
	assert.Zero(t, clk.Pending())
}

func TestAggregator_NoCapStarvesWhileBusy(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	var got notifications
	a := NewAggregator(clk, testReloadDelay, 0, got.record)

	for i := 0; i < 20; i++ {
		a.Record("Modified: a.js")
		clk.Advance(200 * time.Millisecond)
	}
	assert.Empty(t, got.batches)

	clk.Advance(testReloadDelay)
	assert.Equal(t, [][]string{{"Modified: a.js (20)"}}, got.batches)
}

func TestAggregator_Flush(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	var got notifications
	a := NewAggregator(clk, testReloadDelay, 0, got.record)

	assert.Nil(t, a.Flush())

	a.Record("Modified: x.html")
	a.Record("Modified: x.html")
	assert.Equal(t, []string{"Modified: x.html (2)"}, a.Flush())

	clk.Advance(time.Second)
	assert.Len(t, got.batches, 1)
}

func TestAggregator_StopDropsPending(t *testing.T) {
	clk := clock.Fake(time.Unix(1_700_000_000, 0))
	var got notifications
	a := NewAggregator(clk, testReloadDelay, 0, got.record)

	a.Record("Modified: x.html")
	a.Stop()
	clk.Advance(time.Second)

	assert.Empty(t, got.batches)
	assert.Zero(t, a.Pending())
}

func TestChangeLabel(t *testing.T) {
	assert.Equal(t, "Modified: src/js/a.js", ChangeLabel(Modified, "/p", "/p/src/js/a.js"))
	assert.Equal(t, "Deleted: src/index.html", ChangeLabel(Deleted, "/p", "/p/src/index.html"))
}
