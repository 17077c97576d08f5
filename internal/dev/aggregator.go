package dev

import (
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/lalilo-dev/lalilo/internal/clock"
)

// NotifyFunc receives one coalesced batch of change lines.
type NotifyFunc func(lines []string)

// Aggregator coalesces generic file changes into reload notifications.
//
// Every Record resets one shared timer. When the timer fires, the change
// log is swapped for an empty one and a single notification carries the
// labels in first-seen order, suffixed with " (N)" when seen N > 1 times.
//
// With maxWait > 0, a Record arriving once the oldest pending label has
// waited maxWait flushes immediately, so a steady stream of changes
// cannot postpone the reload forever.
type Aggregator struct {
	clock   clock.Clock
	delay   time.Duration
	maxWait time.Duration
	notify  NotifyFunc

	mu     sync.Mutex
	order  []string
	counts map[string]int
	first  time.Time
	timer  clock.Timer
	gen    uint64
}

// NewAggregator creates an Aggregator.
func NewAggregator(clk clock.Clock, delay, maxWait time.Duration, notify NotifyFunc) *Aggregator {
	if clk == nil {
		clk = clock.Real()
	}
	return &Aggregator{
		clock:   clk,
		delay:   delay,
		maxWait: maxWait,
		notify:  notify,
		counts:  make(map[string]int),
	}
}

// ChangeLabel returns the label of a change, e.g. "Modified: src/a.js".
func ChangeLabel(kind ChangeKind, root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return kind.String() + ": " + filepath.ToSlash(rel)
}

// Record counts one occurrence of label and restarts the quiet period.
func (a *Aggregator) Record(label string) {
	now := a.clock.Now()
	a.mu.Lock()

	if len(a.order) == 0 {
		a.first = now
	}
	if _, ok := a.counts[label]; !ok {
		a.order = append(a.order, label)
	}
	a.counts[label]++

	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++

	if a.delay <= 0 || (a.maxWait > 0 && now.Sub(a.first) >= a.maxWait) {
		lines := a.swapLocked()
		a.mu.Unlock()
		a.emit(lines)
		return
	}

	gen := a.gen
	a.timer = a.clock.AfterFunc(a.delay, func() { a.fire(gen) })
	a.mu.Unlock()
}

// Flush emits the pending changes now. It returns the emitted lines.
func (a *Aggregator) Flush() []string {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	lines := a.swapLocked()
	a.mu.Unlock()

	a.emit(lines)
	return lines
}

// Pending returns the number of distinct labels waiting to be flushed.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.order)
}

// Stop drops pending changes without notifying.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	a.swapLocked()
}

func (a *Aggregator) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	lines := a.swapLocked()
	a.mu.Unlock()

	a.emit(lines)
}

func (a *Aggregator) swapLocked() []string {
	if len(a.order) == 0 {
		return nil
	}
	lines := make([]string, 0, len(a.order))
	for _, label := range a.order {
		if n := a.counts[label]; n > 1 {
			label += " (" + strconv.Itoa(n) + ")"
		}
		lines = append(lines, label)
	}
	a.order = nil
	a.counts = make(map[string]int)
	return lines
}

func (a *Aggregator) emit(lines []string) {
	if len(lines) == 0 || a.notify == nil {
		return
	}
	a.notify(lines)
}
