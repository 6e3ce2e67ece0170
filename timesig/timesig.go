// Package timesig implements TimesigMap, the bar-indexed time signature
// table used both for the master track's 0xFF 0x58 meta events and to
// derive bar-relative tick offsets on read.
package timesig

import "sort"

// TicksPerQuarter mirrors tempo.TicksPerQuarter; duplicated here so that
// this package does not import the tempo package, which it does not
// otherwise need.
const TicksPerQuarter = 480

// Change is one time-signature change: the bar it starts at, its
// numerator/denominator, and its derived absolute tick.
type Change struct {
	BarIndex   int
	Numerator  int
	Denominator int
	Tick       int64
}

// ticksPerBar returns how many ticks one bar spans under (num,den).
func ticksPerBar(num, den int) int64 {
	return int64(num) * (4 * TicksPerQuarter) / int64(den)
}

// Map is a sorted list of time-signature changes, keyed by strictly
// ascending bar index; each entry's Tick is derived from the preceding
// entries' bar length rather than stored independently.
type Map struct {
	changes []Change
}

// Set inserts or overwrites the time signature starting at barIndex, then
// resorts and recomputes every derived tick.
func (m *Map) Set(barIndex, numerator, denominator int) {
	for i := range m.changes {
		if m.changes[i].BarIndex == barIndex {
			m.changes[i].Numerator = numerator
			m.changes[i].Denominator = denominator
			m.update()
			return
		}
	}
	m.changes = append(m.changes, Change{BarIndex: barIndex, Numerator: numerator, Denominator: denominator})
	m.update()
}

func (m *Map) update() {
	sort.SliceStable(m.changes, func(i, j int) bool { return m.changes[i].BarIndex < m.changes[j].BarIndex })
	var tick int64
	var prevBar, prevNum, prevDen int
	for i := range m.changes {
		c := &m.changes[i]
		if i == 0 {
			tick = 0
		} else {
			tick += int64(c.BarIndex-prevBar) * ticksPerBar(prevNum, prevDen)
		}
		c.Tick = tick
		prevBar, prevNum, prevDen = c.BarIndex, c.Numerator, c.Denominator
	}
}

// Len returns the number of time-signature changes.
func (m *Map) Len() int { return len(m.changes) }

// At returns the i-th change in ascending bar order.
func (m *Map) At(i int) Change { return m.changes[i] }

// AtTick returns the time signature in effect at tick.
func (m *Map) AtTick(tick int64) Change {
	if len(m.changes) == 0 {
		return Change{Numerator: 4, Denominator: 4}
	}
	idx := 0
	for i := len(m.changes) - 1; i >= 0; i-- {
		idx = i
		if m.changes[i].Tick <= tick {
			break
		}
	}
	return m.changes[idx]
}

// Clone returns a deep copy.
func (m *Map) Clone() *Map {
	return &Map{changes: append([]Change(nil), m.changes...)}
}
