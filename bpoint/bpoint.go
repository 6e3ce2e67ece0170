// Package bpoint implements BreakpointList, the step-function control
// curve that backs every named parameter on a Track (dynamics, pitch bend,
// breathiness, and so on), plus VibratoCurve, the normalised-x variant
// embedded inside a vibrato Handle.
package bpoint

import (
	"fmt"
	"sort"

	"github.com/OpenSynth/libvsq/vsqerr"
)

// List is a step-function curve keyed by ascending tick. Reading at a tick
// that has no exact breakpoint returns the value of the greatest added key
// at or before it, or Default if the curve is empty or the tick precedes
// every breakpoint.
type List struct {
	Name    string
	Default int
	Min     int
	Max     int

	ticks  []int64
	values []int
}

// New returns an empty curve identified by name, with the given default
// value and inclusive clamp range.
func New(name string, def, min, max int) *List {
	return &List{Name: name, Default: def, Min: min, Max: max}
}

// Clamp restricts value to [Min,Max].
func (l *List) Clamp(value int) int {
	if value < l.Min {
		return l.Min
	}
	if value > l.Max {
		return l.Max
	}
	return value
}

// Add inserts or overwrites the breakpoint at tick with value, clamped to
// [Min,Max]. Insertion is O(log n) to locate the slot, O(n) to shift.
func (l *List) Add(tick int64, value int) {
	value = l.Clamp(value)
	i := sort.Search(len(l.ticks), func(i int) bool { return l.ticks[i] >= tick })
	if i < len(l.ticks) && l.ticks[i] == tick {
		l.values[i] = value
		return
	}
	l.ticks = append(l.ticks, 0)
	l.values = append(l.values, 0)
	copy(l.ticks[i+1:], l.ticks[i:])
	copy(l.values[i+1:], l.values[i:])
	l.ticks[i] = tick
	l.values[i] = value
}

// Remove deletes the breakpoint at tick, if any.
func (l *List) Remove(tick int64) {
	i := sort.Search(len(l.ticks), func(i int) bool { return l.ticks[i] >= tick })
	if i >= len(l.ticks) || l.ticks[i] != tick {
		return
	}
	l.ticks = append(l.ticks[:i], l.ticks[i+1:]...)
	l.values = append(l.values[:i], l.values[i+1:]...)
}

// ValueAt returns the curve's value at tick.
func (l *List) ValueAt(tick int64) int {
	i := sort.Search(len(l.ticks), func(i int) bool { return l.ticks[i] > tick }) - 1
	if i < 0 {
		return l.Default
	}
	return l.values[i]
}

// Size returns the number of breakpoints.
func (l *List) Size() int { return len(l.ticks) }

// KeyAt returns the tick of the i-th breakpoint in ascending order.
func (l *List) KeyAt(i int) int64 { return l.ticks[i] }

// ValueAtIndex returns the value of the i-th breakpoint in ascending order.
func (l *List) ValueAtIndex(i int) int { return l.values[i] }

// Clone returns a deep copy.
func (l *List) Clone() *List {
	c := &List{Name: l.Name, Default: l.Default, Min: l.Min, Max: l.Max}
	c.ticks = append([]int64(nil), l.ticks...)
	c.values = append([]int(nil), l.values...)
	return c
}

// Lines renders the curve as one "TICK=VALUE" line per breakpoint whose
// tick is >= start, in ascending order, without the section header.
func (l *List) Lines(start int64) []string {
	var out []string
	for i, t := range l.ticks {
		if t < start {
			continue
		}
		out = append(out, fmt.Sprintf("%d=%d", t, l.values[i]))
	}
	return out
}

// ParseLine adds a breakpoint from a "TICK=VALUE" meta-text line. It
// returns vsqerr.ErrParse if the line is malformed.
func (l *List) ParseLine(line string) error {
	var tick int64
	var value int
	if _, err := fmt.Sscanf(line, "%d=%d", &tick, &value); err != nil {
		return fmt.Errorf("bpoint: parsing %q: %w", line, vsqerr.ErrParse)
	}
	l.Add(tick, value)
	return nil
}

// Vibrato is a single point on a VibratoCurve: a normalised position in
// [0,1] along the note, paired with an integer depth/rate value.
type Vibrato struct {
	X float64
	Y int
}

// VibratoCurve is an ascending, x-sorted breakpoint curve whose x axis is
// normalised to [0,1] across the owning note, rather than absolute ticks.
// It backs the DepthBP and RateBP fields of a vibrato Handle and the DynBP
// field of a dynamics Handle.
type VibratoCurve struct {
	points []Vibrato
}

// Add appends a point; points must be supplied in ascending x order, as
// the original VOCALOID writer does, since the curve is append-only
// during construction and only ever read back in order.
func (c *VibratoCurve) Add(x float64, y int) {
	c.points = append(c.points, Vibrato{X: x, Y: y})
}

// Size returns the number of points.
func (c *VibratoCurve) Size() int { return len(c.points) }

// At returns the i-th point.
func (c *VibratoCurve) At(i int) Vibrato { return c.points[i] }

// Clone returns a deep copy.
func (c *VibratoCurve) Clone() *VibratoCurve {
	return &VibratoCurve{points: append([]Vibrato(nil), c.points...)}
}
