package tempo

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSecondsFromTick_TwoTempoChanges(t *testing.T) {
	var m Map
	m.Set(0, 500000)
	m.Set(1920, 250000)

	if got := m.SecondsFromTick(1920); got != 2.0 {
		t.Errorf("SecondsFromTick(1920) = %v, want 2.0", got)
	}
	want := 2.0 + 1920*0.0005208333333333333
	if got := m.SecondsFromTick(3840); math.Abs(got-want) > 1e-9 {
		t.Errorf("SecondsFromTick(3840) = %v, want %v", got, want)
	}
}

func TestSecondsFromTick_EmptyMapUsesDefaultTempo(t *testing.T) {
	var m Map
	got := m.SecondsFromTick(480)
	want := float64(DefaultMicrosecondsPerQuarter) * 1e-6 / TicksPerQuarter * 480
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("SecondsFromTick(480) on empty map = %v, want %v", got, want)
	}
}

func TestSet_OverwritesExistingTick(t *testing.T) {
	var m Map
	m.Set(0, 500000)
	m.Set(0, 600000)
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if got := m.TempoAt(0); got != 600000 {
		t.Errorf("TempoAt(0) = %d, want 600000", got)
	}
}

func TestTempoAtTick_ReturnsLastChangeAtOrBeforeTick(t *testing.T) {
	var m Map
	m.Set(0, 500000)
	m.Set(1920, 250000)
	if got := m.TempoAtTick(1000); got != 500000 {
		t.Errorf("TempoAtTick(1000) = %d, want 500000", got)
	}
	if got := m.TempoAtTick(1920); got != 250000 {
		t.Errorf("TempoAtTick(1920) = %d, want 250000", got)
	}
	if got := m.TempoAtTick(5000); got != 250000 {
		t.Errorf("TempoAtTick(5000) = %d, want 250000", got)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	var m Map
	m.Set(0, 500000)
	c := m.Clone()
	c.Set(480, 250000)
	if m.Len() != 1 {
		t.Errorf("original mutated by clone: Len() = %d, want 1", m.Len())
	}
}

// TestProperty_TickSecondsRoundTrip is §8 property 3: round-tripping a
// tick through seconds and back stays within 1e-9 of the original.
func TestProperty_TickSecondsRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("secondsFromTick(tickFromSeconds(secondsFromTick(t))) is within 1e-9 of secondsFromTick(t)", prop.ForAll(
		func(tick int64, tempoChanges []int) bool {
			var m Map
			m.Set(0, 500000)
			for i, micros := range tempoChanges {
				v := micros % 2000000
				if v <= 0 {
					v = 500000
				}
				m.Set(int64(i+1)*480, v)
			}
			tick = tick % 1000000
			if tick < 0 {
				tick = -tick
			}
			s1 := m.SecondsFromTick(tick)
			back := m.TickFromSeconds(s1)
			s2 := m.SecondsFromTick(int64(math.Round(back)))
			return math.Abs(s2-s1) < 1e-9
		},
		gen.Int64Range(0, 1000000),
		gen.SliceOfN(5, gen.IntRange(1, 2000000)),
	))

	properties.TestingRun(t)
}
