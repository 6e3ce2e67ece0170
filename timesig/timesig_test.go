package timesig

import "testing"

func TestSet_DerivesTickFromPrecedingBarLengths(t *testing.T) {
	var m Map
	m.Set(0, 4, 4)
	m.Set(2, 3, 4)
	m.Set(4, 4, 4)

	if got := m.At(0).Tick; got != 0 {
		t.Errorf("bar 0 tick = %d, want 0", got)
	}
	if got := m.At(1).Tick; got != 2*4*480 {
		t.Errorf("bar 2 tick = %d, want %d", got, 2*4*480)
	}
	want := int64(2*4*480) + int64(2)*3*480
	if got := m.At(2).Tick; got != want {
		t.Errorf("bar 4 tick = %d, want %d", got, want)
	}
}

func TestSet_OverwritesExistingBar(t *testing.T) {
	var m Map
	m.Set(0, 4, 4)
	m.Set(0, 3, 4)
	if m.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", m.Len())
	}
	if got := m.At(0).Numerator; got != 3 {
		t.Errorf("Numerator = %d, want 3", got)
	}
}

func TestAtTick_ReturnsChangeInEffect(t *testing.T) {
	var m Map
	m.Set(0, 4, 4)
	m.Set(2, 3, 4)
	bar2Tick := m.At(1).Tick

	if got := m.AtTick(0).Numerator; got != 4 {
		t.Errorf("AtTick(0).Numerator = %d, want 4", got)
	}
	if got := m.AtTick(bar2Tick - 1).Numerator; got != 4 {
		t.Errorf("AtTick(bar2Tick-1).Numerator = %d, want 4", got)
	}
	if got := m.AtTick(bar2Tick).Numerator; got != 3 {
		t.Errorf("AtTick(bar2Tick).Numerator = %d, want 3", got)
	}
}

func TestAtTick_EmptyMapDefaultsToFourFour(t *testing.T) {
	var m Map
	c := m.AtTick(100)
	if c.Numerator != 4 || c.Denominator != 4 {
		t.Errorf("AtTick on empty map = %+v, want 4/4", c)
	}
}

func TestClone_IsIndependent(t *testing.T) {
	var m Map
	m.Set(0, 4, 4)
	c := m.Clone()
	c.Set(4, 3, 4)
	if m.Len() != 1 {
		t.Errorf("original mutated by clone: Len() = %d, want 1", m.Len())
	}
}
