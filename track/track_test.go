package track

import (
	"testing"

	"github.com/OpenSynth/libvsq/event"
	"github.com/OpenSynth/libvsq/handle"
)

func TestNew_SeedsSingleSingerEvent(t *testing.T) {
	tr := New("Track 1", "Miku")
	if tr.Events.Len() != 1 {
		t.Fatalf("Events.Len() = %d, want 1", tr.Events.Len())
	}
	e := tr.Events.At(0)
	if e.Kind != event.KindSinger || e.SingerHandle == nil || e.SingerHandle.IDS != "Miku" {
		t.Errorf("seeded event = %+v", e)
	}
}

func TestNew_SeedsAllTwentyThreeCurves(t *testing.T) {
	tr := New("Track 1", "Miku")
	for _, name := range []string{
		"pit", "pbs", "dyn", "bre", "bri", "cle", "harmonics", "fx2depth",
		"reso1freq", "reso2freq", "reso3freq", "reso4freq",
		"reso1bw", "reso2bw", "reso3bw", "reso4bw",
		"reso1amp", "reso2amp", "reso3amp", "reso4amp",
		"gen", "por", "ope",
	} {
		if tr.Curve(name) == nil {
			t.Errorf("Curve(%q) = nil, want a curve", name)
		}
	}
}

func TestCurve_IsCaseInsensitive(t *testing.T) {
	tr := New("Track 1", "Miku")
	if tr.Curve("DYN") == nil {
		t.Error("Curve(\"DYN\") = nil, want curve (case-insensitive lookup)")
	}
	if tr.Curve("nonexistent") != nil {
		t.Error("Curve(\"nonexistent\") != nil, want nil")
	}
}

func TestCurveNames_DSB2ExcludesOpeButIncludesResonance(t *testing.T) {
	tr := New("Track 1", "Miku")
	tr.Common.Version = "DSB2"
	names := tr.CurveNames()

	has := func(n string) bool {
		for _, x := range names {
			if x == n {
				return true
			}
		}
		return false
	}
	if !has("harmonics") || !has("reso1freq") {
		t.Errorf("DSB2 CurveNames() = %v, want harmonics/reso1freq present", names)
	}
	if has("ope") {
		t.Errorf("DSB2 CurveNames() = %v, want ope absent", names)
	}
}

func TestCurveNames_DSB3IncludesOpeButExcludesResonance(t *testing.T) {
	tr := New("Track 1", "Miku")
	names := tr.CurveNames()

	has := func(n string) bool {
		for _, x := range names {
			if x == n {
				return true
			}
		}
		return false
	}
	if !has("ope") {
		t.Errorf("DSB301 CurveNames() = %v, want ope present", names)
	}
	if has("harmonics") || has("reso1freq") {
		t.Errorf("DSB301 CurveNames() = %v, want harmonics/reso1freq absent", names)
	}
}

func TestCurveNameForSection_RoundTripsWithRegistry(t *testing.T) {
	name, ok := CurveNameForSection("[DynamicsBPList]")
	if !ok || name != "dyn" {
		t.Errorf("CurveNameForSection([DynamicsBPList]) = (%q,%v), want (dyn,true)", name, ok)
	}
	if _, ok := CurveNameForSection("[NotASection]"); ok {
		t.Error("CurveNameForSection on unknown section returned ok=true")
	}
}

func TestReflectDynamics_DynaffSetsStartDynDirectly(t *testing.T) {
	tr := New("Track 1", "Miku")
	icon := &event.Event{Kind: event.KindIcon, Tick: 480, Length: 0}
	icon.IconDynamicsHandle = &handle.Handle{
		Kind:    handle.KindDynamics,
		IconID:  handle.IconPrefixDynaff + "0000",
		StartDyn: 100,
	}
	tr.Events.Add(icon)

	tr.ReflectDynamics()
	if got := tr.Curve("dyn").ValueAt(480); got != 100 {
		t.Errorf("dyn.ValueAt(480) = %d, want 100", got)
	}
}

func TestClone_CurvesAreIndependent(t *testing.T) {
	tr := New("Track 1", "Miku")
	tr.Curve("dyn").Add(0, 100)
	c := tr.Clone()
	c.Curve("dyn").Add(480, 50)

	if tr.Curve("dyn").Size() != 1 {
		t.Errorf("original curve mutated by clone: Size() = %d, want 1", tr.Curve("dyn").Size())
	}
}
