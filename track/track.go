// Package track implements Track: a name, its Common metadata, an
// EventList, and the 23 named BreakpointList curves a VOCALOID track can
// carry (pitch bend, dynamics, breathiness and so on).
package track

import (
	"strconv"
	"strings"

	"github.com/OpenSynth/libvsq/bpoint"
	"github.com/OpenSynth/libvsq/event"
	"github.com/OpenSynth/libvsq/handle"
)

// DynamicsMode mirrors the original's DynamicsMode enum.
type DynamicsMode int

const (
	DynamicsStandard DynamicsMode = iota
	DynamicsExpert
)

// PlayMode mirrors the original's PlayMode enum.
type PlayMode int

const (
	PlayOff PlayMode = iota
	PlayWithSynth
	PlayAfterSynth
)

// Common holds the [Common] section fields: the track's VOCALOID engine
// version string, its display name, color and play/dynamics mode.
type Common struct {
	Version      string
	Name         string
	Color        string
	DynamicsMode DynamicsMode
	PlayMode     PlayMode
	LastPlayMode PlayMode
}

// NewCommon returns Common with the original's construction defaults: the
// "DSB301" engine version and color "179,181,123".
func NewCommon(name string) Common {
	return Common{
		Version:      "DSB301",
		Name:         name,
		Color:        "179,181,123",
		DynamicsMode: DynamicsExpert,
		PlayMode:     PlayWithSynth,
		LastPlayMode: PlayWithSynth,
	}
}

// Lines renders the [Common] section.
func (c Common) Lines() []string {
	return []string{
		"[Common]",
		"Version=" + c.Version,
		"Name=" + c.Name,
		"Color=" + c.Color,
		"DynamicsMode=" + strconv.Itoa(int(c.DynamicsMode)),
		"PlayMode=" + strconv.Itoa(int(c.PlayMode)),
	}
}

// curveDescriptor is one entry of the static name->{default,min,max,
// section header} registry.
type curveDescriptor struct {
	name          string
	def, min, max int
	section       string
	vocaloid1     bool // present on DSB2-class engines
	vocaloid2     bool // present on DSB3/baseline engines
}

// curveRegistry is the fixed, ordered list of all 23 curves a Track can
// carry, grounded in original_source/src/Track.cpp's _initCor/
// getSectionNameMap/curveNameList.
var curveRegistry = []curveDescriptor{
	{"pit", 0, -8192, 8191, "[PitchBendBPList]", true, true},
	{"pbs", 2, 0, 24, "[PitchBendSensBPList]", true, true},
	{"dyn", 64, 0, 127, "[DynamicsBPList]", true, true},
	{"bre", 0, 0, 127, "[EpRResidualBPList]", true, true},
	{"bri", 64, 0, 127, "[EpRESlopeBPList]", true, true},
	{"cle", 0, 0, 127, "[EpRESlopeDepthBPList]", true, true},
	{"harmonics", 64, 0, 127, "[EpRSineBPList]", true, false},
	{"fx2depth", 64, 0, 127, "[VibTremDepthBPList]", true, false},
	{"reso1freq", 64, 0, 127, "[Reso1FreqBPList]", true, false},
	{"reso2freq", 64, 0, 127, "[Reso2FreqBPList]", true, false},
	{"reso3freq", 64, 0, 127, "[Reso3FreqBPList]", true, false},
	{"reso4freq", 64, 0, 127, "[Reso4FreqBPList]", true, false},
	{"reso1bw", 64, 0, 127, "[Reso1BWBPList]", true, false},
	{"reso2bw", 64, 0, 127, "[Reso2BWBPList]", true, false},
	{"reso3bw", 64, 0, 127, "[Reso3BWBPList]", true, false},
	{"reso4bw", 64, 0, 127, "[Reso4BWBPList]", true, false},
	{"reso1amp", 64, 0, 127, "[Reso1AmpBPList]", true, false},
	{"reso2amp", 64, 0, 127, "[Reso2AmpBPList]", true, false},
	{"reso3amp", 64, 0, 127, "[Reso3AmpBPList]", true, false},
	{"reso4amp", 64, 0, 127, "[Reso4AmpBPList]", true, false},
	{"gen", 64, 0, 127, "[GenderFactorBPList]", true, true},
	{"por", 64, 0, 127, "[PortamentoTimingBPList]", true, true},
	{"ope", 127, 0, 127, "[OpeningBPList]", false, true},
}

// sectionToCurve maps a "[...]" section header to its lowercase curve
// name, the inverse of each descriptor's section field.
var sectionToCurve = func() map[string]string {
	m := make(map[string]string, len(curveRegistry))
	for _, d := range curveRegistry {
		m[d.section] = d.name
	}
	return m
}()

// CurveNameForSection returns the curve name for a "[XxxBPList]" header,
// and whether it was recognised.
func CurveNameForSection(section string) (string, bool) {
	name, ok := sectionToCurve[section]
	return name, ok
}

// Track is a named EventList plus its Common metadata and 23 curves.
type Track struct {
	Common Common
	Events event.List
	curves map[string]*bpoint.List
}

// New returns a Track named name, seeded with a single SINGER event for
// singer at tick 0, matching the original's _initCor.
func New(name, singer string) *Track {
	t := &Track{Common: NewCommon(name)}
	t.curves = make(map[string]*bpoint.List, len(curveRegistry))
	for _, d := range curveRegistry {
		t.curves[d.name] = bpoint.New(d.name, d.def, d.min, d.max)
	}
	e := &event.Event{Kind: event.KindSinger, Length: 1}
	e.SingerHandle = &handle.Handle{
		Kind:     handle.KindSinger,
		IconID:   "$07010000",
		IDS:      singer,
		Original: 0,
		Length:   1,
		Language: 0,
		Program:  0,
	}
	t.Events.Add(e)
	return t
}

// NewShell returns a Track with every curve initialised to its registry
// default but no seeded events, for codecs that populate Common/Events
// themselves (the meta-text reader's ParseTrack).
func NewShell() *Track {
	t := &Track{curves: make(map[string]*bpoint.List, len(curveRegistry))}
	for _, d := range curveRegistry {
		t.curves[d.name] = bpoint.New(d.name, d.def, d.min, d.max)
	}
	return t
}

// Curve returns the named curve (case-insensitive), or nil if unknown.
func (t *Track) Curve(name string) *bpoint.List {
	return t.curves[strings.ToLower(name)]
}

// CurveNames returns every curve name active for the track's engine
// version: the DSB2 set if Common.Version starts with "DSB2", the
// DSB3/baseline set otherwise (which includes "ope" but excludes the
// harmonics/fx2depth/reso* curves).
func (t *Track) CurveNames() []string {
	isDSB2 := strings.HasPrefix(t.Common.Version, "DSB2")
	var names []string
	for _, d := range curveRegistry {
		if isDSB2 && d.vocaloid1 {
			names = append(names, d.name)
		} else if !isDSB2 && d.vocaloid2 {
			names = append(names, d.name)
		}
	}
	return names
}

// SingerEventAt returns the last Singer event at or before tick, or nil.
func (t *Track) SingerEventAt(tick int64) *event.Event {
	return t.Events.FirstSingerAtOrBefore(tick)
}

// ReflectDynamics materialises every Icon event's dynaff/crescendo/
// decrescendo handle directly into the "dyn" curve, replacing its
// contents, grounded in original_source/src/Track.cpp's commented-out
// reflectDynamics: a dyn-only renderer that ignores Icon events still
// sees the intended loudness shape. See SPEC_FULL.md §4.8.
func (t *Track) ReflectDynamics() {
	dyn := t.Curve("dyn")
	fresh := bpoint.New(dyn.Name, dyn.Default, dyn.Min, dyn.Max)
	t.curves["dyn"] = fresh

	for _, e := range t.Events.All() {
		if e.Kind != event.KindIcon || e.IconDynamicsHandle == nil {
			continue
		}
		h := e.IconDynamicsHandle
		clock := e.Tick
		length := e.Length

		if h.DynamicsKind() == "dynaff" {
			fresh.Add(clock, h.StartDyn)
			continue
		}

		startDyn := fresh.ValueAt(clock)
		if h.DynBP == nil || h.DynBP.Size() == 0 {
			a := 0.0
			if length > 0 {
				a = float64(h.EndDyn-h.StartDyn) / float64(length)
			}
			lastVal := startDyn
			for i := clock; i < clock+length; i++ {
				val := fresh.Clamp(startDyn + int(a*float64(i-clock)))
				if val != lastVal {
					fresh.Add(i, val)
					lastVal = val
				}
			}
			continue
		}

		lastVal := h.StartDyn
		lastClock := clock
		last := startDyn
		for i := 0; i < h.DynBP.Size(); i++ {
			p := h.DynBP.At(i)
			pointClock := clock + int64(float64(length)*p.X)
			if pointClock <= lastClock {
				continue
			}
			pointValue := p.Y
			a := float64(pointValue-lastVal) / float64(pointClock-lastClock)
			for j := lastClock; j <= pointClock; j++ {
				val := fresh.Clamp(startDyn + int(float64(j-lastClock)*a))
				if val != last {
					fresh.Add(j, val)
					last = val
				}
			}
			lastVal = p.Y
			lastClock = pointClock
		}
		if lastClock < clock+length {
			a := float64(h.EndDyn-lastVal) / float64(clock+length-lastClock)
			for j := lastClock; j < clock+length; j++ {
				val := fresh.Clamp(last + int(float64(j-lastClock)*a))
				if val != last {
					fresh.Add(j, val)
					last = val
				}
			}
		}
	}
}

// Clone returns a deep copy.
func (t *Track) Clone() *Track {
	c := &Track{Common: t.Common, curves: make(map[string]*bpoint.List, len(t.curves))}
	for k, v := range t.curves {
		c.curves[k] = v.Clone()
	}
	c.Events = *t.Events.Clone()
	return c
}
