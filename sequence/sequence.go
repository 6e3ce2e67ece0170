// Package sequence implements Sequence: the top-level container holding a
// TempoMap, TimesigMap, master/mixer settings and the ordered list of
// Tracks that make up a song.
package sequence

import (
	"github.com/OpenSynth/libvsq/tempo"
	"github.com/OpenSynth/libvsq/timesig"
	"github.com/OpenSynth/libvsq/track"
)

// MixerItem is one slave channel's feder (gain), pan, mute and output-gain
// settings. There is no solo setting.
type MixerItem struct {
	Feder    int
	Pan      int
	Mute     int
	OutputGain int
}

// Mixer holds the master and per-track feder/pan/mute settings written
// to the [Mixer] section. There is no solo setting.
type Mixer struct {
	MasterFeder int
	MasterPan   int
	MasterMute  int
	OutputGain  int
	Slave       []MixerItem
}

// Master holds the [Master] section: the pre-measure length in bars.
type Master struct {
	PreMeasure int
}

// Sequence is the complete song: tempo/timesig maps, master/mixer
// settings, and the ordered Tracks. Track index 0 is the implicit SMF
// Master Track and is not stored here; Tracks[i] corresponds to SMF
// track i+1.
type Sequence struct {
	TempoMap   tempo.Map
	TimesigMap timesig.Map
	Master     Master
	Mixer      Mixer
	Tracks     []*track.Track

	totalTicks int64
}

// New returns a Sequence with one track named "Voice1" for singer, the
// given pre-measure (in bars), an initial time signature and initial
// tempo (microseconds per quarter note), mirroring the original's
// Sequence(singer, preMeasure, numerator, denominator, tempo) constructor.
func New(singer string, preMeasure, numerator, denominator, microsecondsPerQuarter int) *Sequence {
	s := &Sequence{
		Master: Master{PreMeasure: preMeasure},
		Mixer:  Mixer{Slave: []MixerItem{{}}},
	}
	s.Tracks = append(s.Tracks, track.New("Voice1", singer))
	s.TimesigMap.Set(0, numerator, denominator)
	s.TempoMap.Set(0, microsecondsPerQuarter)
	s.totalTicks = int64(preMeasure) * 4 * tempo.TicksPerQuarter / int64(denominator) * int64(numerator)
	return s
}

// TotalTicks returns the cached song length in ticks; call
// UpdateTotalTicks after mutating any track.
func (s *Sequence) TotalTicks() int64 { return s.totalTicks }

// UpdateTotalTicks recomputes TotalTicks as the maximum of the
// pre-measure length, the end tick of each track's last event (in tick
// order), and the last breakpoint tick of each track's dyn, bre, bri,
// cle, ope, gen, por, pit and pbs curves; the other curves are not
// consulted.
func (s *Sequence) UpdateTotalTicks() {
	max := s.PreMeasureTicks()
	curveNames := []string{"dyn", "bre", "bri", "cle", "ope", "gen", "por", "pit", "pbs"}
	for _, t := range s.Tracks {
		if n := t.Events.Len(); n > 0 {
			last := t.Events.At(n - 1)
			if end := last.Tick + last.Length; end > max {
				max = end
			}
		}
		for _, name := range curveNames {
			c := t.Curve(name)
			if c == nil || c.Size() == 0 {
				continue
			}
			if k := c.KeyAt(c.Size() - 1); k > max {
				max = k
			}
		}
	}
	s.totalTicks = max
}

// PreMeasureTicks returns the pre-measure length in ticks, derived from
// the time signature in effect across the pre-measure bars.
func (s *Sequence) PreMeasureTicks() int64 {
	if s.TimesigMap.Len() == 0 {
		return 0
	}
	preMeasure := s.Master.PreMeasure
	first := s.TimesigMap.At(0)
	lastBar, lastTick, lastNum, lastDen := first.BarIndex, first.Tick, first.Numerator, first.Denominator
	for i := 1; i < s.TimesigMap.Len(); i++ {
		c := s.TimesigMap.At(i)
		if c.BarIndex >= preMeasure {
			break
		}
		lastBar, lastTick, lastNum, lastDen = c.BarIndex, c.Tick, c.Numerator, c.Denominator
	}
	remained := preMeasure - lastBar
	return lastTick + int64(remained*lastNum*480*4/lastDen)
}

// Clone returns a deep copy.
func (s *Sequence) Clone() *Sequence {
	c := &Sequence{
		Master:     s.Master,
		Mixer:      s.Mixer,
		totalTicks: s.totalTicks,
	}
	c.Mixer.Slave = append([]MixerItem(nil), s.Mixer.Slave...)
	c.TempoMap = *s.TempoMap.Clone()
	c.TimesigMap = *s.TimesigMap.Clone()
	for _, t := range s.Tracks {
		c.Tracks = append(c.Tracks, t.Clone())
	}
	return c
}
