package nrpn

import (
	"strings"

	"github.com/OpenSynth/libvsq/bpoint"
	"github.com/OpenSynth/libvsq/event"
	"github.com/OpenSynth/libvsq/tempo"
	"github.com/OpenSynth/libvsq/track"
)

// Generate renders a track's notes, singer changes and control curves
// into the track's full NRPN control-change stream: header/singer NRPN,
// voice-change-parameter curves, FX2 depth (DSB2 only), expression/pitch
// bend/pitch bend sensitivity curves, then the per-note composites
// (with vibrato and phonetic-symbol payloads) interleaved with
// intervening singer changes, sorted by (tick, address-MSB descending)
// and flattened to atomic events.
func Generate(t *track.Track, tm *tempo.Map, totalTicks int64, msPreSend int) []ControlChange {
	events := t.Events.All()
	if len(events) == 0 {
		return nil
	}

	noteStart := 0
	noteEnd := len(events) - 1
	for i, e := range events {
		if e.Tick >= 0 {
			noteStart = i
			break
		}
		noteStart = i
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Tick <= totalTicks {
			noteEnd = i
			break
		}
	}

	var list []Event

	singerEvent := -1
	for i := noteStart; i >= 0; i-- {
		if events[i].Kind == event.KindSinger {
			singerEvent = i
			break
		}
	}
	if singerEvent >= 0 {
		list = append(list, generateSingerNRPN(tm, events[singerEvent], 0)...)
	} else {
		list = append(list,
			New(0, ParamBSLanguageType, 0x0),
			New(0, ParamPCVoiceType, 0x0),
		)
	}

	list = append(list, generateVoiceChangeParameterNRPN(t, tm, msPreSend)...)
	isDSB2 := strings.HasPrefix(t.Common.Version, "DSB2")
	if isDSB2 {
		list = append(list, generateCurveNRPN(t, tm, "fx2depth", ParamFX2Delay, ParamFX2EffectDepth, msPreSend, false)...)
	}

	if c := t.Curve("dyn"); c != nil && c.Size() > 0 {
		list = append(list, generateCurveNRPN(t, tm, "dyn", ParamEDelay, ParamEExpression, msPreSend, false)...)
	}
	if c := t.Curve("pbs"); c != nil && c.Size() > 0 {
		list = append(list, generateCurveNRPN(t, tm, "pbs", ParamPBSDelay, ParamPBSPitchBendSensitivity, msPreSend, false)...)
	}
	if c := t.Curve("pit"); c != nil && c.Size() > 0 {
		list = append(list, generateCurveNRPN(t, tm, "pit", ParamPBDelay, ParamPBPitchBend, msPreSend, true)...)
	}

	lastDelay := 0
	lastNoteEnd := int64(0)
	for i := noteStart; i <= noteEnd; i++ {
		item := events[i]
		switch item.Kind {
		case event.KindNote:
			noteLocation := 0x03
			if item.Tick == lastNoteEnd {
				noteLocation -= 0x02
			}
			nextClock := item.Tick + item.Length + 1
			for j := i + 1; j < len(events); j++ {
				if events[j].Kind == event.KindNote {
					nextClock = events[j].Tick
					break
				}
			}
			if item.Tick+item.Length == nextClock {
				noteLocation -= 0x01
			}

			noteNrpn, delay := generateNoteNRPN(t, tm, item, msPreSend, noteLocation, lastDelay)
			lastDelay = delay
			list = append(list, noteNrpn)
			list = append(list, generateVibratoNRPN(tm, item, msPreSend)...)
			lastNoteEnd = item.Tick + item.Length
		case event.KindSinger:
			if i > noteStart && i != singerEvent {
				list = append(list, generateSingerNRPN(tm, item, msPreSend)...)
			}
		}
	}

	SortStable(list)
	var atomic []Event
	for _, n := range list {
		atomic = append(atomic, n.Expand()...)
	}
	return Convert(atomic)
}

func actualClockAndDelay(tm *tempo.Map, clock int64, msPreSend int) (actualClock int64, delay int) {
	clockMsec := tm.SecondsFromTick(clock) * 1000.0
	if clockMsec-float64(msPreSend) <= 0 {
		actualClock = 0
	} else {
		draftSec := (clockMsec - float64(msPreSend)) / 1000.0
		actualClock = int64(tm.TickFromSeconds(draftSec))
	}
	delay = int(clockMsec - tm.SecondsFromTick(actualClock)*1000.0)
	return actualClock, delay
}

// generateSingerNRPN emits the version/device, delay, language and
// program NRPN for a singer change, sourced from the event's own
// SingerHandle (the original always uses a blank default-constructed
// Handle here; using the real handle's language/program is a deliberate
// divergence, recorded in DESIGN.md).
func generateSingerNRPN(tm *tempo.Map, singerEvent *event.Event, msPreSend int) []Event {
	language, program := 0, 0
	if singerEvent.SingerHandle != nil {
		language = singerEvent.SingerHandle.Language
		program = singerEvent.SingerHandle.Program
	}

	actualClock, delay := actualClockAndDelay(tm, singerEvent.Tick, msPreSend)
	delayMsb, delayLsb := SplitMsbLsb(delay)

	add := New(actualClock, ParamBSVersionAndDevice, 0x00)
	add.HasLSB = true
	add.DataLSB = 0x00
	add.AppendLSBOmit(ParamBSDelay, delayMsb, delayLsb, true)
	add.AppendOmit(ParamBSLanguageType, language, true)
	add.Append(ParamPCVoiceType, program)
	return []Event{add}
}

func generateNoteNRPN(t *track.Track, tm *tempo.Map, noteEvent *event.Event, msPreSend, noteLocation, lastDelay int) (Event, int) {
	clock := noteEvent.Tick
	actualClock, delay := actualClockAndDelay(tm, clock, msPreSend)

	var add Event
	initialized := false
	if lastDelay != delay {
		delayMsb, delayLsb := SplitMsbLsb(delay)
		add = NewLSB(actualClock, ParamNMDelay, delayMsb, delayLsb)
		initialized = true
	}
	if !initialized {
		add = New(actualClock, ParamNMNoteNumber, noteEvent.Note)
		initialized = true
	} else {
		add.AppendOmit(ParamNMNoteNumber, noteEvent.Note, true)
	}

	add.AppendOmit(ParamNMVelocity, noteEvent.Dynamics, true)

	msEnd := tm.SecondsFromTick(clock+noteEvent.Length) * 1000.0
	clockMsec := tm.SecondsFromTick(clock) * 1000.0
	duration := int(msEnd - clockMsec)
	durMsb, durLsb := SplitMsbLsb(duration)
	add.AppendLSBOmit(ParamNMNoteDuration, durMsb, durLsb, true)

	add.AppendOmit(ParamNMNoteLocation, noteLocation, true)

	if noteEvent.VibratoHandle != nil {
		add.AppendLSBOmit(ParamNMIndexOfVibratoDB, 0x00, 0x00, true)
		iconID := noteEvent.VibratoHandle.IconID
		vibratoType := 0
		if len(iconID) >= 3 {
			vibratoType = hexTail(iconID)
		}
		noteLength := noteEvent.Length
		vibratoDelay := int64(noteEvent.VibratoDelay)
		bVibratoDuration := 0
		if noteLength > 0 {
			bVibratoDuration = int(float64(noteLength-vibratoDelay) / float64(noteLength) * 127.0)
		}
		bVibratoDelay := 0x7f - bVibratoDuration
		add.AppendLSBOmit(ParamNMVibratoConfig, vibratoType, bVibratoDuration, true)
		add.AppendOmit(ParamNMVibratoDelay, bVibratoDelay, true)
	}

	symbols := phoneticSymbolBytes(noteEvent)

	if strings.HasPrefix(t.Common.Version, "DSB2") {
		add.AppendOmit(ParamNMUnknown5011, 0x01, true)
	}
	add.AppendOmit(ParamNMPhoneticSymbolBytes, len(symbols), true)

	var adjustments []int
	if noteEvent.LyricHandle != nil && len(noteEvent.LyricHandle.Lyrics) > 0 {
		adjustments = noteEvent.LyricHandle.Lyrics[0].ConsonantAdjustment
	}
	count := -1
	for symIdx, sym := range symbolGroups(noteEvent) {
		for k, ch := range []byte(sym) {
			count++
			adj := 0
			if symIdx < len(adjustments) {
				adj = adjustments[symIdx]
			}
			if k == 0 {
				add.AppendLSBOmit(phoneticSymbolParam(count), int(ch), adj, true)
			} else {
				add.AppendOmit(phoneticSymbolParam(count), int(ch), true)
			}
		}
	}
	if !strings.HasPrefix(t.Common.Version, "DSB2") {
		add.AppendOmit(ParamNMPhoneticSymbolContinuation, 0x7f, true)
	}

	if strings.HasPrefix(t.Common.Version, "DSB3") {
		v1mean := clampInt(noteEvent.PMBendDepth*60/100, 0, 60)
		d1mean := int(0.3196*float64(noteEvent.PMBendLength) + 8.0)
		d2mean := int(0.92*float64(noteEvent.PMBendLength) + 28.0)
		add.AppendOmit(ParamNMV1Mean, v1mean, true)
		add.AppendOmit(ParamNMD1Mean, d1mean, true)
		add.AppendOmit(ParamNMD1MeanFirstNote, 0x14, true)
		add.AppendOmit(ParamNMD2Mean, d2mean, true)
		add.AppendOmit(ParamNMD4Mean, noteEvent.D4Mean, true)
		add.AppendOmit(ParamNMPMeanOnsetFirstNote, noteEvent.PMeanOnsetFirstNote, true)
		add.AppendOmit(ParamNMVMeanNoteTransition, noteEvent.VMeanNoteTransition, true)
		add.AppendOmit(ParamNMPMeanEndingNote, noteEvent.PMeanEndingNote, true)
		add.AppendOmit(ParamNMAddPortamento, noteEvent.PMbPortamentoUse, true)
		decay := int(float64(noteEvent.DEMDecGainRate) / 100.0 * 0x64)
		add.AppendOmit(ParamNMChangeAfterPeak, decay, true)
		accent := int(0x64 * float64(noteEvent.DEMAccent) / 100.0)
		add.AppendOmit(ParamNMAccent, accent, true)
	}

	add.AppendOmit(ParamNMNoteMessageContinuation, 0x7f, true)
	return add, delay
}

func phoneticSymbolBytes(e *event.Event) []byte {
	var b []byte
	for _, sym := range symbolGroups(e) {
		b = append(b, []byte(sym)...)
	}
	return b
}

func symbolGroups(e *event.Event) []string {
	if e.LyricHandle == nil || len(e.LyricHandle.Lyrics) == 0 {
		return nil
	}
	return e.LyricHandle.Lyrics[0].Symbols
}

func hexTail(iconID string) int {
	tail := iconID[len(iconID)-3:]
	n := 0
	for _, r := range tail {
		n *= 16
		switch {
		case r >= '0' && r <= '9':
			n += int(r - '0')
		case r >= 'a' && r <= 'f':
			n += int(r-'a') + 10
		case r >= 'A' && r <= 'F':
			n += int(r-'A') + 10
		}
	}
	return n
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func generateVibratoNRPN(tm *tempo.Map, noteEvent *event.Event, msPreSend int) []Event {
	if noteEvent.VibratoHandle == nil {
		return nil
	}
	h := noteEvent.VibratoHandle
	vclock := noteEvent.Tick + int64(noteEvent.VibratoDelay)
	actualClock, delay := actualClockAndDelay(tm, vclock, msPreSend)
	delayMsb, delayLsb := SplitMsbLsb(delay)

	head := NewLSB(actualClock, ParamVDVersionAndDevice, 0x00, 0x00)
	head.AppendLSB(ParamVRVersionAndDevice, 0x00, 0x00)
	head.AppendLSB(ParamVDDelay, delayMsb, delayLsb)
	head.AppendLSB(ParamVRDelay, delayMsb, delayLsb)
	head.Append(ParamVDVibratoDepth, h.StartDepth)
	head.Append(ParamVRVibratoRate, h.StartRate)

	ret := []Event{head}
	vlength := noteEvent.Length - int64(noteEvent.VibratoDelay)

	if h.DepthBP != nil && h.DepthBP.Size() > 0 {
		ret = append(ret, rampCurveNRPN(tm, h.DepthBP, vclock, vlength, msPreSend, ParamVDDelay, ParamVDVibratoDepth)...)
	}
	if h.RateBP != nil && h.RateBP.Size() > 0 {
		ret = append(ret, rampCurveNRPN(tm, h.RateBP, vclock, vlength, msPreSend, ParamVRDelay, ParamVRVibratoRate)...)
	}
	SortStable(ret)
	return ret
}

func rampCurveNRPN(tm *tempo.Map, c *bpoint.VibratoCurve, vclock, vlength int64, msPreSend int, delayParam, valueParam Param) []Event {
	var ret []Event
	lastDelay := 0
	for i := 0; i < c.Size(); i++ {
		p := c.At(i)
		cl := vclock + int64(p.X*float64(vlength))
		actualClock, delay := actualClockAndDelay(tm, cl, msPreSend)
		var n Event
		if lastDelay != delay {
			delayMsb, delayLsb := SplitMsbLsb(delay)
			n = NewLSB(actualClock, delayParam, delayMsb, delayLsb)
			n.Append(valueParam, p.Y)
		} else {
			n = New(actualClock, valueParam, p.Y)
		}
		lastDelay = delay
		ret = append(ret, n)
	}
	return ret
}

// generateCurveNRPN renders one control curve (dyn/pbs/pit/fx2depth) into
// its delay/value NRPN pairs, biasing PIT values by +0x2000 before the
// MSB/LSB split and giving PBS a fixed zero LSB, per each provider's
// original behaviour.
func generateCurveNRPN(t *track.Track, tm *tempo.Map, curveName string, delayParam, valueParam Param, msPreSend int, isPitchBend bool) []Event {
	c := t.Curve(curveName)
	if c == nil {
		return nil
	}
	var ret []Event
	lastDelay := 0
	for i := 0; i < c.Size(); i++ {
		clock := c.KeyAt(i)
		value := c.ValueAtIndex(i)
		actualClock, delay := actualClockAndDelay(tm, clock, msPreSend)
		if actualClock < 0 {
			continue
		}
		var add Event
		switch {
		case isPitchBend:
			msb, lsb := SplitMsbLsb(value + 0x2000)
			add = NewLSB(actualClock, valueParam, msb, lsb)
		case curveName == "pbs":
			add = NewLSB(actualClock, valueParam, value, 0x00)
		default:
			add = New(actualClock, valueParam, value)
		}
		if lastDelay != delay {
			delayMsb, delayLsb := SplitMsbLsb(delay)
			delayNrpn := NewLSB(actualClock, delayParam, delayMsb, delayLsb)
			if add.HasLSB {
				delayNrpn.AppendLSB(valueParam, add.DataMSB, add.DataLSB)
			} else {
				delayNrpn.Append(valueParam, add.DataMSB)
			}
			ret = append(ret, delayNrpn)
		} else {
			ret = append(ret, add)
		}
		lastDelay = delay
	}
	return ret
}

// voiceChangeCurveNames returns the version-dependent curve set consulted
// by generateVoiceChangeParameterNRPN.
func voiceChangeCurveNames(version string) []string {
	switch {
	case strings.HasPrefix(version, "DSB3"):
		return []string{"bre", "bri", "cle", "por", "ope", "gen"}
	case strings.HasPrefix(version, "DSB2"):
		return []string{
			"bre", "bri", "cle", "por", "gen", "harmonics",
			"reso1amp", "reso1bw", "reso1freq",
			"reso2amp", "reso2bw", "reso2freq",
			"reso3amp", "reso3bw", "reso3freq",
			"reso4amp", "reso4bw", "reso4freq",
		}
	default:
		return []string{"bre", "bri", "cle", "por", "gen"}
	}
}

func generateVoiceChangeParameterNRPN(t *track.Track, tm *tempo.Map, msPreSend int) []Event {
	var ret []Event
	lastDelay := 0
	for _, name := range voiceChangeCurveNames(t.Common.Version) {
		c := t.Curve(name)
		if c == nil || c.Size() == 0 {
			continue
		}
		lastDelay = addVoiceChangeParameters(&ret, name, c, tm, msPreSend, lastDelay)
	}
	SortStable(ret)
	return ret
}

func addVoiceChangeParameters(dest *[]Event, curveName string, c *bpoint.List, tm *tempo.Map, msPreSend, lastDelay int) int {
	id := voiceChangeParameterID[curveName]
	for j := 0; j < c.Size(); j++ {
		clock := c.KeyAt(j)
		value := c.ValueAtIndex(j)
		actualClock, delay := actualClockAndDelay(tm, clock, msPreSend)
		if actualClock < 0 {
			continue
		}
		if lastDelay != delay {
			delayMsb, delayLsb := SplitMsbLsb(delay)
			*dest = append(*dest, NewLSB(actualClock, ParamVCPDelay, delayMsb, delayLsb))
			lastDelay = delay
		}
		add := New(actualClock, ParamVCPVoiceChangeParamID, id)
		add.AppendOmit(ParamVCPVoiceChangeParam, value, true)
		*dest = append(*dest, add)
	}
	return lastDelay
}
