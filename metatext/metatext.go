// Package metatext implements the read/write codec for a Track's VSQ
// text serialisation: the [Common], [EventList], [ID#nnnn], [h#nnnn] and
// per-curve "[XxxBPList]" sections that make up the payload carried
// inside SMF 0xFF 0x01 meta events.
package metatext

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/OpenSynth/libvsq/bpoint"
	"github.com/OpenSynth/libvsq/event"
	"github.com/OpenSynth/libvsq/handle"
	"github.com/OpenSynth/libvsq/sequence"
	"github.com/OpenSynth/libvsq/track"
	"github.com/OpenSynth/libvsq/vsqerr"
)

// WriteTrack renders t's text form: [Common], optional [Master]/[Mixer]
// (only emitted when non-nil, matching the original writer only attaching
// them to the first real track), [EventList], the referenced [ID#nnnn]
// and [h#nnnn] sections, then the active curve sections, skipping empty
// curves and breakpoints before start.
func WriteTrack(t *track.Track, eos int64, start int64, master *sequence.Master, mixer *sequence.Mixer) string {
	var lines []string
	lines = append(lines, t.Common.Lines()...)
	if master != nil {
		lines = append(lines, "[Master]", fmt.Sprintf("PreMeasure=%d", master.PreMeasure))
	}
	if mixer != nil {
		lines = append(lines, mixerLines(mixer)...)
	}

	events := t.Events.All()
	tempEvents := make([]tempEvent, len(events))
	for i, e := range events {
		tempEvents[i] = tempEvent{Event: e}
	}

	handles := assignHandleIndices(tempEvents)

	lines = append(lines, "[EventList]")
	lines = append(lines, eventListLines(tempEvents, eos)...)

	for i := range tempEvents {
		lines = append(lines, eventLines(&tempEvents[i])...)
	}
	for _, h := range handles {
		lines = append(lines, h.Lines()...)
	}

	for _, name := range t.CurveNames() {
		c := t.Curve(name)
		if c == nil || c.Size() == 0 {
			continue
		}
		section, _ := sectionForCurve(name)
		lines = append(lines, section)
		lines = append(lines, c.Lines(start)...)
	}

	return strings.Join(lines, "\n")
}

func mixerLines(m *sequence.Mixer) []string {
	lines := []string{
		"[Mixer]",
		fmt.Sprintf("MasterFeder=%d", m.MasterFeder),
		fmt.Sprintf("MasterPan=%d", m.MasterPan),
		fmt.Sprintf("MasterMute=%d", m.MasterMute),
	}
	for i, s := range m.Slave {
		lines = append(lines,
			fmt.Sprintf("Feder%d=%d", i, s.Feder),
			fmt.Sprintf("Pan%d=%d", i, s.Pan),
			fmt.Sprintf("Mute%d=%d", i, s.Mute),
			fmt.Sprintf("OutputGain%d=%d", i, s.OutputGain),
		)
	}
	return lines
}

// tempEvent mirrors VSQFileWriter's TempEvent: the source Event plus the
// handle indices assigned during the write pass.
type tempEvent struct {
	*event.Event
	singerHandleIndex int
	lyricHandleIndex  int
	vibratoHandleIndex int
	noteHeadHandleIndex int
}

// assignHandleIndices walks events in stable order, numbering every
// owned handle in the order it's first encountered (h#0000 is whichever
// handle the first event owns), grounded in VSQFileWriter.hpp's
// getHandleList.
func assignHandleIndices(events []tempEvent) []*handle.Handle {
	var handles []*handle.Handle
	current := -1
	addQuote := true
	for i := range events {
		item := &events[i]
		if item.SingerHandle != nil {
			current++
			item.SingerHandle.Index = current
			handles = append(handles, item.SingerHandle)
			item.singerHandleIndex = current
			addQuote = isJapaneseSinger(item.SingerHandle.IDS)
		}
		if item.LyricHandle != nil {
			current++
			item.LyricHandle.Index = current
			item.LyricHandle.QuoteOnWrite = addQuote
			handles = append(handles, item.LyricHandle)
			item.lyricHandleIndex = current
		}
		if item.VibratoHandle != nil {
			current++
			item.VibratoHandle.Index = current
			handles = append(handles, item.VibratoHandle)
			item.vibratoHandleIndex = current
		}
		if item.NoteHeadHandle != nil {
			current++
			item.NoteHeadHandle.Index = current
			handles = append(handles, item.NoteHeadHandle)
			item.noteHeadHandleIndex = current
		}
		if item.IconDynamicsHandle != nil {
			current++
			item.IconDynamicsHandle.Index = current
			item.IconDynamicsHandle.Length = item.Length
			handles = append(handles, item.IconDynamicsHandle)
			// IconDynamicsHandle is treated like a singer handle for
			// index bookkeeping, matching the original's comment.
			item.singerHandleIndex = current
		}
	}
	return handles
}

func isJapaneseSinger(ids string) bool {
	switch ids {
	case "Miku", "Rin", "Len", "Luka", "Gumi", "Gackpo", "Meiko", "Kaito":
		return true
	default:
		return false
	}
}

func eventListLines(events []tempEvent, eos int64) []string {
	sorted := append([]tempEvent(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CompareTo(sorted[j].Event) < 0 })

	var lines []string
	i := 0
	for i < len(sorted) {
		if !sorted[i].IsEOS() {
			clock := sorted[i].Tick
			ids := []string{fmt.Sprintf("ID#%04d", sorted[i].ID)}
			for i+1 < len(sorted) && sorted[i+1].Tick == clock {
				i++
				ids = append(ids, fmt.Sprintf("ID#%04d", sorted[i].ID))
			}
			lines = append(lines, fmt.Sprintf("%d=%s", clock, strings.Join(ids, ",")))
		}
		i++
	}
	lines = append(lines, fmt.Sprintf("%d=EOS", eos))
	return lines
}

func eventLines(item *tempEvent) []string {
	lines := []string{fmt.Sprintf("[ID#%04d]", item.ID)}
	lines = append(lines, "Type="+item.Kind.String())
	switch item.Kind {
	case event.KindNote:
		lines = append(lines,
			fmt.Sprintf("Length=%d", item.Length),
			fmt.Sprintf("Note#=%d", item.Note),
			fmt.Sprintf("Dynamics=%d", item.Dynamics),
			fmt.Sprintf("PMBendDepth=%d", item.PMBendDepth),
			fmt.Sprintf("PMBendLength=%d", item.PMBendLength),
			fmt.Sprintf("PMbPortamentoUse=%d", item.PMbPortamentoUse),
			fmt.Sprintf("DEMdecGainRate=%d", item.DEMDecGainRate),
			fmt.Sprintf("DEMaccent=%d", item.DEMAccent),
		)
		if item.LyricHandle != nil {
			lines = append(lines, fmt.Sprintf("LyricHandle=h#%04d", item.lyricHandleIndex))
		}
		if item.VibratoHandle != nil {
			lines = append(lines,
				fmt.Sprintf("VibratoHandle=h#%04d", item.vibratoHandleIndex),
				fmt.Sprintf("VibratoDelay=%d", item.VibratoDelay),
			)
		}
		if item.NoteHeadHandle != nil {
			lines = append(lines, fmt.Sprintf("NoteHeadHandle=h#%04d", item.noteHeadHandleIndex))
		}
	case event.KindSinger:
		lines = append(lines, fmt.Sprintf("IconHandle=h#%04d", item.singerHandleIndex))
	case event.KindIcon:
		lines = append(lines,
			fmt.Sprintf("IconHandle=h#%04d", item.singerHandleIndex),
			fmt.Sprintf("Note#=%d", item.Note),
		)
	}
	return lines
}

func sectionForCurve(name string) (string, bool) {
	for _, c := range allSections {
		if c.curve == name {
			return c.section, true
		}
	}
	return "", false
}

var allSections = func() []struct{ section, curve string } {
	var out []struct{ section, curve string }
	for _, s := range []string{
		"[PitchBendBPList]=pit", "[PitchBendSensBPList]=pbs", "[DynamicsBPList]=dyn",
		"[EpRResidualBPList]=bre", "[EpRESlopeBPList]=bri", "[EpRESlopeDepthBPList]=cle",
		"[EpRSineBPList]=harmonics", "[VibTremDepthBPList]=fx2depth",
		"[Reso1FreqBPList]=reso1freq", "[Reso2FreqBPList]=reso2freq",
		"[Reso3FreqBPList]=reso3freq", "[Reso4FreqBPList]=reso4freq",
		"[Reso1BWBPList]=reso1bw", "[Reso2BWBPList]=reso2bw",
		"[Reso3BWBPList]=reso3bw", "[Reso4BWBPList]=reso4bw",
		"[Reso1AmpBPList]=reso1amp", "[Reso2AmpBPList]=reso2amp",
		"[Reso3AmpBPList]=reso3amp", "[Reso4AmpBPList]=reso4amp",
		"[GenderFactorBPList]=gen", "[PortamentoTimingBPList]=por", "[OpeningBPList]=ope",
	} {
		parts := strings.SplitN(s, "=", 2)
		out = append(out, struct{ section, curve string }{parts[0], parts[1]})
	}
	return out
}()

// rawEvent holds one [ID#nnnn] section's fields before handle references
// are resolved.
type rawEvent struct {
	index    int
	typ      string
	length   int64
	note     int
	dynamics int
	pmBendDepth, pmBendLength, pmbPortamentoUse int
	demDecGainRate, demAccent                   int
	vibratoDelay                                int
	lyricHandleIdx, vibratoHandleIdx            *int
	noteHeadHandleIdx, iconHandleIdx            *int
}

// ParseTrack parses a track's full meta-text back into a Track. If
// [Common] is absent the Track's Common stays at its zero value, and
// [Master]/[Mixer] come back nil when their sections are absent.
// Unrecognised sections are skipped.
func ParseTrack(text string) (*track.Track, *sequence.Master, *sequence.Mixer, error) {
	t := track.NewShell()
	var master *sequence.Master
	var mixer *sequence.Mixer

	eventOrder := []int{} // ids in [EventList] emission order, for binding
	eventOrderTicks := map[int]int64{}
	rawEvents := map[int]*rawEvent{}
	handles := map[int]*handle.Handle{}
	curves := map[string]*bpoint.List{}

	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var currentSection string
	var currentEvent *rawEvent
	var currentHandle *handle.Handle

	flush := func() {
		if currentEvent != nil {
			rawEvents[currentEvent.index] = currentEvent
			currentEvent = nil
		}
		if currentHandle != nil {
			handles[currentHandle.Index] = currentHandle
			currentHandle = nil
		}
	}

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			flush()
			currentSection = line
			switch {
			case line == "[Common]":
				t.Common = track.NewCommon("")
			case line == "[Master]":
				master = &sequence.Master{}
			case line == "[Mixer]":
				mixer = &sequence.Mixer{}
			case line == "[EventList]":
			case strings.HasPrefix(line, "[ID#"):
				idx, err := parseHashIndex(line, "[ID#", "]")
				if err != nil {
					return nil, nil, nil, err
				}
				currentEvent = &rawEvent{index: idx}
			case strings.HasPrefix(line, "[h#"):
				idx, err := parseHashIndex(line, "[h#", "]")
				if err != nil {
					return nil, nil, nil, err
				}
				currentHandle = &handle.Handle{Index: idx}
			default:
				if name, ok := track.CurveNameForSection(line); ok {
					def := t.Curve(name)
					if def == nil {
						curves[name] = bpoint.New(name, 0, 0, 127)
					} else {
						curves[name] = def
					}
				}
				// unrecognised sections are skipped to the next '['.
			}
			continue
		}

		if currentSection != "" && isCurveSection(currentSection) {
			name, _ := track.CurveNameForSection(currentSection)
			c := curves[name]
			if c == nil {
				c = bpoint.New(name, 0, 0, 127)
				curves[name] = c
			}
			if err := c.ParseLine(line); err != nil {
				return nil, nil, nil, err
			}
			continue
		}

		key, value, ok := splitKV(line)
		if !ok {
			return nil, nil, nil, fmt.Errorf("metatext: line %q: %w", line, vsqerr.ErrParse)
		}

		switch currentSection {
		case "[Common]":
			applyCommon(&t.Common, key, value)
		case "[Master]":
			if key == "PreMeasure" {
				master.PreMeasure = atoi(value)
			}
		case "[Mixer]":
			applyMixer(mixer, key, value)
		case "[EventList]":
			tick, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("metatext: event list key %q: %w", key, vsqerr.ErrParse)
			}
			if value == "EOS" {
				continue
			}
			for _, ref := range strings.Split(value, ",") {
				idx, err := parseHashIndex(strings.TrimSpace(ref), "ID#", "")
				if err != nil {
					return nil, nil, nil, err
				}
				eventOrder = append(eventOrder, idx)
				eventOrderTicks[idx] = tick
			}
		default:
			if currentEvent != nil {
				applyEventField(currentEvent, key, value)
			} else if currentHandle != nil {
				currentHandle.ParseField(key, value)
			}
		}
	}
	flush()

	for _, idx := range eventOrder {
		raw, ok := rawEvents[idx]
		if !ok {
			return nil, nil, nil, fmt.Errorf("metatext: event id#%04d: %w", idx, vsqerr.ErrResolve)
		}
		e, err := materializeEvent(raw, eventOrderTicks[idx], handles)
		if err != nil {
			return nil, nil, nil, err
		}
		t.Events.Add(e)
	}

	for name, c := range curves {
		if dst := t.Curve(name); dst != nil {
			*dst = *c
		}
	}

	return t, master, mixer, nil
}

func isCurveSection(section string) bool {
	_, ok := track.CurveNameForSection(section)
	return ok
}

func applyCommon(c *track.Common, key, value string) {
	switch key {
	case "Version":
		c.Version = value
	case "Name":
		c.Name = value
	case "Color":
		c.Color = value
	case "DynamicsMode":
		c.DynamicsMode = track.DynamicsMode(atoi(value))
	case "PlayMode":
		c.PlayMode = track.PlayMode(atoi(value))
	}
}

func applyMixer(m *sequence.Mixer, key, value string) {
	switch {
	case key == "MasterFeder":
		m.MasterFeder = atoi(value)
	case key == "MasterPan":
		m.MasterPan = atoi(value)
	case key == "MasterMute":
		m.MasterMute = atoi(value)
	case strings.HasPrefix(key, "Feder"):
		setSlaveField(m, key, "Feder", value, func(it *sequence.MixerItem, v int) { it.Feder = v })
	case strings.HasPrefix(key, "Pan"):
		setSlaveField(m, key, "Pan", value, func(it *sequence.MixerItem, v int) { it.Pan = v })
	case strings.HasPrefix(key, "Mute"):
		setSlaveField(m, key, "Mute", value, func(it *sequence.MixerItem, v int) { it.Mute = v })
	case strings.HasPrefix(key, "OutputGain"):
		setSlaveField(m, key, "OutputGain", value, func(it *sequence.MixerItem, v int) { it.OutputGain = v })
	}
}

func setSlaveField(m *sequence.Mixer, key, prefix, value string, set func(*sequence.MixerItem, int)) {
	i := atoi(strings.TrimPrefix(key, prefix))
	for len(m.Slave) <= i {
		m.Slave = append(m.Slave, sequence.MixerItem{})
	}
	set(&m.Slave[i], atoi(value))
}

func applyEventField(r *rawEvent, key, value string) {
	switch key {
	case "Type":
		r.typ = value
	case "Length":
		r.length = int64(atoi(value))
	case "Note#":
		r.note = atoi(value)
	case "Dynamics":
		r.dynamics = atoi(value)
	case "PMBendDepth":
		r.pmBendDepth = atoi(value)
	case "PMBendLength":
		r.pmBendLength = atoi(value)
	case "PMbPortamentoUse":
		r.pmbPortamentoUse = atoi(value)
	case "DEMdecGainRate":
		r.demDecGainRate = atoi(value)
	case "DEMaccent":
		r.demAccent = atoi(value)
	case "VibratoDelay":
		r.vibratoDelay = atoi(value)
	case "LyricHandle":
		idx := atoi(strings.TrimPrefix(value, "h#"))
		r.lyricHandleIdx = &idx
	case "VibratoHandle":
		idx := atoi(strings.TrimPrefix(value, "h#"))
		r.vibratoHandleIdx = &idx
	case "NoteHeadHandle":
		idx := atoi(strings.TrimPrefix(value, "h#"))
		r.noteHeadHandleIdx = &idx
	case "IconHandle":
		idx := atoi(strings.TrimPrefix(value, "h#"))
		r.iconHandleIdx = &idx
	}
}

func materializeEvent(r *rawEvent, tick int64, handles map[int]*handle.Handle) (*event.Event, error) {
	e := &event.Event{Tick: tick, Length: r.length}
	switch r.typ {
	case "Anote":
		e.Kind = event.KindNote
		e.Note = r.note
		e.Dynamics = r.dynamics
		e.PMBendDepth = r.pmBendDepth
		e.PMBendLength = r.pmBendLength
		e.PMbPortamentoUse = r.pmbPortamentoUse
		e.DEMDecGainRate = r.demDecGainRate
		e.DEMAccent = r.demAccent
		e.VibratoDelay = r.vibratoDelay
		if r.lyricHandleIdx != nil {
			h, err := resolve(handles, *r.lyricHandleIdx)
			if err != nil {
				return nil, err
			}
			e.LyricHandle = h
		}
		if r.vibratoHandleIdx != nil {
			h, err := resolve(handles, *r.vibratoHandleIdx)
			if err != nil {
				return nil, err
			}
			e.VibratoHandle = h
		}
		if r.noteHeadHandleIdx != nil {
			h, err := resolve(handles, *r.noteHeadHandleIdx)
			if err != nil {
				return nil, err
			}
			e.NoteHeadHandle = h
		}
	case "Singer":
		e.Kind = event.KindSinger
		if r.iconHandleIdx != nil {
			h, err := resolve(handles, *r.iconHandleIdx)
			if err != nil {
				return nil, err
			}
			e.SingerHandle = h
		}
	case "Aicon":
		e.Kind = event.KindIcon
		e.Note = r.note
		if r.iconHandleIdx != nil {
			h, err := resolve(handles, *r.iconHandleIdx)
			if err != nil {
				return nil, err
			}
			e.IconDynamicsHandle = h
		}
	default:
		return nil, fmt.Errorf("metatext: unknown event type %q: %w", r.typ, vsqerr.ErrParse)
	}
	return e, nil
}

func resolve(handles map[int]*handle.Handle, idx int) (*handle.Handle, error) {
	h, ok := handles[idx]
	if !ok {
		return nil, fmt.Errorf("metatext: handle h#%04d: %w", idx, vsqerr.ErrResolve)
	}
	return h, nil
}

func splitKV(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, '=')
	if i < 0 {
		return "", "", false
	}
	return line[:i], line[i+1:], true
}

func parseHashIndex(s, prefix, suffix string) (int, error) {
	body := s
	if prefix != "" {
		body = strings.TrimPrefix(body, prefix)
	}
	if suffix != "" {
		body = strings.TrimSuffix(body, suffix)
	}
	n, err := strconv.Atoi(body)
	if err != nil {
		return 0, fmt.Errorf("metatext: index %q: %w", s, vsqerr.ErrParse)
	}
	return n, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
