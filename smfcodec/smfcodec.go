// Package smfcodec reads and writes the Standard MIDI File container that
// carries a Sequence: a Master Track of merged tempo/time-signature meta
// events, followed by one MTrk per Track holding that track's meta-text
// (sliced into 127-byte "DM:nnnn:"-prefixed 0xFF 0x01 events, Shift_JIS
// encoded) interleaved with its VOCALOID NRPN control-change stream.
package smfcodec

import (
	"bytes"
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/text/encoding/japanese"

	"github.com/OpenSynth/libvsq/metatext"
	"github.com/OpenSynth/libvsq/nrpn"
	"github.com/OpenSynth/libvsq/sequence"
	"github.com/OpenSynth/libvsq/track"
	"github.com/OpenSynth/libvsq/vsqerr"
)

// MsPreSend is the default pre-send lead time, in milliseconds, applied
// to NRPN generation so the VOCALOID engine receives parameter changes
// ahead of playback.
const MsPreSend = 500

// Write renders s to its SMF byte form.
func Write(s *sequence.Sequence, msPreSend int) ([]byte, error) {
	s.UpdateTotalTicks()

	out := smf.NewSMF1()
	out.TimeFormat = smf.MetricTicks(480)

	master := smf.Track{}
	master = append(master, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName("Master Track"))})
	master = append(master, mergedMasterEvents(s)...)
	master = append(master, smf.Event{Delta: 0, Message: smf.EOT})
	out.Add(master)

	for i, t := range s.Tracks {
		var masterSection *sequence.Master
		var mixerSection *sequence.Mixer
		if i == 0 {
			masterSection = &s.Master
			mixerSection = &s.Mixer
		}
		text := metatext.WriteTrack(t, s.TotalTicks()+120, 0, masterSection, mixerSection)
		chunk, err := buildTrackChunk(t, text, s, msPreSend)
		if err != nil {
			return nil, fmt.Errorf("smfcodec: track %d: %w", i, err)
		}
		out.Add(chunk)
	}

	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("smfcodec: writing SMF: %w", vsqerr.ErrIO)
	}
	return buf.Bytes(), nil
}

// mergedMasterEvents combines the tempo and time-signature change
// streams into a single tick-ordered event list, tempo before timesig at
// equal ticks, as delta-time smf.Events.
func mergedMasterEvents(s *sequence.Sequence) []smf.Event {
	type change struct {
		tick int64
		msg  smf.Message
		rank int
	}
	var changes []change
	for i := 0; i < s.TempoMap.Len(); i++ {
		tick := s.TempoMap.TickAt(i)
		bpm := 60000000.0 / float64(s.TempoMap.TempoAt(i))
		changes = append(changes, change{tick, smf.Message(smf.MetaTempo(bpm)), 0})
	}
	for i := 0; i < s.TimesigMap.Len(); i++ {
		c := s.TimesigMap.At(i)
		changes = append(changes, change{c.Tick, smf.Message(smf.MetaTimeSig(uint8(c.Numerator), uint8(c.Denominator), 24, 8)), 1})
	}
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].tick != changes[j].tick {
			return changes[i].tick < changes[j].tick
		}
		return changes[i].rank < changes[j].rank
	})

	var events []smf.Event
	var last int64
	for _, c := range changes {
		events = append(events, smf.Event{Delta: uint32(c.tick - last), Message: c.msg})
		last = c.tick
	}
	return events
}

func buildTrackChunk(t *track.Track, text string, s *sequence.Sequence, msPreSend int) (smf.Track, error) {
	chunk := smf.Track{}
	chunk = append(chunk, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName(t.Common.Name))})

	metaBytes, err := encodeShiftJIS(text + "\n")
	if err != nil {
		return nil, err
	}
	metaTicks := sliceMetaText(metaBytes)

	ccList := nrpn.Generate(t, &s.TempoMap, s.TotalTicks(), msPreSend)

	type tickMsg struct {
		tick int64
		msg  smf.Message
		rank int // meta text before control change at equal tick
	}
	var all []tickMsg
	for _, mt := range metaTicks {
		all = append(all, tickMsg{0, smf.Message(smf.MetaText(string(mt))), 0})
	}
	for _, cc := range ccList {
		all = append(all, tickMsg{cc.Tick, smf.Message(midi.ControlChange(0, cc.Controller, cc.Value)), 1})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].tick != all[j].tick {
			return all[i].tick < all[j].tick
		}
		return all[i].rank < all[j].rank
	})

	var last, maxTick int64
	for _, m := range all {
		chunk = append(chunk, smf.Event{Delta: uint32(m.tick - last), Message: m.msg})
		last = m.tick
		if m.tick > maxTick {
			maxTick = m.tick
		}
	}
	if s.TotalTicks() > maxTick {
		maxTick = s.TotalTicks()
	}
	chunk = append(chunk, smf.Event{Delta: uint32(maxTick - last), Message: smf.EOT})
	return chunk, nil
}

func encodeShiftJIS(text string) ([]byte, error) {
	enc := japanese.ShiftJIS.NewEncoder()
	out, err := enc.Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("smfcodec: encoding meta text: %w", vsqerr.ErrIO)
	}
	return out, nil
}

// linePrefix returns the "DM:nnnn:" slice-index prefix for count,
// widening in groups of 4 digits once count exceeds what 4 digits hold.
func linePrefix(count int) string {
	digits := 1
	for n := count; n >= 10; n /= 10 {
		digits++
	}
	groups := (digits-1)/4 + 1
	width := groups * 4
	return fmt.Sprintf("DM:%0*d:", width, count)
}

// Read parses an SMF byte stream back into a Sequence. Control-change
// events are ignored: the NRPN stream is VOCALOID-engine-only output and
// carries no information not already present in a track's meta-text.
func Read(data []byte) (*sequence.Sequence, error) {
	midiFile, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("smfcodec: reading SMF: %w", vsqerr.ErrFormat)
	}
	if len(midiFile.Tracks) == 0 {
		return nil, fmt.Errorf("smfcodec: no tracks: %w", vsqerr.ErrFormat)
	}

	s := &sequence.Sequence{}
	readMasterTrack(midiFile.Tracks[0], s)

	for _, mtrk := range midiFile.Tracks[1:] {
		body, err := collectMetaText(mtrk)
		if err != nil {
			return nil, err
		}
		t, master, mixer, err := metatext.ParseTrack(body)
		if err != nil {
			return nil, fmt.Errorf("smfcodec: %w", err)
		}
		if master != nil {
			s.Master = *master
		}
		if mixer != nil {
			s.Mixer = *mixer
		}
		s.Tracks = append(s.Tracks, t)
	}
	s.UpdateTotalTicks()
	return s, nil
}

func readMasterTrack(mtrk smf.Track, s *sequence.Sequence) {
	var tick int64
	for _, ev := range mtrk {
		tick += int64(ev.Delta)
		msg := ev.Message
		var bpm float64
		var num, denom uint8
		if msg.GetMetaTempo(&bpm) {
			micros := int(60000000.0 / bpm)
			s.TempoMap.Set(tick, micros)
		} else if msg.GetMetaTimeSig(&num, &denom, nil, nil) {
			bar := barIndexForTick(s, tick)
			s.TimesigMap.Set(bar, int(num), int(denom))
		}
	}
	if s.TempoMap.Len() == 0 {
		s.TempoMap.Set(0, tempoDefaultMicros)
	}
}

const tempoDefaultMicros = 500000

// barIndexForTick approximates the bar index for a mid-sequence time
// signature change, since the SMF stream only carries absolute ticks.
func barIndexForTick(s *sequence.Sequence, tick int64) int {
	if s.TimesigMap.Len() == 0 {
		return 0
	}
	last := s.TimesigMap.At(s.TimesigMap.Len() - 1)
	if tick <= last.Tick {
		return last.BarIndex
	}
	span := int64(last.Numerator) * 4 * 480 / int64(last.Denominator)
	if span <= 0 {
		return last.BarIndex
	}
	return last.BarIndex + int((tick-last.Tick)/span)
}

// collectMetaText reassembles a track's "DM:nnnn:"-prefixed 0xFF 0x01
// meta events, in event order, strips each prefix, Shift_JIS-decodes the
// concatenated payload, and returns the UTF-8 text.
func collectMetaText(mtrk smf.Track) (string, error) {
	var raw bytes.Buffer
	for _, ev := range mtrk {
		var text string
		if !ev.Message.GetMetaText(&text) {
			continue
		}
		b := []byte(text)
		if bytes.HasPrefix(b, []byte("DM:")) {
			if j := bytes.IndexByte(b[3:], ':'); j >= 0 {
				b = b[3+j+1:]
			}
		}
		raw.Write(b)
	}
	dec := japanese.ShiftJIS.NewDecoder()
	out, err := dec.Bytes(raw.Bytes())
	if err != nil {
		return "", fmt.Errorf("smfcodec: decoding meta text: %w", vsqerr.ErrIO)
	}
	return string(out), nil
}

// sliceMetaText splits a Shift_JIS-encoded text body into 127-byte
// slices, each prefixed by its "DM:nnnn:" index, ready to be carried one
// per 0xFF 0x01 meta event. The caller is responsible for any trailing
// newline the body should carry; this function slices exactly the bytes
// it is given.
func sliceMetaText(body []byte) [][]byte {
	var out [][]byte
	buffer := append([]byte(nil), body...)

	count := 0
	for {
		prefix := linePrefix(count)
		if len(prefix)+len(buffer) < 127 {
			break
		}
		take := 127 - len(prefix)
		slice := append([]byte(prefix), buffer[:take]...)
		out = append(out, slice)
		buffer = buffer[take:]
		count++
	}
	prefix := linePrefix(count)
	out = append(out, append([]byte(prefix), buffer...))
	return out
}
