package smfcodec

import (
	"bytes"
	"strings"
	"testing"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/OpenSynth/libvsq/sequence"
)

func TestLinePrefix_WidensInFourDigitGroups(t *testing.T) {
	if got := linePrefix(0); got != "DM:0000:" {
		t.Errorf("linePrefix(0) = %q, want DM:0000:", got)
	}
	if got := linePrefix(9999); got != "DM:9999:" {
		t.Errorf("linePrefix(9999) = %q, want DM:9999:", got)
	}
	if got := linePrefix(10000); got != "DM:00010000:" {
		t.Errorf("linePrefix(10000) = %q, want DM:00010000:", got)
	}
}

func TestSliceMetaText_TwoHundredBytesOfXProducesTwoSlices(t *testing.T) {
	body := bytes.Repeat([]byte("X"), 200)
	slices := sliceMetaText(body)
	if len(slices) != 2 {
		t.Fatalf("sliceMetaText produced %d slices, want 2", len(slices))
	}
	if len(slices[0]) != 127 {
		t.Errorf("slice 0 length = %d, want 127", len(slices[0]))
	}
	if !bytes.HasPrefix(slices[0], []byte("DM:0000:")) {
		t.Errorf("slice 0 prefix = %q, want DM:0000:", slices[0][:8])
	}
	if !bytes.HasPrefix(slices[1], []byte("DM:0001:")) {
		t.Errorf("slice 1 prefix = %q, want DM:0001:", slices[1][:8])
	}
	// slice 0 = 8-byte prefix + 119 'X' bytes = 127; slice 1 holds the
	// remaining 81 'X' bytes (200-119).
	wantRemaining := 200 - 119
	if got := len(slices[1]) - len("DM:0001:"); got != wantRemaining {
		t.Errorf("slice 1 body length = %d, want %d remaining X bytes", got, wantRemaining)
	}
}

func TestEncodeShiftJIS_RoundTripsAsciiText(t *testing.T) {
	encoded, err := encodeShiftJIS("Hello=World\n")
	if err != nil {
		t.Fatalf("encodeShiftJIS: %v", err)
	}
	if string(encoded) != "Hello=World\n" {
		t.Errorf("encodeShiftJIS(ascii) = %q, want unchanged ascii", encoded)
	}
}

func TestWrite_EmptySequenceMasterTrackContents(t *testing.T) {
	s := sequence.New("Miku", 1, 4, 4, 500000)
	data, err := Write(s, MsPreSend)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	midiFile, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("smf.ReadFrom(written data): %v", err)
	}
	if len(midiFile.Tracks) != 2 {
		t.Fatalf("len(Tracks) = %d, want 2 (master + 1 voice track)", len(midiFile.Tracks))
	}

	master := midiFile.Tracks[0]
	var sawName, sawTempo, sawTimeSig, sawEOT bool
	for _, ev := range master {
		var name string
		var bpm float64
		var num, denom uint8
		switch {
		case ev.Message.GetMetaTrackName(&name):
			if name == "Master Track" {
				sawName = true
			}
		case ev.Message.GetMetaTempo(&bpm):
			if bpm == 120 {
				sawTempo = true
			}
		case ev.Message.GetMetaTimeSig(&num, &denom, nil, nil):
			if num == 4 && denom == 4 {
				sawTimeSig = true
			}
		}
		if bytes.Equal([]byte(ev.Message), []byte(smf.EOT)) {
			sawEOT = true
		}
	}
	if !sawName || !sawTempo || !sawTimeSig || !sawEOT {
		t.Errorf("master track missing expected events: name=%v tempo=%v timesig=%v eot=%v", sawName, sawTempo, sawTimeSig, sawEOT)
	}
}

func TestWriteThenRead_RoundTripsTempoAndTimesig(t *testing.T) {
	s := sequence.New("Miku", 1, 4, 4, 500000)
	data, err := Write(s, MsPreSend)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Read(data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.TempoMap.Len() != 1 || got.TempoMap.TempoAt(0) != 500000 {
		t.Errorf("TempoMap = %+v, want one entry of 500000", got.TempoMap)
	}
	if got.TimesigMap.Len() != 1 || got.TimesigMap.At(0).Numerator != 4 || got.TimesigMap.At(0).Denominator != 4 {
		t.Errorf("TimesigMap = %+v, want one entry of 4/4", got.TimesigMap)
	}
	if len(got.Tracks) != 1 {
		t.Fatalf("len(Tracks) = %d, want 1", len(got.Tracks))
	}
	if got.Tracks[0].Common.Name != "Voice1" {
		t.Errorf("Tracks[0].Common.Name = %q, want Voice1", got.Tracks[0].Common.Name)
	}
}

func TestCollectMetaText_ReassemblesSlicedPrefixedPayload(t *testing.T) {
	body := strings.Repeat("Y", 200) + "\n"
	slices := sliceMetaText([]byte(body))

	track := smf.Track{}
	for _, sl := range slices {
		track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaText(string(sl)))})
	}

	got, err := collectMetaText(track)
	if err != nil {
		t.Fatalf("collectMetaText: %v", err)
	}
	if got != body {
		t.Errorf("collectMetaText round trip = %q, want %q", got, body)
	}
}
