package nrpn

import (
	"testing"

	"github.com/OpenSynth/libvsq/event"
	"github.com/OpenSynth/libvsq/handle"
	"github.com/OpenSynth/libvsq/tempo"
	"github.com/OpenSynth/libvsq/track"
)

func TestExpand_FlattensFollowUpChainDepthFirstPreservingOrder(t *testing.T) {
	root := New(0, ParamNMNoteNumber, 60)
	root.Append(ParamNMVelocity, 100)
	root.Append(ParamNMNoteDuration, 200)

	flat := root.Expand()
	if len(flat) != 3 {
		t.Fatalf("Expand() = %d events, want 3", len(flat))
	}
	if flat[0].Param != ParamNMNoteNumber || flat[1].Param != ParamNMVelocity || flat[2].Param != ParamNMNoteDuration {
		t.Errorf("Expand() order = %v,%v,%v", flat[0].Param, flat[1].Param, flat[2].Param)
	}
}

func TestCompareTo_OrdersByTickAscendingThenAddressMsbDescending(t *testing.T) {
	a := Event{Tick: 0, Param: ParamBSVersionAndDevice} // msb 0x60
	b := Event{Tick: 0, Param: ParamNMVersionAndDevice}  // msb 0x61
	if a.CompareTo(b) <= 0 {
		t.Error("higher msb should sort before lower msb at equal tick")
	}

	early := Event{Tick: 0, Param: ParamNMVersionAndDevice}
	late := Event{Tick: 480, Param: ParamBSVersionAndDevice}
	if early.CompareTo(late) >= 0 {
		t.Error("earlier tick should sort first regardless of address")
	}
}

func TestConvert_OmitsMsbSelectOnFollowUpWithSameAddress(t *testing.T) {
	root := New(0, ParamNMNoteNumber, 60)
	root.AppendOmit(ParamNMVelocity, 100, true)

	cc := Convert(root.Expand())
	// root: 0x63,0x62,0x06 ; follow-up (omitted msb): 0x62,0x06
	if len(cc) != 5 {
		t.Fatalf("Convert() = %d events, want 5", len(cc))
	}
	if cc[0].Controller != 0x63 {
		t.Errorf("cc[0].Controller = %#x, want 0x63", cc[0].Controller)
	}
	if cc[3].Controller == 0x63 {
		t.Error("follow-up re-emitted CC 0x63 despite OmitMSB=true")
	}
}

func TestConvert_ReemitsMsbWhenNotOmitted(t *testing.T) {
	root := New(0, ParamNMNoteNumber, 60)
	root.Append(ParamVDVersionAndDevice, 0) // different msb block, omit=false

	cc := Convert(root.Expand())
	var msbCount int
	for _, c := range cc {
		if c.Controller == 0x63 {
			msbCount++
		}
	}
	if msbCount != 2 {
		t.Errorf("msb select count = %d, want 2", msbCount)
	}
}

func TestSplitMsbLsb_SaturatesAboveFourteenBits(t *testing.T) {
	msb, lsb := SplitMsbLsb(0x4000)
	if msb != 0x7f || lsb != 0x7f {
		t.Errorf("SplitMsbLsb(0x4000) = (%#x,%#x), want (0x7f,0x7f)", msb, lsb)
	}
}

func TestSplitMsbLsb_SplitsWithinRange(t *testing.T) {
	msb, lsb := SplitMsbLsb(0x3fff)
	if msb != 0x7f || lsb != 0x7f {
		t.Errorf("SplitMsbLsb(0x3fff) = (%#x,%#x), want (0x7f,0x7f)", msb, lsb)
	}
	msb, lsb = SplitMsbLsb(128)
	if msb != 1 || lsb != 0 {
		t.Errorf("SplitMsbLsb(128) = (%d,%d), want (1,0)", msb, lsb)
	}
}

func TestGenerateNoteNRPN_VibratoConfigMatchesSpecScenario(t *testing.T) {
	var tm tempo.Map
	tm.Set(0, 500000)
	tr := track.New("Voice1", "Miku")

	note := event.NewNote(480)
	note.Length = 480
	note.VibratoDelay = 0
	note.VibratoHandle = &handle.Handle{Kind: handle.KindVibrato, IconID: "$07020011"}

	add, _ := generateNoteNRPN(tr, &tm, note, 0, 0x03, 0)
	flat := add.Expand()

	var gotType, gotDuration, gotDelay = -1, -1, -1
	for _, e := range flat {
		switch e.Param {
		case ParamNMVibratoConfig:
			gotType, gotDuration = e.DataMSB, e.DataLSB
		case ParamNMVibratoDelay:
			gotDelay = e.DataMSB
		}
	}
	if gotType != 0x11 {
		t.Errorf("vibrato config type = %#x, want 0x11", gotType)
	}
	if gotDuration != 127 {
		t.Errorf("vibrato config duration = %d, want 127", gotDuration)
	}
	if gotDelay != 0 {
		t.Errorf("vibrato delay byte = %d, want 0", gotDelay)
	}
}

// decodeNrpnStream replays a ControlChange stream through the 0x63/0x62/
// 0x06/0x26 NRPN protocol and returns every (msb,lsb)->dataMSB observed,
// in emission order.
type decodedNrpn struct {
	msb, lsb, dataMSB int
}

func decodeNrpnStream(cc []ControlChange) []decodedNrpn {
	var out []decodedNrpn
	msb, lsb := 0, 0
	for _, c := range cc {
		switch c.Controller {
		case 0x63:
			msb = int(c.Value)
		case 0x62:
			lsb = int(c.Value)
		case 0x06:
			out = append(out, decodedNrpn{msb, lsb, int(c.Value)})
		}
	}
	return out
}

func TestGenerate_NoteLocationReflectsAdjacency(t *testing.T) {
	var tm tempo.Map
	tr := track.New("Voice1", "Miku")

	n1 := event.NewNote(480)
	n1.Length = 240
	n2 := event.NewNote(720)
	n2.Length = 240
	tr.Events.Add(n1)
	tr.Events.Add(n2)

	cc := Generate(tr, &tm, 2000, 0)
	decoded := decodeNrpnStream(cc)

	const noteLocationMsb = 0x61
	const noteLocationLsb = 0x05 // ParamNMNoteLocation & 0xff
	var locations []int
	for _, d := range decoded {
		if d.msb == noteLocationMsb && d.lsb == noteLocationLsb {
			locations = append(locations, d.dataMSB)
		}
	}
	if len(locations) != 2 {
		t.Fatalf("found %d NoteLocation entries, want 2: %v", len(locations), decoded)
	}
	if locations[0] != 0x02 {
		t.Errorf("first note location = %#x, want 0x02 (no preceding note)", locations[0])
	}
	if locations[1] != 0x01 {
		t.Errorf("second note location = %#x, want 0x01 (abuts preceding note)", locations[1])
	}
}
