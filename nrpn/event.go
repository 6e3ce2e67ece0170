// Package nrpn implements the VOCALOID NRPN (Non-Registered Parameter
// Number) factory: translating a track's notes, singer changes and
// control curves into a densely-ordered stream of MIDI control-change
// events consumed by the VOCALOID synthesis engine.
package nrpn

import "sort"

// Param is a 14-bit NRPN address: the high byte is the MSB controller
// value (CC 0x63), the low byte is the LSB controller value (CC 0x62).
type Param uint16

func (p Param) msb() int { return int(p>>8) & 0xff }
func (p Param) lsb() int { return int(p) & 0xff }

// Event is a composite NRPN: a base address/value triple plus a chain of
// follow-up Events appended in source order. Expand flattens the chain
// into atomic events without requiring any cross-event mutable state
// during the final sort, mirroring the original NrpnEvent's _list field.
type Event struct {
	Tick         int64
	Param        Param
	DataMSB      int
	DataLSB      int
	HasLSB       bool
	OmitMSB      bool
	followups    []Event
}

// New returns a single-byte-data NRPN at tick.
func New(tick int64, p Param, dataMSB int) Event {
	return Event{Tick: tick, Param: p, DataMSB: dataMSB}
}

// NewLSB returns a two-byte-data NRPN at tick.
func NewLSB(tick int64, p Param, dataMSB, dataLSB int) Event {
	return Event{Tick: tick, Param: p, DataMSB: dataMSB, DataLSB: dataLSB, HasLSB: true}
}

// Append adds a single-byte follow-up.
func (e *Event) Append(p Param, dataMSB int) {
	e.followups = append(e.followups, New(e.Tick, p, dataMSB))
}

// AppendLSB adds a two-byte follow-up.
func (e *Event) AppendLSB(p Param, dataMSB, dataLSB int) {
	e.followups = append(e.followups, NewLSB(e.Tick, p, dataMSB, dataLSB))
}

// AppendOmit adds a single-byte follow-up whose MSB-select event is
// suppressed on expand when omit holds, letting the writer skip CC 0x63
// when two successive atomic NRPNs share the same address MSB.
func (e *Event) AppendOmit(p Param, dataMSB int, omit bool) {
	v := New(e.Tick, p, dataMSB)
	v.OmitMSB = omit
	e.followups = append(e.followups, v)
}

// AppendLSBOmit is AppendOmit for two-byte data.
func (e *Event) AppendLSBOmit(p Param, dataMSB, dataLSB int, omit bool) {
	v := NewLSB(e.Tick, p, dataMSB, dataLSB)
	v.OmitMSB = omit
	e.followups = append(e.followups, v)
}

// Expand flattens e and its follow-up chain into atomic Events,
// depth-first, preserving append order.
func (e Event) Expand() []Event {
	self := e
	self.followups = nil
	out := []Event{self}
	for _, f := range e.followups {
		out = append(out, f.Expand()...)
	}
	return out
}

// CompareTo orders by (tick ascending, address-MSB descending), the
// ordering used before flattening a generated list.
func (e Event) CompareTo(o Event) int {
	if e.Tick != o.Tick {
		if e.Tick < o.Tick {
			return -1
		}
		return 1
	}
	return o.Param.msb() - e.Param.msb()
}

// SortStable sorts list by CompareTo, preserving relative order of equal
// elements as the original's std::stable_sort does.
func SortStable(list []Event) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].CompareTo(list[j]) < 0 })
}

// ControlChange is one atomic MIDI control-change event: always channel
// 0, status 0xB0, addressed by controller number with a 7-bit value.
type ControlChange struct {
	Tick       int64
	Controller byte
	Value      byte
}

// Convert flattens a sorted, already-expanded atomic Event list into the
// CC 0x63/0x62/0x06/0x26 stream, applying the MSB-omission rule: the
// second and later atomic events emit CC 0x63 only when OmitMSB is
// false.
func Convert(atomic []Event) []ControlChange {
	if len(atomic) == 0 {
		return nil
	}
	var out []ControlChange
	first := atomic[0]
	out = append(out,
		ControlChange{first.Tick, 0x63, byte(first.Param.msb())},
		ControlChange{first.Tick, 0x62, byte(first.Param.lsb())},
		ControlChange{first.Tick, 0x06, byte(first.DataMSB)},
	)
	if first.HasLSB {
		out = append(out, ControlChange{first.Tick, 0x26, byte(first.DataLSB)})
	}
	for _, item := range atomic[1:] {
		if !item.OmitMSB {
			out = append(out, ControlChange{item.Tick, 0x63, byte(item.Param.msb())})
		}
		out = append(out,
			ControlChange{item.Tick, 0x62, byte(item.Param.lsb())},
			ControlChange{item.Tick, 0x06, byte(item.DataMSB)},
		)
		if item.HasLSB {
			out = append(out, ControlChange{item.Tick, 0x26, byte(item.DataLSB)})
		}
	}
	return out
}

// SplitMsbLsb decomposes a 14-bit data value into (msb,lsb), saturating
// to (0x7f,0x7f) when the value exceeds 0x3fff.
func SplitMsbLsb(value int) (msb, lsb int) {
	if value > 0x3fff {
		return 0x7f, 0x7f
	}
	msb = (value >> 7) & 0xff
	lsb = value - (msb << 7)
	return msb, lsb
}
