// Package event implements Event and EventList: the timestamped Note,
// Singer and Icon records that make up a Track's score, indexed by a
// stable internal id and ordered for both meta-text and NRPN emission.
package event

import (
	"sort"

	"github.com/OpenSynth/libvsq/handle"
)

// Kind discriminates the three event flavours. The numeric order below
// (Singer < Note < Icon) is the tie-break used when two events share a
// tick; it is this package's own choice, documented here and held
// constant across releases, since the original enum's declaration order
// is not guaranteed stable (spec.md §9).
type Kind int

const (
	KindSinger Kind = iota
	KindNote
	KindIcon
)

func (k Kind) String() string {
	switch k {
	case KindSinger:
		return "Singer"
	case KindNote:
		return "Anote"
	case KindIcon:
		return "Aicon"
	default:
		return "Unknown"
	}
}

// MaxNoteMillisecLength mirrors the original's MAX_NOTE_MILLISEC_LENGTH,
// the largest note duration (in ms) a single VOCALOID duration NRPN field
// can encode.
const MaxNoteMillisecLength = 16383

// MaxNoteNumber and MinNoteNumber bound Event.Note.
const (
	MaxNoteNumber = 127
	MinNoteNumber = 0
)

// Event is one entry in a Track's score.
type Event struct {
	Tick   int64
	Kind   Kind
	ID     int
	Length int64

	// Note fields.
	Note                int
	Dynamics            int
	PMBendDepth         int
	PMBendLength        int
	PMbPortamentoUse    int
	DEMDecGainRate      int
	DEMAccent           int
	VibratoDelay        int
	D4Mean              int
	PMeanOnsetFirstNote int
	VMeanNoteTransition int
	PMeanEndingNote     int

	LyricHandle    *handle.Handle
	VibratoHandle  *handle.Handle
	NoteHeadHandle *handle.Handle

	// Singer fields.
	SingerHandle *handle.Handle

	// Icon fields.
	IconDynamicsHandle *handle.Handle
}

// NewNote returns a Note event with the original's defaults: dynamics 64,
// pmBendDepth 8, demDecGainRate/demAccent 50, a single "a" lyric.
func NewNote(tick int64) *Event {
	return &Event{
		Tick:                tick,
		Kind:                KindNote,
		Dynamics:            64,
		PMBendDepth:         8,
		DEMDecGainRate:      50,
		DEMAccent:           50,
		PMeanOnsetFirstNote: 10,
		VMeanNoteTransition: 12,
		D4Mean:              24,
		PMeanEndingNote:     12,
		LyricHandle: &handle.Handle{
			Kind:   handle.KindLyric,
			Lyrics: []handle.LyricEntry{{Phrase: "a", Symbols: []string{"a"}, ConsonantAdjustment: []int{0}}},
		},
	}
}

// IsEOS reports whether this is the EventList's end-of-sequence sentinel.
func (e *Event) IsEOS() bool { return e.ID == -1 }

// CompareTo orders by (tick, kind): the ordering compare(a,b) of spec.md
// §4.3.
func (e *Event) CompareTo(o *Event) int {
	if e.Tick != o.Tick {
		if e.Tick < o.Tick {
			return -1
		}
		return 1
	}
	return int(e.Kind) - int(o.Kind)
}

// List is an ordered collection of Events, sorted by (tick, kind). It
// keeps no index from internal id to event: Get and Remove find an event
// by id with a linear scan.
type List struct {
	events []*Event
	nextID int
}

// Add appends e, assigns it the next internal id, and keeps the list
// sorted.
func (l *List) Add(e *Event) {
	e.ID = l.nextID
	l.nextID++
	l.events = append(l.events, e)
	l.sortStable()
}

func (l *List) sortStable() {
	sort.SliceStable(l.events, func(i, j int) bool {
		return l.events[i].CompareTo(l.events[j]) < 0
	})
}

// Remove deletes the event with the given internal id, if present.
func (l *List) Remove(id int) {
	for i, e := range l.events {
		if e.ID == id {
			l.events = append(l.events[:i], l.events[i+1:]...)
			return
		}
	}
}

// Get returns the event with internal id, or nil.
func (l *List) Get(id int) *Event {
	for _, e := range l.events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// Len returns the number of events.
func (l *List) Len() int { return len(l.events) }

// At returns the i-th event in (tick, kind) order.
func (l *List) At(i int) *Event { return l.events[i] }

// All returns the events in (tick, kind) order.
func (l *List) All() []*Event { return l.events }

// FirstSingerAtOrBefore returns the latest Singer event with Tick <= tick,
// or nil if none precedes it.
func (l *List) FirstSingerAtOrBefore(tick int64) *Event {
	var found *Event
	for _, e := range l.events {
		if e.Kind != KindSinger || e.Tick > tick {
			continue
		}
		if found == nil || e.Tick > found.Tick {
			found = e
		}
	}
	return found
}

// Clone returns a deep copy.
func (l *List) Clone() *List {
	c := &List{nextID: l.nextID}
	for _, e := range l.events {
		ce := *e
		if e.LyricHandle != nil {
			ce.LyricHandle = e.LyricHandle.Clone()
		}
		if e.VibratoHandle != nil {
			ce.VibratoHandle = e.VibratoHandle.Clone()
		}
		if e.NoteHeadHandle != nil {
			ce.NoteHeadHandle = e.NoteHeadHandle.Clone()
		}
		if e.SingerHandle != nil {
			ce.SingerHandle = e.SingerHandle.Clone()
		}
		if e.IconDynamicsHandle != nil {
			ce.IconDynamicsHandle = e.IconDynamicsHandle.Clone()
		}
		c.events = append(c.events, &ce)
	}
	return c
}
