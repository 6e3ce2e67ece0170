// Package handle implements Handle, the polymorphic sub-record referenced
// by index from Events and other Handles: singer icons, lyrics, vibrato
// curves, note-head articulations and dynamics markers all share the one
// tagged-variant type, with the codec dispatching on Kind.
package handle

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenSynth/libvsq/bpoint"
)

// Kind discriminates which variant's fields are meaningful.
type Kind int

const (
	KindSinger Kind = iota
	KindLyric
	KindVibrato
	KindNoteHead
	KindDynamics
)

// Dynamics sub-kind icon-id prefixes, per spec.md §4.9 / §9: the Dynamics
// variant's iconId prefix further discriminates dynaff/crescendo/
// decrescendo markers.
const (
	IconPrefixDynaff      = "$0501"
	IconPrefixCrescendo   = "$0502"
	IconPrefixDecrescendo = "$0503"
)

// LyricEntry is one phrase/phoneme line owned by a Lyric-kind Handle.
type LyricEntry struct {
	Phrase              string
	Symbols             []string
	ConsonantAdjustment []int
	Protected           bool
}

// Validate reports whether Symbols and ConsonantAdjustment are the same
// length, the invariant spec.md §3 requires.
func (l LyricEntry) Validate() bool {
	return len(l.Symbols) == len(l.ConsonantAdjustment)
}

// String renders the L#= value: "phrase","symbol1 symbol2 …",adj1,adj2,…,prot
// Quoting with ASCII '"' is applied only when quote holds.
func (l LyricEntry) String(quote bool) string {
	q := func(s string) string {
		if quote {
			return `"` + s + `"`
		}
		return s
	}
	var b strings.Builder
	b.WriteString(q(l.Phrase))
	b.WriteString(",")
	b.WriteString(q(strings.Join(l.Symbols, " ")))
	for _, adj := range l.ConsonantAdjustment {
		b.WriteString(",")
		b.WriteString(strconv.Itoa(adj))
	}
	if l.Protected {
		b.WriteString(",1")
	} else {
		b.WriteString(",0")
	}
	return b.String()
}

// Handle is the shared record type for every variant; only the fields
// relevant to Kind are populated and only those are emitted on write.
type Handle struct {
	Kind Kind

	Index    int
	IconID   string
	IDS      string
	Original int
	Caption  string
	Length   int64

	// Singer
	Language int
	Program  int

	// Lyric
	Lyrics       []LyricEntry
	QuoteOnWrite bool

	// Vibrato
	StartDepth int
	DepthBP    *bpoint.VibratoCurve
	StartRate  int
	RateBP     *bpoint.VibratoCurve

	// NoteHead
	Duration int
	Depth    int

	// Dynamics
	StartDyn int
	EndDyn   int
	DynBP    *bpoint.VibratoCurve
}

// DynamicsKind returns which of Dynaff/Crescendo/Decrescendo this Dynamics
// Handle represents, based on its IconID prefix.
func (h *Handle) DynamicsKind() string {
	switch {
	case strings.HasPrefix(h.IconID, IconPrefixCrescendo):
		return "crescendo"
	case strings.HasPrefix(h.IconID, IconPrefixDecrescendo):
		return "decrescendo"
	default:
		return "dynaff"
	}
}

// Clone returns a deep copy.
func (h *Handle) Clone() *Handle {
	c := *h
	c.Lyrics = append([]LyricEntry(nil), h.Lyrics...)
	if h.DepthBP != nil {
		c.DepthBP = h.DepthBP.Clone()
	}
	if h.RateBP != nil {
		c.RateBP = h.RateBP.Clone()
	}
	if h.DynBP != nil {
		c.DynBP = h.DynBP.Clone()
	}
	return &c
}

func curveXLine(key string, c *bpoint.VibratoCurve) string {
	var b strings.Builder
	b.WriteString(key)
	for i := 0; i < c.Size(); i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("%.6f", c.At(i).X))
	}
	return b.String()
}

func curveYLine(key string, c *bpoint.VibratoCurve) string {
	var b strings.Builder
	b.WriteString(key)
	for i := 0; i < c.Size(); i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(strconv.Itoa(c.At(i).Y))
	}
	return b.String()
}

// Lines renders the handle's "[h#NNNN]" header plus its kind-specific
// Key=Value body, in the field order the original writer uses.
func (h *Handle) Lines() []string {
	out := []string{fmt.Sprintf("[h#%04d]", h.Index)}
	switch h.Kind {
	case KindLyric:
		for i, l := range h.Lyrics {
			out = append(out, fmt.Sprintf("L%d=%s", i, l.String(h.QuoteOnWrite)))
		}
	case KindVibrato:
		out = append(out,
			"IconID="+h.IconID,
			"IDS="+h.IDS,
			"Original="+strconv.Itoa(h.Original),
			"Caption="+h.Caption,
			fmt.Sprintf("Length=%d", h.Length),
			fmt.Sprintf("StartDepth=%d", h.StartDepth),
			fmt.Sprintf("DepthBPNum=%d", depthBPSize(h.DepthBP)),
		)
		if h.DepthBP != nil && h.DepthBP.Size() > 0 {
			out = append(out, curveXLine("DepthBPX=", h.DepthBP), curveYLine("DepthBPY=", h.DepthBP))
		}
		out = append(out,
			fmt.Sprintf("StartRate=%d", h.StartRate),
			fmt.Sprintf("RateBPNum=%d", depthBPSize(h.RateBP)),
		)
		if h.RateBP != nil && h.RateBP.Size() > 0 {
			out = append(out, curveXLine("RateBPX=", h.RateBP), curveYLine("RateBPY=", h.RateBP))
		}
	case KindSinger:
		out = append(out,
			"IconID="+h.IconID,
			"IDS="+h.IDS,
			"Original="+strconv.Itoa(h.Original),
			"Caption="+h.Caption,
			fmt.Sprintf("Length=%d", h.Length),
			fmt.Sprintf("Language=%d", h.Language),
			fmt.Sprintf("Program=%d", h.Program),
		)
	case KindNoteHead:
		out = append(out,
			"IconID="+h.IconID,
			"IDS="+h.IDS,
			"Original="+strconv.Itoa(h.Original),
			"Caption="+h.Caption,
			fmt.Sprintf("Length=%d", h.Length),
			fmt.Sprintf("Duration=%d", h.Duration),
			fmt.Sprintf("Depth=%d", h.Depth),
		)
	case KindDynamics:
		out = append(out,
			"IconID="+h.IconID,
			"IDS="+h.IDS,
			"Original="+strconv.Itoa(h.Original),
			"Caption="+h.Caption,
			fmt.Sprintf("StartDyn=%d", h.StartDyn),
			fmt.Sprintf("EndDyn=%d", h.EndDyn),
			fmt.Sprintf("Length=%d", h.Length),
			fmt.Sprintf("DynBPNum=%d", depthBPSize(h.DynBP)),
		)
		if h.DynBP != nil && h.DynBP.Size() > 0 {
			out = append(out, curveXLine("DynBPX=", h.DynBP), curveYLine("DynBPY=", h.DynBP))
		}
	}
	return out
}

func depthBPSize(c *bpoint.VibratoCurve) int {
	if c == nil {
		return 0
	}
	return c.Size()
}

// ParseField applies one Key=Value pair from a [h#NNNN] section to h,
// inferring Kind from whichever discriminating key is last seen, per
// spec.md §4.2 and §9 ("ambiguous documents adopt the last inference").
// Unknown keys are ignored.
func (h *Handle) ParseField(key, value string) {
	switch {
	case strings.HasPrefix(key, "L") && isDigits(key[1:]):
		h.Kind = KindLyric
		h.Lyrics = append(h.Lyrics, parseLyricValue(value))
		return
	}
	switch key {
	case "IconID":
		h.IconID = value
	case "IDS":
		h.IDS = value
	case "Original":
		h.Original = atoi(value)
	case "Caption":
		h.Caption = value
	case "Length":
		h.Length = int64(atoi(value))
	case "Language":
		h.Kind = KindSinger
		h.Language = atoi(value)
	case "Program":
		h.Program = atoi(value)
	case "StartDepth":
		h.Kind = KindVibrato
		h.StartDepth = atoi(value)
	case "StartRate":
		h.Kind = KindVibrato
		h.StartRate = atoi(value)
	case "Duration":
		h.Kind = KindNoteHead
		h.Duration = atoi(value)
	case "Depth":
		h.Depth = atoi(value)
	case "StartDyn":
		h.Kind = KindDynamics
		h.StartDyn = atoi(value)
	case "EndDyn":
		h.Kind = KindDynamics
		h.EndDyn = atoi(value)
	case "DepthBPX":
		h.applyCurveX(&h.DepthBP, value)
	case "DepthBPY":
		h.applyCurveY(&h.DepthBP, value)
	case "RateBPX":
		h.applyCurveX(&h.RateBP, value)
	case "RateBPY":
		h.applyCurveY(&h.RateBP, value)
	case "DynBPX":
		h.applyCurveX(&h.DynBP, value)
	case "DynBPY":
		h.applyCurveY(&h.DynBP, value)
	}
}

func (h *Handle) applyCurveX(c **bpoint.VibratoCurve, value string) {
	xs := splitFloats(value)
	if *c == nil {
		*c = &bpoint.VibratoCurve{}
	}
	for _, x := range xs {
		(*c).Add(x, 0)
	}
}

func (h *Handle) applyCurveY(c **bpoint.VibratoCurve, value string) {
	ys := splitInts(value)
	if *c == nil {
		*c = &bpoint.VibratoCurve{}
	}
	for i, y := range ys {
		if i < (*c).Size() {
			pt := (*c).At(i)
			pt.Y = y
			// VibratoCurve exposes no in-place setter; rebuild via Add order.
			replaceCurvePoint(*c, i, pt.X, y)
		}
	}
}

func replaceCurvePoint(c *bpoint.VibratoCurve, i int, x float64, y int) {
	rebuilt := &bpoint.VibratoCurve{}
	for j := 0; j < c.Size(); j++ {
		p := c.At(j)
		if j == i {
			rebuilt.Add(x, y)
		} else {
			rebuilt.Add(p.X, p.Y)
		}
	}
	*c = *rebuilt
}

func parseLyricValue(value string) LyricEntry {
	fields := splitQuotedCSV(value)
	var entry LyricEntry
	if len(fields) > 0 {
		entry.Phrase = fields[0]
	}
	if len(fields) > 1 {
		for _, s := range strings.Fields(fields[1]) {
			entry.Symbols = append(entry.Symbols, s)
		}
	}
	for i := 2; i < len(fields)-1; i++ {
		entry.ConsonantAdjustment = append(entry.ConsonantAdjustment, atoi(fields[i]))
	}
	if len(fields) > 2 {
		entry.Protected = fields[len(fields)-1] == "1"
	}
	return entry
}

// splitQuotedCSV splits on commas outside of matching '"' pairs, and
// strips any surrounding quotes from each field.
func splitQuotedCSV(s string) []string {
	var fields []string
	var cur strings.Builder
	inQuote := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, cur.String())
	return fields
}

func splitFloats(s string) []float64 {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, _ := strconv.ParseFloat(strings.TrimSpace(p), 64)
		out = append(out, f)
	}
	return out
}

func splitInts(s string) []int {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		out = append(out, atoi(strings.TrimSpace(p)))
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
