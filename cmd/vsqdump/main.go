// Command vsqdump reads a VOCALOID SMF (.vsq) file and prints a summary
// of its tracks, or creates a fresh blank sequence and writes it out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/OpenSynth/libvsq/sequence"
	"github.com/OpenSynth/libvsq/smfcodec"
)

func main() {
	newSinger := flag.String("new", "", "create a fresh sequence for the named singer instead of reading a file")
	out := flag.String("out", "", "write the (possibly newly created) sequence back out to this path")
	preMeasure := flag.Int("pre-measure", 1, "pre-measure length in bars, for -new")
	flag.Parse()

	var seq *sequence.Sequence

	if *newSinger != "" {
		seq = sequence.New(*newSinger, *preMeasure, 4, 4, 500000)
	} else {
		if flag.NArg() < 1 {
			fmt.Fprintf(os.Stderr, "Usage: %s [flags] <file.vsq>\n", os.Args[0])
			flag.PrintDefaults()
			os.Exit(1)
		}
		data, err := os.ReadFile(flag.Arg(0))
		if err != nil {
			log.Printf("Error reading file: %v\n", err)
			os.Exit(1)
		}
		seq, err = smfcodec.Read(data)
		if err != nil {
			log.Printf("Error parsing VSQ: %v\n", err)
			os.Exit(1)
		}
		printSummary(seq)
	}

	if *out != "" {
		data, err := smfcodec.Write(seq, smfcodec.MsPreSend)
		if err != nil {
			log.Printf("Error writing VSQ: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*out, data, 0o644); err != nil {
			log.Printf("Error writing %s: %v\n", *out, err)
			os.Exit(1)
		}
	}
}

func printSummary(seq *sequence.Sequence) {
	fmt.Printf("Tracks: %d\n", len(seq.Tracks))
	fmt.Printf("Total ticks: %d\n", seq.TotalTicks())
	fmt.Printf("Tempo changes: %d\n", seq.TempoMap.Len())
	fmt.Printf("Time signature changes: %d\n", seq.TimesigMap.Len())
	for i, t := range seq.Tracks {
		fmt.Printf("Track %d: %q (%s), %d events\n", i+1, t.Common.Name, t.Common.Version, t.Events.Len())
		for _, name := range t.CurveNames() {
			c := t.Curve(name)
			if c != nil && c.Size() > 0 {
				fmt.Printf("  curve %s: %d points\n", name, c.Size())
			}
		}
	}
}
