// Package audio assembles per-batch synthesis output into one playable
// artifact and estimates spoken duration from word counts.
package audio

import "github.com/mindsphere/mindsphere/internal/plan"

// minDurationSec is the floor for very short scripts.
const minDurationSec = 30

// EstimateDuration converts a word count into seconds of spoken audio
// using the per-kind speaking pace.
func EstimateDuration(wordCount int, kind plan.Kind) int {
	sec := wordCount * 60 / kind.WordsPerMinute()
	if sec < minDurationSec {
		return minDurationSec
	}
	return sec
}

// Stitch concatenates batch buffers in order into a single artifact.
// MP3 frames are self-delimiting, so byte concatenation of the encoded
// batches yields a continuous playable stream.
func Stitch(buffers [][]byte) []byte {
	var total int
	for _, b := range buffers {
		total += len(b)
	}
	out := make([]byte, 0, total)
	for _, b := range buffers {
		out = append(out, b...)
	}
	return out
}
