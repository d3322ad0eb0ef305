// Package ssml models the markup documents accepted by the speech
// synthesizer: a single <speak> root wrapping prosody, paragraph and
// sentence containers, bounded by the synthesizer's request byte ceiling.
package ssml

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	// HardByteLimit is the synthesizer's documented request ceiling.
	HardByteLimit = 5000
	// WorkingByteLimit is the conservative target the splitter packs to,
	// leaving margin for synthesizer encoding overhead.
	WorkingByteLimit = 4000
	// BatchByteLimit is the ceiling applied to freshly generated batches.
	BatchByteLimit = 4500
)

var (
	ErrNoRoot    = errors.New("markup missing <speak> root")
	ErrNoProsody = errors.New("markup missing prosody container")
	ErrTooLarge  = errors.New("markup exceeds byte ceiling")
)

var (
	fencedBlockRe = regexp.MustCompile("```[\\s\\S]*?```")
	speakRe       = regexp.MustCompile(`(?s)<speak>(.*?)</speak>`)
	tagRe         = regexp.MustCompile(`<[^>]+>`)
)

// Document is a validated markup document. The zero value is empty and
// invalid; construct through Normalize or the splitter.
type Document struct {
	inner string
}

// Normalize validates raw generated output and re-wraps it canonically.
// It strips fenced code-block wrapping, requires exactly one <speak> root
// and at least one prosody container, and enforces the hard byte ceiling.
// Failures are hard errors; there is no retry or silent fallback here.
func Normalize(raw string) (Document, error) {
	cleaned := fencedBlockRe.ReplaceAllString(raw, "")

	match := speakRe.FindStringSubmatch(cleaned)
	if match == nil {
		return Document{}, ErrNoRoot
	}
	inner := strings.TrimSpace(match[1])

	if !strings.Contains(inner, "<prosody") || !strings.Contains(inner, "</prosody>") {
		return Document{}, ErrNoProsody
	}

	doc := Document{inner: inner}
	if size := doc.ByteSize(); size > HardByteLimit {
		return Document{}, fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return doc, nil
}

// Inner returns the content between the canonical root tags.
func (d Document) Inner() string {
	return d.inner
}

// String returns the canonical serialized form.
func (d Document) String() string {
	return wrap(d.inner)
}

// ByteSize is the serialized size counted against the synthesis ceiling.
func (d Document) ByteSize() int {
	return len(d.String())
}

// WordCount counts spoken words, ignoring markup tags.
func (d Document) WordCount() int {
	text := tagRe.ReplaceAllString(d.inner, " ")
	return len(strings.Fields(text))
}

// IsZero reports whether the document holds no content.
func (d Document) IsZero() bool {
	return d.inner == ""
}

func wrap(inner string) string {
	return "<speak>\n" + inner + "\n</speak>"
}
