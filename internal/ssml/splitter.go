package ssml

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrSplit reports that a document could not be repartitioned into valid
// segments. Callers treat this as fatal rather than forwarding oversized
// markup to the synthesizer.
var ErrSplit = errors.New("segment split failed")

var (
	paragraphBoundaryRe = regexp.MustCompile(`</p>\s*<p>`)
	leadingParaTagRe    = regexp.MustCompile(`^<p[^>]*>`)
	trailingParaTagRe   = regexp.MustCompile(`</p>$`)
	prosodyTagRe        = regexp.MustCompile(`</?prosody[^>]*>`)
)

// Split repartitions a document that exceeds limit into byte-bounded
// segments without breaking structural nesting. Paragraph containers are
// the split unit: prosody scopes are flattened, paragraphs accumulate
// greedily, and a segment closes just before the paragraph whose addition
// would push the re-wrapped segment past limit. Every closed segment is
// re-wrapped in the default prosody container and validated again; a
// single invalid segment fails the whole split.
func Split(doc Document, limit int) ([]Document, error) {
	if limit <= 0 || limit > HardByteLimit {
		limit = WorkingByteLimit
	}
	if doc.ByteSize() <= limit {
		return []Document{doc}, nil
	}

	paragraphs := splitParagraphs(prosodyTagRe.ReplaceAllString(doc.Inner(), ""))

	var segments []string
	var current string
	for _, paragraph := range paragraphs {
		candidate := joinParagraph(current, paragraph)
		if len(closeSegment(candidate)) > limit && current != "" {
			segments = append(segments, closeSegment(current))
			current = paragraph
			continue
		}
		current = candidate
	}
	if current != "" {
		segments = append(segments, closeSegment(current))
	}

	out := make([]Document, 0, len(segments))
	for i, segment := range segments {
		validated, err := Normalize(segment)
		if err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrSplit, i+1, err)
		}
		if size := validated.ByteSize(); size > HardByteLimit {
			return nil, fmt.Errorf("%w: segment %d is %d bytes", ErrSplit, i+1, size)
		}
		out = append(out, validated)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no segments produced", ErrSplit)
	}
	return out, nil
}

func splitParagraphs(inner string) []string {
	parts := paragraphBoundaryRe.Split(strings.TrimSpace(inner), -1)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if i == 0 {
			part = leadingParaTagRe.ReplaceAllString(part, "")
		}
		if i == len(parts)-1 {
			part = trailingParaTagRe.ReplaceAllString(part, "")
		}
		out = append(out, "<p>"+strings.TrimSpace(part)+"</p>")
	}
	return out
}

func joinParagraph(current, paragraph string) string {
	if current == "" {
		return paragraph
	}
	return current + "\n" + paragraph
}

func closeSegment(content string) string {
	return wrap("<prosody rate=\"x-slow\">\n" + content + "\n</prosody>")
}
