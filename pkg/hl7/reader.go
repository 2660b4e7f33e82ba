// Package hl7 provides a small forward-only reader over pipe-delimited
// HL7 v2 messages.
//
// It reads only what the validator needs: segment names and positional
// values. It does not unescape or type values.
package hl7

import (
	"strings"
)

// Default encoding characters, used when MSH-2 is missing or short.
const (
	DefaultFieldSeparator        = '|'
	DefaultComponentSeparator    = '^'
	DefaultRepetitionSeparator   = '~'
	DefaultEscapeCharacter       = '\\'
	DefaultSubComponentSeparator = '&'
)

// HeaderSegment is the name of the message header segment.
const HeaderSegment = "MSH"

// Header field positions read by the profile resolver.
const (
	FieldMessageType       = 9
	FieldControlID         = 10
	FieldVersionID         = 12
	FieldProfileIdentifier = 21
)

// Delimiters holds the encoding characters of a message.
type Delimiters struct {
	Field        byte
	Component    byte
	Repetition   byte
	Escape       byte
	SubComponent byte
}

// DefaultDelimiters returns the standard HL7 encoding characters.
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Field:        DefaultFieldSeparator,
		Component:    DefaultComponentSeparator,
		Repetition:   DefaultRepetitionSeparator,
		Escape:       DefaultEscapeCharacter,
		SubComponent: DefaultSubComponentSeparator,
	}
}

// Reader walks the segments of one message.
// A Reader is not safe for concurrent use.
type Reader struct {
	segments []segment
	delims   Delimiters
	current  int
}

type segment struct {
	name   string
	fields []string // fields[0] is the segment name
}

// NewReader splits message into segments.
// Segments may be separated by CR, LF or CRLF; blank lines are skipped.
func NewReader(message string) *Reader {
	r := &Reader{
		delims:  DefaultDelimiters(),
		current: -1,
	}

	lines := strings.FieldsFunc(message, func(c rune) bool {
		return c == '\r' || c == '\n'
	})

	// Encoding characters come from the first MSH segment.
	for _, line := range lines {
		if strings.HasPrefix(line, HeaderSegment) && len(line) > len(HeaderSegment) {
			r.delims = delimitersFrom(line)
			break
		}
	}

	sep := string(r.delims.Field)
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, sep)
		r.segments = append(r.segments, segment{name: fields[0], fields: fields})
	}

	return r
}

// delimitersFrom reads MSH-1 and MSH-2 from a header line.
func delimitersFrom(line string) Delimiters {
	d := DefaultDelimiters()
	d.Field = line[len(HeaderSegment)]

	enc := line[len(HeaderSegment)+1:]
	if i := strings.IndexByte(enc, d.Field); i >= 0 {
		enc = enc[:i]
	}
	targets := []*byte{&d.Component, &d.Repetition, &d.Escape, &d.SubComponent}
	for i := 0; i < len(enc) && i < len(targets); i++ {
		*targets[i] = enc[i]
	}
	return d
}

// Delimiters returns the encoding characters in effect.
func (r *Reader) Delimiters() Delimiters {
	return r.delims
}

// SegmentCount returns the number of segments in the message.
func (r *Reader) SegmentCount() int {
	return len(r.segments)
}

// Reset moves the reader back before the first segment.
func (r *Reader) Reset() {
	r.current = -1
}

// Advance moves to the next segment. Returns false at the end of the message.
func (r *Reader) Advance() bool {
	if r.current+1 >= len(r.segments) {
		r.current = len(r.segments)
		return false
	}
	r.current++
	return true
}

// AdvanceToSegment moves forward to the next segment named name.
// Returns false, leaving the reader past the end, if there is none.
func (r *Reader) AdvanceToSegment(name string) bool {
	for r.Advance() {
		if r.segments[r.current].name == name {
			return true
		}
	}
	return false
}

// SegmentName returns the name of the current segment, or "" when the
// reader is not positioned on a segment.
func (r *Reader) SegmentName() string {
	if seg := r.segment(); seg != nil {
		return seg.name
	}
	return ""
}

// Field returns the raw content of field n of the current segment.
// Field numbers are 1-based and follow HL7 numbering, so for MSH the field
// separator itself is field 1.
func (r *Reader) Field(n int) string {
	seg := r.segment()
	if seg == nil || n < 1 {
		return ""
	}

	idx := n
	if seg.name == HeaderSegment {
		if n == 1 {
			return string(r.delims.Field)
		}
		idx = n - 1
	}
	if idx >= len(seg.fields) {
		return ""
	}
	return seg.fields[idx]
}

// Value returns the first component of the first repetition of field n.
func (r *Reader) Value(n int) string {
	return r.ValueAt(n, 1, 1)
}

// ValueAt returns component of repetition rep of field n. All positions are
// 1-based; missing positions yield "".
func (r *Reader) ValueAt(n, rep, component int) string {
	if rep < 1 || component < 1 {
		return ""
	}

	raw := r.Field(n)
	if raw == "" {
		return ""
	}
	// MSH-2 holds the encoding characters and is never split.
	if r.SegmentName() == HeaderSegment && n <= 2 {
		if rep == 1 && component == 1 {
			return raw
		}
		return ""
	}

	reps := strings.Split(raw, string(r.delims.Repetition))
	if rep > len(reps) {
		return ""
	}
	comps := strings.Split(reps[rep-1], string(r.delims.Component))
	if component > len(comps) {
		return ""
	}
	return strings.TrimSpace(comps[component-1])
}

func (r *Reader) segment() *segment {
	if r.current < 0 || r.current >= len(r.segments) {
		return nil
	}
	return &r.segments[r.current]
}

// Header holds the MSH values used to pick a validation profile.
type Header struct {
	MessageType  string
	TriggerEvent string
	ControlID    string
	Version      string
	ProfileID    string
}

// ReadHeader reads the first MSH segment of message.
// Returns false if the message has no MSH segment.
func ReadHeader(message string) (Header, bool) {
	r := NewReader(message)
	if !r.AdvanceToSegment(HeaderSegment) {
		return Header{}, false
	}
	return Header{
		MessageType:  r.Value(FieldMessageType),
		TriggerEvent: r.ValueAt(FieldMessageType, 1, 2),
		ControlID:    r.Value(FieldControlID),
		Version:      r.Value(FieldVersionID),
		ProfileID:    r.Value(FieldProfileIdentifier),
	}, true
}
