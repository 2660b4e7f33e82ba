// Package location decodes the positional paths reported by the NIST
// validation service (for example "OBX[2]-5[3].1.2") into structured
// HL7 v2 error locations.
package location

import (
	"strconv"
	"strings"

	"github.com/gofhir/nistvalidator/pool"
)

// Location identifies a position inside an HL7 v2 message.
//
// Attributes are filled coarse to fine. An attribute that could not be read
// from the path is left absent; parsing still continues with the rest of it.
type Location struct {
	SegmentID          string `json:"segmentId"`
	SegmentSequence    Index  `json:"segmentSequence,omitzero"`
	FieldPosition      Index  `json:"fieldPosition,omitzero"`
	FieldRepetition    Index  `json:"fieldRepetition,omitzero"`
	ComponentNumber    Index  `json:"componentNumber,omitzero"`
	SubComponentNumber Index  `json:"subComponentNumber,omitzero"`
}

// Parse decodes a positional path.
// Returns nil if the path is too short to hold a segment id.
//
// A token that is present but malformed leaves its attribute absent and
// stops the finer attributes after it from being read. Positions that are
// zero or negative are absent but do not stop parsing.
//
// Examples:
//   - "MSH-9"            -> MSH, field 9
//   - "OBX[2]-5[3].1.2"  -> OBX, sequence 2, field 5, repetition 3, component 1, sub-component 2
//   - "OBX-5.x.2"        -> OBX, field 5
func Parse(path string) *Location {
	end := segmentEnd(path)
	if end < 0 {
		return nil
	}

	loc := &Location{SegmentID: path[:end]}
	rest := path[end:]

	// Everything before the first hyphen addresses the segment. Only a
	// bracketed token carries a sequence; any other shape is ignored.
	segmentToken, fieldPath, _ := strings.Cut(rest, "-")
	var ok bool
	if bracketed(segmentToken) {
		if loc.SegmentSequence, ok = parseBracketed(segmentToken); !ok {
			return loc
		}
	}

	if fieldPath == "" {
		return loc
	}

	fieldToken, rest, _ := strings.Cut(fieldPath, ".")
	if before, bracket, found := cutKeep(fieldToken, "["); found {
		if loc.FieldPosition, ok = parsePlain(before); !ok {
			return loc
		}
		if loc.FieldRepetition, ok = parseBracketed(bracket); !ok {
			return loc
		}
	} else if loc.FieldPosition, ok = parsePlain(fieldToken); !ok {
		return loc
	}

	if rest == "" {
		return loc
	}

	componentToken, subComponentToken, _ := strings.Cut(rest, ".")
	if loc.ComponentNumber, ok = parsePlain(componentToken); !ok {
		return loc
	}
	if subComponentToken != "" {
		loc.SubComponentNumber, _ = parsePlain(subComponentToken)
	}

	return loc
}

// String renders the location in the path form Parse accepts.
// Absent attributes are left out.
func (l *Location) String() string {
	if l == nil {
		return ""
	}

	return pool.BuildPath(func(b *pool.PathBuilder) {
		b.WriteString(l.SegmentID)
		if n, ok := l.SegmentSequence.Get(); ok {
			b.AppendIndex(n)
		}
		field, ok := l.FieldPosition.Get()
		if !ok {
			return
		}
		b.AppendField(field)
		if n, ok := l.FieldRepetition.Get(); ok {
			b.AppendIndex(n)
		}
		if component, ok := l.ComponentNumber.Get(); ok {
			b.AppendComponent(component)
			if sub, ok := l.SubComponentNumber.Get(); ok {
				b.AppendComponent(sub)
			}
		}
	})
}

// Depth returns how many attributes below the segment are present.
func (l *Location) Depth() int {
	if l == nil {
		return 0
	}
	depth := 0
	for _, idx := range []Index{l.SegmentSequence, l.FieldPosition, l.FieldRepetition, l.ComponentNumber, l.SubComponentNumber} {
		if idx.IsSet() {
			depth++
		}
	}
	return depth
}

// segmentEnd returns the byte offset just past the third character of
// path, or -1 when path has fewer than three characters.
func segmentEnd(path string) int {
	n := 0
	for i := range path {
		if n == 3 {
			return i
		}
		n++
	}
	if n == 3 {
		return len(path)
	}
	return -1
}

// bracketed reports whether token has the shape "[...]".
func bracketed(token string) bool {
	token = strings.TrimSpace(token)
	return len(token) >= 2 && token[0] == '[' && token[len(token)-1] == ']'
}

// parseBracketed reads a segment or field index token of the form "[n]".
// An empty token is a valid "not specified"; any other shape is malformed.
func parseBracketed(token string) (Index, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Index{}, true
	}
	if !bracketed(token) {
		return Index{}, false
	}
	return parsePlain(token[1 : len(token)-1])
}

// parsePlain reads a bare integer.
func parsePlain(token string) (Index, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(token))
	if err != nil {
		return Index{}, false
	}
	return At(n), true
}

// cutKeep splits s at the first sep, keeping sep at the start of after.
func cutKeep(s, sep string) (before, after string, found bool) {
	if i := strings.Index(s, sep); i >= 0 {
		return s[:i], s[i:], true
	}
	return s, "", false
}
