package nist

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	nv "github.com/gofhir/nistvalidator"
)

// Assertion is one finding in a validation report.
type Assertion struct {
	// Result is the textual outcome, e.g. "error" or "affirmative".
	Result string `json:"result"`

	// Type names the rule category that fired, e.g. "Usage" or "Constraint".
	Type string `json:"type,omitempty"`

	// Description is the human-readable finding.
	Description string `json:"description,omitempty"`

	// Path is the raw positional path, e.g. "OBX[2]-5[1].2".
	Path string `json:"path,omitempty"`

	// Severity, Line and Column are set when the report carries them.
	Severity string `json:"severity,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// IsError returns true if the assertion result is "error" in any case.
func (a Assertion) IsError() bool {
	return strings.EqualFold(strings.TrimSpace(a.Result), "error")
}

// Report is a decoded validation report.
type Report struct {
	// Assertions in the order the service reported them.
	Assertions []Assertion `json:"assertions"`

	// Raw is the report document as received.
	Raw string `json:"-"`
}

// Len returns the number of assertions.
func (r *Report) Len() int {
	return len(r.Assertions)
}

// Clone returns a copy of r that shares no assertions with it.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	c.Assertions = append([]Assertion(nil), r.Assertions...)
	return &c
}

// ErrorCount returns the number of assertions with an "error" result.
func (r *Report) ErrorCount() int {
	n := 0
	for _, a := range r.Assertions {
		if a.IsError() {
			n++
		}
	}
	return n
}

// ParseReport decodes a report document.
//
// Every element named Assertion is read, wherever it appears. Result, Type
// and Severity may be attributes or child elements; Path, Line and Column
// may be nested under a Location element.
func ParseReport(doc string) (*Report, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, fmt.Errorf("%w: empty report", nv.ErrMalformedReport)
	}
	report := &Report{Raw: doc, Assertions: []Assertion{}}

	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = false

	var (
		current *Assertion
		depth   int // element depth inside the current assertion
		text    strings.Builder
		seenXML bool
	)

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", nv.ErrMalformedReport, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			seenXML = true
			if current == nil {
				if strings.EqualFold(t.Name.Local, "Assertion") {
					current = &Assertion{}
					depth = 0
					for _, attr := range t.Attr {
						setField(current, attr.Name.Local, attr.Value)
					}
				}
				continue
			}
			depth++
			text.Reset()

		case xml.CharData:
			if current != nil {
				text.Write(t)
			}

		case xml.EndElement:
			if current == nil {
				continue
			}
			if depth == 0 {
				report.Assertions = append(report.Assertions, *current)
				current = nil
				continue
			}
			setField(current, t.Name.Local, text.String())
			text.Reset()
			depth--
		}
	}

	if !seenXML {
		return nil, fmt.Errorf("%w: no XML content", nv.ErrMalformedReport)
	}
	return report, nil
}

// setField assigns the named attribute or element value to a.
// Values already set by an attribute are not overwritten by empty text.
// The path is kept as received; other values are trimmed.
func setField(a *Assertion, name, raw string) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return
	}
	switch strings.ToLower(name) {
	case "result":
		a.Result = value
	case "type":
		a.Type = value
	case "description":
		a.Description = value
	case "path":
		a.Path = raw
	case "severity":
		a.Severity = value
	case "line":
		if n, err := strconv.Atoi(value); err == nil {
			a.Line = n
		}
	case "column":
		if n, err := strconv.Atoi(value); err == nil {
			a.Column = n
		}
	}
}
