// Package suppress drops reportable records matched by FHIRPath expressions.
//
// Each record is evaluated as a JSON document with resourceType "Record".
// Besides the record fields (severity, reportedMessage, diagnosticMessage,
// location, ...) the document carries two shortcuts: code, the application
// error code, and segment, the segment of the location.
//
//	severity = 'WARN' and segment = 'PID'
//	code = 'Length' and location.fieldPosition = 5
package suppress

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"

	nv "github.com/gofhir/nistvalidator"
)

// Rule is one compiled suppression expression.
type Rule struct {
	expr     string
	compiled *fhirpath.Expression
}

// Expression returns the source expression.
func (r *Rule) Expression() string {
	return r.expr
}

// Set is an ordered list of rules. A record is suppressed when any rule
// matches it. A Set is immutable and safe for concurrent use.
type Set struct {
	rules []*Rule
}

// Compile compiles exprs into a Set. Blank expressions are skipped.
func Compile(exprs []string) (*Set, error) {
	s := &Set{}
	for _, expr := range exprs {
		expr = strings.TrimSpace(expr)
		if expr == "" {
			continue
		}
		compiled, err := fhirpath.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile suppression '%s': %w", expr, err)
		}
		s.rules = append(s.rules, &Rule{expr: expr, compiled: compiled})
	}
	return s, nil
}

// Len returns the number of rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Rules returns the rules in evaluation order.
func (s *Set) Rules() []*Rule {
	if s == nil {
		return nil
	}
	return append([]*Rule(nil), s.rules...)
}

// document is the JSON form of a record seen by expressions.
type document struct {
	ResourceType string `json:"resourceType"`
	nv.Record
	Code    string `json:"code,omitempty"`
	Segment string `json:"segment,omitempty"`
}

func toDocument(r nv.Record) ([]byte, error) {
	doc := document{
		ResourceType: "Record",
		Record:       r,
		Code:         r.ApplicationErrorCode.Code(),
	}
	if r.Location != nil {
		doc.Segment = r.Location.SegmentID
	}
	return json.Marshal(doc)
}

// Match returns the first rule matching r, or nil.
func (s *Set) Match(r nv.Record) (*Rule, error) {
	if s.Len() == 0 {
		return nil, nil
	}

	data, err := toDocument(r)
	if err != nil {
		return nil, fmt.Errorf("failed to convert record to JSON: %w", err)
	}

	for _, rule := range s.rules {
		result, err := rule.compiled.Evaluate(data)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate suppression '%s': %w", rule.expr, err)
		}
		if truthy(result) {
			return rule, nil
		}
	}
	return nil, nil
}

// Filter returns the records no rule matches, in order, and the number
// removed. A record whose evaluation fails is kept; the first such error is
// returned alongside the result.
func (s *Set) Filter(records []nv.Record) ([]nv.Record, int, error) {
	if s.Len() == 0 {
		return records, 0, nil
	}

	kept := make([]nv.Record, 0, len(records))
	var firstErr error
	for _, r := range records {
		rule, err := s.Match(r)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			kept = append(kept, r)
			continue
		}
		if rule == nil {
			kept = append(kept, r)
		}
	}
	return kept, len(records) - len(kept), firstErr
}

// truthy applies FHIRPath boolean conversion: a single boolean is its value,
// an empty collection is false and anything else is true.
func truthy(result types.Collection) bool {
	if len(result) == 0 {
		return false
	}
	if len(result) == 1 {
		if b, ok := result[0].(types.Boolean); ok {
			return b.Bool()
		}
	}
	return true
}
