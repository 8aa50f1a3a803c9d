// Package battery describes the fixed test batteries an assessment session can
// be run with: which tests exist, what a complete answer looks like, how the
// answers map onto the backend's bulk result payloads, and how they colour
// before the backend scores them.
package battery

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

var (
	ErrUnknownType   = errors.New("unknown assessment type")
	ErrUnknownTest   = errors.New("unknown test")
	ErrInvalidAnswer = errors.New("invalid answer")
)

type ResultType string

const (
	ResultSelect  ResultType = "select"
	ResultNumeric ResultType = "numeric"
	ResultTime    ResultType = "time"
)

type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
)

// Field is one measurement inside a structured test.
type Field struct {
	Key       string     `json:"key"`
	Label     string     `json:"label"`
	Type      ResultType `json:"type"`
	Unit      string     `json:"unit,omitempty"`
	Options   []string   `json:"options,omitempty"`
	Bilateral bool       `json:"bilateral"`
}

// Keys returns the measurement keys the field expands to.
func (f Field) Keys() []string {
	if f.Bilateral {
		return []string{f.Key + "_left", f.Key + "_right"}
	}
	return []string{f.Key}
}

type Test struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory,omitempty"`
	Bilateral   bool       `json:"bilateral"`
	ResultType  ResultType `json:"result_type"`
	Options     []string   `json:"options,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	Description string     `json:"description,omitempty"`
	Fields      []Field    `json:"fields,omitempty"`
}

// Preview is the locally computed colour of one answered test or side.
type Preview struct {
	TestCode string `json:"test_code"`
	Side     string `json:"side,omitempty"`
	Value    any    `json:"value"`
	Color    Color  `json:"color,omitempty"`
}

// Battery is implemented once per assessment type.
type Battery interface {
	Type() backend.AssessmentType
	Tests() []Test
	// Missing returns the codes of tests without a complete answer, in
	// battery order.
	Missing(pending map[string]json.RawMessage) []string
	// Validate checks a single answer before it is recorded.
	Validate(testID string, raw json.RawMessage) error
	// Payload builds the items for the backend's bulk result endpoint.
	Payload(pending map[string]json.RawMessage) ([]any, error)
	Preview(pending map[string]json.RawMessage) []Preview

	sealed()
}

var (
	onBaseU        = newOnBaseU(backend.TypeOnBaseU, "OBU")
	pitcherOnBaseU = newOnBaseU(backend.TypePitcherOnBaseU, "POBU")
	tpiPower       = newTPI()
	sprint         = newSprint()
	kams           = newKAMS()
)

// For returns the battery for t.
func For(t backend.AssessmentType) (Battery, error) {
	switch t {
	case backend.TypeOnBaseU:
		return onBaseU, nil
	case backend.TypePitcherOnBaseU:
		return pitcherOnBaseU, nil
	case backend.TypeTPIPower:
		return tpiPower, nil
	case backend.TypeSprint:
		return sprint, nil
	case backend.TypeKAMS:
		return kams, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// All returns every battery in canonical type order.
func All() []Battery {
	out := make([]Battery, 0, len(backend.AssessmentTypes))
	for _, t := range backend.AssessmentTypes {
		b, err := For(t)
		if err != nil {
			panic(err)
		}
		out = append(out, b)
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type catalogue struct {
	tests []Test
	index map[string]int
}

func newCatalogue(tests []Test) catalogue {
	idx := make(map[string]int, len(tests))
	for i, t := range tests {
		idx[t.Code] = i
	}
	return catalogue{tests: tests, index: idx}
}

func (c catalogue) Tests() []Test { return slices.Clone(c.tests) }

func (c catalogue) lookup(code string) (Test, error) {
	i, ok := c.index[code]
	if !ok {
		return Test{}, fmt.Errorf("%w: %q", ErrUnknownTest, code)
	}
	return c.tests[i], nil
}

func decode(code string, raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: %s: empty answer", ErrInvalidAnswer, code)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAnswer, code, err)
	}
	return nil
}

func checkOption(code string, options []string, v string) error {
	if v == "" || slices.Contains(options, v) {
		return nil
	}
	return fmt.Errorf("%w: %s: %q is not one of %v", ErrInvalidAnswer, code, v, options)
}

func checkNonNegative(code, label string, v *float64) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%w: %s: %s must not be negative", ErrInvalidAnswer, code, label)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strPtr(s string) *string { return &s }

// percentColor maps a 0..100 score onto the shared colour bands.
func percentColor(p float64, withBlue bool) Color {
	switch {
	case withBlue && p >= 100:
		return ColorBlue
	case p >= 85:
		return ColorGreen
	case p >= 70:
		return ColorYellow
	default:
		return ColorRed
	}
}
