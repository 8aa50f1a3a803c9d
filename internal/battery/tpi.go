package battery

import (
	"encoding/json"
	"fmt"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

const verticalJumpCode = "TPI-01"

// absolute bands in inches: blue, green, yellow.
var tpiBands = map[string][3]float64{
	"TPI-01": {30, 26, 22},
	"TPI-02": {114, 108, 96},
}

// targets expressed as a multiple of the vertical jump.
var tpiRelative = map[string]float64{
	"TPI-03": 0.85,
	"TPI-04": 0.85,
	"TPI-05": 1.5,
}

const offSideFactor = 0.9

// TPIAnswer is a power test measurement in inches.
type TPIAnswer struct {
	Value *float64 `json:"value,omitempty"`
	Left  *float64 `json:"left,omitempty"`
	Right *float64 `json:"right,omitempty"`
	Notes string   `json:"notes,omitempty"`
}

type tpiItem struct {
	TestCode    string  `json:"test_code"`
	TestName    string  `json:"test_name"`
	ResultValue float64 `json:"result_value"`
	Side        *string `json:"side"`
	Notes       *string `json:"notes"`
}

type tpiBattery struct {
	catalogue
}

func newTPI() *tpiBattery {
	numeric := func(code, name, category, desc string, bilateral bool) Test {
		return Test{
			Code:        code,
			Name:        name,
			Category:    category,
			Bilateral:   bilateral,
			ResultType:  ResultNumeric,
			Unit:        "inches",
			Description: desc,
		}
	}
	return &tpiBattery{catalogue: newCatalogue([]Test{
		numeric("TPI-01", "Vertical Jump", "lower_body_power", "Standing vertical jump height", false),
		numeric("TPI-02", "Broad Jump", "lower_body_power", "Standing broad jump distance", false),
		numeric("TPI-03", "Seated Chest Pass", "upper_body_power", "Seated medicine ball chest pass distance", false),
		numeric("TPI-04", "Sit Up Throw", "core_power", "Medicine ball throw from a sit-up", false),
		numeric("TPI-05", "Baseline Shot Put", "rotational_power", "Rotational shot put from a baseline stance", true),
	})}
}

func (b *tpiBattery) sealed() {}

func (b *tpiBattery) Type() backend.AssessmentType { return backend.TypeTPIPower }

func (b *tpiBattery) answer(test Test, raw json.RawMessage) (TPIAnswer, bool) {
	var a TPIAnswer
	if raw == nil || json.Unmarshal(raw, &a) != nil {
		return a, false
	}
	if test.Bilateral {
		return a, a.Left != nil && a.Right != nil
	}
	return a, a.Value != nil
}

func (b *tpiBattery) Missing(pending map[string]json.RawMessage) []string {
	var out []string
	for _, t := range b.tests {
		if _, ok := b.answer(t, pending[t.Code]); !ok {
			out = append(out, t.Code)
		}
	}
	return out
}

func (b *tpiBattery) Validate(testID string, raw json.RawMessage) error {
	if _, err := b.lookup(testID); err != nil {
		return err
	}
	var a TPIAnswer
	if err := decode(testID, raw, &a); err != nil {
		return err
	}
	for label, v := range map[string]*float64{"value": a.Value, "left": a.Left, "right": a.Right} {
		if err := checkNonNegative(testID, label, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *tpiBattery) Payload(pending map[string]json.RawMessage) ([]any, error) {
	var items []any
	for _, t := range b.tests {
		raw, ok := pending[t.Code]
		if !ok {
			continue
		}
		a, complete := b.answer(t, raw)
		if !complete {
			return nil, fmt.Errorf("%w: %s: incomplete", ErrInvalidAnswer, t.Code)
		}
		item := tpiItem{TestCode: t.Code, TestName: t.Name, Notes: optional(a.Notes)}
		if !t.Bilateral {
			item.ResultValue = *a.Value
			items = append(items, item)
			continue
		}
		left, right := item, item
		left.Side, left.ResultValue = strPtr("left"), *a.Left
		right.Side, right.ResultValue = strPtr("right"), *a.Right
		items = append(items, left, right)
	}
	return items, nil
}

func (b *tpiBattery) Preview(pending map[string]json.RawMessage) []Preview {
	var vj *float64
	if raw, ok := pending[verticalJumpCode]; ok {
		var a TPIAnswer
		if json.Unmarshal(raw, &a) == nil {
			vj = a.Value
		}
	}

	var out []Preview
	for _, t := range b.tests {
		raw, ok := pending[t.Code]
		if !ok {
			continue
		}
		a, _ := b.answer(t, raw)
		if !t.Bilateral {
			if a.Value != nil {
				out = append(out, Preview{TestCode: t.Code, Value: *a.Value, Color: tpiColor(t.Code, *a.Value, vj, false)})
			}
			continue
		}
		// The weaker side is scored as the off side.
		if a.Left != nil {
			off := a.Right != nil && *a.Left < *a.Right
			out = append(out, Preview{TestCode: t.Code, Side: "left", Value: *a.Left, Color: tpiColor(t.Code, *a.Left, vj, off)})
		}
		if a.Right != nil {
			off := a.Left != nil && *a.Right < *a.Left
			out = append(out, Preview{TestCode: t.Code, Side: "right", Value: *a.Right, Color: tpiColor(t.Code, *a.Right, vj, off)})
		}
	}
	return out
}

func tpiColor(code string, v float64, vj *float64, offSide bool) Color {
	if bands, ok := tpiBands[code]; ok {
		switch {
		case v >= bands[0]:
			return ColorBlue
		case v >= bands[1]:
			return ColorGreen
		case v >= bands[2]:
			return ColorYellow
		default:
			return ColorRed
		}
	}

	factor, ok := tpiRelative[code]
	if !ok || vj == nil || *vj <= 0 {
		return ""
	}
	if offSide {
		factor *= offSideFactor
	}
	pct := min(v/(*vj*factor)*100, 100)
	return percentColor(pct, true)
}
