package battery

import (
	"encoding/json"
	"fmt"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

var (
	passNeutralFail = []string{"Pass", "Neutral", "Fail"}
	hip45Options    = []string{"> 45°", "= 45°", "< 45°"}
	squatOptions    = []string{"Pass", "Improves with Holding", "Fail"}
)

var selectColors = map[string]Color{
	"Pass":                  ColorGreen,
	"> 45°":                 ColorGreen,
	"Neutral":               ColorYellow,
	"= 45°":                 ColorYellow,
	"Improves with Holding": ColorYellow,
	"Fail":                  ColorRed,
	"< 45°":                 ColorRed,
}

type onBaseUTest struct {
	name        string
	category    string
	subcategory string
	bilateral   bool
	options     []string
}

// Position player and pitcher screens share the same sixteen tests.
var onBaseUTests = []onBaseUTest{
	{"Shoulder 46 Test", "upper_body", "shoulder_mobility", true, passNeutralFail},
	{"90/90 Test", "upper_body", "shoulder_mobility", true, passNeutralFail},
	{"Lat Test", "upper_body", "shoulder_mobility", true, passNeutralFail},
	{"Hitchhiker Test", "upper_body", "upper_body_control", true, passNeutralFail},
	{"Hip 45 Test", "lower_body", "hip_mobility", true, hip45Options},
	{"Pelvic Tilt Test", "lower_body", "hip_mobility", false, passNeutralFail},
	{"Pelvic Rotation Test", "lower_body", "hip_mobility", false, passNeutralFail},
	{"Deep Squat Test", "lower_body", "lower_body_control", false, squatOptions},
	{"Hurdle Step Test", "lower_body", "lower_body_control", false, passNeutralFail},
	{"MSR", "lower_body", "lower_body_control", false, passNeutralFail},
	{"Toe Tap Test", "lower_body", "foot_ankle", true, passNeutralFail},
	{"Ankle Rocking Test", "lower_body", "foot_ankle", true, passNeutralFail},
	{"Push-Off Test", "core", "power_stability", false, passNeutralFail},
	{"Separation Test", "core", "power_stability", false, passNeutralFail},
	{"Holding Angle Test", "core", "rotational_control", false, passNeutralFail},
	{"Seated Trunk Rotation Test", "core", "rotational_control", true, passNeutralFail},
}

// OnBaseUAnswer is the answer shape of a mobility screen test. Bilateral tests
// use Left and Right, the rest use Result.
type OnBaseUAnswer struct {
	Result string `json:"result,omitempty"`
	Left   string `json:"left,omitempty"`
	Right  string `json:"right,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

type onBaseUItem struct {
	TestCode     string  `json:"test_code"`
	TestName     string  `json:"test_name"`
	TestCategory string  `json:"test_category"`
	Subcategory  string  `json:"subcategory,omitempty"`
	Side         *string `json:"side"`
	Result       string  `json:"result"`
	Notes        *string `json:"notes"`
}

type onBaseUBattery struct {
	catalogue
	typ backend.AssessmentType
}

func newOnBaseU(t backend.AssessmentType, prefix string) *onBaseUBattery {
	tests := make([]Test, len(onBaseUTests))
	for i, d := range onBaseUTests {
		tests[i] = Test{
			Code:        fmt.Sprintf("%s-%02d", prefix, i+1),
			Name:        d.name,
			Category:    d.category,
			Subcategory: d.subcategory,
			Bilateral:   d.bilateral,
			ResultType:  ResultSelect,
			Options:     d.options,
		}
	}
	return &onBaseUBattery{catalogue: newCatalogue(tests), typ: t}
}

func (b *onBaseUBattery) sealed() {}

func (b *onBaseUBattery) Type() backend.AssessmentType { return b.typ }

func (b *onBaseUBattery) answer(test Test, raw json.RawMessage) (OnBaseUAnswer, bool) {
	var a OnBaseUAnswer
	if raw == nil || json.Unmarshal(raw, &a) != nil {
		return a, false
	}
	if test.Bilateral {
		return a, a.Left != "" && a.Right != ""
	}
	return a, a.Result != ""
}

func (b *onBaseUBattery) Missing(pending map[string]json.RawMessage) []string {
	var out []string
	for _, t := range b.tests {
		if _, ok := b.answer(t, pending[t.Code]); !ok {
			out = append(out, t.Code)
		}
	}
	return out
}

func (b *onBaseUBattery) Validate(testID string, raw json.RawMessage) error {
	t, err := b.lookup(testID)
	if err != nil {
		return err
	}
	var a OnBaseUAnswer
	if err := decode(testID, raw, &a); err != nil {
		return err
	}
	for _, v := range []string{a.Result, a.Left, a.Right} {
		if err := checkOption(testID, t.Options, v); err != nil {
			return err
		}
	}
	return nil
}

func (b *onBaseUBattery) Payload(pending map[string]json.RawMessage) ([]any, error) {
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
		item := onBaseUItem{
			TestCode:     t.Code,
			TestName:     t.Name,
			TestCategory: t.Category,
			Subcategory:  t.Subcategory,
			Notes:        optional(a.Notes),
		}
		if !t.Bilateral {
			item.Result = a.Result
			items = append(items, item)
			continue
		}
		left, right := item, item
		left.Side, left.Result = strPtr("left"), a.Left
		right.Side, right.Result = strPtr("right"), a.Right
		items = append(items, left, right)
	}
	return items, nil
}

func (b *onBaseUBattery) Preview(pending map[string]json.RawMessage) []Preview {
	var out []Preview
	for _, t := range b.tests {
		raw, ok := pending[t.Code]
		if !ok {
			continue
		}
		a, _ := b.answer(t, raw)
		if !t.Bilateral {
			if a.Result != "" {
				out = append(out, Preview{TestCode: t.Code, Value: a.Result, Color: selectColors[a.Result]})
			}
			continue
		}
		if a.Left != "" {
			out = append(out, Preview{TestCode: t.Code, Side: "left", Value: a.Left, Color: selectColors[a.Left]})
		}
		if a.Right != "" {
			out = append(out, Preview{TestCode: t.Code, Side: "right", Value: a.Right, Color: selectColors[a.Right]})
		}
	}
	return out
}
