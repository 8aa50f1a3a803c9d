package battery

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

var goodFairPoor = []string{"Good", "Fair", "Poor"}

func degrees(key, label string) Field {
	return Field{Key: key, Label: label, Type: ResultNumeric, Unit: "degrees", Bilateral: true}
}

func choice(key, label string, bilateral bool, options ...string) Field {
	return Field{Key: key, Label: label, Type: ResultSelect, Options: options, Bilateral: bilateral}
}

// KAMSAnswer holds the measurements of one structured movement test, keyed by
// field key with _left/_right suffixes for bilateral fields.
type KAMSAnswer struct {
	Measurements map[string]any `json:"measurements"`
	Notes        string         `json:"notes,omitempty"`
}

type kamsItem struct {
	TestType     string         `json:"test_type"`
	Measurements map[string]any `json:"measurements"`
	Notes        *string        `json:"notes"`
}

type kamsBattery struct {
	catalogue
}

func newKAMS() *kamsBattery {
	structured := func(code, name, desc string, fields ...Field) Test {
		return Test{Code: code, Name: name, Category: code, ResultType: ResultSelect, Description: desc, Fields: fields}
	}
	return &kamsBattery{catalogue: newCatalogue([]Test{
		structured("rom", "Multi-Segmental ROM", "Range of motion across multiple body segments",
			degrees("hip_flexion", "Hip Flexion"),
			degrees("hip_extension", "Hip Extension"),
			degrees("hip_internal_rotation", "Hip Internal Rotation"),
			degrees("hip_external_rotation", "Hip External Rotation"),
			degrees("ankle_dorsiflexion", "Ankle Dorsiflexion"),
			degrees("shoulder_flexion", "Shoulder Flexion"),
			degrees("shoulder_extension", "Shoulder Extension"),
			degrees("thoracic_rotation", "Thoracic Rotation"),
		),
		structured("squat", "Overhead Squat", "Functional squat with arms overhead",
			choice("depth_score", "Depth Score", false, "1", "2", "3"),
			choice("knee_tracking", "Knee Tracking", false, "Good", "Moderate", "Poor"),
			choice("torso_angle", "Torso Angle", false, "Upright", "Slight Forward", "Excessive Forward"),
			choice("arm_position", "Arm Position", false, "Maintained", "Falls Forward", "Cannot Maintain"),
			choice("heel_rise", "Heel Rise", false, "None", "Slight", "Significant"),
			choice("overall_quality", "Overall Quality", false, goodFairPoor...),
		),
		structured("lunge", "Reverse Lunge", "Single-leg lunge pattern",
			choice("depth", "Depth", true, "Full", "Partial", "Limited"),
			choice("knee_tracking", "Knee Tracking", true, "Good", "Moderate Valgus", "Significant Valgus"),
			choice("balance", "Balance", true, "Stable", "Minor Wobble", "Unstable"),
			choice("overall_quality", "Overall Quality", true, goodFairPoor...),
		),
		structured("balance", "Single Leg Balance", "Single leg stability",
			Field{Key: "time", Label: "Hold Time", Type: ResultNumeric, Unit: "seconds", Bilateral: true},
			choice("sway", "Sway", true, "Minimal", "Moderate", "Excessive"),
			choice("compensations", "Compensations", true, "None", "Hip Drop", "Trunk Lean", "Multiple"),
		),
		structured("jump", "Vertical Jump", "Vertical jump landing mechanics",
			Field{Key: "height", Label: "Jump Height", Type: ResultNumeric, Unit: "inches"},
			choice("landing_quality", "Landing Quality", false, "Soft/Controlled", "Moderate", "Hard/Uncontrolled"),
			choice("knee_valgus", "Knee Valgus", false, "None", "Mild", "Moderate", "Severe"),
			choice("asymmetry", "Asymmetry", false, "Symmetric", "Slight Asymmetry", "Significant Asymmetry"),
			choice("force_absorption", "Force Absorption", false, goodFairPoor...),
		),
	})}
}

func (b *kamsBattery) sealed() {}

func (b *kamsBattery) Type() backend.AssessmentType { return backend.TypeKAMS }

func (b *kamsBattery) answer(test Test, raw json.RawMessage) (KAMSAnswer, int, int) {
	var a KAMSAnswer
	total := 0
	for _, f := range test.Fields {
		total += len(f.Keys())
	}
	if raw == nil || json.Unmarshal(raw, &a) != nil {
		return a, 0, total
	}
	filled := 0
	for _, f := range test.Fields {
		for _, k := range f.Keys() {
			if present(a.Measurements[k]) {
				filled++
			}
		}
	}
	return a, filled, total
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	default:
		return true
	}
}

func (b *kamsBattery) Missing(pending map[string]json.RawMessage) []string {
	var out []string
	for _, t := range b.tests {
		if _, filled, total := b.answer(t, pending[t.Code]); filled < total {
			out = append(out, t.Code)
		}
	}
	return out
}

func (b *kamsBattery) Validate(testID string, raw json.RawMessage) error {
	t, err := b.lookup(testID)
	if err != nil {
		return err
	}
	var a KAMSAnswer
	if err := decode(testID, raw, &a); err != nil {
		return err
	}

	fields := make(map[string]Field)
	for _, f := range t.Fields {
		for _, k := range f.Keys() {
			fields[k] = f
		}
	}
	for k, v := range a.Measurements {
		f, ok := fields[k]
		if !ok {
			return fmt.Errorf("%w: %s: unknown measurement %q", ErrInvalidAnswer, testID, k)
		}
		if !present(v) {
			continue
		}
		switch f.Type {
		case ResultNumeric:
			n, ok := v.(float64)
			if !ok {
				return fmt.Errorf("%w: %s: %s must be a number", ErrInvalidAnswer, testID, k)
			}
			if err := checkNonNegative(testID, k, &n); err != nil {
				return err
			}
		case ResultSelect:
			s, ok := v.(string)
			if !ok || !slices.Contains(f.Options, s) {
				return fmt.Errorf("%w: %s: %s must be one of %v", ErrInvalidAnswer, testID, k, f.Options)
			}
		}
	}
	return nil
}

func (b *kamsBattery) Payload(pending map[string]json.RawMessage) ([]any, error) {
	var items []any
	for _, t := range b.tests {
		raw, ok := pending[t.Code]
		if !ok {
			continue
		}
		a, filled, total := b.answer(t, raw)
		if filled < total {
			return nil, fmt.Errorf("%w: %s: %d of %d measurements recorded", ErrInvalidAnswer, t.Code, filled, total)
		}
		items = append(items, kamsItem{TestType: t.Code, Measurements: a.Measurements, Notes: optional(a.Notes)})
	}
	return items, nil
}

// Preview reports how many measurements of each started test are recorded.
// Structured tests are scored by the backend only.
func (b *kamsBattery) Preview(pending map[string]json.RawMessage) []Preview {
	var out []Preview
	for _, t := range b.tests {
		if _, ok := pending[t.Code]; !ok {
			continue
		}
		_, filled, total := b.answer(t, pending[t.Code])
		out = append(out, Preview{TestCode: t.Code, Value: fmt.Sprintf("%d/%d", filled, total)})
	}
	return out
}
