package battery

import (
	"encoding/json"
	"fmt"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

// SettingsKey is the reserved answer key holding the sprint conditions shared
// by every test in the session.
const SettingsKey = "settings"

const (
	DefaultShoeType    = "Cleats"
	DefaultSurfaceType = "Turf"
)

var (
	ShoeTypes    = []string{"Cleats", "Turf Shoes", "Running Shoes", "Barefoot"}
	SurfaceTypes = []string{"Turf", "Grass", "Dirt", "Track", "Indoor"}
)

type threshold struct{ optimal, adequate float64 }

var sprintThresholds = map[string]threshold{
	"SPR-01": {2.80, 3.00},
	"SPR-02": {1.10, 1.25},
	"SPR-03": {1.05, 1.20},
	"SPR-04": {1.10, 1.25},
	"SPR-05": {2.00, 2.20},
}

// SprintAnswer holds up to three timed runs in seconds.
type SprintAnswer struct {
	Run1  *float64 `json:"run1,omitempty"`
	Run2  *float64 `json:"run2,omitempty"`
	Run3  *float64 `json:"run3,omitempty"`
	Notes string   `json:"notes,omitempty"`
}

// Best returns the fastest recorded run.
func (a SprintAnswer) Best() (float64, bool) {
	var (
		best  float64
		found bool
	)
	for _, r := range []*float64{a.Run1, a.Run2, a.Run3} {
		if r != nil && (!found || *r < best) {
			best, found = *r, true
		}
	}
	return best, found
}

type SprintSettings struct {
	ShoeType    string `json:"shoe_type"`
	SurfaceType string `json:"surface_type"`
}

type sprintItem struct {
	TestCode     string   `json:"test_code"`
	TestName     string   `json:"test_name"`
	TestCategory string   `json:"test_category"`
	ShoeType     string   `json:"shoe_type"`
	SurfaceType  string   `json:"surface_type"`
	Run1Time     *float64 `json:"run_1_time"`
	Run2Time     *float64 `json:"run_2_time"`
	Run3Time     *float64 `json:"run_3_time"`
	Notes        *string  `json:"notes"`
}

type sprintBattery struct {
	catalogue
}

func newSprint() *sprintBattery {
	timed := func(code, name, category, desc string) Test {
		return Test{
			Code:        code,
			Name:        name,
			Category:    category,
			ResultType:  ResultTime,
			Unit:        "seconds",
			Description: desc,
		}
	}
	return &sprintBattery{catalogue: newCatalogue([]Test{
		timed("SPR-01", "81 ft Sprint", "linear", "Straight-line sprint over 81 feet"),
		timed("SPR-02", "5-yard Directional - Left", "directional", "5-yard directional sprint to the left"),
		timed("SPR-03", "5-yard Directional - Center", "directional", "5-yard directional sprint straight ahead"),
		timed("SPR-04", "5-yard Directional - Right", "directional", "5-yard directional sprint to the right"),
		timed("SPR-05", "Curvilinear Sprint", "curvilinear", "Curved sprint path simulating base running"),
	})}
}

func (b *sprintBattery) sealed() {}

func (b *sprintBattery) Type() backend.AssessmentType { return backend.TypeSprint }

// Settings returns the recorded conditions, defaulting unset values.
func Settings(pending map[string]json.RawMessage) (SprintSettings, error) {
	s := SprintSettings{}
	if raw, ok := pending[SettingsKey]; ok {
		if err := decode(SettingsKey, raw, &s); err != nil {
			return SprintSettings{}, err
		}
	}
	if s.ShoeType == "" {
		s.ShoeType = DefaultShoeType
	}
	if s.SurfaceType == "" {
		s.SurfaceType = DefaultSurfaceType
	}
	return s, nil
}

func (b *sprintBattery) answer(raw json.RawMessage) (SprintAnswer, bool) {
	var a SprintAnswer
	if raw == nil || json.Unmarshal(raw, &a) != nil {
		return a, false
	}
	_, ok := a.Best()
	return a, ok
}

func (b *sprintBattery) Missing(pending map[string]json.RawMessage) []string {
	var out []string
	for _, t := range b.tests {
		if _, ok := b.answer(pending[t.Code]); !ok {
			out = append(out, t.Code)
		}
	}
	return out
}

func (b *sprintBattery) Validate(testID string, raw json.RawMessage) error {
	if testID == SettingsKey {
		var s SprintSettings
		if err := decode(testID, raw, &s); err != nil {
			return err
		}
		if err := checkOption(testID, ShoeTypes, s.ShoeType); err != nil {
			return err
		}
		return checkOption(testID, SurfaceTypes, s.SurfaceType)
	}

	if _, err := b.lookup(testID); err != nil {
		return err
	}
	var a SprintAnswer
	if err := decode(testID, raw, &a); err != nil {
		return err
	}
	for i, r := range []*float64{a.Run1, a.Run2, a.Run3} {
		if r != nil && *r <= 0 {
			return fmt.Errorf("%w: %s: run %d must be positive", ErrInvalidAnswer, testID, i+1)
		}
	}
	return nil
}

func (b *sprintBattery) Payload(pending map[string]json.RawMessage) ([]any, error) {
	settings, err := Settings(pending)
	if err != nil {
		return nil, err
	}
	var items []any
	for _, t := range b.tests {
		raw, ok := pending[t.Code]
		if !ok {
			continue
		}
		a, complete := b.answer(raw)
		if !complete {
			return nil, fmt.Errorf("%w: %s: at least one run is required", ErrInvalidAnswer, t.Code)
		}
		items = append(items, sprintItem{
			TestCode:     t.Code,
			TestName:     t.Name,
			TestCategory: t.Category,
			ShoeType:     settings.ShoeType,
			SurfaceType:  settings.SurfaceType,
			Run1Time:     a.Run1,
			Run2Time:     a.Run2,
			Run3Time:     a.Run3,
			Notes:        optional(a.Notes),
		})
	}
	return items, nil
}

func (b *sprintBattery) Preview(pending map[string]json.RawMessage) []Preview {
	var out []Preview
	for _, t := range b.tests {
		a, ok := b.answer(pending[t.Code])
		if !ok {
			continue
		}
		best, _ := a.Best()
		out = append(out, Preview{TestCode: t.Code, Value: best, Color: sprintColor(t.Code, best)})
	}
	return out
}

func sprintColor(code string, best float64) Color {
	th, ok := sprintThresholds[code]
	if !ok {
		return ""
	}
	switch {
	case best <= th.optimal:
		return ColorGreen
	case best <= th.adequate:
		return ColorYellow
	default:
		return ColorRed
	}
}
