package battery

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Alijeyrad/assessflow/pkg/backend"
)

//go:embed instructions.yaml
var instructionsYAML []byte

// Instruction tells the assessor how to administer and score one test.
type Instruction struct {
	Purpose      string            `yaml:"purpose" json:"purpose"`
	Equipment    []string          `yaml:"equipment" json:"equipment"`
	Position     string            `yaml:"position" json:"starting_position,omitempty"`
	Procedure    []string          `yaml:"procedure" json:"procedure"`
	Scoring      map[string]string `yaml:"scoring" json:"scoring,omitempty"`
	CommonErrors []string          `yaml:"common_errors" json:"common_errors,omitempty"`
}

type instructionSet struct {
	Mobility map[string]Instruction `yaml:"mobility"`
	TPIPower map[string]Instruction `yaml:"tpi_power"`
	Sprint   map[string]Instruction `yaml:"sprint"`
	KAMS     map[string]Instruction `yaml:"kams"`
}

var loadInstructions = sync.OnceValues(func() (instructionSet, error) {
	var set instructionSet
	if err := yaml.Unmarshal(instructionsYAML, &set); err != nil {
		return instructionSet{}, fmt.Errorf("parse instructions: %w", err)
	}
	return set, nil
})

// InstructionFor returns the administration notes for one test of t.
func InstructionFor(t backend.AssessmentType, code string) (Instruction, error) {
	b, err := For(t)
	if err != nil {
		return Instruction{}, err
	}
	set, err := loadInstructions()
	if err != nil {
		return Instruction{}, err
	}

	var (
		in Instruction
		ok bool
	)
	switch bt := b.(type) {
	case *onBaseUBattery:
		test, err := bt.lookup(code)
		if err != nil {
			return Instruction{}, err
		}
		in, ok = set.Mobility[test.Name]
	case *tpiBattery:
		in, ok = set.TPIPower[code]
	case *sprintBattery:
		in, ok = set.Sprint[code]
	case *kamsBattery:
		in, ok = set.KAMS[code]
	}
	if !ok {
		return Instruction{}, fmt.Errorf("%w: no instructions for %s %q", ErrUnknownTest, t, code)
	}
	return in, nil
}
