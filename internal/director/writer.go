package director

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ScenarioVersion is the only scenario layout ReadScenario accepts.
const ScenarioVersion = "1.0"

// EncodeScenario writes s as YAML.
func EncodeScenario(w io.Writer, s *Scenario) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// WriteScenario writes the scenario next to path and renames it into place,
// so readers never see a half-written file.
func WriteScenario(scenario *Scenario, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := EncodeScenario(tmp, scenario); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadScenario reads a scenario file back and checks that its slide
// durations add up to the recorded total.
func ReadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := scenario.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &scenario, nil
}

func (s *Scenario) validate() error {
	if s.Version != ScenarioVersion {
		return fmt.Errorf("unsupported scenario version %q", s.Version)
	}
	if len(s.Slides) == 0 {
		return errors.New("scenario has no slides")
	}
	var sum float64
	for i, sl := range s.Slides {
		if sl.Duration < 0 {
			return fmt.Errorf("slide entry %d: negative duration", i+1)
		}
		sum += sl.Duration
	}
	// Durations are written with millisecond precision.
	if math.Abs(sum-s.Total) > 0.001*float64(len(s.Slides)) {
		return fmt.Errorf("slide durations add up to %.3fs, total is %.3fs", sum, s.Total)
	}
	return nil
}
