package epi

import (
	"fmt"

	"github.com/episim/episim/internal/props"
)

// AgeMap is a step function over age: value[i] applies to ages strictly below
// threshold[i]. Thresholds must be increasing.
type AgeMap struct {
	thresholds []float64
	values     []float64
}

// LoadAgeMap reads "<prefix>.age_groups" and "<prefix>.age_values" from the
// property map. A missing map returns nil with no error.
func LoadAgeMap(p *props.Map, prefix string) (*AgeMap, error) {
	groupsKey := prefix + ".age_groups"
	valuesKey := prefix + ".age_values"
	if !p.Exists(groupsKey) && !p.Exists(valuesKey) {
		return nil, nil
	}
	thresholds := p.Floats(groupsKey)
	values := p.Floats(valuesKey)
	m := &AgeMap{thresholds: thresholds, values: values}
	if err := m.validate(prefix); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *AgeMap) validate(prefix string) error {
	if len(m.thresholds) != len(m.values) {
		return fmt.Errorf("age map %s: %d thresholds but %d values",
			prefix, len(m.thresholds), len(m.values))
	}
	for i := 1; i < len(m.thresholds); i++ {
		if m.thresholds[i] <= m.thresholds[i-1] {
			return fmt.Errorf("age map %s: thresholds not increasing at %v",
				prefix, m.thresholds[i])
		}
	}
	return nil
}

// FindValue returns the value for the first threshold that age falls below,
// or 0 when age is past the last threshold.
func (m *AgeMap) FindValue(age float64) float64 {
	for i, t := range m.thresholds {
		if age < t {
			return m.values[i]
		}
	}
	return 0
}
