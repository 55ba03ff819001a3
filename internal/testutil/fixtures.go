// Package testutil provides shared test fixtures: canned model property
// maps and model-file helpers.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/episim/episim/internal/props"
)

// SEIRProps returns the properties of a small self-contained SEIR model:
// 100 generated people in hourly households, one proximity condition with
// three imported cases on day 0. Overrides run in order on top of the
// base map.
func SEIRProps(overrides ...func(*props.Map)) *props.Map {
	p := props.NewMap()
	for key, value := range map[string]string{
		"days":                   "15",
		"seed":                   "5000",
		"population_size":        "100",
		"place_types":            "Household",
		"Household.hourly":       "1",
		"Household.mean_size":    "25",
		"Household.contact_rate": "0.1",
		"conditions":             "FLU",
		"FLU.transmissibility":   "1",
		"FLU.transmission_mode":  "proximity",
		"FLU.states":             "S E I R",
		"FLU.E.duration":         "24",
		"FLU.E.next_state":       "I",
		"FLU.I.duration":         "96",
		"FLU.I.next_state":       "R",
		"FLU.I.transmissibility": "1",
		"FLU.import_day":         "0",
		"FLU.import_count":       "3",
	} {
		p.Set(key, value)
	}
	for _, override := range overrides {
		override(p)
	}
	return p
}

// SetAll returns an override applying every entry of the given map.
func SetAll(values map[string]string) func(*props.Map) {
	return func(p *props.Map) {
		for key, value := range values {
			p.Set(key, value)
		}
	}
}

// WriteModelFile writes model-file content into the test's temp directory
// and returns its path.
func WriteModelFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.fred")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing model file: %v", err)
	}
	return path
}
