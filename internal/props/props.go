// Package props holds the parsed model description: a flat map of
// line-oriented "key = value" properties with typed accessors and setup-time
// error accumulation. Scoped keys use dotted prefixes, e.g.
// "INF.transmissibility" or "Household.contact_rate".
package props

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Edge is one parsed "<label>.add_edge = from to weight" record.
type Edge struct {
	From   int
	To     int
	Weight float64
}

// Map is a parsed model description. Validation errors found during setup
// accumulate on the map; Err reports them all before step 0 runs.
type Map struct {
	values map[string]string
	edges  map[string][]Edge
	errs   []error
}

// NewMap returns an empty property map, useful for tests that set properties
// directly.
func NewMap() *Map {
	return &Map{
		values: make(map[string]string),
		edges:  make(map[string][]Edge),
	}
}

// Load parses a model file.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model file: %w", err)
	}
	defer f.Close()

	m := NewMap()
	if err := m.parse(f, path); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Map) parse(r io.Reader, path string) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			m.Errorf("%s:%d: expected 'key = value', got %q", path, lineno, line)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" {
			m.Errorf("%s:%d: empty property name", path, lineno)
			continue
		}
		if label, ok := strings.CutSuffix(key, ".add_edge"); ok {
			edge, err := parseEdge(value)
			if err != nil {
				m.Errorf("%s:%d: %v", path, lineno, err)
				continue
			}
			m.edges[label] = append(m.edges[label], edge)
			continue
		}
		m.values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading model file: %w", err)
	}
	return nil
}

func parseEdge(value string) (Edge, error) {
	fields := strings.Fields(value)
	if len(fields) != 3 {
		return Edge{}, fmt.Errorf("bad add_edge %q: want 'from to weight'", value)
	}
	from, err := strconv.Atoi(fields[0])
	if err != nil {
		return Edge{}, fmt.Errorf("bad add_edge from %q: %w", fields[0], err)
	}
	to, err := strconv.Atoi(fields[1])
	if err != nil {
		return Edge{}, fmt.Errorf("bad add_edge to %q: %w", fields[1], err)
	}
	weight, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Edge{}, fmt.Errorf("bad add_edge weight %q: %w", fields[2], err)
	}
	return Edge{From: from, To: to, Weight: weight}, nil
}

// Set stores a property, overriding any parsed value.
func (m *Map) Set(key, value string) {
	m.values[key] = value
}

// AddEdge appends an edge record for a network label.
func (m *Map) AddEdge(label string, edge Edge) {
	m.edges[label] = append(m.edges[label], edge)
}

// Exists reports whether a property was set.
func (m *Map) Exists(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Edges returns the parsed add_edge records for a network label.
func (m *Map) Edges(label string) []Edge {
	return m.edges[label]
}

// String returns the property value, or def when unset.
func (m *Map) String(key, def string) string {
	if v, ok := m.values[key]; ok {
		return v
	}
	return def
}

// Strings returns the property value split on whitespace, or nil when unset.
func (m *Map) Strings(key string) []string {
	v, ok := m.values[key]
	if !ok {
		return nil
	}
	return strings.Fields(v)
}

// Int returns the property as an int, accumulating an error on a malformed
// value.
func (m *Map) Int(key string, def int) int {
	v, ok := m.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		m.Errorf("property %s: bad integer %q", key, v)
		return def
	}
	return n
}

// Float returns the property as a float64, accumulating an error on a
// malformed value.
func (m *Map) Float(key string, def float64) float64 {
	v, ok := m.values[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		m.Errorf("property %s: bad number %q", key, v)
		return def
	}
	return f
}

// Floats returns the property as a whitespace-separated list of float64.
func (m *Map) Floats(key string) []float64 {
	fields := m.Strings(key)
	if fields == nil {
		return nil
	}
	out := make([]float64, 0, len(fields))
	for _, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			m.Errorf("property %s: bad number %q", key, field)
			continue
		}
		out = append(out, f)
	}
	return out
}

// Bool returns the property as a 0/1 flag.
func (m *Map) Bool(key string, def bool) bool {
	v, ok := m.values[key]
	if !ok {
		return def
	}
	switch v {
	case "0":
		return false
	case "1":
		return true
	default:
		m.Errorf("property %s: bad flag %q (want 0 or 1)", key, v)
		return def
	}
}

// Errorf records a validation error. Setup checks Err before step 0.
func (m *Map) Errorf(format string, args ...any) {
	m.errs = append(m.errs, fmt.Errorf(format, args...))
}

// Err returns all accumulated validation errors joined, or nil.
func (m *Map) Err() error {
	return errors.Join(m.errs...)
}
