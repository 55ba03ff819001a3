package epi

import (
	"fmt"

	"github.com/episim/episim/internal/props"
)

// TransmissionMode selects how a condition spreads.
type TransmissionMode string

const (
	ModeProximity     TransmissionMode = "proximity"
	ModeNetwork       TransmissionMode = "network"
	ModeEnvironmental TransmissionMode = "environmental"
	ModeNone          TransmissionMode = "none"
)

// Valid reports whether the mode is one of the recognized values.
func (m TransmissionMode) Valid() bool {
	switch m {
	case ModeProximity, ModeNetwork, ModeEnvironmental, ModeNone:
		return true
	}
	return false
}

func (m TransmissionMode) String() string {
	return string(m)
}

// Condition is one disease or behavioral process: its state machine, how it
// spreads, and its spread rate.
type Condition struct {
	ID               int
	Name             string
	Transmissibility float64
	Mode             TransmissionMode
	NetworkName      string
	ImportDay        int
	ImportCount      int
	History          *NaturalHistory

	epidemic *Epidemic
}

// LoadCondition reads one condition's configuration and state machine from
// the property map.
func LoadCondition(p *props.Map, name string, id int) (*Condition, error) {
	c := &Condition{
		ID:               id,
		Name:             name,
		Transmissibility: p.Float(name+".transmissibility", 0),
		Mode:             TransmissionMode(p.String(name+".transmission_mode", string(ModeNone))),
		NetworkName:      p.String(name+".transmission_network", ""),
		ImportDay:        p.Int(name+".import_day", 0),
		ImportCount:      p.Int(name+".import_count", 0),
	}
	if !c.Mode.Valid() {
		return nil, fmt.Errorf("condition %s: bad transmission_mode %q", name, c.Mode)
	}
	if c.Mode == ModeNetwork && c.NetworkName == "" {
		return nil, fmt.Errorf("condition %s: network mode needs a transmission_network", name)
	}
	history, err := LoadNaturalHistory(p, name)
	if err != nil {
		return nil, err
	}
	c.History = history
	return c, nil
}

// Epidemic returns the condition's epidemic bookkeeping.
func (c *Condition) Epidemic() *Epidemic {
	return c.epidemic
}
