package epi

import (
	"fmt"
	"io"

	"github.com/episim/episim/internal/props"
)

// Network is a mixing group whose contacts follow explicit edges rather
// than random roster draws. Edges live on the persons; the network's member
// roster holds every person with at least one edge (or a declared isolated
// node).
type Network struct {
	Group
}

// IsUndirected reports whether every edge is mirrored.
func (n *Network) IsUndirected() bool {
	return n.Type.Undirected
}

func (n *Network) ensureMember(p *Person) {
	if p.IndexIn(&n.Group) < 0 {
		n.BeginMembership(p)
	}
}

// AddEdge joins both endpoints and adds a from->to edge. For an undirected
// network the mirror edge is added too. A self-loop only enrolls the person
// as an isolated node. Adding an edge that already exists is a no-op.
func (n *Network) AddEdge(from, to *Person, weight float64) {
	n.ensureMember(from)
	if from == to {
		return
	}
	n.ensureMember(to)
	n.addDirected(from, to, weight)
	if n.Type.Undirected {
		n.addDirected(to, from, weight)
	}
}

func (n *Network) addDirected(from, to *Person, weight float64) {
	if _, exists := from.HasEdgeTo(n, to); exists {
		return
	}
	from.adjacencyFor(n, true).out = append(from.adjacencyFor(n, true).out,
		NetworkEdge{Other: to, Weight: weight})
	to.adjacencyFor(n, true).in = append(to.adjacencyFor(n, true).in,
		NetworkEdge{Other: from, Weight: weight})
}

// ReadEdges loads the network's declared edges from the property map.
// lookup resolves a person id; an unknown id is an error.
func (n *Network) ReadEdges(p *props.Map, lookup func(id int) *Person) error {
	for _, e := range p.Edges(n.Label) {
		from := lookup(e.From)
		if from == nil {
			return fmt.Errorf("network %s: unknown person %d", n.Label, e.From)
		}
		to := lookup(e.To)
		if to == nil {
			return fmt.Errorf("network %s: unknown person %d", n.Label, e.To)
		}
		n.AddEdge(from, to, e.Weight)
	}
	return nil
}

// WriteEdgeList writes the network in re-loadable form, one add_edge line
// per outward edge. Members with no edges at all are written as zero-weight
// self-loops so the node set survives a round trip.
func (n *Network) WriteEdgeList(w io.Writer) error {
	for _, member := range n.members {
		edges := member.OutEdges(n)
		if len(edges) == 0 {
			if len(member.InEdges(n)) == 0 {
				if _, err := fmt.Fprintf(w, "%s.add_edge = %d %d 0.0\n", n.Label, member.ID, member.ID); err != nil {
					return err
				}
			}
			continue
		}
		for _, e := range edges {
			if _, err := fmt.Fprintf(w, "%s.add_edge = %d %d %g\n", n.Label, member.ID, e.Other.ID, e.Weight); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteVNA writes the network in VNA node/tie form. An undirected edge
// appears once in the tie section, lower id first.
func (n *Network) WriteVNA(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "*node data\nID age sex race\n"); err != nil {
		return err
	}
	for _, member := range n.members {
		if _, err := fmt.Fprintf(w, "%d %d %c %d\n", member.ID, member.Age, member.Sex, member.Race); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "*tie data\nfrom to weight\n"); err != nil {
		return err
	}
	for _, member := range n.members {
		for _, e := range member.OutEdges(n) {
			if n.Type.Undirected && member.ID >= e.Other.ID {
				continue
			}
			if _, err := fmt.Fprintf(w, "%d %d %g\n", member.ID, e.Other.ID, e.Weight); err != nil {
				return err
			}
		}
	}
	return nil
}
