// Package graph turns a stream's commit chain into an update graph.
package graph

import (
	"fmt"
	"slices"

	"github.com/thiagokokada/altcos-graph/internal/store"
)

// Policy controls which upgrade edges are emitted besides parent edges.
type Policy struct {
	// SkipEdges allows jumping over intermediate releases.
	SkipEdges bool
	// MinSkip is the smallest age distance of a skip edge. Values below 2 are
	// treated as 2; distance 1 is always a parent edge.
	MinSkip int
}

// DefaultPolicy lets every release upgrade directly to any newer one.
func DefaultPolicy() Policy {
	return Policy{SkipEdges: true, MinSkip: 2}
}

type Node struct {
	Version  string
	AgeIndex int
	Payload  string
}

// Edge is a (source, target) pair of node indices.
type Edge [2]int

type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Build expects the chain newest first, as returned by store.Repository.Chain.
// Nodes come out oldest first; a node's index equals its age index.
func Build(chain []store.Commit, policy Policy) (Graph, error) {
	ordered := slices.Clone(chain)
	slices.Reverse(ordered)

	index := make(map[string]int, len(ordered))
	for i, c := range ordered {
		index[c.Hash] = i
	}

	g := Graph{Nodes: make([]Node, 0, len(ordered))}
	for i, c := range ordered {
		g.Nodes = append(g.Nodes, Node{Version: c.Version.String(), AgeIndex: i, Payload: c.Hash})
		if c.Parent == "" {
			continue
		}
		p, ok := index[c.Parent]
		if !ok {
			return Graph{}, fmt.Errorf("commit %s: parent %s not in chain", c.Hash, c.Parent)
		}
		g.Edges = append(g.Edges, Edge{p, i})
	}

	if policy.SkipEdges {
		minSkip := max(policy.MinSkip, 2)
		for i := range ordered {
			for j := i + minSkip; j < len(ordered); j++ {
				g.Edges = append(g.Edges, Edge{i, j})
			}
		}
	}
	return g, nil
}
