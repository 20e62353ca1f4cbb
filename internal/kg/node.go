// Package kg holds the knowledge-graph nodes the fixture portal serves: the node
// model, CSKG nodes TSV reading and writing, generated test data, and a SQLite
// store with label search.
package kg

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// TestDataSource is the datasource of generated portal test nodes.
const TestDataSource = "portal_test_data"

// PartsOfSpeech are the WordNet-style POS tags CSKG uses.
var PartsOfSpeech = []string{"a", "n", "r", "v"}

// Node is one CSKG node.
type Node struct {
	ID         string
	Label      string
	Aliases    []string
	Pos        string
	Datasource string
	Other      string
}

// Validate reports a missing required column.
func (n Node) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("missing required column id")
	}
	if strings.TrimSpace(n.Datasource) == "" {
		return fmt.Errorf("missing required column datasource")
	}
	return nil
}

// DisplayLabel is the label, falling back to the id for unlabeled nodes.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// GenerateTestNodes returns n deterministic portal test nodes for seed.
func GenerateTestNodes(n int, seed int64) []Node {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)>>1|1))
	nodes := make([]Node, n)
	for i := range nodes {
		nodes[i] = Node{
			ID:         fmt.Sprintf("%s:%d", TestDataSource, i),
			Label:      fmt.Sprintf("Test node %d", i),
			Aliases:    []string{fmt.Sprintf("Node %d", i), fmt.Sprintf("Node alias %d", i)},
			Pos:        PartsOfSpeech[rng.IntN(len(PartsOfSpeech))],
			Datasource: TestDataSource,
			Other:      fmt.Sprintf(`{"index": %d}`, i),
		}
	}
	return nodes
}
