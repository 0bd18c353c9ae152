package topology

import (
	"fmt"
	"strings"

	"apphost/internal/models"
)

type Node struct {
	Name string              `json:"name"`
	Kind models.ResourceKind `json:"kind"`
}

// Snapshot is a serializable copy of a graph and its launch order.
type Snapshot struct {
	Nodes     []Node      `json:"nodes"`
	Edges     []Reference `json:"edges"`
	TopoOrder []string    `json:"topoOrder"`
}

func (g *Graph) Snapshot() (Snapshot, error) {
	order, err := g.TopologicalOrder()
	if err != nil {
		return Snapshot{}, err
	}
	resources := g.Resources()
	nodes := make([]Node, 0, len(resources))
	for _, d := range resources {
		nodes = append(nodes, Node{Name: d.Name(), Kind: d.Kind()})
	}
	return Snapshot{
		Nodes:     nodes,
		Edges:     g.References(),
		TopoOrder: order,
	}, nil
}

// DOT exports Graphviz DOT text.
func (s Snapshot) DOT() string {
	var b strings.Builder
	b.WriteString("digraph apphost {\n")
	b.WriteString("  rankdir=LR;\n")

	aliases := make(map[string]string, len(s.Nodes))
	for i, n := range s.Nodes {
		alias := fmt.Sprintf("n%d", i)
		aliases[n.Name] = alias
		label := escapeQuotes(n.Name) + "\\n(" + escapeQuotes(string(n.Kind)) + ")"
		b.WriteString(fmt.Sprintf("  %s [label=\"%s\"];\n", alias, label))
	}
	for _, e := range s.Edges {
		from, okFrom := aliases[e.From]
		to, okTo := aliases[e.To]
		if !okFrom || !okTo {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s -> %s [label=\"%s\"];\n", from, to, e.Mode))
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid exports Mermaid graph text.
func (s Snapshot) Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD\n")

	aliases := make(map[string]string, len(s.Nodes))
	for i, n := range s.Nodes {
		alias := fmt.Sprintf("n%d", i)
		aliases[n.Name] = alias
		label := escapeQuotes(n.Name) + "<br/>(" + escapeQuotes(string(n.Kind)) + ")"
		b.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", alias, label))
	}
	for _, e := range s.Edges {
		from, okFrom := aliases[e.From]
		to, okTo := aliases[e.To]
		if !okFrom || !okTo {
			continue
		}
		b.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", from, e.Mode, to))
	}
	return b.String()
}

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, "\"", "\\\"")
}
