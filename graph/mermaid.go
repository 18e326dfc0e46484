package graph

import (
	"sort"
	"strconv"
	"strings"
)

const (
	mermaidStart = "__start__"
	mermaidEnd   = "__end__"
)

// Mermaid renders the graph as a Mermaid flowchart. Node descriptions are
// shown under the node name. Static edges are solid,
// conditional edges dotted and labelled with their branch key. Routers
// without a branch map are drawn to a decision node, since their targets are
// only known at run time.
//
// Rendering never fails; unregistered targets are drawn as they are named.
func (g *Graph[S]) Mermaid() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	static := make(map[string]Next, len(g.edges))
	for _, e := range g.edges {
		static[e.from] = e.to
	}
	conditional := make(map[string][]conditionalEdge[S])
	for _, c := range g.conditional {
		conditional[c.from] = append(conditional[c.from], c)
	}
	return renderMermaid(g.entryPoint, g.order, g.nodes, static, conditional)
}

// Mermaid renders the compiled workflow as a Mermaid flowchart.
func (w *Workflow[S]) Mermaid() string {
	return renderMermaid(w.entryPoint, w.order, w.nodes, w.static, w.conditional)
}

func renderMermaid[S any](entry string, order []string, nodes map[string]Node[S], static map[string]Next, conditional map[string][]conditionalEdge[S]) string {
	ids := mermaidIDs(order)
	id := func(name string) string {
		if v, ok := ids[name]; ok {
			return v
		}
		return mermaidID(name)
	}
	target := func(n Next) string {
		if n.Terminal {
			return mermaidEnd
		}
		return id(n.To)
	}

	var b strings.Builder
	b.WriteString("flowchart TD\n")
	b.WriteString("    " + mermaidStart + "([start])\n")
	for _, name := range order {
		label := mermaidLabel(name)
		if desc := describe(nodes[name]); desc != "" {
			label += "<br/>" + mermaidLabel(desc)
		}
		b.WriteString("    " + id(name) + "[\"" + label + "\"]\n")
	}
	b.WriteString("    " + mermaidEnd + "([end])\n")

	if entry != "" {
		b.WriteString("    " + mermaidStart + " --> " + id(entry) + "\n")
	}

	for _, from := range order {
		if edges, ok := conditional[from]; ok {
			for i, c := range edges {
				if c.router != nil {
					decision := id(from) + "__route"
					if len(edges) > 1 {
						decision += strconv.Itoa(i)
					}
					b.WriteString("    " + id(from) + " -.-> " + decision + "{\"router\"}\n")
					continue
				}
				keys := make([]string, 0, len(c.branches))
				for k := range c.branches {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					b.WriteString("    " + id(from) + " -.->|" + mermaidLabel(k) + "| " + target(c.branches[k]) + "\n")
				}
			}
			continue
		}
		if next, ok := static[from]; ok {
			b.WriteString("    " + id(from) + " --> " + target(next) + "\n")
			continue
		}
		// No outgoing edge finishes the run.
		b.WriteString("    " + id(from) + " --> " + mermaidEnd + "\n")
	}

	return b.String()
}

// mermaidIDs assigns each registered node a distinct identifier. Names that
// sanitize to the same identifier get a numeric suffix in registration order.
func mermaidIDs(order []string) map[string]string {
	ids := make(map[string]string, len(order))
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		base := mermaidID(name)
		candidate := base
		for n := 2; seen[candidate]; n++ {
			candidate = base + "_" + strconv.Itoa(n)
		}
		seen[candidate] = true
		ids[name] = candidate
	}
	return ids
}

// mermaidID maps a node name onto a safe Mermaid identifier.
func mermaidID(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	id := b.String()
	if id == mermaidStart || id == mermaidEnd || id == "end" {
		id = "node_" + id
	}
	return id
}

func mermaidLabel(s string) string {
	return strings.NewReplacer(`"`, "#quot;", "|", "#124;").Replace(s)
}
