package links

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jingkaihe/docguard/pkg/docs"
)

const (
	autoLinksBegin = "<!-- AUTO-LINKS:"
	autoLinksEnd   = "<!-- /AUTO-LINKS -->"
)

var markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// Edge is a resolved internal link between two files.
type Edge struct {
	From string
	To   string
	Line int
}

// Graph is the directed link graph of a tree. Nodes are the tree documents
// plus every internal file they link to.
type Graph struct {
	nodes map[string]bool
	out   map[string]map[string]int
	in    map[string]map[string]bool
}

// BuildGraph resolves every link of every document. Links inside
// AUTO-LINKS comment blocks count as edges too, since generated hubs keep
// their link lists there.
func BuildGraph(tree *docs.Tree, r *Resolver) *Graph {
	g := &Graph{
		nodes: map[string]bool{},
		out:   map[string]map[string]int{},
		in:    map[string]map[string]bool{},
	}
	for _, doc := range tree.Documents {
		g.nodes[doc.RelPath] = true
	}
	for _, doc := range tree.Documents {
		for _, l := range doc.Links {
			if res := r.Resolve(doc.RelPath, l.Target); res.Kind == Internal {
				g.add(doc.RelPath, res.Path, l.Line)
			}
		}
		for _, l := range AutoLinks(doc) {
			if res := r.Resolve(doc.RelPath, l.Target); res.Kind == Internal {
				g.add(doc.RelPath, res.Path, l.Line)
			}
		}
	}
	return g
}

func (g *Graph) add(from, to string, line int) {
	if from == to {
		return
	}
	g.nodes[to] = true
	if g.out[from] == nil {
		g.out[from] = map[string]int{}
	}
	if _, ok := g.out[from][to]; !ok {
		g.out[from][to] = line
	}
	if g.in[to] == nil {
		g.in[to] = map[string]bool{}
	}
	g.in[to][from] = true
}

// Nodes returns every node, sorted.
func (g *Graph) Nodes() []string {
	return sortedKeys(g.nodes)
}

// Inbound lists the files linking to p.
func (g *Graph) Inbound(p string) []string {
	return sortedKeys(g.in[p])
}

// Outbound lists the files p links to.
func (g *Graph) Outbound(p string) []string {
	out := make([]string, 0, len(g.out[p]))
	for to := range g.out[p] {
		out = append(out, to)
	}
	sort.Strings(out)
	return out
}

// Links reports whether from links to to.
func (g *Graph) Links(from, to string) bool {
	_, ok := g.out[from][to]
	return ok
}

// Edges returns all edges sorted by source then target.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, from := range sortedKeys(g.nodes) {
		for _, to := range g.Outbound(from) {
			edges = append(edges, Edge{From: from, To: to, Line: g.out[from][to]})
		}
	}
	return edges
}

// DOT renders the subgraph whose nodes satisfy keep in Graphviz syntax.
// A nil keep renders everything.
func (g *Graph) DOT(keep func(string) bool) string {
	if keep == nil {
		keep = func(string) bool { return true }
	}
	var b strings.Builder
	b.WriteString("digraph docs {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")
	for _, n := range g.Nodes() {
		if keep(n) {
			fmt.Fprintf(&b, "  %q;\n", n)
		}
	}
	for _, e := range g.Edges() {
		if keep(e.From) && keep(e.To) {
			fmt.Fprintf(&b, "  %q -> %q;\n", e.From, e.To)
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// AutoLinks extracts links written inside AUTO-LINKS comment blocks, which
// the markdown parser treats as raw HTML.
func AutoLinks(doc *docs.Document) []docs.Link {
	text := string(doc.Raw)
	var out []docs.Link
	start := 0
	for {
		begin := strings.Index(text[start:], autoLinksBegin)
		if begin < 0 {
			break
		}
		begin += start
		end := strings.Index(text[begin:], autoLinksEnd)
		if end < 0 {
			break
		}
		end += begin
		block := text[begin+len(autoLinksBegin) : end]
		blockLine := strings.Count(text[:begin], "\n") + 1
		for _, m := range markdownLink.FindAllStringSubmatchIndex(block, -1) {
			out = append(out, docs.Link{
				Text:   block[m[2]:m[3]],
				Target: strings.TrimSpace(block[m[4]:m[5]]),
				Line:   blockLine + strings.Count(block[:m[0]], "\n"),
			})
		}
		start = end + len(autoLinksEnd)
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
