package docs

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ParseFile reads root/rel and parses it.
func ParseFile(root, rel string) (*Document, error) {
	p := filepath.Join(root, filepath.FromSlash(rel))
	raw, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", rel)
	}
	doc := Parse(rel, raw)
	doc.Path = p
	return doc, nil
}

// Parse builds a Document from raw markdown. Malformed frontmatter is kept
// on FrontmatterErr and never fails the parse.
func Parse(rel string, raw []byte) *Document {
	doc := &Document{
		RelPath:   filepath.ToSlash(rel),
		Raw:       raw,
		BodyLine:  1,
		codeLines: map[int]bool{},
	}

	body := raw
	if doc.HasFrontmatter() {
		body = doc.splitFrontmatter()
	}

	walkBody(doc, body)
	return doc
}

func (d *Document) splitFrontmatter() []byte {
	fm := map[string]any{}
	rest, err := frontmatter.Parse(bytes.NewReader(d.Raw), &fm)
	if err != nil {
		d.FrontmatterErr = errors.Wrap(err, "malformed frontmatter")
		rest = skipDelimitedBlock(d.Raw)
	} else {
		d.Frontmatter = fm
	}

	offset := len(d.Raw) - len(rest)
	if len(rest) > 0 && !bytes.HasSuffix(d.Raw, rest) {
		if idx := bytes.Index(d.Raw, rest); idx >= 0 {
			offset = idx
		}
	}
	d.BodyLine = bytes.Count(d.Raw[:offset], []byte("\n")) + 1
	return d.Raw[offset:]
}

// skipDelimitedBlock drops everything up to the second delimiter line so a
// broken header does not leak into the heading outline.
func skipDelimitedBlock(raw []byte) []byte {
	delim := raw[:3]
	first := bytes.IndexByte(raw, '\n')
	if first < 0 {
		return nil
	}
	pos := first + 1
	for pos < len(raw) {
		end := bytes.IndexByte(raw[pos:], '\n')
		line := raw[pos:]
		next := len(raw)
		if end >= 0 {
			line = raw[pos : pos+end]
			next = pos + end + 1
		}
		if bytes.Equal(bytes.TrimRight(line, " \r"), delim) {
			return raw[next:]
		}
		pos = next
	}
	return raw
}

type positions struct {
	starts []int
	base   int
}

func newPositions(src []byte, base int) positions {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return positions{starts: starts, base: base}
}

// line converts a body offset to a 1-based file line.
func (p positions) line(offset int) int {
	n := sort.Search(len(p.starts), func(i int) bool { return p.starts[i] > offset })
	return p.base + n - 1
}

func (p positions) column(offset int) int {
	n := sort.Search(len(p.starts), func(i int) bool { return p.starts[i] > offset })
	return offset - p.starts[n-1] + 1
}

func walkBody(doc *Document, body []byte) {
	root := markdown.Parser().Parse(text.NewReader(body))
	pos := newPositions(body, doc.BodyLine)

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if node.Lines().Len() > 0 {
				doc.Headings = append(doc.Headings, Heading{
					Level: node.Level,
					Text:  nodeText(node, body),
					Line:  pos.line(node.Lines().At(0).Start),
				})
			}
		case *ast.Link:
			doc.Links = append(doc.Links, inlineLink(node, string(node.Destination), false, body, pos))
		case *ast.Image:
			doc.Links = append(doc.Links, inlineLink(node, string(node.Destination), true, body, pos))
		case *ast.AutoLink:
			link := inlineLink(node, string(node.URL(body)), false, body, pos)
			link.Text = string(node.Label(body))
			link.Auto = true
			doc.Links = append(doc.Links, link)
		case *ast.FencedCodeBlock:
			markFenced(doc, node, pos)
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			markLines(doc, node.Lines(), pos)
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
}

func inlineLink(n ast.Node, target string, image bool, src []byte, pos positions) Link {
	link := Link{
		Text:   nodeText(n, src),
		Target: strings.TrimSpace(target),
		Image:  image,
	}
	if offset, ok := firstOffset(n); ok {
		link.Line = pos.line(offset)
		link.Column = pos.column(offset)
		if link.Column > 1 {
			link.Column--
		}
	}
	return link
}

// firstOffset finds a source offset for an inline node: its first text
// segment, else the first line of the enclosing block.
func firstOffset(n ast.Node) (int, bool) {
	found := -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			found = t.Segment.Start
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if found >= 0 {
		return found, true
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == ast.TypeBlock && p.Lines().Len() > 0 {
			return p.Lines().At(0).Start, true
		}
	}
	return 0, false
}

func nodeText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(buf.String())
}

func markLines(doc *Document, lines *text.Segments, pos positions) {
	for i := 0; i < lines.Len(); i++ {
		doc.codeLines[pos.line(lines.At(i).Start)] = true
	}
}

func markFenced(doc *Document, node *ast.FencedCodeBlock, pos positions) {
	markLines(doc, node.Lines(), pos)

	opening, closing := 0, 0
	if node.Info != nil {
		opening = pos.line(node.Info.Segment.Start)
	}
	if n := node.Lines().Len(); n > 0 {
		if opening == 0 {
			opening = pos.line(node.Lines().At(0).Start) - 1
		}
		closing = pos.line(node.Lines().At(n-1).Start) + 1
	} else if opening > 0 {
		closing = opening + 1
	}

	lines := doc.Lines()
	for _, l := range []int{opening, closing} {
		if l < 1 || l > len(lines) {
			continue
		}
		trimmed := strings.TrimSpace(lines[l-1])
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			doc.codeLines[l] = true
		}
	}
}
