// Package docs loads a documentation tree: it walks the root with doublestar
// include/exclude globs, splits YAML frontmatter from the body and extracts
// links, headings and code regions from the goldmark AST.
package docs

import (
	"bytes"
	"fmt"
	"path"
	"strings"
)

// Link is a markdown link or image found outside code.
type Link struct {
	Text   string
	Target string
	Line   int
	Column int
	Image  bool
	// Auto is set for <https://...> autolinks.
	Auto bool
}

// Heading is an ATX or setext heading.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// Document is one parsed markdown file.
type Document struct {
	// Path is the OS path used to read the file.
	Path string
	// RelPath is slash-separated and relative to the tree root.
	RelPath string
	Raw     []byte

	Frontmatter    map[string]any
	FrontmatterErr error
	// BodyLine is the 1-based line in Raw where the body starts.
	BodyLine int

	Links    []Link
	Headings []Heading

	lines     []string
	codeLines map[int]bool
}

// Lines returns Raw split on newlines. Line n of the file is Lines()[n-1].
func (d *Document) Lines() []string {
	if d.lines == nil {
		text := strings.ReplaceAll(string(d.Raw), "\r\n", "\n")
		d.lines = strings.Split(text, "\n")
	}
	return d.lines
}

// InCode reports whether the 1-based line belongs to a fenced or indented
// code block, fence markers included.
func (d *Document) InCode(line int) bool {
	return d.codeLines[line]
}

// InFrontmatter reports whether the 1-based line is part of the frontmatter.
func (d *Document) InFrontmatter(line int) bool {
	return line < d.BodyLine
}

// Dir is the slash directory of the document relative to the root.
func (d *Document) Dir() string {
	dir := path.Dir(d.RelPath)
	if dir == "." {
		return ""
	}
	return dir
}

// Base is the file name.
func (d *Document) Base() string {
	return path.Base(d.RelPath)
}

// FrontmatterString returns a scalar frontmatter value as a string.
func (d *Document) FrontmatterString(key string) string {
	v, ok := d.Frontmatter[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

// HasFrontmatter reports whether the file opens with a frontmatter block.
func (d *Document) HasFrontmatter() bool {
	return bytes.HasPrefix(d.Raw, []byte("---")) || bytes.HasPrefix(d.Raw, []byte("+++"))
}

// Section returns the text under the first heading whose text starts with
// prefix, up to the next heading of the same or a higher level.
func (d *Document) Section(level int, prefix string) (string, bool) {
	lines := d.Lines()
	for i, h := range d.Headings {
		if h.Level != level || !strings.HasPrefix(h.Text, prefix) {
			continue
		}
		end := len(lines)
		for _, next := range d.Headings[i+1:] {
			if next.Level <= level {
				end = next.Line - 1
				break
			}
		}
		if h.Line > len(lines) {
			return "", true
		}
		return strings.Join(lines[h.Line:end], "\n"), true
	}
	return "", false
}
