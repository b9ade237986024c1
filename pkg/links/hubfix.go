package links

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/aymanbagabas/go-udiff"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/fsutil"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const noDocuments = "_(no documents found)_"

// HubFixOptions control how FixHubs writes.
type HubFixOptions struct {
	DryRun    bool
	BackupDir string
}

// HubFix is the edit of one hub file.
type HubFix struct {
	Hub     string   `json:"hub"`
	Added   []string `json:"added"`
	Created bool     `json:"created,omitempty"`
	Diff    string   `json:"diff,omitempty"`
	Backup  string   `json:"backup,omitempty"`
	Written bool     `json:"written"`
}

type hubBlock struct {
	hub     string
	pattern string
}

// planHubLinks assigns every hub violation to the first rule matching it and,
// within that rule, to its first hub that exists in the tree (or its first
// hub when none does). The result maps hub and pattern to the files to add.
func planHubLinks(tree *docs.Tree, res *AuditResult, rules []config.HubRule) map[hubBlock][]string {
	plan := map[hubBlock][]string{}
	for _, p := range res.HubViolations {
		for _, rule := range rules {
			if rule.Pattern == "" || len(rule.Hubs) == 0 || !docs.MatchAny([]string{rule.Pattern}, p) {
				continue
			}
			hub := rule.Hubs[0]
			for _, h := range rule.Hubs {
				if _, err := tree.Stat(h); err == nil {
					hub = h
					break
				}
			}
			key := hubBlock{hub: hub, pattern: rule.Pattern}
			plan[key] = append(plan[key], p)
			break
		}
	}
	return plan
}

// FixHubs adds the missing links of res to the AUTO-LINKS block of each hub,
// creating the block or the hub file when absent. The caller holds the tree
// lock unless opts.DryRun is set.
func FixHubs(ctx context.Context, tree *docs.Tree, res *AuditResult, rules []config.HubRule, opts HubFixOptions) ([]*HubFix, error) {
	plan := planHubLinks(tree, res, rules)
	keys := make([]hubBlock, 0, len(plan))
	for k := range plan {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].hub != keys[j].hub {
			return keys[i].hub < keys[j].hub
		}
		return keys[i].pattern < keys[j].pattern
	})

	byHub := map[string]*HubFix{}
	var fixes []*HubFix
	for _, k := range keys {
		fix, err := fixHub(ctx, tree.Root, k, plan[k], opts)
		if err != nil {
			return fixes, err
		}
		if prev, ok := byHub[k.hub]; ok {
			prev.Added = append(prev.Added, fix.Added...)
			prev.Diff += fix.Diff
			continue
		}
		byHub[k.hub] = fix
		fixes = append(fixes, fix)
	}
	return fixes, nil
}

func fixHub(ctx context.Context, root string, k hubBlock, targets []string, opts HubFixOptions) (*HubFix, error) {
	p := filepath.Join(root, filepath.FromSlash(k.hub))
	log := logger.G(ctx).WithFields(logrus.Fields{"hub": k.hub, "pattern": k.pattern, "dry_run": opts.DryRun})
	fix := &HubFix{Hub: k.hub, Added: targets}

	content, err := os.ReadFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read hub %s", k.hub)
		}
		fix.Created = true
		content = []byte(NewHub(k.hub))
	}
	updated := FillAutoLinks(string(content), k.hub, k.pattern, targets)

	before := string(content)
	if fix.Created {
		before = ""
	}
	fix.Diff = udiff.Unified("a/"+k.hub, "b/"+k.hub, before, updated)
	if opts.DryRun {
		log.WithField("links", len(targets)).Info("would add hub links")
		return fix, nil
	}

	if fix.Created {
		if err := fsutil.WriteFile(p, []byte(updated), 0o644); err != nil {
			return nil, err
		}
	} else {
		if opts.BackupDir != "" {
			backup, err := fsutil.Backup(root, opts.BackupDir, k.hub)
			if err != nil {
				return nil, err
			}
			fix.Backup = backup
		}
		err := fsutil.Rewrite(p, func(current []byte) ([]byte, error) {
			return []byte(FillAutoLinks(string(current), k.hub, k.pattern, targets)), nil
		})
		if err != nil {
			return nil, err
		}
	}
	fix.Written = true
	log.WithField("links", len(targets)).Info("added hub links")
	return fix, nil
}

// NewHub is the content of a hub file that does not exist yet.
func NewHub(hub string) string {
	name := titleCase(path.Base(path.Dir(hub)))
	if path.Dir(hub) == "." {
		name = "Documentation"
	}
	back := strings.Repeat("../", strings.Count(hub, "/")) + "README.md"
	if hub == "README.md" {
		return fmt.Sprintf("# %s\n\n## Contents\n", name)
	}
	return fmt.Sprintf("# %s\n\nThis is the hub page for %s documentation.\n\n## Contents\n\n---\n\n← Back to [Main Repository](%s)\n",
		name, strings.ToLower(name), back)
}

// FillAutoLinks adds a list item per target to the AUTO-LINKS block of
// pattern in content. Targets the block already links are skipped. Without a
// block one is inserted after the "## Contents" heading, before
// "## Navigation", or at the end.
func FillAutoLinks(content, hub, pattern string, targets []string) string {
	begin := autoLinksBegin + pattern + " -->"

	var items []string
	for _, t := range targets {
		items = append(items, hubLinkItem(hub, t))
	}

	start := strings.Index(content, begin)
	if start >= 0 {
		end := strings.Index(content[start:], autoLinksEnd)
		if end >= 0 {
			end += start
			block := content[start+len(begin) : end]
			var lines []string
			for _, line := range strings.Split(block, "\n") {
				line = strings.TrimSpace(line)
				if line != "" && line != noDocuments {
					lines = append(lines, line)
				}
			}
			for _, item := range items {
				if !containsTarget(lines, item) {
					lines = append(lines, item)
				}
			}
			return content[:start] + renderBlock(begin, lines) + content[end+len(autoLinksEnd):]
		}
	}

	block := renderBlock(begin, items)
	if i := headingLine(content, "## Contents"); i >= 0 {
		return content[:i] + "\n\n" + block + content[i:]
	}
	if i := strings.Index(content, "\n## Navigation"); i >= 0 {
		return content[:i+1] + block + "\n\n" + content[i+1:]
	}
	return strings.TrimRight(content, "\n") + "\n\n" + block + "\n"
}

// headingLine returns the offset just past the heading line, or -1.
func headingLine(content, heading string) int {
	pos := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		if strings.TrimSpace(line) == heading {
			return pos + len(strings.TrimRight(line, "\n"))
		}
		pos += len(line)
	}
	return -1
}

func renderBlock(begin string, lines []string) string {
	body := noDocuments
	if len(lines) > 0 {
		body = strings.Join(lines, "\n")
	}
	return begin + "\n\n" + body + "\n\n" + autoLinksEnd
}

func containsTarget(lines []string, item string) bool {
	m := markdownLink.FindStringSubmatch(item)
	for _, line := range lines {
		if lm := markdownLink.FindStringSubmatch(line); lm != nil && lm[2] == m[2] {
			return true
		}
	}
	return false
}

// hubLinkItem links target from hub with a title derived from its name.
func hubLinkItem(hub, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(hub)), filepath.FromSlash(target))
	if err != nil {
		rel = target
	}
	rel = filepath.ToSlash(rel)
	title := titleCase(strings.TrimSuffix(path.Base(target), path.Ext(target)))
	return fmt.Sprintf("- [%s](%s)", title, strings.ReplaceAll(rel, " ", "%20"))
}

func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
