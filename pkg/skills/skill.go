// Package skills discovers SKILL.md files and validates them against the
// progressive-disclosure layout: frontmatter, three levels of content, the
// standard resource directories and references to sibling skills.
package skills

// Skill is a discovered SKILL.md.
type Skill struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	// Directory is the skill directory, slash separated and relative to the
	// repository root.
	Directory string `json:"directory"`
	// File is the SKILL.md path relative to the repository root.
	File string `json:"file"`
	// Content is the body of SKILL.md without frontmatter.
	Content string `json:"-"`
	// DirName is the base name of the skill directory.
	DirName string `json:"-"`
	// LoadErr is set when the frontmatter is missing or unusable.
	LoadErr error `json:"-"`
}
