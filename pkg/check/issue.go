// Package check defines the issue model shared by every docguard validator
// and the runner that applies a registry of pure check functions to a tree.
package check

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Severity orders issues. Only issues at or above the configured threshold
// block a run.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// ParseSeverity accepts error, warning (or warn) and info, case-insensitively.
func ParseSeverity(value string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	}
	return SeverityInfo, errors.Errorf("unknown severity %q", value)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Issue is one finding. Line is 1-based; 0 marks a file-level issue.
type Issue struct {
	File       string   `json:"file"`
	Line       int      `json:"line,omitempty"`
	Column     int      `json:"column,omitempty"`
	Rule       string   `json:"rule"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Location renders file:line:column, dropping zero parts.
func (i Issue) Location() string {
	var b strings.Builder
	b.WriteString(i.File)
	if i.Line > 0 {
		b.WriteString(":")
		b.WriteString(strconv.Itoa(i.Line))
		if i.Column > 0 {
			b.WriteString(":")
			b.WriteString(strconv.Itoa(i.Column))
		}
	}
	return b.String()
}

// Less orders issues by file, line, column, rule, then message.
func Less(a, b Issue) bool {
	if a.File != b.File {
		return a.File < b.File
	}
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	if a.Column != b.Column {
		return a.Column < b.Column
	}
	if a.Rule != b.Rule {
		return a.Rule < b.Rule
	}
	return a.Message < b.Message
}
