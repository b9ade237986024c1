// Package presenter writes user-facing status lines for docguard commands:
// errors, warnings, progress and the final pass/fail verdict.
package presenter

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Presenter is the console surface used by commands.
type Presenter interface {
	Error(err error, context string)
	Success(message string)
	Warning(message string)
	Info(message string)
	Section(title string)
	Verdict(blocking int, total int)
	Separator()
	SetQuiet(quiet bool)
	IsQuiet() bool
}

// ColorMode controls whether ANSI colours are emitted.
type ColorMode int

const (
	// ColorAuto lets fatih/color decide from the terminal.
	ColorAuto ColorMode = iota
	// ColorAlways forces colours, useful in CI logs that render ANSI.
	ColorAlways
	// ColorNever disables colours.
	ColorNever
)

// TerminalPresenter writes to an output and an error stream.
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	colorMode   ColorMode
	quiet       bool
}

// New returns a presenter on stdout/stderr with the colour mode taken from
// the environment.
func New() *TerminalPresenter {
	return NewWithOptions(os.Stdout, os.Stderr, ColorModeFromEnv())
}

// NewWithOptions returns a presenter with explicit streams and colour mode.
func NewWithOptions(output, errorOutput io.Writer, mode ColorMode) *TerminalPresenter {
	switch mode {
	case ColorAlways:
		color.NoColor = false
	case ColorNever:
		color.NoColor = true
	}
	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
		colorMode:   mode,
	}
}

// ParseColorMode maps the DOCGUARD_COLOR vocabulary onto a ColorMode.
func ParseColorMode(value string) ColorMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "always", "force":
		return ColorAlways
	case "never", "off":
		return ColorNever
	default:
		return ColorAuto
	}
}

// ColorModeFromEnv honours NO_COLOR first, then DOCGUARD_COLOR.
func ColorModeFromEnv() ColorMode {
	if os.Getenv("NO_COLOR") != "" {
		return ColorNever
	}
	return ParseColorMode(os.Getenv("DOCGUARD_COLOR"))
}

// Error prints to the error stream. Errors are shown even in quiet mode.
func (p *TerminalPresenter) Error(err error, context string) {
	if err == nil {
		return
	}
	c := color.New(color.FgRed, color.Bold)
	if context != "" {
		c.Fprintf(p.errorOutput, "[ERROR] %s: %v\n", context, err)
		return
	}
	c.Fprintf(p.errorOutput, "[ERROR] %v\n", err)
}

func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgGreen, color.Bold).Fprintf(p.output, "✓ %s\n", message)
}

func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	color.New(color.FgYellow, color.Bold).Fprintf(p.output, "⚠ %s\n", message)
}

func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.output, message)
}

// Section prints an underlined heading.
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}
	c := color.New(color.Bold)
	c.Fprintln(p.output, title)
	c.Fprintln(p.output, strings.Repeat("-", len(title)))
}

// Verdict prints the closing line of a validation run. A failing verdict
// goes to the error stream so it survives quiet mode.
func (p *TerminalPresenter) Verdict(blocking int, total int) {
	if blocking > 0 {
		color.New(color.FgRed, color.Bold).Fprintf(p.errorOutput,
			"✗ validation failed: %d blocking of %d issues\n", blocking, total)
		return
	}
	if total == 0 {
		p.Success("no issues found")
		return
	}
	p.Success(fmt.Sprintf("validation passed with %d non-blocking issues", total))
}

func (p *TerminalPresenter) Separator() {
	if p.quiet {
		return
	}
	color.New(color.Faint).Fprintln(p.output, strings.Repeat("-", 60))
}

func (p *TerminalPresenter) SetQuiet(quiet bool) { p.quiet = quiet }

func (p *TerminalPresenter) IsQuiet() bool { return p.quiet }

var defaultPresenter = New()

// SetDefault replaces the package-level presenter, mainly for tests.
func SetDefault(p *TerminalPresenter) { defaultPresenter = p }

func Error(err error, context string) { defaultPresenter.Error(err, context) }

func Success(message string) { defaultPresenter.Success(message) }

func Warning(message string) { defaultPresenter.Warning(message) }

func Info(message string) { defaultPresenter.Info(message) }

func Section(title string) { defaultPresenter.Section(title) }

func Verdict(blocking, total int) { defaultPresenter.Verdict(blocking, total) }

func Separator() { defaultPresenter.Separator() }

func SetQuiet(quiet bool) { defaultPresenter.SetQuiet(quiet) }

func IsQuiet() bool { return defaultPresenter.IsQuiet() }
