// Package filter implements the conditional-block filter: a single-pass
// line transducer that removes platform-guarded conditional blocks from
// source text. Blocks guarded by the target platform are discarded, blocks
// guarded by other platforms are unwrapped to unconditional code, and the
// directive lines themselves never reach the output. Whole-line imports of
// platform-specific modules are deleted along the way.
package filter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"swiftstrip/internal/directive"
)

// Options configure a strip pass.
type Options struct {
	// Target is the platform whose guarded blocks are removed entirely.
	Target string
	// Counterpart is the platform paired against Target in if/else
	// splits; the else branch of a counterpart block is target-only code.
	Counterpart string
	// PurgeImports lists module names whose whole-line import statements
	// are deleted from the output.
	PurgeImports []string
}

// Marker returns the textual marker identifying the target guard syntax.
// Files not containing it are skipped entirely.
func Marker(target string) string {
	return "os(" + target + ")"
}

// HasMarker reports whether content contains the target guard marker.
func HasMarker(content, target string) bool {
	return strings.Contains(content, Marker(target))
}

// Strip filters content line by line and returns the transformed text.
// name is used for error positions only. The relative order of retained
// lines is preserved, as is the presence or absence of a final newline.
// Unbalanced conditionals yield an error and no output.
func Strip(name, content string, opts Options) (string, error) {
	cls := directive.Classifier{Target: opts.Target, Counterpart: opts.Counterpart}
	purge := make(map[string]bool, len(opts.PurgeImports))
	for _, m := range opts.PurgeImports {
		purge[m] = true
	}

	cond := newCondStack()
	var out strings.Builder
	for i, ln := range splitLines(content) {
		lineNo := i + 1
		emit := false
		var err error

		switch kind := cls.Classify(ln.text); kind {
		case directive.Plain:
			emit = !cond.Skipping() && !purgedImport(ln.text, purge)
		case directive.ElseifTarget, directive.ElseifOther, directive.Else:
			emit, err = cond.Branch(kind)
		case directive.Endif:
			emit, err = cond.Pop()
		default:
			emit = cond.Push(kind, lineNo)
		}
		if err != nil {
			return "", fmt.Errorf("%s:%d: %w", shortPath(name), lineNo, err)
		}
		if emit {
			out.WriteString(ln.text)
			if ln.hasNL {
				out.WriteByte('\n')
			}
		}
	}
	if cond.Depth() != 0 {
		return "", fmt.Errorf("%s:%d: unclosed #if", shortPath(name), cond.UnclosedLine())
	}
	return out.String(), nil
}

// purgedImport reports whether line is a whole-line import of a purged
// module. Qualified imports (import AppKit.NSWindow) and attributed
// imports (@testable import AppKit) are left alone.
func purgedImport(line string, purge map[string]bool) bool {
	if len(purge) == 0 {
		return false
	}
	f := strings.Fields(line)
	return len(f) == 2 && f[0] == "import" && purge[f[1]]
}

type srcLine struct {
	text  string
	hasNL bool
}

func splitLines(s string) []srcLine {
	if s == "" {
		return nil
	}
	lines := make([]srcLine, 0, 64)
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, srcLine{text: s})
			break
		}
		lines = append(lines, srcLine{text: s[:i], hasNL: true})
		s = s[i+1:]
		if s == "" {
			break
		}
	}
	return lines
}

func shortPath(p string) string {
	if p == "" {
		return p
	}
	return filepath.Base(p)
}

// ---------------- Conditionals ----------------

var (
	errUnmatchedElse   = errors.New("unmatched #else")
	errUnmatchedElseif = errors.New("unmatched #elseif")
	errUnmatchedEndif  = errors.New("unmatched #endif")
)

type frameKind int

const (
	// frameTarget: branch skipped, else resumes.
	frameTarget frameKind = iota
	// frameNotTarget: branch kept, else skips.
	frameNotTarget
	// frameCounterpart: branch kept, elseif-target and else skip.
	frameCounterpart
	// framePassive: branches kept, directives stripped.
	framePassive
	// frameDiscard: opened while skipping, only nesting is tracked.
	frameDiscard
	// frameLiteral: unrecognized condition, its directive lines are kept.
	frameLiteral
)

type condStack struct {
	stack []condFrame
	skip  int // count of frames currently skipping
}

type condFrame struct {
	kind     frameKind
	skipping bool
	line     int
}

func newCondStack() *condStack { return &condStack{} }

func (c *condStack) Depth() int { return len(c.stack) }

// Skipping reports whether any open conditional is discarding lines.
func (c *condStack) Skipping() bool { return c.skip > 0 }

// Push opens a conditional. It reports whether the directive line itself
// is emitted; only literal frames keep their directives.
func (c *condStack) Push(kind directive.Kind, line int) bool {
	if c.skip > 0 {
		c.stack = append(c.stack, condFrame{kind: frameDiscard, line: line})
		return false
	}
	f := condFrame{line: line}
	switch kind {
	case directive.IfTarget:
		f.kind = frameTarget
		f.skipping = true
		c.skip++
	case directive.IfNotTarget:
		f.kind = frameNotTarget
	case directive.IfCounterpart:
		f.kind = frameCounterpart
	case directive.IfOther:
		f.kind = framePassive
	default:
		f.kind = frameLiteral
	}
	c.stack = append(c.stack, f)
	return f.kind == frameLiteral
}

// Branch switches the innermost conditional to an elseif or else branch
// and reports whether the directive line is emitted.
func (c *condStack) Branch(kind directive.Kind) (bool, error) {
	if len(c.stack) == 0 {
		if kind == directive.Else {
			return false, errUnmatchedElse
		}
		return false, errUnmatchedElseif
	}
	top := &c.stack[len(c.stack)-1]
	switch top.kind {
	case frameDiscard:
		return false, nil
	case frameLiteral:
		return true, nil
	}
	var skip bool
	switch kind {
	case directive.ElseifTarget:
		skip = true
	case directive.Else:
		skip = top.kind == frameNotTarget || top.kind == frameCounterpart
	}
	c.setSkip(top, skip)
	return false, nil
}

// Pop closes the innermost conditional and reports whether the endif
// line is emitted.
func (c *condStack) Pop() (bool, error) {
	if len(c.stack) == 0 {
		return false, errUnmatchedEndif
	}
	top := c.stack[len(c.stack)-1]
	if top.skipping {
		c.skip--
	}
	c.stack = c.stack[:len(c.stack)-1]
	return top.kind == frameLiteral, nil
}

// UnclosedLine returns the opening line of the innermost open
// conditional, for unclosed-at-EOF errors.
func (c *condStack) UnclosedLine() int {
	if len(c.stack) == 0 {
		return 0
	}
	return c.stack[len(c.stack)-1].line
}

func (c *condStack) setSkip(f *condFrame, v bool) {
	if f.skipping == v {
		return
	}
	f.skipping = v
	if v {
		c.skip++
	} else {
		c.skip--
	}
}
