// Package directive classifies source lines of conditional-compilation
// syntax. Classification is purely syntactic: it depends only on the line's
// leading token and guard expression, never on surrounding lines.
package directive

import "strings"

type Kind int

const (
	// Plain is an ordinary content line, including unrelated '#' tokens.
	Plain Kind = iota
	// IfTarget opens a block guarded by the target platform.
	IfTarget
	// IfNotTarget opens a block guarded by "not the target platform".
	IfNotTarget
	// IfCounterpart opens a block guarded by the counterpart platform.
	IfCounterpart
	// IfOther opens a block guarded by some other single platform.
	IfOther
	// IfUnknown opens a block whose condition is not a recognized
	// single platform guard; such blocks are out of contract.
	IfUnknown
	ElseifTarget
	ElseifOther
	Else
	Endif
)

func (k Kind) String() string {
	switch k {
	case Plain:
		return "plain"
	case IfTarget:
		return "if-target"
	case IfNotTarget:
		return "if-not-target"
	case IfCounterpart:
		return "if-counterpart"
	case IfOther:
		return "if-other"
	case IfUnknown:
		return "if-unknown"
	case ElseifTarget:
		return "elseif-target"
	case ElseifOther:
		return "elseif-other"
	case Else:
		return "else"
	case Endif:
		return "endif"
	}
	return "invalid"
}

// Classifier holds the platform names a guard expression is matched
// against. Names are exact, case-sensitive identifiers as they appear in
// source (e.g. "macOS", "iOS").
type Classifier struct {
	Target      string
	Counterpart string
}

// Classify tags a single line. Leading whitespace is insignificant.
func (c Classifier) Classify(line string) Kind {
	trim := strings.TrimSpace(line)
	if !strings.HasPrefix(trim, "#") {
		return Plain
	}
	cmd, arg := splitDirective(trim)
	switch cmd {
	case "if":
		return c.classifyIf(arg)
	case "elseif":
		if name, neg, ok := parseGuard(arg); ok && !neg && name == c.Target {
			return ElseifTarget
		}
		return ElseifOther
	case "else":
		return Else
	case "endif":
		return Endif
	}
	return Plain
}

func (c Classifier) classifyIf(arg string) Kind {
	name, neg, ok := parseGuard(arg)
	if !ok {
		return IfUnknown
	}
	switch {
	case name == c.Target && !neg:
		return IfTarget
	case name == c.Target:
		return IfNotTarget
	case name == c.Counterpart && !neg:
		return IfCounterpart
	}
	return IfOther
}

// splitDirective splits a trimmed line beginning with '#' into the
// directive keyword and its argument.
func splitDirective(trim string) (cmd, arg string) {
	rest := strings.TrimSpace(trim[1:])
	i := 0
	for i < len(rest) && rest[i] >= 'a' && rest[i] <= 'z' {
		i++
	}
	return rest[:i], strings.TrimSpace(rest[i:])
}

// parseGuard parses a single platform guard expression: os(NAME) or
// !os(NAME), with an optional trailing line comment. Anything else,
// including compound conditions, is not a guard.
func parseGuard(arg string) (name string, negated bool, ok bool) {
	s := strings.TrimSpace(stripLineComment(arg))
	if strings.HasPrefix(s, "!") {
		negated = true
		s = strings.TrimSpace(s[1:])
	}
	if !strings.HasPrefix(s, "os(") || !strings.HasSuffix(s, ")") {
		return "", false, false
	}
	name = s[len("os(") : len(s)-1]
	if !isIdent(name) {
		return "", false, false
	}
	return name, negated, true
}

func stripLineComment(s string) string {
	if i := strings.Index(s, "//"); i >= 0 {
		return s[:i]
	}
	return s
}

func isIdent(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}
