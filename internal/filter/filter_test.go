package filter

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"swiftstrip/internal/directive"
)

func lines(a ...string) string {
	return strings.Join(a, "\n") + "\n"
}

var testOpts = Options{
	Target:       "macOS",
	Counterpart:  "iOS",
	PurgeImports: []string{"AppKit"},
}

type stripTest struct {
	name   string
	input  string
	output string
}

var stripTests = []stripTest{
	{
		"empty",
		"",
		"",
	},
	{
		"no directives",
		lines(
			"import Foundation",
			"let a = 1",
		),
		lines(
			"import Foundation",
			"let a = 1",
		),
	},
	{
		"target block removed",
		lines(
			"#if os(macOS)",
			"A",
			"#endif",
			"B",
		),
		lines("B"),
	},
	{
		"counterpart block unwrapped",
		lines(
			"#if os(iOS)",
			"A",
			"#endif",
			"B",
		),
		lines("A", "B"),
	},
	{
		"counterpart else branch dropped",
		lines(
			"#if os(iOS)",
			"A",
			"#else",
			"C",
			"#endif",
			"B",
		),
		lines("A", "B"),
	},
	{
		"other platform both branches kept",
		lines(
			"#if os(watchOS)",
			"D",
			"#else",
			"E",
			"#endif",
			"B",
		),
		lines("D", "E", "B"),
	},
	{
		"orphaned import purged",
		lines(
			"import Foundation",
			"import AppKit",
			"#if os(macOS)",
			"A",
			"#endif",
			"B",
		),
		lines("import Foundation", "B"),
	},
	{
		"indented import purged",
		lines(
			"  import AppKit",
			"B",
		),
		lines("B"),
	},
	{
		"qualified import kept",
		lines("import AppKit.NSWindow"),
		lines("import AppKit.NSWindow"),
	},
	{
		"testable import kept",
		lines("@testable import AppKit"),
		lines("@testable import AppKit"),
	},
	{
		"target else branch resumes",
		lines(
			"#if os(macOS)",
			"A",
			"#else",
			"C",
			"#endif",
			"B",
		),
		lines("C", "B"),
	},
	{
		"negated target unwrapped",
		lines(
			"#if !os(macOS)",
			"A",
			"#endif",
		),
		lines("A"),
	},
	{
		"negated target else branch dropped",
		lines(
			"#if !os(macOS)",
			"A",
			"#else",
			"B",
			"#endif",
		),
		lines("A"),
	},
	{
		"negated counterpart both branches kept",
		lines(
			"#if !os(iOS)",
			"A",
			"#else",
			"B",
			"#endif",
		),
		lines("A", "B"),
	},
	{
		"elseif target inside counterpart dropped",
		lines(
			"#if os(iOS)",
			"A",
			"#elseif os(macOS)",
			"B",
			"#endif",
		),
		lines("A"),
	},
	{
		"else after elseif target stays dropped",
		lines(
			"#if os(iOS)",
			"A",
			"#elseif os(macOS)",
			"B",
			"#else",
			"C",
			"#endif",
		),
		lines("A"),
	},
	{
		"elseif other after target kept",
		lines(
			"#if os(macOS)",
			"A",
			"#elseif os(watchOS)",
			"B",
			"#endif",
		),
		lines("B"),
	},
	{
		"elseif target inside other platform dropped",
		lines(
			"#if os(watchOS)",
			"D",
			"#elseif os(macOS)",
			"X",
			"#else",
			"E",
			"#endif",
		),
		lines("D", "E"),
	},
	{
		"nested target inside target",
		lines(
			"#if os(macOS)",
			"a",
			"#if os(macOS)",
			"b",
			"#endif",
			"c",
			"#endif",
			"D",
		),
		lines("D"),
	},
	{
		"nested counterpart inside target fully removed",
		lines(
			"#if os(macOS)",
			"a",
			"#if os(iOS)",
			"b",
			"#endif",
			"c",
			"#endif",
			"D",
		),
		lines("D"),
	},
	{
		"nested target inside counterpart",
		lines(
			"#if os(iOS)",
			"a",
			"#if os(macOS)",
			"b",
			"#endif",
			"c",
			"#endif",
		),
		lines("a", "c"),
	},
	{
		"nested block in resumed else branch",
		lines(
			"#if os(macOS)",
			"a",
			"#else",
			"b",
			"#if os(macOS)",
			"c",
			"#else",
			"d",
			"#endif",
			"e",
			"#endif",
		),
		lines("b", "d", "e"),
	},
	{
		"debug block preserved verbatim",
		lines(
			"#if DEBUG",
			"a",
			"#else",
			"b",
			"#endif",
		),
		lines(
			"#if DEBUG",
			"a",
			"#else",
			"b",
			"#endif",
		),
	},
	{
		"canImport block preserved, import still purged",
		lines(
			"#if canImport(AppKit)",
			"import AppKit",
			"#endif",
		),
		lines(
			"#if canImport(AppKit)",
			"#endif",
		),
	},
	{
		"target block nested in debug block",
		lines(
			"#if DEBUG",
			"#if os(macOS)",
			"a",
			"#endif",
			"b",
			"#endif",
		),
		lines(
			"#if DEBUG",
			"b",
			"#endif",
		),
	},
	{
		"compound condition preserved",
		lines(
			"#if os(iOS) && canImport(UIKit)",
			"a",
			"#endif",
		),
		lines(
			"#if os(iOS) && canImport(UIKit)",
			"a",
			"#endif",
		),
	},
	{
		"indented directives",
		lines(
			"    #if os(macOS)",
			"    a",
			"    #endif",
			"b",
		),
		lines("b"),
	},
	{
		"directive with trailing comment",
		lines(
			"#if os(macOS) // mac only",
			"a",
			"#endif // os(macOS)",
			"b",
		),
		lines("b"),
	},
	{
		"no final newline",
		"#if os(macOS)\nA\n#endif\nB",
		"B",
	},
	{
		"windows line endings",
		"#if os(macOS)\r\nA\r\n#endif\r\nB\r\n",
		"B\r\n",
	},
	{
		"guard mentioned in comment only",
		lines(
			"// strips os(macOS) blocks",
			"let x = 1",
		),
		lines(
			"// strips os(macOS) blocks",
			"let x = 1",
		),
	},
}

func TestStrip(t *testing.T) {
	for _, tt := range stripTests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Strip("test.swift", tt.input, testOpts)
			if err != nil {
				t.Fatalf("strip error: %v", err)
			}
			if diff := cmp.Diff(tt.output, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Stripping its own output must change nothing: after one pass there are
// no guarded blocks or orphaned imports left to remove.
func TestStripIdempotent(t *testing.T) {
	for _, tt := range stripTests {
		t.Run(tt.name, func(t *testing.T) {
			once, err := Strip("test.swift", tt.input, testOpts)
			if err != nil {
				t.Fatalf("first pass: %v", err)
			}
			twice, err := Strip("test.swift", once, testOpts)
			if err != nil {
				t.Fatalf("second pass: %v", err)
			}
			if diff := cmp.Diff(once, twice); diff != "" {
				t.Errorf("second pass changed output (-once +twice):\n%s", diff)
			}
		})
	}
}

// No platform-guard directive may survive a pass.
func TestStripNoDirectiveLeakage(t *testing.T) {
	cls := directive.Classifier{Target: testOpts.Target, Counterpart: testOpts.Counterpart}
	for _, tt := range stripTests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Strip("test.swift", tt.input, testOpts)
			if err != nil {
				t.Fatalf("strip error: %v", err)
			}
			for _, line := range strings.Split(got, "\n") {
				switch cls.Classify(line) {
				case directive.IfTarget, directive.IfNotTarget,
					directive.IfCounterpart, directive.IfOther,
					directive.ElseifTarget:
					t.Errorf("platform guard leaked into output: %q", line)
				}
			}
		})
	}
}

type badStripTest struct {
	input string
	error string
}

var badStripTests = []badStripTest{
	{
		lines("a", "#endif"),
		"test.swift:2: unmatched #endif",
	},
	{
		lines("#else"),
		"test.swift:1: unmatched #else",
	},
	{
		lines("a", "b", "#elseif os(macOS)"),
		"test.swift:3: unmatched #elseif",
	},
	{
		lines("#if os(macOS)", "a"),
		"test.swift:1: unclosed #if",
	},
	{
		lines("x", "#if os(iOS)", "a"),
		"test.swift:2: unclosed #if",
	},
	{
		lines("#if os(iOS)", "#if os(macOS)", "a", "#endif"),
		"test.swift:1: unclosed #if",
	},
	{
		lines("#if DEBUG", "a"),
		"test.swift:1: unclosed #if",
	},
	{
		lines("#if os(macOS)", "#endif", "#endif"),
		"test.swift:3: unmatched #endif",
	},
}

func TestStripErrors(t *testing.T) {
	for _, tt := range badStripTests {
		t.Run(tt.error, func(t *testing.T) {
			_, err := Strip("test.swift", tt.input, testOpts)
			if err == nil {
				t.Fatalf("expected error %q", tt.error)
			}
			if diff := cmp.Diff(tt.error, err.Error()); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStripErrorUsesBasename(t *testing.T) {
	_, err := Strip("/src/app/Views/WebView.swift", lines("#endif"), testOpts)
	if err == nil {
		t.Fatal("expected error")
	}
	if got, want := err.Error(), "WebView.swift:1: unmatched #endif"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestHasMarker(t *testing.T) {
	if !HasMarker("#if os(macOS)\n", "macOS") {
		t.Error("marker not found in guarded content")
	}
	if !HasMarker("#elseif os(macOS)\n", "macOS") {
		t.Error("marker not found in elseif guard")
	}
	if HasMarker("#if os(iOS)\n", "macOS") {
		t.Error("marker reported for unrelated content")
	}
	if got, want := Marker("macOS"), "os(macOS)"; got != want {
		t.Errorf("Marker = %q, want %q", got, want)
	}
}
