// Package literate converts literate Python sources into reStructuredText.
//
// The demo files interleave narrative and code: comment blocks at column zero
// carry reST markup, everything else is code. Conversion strips the comment
// prefix from narrative blocks and renders code runs as indented literal
// blocks introduced by "::".
package literate

import (
	"regexp"
	"strings"
)

const codeIndent = "    "

// ToRST converts a literate Python source into reStructuredText.
func ToRST(src []byte) []byte {
	lines := splitLines(src)
	lines = stripPreamble(lines)

	var out []string
	inCode := false
	pendingBlanks := 0

	flushBlanks := func() {
		for ; pendingBlanks > 0; pendingBlanks-- {
			out = append(out, "")
		}
	}

	for _, line := range lines {
		switch {
		case strings.TrimSpace(line) == "":
			// Blank lines are deferred: trailing blanks of a block are
			// dropped, interior ones preserved.
			pendingBlanks++
		case isNarrative(line):
			if inCode {
				inCode = false
				pendingBlanks = 0
				out = append(out, "")
			} else {
				flushBlanks()
			}
			out = append(out, stripComment(line))
		default:
			if !inCode {
				inCode = true
				pendingBlanks = 0
				out = appendLiteralIntro(out)
			} else {
				flushBlanks()
			}
			out = append(out, codeIndent+line)
		}
	}

	// Single trailing newline regardless of input shape.
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return []byte(strings.Join(out, "\n") + "\n")
}

// isNarrative reports whether a line is a column-zero literate comment.
// Indented comments belong to the surrounding code.
func isNarrative(line string) bool {
	return line == "#" || strings.HasPrefix(line, "# ")
}

func stripComment(line string) string {
	if line == "#" {
		return ""
	}
	return line[2:]
}

// appendLiteralIntro ensures the preceding narrative introduces a literal
// block. A paragraph already ending in "::" is reused; otherwise a bare "::"
// paragraph is inserted, which docutils renders as nothing.
func appendLiteralIntro(out []string) []string {
	last := ""
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != "" {
			last = out[i]
			break
		}
	}
	if strings.HasSuffix(last, "::") {
		return append(out, "")
	}
	if last == "" {
		// Code-leading file: open with a bare literal marker.
		return append(out, "::", "")
	}
	return append(out, "", "::", "")
}

// codingDeclaration matches a PEP 263 coding comment, e.g.
// "# -*- coding: utf-8 -*-" or "# coding=latin-1".
var codingDeclaration = regexp.MustCompile(`^[ \t\f]*#.*\bcoding[:=][ \t]*[-_.a-zA-Z0-9]+`)

// stripPreamble drops shebang and PEP 263 coding lines, which are execution
// details rather than document content. Per PEP 263 a coding declaration is
// only recognized on the first two lines.
func stripPreamble(lines []string) []string {
	i := 0
	for i < len(lines) && i < 2 {
		l := lines[i]
		if strings.HasPrefix(l, "#!") || codingDeclaration.MatchString(l) {
			i++
			continue
		}
		break
	}
	return lines[i:]
}

func splitLines(src []byte) []string {
	s := strings.ReplaceAll(string(src), "\r\n", "\n")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
