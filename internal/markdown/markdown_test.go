package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func convert(t *testing.T, md string) string {
	t.Helper()
	out, err := ToRST([]byte(md))
	require.NoError(t, err)
	return string(out)
}

func TestHeadingsUnderlinedByLevel(t *testing.T) {
	got := convert(t, "# Thetis\n\n## Installation\n\n### Dependencies\n")
	assert.Contains(t, got, "Thetis\n======\n")
	assert.Contains(t, got, "Installation\n------------\n")
	assert.Contains(t, got, "Dependencies\n~~~~~~~~~~~~\n")
}

func TestParagraphInlines(t *testing.T) {
	got := convert(t, "Use *emphasis*, **strong** and `code` spans.\n")
	assert.Contains(t, got, "Use *emphasis*, **strong** and ``code`` spans.")
}

func TestSoftBreakBecomesSpace(t *testing.T) {
	got := convert(t, "first line\nsecond line\n")
	assert.Contains(t, got, "first line second line")
}

func TestLinks(t *testing.T) {
	got := convert(t, "See [the docs](https://example.org/docs) or <https://example.org>.\n")
	assert.Contains(t, got, "`the docs <https://example.org/docs>`_")
	assert.Contains(t, got, "https://example.org")
}

func TestFencedCodeBlock(t *testing.T) {
	got := convert(t, "```python\nimport thetis\nsolver.run()\n```\n")
	assert.Contains(t, got, ".. code-block:: python\n\n   import thetis\n   solver.run()\n")
}

func TestFencedCodeBlockNoLanguage(t *testing.T) {
	got := convert(t, "```\nmake html\n```\n")
	assert.Contains(t, got, "::\n\n   make html\n")
}

func TestBulletAndOrderedLists(t *testing.T) {
	got := convert(t, "- one\n- two\n\n1. first\n2. second\n")
	assert.Contains(t, got, "- one\n- two\n")
	assert.Contains(t, got, "#. first\n#. second\n")
}

func TestNestedListIndentation(t *testing.T) {
	got := convert(t, "- outer\n  - inner\n")
	assert.Contains(t, got, "- outer\n")
	assert.Contains(t, got, "  - inner\n")
}

func TestStandaloneImageBecomesDirective(t *testing.T) {
	got := convert(t, "![mesh plot](images/mesh.png)\n")
	assert.Contains(t, got, ".. image:: images/mesh.png\n")
	assert.Contains(t, got, "   :alt: mesh plot\n")
}

func TestBlockquoteIndented(t *testing.T) {
	got := convert(t, "> quoted wisdom\n")
	assert.Contains(t, got, "   quoted wisdom")
}

func TestThematicBreak(t *testing.T) {
	got := convert(t, "above\n\n---\n\nbelow\n")
	assert.Contains(t, got, "----\n")
}

func TestHTMLBlockBecomesRawDirective(t *testing.T) {
	got := convert(t, "<table>\n<tr><td>x</td></tr>\n</table>\n")
	assert.Contains(t, got, ".. raw:: html\n")
	assert.Contains(t, got, "   <table>")
}

func TestTrailingNewlineNormalized(t *testing.T) {
	got := convert(t, "# Title")
	assert.True(t, strings.HasSuffix(got, "\n"))
	assert.False(t, strings.HasSuffix(got, "\n\n"))
}
