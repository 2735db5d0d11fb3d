// Package diffrender renders Patch records as human-readable diffs for
// dry-run mode. Grounded on codenerd's internal/diff/diff.go, whose own
// doc comment notes it switched to a real diff algorithm instead of a
// hand-rolled LCS implementation.
package diffrender

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"forge/internal/types"
)

// maxPreviewBytes bounds the write_file content preview printed in dry-run
// mode (§4.7: "first N bytes of content").
const maxPreviewBytes = 400

// Render returns a dry-run summary line (or block) for a single patch: for
// write_file, the tool, relative-looking path, and a content preview; for
// edit_file, a unified-style old_string -> new_string diff.
func Render(p types.Patch) string {
	switch p.Tool {
	case types.ToolWriteFile:
		return renderWrite(p)
	case types.ToolEditFile:
		return renderEdit(p)
	default:
		return fmt.Sprintf("[%s] %s (unknown tool)", p.Tool, p.File)
	}
}

func renderWrite(p types.Patch) string {
	preview := p.Content
	truncated := false
	if len(preview) > maxPreviewBytes {
		preview = preview[:maxPreviewBytes]
		truncated = true
	}
	var b strings.Builder
	fmt.Fprintf(&b, "write_file %s\n", p.File)
	b.WriteString(indent(preview))
	if truncated {
		b.WriteString("\n... (truncated)")
	}
	return b.String()
}

func renderEdit(p types.Patch) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(p.OldString, p.NewString, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	fmt.Fprintf(&b, "edit_file %s\n", p.File)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			b.WriteString(indent("+ " + d.Text))
		case diffmatchpatch.DiffDelete:
			b.WriteString(indent("- " + d.Text))
		case diffmatchpatch.DiffEqual:
			b.WriteString(indent("  " + truncateEqual(d.Text)))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateEqual(s string) string {
	const maxEqual = 80
	if len(s) > maxEqual {
		return s[:maxEqual] + "…"
	}
	return s
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "    " + l
	}
	return strings.Join(lines, "\n")
}

// RenderAll renders every patch in order, joined for a single dry-run report.
func RenderAll(patches []types.Patch) string {
	var parts []string
	for _, p := range patches {
		parts = append(parts, Render(p))
	}
	return strings.Join(parts, "\n\n")
}
