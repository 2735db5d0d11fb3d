package synth

import (
	"context"
	"os"
	"path/filepath"

	"forge/internal/types"
)

// toolDefinitions returns the fixed tool set §4.6.3 names: read_file, ls,
// write_file, edit_file, write_todos. Grounded on codenerd's
// internal/tools/core/file_ops.go, whose schemas this mirrors.
func toolDefinitions() []types.ToolDefinition {
	return []types.ToolDefinition{
		{
			Name:        "read_file",
			Description: "Read the contents of a file within the allowed scope.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"path": map[string]any{"type": "string"}},
				"required":   []string{"path"},
			},
		},
		{
			Name:        "ls",
			Description: "List the entries of a directory within the allowed scope.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"path": map[string]any{"type": "string"}},
				"required":   []string{"path"},
			},
		},
		{
			Name:        "write_file",
			Description: "Create or overwrite a file with the given content.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":    map[string]any{"type": "string"},
					"content": map[string]any{"type": "string"},
				},
				"required": []string{"path", "content"},
			},
		},
		{
			Name:        "edit_file",
			Description: "Replace a unique occurrence of old_string with new_string in an existing file.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path":       map[string]any{"type": "string"},
					"old_string": map[string]any{"type": "string"},
					"new_string": map[string]any{"type": "string"},
				},
				"required": []string{"path", "old_string", "new_string"},
			},
		},
		{
			Name:        "write_todos",
			Description: "Record or update the agent's working todo list for this generation pass.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"todos": map[string]any{"type": "array"}},
				"required":   []string{"todos"},
			},
		},
	}
}

// pathKeys is the ordered set of argument keys tried when extracting a
// file-targeting tool call's path, per §4.6.3 item 3.
var pathKeys = []string{"path", "file_path", "file"}

func extractPath(call types.ToolCall) string {
	for _, key := range pathKeys {
		if v, ok := call.Input[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func isFileTargetingTool(name string) bool {
	switch name {
	case "write_file", "edit_file", "create_file":
		return true
	default:
		return false
	}
}

// fsToolExecutor is the read-only/write half of the tool runtime: it
// executes read_file/ls for the agent's exploration and records write_file/
// edit_file calls into a transcript for later patch extraction, without
// mutating the real filesystem (P4 never writes directly — see §4.7, which
// reserves filesystem mutation for P5).
type fsToolExecutor struct {
	root       string
	scope      Scope
	transcript *[]recordedCall
}

// recordedCall is one accepted write_file/edit_file invocation, in
// invocation order, used by extractPatches.
type recordedCall struct {
	tool types.ToolCall
}

func newFSToolExecutor(root string, scope Scope, transcript *[]recordedCall) *fsToolExecutor {
	return &fsToolExecutor{root: root, scope: scope, transcript: transcript}
}

var _ types.ToolExecutor = (*fsToolExecutor)(nil)

func (e *fsToolExecutor) Execute(ctx context.Context, call types.ToolCall) (string, error) {
	switch call.Name {
	case "read_file":
		path := extractPath(call)
		data, err := os.ReadFile(e.resolve(path))
		if err != nil {
			return "error: " + err.Error(), nil
		}
		return string(data), nil
	case "ls":
		path := extractPath(call)
		entries, err := os.ReadDir(e.resolve(path))
		if err != nil {
			return "error: " + err.Error(), nil
		}
		var names []string
		for _, entry := range entries {
			names = append(names, entry.Name())
		}
		return joinLines(names), nil
	case "write_file", "edit_file":
		*e.transcript = append(*e.transcript, recordedCall{tool: call})
		return "recorded", nil
	case "write_todos":
		return "acknowledged", nil
	default:
		return "error: unknown tool " + call.Name, nil
	}
}

func (e *fsToolExecutor) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.root, path)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
