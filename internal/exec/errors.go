package exec

import (
	"fmt"

	"forge/internal/types"
)

func errOutsideCodebase(path string) error {
	return fmt.Errorf("patch target %s is outside the codebase boundary", path)
}

func errNotUnique(oldString string, count int) error {
	return fmt.Errorf("old_string occurs %d times, expected exactly 1", count)
}

func errUnknownTool(tool types.PatchTool) error {
	return fmt.Errorf("unknown patch tool: %s", tool)
}
