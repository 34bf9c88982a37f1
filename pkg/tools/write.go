package tools

import (
	"context"
	"os"
	"strings"
)

// NewWriteTool builds the write tool: create or overwrite a file inside the
// scanned repository and report a unified diff of the change.
func NewWriteTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "write",
			Description: "Write content to a file, creating parent directories as needed. Returns a unified diff against the previous content.",
			Parameters: []Parameter{
				{Name: "file_path", Type: "string", Description: "Path to the file, relative to the repository root", Required: true},
				{Name: "content", Type: "string", Description: "Full content to write", Required: true},
			},
			NeedsContext: true,
			Sandbox:      true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			root := tc.Folder
			if root == "" {
				root, _ = os.Getwd()
			}
			filePath := stringArg(args, "file_path")
			content := stringArg(args, "content")

			resolved, err := validatePath(filePath, root, false)
			if err != nil {
				return Failure(err.Error()), nil
			}

			if info, statErr := os.Stat(resolved); statErr == nil && info.IsDir() {
				return Failure("Path is a directory, not a file: " + resolved), nil
			}

			exists := false
			contentOld := ""
			if _, statErr := os.Stat(resolved); statErr == nil {
				exists = true
				old, readErr := safeReadFile(resolved)
				if readErr != nil {
					return Failure(readErr.Error()), nil
				}
				contentOld = old
			}

			if mkErr := ensureParentDir(resolved); mkErr != nil {
				return Failure("Error writing file: " + mkErr.Error()), nil
			}
			if writeErr := os.WriteFile(resolved, []byte(content), 0644); writeErr != nil {
				return Failure("Error writing file: " + writeErr.Error()), nil
			}

			rel := relativePath(resolved, root)
			diff := trimDiffIndentation(unifiedDiff(contentOld, content, rel))

			linesWritten := len(strings.Split(content, "\n"))
			action := "created"
			if exists {
				action = "updated"
			}

			return NewFields().
				Set("success", true).
				Set("title", rel).
				Set("diff", diff).
				Set("exists", exists).
				Set("action", action).
				Set("lines_written", linesWritten).
				Set("output", "File "+action+" successfully: "+rel), nil
		},
	}
}
