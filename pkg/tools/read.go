package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// NewReadTool builds the read tool: numbered file content with offset/limit
// paging and a 50KB byte budget per call.
func NewReadTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "read",
			Description: "Read a file from the repository with line numbers. Supports offset/limit paging for large files.",
			Parameters: []Parameter{
				{Name: "file_path", Type: "string", Description: "Path to the file, relative to the repository root", Required: true},
				{Name: "offset", Type: "number", Description: "Starting line (0-based)", Required: false},
				{Name: "limit", Type: "number", Description: "Number of lines to read (default 2000)", Required: false},
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

			resolved, err := validatePath(filePath, root, true)
			if err != nil {
				message := err.Error()
				if strings.Contains(message, "does not exist") {
					if hint := nearbyFilesHint(resolved); hint != "" {
						message += "\n\nDid you mean one of these?\n" + hint
					}
				}
				return Failure(message), nil
			}

			info, statErr := os.Stat(resolved)
			if statErr == nil && info.IsDir() {
				return Failure("Path is a directory, not a file: " + resolved), nil
			}

			title := relativePath(resolved, root)

			if isBinaryFile(resolved) {
				return Failure("Cannot read binary file: " + resolved), nil
			}

			readOffset := intArg(args, "offset", 0)
			readLimit := intArg(args, "limit", defaultReadLimit)
			if readLimit <= 0 {
				readLimit = defaultReadLimit
			}

			lines, totalLines, hasMore, truncatedByBytes, readErr := readFileWithLines(resolved, readOffset, readLimit)
			if readErr != nil {
				return Failure(readErr.Error()), nil
			}

			var output strings.Builder
			output.WriteString("<file>\n")
			output.WriteString(strings.Join(lines, "\n"))

			lastReadLine := readOffset + len(lines)
			switch {
			case truncatedByBytes:
				fmt.Fprintf(&output, "\n\n(Output truncated at %d bytes. Use 'offset' parameter to read beyond line %d)", maxReadBytes, lastReadLine)
			case hasMore:
				fmt.Fprintf(&output, "\n\n(File has more lines. Use 'offset' parameter to read beyond line %d)", lastReadLine)
			default:
				fmt.Fprintf(&output, "\n\n(End of file - total %d lines)", totalLines)
			}
			output.WriteString("\n</file>")

			preview := ""
			if len(lines) > 0 {
				previewLines := lines
				if len(previewLines) > 20 {
					previewLines = previewLines[:20]
				}
				preview = strings.Join(previewLines, "\n")
			}

			return NewFields().
				Set("success", true).
				Set("title", title).
				Set("output", output.String()).
				Set("preview", preview).
				Set("truncated", hasMore || truncatedByBytes).
				Set("total_lines", totalLines).
				Set("lines_read", len(lines)), nil
		},
	}
}

// nearbyFilesHint lists up to three entries in the target's directory whose
// names loosely match the requested one.
func nearbyFilesHint(resolved string) string {
	dir := filepath.Dir(resolved)
	base := strings.ToLower(filepath.Base(resolved))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	var suggestions []string
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if strings.Contains(name, base) || strings.Contains(base, name) {
			suggestions = append(suggestions, filepath.Join(dir, entry.Name()))
			if len(suggestions) == 3 {
				break
			}
		}
	}
	return strings.Join(suggestions, "\n")
}
