package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const maxGlobResults = 200

type globHit struct {
	path  string
	mtime int64
}

// globFiles walks rootPath collecting files whose relative path or bare name
// matches pattern. Collection stops one past the cap so truncation can be
// detected.
func globFiles(pattern, rootPath string) []globHit {
	matcher := fnmatchCompile(pattern)
	var results []globHit
	_ = filepath.WalkDir(rootPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != rootPath && (ignoredDir(name) || hiddenName(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if hiddenName(name) {
			return nil
		}

		relPath := relativePath(path, rootPath)
		if !matcher.MatchString(relPath) && !matcher.MatchString(name) {
			return nil
		}

		results = append(results, globHit{path: path, mtime: fileMtime(path)})
		if len(results) >= maxGlobResults+1 {
			return filepath.SkipAll
		}
		return nil
	})
	return results
}

// NewGlobTool builds the glob tool: file name pattern matching sorted by
// modification time, newest first.
func NewGlobTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "glob",
			Description: "Find files matching a glob pattern. Matches against both the relative path and the bare file name.",
			Parameters: []Parameter{
				{Name: "pattern", Type: "string", Description: "Glob pattern, e.g. \"*.py\"", Required: true},
				{Name: "path", Type: "string", Description: "Directory to search (defaults to the repository root)", Required: false},
			},
			NeedsContext: true,
			Sandbox:      true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			root := tc.Folder
			if root == "" {
				root, _ = os.Getwd()
			}

			pathArg := stringArg(args, "path")
			searchPath := root
			if pathArg != "" {
				resolved, err := validatePath(pathArg, root, false)
				if err != nil {
					return Failure(err.Error()), nil
				}
				searchPath = resolved
			}
			if info, err := os.Stat(searchPath); err != nil || !info.IsDir() {
				return Failure("Path is not a directory: " + searchPath), nil
			}

			pattern := stringArg(args, "pattern")
			results := globFiles(pattern, searchPath)

			truncated := len(results) > maxGlobResults
			if truncated {
				results = results[:maxGlobResults]
			}
			sort.SliceStable(results, func(i, j int) bool {
				return results[i].mtime > results[j].mtime
			})

			filePaths := make([]string, 0, len(results))
			for _, r := range results {
				filePaths = append(filePaths, r.path)
			}

			output := "No files found"
			if len(filePaths) > 0 {
				outputLines := append([]string(nil), filePaths...)
				if truncated {
					outputLines = append(outputLines, "", fmt.Sprintf("(Results truncated at %d files. Consider using a more specific path or pattern.)", maxGlobResults))
				}
				output = strings.Join(outputLines, "\n")
			}

			title := "."
			if pathArg != "" {
				title = relativePath(searchPath, root)
			}

			return NewFields().
				Set("success", true).
				Set("title", title).
				Set("count", len(filePaths)).
				Set("truncated", truncated).
				Set("files", filePaths).
				Set("output", output), nil
		},
	}
}
