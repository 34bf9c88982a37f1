package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const maxTreeFiles = 100

type treeCollector struct {
	extraIgnore map[string]bool
	maxFiles    int
	dirs        map[string]bool
	filesByDir  map[string][]string
	fileCount   int
	truncated   bool
}

func (c *treeCollector) skipDir(name string) bool {
	return c.extraIgnore[name] || ignoredDir(name) || hiddenName(name)
}

// walk visits dir's files before descending, so the file cap fills
// breadth-first within each directory the way a scan of the repo root reads
// most naturally.
func (c *treeCollector) walk(dir, rel string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	if rel != "" {
		c.dirs[rel] = true
	}

	var subdirs []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			if !c.skipDir(name) {
				subdirs = append(subdirs, name)
			}
			continue
		}
		if hiddenName(name) {
			continue
		}
		if c.fileCount >= c.maxFiles {
			c.truncated = true
			return
		}
		c.filesByDir[rel] = append(c.filesByDir[rel], name)
		c.fileCount++
	}

	for _, sub := range subdirs {
		if c.truncated {
			return
		}
		childRel := sub
		if rel != "" {
			childRel = rel + string(filepath.Separator) + sub
		}
		c.walk(filepath.Join(dir, sub), childRel)
	}
}

func (c *treeCollector) render(dirPath, prefix string) []string {
	var subdirs []string
	for d := range c.dirs {
		parent := filepath.Dir(d)
		if parent == "." {
			parent = ""
		}
		if parent == dirPath && d != dirPath {
			subdirs = append(subdirs, d)
		}
	}
	sort.Strings(subdirs)

	files := append([]string(nil), c.filesByDir[dirPath]...)
	sort.Strings(files)

	type entry struct {
		name  string
		isDir bool
	}
	entries := make([]entry, 0, len(subdirs)+len(files))
	for _, d := range subdirs {
		entries = append(entries, entry{d, true})
	}
	for _, f := range files {
		entries = append(entries, entry{f, false})
	}

	var lines []string
	for i, e := range entries {
		isLast := i == len(entries)-1
		connector := "├── "
		if isLast {
			connector = "└── "
		}
		if e.isDir {
			lines = append(lines, prefix+connector+filepath.Base(e.name)+"/")
			extension := "│   "
			if isLast {
				extension = "    "
			}
			lines = append(lines, c.render(e.name, prefix+extension)...)
		} else {
			lines = append(lines, prefix+connector+e.name)
		}
	}
	return lines
}

// buildDirectoryTree renders rootPath as a tree, capped at maxFiles files.
func buildDirectoryTree(rootPath string, extraIgnore map[string]bool, maxFiles int) (string, int, bool) {
	c := &treeCollector{
		extraIgnore: extraIgnore,
		maxFiles:    maxFiles,
		dirs:        make(map[string]bool),
		filesByDir:  make(map[string][]string),
	}
	c.walk(rootPath, "")

	baseName := filepath.Base(rootPath)
	if baseName == "" || baseName == "." || baseName == string(filepath.Separator) {
		baseName = rootPath
	}
	outputLines := append([]string{baseName + "/"}, c.render("", "")...)
	return strings.Join(outputLines, "\n"), c.fileCount, c.truncated
}

// ignoreSetArg accepts a JSON array, a bare []any, or a single name.
func ignoreSetArg(args map[string]any, key string) map[string]bool {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	set := make(map[string]bool)
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				set[s] = true
			}
		}
	case []string:
		for _, s := range v {
			set[s] = true
		}
	case string:
		var parsed []string
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			for _, s := range parsed {
				set[s] = true
			}
		} else if v != "" {
			set[v] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// NewLsTool builds the ls tool: a tree listing of a directory with the usual
// dependency and VCS noise filtered out.
func NewLsTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "ls",
			Description: "List directory contents as a tree. Dependency caches, build output, and hidden entries are skipped.",
			Parameters: []Parameter{
				{Name: "path", Type: "string", Description: "Directory to list (defaults to the repository root)", Required: false},
				{Name: "ignore", Type: "array", Description: "Additional directory names to skip", Required: false},
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

			treeOutput, fileCount, truncated := buildDirectoryTree(searchPath, ignoreSetArg(args, "ignore"), maxTreeFiles)
			if truncated {
				treeOutput += fmt.Sprintf("\n\n(Output truncated at %d files. Use a more specific path to see more.)", maxTreeFiles)
			}

			title := "."
			if pathArg != "" {
				title = relativePath(searchPath, root)
			}

			return NewFields().
				Set("success", true).
				Set("title", title).
				Set("count", fileCount).
				Set("truncated", truncated).
				Set("output", treeOutput), nil
		},
	}
}
