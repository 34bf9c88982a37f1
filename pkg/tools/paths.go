package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Directory names the workspace tools skip when walking the scanned repo.
// Build output, dependency caches, and VCS metadata only waste iterations.
var ignoreDirectories = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	".git":         true,
	".svn":         true,
	".hg":          true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"vendor":       true,
	"bin":          true,
	"obj":          true,
	".idea":        true,
	".vscode":      true,
	".zig-cache":   true,
	"zig-out":      true,
	".coverage":    true,
	"coverage":     true,
	"tmp":          true,
	"temp":         true,
	".cache":       true,
	"cache":        true,
	"logs":         true,
	".venv":        true,
	"venv":         true,
	"env":          true,
	".env":         true,
	".eggs":        true,
}

func ignoredDir(name string) bool {
	return ignoreDirectories[name] || strings.HasSuffix(name, ".egg-info")
}

func hiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// hiddenPath reports whether any component of path is hidden.
func hiddenPath(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if hiddenName(part) {
			return true
		}
	}
	return false
}

// resolvePath resolves path against root when relative and cleans it.
func resolvePath(path, root string) string {
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	return filepath.Clean(path)
}

// pathWithin reports whether path sits at or below root after cleaning.
func pathWithin(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// validatePath confines path to the scanned repository root. The returned
// error text is shown to the model verbatim.
func validatePath(path, root string, mustExist bool) (string, error) {
	if path == "" {
		path = "."
	}
	resolved := resolvePath(path, root)

	if !pathWithin(resolved, root) {
		return resolved, fmt.Errorf("Path '%s' is outside the allowed directory '%s'", path, root)
	}
	if mustExist {
		if _, err := os.Stat(resolved); err != nil {
			return resolved, fmt.Errorf("Path does not exist: %s", resolved)
		}
	}
	return resolved, nil
}

// ensureParentDir creates the directory chain above path.
func ensureParentDir(path string) error {
	parent := filepath.Dir(path)
	if parent == "" || parent == "." {
		return nil
	}
	return os.MkdirAll(parent, 0755)
}

// relativePath renders path relative to root for titles and diffs, falling
// back to the input when no relative form exists.
func relativePath(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// fnmatchCompile translates a shell wildcard pattern into a regexp. Unlike
// filepath.Match, '*' crosses path separators, so "*.py" also matches files
// in subdirectories when applied to a relative path.
func fnmatchCompile(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString(`(?s)\A`)
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				b.WriteString(`\[`)
			} else {
				set := strings.ReplaceAll(pattern[i+1:j], `\`, `\\`)
				if strings.HasPrefix(set, "!") {
					set = "^" + set[1:]
				}
				b.WriteString("[" + set + "]")
				i = j
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(`\z`)
	re, err := regexp.Compile(b.String())
	if err != nil {
		return regexp.MustCompile(`\A` + regexp.QuoteMeta(pattern) + `\z`)
	}
	return re
}
