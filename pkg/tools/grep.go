package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	maxGrepResults = 100
	ripgrepTimeout = 60 * time.Second
)

type grepMatch struct {
	path     string
	lineNum  int
	lineText string
	mtime    int64
}

// grepWithRipgrep shells out to rg when available. The second return is an
// error string shown to the model.
func grepWithRipgrep(ctx context.Context, pattern, searchPath, include string) ([]grepMatch, string) {
	rgPath, err := exec.LookPath("rg")
	if err != nil {
		return nil, "ripgrep not found"
	}

	args := []string{"-nH", "--field-match-separator=|", "--regexp", pattern}
	if include != "" {
		args = append(args, "--glob", include)
	}
	args = append(args, searchPath)

	runCtx, cancel := context.WithTimeout(ctx, ripgrepTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, rgPath, args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return nil, "ripgrep timed out"
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 1 {
			return nil, ""
		}
		if errors.As(runErr, &exitErr) {
			return nil, "ripgrep error: " + stderr.String()
		}
		return nil, runErr.Error()
	}

	var matches []grepMatch
	for _, line := range strings.Split(strings.TrimSpace(stdout.String()), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 {
			continue
		}
		lineNum, convErr := strconv.Atoi(parts[1])
		if convErr != nil {
			continue
		}
		matches = append(matches, grepMatch{
			path:     parts[0],
			lineNum:  lineNum,
			lineText: parts[2],
			mtime:    fileMtime(parts[0]),
		})
		if len(matches) >= maxGrepResults+1 {
			break
		}
	}
	return matches, ""
}

// grepWithRegexp walks the tree directly when rg is not installed.
func grepWithRegexp(pattern, searchPath, include string) ([]grepMatch, string) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Sprintf("Invalid regex pattern: %v", err)
	}
	var includeMatcher *regexp.Regexp
	if include != "" {
		includeMatcher = fnmatchCompile(include)
	}

	var matches []grepMatch
	_ = filepath.WalkDir(searchPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != searchPath && (ignoredDir(name) || hiddenName(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if hiddenName(name) {
			return nil
		}
		if includeMatcher != nil && !includeMatcher.MatchString(name) {
			return nil
		}
		if isBinaryFile(path) {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		mtime := fileMtime(path)
		for i, line := range strings.Split(string(data), "\n") {
			if regex.MatchString(line) {
				matches = append(matches, grepMatch{
					path:     path,
					lineNum:  i + 1,
					lineText: strings.TrimRight(line, "\n\r"),
					mtime:    mtime,
				})
				if len(matches) >= maxGrepResults+1 {
					return filepath.SkipAll
				}
			}
		}
		return nil
	})
	return matches, ""
}

func fileMtime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}

// NewGrepTool builds the grep tool: regex content search with ripgrep when
// installed and a pure-Go walk otherwise.
func NewGrepTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "grep",
			Description: "Search file contents with a regular expression. Results are grouped by file and sorted by modification time.",
			Parameters: []Parameter{
				{Name: "pattern", Type: "string", Description: "Regular expression to search for", Required: true},
				{Name: "path", Type: "string", Description: "Directory to search (defaults to the repository root)", Required: false},
				{Name: "include", Type: "string", Description: "File name pattern filter, e.g. \"*.py\"", Required: false},
			},
			NeedsContext: true,
			Sandbox:      true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			pattern := stringArg(args, "pattern")
			if pattern == "" {
				return Failure("pattern is required"), nil
			}

			root := tc.Folder
			if root == "" {
				root, _ = os.Getwd()
			}
			searchPath := root
			if p := stringArg(args, "path"); p != "" {
				resolved, err := validatePath(p, root, false)
				if err != nil {
					return Failure(err.Error()), nil
				}
				searchPath = resolved
			}
			include := stringArg(args, "include")

			matches, errMsg := grepWithRipgrep(ctx, pattern, searchPath, include)
			if errMsg != "" && strings.Contains(errMsg, "ripgrep not found") {
				matches, errMsg = grepWithRegexp(pattern, searchPath, include)
			}
			if errMsg != "" {
				return Failure(errMsg), nil
			}

			truncated := len(matches) > maxGrepResults
			if truncated {
				matches = matches[:maxGrepResults]
			}
			sort.SliceStable(matches, func(i, j int) bool {
				return matches[i].mtime > matches[j].mtime
			})

			if len(matches) == 0 {
				return NewFields().
					Set("success", true).
					Set("title", pattern).
					Set("matches", 0).
					Set("truncated", false).
					Set("output", "No matches found"), nil
			}

			outputLines := []string{fmt.Sprintf("Found %d matches", len(matches))}
			currentFile := ""
			for _, m := range matches {
				if currentFile != m.path {
					if currentFile != "" {
						outputLines = append(outputLines, "")
					}
					currentFile = m.path
					outputLines = append(outputLines, m.path+":")
				}
				lineText := m.lineText
				if len(lineText) > maxLineLength {
					lineText = lineText[:maxLineLength] + "..."
				}
				outputLines = append(outputLines, fmt.Sprintf("  Line %d: %s", m.lineNum, lineText))
			}
			if truncated {
				outputLines = append(outputLines, "", fmt.Sprintf("(Results truncated at %d matches. Consider using a more specific path or pattern.)", maxGrepResults))
			}

			return NewFields().
				Set("success", true).
				Set("title", pattern).
				Set("matches", len(matches)).
				Set("truncated", truncated).
				Set("output", strings.Join(outputLines, "\n")), nil
		},
	}
}
