package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
)

var binaryExtensions = map[string]bool{
	".zip": true, ".tar": true, ".gz": true, ".tgz": true, ".bz2": true,
	".xz": true, ".7z": true, ".rar": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".a": true,
	".lib": true, ".o": true, ".obj": true,
	".class": true, ".jar": true, ".war": true, ".ear": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".odt": true, ".ods": true, ".odp": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true,
	".ico": true, ".webp": true, ".svg": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mkv": true, ".mov": true,
	".wmv": true, ".flv": true,
	".wasm": true, ".pyc": true, ".pyo": true,
	".bin": true, ".dat": true, ".db": true, ".sqlite": true, ".sqlite3": true,
	".ttf": true, ".otf": true, ".woff": true, ".woff2": true, ".eot": true,
}

func isBinaryByExtension(path string) bool {
	return binaryExtensions[strings.ToLower(filepath.Ext(path))]
}

// isBinaryByContent sniffs the first 4 KiB: a NUL byte or more than 30%
// non-printable bytes marks the file binary. Unreadable files count as
// binary so callers fail closed.
func isBinaryByContent(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()

	chunk := make([]byte, 4096)
	n, _ := f.Read(chunk)
	if n == 0 {
		return false
	}
	chunk = chunk[:n]

	nonPrintable := 0
	for _, b := range chunk {
		if b == 0 {
			return true
		}
		if b < 9 || (b > 13 && b < 32) {
			nonPrintable++
		}
	}
	return float64(nonPrintable)/float64(len(chunk)) > 0.3
}

func isBinaryFile(path string) bool {
	if isBinaryByExtension(path) {
		return true
	}
	return isBinaryByContent(path)
}

// splitKeepEnds splits text into lines that keep their trailing newline,
// matching how the diff wants its input. "" yields no lines.
func splitKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// unifiedDiff renders a classic three-context unified diff between two file
// versions. Identical inputs produce an empty string.
func unifiedDiff(oldContent, newContent, path string) string {
	if path == "" {
		path = "file"
	}
	diff := difflib.UnifiedDiff{
		A:        splitKeepEnds(oldContent),
		B:        splitKeepEnds(newContent),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

// trimDiffIndentation drops the common leading whitespace from diff body
// lines so deeply nested edits stay readable in tool output.
func trimDiffIndentation(diff string) string {
	lines := strings.Split(diff, "\n")

	isBody := func(line string) bool {
		if strings.HasPrefix(line, "---") || strings.HasPrefix(line, "+++") {
			return false
		}
		return strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, " ")
	}

	minIndent := -1
	for _, line := range lines {
		if !isBody(line) {
			continue
		}
		content := line[1:]
		if strings.TrimSpace(content) == "" {
			continue
		}
		indent := len(content) - len(strings.TrimLeft(content, " \t"))
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent <= 0 {
		return diff
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if isBody(line) && len(line) > minIndent {
			out[i] = string(line[0]) + line[1+minIndent:]
		} else if isBody(line) {
			out[i] = string(line[0])
		} else {
			out[i] = line
		}
	}
	return strings.Join(out, "\n")
}

const (
	defaultReadLimit = 2000
	maxReadBytes     = 50 * 1024
	maxLineLength    = 2000
)

// readFileWithLines reads up to limit lines starting at offset (0-based),
// numbering each as "00001| text". Long lines are clipped to maxLineLength
// and the whole result is bounded by maxReadBytes.
func readFileWithLines(path string, offset, limit int) (lines []string, total int, hasMore, truncatedByBytes bool, err error) {
	content, err := safeReadFile(path)
	if err != nil {
		return nil, 0, false, false, err
	}

	allLines := splitKeepEnds(content)
	total = len(allLines)

	byteCount := 0
	for i := offset; i < total && i < offset+limit; i++ {
		line := strings.TrimRight(allLines[i], "\n\r")
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "..."
		}
		lineSize := len(line) + 1
		if byteCount+lineSize > maxReadBytes {
			truncatedByBytes = true
			break
		}
		lines = append(lines, fmt.Sprintf("%05d| %s", i+1, line))
		byteCount += lineSize
	}

	hasMore = offset+len(lines) < total
	return lines, total, hasMore, truncatedByBytes, nil
}

// safeReadFile reads a UTF-8 text file, mapping failures to the messages the
// workspace tools show the model.
func safeReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return "", fmt.Errorf("File not found: %s", path)
		case os.IsPermission(err):
			return "", fmt.Errorf("Permission denied: %s", path)
		default:
			return "", fmt.Errorf("Error reading file: %v", err)
		}
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("Failed to decode file (binary?): %s", path)
	}
	return string(data), nil
}
