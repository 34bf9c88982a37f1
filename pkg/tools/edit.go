package tools

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// levenshtein computes the edit distance between two strings by rune.
func levenshtein(a, b string) int {
	if a == "" || b == "" {
		return max(len([]rune(a)), len([]rune(b)))
	}
	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)

	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		cur[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, min(cur[j-1]+1, prev[j-1]+cost))
		}
		prev, cur = cur, prev
	}
	return prev[n]
}

// simpleMatches yields the exact needle when it occurs in content.
func simpleMatches(content, find string) []string {
	if strings.Contains(content, find) {
		return []string{find}
	}
	return nil
}

// lineTrimmedMatches compares line-by-line with surrounding whitespace
// stripped, returning the original (untrimmed) text of each match.
func lineTrimmedMatches(content, find string) []string {
	originalLines := strings.Split(content, "\n")
	searchLines := strings.Split(find, "\n")
	if len(searchLines) > 0 && searchLines[len(searchLines)-1] == "" {
		searchLines = searchLines[:len(searchLines)-1]
	}
	if len(searchLines) == 0 {
		return nil
	}

	var matches []string
	for i := 0; i+len(searchLines) <= len(originalLines); i++ {
		matched := true
		for j := range searchLines {
			if strings.TrimSpace(originalLines[i+j]) != strings.TrimSpace(searchLines[j]) {
				matched = false
				break
			}
		}
		if matched {
			matches = append(matches, strings.Join(originalLines[i:i+len(searchLines)], "\n"))
		}
	}
	return matches
}

// blockAnchorMatches anchors on the first and last lines of a multi-line
// needle and scores the interior by Levenshtein similarity. The best block at
// or above 0.3 similarity wins.
func blockAnchorMatches(content, find string) []string {
	originalLines := strings.Split(content, "\n")
	searchLines := strings.Split(find, "\n")
	if len(searchLines) < 3 {
		return nil
	}
	if searchLines[len(searchLines)-1] == "" {
		searchLines = searchLines[:len(searchLines)-1]
	}
	if len(searchLines) < 2 {
		return nil
	}

	firstLine := strings.TrimSpace(searchLines[0])
	lastLine := strings.TrimSpace(searchLines[len(searchLines)-1])

	type span struct{ start, end int }
	var candidates []span
	for i := range originalLines {
		if strings.TrimSpace(originalLines[i]) != firstLine {
			continue
		}
		for j := i + 2; j < len(originalLines); j++ {
			if strings.TrimSpace(originalLines[j]) == lastLine {
				candidates = append(candidates, span{i, j})
				break
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	bestSimilarity := -1.0
	var best span
	for _, c := range candidates {
		blockLen := c.end - c.start + 1
		linesToCheck := min(len(searchLines)-2, blockLen-2)

		similarity := 1.0
		if linesToCheck > 0 {
			similarity = 0
			for k := 1; k <= linesToCheck; k++ {
				origLine := strings.TrimSpace(originalLines[c.start+k])
				searchLine := strings.TrimSpace(searchLines[k])
				maxLen := max(len([]rune(origLine)), len([]rune(searchLine)))
				if maxLen == 0 {
					continue
				}
				dist := levenshtein(origLine, searchLine)
				similarity += 1 - float64(dist)/float64(maxLen)
			}
			similarity /= float64(linesToCheck)
		}
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = c
		}
	}

	if bestSimilarity >= 0.3 {
		return []string{strings.Join(originalLines[best.start:best.end+1], "\n")}
	}
	return nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// whitespaceNormalizedMatches matches single lines whose collapsed whitespace
// equals the collapsed needle.
func whitespaceNormalizedMatches(content, find string) []string {
	target := normalizeWhitespace(find)
	var matches []string
	for _, line := range strings.Split(content, "\n") {
		if normalizeWhitespace(line) == target {
			matches = append(matches, line)
		}
	}
	return matches
}

// multiOccurrenceMatches yields the needle once per exact occurrence; only
// useful together with replace_all.
func multiOccurrenceMatches(content, find string) []string {
	if find == "" {
		return nil
	}
	var matches []string
	start := 0
	for {
		idx := strings.Index(content[start:], find)
		if idx == -1 {
			break
		}
		matches = append(matches, find)
		start += idx + len(find)
	}
	return matches
}

// findReplacement runs the matcher pipeline in order of strictness and
// returns the concrete text to splice out.
func findReplacement(content, oldString string, replaceAll bool) (string, string) {
	matchers := []func(string, string) []string{
		simpleMatches,
		lineTrimmedMatches,
		blockAnchorMatches,
		whitespaceNormalizedMatches,
		multiOccurrenceMatches,
	}

	notFound := true
	for _, matcher := range matchers {
		for _, search := range matcher(content, oldString) {
			idx := strings.Index(content, search)
			if idx == -1 {
				continue
			}
			notFound = false

			if replaceAll {
				return search, ""
			}
			if idx != strings.LastIndex(content, search) {
				continue
			}
			return search, ""
		}
	}

	if notFound {
		return "", "oldString not found in content"
	}
	return "", "Found multiple matches for oldString. Provide more surrounding lines to identify the correct match."
}

// NewEditTool builds the edit tool: exact-match string replacement with
// progressively fuzzier matching when the needle does not appear verbatim.
func NewEditTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "edit",
			Description: "Replace old_string with new_string in a file. The match must be unique unless replace_all is set. An empty old_string creates or overwrites the file.",
			Parameters: []Parameter{
				{Name: "file_path", Type: "string", Description: "Path to the file, relative to the repository root", Required: true},
				{Name: "old_string", Type: "string", Description: "Exact text to replace", Required: true},
				{Name: "new_string", Type: "string", Description: "Replacement text", Required: true},
				{Name: "replace_all", Type: "boolean", Description: "Replace every occurrence instead of requiring a unique match", Required: false},
			},
			NeedsContext: true,
			Sandbox:      true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			filePath := stringArg(args, "file_path")
			oldString := stringArg(args, "old_string")
			newString := stringArg(args, "new_string")
			replaceAll := boolArg(args, "replace_all", false)

			if oldString == newString {
				return Failure("old_string and new_string must be different"), nil
			}

			root := tc.Folder
			if root == "" {
				root, _ = os.Getwd()
			}
			resolved, err := validatePath(filePath, root, false)
			if err != nil {
				return Failure(err.Error()), nil
			}

			if oldString == "" {
				if mkErr := ensureParentDir(resolved); mkErr != nil {
					return Failure("Error editing file: " + mkErr.Error()), nil
				}
				contentOld := ""
				if _, statErr := os.Stat(resolved); statErr == nil {
					old, readErr := safeReadFile(resolved)
					if readErr != nil {
						return Failure(readErr.Error()), nil
					}
					contentOld = old
				}
				if writeErr := os.WriteFile(resolved, []byte(newString), 0644); writeErr != nil {
					return Failure("Error editing file: " + writeErr.Error()), nil
				}
				diff := trimDiffIndentation(unifiedDiff(contentOld, newString, filePath))
				return NewFields().
					Set("success", true).
					Set("title", filepath.Base(resolved)).
					Set("diff", diff).
					Set("message", "File created/overwritten successfully"), nil
			}

			info, statErr := os.Stat(resolved)
			if statErr != nil {
				return Failure("File not found: " + resolved), nil
			}
			if !info.Mode().IsRegular() {
				return Failure("Path is not a file: " + resolved), nil
			}

			contentOld, readErr := safeReadFile(resolved)
			if readErr != nil {
				return Failure(readErr.Error()), nil
			}

			contentOld = strings.ReplaceAll(contentOld, "\r\n", "\n")
			oldString = strings.ReplaceAll(oldString, "\r\n", "\n")
			newString = strings.ReplaceAll(newString, "\r\n", "\n")

			search, matchErr := findReplacement(contentOld, oldString, replaceAll)
			if matchErr != "" {
				return Failure(matchErr), nil
			}

			var contentNew string
			if replaceAll {
				contentNew = strings.ReplaceAll(contentOld, search, newString)
			} else {
				idx := strings.Index(contentOld, search)
				contentNew = contentOld[:idx] + newString + contentOld[idx+len(search):]
			}

			if writeErr := os.WriteFile(resolved, []byte(contentNew), 0644); writeErr != nil {
				return Failure("Error editing file: " + writeErr.Error()), nil
			}

			diff := trimDiffIndentation(unifiedDiff(contentOld, contentNew, filePath))

			oldLines := strings.Split(contentOld, "\n")
			newLines := strings.Split(contentNew, "\n")
			oldSet := make(map[string]bool, len(oldLines))
			for _, line := range oldLines {
				oldSet[line] = true
			}
			newSet := make(map[string]bool, len(newLines))
			for _, line := range newLines {
				newSet[line] = true
			}
			additions := 0
			for _, line := range newLines {
				if !oldSet[line] {
					additions++
				}
			}
			deletions := 0
			for _, line := range oldLines {
				if !newSet[line] {
					deletions++
				}
			}

			return NewFields().
				Set("success", true).
				Set("title", filepath.Base(resolved)).
				Set("diff", diff).
				Set("additions", additions).
				Set("deletions", deletions), nil
		},
	}
}
