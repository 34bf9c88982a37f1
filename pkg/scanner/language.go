package scanner

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// extLanguages maps a lowercased file extension to the language it counts
// toward in repository statistics.
var extLanguages = map[string]string{
	".go":    "Go",
	".py":    "Python",
	".java":  "Java",
	".rs":    "Rust",
	".php":   "PHP",
	".rb":    "Ruby",
	".swift": "Swift",
	".c":     "C",
	".h":     "C",
	".cpp":   "C++",
	".hpp":   "C++",
	".js":    "JavaScript",
	".ts":    "TypeScript",
	".html":  "HTML",
	".css":   "CSS",
	".sql":   "SQL",
	".sh":    "Shell",
}

// AnalyzeLanguages walks dir and counts files per recognized language.
// Unreadable entries are skipped and unknown extensions don't count, so the
// result is best-effort by design.
func AnalyzeLanguages(dir string) map[string]int {
	stats := make(map[string]int)
	if dir == "" {
		return stats
	}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
			stats[lang]++
		}
		return nil
	})
	return stats
}

// TopLanguage returns the language with the highest file count. Ties break
// alphabetically so equal-count repos report deterministically; empty stats
// report "Other".
func TopLanguage(stats map[string]int) string {
	if len(stats) == 0 {
		return "Other"
	}
	top := ""
	topCount := -1
	for lang, count := range stats {
		if count > topCount || (count == topCount && lang < top) {
			top, topCount = lang, count
		}
	}
	return top
}
