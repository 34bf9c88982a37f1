package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindReplacement(t *testing.T) {
	content := "func a() {\n\treturn 1\n}\n\nfunc b() {\n\treturn 2\n}\n"

	search, errMsg := findReplacement(content, "func a() {\n\treturn 1\n}", false)
	if errMsg != "" {
		t.Fatalf("findReplacement() error = %q", errMsg)
	}
	if search != "func a() {\n\treturn 1\n}" {
		t.Errorf("search = %q", search)
	}

	_, errMsg = findReplacement(content, "func c()", false)
	if errMsg != "oldString not found in content" {
		t.Errorf("not-found error = %q", errMsg)
	}

	_, errMsg = findReplacement("x\nx\n", "x", false)
	if !strings.HasPrefix(errMsg, "Found multiple matches") {
		t.Errorf("ambiguous error = %q", errMsg)
	}

	// replace_all accepts ambiguity.
	search, errMsg = findReplacement("x\nx\n", "x", true)
	if errMsg != "" || search != "x" {
		t.Errorf("replace_all = %q, %q", search, errMsg)
	}
}

func TestFindReplacementLineTrimmed(t *testing.T) {
	content := "    if ok {\n        run()\n    }\n"
	// The needle has no indentation; line-trimmed matching recovers the
	// original indented text.
	search, errMsg := findReplacement(content, "if ok {\nrun()\n}", false)
	if errMsg != "" {
		t.Fatalf("findReplacement() error = %q", errMsg)
	}
	if search != "    if ok {\n        run()\n    }" {
		t.Errorf("search = %q, want original indented block", search)
	}
}

func TestBlockAnchorMatches(t *testing.T) {
	content := "start\nmiddle line one\nmiddle line two\nend\n"
	// Interior drifted slightly; first and last lines anchor the block.
	got := blockAnchorMatches(content, "start\nmiddle line 1\nmiddle line 2\nend")
	if len(got) != 1 {
		t.Fatalf("blockAnchorMatches() = %v, want one match", got)
	}
	if got[0] != "start\nmiddle line one\nmiddle line two\nend" {
		t.Errorf("match = %q", got[0])
	}

	if got := blockAnchorMatches(content, "one\nline"); got != nil {
		t.Errorf("short needle matched: %v", got)
	}
}

func TestEditToolReplace(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "main.go", "package main\n\nconst x = 1\nconst y = 2\n")

	f := runTool(t, NewEditTool(), map[string]any{
		"file_path":  "main.go",
		"old_string": "const x = 1",
		"new_string": "const x = 10",
	}, &Context{Folder: root})

	if !fieldBool(t, f, "success") {
		t.Fatalf("success = false: %v", f.Keys())
	}
	if v, _ := f.Get("title"); v != "main.go" {
		t.Errorf("title = %v", v)
	}
	if v, _ := f.Get("additions"); v != 1 {
		t.Errorf("additions = %v, want 1", v)
	}
	if v, _ := f.Get("deletions"); v != 1 {
		t.Errorf("deletions = %v, want 1", v)
	}

	data, _ := os.ReadFile(filepath.Join(root, "main.go"))
	if !strings.Contains(string(data), "const x = 10") {
		t.Errorf("file content = %q", data)
	}
}

func TestEditToolReplaceAll(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "vars.txt", "foo\nbar\nfoo\n")

	runTool(t, NewEditTool(), map[string]any{
		"file_path":   "vars.txt",
		"old_string":  "foo",
		"new_string":  "baz",
		"replace_all": true,
	}, &Context{Folder: root})

	data, _ := os.ReadFile(filepath.Join(root, "vars.txt"))
	if string(data) != "baz\nbar\nbaz\n" {
		t.Errorf("file content = %q", data)
	}
}

func TestEditToolCreatesWithEmptyOldString(t *testing.T) {
	root := t.TempDir()

	f := runTool(t, NewEditTool(), map[string]any{
		"file_path":  "fresh.txt",
		"old_string": "",
		"new_string": "hello\n",
	}, &Context{Folder: root})

	if v, _ := f.Get("message"); v != "File created/overwritten successfully" {
		t.Errorf("message = %v", v)
	}
	data, err := os.ReadFile(filepath.Join(root, "fresh.txt"))
	if err != nil || string(data) != "hello\n" {
		t.Errorf("file = %q, err = %v", data, err)
	}
}

func TestEditToolErrors(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "a.txt", "content\n")

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{
			"identical strings",
			map[string]any{"file_path": "a.txt", "old_string": "x", "new_string": "x"},
			"old_string and new_string must be different",
		},
		{
			"missing file",
			map[string]any{"file_path": "nope.txt", "old_string": "a", "new_string": "b"},
			"File not found: " + filepath.Join(root, "nope.txt"),
		},
		{
			"needle not present",
			map[string]any{"file_path": "a.txt", "old_string": "absent", "new_string": "b"},
			"oldString not found in content",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := runTool(t, NewEditTool(), tt.args, &Context{Folder: root})
			if msg := fieldString(t, f, "error"); msg != tt.want {
				t.Errorf("error = %q, want %q", msg, tt.want)
			}
		})
	}
}

func TestEditToolNormalizesCRLF(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "dos.txt", "first\r\nsecond\r\n")

	f := runTool(t, NewEditTool(), map[string]any{
		"file_path":  "dos.txt",
		"old_string": "first\nsecond",
		"new_string": "first\nchanged",
	}, &Context{Folder: root})

	if !fieldBool(t, f, "success") {
		t.Fatalf("success = false: %v", f.Keys())
	}
	data, _ := os.ReadFile(filepath.Join(root, "dos.txt"))
	if !strings.Contains(string(data), "changed") {
		t.Errorf("file content = %q", data)
	}
}
