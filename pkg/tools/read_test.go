package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRepoFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runTool(t *testing.T, tool Tool, args map[string]any, tc *Context) *Fields {
	t.Helper()
	result, err := tool.Handler(context.Background(), args, tc)
	if err != nil {
		t.Fatalf("%s handler error = %v", tool.Name, err)
	}
	fields, ok := result.(*Fields)
	if !ok {
		t.Fatalf("%s result type = %T, want *Fields", tool.Name, result)
	}
	return fields
}

func fieldString(t *testing.T, f *Fields, key string) string {
	t.Helper()
	v, ok := f.Get(key)
	if !ok {
		t.Fatalf("field %q missing; got keys %v", key, f.Keys())
	}
	s, ok := v.(string)
	if !ok {
		t.Fatalf("field %q type = %T, want string", key, v)
	}
	return s
}

func fieldBool(t *testing.T, f *Fields, key string) bool {
	t.Helper()
	v, ok := f.Get(key)
	if !ok {
		t.Fatalf("field %q missing; got keys %v", key, f.Keys())
	}
	b, ok := v.(bool)
	if !ok {
		t.Fatalf("field %q type = %T, want bool", key, v)
	}
	return b
}

func TestReadToolBasic(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "app.py", "import os\nprint('hi')\n")

	f := runTool(t, NewReadTool(), map[string]any{"file_path": "app.py"}, &Context{Folder: root})

	if !fieldBool(t, f, "success") {
		t.Fatalf("success = false: %v", f.Keys())
	}
	output := fieldString(t, f, "output")
	for _, want := range []string{
		"<file>\n",
		"00001| import os",
		"00002| print('hi')",
		"(End of file - total 2 lines)",
		"\n</file>",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if title := fieldString(t, f, "title"); title != "app.py" {
		t.Errorf("title = %q, want relative path", title)
	}
	if v, _ := f.Get("total_lines"); v != 2 {
		t.Errorf("total_lines = %v, want 2", v)
	}
	if v, _ := f.Get("lines_read"); v != 2 {
		t.Errorf("lines_read = %v, want 2", v)
	}
}

func TestReadToolOffsetAndLimit(t *testing.T) {
	root := t.TempDir()
	var b strings.Builder
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	writeRepoFile(t, root, "big.txt", b.String())

	f := runTool(t, NewReadTool(), map[string]any{
		"file_path": "big.txt",
		"offset":    2,
		"limit":     3,
	}, &Context{Folder: root})

	output := fieldString(t, f, "output")
	if !strings.Contains(output, "00003| line 3") || !strings.Contains(output, "00005| line 5") {
		t.Errorf("window wrong:\n%s", output)
	}
	if strings.Contains(output, "00006|") {
		t.Errorf("read past limit:\n%s", output)
	}
	if !strings.Contains(output, "(File has more lines. Use 'offset' parameter to read beyond line 5)") {
		t.Errorf("missing continuation hint:\n%s", output)
	}
	if !fieldBool(t, f, "truncated") {
		t.Error("truncated = false, want true")
	}
}

func TestReadToolMissingFileSuggests(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "config.yaml", "a: 1\n")

	f := runTool(t, NewReadTool(), map[string]any{"file_path": "config.yam"}, &Context{Folder: root})

	if fieldBool(t, f, "success") {
		t.Fatal("success = true, want failure")
	}
	msg := fieldString(t, f, "error")
	if !strings.Contains(msg, "Path does not exist:") {
		t.Errorf("error = %q", msg)
	}
	if !strings.Contains(msg, "Did you mean one of these?") ||
		!strings.Contains(msg, filepath.Join(root, "config.yaml")) {
		t.Errorf("missing suggestion:\n%s", msg)
	}
}

func TestReadToolDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "src"), 0755); err != nil {
		t.Fatal(err)
	}

	f := runTool(t, NewReadTool(), map[string]any{"file_path": "src"}, &Context{Folder: root})

	if msg := fieldString(t, f, "error"); !strings.HasPrefix(msg, "Path is a directory, not a file:") {
		t.Errorf("error = %q", msg)
	}
}

func TestReadToolBinaryFile(t *testing.T) {
	root := t.TempDir()
	writeRepoFile(t, root, "logo.png", "fake")

	f := runTool(t, NewReadTool(), map[string]any{"file_path": "logo.png"}, &Context{Folder: root})

	if msg := fieldString(t, f, "error"); !strings.HasPrefix(msg, "Cannot read binary file:") {
		t.Errorf("error = %q", msg)
	}
}

func TestReadToolOutsideRoot(t *testing.T) {
	root := t.TempDir()

	f := runTool(t, NewReadTool(), map[string]any{"file_path": "../escape.txt"}, &Context{Folder: root})

	if fieldBool(t, f, "success") {
		t.Fatal("success = true, want failure")
	}
	if msg := fieldString(t, f, "error"); !strings.Contains(msg, "outside the allowed directory") {
		t.Errorf("error = %q", msg)
	}
}
