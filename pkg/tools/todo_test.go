package tools

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTodoManagerAddAndReload(t *testing.T) {
	root := t.TempDir()

	m := NewTodoManager(root)
	if err := m.Add(TodoItem{ID: "t1", Content: "First task", Status: TodoPending, Priority: 2}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add(TodoItem{ID: "t2", Content: "Second task", Status: TodoInProgress}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, ".mcp", "todos.json")); err != nil {
		t.Fatalf("todos.json not written: %v", err)
	}

	reloaded := NewTodoManager(root).All()
	if len(reloaded) != 2 {
		t.Fatalf("reloaded %d todos, want 2", len(reloaded))
	}
	if reloaded[0].ID != "t1" || reloaded[0].Content != "First task" || reloaded[0].Priority != 2 {
		t.Errorf("first todo = %+v", reloaded[0])
	}
	if reloaded[1].Status != TodoInProgress {
		t.Errorf("second status = %s, want in_progress", reloaded[1].Status)
	}
}

func TestTodoManagerDuplicateID(t *testing.T) {
	m := NewTodoManager(t.TempDir())
	if err := m.Add(TodoItem{ID: "t1", Content: "one", Status: TodoPending}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := m.Add(TodoItem{ID: "t1", Content: "again", Status: TodoPending})
	if err == nil || err.Error() != "Todo with id 't1' already exists" {
		t.Errorf("err = %v", err)
	}
}

func TestTodoManagerLoadDropsInvalid(t *testing.T) {
	root := t.TempDir()
	raw := `[
  {"id": "ok", "content": "valid", "status": "pending"},
  {"id": "missing-content", "status": "pending"},
  {"id": "bad-status", "content": "x", "status": "done"}
]`
	writeRepoFile(t, root, ".mcp/todos.json", raw)

	todos := NewTodoManager(root).All()
	if len(todos) != 1 || todos[0].ID != "ok" {
		t.Errorf("loaded = %+v, want only 'ok'", todos)
	}
}

func TestTodoManagerUpdateMissing(t *testing.T) {
	m := NewTodoManager(t.TempDir())
	updated, err := m.Update("nope", TodoUpdates{})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated != nil {
		t.Errorf("updated = %+v, want nil", updated)
	}
}

func TestValidStatusTransition(t *testing.T) {
	m := NewTodoManager(t.TempDir())
	tests := []struct {
		current, next TodoStatus
		want          bool
	}{
		{TodoPending, TodoInProgress, true},
		{TodoPending, TodoCancelled, true},
		{TodoPending, TodoCompleted, false},
		{TodoInProgress, TodoCompleted, true},
		{TodoInProgress, TodoPending, true},
		{TodoInProgress, TodoCancelled, true},
		{TodoCompleted, TodoPending, true},
		{TodoCompleted, TodoInProgress, false},
		{TodoCancelled, TodoPending, true},
		{TodoCancelled, TodoCompleted, false},
	}
	for _, tt := range tests {
		if got := m.ValidStatusTransition(tt.current, tt.next); got != tt.want {
			t.Errorf("ValidStatusTransition(%s, %s) = %v, want %v", tt.current, tt.next, got, tt.want)
		}
	}
}

func TestTodoReadToolEmpty(t *testing.T) {
	f := runTool(t, NewTodoReadTool(), map[string]any{}, &Context{Folder: t.TempDir()})

	if got := fieldString(t, f, "output"); got != "No todos found." {
		t.Errorf("output = %q", got)
	}
	if v, _ := f.Get("title"); v != "0 pending todos" {
		t.Errorf("title = %v", v)
	}
	todos, _ := f.Get("todos")
	if list, ok := todos.([]TodoItem); !ok || len(list) != 0 {
		t.Errorf("todos = %#v, want empty slice", todos)
	}
}

func TestTodoReadToolListing(t *testing.T) {
	m := NewTodoManager(t.TempDir())
	if err := m.Add(TodoItem{ID: "t1", Content: "First task", Status: TodoPending}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := m.Add(TodoItem{ID: "t2", Content: "Second task", Status: TodoInProgress}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	f := runTool(t, NewTodoReadTool(), map[string]any{}, &Context{Todos: m})

	output := fieldString(t, f, "output")
	wantLines := []string{
		"Todos (2 total, 1 pending, 1 in progress):",
		"",
		"  ⬜ [t1] First task (pending)",
		"  🔄 [t2] Second task (in_progress)",
	}
	if output != strings.Join(wantLines, "\n") {
		t.Errorf("output:\n%s", output)
	}
	if v, _ := f.Get("title"); v != "1 pending todos" {
		t.Errorf("title = %v", v)
	}
}

func TestTodoWriteToolReplacesAll(t *testing.T) {
	root := t.TempDir()
	m := NewTodoManager(root)
	if err := m.Add(TodoItem{ID: "old", Content: "stale", Status: TodoPending}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	f := runTool(t, NewTodoWriteTool(), map[string]any{
		"todos": []any{
			map[string]any{"id": "n1", "content": "new one", "status": "pending"},
			map[string]any{"id": "n2", "content": "new two", "status": "in_progress"},
		},
	}, &Context{Todos: m})

	if got := fieldString(t, f, "output"); got != "Updated 2 todos. 1 pending, 1 in progress." {
		t.Errorf("output = %q", got)
	}

	reloaded := NewTodoManager(root).All()
	if len(reloaded) != 2 || reloaded[0].ID != "n1" || reloaded[1].ID != "n2" {
		t.Errorf("persisted = %+v", reloaded)
	}
}

func TestTodoWriteToolValidation(t *testing.T) {
	tests := []struct {
		name    string
		todos   any
		wantErr string
	}{
		{"not an array", 42, "todos must be an array of todo objects"},
		{"entry not object", []any{"str"}, "Todo at index 0 must be an object"},
		{
			"missing status",
			[]any{map[string]any{"id": "a", "content": "b"}},
			"Todo at index 0 missing required field 'status'",
		},
		{
			"invalid status",
			[]any{
				map[string]any{"id": "a", "content": "b", "status": "pending"},
				map[string]any{"id": "c", "content": "d", "status": "done"},
			},
			"Todo at index 1 has invalid status 'done'. Valid values: pending, in_progress, completed, cancelled",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := runTool(t, NewTodoWriteTool(), map[string]any{"todos": tt.todos}, &Context{Folder: t.TempDir()})
			if fieldBool(t, f, "success") {
				t.Fatal("expected failure")
			}
			if got := fieldString(t, f, "error"); got != tt.wantErr {
				t.Errorf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestTodoWriteToolAcceptsJSONString(t *testing.T) {
	f := runTool(t, NewTodoWriteTool(), map[string]any{
		"todos": `[{"id": "j1", "content": "from json", "status": "pending"}]`,
	}, &Context{Folder: t.TempDir()})

	if !fieldBool(t, f, "success") {
		t.Fatalf("error = %q", fieldString(t, f, "error"))
	}
	if got := fieldString(t, f, "output"); got != "Updated 1 todos. 1 pending, 0 in progress." {
		t.Errorf("output = %q", got)
	}
}

func TestTodoAddTool(t *testing.T) {
	m := NewTodoManager(t.TempDir())

	f := runTool(t, NewTodoAddTool(), map[string]any{
		"id":      "t1",
		"content": "Check the session endpoints for auth bypass paths",
		"status":  "pending",
	}, &Context{Todos: m})

	if got := fieldString(t, f, "output"); got != "Todo 't1' added successfully" {
		t.Errorf("output = %q", got)
	}
	// Title clips content to 30 runes and always carries the ellipsis.
	if v, _ := f.Get("title"); v != "Added: Check the session endpoints fo..." {
		t.Errorf("title = %v", v)
	}
	if m.ByID("t1") == nil {
		t.Error("todo not stored")
	}

	dup := runTool(t, NewTodoAddTool(), map[string]any{"id": "t1", "content": "again"}, &Context{Todos: m})
	if got := fieldString(t, dup, "error"); got != "Todo with id 't1' already exists" {
		t.Errorf("dup error = %q", got)
	}
}

func TestTodoAddToolInvalidStatus(t *testing.T) {
	f := runTool(t, NewTodoAddTool(), map[string]any{
		"id":      "t1",
		"content": "x",
		"status":  "done",
	}, &Context{Folder: t.TempDir()})

	want := "Invalid status 'done'. Valid values: pending, in_progress, completed, cancelled"
	if got := fieldString(t, f, "error"); got != want {
		t.Errorf("error = %q", got)
	}
}

func TestTodoUpdateTool(t *testing.T) {
	m := NewTodoManager(t.TempDir())
	if err := m.Add(TodoItem{ID: "t1", Content: "original", Status: TodoPending}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	notFound := runTool(t, NewTodoUpdateTool(), map[string]any{"id": "nope", "status": "completed"}, &Context{Todos: m})
	if got := fieldString(t, notFound, "error"); got != "Todo with id 'nope' not found" {
		t.Errorf("error = %q", got)
	}

	noUpdates := runTool(t, NewTodoUpdateTool(), map[string]any{"id": "t1"}, &Context{Todos: m})
	if got := fieldString(t, noUpdates, "error"); got != "No updates provided" {
		t.Errorf("error = %q", got)
	}

	f := runTool(t, NewTodoUpdateTool(), map[string]any{
		"id":     "t1",
		"status": "in_progress",
	}, &Context{Todos: m})
	if got := fieldString(t, f, "output"); got != "Todo 't1' updated successfully" {
		t.Errorf("output = %q", got)
	}
	if v, _ := f.Get("title"); v != "Updated: t1" {
		t.Errorf("title = %v", v)
	}
	todo, _ := f.Get("todo")
	item, ok := todo.(TodoItem)
	if !ok || item.Status != TodoInProgress {
		t.Errorf("todo = %#v", todo)
	}
}
