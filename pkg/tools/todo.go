package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TodoStatus is the lifecycle state of a todo item.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoCompleted  TodoStatus = "completed"
	TodoCancelled  TodoStatus = "cancelled"
)

var todoStatusOrder = []TodoStatus{TodoPending, TodoInProgress, TodoCompleted, TodoCancelled}

func validTodoStatus(s string) bool {
	switch TodoStatus(s) {
	case TodoPending, TodoInProgress, TodoCompleted, TodoCancelled:
		return true
	}
	return false
}

func todoStatusValues() string {
	values := make([]string, len(todoStatusOrder))
	for i, s := range todoStatusOrder {
		values[i] = string(s)
	}
	return strings.Join(values, ", ")
}

// TodoItem is one entry in the agent's working plan.
type TodoItem struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Status   TodoStatus     `json:"status"`
	Priority int            `json:"priority"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TodoSummary counts items per status.
type TodoSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Cancelled  int `json:"cancelled"`
}

// TodoManager persists the agent's todo list under <repo>/.mcp/todos.json.
// Entries with a missing id or content or an unknown status are dropped on
// load rather than failing the whole list.
type TodoManager struct {
	rootFolder string
	mcpDir     string
	todoFile   string
	todos      []TodoItem
	loaded     bool
}

func NewTodoManager(rootFolder string) *TodoManager {
	mcpDir := filepath.Join(rootFolder, ".mcp")
	return &TodoManager{
		rootFolder: rootFolder,
		mcpDir:     mcpDir,
		todoFile:   filepath.Join(mcpDir, "todos.json"),
	}
}

func todoFromMap(data map[string]any) (TodoItem, bool) {
	id, _ := data["id"].(string)
	content, _ := data["content"].(string)
	if id == "" || content == "" {
		return TodoItem{}, false
	}
	status := string(TodoPending)
	if s, ok := data["status"].(string); ok && s != "" {
		status = s
	}
	if !validTodoStatus(status) {
		return TodoItem{}, false
	}
	item := TodoItem{ID: id, Content: content, Status: TodoStatus(status)}
	if p, ok := data["priority"]; ok {
		if f, ok := p.(float64); ok {
			item.Priority = int(f)
		}
	}
	if m, ok := data["metadata"].(map[string]any); ok {
		item.Metadata = m
	}
	return item, true
}

func (m *TodoManager) load() []TodoItem {
	if m.loaded {
		return m.todos
	}
	m.todos = nil

	if data, err := os.ReadFile(m.todoFile); err == nil {
		var raw []map[string]any
		if json.Unmarshal(data, &raw) == nil {
			for _, entry := range raw {
				if item, ok := todoFromMap(entry); ok {
					m.todos = append(m.todos, item)
				}
			}
		}
	}
	m.loaded = true
	return m.todos
}

func (m *TodoManager) save() error {
	if err := os.MkdirAll(m.mcpDir, 0755); err != nil {
		return err
	}
	list := m.todos
	if list == nil {
		list = []TodoItem{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.todoFile, data, 0644)
}

// All returns every todo, loading from disk on first use.
func (m *TodoManager) All() []TodoItem {
	return m.load()
}

// ByID returns the todo with the given id, or nil.
func (m *TodoManager) ByID(id string) *TodoItem {
	m.load()
	for i := range m.todos {
		if m.todos[i].ID == id {
			return &m.todos[i]
		}
	}
	return nil
}

// ByStatus returns the todos currently in the given state.
func (m *TodoManager) ByStatus(status TodoStatus) []TodoItem {
	m.load()
	var out []TodoItem
	for _, t := range m.todos {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// Add appends a new todo; ids must be unique.
func (m *TodoManager) Add(item TodoItem) error {
	m.load()
	if m.ByID(item.ID) != nil {
		return fmt.Errorf("Todo with id '%s' already exists", item.ID)
	}
	m.todos = append(m.todos, item)
	return m.save()
}

// TodoUpdates carries optional field changes for Update.
type TodoUpdates struct {
	Content  *string
	Status   *TodoStatus
	Priority *int
	Metadata map[string]any
}

// Update applies the provided fields to the todo with the given id and
// returns the updated item, or nil when no such todo exists.
func (m *TodoManager) Update(id string, updates TodoUpdates) (*TodoItem, error) {
	m.load()
	for i := range m.todos {
		if m.todos[i].ID != id {
			continue
		}
		if updates.Content != nil {
			m.todos[i].Content = *updates.Content
		}
		if updates.Status != nil {
			m.todos[i].Status = *updates.Status
		}
		if updates.Priority != nil {
			m.todos[i].Priority = *updates.Priority
		}
		if updates.Metadata != nil {
			m.todos[i].Metadata = updates.Metadata
		}
		if err := m.save(); err != nil {
			return nil, err
		}
		return &m.todos[i], nil
	}
	return nil, nil
}

// Remove deletes the todo with the given id.
func (m *TodoManager) Remove(id string) (bool, error) {
	m.load()
	for i := range m.todos {
		if m.todos[i].ID == id {
			m.todos = append(m.todos[:i], m.todos[i+1:]...)
			return true, m.save()
		}
	}
	return false, nil
}

// ReplaceAll swaps the entire list, dropping invalid entries.
func (m *TodoManager) ReplaceAll(todos []map[string]any) ([]TodoItem, error) {
	m.todos = nil
	for _, entry := range todos {
		if item, ok := todoFromMap(entry); ok {
			m.todos = append(m.todos, item)
		}
	}
	m.loaded = true
	return m.todos, m.save()
}

// Clear removes every todo.
func (m *TodoManager) Clear() error {
	m.todos = nil
	return m.save()
}

// ValidStatusTransition reports whether moving from current to next is legal.
// Completed and cancelled items may be reopened.
func (m *TodoManager) ValidStatusTransition(current, next TodoStatus) bool {
	switch current {
	case TodoPending:
		return next == TodoInProgress || next == TodoCancelled
	case TodoInProgress:
		return next == TodoCompleted || next == TodoPending || next == TodoCancelled
	case TodoCompleted, TodoCancelled:
		return next == TodoPending
	}
	return false
}

// Summary counts todos per status.
func (m *TodoManager) Summary() TodoSummary {
	m.load()
	s := TodoSummary{Total: len(m.todos)}
	for _, t := range m.todos {
		switch t.Status {
		case TodoPending:
			s.Pending++
		case TodoInProgress:
			s.InProgress++
		case TodoCompleted:
			s.Completed++
		case TodoCancelled:
			s.Cancelled++
		}
	}
	return s
}

func todoManagerFor(tc *Context) *TodoManager {
	if tc != nil && tc.Todos != nil {
		return tc.Todos
	}
	root := ""
	if tc != nil {
		root = tc.Folder
	}
	if root == "" {
		root, _ = os.Getwd()
	}
	return NewTodoManager(root)
}

func todoStatusIcon(status TodoStatus) string {
	switch status {
	case TodoInProgress:
		return "🔄"
	case TodoCompleted:
		return "✅"
	case TodoCancelled:
		return "❌"
	default:
		return "⬜"
	}
}

// NewTodoReadTool builds the todo_read tool.
func NewTodoReadTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:         "todo_read",
			Description:  "Read the current todo list with a per-status summary.",
			Parameters:   []Parameter{},
			NeedsContext: true,
			Sandbox:      true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			manager := todoManagerFor(tc)
			todos := manager.All()
			summary := manager.Summary()

			output := "No todos found."
			if len(todos) > 0 {
				lines := []string{
					fmt.Sprintf("Todos (%d total, %d pending, %d in progress):", summary.Total, summary.Pending, summary.InProgress),
					"",
				}
				for _, t := range todos {
					lines = append(lines, fmt.Sprintf("  %s [%s] %s (%s)", todoStatusIcon(t.Status), t.ID, t.Content, t.Status))
				}
				output = strings.Join(lines, "\n")
			}

			list := todos
			if list == nil {
				list = []TodoItem{}
			}
			return NewFields().
				Set("success", true).
				Set("title", fmt.Sprintf("%d pending todos", summary.Pending)).
				Set("output", output).
				Set("todos", list).
				Set("summary", summary), nil
		},
	}
}

// decodeTodoArg accepts either a decoded JSON array or a JSON string.
func decodeTodoArg(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case string:
		var parsed []any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return parsed, true
		}
	}
	return nil, false
}

// NewTodoWriteTool builds the todo_write tool: a full replace of the todo
// list after structural validation of every entry.
func NewTodoWriteTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "todo_write",
			Description: "Replace the todo list. Each entry needs id, content, and a status of pending, in_progress, completed, or cancelled.",
			Parameters: []Parameter{
				{Name: "todos", Type: "array", Description: "Full replacement list of todo objects", Required: true},
			},
			NeedsContext: true,
			Sandbox:      true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			rawList, ok := decodeTodoArg(args["todos"])
			if !ok {
				return Failure("todos must be an array of todo objects"), nil
			}

			entries := make([]map[string]any, 0, len(rawList))
			for i, raw := range rawList {
				entry, ok := raw.(map[string]any)
				if !ok {
					return Failure(fmt.Sprintf("Todo at index %d must be an object", i)), nil
				}
				for _, field := range []string{"id", "content", "status"} {
					if _, present := entry[field]; !present {
						return Failure(fmt.Sprintf("Todo at index %d missing required field '%s'", i, field)), nil
					}
				}
				status, _ := entry["status"].(string)
				if !validTodoStatus(status) {
					return Failure(fmt.Sprintf("Todo at index %d has invalid status '%s'. Valid values: %s", i, status, todoStatusValues())), nil
				}
				entries = append(entries, entry)
			}

			manager := todoManagerFor(tc)
			updated, err := manager.ReplaceAll(entries)
			if err != nil {
				return Failure("Error writing todos: " + err.Error()), nil
			}
			summary := manager.Summary()

			list := updated
			if list == nil {
				list = []TodoItem{}
			}
			return NewFields().
				Set("success", true).
				Set("title", fmt.Sprintf("%d pending todos", summary.Pending)).
				Set("output", fmt.Sprintf("Updated %d todos. %d pending, %d in progress.", len(updated), summary.Pending, summary.InProgress)).
				Set("todos", list).
				Set("summary", summary), nil
		},
	}
}

// NewTodoAddTool builds the todo_add tool for appending a single entry.
func NewTodoAddTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "todo_add",
			Description: "Add a single todo entry.",
			Parameters: []Parameter{
				{Name: "id", Type: "string", Description: "Unique todo id", Required: true},
				{Name: "content", Type: "string", Description: "Todo text", Required: true},
				{Name: "status", Type: "string", Description: "Initial status (defaults to pending)", Required: false},
				{Name: "priority", Type: "number", Description: "Priority weight", Required: false},
			},
			NeedsContext: true,
			Sandbox:      true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			id := stringArg(args, "id")
			content := stringArg(args, "content")
			status := stringArg(args, "status")
			if status == "" {
				status = string(TodoPending)
			}
			if !validTodoStatus(status) {
				return Failure(fmt.Sprintf("Invalid status '%s'. Valid values: %s", status, todoStatusValues())), nil
			}

			manager := todoManagerFor(tc)
			if manager.ByID(id) != nil {
				return Failure(fmt.Sprintf("Todo with id '%s' already exists", id)), nil
			}

			item := TodoItem{
				ID:       id,
				Content:  content,
				Status:   TodoStatus(status),
				Priority: intArg(args, "priority", 0),
			}
			if err := manager.Add(item); err != nil {
				return Failure("Error adding todo: " + err.Error()), nil
			}

			title := content
			if runes := []rune(title); len(runes) > 30 {
				title = string(runes[:30])
			}
			return NewFields().
				Set("success", true).
				Set("title", "Added: "+title+"...").
				Set("output", fmt.Sprintf("Todo '%s' added successfully", id)).
				Set("todo", item), nil
		},
	}
}

// NewTodoUpdateTool builds the todo_update tool for partial field changes.
func NewTodoUpdateTool() Tool {
	return Tool{
		Manifest: Manifest{
			Name:        "todo_update",
			Description: "Update the content, status, or priority of an existing todo.",
			Parameters: []Parameter{
				{Name: "id", Type: "string", Description: "Todo id to update", Required: true},
				{Name: "content", Type: "string", Description: "New content", Required: false},
				{Name: "status", Type: "string", Description: "New status", Required: false},
				{Name: "priority", Type: "number", Description: "New priority", Required: false},
			},
			NeedsContext: true,
			Sandbox:      true,
		},
		Handler: func(ctx context.Context, args map[string]any, tc *Context) (any, error) {
			id := stringArg(args, "id")

			manager := todoManagerFor(tc)
			if manager.ByID(id) == nil {
				return Failure(fmt.Sprintf("Todo with id '%s' not found", id)), nil
			}

			var updates TodoUpdates
			hasUpdate := false
			if _, present := args["content"]; present {
				content := stringArg(args, "content")
				updates.Content = &content
				hasUpdate = true
			}
			if _, present := args["status"]; present {
				status := stringArg(args, "status")
				if !validTodoStatus(status) {
					return Failure(fmt.Sprintf("Invalid status '%s'. Valid values: %s", status, todoStatusValues())), nil
				}
				ts := TodoStatus(status)
				updates.Status = &ts
				hasUpdate = true
			}
			if _, present := args["priority"]; present {
				priority := intArg(args, "priority", 0)
				updates.Priority = &priority
				hasUpdate = true
			}
			if !hasUpdate {
				return Failure("No updates provided"), nil
			}

			updated, err := manager.Update(id, updates)
			if err != nil {
				return Failure("Error updating todo: " + err.Error()), nil
			}
			if updated == nil {
				return Failure(fmt.Sprintf("Failed to update todo '%s'", id)), nil
			}

			return NewFields().
				Set("success", true).
				Set("title", "Updated: "+id).
				Set("output", fmt.Sprintf("Todo '%s' updated successfully", id)).
				Set("todo", *updated), nil
		},
	}
}
