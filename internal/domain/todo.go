package domain

// TodoStatus is the lifecycle state of a task-list item.
type TodoStatus string

const (
	TodoStatusPending    TodoStatus = "pending"
	TodoStatusInProgress TodoStatus = "in_progress"
	TodoStatusCompleted  TodoStatus = "completed"
)

// TodoToolName marks a full task-list replacement in payload.tool_name.
const TodoToolName = "TodoWrite"

// TodoItem is one entry of a task-list snapshot. Content is the identity key
// used when diffing consecutive snapshots.
type TodoItem struct {
	Content    string     `json:"content"`
	Status     TodoStatus `json:"status"`
	ActiveForm string     `json:"activeForm,omitempty"`
}

// TodosFromPayload extracts payload.tool_input.todos. Anything absent or of
// the wrong shape yields an empty list; malformed items are skipped.
func TodosFromPayload(payload map[string]any) []TodoItem {
	input, ok := payload["tool_input"].(map[string]any)
	if !ok {
		return []TodoItem{}
	}
	raw, ok := input["todos"].([]any)
	if !ok {
		return []TodoItem{}
	}

	todos := make([]TodoItem, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		content, _ := m["content"].(string)
		status, _ := m["status"].(string)
		activeForm, _ := m["activeForm"].(string)
		todos = append(todos, TodoItem{
			Content:    content,
			Status:     TodoStatus(status),
			ActiveForm: activeForm,
		})
	}
	return todos
}
