package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/hookstream/internal/domain"
	"github.com/gosuda/hookstream/internal/ingest"
)

type todo struct {
	content string
	status  string
}

func todoWrite(session string, ts int64, todos ...todo) domain.Event {
	items := make([]any, len(todos))
	for i, td := range todos {
		items[i] = map[string]any{"content": td.content, "status": td.status}
	}
	return domain.Event{
		SourceApp:     "claude",
		SessionID:     session,
		HookEventType: domain.EventTypePostToolUse,
		Timestamp:     ts,
		AgentName:     "engineer",
		Summary:       "updated todos",
		Payload: map[string]any{
			"tool_name":  domain.TodoToolName,
			"tool_input": map[string]any{"todos": items},
		},
	}
}

func completedTasks(events []domain.Event) []string {
	var tasks []string
	for _, ev := range events {
		if ev.HookEventType == domain.EventTypeCompleted {
			tasks = append(tasks, ev.Payload["task"].(string))
		}
	}
	return tasks
}

func TestSynthesizer_Process(t *testing.T) {
	t.Parallel()

	t.Run("non-todo events pass through", func(t *testing.T) {
		t.Parallel()

		s := ingest.NewSynthesizer(ingest.NewTodoCache())
		ev := domain.Event{SessionID: "s1", Payload: map[string]any{"tool_name": "Bash"}}

		out := s.Process(ev)
		require.Len(t, out, 1)
		assert.Equal(t, ev, out[0])
	})

	t.Run("pending to completed then unchanged", func(t *testing.T) {
		t.Parallel()

		s := ingest.NewSynthesizer(ingest.NewTodoCache())

		out := s.Process(todoWrite("s1", 1, todo{"A", "pending"}))
		assert.Empty(t, completedTasks(out))

		out = s.Process(todoWrite("s1", 2, todo{"A", "completed"}))
		assert.Equal(t, []string{"A"}, completedTasks(out))

		out = s.Process(todoWrite("s1", 3, todo{"A", "completed"}))
		assert.Empty(t, completedTasks(out))
	})

	t.Run("completed on first sight counts", func(t *testing.T) {
		t.Parallel()

		s := ingest.NewSynthesizer(ingest.NewTodoCache())
		out := s.Process(todoWrite("s1", 1, todo{"A", "completed"}, todo{"B", "pending"}))
		assert.Equal(t, []string{"A"}, completedTasks(out))
	})

	t.Run("synthetic events follow the original in list order", func(t *testing.T) {
		t.Parallel()

		s := ingest.NewSynthesizer(ingest.NewTodoCache())
		s.Process(todoWrite("s1", 1, todo{"A", "pending"}, todo{"B", "in_progress"}, todo{"C", "completed"}))

		src := todoWrite("s1", 77, todo{"C", "completed"}, todo{"B", "completed"}, todo{"A", "completed"})
		out := s.Process(src)

		require.Len(t, out, 3)
		assert.Equal(t, src, out[0])
		assert.Equal(t, []string{"B", "A"}, completedTasks(out))

		for _, ev := range out[1:] {
			assert.Equal(t, domain.EventTypeCompleted, ev.HookEventType)
			assert.Equal(t, "s1", ev.SessionID)
			assert.Equal(t, int64(77), ev.Timestamp)
			assert.Equal(t, "engineer", ev.AgentName)
			assert.Equal(t, "claude", ev.SourceApp)
			assert.Empty(t, ev.Summary)
			assert.Len(t, ev.Payload, 1)
		}
	})

	t.Run("sessions are tracked independently", func(t *testing.T) {
		t.Parallel()

		s := ingest.NewSynthesizer(ingest.NewTodoCache())
		s.Process(todoWrite("s1", 1, todo{"A", "completed"}))

		out := s.Process(todoWrite("s2", 2, todo{"A", "completed"}))
		assert.Equal(t, []string{"A"}, completedTasks(out))
	})

	t.Run("snapshot is replaced not merged", func(t *testing.T) {
		t.Parallel()

		cache := ingest.NewTodoCache()
		s := ingest.NewSynthesizer(cache)
		s.Process(todoWrite("s1", 1, todo{"A", "completed"}))
		s.Process(todoWrite("s1", 2, todo{"B", "pending"}))

		assert.Equal(t, []domain.TodoItem{{Content: "B", Status: domain.TodoStatusPending}}, cache.Get("s1"))

		// A vanished from the last snapshot, so reappearing completed counts again.
		out := s.Process(todoWrite("s1", 3, todo{"A", "completed"}))
		assert.Equal(t, []string{"A"}, completedTasks(out))
	})

	t.Run("missing todo list clears snapshot", func(t *testing.T) {
		t.Parallel()

		cache := ingest.NewTodoCache()
		s := ingest.NewSynthesizer(cache)
		s.Process(todoWrite("s1", 1, todo{"A", "pending"}))

		out := s.Process(domain.Event{SessionID: "s1", Payload: map[string]any{"tool_name": domain.TodoToolName}})
		require.Len(t, out, 1)
		assert.Empty(t, cache.Get("s1"))
	})

	t.Run("regression to pending then completed reports again", func(t *testing.T) {
		t.Parallel()

		s := ingest.NewSynthesizer(ingest.NewTodoCache())
		s.Process(todoWrite("s1", 1, todo{"A", "completed"}))
		s.Process(todoWrite("s1", 2, todo{"A", "pending"}))

		out := s.Process(todoWrite("s1", 3, todo{"A", "completed"}))
		assert.Equal(t, []string{"A"}, completedTasks(out))
	})

	// Content text is the identity key; these document the known limits.
	t.Run("renamed item completing is reported as new", func(t *testing.T) {
		t.Parallel()

		s := ingest.NewSynthesizer(ingest.NewTodoCache())
		s.Process(todoWrite("s1", 1, todo{"Write docs", "completed"}))

		out := s.Process(todoWrite("s1", 2, todo{"Write the docs", "completed"}))
		assert.Equal(t, []string{"Write the docs"}, completedTasks(out))
	})

	t.Run("duplicate content matches first previous item", func(t *testing.T) {
		t.Parallel()

		s := ingest.NewSynthesizer(ingest.NewTodoCache())
		s.Process(todoWrite("s1", 1, todo{"Test", "completed"}, todo{"Test", "pending"}))

		out := s.Process(todoWrite("s1", 2, todo{"Test", "completed"}, todo{"Test", "completed"}))
		assert.Empty(t, completedTasks(out))
	})
}
