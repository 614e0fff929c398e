package richtext

import (
	"encoding/json"
	"fmt"
)

// TaskState is the state of a task item. Each state maps to exactly one
// checkbox symbol.
type TaskState uint8

const (
	TaskTodo TaskState = iota
	TaskCompleted
	TaskInProgress
	TaskUrgent
	TaskQuestion
	TaskCancelled
	TaskDelegated
	TaskStarred
	TaskPaused
	TaskScheduled
	TaskQuote
	TaskInfo
	TaskBlocked
	TaskAdded
	TaskWaiting
	TaskMentioned
	TaskReview
	TaskDuplicate
	TaskStarted

	taskStateCount
)

type taskDef struct {
	name   string
	symbol byte
}

var taskDefs = [taskStateCount]taskDef{
	TaskTodo:       {"todo", ' '},
	TaskCompleted:  {"completed", 'x'},
	TaskInProgress: {"in-progress", '/'},
	TaskUrgent:     {"urgent", '!'},
	TaskQuestion:   {"question", '?'},
	TaskCancelled:  {"cancelled", '-'},
	TaskDelegated:  {"delegated", '>'},
	TaskStarred:    {"starred", '*'},
	TaskPaused:     {"paused", '~'},
	TaskScheduled:  {"scheduled", '<'},
	TaskQuote:      {"quote", '"'},
	TaskInfo:       {"info", 'i'},
	TaskBlocked:    {"blocked", 'b'},
	TaskAdded:      {"added", '+'},
	TaskWaiting:    {"waiting", 'w'},
	TaskMentioned:  {"mentioned", '@'},
	TaskReview:     {"review", 'R'},
	TaskDuplicate:  {"duplicate", 'D'},
	TaskStarted:    {"started", 'S'},
}

// TaskStates returns all task states in table order.
func TaskStates() []TaskState {
	out := make([]TaskState, 0, taskStateCount)
	for s := TaskTodo; s < taskStateCount; s++ {
		out = append(out, s)
	}
	return out
}

// Symbol returns the checkbox symbol for the state. Out-of-range states
// are written as todo.
func (s TaskState) Symbol() byte {
	if s >= taskStateCount {
		return ' '
	}
	return taskDefs[s].symbol
}

func (s TaskState) String() string {
	if s >= taskStateCount {
		return taskDefs[TaskTodo].name
	}
	return taskDefs[s].name
}

// StateForSymbol maps a checkbox symbol to its state. 'X' is accepted as
// completed; any other unknown symbol maps to todo.
func StateForSymbol(b byte) TaskState {
	if b == 'X' {
		return TaskCompleted
	}
	for s, d := range taskDefs {
		if d.symbol == b {
			return TaskState(s)
		}
	}
	return TaskTodo
}

// ParseTaskState maps a state name ("in-progress") to its state.
// Unknown names map to todo.
func ParseTaskState(name string) TaskState {
	for s, d := range taskDefs {
		if d.name == name {
			return TaskState(s)
		}
	}
	return TaskTodo
}

// MarshalJSON encodes the state as its name.
func (s TaskState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a state name.
func (s *TaskState) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("richtext: task state must be a string: %w", err)
	}
	*s = ParseTaskState(name)
	return nil
}
