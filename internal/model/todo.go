// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation errors for todo payloads.
var (
	ErrEmptyText   = errors.New("text cannot be empty")
	ErrTextTooLong = errors.New("text cannot exceed 1000 characters")
)

// MaxTextLength is the maximum number of characters in a todo text.
const MaxTextLength = 1000

// Todo is a single todo item as stored and returned by the API.
type Todo struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// CreateTodo is the payload for creating a todo. New todos always start
// with Completed set to false.
type CreateTodo struct {
	Text string `json:"text"`
}

// Validate checks if the CreateTodo has valid field values.
func (c *CreateTodo) Validate() error {
	return validateText(c.Text)
}

// UpdateTodo is a partial update. Nil fields keep their stored value.
type UpdateTodo struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// Validate checks the fields present in the UpdateTodo.
func (u *UpdateTodo) Validate() error {
	if u.Text == nil {
		return nil
	}
	return validateText(*u.Text)
}

// Apply returns a copy of t with the present fields of u applied.
func (u *UpdateTodo) Apply(t Todo) Todo {
	if u.Text != nil {
		t.Text = *u.Text
	}
	if u.Completed != nil {
		t.Completed = *u.Completed
	}
	return t
}

func validateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	if utf8.RuneCountInString(text) > MaxTextLength {
		return ErrTextTooLong
	}

	return nil
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// TodoEvent is a change notification sent over the WebSocket feed.
type TodoEvent struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	Todo      *Todo     `json:"todo"`
	Timestamp time.Time `json:"timestamp"`
}

// Todo event types.
const (
	EventTodoCreated = "todo_created"
	EventTodoUpdated = "todo_updated"
	EventTodoDeleted = "todo_deleted"
)

// NewTodoEvent creates an event for a todo that was created or updated.
func NewTodoEvent(eventType string, todo Todo) TodoEvent {
	return TodoEvent{
		Type:      eventType,
		ID:        todo.ID,
		Todo:      &todo,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeletedEvent creates an event for a deleted todo.
func NewDeletedEvent(id int64) TodoEvent {
	return TodoEvent{
		Type:      EventTodoDeleted,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}
