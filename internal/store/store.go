// Package store provides data storage interfaces and implementations.
package store

import (
	"context"

	"github.com/vyrodovalexey/todo-api/internal/model"
)

// Store defines the interface for todo storage operations.
// Implementations must be safe for concurrent use.
type Store interface {
	// Create inserts a new todo with Completed=false and returns the stored record.
	Create(ctx context.Context, input model.CreateTodo) (*model.Todo, error)

	// Find retrieves a todo by its ID.
	Find(ctx context.Context, id int64) (*model.Todo, error)

	// All returns every todo ordered by ID, newest first.
	All(ctx context.Context) ([]model.Todo, error)

	// Update applies the present fields of input to the todo with the given ID.
	Update(ctx context.Context, id int64, input model.UpdateTodo) (*model.Todo, error)

	// Delete removes the todo with the given ID.
	Delete(ctx context.Context, id int64) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the resources held by the store.
	Close() error
}
