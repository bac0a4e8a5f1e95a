package store

import (
	"context"
	"sort"
	"sync"

	"github.com/vyrodovalexey/todo-api/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	todos  map[int64]model.Todo
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		todos: make(map[int64]model.Todo),
	}
}

// Create adds a new todo and assigns it the next sequential ID.
func (s *MemoryStore) Create(ctx context.Context, input model.CreateTodo) (*model.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, unexpected("create todo", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	todo := model.Todo{
		ID:        s.nextID,
		Text:      input.Text,
		Completed: false,
	}
	s.todos[todo.ID] = todo

	return &todo, nil
}

// Find retrieves a todo by its ID.
func (s *MemoryStore) Find(ctx context.Context, id int64) (*model.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, unexpected("find todo", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	todo, exists := s.todos[id]
	if !exists {
		return nil, notFound(id)
	}

	return &todo, nil
}

// All returns all todos, highest ID first.
func (s *MemoryStore) All(ctx context.Context) ([]model.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, unexpected("list todos", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	todos := make([]model.Todo, 0, len(s.todos))
	for _, todo := range s.todos {
		todos = append(todos, todo)
	}
	sort.Slice(todos, func(i, j int) bool {
		return todos[i].ID > todos[j].ID
	})

	return todos, nil
}

// Update applies the present fields of input under the write lock.
func (s *MemoryStore) Update(ctx context.Context, id int64, input model.UpdateTodo) (*model.Todo, error) {
	if err := ctx.Err(); err != nil {
		return nil, unexpected("update todo", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.todos[id]
	if !exists {
		return nil, notFound(id)
	}

	updated := input.Apply(existing)
	s.todos[id] = updated

	return &updated, nil
}

// Delete removes a todo from the store by its ID.
func (s *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return unexpected("delete todo", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.todos[id]; !exists {
		return notFound(id)
	}

	delete(s.todos, id)

	return nil
}

// Ping always succeeds unless the context is done.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return unexpected("ping", err)
	}
	return nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}
