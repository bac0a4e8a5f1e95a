package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vyrodovalexey/todo-api/internal/model"
)

func ptr[T any](v T) *T {
	return &v
}

// runStoreContract checks the behavior every Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("create then find round trip", func(t *testing.T) {
		// Arrange
		s := newStore(t)
		ctx := context.Background()

		// Act
		created, err := s.Create(ctx, model.CreateTodo{Text: "X"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		found, err := s.Find(ctx, created.ID)

		// Assert
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		want := model.Todo{ID: created.ID, Text: "X", Completed: false}
		if diff := cmp.Diff(want, *found); diff != "" {
			t.Errorf("Find() mismatch (-want +got):\n%s", diff)
		}
		if created.ID <= 0 {
			t.Errorf("Create() id = %d, want positive", created.ID)
		}
	})

	t.Run("create assigns unique ids", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		seen := make(map[int64]bool)
		for i := 0; i < 5; i++ {
			todo, err := s.Create(ctx, model.CreateTodo{Text: "item"})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if seen[todo.ID] {
				t.Fatalf("duplicate id %d", todo.ID)
			}
			seen[todo.ID] = true
		}
	})

	t.Run("all on empty store returns empty slice", func(t *testing.T) {
		s := newStore(t)

		todos, err := s.All(context.Background())

		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if todos == nil {
			t.Error("All() returned nil, want empty slice")
		}
		if len(todos) != 0 {
			t.Errorf("All() len = %d, want 0", len(todos))
		}
	})

	t.Run("all orders newest first", func(t *testing.T) {
		// Arrange
		s := newStore(t)
		ctx := context.Background()
		var ids []int64
		for _, text := range []string{"one", "two", "three"} {
			todo, err := s.Create(ctx, model.CreateTodo{Text: text})
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			ids = append(ids, todo.ID)
		}

		// Act
		first, err := s.All(ctx)
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		second, err := s.All(ctx)
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}

		// Assert
		want := []model.Todo{
			{ID: ids[2], Text: "three"},
			{ID: ids[1], Text: "two"},
			{ID: ids[0], Text: "one"},
		}
		if diff := cmp.Diff(want, first); diff != "" {
			t.Errorf("All() mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("All() not idempotent (-first +second):\n%s", diff)
		}
	})

	t.Run("partial update preserves untouched fields", func(t *testing.T) {
		// Arrange
		s := newStore(t)
		ctx := context.Background()
		created, err := s.Create(ctx, model.CreateTodo{Text: "A"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		// Act
		step1, err := s.Update(ctx, created.ID, model.UpdateTodo{Completed: ptr(true)})
		if err != nil {
			t.Fatalf("Update(completed) error = %v", err)
		}
		step2, err := s.Update(ctx, created.ID, model.UpdateTodo{Text: ptr("B")})
		if err != nil {
			t.Fatalf("Update(text) error = %v", err)
		}
		stored, err := s.Find(ctx, created.ID)
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}

		// Assert
		if diff := cmp.Diff(model.Todo{ID: created.ID, Text: "A", Completed: true}, *step1); diff != "" {
			t.Errorf("after completed update (-want +got):\n%s", diff)
		}
		want := model.Todo{ID: created.ID, Text: "B", Completed: true}
		if diff := cmp.Diff(want, *step2); diff != "" {
			t.Errorf("after text update (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(want, *stored); diff != "" {
			t.Errorf("stored todo (-want +got):\n%s", diff)
		}
	})

	t.Run("empty update returns current state", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.Create(ctx, model.CreateTodo{Text: "same"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := s.Update(ctx, created.ID, model.UpdateTodo{})

		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if diff := cmp.Diff(*created, *got); diff != "" {
			t.Errorf("Update() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing id yields not found", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const missing int64 = 4242

		_, findErr := s.Find(ctx, missing)
		_, updateErr := s.Update(ctx, missing, model.UpdateTodo{Completed: ptr(true)})
		deleteErr := s.Delete(ctx, missing)

		for name, err := range map[string]error{
			"Find":   findErr,
			"Update": updateErr,
			"Delete": deleteErr,
		} {
			var nf *NotFoundError
			if !errors.As(err, &nf) {
				t.Errorf("%s() error = %v, want NotFoundError", name, err)
				continue
			}
			if nf.ID != missing {
				t.Errorf("%s() NotFoundError.ID = %d, want %d", name, nf.ID, missing)
			}
			if KindOf(err) != KindNotFound {
				t.Errorf("%s() kind = %v, want %v", name, KindOf(err), KindNotFound)
			}
		}
	})

	t.Run("delete removes the row", func(t *testing.T) {
		// Arrange
		s := newStore(t)
		ctx := context.Background()
		keep, err := s.Create(ctx, model.CreateTodo{Text: "keep"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		gone, err := s.Create(ctx, model.CreateTodo{Text: "gone"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		// Act
		if err := s.Delete(ctx, gone.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		// Assert
		if _, err := s.Find(ctx, gone.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Find() after delete error = %v, want ErrNotFound", err)
		}
		if err := s.Delete(ctx, gone.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
		todos, err := s.All(ctx)
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if diff := cmp.Diff([]model.Todo{*keep}, todos); diff != "" {
			t.Errorf("All() after delete (-want +got):\n%s", diff)
		}
	})

	t.Run("cancelled context yields unexpected", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Create(ctx, model.CreateTodo{Text: "x"})

		if !errors.Is(err, ErrUnexpected) {
			t.Errorf("Create() error = %v, want ErrUnexpected", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Create() error = %v, want wrapped context.Canceled", err)
		}
		if KindOf(err) != KindUnexpected {
			t.Errorf("kind = %v, want %v", KindOf(err), KindUnexpected)
		}
	})

	t.Run("concurrent updates to different fields are both kept", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		created, err := s.Create(ctx, model.CreateTodo{Text: "start"})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		var wg sync.WaitGroup
		errs := make(chan error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, created.ID, model.UpdateTodo{Text: ptr("renamed")})
			errs <- err
		}()
		go func() {
			defer wg.Done()
			_, err := s.Update(ctx, created.ID, model.UpdateTodo{Completed: ptr(true)})
			errs <- err
		}()
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
		}

		got, err := s.Find(ctx, created.ID)
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		want := model.Todo{ID: created.ID, Text: "renamed", Completed: true}
		if diff := cmp.Diff(want, *got); diff != "" {
			t.Errorf("Find() after concurrent updates (-want +got):\n%s", diff)
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)

		if err := s.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})
}
