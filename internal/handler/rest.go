package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/todo-api/internal/middleware"
	"github.com/vyrodovalexey/todo-api/internal/model"
	"github.com/vyrodovalexey/todo-api/internal/store"
)

// readyTimeout bounds the store ping behind /ready.
const readyTimeout = 2 * time.Second

// Publisher receives a change event after every successful mutation.
type Publisher interface {
	Publish(event model.TodoEvent)
}

// TodoHandler handles REST API requests for todos.
type TodoHandler struct {
	store     store.Store
	publisher Publisher
	logger    *zap.Logger
}

// NewTodoHandler creates a new TodoHandler. publisher may be nil.
func NewTodoHandler(s store.Store, publisher Publisher, logger *zap.Logger) *TodoHandler {
	return &TodoHandler{
		store:     s,
		publisher: publisher,
		logger:    logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *TodoHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/ready", h.ReadyCheck).Methods(http.MethodGet)
	router.HandleFunc("/todos", h.CreateTodo).Methods(http.MethodPost)
	router.HandleFunc("/todos", h.ListTodos).Methods(http.MethodGet)
	router.HandleFunc("/todos/{id}", h.GetTodo).Methods(http.MethodGet)
	router.HandleFunc("/todos/{id}", h.UpdateTodo).Methods(http.MethodPatch)
	router.HandleFunc("/todos/{id}", h.DeleteTodo).Methods(http.MethodDelete)
}

// HealthCheck handles GET /health requests.
func (h *TodoHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: Version,
	})
}

// ReadyCheck handles GET /ready requests by pinging the store.
func (h *TodoHandler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("store not ready", zap.Error(err))
		writeJSON(w, h.logger, http.StatusServiceUnavailable, ReadyResponse{Status: "not ready"})
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ReadyResponse{Status: "ready"})
}

// CreateTodo handles POST /todos requests.
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var input model.CreateTodo
	if !h.decodeBody(w, r, &input) {
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	todo, err := h.store.Create(r.Context(), input)
	if err != nil {
		h.handleStoreError(w, r, err, "create todo")
		return
	}

	h.publish(model.NewTodoEvent(model.EventTodoCreated, *todo))
	writeJSON(w, h.logger, http.StatusCreated, todo)
}

// ListTodos handles GET /todos requests.
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.store.All(r.Context())
	if err != nil {
		h.handleStoreError(w, r, err, "list todos")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, todos)
}

// GetTodo handles GET /todos/{id} requests.
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	todo, err := h.store.Find(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, r, err, "find todo")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, todo)
}

// UpdateTodo handles PATCH /todos/{id} requests.
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var input model.UpdateTodo
	if !h.decodeBody(w, r, &input) {
		return
	}

	if err := input.Validate(); err != nil {
		h.logger.Warn("validation failed", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	todo, err := h.store.Update(r.Context(), id, input)
	if err != nil {
		h.handleStoreError(w, r, err, "update todo")
		return
	}

	h.publish(model.NewTodoEvent(model.EventTodoUpdated, *todo))
	writeJSON(w, h.logger, http.StatusOK, todo)
}

// DeleteTodo handles DELETE /todos/{id} requests.
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.handleStoreError(w, r, err, "delete todo")
		return
	}

	h.publish(model.NewDeletedEvent(id))
	writeJSON(w, h.logger, http.StatusNoContent, nil)
}

// pathID parses the {id} path variable as an unsigned base-10 int64.
func (h *TodoHandler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || !isDigit(raw[0]) {
		h.logger.Warn("invalid todo ID", zap.String("id", raw))
		writeError(w, h.logger, http.StatusBadRequest, "invalid todo ID")
		return 0, false
	}

	return id, true
}

// decodeBody decodes a size-limited body holding a single JSON value into dst.
func (h *TodoHandler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return false
	}

	// The body must hold exactly one JSON value.
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid request body", zap.String("reason", "trailing data after JSON value"))
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return false
	}

	return true
}

// handleStoreError maps every store error kind to a status code.
// Driver messages are logged, never returned to the client.
func (h *TodoHandler) handleStoreError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	logger := h.logger.With(
		zap.String("operation", operation),
		zap.String("request_id", middleware.RequestIDFrom(r.Context())),
	)

	switch kind := store.KindOf(err); kind {
	case store.KindNotFound:
		writeError(w, h.logger, http.StatusNotFound, "todo not found")
	case store.KindUnexpected:
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			logger.Warn("request cancelled", zap.Error(err))
		} else {
			logger.Error("store operation failed", zap.Error(err))
		}
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
	default:
		logger.Error("unknown store error kind", zap.Stringer("kind", kind), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal server error")
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (h *TodoHandler) publish(event model.TodoEvent) {
	if h.publisher != nil {
		h.publisher.Publish(event)
	}
}
