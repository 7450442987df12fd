package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mlukic/catalog/internal/books/app"
	"github.com/mlukic/catalog/internal/books/domain"
	"github.com/mlukic/catalog/internal/books/metrics"
	"github.com/mlukic/catalog/internal/books/ports"
	"github.com/mlukic/catalog/internal/idempotency"
)

const idempotencyKeyHeader = "Idempotency-Key"

// Handler exposes HTTP endpoints for catalog operations.
type Handler struct {
	service     *app.Service
	coordinator *idempotency.Coordinator
	metrics     *metrics.Metrics
}

// NewHandler constructs a Handler. metrics may be nil in tests.
func NewHandler(service *app.Service, coordinator *idempotency.Coordinator, metrics *metrics.Metrics) *Handler {
	return &Handler{
		service:     service,
		coordinator: coordinator,
		metrics:     metrics,
	}
}

// Register binds the catalog handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/books", h.handleBooks)
	mux.HandleFunc("/v1/books/", h.handleBookByID)
}

// storedResponse is the serialized form the coordinator stores per key, so a
// replay can reproduce the original status code and body.
type storedResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

func (h *Handler) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createBook(w, r)
	case http.MethodGet:
		h.listBooks(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleBookByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/v1/books/")
	if trimmed == "" {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}

	if strings.HasSuffix(trimmed, "/archive") {
		id := strings.TrimSuffix(trimmed, "/archive")
		id = strings.TrimSuffix(id, "/")
		if id == "" {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.archiveBook(w, r, id)
		return
	}

	id := strings.TrimSuffix(trimmed, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "book not found")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.getBook(w, r, id)
}

// createBook handles POST /v1/books. When the client supplies an
// Idempotency-Key header the create runs under the coordinator: retries with
// the same key replay the originally recorded response instead of inserting a
// second row. Without the header the request is a plain, non-deduplicated
// create.
func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload app.CreateBookInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))

	op := func(ctx context.Context) ([]byte, error) {
		book, err := h.service.CreateBook(ctx, payload)
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(map[string]any{"book": book})
		if err != nil {
			return nil, err
		}

		return json.Marshal(storedResponse{
			StatusCode: http.StatusCreated,
			Body:       body,
		})
	}

	result, replayed, err := h.coordinator.Execute(ctx, key, op)
	if err != nil {
		switch {
		case errors.Is(err, idempotency.ErrConcurrentDuplicate):
			h.recordIdempotencyOutcome(ctx, "conflict")
			writeError(w, http.StatusConflict, "a request with this idempotency key is already in progress")
			return
		case errors.Is(err, idempotency.ErrStoreUnavailable):
			writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
			return
		case errors.Is(err, idempotency.ErrResultNotRecorded):
			// The book was created; only the replay record failed to stick.
			// Serve the response we have rather than reporting a failure.
			slog.WarnContext(ctx, "created book but failed to record idempotent result", "error", err)
		default:
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var stored storedResponse
	if err := json.Unmarshal(result, &stored); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if replayed {
		h.recordIdempotencyOutcome(ctx, "replayed")
		w.Header().Set("Idempotency-Replayed", "true")
	} else if key != "" {
		h.recordIdempotencyOutcome(ctx, "fresh")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(stored.StatusCode)
	_, _ = w.Write(stored.Body)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request, id string) {
	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"book": book})
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	filter := ports.ListFilter{}
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := domain.BookStatus(statusParam)
		filter.Status = &status
	}

	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		if page, err := strconv.Atoi(pageParam); err == nil {
			filter.Page = page
		}
	}

	if pageSizeParam := r.URL.Query().Get("page_size"); pageSizeParam != "" {
		if pageSize, err := strconv.Atoi(pageSizeParam); err == nil {
			filter.PageSize = pageSize
		}
	}

	books, err := h.service.ListBooks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (h *Handler) archiveBook(w http.ResponseWriter, r *http.Request, id string) {
	book, err := h.service.ArchiveBook(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "book not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"book": book})
}

func (h *Handler) recordIdempotencyOutcome(ctx context.Context, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordIdempotencyOutcome(ctx, outcome)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
