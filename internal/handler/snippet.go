package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/tinkers/internal/apperror"
	"github.com/sakif/tinkers/internal/executor"
	"github.com/sakif/tinkers/internal/interpreter"
	"github.com/sakif/tinkers/internal/model"
	"github.com/sakif/tinkers/internal/service"
)

// SnippetHandler exposes the snippet store over HTTP.
//
// It also owns "run the active snippet": the store and the executor never
// talk to each other, so this handler reads the snippet from one and hands
// its code to the other.
type SnippetHandler struct {
	store     *service.SnippetStore
	languages *interpreter.Registry
	exec      executor.Executor
	timeout   time.Duration
	logger    *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler.
func NewSnippetHandler(store *service.SnippetStore, languages *interpreter.Registry, exec executor.Executor, timeout time.Duration, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{
		store:     store,
		languages: languages,
		exec:      exec,
		timeout:   timeout,
		logger:    logger,
	}
}

// CreateSnippetRequest is the body of POST /api/snippets.
type CreateSnippetRequest struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Code     string `json:"code"`
}

// SetActiveRequest is the body of PUT /api/active. A null or missing id
// clears the active snippet.
type SetActiveRequest struct {
	ID *string `json:"id"`
}

// HandleList returns the whole collection.
//
// HTTP: GET /api/snippets
// RESPONSE: {"snippets": [...], "activeSnippetId": "..." | null}
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.List())
}

// HandleCreate adds a snippet and makes it active.
//
// HTTP: POST /api/snippets → 201 + the new snippet
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSnippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.languages.Resolve(req.Language); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.store.Add(r.Context(), req.Name, req.Language, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

// HandleGet returns one snippet.
//
// HTTP: GET /api/snippets/{id}
//
// URL PARAMETERS:
// chi.URLParam(r, "id") extracts the {id} segment of the matched route.
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snippet, ok := h.store.Get(id)
	if !ok {
		writeError(w, apperror.NotFound("snippet", id))
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleUpdate applies a partial update.
//
// HTTP: PATCH /api/snippets/{id} → 204
// REQUEST BODY: any subset of {"name", "language", "code"}
//
// An unknown id is still a 204: updates are tolerant, like deletes.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.SnippetPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	if patch.Language != nil {
		if _, err := h.languages.Resolve(*patch.Language); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := h.store.Update(r.Context(), chi.URLParam(r, "id"), patch); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /api/snippets/{id} → 204, whether or not it existed
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	h.store.Delete(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetActive returns the active snippet, or 404 when none is set.
//
// HTTP: GET /api/active
func (h *SnippetHandler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	snippet, ok := h.activeOrError(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleSetActive selects (or clears) the active snippet.
//
// HTTP: PUT /api/active → 204
func (h *SnippetHandler) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.store.SetActive(r.Context(), req.ID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRunActive executes the active snippet's code in its language.
//
// HTTP: POST /api/active/run → 200 + Result
func (h *SnippetHandler) HandleRunActive(w http.ResponseWriter, r *http.Request) {
	snippet, ok := h.activeOrError(w)
	if !ok {
		return
	}

	h.logger.Info("running active snippet",
		slog.String("id", snippet.ID),
		slog.String("language", snippet.Language),
	)
	res := run(r.Context(), h.exec, h.timeout, executor.Request{
		Code:     snippet.Code,
		Language: snippet.Language,
	})
	writeJSON(w, http.StatusOK, res)
}

func (h *SnippetHandler) activeOrError(w http.ResponseWriter) (*model.Snippet, bool) {
	snippet, ok := h.store.GetActive()
	if !ok {
		writeError(w, apperror.NotFound("snippet", "active"))
		return nil, false
	}
	return snippet, true
}
