package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/goliatone/go-crudform/pkg/form"
	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
	"github.com/goliatone/go-crudform/pkg/render"
)

type formSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Resource string `json:"resource,omitempty"`
	Fields   int    `json:"fields"`
}

func (s *Server) handleListForms(w http.ResponseWriter, r *http.Request) {
	ids := s.orch.Forms()
	out := make([]formSummary, 0, len(ids))
	for _, id := range ids {
		def, err := s.orch.Definition(id)
		if err != nil {
			continue
		}
		out = append(out, formSummary{
			ID:       id,
			Title:    def.Config.Title,
			Resource: def.Resource,
			Fields:   len(def.Config.Fields),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"forms": out})
}

// handleRender renders a surface for ?op=create|update|delete|view|search.
// Update, delete and view need ?id; search reads filters from the query.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	formID := chi.URLParam(r, "form")
	query := r.URL.Query()

	surface, err := render.ParseSurface(query.Get("surface"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_SURFACE", err.Error())
		return
	}
	op := model.Operation(strings.ToLower(query.Get("op")))
	if op == "" {
		op = model.OperationCreate
		if surface == render.SurfaceSearch {
			op = model.OperationSearch
		}
	}
	if !op.Valid() {
		s.writeError(w, http.StatusBadRequest, "INVALID_OPERATION", fmt.Sprintf("unknown operation %q", op))
		return
	}

	provider, err := s.orch.NewProvider(ctx, formID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer provider.Dispose()

	id := strings.TrimSpace(query.Get("id"))
	var filters model.Values
	if op == model.OperationSearch {
		filters, err = filtersFrom(provider.Config(), query)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
			return
		}
	}
	if err := orchestrator.Open(ctx, provider, op, id, filters); err != nil {
		if errors.Is(err, orchestrator.ErrMissingID) {
			s.writeError(w, http.StatusBadRequest, "MISSING_ID", err.Error())
			return
		}
		s.writeFailure(w, err)
		return
	}
	s.writeSurface(w, r, provider, surface, id, http.StatusOK)
}

// handleSubmit accepts an url-encoded body posted by a rendered form. The
// operation follows the verb, honouring the _method override.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	formID := chi.URLParam(r, "form")
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	op, ok := operationFor(r)
	if !ok {
		s.writeError(w, http.StatusMethodNotAllowed, "INVALID_METHOD", "unsupported method override")
		return
	}
	surface, err := render.ParseSurface(r.URL.Query().Get("surface"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_SURFACE", err.Error())
		return
	}

	provider, err := s.orch.NewProvider(ctx, formID)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer provider.Dispose()

	values, err := render.DecodeSubmission(provider.Config(), r.PostForm)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_VALUE", err.Error())
		return
	}
	id := strings.TrimSpace(r.PostForm.Get("id"))
	switch op {
	case model.OperationCreate:
		provider.OpenCreate(values)
	case model.OperationUpdate:
		if id == "" {
			s.writeError(w, http.StatusBadRequest, "MISSING_ID", orchestrator.ErrMissingID.Error())
			return
		}
		provider.OpenUpdate(model.Values{"id": id}, values)
	case model.OperationDelete:
		if id == "" {
			s.writeError(w, http.StatusBadRequest, "MISSING_ID", orchestrator.ErrMissingID.Error())
			return
		}
		provider.OpenDelete(model.Values{"id": id})
	}

	switch status := provider.Submit(ctx); status {
	case form.SubmitCompleted:
		if wantsJSON(r) {
			s.writeJSON(w, http.StatusOK, map[string]string{"status": status.String(), "operation": string(op)})
			return
		}
		http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
	case form.SubmitInvalid:
		s.writeSurface(w, r, provider, surface, id, http.StatusUnprocessableEntity)
	case form.SubmitFailed:
		s.writeSurface(w, r, provider, surface, id, http.StatusBadGateway)
	default:
		s.writeError(w, http.StatusConflict, "BUSY", "a submit is already in flight")
	}
}

// handleItems lists items through the form's search binding, filtered by
// the query string.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider, err := s.orch.NewProvider(ctx, chi.URLParam(r, "form"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	defer provider.Dispose()

	search := provider.Config().Operations.Search
	if search == nil {
		s.writeError(w, http.StatusNotImplemented, "NOT_BOUND", "search is not bound for this form")
		return
	}
	filters, err := filtersFrom(provider.Config(), r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_FILTER", err.Error())
		return
	}
	provider.OpenSearch(filters)
	if err := search.Refetch(ctx); err != nil {
		s.writeFailure(w, err)
		return
	}
	items := search.Data()
	if items == nil {
		items = []model.Values{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) writeSurface(w http.ResponseWriter, r *http.Request, provider *form.Provider, surface render.Surface, id string, status int) {
	options := render.RenderOptions{
		Surface: surface,
		Action:  r.URL.Path,
	}
	if id != "" {
		options.HiddenFields = map[string]string{"id": id}
	}
	if surface == render.SurfaceSearch {
		options.Action = strings.TrimSuffix(r.URL.Path, "/") + "/items"
		options.AutoSearchDelay = int(s.autoSearch.Milliseconds())
	}
	out, contentType, err := s.orch.RenderProvider(r.Context(), provider, s.renderer, options)
	if err != nil {
		s.logger.Printf("server: render %s: %v", provider.Config().ID, err)
		s.writeError(w, http.StatusInternalServerError, "RENDER_ERROR", err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(out)
}
