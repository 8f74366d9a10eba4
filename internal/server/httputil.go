package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/orchestrator"
	"github.com/goliatone/go-crudform/pkg/render"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := sonic.ConfigStd.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("server: encode response: %v", err)
	}
}

// writeError writes a structured JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// writeFailure maps lookup failures onto 404 and everything else onto 502.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownForm):
		s.writeError(w, http.StatusNotFound, "UNKNOWN_FORM", err.Error())
	case errors.Is(err, orchestrator.ErrItemNotFound):
		s.writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		s.logger.Printf("server: %v", err)
		s.writeError(w, http.StatusBadGateway, "BACKEND_ERROR", err.Error())
	}
}

// wantsJSON reports whether the client prefers a JSON reply.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// operationFor maps the effective HTTP verb of a submit onto an operation.
func operationFor(r *http.Request) (model.Operation, bool) {
	method := strings.ToUpper(strings.TrimSpace(r.PostForm.Get(render.MethodOverrideField)))
	if method == "" {
		method = r.Method
	}
	switch method {
	case http.MethodPost:
		return model.OperationCreate, true
	case http.MethodPut, http.MethodPatch:
		return model.OperationUpdate, true
	case http.MethodDelete:
		return model.OperationDelete, true
	default:
		return "", false
	}
}

// filtersFrom decodes query parameters into search filters, keeping only
// fields that were actually given.
func filtersFrom(cfg model.FormConfig, query url.Values) (model.Values, error) {
	values, err := render.DecodeSubmission(cfg, query)
	if err != nil {
		return nil, err
	}
	for _, field := range cfg.Fields {
		if _, ok := query[field.Name]; !ok {
			values.Delete(field.Name)
		}
	}
	return values, nil
}
