package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"flux_backend/core"
	"flux_backend/fluxruntime"
	"flux_backend/service"
)

// errorBody is the wire shape of every failure response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, apiErr *core.APIError) {
	writeJSON(w, apiErr.Status, errorBody{Error: errorDetail{
		Message: apiErr.Message,
		Type:    apiErr.Type,
		Code:    apiErr.Status,
	}})
}

// decodeBody parses the JSON request body into dst, mapping malformed
// payloads to InvalidParameters.
func decodeBody(r *http.Request, dst interface{}) *core.APIError {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return core.ErrRequestTooLarge(-1, maxErr.Limit)
		}
		return core.ErrInvalidParameters("invalid request body: %v", err)
	}
	return nil
}

func (s *Server) handleGenerations(w http.ResponseWriter, r *http.Request) {
	var req service.CreateRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if req.User == "" {
		req.User = userTag(r)
	}

	resp, err := s.svc.Generate(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEdits(w http.ResponseWriter, r *http.Request) {
	var req service.EditRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if req.User == "" {
		req.User = userTag(r)
	}

	resp, err := s.svc.Edit(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVariations(w http.ResponseWriter, r *http.Request) {
	var req service.VaryRequest
	if apiErr := decodeBody(r, &req); apiErr != nil {
		writeAPIError(w, apiErr)
		return
	}
	if req.User == "" {
		req.User = userTag(r)
	}

	resp, err := s.svc.Vary(r.Context(), req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeFailure logs the full cause and sends the client-safe shape.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := core.AsAPIError(err)
	if apiErr.Status >= 500 {
		s.log.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("type", apiErr.Type),
			zap.Error(err))
	} else {
		s.log.Warn("Request rejected",
			zap.String("path", r.URL.Path),
			zap.String("type", apiErr.Type),
			zap.String("message", apiErr.Message))
	}
	writeAPIError(w, apiErr)
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ModelsResponse{
		Object: "list",
		Data:   s.catalog.List(),
	})
}

func (s *Server) handleGetModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	model, ok := s.catalog.Get(id)
	if !ok {
		writeAPIError(w, &core.APIError{
			Status:  http.StatusNotFound,
			Type:    "not_found",
			Message: fmt.Sprintf("model %q not found", id),
		})
		return
	}
	writeJSON(w, http.StatusOK, model)
}

// healthResponse reports service liveness and model lifecycle state.
type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelState  string `json:"model_state"`
	ModelName   string `json:"model_name"`
	Timestamp   int64  `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.runtime.State()
	status := "healthy"
	if state != fluxruntime.StateReady {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      status,
		ModelLoaded: state == fluxruntime.StateReady,
		ModelState:  state.String(),
		ModelName:   s.runtime.ModelName(),
		Timestamp:   time.Now().Unix(),
	})
}

// handleStats reports in-memory request and GPU statistics.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "FLUX image generation API",
		"version": core.VersionInfo(),
		"health":  "/v1/health",
		"models":  "/v1/models",
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "pong",
	})
}
