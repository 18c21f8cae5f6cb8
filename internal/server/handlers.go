package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/raaihank/pii-sentinel/internal/detect"
	"github.com/raaihank/pii-sentinel/internal/job"
	"github.com/raaihank/pii-sentinel/internal/pipeline"
	"github.com/raaihank/pii-sentinel/internal/strategy"
)

// textRequest is the body for detect, redact/text, and redact/batch
type textRequest struct {
	Text        string   `json:"text,omitempty"`
	Texts       []string `json:"texts,omitempty"`
	Strategy    string   `json:"strategy,omitempty"`
	EntityTypes []string `json:"entity_types,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

// respondPipelineError maps the pipeline and job error taxonomy onto
// HTTP statuses and stable error codes.
func respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
		respondError(w, http.StatusBadRequest, "EMPTY_INPUT", err.Error())
	case errors.Is(err, pipeline.ErrUnsupportedMedia):
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA", err.Error())
	case errors.Is(err, pipeline.ErrArtifactCorrupt):
		respondError(w, http.StatusBadRequest, "ARTIFACT_CORRUPT", err.Error())
	case errors.Is(err, pipeline.ErrEngineUnavailable):
		respondError(w, http.StatusServiceUnavailable, "ENGINE_UNAVAILABLE", err.Error())
	case errors.Is(err, job.ErrNotFound):
		respondError(w, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
	case errors.Is(err, job.ErrExpired):
		respondError(w, http.StatusGone, "JOB_EXPIRED", err.Error())
	case errors.Is(err, job.ErrNotReady):
		respondError(w, http.StatusConflict, "JOB_NOT_READY", err.Error())
	case errors.Is(err, strategy.ErrUnknown):
		respondError(w, http.StatusBadRequest, "INVALID_STRATEGY", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	result, err := s.orch.DetectPII(r.Context(), req.Text, req.EntityTypes)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRedactText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	result, err := s.orch.RedactText(r.Context(), req.Text, req.Strategy, req.EntityTypes)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRedactBatch(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	results, err := s.orch.RedactBatch(r.Context(), req.Texts, req.Strategy, req.EntityTypes)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"results": results})
}

// upload reads the multipart file plus strategy/entity_types fields
func (s *Server) upload(r *http.Request) ([]byte, string, string, []string, error) {
	if err := r.ParseMultipartForm(s.config.Server.MaxUploadSize); err != nil {
		return nil, "", "", nil, fmt.Errorf("upload too large or malformed: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", "", nil, fmt.Errorf("missing file field: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", "", nil, fmt.Errorf("failed to read upload: %w", err)
	}

	var types []string
	if raw := r.FormValue("entity_types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}
	return data, header.Filename, r.FormValue("strategy"), types, nil
}

// handleRedactFile accepts images and PDFs, routed by content type
func (s *Server) handleRedactFile(w http.ResponseWriter, r *http.Request) {
	data, filename, strategyID, types, err := s.upload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	var j *job.Job
	switch contentType(data) {
	case "image/png", "image/jpeg":
		j, err = s.orch.SubmitImage(data, filename, strategyID, types)
	case "application/pdf":
		j, err = s.orch.SubmitPDF(data, filename, strategyID, types)
	default:
		respondPipelineError(w, fmt.Errorf("%w: %s", pipeline.ErrUnsupportedMedia, contentType(data)))
		return
	}
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleRedactAudio(w http.ResponseWriter, r *http.Request) {
	data, filename, strategyID, types, err := s.upload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	j, err := s.orch.SubmitAudio(data, filename, strategyID, types)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleRedactVideo(w http.ResponseWriter, r *http.Request) {
	data, filename, strategyID, types, err := s.upload(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	j, err := s.orch.SubmitVideo(data, filename, strategyID, types)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	j, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, j)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.jobs.Delete(r.Context(), id); err != nil {
		respondPipelineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.jobs.Cancel(id); err != nil {
		respondPipelineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	data, name, err := s.jobs.Download(r.Context(), id)
	if err != nil {
		respondPipelineError(w, err)
		return
	}
	if name == "" {
		name = "redacted"
	}
	w.Header().Set("Content-Type", contentType(data))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"strategies": strategy.List()})
}

func (s *Server) handleEntityTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"entity_types": detect.KnownTypes()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.agg.Snapshot()
	payload := map[string]any{
		"stats":       snap,
		"active_jobs": s.jobs.Count(),
	}
	if s.wsHub != nil {
		payload["websocket"] = s.wsHub.GetStats()
	}
	respondJSON(w, http.StatusOK, payload)
}

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"engines": s.orch.Engines()})
}

// contentType sniffs the media type from the payload itself so a
// mislabeled upload cannot route to the wrong processor.
func contentType(data []byte) string {
	return http.DetectContentType(data)
}
