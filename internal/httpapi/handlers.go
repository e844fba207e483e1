package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MimeLyc/srt-translator/internal/config"
	"github.com/MimeLyc/srt-translator/internal/jobs"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

var errRunNotFound = errors.New("run not found")

type enqueueRunRequest struct {
	Source         string   `json:"source"`
	DedupeKey      string   `json:"dedupe_key"`
	Paths          []string `json:"paths"`
	SourceLanguage string   `json:"source_language"`
	TargetLanguage string   `json:"target_language"`
	Naming         string   `json:"naming"`
}

func (r enqueueRunRequest) payload(defaults translator.Request) (jobs.Payload, error) {
	paths := make([]string, 0, len(r.Paths))
	for _, p := range r.Paths {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return jobs.Payload{}, errors.New("paths is required")
	}

	source, target := r.SourceLanguage, r.TargetLanguage
	if source == "" {
		source = defaults.SourceLanguage
	}
	if target == "" {
		target = defaults.TargetLanguage
	}
	req, err := translator.NewRequest(source, target)
	if err != nil {
		return jobs.Payload{}, err
	}

	switch r.Naming {
	case "", config.NamingSuffix, config.NamingLanguage:
	default:
		return jobs.Payload{}, errors.New("naming must be suffix or language")
	}

	return jobs.Payload{
		Paths:          paths,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		Naming:         r.Naming,
	}, nil
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.queue.List())
	case http.MethodPost:
		var req enqueueRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		payload, err := req.payload(s.defaults)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Source == "" {
			req.Source = "manual"
		}

		run, created := s.queue.Enqueue(jobs.EnqueueRequest{
			Source:    req.Source,
			DedupeKey: req.DedupeKey,
			Payload:   payload,
		})
		code := http.StatusCreated
		if !created {
			code = http.StatusOK
		}
		writeJSON(w, code, map[string]any{
			"created": created,
			"run":     run,
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	runID, action, ok := parseRunRoute(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "":
		s.handleRunDetail(w, r, runID)
	case "cancel":
		s.handleCancelRun(w, r, runID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func parseRunRoute(path string) (runID string, action string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/api/runs/")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", "", false
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) > 2 {
		return "", "", false
	}
	rawID, err := url.PathUnescape(parts[0])
	if err != nil || strings.TrimSpace(rawID) == "" {
		return "", "", false
	}
	if len(parts) == 1 {
		return rawID, "", true
	}
	return rawID, parts[1], true
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	run, ok := s.queue.Get(runID)
	if !ok {
		writeError(w, http.StatusNotFound, errRunNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request, runID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.queue.Get(runID); !ok {
		writeError(w, http.StatusNotFound, errRunNotFound.Error())
		return
	}
	run, err := s.queue.Cancel(runID)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

type languagesResponse struct {
	Languages []translator.Language `json:"languages"`
	Default   translator.Request    `json:"default"`
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, languagesResponse{
		Languages: translator.SupportedLanguages(),
		Default:   s.defaults,
	})
}

type scheduleResponse struct {
	Expression    string    `json:"expression"`
	Next          time.Time `json:"next"`
	Last          time.Time `json:"last"`
	SecondsToNext int64     `json:"seconds_to_next"`
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.scheduler == nil {
		writeError(w, http.StatusNotImplemented, "scheduler is not configured")
		return
	}
	info, err := s.scheduler.NextTrigger()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{
		Expression:    info.Expression,
		Next:          info.Next,
		Last:          info.Last,
		SecondsToNext: int64(info.TimeUntilNext.Seconds()),
	})
}

func (s *Server) handleScheduleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.scheduler == nil {
		writeError(w, http.StatusNotImplemented, "scheduler is not configured")
		return
	}
	runID, err := s.scheduler.Scan(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"run_id": runID,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
