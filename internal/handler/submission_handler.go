package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/crowdtest/internal/storage"
)

var (
	ErrMethodNotAllowed    = errors.New("method not allowed")
	ErrInvalidJSON         = errors.New("invalid JSON")
	ErrMissingFields       = errors.New("missing required fields")
	ErrStorageWriteFailure = errors.New("failed to save results")
)

// errorResponse maps each submission error to its status and fixed body text.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, "Method not allowed"
	case errors.Is(err, ErrInvalidJSON):
		return http.StatusBadRequest, "Invalid JSON"
	case errors.Is(err, ErrMissingFields):
		return http.StatusBadRequest, "Missing required fields"
	default:
		return http.StatusInternalServerError, "Failed to save results"
	}
}

type submitResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Filename string `json:"filename"`
}

type SubmissionHandler struct {
	store   *storage.Store
	maxBody int64
	now     func() time.Time
	log     *zap.Logger
}

func NewSubmissionHandler(store *storage.Store, maxBody int64, log *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{store: store, maxBody: maxBody, now: time.Now, log: log}
}

// WithClock replaces the time source used for filenames.
func (h *SubmissionHandler) WithClock(now func() time.Time) *SubmissionHandler {
	h.now = now
	return h
}

// Submit accepts one crowd-test result submission and stores it as
// result_<userId>_<timestamp>.json in the results directory.
func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		h.fail(w, r, ErrMethodNotAllowed, zap.String("method", r.Method))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		h.fail(w, r, ErrInvalidJSON, zap.Error(err))
		return
	}

	if !storage.ValidText(body) {
		h.fail(w, r, ErrInvalidJSON, zap.Error(storage.ErrMalformedText))
		return
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		h.fail(w, r, ErrInvalidJSON, zap.Error(err))
		return
	}
	if falsy(data) {
		h.fail(w, r, ErrInvalidJSON)
		return
	}

	sub, ok := data.(map[string]any)
	if !ok || sub["userId"] == nil || sub["results"] == nil {
		h.fail(w, r, ErrMissingFields)
		return
	}

	if err := h.store.Ensure(); err != nil {
		h.fail(w, r, ErrStorageWriteFailure, zap.Error(err))
		return
	}

	filename := storage.Filename(storage.SanitizeUserID(sub["userId"]), h.now())

	content, err := storage.Pretty(body)
	if err != nil {
		h.fail(w, r, ErrStorageWriteFailure, zap.Error(err))
		return
	}
	path, err := h.store.Save(filename, content)
	if err != nil {
		h.fail(w, r, ErrStorageWriteFailure, zap.String("filename", filename), zap.Error(err))
		return
	}

	h.log.Info("submission saved", zap.String("path", path), zap.Int("bytes", len(content)))
	writeJSON(w, http.StatusOK, submitResponse{
		Success:  true,
		Message:  "Results saved successfully",
		Filename: filename,
	})
}

func (h *SubmissionHandler) fail(w http.ResponseWriter, r *http.Request, err error, fields ...zap.Field) {
	status, msg := errorResponse(err)
	fields = append(fields, zap.Int("status", status), zap.String("remote", r.RemoteAddr))
	if status >= http.StatusInternalServerError {
		h.log.Error(err.Error(), fields...)
	} else {
		h.log.Debug(err.Error(), fields...)
	}
	writeError(w, status, msg)
}

// falsy reports whether a decoded JSON value counts as empty: null, false,
// zero, "", "0", an empty array or an empty object. Such bodies are rejected
// as invalid even though they parse.
func falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == "" || t == "0"
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
