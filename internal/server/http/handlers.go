package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/extract"
)

const (
	// resumeFormField is the multipart field carrying the uploaded resume.
	resumeFormField = "resume"

	// maxMultipartMemory bounds in-memory multipart parsing; larger parts
	// spill to disk.
	maxMultipartMemory = 8 << 20

	// maxJSONBodySize bounds JSON request bodies.
	maxJSONBodySize = 1 << 20
)

// startRunRequest is the JSON request body for starting a run from a hosted
// resume instead of an upload.
type startRunRequest struct {
	ResumeURL string `json:"resume_url" validate:"required,url"`
}

// startRun handles POST /api/v1/runs.
//
// The resume arrives either as a multipart upload (field "resume") or as a
// JSON body naming a resume_url to fetch. Validation failures are rejected
// with a JSON error before any model call; once the resume is accepted the
// response switches to an SSE stream that carries the run's events until its
// terminal event.
func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	filename, content, ok := s.readResume(w, r)
	if !ok {
		return
	}

	if err := s.resumes.Validate(filename, content); err != nil {
		writeDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Logger()
	logger.Info().Str("filename", filename).Int("size_bytes", len(content)).Msg("run accepted")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Run-ID", runID)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := s.runner.Run(r.Context(), runID, string(content), func(e domain.Event) {
		sendSSEEvent(w, flusher, e)
	})
	if err != nil {
		// Pre-flight failure after headers went out: deliver it as the
		// stream's final event instead of a status code.
		logger.Warn().Err(err).Msg("run aborted before batch work started")
		sendSSEEvent(w, flusher, domain.Event{
			Kind: domain.EventError,
			Err:  &domain.ErrorPayload{Error: err.Error()},
		})
	}
}

// readResume extracts the resume filename and bytes from the request,
// dispatching on Content-Type. On failure it writes the error response and
// returns ok=false.
func (s *Server) readResume(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing or malformed Content-Type")
		return "", nil, false
	}

	switch mediaType {
	case "multipart/form-data":
		return s.readUploadedResume(w, r)
	case "application/json":
		return s.readFetchedResume(w, r)
	default:
		writeError(w, http.StatusUnsupportedMediaType,
			fmt.Sprintf("unsupported Content-Type %q: use multipart/form-data or application/json", mediaType))
		return "", nil, false
	}
}

// readUploadedResume reads the resume from a multipart upload.
func (s *Server) readUploadedResume(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return "", nil, false
	}

	file, header, err := r.FormFile(resumeFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("form field %q is required", resumeFormField))
		return "", nil, false
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded file")
		return "", nil, false
	}

	return filepath.Base(header.Filename), content, true
}

// readFetchedResume fetches the resume named by a JSON resume_url body.
func (s *Server) readFetchedResume(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	if s.fetcher == nil {
		writeError(w, http.StatusBadRequest, "resume_url is not supported; upload the resume instead")
		return "", nil, false
	}

	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return "", nil, false
	}

	var req startRunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return "", nil, false
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "resume_url must be a valid URL")
		return "", nil, false
	}

	content, err := s.fetcher.Fetch(r.Context(), req.ResumeURL)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrPrivateAddress), errors.Is(err, extract.ErrNotText):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, extract.ErrTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return "", nil, false
	}

	// Derive a filename from the URL path so extension checks still apply;
	// extensionless URLs are treated as plain text.
	filename := filepath.Base(strings.SplitN(req.ResumeURL, "?", 2)[0])
	if filepath.Ext(filename) == "" {
		filename = "resume.txt"
	}
	return filename, content, true
}

// sendSSEEvent writes a single SSE event frame and flushes it.
func sendSSEEvent(w io.Writer, flusher http.Flusher, e domain.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data)
	flusher.Flush()
}
