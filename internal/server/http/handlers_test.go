package httpserver

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
	"github.com/Rahma-78/ai-interview-prep-sub000/internal/extract"
)

// fakeRunner emits a scripted event sequence, or fails pre-flight.
type fakeRunner struct {
	events []domain.Event
	err    error

	gotRunID  string
	gotResume string
}

func (f *fakeRunner) Run(_ context.Context, runID, resume string, emit func(domain.Event)) error {
	f.gotRunID = runID
	f.gotResume = resume
	if f.err != nil {
		return f.err
	}
	for _, e := range f.events {
		emit(e)
	}
	return nil
}

func newTestServer(runner Runner, fetcher *extract.Fetcher) *Server {
	return NewServer(Config{Address: ":0"}, runner,
		extract.NewValidator(1<<20, []string{".txt", ".md"}), fetcher, zerolog.Nop())
}

func multipartResume(t *testing.T, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(resumeFormField, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestStartRunStreamsUploadedResume(t *testing.T) {
	runner := &fakeRunner{events: []domain.Event{
		domain.StatusEvent("step_1"),
		domain.DataEvent(domain.SkillQuestions{Skill: "Go", Questions: []string{"q1"}}),
		{Kind: domain.EventComplete, Complete: &domain.CompletePayload{TotalResults: 1, BatchesSucceeded: 1}},
	}}
	s := newTestServer(runner, nil)

	body, contentType := multipartResume(t, "resume.txt", "Go engineer, Kafka, Redis")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))
	assert.Equal(t, rec.Header().Get("X-Run-ID"), runner.gotRunID)
	assert.Equal(t, "Go engineer, Kafka, Redis", runner.gotResume)

	stream := rec.Body.String()
	assert.Contains(t, stream, "event: status\n")
	assert.Contains(t, stream, "event: data\n")
	assert.Contains(t, stream, `"skill":"Go"`)
	assert.Contains(t, stream, "event: complete\n")
}

func TestStartRunRejectsBadUploadBeforeAnyWork(t *testing.T) {
	runner := &fakeRunner{}
	s := newTestServer(runner, nil)

	t.Run("unsupported extension", func(t *testing.T) {
		body, contentType := multipartResume(t, "resume.exe", "binary-ish")
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unsupported file type")
		assert.Empty(t, runner.gotRunID, "runner must not be invoked")
	})

	t.Run("missing form field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("other", "x"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported media type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("plain"))
		req.Header.Set("Content-Type", "text/plain")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})
}

func TestStartRunFromResumeURL(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("hosted resume text"))
	}))
	defer origin.Close()

	runner := &fakeRunner{events: []domain.Event{
		{Kind: domain.EventComplete, Complete: &domain.CompletePayload{}},
	}}
	fetcher := extract.NewFetcher(extract.FetcherConfig{AllowPrivateNetworks: true})
	s := newTestServer(runner, fetcher)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs",
		strings.NewReader(`{"resume_url": "`+origin.URL+`/cv"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hosted resume text", runner.gotResume)
	assert.Contains(t, rec.Body.String(), "event: complete\n")
}

func TestStartRunRejectsBadResumeURLBody(t *testing.T) {
	s := newTestServer(&fakeRunner{}, extract.NewFetcher(extract.FetcherConfig{AllowPrivateNetworks: true}))

	for name, body := range map[string]string{
		"not json":    "resume please",
		"missing url": `{}`,
		"invalid url": `{"resume_url": "not a url"}`,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestStartRunPreFlightFailureBecomesStreamError(t *testing.T) {
	// Extraction fails after SSE headers are committed: the failure arrives
	// as the stream's final error event, not a status code.
	runner := &fakeRunner{err: domain.NewValidationError("resume", "unreadable")}
	s := newTestServer(runner, nil)

	body, contentType := multipartResume(t, "resume.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "event: error\n")
	assert.Contains(t, rec.Body.String(), "unreadable")
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(&fakeRunner{}, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
