package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"go.uber.org/zap"
)

type stubPipeline struct {
	resp *models.AskResponse
	err  error
}

func (s *stubPipeline) Run(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func newTestServer(p Pipeline, bearerToken string) *Server {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Server.BearerToken = bearerToken
	return NewServer(p, cfg, zap.NewNop())
}

func askBody(t *testing.T) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(&models.AskRequest{
		Documents: []string{"https://example.com/doc.pdf"},
		Questions: []string{"What is the warranty period?"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(body)
}

func TestHandleAsk(t *testing.T) {
	p := &stubPipeline{resp: &models.AskResponse{
		Answers:       []*models.Answer{{Question: "What is the warranty period?", Text: "24 months", Confidence: 0.8}},
		DocumentCount: 1,
		ChunkCount:    3,
	}}
	srv := newTestServer(p, "")

	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", askBody(t))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out models.AskResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Answers) != 1 || out.Answers[0].Text != "24 months" {
		t.Errorf("answers: got %+v", out.Answers)
	}
	if out.DocumentCount != 1 {
		t.Errorf("document_count: got %d", out.DocumentCount)
	}
}

func TestHandleAsk_InvalidBody(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, "")
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleAsk_MissingQuestions(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, "")
	body, _ := json.Marshal(&models.AskRequest{Documents: []string{"https://example.com/doc.pdf"}})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleAsk_MissingDocuments(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, "")
	body, _ := json.Marshal(&models.AskRequest{Questions: []string{"anything"}})
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleAsk_Timeout(t *testing.T) {
	srv := newTestServer(&stubPipeline{err: &pipeline.TimeoutError{Stage: "embedding"}}, "")
	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", askBody(t))
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusGatewayTimeout {
		t.Errorf("status: got %d, want 504", w.Code)
	}
	if !strings.Contains(w.Body.String(), "embedding") {
		t.Errorf("body should name the stage: %s", w.Body.String())
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(&stubPipeline{resp: &models.AskResponse{}}, "secret")

	r := httptest.NewRequest(http.MethodPost, "/api/v1/ask", askBody(t))
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("missing token: got %d, want 401", w.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/v1/ask", askBody(t))
	r.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: got %d, want 401", w.Code)
	}

	r = httptest.NewRequest(http.MethodPost, "/api/v1/ask", askBody(t))
	r.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("valid token: got %d, want 200", w.Code)
	}
}

func TestBearerAuth_HealthIsOpen(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, "secret")
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("health should not require auth: got %d", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(&stubPipeline{}, "")
	r := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	srv.router().ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Status string                 `json:"status"`
		Config map[string]interface{} `json:"config"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Status != "ok" {
		t.Errorf("status field: got %q", out.Status)
	}
	if _, ok := out.Config["chunk_size"]; !ok {
		t.Error("config echo missing chunk_size")
	}
}
