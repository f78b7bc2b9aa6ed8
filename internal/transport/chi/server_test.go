package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/domain"
	"github.com/sable-labs/ragmeter/internal/ingest"
	evaluc "github.com/sable-labs/ragmeter/internal/usecase/eval"
	healthuc "github.com/sable-labs/ragmeter/internal/usecase/health"
	judgeuc "github.com/sable-labs/ragmeter/internal/usecase/judge"
)

type stubJudge struct {
	evaluateFunc func(ctx context.Context, query, contextText, response string) (domain.JudgeResult, error)
}

func (s *stubJudge) Evaluate(ctx context.Context, query, contextText, response string) (domain.JudgeResult, error) {
	return s.evaluateFunc(ctx, query, contextText, response)
}

func newTestRouter(t *testing.T, j *stubJudge, health *healthuc.Service) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	eval := evaluc.New(ingest.NewReader(logger), j, judgeuc.DefaultPricing(), logger)
	if health == nil {
		health = healthuc.New(nil, nil)
	}

	r := chi.NewRouter()
	NewServer(eval, health, logger).Register(r)
	return r
}

func postEvaluation(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateEvaluation(t *testing.T) {
	j := &stubJudge{evaluateFunc: func(_ context.Context, _, _, _ string) (domain.JudgeResult, error) {
		return domain.JudgeResult{
			Verdict: domain.Verdict{RelevanceScore: 0.9, GroundednessScore: 0.8, Reasoning: "fine"},
		}, nil
	}}
	h := newTestRouter(t, j, nil)

	rec := postEvaluation(t, h, map[string]string{
		"turns_text":    `{"conversation_turns": [{"id": 1, "query": "what is alpha", "response": "alpha is first"}]}`,
		"contexts_text": `{"vector_data": [{"id": 1, "text": "alpha is the first letter"}]}`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		RunID       string `json:"run_id"`
		Pairs       int    `json:"pairs"`
		Evaluations []struct {
			Query   string `json:"query"`
			Metrics struct {
				RelevanceScore float64 `json:"relevance_score"`
			} `json:"metrics"`
		} `json:"evaluations"`
		TurnsIngest struct {
			Records      int  `json:"records"`
			FallbackUsed bool `json:"fallback_used"`
		} `json:"turns_ingest"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.RunID == "" || resp.Pairs != 1 {
		t.Errorf("run_id=%q pairs=%d", resp.RunID, resp.Pairs)
	}
	if len(resp.Evaluations) != 1 || resp.Evaluations[0].Metrics.RelevanceScore != 0.9 {
		t.Errorf("evaluations: %+v", resp.Evaluations)
	}
	if resp.TurnsIngest.Records != 1 || resp.TurnsIngest.FallbackUsed {
		t.Errorf("turns ingest: %+v", resp.TurnsIngest)
	}
}

func TestCreateEvaluation_MalformedBlobStillWorks(t *testing.T) {
	j := &stubJudge{evaluateFunc: func(_ context.Context, _, _, _ string) (domain.JudgeResult, error) {
		return domain.JudgeResult{}, nil
	}}
	h := newTestRouter(t, j, nil)

	rec := postEvaluation(t, h, map[string]string{
		"turns_text":    `[{"id":1,"query":"what is beta","response":"beta is sec`,
		"contexts_text": `{"vector_data": [{"text": "beta context"}]}`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	var resp struct {
		TurnsIngest struct {
			FallbackUsed bool `json:"fallback_used"`
		} `json:"turns_ingest"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.TurnsIngest.FallbackUsed {
		t.Error("malformed turns blob must report fallback_used")
	}
}

func TestCreateEvaluation_Validation(t *testing.T) {
	h := newTestRouter(t, &stubJudge{}, nil)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing turns", map[string]string{"contexts_text": "[]"}},
		{"missing contexts", map[string]string{"turns_text": "[]"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := postEvaluation(t, h, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status=%d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateEvaluation_InvalidBody(t *testing.T) {
	h := newTestRouter(t, &stubJudge{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status=%d, want 400", rec.Code)
	}
}

func TestCreateEvaluation_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"provider error", domain.ErrJudgeProviderError, http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// A judge failure only aborts the run when the request context
			// is gone, so cancel it from inside the judge call.
			ctx, cancel := context.WithCancel(context.Background())
			j := &stubJudge{evaluateFunc: func(_ context.Context, _, _, _ string) (domain.JudgeResult, error) {
				cancel()
				return domain.JudgeResult{}, tc.err
			}}
			h := newTestRouter(t, j, nil)

			raw := []byte(`{"turns_text": "[{\"query\": \"what is gamma\"}]", "contexts_text": "[{\"text\": \"gamma context\"}]"}`)
			req := httptest.NewRequest(http.MethodPost, "/v1/evaluations", bytes.NewReader(raw)).WithContext(ctx)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.wantStatus {
				t.Errorf("status=%d, want %d (body=%s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	h := newTestRouter(t, &stubJudge{}, healthuc.New(
		pingerFunc(func(context.Context) error { return nil }), nil))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}

	var rep healthuc.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Status != healthuc.Healthy || rep.Checks["cache"] != healthuc.CheckOK {
		t.Errorf("report: %+v", rep)
	}
}

func TestHealthz_Degraded(t *testing.T) {
	h := newTestRouter(t, &stubJudge{}, healthuc.New(
		pingerFunc(func(context.Context) error { return errors.New("down") }), nil))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status=%d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t, &stubJudge{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status=%d", rec.Code)
	}
}
