package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func authTestHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerAuthMiddleware_Disabled(t *testing.T) {
	h := BearerAuthMiddleware(nil)(authTestHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/evaluations", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("empty key list must disable auth, got %d", rec.Code)
	}
}

func TestBearerAuthMiddleware(t *testing.T) {
	h := BearerAuthMiddleware([]string{"key-one", "key-two"})(authTestHandler())

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"valid key", "/v1/evaluations", "Bearer key-one", http.StatusOK},
		{"second valid key", "/v1/evaluations", "Bearer key-two", http.StatusOK},
		{"missing header", "/v1/evaluations", "", http.StatusUnauthorized},
		{"wrong scheme", "/v1/evaluations", "Basic key-one", http.StatusUnauthorized},
		{"unknown key", "/v1/evaluations", "Bearer nope", http.StatusUnauthorized},
		{"healthz exempt", "/healthz", "", http.StatusOK},
		{"metrics exempt", "/metrics", "", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status=%d, want %d", rec.Code, tc.want)
			}
		})
	}
}
