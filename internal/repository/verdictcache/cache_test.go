package verdictcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/db"
	"github.com/sable-labs/ragmeter/internal/domain"
)

type mockStore struct {
	getFunc func(ctx context.Context, key string) ([]byte, error)
	setFunc func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	return m.getFunc(ctx, key)
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.setFunc(ctx, key, value, ttl)
}

type mockJudge struct {
	calls  int
	result domain.JudgeResult
	err    error
}

func (m *mockJudge) Evaluate(context.Context, string, string, string) (domain.JudgeResult, error) {
	m.calls++
	return m.result, m.err
}

func TestEvaluate_MissThenHit(t *testing.T) {
	kv := map[string][]byte{}
	store := &mockStore{
		getFunc: func(_ context.Context, key string) ([]byte, error) {
			if v, ok := kv[key]; ok {
				return v, nil
			}
			return nil, db.ErrKeyNotFound
		},
		setFunc: func(_ context.Context, key string, value []byte, ttl time.Duration) error {
			if ttl != time.Hour {
				t.Errorf("ttl: got %v, want 1h", ttl)
			}
			kv[key] = value
			return nil
		},
	}
	inner := &mockJudge{result: domain.JudgeResult{
		Verdict:      domain.Verdict{RelevanceScore: 0.7, GroundednessScore: 0.8, Reasoning: "solid"},
		PromptTokens: 100,
		OutputTokens: 50,
	}}

	c := New(inner, store, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	first, err := c.Evaluate(ctx, "what is alpha", "alpha context", "alpha answer")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls=%d, want 1", inner.calls)
	}
	if first.PromptTokens != 100 {
		t.Errorf("miss must pass through token usage, got %+v", first)
	}

	second, err := c.Evaluate(ctx, "what is alpha", "alpha context", "alpha answer")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("hit must not reach the inner judge, calls=%d", inner.calls)
	}
	if second.Verdict != first.Verdict {
		t.Errorf("cached verdict differs: %+v vs %+v", second.Verdict, first.Verdict)
	}
	if second.PromptTokens != 0 || second.OutputTokens != 0 {
		t.Errorf("hit must report zero token usage, got %+v", second)
	}
}

func TestEvaluate_KeyDependsOnTriple(t *testing.T) {
	var keys []string
	store := &mockStore{
		getFunc: func(_ context.Context, key string) ([]byte, error) {
			keys = append(keys, key)
			return nil, db.ErrKeyNotFound
		},
		setFunc: func(context.Context, string, []byte, time.Duration) error { return nil },
	}

	c := New(&mockJudge{}, store, time.Hour, nil, zap.NewNop())
	ctx := context.Background()

	_, _ = c.Evaluate(ctx, "q", "c", "r")
	_, _ = c.Evaluate(ctx, "q", "c", "other")
	if keys[0] == keys[1] {
		t.Error("different responses must produce different cache keys")
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, "ragmeter:verdict:") {
			t.Errorf("key missing namespace prefix: %q", k)
		}
	}
}

func TestEvaluate_StoreErrorsDegradeToMiss(t *testing.T) {
	store := &mockStore{
		getFunc: func(context.Context, string) ([]byte, error) {
			return nil, errors.New("connection reset")
		},
		setFunc: func(context.Context, string, []byte, time.Duration) error {
			return errors.New("connection reset")
		},
	}
	inner := &mockJudge{result: domain.JudgeResult{
		Verdict: domain.Verdict{RelevanceScore: 0.5},
	}}

	c := New(inner, store, time.Hour, nil, zap.NewNop())
	res, err := c.Evaluate(context.Background(), "what is beta", "beta context", "beta answer")
	if err != nil {
		t.Fatalf("store failure must not fail the evaluation: %v", err)
	}
	if inner.calls != 1 || res.Verdict.RelevanceScore != 0.5 {
		t.Errorf("expected fall-through to inner judge, got %+v", res)
	}
}

func TestEvaluate_CorruptEntryDegradesToMiss(t *testing.T) {
	store := &mockStore{
		getFunc: func(context.Context, string) ([]byte, error) {
			return []byte("not json"), nil
		},
		setFunc: func(context.Context, string, []byte, time.Duration) error { return nil },
	}
	inner := &mockJudge{result: domain.JudgeResult{
		Verdict: domain.Verdict{RelevanceScore: 0.6},
	}}

	c := New(inner, store, time.Hour, nil, zap.NewNop())
	res, err := c.Evaluate(context.Background(), "what is gamma", "gamma context", "gamma answer")
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if inner.calls != 1 || res.Verdict.RelevanceScore != 0.6 {
		t.Errorf("corrupt entry must fall through, got %+v", res)
	}
}

func TestEvaluate_InnerErrorNotCached(t *testing.T) {
	sets := 0
	store := &mockStore{
		getFunc: func(context.Context, string) ([]byte, error) { return nil, db.ErrKeyNotFound },
		setFunc: func(context.Context, string, []byte, time.Duration) error {
			sets++
			return nil
		},
	}
	inner := &mockJudge{err: errors.New("rate limited")}

	c := New(inner, store, time.Hour, nil, zap.NewNop())
	if _, err := c.Evaluate(context.Background(), "q", "c", "r"); err == nil {
		t.Fatal("expected inner error to surface")
	}
	if sets != 0 {
		t.Errorf("failed evaluations must not be cached, sets=%d", sets)
	}
}
