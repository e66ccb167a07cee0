package classifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-categorizer/internal/metrics"
)

type stubFallback struct {
	response string
	err      error
	calls    atomic.Int32
	prompt   string
	model    string
}

func (s *stubFallback) Generate(_ context.Context, model, prompt string) (string, error) {
	s.calls.Add(1)
	s.model = model
	s.prompt = prompt
	return s.response, s.err
}

func newClassifier(t *testing.T, opts ...Option) *Classifier {
	t.Helper()
	c, err := New(DefaultRuleSet(), opts...)
	require.NoError(t, err)
	return c
}

func TestClassify_RuleSkipsFallback(t *testing.T) {
	stub := &stubFallback{response: "LAZER"}
	c := newClassifier(t, WithFallback(stub, ""))

	res := c.Classify(context.Background(), "UBER TRIP")

	assert.Equal(t, Result{Category: "TRANSPORTE", Source: SourceRule}, res)
	assert.Zero(t, stub.calls.Load())
}

func TestClassify_FallbackAnswer(t *testing.T) {
	stub := &stubFallback{response: "Resposta: LAZER extra"}
	c := newClassifier(t, WithFallback(stub, "custom-model"))

	res := c.Classify(context.Background(), "XKCD LTDA")

	assert.Equal(t, Result{Category: "LAZER", Source: SourceFallback}, res)
	assert.Equal(t, int32(1), stub.calls.Load())
	assert.Equal(t, "custom-model", stub.model)
	assert.Contains(t, stub.prompt, "XKCD LTDA")
}

func TestClassify_UnparsableFallback(t *testing.T) {
	stub := &stubFallback{response: "não sei"}
	c := newClassifier(t, WithFallback(stub, ""))

	res := c.Classify(context.Background(), "XKCD LTDA")

	assert.Equal(t, Result{Category: "OTHERS", Source: SourceDefault}, res)
	assert.Equal(t, DefaultModel, stub.model)
}

func TestClassify_FallbackError(t *testing.T) {
	stub := &stubFallback{err: errors.New("connection refused")}
	c := newClassifier(t, WithFallback(stub, ""))

	res := c.Classify(context.Background(), "XKCD LTDA")
	assert.Equal(t, Result{Category: "OTHERS", Source: SourceDefault}, res)

	// transport failures are not remembered
	c.Classify(context.Background(), "XKCD LTDA")
	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestClassify_NoFallback(t *testing.T) {
	c := newClassifier(t)

	res := c.Classify(context.Background(), "XKCD LTDA")
	assert.Equal(t, Result{Category: "OTHERS", Source: SourceDefault}, res)
}

func TestClassify_Memo(t *testing.T) {
	stub := &stubFallback{response: "MERCADO"}
	c := newClassifier(t, WithFallback(stub, ""))

	first := c.Classify(context.Background(), "XKCD LTDA")
	second := c.Classify(context.Background(), "XKCD LTDA")

	assert.Equal(t, Result{Category: "MERCADO", Source: SourceFallback}, first)
	assert.Equal(t, Result{Category: "MERCADO", Source: SourceMemo}, second)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestClassify_MemoRemembersCatchAll(t *testing.T) {
	stub := &stubFallback{response: "???"}
	c := newClassifier(t, WithFallback(stub, ""))

	c.Classify(context.Background(), "XKCD LTDA")
	res := c.Classify(context.Background(), "XKCD LTDA")

	assert.Equal(t, Result{Category: "OTHERS", Source: SourceMemo}, res)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestClassify_SharedMemo(t *testing.T) {
	memo := NewMemo()
	memo.Set("XKCD LTDA", "SAUDE")
	stub := &stubFallback{response: "LAZER"}
	c := newClassifier(t, WithFallback(stub, ""), WithMemo(memo))

	res := c.Classify(context.Background(), "XKCD LTDA")
	assert.Equal(t, Result{Category: "SAUDE", Source: SourceMemo}, res)
	assert.Zero(t, stub.calls.Load())
}

func TestClassify_Timeout(t *testing.T) {
	slow := FallbackFunc(func(ctx context.Context, _, _ string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(time.Second):
			return "LAZER", nil
		}
	})
	c := newClassifier(t, WithFallback(slow, ""), WithTimeout(10*time.Millisecond))

	res := c.Classify(context.Background(), "XKCD LTDA")
	assert.Equal(t, Result{Category: "OTHERS", Source: SourceDefault}, res)
}

func TestClassify_RateLimitHonoursCancellation(t *testing.T) {
	stub := &stubFallback{response: "LAZER"}
	c := newClassifier(t, WithFallback(stub, ""), WithRateLimit(0.001))

	// the first call spends the only token
	c.Classify(context.Background(), "XKCD LTDA")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	res := c.Classify(ctx, "OUTRA XKCD")

	assert.Equal(t, Result{Category: "OTHERS", Source: SourceDefault}, res)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestClassify_CustomCatchAll(t *testing.T) {
	rs := DefaultRuleSet()
	rs.CatchAll = "OUTROS"
	stub := &stubFallback{response: "OUTROS"}
	c, err := New(rs, WithFallback(stub, ""))
	require.NoError(t, err)

	res := c.Classify(context.Background(), "XKCD LTDA")
	assert.Equal(t, Result{Category: "OUTROS", Source: SourceFallback}, res)
	assert.True(t, c.Rules().Contains(res.Category))
}

func TestClassify_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPipeline(reg)
	c := newClassifier(t, WithMetrics(m))

	c.Classify(context.Background(), "UBER TRIP")
	c.Classify(context.Background(), "XKCD LTDA")

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "statement_categorizer_classifications_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}

func TestNew_InvalidRules(t *testing.T) {
	_, err := New(RuleSet{})
	assert.Error(t, err)
}
