// Package classifier assigns a category to a transaction descriptor: keyword
// rules first, then an optional fallback service, then the catch-all.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/insightdelivered/statement-categorizer/internal/logger"
	"github.com/insightdelivered/statement-categorizer/internal/metrics"
)

// DefaultModel is the fallback model used with a local Ollama server.
const DefaultModel = "llama2:7b-chat-q4_0"

// ErrNoCategory means a fallback response named no legal category.
var ErrNoCategory = errors.New("no category in fallback response")

// Source tells how a category was decided.
type Source string

const (
	SourceRule     Source = "rule"
	SourceFallback Source = "fallback"
	SourceMemo     Source = "memo"
	SourceDefault  Source = "default"
)

// Result is a classification and its provenance.
type Result struct {
	Category string `json:"category"`
	Source   Source `json:"source"`
}

// Classifier is safe for concurrent use.
type Classifier struct {
	rules    RuleSet
	engine   *RuleEngine
	response *responseMatcher

	fallback FallbackService
	model    string
	timeout  time.Duration
	limiter  *rate.Limiter
	memo     *Memo
	metrics  *metrics.Pipeline
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithFallback consults svc with the given model when no rule matches.
func WithFallback(svc FallbackService, model string) Option {
	return func(c *Classifier) {
		c.fallback = svc
		if model != "" {
			c.model = model
		}
	}
}

// WithTimeout bounds each fallback call.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// WithRateLimit spaces fallback calls to at most perSecond; zero or less disables it.
func WithRateLimit(perSecond float64) Option {
	return func(c *Classifier) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithMemo shares a memo, e.g. across classifiers of one run.
func WithMemo(m *Memo) Option {
	return func(c *Classifier) { c.memo = m }
}

// WithMetrics records classifications and fallback latency.
func WithMetrics(m *metrics.Pipeline) Option {
	return func(c *Classifier) { c.metrics = m }
}

// New validates rs and builds a Classifier.
func New(rs RuleSet, opts ...Option) (*Classifier, error) {
	if err := rs.Validate(); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	c := &Classifier{
		rules:    rs,
		engine:   NewRuleEngine(rs),
		response: newResponseMatcher(rs),
		model:    DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.memo == nil {
		c.memo = NewMemo()
	}
	return c, nil
}

// Rules returns the rule set in use.
func (c *Classifier) Rules() RuleSet {
	return c.rules
}

// Classify always returns a category of the vocabulary. Fallback failures
// resolve to the catch-all and are logged.
func (c *Classifier) Classify(ctx context.Context, descriptor string) Result {
	res := c.classify(ctx, descriptor)
	c.metrics.Classified(res.Category, string(res.Source))
	return res
}

func (c *Classifier) classify(ctx context.Context, descriptor string) Result {
	if category, ok := c.engine.Match(descriptor); ok {
		return Result{Category: category, Source: SourceRule}
	}
	if c.fallback == nil {
		return c.catchAll()
	}
	if category, ok := c.memo.Get(descriptor); ok {
		return Result{Category: category, Source: SourceMemo}
	}

	log := logger.FromContext(ctx).With().Str("descriptor", descriptor).Logger()

	response, err := c.ask(ctx, descriptor)
	if err != nil {
		log.Warn().Err(err).Msg("fallback classification failed")
		return c.catchAll()
	}

	category, ok := c.response.Parse(response)
	if !ok {
		log.Debug().Err(ErrNoCategory).Str("response", response).Msg("using catch-all")
		c.memo.Set(descriptor, c.rules.CatchAll)
		return c.catchAll()
	}
	c.memo.Set(descriptor, category)
	return Result{Category: category, Source: SourceFallback}
}

func (c *Classifier) ask(ctx context.Context, descriptor string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	response, err := c.fallback.Generate(ctx, c.model, BuildPrompt(c.rules, descriptor))
	c.metrics.FallbackCall(time.Since(start), err)
	return response, err
}

func (c *Classifier) catchAll() Result {
	return Result{Category: c.rules.CatchAll, Source: SourceDefault}
}
