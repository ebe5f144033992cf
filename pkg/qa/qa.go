package qa

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/venturedesk/sourcing-cli/internal/resilience"
)

const (
	defaultWorkers         = 10
	defaultMaxTokens       = 4096
	defaultQuotaAbortLimit = 30
)

// ErrQuotaExhausted aborts a batch once rate-limit failures pile up
// past the configured limit; retrying the rest would only burn quota.
var ErrQuotaExhausted = eris.New("qa: rate-limit failures reached abort limit")

// Question is one prompt against a piece of text content.
type Question struct {
	TextContent  string
	Question     string
	SystemPrompt string
	Temperature  float64
}

// Answer is the model's reply to one Question.
type Answer struct {
	Text string
}

// Decode unmarshals a JSON answer into v, tolerating a markdown code
// fence around the payload.
func (a *Answer) Decode(v any) error {
	s := strings.TrimSpace(a.Text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return eris.Wrap(err, "qa: decode structured answer")
	}
	return nil
}

// Model answers questions through a Client, bounding concurrency and
// request rate across a batch.
type Model struct {
	client          Client
	model           string
	maxTokens       int64
	workers         int
	limiter         *rate.Limiter
	retry           resilience.RetryConfig
	quotaAbortLimit int

	mu    sync.Mutex
	usage TokenUsage
}

// Option configures a Model.
type Option func(*Model)

// WithModel overrides the default model ID.
func WithModel(model string) Option {
	return func(m *Model) { m.model = model }
}

// WithMaxTokens overrides the completion token cap.
func WithMaxTokens(n int64) Option {
	return func(m *Model) { m.maxTokens = n }
}

// WithWorkers bounds batch concurrency.
func WithWorkers(n int) Option {
	return func(m *Model) { m.workers = n }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(m *Model) { m.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithRetryConfig overrides the per-request retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(m *Model) { m.retry = cfg }
}

// WithQuotaAbortLimit overrides how many rate-limit failures a batch
// tolerates before aborting.
func WithQuotaAbortLimit(n int) Option {
	return func(m *Model) { m.quotaAbortLimit = n }
}

// NewModel builds a Model over the given client.
func NewModel(client Client, opts ...Option) *Model {
	m := &Model{
		client:          client,
		model:           DefaultModel,
		maxTokens:       defaultMaxTokens,
		workers:         defaultWorkers,
		quotaAbortLimit: defaultQuotaAbortLimit,
		retry: resilience.RetryConfig{
			MaxAttempts:    6,
			InitialBackoff: 4 * time.Second,
			MaxBackoff:     60 * time.Second,
			Multiplier:     2.0,
			OnRetry:        resilience.RetryLogger("qa", "create_message"),
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Usage returns the accumulated token usage.
func (m *Model) Usage() TokenUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// Ask answers a single question, retrying transient failures.
func (m *Model) Ask(ctx context.Context, q Question) (*Answer, error) {
	temp := q.Temperature
	req := MessageRequest{
		Model:       m.model,
		MaxTokens:   m.maxTokens,
		System:      q.SystemPrompt,
		Prompt:      "# Content Provided\n" + q.TextContent + "\n\n# Question\n" + q.Question,
		Temperature: &temp,
	}

	resp, err := resilience.DoVal(ctx, m.retry, func(ctx context.Context) (*MessageResponse, error) {
		if m.limiter != nil {
			if err := m.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return m.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.usage.add(resp.Usage)
	m.mu.Unlock()

	return &Answer{Text: resp.Text}, nil
}

// AskBatch answers questions concurrently, preserving input order.
// A question that fails after retries yields a nil Answer at its
// position. The whole batch fails with ErrQuotaExhausted once too many
// questions die on rate limits; the failure count is scoped to one
// batch, so an earlier batch's 429s never abort a later one.
func (m *Model) AskBatch(ctx context.Context, questions []Question) ([]*Answer, error) {
	log := zap.L().With(zap.String("service", "qa"))
	results := make([]*Answer, len(questions))

	var (
		mu          sync.Mutex
		rateLimited int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, q := range questions {
		g.Go(func() error {
			ans, err := m.Ask(ctx, q)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Error("question failed after retries", zap.Int("index", i), zap.Error(err))
				if resilience.IsRateLimited(err) {
					mu.Lock()
					rateLimited++
					exhausted := rateLimited >= m.quotaAbortLimit
					mu.Unlock()
					if exhausted {
						return ErrQuotaExhausted
					}
				}
				return nil
			}
			results[i] = ans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range results {
		if r == nil {
			failed++
		}
	}
	if failed > 0 {
		log.Warn("some questions returned no answer",
			zap.Int("failed", failed),
			zap.Int("total", len(questions)),
		)
	}
	return results, nil
}
