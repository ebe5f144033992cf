// Package embeddings turns company texts into vectors through an
// OpenAI-compatible embeddings API. Vectors are L2-normalized before
// they are returned, so downstream similarity can use plain dot
// products.
package embeddings

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/venturedesk/sourcing-cli/internal/resilience"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultBatchSize bounds how many texts go into one API request.
	DefaultBatchSize = 100
)

// api is the slice of the OpenAI client the embedder uses.
type api interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
}

// Embedder batches texts against the embeddings endpoint.
type Embedder struct {
	client     api
	model      openai.EmbeddingModel
	dimensions int
	batchSize  int
	retry      resilience.RetryConfig
}

// New creates an embedder from cfg, filling unset fields with defaults.
func New(cfg Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newWithClient(openai.NewClientWithConfig(clientCfg), cfg)
}

func newWithClient(client api, cfg Config) *Embedder {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("embeddings", "create_embeddings")
	return &Embedder{
		client:     client,
		model:      openai.EmbeddingModel(model),
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
		retry:      retry,
	}
}

// EmbedBatch embeds texts in API-sized chunks, preserving input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	log := zap.L().With(zap.String("service", "embeddings"))
	out := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		chunk := texts[start:end]

		vectors, err := e.embedChunk(ctx, chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
		log.Info("embedded chunk",
			zap.Int("chunk", start/e.batchSize+1),
			zap.Int("texts", len(chunk)),
		)
	}
	return out, nil
}

func (e *Embedder) embedChunk(ctx context.Context, chunk []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          chunk,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := resilience.DoVal(ctx, e.retry, func(ctx context.Context) (openai.EmbeddingResponse, error) {
		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return resp, classifyAPIError(err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "embeddings: create embeddings")
	}
	if len(resp.Data) != len(chunk) {
		return nil, eris.Errorf("embeddings: got %d vectors for %d texts", len(resp.Data), len(chunk))
	}

	// The API reports an index per vector; trust it over response order.
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = l2normalize(d.Embedding)
	}
	return vectors, nil
}

// l2normalize scales vec to unit length. Zero vectors pass through
// unchanged.
func l2normalize(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}

func classifyAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && resilience.IsTransientHTTPStatus(reqErr.HTTPStatusCode) {
		return resilience.NewTransientError(err, reqErr.HTTPStatusCode)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.HTTPStatusCode) {
		return resilience.NewTransientError(err, apiErr.HTTPStatusCode)
	}
	return err
}
