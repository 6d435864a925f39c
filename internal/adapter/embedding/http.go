package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/cenkalti/backoff/v4"

	"godlearn/config"
	"godlearn/internal/domain"
)

// HTTPEmbedder talks to an embedding service over POST {base_url}/embed.
// Calls are retried with the configured bounded backoff policy; exhaustion
// surfaces as a transient error so the indexer can degrade to a skipped
// batch instead of failing the run.
type HTTPEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	retry     config.RetryConfig
	client    *http.Client
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data  []embedData `json:"data"`
	Error *apiError   `json:"error,omitempty"`
}

type embedData struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewHTTPEmbedder(cfg config.EmbeddingConfig) (*HTTPEmbedder, error) {
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}

	return &HTTPEmbedder{
		apiKey:    apiKey,
		model:     cfg.Model,
		baseURL:   cfg.BaseURL,
		dimension: cfg.Dimension,
		retry:     cfg.Retry,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.retry.InitialInterval
	policy.Multiplier = e.retry.Multiplier
	policy.MaxInterval = e.retry.MaxInterval

	attempts := uint64(e.retry.MaxAttempts)
	if attempts == 0 {
		attempts = 1
	}

	// backoff.Retry unwraps *PermanentError before returning, so permanence
	// must be recorded here; permanent failures (4xx, dimension mismatches)
	// keep their own error chain instead of being relabeled transient.
	var embeddings [][]float32
	permanent := false
	op := func() error {
		vecs, err := e.embedOnce(ctx, texts)
		if err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				permanent = true
			}
			return err
		}
		embeddings = vecs
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, attempts-1), ctx))
	if err != nil {
		if permanent {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embedding request failed after %d attempts: %v",
			domain.ErrTransient, attempts, err)
	}
	return embeddings, nil
}

func (e *HTTPEmbedder) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := embedRequest{Input: texts, Model: e.model}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(jsonData))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("service returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("service returned status %d: %s", resp.StatusCode, string(body)))
	}

	var embResp embedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}
	if embResp.Error != nil {
		return nil, backoff.Permanent(fmt.Errorf("service error: %s", embResp.Error.Message))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range embResp.Data {
		if data.Index >= 0 && data.Index < len(embeddings) {
			embeddings[data.Index] = data.Embedding
		}
	}
	for i, v := range embeddings {
		if v == nil {
			return nil, backoff.Permanent(fmt.Errorf("service omitted embedding for input %d", i))
		}
		if len(v) != e.dimension {
			return nil, backoff.Permanent(fmt.Errorf("%w: embedding dimension %d does not match configured %d",
				domain.ErrIntegrity, len(v), e.dimension))
		}
	}
	return embeddings, nil
}

func (e *HTTPEmbedder) Dimension() int {
	return e.dimension
}

func (e *HTTPEmbedder) ModelName() string {
	return e.model
}
