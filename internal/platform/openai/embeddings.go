// Package openai is a thin client for the OpenAI embeddings endpoint.
// It satisfies the vector store's Embedder interface; no other OpenAI
// surface is exposed.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/bioterms-backend/internal/platform/envutil"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

const (
	defaultBaseURL    = "https://api.openai.com"
	defaultEmbedModel = "text-embedding-3-small"
)

// Client calls the /v1/embeddings API. Construct with NewClient.
type Client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	embedModel string
	httpClient *http.Client
	maxRetries int
}

// NewClient reads OPENAI_API_KEY (required), OPENAI_BASE_URL and
// OPENAI_EMBED_MODEL from the environment.
func NewClient(log *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(envutil.String("OPENAI_API_KEY", ""))
	if apiKey == "" {
		return nil, errors.New("openai: OPENAI_API_KEY is not set")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(envutil.String("OPENAI_BASE_URL", defaultBaseURL)), "/")
	model := strings.TrimSpace(envutil.String("OPENAI_EMBED_MODEL", defaultEmbedModel))

	return &Client{
		log:        log,
		baseURL:    baseURL,
		apiKey:     apiKey,
		embedModel: model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		maxRetries: 3,
	}, nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed returns one vector per input, in input order. Empty inputs are
// replaced with a single space; the API rejects empty strings.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}
	cleaned := make([]string, len(inputs))
	for i, in := range inputs {
		if strings.TrimSpace(in) == "" {
			cleaned[i] = " "
		} else {
			cleaned[i] = in
		}
	}

	var resp embeddingsResponse
	if err := c.post(ctx, "/v1/embeddings", embeddingsRequest{Model: c.embedModel, Input: cleaned}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) != len(cleaned) {
		return nil, fmt.Errorf("openai: embeddings response has %d vectors for %d inputs", len(resp.Data), len(cleaned))
	}

	out := make([][]float32, len(cleaned))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai: embeddings response index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	for i, vec := range out {
		if vec == nil {
			return nil, fmt.Errorf("openai: embeddings response missing vector for input %d", i)
		}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("openai: marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 2 * time.Second
			c.log.Warn("Retrying OpenAI request", "path", path, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("openai: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		res, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		data, err := io.ReadAll(res.Body)
		res.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("openai: read response: %w", err)
			continue
		}
		if res.StatusCode == http.StatusTooManyRequests || res.StatusCode >= 500 {
			lastErr = fmt.Errorf("openai: %s returned %d: %s", path, res.StatusCode, truncate(string(data), 200))
			continue
		}
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("openai: %s returned %d: %s", path, res.StatusCode, truncate(string(data), 200))
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("openai: decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("openai: %s failed after %d attempts: %w", path, c.maxRetries+1, lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
