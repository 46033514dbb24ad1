package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/niramay-pgx-server/internal/domain"
)

const (
	defaultGeminiBaseURL  = "https://generativelanguage.googleapis.com"
	defaultEmbeddingModel = "gemini-embedding-001"
	defaultEmbeddingDims  = 768
	geminiServiceName     = "gemini"
	geminiAPIKeyHeader    = "x-goog-api-key"
	maxErrorBodyBytes     = 4096
)

// GeminiClient talks to the Gemini REST API for embeddings and text generation.
// The credential is supplied per call so a CredentialPool can rotate keys.
type GeminiClient struct {
	baseURL        string
	embeddingModel string
	dimensions     int
	httpClient     *http.Client
	rateLimit      *rate.Limiter
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(config domain.GeminiConfig) *GeminiClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultGeminiBaseURL
	}
	if config.EmbeddingModel == "" {
		config.EmbeddingModel = defaultEmbeddingModel
	}
	if config.EmbeddingDimensions == 0 {
		config.EmbeddingDimensions = defaultEmbeddingDims
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}

	return &GeminiClient{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		embeddingModel: strings.TrimPrefix(config.EmbeddingModel, "models/"),
		dimensions:     config.EmbeddingDimensions,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(limit, 1),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type embedRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

type generateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type googleErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Embed returns the embedding of text using the configured embedding model
func (c *GeminiClient) Embed(ctx context.Context, apiKey, text string) ([]float32, error) {
	body := embedRequest{
		Model:                "models/" + c.embeddingModel,
		Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
		OutputDimensionality: c.dimensions,
	}

	var resp embedResponse
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:embedContent", c.baseURL, c.embeddingModel)
	if err := c.post(ctx, apiKey, endpoint, body, &resp); err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding response contained no values")
	}
	return resp.Embedding.Values, nil
}

// Generate returns the text produced by model for prompt
func (c *GeminiClient) Generate(ctx context.Context, apiKey, model, prompt string) (string, error) {
	body := generateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	}

	var resp generateResponse
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, strings.TrimPrefix(model, "models/"))
	if err := c.post(ctx, apiKey, endpoint, body, &resp); err != nil {
		return "", fmt.Errorf("generation with %s failed: %w", model, err)
	}

	if len(resp.Candidates) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func (c *GeminiClient) post(ctx context.Context, apiKey, endpoint string, payload, out any) error {
	if err := c.rateLimit.Wait(ctx); err != nil {
		return fmt.Errorf("request throttled: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(geminiAPIKeyHeader, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeGoogleError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeGoogleError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	apiErr := &APIError{
		Service:    geminiServiceName,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(raw)),
	}

	var envelope googleErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
