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

	"github.com/niramay-pgx-server/internal/domain"
)

const pineconeServiceName = "pinecone"

// PineconeClient queries a Pinecone serverless index over the data-plane REST API
type PineconeClient struct {
	host       string
	indexName  string
	apiKey     string
	httpClient *http.Client
}

// PineconeQueryResponse represents the JSON response from the query endpoint
type PineconeQueryResponse struct {
	Matches   []VectorMatch `json:"matches"`
	Namespace string        `json:"namespace"`
}

// NewPineconeClient creates a new Pinecone index client
func NewPineconeClient(config domain.PineconeConfig) *PineconeClient {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	host := strings.TrimRight(config.IndexHost, "/")
	if host != "" && !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}

	return &PineconeClient{
		host:      host,
		indexName: config.IndexName,
		apiKey:    config.APIKey,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the index name
func (c *PineconeClient) Name() string {
	return c.indexName
}

// Query runs a similarity query and returns the matches ordered by score
func (c *PineconeClient) Query(ctx context.Context, query VectorQuery) ([]VectorMatch, error) {
	if c.host == "" {
		return nil, fmt.Errorf("pinecone index host is not configured")
	}

	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/query", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &APIError{
			Service:    pineconeServiceName,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	var result PineconeQueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	return result.Matches, nil
}
