// Package sdk provides the client-side library for the Segmint API.
package sdk

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/segmint-dev/segmint/pkg/schema"
)

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// Client is a remote client for the Segmint daemon.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Connect builds a client for the daemon at baseURL. apiKey may be empty for
// the ungated endpoints. If SEGMINT_DISABLE_TLS is not "true", certificate
// verification is skipped, matching the daemon's self-signed certificates.
func Connect(baseURL, apiKey string) (*Client, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}

	transport := &http.Transport{}
	if os.Getenv("SEGMINT_DISABLE_TLS") != "true" {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, // self-signed certs for internal traffic
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}, nil
}

// Predict scores one customer and returns the assigned cluster and persona.
func (c *Client) Predict(income float64, age int, spending float64, recency int) (*schema.PredictResponse, error) {
	ageF := float64(age)
	recencyF := float64(recency)
	body := schema.PredictRequest{
		Income:        &income,
		Age:           &ageF,
		TotalSpending: &spending,
		Recency:       &recencyF,
	}

	var out schema.PredictResponse
	if err := c.doJSON(http.MethodPost, "/api/predict", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns the most recent predictions, newest first. Requires the
// shared secret.
func (c *Client) History() ([]schema.HistoryEntry, error) {
	var out []schema.HistoryEntry
	if err := c.doJSON(http.MethodGet, "/api/history", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns per-cluster prediction counts. Requires the shared secret.
func (c *Client) Stats() ([]schema.ClusterCount, error) {
	var out []schema.ClusterCount
	if err := c.doJSON(http.MethodGet, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadReport fetches the PDF report for a persona.
func (c *Client) DownloadReport(personaName string) ([]byte, error) {
	resp, err := c.do(http.MethodGet, "/download_report/"+url.PathEscape(personaName), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Ping checks daemon liveness via the health endpoint.
func (c *Client) Ping() error {
	var out map[string]any
	return c.doJSON(http.MethodGet, "/healthz", nil, &out)
}

func (c *Client) do(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	return c.http.Do(req)
}

func (c *Client) doJSON(method, path string, body, out any) error {
	resp, err := c.do(method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || payload.Error == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
}
