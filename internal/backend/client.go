// Package backend is a typed HTTP client for the TTS backend API. The
// backend owns synthesis and voice-sample storage; this client only
// shapes requests and surfaces the backend's error detail.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to one backend origin.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the given backend origin, for example
// "http://api:8000". A nil httpClient falls back to a default with a
// generous timeout; synthesis on CPU backends can take a while.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// ChatRequest is the synthesis request body for POST /v1/chat.
type ChatRequest struct {
	Text          string  `json:"text"`
	Language      string  `json:"language"`
	Speed         float64 `json:"speed"`
	VoiceSampleID string  `json:"voice_sample_id,omitempty"`
}

// ChatResponse mirrors the backend's synthesis response.
type ChatResponse struct {
	Reply      string  `json:"reply"`
	WAVBase64  string  `json:"wav_base64"`
	Model      string  `json:"model"`
	Device     string  `json:"device"`
	DurationMS float64 `json:"duration_ms"`
	SampleRate int     `json:"sample_rate"`
	Language   string  `json:"language"`
	Note       string  `json:"note,omitempty"`
}

// VoiceSample is one named reference voice stored by the backend.
// CreatedAt stays a string: the backend emits ISO timestamps without a
// zone offset, which time.Time refuses to parse.
type VoiceSample struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	FileSize  int64  `json:"file_size"`
}

type listSamplesResponse struct {
	Samples []VoiceSample `json:"samples"`
}

type uploadSampleRequest struct {
	Name        string `json:"name"`
	AudioBase64 string `json:"audio_base64"`
}

// APIError is a non-2xx backend response with its decoded detail field.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend status %d", e.StatusCode)
}

// Health checks backend liveness via GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Chat submits one synthesis request.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var res ChatResponse
	if err := c.do(ctx, http.MethodPost, "/v1/chat", req, &res); err != nil {
		return ChatResponse{}, err
	}
	return res, nil
}

// ListVoiceSamples fetches the authoritative sample list.
func (c *Client) ListVoiceSamples(ctx context.Context) ([]VoiceSample, error) {
	var res listSamplesResponse
	if err := c.do(ctx, http.MethodGet, "/v1/voice-samples", nil, &res); err != nil {
		return nil, err
	}
	return res.Samples, nil
}

// UploadVoiceSample stores a named base64-encoded audio sample.
func (c *Client) UploadVoiceSample(ctx context.Context, name, audioBase64 string) error {
	return c.do(ctx, http.MethodPost, "/v1/voice-samples", uploadSampleRequest{
		Name:        name,
		AudioBase64: audioBase64,
	}, nil)
}

// DeleteVoiceSample removes a sample by id.
func (c *Client) DeleteVoiceSample(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/voice-samples/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{StatusCode: res.StatusCode, Detail: decodeDetail(raw)}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// decodeDetail pulls the backend's detail field out of an error body.
// Validation failures carry structured detail; anything undecodable is
// returned as trimmed raw text.
func decodeDetail(raw []byte) string {
	var wrapper struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper.Detail) > 0 {
		var s string
		if err := json.Unmarshal(wrapper.Detail, &s); err == nil {
			return s
		}
		return string(wrapper.Detail)
	}
	return strings.TrimSpace(string(raw))
}
