// Package synth talks to the external text-to-speech backend and stores
// its output in the scratch area.
package synth

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
)

const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

const defaultEmotionWeight = 0.65

var (
	ErrTextEmpty          = errors.New("text cannot be empty")
	ErrEmptyAudio         = errors.New("received empty audio data")
	ErrUnexpectedResponse = errors.New("unexpected response from TTS service")
)

// HTTPClient is a JSON-over-HTTP client for the TTS backend.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// SpeechRequest asks for text spoken with the timbre of SpeakerRefPath and
// the emotion of EmotionRefPath.
type SpeechRequest struct {
	Text           string  `json:"text"`
	SpeakerRefPath string  `json:"speaker_ref_path,omitempty"`
	EmotionRefPath string  `json:"emo_ref_path,omitempty"`
	EmotionWeight  float64 `json:"emo_weight"`
}

type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GenerateSpeech returns WAV bytes for req.
func (c *HTTPClient) GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrTextEmpty
	}
	if req.EmotionWeight == 0 {
		req.EmotionWeight = defaultEmotionWeight
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiGenerateSpeech, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	if ct := resp.Header.Get(headerContentType); !strings.HasPrefix(ct, contentTypeWAV) {
		return nil, fmt.Errorf("%w: content type %q", ErrUnexpectedResponse, ct)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	return audio, nil
}

// HealthCheck reports whether the backend answers its health endpoint.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %s", ErrUnexpectedResponse, resp.Status)
	}
	return nil
}

func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Detail != "" {
		return fmt.Errorf("%w: %s: %s (code: %s)", ErrUnexpectedResponse, resp.Status, er.Detail, er.ErrorCode)
	}
	return fmt.Errorf("%w: %s, body: %s", ErrUnexpectedResponse, resp.Status, strings.TrimSpace(string(body)))
}
