package audio

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// TTSClient is a Synthesizer backed by an HTTP speech synthesis service.
type TTSClient struct {
	endpoint    string
	apiKey      string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
}

// NewTTSClient creates a synthesis client for the given base URL.
// Rate limited to 30 requests per minute, burst of 5.
func NewTTSClient(endpoint, apiKey string, logger *slog.Logger) *TTSClient {
	return &TTSClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		rateLimiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
		logger:      logger,
	}
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voice_id"`
	Format  string `json:"format"`
}

// Synthesize implements Synthesizer.
func (c *TTSClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		VoiceID: voiceID,
		Format:  "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/synthesize", strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("synthesis service returned empty audio")
	}

	c.logger.Debug("synthesized audio", "voice", voiceID, "text_len", len(text), "bytes", len(data))
	return data, nil
}

// NoSynthesizer is used when no TTS endpoint is configured. Generation
// steps fail with a clear message; everything else keeps working.
type NoSynthesizer struct{}

// Synthesize always fails.
func (NoSynthesizer) Synthesize(context.Context, string, string) ([]byte, error) {
	return nil, fmt.Errorf("no speech synthesis endpoint configured")
}
