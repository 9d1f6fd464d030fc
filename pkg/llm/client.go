package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds every call to the model service
const DefaultTimeout = 30 * time.Second

// Config for the annotation client
type Config struct {
	Timeout    time.Duration // HTTP timeout (default 30s)
	Limiter    *rate.Limiter // Optional request rate limit, waited on before each call
	HTTPClient *http.Client  // Optional, replaces the default client
}

// Client sends annotation requests to the model service.
// It never retries: a failed call is reported to the caller as-is.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new annotation client
func NewClient(config *Config) *Client {
	if config == nil {
		config = &Config{}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	return &Client{
		httpClient: httpClient,
		limiter:    config.Limiter,
	}
}

// Send posts the request and parses the response according to family.
// Every outcome is returned as a Result; no error escapes this call.
func (c *Client) Send(ctx context.Context, spec *RequestSpec, family Family) Result {
	if spec == nil || spec.URL == "" {
		return Failed(Fail(KindConfiguration, errors.New("empty request")))
	}

	data, err := json.Marshal(spec.Body)
	if err != nil {
		return Failed(Fail(KindConfiguration, fmt.Errorf("marshal request: %w", err)))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Failed(Fail(KindConnection, fmt.Errorf("rate limit wait: %w", err)))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, spec.URL, bytes.NewReader(data))
	if err != nil {
		return Failed(Fail(KindConnection, fmt.Errorf("create request: %w", err)))
	}
	for key, value := range spec.Headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Failed(Fail(KindConnection, fmt.Errorf("http request: %w", err)))
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	latency := RoundTo(time.Since(start).Seconds(), 4)
	if readErr != nil {
		return Failed(Fail(KindConnection, fmt.Errorf("read body: %w", readErr)))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Failed(Fail(KindConnection, fmt.Errorf("API returned status %d: %s", resp.StatusCode, preview(bodyBytes))))
	}

	content, err := family.ParseContent(bodyBytes)
	if err != nil {
		return Failed(Fail(KindResponseParse, err))
	}

	content = strings.TrimSpace(content)
	return Success(&AnnotationResult{
		Text:           WrapDocstring(content),
		Content:        content,
		LatencySeconds: latency,
		OutputLength:   utf8.RuneCountInString(content),
	})
}

func parseQwen(body []byte) (string, error) {
	var apiResp struct {
		Output *struct {
			Text *string `json:"text"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w. Body preview: %s", err, preview(body))
	}
	if apiResp.Output == nil || apiResp.Output.Text == nil {
		return "", errors.New("missing output.text in response")
	}
	return *apiResp.Output.Text, nil
}

func parseChat(body []byte) (string, error) {
	var apiResp struct {
		Choices []struct {
			Message *struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w. Body preview: %s", err, preview(body))
	}
	if len(apiResp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	msg := apiResp.Choices[0].Message
	if msg == nil || msg.Content == nil {
		return "", errors.New("missing choices[0].message.content in response")
	}
	return *msg.Content, nil
}

// WrapDocstring formats annotation text as a triple-quoted block
func WrapDocstring(text string) string {
	return `"""` + "\n" + text + "\n" + `"""`
}

// RoundTo rounds v to the given number of decimal places
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
