package llm

import "strings"

// ModelConfig holds the connection settings for the annotation model.
// It is built once per run and never modified by the pipeline.
type ModelConfig struct {
	APIKey      string
	APIURL      string
	ModelName   string
	Temperature float64
}

// Validate reports a configuration failure when the endpoint or model is missing
func (c ModelConfig) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" || strings.TrimSpace(c.ModelName) == "" {
		return Fail(KindConfiguration, nil)
	}
	return nil
}

// MaxTokens is the completion cap sent to qwen and glm models
const MaxTokens = 1024

// Message is a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QwenBody is the request payload for qwen models
type QwenBody struct {
	Model      string         `json:"model"`
	Input      QwenInput      `json:"input"`
	Parameters QwenParameters `json:"parameters"`
}

// QwenInput carries the rendered prompt
type QwenInput struct {
	Prompt string `json:"prompt"`
}

// QwenParameters carries sampling settings
type QwenParameters struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// GLMBody is the request payload for glm models
type GLMBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// ChatBody is the OpenAI-compatible chat/completions payload
type ChatBody struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// RequestSpec is a fully built request for the model service.
// Body is one of QwenBody, GLMBody or ChatBody.
type RequestSpec struct {
	URL     string
	Headers map[string]string
	Body    any
}

// AnnotationResult is a successful annotation with its measurements
type AnnotationResult struct {
	Text           string  `json:"text"`    // Docstring-wrapped annotation
	Content        string  `json:"content"` // Trimmed model output, metrics are computed on this
	LatencySeconds float64 `json:"latency_seconds"`
	OutputLength   int     `json:"output_length"`
	Completeness   float64 `json:"completeness"`
	Density        float64 `json:"density"`
}

// Result holds exactly one of Annotation or Failure
type Result struct {
	Annotation *AnnotationResult
	Failure    *AnnotationFailure
}

// Success wraps an annotation as a Result
func Success(a *AnnotationResult) Result {
	return Result{Annotation: a}
}

// Failed wraps a failure as a Result
func Failed(f *AnnotationFailure) Result {
	return Result{Failure: f}
}

// OK reports whether the result carries an annotation
func (r Result) OK() bool {
	return r.Failure == nil && r.Annotation != nil
}

// Message returns the annotation text on success or the failure message otherwise
func (r Result) Message() string {
	if r.OK() {
		return r.Annotation.Text
	}
	if r.Failure != nil {
		return r.Failure.Message
	}
	return ""
}
