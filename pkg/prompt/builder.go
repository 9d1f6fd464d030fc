// Package prompt renders function units into model requests.
package prompt

import (
	"errors"
	"strings"

	"github.com/wouteroostervld/annotator/pkg/extract"
	"github.com/wouteroostervld/annotator/pkg/llm"
)

// Builder renders units with a fixed template and model configuration.
// The model family is resolved once and shared with response parsing.
type Builder struct {
	template string
	cfg      llm.ModelConfig
	family   llm.Family
}

// NewBuilder validates cfg and resolves its family
func NewBuilder(template string, cfg llm.ModelConfig) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if template == "" {
		template = DefaultTemplate
	}
	return &Builder{
		template: template,
		cfg:      cfg,
		family:   llm.ResolveFamily(cfg.ModelName),
	}, nil
}

// Family returns the model family requests are shaped for
func (b *Builder) Family() llm.Family {
	return b.family
}

// Build returns a fresh request for unit
func (b *Builder) Build(unit extract.FunctionUnit) *llm.RequestSpec {
	prompt := Render(b.template, unit.Source)
	return &llm.RequestSpec{
		URL: b.cfg.APIURL,
		Headers: map[string]string{
			"Authorization": "Bearer " + b.cfg.APIKey,
			"Content-Type":  "application/json",
		},
		Body: b.family.NewBody(b.cfg.ModelName, prompt, b.cfg.Temperature),
	}
}

// Build renders unit with template for cfg. A config without URL or model
// returns no request and a configuration failure.
func Build(template string, unit extract.FunctionUnit, cfg llm.ModelConfig) (*llm.RequestSpec, error) {
	b, err := NewBuilder(template, cfg)
	if err != nil {
		return nil, err
	}
	return b.Build(unit), nil
}

// ValidateSource rejects text that is not a function definition
func ValidateSource(source string) error {
	s := strings.TrimSpace(source)
	if strings.HasPrefix(s, "def ") || strings.HasPrefix(s, "async def ") {
		return nil
	}
	return llm.Fail(llm.KindInputValidation, errors.New("source does not start with def"))
}

// FunctionName returns the name in a def line, or "unknown"
func FunctionName(source string) string {
	s := strings.TrimSpace(source)
	s = strings.TrimPrefix(s, "async ")
	if !strings.HasPrefix(s, "def ") {
		return "unknown"
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "def "))
	if i := strings.IndexAny(s, "( :\n"); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return "unknown"
	}
	return s
}
