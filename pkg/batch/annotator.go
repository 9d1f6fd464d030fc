package batch

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/wouteroostervld/annotator/pkg/extract"
	"github.com/wouteroostervld/annotator/pkg/llm"
	"github.com/wouteroostervld/annotator/pkg/metrics"
	"github.com/wouteroostervld/annotator/pkg/prompt"
)

// Annotator turns one function source into a scored annotation
type Annotator struct {
	builder *prompt.Builder
	sender  llm.Sender
	cfgErr  error
	cfg     llm.ModelConfig
}

// NewAnnotator prepares an annotator for cfg. An incomplete cfg is not an
// error here: every call then reports a configuration failure.
func NewAnnotator(template string, cfg llm.ModelConfig, sender llm.Sender) *Annotator {
	builder, err := prompt.NewBuilder(template, cfg)
	return &Annotator{
		builder: builder,
		sender:  sender,
		cfgErr:  err,
		cfg:     cfg,
	}
}

// Provenance returns the model settings attached to tracked records
func (a *Annotator) Provenance() Provenance {
	return Provenance{Model: a.cfg.ModelName, Temperature: a.cfg.Temperature}
}

// SourceUnit wraps free-form source, as typed in interactive mode
func SourceUnit(source string) extract.FunctionUnit {
	return extract.FunctionUnit{
		Name:      prompt.FunctionName(source),
		Source:    source,
		StartLine: 1,
		EndLine:   strings.Count(source, "\n") + 1,
	}
}

// Generate annotates free-form source
func (a *Annotator) Generate(ctx context.Context, source string) llm.Result {
	return a.Annotate(ctx, SourceUnit(source))
}

// Annotate validates, builds, sends and scores a single unit
func (a *Annotator) Annotate(ctx context.Context, unit extract.FunctionUnit) llm.Result {
	if a.cfgErr != nil {
		return llm.Failed(asFailure(a.cfgErr, llm.KindConfiguration))
	}
	if err := prompt.ValidateSource(unit.Source); err != nil {
		return llm.Failed(asFailure(err, llm.KindInputValidation))
	}

	spec := a.builder.Build(unit)
	res := a.sender.Send(ctx, spec, a.builder.Family())
	if res.Annotation == nil && res.Failure == nil {
		res = llm.Failed(llm.Fail(llm.KindResponseParse, errors.New("empty result")))
	}
	if !res.OK() {
		slog.Debug("Annotation failed", "function", unit.Name, "kind", res.Failure.Kind, "detail", res.Failure.Detail())
		return res
	}

	scores := metrics.Evaluate(res.Annotation.Content, unit.Source)
	res.Annotation.Completeness = scores.Completeness
	res.Annotation.Density = scores.Density
	return res
}

func asFailure(err error, kind llm.FailureKind) *llm.AnnotationFailure {
	var f *llm.AnnotationFailure
	if errors.As(err, &f) {
		return f
	}
	return llm.Fail(kind, err)
}
