package tracking

import (
	"context"

	"github.com/wouteroostervld/annotator/pkg/extract"
	"github.com/wouteroostervld/annotator/pkg/llm"
)

type fakeGenerator struct{}

func (fakeGenerator) Annotate(_ context.Context, unit extract.FunctionUnit) llm.Result {
	if unit.Name == "b" {
		return llm.Failed(llm.Fail(llm.KindConnection, nil))
	}
	return llm.Success(&llm.AnnotationResult{Text: "\"\"\"\nx\n\"\"\"", Content: "x"})
}
