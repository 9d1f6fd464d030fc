package batch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wouteroostervld/annotator/pkg/extract"
	"github.com/wouteroostervld/annotator/pkg/llm"
)

var validCfg = llm.ModelConfig{APIKey: "k", APIURL: "http://model.local", ModelName: "glm-4", Temperature: 0.3}

func TestAnnotator_InputValidation(t *testing.T) {
	called := false
	sender := senderFunc(func(context.Context, *llm.RequestSpec, llm.Family) llm.Result {
		called = true
		return llm.Result{}
	})

	res := NewAnnotator("", validCfg, sender).Generate(context.Background(), "print(1)")
	require.False(t, res.OK())
	assert.Equal(t, "Input must be a Python function starting with 'def'", res.Message())
	assert.Equal(t, llm.KindInputValidation, res.Failure.Kind)
	assert.False(t, called)
}

func TestAnnotator_ConfigurationBeforeValidation(t *testing.T) {
	res := NewAnnotator("", llm.ModelConfig{APIKey: "k"}, nil).Generate(context.Background(), "print(1)")
	require.False(t, res.OK())
	assert.Equal(t, llm.MsgConfiguration, res.Message())
	assert.ErrorIs(t, res.Failure, llm.ErrConfiguration)
}

func TestAnnotator_PassesFamily(t *testing.T) {
	cfg := validCfg
	cfg.ModelName = "qwen-turbo"
	var got llm.Family = -1
	sender := senderFunc(func(_ context.Context, spec *llm.RequestSpec, family llm.Family) llm.Result {
		got = family
		_, ok := spec.Body.(llm.QwenBody)
		assert.True(t, ok)
		return llm.Success(&llm.AnnotationResult{Content: "Output: x"})
	})

	res := NewAnnotator("", cfg, sender).Generate(context.Background(), "def f(x):\n    return x")
	require.True(t, res.OK())
	assert.Equal(t, llm.FamilyQwen, got)
}

func TestAnnotator_EmptyResult(t *testing.T) {
	sender := senderFunc(func(context.Context, *llm.RequestSpec, llm.Family) llm.Result {
		return llm.Result{}
	})
	res := NewAnnotator("", validCfg, sender).Generate(context.Background(), "def f(): pass")
	require.NotNil(t, res.Failure)
	assert.Equal(t, llm.KindResponseParse, res.Failure.Kind)
}

func TestAnnotator_EndToEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"\n Input: a, b numbers.\nProcessing: adds them.\nOutput: returns the sum.\n"}}]}`))
	}))
	defer server.Close()

	cfg := validCfg
	cfg.APIURL = server.URL
	a := NewAnnotator("", cfg, llm.NewClient(nil))

	unit := extract.FunctionUnit{Name: "add", Source: "def add(a, b):\n    return a + b", StartLine: 1}
	res := a.Annotate(context.Background(), unit)
	require.True(t, res.OK(), res.Message())

	assert.Equal(t, "\"\"\"\nInput: a, b numbers.\nProcessing: adds them.\nOutput: returns the sum.\n\"\"\"", res.Annotation.Text)
	assert.Equal(t, 1.0, res.Annotation.Completeness)
	assert.Greater(t, res.Annotation.Density, 0.0)
	assert.Equal(t, Provenance{Model: "glm-4", Temperature: 0.3}, a.Provenance())
}

func TestSourceUnit(t *testing.T) {
	unit := SourceUnit("def greet(name):\n    return 'hi ' + name")
	assert.Equal(t, "greet", unit.Name)
	assert.Equal(t, 1, unit.StartLine)
	assert.Equal(t, 2, unit.EndLine)

	assert.Equal(t, "unknown", SourceUnit("print(1)").Name)
}

func TestNewRecord(t *testing.T) {
	unit := extract.FunctionUnit{Name: "f", Source: "  def f(): pass\n", StartLine: 3}

	ok := NewRecord("a.py", unit, llm.Success(&llm.AnnotationResult{Text: "x"}))
	assert.True(t, ok.Success)
	assert.Equal(t, 13, ok.InputLength)
	assert.Equal(t, 3, ok.StartLine)
	assert.Empty(t, ok.Error)
	assert.Nil(t, ok.Failure)

	failed := NewRecord("a.py", unit, llm.Failed(llm.Fail(llm.KindConnection, nil)))
	assert.False(t, failed.Success)
	assert.Nil(t, failed.Result)
	assert.Equal(t, llm.MsgConnection, failed.Error)
	assert.ErrorIs(t, failed.Failure, llm.ErrConnection)
}
