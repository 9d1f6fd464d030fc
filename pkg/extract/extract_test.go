package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `import os


def add(a, b):
    """Add two numbers."""
    return a + b


class Greeter:
    def greet(self, name):
        return "hi " + name


async def fetch(url):
    async with session() as s:
        return await s.get(url)


def outer(x):
    def inner(y):
        return y * 2

    return inner(x)
`

func TestExtract_FileOrder(t *testing.T) {
	seq, err := Extract(context.Background(), []byte(sample))
	require.NoError(t, err)

	units := Collect(seq)
	names := make([]string, len(units))
	for i, u := range units {
		names[i] = u.Name
	}
	assert.Equal(t, []string{"add", "greet", "fetch", "outer", "inner"}, names)
}

func TestExtract_SourceVerbatim(t *testing.T) {
	seq, err := Extract(context.Background(), []byte(sample))
	require.NoError(t, err)
	units := Collect(seq)
	require.Len(t, units, 5)

	assert.Equal(t, "def add(a, b):\n    \"\"\"Add two numbers.\"\"\"\n    return a + b", units[0].Source)
	assert.Equal(t, 4, units[0].StartLine)
	assert.Equal(t, 6, units[0].EndLine)

	// Methods keep their indentation
	assert.Equal(t, "    def greet(self, name):\n        return \"hi \" + name", units[1].Source)
	assert.Equal(t, 10, units[1].StartLine)

	assert.Equal(t, "async def fetch(url):\n    async with session() as s:\n        return await s.get(url)", units[2].Source)

	assert.Equal(t, "def outer(x):\n    def inner(y):\n        return y * 2\n\n    return inner(x)", units[3].Source)
	assert.Equal(t, "    def inner(y):\n        return y * 2", units[4].Source)
}

func TestExtract_CountMatchesDefKeywords(t *testing.T) {
	defs := regexp.MustCompile(`(?m)^\s*(async\s+)?def\s`)
	seq, err := Extract(context.Background(), []byte(sample))
	require.NoError(t, err)
	assert.Equal(t, len(defs.FindAllString(sample, -1)), Count(seq))
}

func TestExtract_Restartable(t *testing.T) {
	seq, err := Extract(context.Background(), []byte(sample))
	require.NoError(t, err)
	first := Collect(seq)
	second := Collect(seq)
	assert.Equal(t, first, second)
}

func TestExtract_EarlyStop(t *testing.T) {
	seq, err := Extract(context.Background(), []byte(sample))
	require.NoError(t, err)
	var seen []string
	for u := range seq {
		seen = append(seen, u.Name)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"add", "greet"}, seen)
}

func TestExtract_NoFunctions(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "empty", src: ""},
		{name: "statements only", src: "x = 1\nprint(x)\n"},
		{name: "class without methods", src: "class A:\n    pass\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := Extract(context.Background(), []byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, 0, Count(seq))
		})
	}
}

func TestExtract_Malformed(t *testing.T) {
	src := "def ok():\n    return 1\n\ndef broken(:\n    return\n"
	seq, err := Extract(context.Background(), []byte(src))
	require.Error(t, err)

	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.ErrorIs(t, err, ErrMalformedSource)
	assert.GreaterOrEqual(t, ee.Line, 1)
	assert.Equal(t, 0, Count(seq))
}

func TestExtractFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "function_sample1.py")
	bad := filepath.Join(dir, "function_sample2.py")
	require.NoError(t, os.WriteFile(good, []byte(sample), 0644))
	require.NoError(t, os.WriteFile(bad, []byte("def (:\n"), 0644))

	seq, err := ExtractFile(context.Background(), good)
	require.NoError(t, err)
	assert.Equal(t, 5, Count(seq))

	_, err = ExtractFile(context.Background(), bad)
	var ee *ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, bad, ee.Path)
	assert.Contains(t, err.Error(), bad)

	_, err = ExtractFile(context.Background(), filepath.Join(dir, "missing.py"))
	require.Error(t, err)
	assert.False(t, errors.As(err, &ee))
}

func TestExtract_TrailingCommentsExcluded(t *testing.T) {
	src := "def a(x):\n    return x\n    # trailing\n\n" +
		"def b(x):\n    if x:\n        return 1\n        # note\n\n" +
		"def c():\n    # leading\n    v = (\n        1  # one\n    )\n    return v\n"

	seq, err := Extract(context.Background(), []byte(src))
	require.NoError(t, err)
	units := Collect(seq)
	require.Len(t, units, 3)

	assert.Equal(t, "def a(x):\n    return x", units[0].Source)
	assert.Equal(t, 2, units[0].EndLine)

	assert.Equal(t, "def b(x):\n    if x:\n        return 1", units[1].Source)
	assert.Equal(t, 7, units[1].EndLine)

	// Comments inside the body stay
	assert.Equal(t, "def c():\n    # leading\n    v = (\n        1  # one\n    )\n    return v", units[2].Source)
}
