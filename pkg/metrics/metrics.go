package metrics

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wouteroostervld/annotator/pkg/llm"
)

// Keyword groups for completeness, matched case-insensitively anywhere in the text
var (
	inputPattern      = regexp.MustCompile(`(?i)input|parameters|param`)
	processingPattern = regexp.MustCompile(`(?i)processing|steps|operation|do`)
	outputPattern     = regexp.MustCompile(`(?i)output|return|result`)
)

// Scores holds the heuristic quality measures of one annotation
type Scores struct {
	Completeness float64
	Density      float64
}

// Evaluate scores an annotation against the function it describes
func Evaluate(annotation, source string) Scores {
	return Scores{
		Completeness: Completeness(annotation),
		Density:      Density(annotation, source),
	}
}

// Completeness is the fraction of the input, processing and output sections
// the annotation mentions: one of 0, 1/3, 2/3 or 1.
func Completeness(annotation string) float64 {
	hits := 0
	for _, p := range []*regexp.Regexp{inputPattern, processingPattern, outputPattern} {
		if p.MatchString(annotation) {
			hits++
		}
	}
	return float64(hits) / 3
}

// Density is the de-duplicated annotation length over the non-whitespace length
// of the source, rounded to 4 decimals. A blank source has density 0.
func Density(annotation, source string) float64 {
	sourceLen := utf8.RuneCountInString(stripSpace(source))
	if sourceLen == 0 {
		return 0.0
	}
	annotationLen := utf8.RuneCountInString(collapseRuns(stripSpace(annotation)))
	return llm.RoundTo(float64(annotationLen)/float64(sourceLen), 4)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// collapseRuns replaces every run of an identical character with a single one
func collapseRuns(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	prev := rune(-1)
	for _, r := range s {
		if r == prev {
			continue
		}
		sb.WriteRune(r)
		prev = r
	}
	return sb.String()
}
