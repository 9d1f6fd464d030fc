// Package extract splits Python source into function units using a
// tree-sitter syntax tree.
//
// Every function_definition node is a unit, including nested functions,
// methods and async functions. Units are yielded in pre-order, which is the
// order in which their def lines appear in the file.
package extract

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// FunctionUnit is one function definition found in a source file
type FunctionUnit struct {
	Name      string
	Source    string // Lines StartLine..EndLine, verbatim
	StartLine int    // 1-based
	EndLine   int    // 1-based, inclusive
}

// ExtractionError reports a source file that could not be parsed cleanly
type ExtractionError struct {
	Path string
	Line int
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("syntax error at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s: syntax error at line %d: %v", e.Path, e.Line, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ErrMalformedSource is wrapped by every ExtractionError raised for a bad parse
var ErrMalformedSource = errors.New("malformed python source")

const (
	functionNode = "function_definition"
	commentNode  = "comment"
)

// Extract parses src and returns the sequence of its function units.
// The sequence is lazy and can be ranged over any number of times.
// Malformed source returns an empty sequence and an *ExtractionError.
func Extract(ctx context.Context, src []byte) (iter.Seq[FunctionUnit], error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return empty, fmt.Errorf("parse python: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		return empty, &ExtractionError{Line: errorLine(root), Err: ErrMalformedSource}
	}

	lines := strings.Split(string(src), "\n")
	return func(yield func(FunctionUnit) bool) {
		walk(root, func(n *sitter.Node) bool {
			if n.Type() != functionNode {
				return true
			}
			return yield(newUnit(n, src, lines))
		})
	}, nil
}

// ExtractFile reads path and extracts its function units
func ExtractFile(ctx context.Context, path string) (iter.Seq[FunctionUnit], error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return empty, fmt.Errorf("failed to read file: %w", err)
	}
	seq, err := Extract(ctx, src)
	var ee *ExtractionError
	if errors.As(err, &ee) {
		ee.Path = path
	}
	return seq, err
}

// Count drains seq and returns the number of units
func Count(seq iter.Seq[FunctionUnit]) int {
	n := 0
	for range seq {
		n++
	}
	return n
}

// Collect drains seq into a slice
func Collect(seq iter.Seq[FunctionUnit]) []FunctionUnit {
	var units []FunctionUnit
	for u := range seq {
		units = append(units, u)
	}
	return units
}

func empty(func(FunctionUnit) bool) {}

func newUnit(n *sitter.Node, src []byte, lines []string) FunctionUnit {
	start := int(n.StartPoint().Row)
	endPoint := codeEnd(n)
	end := int(endPoint.Row)
	// A node ending at column 0 stops before the last line it touches
	if endPoint.Column == 0 && end > start {
		end--
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}

	name := "unknown"
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		name = nameNode.Content(src)
	}

	return FunctionUnit{
		Name:      name,
		Source:    strings.Join(lines[start:end+1], "\n"),
		StartLine: start + 1,
		EndLine:   end + 1,
	}
}

// codeEnd is where the last non-comment token of n ends. Comments trailing
// an indented block belong to it in the syntax tree but not to the function.
func codeEnd(n *sitter.Node) sitter.Point {
	for i := int(n.ChildCount()) - 1; i >= 0; i-- {
		c := n.Child(i)
		if c.Type() == commentNode {
			continue
		}
		return codeEnd(c)
	}
	return n.EndPoint()
}

// walk visits n and its descendants in pre-order until visit returns false
func walk(n *sitter.Node, visit func(*sitter.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if !walk(n.Child(i), visit) {
			return false
		}
	}
	return true
}

// errorLine finds the first ERROR or missing node below root
func errorLine(root *sitter.Node) int {
	line := int(root.StartPoint().Row) + 1
	walk(root, func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			line = int(n.StartPoint().Row) + 1
			return false
		}
		return true
	})
	return line
}
