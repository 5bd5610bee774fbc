// Package funcs finds function definitions in C and Arduino C++ sources and
// scores their cyclomatic complexity.
package funcs

import (
	"fmt"
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"
)

// Function is one function definition.
type Function struct {
	Name       string `json:"name" yaml:"name"`
	File       string `json:"file" yaml:"file"`
	StartLine  int    `json:"start_line" yaml:"start_line"`
	EndLine    int    `json:"end_line" yaml:"end_line"`
	Signature  string `json:"signature" yaml:"signature"`
	Complexity int    `json:"complexity" yaml:"complexity"`
}

// Lines returns the number of source lines the definition spans.
func (f Function) Lines() int {
	return f.EndLine - f.StartLine + 1
}

// Extractor parses sources with the C grammar. Arduino .cpp files are
// mostly C syntax; unknown constructs become error nodes and are skipped.
type Extractor struct {
	language *sitter.Language
}

// NewExtractor creates a function extractor.
func NewExtractor() *Extractor {
	return &Extractor{language: sitter.NewLanguage(c.Language())}
}

// Extract returns the function definitions in source, in source order.
func (e *Extractor) Extract(file string, source []byte) ([]Function, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(e.language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse %s", file)
	}
	defer tree.Close()

	functions := []Function{}
	walkTree(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() != "function_definition" {
			return true
		}
		if fn, ok := e.function(n, file, source); ok {
			functions = append(functions, fn)
		}
		return false
	})
	return functions, nil
}

func (e *Extractor) function(node *sitter.Node, file string, source []byte) (Function, bool) {
	declarator := node.ChildByFieldName("declarator")
	if declarator == nil {
		return Function{}, false
	}
	name := findFunctionName(declarator, source)
	if name == "" {
		return Function{}, false
	}

	sig := nodeText(declarator, source)
	if typeNode := node.ChildByFieldName("type"); typeNode != nil {
		sig = nodeText(typeNode, source) + " " + sig
	}

	return Function{
		Name:       name,
		File:       file,
		StartLine:  int(node.StartPosition().Row) + 1,
		EndLine:    int(node.EndPosition().Row) + 1,
		Signature:  sig,
		Complexity: Complexity(node, source),
	}, true
}

// Complexity is 1 plus the number of decision points below node: if, for,
// while, do, case labels, conditional expressions, && and ||.
func Complexity(node *sitter.Node, source []byte) int {
	score := 1
	walkTree(node, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "if_statement", "for_statement", "while_statement", "do_statement", "conditional_expression":
			score++
		case "case_statement":
			// "default:" has no value
			if n.ChildByFieldName("value") != nil {
				score++
			}
		case "binary_expression":
			if op := n.ChildByFieldName("operator"); op != nil {
				switch nodeText(op, source) {
				case "&&", "||":
					score++
				}
			}
		}
		return true
	})
	return score
}

// findFunctionName descends through pointer and function declarators to the name.
func findFunctionName(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}

	switch node.Kind() {
	case "identifier", "field_identifier":
		return nodeText(node, source)
	case "function_declarator", "pointer_declarator", "parenthesized_declarator":
		if inner := node.ChildByFieldName("declarator"); inner != nil {
			return findFunctionName(inner, source)
		}
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == "identifier" {
			return nodeText(child, source)
		}
	}
	return ""
}

// SortByComplexity orders functions by descending complexity, then file and line.
func SortByComplexity(fns []Function) {
	sort.SliceStable(fns, func(i, j int) bool {
		if fns[i].Complexity != fns[j].Complexity {
			return fns[i].Complexity > fns[j].Complexity
		}
		if fns[i].File != fns[j].File {
			return fns[i].File < fns[j].File
		}
		return fns[i].StartLine < fns[j].StartLine
	})
}

func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// walkTree visits node and its children depth first. Returning false from
// visit skips the children of that node.
func walkTree(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walkTree(node.Child(i), visit)
	}
}
