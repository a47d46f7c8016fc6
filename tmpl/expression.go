package tmpl

import (
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/file"
	exprparser "github.com/expr-lang/expr/parser"
)

// keypathPattern matches mustache contents that are plain references:
// dotted keypaths optionally prefixed by a context marker (./, ../, ~/), the
// implicit context ".", and special references such as @index.
var keypathPattern = regexp.MustCompile(
	`^(?:\.|(?:\.\./)+(?:[A-Za-z_$@][\w$]*(?:\.[\w$]+)*)?|` +
		`(?:\./|~/)?[A-Za-z_$@][\w$]*(?:\.[\w$]+)*)$`,
)

// literals look like keypaths but are values.
var literals = map[string]bool{
	"true":      true,
	"false":     true,
	"nil":       true,
	"null":      true,
	"undefined": true,
}

// bind sets the reference or expression of d from the mustache operand src.
func (p *parser) bind(d *Descriptor, src string, at Position) error {
	ref, x, err := p.expression(src, at)
	if err != nil {
		return err
	}

	d.Reference, d.Expression = ref, x

	return nil
}

// expression compiles src into either a reference or an interned
// [Expression]. An expression that is a single static keypath, such as
// a[0].b, degrades to the reference a.0.b.
func (p *parser) expression(src string, at Position) (string, *Expression, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", nil, p.errorAt(at, ErrInvalidExpression, "empty mustache")
	}

	if keypathPattern.MatchString(src) && !literals[src] {
		return src, nil, nil
	}

	normalized, strict := strictEquality(src)

	tree, err := exprparser.Parse(normalized)
	if err != nil {
		msg, col := err.Error(), 0

		var fe *file.Error
		if errors.As(err, &fe) {
			msg, col = fe.Message, fe.Column
		}

		if i := strings.IndexByte(msg, '\n'); i >= 0 {
			msg = msg[:i]
		}

		for off := range strict {
			if off < col {
				col++
			}
		}

		if runes := []rune(src); col > 0 && col <= len(runes) {
			at = advancePos(at, string(runes[:col]))
		}

		return "", nil, p.errorAt(at, ErrInvalidExpression, "%s", msg).
			With(slog.String("expression", src))
	}

	kp := keypaths{
		path:  make(map[ast.Node]string),
		inner: make(map[ast.Node]bool),
	}

	ast.Walk(&tree.Node, &kp)

	if path, ok := kp.path[tree.Node]; ok {
		return path, nil, nil
	}

	ph := placeholders{keypaths: &kp, index: make(map[string]int)}

	ast.Walk(&tree.Node, &ph)
	ast.Walk(&tree.Node, strict)

	return "", p.intern(tree.Node.String(), ph.refs), nil
}

// intern returns the shared expression for source and refs, creating it on
// first use.
func (p *parser) intern(source string, refs []string) *Expression {
	id := source + "\n" + strings.Join(refs, "\n")

	if x, ok := p.expressions[id]; ok {
		return x
	}

	x := &Expression{ID: id, References: refs, Source: source}
	p.expressions[id] = x

	p.trace("expression interned",
		slog.String("source", source),
		slog.Int("refs", len(refs)))

	return x
}

// keypaths records the static keypath spelled by each identifier and member
// node. A node whose parent extends its keypath is marked inner.
type keypaths struct {
	path  map[ast.Node]string
	inner map[ast.Node]bool
}

// Visit implements [ast.Visitor]. Walk is post-order, so a member's object
// has already been visited.
func (k *keypaths) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if !literals[n.Value] {
			k.path[n] = n.Value
		}

	case *ast.MemberNode:
		base, ok := k.path[n.Node]
		if !ok || n.Optional {
			return
		}

		var seg string

		switch prop := n.Property.(type) {
		case *ast.StringNode:
			if !isIdentifier(prop.Value) {
				return
			}

			seg = prop.Value

		case *ast.IntegerNode:
			seg = strconv.Itoa(prop.Value)

		default:
			return
		}

		k.path[n] = base + "." + seg
		k.inner[n.Node] = true
	}
}

// placeholders replaces each outermost keypath with ${i}, where i is the
// position of the keypath in refs.
type placeholders struct {
	*keypaths

	refs  []string
	index map[string]int
}

// Visit implements [ast.Visitor].
func (r *placeholders) Visit(node *ast.Node) {
	path, ok := r.path[*node]
	if !ok || r.inner[*node] {
		return
	}

	i, seen := r.index[path]
	if !seen {
		i = len(r.refs)
		r.index[path] = i
		r.refs = append(r.refs, path)
	}

	ast.Patch(node, &ast.IdentifierNode{Value: "${" + strconv.Itoa(i) + "}"})
}

// strictOps holds the rune offsets of JavaScript strict equality operators
// in a normalized expression.
type strictOps map[int]bool

// strictEquality rewrites === and !== outside string literals to == and !=,
// which expr parses. The offsets of the rewritten operators are returned so
// the strict forms can be restored in the parsed tree.
func strictEquality(src string) (string, strictOps) {
	var (
		sb     strings.Builder
		strict = strictOps{}
		quote  rune
		escape bool
		n      int
	)

	runes := []rune(src)

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		switch {
		case quote != 0:
			switch {
			case escape:
				escape = false
			case r == '\\':
				escape = true
			case r == quote:
				quote = 0
			}

		case r == '"', r == '\'', r == '`':
			quote = r

		case (r == '=' || r == '!') && i+2 < len(runes) &&
			runes[i+1] == '=' && runes[i+2] == '=':
			strict[n] = true

			sb.WriteRune(r)
			sb.WriteRune('=')

			n += 2
			i += 2

			continue
		}

		sb.WriteRune(r)
		n++
	}

	return sb.String(), strict
}

// Visit implements [ast.Visitor]. It restores the strict form of each
// equality operator that began at a recorded offset.
func (s strictOps) Visit(node *ast.Node) {
	b, ok := (*node).(*ast.BinaryNode)
	if !ok || !s[b.Location().From] {
		return
	}

	switch b.Operator {
	case "==":
		b.Operator = "==="
	case "!=":
		b.Operator = "!=="
	}
}
