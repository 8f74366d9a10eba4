package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-crudform/pkg/model"
	"github.com/goliatone/go-crudform/pkg/visibility"
)

// Evaluator evaluates textual VisibleIf rules such as
//
//	enabled
//	kind == "company" && seats >= 10
//	!(plan == "free" || extras.role != "admin")
//
// Identifiers are dotted paths into the form values; the `extras.` prefix
// reads visibility.Context.Extras instead. Compiled rules are cached.
type Evaluator struct {
	cache sync.Map // rule -> *Rule
}

func New() *Evaluator { return &Evaluator{} }

// NewResolver returns a visibility.Resolver that evaluates VisibleIf rules
// with this package.
func NewResolver(options ...visibility.Option) *visibility.Resolver {
	options = append([]visibility.Option{visibility.WithRuleEvaluator(New())}, options...)
	return visibility.NewResolver(options...)
}

// Parse reports whether rule is syntactically valid without evaluating it.
func Parse(rule string) error {
	_, err := Compile(rule)
	return err
}

// Eval compiles (or reuses) rule and evaluates it against ctx. An empty rule
// is always true.
func (e *Evaluator) Eval(_ string, rule string, ctx visibility.Context) (bool, error) {
	rule = strings.TrimSpace(rule)
	if cached, ok := e.cache.Load(rule); ok {
		return cached.(*Rule).Match(ctx)
	}
	compiled, err := Compile(rule)
	if err != nil {
		return false, err
	}
	e.cache.Store(rule, compiled)
	return compiled.Match(ctx)
}

// Rule is a compiled VisibleIf expression.
type Rule struct {
	root node
}

// Compile parses rule into a reusable Rule.
func Compile(rule string) (*Rule, error) {
	tokens, err := tokenize(strings.TrimSpace(rule))
	if err != nil {
		return nil, err
	}
	if len(tokens) == 1 {
		return &Rule{}, nil
	}
	p := &parser{tokens: tokens}
	root, err := p.or()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != kindEOF {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", tok.String())
	}
	return &Rule{root: root}, nil
}

// Match evaluates the rule.
func (r *Rule) Match(ctx visibility.Context) (bool, error) {
	if r == nil || r.root == nil {
		return true, nil
	}
	return r.root.eval(ctx)
}

type node interface {
	eval(ctx visibility.Context) (bool, error)
}

type logical struct {
	and         bool
	left, right node
}

func (n logical) eval(ctx visibility.Context) (bool, error) {
	left, err := n.left.eval(ctx)
	if err != nil {
		return false, err
	}
	// short circuit
	if left != n.and {
		return left, nil
	}
	return n.right.eval(ctx)
}

type negate struct{ inner node }

func (n negate) eval(ctx visibility.Context) (bool, error) {
	ok, err := n.inner.eval(ctx)
	return !ok, err
}

type present struct{ path string }

func (n present) eval(ctx visibility.Context) (bool, error) {
	value, _ := lookup(ctx, n.path)
	return truthy(value), nil
}

// compare holds a field path, an operator and a literal decoded at compile
// time. want is nil for null, bool, float64 or string.
type compare struct {
	path string
	op   kind
	want any
}

func (n compare) eval(ctx visibility.Context) (bool, error) {
	got, _ := lookup(ctx, n.path)
	switch want := n.want.(type) {
	case nil:
		return (got == nil) == (n.op == kindEq), nil
	case bool:
		return (asBool(got) == want) == (n.op == kindEq), nil
	case float64:
		num, ok := asNumber(got)
		if !ok {
			if n.op != kindEq && n.op != kindNeq {
				return false, nil
			}
			num = 0
		}
		return order(n.op, compareFloat(num, want)), nil
	case string:
		return order(n.op, strings.Compare(asString(got), want)), nil
	}
	return false, errors.New("visibility/expr: unsupported literal")
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// order maps a three-way comparison result through op.
func order(op kind, cmp int) bool {
	switch op {
	case kindEq:
		return cmp == 0
	case kindNeq:
		return cmp != 0
	case kindGt:
		return cmp > 0
	case kindGte:
		return cmp >= 0
	case kindLt:
		return cmp < 0
	default:
		return cmp <= 0
	}
}

// parser is a recursive descent parser over
//
//	or      = and { "||" and }
//	and     = unary { "&&" unary }
//	unary   = "!" unary | primary
//	primary = "(" or ")" | ident [ op literal ]
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) accept(k kind) bool {
	if p.tokens[p.pos].kind != k {
		return false
	}
	p.pos++
	return true
}

func (p *parser) or() (node, error) {
	return p.chain(kindOr, p.and)
}

func (p *parser) and() (node, error) {
	return p.chain(kindAnd, p.unary)
}

func (p *parser) chain(op kind, operand func() (node, error)) (node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for p.accept(op) {
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = logical{and: op == kindAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) unary() (node, error) {
	if p.accept(kindNot) {
		inner, err := p.unary()
		if err != nil {
			return nil, err
		}
		return negate{inner: inner}, nil
	}
	return p.primary()
}

func (p *parser) primary() (node, error) {
	if p.accept(kindOpen) {
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if !p.accept(kindClose) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	ident := p.peek()
	switch ident.kind {
	case kindIdent:
		p.pos++
	case kindEOF:
		return nil, errors.New("visibility/expr: empty expression")
	default:
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", ident.String())
	}

	op := p.peek().kind
	switch op {
	case kindEq, kindNeq, kindGt, kindGte, kindLt, kindLte:
		p.pos++
	default:
		return present{path: ident.text}, nil
	}

	lit := p.peek()
	if lit.kind == kindEOF {
		return nil, errors.New("visibility/expr: missing literal")
	}
	p.pos++
	ordering := op != kindEq && op != kindNeq

	var want any
	switch lit.kind {
	case kindString, kindIdent:
		// bare words compare as strings
		want = lit.text
	case kindNumber:
		num, err := strconv.ParseFloat(lit.text, 64)
		if err != nil {
			return nil, fmt.Errorf("visibility/expr: invalid number literal %q", lit.text)
		}
		want = num
	case kindTrue, kindFalse, kindNull:
		if ordering {
			return nil, fmt.Errorf("visibility/expr: unsupported operator %q for %s literal", symbols[op], lit.text)
		}
		if lit.kind != kindNull {
			want = lit.kind == kindTrue
		}
	default:
		return nil, fmt.Errorf("visibility/expr: expected literal, got %q", lit.String())
	}
	return compare{path: ident.text, op: op, want: want}, nil
}

func lookup(ctx visibility.Context, path string) (any, bool) {
	if rest, ok := cutPrefixFold(path, "extras."); ok {
		return model.Values(ctx.Extras).Get(rest)
	}
	return ctx.Values.Get(path)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if num, ok := asNumber(value); ok {
		return num != 0
	}
	return true
}

func asBool(value any) bool {
	if s, ok := value.(string); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return parsed
		}
	}
	return truthy(value)
}

func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	}
	return fmt.Sprint(value)
}
