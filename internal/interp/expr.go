package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// evalError reports an expression failure with a 1-based column relative to
// the start of the expression text.
type evalError struct {
	msg    string
	column int
}

func (e *evalError) Error() string { return e.msg }

func errAt(column int, format string, args ...any) *evalError {
	return &evalError{msg: fmt.Sprintf(format, args...), column: column}
}

// --- Lexer -------------------------------------------------------------

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokString
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	col  int // 1-based
}

func lex(src string) ([]token, *evalError) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c >= '0' && c <= '9' || c == '.' && i+1 < len(src) && src[i+1] >= '0' && src[i+1] <= '9':
			start := i
			seenDot := false
			for i < len(src) && (src[i] >= '0' && src[i] <= '9' || src[i] == '.' && !seenDot) {
				if src[i] == '.' {
					seenDot = true
				}
				i++
			}
			toks = append(toks, token{tokNumber, src[start:i], start + 1})
		case c == '"' || c == '\'':
			quote := c
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < len(src) {
				if src[i] == '\\' && i+1 < len(src) {
					switch src[i+1] {
					case 'n':
						sb.WriteByte('\n')
					case 't':
						sb.WriteByte('\t')
					case '\\', '\'', '"':
						sb.WriteByte(src[i+1])
					default:
						sb.WriteByte(src[i+1])
					}
					i += 2
					continue
				}
				if src[i] == quote {
					closed = true
					i++
					break
				}
				sb.WriteByte(src[i])
				i++
			}
			if !closed {
				return nil, errAt(start+1, "unterminated string")
			}
			toks = append(toks, token{tokString, sb.String(), start + 1})
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, token{tokIdent, src[start:i], start + 1})
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i + 1})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i + 1})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ",", i + 1})
			i++
		default:
			start := i
			two := ""
			if i+1 < len(src) {
				two = src[i : i+2]
			}
			switch two {
			case "**", "//", "==", "!=", "<=", ">=":
				toks = append(toks, token{tokOp, two, start + 1})
				i += 2
			default:
				switch c {
				case '+', '-', '*', '/', '%', '<', '>':
					toks = append(toks, token{tokOp, string(c), start + 1})
					i++
				case '=':
					return nil, errAt(start+1, "unexpected '='; use '==' to compare")
				default:
					return nil, errAt(start+1, "unexpected character %q", string(c))
				}
			}
		}
	}
	toks = append(toks, token{tokEOF, "", len(src) + 1})
	return toks, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// --- Parser ------------------------------------------------------------

type node interface{ pos() int }

type numLit struct {
	col int
	val any // int64 or float64
}

type strLit struct {
	col int
	val string
}

type identRef struct {
	col  int
	name string
}

type binaryExpr struct {
	col   int
	op    string
	left  node
	right node
}

type unaryExpr struct {
	col     int
	op      string
	operand node
}

type callExpr struct {
	col  int
	name string
	args []node
}

func (n *numLit) pos() int     { return n.col }
func (n *strLit) pos() int     { return n.col }
func (n *identRef) pos() int   { return n.col }
func (n *binaryExpr) pos() int { return n.col }
func (n *unaryExpr) pos() int  { return n.col }
func (n *callExpr) pos() int   { return n.col }

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func parseExpr(src string) (node, *evalError) {
	if strings.TrimSpace(src) == "" {
		return nil, errAt(1, "empty expression")
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	n, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, errAt(t.col, "unexpected %q", t.text)
	}
	return n, nil
}

func (p *parser) parseOr() (node, *evalError) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "or" {
		t := p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{col: t.col, op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, *evalError) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokIdent && p.peek().text == "and" {
		t := p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{col: t.col, op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, *evalError) {
	if t := p.peek(); t.kind == tokIdent && t.text == "not" {
		p.next()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{col: t.col, op: "not", operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (p *parser) parseComparison() (node, *evalError) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp && comparisonOps[t.text] {
		p.next()
		right, err := p.parseArith()
		if err != nil {
			return nil, err
		}
		// Chained comparisons are rejected, matching the language's
		// single-comparator rule.
		if t2 := p.peek(); t2.kind == tokOp && comparisonOps[t2.text] {
			return nil, errAt(t2.col, "chained comparisons not supported")
		}
		return &binaryExpr{col: t.col, op: t.text, left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseArith() (node, *evalError) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || t.text != "+" && t.text != "-" {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{col: t.col, op: t.text, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, *evalError) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || t.text != "*" && t.text != "/" && t.text != "%" && t.text != "//" {
			return left, nil
		}
		p.next()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{col: t.col, op: t.text, left: left, right: right}
	}
}

func (p *parser) parsePower() (node, *evalError) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind == tokOp && t.text == "**" {
		p.next()
		right, err := p.parsePower() // right associative
		if err != nil {
			return nil, err
		}
		return &binaryExpr{col: t.col, op: "**", left: left, right: right}, nil
	}
	return left, nil
}

func (p *parser) parseUnary() (node, *evalError) {
	if t := p.peek(); t.kind == tokOp && (t.text == "+" || t.text == "-") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{col: t.col, op: t.text, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, *evalError) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, errAt(t.col, "invalid number %q", t.text)
			}
			return &numLit{col: t.col, val: f}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, errAt(t.col, "invalid number %q", t.text)
		}
		return &numLit{col: t.col, val: n}, nil
	case tokString:
		return &strLit{col: t.col, val: t.text}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			p.next() // consume '('
			var args []node
			if p.peek().kind != tokRParen {
				for {
					arg, err := p.parseOr()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if p.peek().kind == tokComma {
						p.next()
						continue
					}
					break
				}
			}
			if closing := p.next(); closing.kind != tokRParen {
				return nil, errAt(closing.col, "expected ')' in call to %s", t.text)
			}
			return &callExpr{col: t.col, name: t.text, args: args}, nil
		}
		return &identRef{col: t.col, name: t.text}, nil
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, errAt(closing.col, "expected ')'")
		}
		return inner, nil
	case tokEOF:
		return nil, errAt(t.col, "unexpected end of expression")
	}
	return nil, errAt(t.col, "unexpected %q", t.text)
}

// --- Evaluator ---------------------------------------------------------

// maxExponent bounds `**` so user programs cannot generate huge numbers.
const maxExponent = 8

var allowedCalls = map[string]bool{
	"len": true, "length": true, "toNumber": true, "toString": true,
	"array": true, "append": true, "at": true, "ecoOps": true,
}

type evalContext struct {
	env   map[string]any
	opsFn func() int
}

// evalExpr parses and evaluates a single expression against env. opsFn feeds
// the ecoOps() builtin and may be nil.
func evalExpr(src string, env map[string]any, opsFn func() int) (any, *evalError) {
	n, err := parseExpr(src)
	if err != nil {
		return nil, err
	}
	ctx := &evalContext{env: env, opsFn: opsFn}
	return ctx.eval(n)
}

func (c *evalContext) eval(n node) (any, *evalError) {
	switch x := n.(type) {
	case *numLit:
		return x.val, nil
	case *strLit:
		return x.val, nil
	case *identRef:
		return c.lookup(x)
	case *unaryExpr:
		return c.evalUnary(x)
	case *binaryExpr:
		return c.evalBinary(x)
	case *callExpr:
		return c.evalCall(x)
	}
	return nil, errAt(n.pos(), "unsupported expression")
}

func (c *evalContext) lookup(x *identRef) (any, *evalError) {
	if v, ok := c.env[x.name]; ok {
		return v, nil
	}
	switch x.name {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return nil, errAt(x.col, "undefined variable '%s'", x.name)
}

func (c *evalContext) evalUnary(x *unaryExpr) (any, *evalError) {
	v, err := c.eval(x.operand)
	if err != nil {
		return nil, err
	}
	switch x.op {
	case "not":
		return !truthy(v), nil
	case "-":
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
		return nil, errAt(x.col, "unary '-' needs a number")
	case "+":
		if isNumber(v) {
			return v, nil
		}
		return nil, errAt(x.col, "unary '+' needs a number")
	}
	return nil, errAt(x.col, "unsupported unary op %q", x.op)
}

func (c *evalContext) evalBinary(x *binaryExpr) (any, *evalError) {
	// and/or short-circuit before the right side is evaluated.
	if x.op == "and" || x.op == "or" {
		left, err := c.eval(x.left)
		if err != nil {
			return nil, err
		}
		if x.op == "and" && !truthy(left) {
			return false, nil
		}
		if x.op == "or" && truthy(left) {
			return true, nil
		}
		right, err := c.eval(x.right)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	left, err := c.eval(x.left)
	if err != nil {
		return nil, err
	}
	right, err := c.eval(x.right)
	if err != nil {
		return nil, err
	}

	if comparisonOps[x.op] {
		return compare(x, left, right)
	}
	return arithmetic(x, left, right)
}

func arithmetic(x *binaryExpr, left, right any) (any, *evalError) {
	if x.op == "+" {
		// '+' concatenates when either side is a string.
		if _, ok := left.(string); ok {
			return formatValue(left) + formatValue(right), nil
		}
		if _, ok := right.(string); ok {
			return formatValue(left) + formatValue(right), nil
		}
	}

	lf, lok := asFloat(left)
	rf, rok := asFloat(right)
	if !lok || !rok {
		return nil, errAt(x.col, "'%s' needs numeric operands", x.op)
	}

	switch x.op {
	case "+":
		if a, b, ok := bothInts(left, right); ok {
			return a + b, nil
		}
		return lf + rf, nil
	case "-":
		if a, b, ok := bothInts(left, right); ok {
			return a - b, nil
		}
		return lf - rf, nil
	case "*":
		if a, b, ok := bothInts(left, right); ok {
			return a * b, nil
		}
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, errAt(x.col, "division by zero")
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, errAt(x.col, "modulo by zero")
		}
		if a, b, ok := bothInts(left, right); ok {
			m := a % b
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return m, nil
		}
		m := math.Mod(lf, rf)
		if m != 0 && (m < 0) != (rf < 0) {
			m += rf
		}
		return m, nil
	case "//":
		if rf == 0 {
			return nil, errAt(x.col, "division by zero")
		}
		q := math.Floor(lf / rf)
		if _, _, ok := bothInts(left, right); ok {
			return int64(q), nil
		}
		return q, nil
	case "**":
		if math.Abs(rf) > maxExponent {
			return nil, errAt(x.col, "exponent too large; max %d", maxExponent)
		}
		if a, b, ok := bothInts(left, right); ok && b >= 0 {
			result := int64(1)
			for range b {
				result *= a
			}
			return result, nil
		}
		return math.Pow(lf, rf), nil
	}
	return nil, errAt(x.col, "unsupported operator %q", x.op)
}

func compare(x *binaryExpr, left, right any) (any, *evalError) {
	// Equality works across any types; ordering needs comparable ones.
	switch x.op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	}

	if lf, ok1 := asFloat(left); ok1 {
		rf, ok2 := asFloat(right)
		if !ok2 {
			return nil, errAt(x.col, "cannot compare number with non-number")
		}
		switch x.op {
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	ls, ok1 := left.(string)
	rs, ok2 := right.(string)
	if ok1 && ok2 {
		switch x.op {
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		}
	}
	return nil, errAt(x.col, "unsupported comparison for these types")
}

func looseEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok2 := asFloat(b); ok2 {
			return af == bf
		}
		return false
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !looseEqual(x[i], y[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	}
	return false
}

func (c *evalContext) evalCall(x *callExpr) (any, *evalError) {
	if !allowedCalls[x.name] {
		return nil, errAt(x.col, "unsupported function call '%s'", x.name)
	}
	args := make([]any, len(x.args))
	for i, a := range x.args {
		v, err := c.eval(a)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch x.name {
	case "len", "length":
		if len(args) != 1 {
			return nil, errAt(x.col, "length expects 1 arg")
		}
		if n, ok := valueLength(args[0]); ok {
			return n, nil
		}
		return nil, errAt(x.col, "length needs a string or array")
	case "toNumber":
		if len(args) != 1 {
			return nil, errAt(x.col, "toNumber expects 1 arg")
		}
		return toNumber(x, args[0])
	case "toString":
		if len(args) != 1 {
			return nil, errAt(x.col, "toString expects 1 arg")
		}
		return formatValue(args[0]), nil
	case "array":
		if len(args) != 0 {
			return nil, errAt(x.col, "array expects 0 args")
		}
		return []any{}, nil
	case "append":
		if len(args) != 2 {
			return nil, errAt(x.col, "append expects 2 args")
		}
		arr, ok := args[0].([]any)
		if !ok {
			return nil, errAt(x.col, "append first arg must be array")
		}
		out := make([]any, len(arr), len(arr)+1)
		copy(out, arr)
		return append(out, args[1]), nil
	case "at":
		if len(args) != 2 {
			return nil, errAt(x.col, "at expects 2 args")
		}
		arr, ok := args[0].([]any)
		if !ok {
			return nil, errAt(x.col, "at first arg must be array")
		}
		idxF, ok := asFloat(args[1])
		if !ok {
			return nil, errAt(x.col, "at index must be a number")
		}
		idx := int(idxF)
		if idx < 0 {
			idx += len(arr)
		}
		if idx < 0 || idx >= len(arr) {
			return nil, errAt(x.col, "index out of range")
		}
		return arr[idx], nil
	case "ecoOps":
		if len(args) != 0 {
			return nil, errAt(x.col, "ecoOps expects 0 args")
		}
		if c.opsFn == nil {
			return int64(0), nil
		}
		return int64(c.opsFn()), nil
	}
	return nil, errAt(x.col, "unsupported function call '%s'", x.name)
}

func toNumber(x *callExpr, v any) (any, *evalError) {
	switch n := v.(type) {
	case int64, float64:
		return n, nil
	case bool:
		if n {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		s := strings.TrimSpace(n)
		if strings.Contains(s, ".") {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, errAt(x.col, "toNumber failed")
			}
			return f, nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, errAt(x.col, "toNumber failed")
		}
		return i, nil
	}
	return nil, errAt(x.col, "toNumber failed")
}
