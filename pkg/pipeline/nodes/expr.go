package nodes

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Custom node logic is a tiny assignment language: one "output = expr"
// per line, compiled once at node construction and run per pass.
//
// Supported grammar:
//
//	<program> ::= ( <ident> "=" <expr> )*        one assignment per line
//	<expr>    ::= <or>
//	<or>      ::= <and> ( "||" <and> )*
//	<and>     ::= <cmp> ( "&&" <cmp> )*
//	<cmp>     ::= <sum> ( ("==" | "!=" | "<=" | ">=" | "<" | ">") <sum> )?
//	<sum>     ::= <term> ( ("+" | "-") <term> )*
//	<term>    ::= <unary> ( ("*" | "/" | "%") <unary> )*
//	<unary>   ::= "!" <unary> | "-" <unary> | <primary>
//	<primary> ::= number | quoted string | ident | "(" <expr> ")"
//
// Identifiers resolve against the environment the program runs with; an
// unbound identifier evaluates to nil.

// exprFn evaluates a compiled expression against an environment.
type exprFn func(env map[string]any) (any, error)

// assignment binds one output name to a compiled expression.
type assignment struct {
	target string
	expr   exprFn
}

// program is a compiled sequence of assignments. Later assignments see
// the results of earlier ones.
type program struct {
	assignments []assignment
}

// CompileProgram parses and compiles assignment logic. Compilation errors
// carry the offending line.
func CompileProgram(src string) (*program, error) {
	prog := &program{}
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		target, rest, ok := splitAssignment(line)
		if !ok {
			return nil, fmt.Errorf("line %q: expected \"name = expression\"", line)
		}
		p := &exprParser{input: rest}
		fn, err := p.parseOr()
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", line, err)
		}
		p.skipWS()
		if p.pos < len(p.input) {
			return nil, fmt.Errorf("line %q: unexpected trailing %q", line, p.input[p.pos:])
		}
		prog.assignments = append(prog.assignments, assignment{target: target, expr: fn})
	}
	if len(prog.assignments) == 0 {
		return nil, fmt.Errorf("logic has no assignments")
	}
	return prog, nil
}

// Run evaluates the program and returns the assigned values by name.
func (prog *program) Run(env map[string]any) (map[string]any, error) {
	scope := make(map[string]any, len(env)+len(prog.assignments))
	for k, v := range env {
		scope[k] = v
	}
	out := make(map[string]any, len(prog.assignments))
	for _, a := range prog.assignments {
		v, err := a.expr(scope)
		if err != nil {
			return nil, fmt.Errorf("assign %s: %w", a.target, err)
		}
		scope[a.target] = v
		out[a.target] = v
	}
	return out, nil
}

// Targets returns the output names the program assigns, in order.
func (prog *program) Targets() []string {
	out := make([]string, 0, len(prog.assignments))
	for _, a := range prog.assignments {
		out = append(out, a.target)
	}
	return out
}

// splitAssignment splits "name = expr" without tripping on == inside the
// expression.
func splitAssignment(line string) (target, expr string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] != '=' {
			continue
		}
		if i+1 < len(line) && line[i+1] == '=' {
			return "", "", false
		}
		target = strings.TrimSpace(line[:i])
		expr = strings.TrimSpace(line[i+1:])
		if target == "" || expr == "" || !isIdent(target) {
			return "", "", false
		}
		return target, expr, true
	}
	return "", "", false
}

func isIdent(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' ||
			(i > 0 && c >= '0' && c <= '9') {
			continue
		}
		return false
	}
	return s != ""
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) peek() string {
	if p.pos >= len(p.input) {
		return ""
	}
	return p.input[p.pos:]
}

func (p *exprParser) skipWS() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) parseOr() (exprFn, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if !strings.HasPrefix(p.peek(), "||") {
			break
		}
		p.pos += 2
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(env map[string]any) (any, error) {
			lv, err := l(env)
			if err != nil {
				return nil, err
			}
			if truthy(lv) {
				return true, nil
			}
			rv, err := r(env)
			if err != nil {
				return nil, err
			}
			return truthy(rv), nil
		}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (exprFn, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if !strings.HasPrefix(p.peek(), "&&") {
			break
		}
		p.pos += 2
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(env map[string]any) (any, error) {
			lv, err := l(env)
			if err != nil {
				return nil, err
			}
			if !truthy(lv) {
				return false, nil
			}
			rv, err := r(env)
			if err != nil {
				return nil, err
			}
			return truthy(rv), nil
		}
	}
	return left, nil
}

var cmpOps = []string{"==", "!=", "<=", ">=", "<", ">"}

func (p *exprParser) parseCmp() (exprFn, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipWS()
	for _, op := range cmpOps {
		if !strings.HasPrefix(p.peek(), op) {
			continue
		}
		p.pos += len(op)
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		l, r, op := left, right, op
		return func(env map[string]any) (any, error) {
			lv, err := l(env)
			if err != nil {
				return nil, err
			}
			rv, err := r(env)
			if err != nil {
				return nil, err
			}
			return compare(op, lv, rv)
		}, nil
	}
	return left, nil
}

func (p *exprParser) parseSum() (exprFn, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if p.pos >= len(p.input) {
			break
		}
		c := p.input[p.pos]
		if c != '+' && c != '-' {
			break
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = arith(string(c), left, right)
	}
	return left, nil
}

func (p *exprParser) parseTerm() (exprFn, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWS()
		if p.pos >= len(p.input) {
			break
		}
		c := p.input[p.pos]
		if c != '*' && c != '/' && c != '%' {
			break
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = arith(string(c), left, right)
	}
	return left, nil
}

func (p *exprParser) parseUnary() (exprFn, error) {
	p.skipWS()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	switch p.input[p.pos] {
	case '!':
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return func(env map[string]any) (any, error) {
			v, err := inner(env)
			if err != nil {
				return nil, err
			}
			return !truthy(v), nil
		}, nil
	case '-':
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return func(env map[string]any) (any, error) {
			v, err := inner(env)
			if err != nil {
				return nil, err
			}
			f, ok := toNumber(v)
			if !ok {
				return nil, fmt.Errorf("cannot negate %T", v)
			}
			return -f, nil
		}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (exprFn, error) {
	p.skipWS()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of expression")
	}
	c := p.input[p.pos]

	if c == '(' {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipWS()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, fmt.Errorf("expected ')'")
		}
		p.pos++
		return inner, nil
	}

	if c == '\'' || c == '"' {
		p.pos++
		start := p.pos
		for p.pos < len(p.input) && p.input[p.pos] != c {
			p.pos++
		}
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unterminated string")
		}
		s := p.input[start:p.pos]
		p.pos++
		return func(map[string]any) (any, error) { return s, nil }, nil
	}

	if c >= '0' && c <= '9' || c == '.' {
		start := p.pos
		for p.pos < len(p.input) {
			c := p.input[p.pos]
			if (c >= '0' && c <= '9') || c == '.' {
				p.pos++
			} else {
				break
			}
		}
		f, err := strconv.ParseFloat(p.input[start:p.pos], 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", p.input[start:p.pos])
		}
		return func(map[string]any) (any, error) { return f, nil }, nil
	}

	name := p.parseIdent()
	if name == "" {
		return nil, fmt.Errorf("unexpected %q at pos %d", string(c), p.pos)
	}
	switch name {
	case "true":
		return func(map[string]any) (any, error) { return true, nil }, nil
	case "false":
		return func(map[string]any) (any, error) { return false, nil }, nil
	}
	return func(env map[string]any) (any, error) { return env[name], nil }, nil
}

func (p *exprParser) parseIdent() string {
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '_' {
			p.pos++
		} else {
			break
		}
	}
	return p.input[start:p.pos]
}

func arith(op string, l, r exprFn) exprFn {
	return func(env map[string]any) (any, error) {
		lv, err := l(env)
		if err != nil {
			return nil, err
		}
		rv, err := r(env)
		if err != nil {
			return nil, err
		}
		if op == "+" {
			// + concatenates when either side is a string.
			if ls, ok := lv.(string); ok {
				return ls + fmt.Sprintf("%v", rv), nil
			}
			if rs, ok := rv.(string); ok {
				return fmt.Sprintf("%v", lv) + rs, nil
			}
		}
		lf, lok := toNumber(lv)
		rf, rok := toNumber(rv)
		if !lok || !rok {
			return nil, fmt.Errorf("operator %q needs numbers, got %T and %T", op, lv, rv)
		}
		switch op {
		case "+":
			return lf + rf, nil
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			if rf == 0 {
				return nil, fmt.Errorf("division by zero")
			}
			return lf / rf, nil
		case "%":
			if rf == 0 {
				return nil, fmt.Errorf("modulo by zero")
			}
			return math.Mod(lf, rf), nil
		}
		return nil, fmt.Errorf("unknown operator %q", op)
	}
}

func compare(op string, lv, rv any) (any, error) {
	lf, lok := toNumber(lv)
	rf, rok := toNumber(rv)
	if lok && rok {
		switch op {
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
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
	ls := fmt.Sprintf("%v", lv)
	rs := fmt.Sprintf("%v", rv)
	switch op {
	case "==":
		return ls == rs, nil
	case "!=":
		return ls != rs, nil
	case "<":
		return ls < rs, nil
	case "<=":
		return ls <= rs, nil
	case ">":
		return ls > rs, nil
	case ">=":
		return ls >= rs, nil
	}
	return nil, fmt.Errorf("unknown comparison %q", op)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	}
	if f, ok := toNumber(v); ok {
		return f != 0
	}
	return true
}
