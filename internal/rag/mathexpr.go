package rag

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// mathFillerWords are conversational wrappers stripped before looking for an
// arithmetic expression ("combien font 2+2 ?" -> "2+2").
var mathFillerWords = []string{
	"combien font", "combien fait", "combien ça fait", "ça fait combien",
	"calcule-moi", "calcule", "quel est le résultat de", "résultat de",
	"c'est combien", "stp", "s'il te plaît", "svp",
}

const maxMathExprLength = 80

// extractMathExpression strips filler words and returns a candidate arithmetic
// expression, or "" if the question does not look like one. The candidate is
// validated against a strict character whitelist and a length cap before any
// evaluation happens.
func extractMathExpression(question string) string {
	s := strings.ToLower(strings.TrimSpace(question))
	s = strings.TrimSuffix(s, "?")
	s = strings.TrimSuffix(s, "=")
	for _, filler := range mathFillerWords {
		s = strings.ReplaceAll(s, filler, " ")
	}
	s = strings.TrimSpace(s)

	if s == "" || len(s) > maxMathExprLength {
		return ""
	}

	var digits, operators int
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == '*' || r == '/':
			operators++
		case r == '(' || r == ')' || r == '.' || r == ',' || r == ' ':
		default:
			return ""
		}
	}
	if digits == 0 || operators == 0 {
		return ""
	}
	return s
}

// evalArithmetic evaluates a whitelisted arithmetic expression with a small
// recursive-descent parser. Only + - * / ( ), unary minus and decimal numbers
// (dot or comma separator) are accepted; user-derived strings are never
// executed through anything more general than this.
func evalArithmetic(expr string) (float64, error) {
	p := &exprParser{input: strings.ReplaceAll(expr, ",", ".")}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character at position %d", p.pos)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("result is not a finite number")
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

// parseExpr handles + and -.
func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// parseTerm handles * and /.
func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
}

// parseFactor handles numbers, parentheses and unary minus.
func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpaces()
	switch {
	case p.peek() == '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	case p.peek() == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	default:
		return p.parseNumber()
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if (ch >= '0' && ch <= '9') || ch == '.' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected a number at position %d", start)
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

// formatMathResult renders a computed value without trailing zeros.
func formatMathResult(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
