package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formbuilder/pkg/derive"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdentifier
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenPercent
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenAnd
	tokenOr
	tokenNot
	tokenQuestion
	tokenColon
	tokenComma
	tokenLParen
	tokenRParen
)

var tokenNames = map[tokenKind]string{
	tokenEOF:      "end of expression",
	tokenPlus:     "+",
	tokenMinus:    "-",
	tokenStar:     "*",
	tokenSlash:    "/",
	tokenPercent:  "%",
	tokenEq:       "==",
	tokenNeq:      "!=",
	tokenLt:       "<",
	tokenLte:      "<=",
	tokenGt:       ">",
	tokenGte:      ">=",
	tokenAnd:      "&&",
	tokenOr:       "||",
	tokenNot:      "!",
	tokenQuestion: "?",
	tokenColon:    ":",
	tokenComma:    ",",
	tokenLParen:   "(",
	tokenRParen:   ")",
}

func (k tokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return "token"
}

type token struct {
	kind tokenKind
	raw  string
	pos  int
}

func syntaxErrorf(format string, args ...any) error {
	return fmt.Errorf("derive/expr: %w: %s", derive.ErrSyntax, fmt.Sprintf(format, args...))
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// tokenize splits input into tokens. Field ids that are not plain
// identifiers (for example "field-12") can be written between backticks.
func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	peek := func(offset int) byte {
		if i+offset >= len(input) {
			return 0
		}
		return input[i+offset]
	}

	emit := func(kind tokenKind, raw string, start int) {
		tokens = append(tokens, token{kind: kind, raw: raw, pos: start})
	}

	for i < len(input) {
		ch := input[i]
		if isSpace(ch) {
			i++
			continue
		}
		start := i

		switch ch {
		case '(':
			i++
			emit(tokenLParen, "(", start)
		case ')':
			i++
			emit(tokenRParen, ")", start)
		case ',':
			i++
			emit(tokenComma, ",", start)
		case '?':
			i++
			emit(tokenQuestion, "?", start)
		case ':':
			i++
			emit(tokenColon, ":", start)
		case '+':
			i++
			emit(tokenPlus, "+", start)
		case '-':
			i++
			emit(tokenMinus, "-", start)
		case '*':
			i++
			emit(tokenStar, "*", start)
		case '/':
			i++
			emit(tokenSlash, "/", start)
		case '%':
			i++
			emit(tokenPercent, "%", start)
		case '!':
			if peek(1) == '=' {
				i += 2
				if peek(0) == '=' {
					i++
				}
				emit(tokenNeq, "!=", start)
				continue
			}
			i++
			emit(tokenNot, "!", start)
		case '=':
			if peek(1) != '=' {
				return nil, syntaxErrorf("unexpected '=' at %d; use '=='", start)
			}
			i += 2
			if peek(0) == '=' {
				i++
			}
			emit(tokenEq, "==", start)
		case '<':
			if peek(1) == '=' {
				i += 2
				emit(tokenLte, "<=", start)
				continue
			}
			i++
			emit(tokenLt, "<", start)
		case '>':
			if peek(1) == '=' {
				i += 2
				emit(tokenGte, ">=", start)
				continue
			}
			i++
			emit(tokenGt, ">", start)
		case '&':
			if peek(1) != '&' {
				return nil, syntaxErrorf("unexpected '&' at %d; use '&&'", start)
			}
			i += 2
			emit(tokenAnd, "&&", start)
		case '|':
			if peek(1) != '|' {
				return nil, syntaxErrorf("unexpected '|' at %d; use '||'", start)
			}
			i += 2
			emit(tokenOr, "||", start)
		case '"', '\'':
			value, next, err := scanString(input, i)
			if err != nil {
				return nil, err
			}
			i = next
			emit(tokenString, value, start)
		case '`':
			end := strings.IndexByte(input[i+1:], '`')
			if end < 0 {
				return nil, syntaxErrorf("unterminated quoted name at %d", start)
			}
			name := input[i+1 : i+1+end]
			if strings.TrimSpace(name) == "" {
				return nil, syntaxErrorf("empty quoted name at %d", start)
			}
			i += end + 2
			emit(tokenIdentifier, name, start)
		default:
			switch {
			case isDigit(ch) || (ch == '.' && isDigit(peek(1))):
				next := scanNumber(input, i)
				raw := input[i:next]
				if _, err := strconv.ParseFloat(raw, 64); err != nil {
					return nil, syntaxErrorf("invalid number %q at %d", raw, start)
				}
				i = next
				emit(tokenNumber, raw, start)
			case isIdentStart(ch):
				for i < len(input) && isIdentPart(input[i]) {
					i++
				}
				raw := input[start:i]
				switch raw {
				case "true", "false":
					emit(tokenBool, raw, start)
				case "null":
					emit(tokenNull, raw, start)
				default:
					emit(tokenIdentifier, raw, start)
				}
			default:
				return nil, syntaxErrorf("unexpected character %q at %d", ch, start)
			}
		}
	}

	tokens = append(tokens, token{kind: tokenEOF, pos: len(input)})
	return tokens, nil
}

func scanString(input string, start int) (string, int, error) {
	quote := input[start]
	i := start + 1
	escaped := false
	for i < len(input) {
		c := input[i]
		i++
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		value, err := unescape(input[start+1 : i-1])
		if err != nil {
			return "", 0, syntaxErrorf("invalid string literal at %d: %v", start, err)
		}
		return value, i, nil
	}
	return "", 0, syntaxErrorf("unterminated string literal at %d", start)
}

func unescape(body string) (string, error) {
	if !strings.Contains(body, "\\") {
		return body, nil
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("dangling escape")
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\', '\'', '"', '`':
			b.WriteByte(body[i])
		default:
			return "", fmt.Errorf("unknown escape \\%c", body[i])
		}
	}
	return b.String(), nil
}

func scanNumber(input string, start int) int {
	i := start
	for i < len(input) && isDigit(input[i]) {
		i++
	}
	if i < len(input) && input[i] == '.' {
		i++
		for i < len(input) && isDigit(input[i]) {
			i++
		}
	}
	if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
		j := i + 1
		if j < len(input) && (input[j] == '+' || input[j] == '-') {
			j++
		}
		if j < len(input) && isDigit(input[j]) {
			i = j
			for i < len(input) && isDigit(input[i]) {
				i++
			}
		}
	}
	return i
}
