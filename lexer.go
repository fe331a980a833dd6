package glint

import (
	"strings"
	"unicode/utf8"
)

// Lexer splits glint source text into tokens
type Lexer struct {
	src    string
	pos    int
	tokens []Token
}

// Tokenize lexes the whole source, returning the tokens terminated by TokEOF
func Tokenize(src string) ([]Token, error) {
	lx := &Lexer{src: src}
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		lx.tokens = append(lx.tokens, tok)
		if tok.Kind == TokEOF {
			return lx.tokens, nil
		}
	}
}

func (lx *Lexer) errorAt(start, end int, message string) error {
	return &ParseError{Source: lx.src, Span: Span{start, end}, Message: message}
}

func (lx *Lexer) peekByte(offset int) byte {
	if lx.pos+offset < len(lx.src) {
		return lx.src[lx.pos+offset]
	}
	return 0
}

// previousIsDot reports whether the last emitted token was a '.', which makes
// a following number a tuple index rather than a float
func (lx *Lexer) previousIsDot() bool {
	n := len(lx.tokens)
	return n > 0 && lx.tokens[n-1].Kind == TokDot && lx.tokens[n-1].Span.End == lx.pos
}

func (lx *Lexer) skipTrivia() {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.pos++
		case c == '/' && lx.peekByte(1) == '/':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}
		default:
			return
		}
	}
}

func (lx *Lexer) next() (Token, error) {
	lx.skipTrivia()
	start := lx.pos
	if lx.pos >= len(lx.src) {
		return Token{Kind: TokEOF, Span: Span{start, start}}, nil
	}

	c := lx.src[lx.pos]
	switch {
	case isLower(c) || c == '_':
		for lx.pos < len(lx.src) && isIdentChar(lx.src[lx.pos]) {
			lx.pos++
		}
		text := lx.src[start:lx.pos]
		if c == '_' {
			return Token{Kind: TokDiscardName, Text: text, Span: Span{start, lx.pos}}, nil
		}
		if kw, ok := keywords[text]; ok {
			return Token{Kind: kw, Text: text, Span: Span{start, lx.pos}}, nil
		}
		return Token{Kind: TokName, Text: text, Span: Span{start, lx.pos}}, nil

	case isUpper(c):
		for lx.pos < len(lx.src) && isIdentChar(lx.src[lx.pos]) {
			lx.pos++
		}
		return Token{Kind: TokUpName, Text: lx.src[start:lx.pos], Span: Span{start, lx.pos}}, nil

	case isDigit(c):
		return lx.number(start)

	case c == '"':
		return lx.stringLiteral(start)
	}

	return lx.operator(start)
}

func (lx *Lexer) number(start int) (Token, error) {
	tupleIndex := lx.previousIsDot()
	for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
		lx.pos++
	}
	kind := TokInt
	if !tupleIndex && lx.peekByte(0) == '.' && isDigit(lx.peekByte(1)) {
		kind = TokFloat
		lx.pos++
		for lx.pos < len(lx.src) && (isDigit(lx.src[lx.pos]) || lx.src[lx.pos] == '_') {
			lx.pos++
		}
		if lx.peekByte(0) == 'e' {
			save := lx.pos
			lx.pos++
			if lx.peekByte(0) == '-' || lx.peekByte(0) == '+' {
				lx.pos++
			}
			if !isDigit(lx.peekByte(0)) {
				lx.pos = save
			} else {
				for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
					lx.pos++
				}
			}
		}
	}
	if lx.pos < len(lx.src) && isIdentChar(lx.src[lx.pos]) {
		return Token{}, lx.errorAt(start, lx.pos+1, "invalid number literal")
	}
	text := strings.ReplaceAll(lx.src[start:lx.pos], "_", "")
	return Token{Kind: kind, Text: text, Span: Span{start, lx.pos}}, nil
}

func (lx *Lexer) stringLiteral(start int) (Token, error) {
	lx.pos++
	var sb strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return Token{}, lx.errorAt(start, lx.pos, "unterminated string")
		}
		c := lx.src[lx.pos]
		if c == '"' {
			lx.pos++
			return Token{Kind: TokString, Text: sb.String(), Span: Span{start, lx.pos}}, nil
		}
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			sb.WriteRune(r)
			lx.pos += size
			continue
		}
		escStart := lx.pos
		lx.pos++
		switch lx.peekByte(0) {
		case '"':
			sb.WriteByte('"')
		case '\\':
			sb.WriteByte('\\')
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'f':
			sb.WriteByte('\f')
		case 'u':
			r, err := lx.unicodeEscape(escStart)
			if err != nil {
				return Token{}, err
			}
			sb.WriteRune(r)
			continue
		default:
			return Token{}, lx.errorAt(escStart, lx.pos+1, "unknown escape sequence")
		}
		lx.pos++
	}
}

// unicodeEscape reads \u{XXXX}; lx.pos points at the 'u'
func (lx *Lexer) unicodeEscape(escStart int) (rune, error) {
	lx.pos++
	if lx.peekByte(0) != '{' {
		return 0, lx.errorAt(escStart, lx.pos, "expected '{' in unicode escape")
	}
	lx.pos++
	var r rune
	digits := 0
	for lx.pos < len(lx.src) && lx.src[lx.pos] != '}' {
		d := hexValue(lx.src[lx.pos])
		if d < 0 || digits >= 6 {
			return 0, lx.errorAt(escStart, lx.pos+1, "invalid unicode escape")
		}
		r = r*16 + rune(d)
		digits++
		lx.pos++
	}
	if lx.pos >= len(lx.src) || digits == 0 || !utf8.ValidRune(r) {
		return 0, lx.errorAt(escStart, lx.pos, "invalid unicode escape")
	}
	lx.pos++
	return r, nil
}

// operators ordered so that longer spellings win
var operatorTable = []struct {
	text string
	kind TokenKind
}{
	{"<=.", TokLessEqDot},
	{">=.", TokGreaterEqDot},
	{"..", TokDotDot},
	{"->", TokRArrow},
	{"<-", TokLArrow},
	{"|>", TokPipe},
	{"||", TokOrOr},
	{"&&", TokAndAnd},
	{"==", TokEqEq},
	{"!=", TokNotEq},
	{"<>", TokConcat},
	{"<=", TokLessEq},
	{">=", TokGreaterEq},
	{"<.", TokLessDot},
	{">.", TokGreaterDot},
	{"+.", TokPlusDot},
	{"-.", TokMinusDot},
	{"*.", TokStarDot},
	{"/.", TokSlashDot},
	{"(", TokLParen},
	{")", TokRParen},
	{"[", TokLBracket},
	{"]", TokRBracket},
	{"{", TokLBrace},
	{"}", TokRBrace},
	{",", TokComma},
	{":", TokColon},
	{".", TokDot},
	{"=", TokEqual},
	{"|", TokBar},
	{"#", TokHash},
	{"@", TokAt},
	{"+", TokPlus},
	{"-", TokMinus},
	{"*", TokStar},
	{"/", TokSlash},
	{"%", TokPercent},
	{"<", TokLess},
	{">", TokGreater},
	{"!", TokBang},
}

func (lx *Lexer) operator(start int) (Token, error) {
	rest := lx.src[lx.pos:]
	for _, op := range operatorTable {
		if strings.HasPrefix(rest, op.text) {
			lx.pos += len(op.text)
			return Token{Kind: op.kind, Text: op.text, Span: Span{start, lx.pos}}, nil
		}
	}
	_, size := utf8.DecodeRuneInString(rest)
	return Token{}, lx.errorAt(start, start+size, "unexpected character")
}

func isLower(c byte) bool     { return c >= 'a' && c <= 'z' }
func isUpper(c byte) bool     { return c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isIdentChar(c byte) bool { return isLower(c) || isUpper(c) || isDigit(c) || c == '_' }

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}
