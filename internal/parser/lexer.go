package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	input   string
	pos     int
	line    int
	column  int
	atStart bool
}

func NewLexer(input string) *Lexer {
	return &Lexer{
		input:   input,
		pos:     0,
		line:    1,
		column:  1,
		atStart: true,
	}
}

func (l *Lexer) Next() Token {
	if l.pos >= len(l.input) {
		return l.makeToken(TokenEOF, "")
	}

	if l.atStart && l.column == 1 {
		return l.scanLineStart()
	}

	return l.scanInLine()
}

func (l *Lexer) scanLineStart() Token {
	l.atStart = false

	ch := l.peek()
	if ch == ';' || ch == '#' || ch == '*' {
		return l.scanComment()
	}

	if ch == '\r' {
		l.advance()
		return l.scanInLine()
	}

	if l.isWhitespace(ch) && ch != '\n' {
		return l.scanIndent()
	}

	if l.isDigit(ch) {
		return l.scanDate()
	}

	return l.scanInLine()
}

func (l *Lexer) scanInLine() Token {
	l.skipSpaces()

	if l.pos >= len(l.input) {
		return l.makeToken(TokenEOF, "")
	}

	ch := l.peek()

	switch {
	case ch == '\n':
		return l.scanNewline()
	case ch == ';':
		return l.scanComment()
	case ch == '"':
		return l.scanString()
	case ch == '@':
		return l.scanAt()
	case ch == '{':
		return l.single(TokenLBrace)
	case ch == '}':
		return l.single(TokenRBrace)
	case ch == ',':
		return l.single(TokenComma)
	case ch == '*' || ch == '!':
		return l.scanFlag()
	case ch == '#' || ch == '^':
		return l.scanTagOrLink()
	case ch == '-' || ch == '+' || l.isDigit(ch):
		if l.isDigit(ch) && l.looksLikeDate() {
			return l.scanDate()
		}
		return l.scanNumber()
	case l.isLetter(ch):
		return l.scanWord()
	default:
		return l.scanText()
	}
}

func (l *Lexer) single(typ TokenType) Token {
	startPos := l.position()
	value := string(l.peek())
	l.advance()
	return Token{Type: typ, Value: value, Pos: startPos, End: l.position()}
}

func (l *Lexer) scanDate() Token {
	start := l.pos
	startPos := l.position()

	for l.pos < len(l.input) {
		ch := l.peek()
		if l.isDigit(ch) || ch == '-' || ch == '/' {
			l.advance()
		} else {
			break
		}
	}

	value := l.input[start:l.pos]
	return Token{Type: TokenDate, Value: value, Pos: startPos, End: l.position()}
}

func (l *Lexer) scanFlag() Token {
	startPos := l.position()
	ch := l.peek()
	l.advance()
	return Token{Type: TokenFlag, Value: string(ch), Pos: startPos, End: l.position()}
}

func (l *Lexer) scanComment() Token {
	startPos := l.position()
	l.advance()

	start := l.pos
	for l.pos < len(l.input) && l.peek() != '\n' {
		l.advance()
	}

	value := strings.TrimRight(l.input[start:l.pos], "\r")
	return Token{Type: TokenComment, Value: value, Pos: startPos, End: l.position()}
}

func (l *Lexer) scanIndent() Token {
	start := l.pos
	startPos := l.position()

	for l.pos < len(l.input) && l.isWhitespace(l.peek()) && l.peek() != '\n' {
		l.advance()
	}

	value := l.input[start:l.pos]
	return Token{Type: TokenIndent, Value: value, Pos: startPos, End: l.position()}
}

func (l *Lexer) scanNewline() Token {
	startPos := l.position()
	l.advance()
	l.line++
	l.column = 1
	l.atStart = true
	return Token{Type: TokenNewline, Value: "\n", Pos: startPos, End: l.position()}
}

func (l *Lexer) scanString() Token {
	startPos := l.position()
	l.advance()

	var sb strings.Builder
	for l.pos < len(l.input) && l.peek() != '"' && l.peek() != '\n' {
		if l.peek() == '\\' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '"' {
			l.advance()
		}
		r := l.peekRune()
		sb.WriteRune(r)
		l.advance()
	}

	if l.pos < len(l.input) && l.peek() == '"' {
		l.advance()
	}

	return Token{Type: TokenString, Value: sb.String(), Pos: startPos, End: l.position()}
}

func (l *Lexer) scanTagOrLink() Token {
	startPos := l.position()
	typ := TokenTag
	if l.peek() == '^' {
		typ = TokenLink
	}
	l.advance()

	start := l.pos
	for l.pos < len(l.input) {
		ch := l.peek()
		if l.isLetter(ch) || l.isDigit(ch) || ch == '-' || ch == '_' || ch == '/' || ch == '.' {
			l.advance()
			continue
		}
		break
	}

	return Token{Type: typ, Value: l.input[start:l.pos], Pos: startPos, End: l.position()}
}

func (l *Lexer) scanAccount() Token {
	start := l.pos
	startPos := l.position()

	for l.pos < len(l.input) {
		ch := l.peek()
		if ch >= utf8.RuneSelf {
			if unicode.IsLetter(l.peekRune()) || unicode.IsDigit(l.peekRune()) {
				l.advance()
				continue
			}
			break
		}
		if !l.isLetter(ch) && !l.isDigit(ch) && ch != ':' && ch != '-' && ch != '_' {
			break
		}
		l.advance()
	}

	value := l.input[start:l.pos]
	return Token{Type: TokenAccount, Value: value, Pos: startPos, End: l.position()}
}

func (l *Lexer) scanNumber() Token {
	start := l.pos
	startPos := l.position()

	if l.peek() == '-' || l.peek() == '+' {
		l.advance()
	}

	for l.pos < len(l.input) && (l.isDigit(l.peek()) || l.peek() == '.' || l.peek() == ',') {
		if l.peek() == ',' && !(l.pos+1 < len(l.input) && l.isDigit(l.input[l.pos+1])) {
			break
		}
		l.advance()
	}

	value := l.input[start:l.pos]
	return Token{Type: TokenNumber, Value: value, Pos: startPos, End: l.position()}
}

func (l *Lexer) scanAt() Token {
	startPos := l.position()
	l.advance()

	if l.pos < len(l.input) && l.peek() == '@' {
		l.advance()
		return Token{Type: TokenAtAt, Value: "@@", Pos: startPos, End: l.position()}
	}

	return Token{Type: TokenAt, Value: "@", Pos: startPos, End: l.position()}
}

// scanWord classifies a bare word: capitalised words with a colon are
// accounts, all-uppercase words are commodities, known lowercase words
// are keywords and anything else is text.
func (l *Lexer) scanWord() Token {
	if l.isUpper(l.peek()) && l.looksLikeAccount() {
		return l.scanAccount()
	}

	start := l.pos
	startPos := l.position()

	for l.pos < len(l.input) {
		ch := l.peek()
		if l.isLetter(ch) || l.isDigit(ch) || ch == '_' || ch == '-' || ch == '.' || ch == '\'' {
			l.advance()
		} else {
			break
		}
	}

	word := l.input[start:l.pos]

	if l.looksLikeCommodity(word) {
		return Token{Type: TokenCommodity, Value: word, Pos: startPos, End: l.position()}
	}

	if isKeyword(word) {
		return Token{Type: TokenKeyword, Value: word, Pos: startPos, End: l.position()}
	}

	l.pos = start
	l.column = startPos.Column
	return l.scanText()
}

func (l *Lexer) scanText() Token {
	start := l.pos
	startPos := l.position()

	for l.pos < len(l.input) {
		ch := l.peek()
		if ch == '\n' || ch == ';' || ch == '"' {
			break
		}
		l.advance()
	}

	value := strings.TrimSpace(l.input[start:l.pos])
	return Token{Type: TokenText, Value: value, Pos: startPos, End: l.position()}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekRune() rune {
	if l.pos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		_, size := utf8.DecodeRuneInString(l.input[l.pos:])
		l.pos += size
		l.column++
	}
}

func (l *Lexer) skipSpaces() {
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t' || l.input[l.pos] == '\r') {
		l.advance()
	}
}

func (l *Lexer) position() Position {
	return Position{Line: l.line, Column: l.column, Offset: l.pos}
}

func (l *Lexer) makeToken(typ TokenType, value string) Token {
	pos := l.position()
	return Token{Type: typ, Value: value, Pos: pos, End: pos}
}

func (l *Lexer) isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func (l *Lexer) isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func (l *Lexer) isUpper(ch byte) bool {
	return ch >= 'A' && ch <= 'Z'
}

func (l *Lexer) looksLikeAccount() bool {
	for i := l.pos; i < len(l.input); i++ {
		ch := l.input[i]
		if ch == ':' {
			return i+1 < len(l.input) && !l.isWhitespace(l.input[i+1])
		}
		if ch >= utf8.RuneSelf {
			continue
		}
		if !l.isLetter(ch) && !l.isDigit(ch) && ch != '-' && ch != '_' {
			return false
		}
	}
	return false
}

func (l *Lexer) looksLikeCommodity(value string) bool {
	if len(value) == 0 || !l.isUpper(value[0]) {
		return false
	}
	for _, r := range value {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) && r != '.' && r != '_' && r != '-' && r != '\'' {
			return false
		}
	}
	return true
}

func (l *Lexer) looksLikeDate() bool {
	if l.pos+10 > len(l.input) {
		return false
	}

	for i := 0; i < 4; i++ {
		if !l.isDigit(l.input[l.pos+i]) {
			return false
		}
	}

	sep := l.input[l.pos+4]
	if sep != '-' && sep != '/' {
		return false
	}

	return l.isDigit(l.input[l.pos+5]) && l.isDigit(l.input[l.pos+6]) && l.input[l.pos+7] == sep
}

func isKeyword(word string) bool {
	keywords := []string{
		"open", "close", "custom", "price", "txn", "balance", "pad",
		"note", "event", "document", "commodity", "query",
		"option", "include", "plugin", "pushtag", "poptag",
	}
	for _, k := range keywords {
		if word == k {
			return true
		}
	}
	return false
}
