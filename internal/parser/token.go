package parser

type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNewline
	TokenIndent
	TokenDate
	TokenFlag
	TokenString
	TokenText
	TokenAccount
	TokenNumber
	TokenCommodity
	TokenComment
	TokenKeyword
	TokenTag
	TokenLink
	TokenAt
	TokenAtAt
	TokenLBrace
	TokenRBrace
	TokenComma
)

type Position struct {
	Line   int
	Column int
	Offset int
}

type Token struct {
	Type  TokenType
	Value string
	Pos   Position
	End   Position
}

func (t TokenType) String() string {
	names := []string{
		"EOF", "Newline", "Indent", "Date", "Flag", "String",
		"Text", "Account", "Number", "Commodity", "Comment",
		"Keyword", "Tag", "Link", "At", "AtAt", "LBrace", "RBrace", "Comma",
	}
	if int(t) < len(names) {
		return names[t]
	}
	return "Unknown"
}
