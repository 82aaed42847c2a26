package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/juev/envelope/internal/ast"
)

type ParseError struct {
	Message string
	Pos     Position
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

type Parser struct {
	lexer   *Lexer
	current Token
	errors  []ParseError
	tags    []string
}

func Parse(input string) (*ast.Journal, []ParseError) {
	p := &Parser{
		lexer: NewLexer(input),
	}
	p.advance()
	return p.parseJournal(), p.errors
}

func (p *Parser) parseJournal() *ast.Journal {
	journal := &ast.Journal{}

	for p.current.Type != TokenEOF {
		switch p.current.Type {
		case TokenNewline:
			p.advance()
		case TokenComment:
			journal.Comments = append(journal.Comments, p.parseComment())
		case TokenDate:
			p.parseDated(journal)
		case TokenKeyword:
			dir := p.parseUndatedDirective()
			if dir != nil {
				if inc, ok := dir.(ast.Include); ok {
					journal.Includes = append(journal.Includes, inc)
				} else {
					journal.Directives = append(journal.Directives, dir)
				}
			}
		case TokenIndent:
			// metadata or a stray continuation line
			p.skipToNextLine()
		default:
			p.error("unexpected token: %s", p.current.Type)
			p.skipToNextLine()
		}
	}

	return journal
}

func (p *Parser) parseDated(journal *ast.Journal) {
	startPos := p.current.Pos
	date := p.parseDate()
	if date == nil {
		p.skipEntry()
		return
	}

	switch {
	case p.current.Type == TokenFlag || (p.current.Type == TokenKeyword && p.current.Value == "txn"):
		tx := p.parseTransaction(*date, startPos)
		journal.Transactions = append(journal.Transactions, *tx)
		return
	case p.current.Type != TokenKeyword:
		p.error("expected directive after date, got %s", p.current.Type)
		p.skipEntry()
		return
	}

	keyword := p.current.Value
	p.advance()

	var dir ast.Directive
	switch keyword {
	case "open":
		dir = p.parseOpen(*date, startPos)
	case "close":
		dir = p.parseClose(*date, startPos)
	case "price":
		dir = p.parsePriceDirective(*date, startPos)
	case "custom":
		dir = p.parseCustom(*date, startPos)
	case "balance", "pad", "note", "event", "document", "commodity", "query":
		p.skipEntry()
		return
	default:
		p.error("unexpected directive: %s", keyword)
		p.skipEntry()
		return
	}

	if dir == nil {
		p.skipEntry()
		return
	}
	journal.Directives = append(journal.Directives, dir)
	p.skipMetadata()
}

func (p *Parser) parseTransaction(date ast.Date, startPos Position) *ast.Transaction {
	tx := &ast.Transaction{Date: date}
	tx.Range.Start = toASTPosition(startPos)

	if p.current.Type == TokenFlag {
		switch p.current.Value {
		case "*":
			tx.Flag = ast.FlagCleared
		case "!":
			tx.Flag = ast.FlagPending
		}
	}
	p.advance()

	var strs []string
	for p.current.Type == TokenString {
		strs = append(strs, p.current.Value)
		p.advance()
	}
	switch len(strs) {
	case 0:
	case 1:
		tx.Narration = strs[0]
	default:
		tx.Payee = strs[0]
		tx.Narration = strs[1]
	}

	tx.Tags = append(tx.Tags, p.tags...)
	for p.current.Type == TokenTag || p.current.Type == TokenLink {
		if p.current.Type == TokenTag {
			tx.Tags = append(tx.Tags, p.current.Value)
		} else {
			tx.Links = append(tx.Links, p.current.Value)
		}
		p.advance()
	}

	if p.current.Type == TokenComment {
		tx.Comments = append(tx.Comments, p.parseComment())
	}

	if p.current.Type != TokenNewline && p.current.Type != TokenEOF {
		p.error("unexpected token in transaction header: %s", p.current.Type)
		p.skipToNextLine()
	} else if p.current.Type == TokenNewline {
		p.advance()
	}

	for p.current.Type == TokenIndent {
		posting := p.parsePosting()
		if posting != nil {
			tx.Postings = append(tx.Postings, *posting)
		}
		if p.current.Type == TokenNewline {
			p.advance()
		}
	}

	tx.Range.End = toASTPosition(p.current.Pos)
	return tx
}

func (p *Parser) parseDate() *ast.Date {
	if p.current.Type != TokenDate {
		p.error("expected date")
		return nil
	}

	value := p.current.Value
	pos := p.current.Pos
	p.advance()

	date, err := parseDateValue(value)
	if err != nil {
		p.errorAt(pos, "%s", err.Error())
		return nil
	}
	date.Range = ast.Range{Start: toASTPosition(pos)}
	return date
}

func parseDateValue(value string) (*ast.Date, error) {
	sep := "-"
	if strings.Contains(value, "/") {
		sep = "/"
	}

	parts := strings.Split(value, sep)
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid date format: %s", value)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid year: %s", parts[0])
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month: %s", parts[1])
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > 31 {
		return nil, fmt.Errorf("invalid day: %s", parts[2])
	}

	return &ast.Date{Year: year, Month: month, Day: day}, nil
}

func (p *Parser) parsePosting() *ast.Posting {
	if p.current.Type != TokenIndent {
		return nil
	}
	p.advance()

	if p.current.Type == TokenComment {
		p.advance()
		return nil
	}

	if p.current.Type == TokenNewline || p.current.Type == TokenEOF {
		return nil
	}

	posting := &ast.Posting{}
	posting.Range.Start = toASTPosition(p.current.Pos)

	if p.current.Type == TokenFlag {
		switch p.current.Value {
		case "*":
			posting.Flag = ast.FlagCleared
		case "!":
			posting.Flag = ast.FlagPending
		}
		p.advance()
	}

	if p.current.Type != TokenAccount {
		// posting metadata (key: value) and anything else indented
		p.skipToNextLine()
		return nil
	}

	posting.Account = ast.Account{
		Name:  p.current.Value,
		Parts: strings.Split(p.current.Value, ":"),
		Range: ast.Range{Start: toASTPosition(p.current.Pos)},
	}
	p.advance()

	if p.current.Type == TokenNumber {
		amount := p.parseAmount()
		if amount != nil {
			posting.Amount = amount
		}
	}

	if p.current.Type == TokenLBrace {
		p.skipCost()
	}

	if p.current.Type == TokenAt || p.current.Type == TokenAtAt {
		posting.Price = p.parsePrice()
	}

	if p.current.Type == TokenComment {
		posting.Comment = p.current.Value
		p.advance()
	}

	if p.current.Type != TokenNewline && p.current.Type != TokenEOF {
		p.error("unexpected token in posting: %s", p.current.Type)
		for p.current.Type != TokenNewline && p.current.Type != TokenEOF {
			p.advance()
		}
	}

	posting.Range.End = toASTPosition(p.current.Pos)
	return posting
}

func (p *Parser) parseAmount() *ast.Amount {
	amount := &ast.Amount{}
	amount.Range.Start = toASTPosition(p.current.Pos)

	if p.current.Type != TokenNumber {
		p.error("expected number")
		return nil
	}

	qty, err := parseNumber(p.current.Value)
	if err != nil {
		p.error("invalid number: %s", p.current.Value)
		p.advance()
		return nil
	}
	amount.Quantity = qty
	p.advance()

	if p.current.Type == TokenCommodity {
		amount.Commodity = p.current.Value
		p.advance()
	}

	amount.Range.End = toASTPosition(p.current.Pos)
	return amount
}

func parseNumber(value string) (decimal.Decimal, error) {
	value = strings.ReplaceAll(value, ",", "")
	value = strings.TrimPrefix(value, "+")
	return decimal.NewFromString(value)
}

func (p *Parser) parsePrice() *ast.Price {
	price := &ast.Price{}
	price.Range.Start = toASTPosition(p.current.Pos)

	if p.current.Type == TokenAtAt {
		price.IsTotal = true
	}
	p.advance()

	amount := p.parseAmount()
	if amount == nil {
		return nil
	}
	price.Amount = *amount
	price.Range.End = toASTPosition(p.current.Pos)
	return price
}

// skipCost drops a {...} cost specification; lot tracking is not modelled.
func (p *Parser) skipCost() {
	for p.current.Type != TokenRBrace && p.current.Type != TokenNewline && p.current.Type != TokenEOF {
		p.advance()
	}
	if p.current.Type == TokenRBrace {
		p.advance()
	}
}

func (p *Parser) parseOpen(date ast.Date, startPos Position) ast.Directive {
	if p.current.Type != TokenAccount {
		p.error("expected account name")
		return nil
	}

	dir := ast.OpenDirective{
		Date:    date,
		Account: p.account(),
		Range:   ast.Range{Start: toASTPosition(startPos)},
	}

	for p.current.Type == TokenCommodity || p.current.Type == TokenComma {
		if p.current.Type == TokenCommodity {
			dir.Commodities = append(dir.Commodities, p.current.Value)
		}
		p.advance()
	}

	dir.Range.End = toASTPosition(p.current.Pos)
	p.skipToNextLine()
	return dir
}

func (p *Parser) parseClose(date ast.Date, startPos Position) ast.Directive {
	if p.current.Type != TokenAccount {
		p.error("expected account name")
		return nil
	}

	dir := ast.CloseDirective{
		Date:    date,
		Account: p.account(),
		Range:   ast.Range{Start: toASTPosition(startPos)},
	}
	dir.Range.End = toASTPosition(p.current.Pos)
	p.skipToNextLine()
	return dir
}

func (p *Parser) parsePriceDirective(date ast.Date, startPos Position) ast.Directive {
	dir := ast.PriceDirective{
		Date:  date,
		Range: ast.Range{Start: toASTPosition(startPos)},
	}

	if p.current.Type != TokenCommodity {
		p.error("expected commodity")
		return nil
	}
	dir.Commodity = p.current.Value
	p.advance()

	price := p.parseAmount()
	if price == nil {
		return nil
	}
	if price.Commodity == "" {
		p.error("price for %s has no quote currency", dir.Commodity)
		return nil
	}
	dir.Price = *price

	dir.Range.End = toASTPosition(p.current.Pos)
	p.skipToNextLine()
	return dir
}

func (p *Parser) parseCustom(date ast.Date, startPos Position) ast.Directive {
	if p.current.Type != TokenString {
		p.error("expected custom directive type")
		return nil
	}

	dir := ast.CustomDirective{
		Date:  date,
		Type:  p.current.Value,
		Range: ast.Range{Start: toASTPosition(startPos)},
	}
	p.advance()

	for p.current.Type != TokenNewline && p.current.Type != TokenEOF && p.current.Type != TokenComment {
		value, ok := p.parseCustomValue()
		if !ok {
			for p.current.Type != TokenNewline && p.current.Type != TokenEOF {
				p.advance()
			}
			return nil
		}
		dir.Values = append(dir.Values, value)
	}

	dir.Range.End = toASTPosition(p.current.Pos)
	p.skipToNextLine()
	return dir
}

func (p *Parser) parseCustomValue() (ast.CustomValue, bool) {
	tok := p.current
	r := ast.Range{Start: toASTPosition(tok.Pos), End: toASTPosition(tok.End)}

	switch tok.Type {
	case TokenString:
		p.advance()
		return ast.CustomValue{Kind: ast.ValueString, Text: tok.Value, Range: r}, true
	case TokenAccount:
		p.advance()
		return ast.CustomValue{Kind: ast.ValueAccount, Text: tok.Value, Range: r}, true
	case TokenDate:
		p.advance()
		if _, err := parseDateValue(tok.Value); err != nil {
			p.errorAt(tok.Pos, "%s", err.Error())
			return ast.CustomValue{}, false
		}
		return ast.CustomValue{Kind: ast.ValueDate, Text: tok.Value, Range: r}, true
	case TokenCommodity:
		if tok.Value == "TRUE" || tok.Value == "FALSE" {
			p.advance()
			return ast.CustomValue{Kind: ast.ValueBool, Bool: tok.Value == "TRUE", Text: tok.Value, Range: r}, true
		}
	case TokenNumber:
		amount := p.parseAmount()
		if amount == nil {
			return ast.CustomValue{}, false
		}
		value := ast.CustomValue{
			Kind:   ast.ValueNumber,
			Text:   tok.Value,
			Number: amount.Quantity,
			Range:  amount.Range,
		}
		if amount.Commodity != "" {
			value.Kind = ast.ValueAmount
			value.Commodity = amount.Commodity
		}
		return value, true
	}

	p.error("unexpected custom value: %s", tok.Type)
	return ast.CustomValue{}, false
}

func (p *Parser) parseUndatedDirective() ast.Directive {
	keyword := p.current.Value
	pos := p.current.Pos
	p.advance()

	switch keyword {
	case "option":
		return p.parseOption(pos)
	case "include":
		return p.parseInclude(pos)
	case "pushtag", "poptag":
		p.parseTagStack(keyword)
		return nil
	case "plugin":
		p.skipToNextLine()
		return nil
	default:
		p.errorAt(pos, "directive %s requires a date", keyword)
		p.skipEntry()
		return nil
	}
}

func (p *Parser) parseOption(startPos Position) ast.Directive {
	if p.current.Type != TokenString {
		p.error("expected option name")
		p.skipToNextLine()
		return nil
	}
	name := p.current.Value
	p.advance()

	if p.current.Type != TokenString {
		p.error("expected option value")
		p.skipToNextLine()
		return nil
	}
	value := p.current.Value
	p.advance()

	dir := ast.OptionDirective{
		Name:  name,
		Value: value,
		Range: ast.Range{Start: toASTPosition(startPos), End: toASTPosition(p.current.Pos)},
	}
	p.skipToNextLine()
	return dir
}

func (p *Parser) parseInclude(startPos Position) ast.Directive {
	if p.current.Type != TokenString {
		p.error("expected file path")
		p.skipToNextLine()
		return nil
	}

	inc := ast.Include{
		Path:  p.current.Value,
		Range: ast.Range{Start: toASTPosition(startPos), End: toASTPosition(p.current.End)},
	}
	p.skipToNextLine()
	return inc
}

func (p *Parser) parseTagStack(keyword string) {
	if p.current.Type != TokenTag {
		p.error("expected tag after %s", keyword)
		p.skipToNextLine()
		return
	}
	tag := p.current.Value
	if keyword == "pushtag" {
		p.tags = append(p.tags, tag)
	} else {
		for i := len(p.tags) - 1; i >= 0; i-- {
			if p.tags[i] == tag {
				p.tags = append(p.tags[:i], p.tags[i+1:]...)
				break
			}
		}
	}
	p.skipToNextLine()
}

func (p *Parser) account() ast.Account {
	acc := ast.Account{
		Name:  p.current.Value,
		Parts: strings.Split(p.current.Value, ":"),
		Range: ast.Range{Start: toASTPosition(p.current.Pos), End: toASTPosition(p.current.End)},
	}
	p.advance()
	return acc
}

func (p *Parser) parseComment() ast.Comment {
	comment := ast.Comment{
		Text:  p.current.Value,
		Range: ast.Range{Start: toASTPosition(p.current.Pos)},
	}
	p.advance()
	return comment
}

func (p *Parser) advance() {
	p.current = p.lexer.Next()
}

func (p *Parser) skipToNextLine() {
	for p.current.Type != TokenNewline && p.current.Type != TokenEOF {
		p.advance()
	}
	if p.current.Type == TokenNewline {
		p.advance()
	}
}

// skipMetadata drops the indented key/value lines that may follow a directive.
func (p *Parser) skipMetadata() {
	for p.current.Type == TokenIndent {
		p.skipToNextLine()
	}
}

func (p *Parser) skipEntry() {
	p.skipToNextLine()
	p.skipMetadata()
}

func (p *Parser) error(format string, args ...any) {
	p.errorAt(p.current.Pos, format, args...)
}

func (p *Parser) errorAt(pos Position, format string, args ...any) {
	p.errors = append(p.errors, ParseError{
		Message: fmt.Sprintf(format, args...),
		Pos:     pos,
	})
}

func toASTPosition(pos Position) ast.Position {
	return ast.Position{
		Line:   pos.Line,
		Column: pos.Column,
		Offset: pos.Offset,
	}
}
