package parser

import (
	"strconv"
	"strings"

	"github.com/lychee-technology/smaq"
)

// Parser recognises the grammar spec §4.1 defines over a flat token stream.
type Parser struct {
	tokens []Token
	pos    int
}

// New constructs a Parser over query text.
func New(query string) *Parser {
	return &Parser{tokens: NewLexer(query).Tokenize()}
}

// Parse recognises query text into a smaq.ParsedQuery, or returns a *smaq.SmaError of type
// MalformedQuery (the skeleton was recognised but a required piece is missing/invalid) or
// UnsupportedQuery (the skeleton itself does not match the grammar).
func Parse(query string) (*smaq.ParsedQuery, error) {
	return New(query).Parse()
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: TokEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func isKeyword(t Token, kw string) bool {
	return t.Kind == TokIdent && strings.EqualFold(t.Text, kw)
}

// Parse drives the grammar:
//
//	SELECT (* | col (, col)*) FROM (read_parquet([path (, path)*]) | 'path') WHERE col OP number
//
// The WHERE predicate is required: a query without one is a MalformedQuery.
func (p *Parser) Parse() (*smaq.ParsedQuery, error) {
	if !isKeyword(p.cur(), "SELECT") {
		return nil, smaq.NewUnsupportedQueryError("query does not start with SELECT")
	}
	p.advance()

	projection, err := p.parseProjection()
	if err != nil {
		return nil, err
	}

	if !isKeyword(p.cur(), "FROM") {
		return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingFrom, "expected FROM after projection")
	}
	p.advance()

	files, err := p.parseFrom()
	if err != nil {
		return nil, err
	}

	var predicate smaq.Predicate
	if isKeyword(p.cur(), "WHERE") {
		p.advance()
		predicate, err = p.parseWhere()
		if err != nil {
			return nil, err
		}
	} else if p.cur().Kind != TokEOF {
		// trailing tokens that aren't WHERE: grammar doesn't recognise this shape at all.
		return nil, smaq.NewUnsupportedQueryError("unexpected tokens after FROM clause")
	} else {
		return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingWhere, "query has no WHERE predicate")
	}

	return &smaq.ParsedQuery{
		Files:      files,
		Projection: projection,
		Predicate:  predicate,
	}, nil
}

// parseProjection consumes "* " or a comma-separated column list. nil projection means "*".
func (p *Parser) parseProjection() ([]string, error) {
	if p.cur().Kind == TokStar {
		p.advance()
		return nil, nil
	}

	var cols []string
	for {
		t := p.cur()
		if t.Kind != TokIdent && t.Kind != TokString {
			if len(cols) == 0 {
				return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingProjection, "expected projection column list between SELECT and FROM")
			}
			break
		}
		cols = append(cols, strings.Trim(t.Text, `"`))
		p.advance()
		if p.cur().Kind == TokComma {
			p.advance()
			continue
		}
		break
	}
	if len(cols) == 0 {
		return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingProjection, "expected projection column list between SELECT and FROM")
	}
	return cols, nil
}

// parseFrom recognises the two shapes spec §4.1 names:
//
//	FROM read_parquet([<paths>])
//	FROM '<path>'
func (p *Parser) parseFrom() ([]string, error) {
	t := p.cur()

	if t.Kind == TokString {
		p.advance()
		if t.Text == "" {
			return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingFrom, "empty file path literal")
		}
		return []string{t.Text}, nil
	}

	if t.Kind == TokIdent && strings.EqualFold(t.Text, "read_parquet") {
		p.advance()
		if p.cur().Kind != TokLParen {
			return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingFrom, "expected '(' after read_parquet")
		}
		p.advance()
		if p.cur().Kind != TokLBracket {
			return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingFrom, "expected '[' to open read_parquet path list")
		}
		p.advance()

		var files []string
		for p.cur().Kind != TokRBracket {
			if p.cur().Kind != TokString {
				return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingFrom, "expected quoted file path in read_parquet([...])")
			}
			files = append(files, p.advance().Text)
			if p.cur().Kind == TokComma {
				p.advance()
				continue
			}
			break
		}
		if p.cur().Kind != TokRBracket {
			return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingFrom, "unterminated read_parquet path list")
		}
		p.advance()
		if p.cur().Kind != TokRParen {
			return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingFrom, "expected ')' to close read_parquet(...)")
		}
		p.advance()

		if len(files) == 0 {
			return nil, smaq.NewMalformedQueryError(smaq.ErrCodeMissingFrom, "read_parquet([...]) named no files")
		}
		return files, nil
	}

	return nil, smaq.NewUnsupportedQueryError("FROM clause is neither read_parquet([...]) nor a quoted path literal")
}

// parseWhere recognises "column OP number".
func (p *Parser) parseWhere() (smaq.Predicate, error) {
	colTok := p.cur()
	if colTok.Kind != TokIdent {
		return smaq.Predicate{}, smaq.NewMalformedQueryError(smaq.ErrCodeMissingWhere, "expected column identifier in WHERE clause")
	}
	p.advance()

	opTok := p.cur()
	if opTok.Kind != TokOp {
		return smaq.Predicate{}, smaq.NewMalformedQueryError(smaq.ErrCodeUnknownOperator, "expected comparison operator in WHERE clause")
	}
	op, ok := smaq.ParseOp(opTok.Text)
	if !ok {
		return smaq.Predicate{}, smaq.NewMalformedQueryError(smaq.ErrCodeUnknownOperator, "unrecognised operator "+opTok.Text)
	}
	p.advance()

	numTok := p.cur()
	if numTok.Kind != TokNumber {
		return smaq.Predicate{}, smaq.NewMalformedQueryError(smaq.ErrCodeMissingWhere, "expected numeric literal in WHERE clause")
	}
	literal, err := strconv.ParseFloat(numTok.Text, 64)
	if err != nil {
		return smaq.Predicate{}, smaq.NewMalformedQueryError(smaq.ErrCodeMissingWhere, "invalid numeric literal "+numTok.Text)
	}
	p.advance()

	if p.cur().Kind != TokEOF {
		return smaq.Predicate{}, smaq.NewUnsupportedQueryError("unexpected tokens after WHERE predicate")
	}

	return smaq.Predicate{Column: colTok.Text, Op: op, Literal: literal}, nil
}
