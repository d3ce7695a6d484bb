package css

import (
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// maxParseErrors limits number of consecutive recoverable tokenizer errors
// before giving up on the rest of the input.
const maxParseErrors = 64

// Parser parses CSS stylesheets and inline style attributes.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text and adds resulting rules to sheet. When selective is
// true rules whose selectors do not reference any tag, class or id
// registered with sheet.MarkUsed are dropped. Source identifies what's being
// parsed for logging and warnings.
func (p *Parser) Parse(sheet *Stylesheet, data []byte, selective bool, source string) {
	before := sheet.Len()
	p.log.Debug("Parsing CSS", zap.String("source", source), zap.Int("bytes", len(data)), zap.Bool("selective", selective))

	parser := css.NewParser(parse.NewInputBytes(data), false)
	p.parseRules(parser, sheet, selective, source, false)

	p.log.Debug("CSS parsed", zap.String("source", source), zap.Int("rules", sheet.Len()-before))
}

// Imports returns targets of @import rules at the top of CSS text. Imports
// following any other rule are ignored, same as browsers do.
func (p *Parser) Imports(data []byte) []string {
	var imports []string
	parser := css.NewParser(parse.NewInputBytes(data), false)
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return imports
		case css.CommentGrammar, css.TokenGrammar:
		case css.AtRuleGrammar:
			switch strings.ToLower(string(data)) {
			case "@import":
				if url := extractImportURL(parser.Values()); url != "" {
					imports = append(imports, url)
				}
			case "@charset":
			default:
				return imports
			}
		default:
			return imports
		}
	}
}

// parseRules consumes rulesets and at-rules until end of input or, when
// nested is true, until end of enclosing at-rule block.
func (p *Parser) parseRules(parser *css.Parser, sheet *Stylesheet, selective bool, source string, nested bool) {
	var pending []string
	errCount := 0
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			err := parser.Err()
			if err == nil || errors.Is(err, io.EOF) {
				return
			}
			pending = nil
			errCount++
			sheet.Warn(source + ": " + err.Error())
			p.log.Debug("CSS parse error", zap.String("source", source), zap.Error(err))
			if errCount >= maxParseErrors {
				p.log.Warn("Too many CSS errors, ignoring the rest", zap.String("source", source))
				return
			}
			continue

		case css.EndAtRuleGrammar:
			if nested {
				return
			}

		case css.BeginAtRuleGrammar:
			atRule := strings.ToLower(string(data))
			if atRule != "@media" {
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
				p.skipAtRuleBlock(parser)
				break
			}
			queries := parseMediaQueries(parser.Values())
			if !queries.Evaluate() {
				p.log.Debug("Skipping @media block", zap.String("query", tokensToString(parser.Values())))
				p.skipAtRuleBlock(parser)
				break
			}
			p.parseRules(parser, sheet, selective, source, true)

		case css.AtRuleGrammar:
			atRule := strings.ToLower(string(data))
			if atRule == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sheet.Imports = append(sheet.Imports, url)
					p.log.Debug("Parsed @import", zap.String("url", url))
				}
			} else {
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.QualifiedRuleGrammar:
			// part of grouped selector, declarations follow BeginRulesetGrammar
			pending = append(pending, splitSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors := append(pending, splitSelectors(data, parser.Values())...)
			pending = nil
			decls := p.parseDeclarations(parser)
			if decls.Len() == 0 {
				break
			}
			p.addRules(sheet, selectors, decls, selective, source)
		}
		errCount = 0
	}
}

// addRules stores declarations under every supported selector.
func (p *Parser) addRules(sheet *Stylesheet, selectors []string, decls *Style, selective bool, source string) {
	for _, raw := range selectors {
		sel, err := ParseSelector(raw)
		if err != nil {
			sheet.Warn(source + ": " + err.Error())
			p.log.Debug("Skipping selector", zap.String("selector", raw), zap.Error(err))
			continue
		}
		if selective && !sheet.selectorUsed(&sel) {
			continue
		}
		sheet.Add(sel, decls)
	}
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(parser *css.Parser) *Style {
	style := NewStyle()
	errCount := 0
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			err := parser.Err()
			if err == nil || errors.Is(err, io.EOF) {
				return style
			}
			// malformed declaration, tokenizer resyncs on next one
			p.log.Debug("Dropping malformed declaration", zap.Error(err))
			if errCount++; errCount >= maxParseErrors {
				return style
			}
			continue

		case css.EndRulesetGrammar:
			return style

		case css.DeclarationGrammar:
			if d, ok := buildDeclaration(data, parser.Values()); ok {
				style.Declare(d)
			}

		case css.CustomPropertyGrammar:
			// CSS custom properties (--var) are not resolved
			continue
		}
	}
}

// ParseInline parses content of "style" attribute.
func (p *Parser) ParseInline(text string) *Style {
	style := NewStyle()
	if strings.TrimSpace(text) == "" {
		return style
	}

	parser := css.NewParser(parse.NewInputString(text), true)
	errCount := 0
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			err := parser.Err()
			if err == nil || errors.Is(err, io.EOF) {
				return style
			}
			errCount++
			p.log.Debug("Dropping malformed inline declaration", zap.String("style", text), zap.Error(err))
			if errCount >= maxParseErrors {
				return style
			}
			continue
		case css.DeclarationGrammar:
			if d, ok := buildDeclaration(data, parser.Values()); ok {
				style.Declare(d)
			}
		}
		errCount = 0
	}
}

// buildDeclaration converts declaration tokens to Declaration. Empty values
// are rejected.
func buildDeclaration(property []byte, tokens []css.Token) (Declaration, bool) {
	name := strings.ToLower(strings.TrimSpace(string(property)))
	if name == "" {
		return Declaration{}, false
	}

	tokens = trimWhitespace(tokens)
	important := false
	if n := len(tokens); n >= 2 {
		last := tokens[n-1]
		if last.TokenType == css.IdentToken && strings.EqualFold(string(last.Data), "important") {
			rest := trimWhitespace(tokens[:n-1])
			if k := len(rest); k > 0 && rest[k-1].TokenType == css.DelimToken && string(rest[k-1].Data) == "!" {
				important = true
				tokens = trimWhitespace(rest[:k-1])
			}
		}
	}

	value := tokensToString(tokens)
	if value == "" {
		return Declaration{}, false
	}
	return Declaration{Property: name, Value: value, Important: important}, true
}

func trimWhitespace(tokens []css.Token) []css.Token {
	for len(tokens) > 0 && tokens[0].TokenType == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].TokenType == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// tokensToString joins token data collapsing whitespace runs to single space.
func tokensToString(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// splitSelectors extracts grouped selector strings from token data.
func splitSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		if v.TokenType == css.WhitespaceToken {
			sb.WriteByte(' ')
			continue
		}
		sb.Write(v.Data)
	}

	var selectors []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			selectors = append(selectors, s)
		}
	}
	// commas inside :is(), :not() and attribute values do not split
	text, depth, start := sb.String(), 0, 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ',':
			if depth == 0 {
				add(text[start:i])
				start = i + 1
			}
		}
	}
	add(text[start:])
	return selectors
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for i, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			s := string(t.Data)
			s = strings.TrimPrefix(s, "url(")
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s))
		case css.FunctionToken:
			// url("...") is tokenized as function with string argument
			if strings.EqualFold(string(t.Data), "url(") {
				for _, a := range tokens[i+1:] {
					if a.TokenType == css.StringToken {
						return unquote(string(a.Data))
					}
				}
			}
		}
	}
	return ""
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err == nil || errors.Is(err, io.EOF) {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// parseMediaQueries parses media query list from @media prelude tokens.
// Format of every comma separated part: [not|only] type [and (feature)]...
func parseMediaQueries(tokens []css.Token) MediaQueryList {
	var (
		list  MediaQueryList
		cur   []css.Token
		flush = func() {
			if mq, ok := parseMediaQuery(cur); ok {
				list = append(list, mq)
			}
			cur = cur[:0]
		}
	)
	for _, t := range tokens {
		if t.TokenType == css.CommaToken {
			flush()
			continue
		}
		cur = append(cur, t)
	}
	flush()
	return list
}

func parseMediaQuery(tokens []css.Token) (MediaQuery, bool) {
	tokens = trimWhitespace(tokens)
	if len(tokens) == 0 {
		return MediaQuery{}, false
	}
	mq := MediaQuery{Raw: tokensToString(tokens)}

	depth := 0
	var feature strings.Builder
	for _, t := range tokens {
		switch t.TokenType {
		case css.LeftParenthesisToken:
			depth++
			if depth == 1 {
				feature.Reset()
				continue
			}
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				mq.Features = append(mq.Features, strings.TrimSpace(feature.String()))
				continue
			}
		}
		if depth > 0 {
			feature.Write(t.Data)
			continue
		}
		if t.TokenType != css.IdentToken {
			continue
		}
		switch ident := strings.ToLower(string(t.Data)); ident {
		case "not":
			mq.Negated = true
		case "only", "and":
		default:
			if mq.Type == "" {
				mq.Type = ident
			} else {
				mq.Features = append(mq.Features, ident)
			}
		}
	}
	return mq, true
}
